// Package expiry holds the password-expiry decision policy. Everything
// here is pure: time is an argument, never an ambient clock read.
package expiry

import (
	"time"

	"pwnotify/internal/domain"
)

// Policy is the slice of run configuration the classifier needs.
type Policy struct {
	PolicyDays         int
	UpperThresholdDays int
	LowerThresholdDays int
	Exclusions         map[string]struct{}
}

// SelectThreshold picks the warning window for this run from the local
// wall-clock hour: afternoon runs (hour >= 12) use the upper threshold,
// morning runs the lower one. Computed once per run, not per account.
func (p Policy) SelectThreshold(now time.Time) int {
	if now.Hour() >= 12 {
		return p.UpperThresholdDays
	}
	return p.LowerThresholdDays
}

// DaysToExpiry returns policy days minus the whole elapsed days since
// the password was last set. Elapsed days truncate toward zero; the
// result may be zero or negative for an already-expired password.
func (p Policy) DaysToExpiry(passwordLastSet, now time.Time) int {
	elapsed := int(now.Sub(passwordLastSet).Hours() / 24)
	return p.PolicyDays - elapsed
}

// Classify applies the decision policy to one account. Precedence is
// fixed and first-match-wins: exclusion list, then account state, then
// threshold. An account past expiry (days <= 0) still classifies as
// Notify; the renderer words the message differently.
func Classify(acct domain.AccountRecord, p Policy, now time.Time) domain.Disposition {
	days := p.DaysToExpiry(acct.PasswordLastSet, now)

	if _, excluded := p.Exclusions[acct.AccountName]; excluded {
		return domain.Disposition{Kind: domain.ExcludedByList, DaysToExpiry: days}
	}
	if acct.AccountControlFlags != domain.NormalAccountFlags {
		return domain.Disposition{Kind: domain.ExcludedByAccountState, DaysToExpiry: days}
	}
	if days > p.SelectThreshold(now) {
		return domain.Disposition{Kind: domain.OutsideThreshold, DaysToExpiry: days}
	}
	return domain.Disposition{Kind: domain.Notify, DaysToExpiry: days}
}
