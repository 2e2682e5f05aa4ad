package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmhodges/clock"

	"pwnotify/internal/config"
	"pwnotify/internal/directory"
	"pwnotify/internal/domain"
	"pwnotify/internal/email"
	"pwnotify/internal/expiry"
	"pwnotify/internal/render"
)

// RunReporter is the slice of the reporter the orchestrator uses.
type RunReporter interface {
	Record(o domain.OutcomeRecord) error
	Finalize() string
}

// NotifyService runs the notification pipeline once: preflight, fetch,
// classify each account in source order, send where due, record every
// outcome, then mail the aggregate report to the administrator.
type NotifyService struct {
	Config    config.RunConfig
	Directory directory.Source
	Mailer    email.Mailer
	Reporter  RunReporter
	Clock     clock.Clock
	Logger    *slog.Logger
}

// Summary is the aggregate result of one run.
type Summary struct {
	RunID     string
	Processed int
	Notified  int
	Failed    int
}

func (s *NotifyService) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *NotifyService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Preflight checks that the mail transport and the directory are
// reachable. Both checks run before any account work; each failure
// names the collaborator that was unreachable.
func (s *NotifyService) Preflight(ctx context.Context) error {
	if err := s.Mailer.Ping(ctx); err != nil {
		return fmt.Errorf("mail transport unreachable: %w", err)
	}
	if err := s.Directory.Ping(ctx); err != nil {
		return fmt.Errorf("directory unreachable: %w", err)
	}
	return nil
}

// Run executes the pipeline. Pre-loop validation failures abort before
// any account is touched; a failure while processing one account is
// recorded and never stops the loop.
func (s *NotifyService) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: uuid.NewString()}
	logger := s.logger().With("run_id", sum.RunID)
	now := s.now()

	if err := s.Preflight(ctx); err != nil {
		return sum, err
	}

	accounts, err := s.Directory.FetchAccounts(ctx)
	if err != nil {
		return sum, fmt.Errorf("directory query failed: %w", err)
	}

	policy := expiry.Policy{
		PolicyDays:         s.Config.PasswordPolicyDays,
		UpperThresholdDays: s.Config.UpperThresholdDays,
		LowerThresholdDays: s.Config.LowerThresholdDays,
		Exclusions:         s.Config.ExclusionSet(),
	}
	logger.Info("processing accounts",
		"count", len(accounts),
		"policy_days", policy.PolicyDays,
		"threshold_days", policy.SelectThreshold(now),
	)

	for _, acct := range accounts {
		outcome := s.processAccount(ctx, acct, policy, now, logger)
		if err := s.Reporter.Record(outcome); err != nil {
			return sum, fmt.Errorf("record outcome for %s: %w", acct.AccountName, err)
		}
		sum.Processed++
		switch outcome.Result {
		case domain.ResultNotified:
			sum.Notified++
		case domain.ResultSendFailed, domain.ResultBadTimestamp, domain.ResultNoMailAddress:
			sum.Failed++
		}
	}

	summary := domain.Message{
		From: s.Config.EmailFrom,
		To:   s.Config.AdminEmail,
		Subject: fmt.Sprintf("Password expiry run %s: %d processed, %d notified, %d failed",
			sum.RunID, sum.Processed, sum.Notified, sum.Failed),
		Body: s.Reporter.Finalize(),
	}
	if err := s.Mailer.Send(ctx, summary); err != nil {
		// The report file is already on disk; only the mailed copy failed.
		return sum, fmt.Errorf("send administrator summary: %w", err)
	}

	logger.Info("run complete",
		"processed", sum.Processed, "notified", sum.Notified, "failed", sum.Failed)
	return sum, nil
}

func (s *NotifyService) processAccount(ctx context.Context, acct domain.AccountRecord, policy expiry.Policy, now time.Time, logger *slog.Logger) domain.OutcomeRecord {
	if !acct.HasPasswordLastSet() {
		logger.Warn("unusable password-last-set value", "account", acct.AccountName)
		return domain.OutcomeRecord{AccountName: acct.AccountName, Result: domain.ResultBadTimestamp}
	}

	d := expiry.Classify(acct, policy, now)
	outcome := domain.OutcomeRecord{AccountName: acct.AccountName, DaysToExpiry: d.DaysToExpiry}

	switch d.Kind {
	case domain.ExcludedByList:
		outcome.Result = domain.ResultExcludedByList
	case domain.ExcludedByAccountState:
		outcome.Result = domain.ResultExcludedByState
	case domain.OutsideThreshold:
		outcome.Result = domain.ResultOutsideThreshold
	case domain.Notify:
		outcome.Result = s.notify(ctx, acct, d.DaysToExpiry, logger)
	}
	return outcome
}

// notify renders and sends one notification to the account's own mail
// address and returns the result label for the audit trail.
func (s *NotifyService) notify(ctx context.Context, acct domain.AccountRecord, daysToExpiry int, logger *slog.Logger) string {
	if acct.MailAddress == "" {
		logger.Warn("account due notification has no mail address", "account", acct.AccountName)
		return domain.ResultNoMailAddress
	}

	displayName := acct.DisplayName
	if displayName == "" {
		displayName = acct.AccountName
	}

	msg := domain.Message{
		From:    s.Config.EmailFrom,
		To:      acct.MailAddress,
		Subject: render.Subject(s.Config.EmailSubject, displayName, daysToExpiry),
		Body:    render.Body(s.Config.EmailBodyTemplate, displayName, daysToExpiry),
	}
	if err := s.Mailer.Send(ctx, msg); err != nil {
		logger.Warn("notification send failed",
			"account", acct.AccountName, "days_to_expiry", daysToExpiry, "err", err)
		return domain.ResultSendFailed
	}

	logger.Debug("notification sent", "account", acct.AccountName, "days_to_expiry", daysToExpiry)
	return domain.ResultNotified
}
