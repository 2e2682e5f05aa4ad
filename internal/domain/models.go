package domain

import "time"

// NormalAccountFlags is the directory account-control value for a normal,
// enabled account whose password is subject to expiry. Any other value
// (disabled, locked, password-never-expires, ...) excludes the account
// from notification.
const NormalAccountFlags uint32 = 512

// AccountRecord is one directory entry as returned by the directory
// source. Records are read-only snapshots for the duration of a run.
type AccountRecord struct {
	AccountName         string
	DisplayName         string
	MailAddress         string
	PasswordLastSet     time.Time
	AccountControlFlags uint32
}

// HasPasswordLastSet reports whether the directory supplied a usable
// password-last-set timestamp. A zero time means the attribute was
// absent, zero, or unparsable at the source.
func (a AccountRecord) HasPasswordLastSet() bool {
	return !a.PasswordLastSet.IsZero()
}

// DispositionKind is the classification outcome for one account.
type DispositionKind int

const (
	// ExcludedByList: the account name is on the configured exclusion list.
	ExcludedByList DispositionKind = iota
	// ExcludedByAccountState: account-control flags are not NormalAccountFlags.
	ExcludedByAccountState
	// OutsideThreshold: the password has more remaining life than the
	// selected warning threshold.
	OutsideThreshold
	// Notify: the account is due a notification. DaysToExpiry may be zero
	// or negative (already expired).
	Notify
)

func (k DispositionKind) String() string {
	switch k {
	case ExcludedByList:
		return "excluded_by_list"
	case ExcludedByAccountState:
		return "excluded_by_account_state"
	case OutsideThreshold:
		return "outside_threshold"
	case Notify:
		return "notify"
	default:
		return "unknown"
	}
}

// Disposition is the result of classifying one AccountRecord.
// DaysToExpiry is populated for every kind so the audit report can show
// remaining lifetime even for excluded accounts.
type Disposition struct {
	Kind         DispositionKind
	DaysToExpiry int
}

// Result labels recorded in the audit report, one per outcome. The
// report format writes these unquoted, so labels must stay comma-free.
const (
	ResultExcludedByList   = "Excluded By Exclusion List"
	ResultExcludedByState  = "Excluded By Account State"
	ResultOutsideThreshold = "Outside Notification Threshold"
	ResultNotified         = "Notification Sent"
	ResultSendFailed       = "Failed: Unable To Send Notification"
	ResultBadTimestamp     = "Failed: Invalid Password Last Set"
	ResultNoMailAddress    = "Failed: No Mail Address"
)

// OutcomeRecord is the audit entry for one processed account. Records
// are immutable once written and kept in the order accounts were
// returned by the directory source.
type OutcomeRecord struct {
	AccountName  string
	DaysToExpiry int
	Result       string
}

// Message is a rendered notification handed to the mail sink. It is not
// retained after the send attempt.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}
