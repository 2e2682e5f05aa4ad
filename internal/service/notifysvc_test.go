package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jmhodges/clock"

	"pwnotify/internal/config"
	"pwnotify/internal/domain"
)

type stubDirectory struct {
	pingErr     error
	fetchErr    error
	accounts    []domain.AccountRecord
	fetchCalled bool
}

func (d *stubDirectory) Ping(context.Context) error { return d.pingErr }

func (d *stubDirectory) FetchAccounts(context.Context) ([]domain.AccountRecord, error) {
	d.fetchCalled = true
	if d.fetchErr != nil {
		return nil, d.fetchErr
	}
	return d.accounts, nil
}

type stubMailer struct {
	pingErr  error
	sendFunc func(domain.Message) error
	sent     []domain.Message
}

func (m *stubMailer) Ping(context.Context) error { return m.pingErr }

func (m *stubMailer) Send(_ context.Context, msg domain.Message) error {
	if m.sendFunc != nil {
		if err := m.sendFunc(msg); err != nil {
			return err
		}
	}
	m.sent = append(m.sent, msg)
	return nil
}

type stubReporter struct {
	records []domain.OutcomeRecord
}

func (r *stubReporter) Record(o domain.OutcomeRecord) error {
	r.records = append(r.records, o)
	return nil
}

func (r *stubReporter) Finalize() string {
	lines := []string{"Username,Days To Expiration,Result"}
	for _, o := range r.records {
		lines = append(lines, o.AccountName)
	}
	return strings.Join(lines, "\n")
}

func testConfig() config.RunConfig {
	return config.RunConfig{
		SMTPAddr:           "mail.example.org:25",
		AdminEmail:         "ops@example.org",
		PasswordPolicyDays: 60,
		UpperThresholdDays: 15,
		LowerThresholdDays: 10,
		EmailFrom:          "noreply@example.org",
		EmailSubject:       "Password notice for [USERNAME]",
		EmailBodyTemplate:  "Dear [USERNAME], your password [PASSWORDSTATEMESSAGE].",
		Exclusions:         []string{"svc_backup"},
	}
}

// fixedClock returns a fake clock pinned to an afternoon, so the upper
// threshold (15 days) applies.
func fixedClock(t *testing.T) (clock.FakeClock, time.Time) {
	t.Helper()
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	fc := clock.NewFake()
	fc.Set(now)
	return fc, now
}

func accountLastSet(now time.Time, daysAgo int) time.Time {
	return now.Add(-time.Duration(daysAgo) * 24 * time.Hour)
}

func TestRunEndToEnd(t *testing.T) {
	fc, now := fixedClock(t)
	dir := &stubDirectory{accounts: []domain.AccountRecord{
		{AccountName: "svc_backup", DisplayName: "Backup", MailAddress: "backup@example.org",
			PasswordLastSet: accountLastSet(now, 55), AccountControlFlags: 512},
		{AccountName: "asmith", DisplayName: "A. Smith", MailAddress: "asmith@example.org",
			PasswordLastSet: accountLastSet(now, -40), AccountControlFlags: 512}, // 100 days remaining
		{AccountName: "jdoe", DisplayName: "J. Doe", MailAddress: "jdoe@example.org",
			PasswordLastSet: accountLastSet(now, 55), AccountControlFlags: 512}, // 5 days remaining
	}}
	mailer := &stubMailer{}
	rep := &stubReporter{}

	svc := &NotifyService{
		Config:    testConfig(),
		Directory: dir,
		Mailer:    mailer,
		Reporter:  rep,
		Clock:     fc,
	}

	sum, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Processed != 3 || sum.Notified != 1 || sum.Failed != 0 {
		t.Errorf("summary: %+v", sum)
	}

	// One notification plus the administrator summary.
	if len(mailer.sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(mailer.sent))
	}
	notification := mailer.sent[0]
	if notification.To != "jdoe@example.org" {
		t.Errorf("notification recipient: got %q", notification.To)
	}
	if !strings.Contains(notification.Body, "Dear J. Doe") || !strings.Contains(notification.Body, "will expire in 5 days") {
		t.Errorf("notification body: %q", notification.Body)
	}
	if notification.Subject != "Password notice for J. Doe" {
		t.Errorf("notification subject: %q", notification.Subject)
	}

	adminMsg := mailer.sent[1]
	if adminMsg.To != "ops@example.org" {
		t.Errorf("summary recipient: got %q", adminMsg.To)
	}
	if adminMsg.Body != rep.Finalize() {
		t.Errorf("summary body should be the finalized report")
	}

	want := []domain.OutcomeRecord{
		{AccountName: "svc_backup", DaysToExpiry: 5, Result: domain.ResultExcludedByList},
		{AccountName: "asmith", DaysToExpiry: 100, Result: domain.ResultOutsideThreshold},
		{AccountName: "jdoe", DaysToExpiry: 5, Result: domain.ResultNotified},
	}
	if len(rep.records) != len(want) {
		t.Fatalf("recorded %d outcomes, want %d", len(rep.records), len(want))
	}
	for i, w := range want {
		if rep.records[i] != w {
			t.Errorf("outcome[%d]: got %+v, want %+v", i, rep.records[i], w)
		}
	}
}

func TestRunSendFailureDoesNotStopLoop(t *testing.T) {
	fc, now := fixedClock(t)
	dir := &stubDirectory{accounts: []domain.AccountRecord{
		{AccountName: "jdoe", DisplayName: "J. Doe", MailAddress: "jdoe@example.org",
			PasswordLastSet: accountLastSet(now, 58), AccountControlFlags: 512},
		{AccountName: "asmith", DisplayName: "A. Smith", MailAddress: "asmith@example.org",
			PasswordLastSet: accountLastSet(now, 57), AccountControlFlags: 512},
	}}
	mailer := &stubMailer{
		sendFunc: func(msg domain.Message) error {
			if msg.To == "jdoe@example.org" {
				return errors.New("mailbox on fire")
			}
			return nil
		},
	}
	rep := &stubReporter{}

	svc := &NotifyService{Config: testConfig(), Directory: dir, Mailer: mailer, Reporter: rep, Clock: fc}
	sum, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Notified != 1 || sum.Failed != 1 {
		t.Errorf("summary: %+v", sum)
	}

	if rep.records[0].Result != domain.ResultSendFailed {
		t.Errorf("jdoe result: %q", rep.records[0].Result)
	}
	if rep.records[1].Result != domain.ResultNotified {
		t.Errorf("asmith result: %q", rep.records[1].Result)
	}
}

func TestRunRecordsBadTimestampAndContinues(t *testing.T) {
	fc, now := fixedClock(t)
	dir := &stubDirectory{accounts: []domain.AccountRecord{
		{AccountName: "ghost", DisplayName: "Ghost", MailAddress: "ghost@example.org",
			AccountControlFlags: 512}, // zero PasswordLastSet
		{AccountName: "jdoe", DisplayName: "J. Doe", MailAddress: "jdoe@example.org",
			PasswordLastSet: accountLastSet(now, 55), AccountControlFlags: 512},
	}}
	mailer := &stubMailer{}
	rep := &stubReporter{}

	svc := &NotifyService{Config: testConfig(), Directory: dir, Mailer: mailer, Reporter: rep, Clock: fc}
	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if rep.records[0].Result != domain.ResultBadTimestamp || rep.records[0].DaysToExpiry != 0 {
		t.Errorf("ghost outcome: %+v", rep.records[0])
	}
	if rep.records[1].Result != domain.ResultNotified {
		t.Errorf("jdoe outcome: %+v", rep.records[1])
	}
}

func TestRunMissingMailAddressIsPerAccountFailure(t *testing.T) {
	fc, now := fixedClock(t)
	dir := &stubDirectory{accounts: []domain.AccountRecord{
		{AccountName: "jdoe", DisplayName: "J. Doe",
			PasswordLastSet: accountLastSet(now, 55), AccountControlFlags: 512},
	}}
	mailer := &stubMailer{}
	rep := &stubReporter{}

	svc := &NotifyService{Config: testConfig(), Directory: dir, Mailer: mailer, Reporter: rep, Clock: fc}
	sum, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Failed != 1 {
		t.Errorf("summary: %+v", sum)
	}
	if rep.records[0].Result != domain.ResultNoMailAddress {
		t.Errorf("outcome: %+v", rep.records[0])
	}
	// Only the administrator summary goes out.
	if len(mailer.sent) != 1 || mailer.sent[0].To != "ops@example.org" {
		t.Errorf("sent: %+v", mailer.sent)
	}
}

func TestRunMailerUnreachableAbortsBeforeDirectory(t *testing.T) {
	fc, _ := fixedClock(t)
	dir := &stubDirectory{}
	mailer := &stubMailer{pingErr: errors.New("connection refused")}
	rep := &stubReporter{}

	svc := &NotifyService{Config: testConfig(), Directory: dir, Mailer: mailer, Reporter: rep, Clock: fc}
	_, err := svc.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "mail transport unreachable") {
		t.Fatalf("expected mail transport diagnostic, got %v", err)
	}
	if dir.fetchCalled {
		t.Errorf("directory fetched despite failed transport preflight")
	}
	if len(rep.records) != 0 || len(mailer.sent) != 0 {
		t.Errorf("work happened despite fatal preflight: %d records, %d sends", len(rep.records), len(mailer.sent))
	}
}

func TestRunDirectoryFetchFailureIsFatal(t *testing.T) {
	fc, _ := fixedClock(t)
	dir := &stubDirectory{fetchErr: errors.New("server down")}
	mailer := &stubMailer{}
	rep := &stubReporter{}

	svc := &NotifyService{Config: testConfig(), Directory: dir, Mailer: mailer, Reporter: rep, Clock: fc}
	_, err := svc.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "directory query failed") {
		t.Fatalf("expected directory query diagnostic, got %v", err)
	}
	if len(rep.records) != 0 {
		t.Errorf("outcomes recorded despite fatal fetch failure")
	}
}

func TestRunEmptyDirectoryIsZeroWork(t *testing.T) {
	fc, _ := fixedClock(t)
	dir := &stubDirectory{}
	mailer := &stubMailer{}
	rep := &stubReporter{}

	svc := &NotifyService{Config: testConfig(), Directory: dir, Mailer: mailer, Reporter: rep, Clock: fc}
	sum, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Processed != 0 {
		t.Errorf("summary: %+v", sum)
	}
	// The administrator still receives the (empty) report.
	if len(mailer.sent) != 1 {
		t.Errorf("sent %d messages, want 1", len(mailer.sent))
	}
}
