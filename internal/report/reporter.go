// Package report accumulates the per-run audit trail: one outcome per
// processed account, mirrored to a comma-delimited file as each account
// is handled so partial progress survives a crash.
package report

import (
	"fmt"
	"os"
	"strings"

	"pwnotify/internal/domain"
)

// Header is the fixed first line of every report.
const Header = "Username,Days To Expiration,Result"

// Reporter owns the run's ordered outcome sequence. It is used from a
// single goroutine; there is no concurrent writer.
type Reporter struct {
	file     *os.File
	outcomes []domain.OutcomeRecord
}

// New truncates any report left by a prior run at path, writes the
// header, and returns a Reporter ready to record.
func New(path string) (*Reporter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create report %s: %w", path, err)
	}
	if _, err := f.WriteString(Header + "\n"); err != nil {
		f.Close()
		return nil, fmt.Errorf("write report header: %w", err)
	}
	return &Reporter{file: f}, nil
}

// Record appends the outcome in memory and writes its line to the file
// immediately. Outcomes keep the order accounts were processed in.
// Account names and result labels are comma-free by contract, so fields
// are written unquoted.
func (r *Reporter) Record(o domain.OutcomeRecord) error {
	r.outcomes = append(r.outcomes, o)
	line := formatLine(o)
	if _, err := r.file.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write report line for %s: %w", o.AccountName, err)
	}
	return nil
}

// Outcomes returns the recorded outcomes in processing order.
func (r *Reporter) Outcomes() []domain.OutcomeRecord {
	return r.outcomes
}

// Finalize returns the full report content, byte-identical to the file,
// for use as the administrator summary body.
func (r *Reporter) Finalize() string {
	var b strings.Builder
	b.WriteString(Header + "\n")
	for _, o := range r.outcomes {
		b.WriteString(formatLine(o) + "\n")
	}
	return b.String()
}

// Close closes the backing file.
func (r *Reporter) Close() error {
	return r.file.Close()
}

func formatLine(o domain.OutcomeRecord) string {
	return fmt.Sprintf("%s,%d,%s", o.AccountName, o.DaysToExpiry, o.Result)
}
