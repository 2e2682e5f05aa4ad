// Package directory supplies the account records the run classifies.
// Two sources are supported: a live LDAP/Active Directory query and a
// Postgres mirror for organizations that replicate the directory into
// SQL.
package directory

import (
	"context"

	"pwnotify/internal/domain"
)

// Source is the directory contract the orchestrator depends on. A
// failed fetch is fatal to the run; an empty result is zero work.
// Records must be returned in source order — the audit report preserves
// it.
type Source interface {
	FetchAccounts(ctx context.Context) ([]domain.AccountRecord, error)
	Ping(ctx context.Context) error
}
