package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"pwnotify/internal/domain"
)

// PostgresSource reads accounts from a directory mirror table. The
// mirror carries no server ordering, so the account key order stands in
// as source order and keeps runs deterministic.
type PostgresSource struct {
	pool *pgxpool.Pool
}

func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

// Open connects a pool and verifies it with a ping.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}

func (s *PostgresSource) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDirectoryUnavailable, err)
	}
	return nil
}

func (s *PostgresSource) FetchAccounts(ctx context.Context) ([]domain.AccountRecord, error) {
	const q = `
		SELECT account_name, display_name, mail, password_last_set, account_control_flags
		FROM directory_accounts
		ORDER BY account_name
	`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: query directory_accounts: %v", domain.ErrDirectoryUnavailable, err)
	}
	defer rows.Close()

	var accounts []domain.AccountRecord
	for rows.Next() {
		var (
			a           domain.AccountRecord
			displayText pgtype.Text
			mailText    pgtype.Text
			lastSetTS   pgtype.Timestamptz
			flags       int64
		)
		if err := rows.Scan(&a.AccountName, &displayText, &mailText, &lastSetTS, &flags); err != nil {
			return nil, fmt.Errorf("%w: scan directory_accounts: %v", domain.ErrDirectoryUnavailable, err)
		}
		a.DisplayName = textOrEmpty(displayText)
		a.MailAddress = textOrEmpty(mailText)
		a.PasswordLastSet = timestamptzOrZero(lastSetTS)
		a.AccountControlFlags = uint32(flags)
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read directory_accounts: %v", domain.ErrDirectoryUnavailable, err)
	}
	return accounts, nil
}

func textOrEmpty(t pgtype.Text) string {
	if t.Valid {
		return t.String
	}
	return ""
}

// timestamptzOrZero maps a NULL password_last_set to the zero time, the
// same signal the LDAP source uses for a missing pwdLastSet.
func timestamptzOrZero(t pgtype.Timestamptz) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time
}
