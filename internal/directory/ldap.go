package directory

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-ldap/ldap/v3"

	"pwnotify/internal/domain"
)

// Active Directory user attributes consumed per account.
const (
	attrAccountName    = "sAMAccountName"
	attrDisplayName    = "displayName"
	attrMail           = "mail"
	attrPwdLastSet     = "pwdLastSet"
	attrAccountControl = "userAccountControl"
)

const userFilter = "(&(objectCategory=person)(objectClass=user))"

// Seconds between the Windows FILETIME epoch (1601-01-01) and the Unix
// epoch.
const filetimeEpochOffset = 11644473600

// LDAPSource queries user accounts from an LDAP directory.
type LDAPSource struct {
	URL          string
	BindDN       string
	BindPassword string
	BaseDN       string
}

func (s *LDAPSource) connect(ctx context.Context) (*ldap.Conn, error) {
	conn, err := ldap.DialURL(s.URL)
	if err != nil {
		return nil, fmt.Errorf("ldap dial %s: %w", s.URL, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetTimeout(time.Until(deadline))
	}
	if s.BindDN != "" {
		if err := conn.Bind(s.BindDN, s.BindPassword); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ldap bind %s: %w", s.BindDN, err)
		}
	}
	return conn, nil
}

// Ping verifies the directory is reachable and the bind credentials are
// accepted.
func (s *LDAPSource) Ping(ctx context.Context) error {
	conn, err := s.connect(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDirectoryUnavailable, err)
	}
	conn.Close()
	return nil
}

// FetchAccounts returns every user account under the base DN, in the
// order the server returns entries.
func (s *LDAPSource) FetchAccounts(ctx context.Context) ([]domain.AccountRecord, error) {
	conn, err := s.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDirectoryUnavailable, err)
	}
	defer conn.Close()

	req := ldap.NewSearchRequest(
		s.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, 0, false,
		userFilter,
		[]string{attrAccountName, attrDisplayName, attrMail, attrPwdLastSet, attrAccountControl},
		nil,
	)

	res, err := conn.Search(req)
	if err != nil {
		return nil, fmt.Errorf("%w: search %s: %v", domain.ErrDirectoryUnavailable, s.BaseDN, err)
	}

	accounts := make([]domain.AccountRecord, 0, len(res.Entries))
	for _, entry := range res.Entries {
		accounts = append(accounts, entryToAccount(entry))
	}
	return accounts, nil
}

func entryToAccount(entry *ldap.Entry) domain.AccountRecord {
	return domain.AccountRecord{
		AccountName:         entry.GetAttributeValue(attrAccountName),
		DisplayName:         entry.GetAttributeValue(attrDisplayName),
		MailAddress:         entry.GetAttributeValue(attrMail),
		PasswordLastSet:     parsePwdLastSet(entry.GetAttributeValue(attrPwdLastSet)),
		AccountControlFlags: parseAccountControl(entry.GetAttributeValue(attrAccountControl)),
	}
}

// parsePwdLastSet converts an AD pwdLastSet value (100 ns FILETIME
// ticks) to a time. Zero, absent, or unparsable values yield the zero
// time, which downstream records as a per-account data-quality failure.
func parsePwdLastSet(raw string) time.Time {
	ticks, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ticks <= 0 {
		return time.Time{}
	}
	secs := ticks/10000000 - filetimeEpochOffset
	nanos := (ticks % 10000000) * 100
	return time.Unix(secs, nanos).UTC()
}

// parseAccountControl returns 0 for absent or unparsable flags, which
// is never NormalAccountFlags and therefore excludes the account.
func parseAccountControl(raw string) uint32 {
	flags, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(flags)
}
