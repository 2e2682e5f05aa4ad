package config

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"pwnotify/internal/domain"
)

// RunConfig is the validated configuration for a single run. It is
// loaded once, never mutated, and passed explicitly to every component.
type RunConfig struct {
	SMTPAddr     string
	SMTPTLSMode  string
	SMTPUsername string
	SMTPPassword string
	AdminEmail   string

	PasswordPolicyDays int
	UpperThresholdDays int
	LowerThresholdDays int

	EmailFrom         string
	EmailSubject      string
	EmailBodyTemplate string

	// Exclusions keeps the configured order (deduplicated) so logging is
	// deterministic; membership tests go through ExclusionSet.
	Exclusions []string

	Directory DirectoryConfig

	LogLevel   string
	ReportPath string
}

// DirectoryConfig selects and parameterizes the directory source.
type DirectoryConfig struct {
	Type         string // "ldap" or "postgres"
	URL          string
	BindDN       string
	BindPassword string
	BaseDN       string
	DSN          string
}

// ExclusionSet returns the exclusion list as a set. Account names are
// case-sensitive.
func (c RunConfig) ExclusionSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Exclusions))
	for _, name := range c.Exclusions {
		set[name] = struct{}{}
	}
	return set
}

type fileConfig struct {
	XMLName        xml.Name  `xml:"pwnotify"`
	SMTP           string    `xml:"smtp"`
	SMTPTLS        string    `xml:"smtptls"`
	SMTPUser       string    `xml:"smtpuser"`
	SMTPPassword   string    `xml:"smtppassword"`
	AdminEmail     string    `xml:"adminemail"`
	Policy         *int      `xml:"policy"`
	UpperThreshold *int      `xml:"upperthreshold"`
	LowerThreshold *int      `xml:"lowerthreshold"`
	Email          fileEmail `xml:"email"`
	Exclusions     struct {
		Exclusion []string `xml:"exclusion"`
	} `xml:"exclusions"`
	Directory fileDirectory `xml:"directory"`
	LogLevel  string        `xml:"loglevel"`
	Report    string        `xml:"report"`
}

type fileEmail struct {
	From    string `xml:"from"`
	Subject string `xml:"subject"`
	Body    string `xml:"body"`
}

type fileDirectory struct {
	Type         string `xml:"type,attr"`
	URL          string `xml:"url"`
	BindDN       string `xml:"binddn"`
	BindPassword string `xml:"bindpassword"`
	BaseDN       string `xml:"basedn"`
	DSN          string `xml:"dsn"`
}

// Load reads and validates the configuration file. Validation is
// all-or-nothing: no partial config is returned, and every failure names
// the precondition that was violated.
func Load(path string) (RunConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return RunConfig{}, fmt.Errorf("%w: %s", domain.ErrConfigMissing, path)
		}
		return RunConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := xml.Unmarshal(raw, &fc); err != nil {
		return RunConfig{}, fmt.Errorf("%w: %s: %v", domain.ErrConfigMalformed, path, err)
	}

	return validate(fc)
}

func validate(fc fileConfig) (RunConfig, error) {
	cfg := RunConfig{
		SMTPAddr:          strings.TrimSpace(fc.SMTP),
		SMTPTLSMode:       strings.TrimSpace(fc.SMTPTLS),
		SMTPUsername:      strings.TrimSpace(fc.SMTPUser),
		SMTPPassword:      fc.SMTPPassword,
		AdminEmail:        strings.TrimSpace(fc.AdminEmail),
		EmailFrom:         strings.TrimSpace(fc.Email.From),
		EmailSubject:      strings.TrimSpace(fc.Email.Subject),
		EmailBodyTemplate: fc.Email.Body,
		LogLevel:          strings.TrimSpace(fc.LogLevel),
		ReportPath:        strings.TrimSpace(fc.Report),
	}

	if cfg.SMTPAddr == "" {
		return RunConfig{}, domain.NewIncompleteFieldError("smtp")
	}
	if cfg.AdminEmail == "" {
		return RunConfig{}, domain.NewIncompleteFieldError("adminemail")
	}
	if fc.Policy == nil {
		return RunConfig{}, domain.NewIncompleteFieldError("policy")
	}
	if fc.UpperThreshold == nil {
		return RunConfig{}, domain.NewIncompleteFieldError("upperthreshold")
	}
	if fc.LowerThreshold == nil {
		return RunConfig{}, domain.NewIncompleteFieldError("lowerthreshold")
	}
	if cfg.EmailFrom == "" {
		return RunConfig{}, domain.NewIncompleteFieldError("email.from")
	}
	if cfg.EmailSubject == "" {
		return RunConfig{}, domain.NewIncompleteFieldError("email.subject")
	}
	if strings.TrimSpace(fc.Email.Body) == "" {
		return RunConfig{}, domain.NewIncompleteFieldError("email.body")
	}

	cfg.PasswordPolicyDays = *fc.Policy
	cfg.UpperThresholdDays = *fc.UpperThreshold
	cfg.LowerThresholdDays = *fc.LowerThreshold

	if cfg.PasswordPolicyDays <= 0 {
		return RunConfig{}, fmt.Errorf("%w: policy must be > 0, got %d", domain.ErrConfigMalformed, cfg.PasswordPolicyDays)
	}
	if cfg.UpperThresholdDays < 0 {
		return RunConfig{}, fmt.Errorf("%w: upperthreshold must be >= 0, got %d", domain.ErrConfigMalformed, cfg.UpperThresholdDays)
	}
	if cfg.LowerThresholdDays < 0 {
		return RunConfig{}, fmt.Errorf("%w: lowerthreshold must be >= 0, got %d", domain.ErrConfigMalformed, cfg.LowerThresholdDays)
	}

	switch cfg.SMTPTLSMode {
	case "":
		cfg.SMTPTLSMode = "none"
	case "none", "starttls", "tls":
	default:
		return RunConfig{}, fmt.Errorf("%w: smtptls must be one of none, starttls, tls", domain.ErrConfigMalformed)
	}

	switch cfg.LogLevel {
	case "":
		cfg.LogLevel = "info"
	case "debug", "info", "warn", "error":
	default:
		return RunConfig{}, fmt.Errorf("%w: loglevel must be one of debug, info, warn, error", domain.ErrConfigMalformed)
	}

	cfg.Exclusions = dedupe(fc.Exclusions.Exclusion)

	dir, err := validateDirectory(fc.Directory)
	if err != nil {
		return RunConfig{}, err
	}
	cfg.Directory = dir

	if cfg.ReportPath == "" {
		cfg.ReportPath = "pwnotify-report.csv"
	}

	return cfg, nil
}

func validateDirectory(fd fileDirectory) (DirectoryConfig, error) {
	dir := DirectoryConfig{
		Type:         strings.TrimSpace(fd.Type),
		URL:          strings.TrimSpace(fd.URL),
		BindDN:       strings.TrimSpace(fd.BindDN),
		BindPassword: fd.BindPassword,
		BaseDN:       strings.TrimSpace(fd.BaseDN),
		DSN:          strings.TrimSpace(fd.DSN),
	}

	switch dir.Type {
	case "":
		dir.Type = "ldap"
	case "ldap", "postgres":
	default:
		return DirectoryConfig{}, fmt.Errorf("%w: directory type must be ldap or postgres, got %q", domain.ErrConfigMalformed, dir.Type)
	}

	switch dir.Type {
	case "ldap":
		if dir.URL == "" {
			return DirectoryConfig{}, domain.NewIncompleteFieldError("directory.url")
		}
		if dir.BaseDN == "" {
			return DirectoryConfig{}, domain.NewIncompleteFieldError("directory.basedn")
		}
	case "postgres":
		if dir.DSN == "" {
			return DirectoryConfig{}, domain.NewIncompleteFieldError("directory.dsn")
		}
	}

	return dir, nil
}

func dedupe(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
