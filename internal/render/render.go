// Package render performs the token substitution that turns the
// configured subject/body templates into a per-user message.
package render

import (
	"fmt"
	"strings"
)

// Template tokens. Unrecognized bracketed tokens pass through unchanged;
// completeness of the template is the administrator's concern.
const (
	TokenUsername    = "[USERNAME]"
	TokenPasswordMsg = "[PASSWORDSTATEMESSAGE]"
)

// PasswordStateMessage words the remaining lifetime: a positive count is
// a warning, zero or negative means the password is already expired.
func PasswordStateMessage(daysToExpiry int) string {
	if daysToExpiry > 0 {
		return fmt.Sprintf("will expire in %d days", daysToExpiry)
	}
	return "is expired"
}

// Render replaces every occurrence of each token with its value.
func Render(template string, values map[string]string) string {
	out := template
	for token, value := range values {
		out = strings.ReplaceAll(out, token, value)
	}
	return out
}

// Body renders the notification body for one user. Tab characters are
// stripped from the result: the config file's template is indented for
// readability and the tabs must not reach the recipient.
func Body(template, displayName string, daysToExpiry int) string {
	rendered := Render(template, map[string]string{
		TokenUsername:    displayName,
		TokenPasswordMsg: PasswordStateMessage(daysToExpiry),
	})
	return strings.ReplaceAll(rendered, "\t", "")
}

// Subject renders the notification subject. Subjects share the token
// vocabulary with bodies but keep their whitespace.
func Subject(template, displayName string, daysToExpiry int) string {
	return Render(template, map[string]string{
		TokenUsername:    displayName,
		TokenPasswordMsg: PasswordStateMessage(daysToExpiry),
	})
}
