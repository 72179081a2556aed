// Package auth handles the credentials passed through to session creation.
// Credentials are never interpreted here beyond deciding which of them to send.
package auth

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/idr-analysis/idrconnect/internal/interfaces"
)

// Configuration keys that may carry credentials in a fetched document.
const (
	ConfigKeyUser     = "omero.user"
	ConfigKeyPassword = "omero.pass"
)

// Credentials are the locally supplied user and password. Empty means absent.
type Credentials struct {
	User     string
	Password string
}

// SessionArgs returns the argument list for session creation: none without a user,
// [user] without a password, [user, password] with both. A password without a user is
// dropped, leaving credentials from a fetched configuration in effect.
func (c Credentials) SessionArgs() []string {
	args := []string{}
	if c.User != "" {
		args = append(args, c.User)
		if c.Password != "" {
			args = append(args, c.Password)
		}
	}
	return args
}

// Empty reports whether neither field is set.
func (c Credentials) Empty() bool {
	return c.User == "" && c.Password == ""
}

// String never reveals the password.
func (c Credentials) String() string {
	if c.Password == "" {
		return fmt.Sprintf("Credentials{User: %q}", c.User)
	}
	return fmt.Sprintf("Credentials{User: %q, Password: [REDACTED]}", c.User)
}

// FromSessionArgs is the inverse of SessionArgs.
func FromSessionArgs(args []string) Credentials {
	var c Credentials
	if len(args) > 0 {
		c.User = args[0]
	}
	if len(args) > 1 {
		c.Password = args[1]
	}
	return c
}

// FromConfig reads omero.user and omero.pass from a fetched configuration document.
func FromConfig(cfg interfaces.RemoteConfig) Credentials {
	var c Credentials
	if v, ok := cfg[ConfigKeyUser].(string); ok {
		c.User = v
	}
	if v, ok := cfg[ConfigKeyPassword].(string); ok {
		c.Password = v
	}
	return c
}

// Merge returns c with empty fields taken from fallback. The password is only taken
// together with the fallback's user so that credentials never mix between sources.
func (c Credentials) Merge(fallback Credentials) Credentials {
	if c.User != "" {
		return c
	}
	return fallback
}

// Validator checks credential values before they are sent to a server.
type Validator struct {
	maxLength int
}

// NewValidator creates a validator with conservative limits.
func NewValidator() *Validator {
	return &Validator{maxLength: 1024}
}

// Validate rejects values a server could never accept: control characters,
// surrounding whitespace in the user name, or oversized fields.
func (v *Validator) Validate(c Credentials) error {
	if c.User != "" && strings.TrimSpace(c.User) != c.User {
		return fmt.Errorf("user name has leading or trailing whitespace")
	}
	for field, value := range map[string]string{"user": c.User, "password": c.Password} {
		if len(value) > v.maxLength {
			return fmt.Errorf("%s exceeds %d bytes", field, v.maxLength)
		}
		if strings.IndexFunc(value, unicode.IsControl) >= 0 {
			return fmt.Errorf("%s contains control characters", field)
		}
	}
	return nil
}
