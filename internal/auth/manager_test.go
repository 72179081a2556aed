package auth

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/idr-analysis/idrconnect/internal/interfaces"
)

func TestCredentials_SessionArgs(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
		want  []string
	}{
		{"all absent", Credentials{}, []string{}},
		{"user only", Credentials{User: "public"}, []string{"public"}},
		{"user and password", Credentials{User: "public", Password: "secret"}, []string{"public", "secret"}},
		{"password only", Credentials{Password: "secret"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.creds.SessionArgs()
			assert.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromSessionArgs(t *testing.T) {
	assert.Equal(t, Credentials{}, FromSessionArgs(nil))
	assert.Equal(t, Credentials{User: "u"}, FromSessionArgs([]string{"u"}))
	assert.Equal(t, Credentials{User: "u", Password: "p"}, FromSessionArgs([]string{"u", "p"}))
}

func TestFromConfigAndMerge(t *testing.T) {
	fromCfg := FromConfig(interfaces.RemoteConfig{"omero.user": "public", "omero.pass": "public", "omero.port": 4064})
	assert.Equal(t, Credentials{User: "public", Password: "public"}, fromCfg)

	assert.Equal(t, fromCfg, Credentials{}.Merge(fromCfg))
	assert.Equal(t, fromCfg, Credentials{Password: "ignored"}.Merge(fromCfg))
	assert.Equal(t, Credentials{User: "me"}, Credentials{User: "me"}.Merge(fromCfg))
	assert.True(t, FromConfig(interfaces.RemoteConfig{"omero.user": 12}).Empty())
}

func TestCredentials_StringRedacts(t *testing.T) {
	s := fmt.Sprintf("%v", Credentials{User: "public", Password: "hunter2"})
	assert.NotContains(t, s, "hunter2")
	assert.Contains(t, s, "public")
}

func TestValidator(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(Credentials{}))
	assert.NoError(t, v.Validate(Credentials{User: "public", Password: "pa ss"}))
	assert.Error(t, v.Validate(Credentials{User: " public"}))
	assert.Error(t, v.Validate(Credentials{User: "public", Password: "line\nbreak"}))
	assert.Error(t, v.Validate(Credentials{User: strings.Repeat("u", 2000)}))
}
