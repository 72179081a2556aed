package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/idr-analysis/idrconnect/internal/errors"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestResolver_Key(t *testing.T) {
	r := NewResolver(nil)
	assert.Equal(t, "IDR_HOST", r.Key("host"))
	assert.Equal(t, "IDR_PASSWORD", r.Key("Password"))
}

func TestResolver_ExplicitWins(t *testing.T) {
	lookups := []Lookup{
		nil,
		MapLookup(map[string]string{}),
		MapLookup(map[string]string{"IDR_HOST": "env.example.org", "IDR_USER": "env-user"}),
	}
	explicit := []string{"", "example.org", "wss://example.org/omero-ws"}

	for _, lookup := range lookups {
		r := NewResolver(lookup)
		for _, value := range explicit {
			assert.Equal(t, value, r.Resolve(strPtr(value), "host", "default"))
			assert.Equal(t, value, r.Resolve(strPtr(value), "user", ""))
		}
	}
}

func TestResolver_FallsBackToLookupThenDefault(t *testing.T) {
	r := NewResolver(MapLookup(map[string]string{"IDR_HOST": "env.example.org"}))

	assert.Equal(t, "env.example.org", r.Resolve(nil, "host", ""))
	assert.Equal(t, "", r.Resolve(nil, "user", ""))
	assert.Equal(t, "fallback", r.Resolve(nil, "password", "fallback"))
}

func TestResolver_EmptyVariableIsStillPresent(t *testing.T) {
	r := NewResolver(MapLookup(map[string]string{"IDR_USER": ""}))
	assert.Equal(t, "", r.Resolve(nil, "user", "default"))
}

func TestResolver_ResolvePort(t *testing.T) {
	r := NewResolver(MapLookup(map[string]string{"IDR_PORT": " 4064 "}))

	port, err := r.ResolvePort(intPtr(443), "port", 0)
	require.NoError(t, err)
	assert.Equal(t, 443, port)

	port, err = r.ResolvePort(nil, "port", 0)
	require.NoError(t, err)
	assert.Equal(t, 4064, port)

	port, err = NewResolver(nil).ResolvePort(nil, "port", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, port)
}

func TestResolver_ResolvePortInvalid(t *testing.T) {
	r := NewResolver(MapLookup(map[string]string{"IDR_PORT": "https"}))

	_, err := r.ResolvePort(nil, "port", 0)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConfiguration, apperrors.KindOf(err))
	assert.Contains(t, err.Error(), "IDR_PORT")
}
