package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	cause := stderrors.New("refused")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain", cause, KindUnknown},
		{"client", NewClientError("dial", "ssl://idr:4064", cause), KindClient},
		{"wrapped client", fmt.Errorf("attempt 1: %w", NewClientError("login", "", cause)), KindClient},
		{"config fetch", &ConfigFetchError{Target: "https://idr/connection/omero-client.json", Err: cause}, KindConfigFetch},
		{"http", &HTTPStatusError{Target: "https://idr/webclient/", StatusCode: 502}, KindHTTP},
		{"contextual", NewConfigurationError("resolver").WithMessage("bad port").Build(), KindConfiguration},
		{"connection takes cause kind", &ConnectionError{Op: "connect", Host: "idr", Err: NewClientError("dial", "", cause)}, KindClient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestConnectionError_MessageIsCause(t *testing.T) {
	cause := &ConfigFetchError{Target: "https://example.org/connection/omero-client.json", StatusCode: 404, Err: stderrors.New("not found")}
	err := &ConnectionError{Op: "connect", Host: "example.org", Err: cause}

	assert.Equal(t, cause.Error(), err.Error())

	var fetchErr *ConfigFetchError
	require.True(t, As(err, &fetchErr))
	assert.Equal(t, 404, fetchErr.StatusCode)
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "GET https://idr/webclient/: unexpected status 502 Bad Gateway",
		(&HTTPStatusError{Target: "https://idr/webclient/", StatusCode: http.StatusBadGateway}).Error())
	assert.Equal(t, "GET https://idr/webclient/: unexpected status 503 Busy",
		(&HTTPStatusError{Target: "https://idr/webclient/", StatusCode: 503, Status: "503 Busy"}).Error())
	assert.Equal(t, "fetch configuration https://idr/c.json: boom",
		(&ConfigFetchError{Target: "https://idr/c.json", Err: stderrors.New("boom")}).Error())
	assert.Equal(t, "fetch configuration: GET https://idr/c.json: unexpected status 404 Not Found",
		(&ConfigFetchError{Target: "https://idr/c.json", StatusCode: 404,
			Err: &HTTPStatusError{Target: "https://idr/c.json", StatusCode: 404}}).Error())
	assert.Equal(t, "dial: boom", NewClientError("dial", "", stderrors.New("boom")).Error())
	assert.Equal(t, "dial wss://idr/omero-ws: boom", NewClientError("dial", "wss://idr/omero-ws", stderrors.New("boom")).Error())
}

func TestErrorBuilder(t *testing.T) {
	cause := stderrors.New("strconv.Atoi: parsing \"x\": invalid syntax")
	err := NewConfigurationError("resolver").
		WithMessage("invalid %s", "IDR_PORT").
		WithOperation("resolve_port").
		WithContext("value", "x").
		WithCause(cause).
		Build()

	assert.Equal(t, KindConfiguration, err.Kind())
	assert.Equal(t, SeverityMedium, err.Severity)
	assert.Equal(t, "[resolver:configuration] invalid IDR_PORT: "+cause.Error(), err.Error())
	assert.Equal(t, "x", err.Context["value"])
	assert.True(t, Is(err, cause))

	plain := NewHTTPError("probe").WithMessage("down").Build()
	assert.Equal(t, "[probe:http] down", plain.Error())
}

func TestErrorChain(t *testing.T) {
	chain := NewErrorChain(nil)
	assert.False(t, chain.HasErrors())
	assert.NoError(t, chain.Err())

	first := stderrors.New("first")
	chain.Add(nil).Add(first).Add(NewClientError("dial", "", stderrors.New("second")))

	assert.True(t, chain.HasErrors())
	assert.Len(t, chain.GetErrors(), 2)
	assert.True(t, Is(chain.Err(), first))
	assert.Equal(t, KindClient, KindOf(chain.Err()))
}

func TestHandler_Process(t *testing.T) {
	h := NewHandler()
	assert.Nil(t, h.Process(nil))

	notFound := h.Process(&ConnectionError{Err: &ConfigFetchError{Target: "t", StatusCode: 404, Err: stderrors.New("x")}})
	assert.Equal(t, KindConfigFetch, notFound.Kind)
	assert.Contains(t, notFound.Hint, "wss://host/omero-ws")

	other := h.Process(&ConfigFetchError{Target: "t", Err: stderrors.New("dns")})
	assert.Contains(t, other.Hint, "Check the host name")

	client := h.Process(NewClientError("login", "", stderrors.New("denied")))
	assert.Equal(t, "login: denied", client.Message)
	assert.Contains(t, client.Hint, "credentials")

	assert.Empty(t, h.Process(stderrors.New("other")).Hint)
}
