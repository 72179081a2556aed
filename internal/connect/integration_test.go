package connect

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idr-analysis/idrconnect/internal/config"
	"github.com/idr-analysis/idrconnect/internal/interfaces"
	"github.com/idr-analysis/idrconnect/internal/protocol"
	"github.com/idr-analysis/idrconnect/internal/transport"
	"github.com/idr-analysis/idrconnect/internal/transport/transporttest"
)

func closedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestConnect_FetchedConfigurationAgainstTestServer(t *testing.T) {
	srv := transporttest.NewTLSServer()
	defer srv.Close()

	addr, err := srv.StartSecureStream()
	require.NoError(t, err)
	_, portText, err := net.SplitHostPort(strings.TrimPrefix(addr, "ssl://"))
	require.NoError(t, err)
	port, err := strconv.Atoi(portText)
	require.NoError(t, err)

	srv.AddUser("public", "public")
	srv.SetConfig(map[string]any{"omero.port": port, "omero.user": "public", "omero.pass": "public"})

	tlsConfig := srv.HTTP.Client().Transport.(*http.Transport).TLSClientConfig
	var stdout bytes.Buffer
	c := New(
		WithLookup(config.MapLookup(nil)),
		WithFetcher(protocol.NewFetcher(srv.HTTP.Client())),
		WithSessionFactory(transport.NewFactory(transport.WithTLSConfig(tlsConfig))),
		WithOutput(&stdout),
	)

	req := NewRequest()
	req.Host = str(srv.ConfigURL())
	req.Verbosity = 2
	session, err := c.Connect(context.Background(), req)
	require.NoError(t, err)
	defer session.Close()

	assert.NotEmpty(t, session.ID())
	assert.Equal(t, "127.0.0.1", session.Endpoint().Host)
	assert.Equal(t, "Connected to IDR[127.0.0.1:"+portText+"] ...\n", stdout.String())

	logins := srv.Logins()
	require.Len(t, logins, 1)
	assert.Equal(t, "ssl", logins[0].Transport)
	assert.Equal(t, "public", logins[0].User)
}

func TestConnect_BlockedPrimaryFallsBackToTestServer(t *testing.T) {
	srv := transporttest.NewServer()
	defer srv.Close()

	policy := DefaultFallbackPolicy()
	policy.Rewrite = func(req interfaces.ConnectionRequest, _ interfaces.ResolvedEndpoint) interfaces.ConnectionRequest {
		req.Host = str(srv.WebsocketURL())
		req.Port = nil
		return req
	}

	var stderr bytes.Buffer
	c := New(
		WithLookup(config.MapLookup(map[string]string{"IDR_USER": "public"})),
		WithFallbackPolicy(policy),
		WithOutput(&bytes.Buffer{}),
		WithDiagnostics(&stderr),
	)

	req := NewRequest()
	req.Host = str("127.0.0.1")
	req.Port = num(closedPort(t))
	session, err := c.Connect(context.Background(), req)
	require.NoError(t, err)
	defer session.Close()

	assert.True(t, session.FellBack())
	assert.Contains(t, stderr.String(), "retrying with websockets")
	assert.Equal(t, "ws", srv.Logins()[0].Transport)
}
