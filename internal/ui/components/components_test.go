package components

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idr-analysis/idrconnect/internal/config"
	"github.com/idr-analysis/idrconnect/internal/connect"
	apperrors "github.com/idr-analysis/idrconnect/internal/errors"
	"github.com/idr-analysis/idrconnect/internal/transport/transporttest"
)

func TestRenderStatus(t *testing.T) {
	assert.Contains(t, RenderStatus("success", "Connected"), "✅ Connected")
	assert.Contains(t, RenderStatus("whatever", "note"), "🔹 note")
}

func TestRenderServerStatus(t *testing.T) {
	tests := map[string]string{
		"ready":    "Ready",
		"offline":  "Offline",
		"error":    "Error",
		"checking": "Checking...",
		"":         "Checking...",
	}
	for status, label := range tests {
		assert.Contains(t, RenderServerStatus(status), label, status)
	}
}

func TestRenderProgressBar(t *testing.T) {
	assert.Equal(t, "[#####-----]", RenderProgressBar(50, 10, "#", "-"))
	assert.Equal(t, "[##########]", RenderProgressBar(150, 10, "#", "-"))
	assert.Equal(t, "[----------]", RenderProgressBar(-5, 10, "#", "-"))
	assert.Empty(t, RenderProgressBar(50, 0, "#", "-"))
}

func TestRenderErrorPane(t *testing.T) {
	assert.Empty(t, RenderErrorPane(nil, 80))

	processed := apperrors.NewHandler().Process(apperrors.NewClientError("login", "wss://example.org/omero-ws", assert.AnError))
	pane := RenderErrorPane(processed, 0)

	assert.Contains(t, pane, "Error:")
	assert.Contains(t, pane, "Kind: client")
	assert.Contains(t, pane, "Hint:")
}

func TestReporter_Connected(t *testing.T) {
	srv := transporttest.NewServer()
	defer srv.Close()

	c := connect.New(
		connect.WithLookup(config.MapLookup(map[string]string{"IDR_HOST": srv.WebsocketURL(), "IDR_USER": "public"})),
		connect.WithReporter(connect.ReporterFunc(func(*connect.Session, int) error { return nil })),
	)
	session, err := c.Connect(context.Background(), connect.NewRequest())
	require.NoError(t, err)
	defer session.Close()

	var out bytes.Buffer
	r := Reporter{W: &out}

	require.NoError(t, r.Connected(session, 0))
	assert.Empty(t, out.String())

	require.NoError(t, r.Connected(session, 1))
	assert.Contains(t, out.String(), "Connected to IDR ...")

	out.Reset()
	require.NoError(t, r.Connected(session, 2))
	assert.Contains(t, out.String(), "Connected to IDR[127.0.0.1:")
	assert.Contains(t, out.String(), "] ...")
}

func TestStatusIcon(t *testing.T) {
	assert.Equal(t, "✅", StatusIcon("ready"))
	assert.Equal(t, "⛔", StatusIcon("offline"))
	assert.Equal(t, "🔹", StatusIcon("unknown"))
}
