package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idr-analysis/idrconnect/internal/protocol"
)

func TestBackendFromOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "omero-client.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"omero.host":"localhost","omero.port":4063}`), 0o600))

	opts := &options{configFile: path, configStatus: http.StatusOK, users: map[string]string{"public": "public"}}
	b, err := opts.backend()
	require.NoError(t, err)

	srv := httptest.NewServer(b.Handler())
	defer srv.Close()

	cfg, host, err := protocol.NewFetcher(srv.Client()).Fetch(context.Background(), srv.URL+protocol.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", host)
	assert.Equal(t, "localhost", cfg["omero.host"])
}

func TestBackendFromOptions_Errors(t *testing.T) {
	_, err := (&options{configFile: filepath.Join(t.TempDir(), "missing.json")}).backend()
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "list.json")
	require.NoError(t, os.WriteFile(path, []byte(`[1,2]`), 0o600))
	_, err = (&options{configFile: path}).backend()
	assert.Error(t, err)
}

func TestCommandFlags(t *testing.T) {
	cmd := newCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--addr", "127.0.0.1:0", "--user", "a=b", "--config-status", "404"}))
	assert.Equal(t, "127.0.0.1:0", cmd.Flag("addr").Value.String())
	assert.Equal(t, "404", cmd.Flag("config-status").Value.String())
}
