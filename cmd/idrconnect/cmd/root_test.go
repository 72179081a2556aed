package cmd

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idr-analysis/idrconnect/internal/config"
	"github.com/idr-analysis/idrconnect/internal/transport/transporttest"
)

type cli struct {
	t      *testing.T
	dir    string
	env    map[string]string
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newCLI(t *testing.T, env map[string]string) *cli {
	return &cli{t: t, dir: t.TempDir(), env: env, stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
}

// run executes one command line against a fresh command tree and returns the exit code.
func (c *cli) run(args ...string) int {
	c.t.Helper()
	c.stdout.Reset()
	c.stderr.Reset()

	rootCmd, opts := newRootCommand(config.MapLookup(c.env))
	rootCmd.SetOut(c.stdout)
	rootCmd.SetErr(c.stderr)
	rootCmd.SetIn(strings.NewReader(""))

	full := append([]string{"--config", filepath.Join(c.dir, "profiles.yaml"), "--no-color"}, args...)
	return run(rootCmd, opts, full)
}

func closedPort(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return strconv.Itoa(port)
}

func TestConnect_FromEnvironment(t *testing.T) {
	srv := transporttest.NewServer()
	defer srv.Close()

	c := newCLI(t, map[string]string{"IDR_HOST": srv.WebsocketURL(), "IDR_USER": "public"})
	require.Equal(t, 0, c.run("connect"), c.stderr.String())
	assert.Equal(t, "Connected to IDR ...\n", c.stdout.String())

	require.Equal(t, 0, c.run("connect", "-v", "2"), c.stderr.String())
	assert.True(t, strings.HasPrefix(c.stdout.String(), "Connected to IDR[127.0.0.1:"))

	logins := srv.Logins()
	require.Len(t, logins, 2)
	assert.Equal(t, "public", logins[0].User)
}

func TestConnect_JSONWithFlags(t *testing.T) {
	srv := transporttest.NewServer()
	defer srv.Close()

	c := newCLI(t, nil)
	require.Equal(t, 0, c.run("connect", "--host", srv.WebsocketURL(), "--user", "public", "-v", "0", "--json"), c.stderr.String())

	var doc map[string]any
	require.NoError(t, json.Unmarshal(c.stdout.Bytes(), &doc))
	assert.NotEmpty(t, doc["sessionId"])
	assert.Equal(t, "ws", doc["transport"])
	assert.Equal(t, false, doc["fellBack"])
}

func TestConnect_FailureIsReported(t *testing.T) {
	c := newCLI(t, map[string]string{"IDR_USER": "public"})

	code := c.run("connect", "--host", "ws://127.0.0.1:"+closedPort(t)+"/omero-ws")
	assert.Equal(t, 1, code)
	assert.Empty(t, c.stdout.String())
	assert.Contains(t, c.stderr.String(), "Error: ")
	assert.Contains(t, c.stderr.String(), "Hint: ")
	assert.NotContains(t, c.stderr.String(), "retrying with websockets")
}

func TestConnect_WithProfile(t *testing.T) {
	srv := transporttest.NewServer()
	defer srv.Close()
	srv.AddUser("alice", "secret")

	c := newCLI(t, nil)
	require.Equal(t, 0, c.run("profile", "save", "local", "--host", srv.WebsocketURL(), "--user", "alice", "--password", "secret"), c.stderr.String())
	require.Equal(t, 0, c.run("connect", "--profile", "local"), c.stderr.String())
	assert.Equal(t, "Connected to IDR ...\n", c.stdout.String())

	assert.Equal(t, 1, c.run("connect", "--profile", "local", "--password", "wrong"))
	assert.Contains(t, c.stderr.String(), "Error: ")
}

func TestConfigFetch(t *testing.T) {
	srv := transporttest.NewServer()
	defer srv.Close()
	srv.SetConfig(map[string]any{"omero.host": "idr.example.org", "omero.port": 4064})

	c := newCLI(t, nil)
	require.Equal(t, 0, c.run("config", "fetch", "--show-host", srv.ConfigURL()), c.stderr.String())

	out := c.stdout.String()
	assert.True(t, strings.HasPrefix(out, "# host: 127.0.0.1\n"))
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.SplitN(out, "\n", 2)[1]), &doc))
	assert.Equal(t, "idr.example.org", doc["omero.host"])
}

func TestConfigFetch_NotFound(t *testing.T) {
	missing := httptest.NewServer(http.NotFoundHandler())
	defer missing.Close()

	c := newCLI(t, nil)
	assert.Equal(t, 1, c.run("config", "fetch", missing.URL+"/connection/omero-client.json"))
	assert.Contains(t, c.stderr.String(), "status 404")
}

func TestProbe(t *testing.T) {
	srv := transporttest.NewServer()
	defer srv.Close()

	c := newCLI(t, nil)
	require.Equal(t, 0, c.run("probe", srv.URL()), c.stderr.String())
	assert.Contains(t, c.stdout.String(), "web client reachable")
}

func TestProfileLifecycle(t *testing.T) {
	c := newCLI(t, nil)

	require.Equal(t, 0, c.run("profile", "save", "lab", "--host", "omero.lab.example.org", "--port", "4064", "--user", "alice", "--password", "secret"), c.stderr.String())
	assert.Equal(t, "Saved profile lab\n", c.stdout.String())

	require.Equal(t, 0, c.run("profile", "list"))
	assert.Contains(t, c.stdout.String(), "omero.lab.example.org")
	assert.Contains(t, c.stdout.String(), "4064")

	require.Equal(t, 0, c.run("profile", "show", "lab"))
	assert.Contains(t, c.stdout.String(), "user:      alice")
	assert.Contains(t, c.stdout.String(), "********")
	assert.NotContains(t, c.stdout.String(), "secret")

	raw, err := os.ReadFile(filepath.Join(c.dir, "profiles.yaml"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")

	require.Equal(t, 0, c.run("profile", "delete", "lab"))
	assert.Equal(t, 1, c.run("profile", "show", "lab"))
}

func TestProfileReset(t *testing.T) {
	c := newCLI(t, nil)
	require.Equal(t, 0, c.run("profile", "save", "lab", "--host", "omero.lab.example.org", "--user", "alice", "--password", "secret"), c.stderr.String())

	require.Equal(t, 0, c.run("profile", "reset"), c.stderr.String())
	assert.Equal(t, "Removed stored passwords from: lab\n", c.stdout.String())

	require.Equal(t, 0, c.run("profile", "show", "lab"), c.stderr.String())
	assert.Contains(t, c.stdout.String(), "user:      alice")
	assert.NotContains(t, c.stdout.String(), "********")

	require.Equal(t, 0, c.run("profile", "reset"), c.stderr.String())
	assert.Contains(t, c.stdout.String(), "No stored passwords")
}

func TestServerAndStatus(t *testing.T) {
	srv := transporttest.NewServer()
	defer srv.Close()

	c := newCLI(t, nil)
	require.Equal(t, 0, c.run("server", "remove", "idr"), c.stderr.String())
	require.Equal(t, 0, c.run("server", "add", "local", srv.URL()), c.stderr.String())
	require.Equal(t, 0, c.run("server", "add", "gone", "http://127.0.0.1:"+closedPort(t)), c.stderr.String())
	assert.Equal(t, 1, c.run("server", "add", "bad", "wss://example.org"))

	require.Equal(t, 0, c.run("server", "list"))
	assert.Contains(t, c.stdout.String(), srv.URL())

	require.Equal(t, 0, c.run("status"), c.stderr.String())
	out := c.stdout.String()
	assert.Contains(t, out, "Ready")
	assert.Contains(t, out, "Offline")
	assert.Contains(t, out, "2 servers: 1 ready, 1 offline, 0 error")

	assert.Equal(t, 1, c.run("status", "--strict"))
	assert.Contains(t, c.stdout.String(), "1 ready, 1 offline")
	assert.Contains(t, c.stderr.String(), "gone: ")

	require.Equal(t, 0, c.run("server", "remove", "gone"), c.stderr.String())
	assert.Equal(t, 0, c.run("status", "--strict"), c.stderr.String())
}

func TestMetricsFile(t *testing.T) {
	srv := transporttest.NewServer()
	defer srv.Close()

	c := newCLI(t, map[string]string{"IDR_HOST": srv.WebsocketURL(), "IDR_USER": "public"})
	path := filepath.Join(c.dir, "metrics.prom")
	require.Equal(t, 0, c.run("--metrics-file", path, "connect"), c.stderr.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "idrconnect_connect_attempts_total")
}

func TestGlobalFlagErrors(t *testing.T) {
	c := newCLI(t, nil)
	assert.Equal(t, 1, c.run("--log-level", "loud", "profile", "list"))
	assert.Contains(t, c.stderr.String(), "unknown log level")
}

func TestVersion(t *testing.T) {
	c := newCLI(t, nil)
	require.Equal(t, 0, c.run("version"))
	assert.True(t, strings.HasPrefix(c.stdout.String(), "idrconnect "))
}
