// Package transporttest provides an in-process IDR stand-in: it serves the connection
// configuration document, the web client probe page and the login exchange over
// websockets and newline-delimited sockets.
package transporttest

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/idr-analysis/idrconnect/internal/logging"
	"github.com/idr-analysis/idrconnect/internal/protocol"
	"github.com/idr-analysis/idrconnect/internal/transport"
)

// Login records one login attempt seen by the backend.
type Login struct {
	Transport string
	User      string
	Client    string
	Session   string
	Accepted  bool
}

// Backend holds the served state. It is safe for concurrent use.
type Backend struct {
	logger   *logging.Logger
	upgrader websocket.Upgrader

	mu           sync.Mutex
	config       map[string]any
	configStatus int
	users        map[string]string
	logins       []Login
	pings        int
}

// NewBackend returns a backend serving an empty configuration document and
// accepting any non-empty user.
func NewBackend() *Backend {
	return &Backend{
		logger:       logging.GetTransportLogger().WithComponent("mock-backend"),
		upgrader:     websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		config:       map[string]any{},
		configStatus: http.StatusOK,
		users:        map[string]string{},
	}
}

// SetConfig replaces the configuration document.
func (b *Backend) SetConfig(cfg map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.config = cfg
}

// SetConfigStatus makes the configuration endpoint answer with status.
func (b *Backend) SetConfigStatus(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.configStatus = status
}

// AddUser restricts logins to registered users. An empty password accepts any.
func (b *Backend) AddUser(user, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[user] = password
}

// Logins returns the recorded login attempts in order.
func (b *Backend) Logins() []Login {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Login(nil), b.logins...)
}

// Pings returns how many keep-alive frames were received.
func (b *Backend) Pings() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pings
}

// Handler serves the configuration document, the web client probe and the
// websocket endpoint.
func (b *Backend) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(protocol.ConfigPath, b.handleConfig)
	mux.HandleFunc("/webclient/", b.handleWebclient)
	mux.HandleFunc(protocol.FallbackPath, b.handleWebsocket)
	return mux
}

func (b *Backend) handleConfig(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	status, cfg := b.configStatus, b.config
	b.mu.Unlock()

	b.logger.Debug("Config request", slog.String("remote", r.RemoteAddr), slog.Int("status", status))
	if status != http.StatusOK {
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(cfg)
}

func (b *Backend) handleWebclient(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: uuid.NewString(), Path: "/"})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, "<html><head><title>OMERO.web</title></head><body></body></html>")
}

func (b *Backend) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("Websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	scheme := protocol.TransportWS
	if r.TLS != nil {
		scheme = protocol.TransportWSS
	}
	b.serve(scheme, transport.NewWebsocketConn(conn))
}

// ServeStream accepts newline-delimited connections on l until it is closed.
func (b *Backend) ServeStream(l net.Listener, scheme string) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go b.serve(scheme, transport.NewStreamConn(conn))
	}
}

func (b *Backend) serve(scheme string, conn transport.Conn) {
	defer func() { _ = conn.Close() }()

	frame, err := conn.ReadFrame()
	if err != nil || frame.Type != transport.FrameLogin {
		_ = conn.WriteFrame(transport.Frame{Type: transport.FrameError, Message: "expected login"})
		return
	}

	login := Login{Transport: scheme, User: frame.User, Client: frame.Client}
	if reason := b.authenticate(frame.User, frame.Password); reason != "" {
		b.record(login)
		_ = conn.WriteFrame(transport.Frame{Type: transport.FrameError, Message: reason})
		return
	}
	login.Accepted = true
	login.Session = uuid.NewString()
	b.record(login)
	b.logger.Debug("Login accepted", slog.String("user", login.User), slog.String("transport", scheme))

	if err := conn.WriteFrame(transport.Frame{Type: transport.FrameSession, Session: login.Session}); err != nil {
		return
	}
	for {
		f, err := conn.ReadFrame()
		if err != nil {
			return
		}
		if f.Type == transport.FramePing {
			b.mu.Lock()
			b.pings++
			b.mu.Unlock()
		}
	}
}

func (b *Backend) authenticate(user, password string) string {
	if user == "" {
		return "user required"
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.users) == 0 {
		return ""
	}
	want, ok := b.users[user]
	if !ok || (want != "" && want != password) {
		return "invalid credentials"
	}
	return ""
}

func (b *Backend) record(l Login) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logins = append(b.logins, l)
}
