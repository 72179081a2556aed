package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/idr-analysis/idrconnect/internal/auth"
	apperrors "github.com/idr-analysis/idrconnect/internal/errors"
	"github.com/idr-analysis/idrconnect/internal/interfaces"
	"github.com/idr-analysis/idrconnect/internal/logging"
)

var (
	errNoUser = errors.New("no user name given and omero.user not configured")
	errClosed = errors.New("client is closed")
)

type dialFunc func(ctx context.Context, ep Endpoint) (Conn, error)

// Client is a session-capable connection to one endpoint. The socket is opened by
// CreateSession.
type Client struct {
	id       string
	endpoint Endpoint
	config   interfaces.RemoteConfig
	dial     dialFunc
	logger   *logging.Logger

	mu           sync.Mutex
	conn         Conn
	sessionID    string
	stopPing     chan struct{}
	cancelCreate context.CancelFunc
	closed       bool
}

func newClient(ep Endpoint, cfg interfaces.RemoteConfig, dial dialFunc, logger *logging.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:       id,
		endpoint: ep,
		config:   cfg,
		dial:     dial,
		logger:   logger.WithFields(map[string]interface{}{"client_id": id, "endpoint": ep.String()}),
	}
}

// ID identifies the client instance in logs and login frames.
func (c *Client) ID() string { return c.id }

// Endpoint returns the resolved target.
func (c *Client) Endpoint() Endpoint { return c.endpoint }

// Config returns the configuration the client was built from, placeholders substituted.
func (c *Client) Config() interfaces.RemoteConfig { return c.config }

// CreateSession dials the endpoint and logs in. Credentials come from args when a user
// is given there, otherwise from omero.user and omero.pass. The lock is not held while
// dialing, and Close aborts a session that is still being set up.
func (c *Client) CreateSession(ctx context.Context, args ...string) error {
	const op = "create_session"

	creds := auth.FromSessionArgs(args).Merge(auth.FromConfig(c.config))
	if creds.User == "" {
		return apperrors.NewClientError(op, c.endpoint.String(), errNoUser)
	}

	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return apperrors.NewClientError(op, c.endpoint.String(), errClosed)
	case c.conn != nil || c.cancelCreate != nil:
		c.mu.Unlock()
		return apperrors.NewClientError(op, c.endpoint.String(), errors.New("session already created"))
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.cancelCreate = cancel
	c.mu.Unlock()

	conn, sessionID, err := c.open(ctx, creds)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelCreate = nil
	if err == nil && c.closed {
		_ = conn.Close()
		err = errClosed
	}
	if err != nil {
		return apperrors.NewClientError(op, c.endpoint.String(), err)
	}

	c.conn = conn
	c.sessionID = sessionID
	c.logger.Debug("Session created", slog.String("session_id", sessionID), slog.String("user", creds.User))
	return nil
}

func (c *Client) open(ctx context.Context, creds auth.Credentials) (Conn, string, error) {
	conn, err := c.dial(ctx, c.endpoint)
	if err != nil {
		return nil, "", fmt.Errorf("dial: %w", err)
	}
	sessionID, err := login(ctx, conn, c.id, creds)
	if err != nil {
		_ = conn.Close()
		return nil, "", err
	}
	return conn, sessionID, nil
}

func login(ctx context.Context, conn Conn, clientID string, creds auth.Credentials) (string, error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	// Unblock the exchange if ctx is cancelled mid-way.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()

	if err := conn.WriteFrame(Frame{Type: FrameLogin, User: creds.User, Password: creds.Password, Client: clientID}); err != nil {
		return "", fmt.Errorf("send login: %w", contextErr(ctx, err))
	}
	reply, err := conn.ReadFrame()
	if err != nil {
		return "", fmt.Errorf("read login reply: %w", contextErr(ctx, err))
	}
	_ = conn.SetDeadline(time.Time{})

	switch reply.Type {
	case FrameSession:
		if reply.Session == "" {
			return "", errors.New("server returned an empty session id")
		}
		return reply.Session, nil
	case FrameError:
		return "", fmt.Errorf("login rejected: %s", reply.Message)
	default:
		return "", fmt.Errorf("unexpected reply %q to login", reply.Type)
	}
}

func contextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// EnableKeepAlive sends a ping frame every interval until Close. Calling it again
// replaces the previous heartbeat. It does nothing before a session exists.
func (c *Client) EnableKeepAlive(interval time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.closed || interval <= 0 {
		return
	}
	if c.stopPing != nil {
		close(c.stopPing)
	}
	stop := make(chan struct{})
	c.stopPing = stop
	go c.keepAlive(c.conn, c.sessionID, interval, stop)
}

func (c *Client) keepAlive(conn Conn, sessionID string, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteFrame(Frame{Type: FramePing, Session: sessionID}); err != nil {
				c.logger.Debug("Keep-alive stopped", slog.String("error", err.Error()))
				return
			}
		}
	}
}

// SessionID returns the server-issued session identifier.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// ConnectionInfo reports the remote peer of the live socket.
func (c *Client) ConnectionInfo() (interfaces.ConnectionInfo, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return interfaces.ConnectionInfo{}, apperrors.NewClientError("connection_info", c.endpoint.String(), errors.New("not connected"))
	}

	host, portText, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return interfaces.ConnectionInfo{}, fmt.Errorf("remote address: %w", err)
	}
	port, err := strconv.Atoi(portText)
	if err != nil {
		return interfaces.ConnectionInfo{}, fmt.Errorf("remote port: %w", err)
	}
	return interfaces.ConnectionInfo{Transport: c.endpoint.Scheme, RemoteAddress: host, RemotePort: port}, nil
}

// Close stops the heartbeat and closes the socket. It is safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.cancelCreate != nil {
		c.cancelCreate()
	}
	if c.stopPing != nil {
		close(c.stopPing)
		c.stopPing = nil
	}
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
