package transport

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Frame types exchanged with the server.
const (
	FrameLogin   = "login"
	FrameSession = "session"
	FrameError   = "error"
	FramePing    = "ping"
	FramePong    = "pong"
)

// Frame is one JSON message on the wire.
type Frame struct {
	Type     string `json:"type"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	Client   string `json:"client,omitempty"`
	Session  string `json:"session,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Conn carries frames over one connection. Writes are serialized so the keep-alive
// goroutine and the caller can share it.
type Conn interface {
	WriteFrame(f Frame) error
	ReadFrame() (Frame, error)
	SetDeadline(t time.Time) error
	RemoteAddr() net.Addr
	Close() error
}

// wsConn frames JSON as websocket text messages.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebsocketConn wraps an established websocket.
func NewWebsocketConn(conn *websocket.Conn) Conn {
	return &wsConn{conn: conn}
}

func (c *wsConn) WriteFrame(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(f)
}

func (c *wsConn) ReadFrame() (Frame, error) {
	var f Frame
	err := c.conn.ReadJSON(&f)
	return f, err
}

func (c *wsConn) SetDeadline(t time.Time) error {
	if err := c.conn.SetReadDeadline(t); err != nil {
		return err
	}
	return c.conn.SetWriteDeadline(t)
}

func (c *wsConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func (c *wsConn) Close() error {
	c.mu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.mu.Unlock()
	return c.conn.Close()
}

// streamConn frames JSON one object per line over a plain or TLS socket.
type streamConn struct {
	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

// NewStreamConn wraps a plain or TLS socket.
func NewStreamConn(conn net.Conn) Conn {
	return &streamConn{conn: conn, reader: bufio.NewReader(conn)}
}

func (c *streamConn) WriteFrame(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.conn.Write(append(data, '\n'))
	return err
}

func (c *streamConn) ReadFrame() (Frame, error) {
	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return Frame{}, err
	}
	var f Frame
	if err := json.Unmarshal(line, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}

func (c *streamConn) SetDeadline(t time.Time) error { return c.conn.SetDeadline(t) }

func (c *streamConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func (c *streamConn) Close() error { return c.conn.Close() }
