package connect

import (
	"fmt"
	"io"

	"github.com/idr-analysis/idrconnect/internal/interfaces"
)

// Reporter announces a successful connection.
type Reporter interface {
	Connected(session *Session, verbosity int) error
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(session *Session, verbosity int) error

func (f ReporterFunc) Connected(session *Session, verbosity int) error { return f(session, verbosity) }

// ConnectedMessage is the confirmation line. server is empty or "[addr:port]".
func ConnectedMessage(server string) string {
	return fmt.Sprintf("Connected to IDR%s ...", server)
}

// ServerTag formats the remote peer as "[addr:port]".
func ServerTag(info interfaces.ConnectionInfo) string {
	return fmt.Sprintf("[%s:%d]", info.RemoteAddress, info.RemotePort)
}

// PeerTag returns ServerTag of the session's peer when verbosity asks for it.
func PeerTag(session *Session, verbosity int) (string, error) {
	if verbosity < 2 {
		return "", nil
	}
	info, err := session.Info()
	if err != nil {
		return "", err
	}
	return ServerTag(info), nil
}

// Announcement returns the confirmation line for verbosity. If the peer cannot be
// resolved the line is still returned, without the peer, together with the error.
func Announcement(session *Session, verbosity int) (string, error) {
	server, err := PeerTag(session, verbosity)
	return ConnectedMessage(server), err
}

// TextReporter writes the plain confirmation line.
type TextReporter struct {
	W io.Writer
}

// Connected prints nothing below verbosity 1 and adds the peer from verbosity 2.
func (r TextReporter) Connected(session *Session, verbosity int) error {
	if verbosity < 1 {
		return nil
	}
	line, peerErr := Announcement(session, verbosity)
	if _, err := fmt.Fprintln(r.W, line); err != nil {
		return err
	}
	return peerErr
}
