package components

import (
	"fmt"
	"io"

	"github.com/idr-analysis/idrconnect/internal/connect"
)

// Reporter is a connect.Reporter that prints the confirmation as a success status line.
type Reporter struct {
	W io.Writer
}

// Connected prints nothing below verbosity 1 and adds the peer from verbosity 2.
func (r Reporter) Connected(session *connect.Session, verbosity int) error {
	if verbosity < 1 {
		return nil
	}
	line, peerErr := connect.Announcement(session, verbosity)
	if _, err := fmt.Fprintln(r.W, RenderStatus("success", line)); err != nil {
		return err
	}
	return peerErr
}
