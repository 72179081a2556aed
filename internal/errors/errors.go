// Package errors defines the error taxonomy of the connection core. Every error that
// crosses a package boundary carries a Kind so that the fallback policy can decide what
// is recoverable without inspecting messages.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind tags an error with the stage that produced it.
type Kind string

const (
	KindUnknown       Kind = ""
	KindConfigFetch   Kind = "config_fetch"
	KindClient        Kind = "client"
	KindConfiguration Kind = "configuration"
	KindHTTP          Kind = "http"
)

// Kinded is implemented by errors that know their kind.
type Kinded interface {
	Kind() Kind
}

// KindOf returns the kind of the first error in err's chain that carries one.
func KindOf(err error) Kind {
	var k Kinded
	if stderrors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

// Is, As and Join are re-exported so callers need only one errors import.
var (
	Is   = stderrors.Is
	As   = stderrors.As
	Join = stderrors.Join
)

// HTTPStatusError reports a GET that did not return 200 OK.
type HTTPStatusError struct {
	Target     string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("GET %s: unexpected status %s", e.Target, status)
}

// Kind implements Kinded.
func (e *HTTPStatusError) Kind() Kind { return KindHTTP }

// ConfigFetchError reports a failure to retrieve or decode a configuration document.
// It is never retried.
type ConfigFetchError struct {
	Target     string
	StatusCode int
	Err        error
}

func (e *ConfigFetchError) Error() string {
	var statusErr *HTTPStatusError
	if stderrors.As(e.Err, &statusErr) {
		return fmt.Sprintf("fetch configuration: %v", e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch configuration %s: status %d: %v", e.Target, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch configuration %s: %v", e.Target, e.Err)
}

func (e *ConfigFetchError) Unwrap() error { return e.Err }

// Kind implements Kinded.
func (e *ConfigFetchError) Kind() Kind { return KindConfigFetch }

// ClientError reports that the RPC client could not establish or authenticate a session.
type ClientError struct {
	Op       string
	Endpoint string
	Err      error
}

func (e *ClientError) Error() string {
	if e.Endpoint == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Endpoint, e.Err)
}

func (e *ClientError) Unwrap() error { return e.Err }

// Kind implements Kinded.
func (e *ClientError) Kind() Kind { return KindClient }

// NewClientError wraps err as a session-level failure.
func NewClientError(op, endpoint string, err error) *ClientError {
	return &ClientError{Op: op, Endpoint: endpoint, Err: err}
}

// ConnectionError is the terminal error returned by Connect. Its kind is the kind of
// the cause, and the cause stays reachable through errors.As.
type ConnectionError struct {
	Op   string
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return e.Err.Error()
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Kind implements Kinded.
func (e *ConnectionError) Kind() Kind { return KindOf(e.Err) }
