package errors

import (
	"time"
)

// ProcessedError represents a terminal error prepared for display.
type ProcessedError struct {
	Timestamp time.Time
	Message   string
	Kind      Kind
	Hint      string
}

// Handler turns errors returned by the connection core into ProcessedErrors.
type Handler struct{}

// NewHandler creates a new error handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Process classifies err. The message is the error text unmodified.
func (h *Handler) Process(err error) *ProcessedError {
	if err == nil {
		return nil
	}

	kind := KindOf(err)
	return &ProcessedError{
		Timestamp: time.Now(),
		Message:   err.Error(),
		Kind:      kind,
		Hint:      hintFor(err, kind),
	}
}

func hintFor(err error, kind Kind) string {
	switch kind {
	case KindConfigFetch:
		var fe *ConfigFetchError
		if As(err, &fe) && fe.StatusCode == 404 {
			return "The server does not publish a connection document; pass a transport URL such as wss://host/omero-ws"
		}
		return "Check the host name, or pass a transport URL (tcp://, ssl://, ws://, wss://) to skip configuration lookup"
	case KindClient:
		return "Check the credentials and that the server accepts connections on the chosen transport"
	case KindConfiguration:
		return "Check the IDR_* environment variables and the selected profile"
	case KindHTTP:
		return "Check that the web client is reachable from this network"
	default:
		return ""
	}
}
