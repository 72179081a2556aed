package connect

import (
	apperrors "github.com/idr-analysis/idrconnect/internal/errors"
	"github.com/idr-analysis/idrconnect/internal/interfaces"
	"github.com/idr-analysis/idrconnect/internal/protocol"
)

// FallbackPolicy decides whether and how a failed attempt is retried.
type FallbackPolicy struct {
	// MaxRetries bounds the number of retries after the first attempt.
	MaxRetries int

	// Qualifies reports whether err from an attempt whose caller-supplied host was
	// originalHost may be retried.
	Qualifies func(err error, originalHost string) bool

	// Rewrite builds the next request from the failed one. endpoint is what the
	// failed attempt resolved, after configuration substitution.
	Rewrite func(req interfaces.ConnectionRequest, endpoint interfaces.ResolvedEndpoint) interfaces.ConnectionRequest
}

// DefaultFallbackPolicy retries once over secure websockets on port 443, only for
// session-level failures and only when the caller did not pin a scheme.
func DefaultFallbackPolicy() FallbackPolicy {
	return FallbackPolicy{
		MaxRetries: 1,
		Qualifies:  QualifiesForFallback,
		Rewrite:    RewriteToWebsocket,
	}
}

// NoFallback never retries.
func NoFallback() FallbackPolicy {
	return FallbackPolicy{}
}

// QualifiesForFallback is true for client errors when originalHost has no scheme.
func QualifiesForFallback(err error, originalHost string) bool {
	return apperrors.KindOf(err) == apperrors.KindClient && !protocol.HasScheme(originalHost)
}

// RewriteToWebsocket forces host wss://{host}/omero-ws and port 443. Credentials and
// verbosity are carried over unchanged.
func RewriteToWebsocket(req interfaces.ConnectionRequest, endpoint interfaces.ResolvedEndpoint) interfaces.ConnectionRequest {
	host := protocol.FallbackHost(endpoint.Host)
	port := protocol.FallbackPort
	next := req
	next.Host = &host
	next.Port = &port
	return next
}

func (p FallbackPolicy) allows(retries int, err error, originalHost string) bool {
	return retries < p.MaxRetries && p.Qualifies != nil && p.Rewrite != nil && p.Qualifies(err, originalHost)
}
