// Package protocol implements the HTTP side of connection setup: classifying host
// strings, fetching connection configuration documents and probing the web client.
package protocol

// Version is reported in the User-Agent of every request.
const Version = "1.0.0"

// DefaultBaseURL is the public IDR web front-end.
const DefaultBaseURL = "https://idr.openmicroscopy.org"

// Well-known paths on the web front-end.
const (
	ConfigPath         = "/connection/omero-client.json"
	WebclientProbePath = "/webclient/?experimenter=-1"
)

// Transport schemes understood directly by the session factory.
const (
	TransportTCP = "tcp"
	TransportSSL = "ssl"
	TransportWS  = "ws"
	TransportWSS = "wss"
)

// Fallback endpoint used when the primary transport is blocked.
const (
	FallbackPath = "/omero-ws"
	FallbackPort = 443
)
