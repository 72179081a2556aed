package protocol

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	schemePattern = regexp.MustCompile(`^\w+://`)
	urlPattern    = regexp.MustCompile(`^\w+://([^:/]+)`)
)

var lowLevelTransports = []string{TransportTCP, TransportSSL, TransportWS, TransportWSS}

// NamesLowLevelTransport reports whether host already says exactly how to connect,
// i.e. starts with tcp://, ssl://, ws:// or wss://. The match is case-sensitive.
func NamesLowLevelTransport(host string) bool {
	return TransportOf(host) != ""
}

// TransportOf returns the low-level transport named by host, or "".
func TransportOf(host string) string {
	if host == "" {
		return ""
	}
	for _, scheme := range lowLevelTransports {
		if strings.HasPrefix(host, scheme+"://") {
			return scheme
		}
	}
	return ""
}

// HasScheme reports whether host starts with any scheme://, which pins the caller's
// choice of endpoint.
func HasScheme(host string) bool {
	return schemePattern.MatchString(host)
}

// NeedsConfigFetch decides whether host must be resolved through a configuration
// document: a host without a port or any URL, unless it names a low-level transport.
func NeedsConfigFetch(host string, port int) bool {
	return ((host != "" && port == 0) || HasScheme(host)) && !NamesLowLevelTransport(host)
}

// FallbackHost builds the secure-websocket endpoint for host.
func FallbackHost(host string) string {
	return fmt.Sprintf("wss://%s%s", host, FallbackPath)
}
