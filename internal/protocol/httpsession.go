package protocol

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
)

// HTTPSession is a cookie-keeping client bound to a web front-end.
type HTTPSession struct {
	BaseURL string
	client  *http.Client
}

// NewHTTPSession opens a session against baseURL (DefaultBaseURL when empty) and
// checks that the web client answers with 200 OK.
func NewHTTPSession(ctx context.Context, baseURL string) (*HTTPSession, error) {
	return NewHTTPSessionWithClient(ctx, baseURL, NewHTTPClient())
}

// NewHTTPSessionWithClient is NewHTTPSession over a caller-supplied client. When the
// client has no cookie jar the session uses a copy of it with a fresh jar, so a shared
// client is never mutated.
func NewHTTPSessionWithClient(ctx context.Context, baseURL string, client *http.Client) (*HTTPSession, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	if client == nil {
		client = NewHTTPClient()
	}
	if client.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		withJar := *client
		withJar.Jar = jar
		client = &withJar
	}

	session := &HTTPSession{BaseURL: baseURL, client: client}
	if _, err := session.Get(ctx, WebclientProbePath); err != nil {
		return nil, err
	}
	return session, nil
}

// Get fetches path relative to the base URL and returns the body of a 200 response.
func (s *HTTPSession) Get(ctx context.Context, path string) ([]byte, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return GetOK(ctx, s.client, s.BaseURL+path)
}

// Client exposes the underlying client, cookies included.
func (s *HTTPSession) Client() *http.Client {
	return s.client
}
