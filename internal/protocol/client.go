package protocol

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/idr-analysis/idrconnect/internal/errors"
	"github.com/idr-analysis/idrconnect/internal/logging"
)

// maxErrorBody bounds how much of a failed response is kept on the error.
const maxErrorBody = 512

var userAgent = fmt.Sprintf("idrconnect/%s", Version)

// NewHTTPClient returns a client with pooled connections and no overall timeout;
// callers bound requests through their context.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        10,
			IdleConnTimeout:     30 * time.Second,
			MaxIdleConnsPerHost: 2,
		},
	}
}

func setStandardHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")
}

// GetOK issues a GET against target and returns the body of a 200 response.
// Any other status yields an *errors.HTTPStatusError; transport failures are returned
// wrapped.
func GetOK(ctx context.Context, client *http.Client, target string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	logger := logging.GetProtocolLogger()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", target, err)
	}
	setStandardHeaders(req)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	logger.LogHTTPRequest(http.MethodGet, target, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &apperrors.HTTPStatusError{
			Target:     target,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: read body: %w", target, err)
	}
	return body, nil
}
