package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "github.com/idr-analysis/idrconnect/internal/errors"
	"github.com/idr-analysis/idrconnect/internal/interfaces"
	"github.com/idr-analysis/idrconnect/internal/logging"
)

// ConfigTarget returns the URL to fetch and the bare host for hostOrURL.
// A URL is fetched verbatim and its host component is returned; anything else is
// treated as a host serving the well-known configuration path over https.
func ConfigTarget(hostOrURL string) (target, bareHost string) {
	if m := urlPattern.FindStringSubmatch(hostOrURL); m != nil {
		return hostOrURL, m[1]
	}
	return fmt.Sprintf("https://%s%s", hostOrURL, ConfigPath), hostOrURL
}

// Fetcher retrieves connection configuration documents.
type Fetcher struct {
	client *http.Client
	logger *logging.Logger
}

// NewFetcher creates a fetcher. A nil client selects NewHTTPClient.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = NewHTTPClient()
	}
	return &Fetcher{client: client, logger: logging.GetProtocolLogger()}
}

// Fetch implements interfaces.ConfigFetcher. Every failure is a *errors.ConfigFetchError.
func (f *Fetcher) Fetch(ctx context.Context, hostOrURL string) (interfaces.RemoteConfig, string, error) {
	target, bareHost := ConfigTarget(hostOrURL)

	body, err := GetOK(ctx, f.client, target)
	if err != nil {
		fetchErr := &apperrors.ConfigFetchError{Target: target, Err: err}
		var statusErr *apperrors.HTTPStatusError
		if apperrors.As(err, &statusErr) {
			fetchErr.StatusCode = statusErr.StatusCode
		}
		return nil, "", fetchErr
	}

	var cfg interfaces.RemoteConfig
	if err := json.Unmarshal(body, &cfg); err != nil {
		return nil, "", &apperrors.ConfigFetchError{Target: target, Err: fmt.Errorf("decode configuration: %w", err)}
	}
	if cfg == nil {
		return nil, "", &apperrors.ConfigFetchError{Target: target, Err: fmt.Errorf("configuration is not a JSON object")}
	}

	f.logger.LogConfigFetch(target, bareHost, len(cfg))
	return cfg, bareHost, nil
}
