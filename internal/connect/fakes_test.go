package connect

import (
	"context"
	"errors"
	"sync"
	"time"

	apperrors "github.com/idr-analysis/idrconnect/internal/errors"
	"github.com/idr-analysis/idrconnect/internal/interfaces"
)

// fakeFactory hands out fakeClients whose CreateSession results are scripted per call.
type fakeFactory struct {
	mu         sync.Mutex
	options    []interfaces.ClientOptions
	clients    []*fakeClient
	sessionErr []error
	newErr     error
	info       interfaces.ConnectionInfo
}

func (f *fakeFactory) NewClient(opts interfaces.ClientOptions) (interfaces.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.options = append(f.options, opts)
	if f.newErr != nil {
		return nil, f.newErr
	}
	var err error
	if i := len(f.clients); i < len(f.sessionErr) {
		err = f.sessionErr[i]
	}
	c := &fakeClient{sessionErr: err, info: f.info}
	f.clients = append(f.clients, c)
	return c, nil
}

type fakeClient struct {
	sessionErr error
	info       interfaces.ConnectionInfo

	args      []string
	created   bool
	keepAlive time.Duration
	closed    bool
}

func (c *fakeClient) CreateSession(_ context.Context, args ...string) error {
	c.args = args
	if c.sessionErr != nil {
		return c.sessionErr
	}
	c.created = true
	return nil
}

func (c *fakeClient) EnableKeepAlive(interval time.Duration) { c.keepAlive = interval }

func (c *fakeClient) SessionID() string {
	if c.created {
		return "session-1"
	}
	return ""
}

func (c *fakeClient) ConnectionInfo() (interfaces.ConnectionInfo, error) {
	if c.info.RemoteAddress == "" {
		return interfaces.ConnectionInfo{}, errors.New("no connection info")
	}
	return c.info, nil
}

func (c *fakeClient) Close() error {
	c.closed = true
	return nil
}

// fakeFetcher returns a fixed document and the bare host, or err.
type fakeFetcher struct {
	calls []string
	cfg   interfaces.RemoteConfig
	host  string
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context, hostOrURL string) (interfaces.RemoteConfig, string, error) {
	f.calls = append(f.calls, hostOrURL)
	if f.err != nil {
		return nil, "", f.err
	}
	host := f.host
	if host == "" {
		host = hostOrURL
	}
	return f.cfg, host, nil
}

func clientErr(msg string) error {
	return apperrors.NewClientError("create_session", "", errors.New(msg))
}

func str(s string) *string { return &s }

func num(i int) *int { return &i }
