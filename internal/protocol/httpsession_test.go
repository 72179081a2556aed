package protocol

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/idr-analysis/idrconnect/internal/errors"
)

func TestNewHTTPSession_ProbesWebclientAndKeepsCookies(t *testing.T) {
	var probed bool
	mux := http.NewServeMux()
	mux.HandleFunc("/webclient/", func(w http.ResponseWriter, r *http.Request) {
		probed = true
		assert.Equal(t, "-1", r.URL.Query().Get("experimenter"))
		http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "abc", Path: "/"})
		_, _ = io.WriteString(w, "<html></html>")
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("sessionid")
		if err != nil {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = io.WriteString(w, c.Value)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	session, err := NewHTTPSessionWithClient(context.Background(), srv.URL+"/", srv.Client())
	require.NoError(t, err)
	assert.True(t, probed)
	assert.Equal(t, srv.URL, session.BaseURL)
	assert.NotNil(t, session.Client().Jar)

	body, err := session.Get(context.Background(), "api/")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(body))
}

func TestNewHTTPSession_NonOKFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPSessionWithClient(context.Background(), srv.URL, srv.Client())
	require.Error(t, err)

	var statusErr *apperrors.HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, srv.URL+WebclientProbePath, statusErr.Target)
	assert.Equal(t, apperrors.KindHTTP, apperrors.KindOf(err))
}

func TestGetOK_NilClientUsesDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	body, err := GetOK(context.Background(), nil, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}
