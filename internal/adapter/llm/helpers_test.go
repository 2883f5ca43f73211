package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wingman-relay/internal/domain"
)

func TestMapHTTPErrorSentinels(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, domain.ErrAuthInvalid},
		{http.StatusTooManyRequests, domain.ErrRateLimit},
		{http.StatusBadRequest, domain.ErrUpstreamBadRequest},
		{http.StatusPaymentRequired, domain.ErrProviderError},
		{http.StatusBadGateway, domain.ErrProviderError},
	}
	for _, tt := range tests {
		err := mapHTTPError(tt.status, []byte(`{}`))
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: expected %v, got %v", tt.status, tt.want, err)
		}
	}
}

func TestMapHTTPErrorExtractsMessage(t *testing.T) {
	err := mapHTTPError(http.StatusPaymentRequired, []byte(`{"error":{"message":"Insufficient credits","code":402}}`))

	var ue *domain.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusPaymentRequired, ue.StatusCode)
	assert.Equal(t, "Insufficient credits", ue.Message)
}

func TestMapHTTPErrorWithoutMessage(t *testing.T) {
	for _, body := range []string{`bad gateway`, `{"error":"flat string"}`, ``, `{"detail":"x"}`} {
		var ue *domain.UpstreamError
		require.True(t, errors.As(mapHTTPError(http.StatusBadGateway, []byte(body)), &ue))
		assert.Empty(t, ue.Message, "body %q", body)
		assert.Equal(t, body, ue.Body)
	}
}

func TestMapHTTPErrorTruncatesBody(t *testing.T) {
	var ue *domain.UpstreamError
	require.True(t, errors.As(mapHTTPError(http.StatusInternalServerError, []byte(strings.Repeat("x", maxErrorBody*2))), &ue))
	assert.Len(t, ue.Body, maxErrorBody)
}

func TestDoRequestTransportError(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})}

	_, err := doRequest(context.Background(), client, http.MethodGet, "http://upstream.test/models", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnreachable))
	assert.True(t, domain.IsUpstreamFault(err))
}

func TestDoRequestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	client := &http.Client{Timeout: 20 * time.Millisecond}
	_, err := doRequest(context.Background(), client, http.MethodGet, srv.URL, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTimeout))
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnreachable))
	assert.Equal(t, domain.CodeTimeout, domain.ErrorCodeOf(err))
	assert.True(t, domain.IsUpstreamFault(err))
}

func TestDoRequestTransportErrorIsNotTimeout(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})}

	_, err := doRequest(context.Background(), client, http.MethodGet, "http://upstream.test/models", nil, nil)
	assert.False(t, errors.Is(err, domain.ErrTimeout))
	assert.Equal(t, domain.CodeUpstreamUnreachable, domain.ErrorCodeOf(err))
}

func TestDoRequestAccepts2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "v", r.Header.Get("X-Test"))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	body, err := doRequest(context.Background(), srv.Client(), http.MethodPost, srv.URL, []byte(`{}`), map[string]string{"X-Test": "v"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestDoRequestCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := doRequest(ctx, srv.Client(), http.MethodGet, srv.URL, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnreachable))
}
