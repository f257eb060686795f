package network

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestNewClient_SetsUserAgentAndTimeout verifies the default header and timeout wiring.
func TestNewClient_SetsUserAgentAndTimeout(t *testing.T) {
	t.Parallel()

	agents := make(chan string, 1)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents <- r.Header.Get("User-Agent")

		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	client := NewClient(Options{Timeout: time.Second, UserAgent: "formula-updater/test"})
	require.Equal(t, time.Second, client.Timeout)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, ts.URL, http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)

	_ = resp.Body.Close()

	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "formula-updater/test", <-agents)
	require.Empty(t, req.Header.Get("User-Agent"))
}

// TestLimitedTransport_HonoursContext ensures a cancelled context stops a throttled request.
func TestLimitedTransport_HonoursContext(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	// One request per minute: the third request has to wait for a token.
	client := NewClient(Options{RequestsPerSecond: 1.0 / 60})

	for i := 0; i < limitBurst; i++ {
		resp, err := client.Get(ts.URL) //nolint:noctx // Plain request is enough here.
		require.NoError(t, err)

		_ = resp.Body.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL, http.NoBody)
	require.NoError(t, err)

	_, err = client.Do(req)
	require.Error(t, err)
}
