/* external_test.go
 * Contains unit tests for external.go HTTP functions using httptest
 * Authors: Zachary Bower
 */

package external

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"survivor-pool/api/shared"
)

func newTestClient(url string) *ESPNClient {
	logger, _ := test.NewNullLogger()
	return NewESPNClient(ESPNConfig{BaseURL: url, RequestsPerSecond: 1000, Timeout: 2 * time.Second}, logger)
}

// TestFetchWeek_Success tests fetching and parsing a scoreboard
func TestFetchWeek_Success(t *testing.T) {
	fixture, err := os.ReadFile("testdata/scoreboard_week1.json")
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "1", r.URL.Query().Get("week"))
		assert.Equal(t, "2", r.URL.Query().Get("seasontype"))
		assert.Equal(t, "2025", r.URL.Query().Get("dates"))
		w.WriteHeader(http.StatusOK)
		w.Write(fixture)
	}))
	defer server.Close()

	games, err := newTestClient(server.URL).FetchWeek(context.Background(), 2025, 1)

	require.NoError(t, err)
	assert.Len(t, games, 5)
}

// TestFetchWeek_ServerError tests that a failed request is a ProviderUnavailable error
func TestFetchWeek_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	games, err := newTestClient(server.URL).FetchWeek(context.Background(), 2025, 1)

	assert.Nil(t, games)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrProviderUnavailable))
	assert.Contains(t, err.Error(), "500")
}

// TestFetchWeek_InvalidBody tests that an unparseable body is a ProviderUnavailable error
func TestFetchWeek_InvalidBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchWeek(context.Background(), 2025, 1)

	assert.True(t, errors.Is(err, shared.ErrProviderUnavailable))
}

// TestFetchWeek_BreakerOpens tests that repeated failures stop requests reaching the provider
func TestFetchWeek_BreakerOpens(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	for i := 0; i < 5; i++ {
		_, err := client.FetchWeek(context.Background(), 2025, 1)
		assert.True(t, errors.Is(err, shared.ErrProviderUnavailable))
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

// TestFetchWeek_CancelledContext tests that a cancelled context is not sent
func TestFetchWeek_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(server.URL).FetchWeek(ctx, 2025, 1)

	assert.True(t, errors.Is(err, shared.ErrProviderUnavailable))
}

// TestFetchWeek_InvalidWeek tests week bounds
func TestFetchWeek_InvalidWeek(t *testing.T) {
	_, err := newTestClient("http://127.0.0.1:0").FetchWeek(context.Background(), 2025, 19)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, shared.ErrProviderUnavailable))
}
