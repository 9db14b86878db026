package services

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPriceService(t *testing.T, handler http.HandlerFunc) (*PriceService, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc := &PriceService{
		APIBaseURL: server.URL,
		TTL:        300 * time.Second,
		HTTPClient: server.Client(),
		Now:        time.Now,
	}
	return svc, server
}

func TestPriceCacheSingleFetchWithinTTL(t *testing.T) {
	var fetches int64
	svc, _ := newTestPriceService(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&fetches, 1)
		w.Write([]byte(`{"solana":{"usd":142.5}}`))
	})

	first := svc.GetCurrentPrice()
	second := svc.GetCurrentPrice()

	assert.Equal(t, 142.5, first)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), atomic.LoadInt64(&fetches), "second call within TTL must not fetch")
}

func TestPriceCacheRefetchAfterTTL(t *testing.T) {
	var fetches int64
	svc, _ := newTestPriceService(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&fetches, 1)
		if atomic.LoadInt64(&fetches) == 1 {
			w.Write([]byte(`{"solana":{"usd":100}}`))
			return
		}
		w.Write([]byte(`{"solana":{"usd":120}}`))
	})

	now := time.Unix(1_700_000_000, 0)
	svc.Now = func() time.Time { return now }

	assert.Equal(t, 100.0, svc.GetCurrentPrice())

	// advance past the TTL window
	now = now.Add(301 * time.Second)
	assert.Equal(t, 120.0, svc.GetCurrentPrice())
	assert.Equal(t, int64(2), atomic.LoadInt64(&fetches))
}

func TestPriceFallsBackToStaleOnError(t *testing.T) {
	var fetches int64
	svc, _ := newTestPriceService(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&fetches, 1)
		if atomic.LoadInt64(&fetches) == 1 {
			w.Write([]byte(`{"solana":{"usd":95}}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	})

	now := time.Unix(1_700_000_000, 0)
	svc.Now = func() time.Time { return now }

	require.Equal(t, 95.0, svc.GetCurrentPrice())

	now = now.Add(10 * time.Minute)
	assert.Equal(t, 95.0, svc.GetCurrentPrice(), "stale price must be served when the feed fails")
}

func TestPriceDefaultWhenNeverFetched(t *testing.T) {
	svc, _ := newTestPriceService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	assert.Equal(t, DefaultSolPriceUSD, svc.GetCurrentPrice())
}

func TestPriceRejectsMalformedResponse(t *testing.T) {
	svc, _ := newTestPriceService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"solana":{"usd":0}}`))
	})

	assert.Equal(t, DefaultSolPriceUSD, svc.GetCurrentPrice(), "non-positive price must not be cached")
}

func TestPriceInvalidate(t *testing.T) {
	var fetches int64
	svc, _ := newTestPriceService(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&fetches, 1)
		w.Write([]byte(`{"solana":{"usd":142.5}}`))
	})

	svc.GetCurrentPrice()
	svc.Invalidate()
	svc.GetCurrentPrice()

	assert.Equal(t, int64(2), atomic.LoadInt64(&fetches))
}
