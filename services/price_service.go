// services/price_service.go
package services

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/CandyToyBox/analytics-wave-warz-sub001/utils"
)

// PriceService is the single process-wide SOL/USD oracle. The cache is one
// entry, replaced wholesale every TTL window. GetCurrentPrice never fails:
// on a fetch error it serves the stale value, or DefaultSolPriceUSD if
// nothing was ever fetched.
type PriceService struct {
	APIBaseURL string
	TTL        time.Duration
	HTTPClient *http.Client
	Now        func() time.Time // overridable in tests

	mu        sync.Mutex
	price     float64
	fetchedAt time.Time
	hasPrice  bool
}

func NewPriceService() *PriceService {
	apiURL := os.Getenv("PRICE_API_URL")
	if apiURL == "" {
		apiURL = "https://api.coingecko.com/api/v3/simple/price?ids=solana&vs_currencies=usd"
	}

	ttl := 300 * time.Second
	if ttlStr := os.Getenv("PRICE_CACHE_TTL_SECONDS"); ttlStr != "" {
		if n, err := strconv.Atoi(ttlStr); err == nil && n > 0 {
			ttl = time.Duration(n) * time.Second
		} else {
			log.Printf("⚠️  Invalid PRICE_CACHE_TTL_SECONDS=%q, using default 300s", ttlStr)
		}
	}

	return &PriceService{
		APIBaseURL: apiURL,
		TTL:        ttl,
		HTTPClient: utils.PriceHTTPClient,
		Now:        time.Now,
	}
}

// GetCurrentPrice returns the cached SOL/USD price, refreshing it when the
// TTL window has passed. Concurrent callers racing past an expired entry
// can trigger one redundant fetch each; that's accepted — the lock is only
// held around cache reads/swaps, never across the HTTP call.
func (s *PriceService) GetCurrentPrice() float64 {
	s.mu.Lock()
	if s.hasPrice && s.Now().Sub(s.fetchedAt) < s.TTL {
		price := s.price
		s.mu.Unlock()
		return price
	}
	stale, hasStale := s.price, s.hasPrice
	s.mu.Unlock()

	price, err := s.fetchPrice()
	if err != nil {
		if hasStale {
			log.Printf("⚠️  [PRICE] Fetch failed (%v) — serving stale price %.2f", err, stale)
			return stale
		}
		log.Printf("⚠️  [PRICE] Fetch failed (%v) — serving default price %.2f", err, DefaultSolPriceUSD)
		return DefaultSolPriceUSD
	}

	s.mu.Lock()
	s.price = price
	s.fetchedAt = s.Now()
	s.hasPrice = true
	s.mu.Unlock()

	return price
}

// Invalidate drops the cached entry so the next call fetches fresh.
func (s *PriceService) Invalidate() {
	s.mu.Lock()
	s.hasPrice = false
	s.price = 0
	s.mu.Unlock()
}

func (s *PriceService) fetchPrice() (float64, error) {
	resp, err := s.HTTPClient.Get(s.APIBaseURL)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &PriceFeedError{Status: resp.StatusCode}
	}

	var payload struct {
		Solana struct {
			USD float64 `json:"usd"`
		} `json:"solana"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, err
	}
	if payload.Solana.USD <= 0 {
		return 0, &PriceFeedError{Status: resp.StatusCode, Malformed: true}
	}
	return payload.Solana.USD, nil
}

// PriceFeedError marks a non-200 or malformed price feed response.
type PriceFeedError struct {
	Status    int
	Malformed bool
}

func (e *PriceFeedError) Error() string {
	if e.Malformed {
		return "price feed returned a malformed or non-positive price (status " + strconv.Itoa(e.Status) + ")"
	}
	return "price feed returned status " + strconv.Itoa(e.Status)
}
