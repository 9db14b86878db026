package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"

	"github.com/CandyToyBox/analytics-wave-warz-sub001/utils"
)

// BattleVolumes is the per-battle snapshot the external indexer reports.
type BattleVolumes struct {
	TotalVolumeA  float64 `json:"total_volume_a"`
	TotalVolumeB  float64 `json:"total_volume_b"`
	TradeCount    int64   `json:"trade_count"`
	UniqueTraders int64   `json:"unique_traders"`
}

// VolumeSyncClient talks to the external battle-volume indexer. The indexer
// enforces a hard rate limit, so callers must pace their requests (the admin
// scan sleeps ~1s between battles).
type VolumeSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewVolumeSyncClient() *VolumeSyncClient {
	baseURL := os.Getenv("VOLUME_INDEXER_URL")
	if baseURL == "" {
		log.Fatal("VOLUME_INDEXER_URL environment variable is required")
	}
	// Token is optional — public indexers don't require one.
	token := os.Getenv("VOLUME_INDEXER_TOKEN")

	return &VolumeSyncClient{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: utils.IndexerHTTPClient,
	}
}

// FetchBattleVolumes pulls the current on-chain volume totals for one battle.
func (c *VolumeSyncClient) FetchBattleVolumes(ctx context.Context, battleID string) (BattleVolumes, error) {
	var volumes BattleVolumes

	u, err := url.Parse(fmt.Sprintf("%s/battles/%s/volumes", c.BaseURL, url.PathEscape(battleID)))
	if err != nil {
		return volumes, fmt.Errorf("failed to parse indexer URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return volumes, fmt.Errorf("failed to create request: %w", err)
	}
	if c.Token != "" {
		req.Header.Set("X-Service-Token", c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return volumes, fmt.Errorf("failed to call volume indexer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return volumes, fmt.Errorf("volume indexer returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(&volumes); err != nil {
		return volumes, fmt.Errorf("failed to decode indexer response: %w", err)
	}

	return volumes, nil
}
