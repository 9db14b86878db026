// services/battle_rules.go
package services

import (
	"math"
	"strings"

	"github.com/CandyToyBox/analytics-wave-warz-sub001/models"
	"github.com/gosimple/slug"
)

const (
	// StreamRateUSD converts USD value into streaming-equivalent plays.
	StreamRateUSD = 0.003

	// DefaultSolPriceUSD is the last-resort price when the oracle has
	// never succeeded and the feed is down.
	DefaultSolPriceUSD = 150.0
)

// Battle categories. Exactly one applies to any battle.
const (
	CategoryQuick     = "quick"
	CategoryCommunity = "community"
	CategoryMain      = "main"
)

// IsQuickBattle applies the corrected link-presence rule: a battle is a
// quick battle iff BOTH sides carry a non-empty track URL. Duration-based
// thresholds are legacy and intentionally ignored here.
func IsQuickBattle(b *models.Battle) bool {
	return strings.TrimSpace(b.ArtistATrackURL) != "" && strings.TrimSpace(b.ArtistBTrackURL) != ""
}

// IsCommunityBattle — explicit flag, but quick classification takes
// precedence so the three categories stay mutually exclusive.
func IsCommunityBattle(b *models.Battle) bool {
	return b.IsCommunityBattle && !IsQuickBattle(b)
}

func IsMainBattle(b *models.Battle) bool {
	return !IsQuickBattle(b) && !IsCommunityBattle(b)
}

// BattleCategory returns the single category for a battle.
func BattleCategory(b *models.Battle) string {
	switch {
	case IsQuickBattle(b):
		return CategoryQuick
	case IsCommunityBattle(b):
		return CategoryCommunity
	default:
		return CategoryMain
	}
}

// TrackKey builds the stable grouping key for the quick-battle board.
// Falls back to the wallet so a missing track name can't collide on "".
func TrackKey(trackName, wallet string) string {
	if s := slug.Make(trackName); s != "" {
		return s
	}
	return strings.ToLower(strings.TrimSpace(wallet))
}

// EnrichedBattle is a battle plus its USD / stream-equivalent view.
type EnrichedBattle struct {
	models.Battle

	Category     string  `json:"category"`
	PoolAUsd     float64 `json:"pool_a_usd"`
	PoolBUsd     float64 `json:"pool_b_usd"`
	TotalTvlUsd  float64 `json:"total_tvl_usd"`
	PoolAStreams int64   `json:"pool_a_streams"`
	PoolBStreams int64   `json:"pool_b_streams"`
	TotalStreams int64   `json:"total_streams"`
	SolPriceUsd  float64 `json:"sol_price_usd"`
	Winner       string  `json:"winner,omitempty"`
}

// StreamEquivalent converts a USD amount into whole streaming plays.
func StreamEquivalent(usdAmount float64) int64 {
	if usdAmount <= 0 {
		return 0
	}
	return int64(math.Round(usdAmount / StreamRateUSD))
}

// ClampNonNegative — upstream rows occasionally carry garbage negatives;
// derived metrics must never propagate them.
func ClampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// ClampNonNegativeCount is the integer counterpart for trade/trader counts.
func ClampNonNegativeCount(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}

// EnrichBattle computes the USD/stream view of a battle. Deterministic and
// I/O-free: the price is passed in so batch callers fetch it exactly once.
func EnrichBattle(b models.Battle, priceUsdPerSol float64) EnrichedBattle {
	poolA := ClampNonNegative(b.PoolA)
	poolB := ClampNonNegative(b.PoolB)
	poolAUsd := poolA * priceUsdPerSol
	poolBUsd := poolB * priceUsdPerSol
	totalUsd := poolAUsd + poolBUsd

	return EnrichedBattle{
		Battle:       b,
		Category:     BattleCategory(&b),
		PoolAUsd:     poolAUsd,
		PoolBUsd:     poolBUsd,
		TotalTvlUsd:  totalUsd,
		PoolAStreams: StreamEquivalent(poolAUsd),
		PoolBStreams: StreamEquivalent(poolBUsd),
		TotalStreams: StreamEquivalent(totalUsd),
		SolPriceUsd:  priceUsdPerSol,
		Winner:       b.Winner(),
	}
}
