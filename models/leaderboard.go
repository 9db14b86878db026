package models

import (
	"time"
)

// ArtistLeaderboardEntry — derived aggregate over decided, non-test battles,
// keyed by artist wallet. Rebuilt wholesale by the leaderboard refresh;
// WinRate and AvgVolumePerBattle are always recomputed from the counters.
type ArtistLeaderboardEntry struct {
	ID     string `json:"id" gorm:"primaryKey"`
	Wallet string `json:"wallet" gorm:"uniqueIndex;not null"`

	// Identity fields are first-seen and never overwritten by later battles.
	Name      string `json:"name"`
	Twitter   string `json:"twitter,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`

	BattlesParticipated int64   `json:"battles_participated" gorm:"default:0"`
	Wins                int64   `json:"wins" gorm:"default:0"`
	Losses              int64   `json:"losses" gorm:"default:0"`
	WinRate             float64 `json:"win_rate" gorm:"default:0"` // 0–100

	TotalVolume        float64 `json:"total_volume" gorm:"default:0"`
	TotalVolumeUsd     float64 `json:"total_volume_usd" gorm:"default:0"`
	TotalEarnings      float64 `json:"total_earnings" gorm:"default:0"`
	TotalEarningsUsd   float64 `json:"total_earnings_usd" gorm:"default:0"`
	StreamEquivalent   int64   `json:"stream_equivalent" gorm:"default:0"`
	AvgVolumePerBattle float64 `json:"avg_volume_per_battle" gorm:"default:0"`

	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// QuickBattleLeaderboardEntry is the quick-battle view of the artist board,
// keyed by track slug instead of wallet so repeat tracks accumulate.
type QuickBattleLeaderboardEntry struct {
	ID       string `json:"id" gorm:"primaryKey"`
	TrackKey string `json:"track_key" gorm:"uniqueIndex;not null"`

	TrackName  string `json:"track_name"`
	TrackURL   string `json:"track_url,omitempty"`
	ArtistName string `json:"artist_name"`
	Wallet     string `json:"wallet" gorm:"index"`

	BattlesParticipated int64   `json:"battles_participated" gorm:"default:0"`
	Wins                int64   `json:"wins" gorm:"default:0"`
	Losses              int64   `json:"losses" gorm:"default:0"`
	WinRate             float64 `json:"win_rate" gorm:"default:0"`
	TotalVolume         float64 `json:"total_volume" gorm:"default:0"`
	TotalVolumeUsd      float64 `json:"total_volume_usd" gorm:"default:0"`
	AvgVolumePerBattle  float64 `json:"avg_volume_per_battle" gorm:"default:0"`

	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TraderLeaderboardEntry — derived aggregate keyed by trader wallet.
// NetPnl = TotalPayout − TotalInvested; ROI = NetPnl / TotalInvested.
type TraderLeaderboardEntry struct {
	ID     string `json:"id" gorm:"primaryKey"`
	Wallet string `json:"wallet" gorm:"uniqueIndex;not null"`

	TotalInvested float64 `json:"total_invested" gorm:"default:0"`
	TotalPayout   float64 `json:"total_payout" gorm:"default:0"`
	NetPnl        float64 `json:"net_pnl" gorm:"default:0"`
	ROI           float64 `json:"roi" gorm:"default:0"`

	BattlesParticipated int64   `json:"battles_participated" gorm:"default:0"`
	Wins                int64   `json:"wins" gorm:"default:0"`
	Losses              int64   `json:"losses" gorm:"default:0"`
	WinRate             float64 `json:"win_rate" gorm:"default:0"`

	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
