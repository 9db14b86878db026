package models

import (
	"time"
)

// Battle is one row of the battles table — a two-sided trading contest.
// The authoritative copy lives upstream; rows here are created/finalized
// exclusively by the battle webhook and volume-refreshed by the admin scan.
type Battle struct {
	ID       string `json:"id" gorm:"primaryKey"`
	BattleID string `json:"battle_id" gorm:"uniqueIndex;not null"` // stable external identifier

	// Side A
	ArtistAName      string `json:"artist_a_name"`
	ArtistAWallet    string `json:"artist_a_wallet" gorm:"index"`
	ArtistATwitter   string `json:"artist_a_twitter,omitempty"`
	ArtistATrackName string `json:"artist_a_track_name,omitempty"`
	ArtistATrackURL  string `json:"artist_a_track_url,omitempty"`
	ArtistAAvatarURL string `json:"artist_a_avatar_url,omitempty"`

	// Side B
	ArtistBName      string `json:"artist_b_name"`
	ArtistBWallet    string `json:"artist_b_wallet" gorm:"index"`
	ArtistBTwitter   string `json:"artist_b_twitter,omitempty"`
	ArtistBTrackName string `json:"artist_b_track_name,omitempty"`
	ArtistBTrackURL  string `json:"artist_b_track_url,omitempty"`
	ArtistBAvatarURL string `json:"artist_b_avatar_url,omitempty"`

	// Economic state (native token units). Never negative.
	PoolA         float64 `json:"pool_a" gorm:"default:0"`
	PoolB         float64 `json:"pool_b" gorm:"default:0"`
	TotalVolumeA  float64 `json:"total_volume_a" gorm:"default:0"`
	TotalVolumeB  float64 `json:"total_volume_b" gorm:"default:0"`
	TradeCount    int64   `json:"trade_count" gorm:"default:0"`
	UniqueTraders int64   `json:"unique_traders" gorm:"default:0"`

	// Lifecycle. WinnerIsA is only meaningful once WinnerDecided is true,
	// and WinnerDecided never reverts to false.
	Status            string `json:"status" gorm:"default:'active'"`
	WinnerDecided     bool   `json:"winner_decided" gorm:"default:false;index"`
	WinnerIsA         *bool  `json:"winner_is_a,omitempty"`
	IsQuickBattle     bool   `json:"is_quick_battle" gorm:"default:false"`
	IsCommunityBattle bool   `json:"is_community_battle" gorm:"default:false"`
	IsTestBattle      bool   `json:"is_test_battle" gorm:"default:false"`

	DurationSeconds int64      `json:"duration_seconds" gorm:"default:0"`
	LastScannedAt   *time.Time `json:"last_scanned_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt       time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// Winner returns the winning side's name, or "" while undecided.
func (b *Battle) Winner() string {
	if !b.WinnerDecided || b.WinnerIsA == nil {
		return ""
	}
	if *b.WinnerIsA {
		return b.ArtistAName
	}
	return b.ArtistBName
}
