package models

import (
	"time"
)

// Trade records a single trader position in a battle, fed in by the
// battle_trades webhook events. IsWin stays nil until the battle settles.
type Trade struct {
	ID           string `json:"id" gorm:"primaryKey"`
	TradeID      string `json:"trade_id" gorm:"uniqueIndex;not null"`
	BattleID     string `json:"battle_id" gorm:"index;not null"`
	TraderWallet string `json:"trader_wallet" gorm:"index;not null"`

	SideA          bool    `json:"side_a"`
	AmountInvested float64 `json:"amount_invested" gorm:"default:0"`
	AmountPayout   float64 `json:"amount_payout" gorm:"default:0"`
	IsWin          *bool   `json:"is_win,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
