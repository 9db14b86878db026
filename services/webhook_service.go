// services/webhook_service.go
package services

import (
	"encoding/json"
	"errors"
	"log"
	"strings"

	"github.com/CandyToyBox/analytics-wave-warz-sub001/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	battleTable = "battles"
	tradeTable  = "battle_trades"
)

type WebhookService struct {
	DB           *gorm.DB
	Leaderboards *LeaderboardService
}

func NewWebhookService(db *gorm.DB, leaderboards *LeaderboardService) *WebhookService {
	return &WebhookService{DB: db, Leaderboards: leaderboards}
}

// WebhookEvent is the change-capture envelope the upstream database posts
// on every write: {type, table, record, old_record}.
type WebhookEvent struct {
	Type      string          `json:"type"`
	Table     string          `json:"table"`
	Record    json.RawMessage `json:"record"`
	OldRecord json.RawMessage `json:"old_record,omitempty"`
}

// BattlePayload is the battle row as delivered inside a webhook record.
type BattlePayload struct {
	BattleID string `json:"battle_id"`

	ArtistAName      string `json:"artist_a_name"`
	ArtistAWallet    string `json:"artist_a_wallet"`
	ArtistATwitter   string `json:"artist_a_twitter"`
	ArtistATrackName string `json:"artist_a_track_name"`
	ArtistATrackURL  string `json:"artist_a_track_url"`
	ArtistAAvatarURL string `json:"artist_a_avatar_url"`

	ArtistBName      string `json:"artist_b_name"`
	ArtistBWallet    string `json:"artist_b_wallet"`
	ArtistBTwitter   string `json:"artist_b_twitter"`
	ArtistBTrackName string `json:"artist_b_track_name"`
	ArtistBTrackURL  string `json:"artist_b_track_url"`
	ArtistBAvatarURL string `json:"artist_b_avatar_url"`

	PoolA         float64 `json:"pool_a"`
	PoolB         float64 `json:"pool_b"`
	TotalVolumeA  float64 `json:"total_volume_a"`
	TotalVolumeB  float64 `json:"total_volume_b"`
	TradeCount    int64   `json:"trade_count"`
	UniqueTraders int64   `json:"unique_traders"`

	Status            string `json:"status"`
	WinnerDecided     bool   `json:"winner_decided"`
	WinnerIsA         *bool  `json:"winner_is_a"`
	IsCommunityBattle bool   `json:"is_community_battle"`
	IsTestBattle      bool   `json:"is_test_battle"`
	DurationSeconds   int64  `json:"duration_seconds"`
}

// Transition is the state-machine decision for one battle event.
type Transition int

const (
	TransitionIgnore         Transition = iota // unknown type / irrelevant event
	TransitionInsert                           // Unseen → Active
	TransitionSkipDuplicate                    // INSERT replay, row already exists
	TransitionDropLiveUpdate                   // Active → Active, intentionally not persisted
	TransitionComplete                         // Active → Completed, the only persisted update
	TransitionSkipFinalized                    // Completed is terminal, event dropped
	TransitionNotFound                         // UPDATE for a battle we never saw
)

// DecideBattleTransition is the pure core of the webhook. existing is nil
// when no row is stored for the payload's battle_id.
//
// Rules: a battle is inserted exactly once; volume updates while active are
// dropped on purpose (readers fetch live volumes on demand, persisting every
// tick would swamp the store); the only persisted update is the flip to
// winner-decided; completion is terminal — even a later payload claiming
// winner_decided=false is contradictory and must not be applied.
func DecideBattleTransition(eventType string, existing *models.Battle, incoming *BattlePayload) (Transition, string) {
	switch eventType {
	case "INSERT":
		if existing != nil {
			return TransitionSkipDuplicate, "skipped - already exists"
		}
		return TransitionInsert, "inserted"

	case "UPDATE":
		if existing == nil {
			return TransitionNotFound, "battle not found - deliver INSERT first"
		}
		if existing.WinnerDecided {
			return TransitionSkipFinalized, "already finalized, skipping"
		}
		if incoming.WinnerDecided && incoming.WinnerIsA != nil {
			return TransitionComplete, "completed"
		}
		if incoming.WinnerDecided && incoming.WinnerIsA == nil {
			// winner flag without a winner side is malformed; treat as a live update
			return TransitionDropLiveUpdate, "winner_decided without winner side - dropped"
		}
		return TransitionDropLiveUpdate, "live update dropped"

	default:
		// DELETE and anything else: acknowledge, never retry-loop the source.
		return TransitionIgnore, "event type ignored"
	}
}

// BattleFromPayload builds a fresh row from an INSERT payload. Negative
// balances are clamped and the quick flag is recomputed from the track
// links — the upstream flag is not trusted.
func BattleFromPayload(p *BattlePayload) models.Battle {
	b := models.Battle{
		ID:       uuid.NewString(),
		BattleID: p.BattleID,

		ArtistAName:      p.ArtistAName,
		ArtistAWallet:    p.ArtistAWallet,
		ArtistATwitter:   p.ArtistATwitter,
		ArtistATrackName: p.ArtistATrackName,
		ArtistATrackURL:  p.ArtistATrackURL,
		ArtistAAvatarURL: p.ArtistAAvatarURL,

		ArtistBName:      p.ArtistBName,
		ArtistBWallet:    p.ArtistBWallet,
		ArtistBTwitter:   p.ArtistBTwitter,
		ArtistBTrackName: p.ArtistBTrackName,
		ArtistBTrackURL:  p.ArtistBTrackURL,
		ArtistBAvatarURL: p.ArtistBAvatarURL,

		PoolA:         ClampNonNegative(p.PoolA),
		PoolB:         ClampNonNegative(p.PoolB),
		TotalVolumeA:  ClampNonNegative(p.TotalVolumeA),
		TotalVolumeB:  ClampNonNegative(p.TotalVolumeB),
		TradeCount:    p.TradeCount,
		UniqueTraders: p.UniqueTraders,

		Status:            p.Status,
		WinnerDecided:     p.WinnerDecided,
		WinnerIsA:         p.WinnerIsA,
		IsCommunityBattle: p.IsCommunityBattle,
		IsTestBattle:      p.IsTestBattle,
		DurationSeconds:   p.DurationSeconds,
	}
	if b.Status == "" {
		b.Status = "active"
	}
	b.TradeCount = ClampNonNegativeCount(b.TradeCount)
	b.UniqueTraders = ClampNonNegativeCount(b.UniqueTraders)
	// Test battles are never quick battles (cleanup rule).
	b.IsQuickBattle = IsQuickBattle(&b) && !b.IsTestBattle
	return b
}

// completionUpdates builds the final write applied when a battle completes.
// Numeric fields are clamped the same way inserts clamp them.
func completionUpdates(p *BattlePayload) map[string]interface{} {
	return map[string]interface{}{
		"pool_a":         ClampNonNegative(p.PoolA),
		"pool_b":         ClampNonNegative(p.PoolB),
		"total_volume_a": ClampNonNegative(p.TotalVolumeA),
		"total_volume_b": ClampNonNegative(p.TotalVolumeB),
		"trade_count":    ClampNonNegativeCount(p.TradeCount),
		"unique_traders": ClampNonNegativeCount(p.UniqueTraders),
		"status":         "completed",
		"winner_decided": true,
		"winner_is_a":    p.WinnerIsA,
	}
}

// HandleBattleWebhook processes one change event. Events for unrelated
// tables are acknowledged with 200 so the source never retries them.
func (s *WebhookService) HandleBattleWebhook(c *fiber.Ctx) error {
	var event WebhookEvent
	if err := c.BodyParser(&event); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}

	switch event.Table {
	case battleTable:
		return s.handleBattleEvent(c, &event)
	case tradeTable:
		return s.handleTradeEvent(c, &event)
	default:
		return c.JSON(fiber.Map{"success": true, "action": "ignored", "reason": "table not tracked"})
	}
}

func (s *WebhookService) handleBattleEvent(c *fiber.Ctx, event *WebhookEvent) error {
	var payload BattlePayload
	if len(event.Record) > 0 {
		if err := json.Unmarshal(event.Record, &payload); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid battle record", "details": err.Error()})
		}
	}
	if payload.BattleID == "" && event.Type != "DELETE" {
		return c.Status(400).JSON(fiber.Map{"error": "battle_id is required"})
	}

	var existing *models.Battle
	var stored models.Battle
	err := s.DB.Where("battle_id = ?", payload.BattleID).First(&stored).Error
	switch {
	case err == nil:
		existing = &stored
	case errors.Is(err, gorm.ErrRecordNotFound):
		// unseen
	default:
		log.Printf("ERROR loading battle %s: %v", payload.BattleID, err)
		return c.Status(500).JSON(fiber.Map{"error": "DB error", "battle_id": payload.BattleID})
	}

	transition, reason := DecideBattleTransition(strings.ToUpper(event.Type), existing, &payload)

	switch transition {
	case TransitionInsert:
		battle := BattleFromPayload(&payload)
		if err := s.DB.Create(&battle).Error; err != nil {
			log.Printf("❌ [WEBHOOK] Insert failed for battle %s: %v", payload.BattleID, err)
			return c.Status(500).JSON(fiber.Map{"error": "insert failed", "battle_id": payload.BattleID})
		}
		log.Printf("✅ [WEBHOOK] Battle %s inserted (%s vs %s)", battle.BattleID, battle.ArtistAName, battle.ArtistBName)
		return c.JSON(fiber.Map{"success": true, "action": "inserted", "battle_id": battle.BattleID})

	case TransitionComplete:
		// Single atomic write; the winner_decided=false guard makes replays
		// and delivery races harmless.
		result := s.DB.Model(&models.Battle{}).
			Where("battle_id = ? AND winner_decided = ?", payload.BattleID, false).
			Updates(completionUpdates(&payload))
		if result.Error != nil {
			log.Printf("❌ [WEBHOOK] Completion write failed for battle %s: %v", payload.BattleID, result.Error)
			return c.Status(500).JSON(fiber.Map{"error": "completion write failed", "battle_id": payload.BattleID})
		}
		if result.RowsAffected == 0 {
			// lost the race to another delivery — the battle is already final
			return c.JSON(fiber.Map{"success": true, "action": "skipped", "reason": "already finalized, skipping", "battle_id": payload.BattleID})
		}
		log.Printf("🏁 [WEBHOOK] Battle %s completed, winner_is_a=%v", payload.BattleID, payload.WinnerIsA)

		if err := s.Leaderboards.RefreshLeaderboards(); err != nil {
			// completion is persisted; a failed refresh self-heals on the next cycle
			log.Printf("⚠️  [WEBHOOK] Leaderboard refresh after completion failed: %v", err)
		}
		return c.JSON(fiber.Map{"success": true, "action": "completed", "battle_id": payload.BattleID})

	case TransitionNotFound:
		log.Printf("⚠️  [WEBHOOK] UPDATE for unseen battle %s — telling source to retry", payload.BattleID)
		return c.Status(404).JSON(fiber.Map{"error": reason, "battle_id": payload.BattleID})

	default:
		// duplicates, live updates, finalized battles, unknown types
		log.Printf("➡️  [WEBHOOK] Battle %s: %s", payload.BattleID, reason)
		return c.JSON(fiber.Map{"success": true, "action": "skipped", "reason": reason, "battle_id": payload.BattleID})
	}
}

// tradePayload is a battle_trades row as delivered by the webhook.
type tradePayload struct {
	TradeID        string  `json:"trade_id"`
	BattleID       string  `json:"battle_id"`
	TraderWallet   string  `json:"trader_wallet"`
	SideA          bool    `json:"side_a"`
	AmountInvested float64 `json:"amount_invested"`
	AmountPayout   float64 `json:"amount_payout"`
	IsWin          *bool   `json:"is_win"`
}

func (s *WebhookService) handleTradeEvent(c *fiber.Ctx, event *WebhookEvent) error {
	eventType := strings.ToUpper(event.Type)
	if eventType != "INSERT" && eventType != "UPDATE" {
		return c.JSON(fiber.Map{"success": true, "action": "ignored", "reason": "event type ignored"})
	}

	var payload tradePayload
	if err := json.Unmarshal(event.Record, &payload); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid trade record", "details": err.Error()})
	}
	if payload.TradeID == "" || payload.TraderWallet == "" {
		return c.Status(400).JSON(fiber.Map{"error": "trade_id and trader_wallet are required"})
	}

	trade := models.Trade{
		ID:             uuid.NewString(),
		TradeID:        payload.TradeID,
		BattleID:       payload.BattleID,
		TraderWallet:   strings.ToLower(strings.TrimSpace(payload.TraderWallet)),
		SideA:          payload.SideA,
		AmountInvested: ClampNonNegative(payload.AmountInvested),
		AmountPayout:   ClampNonNegative(payload.AmountPayout),
		IsWin:          payload.IsWin,
	}

	// Insert-once by trade_id; settlement UPDATEs refresh payout/outcome.
	if err := s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "trade_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"amount_payout", "is_win", "updated_at",
		}),
	}).Create(&trade).Error; err != nil {
		log.Printf("❌ [WEBHOOK] Trade upsert failed for %s: %v", payload.TradeID, err)
		return c.Status(500).JSON(fiber.Map{"error": "trade upsert failed", "trade_id": payload.TradeID})
	}

	return c.JSON(fiber.Map{"success": true, "action": "upserted", "trade_id": payload.TradeID})
}
