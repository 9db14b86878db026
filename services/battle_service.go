// services/battle_service.go
package services

import (
	"errors"
	"log"
	"path/filepath"
	"strings"

	"github.com/CandyToyBox/analytics-wave-warz-sub001/models"
	"github.com/CandyToyBox/analytics-wave-warz-sub001/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BattleService struct {
	DB     *gorm.DB
	Prices *PriceService
}

func NewBattleService(db *gorm.DB, prices *PriceService) *BattleService {
	return &BattleService{DB: db, Prices: prices}
}

var battleSortColumns = map[string]bool{
	"created_at":     true,
	"pool_a":         true,
	"pool_b":         true,
	"total_volume_a": true,
	"total_volume_b": true,
	"trade_count":    true,
	"unique_traders": true,
}

// GetAllBattles lists battles with the USD/stream enrichment applied.
// One price fetch serves the whole page.
func (s *BattleService) GetAllBattles(c *fiber.Ctx) error {
	limit, offset := parsePagination(c, 20, 100)
	column, ok := resolveSort(c.Query("sortBy"), "created_at", battleSortColumns)
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "unsupported sortBy value"})
	}

	query := s.DB.Model(&models.Battle{})

	// Test battles are hidden unless explicitly requested.
	if c.Query("include_test") != "true" {
		query = query.Where("is_test_battle = ?", false)
	}

	switch strings.ToLower(c.Query("status")) {
	case "":
		// no filter
	case "active":
		query = query.Where("winner_decided = ?", false)
	case "completed", "ended":
		query = query.Where("winner_decided = ?", true)
	default:
		return c.Status(400).JSON(fiber.Map{"error": "status must be active or completed"})
	}

	switch strings.ToLower(c.Query("category")) {
	case "":
		// no filter
	case CategoryQuick:
		query = query.Where("is_quick_battle = ?", true)
	case CategoryCommunity:
		query = query.Where("is_community_battle = ? AND is_quick_battle = ?", true, false)
	case CategoryMain:
		query = query.Where("is_quick_battle = ? AND is_community_battle = ?", false, false)
	default:
		return c.Status(400).JSON(fiber.Map{"error": "category must be quick, main or community"})
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Printf("ERROR counting battles: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch battles"})
	}

	var battles []models.Battle
	if err := query.Order(column + " DESC, battle_id ASC").
		Limit(limit).Offset(offset).Find(&battles).Error; err != nil {
		log.Printf("ERROR fetching battles: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch battles"})
	}

	price := s.Prices.GetCurrentPrice()
	enriched := make([]EnrichedBattle, len(battles))
	for i, b := range battles {
		enriched[i] = EnrichBattle(b, price)
	}

	return respondList(c, enriched, listMeta{Limit: limit, Offset: offset, Total: total})
}

// GetBattleByID returns one battle, enriched.
func (s *BattleService) GetBattleByID(c *fiber.Ctx) error {
	battleID := c.Params("battle_id")
	if battleID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "battle_id required in URL"})
	}

	var battle models.Battle
	if err := s.DB.Where("battle_id = ?", battleID).First(&battle).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "battle not found", "battle_id": battleID})
		}
		log.Printf("ERROR fetching battle %s: %v", battleID, err)
		return c.Status(500).JSON(fiber.Map{"error": "DB error", "battle_id": battleID})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    EnrichBattle(battle, s.Prices.GetCurrentPrice()),
	})
}

// GetStatsSummary returns platform-wide totals in a single aggregate query.
func (s *BattleService) GetStatsSummary(c *fiber.Ctx) error {
	type summaryRow struct {
		TotalBattles   int64   `json:"total_battles"`
		DecidedBattles int64   `json:"decided_battles"`
		QuickBattles   int64   `json:"quick_battles"`
		TotalPool      float64 `json:"total_pool"`
		TotalVolume    float64 `json:"total_volume"`
		TotalTrades    int64   `json:"total_trades"`
	}
	var row summaryRow

	query := `
        SELECT
            COUNT(*) AS total_battles,
            COUNT(*) FILTER (WHERE winner_decided) AS decided_battles,
            COUNT(*) FILTER (WHERE is_quick_battle) AS quick_battles,
            COALESCE(SUM(GREATEST(pool_a, 0) + GREATEST(pool_b, 0)), 0) AS total_pool,
            COALESCE(SUM(GREATEST(total_volume_a, 0) + GREATEST(total_volume_b, 0)), 0) AS total_volume,
            COALESCE(SUM(trade_count), 0) AS total_trades
        FROM battles
        WHERE is_test_battle = false
    `
	if err := s.DB.Raw(query).Scan(&row).Error; err != nil {
		log.Printf("ERROR fetching stats summary: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch summary"})
	}

	price := s.Prices.GetCurrentPrice()
	totalTvlUsd := row.TotalPool * price

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_battles":     row.TotalBattles,
			"decided_battles":   row.DecidedBattles,
			"quick_battles":     row.QuickBattles,
			"total_pool":        row.TotalPool,
			"total_volume":      row.TotalVolume,
			"total_trades":      row.TotalTrades,
			"total_tvl_usd":     totalTvlUsd,
			"stream_equivalent": StreamEquivalent(totalTvlUsd),
			"sol_price_usd":     price,
		},
	})
}

// UploadArtistAvatar stores an avatar image in R2 and, when battle_id and
// side are supplied, attaches the CDN URL to that battle's artist column.
func (s *BattleService) UploadArtistAvatar(c *fiber.Ctx) error {
	avatar, err := c.FormFile("avatar")
	if err != nil || avatar.Size == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "avatar file is required"})
	}

	ext := filepath.Ext(avatar.Filename)
	if ext == "" {
		ext = ".jpg"
	}
	key := "artists/avatars/" + uuid.NewString() + ext

	avatarURL, err := utils.UploadFileToR2(avatar, key)
	if err != nil {
		log.Printf("❌ Failed to upload avatar to R2: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to upload avatar"})
	}

	battleID := c.FormValue("battle_id")
	side := strings.ToLower(c.FormValue("side"))
	if battleID != "" {
		column := ""
		switch side {
		case "a":
			column = "artist_a_avatar_url"
		case "b":
			column = "artist_b_avatar_url"
		default:
			return c.Status(400).JSON(fiber.Map{"error": "side must be \"a\" or \"b\" when battle_id is set"})
		}

		result := s.DB.Model(&models.Battle{}).
			Where("battle_id = ?", battleID).
			Update(column, avatarURL)
		if result.Error != nil {
			log.Printf("ERROR attaching avatar to battle %s: %v", battleID, result.Error)
			return c.Status(500).JSON(fiber.Map{"error": "failed to attach avatar", "battle_id": battleID})
		}
		if result.RowsAffected == 0 {
			return c.Status(404).JSON(fiber.Map{"error": "battle not found", "battle_id": battleID})
		}
	}

	return c.JSON(fiber.Map{"success": true, "avatar_url": avatarURL})
}
