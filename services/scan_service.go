// services/scan_service.go
package services

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/CandyToyBox/analytics-wave-warz-sub001/models"
	"github.com/CandyToyBox/analytics-wave-warz-sub001/workers"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	defaultScanLimit = 10
	maxScanLimit     = 50

	// scanStaleAfter: battles scanned more recently are skipped unless the
	// operator forces a refresh.
	scanStaleAfter = 10 * time.Minute

	// scanDelay paces requests to the external indexer (~1 req/s limit).
	scanDelay = 1 * time.Second
)

// VolumeFetcher is what the scan needs from the indexer client.
type VolumeFetcher interface {
	FetchBattleVolumes(ctx context.Context, battleID string) (workers.BattleVolumes, error)
}

// VolumeStore is what the scan needs from persistence.
type VolumeStore interface {
	UpdateVolumes(battleID string, v workers.BattleVolumes, scannedAt time.Time) error
}

type ScanService struct {
	DB      *gorm.DB
	Volumes VolumeFetcher
	Store   VolumeStore
	Sleep   func(time.Duration) // overridable in tests
	Now     func() time.Time
}

func NewScanService(db *gorm.DB, volumes VolumeFetcher) *ScanService {
	return &ScanService{
		DB:      db,
		Volumes: volumes,
		Store:   &gormVolumeStore{DB: db},
		Sleep:   time.Sleep,
		Now:     time.Now,
	}
}

type gormVolumeStore struct {
	DB *gorm.DB
}

func (s *gormVolumeStore) UpdateVolumes(battleID string, v workers.BattleVolumes, scannedAt time.Time) error {
	return s.DB.Model(&models.Battle{}).
		Where("battle_id = ?", battleID).
		Updates(map[string]interface{}{
			"total_volume_a":  ClampNonNegative(v.TotalVolumeA),
			"total_volume_b":  ClampNonNegative(v.TotalVolumeB),
			"trade_count":     ClampNonNegativeCount(v.TradeCount),
			"unique_traders":  ClampNonNegativeCount(v.UniqueTraders),
			"last_scanned_at": scannedAt,
		}).Error
}

// sanitizeVolumes clamps an indexer snapshot before it touches the store.
func sanitizeVolumes(v workers.BattleVolumes) workers.BattleVolumes {
	return workers.BattleVolumes{
		TotalVolumeA:  ClampNonNegative(v.TotalVolumeA),
		TotalVolumeB:  ClampNonNegative(v.TotalVolumeB),
		TradeCount:    ClampNonNegativeCount(v.TradeCount),
		UniqueTraders: ClampNonNegativeCount(v.UniqueTraders),
	}
}

// ScanItemResult reports the outcome for one battle in a scan batch.
type ScanItemResult struct {
	BattleID string `json:"battle_id"`
	Status   string `json:"status"` // success | error | skipped
	Error    string `json:"error,omitempty"`

	TotalVolumeA float64 `json:"total_volume_a,omitempty"`
	TotalVolumeB float64 `json:"total_volume_b,omitempty"`
}

// ScanSummary is the structured partial-success report of one scan run.
type ScanSummary struct {
	Scanned int              `json:"scanned"`
	Success int              `json:"success"`
	Errors  int              `json:"errors"`
	Skipped int              `json:"skipped"`
	Results []ScanItemResult `json:"results"`
}

// runScan processes candidates strictly one at a time with a fixed delay
// between indexer calls. An individual failure is recorded and the loop
// moves on — a batch never aborts mid-way.
func (s *ScanService) runScan(ctx context.Context, candidates []models.Battle, forceRefresh bool) ScanSummary {
	summary := ScanSummary{Results: make([]ScanItemResult, 0, len(candidates))}
	fetched := 0

	for i := range candidates {
		b := &candidates[i]
		summary.Scanned++

		if !forceRefresh && b.LastScannedAt != nil && s.Now().Sub(*b.LastScannedAt) < scanStaleAfter {
			summary.Skipped++
			summary.Results = append(summary.Results, ScanItemResult{
				BattleID: b.BattleID,
				Status:   "skipped",
			})
			continue
		}

		if fetched > 0 {
			s.Sleep(scanDelay)
		}
		fetched++

		volumes, err := s.Volumes.FetchBattleVolumes(ctx, b.BattleID)
		if err != nil {
			log.Printf("❌ [SCAN] Battle %s: indexer fetch failed: %v", b.BattleID, err)
			summary.Errors++
			summary.Results = append(summary.Results, ScanItemResult{
				BattleID: b.BattleID,
				Status:   "error",
				Error:    err.Error(),
			})
			continue
		}
		volumes = sanitizeVolumes(volumes)

		if err := s.Store.UpdateVolumes(b.BattleID, volumes, s.Now()); err != nil {
			log.Printf("❌ [SCAN] Battle %s: volume write failed: %v", b.BattleID, err)
			summary.Errors++
			summary.Results = append(summary.Results, ScanItemResult{
				BattleID: b.BattleID,
				Status:   "error",
				Error:    err.Error(),
			})
			continue
		}

		summary.Success++
		summary.Results = append(summary.Results, ScanItemResult{
			BattleID:     b.BattleID,
			Status:       "success",
			TotalVolumeA: volumes.TotalVolumeA,
			TotalVolumeB: volumes.TotalVolumeB,
		})
	}

	return summary
}

// ScanBattles is the admin endpoint refreshing on-chain volume totals for
// active battles. Auth is handled by the admin middleware.
func (s *ScanService) ScanBattles(c *fiber.Ctx) error {
	limit := defaultScanLimit
	if lStr := c.Query("limit"); lStr != "" {
		n, err := strconv.Atoi(lStr)
		if err != nil || n <= 0 {
			return c.Status(400).JSON(fiber.Map{"error": "limit must be a positive integer"})
		}
		limit = n
	}
	if limit > maxScanLimit {
		limit = maxScanLimit
	}

	forceRefresh := c.Query("force_refresh") == "true"
	onlyQuick := c.Query("only_quick_battles") == "true"

	query := s.DB.Where("winner_decided = ? AND is_test_battle = ?", false, false)
	if onlyQuick {
		query = query.Where("is_quick_battle = ?", true)
	}

	var candidates []models.Battle
	if err := query.Order("last_scanned_at ASC NULLS FIRST").
		Limit(limit).Find(&candidates).Error; err != nil {
		log.Printf("ERROR selecting scan candidates: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to select battles to scan"})
	}

	summary := s.runScan(c.Context(), candidates, forceRefresh)
	log.Printf("🔎 [SCAN] Done: scanned=%d success=%d errors=%d skipped=%d",
		summary.Scanned, summary.Success, summary.Errors, summary.Skipped)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    summary,
	})
}
