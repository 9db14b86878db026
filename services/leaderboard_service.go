// services/leaderboard_service.go
package services

import (
	"log"
	"sort"
	"strings"

	"github.com/CandyToyBox/analytics-wave-warz-sub001/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LeaderboardService struct {
	DB     *gorm.DB
	Prices *PriceService
}

func NewLeaderboardService(db *gorm.DB, prices *PriceService) *LeaderboardService {
	return &LeaderboardService{DB: db, Prices: prices}
}

// --- Pure aggregation ---

// AggregateArtists folds both sides of every decided, non-test battle into
// per-wallet totals. Identity fields (name/twitter/avatar) are first-seen;
// later battles only accumulate the numeric columns. Derived fields are
// recomputed after the fold — never trusted from storage.
func AggregateArtists(battles []models.Battle, priceUsdPerSol float64) []models.ArtistLeaderboardEntry {
	byWallet := make(map[string]*models.ArtistLeaderboardEntry)
	var order []string

	accumulate := func(wallet, name, twitter, avatar string, pool float64, won bool) {
		wallet = strings.ToLower(strings.TrimSpace(wallet))
		if wallet == "" {
			return
		}
		entry, seen := byWallet[wallet]
		if !seen {
			entry = &models.ArtistLeaderboardEntry{
				Wallet:    wallet,
				Name:      name,
				Twitter:   twitter,
				AvatarURL: avatar,
			}
			byWallet[wallet] = entry
			order = append(order, wallet)
		}
		entry.BattlesParticipated++
		entry.TotalVolume += pool
		if won {
			entry.Wins++
		} else {
			entry.Losses++
		}
	}

	for i := range battles {
		b := &battles[i]
		// The board only reflects decided, non-test battles.
		if !b.WinnerDecided || b.WinnerIsA == nil || b.IsTestBattle {
			continue
		}
		poolA := ClampNonNegative(b.PoolA)
		poolB := ClampNonNegative(b.PoolB)
		winnerIsA := *b.WinnerIsA

		accumulate(b.ArtistAWallet, b.ArtistAName, b.ArtistATwitter, b.ArtistAAvatarURL, poolA, winnerIsA)
		accumulate(b.ArtistBWallet, b.ArtistBName, b.ArtistBTwitter, b.ArtistBAvatarURL, poolB, !winnerIsA)

		// Winner takes the opposing pool as earnings.
		if winnerIsA {
			if e := byWallet[strings.ToLower(strings.TrimSpace(b.ArtistAWallet))]; e != nil {
				e.TotalEarnings += poolB
			}
		} else {
			if e := byWallet[strings.ToLower(strings.TrimSpace(b.ArtistBWallet))]; e != nil {
				e.TotalEarnings += poolA
			}
		}
	}

	entries := make([]models.ArtistLeaderboardEntry, 0, len(order))
	for _, wallet := range order {
		e := byWallet[wallet]
		if e.BattlesParticipated > 0 {
			e.WinRate = float64(e.Wins) / float64(e.BattlesParticipated) * 100
			e.AvgVolumePerBattle = e.TotalVolume / float64(e.BattlesParticipated)
		}
		e.TotalVolumeUsd = e.TotalVolume * priceUsdPerSol
		e.TotalEarningsUsd = e.TotalEarnings * priceUsdPerSol
		e.StreamEquivalent = StreamEquivalent(e.TotalVolumeUsd)
		entries = append(entries, *e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TotalVolume != entries[j].TotalVolume {
			return entries[i].TotalVolume > entries[j].TotalVolume
		}
		return entries[i].Wallet < entries[j].Wallet // stable tiebreak
	})
	return entries
}

// AggregateQuickBattles is the quick-battle view of the artist board, keyed
// by track slug so the same track accumulates across battles.
func AggregateQuickBattles(battles []models.Battle, priceUsdPerSol float64) []models.QuickBattleLeaderboardEntry {
	byKey := make(map[string]*models.QuickBattleLeaderboardEntry)
	var order []string

	accumulate := func(trackName, trackURL, artistName, wallet string, pool float64, won bool) {
		key := TrackKey(trackName, wallet)
		if key == "" {
			return
		}
		entry, seen := byKey[key]
		if !seen {
			entry = &models.QuickBattleLeaderboardEntry{
				TrackKey:   key,
				TrackName:  trackName,
				TrackURL:   trackURL,
				ArtistName: artistName,
				Wallet:     strings.ToLower(strings.TrimSpace(wallet)),
			}
			byKey[key] = entry
			order = append(order, key)
		}
		entry.BattlesParticipated++
		entry.TotalVolume += pool
		if won {
			entry.Wins++
		} else {
			entry.Losses++
		}
	}

	for i := range battles {
		b := &battles[i]
		if !b.WinnerDecided || b.WinnerIsA == nil || b.IsTestBattle || !IsQuickBattle(b) {
			continue
		}
		winnerIsA := *b.WinnerIsA
		accumulate(b.ArtistATrackName, b.ArtistATrackURL, b.ArtistAName, b.ArtistAWallet, ClampNonNegative(b.PoolA), winnerIsA)
		accumulate(b.ArtistBTrackName, b.ArtistBTrackURL, b.ArtistBName, b.ArtistBWallet, ClampNonNegative(b.PoolB), !winnerIsA)
	}

	entries := make([]models.QuickBattleLeaderboardEntry, 0, len(order))
	for _, key := range order {
		e := byKey[key]
		if e.BattlesParticipated > 0 {
			e.WinRate = float64(e.Wins) / float64(e.BattlesParticipated) * 100
			e.AvgVolumePerBattle = e.TotalVolume / float64(e.BattlesParticipated)
		}
		e.TotalVolumeUsd = e.TotalVolume * priceUsdPerSol
		entries = append(entries, *e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TotalVolume != entries[j].TotalVolume {
			return entries[i].TotalVolume > entries[j].TotalVolume
		}
		return entries[i].TrackKey < entries[j].TrackKey
	})
	return entries
}

// AggregateTraders folds trades into per-wallet P&L totals. Invested/payout
// accumulate for every trade; wins/losses only count settled trades
// (IsWin non-nil). ROI and win rate are derived after the fold.
func AggregateTraders(trades []models.Trade) []models.TraderLeaderboardEntry {
	byWallet := make(map[string]*models.TraderLeaderboardEntry)
	var order []string
	battlesPerWallet := make(map[string]map[string]bool)

	for i := range trades {
		t := &trades[i]
		wallet := strings.ToLower(strings.TrimSpace(t.TraderWallet))
		if wallet == "" {
			continue
		}
		entry, seen := byWallet[wallet]
		if !seen {
			entry = &models.TraderLeaderboardEntry{Wallet: wallet}
			byWallet[wallet] = entry
			order = append(order, wallet)
			battlesPerWallet[wallet] = make(map[string]bool)
		}
		entry.TotalInvested += ClampNonNegative(t.AmountInvested)
		entry.TotalPayout += ClampNonNegative(t.AmountPayout)
		battlesPerWallet[wallet][t.BattleID] = true
		if t.IsWin != nil {
			if *t.IsWin {
				entry.Wins++
			} else {
				entry.Losses++
			}
		}
	}

	entries := make([]models.TraderLeaderboardEntry, 0, len(order))
	for _, wallet := range order {
		e := byWallet[wallet]
		e.BattlesParticipated = int64(len(battlesPerWallet[wallet]))
		e.NetPnl = e.TotalPayout - e.TotalInvested
		if e.TotalInvested > 0 {
			e.ROI = e.NetPnl / e.TotalInvested
		}
		if decided := e.Wins + e.Losses; decided > 0 {
			e.WinRate = float64(e.Wins) / float64(decided) * 100
		}
		entries = append(entries, *e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].NetPnl != entries[j].NetPnl {
			return entries[i].NetPnl > entries[j].NetPnl
		}
		return entries[i].Wallet < entries[j].Wallet
	})
	return entries
}

// --- Persistence ---

// RefreshLeaderboards recomputes all three boards from the battles/trades
// tables and bulk-upserts them. One price fetch covers the whole refresh.
func (s *LeaderboardService) RefreshLeaderboards() error {
	var battles []models.Battle
	if err := s.DB.Where("winner_decided = ? AND is_test_battle = ?", true, false).
		Find(&battles).Error; err != nil {
		return err
	}

	var trades []models.Trade
	if err := s.DB.Find(&trades).Error; err != nil {
		return err
	}

	price := s.Prices.GetCurrentPrice()

	artists := AggregateArtists(battles, price)
	for i := range artists {
		artists[i].ID = uuid.NewString()
	}
	quick := AggregateQuickBattles(battles, price)
	for i := range quick {
		quick[i].ID = uuid.NewString()
	}
	traders := AggregateTraders(trades)
	for i := range traders {
		traders[i].ID = uuid.NewString()
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		if len(artists) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "wallet"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"battles_participated", "wins", "losses", "win_rate",
					"total_volume", "total_volume_usd", "total_earnings",
					"total_earnings_usd", "stream_equivalent",
					"avg_volume_per_battle", "updated_at",
				}),
			}).Create(&artists).Error; err != nil {
				return err
			}
		}
		if len(quick) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "track_key"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"battles_participated", "wins", "losses", "win_rate",
					"total_volume", "total_volume_usd",
					"avg_volume_per_battle", "updated_at",
				}),
			}).Create(&quick).Error; err != nil {
				return err
			}
		}
		if len(traders) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "wallet"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"total_invested", "total_payout", "net_pnl", "roi",
					"battles_participated", "wins", "losses", "win_rate",
					"updated_at",
				}),
			}).Create(&traders).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// --- Handlers ---

var artistSortColumns = map[string]bool{
	"total_volume":         true,
	"total_earnings":       true,
	"win_rate":             true,
	"wins":                 true,
	"battles_participated": true,
}

func (s *LeaderboardService) GetArtistLeaderboard(c *fiber.Ctx) error {
	limit, offset := parsePagination(c, 20, 100)
	column, ok := resolveSort(c.Query("sortBy"), "total_volume", artistSortColumns)
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "unsupported sortBy value"})
	}

	var total int64
	if err := s.DB.Model(&models.ArtistLeaderboardEntry{}).Count(&total).Error; err != nil {
		log.Printf("ERROR counting artist leaderboard: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch leaderboard"})
	}

	var entries []models.ArtistLeaderboardEntry
	if err := s.DB.Order(column + " DESC, wallet ASC").
		Limit(limit).Offset(offset).Find(&entries).Error; err != nil {
		log.Printf("ERROR fetching artist leaderboard: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch leaderboard"})
	}

	return respondList(c, entries, listMeta{Limit: limit, Offset: offset, Total: total})
}

var quickSortColumns = map[string]bool{
	"total_volume": true,
	"win_rate":     true,
	"wins":         true,
}

func (s *LeaderboardService) GetQuickBattleLeaderboard(c *fiber.Ctx) error {
	limit, offset := parsePagination(c, 20, 100)
	column, ok := resolveSort(c.Query("sortBy"), "total_volume", quickSortColumns)
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "unsupported sortBy value"})
	}

	var total int64
	if err := s.DB.Model(&models.QuickBattleLeaderboardEntry{}).Count(&total).Error; err != nil {
		log.Printf("ERROR counting quick leaderboard: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch leaderboard"})
	}

	var entries []models.QuickBattleLeaderboardEntry
	if err := s.DB.Order(column + " DESC, track_key ASC").
		Limit(limit).Offset(offset).Find(&entries).Error; err != nil {
		log.Printf("ERROR fetching quick leaderboard: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch leaderboard"})
	}

	return respondList(c, entries, listMeta{Limit: limit, Offset: offset, Total: total})
}

var traderSortColumns = map[string]bool{
	"net_pnl":        true,
	"roi":            true,
	"total_invested": true,
	"wins":           true,
}

func (s *LeaderboardService) GetTraderLeaderboard(c *fiber.Ctx) error {
	limit, offset := parsePagination(c, 20, 100)
	column, ok := resolveSort(c.Query("sortBy"), "net_pnl", traderSortColumns)
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "unsupported sortBy value"})
	}

	var total int64
	if err := s.DB.Model(&models.TraderLeaderboardEntry{}).Count(&total).Error; err != nil {
		log.Printf("ERROR counting trader leaderboard: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch leaderboard"})
	}

	var entries []models.TraderLeaderboardEntry
	if err := s.DB.Order(column + " DESC, wallet ASC").
		Limit(limit).Offset(offset).Find(&entries).Error; err != nil {
		log.Printf("ERROR fetching trader leaderboard: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch leaderboard"})
	}

	return respondList(c, entries, listMeta{Limit: limit, Offset: offset, Total: total})
}

// RefreshLeaderboardsEndpoint lets an operator force a rebuild (admin only).
func (s *LeaderboardService) RefreshLeaderboardsEndpoint(c *fiber.Ctx) error {
	if err := s.RefreshLeaderboards(); err != nil {
		log.Printf("ERROR refreshing leaderboards: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "leaderboard refresh failed"})
	}
	return c.JSON(fiber.Map{"success": true, "message": "leaderboards refreshed"})
}
