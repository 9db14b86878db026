// services/frame_service.go
package services

import (
	"errors"
	"fmt"
	"html"
	"log"
	"os"

	"github.com/CandyToyBox/analytics-wave-warz-sub001/models"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// FrameService renders the Farcaster frame HTML for a battle. Purely
// presentational — the social client reads the meta tags, nothing else.
type FrameService struct {
	DB     *gorm.DB
	Prices *PriceService

	ImageBaseURL string
	titleCaser   cases.Caser
}

func NewFrameService(db *gorm.DB, prices *PriceService) *FrameService {
	imageBase := os.Getenv("FRAME_IMAGE_BASE_URL")
	if imageBase == "" {
		imageBase = "https://statz.wavewarz.com/og"
	}
	return &FrameService{
		DB:           db,
		Prices:       prices,
		ImageBaseURL: imageBase,
		titleCaser:   cases.Title(language.English),
	}
}

// GetBattleFrame serves the frame document. Farcaster clients POST button
// interactions back to the same URL, so GET and POST render identically.
func (s *FrameService) GetBattleFrame(c *fiber.Ctx) error {
	battleID := c.Params("battle_id")
	if battleID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "battle_id required in URL"})
	}

	var battle models.Battle
	if err := s.DB.Where("battle_id = ?", battleID).First(&battle).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "battle not found", "battle_id": battleID})
		}
		log.Printf("ERROR fetching battle %s for frame: %v", battleID, err)
		return c.Status(500).JSON(fiber.Map{"error": "DB error", "battle_id": battleID})
	}

	enriched := EnrichBattle(battle, s.Prices.GetCurrentPrice())

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.SendString(s.renderBattleFrame(enriched))
}

func (s *FrameService) renderBattleFrame(b EnrichedBattle) string {
	nameA := s.titleCaser.String(b.ArtistAName)
	nameB := s.titleCaser.String(b.ArtistBName)
	title := fmt.Sprintf("%s vs %s", nameA, nameB)

	var stateLine string
	if b.WinnerDecided {
		stateLine = fmt.Sprintf("Winner: %s 🏆 | TVL $%.2f", s.titleCaser.String(b.Winner), b.TotalTvlUsd)
	} else {
		stateLine = fmt.Sprintf("LIVE | %s $%.2f — $%.2f %s | %d streams",
			nameA, b.PoolAUsd, b.PoolBUsd, nameB, b.TotalStreams)
	}

	imageURL := fmt.Sprintf("%s/battles/%s.png", s.ImageBaseURL, b.BattleID)

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8" />
    <title>%s</title>
    <meta property="og:title" content="%s" />
    <meta property="og:description" content="%s" />
    <meta property="og:image" content="%s" />
    <meta name="fc:frame" content="vNext" />
    <meta name="fc:frame:image" content="%s" />
    <meta name="fc:frame:image:aspect_ratio" content="1.91:1" />
    <meta name="fc:frame:button:1" content="View Battle" />
    <meta name="fc:frame:button:1:action" content="link" />
    <meta name="fc:frame:button:1:target" content="https://wavewarz.com/battles/%s" />
</head>
<body>
    <h1>%s</h1>
    <p>%s</p>
</body>
</html>`,
		html.EscapeString(title),
		html.EscapeString(title),
		html.EscapeString(stateLine),
		html.EscapeString(imageURL),
		html.EscapeString(imageURL),
		html.EscapeString(b.BattleID),
		html.EscapeString(title),
		html.EscapeString(stateLine),
	)
}
