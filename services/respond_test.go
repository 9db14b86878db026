package services

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSort(t *testing.T) {
	allowed := map[string]bool{"total_volume": true, "win_rate": true}

	// absent param falls back to the default column
	column, ok := resolveSort("", "total_volume", allowed)
	assert.True(t, ok)
	assert.Equal(t, "total_volume", column)

	column, ok = resolveSort("win_rate", "total_volume", allowed)
	assert.True(t, ok)
	assert.Equal(t, "win_rate", column)

	// anything off the allow-list is rejected, never passed through
	for _, requested := range []string{"wallet; DROP TABLE battles", "created_at", "WIN_RATE"} {
		column, ok = resolveSort(requested, "total_volume", allowed)
		assert.False(t, ok, "sortBy %q must be rejected", requested)
		assert.Empty(t, column)
	}
}

func TestParsePagination(t *testing.T) {
	app := fiber.New()
	app.Get("/x", func(c *fiber.Ctx) error {
		limit, offset := parsePagination(c, 20, 100)
		return c.JSON(fiber.Map{"limit": limit, "offset": offset})
	})

	cases := []struct {
		query  string
		limit  int
		offset int
	}{
		{"", 20, 0},                          // defaults
		{"?limit=50&offset=10", 50, 10},      // in range
		{"?limit=500", 100, 0},               // capped at max
		{"?limit=-5&offset=-3", 20, 0},       // negatives ignored
		{"?limit=abc&offset=xyz", 20, 0},     // garbage ignored
	}

	for _, tc := range cases {
		resp, err := app.Test(httptest.NewRequest("GET", "/x"+tc.query, nil))
		require.NoError(t, err)

		var body struct {
			Limit  int `json:"limit"`
			Offset int `json:"offset"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, tc.limit, body.Limit, "query %q", tc.query)
		assert.Equal(t, tc.offset, body.Offset, "query %q", tc.query)
	}
}

func TestUnlistedSortByRejectedWith400(t *testing.T) {
	app := fiber.New()
	// sort resolution runs before any storage access, so a bare service
	// is enough to exercise the rejection path
	app.Get("/leaderboard/artists", (&LeaderboardService{}).GetArtistLeaderboard)
	app.Get("/battles", (&BattleService{}).GetAllBattles)

	for _, target := range []string{
		"/leaderboard/artists?sortBy=wallet%3B%20DROP%20TABLE",
		"/leaderboard/artists?sortBy=updated_at",
		"/battles?sortBy=status",
	} {
		resp, err := app.Test(httptest.NewRequest("GET", target, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "target %s", target)
	}
}
