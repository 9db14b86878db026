// handlers/admin.go
package handlers

import (
	"github.com/CandyToyBox/analytics-wave-warz-sub001/middleware"
	"github.com/CandyToyBox/analytics-wave-warz-sub001/services"
	"github.com/gofiber/fiber/v2"
)

func SetupAdminRoutes(app *fiber.App, scanService *services.ScanService, battleService *services.BattleService, leaderboardService *services.LeaderboardService) {
	// 🔒 All admin routes sit behind the bearer token
	admin := app.Group("/s/admin", middleware.AdminAuthMiddleware())

	admin.Post("/battles/scan", scanService.ScanBattles)
	admin.Post("/leaderboards/refresh", leaderboardService.RefreshLeaderboardsEndpoint)
	admin.Post("/artists/avatar", battleService.UploadArtistAvatar)
}
