package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/CandyToyBox/analytics-wave-warz-sub001/handlers"
	"github.com/CandyToyBox/analytics-wave-warz-sub001/models"
	"github.com/CandyToyBox/analytics-wave-warz-sub001/services"
	"github.com/CandyToyBox/analytics-wave-warz-sub001/utils"
	"github.com/CandyToyBox/analytics-wave-warz-sub001/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB — avatar uploads are the largest bodies
	})

	// CORS for the dashboard frontend(s)
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Webhook-Secret",
		ExposeHeaders:    "Content-Length, Content-Type",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Battle{},
		&models.Trade{},
		&models.ArtistLeaderboardEntry{},
		&models.QuickBattleLeaderboardEntry{},
		&models.TraderLeaderboardEntry{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	priceService := services.NewPriceService()
	battleService := services.NewBattleService(db, priceService)
	leaderboardService := services.NewLeaderboardService(db, priceService)
	webhookService := services.NewWebhookService(db, leaderboardService)
	scanService := services.NewScanService(db, workers.NewVolumeSyncClient())
	frameService := services.NewFrameService(db, priceService)

	leaderboardService.StartRefreshScheduler()

	handlers.SetupBattleRoutes(app, battleService, frameService)
	handlers.SetupLeaderboardRoutes(app, leaderboardService)
	handlers.SetupWebhookRoutes(app, webhookService)
	handlers.SetupAdminRoutes(app, scanService, battleService, leaderboardService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ WaveWarz Statz running on http://localhost:%s", port)
	log.Println("✅ Leaderboard refresh scheduler running (every 5m)")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = app.Shutdown()
}
