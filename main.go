package main

import (
	"context"
	"log"
	"strings"
	"time"

	"roteirize/config"
	"roteirize/handlers"
	"roteirize/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env file (ignored in production where env vars are set directly)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found — using environment variables")
	}

	cfg := config.Load()
	logger := buildLogger(cfg)
	defer logger.Sync()

	roteiro := &handlers.Roteiro{
		Iata:    services.NewIataResolver(logger),
		Fx:      services.NewFxResolver(logger),
		Flights: services.NewFlightClient(cfg.TravelpayoutsToken, cfg.TravelpayoutsMarker, logger),
		Mailer:  services.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom, logger),
		Logger:  logger,
	}

	// Without the Gemini credential the classifier cannot run and no request
	// can make progress; the handler answers 503 until it is configured.
	if cfg.GeminiAPIKey != "" {
		client, err := services.NewGeminiClient(context.Background(), cfg.GeminiAPIKey)
		if err != nil {
			logger.Fatal("failed to create Gemini client", zap.Error(err))
		}
		roteiro.Classifier = services.NewGeminiClassifier(client, cfg.GeminiModel, logger)
		roteiro.Narrative = services.NewGeminiNarrative(client, cfg.GeminiModel, logger)
		logger.Info("Gemini initialized", zap.String("model", cfg.GeminiModel))
	} else {
		logger.Warn("GEMINI_API_KEY not set — itinerary requests will be rejected")
	}

	if cfg.TravelpayoutsToken == "" {
		logger.Warn("TRAVELPAYOUTS_TOKEN not set — flight search will be skipped")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.SetTrustedProxies([]string{"0.0.0.0/0"})

	allowedOrigins := []string{"http://localhost:5173", "http://localhost:3000"}
	for _, u := range strings.Split(cfg.FrontendURL, ",") {
		if u = strings.TrimSpace(u); u != "" {
			allowedOrigins = append(allowedOrigins, u)
		}
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	health := &handlers.Health{
		GeminiConfigured:  cfg.GeminiAPIKey != "",
		FlightsConfigured: cfg.TravelpayoutsToken != "",
		MailerConfigured:  cfg.SMTPHost != "" && cfg.MailFrom != "",
	}

	api := r.Group("/api")
	{
		api.GET("/health", health.Handle)
		api.POST("/roteiro", roteiro.Handle)
	}

	logger.Info("Roteirize API starting", zap.String("port", cfg.AppPort))
	if err := r.Run(":" + cfg.AppPort); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}

func buildLogger(cfg config.Config) *zap.Logger {
	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	if lvl, err := zap.ParseAtomicLevel(cfg.LogLevel); err == nil {
		zcfg.Level = lvl
	}

	logger, err := zcfg.Build()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	return logger
}
