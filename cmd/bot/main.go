package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hray3182/PawLine/internal/ai"
	"github.com/hray3182/PawLine/internal/alarm"
	"github.com/hray3182/PawLine/internal/bot"
	"github.com/hray3182/PawLine/internal/bot/handlers"
	"github.com/hray3182/PawLine/internal/config"
	"github.com/hray3182/PawLine/internal/database"
	"github.com/hray3182/PawLine/internal/delivery"
	"github.com/hray3182/PawLine/internal/notify"
	"github.com/hray3182/PawLine/internal/recovery"
	"github.com/hray3182/PawLine/internal/repository"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	// Validate required config
	if cfg.DatabaseURI == "" {
		log.Fatal().Msg("DATABASE_URI is required")
	}
	if cfg.TelegramToken == "" {
		log.Fatal().Msg("TELEGRAM_TOKEN is required")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db, err := database.New(ctx, cfg.DatabaseURI)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("connected to database")

	// Run migrations
	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Initialize AI client (optional)
	var aiClient *ai.Client
	if cfg.AIAPIKey != "" {
		aiClient = ai.New(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel)
		log.Info().Str("model", cfg.AIModel).Msg("AI client initialized")
	} else {
		log.Info().Msg("AI client not configured, natural language features disabled")
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Telegram API")
	}

	repos := &handlers.Repositories{
		User:        repository.NewUserRepository(db),
		Cat:         repository.NewCatRepository(db),
		Medicine:    repository.NewMedicineRepository(db),
		Schedule:    repository.NewScheduleRepository(db),
		MedicineLog: repository.NewMedicineLogRepository(db),
		Weight:      repository.NewWeightRepository(db),
		Food:        repository.NewFoodRepository(db),
		Diary:       repository.NewDiaryRepository(db),
	}

	// Wire the reminder pipeline: timer fires flow through the delivery
	// handler, which notifies the chat and re-arms the next occurrence.
	engine := alarm.NewEngine()
	defer engine.Stop()
	manager := alarm.NewManager(engine)
	notifier := notify.NewTelegramNotifier(api)
	deliveryHandler := delivery.NewHandler(repos.Schedule, repos.MedicineLog, manager, notifier, cfg.SnoozeMinutes)
	engine.Bind(func(p alarm.Payload) {
		deliveryHandler.HandleFire(ctx, p)
	})

	// Timers do not survive a restart; re-arm everything from storage.
	if err := recovery.New(repos.Schedule, manager).RecoverAll(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to recover schedules")
	}

	h := handlers.New(api, repos, aiClient, deliveryHandler, manager)
	b := bot.New(api, h)

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("shutting down")
		cancel()
	}()

	log.Info().Msg("starting bot")
	if err := b.Start(ctx); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("bot error")
	}
}
