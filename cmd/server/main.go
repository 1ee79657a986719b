package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/applypilot/applypilot/internal/ats"
	"github.com/applypilot/applypilot/internal/chat"
	"github.com/applypilot/applypilot/internal/config"
	"github.com/applypilot/applypilot/internal/database"
	"github.com/applypilot/applypilot/internal/events"
	"github.com/applypilot/applypilot/internal/generator"
	"github.com/applypilot/applypilot/internal/llm"
	"github.com/applypilot/applypilot/internal/logger"
	"github.com/applypilot/applypilot/internal/migrator"
	"github.com/applypilot/applypilot/internal/repository"
	"github.com/applypilot/applypilot/internal/web"
	"github.com/applypilot/applypilot/internal/web/handlers"
	"github.com/applypilot/applypilot/migrations"
)

func main() {
	_ = godotenv.Load()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// 2. Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()
	log.Info().Msg("starting applypilot server")

	// 3. Setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	// 4. Connect to database and run migrations
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	m, err := migrator.NewWithFS(migrations.FS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create migrator")
	}
	if err := m.Up(ctx, cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// 5. Connect to NATS (optional, lifecycle events)
	var publisher *events.Publisher
	nc, err := events.New(ctx, cfg.NatsURL)
	if err != nil {
		log.Warn().Err(err).Msg("failed to connect to nats, event publishing disabled")
	} else {
		defer nc.Close()
		if err := nc.EnsureStream(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to ensure event stream")
		}
		publisher = events.NewPublisher(nc)
	}

	// 6. Initialize repositories
	applicationsRepo := repository.NewApplicationsRepository(db.Pool)
	generationsRepo := repository.NewGenerationsRepository(db.Pool)
	analysesRepo := repository.NewAnalysesRepository(db.Pool)

	chatStore := chat.NewStore(db.GORM)
	if err := chatStore.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate chat store")
	}

	// 7. Initialize LLM client and file storage
	llmClient := llm.NewClient(llm.Config{
		BaseURL:     cfg.LLMBaseURL,
		Model:       cfg.LLMModel,
		APIKey:      cfg.LLMAPIKey,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: float32(cfg.LLMTemperature),
		Timeout:     time.Duration(cfg.LLMTimeoutSec) * time.Second,
	})
	storage := generator.NewFileStorage(cfg.StorageDir)

	// 8. Initialize services
	engine := ats.NewEngine(analysesRepo, applicationsRepo, storage, llmClient, publisher)

	genService := generator.NewService(generationsRepo, applicationsRepo, storage, llmClient, generator.NewPDFRenderer())
	autosaver := generator.NewAutosaver(genService)
	defer autosaver.Flush()

	chatService := chat.NewService(chatStore, applicationsRepo, llmClient)

	// 9. Initialize web server and WebSocket hub
	hub := web.NewHub()
	go hub.Run()
	genService.SetBroadcaster(hub)

	if nc != nil {
		err := nc.Subscribe(ctx, "applypilot-ws-relay", events.SubjectScanCompleted, events.RelayScanCompleted(hub))
		if err != nil {
			log.Warn().Err(err).Msg("failed to subscribe to scan events, websocket relay disabled")
		}
	}

	srv := web.NewServer(&web.Config{Port: cfg.HTTPPort, AuthToken: cfg.AuthToken}, hub)
	srv.API(func(r chi.Router) {
		handlers.NewApplicationsHandler(applicationsRepo).Routes(r)
		handlers.NewGeneratorHandler(genService, autosaver, storage).Routes(r)
		handlers.NewAtsHandler(engine).Routes(r)
		handlers.NewChatHandler(chatService).Routes(r)
	})

	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("http server listening")
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}

	log.Info().Msg("server stopped")
}
