// File: cmd/app/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"personal-ai-assistant/internal/config"
	"personal-ai-assistant/internal/domain/ports/adapter"
	aiAdapters "personal-ai-assistant/internal/infra/adapters/ai"
	"personal-ai-assistant/internal/infra/adapters/retrieval"
	"personal-ai-assistant/internal/infra/adapters/tokenizer"
	pg "personal-ai-assistant/internal/infra/db/postgres"
	"personal-ai-assistant/internal/infra/export"
	"personal-ai-assistant/internal/infra/logging"
	"personal-ai-assistant/internal/infra/metrics"
	red "personal-ai-assistant/internal/infra/redis"
	"personal-ai-assistant/internal/infra/sched"
	"personal-ai-assistant/internal/infra/web"
	"personal-ai-assistant/internal/infra/worker"
	"personal-ai-assistant/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	pg.StartPoolStatsReporter(ctx, pool, 15*time.Second)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	historyCache := red.NewHistoryCache(redisClient, cfg.Redis.TTL)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	userRepo := pg.NewPostgresUserRepo(pool)
	chatRepo := pg.NewPostgresChatRepo(pool, historyCache)
	taskRepo := pg.NewPostgresTaskRepo(pool)
	reminderRepo := pg.NewPostgresReminderRepo(pool)
	notifRepo := pg.NewPostgresNotificationRepo(pool)
	chunkRepo := pg.NewPostgresChunkRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Model backend (ollama | openai | gemini) ----
	var backend adapter.ModelBackend
	switch cfg.AI.Provider {
	case "ollama":
		backend = aiAdapters.NewOllamaAdapter(cfg.AI.OllamaURL)
		logger.Info().Str("base_url", cfg.AI.OllamaURL).Msg("model backend: ollama")
	case "openai":
		backend, err = aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey)
		if err != nil {
			log.Fatalf("openai adapter: %v", err)
		}
		logger.Info().Msg("model backend: openai")
	case "gemini":
		backend, err = aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.EmbedModel)
		if err != nil {
			log.Fatalf("gemini adapter: %v", err)
		}
		logger.Info().Msg("model backend: gemini")
	default:
		log.Fatalf("unknown ai.provider %q: use ollama, openai or gemini", cfg.AI.Provider)
	}

	// ---- Retrieval ----
	docIndex := retrieval.NewDocIndex(chunkRepo, backend, cfg.AI.EmbedModel, logger)
	webSearcher := retrieval.NewDuckDuckGoSearcher()

	// ---- Job pool ----
	jobPool := worker.NewPool(cfg.Retrieval.IngestWorkers)
	jobPool.Start(ctx)
	defer jobPool.Stop()

	// ---- Export ----
	exporter, err := export.NewFileExporter(cfg.Export.Dir)
	if err != nil {
		log.Fatalf("exporter: %v", err)
	}

	// ---- Use cases ----
	authUC := usecase.NewAuthUseCase(userRepo)
	contextUC := usecase.NewContextUseCase(docIndex, webSearcher, logger)
	chatUC := usecase.NewChatUseCase(chatRepo, backend, contextUC, locker,
		tokenizer.NewCounter(), exporter, cfg.AI.Provider, cfg.AI.SystemPrompt, cfg.AI.DefaultModel, logger)
	taskUC := usecase.NewTaskUseCase(taskRepo)
	reminderUC := usecase.NewReminderUseCase(reminderRepo, taskRepo, notifRepo, txManager, locker, logger)
	notifUC := usecase.NewNotificationUseCase(notifRepo)
	ragUC := usecase.NewRagUseCase(chunkRepo, docIndex, backend, jobPool, notifRepo, txManager, cfg.AI.EmbedModel, logger)

	// ---- Reminder sweep ----
	sweeper := sched.NewReminderWorker(cfg.Sweep.Interval, reminderUC, logger)
	go func() { _ = sweeper.Run(ctx) }()

	// ---- HTTP server ----
	authManager := web.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	streamDefaults := web.StreamDefaults{
		Think:         cfg.AI.Think,
		TopK:          cfg.Retrieval.TopK,
		MaxWebResults: cfg.Retrieval.MaxWebResults,
	}
	server := web.NewServer(authUC, chatUC, taskUC, reminderUC, notifUC, ragUC,
		authManager, rateLimiter, cfg.RateLimit.PerMinute, streamDefaults, logger)
	go func() {
		if err := server.Start(cfg.Server.Host, cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown incomplete")
	}
}
