package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/STRATINT/stratint/internal/adjudicator"
	"github.com/STRATINT/stratint/internal/api"
	"github.com/STRATINT/stratint/internal/auth"
	"github.com/STRATINT/stratint/internal/classify"
	"github.com/STRATINT/stratint/internal/cloudsql"
	"github.com/STRATINT/stratint/internal/config"
	"github.com/STRATINT/stratint/internal/database"
	"github.com/STRATINT/stratint/internal/embedding"
	"github.com/STRATINT/stratint/internal/gazetteer"
	"github.com/STRATINT/stratint/internal/geo"
	"github.com/STRATINT/stratint/internal/ingest"
	"github.com/STRATINT/stratint/internal/logging"
	"github.com/STRATINT/stratint/internal/metrics"
	"github.com/STRATINT/stratint/internal/models"
	"github.com/STRATINT/stratint/internal/ratelimit"
	"github.com/STRATINT/stratint/internal/satiregate"
	"github.com/STRATINT/stratint/internal/server"
	"github.com/STRATINT/stratint/internal/spatial"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/sashabaranov/go-openai"
	_ "github.com/lib/pq"
	"log/slog"
	"time"
)

const adjudicatorCacheTTL = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting drone-incident intelligence service")

	dbURL, err := cloudsql.BuildDatabaseURL()
	if err != nil {
		logger.Error("failed to build database URL", "error", err)
		os.Exit(1)
	}
	logger.Info("database configuration", "config", cloudsql.GetConnectionConfig())

	dbCfg := database.DefaultConfig()
	dbCfg.URL = dbURL
	db, err := database.Connect(context.Background(), dbCfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database connected", "pool", database.Stats(db))

	if err := database.RunMigrations(db, "./migrations", logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	store := spatial.New(db)
	embeddingStore := embedding.NewPostgresStore(db)

	gaz := gazetteer.New(gazetteer.DefaultEntries())
	geoAnalyzer := geo.New(models.DefaultRegionBounds)
	classifier := classify.New()
	satireGate := satiregate.New(cfg.Ingest.MaxAgeDays)

	var embedder embedding.Embedder
	var llmAdjudicator *adjudicator.Adjudicator
	if cfg.LLM.Enabled() {
		var backends []adjudicator.Backend

		if cfg.LLM.OpenAIAPIKey != "" {
			oaConfig := openai.DefaultConfig(cfg.LLM.OpenAIAPIKey)
			if cfg.LLM.OpenAIBaseURL != "" {
				oaConfig.BaseURL = cfg.LLM.OpenAIBaseURL
			}
			oaClient := openai.NewClientWithConfig(oaConfig)
			backends = append(backends, adjudicator.NewOpenAIBackend(oaClient, cfg.LLM.OpenAIModel))
			embedder = embedding.NewOpenAIEmbedder(oaClient, cfg.LLM.OpenAIModel)
		}

		if cfg.LLM.AnthropicAPIKey != "" {
			anthropicClient := anthropic.NewClient(option.WithAPIKey(cfg.LLM.AnthropicAPIKey))
			backends = append(backends, adjudicator.NewAnthropicBackend(&anthropicClient, anthropic.Model(cfg.LLM.AnthropicModel)))
		}

		if len(backends) > 0 {
			llmAdjudicator = adjudicator.New(backends, adjudicator.NewResponseCache(adjudicatorCacheTTL), logger)
			logger.Info("ai adjudicator enabled", "backends", len(backends))
		}
	} else {
		logger.Warn("no LLM credentials configured, C6/C9 adjudication stages disabled")
	}

	pipeline := ingest.New(ingest.Config{
		Store:       store,
		Embeddings:  embeddingStore,
		Embedder:    embedder,
		Gazetteer:   gaz,
		GeoAnalyzer: geoAnalyzer,
		Classifier:  classifier,
		SatireGate:  satireGate,
		Adjudicator: llmAdjudicator,
		Logger:      logger,
	})

	authConfig := auth.LoadConfigFromEnv()
	limiter := ratelimit.New(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)

	mux := http.NewServeMux()

	collector, err := metrics.NewHTTPCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}
	mux.Handle("/metrics", collector.Handler())

	api.SetupRoutes(mux, pipeline, store, db, authConfig, cfg.CORS, limiter, logger)

	handler := collector.InstrumentHandler(mux)
	srv := server.New(cfg.Server, logger, handler)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("service started", "port", cfg.Server.Port)

	waitForSignal(logger)

	logger.Info("shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}

func waitForSignal(logger *slog.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	sig := <-c
	logger.Info("received signal", "signal", sig.String())
	signal.Stop(c)
	close(c)
}
