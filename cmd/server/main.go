// Command server runs the compliance audit HTTP API.
package main

import (
	"context"
	"embed"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adcompliance/auditor/internal/api"
	"github.com/adcompliance/auditor/internal/claims"
	"github.com/adcompliance/auditor/internal/config"
	"github.com/adcompliance/auditor/internal/database"
	"github.com/adcompliance/auditor/internal/extract"
	"github.com/adcompliance/auditor/internal/fetch"
	"github.com/adcompliance/auditor/internal/llm"
	"github.com/adcompliance/auditor/internal/pipeline"
	"github.com/adcompliance/auditor/internal/pipelineconfig"
	"github.com/adcompliance/auditor/internal/reasoner"
	"github.com/adcompliance/auditor/internal/router"
	"github.com/adcompliance/auditor/internal/rules"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// staticFS is empty unless a static/ directory is embedded at build time;
// NewRouter falls back to a placeholder page when it holds no static/ directory.
var staticFS embed.FS

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load config file, using defaults")
		cfg = config.DefaultConfig()
	}

	setupLogging(cfg.Logging)

	pc := pipelineconfig.Load()

	store, err := newStore(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database store")
	}
	defer store.Close()

	if cfg.Cache.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.Cache.Addr,
			DB:   cfg.Cache.DB,
		})
		store = database.NewCachingStore(store, redisClient)
		log.Info().Str("addr", cfg.Cache.Addr).Msg("dedup cache and token budget enforcement enabled")
	}

	primary, err := llm.NewProvider(&cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize primary LLM provider")
	}

	var fallback llm.Provider
	if cfg.LLM.FallbackProvider != "" {
		fallbackCfg := cfg.LLM
		fallbackCfg.Provider = cfg.LLM.FallbackProvider
		fallbackCfg.Model = cfg.LLM.FallbackModel
		fallback, err = llm.NewProvider(&fallbackCfg)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize fallback LLM provider, continuing without fallback")
			fallback = nil
		}
	}

	modelRouter := router.New(&cfg.LLM, primary, fallback, pc.ShortThreshold, pc.LongThreshold)
	reasonerAdapter := reasoner.New(modelRouter, pc.EnableFailSafeReanalysis)

	ruleRepo := rules.New(cfg.Rules.Root)
	if watcher, err := pipelineconfig.WatchRulePackRoot(cfg.Rules.Root, ruleRepo.Invalidate); err != nil {
		log.Warn().Err(err).Msg("failed to watch rule pack root, packs will not hot-reload")
	} else {
		defer watcher.Close()
	}

	fetcher := fetch.New().WithMaxBodySize(pc.MaxMediaSize)
	catalog := extract.NewCatalog(fetcher, cfg.Capability, pc)

	p := pipeline.New(pipeline.Services{
		Fetcher:             fetcher,
		Catalog:             catalog,
		Rules:               ruleRepo,
		Reasoner:            reasonerAdapter,
		Store:               store,
		Claims:              claims.New(pc.MaxContentForAI),
		JurisdictionDefault: pc.JurisdictionDefault,
	})

	handler := api.NewRouter(cfg, p, store, staticFS, pc.MaxTextLength)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 210 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func newStore(ctx context.Context, cfg *config.Config) (database.Store, error) {
	switch cfg.Database.Driver {
	case "postgres":
		return database.NewPostgresStore(ctx, cfg.Database.URL)
	case "sqlite", "":
		return database.NewSQLiteStore(cfg.Database.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "text" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
