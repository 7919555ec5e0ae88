package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"moviesearch/internal/cache"
	"moviesearch/internal/catalog"
	"moviesearch/internal/config"
	"moviesearch/internal/embedding/openai"
	"moviesearch/internal/engine"
	"moviesearch/internal/logging"
	"moviesearch/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "Path to YAML config file")
	reindexFlag := flag.Bool("reindex", false, "Force full re-index (discard existing cache)")
	indexOnly := flag.Bool("index-only", false, "Build index and exit (don't start server)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		l := logging.Logger()
		l.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log := logging.With("main")

	encoder, err := openai.NewClient(openai.Config{
		BaseURL:   cfg.Encoder.BaseURL,
		APIKeyEnv: cfg.Encoder.APIKeyEnv,
		Model:     cfg.Encoder.Model,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("encoder init failed")
	}

	eng := engine.New(engine.Options{
		Encoder:      encoder,
		Catalog:      catalog.NewClient(cfg.Catalog.BaseURL),
		Cache:        cache.NewStore(cfg.Cache.Path, cfg.Encoder.Model),
		BulkTimeout:  time.Duration(cfg.Encoder.BulkTimeoutSecs) * time.Second,
		QueryTimeout: time.Duration(cfg.Encoder.QueryTimeoutSecs) * time.Second,
	})

	ctx := context.Background()
	if *reindexFlag {
		log.Info().Msg("forced re-index requested")
		if err := eng.Reindex(ctx); err != nil {
			log.Fatal().Err(err).Msg("re-index failed")
		}
	} else if err := eng.Initialize(ctx); err != nil {
		log.Fatal().Err(err).Msg("initialization failed")
	}
	log.Info().Int("movies", eng.Len()).Msg("search engine ready")

	if *indexOnly {
		log.Info().Msg("index-only mode: exiting")
		return
	}

	srv := server.New(cfg.Server.Port, eng)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
		}
	}()

	<-done
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
}
