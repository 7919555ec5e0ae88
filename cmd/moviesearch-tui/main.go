package main

import (
	"context"
	"flag"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"moviesearch/internal/cache"
	"moviesearch/internal/catalog"
	"moviesearch/internal/config"
	"moviesearch/internal/embedding/openai"
	"moviesearch/internal/engine"
	"moviesearch/internal/logging"
	"moviesearch/internal/tui"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		l := logging.Logger()
		l.Fatal().Err(err).Msg("failed to load config")
	}
	// Keep log noise out of the terminal UI.
	logging.Init(logging.Config{Level: "error", Format: cfg.Logging.Format})
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

	if err := eng.Initialize(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("initialization failed")
	}

	m := tui.New(eng, eng.Len())
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal().Err(err).Msg("tui failed")
	}
}
