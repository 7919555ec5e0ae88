package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// EncoderConfig configures the embeddings backend. The model name decides
// the vector dimension, so changing it invalidates the cache artifact.
type EncoderConfig struct {
	BaseURL          string `yaml:"base_url"`
	APIKeyEnv        string `yaml:"api_key_env"`
	Model            string `yaml:"model"`
	BulkTimeoutSecs  int    `yaml:"bulk_timeout_secs"`
	QueryTimeoutSecs int    `yaml:"query_timeout_secs"`
}

// CatalogConfig points at the Catalog Store, the movie metadata system of
// record.
type CatalogConfig struct {
	BaseURL string `yaml:"base_url"`
}

// CacheConfig configures index persistence.
type CacheConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Encoder EncoderConfig `yaml:"encoder"`
	Catalog CatalogConfig `yaml:"catalog"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
}

// Load reads a config from a specified path. If the file does not exist,
// returns defaults. Environment variables override file values for the
// externally supplied settings.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8001"
	}
	if cfg.Encoder.BaseURL == "" {
		cfg.Encoder.BaseURL = "http://localhost:11434/v1"
	}
	if cfg.Encoder.Model == "" {
		cfg.Encoder.Model = "nomic-embed-text"
	}
	if cfg.Encoder.BulkTimeoutSecs == 0 {
		cfg.Encoder.BulkTimeoutSecs = 600
	}
	if cfg.Encoder.QueryTimeoutSecs == 0 {
		cfg.Encoder.QueryTimeoutSecs = 15
	}
	if cfg.Catalog.BaseURL == "" {
		cfg.Catalog.BaseURL = "http://localhost:8000"
	}
	if cfg.Cache.Path == "" {
		cfg.Cache.Path = filepath.Join("data", "movies_cache.json")
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	overrideEnv(&cfg.Server.Port, "PORT")
	overrideEnv(&cfg.Encoder.BaseURL, "EMBED_BASE_URL")
	overrideEnv(&cfg.Encoder.Model, "EMBED_MODEL")
	overrideEnv(&cfg.Catalog.BaseURL, "CATALOG_URL")
	overrideEnv(&cfg.Cache.Path, "CACHE_PATH")
	overrideEnv(&cfg.Logging.Level, "LOG_LEVEL")
	overrideEnv(&cfg.Logging.Format, "LOG_FORMAT")
}

func overrideEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
