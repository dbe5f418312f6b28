// Package config loads the YAML configuration shared by the server and the CLIs.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/subosito/gotenv"
	"gopkg.in/yaml.v2"

	"sentilyzer/cache"
	"sentilyzer/logging"
	"sentilyzer/training"
)

// Config is the service configuration: config.yaml plus environment overrides.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       logging.Config  `yaml:"log"`
	Cache     cache.Config    `yaml:"cache"`
	Training  training.Config `yaml:"training"`
}

// ServerConfig holds the HTTP listener and request limits.
type ServerConfig struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// ArtifactsConfig locates the model bundle and controls hot reload.
type ArtifactsConfig struct {
	Dir      string        `yaml:"dir"`
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	tr := training.DefaultConfig()
	return Config{
		Server: ServerConfig{
			Port:           8000,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			IdleTimeout:    60 * time.Second,
			RequestTimeout: 10 * time.Second,
			MaxBodyBytes:   1 << 20,
			AllowedOrigins: []string{"*"},
		},
		Artifacts: ArtifactsConfig{
			Dir:      tr.ArtifactDir,
			Debounce: 500 * time.Millisecond,
		},
		Database: DatabaseConfig{Path: "data/sentilyzer.db"},
		Log:      logging.DefaultConfig(),
		Cache: cache.Config{
			Backend: cache.BackendLRU,
			Size:    10000,
			TTL:     24 * time.Hour,
		},
		Training: tr,
	}
}

// LoadEnv reads config/envs/.env.<env> and then .env. Variables already set in the
// process environment win.
func LoadEnv(env string) {
	if env == "" {
		env = "development"
	}
	for _, file := range []string{"config/envs/.env." + env, ".env"} {
		if _, err := os.Stat(file); err == nil {
			_ = gotenv.Load(file)
		}
	}
}

// Load builds the configuration from defaults, the optional YAML file at path and
// environment overrides, in that order.
func Load(path string) (*Config, error) {
	LoadEnv(os.Getenv("APP_ENV"))

	cfg := Default()
	if path != "" {
		payload, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(payload, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("SENTILYZER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SENTILYZER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("SENTILYZER_ARTIFACT_DIR"); v != "" {
		cfg.Artifacts.Dir = v
		cfg.Training.ArtifactDir = v
	}
	if v := os.Getenv("SENTILYZER_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("SENTILYZER_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SENTILYZER_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("VALKEY_INIT_ADDRESS"); v != "" {
		cfg.Cache.ValkeyAddress = v
	}
	if v := os.Getenv("VALKEY_PASSWORD"); v != "" {
		cfg.Cache.ValkeyPassword = v
	}
	if v := os.Getenv("VALKEY_TLS"); v != "" {
		cfg.Cache.ValkeyTLS = v == "true"
	}
	return nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Artifacts.Dir == "" {
		errs = append(errs, errors.New("artifacts.dir is required"))
	}
	switch c.Cache.Backend {
	case "", cache.BackendNone, cache.BackendLRU:
	case cache.BackendValkey:
		if c.Cache.ValkeyAddress == "" {
			errs = append(errs, errors.New("cache.valkey_address is required for the valkey backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend %q is not one of none, lru, valkey", c.Cache.Backend))
	}
	t := c.Training
	if t.TestRatio <= 0 || t.TestRatio >= 1 {
		errs = append(errs, fmt.Errorf("training.test_ratio %g must be in (0, 1)", t.TestRatio))
	}
	if t.Folds < 2 {
		errs = append(errs, fmt.Errorf("training.cv_folds %d must be at least 2", t.Folds))
	}
	if t.Tfidf.MaxDF <= 0 || t.Tfidf.MaxDF > 1 {
		errs = append(errs, fmt.Errorf("training.tfidf.max_df %g must be in (0, 1]", t.Tfidf.MaxDF))
	}
	if t.Tfidf.MinDF < 1 {
		errs = append(errs, fmt.Errorf("training.tfidf.min_df %d must be at least 1", t.Tfidf.MinDF))
	}
	if len(t.Grid.Configs()) == 0 {
		errs = append(errs, errors.New("training.grid is empty"))
	}
	return errors.Join(errs...)
}
