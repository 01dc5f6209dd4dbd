package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// config is read once at process start. The Cosmic keys and the session
// secret are opaque here; they only need to exist for the store collaborator
// and the cookie signer to function.
type config struct {
	Port        int           `envconfig:"PORT" default:"3000"`
	BucketSlug  string        `envconfig:"COSMIC_BUCKET_SLUG" default:"cosmic-messenger"`
	ReadKey     string        `envconfig:"COSMIC_READ_KEY" required:"true"`
	WriteKey    string        `envconfig:"COSMIC_WRITE_KEY" required:"true"`
	APIURL      string        `envconfig:"COSMIC_API_URL" default:"https://api.cosmicjs.com/v1"`
	APISecret   string        `envconfig:"API_SECRET" required:"true"`
	LogLevel    string        `envconfig:"LOG_LEVEL" default:"INFO"`
	MetricsTick time.Duration `envconfig:"METRICS_TICK" default:"60s"`
}

// loadConfig reads .env if present, then the environment. A missing .env is
// not an error; deployed processes get their environment from the service
// manager.
func loadConfig() (config, error) {
	_ = godotenv.Load()

	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		return config{}, fmt.Errorf("config error: %w", err)
	}
	return cfg, nil
}

func (c config) addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c config) slogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
