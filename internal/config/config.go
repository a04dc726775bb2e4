/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// StorageBackend selects the persistence backend for state and history.
type StorageBackend string

const (
	StoragePostgres StorageBackend = "postgres"
	StorageMySQL    StorageBackend = "mysql"
	StorageSQLite   StorageBackend = "sqlite"
)

// Settings covers process level configuration read from environment variables.
type Settings struct {
	Environment string
	SourcesFile string

	DBBackend StorageBackend
	DBDSN     string

	HTTPBind string
	HTTPPort int

	// Player process and control surfaces
	PlayerBin      string // local media player binary for the video backends
	SpotifyCtlURL  string // base URL of the connect client control API
	AudioDevice    string // ALSA device handed to the player process

	// Orchestration timing
	MaxRetry       int
	RetryDelay     time.Duration
	HealthInterval time.Duration
	LiveInterval   time.Duration
	StartupGrace   time.Duration
	StopTimeout    time.Duration
	FeedRefresh    time.Duration
	NetworkWait    time.Duration

	// Button input
	GPIOChip     string
	ButtonLines  ButtonLines
	InputFIFO    string // line-oriented fallback input for hosts without GPIO
	DebounceTime time.Duration

	// Optional integrations
	NATSURL       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// ButtonLines maps logical buttons to GPIO line offsets.
type ButtonLines struct {
	PlayPause   int
	Previous    int
	Next        int
	CycleSource int
}

// LoadSettings reads environment variables, applies defaults, and validates the result.
func LoadSettings() (*Settings, error) {
	cfg := &Settings{
		Environment: getEnv("MUNINN_ENV", "development"),
		SourcesFile: getEnv("MUNINN_SOURCES_FILE", "./config/sources.yaml"),

		DBBackend: StorageBackend(getEnv("MUNINN_DB_BACKEND", string(StorageSQLite))),
		DBDSN:     getEnv("MUNINN_DB_DSN", "./data/muninn.db"),

		HTTPBind: getEnv("MUNINN_HTTP_BIND", "0.0.0.0"),
		HTTPPort: getEnvInt("MUNINN_HTTP_PORT", 8080),

		PlayerBin:     getEnv("MUNINN_PLAYER_BIN", "mpv"),
		SpotifyCtlURL: getEnv("MUNINN_SPOTIFY_CTL_URL", "http://127.0.0.1:24879"),
		AudioDevice:   getEnv("MUNINN_AUDIO_DEVICE", ""),

		MaxRetry:       getEnvInt("MUNINN_MAX_RETRY", 3),
		RetryDelay:     getEnvDuration("MUNINN_RETRY_DELAY", 2*time.Second),
		HealthInterval: getEnvDuration("MUNINN_HEALTH_INTERVAL", 2*time.Second),
		LiveInterval:   getEnvDuration("MUNINN_LIVE_INTERVAL", 15*time.Second),
		StartupGrace:   getEnvDuration("MUNINN_STARTUP_GRACE", 10*time.Second),
		StopTimeout:    getEnvDuration("MUNINN_STOP_TIMEOUT", 5*time.Second),
		FeedRefresh:    getEnvDuration("MUNINN_FEED_REFRESH", 5*time.Minute),
		NetworkWait:    getEnvDuration("MUNINN_NETWORK_WAIT", 30*time.Second),

		GPIOChip: getEnv("MUNINN_GPIO_CHIP", "gpiochip0"),
		ButtonLines: ButtonLines{
			PlayPause:   getEnvInt("MUNINN_BTN_PLAY_PAUSE", 17),
			Previous:    getEnvInt("MUNINN_BTN_PREVIOUS", 27),
			Next:        getEnvInt("MUNINN_BTN_NEXT", 22),
			CycleSource: getEnvInt("MUNINN_BTN_CYCLE_SOURCE", 23),
		},
		InputFIFO:    getEnv("MUNINN_INPUT_FIFO", ""),
		DebounceTime: getEnvDuration("MUNINN_DEBOUNCE", 50*time.Millisecond),

		NATSURL:       getEnv("MUNINN_NATS_URL", ""),
		RedisAddr:     getEnv("MUNINN_REDIS_ADDR", ""),
		RedisPassword: getEnv("MUNINN_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("MUNINN_REDIS_DB", 0),

		TracingEnabled:    getEnvBool("MUNINN_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("MUNINN_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("MUNINN_TRACING_SAMPLE_RATE", 1.0),
	}

	if cfg.DBBackend != StoragePostgres && cfg.DBBackend != StorageMySQL && cfg.DBBackend != StorageSQLite {
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("MUNINN_DB_DSN must be provided")
	}

	if cfg.SourcesFile == "" {
		return nil, fmt.Errorf("MUNINN_SOURCES_FILE must be provided")
	}

	if cfg.MaxRetry < 1 {
		return nil, fmt.Errorf("MUNINN_MAX_RETRY must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "true" || v == "1" || v == "yes" {
			return true
		}
		if v == "false" || v == "0" || v == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}
