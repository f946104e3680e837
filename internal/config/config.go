package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/transitboard/internal/entur"
	"github.com/five82/transitboard/internal/retry"
)

// Config holds the transitboard settings.
type Config struct {
	JourneyPlannerURL   string
	GeocoderURL         string
	ClientName          string
	RefreshInterval     time.Duration
	MaxConcurrency      int
	DispatchDelay       time.Duration
	RetryAttempts       int
	RetryBackoff        time.Duration
	RetryBackoffStep    time.Duration
	RequestTimeout      time.Duration
	RequestsPerMinute   int
	SearchWindowMinutes int
	GeocoderCountyIDs   []string
	Language            string
	PrefsPath           string
	LogPath             string
	LogLevel            string
	MetricsAddr         string
}

const (
	defaultConfigPath      = "~/.config/transitboard/config.toml"
	defaultPrefsPath       = "~/.config/transitboard/prefs.toml"
	defaultLogPath         = "~/.local/state/transitboard/transitboard.log"
	defaultLogLevel        = "info"
	defaultRefreshInterval = 60 * time.Second
	defaultMaxConcurrency  = 1
	defaultDispatchDelay   = 50 * time.Millisecond
	defaultRetryAttempts   = 3
	defaultRetryBackoff    = 5 * time.Second
	defaultRetryStep       = 5 * time.Second
	defaultRequestTimeout  = 10 * time.Second
)

type rawConfig struct {
	JourneyPlannerURL      string   `toml:"journey_planner_url"`
	GeocoderURL            string   `toml:"geocoder_url"`
	ClientName             string   `toml:"client_name"`
	RefreshIntervalSeconds int      `toml:"refresh_interval_seconds"`
	MaxConcurrency         int      `toml:"max_concurrency"`
	DispatchDelayMS        *int     `toml:"dispatch_delay_ms"`
	RetryAttempts          int      `toml:"retry_attempts"`
	RetryBackoffMS         *int     `toml:"retry_backoff_ms"`
	RetryBackoffStepMS     *int     `toml:"retry_backoff_step_ms"`
	RequestTimeoutSeconds  int      `toml:"request_timeout_seconds"`
	RequestsPerMinute      int      `toml:"requests_per_minute"`
	SearchWindowMinutes    int      `toml:"search_window_minutes"`
	GeocoderCountyIDs      []string `toml:"geocoder_county_ids"`
	Language               string   `toml:"language"`
	PrefsPath              string   `toml:"prefs_path"`
	LogPath                string   `toml:"log_path"`
	LogLevel               string   `toml:"log_level"`
	MetricsAddr            string   `toml:"metrics_addr"`
}

// Default returns the built-in configuration with paths expanded.
func Default() Config {
	cfg, _ := fromRaw(rawConfig{})
	return cfg
}

// Load reads the config file at path, or the default location when path is
// blank. A missing file yields the defaults.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return fromRaw(raw)
}

func fromRaw(raw rawConfig) (Config, error) {
	cfg := Config{
		JourneyPlannerURL:   orDefault(raw.JourneyPlannerURL, entur.DefaultJourneyPlannerURL),
		GeocoderURL:         orDefault(raw.GeocoderURL, entur.DefaultGeocoderURL),
		ClientName:          orDefault(raw.ClientName, entur.DefaultClientName),
		RefreshInterval:     defaultRefreshInterval,
		MaxConcurrency:      defaultMaxConcurrency,
		DispatchDelay:       defaultDispatchDelay,
		RetryAttempts:       defaultRetryAttempts,
		RetryBackoff:        defaultRetryBackoff,
		RetryBackoffStep:    defaultRetryStep,
		RequestTimeout:      defaultRequestTimeout,
		SearchWindowMinutes: entur.DefaultSearchWindowMinutes,
		Language:            orDefault(raw.Language, entur.DefaultLanguage),
		LogLevel:            strings.ToLower(orDefault(raw.LogLevel, defaultLogLevel)),
		MetricsAddr:         strings.TrimSpace(raw.MetricsAddr),
	}

	if raw.RefreshIntervalSeconds > 0 {
		cfg.RefreshInterval = time.Duration(raw.RefreshIntervalSeconds) * time.Second
	}
	if raw.MaxConcurrency > 0 {
		cfg.MaxConcurrency = raw.MaxConcurrency
	}
	if raw.DispatchDelayMS != nil && *raw.DispatchDelayMS >= 0 {
		cfg.DispatchDelay = time.Duration(*raw.DispatchDelayMS) * time.Millisecond
	}
	if raw.RetryAttempts > 0 {
		cfg.RetryAttempts = raw.RetryAttempts
	}
	if raw.RetryBackoffMS != nil && *raw.RetryBackoffMS >= 0 {
		cfg.RetryBackoff = time.Duration(*raw.RetryBackoffMS) * time.Millisecond
	}
	if raw.RetryBackoffStepMS != nil && *raw.RetryBackoffStepMS >= 0 {
		cfg.RetryBackoffStep = time.Duration(*raw.RetryBackoffStepMS) * time.Millisecond
	}
	if raw.RequestTimeoutSeconds > 0 {
		cfg.RequestTimeout = time.Duration(raw.RequestTimeoutSeconds) * time.Second
	}
	if raw.RequestsPerMinute > 0 {
		cfg.RequestsPerMinute = raw.RequestsPerMinute
	}
	if raw.SearchWindowMinutes > 0 {
		cfg.SearchWindowMinutes = raw.SearchWindowMinutes
	}
	for _, id := range raw.GeocoderCountyIDs {
		if id = strings.TrimSpace(id); id != "" {
			cfg.GeocoderCountyIDs = append(cfg.GeocoderCountyIDs, id)
		}
	}
	if len(cfg.GeocoderCountyIDs) == 0 {
		cfg.GeocoderCountyIDs = append([]string(nil), entur.DefaultCountyIDs...)
	}

	var err error
	if cfg.PrefsPath, err = expandPath(orDefault(raw.PrefsPath, defaultPrefsPath)); err != nil {
		return Config{}, fmt.Errorf("prefs_path: %w", err)
	}
	if cfg.LogPath, err = expandPath(orDefault(raw.LogPath, defaultLogPath)); err != nil {
		return Config{}, fmt.Errorf("log_path: %w", err)
	}
	return cfg, nil
}

// RetryPolicy returns the retry settings for journey planner calls.
func (c Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:    c.RetryAttempts,
		Backoff:        c.RetryBackoff,
		BackoffStep:    c.RetryBackoffStep,
		AttemptTimeout: c.RequestTimeout,
	}
}

func orDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
