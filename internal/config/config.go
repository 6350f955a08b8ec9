// Package config loads settings for the trackeco binaries.
//
// The API server reads its settings from the environment (optionally from a
// .env file). The device client reads ~/.trackeco/config.toml and lets
// TRACKECO_* environment variables override individual keys.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"trackeco/internal/anticheat"
	"trackeco/internal/connectivity"
)

// ─── Client config ──────────────────────────────────────────────────────────

type Config struct {
	API       APIConfig       `toml:"api"`
	Storage   StorageConfig   `toml:"storage"`
	Sync      SyncConfig      `toml:"sync"`
	AntiCheat AntiCheatConfig `toml:"anticheat"`
	Metrics   MetricsConfig   `toml:"metrics"`
}

type APIConfig struct {
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"`
}

type StorageConfig struct {
	Path string `toml:"path"`
}

type SyncConfig struct {
	Interval          string `toml:"interval"`
	RunOnStart        bool   `toml:"run_on_start"`
	ProbeTimeout      string `toml:"probe_timeout"`
	LowBatteryPercent int    `toml:"low_battery_percent"` // periodic runs skip at or below; 0 disables
	PowerSupplyDir    string `toml:"power_supply_dir"`    // empty = /sys/class/power_supply
}

type AntiCheatConfig struct {
	Cooldown            string  `toml:"cooldown"`
	MinDistanceMeters   float64 `toml:"min_distance_meters"`
	MaxDailySubtypes    int     `toml:"max_daily_subtypes"`
	MaxDailySubmissions int     `toml:"max_daily_submissions"`
	SuspiciousSpeedKmh  float64 `toml:"suspicious_speed_kmh"`
	Timezone            string  `toml:"timezone"` // IANA name, empty = local
}

type MetricsConfig struct {
	Listen string `toml:"listen"` // empty disables the endpoint
}

// DefaultConfig returns the client defaults rooted at dir
func DefaultConfig(dir string) Config {
	return Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080",
			Timeout: "15s",
		},
		Storage: StorageConfig{
			Path: filepath.Join(dir, "trackeco.db"),
		},
		Sync: SyncConfig{
			Interval:          "15m",
			RunOnStart:        true,
			ProbeTimeout:      "3s",
			LowBatteryPercent: 15,
		},
		AntiCheat: AntiCheatConfig{
			Cooldown:            "5m",
			MinDistanceMeters:   anticheat.DefaultMinDistanceMeters,
			MaxDailySubtypes:    anticheat.DefaultMaxDailySubtypes,
			MaxDailySubmissions: anticheat.DefaultMaxDailySubmissions,
			SuspiciousSpeedKmh:  anticheat.DefaultSuspiciousSpeedKmh,
		},
		Metrics: MetricsConfig{
			Listen: "127.0.0.1:9464",
		},
	}
}

// Dir returns the client home directory, $TRACKECO_HOME or ~/.trackeco
func Dir() (string, error) {
	if dir := os.Getenv("TRACKECO_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot locate home directory: %w", err)
	}
	return filepath.Join(home, ".trackeco"), nil
}

// Load reads the TOML file at path on top of the defaults, then applies
// TRACKECO_* overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig(filepath.Dir(path))

	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes cfg as TOML, creating the parent directory
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setString("TRACKECO_API_URL", &c.API.BaseURL)
	setString("TRACKECO_API_TIMEOUT", &c.API.Timeout)
	setString("TRACKECO_DB_PATH", &c.Storage.Path)
	setString("TRACKECO_SYNC_INTERVAL", &c.Sync.Interval)
	setString("TRACKECO_METRICS_LISTEN", &c.Metrics.Listen)
	setString("TRACKECO_TIMEZONE", &c.AntiCheat.Timezone)

	if v := os.Getenv("TRACKECO_SYNC_ON_START"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TRACKECO_SYNC_ON_START: %w", err)
		}
		c.Sync.RunOnStart = b
	}
	return nil
}

// Validate checks durations and thresholds
func (c Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("api.base_url is required")
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return errors.New("storage.path is required")
	}
	for key, value := range map[string]string{
		"api.timeout":        c.API.Timeout,
		"sync.interval":      c.Sync.Interval,
		"sync.probe_timeout": c.Sync.ProbeTimeout,
		"anticheat.cooldown": c.AntiCheat.Cooldown,
	} {
		if _, err := parseDuration(value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	if c.Sync.LowBatteryPercent < 0 || c.Sync.LowBatteryPercent > 100 {
		return errors.New("sync.low_battery_percent must be between 0 and 100")
	}
	if c.AntiCheat.MinDistanceMeters < 0 || c.AntiCheat.SuspiciousSpeedKmh < 0 {
		return errors.New("anticheat thresholds must not be negative")
	}
	if c.AntiCheat.MaxDailySubtypes < 0 || c.AntiCheat.MaxDailySubmissions < 0 {
		return errors.New("anticheat daily limits must not be negative")
	}
	if _, err := c.location(); err != nil {
		return err
	}
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}

func (c Config) location() (*time.Location, error) {
	if c.AntiCheat.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.AntiCheat.Timezone)
	if err != nil {
		return nil, fmt.Errorf("anticheat.timezone: %w", err)
	}
	return loc, nil
}

// APITimeout returns the HTTP timeout for the submission service
func (c Config) APITimeout() time.Duration {
	d, _ := parseDuration(c.API.Timeout)
	return d
}

// SyncInterval returns the periodic sync interval
func (c Config) SyncInterval() time.Duration {
	d, _ := parseDuration(c.Sync.Interval)
	return d
}

// ProbeTimeout returns the connectivity probe timeout
func (c Config) ProbeTimeout() time.Duration {
	d, _ := parseDuration(c.Sync.ProbeTimeout)
	return d
}

// PowerSource returns the battery gate for periodic syncs
func (c Config) PowerSource() connectivity.PowerSource {
	return connectivity.NewBatteryPower(c.Sync.PowerSupplyDir, c.Sync.LowBatteryPercent)
}

// AntiCheatConfig converts the [anticheat] section. Zero values fall back to
// the evaluator defaults.
func (c Config) AntiCheatConfig() (anticheat.Config, error) {
	loc, err := c.location()
	if err != nil {
		return anticheat.Config{}, err
	}
	cooldown, err := parseDuration(c.AntiCheat.Cooldown)
	if err != nil {
		return anticheat.Config{}, fmt.Errorf("anticheat.cooldown: %w", err)
	}
	return anticheat.Config{
		Cooldown:            cooldown,
		MinDistanceMeters:   c.AntiCheat.MinDistanceMeters,
		MaxDailySubtypes:    c.AntiCheat.MaxDailySubtypes,
		MaxDailySubmissions: c.AntiCheat.MaxDailySubmissions,
		SuspiciousSpeedKmh:  c.AntiCheat.SuspiciousSpeedKmh,
		Location:            loc,
	}, nil
}

// ─── Server config ──────────────────────────────────────────────────────────

// ServerConfig is read from the environment
type ServerConfig struct {
	DatabaseDriver            string
	DatabaseURL               string
	Port                      string
	JWTSecret                 string
	FirebaseCredentialsBase64 string
	FirebaseCredentialsFile   string
	SeedUsers                 bool
}

// LoadDotEnv loads .env into the process environment if present.
// It reports whether a file was loaded.
func LoadDotEnv(files ...string) bool {
	return godotenv.Load(files...) == nil
}

// LoadServer reads the API server settings from the environment
func LoadServer() (ServerConfig, error) {
	cfg := ServerConfig{
		DatabaseDriver:            envOr("DATABASE_DRIVER", "postgres"),
		DatabaseURL:               os.Getenv("DATABASE_URL"),
		Port:                      envOr("PORT", "8080"),
		JWTSecret:                 os.Getenv("APP_JWT_SECRET"),
		FirebaseCredentialsBase64: os.Getenv("FIREBASE_CREDENTIALS_BASE64"),
		FirebaseCredentialsFile:   envOr("FIREBASE_CREDENTIALS_FILE", "./firebase-service-account.json"),
		SeedUsers:                 true,
	}

	if v := os.Getenv("SEED_USERS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("SEED_USERS: %w", err)
		}
		cfg.SeedUsers = b
	}

	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL environment variable is required")
	}
	if cfg.JWTSecret == "" {
		return cfg, errors.New("APP_JWT_SECRET environment variable is required")
	}
	switch cfg.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return cfg, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
