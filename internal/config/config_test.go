package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ─── Client config ──────────────────────────────────────────────────────────

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/home/eco/.trackeco")

	if cfg.API.BaseURL != "http://localhost:8080" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Storage.Path != filepath.Join("/home/eco/.trackeco", "trackeco.db") {
		t.Errorf("Storage.Path = %q", cfg.Storage.Path)
	}
	if cfg.SyncInterval() != 15*time.Minute {
		t.Errorf("SyncInterval() = %v, want 15m", cfg.SyncInterval())
	}
	if !cfg.Sync.RunOnStart {
		t.Error("Sync.RunOnStart should default to true")
	}
	if cfg.Sync.LowBatteryPercent != 15 {
		t.Errorf("Sync.LowBatteryPercent = %d, want 15", cfg.Sync.LowBatteryPercent)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "config.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Path != filepath.Join(dir, "trackeco.db") {
		t.Errorf("Storage.Path = %q, want it under %s", cfg.Storage.Path, dir)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[api]
base_url = "https://api.trackeco.app"

[sync]
interval = "30m"
run_on_start = false

[anticheat]
cooldown = "2m"
max_daily_subtypes = 5
timezone = "Asia/Tokyo"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "https://api.trackeco.app" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != "15s" {
		t.Errorf("API.Timeout = %q, want default 15s kept", cfg.API.Timeout)
	}
	if cfg.SyncInterval() != 30*time.Minute || cfg.Sync.RunOnStart {
		t.Errorf("sync = %+v", cfg.Sync)
	}

	ac, err := cfg.AntiCheatConfig()
	if err != nil {
		t.Fatalf("AntiCheatConfig: %v", err)
	}
	if ac.Cooldown != 2*time.Minute || ac.MaxDailySubtypes != 5 || ac.MaxDailySubmissions != 10 {
		t.Errorf("anticheat = %+v", ac)
	}
	if ac.Location.String() != "Asia/Tokyo" {
		t.Errorf("Location = %v, want Asia/Tokyo", ac.Location)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRACKECO_API_URL", "http://10.0.0.2:8080")
	t.Setenv("TRACKECO_DB_PATH", filepath.Join(dir, "other.db"))
	t.Setenv("TRACKECO_SYNC_ON_START", "false")

	cfg, err := Load(filepath.Join(dir, "config.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "http://10.0.0.2:8080" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Storage.Path != filepath.Join(dir, "other.db") {
		t.Errorf("Storage.Path = %q", cfg.Storage.Path)
	}
	if cfg.Sync.RunOnStart {
		t.Error("TRACKECO_SYNC_ON_START=false not applied")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad toml", "[api\nbase_url = 1", "failed to parse"},
		{"bad duration", "[sync]\ninterval = \"soon\"", "sync.interval"},
		{"negative distance", "[anticheat]\nmin_distance_meters = -1.0", "must not be negative"},
		{"unknown zone", "[anticheat]\ntimezone = \"Mars/Olympus\"", "anticheat.timezone"},
		{"battery over 100", "[sync]\nlow_battery_percent = 120", "sync.low_battery_percent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestSave_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	cfg := DefaultConfig(dir)
	cfg.API.BaseURL = "https://eco.example"
	cfg.Metrics.Listen = ""
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.API.BaseURL != "https://eco.example" {
		t.Errorf("API.BaseURL = %q", loaded.API.BaseURL)
	}
	if loaded.Metrics.Listen != "" {
		t.Errorf("Metrics.Listen = %q, want empty", loaded.Metrics.Listen)
	}
}

func TestDir(t *testing.T) {
	t.Setenv("TRACKECO_HOME", "/tmp/eco-home")
	dir, err := Dir()
	if err != nil || dir != "/tmp/eco-home" {
		t.Errorf("Dir() = %q, %v", dir, err)
	}
}

// ─── Server config ──────────────────────────────────────────────────────────

func TestLoadServer(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://eco@localhost/eco")
	t.Setenv("APP_JWT_SECRET", "s3cret")
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("PORT", "")
	t.Setenv("SEED_USERS", "false")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer: %v", err)
	}
	if cfg.DatabaseDriver != "postgres" || cfg.Port != "8080" {
		t.Errorf("defaults = %s/%s", cfg.DatabaseDriver, cfg.Port)
	}
	if cfg.SeedUsers {
		t.Error("SEED_USERS=false not applied")
	}
}

func TestLoadServer_Missing(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		secret string
		driver string
		want   string
	}{
		{"no database", "", "s", "", "DATABASE_URL"},
		{"no secret", "postgres://x", "", "", "APP_JWT_SECRET"},
		{"bad driver", "postgres://x", "s", "mysql", "DATABASE_DRIVER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", tt.url)
			t.Setenv("APP_JWT_SECRET", tt.secret)
			t.Setenv("DATABASE_DRIVER", tt.driver)
			t.Setenv("SEED_USERS", "")

			_, err := LoadServer()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("LoadServer error = %v, want it to mention %s", err, tt.want)
			}
		})
	}
}

func TestPowerSource_ReadsConfiguredDir(t *testing.T) {
	dir := t.TempDir()
	bat := filepath.Join(dir, "BAT0")
	if err := os.MkdirAll(bat, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, value := range map[string]string{"type": "Battery\n", "status": "Discharging\n", "capacity": "12\n"} {
		if err := os.WriteFile(filepath.Join(bat, name), []byte(value), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[sync]\npower_supply_dir = \"" + filepath.ToSlash(dir) + "\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.PowerSource().BatteryLow() {
		t.Error("12% discharging battery not reported low at the default threshold")
	}

	cfg.Sync.LowBatteryPercent = 0
	if cfg.PowerSource().BatteryLow() {
		t.Error("threshold 0 still gates on battery")
	}
}
