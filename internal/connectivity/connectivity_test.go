package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestProbeGate(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("probe path = %s, want /health", r.URL.Path)
		}
		w.WriteHeader(status)
	}))
	defer srv.Close()

	gate := NewProbeGate(srv.URL+"/", time.Second)
	ctx := context.Background()

	if !gate.IsAvailable(ctx) {
		t.Error("healthy server reported unavailable")
	}

	status = http.StatusServiceUnavailable
	if gate.IsAvailable(ctx) {
		t.Error("503 reported available")
	}
}

func TestProbeGate_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if NewProbeGate(url, 200*time.Millisecond).IsAvailable(context.Background()) {
		t.Error("closed server reported available")
	}
}

func TestStaticGateAndPower(t *testing.T) {
	g := NewStaticGate(false)
	if g.IsAvailable(context.Background()) {
		t.Error("gate should start unavailable")
	}
	g.Set(true)
	if !g.IsAvailable(context.Background()) {
		t.Error("gate should be available after Set(true)")
	}

	p := NewStaticPower(true)
	if !p.BatteryLow() {
		t.Error("power should start low")
	}
	p.Set(false)
	if p.BatteryLow() {
		t.Error("power should not be low after Set(false)")
	}
	if (AlwaysPowered{}).BatteryLow() {
		t.Error("AlwaysPowered reported low battery")
	}
}

// ─── Battery ────────────────────────────────────────────────────────────────

func writeSupply(t *testing.T, dir, name string, attrs map[string]string) {
	t.Helper()
	supply := filepath.Join(dir, name)
	if err := os.MkdirAll(supply, 0o755); err != nil {
		t.Fatal(err)
	}
	for attr, value := range attrs {
		if err := os.WriteFile(filepath.Join(supply, attr), []byte(value+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestBatteryPower(t *testing.T) {
	tests := []struct {
		name      string
		status    string
		capacity  string
		threshold int
		want      bool
	}{
		{"discharging below", "Discharging", "10", 15, true},
		{"discharging at threshold", "Discharging", "15", 15, true},
		{"discharging above", "Discharging", "40", 15, false},
		{"charging below", "Charging", "5", 15, false},
		{"unreadable capacity", "Discharging", "?", 15, false},
		{"disabled", "Discharging", "1", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeSupply(t, dir, "AC", map[string]string{"type": "Mains", "online": "0"})
			writeSupply(t, dir, "BAT0", map[string]string{"type": "Battery", "status": tt.status, "capacity": tt.capacity})

			if got := NewBatteryPower(dir, tt.threshold).BatteryLow(); got != tt.want {
				t.Errorf("BatteryLow() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBatteryPower_NoBattery(t *testing.T) {
	if NewBatteryPower(filepath.Join(t.TempDir(), "missing"), 50).BatteryLow() {
		t.Error("host without power_supply reported low battery")
	}
}
