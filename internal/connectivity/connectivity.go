// Package connectivity answers "can we reach the API right now?"
package connectivity

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// Gate reports point-in-time network reachability. Results are never cached.
type Gate interface {
	IsAvailable(ctx context.Context) bool
}

// PowerSource reports whether background work should be deferred to save battery
type PowerSource interface {
	BatteryLow() bool
}

// ProbeGate checks reachability with a GET against the API health endpoint
type ProbeGate struct {
	url    string
	client *http.Client
}

const DefaultProbeTimeout = 3 * time.Second

// NewProbeGate probes <baseURL>/health. A non-positive timeout uses DefaultProbeTimeout.
func NewProbeGate(baseURL string, timeout time.Duration) *ProbeGate {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &ProbeGate{
		url:    strings.TrimRight(baseURL, "/") + "/health",
		client: &http.Client{Timeout: timeout},
	}
}

func (g *ProbeGate) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.url, nil)
	if err != nil {
		return false
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// StaticGate is a Gate with a switchable answer
type StaticGate struct {
	available atomic.Bool
}

func NewStaticGate(available bool) *StaticGate {
	g := &StaticGate{}
	g.available.Store(available)
	return g
}

func (g *StaticGate) Set(available bool) {
	g.available.Store(available)
}

func (g *StaticGate) IsAvailable(context.Context) bool {
	return g.available.Load()
}

// AlwaysPowered never reports a low battery. Used on mains-powered hosts.
type AlwaysPowered struct{}

func (AlwaysPowered) BatteryLow() bool { return false }

// StaticPower is a PowerSource with a switchable answer
type StaticPower struct {
	low atomic.Bool
}

func NewStaticPower(low bool) *StaticPower {
	p := &StaticPower{}
	p.low.Store(low)
	return p
}

func (p *StaticPower) Set(low bool) {
	p.low.Store(low)
}

func (p *StaticPower) BatteryLow() bool {
	return p.low.Load()
}

// DefaultPowerSupplyDir is where Linux exposes batteries
const DefaultPowerSupplyDir = "/sys/class/power_supply"

// BatteryPower reads the Linux power_supply class. The battery counts as low
// while it discharges at or below the threshold percentage.
type BatteryPower struct {
	dir       string
	threshold int
}

// NewBatteryPower reads batteries under dir (DefaultPowerSupplyDir when empty).
// A threshold <= 0 disables the check.
func NewBatteryPower(dir string, thresholdPercent int) *BatteryPower {
	if dir == "" {
		dir = DefaultPowerSupplyDir
	}
	return &BatteryPower{dir: dir, threshold: thresholdPercent}
}

// BatteryLow is false on hosts without a readable battery
func (p *BatteryPower) BatteryLow() bool {
	if p.threshold <= 0 {
		return false
	}
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		supply := filepath.Join(p.dir, entry.Name())
		if readAttr(supply, "type") != "Battery" || readAttr(supply, "status") != "Discharging" {
			continue
		}
		capacity, err := strconv.Atoi(readAttr(supply, "capacity"))
		if err == nil && capacity <= p.threshold {
			return true
		}
	}
	return false
}

func readAttr(supply, name string) string {
	data, err := os.ReadFile(filepath.Join(supply, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
