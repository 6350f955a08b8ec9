package syncer

import (
	"context"
	"errors"
	"log"
	"time"

	"trackeco/internal/connectivity"
)

const DefaultInterval = 15 * time.Minute

// ErrBatteryLow is returned by Tick when a periodic run is deferred to save power
var ErrBatteryLow = errors.New("battery low, periodic sync deferred")

// Scheduler runs periodic syncs for one user and accepts on-demand triggers
type Scheduler struct {
	coord    *Coordinator
	userID   string
	interval time.Duration
	power    connectivity.PowerSource

	// RunOnStart performs a sync as soon as Run starts
	RunOnStart bool
}

// NewScheduler creates a scheduler. A non-positive interval uses DefaultInterval.
func NewScheduler(coord *Coordinator, userID string, interval time.Duration, power connectivity.PowerSource) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if power == nil {
		power = connectivity.AlwaysPowered{}
	}
	return &Scheduler{
		coord:    coord,
		userID:   userID,
		interval: interval,
		power:    power,
	}
}

// Interval returns the periodic sync interval
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Tick performs one periodic run, skipped when the battery is low
func (s *Scheduler) Tick(ctx context.Context) (Result, error) {
	if s.power.BatteryLow() {
		return Result{}, ErrBatteryLow
	}
	return s.coord.SyncAll(ctx, s.userID)
}

// TriggerNow runs a sync immediately for an explicit user action. It ignores
// battery state and is a no-op returning models.ErrSyncInProgress if a run is active.
func (s *Scheduler) TriggerNow(ctx context.Context) (Result, error) {
	return s.coord.SyncAll(ctx, s.userID)
}

// Run ticks until ctx is done
func (s *Scheduler) Run(ctx context.Context) error {
	log.Printf("🔄 Periodic sync every %s for %s", s.interval, s.userID)

	if s.RunOnStart {
		s.logRun("startup", s.TriggerNow)(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	periodic := s.logRun("periodic", s.Tick)
	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 Periodic sync stopped")
			return nil
		case <-ticker.C:
			periodic(ctx)
		}
	}
}

func (s *Scheduler) logRun(kind string, run func(context.Context) (Result, error)) func(context.Context) {
	return func(ctx context.Context) {
		result, err := run(ctx)
		switch {
		case err == nil:
			if result.Synced+result.Failed > 0 {
				log.Printf("✅ %s sync: %d synced, %d failed", kind, result.Synced, result.Failed)
			}
		case IsSkip(err):
			log.Printf("⏭️  %s sync skipped: %v", kind, err)
		case ctx.Err() != nil:
			// shutting down
		default:
			log.Printf("❌ %s sync failed: %v", kind, err)
		}
	}
}
