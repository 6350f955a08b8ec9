// Package syncer drains locally stored waste records to the TrackEco API.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"trackeco/internal/connectivity"
	"trackeco/internal/metrics"
	"trackeco/internal/models"
	"trackeco/internal/userlock"
)

// Remote is the submission endpoint records are pushed to
type Remote interface {
	Submit(ctx context.Context, rec *models.WasteRecord) (*models.ServerAck, error)
}

// Store is the part of the record log the coordinator needs
type Store interface {
	ListUnsynced(userID string) ([]models.WasteRecord, error)
	MarkSynced(id string, serverPoints, serverXP int, at time.Time) error
	MarkFailed(id string, at time.Time) error
}

// Lease serialises runs across processes that share one record store
type Lease interface {
	Acquire(holder string, now time.Time, ttl time.Duration) (bool, error)
	Release(holder string) error
}

// LeaseTTL bounds how long a crashed run can block others. Runs renew the
// lease before every record.
const LeaseTTL = 5 * time.Minute

// RecordError ties a per-record failure to its record
type RecordError struct {
	RecordID string
	Err      error
}

func (e RecordError) Error() string {
	return fmt.Sprintf("record %s: %v", e.RecordID, e.Err)
}

func (e RecordError) Unwrap() error {
	return e.Err
}

// Result summarises one sync run
type Result struct {
	Synced int
	Failed int
	Errors []RecordError
}

// Coordinator pushes unsynced records oldest first. At most one run is in flight.
type Coordinator struct {
	store  Store
	remote Remote
	gate   connectivity.Gate
	locks  *userlock.Locker
	sem    *semaphore.Weighted
	lease  Lease
	holder string
	now    func() time.Time
}

// NewCoordinator wires a coordinator. locks must be the same Locker used by
// the code that appends records, so record mutations stay serialized per user.
func NewCoordinator(store Store, remote Remote, gate connectivity.Gate, locks *userlock.Locker) *Coordinator {
	if locks == nil {
		locks = userlock.New()
	}
	return &Coordinator{
		store:  store,
		remote: remote,
		gate:   gate,
		locks:  locks,
		sem:    semaphore.NewWeighted(1),
		holder: uuid.NewString(),
		now:    time.Now,
	}
}

// WithLease makes runs also take lease, so coordinators in other processes
// over the same store see ErrSyncInProgress too
func (c *Coordinator) WithLease(lease Lease) *Coordinator {
	c.lease = lease
	return c
}

// SyncAll pushes every unsynced record of the user.
//
// It returns models.ErrOffline without touching any record when the gate is
// down, and models.ErrSyncInProgress when another run is active. One record's
// failure never stops the batch. If ctx is cancelled the run stops, the
// in-flight record is left untouched, and the partial result is returned with ctx.Err().
func (c *Coordinator) SyncAll(ctx context.Context, userID string) (Result, error) {
	var result Result

	if !c.sem.TryAcquire(1) {
		metrics.SyncRuns.WithLabelValues("busy").Inc()
		return result, models.ErrSyncInProgress
	}
	defer c.sem.Release(1)

	start := time.Now()
	defer func() { metrics.SyncDuration.Observe(time.Since(start).Seconds()) }()

	if err := ctx.Err(); err != nil {
		metrics.SyncRuns.WithLabelValues("cancelled").Inc()
		return result, err
	}

	if !c.gate.IsAvailable(ctx) {
		metrics.SyncRuns.WithLabelValues("offline").Inc()
		return result, models.ErrOffline
	}

	if c.lease != nil {
		ok, err := c.lease.Acquire(c.holder, c.now(), LeaseTTL)
		if err != nil {
			metrics.SyncRuns.WithLabelValues("error").Inc()
			return result, err
		}
		if !ok {
			metrics.SyncRuns.WithLabelValues("busy").Inc()
			return result, fmt.Errorf("%w: held by another process", models.ErrSyncInProgress)
		}
		defer func() {
			if err := c.lease.Release(c.holder); err != nil {
				log.Printf("⚠️  %v", err)
			}
		}()
	}

	unlock := c.locks.Lock(userID)
	records, err := c.store.ListUnsynced(userID)
	unlock()
	if err != nil {
		metrics.SyncRuns.WithLabelValues("error").Inc()
		return result, fmt.Errorf("failed to list unsynced records: %w", err)
	}

	metrics.PendingRecords.Set(float64(len(records)))
	if len(records) == 0 {
		metrics.SyncRuns.WithLabelValues("ok").Inc()
		return result, nil
	}

	log.Printf("🔄 Syncing %d record(s) for %s", len(records), userID)

	for i := range records {
		rec := &records[i]

		if err := ctx.Err(); err != nil {
			return c.cancelled(result, err)
		}
		if i > 0 && c.lease != nil {
			if ok, err := c.lease.Acquire(c.holder, c.now(), LeaseTTL); err != nil || !ok {
				if err == nil {
					err = fmt.Errorf("%w: lease lost", models.ErrSyncInProgress)
				}
				metrics.SyncRuns.WithLabelValues("error").Inc()
				log.Printf("⚠️  Sync stopped after %d synced, %d failed: %v", result.Synced, result.Failed, err)
				return result, err
			}
		}

		ack, err := c.remote.Submit(ctx, rec)
		if err != nil && ctx.Err() != nil {
			// Cancelled mid-push: the server may or may not have it, so stay pending
			return c.cancelled(result, ctx.Err())
		}
		if err == nil && ack == nil {
			err = fmt.Errorf("%w: empty acknowledgement", models.ErrServerUnavailable)
		}

		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, RecordError{RecordID: rec.ID, Err: err})
			metrics.SyncRecords.WithLabelValues("failed").Inc()
			log.Printf("⚠️  Sync failed for record %s (attempt %d): %v", rec.ID, rec.SyncAttempts+1, err)

			if markErr := c.mark(userID, func() error { return c.store.MarkFailed(rec.ID, c.now()) }); markErr != nil {
				result.Errors = append(result.Errors, RecordError{RecordID: rec.ID, Err: markErr})
			}
			continue
		}

		markErr := c.mark(userID, func() error {
			return c.store.MarkSynced(rec.ID, ack.PointsEarned, ack.XPEarned, c.now())
		})
		if markErr != nil {
			// The server has it; the next run resubmits and gets a duplicate ack
			result.Failed++
			result.Errors = append(result.Errors, RecordError{RecordID: rec.ID, Err: markErr})
			metrics.SyncRecords.WithLabelValues("failed").Inc()
			log.Printf("❌ Could not mark record %s synced: %v", rec.ID, markErr)
			continue
		}

		result.Synced++
		metrics.SyncRecords.WithLabelValues("synced").Inc()
	}

	metrics.SyncRuns.WithLabelValues("ok").Inc()
	log.Printf("✅ Sync finished for %s: %d synced, %d failed", userID, result.Synced, result.Failed)
	return result, nil
}

func (c *Coordinator) mark(userID string, fn func() error) error {
	unlock := c.locks.Lock(userID)
	defer unlock()
	return fn()
}

func (c *Coordinator) cancelled(result Result, err error) (Result, error) {
	metrics.SyncRuns.WithLabelValues("cancelled").Inc()
	log.Printf("⚠️  Sync cancelled after %d synced, %d failed: %v", result.Synced, result.Failed, err)
	return result, err
}

// IsSkip reports whether err means the run did not happen at all
func IsSkip(err error) bool {
	return errors.Is(err, models.ErrOffline) || errors.Is(err, models.ErrSyncInProgress) || errors.Is(err, ErrBatteryLow)
}
