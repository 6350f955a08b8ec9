package syncer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"trackeco/internal/connectivity"
	"trackeco/internal/database"
	"trackeco/internal/models"
	"trackeco/internal/userlock"
)

// ─── Helpers ────────────────────────────────────────────────────────────────

// fakeRemote acks every record except those listed in fail
type fakeRemote struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool

	// block, when set, makes Submit wait for release or ctx
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeRemote) Submit(ctx context.Context, rec *models.WasteRecord) (*models.ServerAck, error) {
	f.mu.Lock()
	f.calls = append(f.calls, rec.ID)
	f.mu.Unlock()

	if f.block != nil {
		if f.entered != nil {
			f.entered <- struct{}{}
		}
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if f.fail[rec.ID] {
		return nil, fmt.Errorf("%w: status 503", models.ErrServerUnavailable)
	}
	return &models.ServerAck{Success: true, RecordID: rec.ID, PointsEarned: 42, XPEarned: 50}, nil
}

func (f *fakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newTestLog(t *testing.T) *database.RecordLog {
	t.Helper()
	db, err := database.OpenLocal(filepath.Join(t.TempDir(), "trackeco.db"))
	if err != nil {
		t.Fatalf("OpenLocal: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return database.NewRecordLog(db)
}

func seedRecords(t *testing.T, log *database.RecordLog, userID string, ids ...string) {
	t.Helper()
	for i, id := range ids {
		rec := &models.WasteRecord{
			ID:           id,
			UserID:       userID,
			Category:     "plastic",
			Subtype:      "bottle",
			Quantity:     1,
			PointsEarned: 10,
			XPEarned:     10,
			CreatedAt:    int64(i+1) * 1000,
		}
		if err := log.Append(rec); err != nil {
			t.Fatalf("Append %s: %v", id, err)
		}
	}
}

func mustGet(t *testing.T, log *database.RecordLog, id string) *models.WasteRecord {
	t.Helper()
	rec, err := log.Get(id)
	if err != nil {
		t.Fatalf("Get %s: %v", id, err)
	}
	return rec
}

// ─── Tests ──────────────────────────────────────────────────────────────────

func TestSyncAll_PartialFailure(t *testing.T) {
	log := newTestLog(t)
	seedRecords(t, log, "user-1", "r1", "r2", "r3")
	remote := &fakeRemote{fail: map[string]bool{"r2": true}}
	coord := NewCoordinator(log, remote, connectivity.NewStaticGate(true), userlock.New())

	result, err := coord.SyncAll(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if result.Synced != 2 || result.Failed != 1 {
		t.Errorf("result = %+v, want {2 1}", result)
	}
	if len(result.Errors) != 1 || result.Errors[0].RecordID != "r2" || !errors.Is(result.Errors[0], models.ErrServerUnavailable) {
		t.Errorf("errors = %+v", result.Errors)
	}

	calls := remote.Calls()
	if len(calls) != 3 || calls[0] != "r1" || calls[1] != "r2" || calls[2] != "r3" {
		t.Errorf("push order = %v, want [r1 r2 r3]", calls)
	}

	for _, id := range []string{"r1", "r3"} {
		rec := mustGet(t, log, id)
		if rec.SyncState != models.SyncStateSynced {
			t.Errorf("%s state = %s, want synced", id, rec.SyncState)
		}
		if rec.PointsEarned != 42 || rec.XPEarned != 50 {
			t.Errorf("%s points/xp = %d/%d, want server values 42/50", id, rec.PointsEarned, rec.XPEarned)
		}
	}

	r2 := mustGet(t, log, "r2")
	if r2.SyncState != models.SyncStatePending || r2.SyncAttempts != 1 {
		t.Errorf("r2 = %s with %d attempts, want pending with 1", r2.SyncState, r2.SyncAttempts)
	}
	if r2.PointsEarned != 10 {
		t.Errorf("r2 points = %d, want local estimate 10", r2.PointsEarned)
	}

	// Next run retries only r2
	remote.fail = nil
	result, err = coord.SyncAll(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("second SyncAll: %v", err)
	}
	if result.Synced != 1 || result.Failed != 0 {
		t.Errorf("second result = %+v, want {1 0}", result)
	}
}

func TestSyncAll_OfflineTouchesNothing(t *testing.T) {
	log := newTestLog(t)
	seedRecords(t, log, "user-1", "r1", "r2")
	remote := &fakeRemote{}
	coord := NewCoordinator(log, remote, connectivity.NewStaticGate(false), nil)

	_, err := coord.SyncAll(context.Background(), "user-1")
	if !errors.Is(err, models.ErrOffline) {
		t.Fatalf("error = %v, want ErrOffline", err)
	}
	if len(remote.Calls()) != 0 {
		t.Error("remote called while offline")
	}
	for _, id := range []string{"r1", "r2"} {
		if rec := mustGet(t, log, id); rec.SyncAttempts != 0 {
			t.Errorf("%s attempts = %d, want 0", id, rec.SyncAttempts)
		}
	}
}

func TestSyncAll_SecondTriggerIsNoOp(t *testing.T) {
	log := newTestLog(t)
	seedRecords(t, log, "user-1", "r1")
	remote := &fakeRemote{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	coord := NewCoordinator(log, remote, connectivity.NewStaticGate(true), nil)

	done := make(chan error, 1)
	go func() {
		_, err := coord.SyncAll(context.Background(), "user-1")
		done <- err
	}()

	select {
	case <-remote.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first run never reached the remote")
	}

	if _, err := coord.SyncAll(context.Background(), "user-1"); !errors.Is(err, models.ErrSyncInProgress) {
		t.Errorf("second trigger error = %v, want ErrSyncInProgress", err)
	}

	close(remote.block)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
	if calls := remote.Calls(); len(calls) != 1 {
		t.Errorf("remote calls = %v, want exactly one", calls)
	}
}

func TestSyncAll_CancelMidPushLeavesPending(t *testing.T) {
	log := newTestLog(t)
	seedRecords(t, log, "user-1", "r1", "r2")
	remote := &fakeRemote{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	coord := NewCoordinator(log, remote, connectivity.NewStaticGate(true), nil)

	ctx, cancel := context.WithCancel(context.Background())
	type outcome struct {
		result Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := coord.SyncAll(ctx, "user-1")
		done <- outcome{result, err}
	}()

	<-remote.entered
	cancel()

	out := <-done
	if !errors.Is(out.err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", out.err)
	}
	if out.result.Synced != 0 || out.result.Failed != 0 {
		t.Errorf("result = %+v, want empty", out.result)
	}
	for _, id := range []string{"r1", "r2"} {
		rec := mustGet(t, log, id)
		if rec.SyncState != models.SyncStatePending || rec.SyncAttempts != 0 {
			t.Errorf("%s = %s with %d attempts, want untouched pending", id, rec.SyncState, rec.SyncAttempts)
		}
	}
	if calls := remote.Calls(); len(calls) != 1 {
		t.Errorf("remote calls = %v, want only r1", calls)
	}
}

func TestSyncAll_AlreadyCancelled(t *testing.T) {
	log := newTestLog(t)
	seedRecords(t, log, "user-1", "r1")
	remote := &fakeRemote{}
	coord := NewCoordinator(log, remote, connectivity.NewStaticGate(true), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := coord.SyncAll(ctx, "user-1"); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if len(remote.Calls()) != 0 {
		t.Error("remote called with a cancelled context")
	}
}

func TestSyncAll_OnlyOwnRecords(t *testing.T) {
	log := newTestLog(t)
	seedRecords(t, log, "user-1", "a1")
	seedRecords(t, log, "user-2", "b1")
	remote := &fakeRemote{}
	coord := NewCoordinator(log, remote, connectivity.NewStaticGate(true), nil)

	if _, err := coord.SyncAll(context.Background(), "user-1"); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if rec := mustGet(t, log, "b1"); rec.SyncState != models.SyncStatePending {
		t.Error("another user's record was synced")
	}
}

// nilAckRemote answers without an error and without an acknowledgement
type nilAckRemote struct{}

func (nilAckRemote) Submit(context.Context, *models.WasteRecord) (*models.ServerAck, error) {
	return nil, nil
}

func TestSyncAll_NilAckIsRecordFailure(t *testing.T) {
	log := newTestLog(t)
	seedRecords(t, log, "user-1", "r1", "r2")
	coord := NewCoordinator(log, nilAckRemote{}, connectivity.NewStaticGate(true), nil)

	result, err := coord.SyncAll(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if result.Synced != 0 || result.Failed != 2 {
		t.Errorf("result = %+v, want {0 2}", result)
	}
	for _, recErr := range result.Errors {
		if !errors.Is(recErr, models.ErrServerUnavailable) {
			t.Errorf("error = %v, want ErrServerUnavailable", recErr)
		}
	}
	for _, id := range []string{"r1", "r2"} {
		rec := mustGet(t, log, id)
		if rec.SyncState != models.SyncStatePending || rec.SyncAttempts != 1 {
			t.Errorf("%s = %s with %d attempts, want pending with 1", id, rec.SyncState, rec.SyncAttempts)
		}
	}
}

func TestSyncAll_LeaseExcludesOtherProcesses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trackeco.db")
	open := func() *sqlx.DB {
		db, err := database.OpenLocal(path)
		if err != nil {
			t.Fatalf("OpenLocal: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		return db
	}
	// Two handles on one file stand in for the daemon and a one-shot command
	daemonDB, cliDB := open(), open()
	daemonLog := database.NewRecordLog(daemonDB)
	seedRecords(t, daemonLog, "user-1", "r1")

	remote := &fakeRemote{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	daemon := NewCoordinator(daemonLog, remote, connectivity.NewStaticGate(true), nil).
		WithLease(database.NewSyncLease(daemonDB))
	cliRemote := &fakeRemote{}
	cli := NewCoordinator(database.NewRecordLog(cliDB), cliRemote, connectivity.NewStaticGate(true), nil).
		WithLease(database.NewSyncLease(cliDB))

	done := make(chan error, 1)
	go func() {
		_, err := daemon.SyncAll(context.Background(), "user-1")
		done <- err
	}()
	select {
	case <-remote.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("daemon run never reached the remote")
	}

	if _, err := cli.SyncAll(context.Background(), "user-1"); !errors.Is(err, models.ErrSyncInProgress) {
		t.Errorf("concurrent run error = %v, want ErrSyncInProgress", err)
	}
	if calls := cliRemote.Calls(); len(calls) != 0 {
		t.Errorf("second process pushed %v while the lease was held", calls)
	}

	close(remote.block)
	if err := <-done; err != nil {
		t.Fatalf("daemon run: %v", err)
	}

	// Released: the other process may run now and finds nothing left
	result, err := cli.SyncAll(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("SyncAll after release: %v", err)
	}
	if result.Synced != 0 || len(cliRemote.Calls()) != 0 {
		t.Errorf("result after release = %+v, calls %v", result, cliRemote.Calls())
	}
}

// ─── Scheduler ──────────────────────────────────────────────────────────────

func TestScheduler_BatteryGating(t *testing.T) {
	log := newTestLog(t)
	seedRecords(t, log, "user-1", "r1", "r2")
	remote := &fakeRemote{}
	coord := NewCoordinator(log, remote, connectivity.NewStaticGate(true), nil)
	power := connectivity.NewStaticPower(true)
	sched := NewScheduler(coord, "user-1", time.Hour, power)

	if _, err := sched.Tick(context.Background()); !errors.Is(err, ErrBatteryLow) {
		t.Fatalf("Tick error = %v, want ErrBatteryLow", err)
	}
	if !IsSkip(ErrBatteryLow) {
		t.Error("ErrBatteryLow not treated as a skip")
	}
	if len(remote.Calls()) != 0 {
		t.Error("periodic run pushed records on low battery")
	}

	// Explicit user action ignores the battery
	result, err := sched.TriggerNow(context.Background())
	if err != nil {
		t.Fatalf("TriggerNow: %v", err)
	}
	if result.Synced != 2 {
		t.Errorf("TriggerNow synced %d, want 2", result.Synced)
	}
}

func TestScheduler_RunTicks(t *testing.T) {
	log := newTestLog(t)
	seedRecords(t, log, "user-1", "r1")
	remote := &fakeRemote{}
	coord := NewCoordinator(log, remote, connectivity.NewStaticGate(true), nil)
	sched := NewScheduler(coord, "user-1", 10*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- sched.Run(ctx) }()

	deadline := time.Now().Add(400 * time.Millisecond)
	for time.Now().Before(deadline) {
		if mustGet(t, log, "r1").SyncState == models.SyncStateSynced {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if err := <-errc; err != nil {
		t.Errorf("Run: %v", err)
	}
	if state := mustGet(t, log, "r1").SyncState; state != models.SyncStateSynced {
		t.Errorf("r1 state = %s, want synced after periodic run", state)
	}
}

func TestNewScheduler_Defaults(t *testing.T) {
	sched := NewScheduler(nil, "user-1", 0, nil)
	if sched.Interval() != DefaultInterval {
		t.Errorf("interval = %s, want %s", sched.Interval(), DefaultInterval)
	}
}
