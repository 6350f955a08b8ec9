package database

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SyncLease is a named, expiring lock row in the device store. Every process
// that opens the same store file sees the same lease, so a daemon and a
// one-shot command never push the log at the same time.
type SyncLease struct {
	db   *sqlx.DB
	name string
}

func NewSyncLease(db *sqlx.DB) *SyncLease {
	return &SyncLease{db: db, name: "sync"}
}

// Acquire takes the lease for holder until now+ttl. It succeeds when the lease
// is free, expired, or already held by holder (which extends it).
func (l *SyncLease) Acquire(holder string, now time.Time, ttl time.Duration) (bool, error) {
	result, err := l.db.Exec(`
		INSERT INTO sync_leases (name, holder, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			holder = excluded.holder,
			expires_at = excluded.expires_at
		WHERE sync_leases.holder = excluded.holder OR sync_leases.expires_at <= ?`,
		l.name, holder, now.Add(ttl).UnixMilli(), now.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("failed to acquire sync lease: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

// Release gives the lease up if holder still owns it
func (l *SyncLease) Release(holder string) error {
	if _, err := l.db.Exec(`DELETE FROM sync_leases WHERE name = ? AND holder = ?`, l.name, holder); err != nil {
		return fmt.Errorf("failed to release sync lease: %w", err)
	}
	return nil
}
