package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Connect opens and pings a database. SQLite handles are limited to one
// connection, so callers must not use the pool while holding a transaction.
func Connect(driver, dsn string) (*sqlx.DB, error) {
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Println("🔌 DATABASE CONNECTION ATTEMPT")
	log.Printf("   📍 Driver: %s", driver)
	log.Printf("   📍 DSN prefix: %s...", dsn[:min(30, len(dsn))])
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		log.Printf("❌ DATABASE OPEN FAILED: %v", err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ DATABASE CONNECTION FAILED AT Ping()")
		log.Printf("   Error type: %T", err)
		log.Printf("   Error message: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if driver == DriverSQLite {
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
			if _, err := db.Exec(pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
			}
		}
	}

	log.Println("✅ DATABASE CONNECTION SUCCESSFUL")
	return db, nil
}

// OpenLocal opens (creating if needed) the on-device SQLite store and migrates it
func OpenLocal(path string) (*sqlx.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := Connect(DriverSQLite, path)
	if err != nil {
		return nil, err
	}

	if err := MigrateLocal(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// MigrateLocal creates the device-side tables
func MigrateLocal(db *sqlx.DB) error {
	migrations := []string{
		// Append-only disposal log; seq preserves insertion order
		`CREATE TABLE IF NOT EXISTS waste_records (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			category TEXT NOT NULL,
			subtype TEXT NOT NULL,
			quantity INTEGER NOT NULL CHECK(quantity > 0),
			latitude REAL,
			longitude REAL,
			accuracy REAL,
			points_earned INTEGER NOT NULL DEFAULT 0,
			xp_earned INTEGER NOT NULL DEFAULT 0,
			trust_multiplier REAL NOT NULL DEFAULT 1.0,
			sync_state TEXT NOT NULL DEFAULT 'pending' CHECK(sync_state IN ('pending', 'synced')),
			sync_attempts INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			last_sync_attempt_at INTEGER,
			synced_at INTEGER
		)`,

		`DROP INDEX IF EXISTS idx_waste_records_unsynced`,
		`CREATE INDEX IF NOT EXISTS idx_waste_records_pending ON waste_records(user_id, sync_state, seq)`,

		// One row per user
		`CREATE TABLE IF NOT EXISTS submission_history (
			user_id TEXT PRIMARY KEY,
			last_submission_at INTEGER NOT NULL DEFAULT 0,
			last_latitude REAL,
			last_longitude REAL,
			daily_subtypes TEXT NOT NULL DEFAULT '{}',
			daily_submission_count INTEGER NOT NULL DEFAULT 0,
			last_rollover_date TEXT NOT NULL DEFAULT '',
			updated_at INTEGER NOT NULL DEFAULT 0
		)`,

		// Cross-process sync lease; one row per lease name
		`CREATE TABLE IF NOT EXISTS sync_leases (
			name TEXT PRIMARY KEY,
			holder TEXT NOT NULL,
			expires_at INTEGER NOT NULL
		)`,

		// Signed-in API session for the CLI
		`CREATE TABLE IF NOT EXISTS sessions (
			user_id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			token TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("local migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

// Migrate creates the API server tables. The DDL sticks to types that both
// PostgreSQL and SQLite accept.
func Migrate(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			name TEXT NOT NULL,
			role TEXT NOT NULL CHECK(role IN ('user', 'admin')),
			total_points INTEGER NOT NULL DEFAULT 0,
			total_xp INTEGER NOT NULL DEFAULT 0,
			disposal_count INTEGER NOT NULL DEFAULT 0,
			streak INTEGER NOT NULL DEFAULT 0,
			last_disposal_day TEXT NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,

		// id is the client-generated record id, which makes submissions idempotent
		`CREATE TABLE IF NOT EXISTS disposals (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			category TEXT NOT NULL,
			subtype TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			points_awarded INTEGER NOT NULL,
			xp_awarded INTEGER NOT NULL,
			bonus_points INTEGER NOT NULL DEFAULT 0,
			challenge_completed TEXT NOT NULL DEFAULT '',
			points_estimate INTEGER NOT NULL DEFAULT 0,
			first_disposal BOOLEAN NOT NULL DEFAULT FALSE,
			day TEXT NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL,
			received_at BIGINT NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS fcm_tokens (
			token TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			device_type TEXT NOT NULL CHECK(device_type IN ('ios', 'android')),
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		// One row per user per UTC day; the challenge is fixed when the row is created
		`CREATE TABLE IF NOT EXISTS challenge_progress (
			user_id TEXT NOT NULL,
			day TEXT NOT NULL,
			challenge_id TEXT NOT NULL,
			progress INTEGER NOT NULL DEFAULT 0,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (user_id, day),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS hotspots (
			id TEXT PRIMARY KEY,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			intensity DOUBLE PRECISION NOT NULL,
			created_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_disposals_user_created ON disposals(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_disposals_user_day ON disposals(user_id, day, category)`,
		`CREATE INDEX IF NOT EXISTS idx_hotspots_expires ON hotspots(expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_fcm_tokens_user_id ON fcm_tokens(user_id)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	log.Println("✅ Database migrations completed")
	return nil
}
