package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"trackeco/internal/models"
)

const recordColumns = `seq, id, user_id, category, subtype, quantity, latitude, longitude, accuracy,
	points_earned, xp_earned, trust_multiplier, sync_state, sync_attempts,
	created_at, last_sync_attempt_at, synced_at`

// RecordLog is the on-device log of disposal submissions
type RecordLog struct {
	db *sqlx.DB
}

func NewRecordLog(db *sqlx.DB) *RecordLog {
	return &RecordLog{db: db}
}

// Append inserts a new pending record. An empty id is filled with a random UUID.
// A duplicate id fails with models.ErrDuplicateRecordID and writes nothing.
func (l *RecordLog) Append(rec *models.WasteRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().UnixMilli()
	}
	rec.SyncState = models.SyncStatePending
	rec.SyncAttempts = 0
	rec.LastSyncAttemptAt = nil
	rec.SyncedAt = nil

	tx, err := l.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.Get(&exists, `SELECT COUNT(*) FROM waste_records WHERE id = ?`, rec.ID); err != nil {
		return fmt.Errorf("failed to check record id: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("append %s: %w", rec.ID, models.ErrDuplicateRecordID)
	}

	query := `
		INSERT INTO waste_records (
			id, user_id, category, subtype, quantity, latitude, longitude, accuracy,
			points_earned, xp_earned, trust_multiplier, sync_state, sync_attempts, created_at
		) VALUES (
			:id, :user_id, :category, :subtype, :quantity, :latitude, :longitude, :accuracy,
			:points_earned, :xp_earned, :trust_multiplier, :sync_state, :sync_attempts, :created_at
		)
	`
	result, err := tx.NamedExec(query, rec)
	if err != nil {
		return fmt.Errorf("failed to append waste record: %w", err)
	}
	if seq, err := result.LastInsertId(); err == nil {
		rec.Seq = seq
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit waste record: %w", err)
	}
	return nil
}

// MarkSynced records a server acknowledgment. Server values replace the local estimates.
func (l *RecordLog) MarkSynced(id string, serverPoints, serverXP int, at time.Time) error {
	result, err := l.db.Exec(`
		UPDATE waste_records
		SET sync_state = ?, points_earned = ?, xp_earned = ?, synced_at = ?, last_sync_attempt_at = ?
		WHERE id = ?`,
		string(models.SyncStateSynced), serverPoints, serverXP, at.UnixMilli(), at.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to mark record synced: %w", err)
	}
	return requireRow(result, id)
}

// MarkFailed counts a failed push. The record stays pending and will be retried.
func (l *RecordLog) MarkFailed(id string, at time.Time) error {
	result, err := l.db.Exec(`
		UPDATE waste_records
		SET sync_attempts = sync_attempts + 1, last_sync_attempt_at = ?
		WHERE id = ?`,
		at.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to mark record failed: %w", err)
	}
	return requireRow(result, id)
}

func requireRow(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("record %s: %w", id, models.ErrRecordNotFound)
	}
	return nil
}

// ListUnsynced returns the user's pending records in append order
func (l *RecordLog) ListUnsynced(userID string) ([]models.WasteRecord, error) {
	records := []models.WasteRecord{}
	query := `SELECT ` + recordColumns + ` FROM waste_records
		WHERE user_id = ? AND sync_state = ?
		ORDER BY seq ASC`
	if err := l.db.Select(&records, query, userID, string(models.SyncStatePending)); err != nil {
		return nil, fmt.Errorf("failed to list unsynced records: %w", err)
	}
	return records, nil
}

// Get returns one record by id
func (l *RecordLog) Get(id string) (*models.WasteRecord, error) {
	var rec models.WasteRecord
	err := l.db.Get(&rec, `SELECT `+recordColumns+` FROM waste_records WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", id, models.ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get waste record: %w", err)
	}
	return &rec, nil
}

// ListByUser returns the user's records, most recently appended first. limit <= 0 means no limit.
func (l *RecordLog) ListByUser(userID string, limit int) ([]models.WasteRecord, error) {
	records := []models.WasteRecord{}
	query := `SELECT ` + recordColumns + ` FROM waste_records
		WHERE user_id = ?
		ORDER BY seq DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	if err := l.db.Select(&records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list waste records: %w", err)
	}
	return records, nil
}

// Delete removes one of the user's records
func (l *RecordLog) Delete(userID, id string) error {
	result, err := l.db.Exec(`DELETE FROM waste_records WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete waste record: %w", err)
	}
	return requireRow(result, id)
}

// PurgeUser removes every record and the submission history of a user.
// It returns the number of records removed.
func (l *RecordLog) PurgeUser(userID string) (int64, error) {
	tx, err := l.db.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`DELETE FROM waste_records WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to purge waste records: %w", err)
	}
	removed, _ := result.RowsAffected()

	if _, err := tx.Exec(`DELETE FROM submission_history WHERE user_id = ?`, userID); err != nil {
		return 0, fmt.Errorf("failed to purge submission history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit purge: %w", err)
	}
	return removed, nil
}

// Stats summarises the user's log
func (l *RecordLog) Stats(userID string) (models.RecordStats, error) {
	var stats models.RecordStats
	query := `
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN sync_state = 'pending' THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN sync_state = 'synced' THEN 1 ELSE 0 END), 0) AS synced,
			COALESCE(SUM(CASE WHEN sync_state = 'pending' AND sync_attempts > 0 THEN 1 ELSE 0 END), 0) AS failed,
			COALESCE(SUM(CASE WHEN sync_state = 'synced' THEN points_earned ELSE 0 END), 0) AS points_synced,
			COALESCE(SUM(CASE WHEN sync_state = 'pending' THEN points_earned ELSE 0 END), 0) AS points_pending
		FROM waste_records
		WHERE user_id = ?
	`
	if err := l.db.Get(&stats, query, userID); err != nil {
		return stats, fmt.Errorf("failed to compute record stats: %w", err)
	}
	return stats, nil
}
