package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"trackeco/internal/geo"
	"trackeco/internal/models"
)

// rebindQueryer is satisfied by both *sqlx.DB and *sqlx.Tx
type rebindQueryer interface {
	sqlx.Queryer
	Rebind(query string) string
}

// ─── Hotspots ───────────────────────────────────────────────────────────────

// CreateHotspot stores a hotspot. CreatedAt defaults to now.
func CreateHotspot(db *sqlx.DB, h *models.Hotspot) error {
	if h.CreatedAt == 0 {
		h.CreatedAt = time.Now().Unix()
	}
	query := `
		INSERT INTO hotspots (id, latitude, longitude, intensity, created_at, expires_at)
		VALUES (:id, :latitude, :longitude, :intensity, :created_at, :expires_at)
	`
	if _, err := db.NamedExec(query, h); err != nil {
		return fmt.Errorf("failed to create hotspot: %w", err)
	}
	return nil
}

// ListActiveHotspots returns hotspots that have not expired, most intense first
func ListActiveHotspots(db *sqlx.DB, now time.Time) ([]models.Hotspot, error) {
	return activeHotspots(db, now)
}

// DeleteExpiredHotspots removes hotspots that expired before now
func DeleteExpiredHotspots(db *sqlx.DB, now time.Time) (int64, error) {
	result, err := db.Exec(db.Rebind(`DELETE FROM hotspots WHERE expires_at <= ?`), now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired hotspots: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

func activeHotspots(q rebindQueryer, now time.Time) ([]models.Hotspot, error) {
	hotspots := []models.Hotspot{}
	query := q.Rebind(`SELECT * FROM hotspots WHERE expires_at > ? ORDER BY intensity DESC, id`)
	if err := sqlx.Select(q, &hotspots, query, now.Unix()); err != nil {
		return nil, fmt.Errorf("failed to list hotspots: %w", err)
	}
	return hotspots, nil
}

func inHotspot(q rebindQueryer, lat, lng float64, now time.Time) (bool, error) {
	hotspots, err := activeHotspots(q, now)
	if err != nil {
		return false, err
	}
	for _, h := range hotspots {
		if geo.DistanceMeters(lat, lng, h.Latitude, h.Longitude) <= HotspotRadiusMeters {
			return true, nil
		}
	}
	return false, nil
}

// ─── Daily challenges ───────────────────────────────────────────────────────

// GetChallengeProgress returns the user's progress row for a UTC day, or nil
// when nothing has counted toward that day's challenge yet
func GetChallengeProgress(db *sqlx.DB, userID, day string) (*models.ChallengeProgress, error) {
	var progress models.ChallengeProgress
	err := db.Get(&progress, db.Rebind(`SELECT * FROM challenge_progress WHERE user_id = ? AND day = ?`), userID, day)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge progress: %w", err)
	}
	return &progress, nil
}
