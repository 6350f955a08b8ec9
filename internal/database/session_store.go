package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"trackeco/internal/models"
)

// ErrNoSession is returned when the CLI has not logged in yet
var ErrNoSession = errors.New("not logged in")

// SaveSession replaces the stored session with s
func SaveSession(db *sqlx.DB, s *models.Session) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM sessions`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	query := `INSERT INTO sessions (user_id, email, token, created_at) VALUES (:user_id, :email, :token, :created_at)`
	if _, err := tx.NamedExec(query, s); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return tx.Commit()
}

// LoadSession returns the stored session or ErrNoSession
func LoadSession(db *sqlx.DB) (*models.Session, error) {
	var s models.Session
	err := db.Get(&s, `SELECT user_id, email, token, created_at FROM sessions ORDER BY created_at DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &s, nil
}

// DeleteSession forgets the stored session
func DeleteSession(db *sqlx.DB) error {
	if _, err := db.Exec(`DELETE FROM sessions`); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
