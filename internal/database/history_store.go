package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"

	"github.com/jmoiron/sqlx"
	"trackeco/internal/models"
)

// HistoryStore persists one SubmissionHistory per user
type HistoryStore struct {
	db *sqlx.DB
}

func NewHistoryStore(db *sqlx.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Load returns the user's history, or an empty one if none is stored.
//
// A row that cannot be decoded, in any column, yields a fresh history together
// with an error wrapping models.ErrHistoryCorrupted. Callers may keep going
// with the fresh history. Driver and I/O errors are returned as they are.
func (s *HistoryStore) Load(userID string) (*models.SubmissionHistory, error) {
	row := make(map[string]interface{})
	err := s.db.QueryRowx(`SELECT user_id, last_submission_at, last_latitude, last_longitude,
		daily_subtypes, daily_submission_count, last_rollover_date, updated_at
		FROM submission_history WHERE user_id = ?`, userID).MapScan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewSubmissionHistory(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load submission history: %w", err)
	}

	h, err := decodeHistory(userID, row)
	if err != nil {
		log.Printf("⚠️  Submission history for %s is corrupted, starting fresh: %v", userID, err)
		return models.NewSubmissionHistory(userID), fmt.Errorf("load history for %s: %w", userID, err)
	}
	return h, nil
}

// decodeHistory converts raw column values. Every failure wraps ErrHistoryCorrupted.
func decodeHistory(userID string, row map[string]interface{}) (*models.SubmissionHistory, error) {
	h := models.NewSubmissionHistory(userID)
	var err error

	if h.LastSubmissionAt, err = columnInt(row, "last_submission_at"); err != nil {
		return nil, err
	}
	if h.UpdatedAt, err = columnInt(row, "updated_at"); err != nil {
		return nil, err
	}
	count, err := columnInt(row, "daily_submission_count")
	if err != nil {
		return nil, err
	}
	h.DailySubmissionCount = int(count)
	if h.LastLatitude, err = columnFloat(row, "last_latitude"); err != nil {
		return nil, err
	}
	if h.LastLongitude, err = columnFloat(row, "last_longitude"); err != nil {
		return nil, err
	}
	if h.LastRolloverDate, err = columnString(row, "last_rollover_date"); err != nil {
		return nil, err
	}
	if err := h.DailySubtypes.Scan(row["daily_subtypes"]); err != nil {
		return nil, err
	}

	switch {
	case h.LastSubmissionAt < 0 || h.DailySubmissionCount < 0:
		return nil, fmt.Errorf("%w: negative counters", models.ErrHistoryCorrupted)
	case (h.LastLatitude == nil) != (h.LastLongitude == nil):
		return nil, fmt.Errorf("%w: half a location", models.ErrHistoryCorrupted)
	case h.LastLatitude != nil && (*h.LastLatitude < -90 || *h.LastLatitude > 90 ||
		*h.LastLongitude < -180 || *h.LastLongitude > 180):
		return nil, fmt.Errorf("%w: location out of range", models.ErrHistoryCorrupted)
	}
	return h, nil
}

func columnInt(row map[string]interface{}, name string) (int64, error) {
	switch v := row[name].(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case float64:
		if v == math.Trunc(v) {
			return int64(v), nil
		}
	case []byte:
		if n, err := strconv.ParseInt(string(v), 10, 64); err == nil {
			return n, nil
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: column %s holds %T %v", models.ErrHistoryCorrupted, name, row[name], row[name])
}

func columnFloat(row map[string]interface{}, name string) (*float64, error) {
	var f float64
	switch v := row[name].(type) {
	case nil:
		return nil, nil
	case float64:
		f = v
	case int64:
		f = float64(v)
	case []byte, string:
		parsed, err := strconv.ParseFloat(asString(v), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: column %s holds %q", models.ErrHistoryCorrupted, name, asString(v))
		}
		f = parsed
	default:
		return nil, fmt.Errorf("%w: column %s holds %T", models.ErrHistoryCorrupted, name, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: column %s is not finite", models.ErrHistoryCorrupted, name)
	}
	return &f, nil
}

func columnString(row map[string]interface{}, name string) (string, error) {
	switch v := row[name].(type) {
	case nil:
		return "", nil
	case string, []byte:
		return asString(v), nil
	}
	return "", fmt.Errorf("%w: column %s holds %T", models.ErrHistoryCorrupted, name, row[name])
}

func asString(v interface{}) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	s, _ := v.(string)
	return s
}

// Save upserts the user's history
func (s *HistoryStore) Save(h *models.SubmissionHistory) error {
	return saveHistory(s.db, h)
}

func saveHistory(e sqlx.Ext, h *models.SubmissionHistory) error {
	if h.UserID == "" {
		return fmt.Errorf("%w: history has no user id", models.ErrInvalidSubmission)
	}

	query := `
		INSERT INTO submission_history (
			user_id, last_submission_at, last_latitude, last_longitude,
			daily_subtypes, daily_submission_count, last_rollover_date, updated_at
		) VALUES (
			:user_id, :last_submission_at, :last_latitude, :last_longitude,
			:daily_subtypes, :daily_submission_count, :last_rollover_date, :updated_at
		)
		ON CONFLICT(user_id) DO UPDATE SET
			last_submission_at = excluded.last_submission_at,
			last_latitude = excluded.last_latitude,
			last_longitude = excluded.last_longitude,
			daily_subtypes = excluded.daily_subtypes,
			daily_submission_count = excluded.daily_submission_count,
			last_rollover_date = excluded.last_rollover_date,
			updated_at = excluded.updated_at
	`
	if _, err := sqlx.NamedExec(e, query, h); err != nil {
		return fmt.Errorf("failed to save submission history: %w", err)
	}
	return nil
}

// Delete removes the user's history
func (s *HistoryStore) Delete(userID string) error {
	if _, err := s.db.Exec(`DELETE FROM submission_history WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete submission history: %w", err)
	}
	return nil
}
