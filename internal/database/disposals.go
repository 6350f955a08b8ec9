package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"trackeco/internal/models"
)

// AwardFunc decides the points and XP for a new disposal.
// firstEver is true for the user's first disposal, newCategory for their first in that category.
type AwardFunc func(firstEver, newCategory bool) (points, xp int)

// ChallengeFunc picks a user's daily challenge for a UTC day
type ChallengeFunc func(userID, day string) models.Challenge

// Rules are the award rules RecordDisposal applies
type Rules struct {
	Award     AwardFunc
	Challenge ChallengeFunc // nil disables daily challenges
}

// HotspotRadiusMeters is how close a disposal must be to a hotspot centre to count
const HotspotRadiusMeters = 110.0

// DisposalResult is the outcome of RecordDisposal
type DisposalResult struct {
	Disposal  models.Disposal
	User      models.User
	Duplicate bool
}

// ─── Users ──────────────────────────────────────────────────────────────────

// CreateUser inserts a user. Emails are stored lowercase.
func CreateUser(db *sqlx.DB, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	now := time.Now().Unix()
	if user.CreatedAt == 0 {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = models.RoleUser
	}

	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.Get(&count, db.Rebind(`SELECT COUNT(*) FROM users WHERE email = ?`), user.Email); err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("create user %s: %w", user.Email, models.ErrEmailTaken)
	}

	query := `
		INSERT INTO users (id, email, password, name, role, total_points, total_xp, disposal_count, created_at, updated_at)
		VALUES (:id, :email, :password, :name, :role, :total_points, :total_xp, :disposal_count, :created_at, :updated_at)
	`
	if _, err := tx.NamedExec(query, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return tx.Commit()
}

// GetUserByEmail looks a user up by (case-insensitive) email
func GetUserByEmail(db *sqlx.DB, email string) (*models.User, error) {
	var user models.User
	err := db.Get(&user, db.Rebind(`SELECT * FROM users WHERE email = ?`), strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetUserByID looks a user up by id
func GetUserByID(db *sqlx.DB, id string) (*models.User, error) {
	var user models.User
	err := db.Get(&user, db.Rebind(`SELECT * FROM users WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// ─── Disposals ──────────────────────────────────────────────────────────────

// RecordDisposal stores a disposal and credits the user in one transaction.
//
// The disposal id is the client record id. Replaying an id the user already
// submitted returns the original disposal with Duplicate set and credits nothing.
// The disposal counts toward the UTC day of its client timestamp, capped at the
// server clock. That day drives the user's streak and daily challenge.
func RecordDisposal(db *sqlx.DB, d *models.Disposal, rules Rules) (*DisposalResult, error) {
	tx, err := db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := getDisposal(tx, d.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return duplicateResult(tx, existing, d.UserID)
	}

	var owner struct {
		Streak          int    `db:"streak"`
		LastDisposalDay string `db:"last_disposal_day"`
	}
	err = tx.Get(&owner, tx.Rebind(`SELECT streak, last_disposal_day FROM users WHERE id = ?`), d.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	var priorTotal, priorInCategory int
	if err := tx.Get(&priorTotal, tx.Rebind(`SELECT COUNT(*) FROM disposals WHERE user_id = ?`), d.UserID); err != nil {
		return nil, fmt.Errorf("failed to count disposals: %w", err)
	}
	if err := tx.Get(&priorInCategory, tx.Rebind(`SELECT COUNT(*) FROM disposals WHERE user_id = ? AND category = ?`), d.UserID, d.Category); err != nil {
		return nil, fmt.Errorf("failed to count category disposals: %w", err)
	}

	d.ReceivedAt = time.Now().UnixMilli()
	d.Day = models.DayOf(min(d.CreatedAt, d.ReceivedAt))
	d.FirstDisposal = priorTotal == 0
	d.PointsAwarded, d.XPAwarded = rules.Award(d.FirstDisposal, priorInCategory == 0)

	if rules.Challenge != nil {
		challenge := rules.Challenge(d.UserID, d.Day)
		d.BonusPoints, err = advanceChallenge(tx, challenge, d)
		if err != nil {
			return nil, err
		}
		if d.BonusPoints > 0 {
			d.ChallengeCompleted = challenge.ID
		}
	}

	query := `
		INSERT INTO disposals (
			id, user_id, category, subtype, quantity, latitude, longitude,
			points_awarded, xp_awarded, bonus_points, challenge_completed,
			points_estimate, first_disposal, day, created_at, received_at
		) VALUES (
			:id, :user_id, :category, :subtype, :quantity, :latitude, :longitude,
			:points_awarded, :xp_awarded, :bonus_points, :challenge_completed,
			:points_estimate, :first_disposal, :day, :created_at, :received_at
		)
		ON CONFLICT (id) DO NOTHING
	`
	result, err := tx.NamedExec(query, d)
	if err != nil {
		return nil, fmt.Errorf("failed to insert disposal: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		// Lost a race with a concurrent replay of the same id
		existing, err := getDisposal(tx, d.ID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("disposal %s vanished during insert", d.ID)
		}
		return duplicateResult(tx, existing, d.UserID)
	}

	streak, lastDay := models.NextStreak(owner.Streak, owner.LastDisposalDay, d.Day)
	_, err = tx.Exec(tx.Rebind(`
		UPDATE users
		SET total_points = total_points + ?, total_xp = total_xp + ?,
			disposal_count = disposal_count + 1, streak = ?, last_disposal_day = ?, updated_at = ?
		WHERE id = ?`),
		d.PointsAwarded+d.BonusPoints, d.XPAwarded, streak, lastDay, time.Now().Unix(), d.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to credit user: %w", err)
	}

	var user models.User
	if err := tx.Get(&user, tx.Rebind(`SELECT * FROM users WHERE id = ?`), d.UserID); err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit disposal: %w", err)
	}

	return &DisposalResult{Disposal: *d, User: user}, nil
}

// advanceChallenge counts d toward the user's challenge for d.Day and returns
// the reward when this disposal completes it. Must run before d is inserted.
func advanceChallenge(tx *sqlx.Tx, c models.Challenge, d *models.Disposal) (int, error) {
	if c.ID == "" || c.Goal < 1 {
		return 0, nil
	}

	counts := false
	switch c.Kind {
	case models.ChallengeCount:
		counts = d.Category == c.Category
	case models.ChallengeVariety:
		if d.Category == c.Category {
			var seen int
			query := tx.Rebind(`SELECT COUNT(*) FROM disposals WHERE user_id = ? AND day = ? AND category = ? AND subtype = ?`)
			if err := tx.Get(&seen, query, d.UserID, d.Day, d.Category, d.Subtype); err != nil {
				return 0, fmt.Errorf("failed to check subtype variety: %w", err)
			}
			counts = seen == 0
		}
	case models.ChallengeHotspot:
		if d.Latitude != nil && d.Longitude != nil {
			var err error
			counts, err = inHotspot(tx, *d.Latitude, *d.Longitude, time.Now())
			if err != nil {
				return 0, err
			}
		}
	}
	if !counts {
		return 0, nil
	}

	_, err := tx.Exec(tx.Rebind(`
		INSERT INTO challenge_progress (user_id, day, challenge_id, progress, completed)
		VALUES (?, ?, ?, 0, FALSE)
		ON CONFLICT (user_id, day) DO NOTHING`), d.UserID, d.Day, c.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to assign challenge: %w", err)
	}

	var progress models.ChallengeProgress
	if err := tx.Get(&progress, tx.Rebind(`SELECT * FROM challenge_progress WHERE user_id = ? AND day = ?`), d.UserID, d.Day); err != nil {
		return 0, fmt.Errorf("failed to load challenge progress: %w", err)
	}
	if progress.ChallengeID != c.ID {
		// The pool changed since the row was written; the stored challenge stands
		return 0, nil
	}
	if progress.Completed {
		return 0, nil
	}

	progress.Progress++
	progress.Completed = progress.Progress >= c.Goal
	_, err = tx.Exec(tx.Rebind(`UPDATE challenge_progress SET progress = ?, completed = ? WHERE user_id = ? AND day = ?`),
		progress.Progress, progress.Completed, d.UserID, d.Day)
	if err != nil {
		return 0, fmt.Errorf("failed to update challenge progress: %w", err)
	}
	if !progress.Completed {
		return 0, nil
	}
	return c.Reward, nil
}

func getDisposal(tx *sqlx.Tx, id string) (*models.Disposal, error) {
	var d models.Disposal
	err := tx.Get(&d, tx.Rebind(`SELECT * FROM disposals WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up disposal: %w", err)
	}
	return &d, nil
}

func duplicateResult(tx *sqlx.Tx, existing *models.Disposal, userID string) (*DisposalResult, error) {
	if existing.UserID != userID {
		return nil, fmt.Errorf("disposal %s: %w", existing.ID, models.ErrDisposalConflict)
	}

	var user models.User
	if err := tx.Get(&user, tx.Rebind(`SELECT * FROM users WHERE id = ?`), userID); err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &DisposalResult{Disposal: *existing, User: user, Duplicate: true}, nil
}

// ListUserDisposals returns a user's disposals, newest first
func ListUserDisposals(db *sqlx.DB, userID string, limit int) ([]models.Disposal, error) {
	if limit <= 0 {
		limit = 50
	}
	disposals := []models.Disposal{}
	query := db.Rebind(`SELECT * FROM disposals WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`)
	if err := db.Select(&disposals, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to list disposals: %w", err)
	}
	return disposals, nil
}

// GetCategoryCounts returns how many disposals a user made per category
func GetCategoryCounts(db *sqlx.DB, userID string) ([]models.CategoryCount, error) {
	counts := []models.CategoryCount{}
	query := db.Rebind(`SELECT category, COUNT(*) AS count FROM disposals WHERE user_id = ? GROUP BY category ORDER BY category`)
	if err := db.Select(&counts, query, userID); err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}
	return counts, nil
}

// GetLastDisposalAt returns the client timestamp of the user's latest disposal, if any
func GetLastDisposalAt(db *sqlx.DB, userID string) (*int64, error) {
	var last sql.NullInt64
	if err := db.Get(&last, db.Rebind(`SELECT MAX(created_at) FROM disposals WHERE user_id = ?`), userID); err != nil {
		return nil, fmt.Errorf("failed to get last disposal: %w", err)
	}
	if !last.Valid {
		return nil, nil
	}
	return &last.Int64, nil
}

// ─── FCM Tokens ─────────────────────────────────────────────────────────────

// RegisterFCMToken stores or moves a device token to the user
func RegisterFCMToken(db *sqlx.DB, userID, token, deviceType string) error {
	now := time.Now().Unix()
	query := db.Rebind(`
		INSERT INTO fcm_tokens (token, user_id, device_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (token) DO UPDATE SET
			user_id = excluded.user_id,
			device_type = excluded.device_type,
			updated_at = excluded.updated_at
	`)
	if _, err := db.Exec(query, token, userID, deviceType, now, now); err != nil {
		return fmt.Errorf("failed to register FCM token: %w", err)
	}
	return nil
}

// GetUserFCMTokens returns every device token registered to the user
func GetUserFCMTokens(db *sqlx.DB, userID string) ([]string, error) {
	tokens := []string{}
	if err := db.Select(&tokens, db.Rebind(`SELECT token FROM fcm_tokens WHERE user_id = ? ORDER BY updated_at DESC`), userID); err != nil {
		return nil, fmt.Errorf("failed to get FCM tokens: %w", err)
	}
	return tokens, nil
}
