package models

import "strings"

// Disposal is a waste record accepted by the server. Its ID is the client record id.
type Disposal struct {
	ID                 string   `json:"id" db:"id"`
	UserID             string   `json:"user_id" db:"user_id"`
	Category           string   `json:"category" db:"category"`
	Subtype            string   `json:"subtype" db:"subtype"`
	Quantity           int      `json:"quantity" db:"quantity"`
	Latitude           *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude          *float64 `json:"longitude,omitempty" db:"longitude"`
	PointsAwarded      int      `json:"points_awarded" db:"points_awarded"`
	XPAwarded          int      `json:"xp_awarded" db:"xp_awarded"`
	BonusPoints        int      `json:"bonus_points" db:"bonus_points"` // daily challenge reward, included in the user's total
	ChallengeCompleted string   `json:"challenge_completed,omitempty" db:"challenge_completed"`
	PointsEstimate     int      `json:"points_estimate" db:"points_estimate"`
	FirstDisposal      bool     `json:"first_disposal" db:"first_disposal"`
	Day                string   `json:"day" db:"day"`                 // UTC day the disposal counts toward
	CreatedAt          int64    `json:"created_at" db:"created_at"`   // client clock, Unix millis
	ReceivedAt         int64    `json:"received_at" db:"received_at"` // server clock, Unix millis
}

// WasteRecordSubmission is the body of POST /api/waste-record
type WasteRecordSubmission struct {
	ID              string   `json:"id"`
	Category        string   `json:"category"`
	Subtype         string   `json:"subtype"`
	Quantity        int      `json:"quantity"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	Accuracy        *float64 `json:"accuracy,omitempty"`
	PointsEstimate  int      `json:"points_estimate"`
	XPEstimate      int      `json:"xp_estimate"`
	TrustMultiplier float64  `json:"trust_multiplier"`
	CreatedAt       int64    `json:"created_at"`
}

// Validate checks the fields the server needs to grant an award
func (s *WasteRecordSubmission) Validate() bool {
	if strings.TrimSpace(s.ID) == "" || strings.TrimSpace(s.Category) == "" || strings.TrimSpace(s.Subtype) == "" {
		return false
	}
	if s.Quantity < 1 {
		return false
	}
	return (s.Latitude == nil) == (s.Longitude == nil)
}

// NewWasteRecordSubmission builds the wire body for a locally stored record
func NewWasteRecordSubmission(r *WasteRecord) WasteRecordSubmission {
	return WasteRecordSubmission{
		ID:              r.ID,
		Category:        r.Category,
		Subtype:         r.Subtype,
		Quantity:        r.Quantity,
		Latitude:        r.Latitude,
		Longitude:       r.Longitude,
		Accuracy:        r.Accuracy,
		PointsEstimate:  r.PointsEarned,
		XPEstimate:      r.XPEarned,
		TrustMultiplier: r.TrustMultiplier,
		CreatedAt:       r.CreatedAt,
	}
}

// ServerAck is the server's answer to a waste record submission
type ServerAck struct {
	Success             bool     `json:"success"`
	Message             string   `json:"message"`
	RecordID            string   `json:"record_id"`
	PointsEarned        int      `json:"points_earned"` // includes any challenge bonus
	XPEarned            int      `json:"xp_earned"`
	NewTotalPoints      int      `json:"new_total_points"`
	NewTotalXP          int      `json:"new_total_xp"`
	NewStreak           int      `json:"new_streak"`
	EcoRank             string   `json:"eco_rank"`
	FirstDisposal       bool     `json:"first_disposal"`
	ChallengesCompleted []string `json:"challenges_completed,omitempty"`
	Duplicate           bool     `json:"duplicate"`
}

// UserStats is the server-side summary returned by GET /api/user/stats
type UserStats struct {
	TotalPoints    int            `json:"total_points"`
	TotalXP        int            `json:"total_xp"`
	DisposalCount  int            `json:"disposal_count"`
	Streak         int            `json:"streak"`
	EcoRank        string         `json:"eco_rank"`
	NextRankAtXP   *int           `json:"next_rank_at_xp,omitempty"`
	ByCategory     map[string]int `json:"by_category"`
	LastDisposalAt *int64         `json:"last_disposal_at,omitempty"`
}

// CategoryCount is one row of a per-category disposal breakdown
type CategoryCount struct {
	Category string `db:"category"`
	Count    int    `db:"count"`
}
