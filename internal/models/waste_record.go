package models

import (
	"database/sql/driver"
	"time"
)

// SyncState is the lifecycle label of a locally stored waste record
type SyncState string

const (
	SyncStatePending SyncState = "pending"
	SyncStateSynced  SyncState = "synced"
	// SyncStateFailed is a reporting label only. Rows are never stored with it;
	// a pending row with at least one failed attempt is displayed as failed.
	SyncStateFailed SyncState = "failed"
)

// Value implements driver.Valuer
func (s SyncState) Value() (driver.Value, error) {
	return string(s), nil
}

// WasteRecord is one disposal submission stored on the device.
// It stays the durable audit trail even after the server has acknowledged it.
type WasteRecord struct {
	Seq               int64     `json:"-" db:"seq"`
	ID                string    `json:"id" db:"id"`
	UserID            string    `json:"user_id" db:"user_id"`
	Category          string    `json:"category" db:"category"`
	Subtype           string    `json:"subtype" db:"subtype"`
	Quantity          int       `json:"quantity" db:"quantity"`
	Latitude          *float64  `json:"latitude,omitempty" db:"latitude"`
	Longitude         *float64  `json:"longitude,omitempty" db:"longitude"`
	Accuracy          *float64  `json:"accuracy,omitempty" db:"accuracy"`
	PointsEarned      int       `json:"points_earned" db:"points_earned"`
	XPEarned          int       `json:"xp_earned" db:"xp_earned"`
	TrustMultiplier   float64   `json:"trust_multiplier" db:"trust_multiplier"`
	SyncState         SyncState `json:"sync_state" db:"sync_state"`
	SyncAttempts      int       `json:"sync_attempts" db:"sync_attempts"`
	CreatedAt         int64     `json:"created_at" db:"created_at"`                                 // Unix millis
	LastSyncAttemptAt *int64    `json:"last_sync_attempt_at,omitempty" db:"last_sync_attempt_at"` // Unix millis
	SyncedAt          *int64    `json:"synced_at,omitempty" db:"synced_at"`                         // Unix millis
}

// Location returns the record's GPS fix, or nil when none was captured
func (r *WasteRecord) Location() *Location {
	if r.Latitude == nil || r.Longitude == nil {
		return nil
	}
	return &Location{
		Latitude:  *r.Latitude,
		Longitude: *r.Longitude,
		Accuracy:  r.Accuracy,
	}
}

// SetLocation copies a GPS fix onto the record. A nil location clears it.
func (r *WasteRecord) SetLocation(loc *Location) {
	if loc == nil {
		r.Latitude, r.Longitude, r.Accuracy = nil, nil, nil
		return
	}
	lat, lng := loc.Latitude, loc.Longitude
	r.Latitude = &lat
	r.Longitude = &lng
	r.Accuracy = loc.Accuracy
}

// DisplayState returns the state shown to the user
func (r *WasteRecord) DisplayState() SyncState {
	if r.SyncState == SyncStatePending && r.SyncAttempts > 0 {
		return SyncStateFailed
	}
	return r.SyncState
}

// WasteRecordResponse is what the CLI and API print for a record
type WasteRecordResponse struct {
	ID             string   `json:"id"`
	Category       string   `json:"category"`
	Subtype        string   `json:"subtype"`
	Quantity       int      `json:"quantity"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	Points         int      `json:"points"`
	XP             int      `json:"xp"`
	State          string   `json:"state"`
	SyncAttempts   int      `json:"syncAttempts"`
	CreatedAtIso   string   `json:"createdAtIso"`
	LastAttemptIso *string  `json:"lastAttemptIso,omitempty"`
}

// ToWasteRecordResponse converts a WasteRecord to WasteRecordResponse
func (r *WasteRecord) ToWasteRecordResponse() WasteRecordResponse {
	resp := WasteRecordResponse{
		ID:           r.ID,
		Category:     r.Category,
		Subtype:      r.Subtype,
		Quantity:     r.Quantity,
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
		Points:       r.PointsEarned,
		XP:           r.XPEarned,
		State:        string(r.DisplayState()),
		SyncAttempts: r.SyncAttempts,
		CreatedAtIso: time.UnixMilli(r.CreatedAt).Format(time.RFC3339),
	}

	if r.LastSyncAttemptAt != nil {
		iso := time.UnixMilli(*r.LastSyncAttemptAt).Format(time.RFC3339)
		resp.LastAttemptIso = &iso
	}

	return resp
}

// RecordStats summarises a user's local record log
type RecordStats struct {
	Total         int `json:"total" db:"total"`
	Pending       int `json:"pending" db:"pending"`
	Synced        int `json:"synced" db:"synced"`
	FailedOnce    int `json:"failed" db:"failed"`
	PointsSynced  int `json:"points_synced" db:"points_synced"`
	PointsPending int `json:"points_pending" db:"points_pending"`
}
