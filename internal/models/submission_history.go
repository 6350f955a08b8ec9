package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
)

// SubtypeSet is the set of waste subtypes submitted on one calendar day
type SubtypeSet map[string]struct{}

// Has reports whether the subtype is in the set
func (s SubtypeSet) Has(subtype string) bool {
	_, ok := s[subtype]
	return ok
}

// Sorted returns the members in lexical order
func (s SubtypeSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for subtype := range s {
		out = append(out, subtype)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted array
func (s SubtypeSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes an array of subtypes
func (s *SubtypeSet) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	set := make(SubtypeSet, len(list))
	for _, subtype := range list {
		set[subtype] = struct{}{}
	}
	*s = set
	return nil
}

// DailySubtypes maps a calendar date (YYYY-MM-DD) to the subtypes used that day.
// It is stored as a single JSON column.
type DailySubtypes map[string]SubtypeSet

// Value implements driver.Valuer
func (d DailySubtypes) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	data, err := json.Marshal(map[string]SubtypeSet(d))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner. Undecodable content is reported as ErrHistoryCorrupted.
func (d *DailySubtypes) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*d = DailySubtypes{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("%w: unexpected daily_subtypes type %T", ErrHistoryCorrupted, src)
	}

	if len(data) == 0 {
		*d = DailySubtypes{}
		return nil
	}

	var decoded map[string]SubtypeSet
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("%w: %v", ErrHistoryCorrupted, err)
	}
	if decoded == nil {
		decoded = map[string]SubtypeSet{}
	}
	*d = DailySubtypes(decoded)
	return nil
}

// SubmissionHistory is the per-user rolling state consulted by the anti-cheat checks
type SubmissionHistory struct {
	UserID               string        `json:"user_id" db:"user_id"`
	LastSubmissionAt     int64         `json:"last_submission_at" db:"last_submission_at"` // Unix millis, 0 = never
	LastLatitude         *float64      `json:"last_latitude,omitempty" db:"last_latitude"`
	LastLongitude        *float64      `json:"last_longitude,omitempty" db:"last_longitude"`
	DailySubtypes        DailySubtypes `json:"daily_subtypes" db:"daily_subtypes"`
	DailySubmissionCount int           `json:"daily_submission_count" db:"daily_submission_count"`
	LastRolloverDate     string        `json:"last_rollover_date" db:"last_rollover_date"` // YYYY-MM-DD
	UpdatedAt            int64         `json:"updated_at" db:"updated_at"`
}

// NewSubmissionHistory returns an empty history for a user
func NewSubmissionHistory(userID string) *SubmissionHistory {
	return &SubmissionHistory{
		UserID:        userID,
		DailySubtypes: DailySubtypes{},
	}
}

// HasSubmitted reports whether an accepted submission was ever recorded
func (h *SubmissionHistory) HasSubmitted() bool {
	return h.LastSubmissionAt > 0
}

// LastLocation returns the location of the last accepted submission, if any
func (h *SubmissionHistory) LastLocation() *Location {
	if h.LastLatitude == nil || h.LastLongitude == nil {
		return nil
	}
	return &Location{Latitude: *h.LastLatitude, Longitude: *h.LastLongitude}
}

// Rollover resets the per-day state when today differs from the last rollover date.
// It returns true if a reset happened. Calling it twice for the same day is a no-op.
func (h *SubmissionHistory) Rollover(today string) bool {
	if h.LastRolloverDate == today {
		if h.DailySubtypes == nil {
			h.DailySubtypes = DailySubtypes{}
		}
		return false
	}
	h.DailySubtypes = DailySubtypes{}
	h.DailySubmissionCount = 0
	h.LastRolloverDate = today
	return true
}

// SubtypesOn returns the subtypes used on the given day (never nil)
func (h *SubmissionHistory) SubtypesOn(day string) SubtypeSet {
	if set, ok := h.DailySubtypes[day]; ok && set != nil {
		return set
	}
	return SubtypeSet{}
}

// Record applies an accepted submission to the history
func (h *SubmissionHistory) Record(day, subtype string, atMillis int64, loc *Location) {
	h.LastSubmissionAt = atMillis
	if loc != nil {
		lat, lng := loc.Latitude, loc.Longitude
		h.LastLatitude = &lat
		h.LastLongitude = &lng
	}

	if h.DailySubtypes == nil {
		h.DailySubtypes = DailySubtypes{}
	}
	set := h.DailySubtypes[day]
	if set == nil {
		set = SubtypeSet{}
		h.DailySubtypes[day] = set
	}
	set[subtype] = struct{}{}
	h.DailySubmissionCount++
}

// Clone returns a deep copy
func (h *SubmissionHistory) Clone() *SubmissionHistory {
	c := *h
	if h.LastLatitude != nil {
		lat := *h.LastLatitude
		c.LastLatitude = &lat
	}
	if h.LastLongitude != nil {
		lng := *h.LastLongitude
		c.LastLongitude = &lng
	}
	c.DailySubtypes = make(DailySubtypes, len(h.DailySubtypes))
	for day, set := range h.DailySubtypes {
		cp := make(SubtypeSet, len(set))
		for subtype := range set {
			cp[subtype] = struct{}{}
		}
		c.DailySubtypes[day] = cp
	}
	return &c
}
