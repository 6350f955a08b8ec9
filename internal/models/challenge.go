package models

import "time"

// Daily challenge kinds
const (
	ChallengeCount   = "count"   // N disposals in a category
	ChallengeVariety = "variety" // N distinct subtypes in a category
	ChallengeHotspot = "hotspot" // N disposals inside an active hotspot
)

// DayLayout formats the UTC calendar day used for streaks and challenges
const DayLayout = "2006-01-02"

// Challenge is one entry of the daily challenge pool
type Challenge struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Category    string `json:"category,omitempty"`
	Goal        int    `json:"goal"`
	Reward      int    `json:"reward"`
	Description string `json:"description"`
}

// ChallengeProgress is a user's progress on the challenge assigned for one day
type ChallengeProgress struct {
	UserID      string `json:"-" db:"user_id"`
	Day         string `json:"day" db:"day"`
	ChallengeID string `json:"challenge_id" db:"challenge_id"`
	Progress    int    `json:"progress" db:"progress"`
	Completed   bool   `json:"completed" db:"completed"`
}

// DailyChallengeStatus is the body of GET /api/user/challenge
type DailyChallengeStatus struct {
	Challenge
	Day       string `json:"day"`
	Progress  int    `json:"progress"`
	Completed bool   `json:"completed"`
}

// Hotspot is a litter area where disposals count toward hotspot challenges
type Hotspot struct {
	ID        string  `json:"id" db:"id"`
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
	Intensity float64 `json:"intensity" db:"intensity"` // 0..1
	CreatedAt int64   `json:"created_at" db:"created_at"`
	ExpiresAt int64   `json:"expires_at" db:"expires_at"`
}

// DayOf returns the UTC calendar day of a Unix millisecond timestamp
func DayOf(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(DayLayout)
}

// NextStreak advances a day streak for a disposal made on day.
// A disposal the day after lastDay extends the streak, one on lastDay leaves it
// alone, and a gap restarts it at 1. Disposals older than lastDay (late syncs)
// change nothing. Days that fail to parse restart the streak.
func NextStreak(streak int, lastDay, day string) (int, string) {
	if lastDay == "" {
		return 1, day
	}
	last, err1 := time.Parse(DayLayout, lastDay)
	cur, err2 := time.Parse(DayLayout, day)
	if err1 != nil || err2 != nil {
		return 1, day
	}
	switch {
	case cur.Before(last):
		return streak, lastDay
	case cur.Equal(last):
		if streak < 1 {
			streak = 1
		}
		return streak, lastDay
	case cur.Equal(last.AddDate(0, 0, 1)):
		return streak + 1, day
	default:
		return 1, day
	}
}

// CurrentStreak is the streak as of today: it lapses to 0 once a whole day passes without a disposal
func CurrentStreak(streak int, lastDay string, now time.Time) int {
	last, err := time.Parse(DayLayout, lastDay)
	if err != nil {
		return 0
	}
	today, _ := time.Parse(DayLayout, now.UTC().Format(DayLayout))
	if today.Sub(last) > 24*time.Hour {
		return 0
	}
	return streak
}
