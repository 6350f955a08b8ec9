package anticheat

import "time"

// ─── Defaults ───────────────────────────────────────────────────────────────

const (
	DefaultCooldown            = 5 * time.Minute
	DefaultMinDistanceMeters   = 10.0
	DefaultMaxDailySubtypes    = 3
	DefaultMaxDailySubmissions = 10
	DefaultSuspiciousSpeedKmh  = 100.0
)

// Config holds the anti-cheat thresholds
type Config struct {
	Cooldown            time.Duration
	MinDistanceMeters   float64
	MaxDailySubtypes    int
	MaxDailySubmissions int
	SuspiciousSpeedKmh  float64

	// Location decides where the calendar day boundary falls. Nil means time.Local.
	Location *time.Location
}

// DefaultConfig returns the production thresholds
func DefaultConfig() Config {
	return Config{
		Cooldown:            DefaultCooldown,
		MinDistanceMeters:   DefaultMinDistanceMeters,
		MaxDailySubtypes:    DefaultMaxDailySubtypes,
		MaxDailySubmissions: DefaultMaxDailySubmissions,
		SuspiciousSpeedKmh:  DefaultSuspiciousSpeedKmh,
		Location:            time.Local,
	}
}

// Day returns the calendar date of t in the configured location (YYYY-MM-DD)
func (c Config) Day(t time.Time) string {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(time.DateOnly)
}
