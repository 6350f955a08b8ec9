// Package anticheat decides whether a disposal submission is plausible.
//
// Checks run in a fixed order and the first failure wins:
//
//	cooldown → minimum displacement → daily subtypes → velocity → daily cap
//
// Evaluate never returns an error. Rejections are values.
package anticheat

import (
	"strings"
	"time"

	"trackeco/internal/geo"
	"trackeco/internal/models"
)

// ─── Trust Multiplier ───────────────────────────────────────────────────────

// categoryBonus is added to a base multiplier of 1.0. The result is clamped
// to [0, 1], so every bonus is currently absorbed by the clamp.
var categoryBonus = map[string]float64{
	"plastic": 0.10,
	"paper":   0.05,
	"glass":   0.15,
	"metal":   0.20,
	"organic": 0.05,
}

// TrustMultiplier returns the clamped multiplier for a category
func TrustMultiplier(category string) float64 {
	score := 1.0 + categoryBonus[strings.ToLower(category)]
	return clamp(score, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ─── Types ──────────────────────────────────────────────────────────────────

// Submission is the set of facts evaluated for one disposal
type Submission struct {
	Category string
	Subtype  string
	Quantity int
	Location *models.Location
}

// Decision is the outcome of Evaluate
type Decision struct {
	Accepted                 bool
	Reason                   Reason
	TrustMultiplier          float64
	CooldownRemainingSeconds *int
}

// Message returns the user-facing text for the decision
func (d Decision) Message() string {
	return d.Reason.Message()
}

func reject(reason Reason) Decision {
	return Decision{Reason: reason}
}

// Evaluator applies the anti-cheat checks with a fixed configuration
type Evaluator struct {
	cfg Config
}

// NewEvaluator creates an evaluator. Zero-valued thresholds fall back to defaults.
func NewEvaluator(cfg Config) *Evaluator {
	def := DefaultConfig()
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.MinDistanceMeters <= 0 {
		cfg.MinDistanceMeters = def.MinDistanceMeters
	}
	if cfg.MaxDailySubtypes <= 0 {
		cfg.MaxDailySubtypes = def.MaxDailySubtypes
	}
	if cfg.MaxDailySubmissions <= 0 {
		cfg.MaxDailySubmissions = def.MaxDailySubmissions
	}
	if cfg.SuspiciousSpeedKmh <= 0 {
		cfg.SuspiciousSpeedKmh = def.SuspiciousSpeedKmh
	}
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	return &Evaluator{cfg: cfg}
}

// Config returns the effective configuration
func (e *Evaluator) Config() Config {
	return e.cfg
}

// ─── Evaluation ─────────────────────────────────────────────────────────────

// Evaluate checks a submission against the user's history.
//
// The only mutation of h is the lazy daily rollover, which is idempotent for a
// given day. Accepted submissions must be applied with Commit and persisted
// by the caller; rejected ones leave nothing to persist.
func (e *Evaluator) Evaluate(sub Submission, now time.Time, h *models.SubmissionHistory) Decision {
	if h == nil {
		h = models.NewSubmissionHistory("")
	}

	nowMs := now.UnixMilli()
	elapsedMs := nowMs - h.LastSubmissionAt
	cooldownMs := e.cfg.Cooldown.Milliseconds()

	// 1. Cooldown
	if h.HasSubmitted() && elapsedMs < cooldownMs {
		remainingMs := cooldownMs - elapsedMs
		minutes := (remainingMs + 59999) / 60000
		seconds := int(minutes * 60)
		d := reject(ReasonGPSCooldown)
		d.CooldownRemainingSeconds = &seconds
		return d
	}

	// 2. Minimum displacement
	last := h.LastLocation()
	distance := -1.0
	if sub.Location != nil && last != nil {
		distance = geo.DistanceMeters(last.Latitude, last.Longitude, sub.Location.Latitude, sub.Location.Longitude)
		if distance < e.cfg.MinDistanceMeters {
			return reject(ReasonLocationTooClose)
		}
	}

	// 3. Daily subtype uniqueness
	today := e.cfg.Day(now)
	h.Rollover(today)
	used := h.SubtypesOn(today)
	if used.Has(sub.Subtype) {
		return reject(ReasonSubtypeAlreadyUsed)
	}
	if len(used) >= e.cfg.MaxDailySubtypes {
		return reject(ReasonDailyLimitReached)
	}

	// 4. Velocity
	if distance >= 0 && h.HasSubmitted() && elapsedMs > 0 {
		if geo.SpeedKmh(distance, elapsedMs) > e.cfg.SuspiciousSpeedKmh {
			return reject(ReasonSuspiciousMovement)
		}
	}

	// 5. Daily frequency cap
	if h.DailySubmissionCount >= e.cfg.MaxDailySubmissions {
		return reject(ReasonDailyLimitReached)
	}

	return Decision{
		Accepted:        true,
		TrustMultiplier: TrustMultiplier(sub.Category),
	}
}

// Commit records an accepted submission on the history
func (e *Evaluator) Commit(h *models.SubmissionHistory, sub Submission, now time.Time) {
	today := e.cfg.Day(now)
	h.Rollover(today)
	h.Record(today, sub.Subtype, now.UnixMilli(), sub.Location)
	h.UpdatedAt = now.UnixMilli()
}
