package anticheat

import (
	"fmt"
	"testing"
	"time"

	"trackeco/internal/models"
)

// ─── Helpers ────────────────────────────────────────────────────────────────

var base = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Location = time.UTC
	return NewEvaluator(cfg)
}

func at(lat, lng float64) *models.Location {
	return &models.Location{Latitude: lat, Longitude: lng}
}

func sub(subtype string, loc *models.Location) Submission {
	return Submission{Category: "plastic", Subtype: subtype, Quantity: 1, Location: loc}
}

// accept evaluates and commits, failing the test on rejection
func accept(t *testing.T, e *Evaluator, h *models.SubmissionHistory, s Submission, now time.Time) {
	t.Helper()
	d := e.Evaluate(s, now, h)
	if !d.Accepted {
		t.Fatalf("submission %q at %s rejected with %s", s.Subtype, now.Format(time.RFC3339), d.Reason)
	}
	e.Commit(h, s, now)
}

// ─── Individual Checks ──────────────────────────────────────────────────────

func TestEvaluate_FirstSubmissionAccepted(t *testing.T) {
	e := newTestEvaluator(t)
	h := models.NewSubmissionHistory("user-1")

	d := e.Evaluate(sub("bottle", at(0, 0)), base, h)
	if !d.Accepted {
		t.Fatalf("first submission rejected: %s", d.Reason)
	}
	if d.Reason != ReasonNone {
		t.Errorf("reason = %q, want none", d.Reason)
	}
	if d.CooldownRemainingSeconds != nil {
		t.Errorf("cooldown remaining = %d, want nil", *d.CooldownRemainingSeconds)
	}
}

func TestEvaluate_Cooldown(t *testing.T) {
	tests := []struct {
		elapsed       time.Duration
		wantRemaining int
	}{
		{0, 300},
		{time.Second, 300},
		{60 * time.Second, 240},
		{61 * time.Second, 240},
		{4*time.Minute + 59*time.Second, 60},
		{5*time.Minute - time.Millisecond, 60},
	}

	for _, tt := range tests {
		t.Run(tt.elapsed.String(), func(t *testing.T) {
			e := newTestEvaluator(t)
			h := models.NewSubmissionHistory("user-1")
			accept(t, e, h, sub("bottle", at(0, 0)), base)

			// Far away, new subtype: only the cooldown can fail
			d := e.Evaluate(sub("bag", at(0, 0.001)), base.Add(tt.elapsed), h)
			if d.Accepted || d.Reason != ReasonGPSCooldown {
				t.Fatalf("decision = %+v, want GPS_COOLDOWN", d)
			}
			if d.CooldownRemainingSeconds == nil {
				t.Fatal("cooldown remaining not set")
			}
			if *d.CooldownRemainingSeconds != tt.wantRemaining {
				t.Errorf("cooldown remaining = %d, want %d", *d.CooldownRemainingSeconds, tt.wantRemaining)
			}
		})
	}
}

func TestEvaluate_CooldownWinsOverEverything(t *testing.T) {
	e := newTestEvaluator(t)
	h := models.NewSubmissionHistory("user-1")
	accept(t, e, h, sub("bottle", at(0, 0)), base)

	// Same subtype, same place, teleport-far location: cooldown still reported first
	inputs := []Submission{
		sub("bottle", at(0, 0)),
		sub("bottle", nil),
		sub("can", at(45, 45)),
	}
	for _, s := range inputs {
		d := e.Evaluate(s, base.Add(2*time.Minute), h)
		if d.Reason != ReasonGPSCooldown {
			t.Errorf("Evaluate(%+v) reason = %s, want GPS_COOLDOWN", s, d.Reason)
		}
	}
}

func TestEvaluate_LocationTooClose(t *testing.T) {
	e := newTestEvaluator(t)
	h := models.NewSubmissionHistory("user-1")
	accept(t, e, h, sub("bottle", at(40.0, -74.0)), base)

	// ~5 m north, cooldown elapsed, new subtype
	d := e.Evaluate(sub("bag", at(40.000045, -74.0)), base.Add(6*time.Minute), h)
	if d.Reason != ReasonLocationTooClose {
		t.Errorf("reason = %s, want LOCATION_TOO_CLOSE", d.Reason)
	}

	// ~55 m away is fine
	d = e.Evaluate(sub("bag", at(40.0005, -74.0)), base.Add(6*time.Minute), h)
	if !d.Accepted {
		t.Errorf("55 m away rejected with %s", d.Reason)
	}
}

func TestEvaluate_MissingLocationSkipsDistanceChecks(t *testing.T) {
	e := newTestEvaluator(t)
	h := models.NewSubmissionHistory("user-1")
	accept(t, e, h, sub("bottle", at(0, 0)), base)

	d := e.Evaluate(sub("bag", nil), base.Add(6*time.Minute), h)
	if !d.Accepted {
		t.Fatalf("submission without location rejected: %s", d.Reason)
	}

	h2 := models.NewSubmissionHistory("user-2")
	accept(t, e, h2, sub("bottle", nil), base)
	d = e.Evaluate(sub("bag", at(0, 0)), base.Add(6*time.Minute), h2)
	if !d.Accepted {
		t.Fatalf("submission after location-less history rejected: %s", d.Reason)
	}
}

func TestEvaluate_SubtypeAlreadyUsed(t *testing.T) {
	e := newTestEvaluator(t)
	h := models.NewSubmissionHistory("user-1")
	accept(t, e, h, sub("bottle", at(0, 0)), base)

	d := e.Evaluate(sub("bottle", at(0, 0.01)), base.Add(10*time.Minute), h)
	if d.Reason != ReasonSubtypeAlreadyUsed {
		t.Errorf("reason = %s, want SUBTYPE_ALREADY_USED", d.Reason)
	}
}

func TestEvaluate_FourthSubtypeHitsDailyLimit(t *testing.T) {
	e := newTestEvaluator(t)
	h := models.NewSubmissionHistory("user-1")

	for i, subtype := range []string{"bottle", "bag", "cup"} {
		now := base.Add(time.Duration(i) * 10 * time.Minute)
		accept(t, e, h, sub(subtype, at(0, float64(i)*0.01)), now)
	}

	d := e.Evaluate(sub("straw", at(0, 0.03)), base.Add(30*time.Minute), h)
	if d.Reason != ReasonDailyLimitReached {
		t.Errorf("reason = %s, want DAILY_LIMIT_REACHED", d.Reason)
	}
}

func TestEvaluate_SuspiciousMovement(t *testing.T) {
	e := newTestEvaluator(t)
	h := models.NewSubmissionHistory("user-1")
	accept(t, e, h, sub("bottle", at(0, 0)), base)

	// ~111 km in 6 minutes is over 1000 km/h
	d := e.Evaluate(sub("bag", at(1, 0)), base.Add(6*time.Minute), h)
	if d.Reason != ReasonSuspiciousMovement {
		t.Errorf("reason = %s, want SUSPICIOUS_MOVEMENT", d.Reason)
	}

	// ~5.5 km in 6 minutes is 55 km/h
	d = e.Evaluate(sub("bag", at(0.05, 0)), base.Add(6*time.Minute), h)
	if !d.Accepted {
		t.Errorf("55 km/h rejected with %s", d.Reason)
	}
}

func TestEvaluate_DailySubmissionCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Location = time.UTC
	cfg.MaxDailySubtypes = 50
	e := NewEvaluator(cfg)
	h := models.NewSubmissionHistory("user-1")

	for i := 0; i < DefaultMaxDailySubmissions; i++ {
		now := base.Add(time.Duration(i) * 10 * time.Minute)
		accept(t, e, h, sub(fmt.Sprintf("item-%d", i), at(0, float64(i)*0.01)), now)
	}

	d := e.Evaluate(sub("item-last", at(0, 0.5)), base.Add(3*time.Hour), h)
	if d.Reason != ReasonDailyLimitReached {
		t.Errorf("reason = %s, want DAILY_LIMIT_REACHED", d.Reason)
	}
}

// ─── Properties ─────────────────────────────────────────────────────────────

func TestEvaluate_Idempotent(t *testing.T) {
	e := newTestEvaluator(t)
	h := models.NewSubmissionHistory("user-1")
	accept(t, e, h, sub("bottle", at(0, 0)), base)

	cases := []struct {
		s   Submission
		now time.Time
	}{
		{sub("bag", at(0, 0.001)), base.Add(time.Minute)},
		{sub("bottle", at(0, 0.01)), base.Add(10 * time.Minute)},
		{sub("bag", at(0, 0.01)), base.Add(10 * time.Minute)},
		{sub("bag", at(0, 0.01)), base.Add(24 * time.Hour)},
	}
	for _, c := range cases {
		snapshot := h.Clone()
		first := e.Evaluate(c.s, c.now, snapshot)
		for i := 0; i < 3; i++ {
			again := e.Evaluate(c.s, c.now, snapshot)
			if again.Accepted != first.Accepted || again.Reason != first.Reason || again.TrustMultiplier != first.TrustMultiplier {
				t.Fatalf("run %d: decision %+v differs from first %+v", i, again, first)
			}
			if (again.CooldownRemainingSeconds == nil) != (first.CooldownRemainingSeconds == nil) {
				t.Fatalf("run %d: cooldown presence differs", i)
			}
		}
	}
}

func TestEvaluate_DailyRollover(t *testing.T) {
	e := newTestEvaluator(t)
	h := models.NewSubmissionHistory("user-1")
	accept(t, e, h, sub("bottle", at(0, 0)), base)

	if d := e.Evaluate(sub("bottle", at(0, 0.01)), base.Add(time.Hour), h); d.Reason != ReasonSubtypeAlreadyUsed {
		t.Fatalf("same-day repeat reason = %s, want SUBTYPE_ALREADY_USED", d.Reason)
	}

	tomorrow := base.Add(24 * time.Hour)
	d := e.Evaluate(sub("bottle", at(0, 0.01)), tomorrow, h)
	if !d.Accepted {
		t.Fatalf("next-day repeat rejected with %s", d.Reason)
	}
	if h.LastRolloverDate != "2026-03-11" {
		t.Errorf("last rollover date = %q, want 2026-03-11", h.LastRolloverDate)
	}
	if h.DailySubmissionCount != 0 {
		t.Errorf("daily count after rollover = %d, want 0", h.DailySubmissionCount)
	}
	if len(h.SubtypesOn("2026-03-10")) != 0 {
		t.Error("previous day subtypes survived rollover")
	}
}

func TestEvaluate_RolloverUsesConfiguredZone(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	cfg := DefaultConfig()
	cfg.Location = tokyo
	e := NewEvaluator(cfg)
	h := models.NewSubmissionHistory("user-1")

	// 14:00 UTC is 23:00 JST; 16:00 UTC is already the next day in Tokyo
	first := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	accept(t, e, h, sub("bottle", at(0, 0)), first)

	d := e.Evaluate(sub("bottle", at(0, 0.01)), first.Add(2*time.Hour), h)
	if !d.Accepted {
		t.Errorf("repeat after JST midnight rejected with %s", d.Reason)
	}
}

func TestEvaluate_NilHistory(t *testing.T) {
	e := newTestEvaluator(t)
	d := e.Evaluate(sub("bottle", nil), base, nil)
	if !d.Accepted {
		t.Errorf("nil history rejected with %s", d.Reason)
	}
}

func TestTrustMultiplierIsClamped(t *testing.T) {
	for _, category := range []string{"plastic", "paper", "glass", "metal", "organic", "electronic", "PLASTIC", ""} {
		if got := TrustMultiplier(category); got != 1.0 {
			t.Errorf("TrustMultiplier(%q) = %f, want 1.0", category, got)
		}
	}
}

func TestCommit(t *testing.T) {
	e := newTestEvaluator(t)
	h := models.NewSubmissionHistory("user-1")
	s := sub("bottle", at(12.5, -3.25))

	e.Commit(h, s, base)

	if h.LastSubmissionAt != base.UnixMilli() {
		t.Errorf("last submission = %d, want %d", h.LastSubmissionAt, base.UnixMilli())
	}
	loc := h.LastLocation()
	if loc == nil || loc.Latitude != 12.5 || loc.Longitude != -3.25 {
		t.Errorf("last location = %+v, want (12.5, -3.25)", loc)
	}
	if !h.SubtypesOn("2026-03-10").Has("bottle") {
		t.Error("subtype not recorded for today")
	}
	if h.DailySubmissionCount != 1 {
		t.Errorf("daily count = %d, want 1", h.DailySubmissionCount)
	}

	// Commit without a location keeps the previous one
	e.Commit(h, sub("bag", nil), base.Add(10*time.Minute))
	if loc := h.LastLocation(); loc == nil || loc.Latitude != 12.5 {
		t.Errorf("location lost after location-less commit: %+v", loc)
	}
}

func TestReasonMessages(t *testing.T) {
	seen := map[string]Reason{}
	for _, r := range Reasons() {
		msg := r.Message()
		if msg == "" || msg == ReasonNone.Message() {
			t.Errorf("%s has no distinct message", r)
		}
		if prev, ok := seen[msg]; ok {
			t.Errorf("%s and %s share message %q", r, prev, msg)
		}
		seen[msg] = r
	}
}

// ─── Scenario ───────────────────────────────────────────────────────────────

func TestEvaluate_Scenario(t *testing.T) {
	e := newTestEvaluator(t)
	h := models.NewSubmissionHistory("user-1")

	// t=0 at (0,0)
	d := e.Evaluate(sub("bottle", at(0, 0)), base, h)
	if !d.Accepted {
		t.Fatalf("step 1 rejected: %s", d.Reason)
	}
	if d.TrustMultiplier != 1.0 {
		t.Errorf("step 1 multiplier = %f, want 1.0", d.TrustMultiplier)
	}
	e.Commit(h, sub("bottle", at(0, 0)), base)

	// t=60s, same place and subtype
	d = e.Evaluate(sub("bottle", at(0, 0)), base.Add(60*time.Second), h)
	if d.Reason != ReasonGPSCooldown {
		t.Fatalf("step 2 reason = %s, want GPS_COOLDOWN", d.Reason)
	}
	if d.CooldownRemainingSeconds == nil || *d.CooldownRemainingSeconds != 240 {
		t.Errorf("step 2 cooldown remaining = %v, want 240", d.CooldownRemainingSeconds)
	}

	// t=301s, ~55 m east
	step3 := base.Add(301 * time.Second)
	d = e.Evaluate(sub("bag", at(0, 0.0005)), step3, h)
	if !d.Accepted {
		t.Fatalf("step 3 rejected: %s", d.Reason)
	}
	e.Commit(h, sub("bag", at(0, 0.0005)), step3)

	// Same day, bottle again, well past cooldown and far enough away
	d = e.Evaluate(sub("bottle", at(0, 0.01)), base.Add(time.Hour), h)
	if d.Reason != ReasonSubtypeAlreadyUsed {
		t.Errorf("step 4 reason = %s, want SUBTYPE_ALREADY_USED", d.Reason)
	}
}
