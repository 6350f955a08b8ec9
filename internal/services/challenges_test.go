package services

import (
	"fmt"
	"testing"

	"trackeco/internal/models"
)

func TestChallengePool(t *testing.T) {
	ids := map[string]bool{}
	for _, c := range ChallengePool {
		if ids[c.ID] {
			t.Errorf("duplicate challenge id %q", c.ID)
		}
		ids[c.ID] = true
		if c.Goal < 1 || c.Reward <= 0 {
			t.Errorf("%s: goal %d reward %d", c.ID, c.Goal, c.Reward)
		}
		if c.Kind != models.ChallengeHotspot {
			if _, ok := categoryBasePoints[c.Category]; !ok {
				t.Errorf("%s: unknown category %q", c.ID, c.Category)
			}
		}
	}
}

func TestDailyChallenge(t *testing.T) {
	a := DailyChallenge("u1", "2026-03-10")
	if b := DailyChallenge("u1", "2026-03-10"); b.ID != a.ID {
		t.Errorf("pick not stable: %s then %s", a.ID, b.ID)
	}

	// Over a month each user should see more than one challenge
	seen := map[string]bool{}
	for day := 1; day <= 28; day++ {
		seen[DailyChallenge("u1", fmt.Sprintf("2026-02-%02d", day)).ID] = true
	}
	if len(seen) < 2 {
		t.Errorf("one challenge all month: %v", seen)
	}
}

func TestChallengeCompletedMessage(t *testing.T) {
	if got := ChallengeCompletedMessage(50); got != "Daily Challenge Complete! +50 points" {
		t.Errorf("message = %q", got)
	}
}
