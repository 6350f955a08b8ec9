package services

import "testing"

func TestEstimatePoints(t *testing.T) {
	tests := []struct {
		category, subtype string
		quantity          int
		wantPoints        int
		wantXP            int
	}{
		{"plastic", "bottle", 1, 10, 10},
		{"Plastic", "bottle", 3, 30, 30},
		{"metal", "can", 1, 15, 15},
		{"glass", "jar", 2, 24, 24},
		{"paper", "newspaper", 1, 8, 8},
		{"organic", "peel", 1, 5, 5},
		{"electronic", "battery", 1, 50, 60},
		{"electronic", "cable", 1, 25, 30},
		{"hazardous", "paint", 1, 75, 90},
		{"hazardous", "oil", 3, 225, 270},
		{"plastic", "styrofoam", 1, 15, 15},
		{"plastic", "bubble_wrap", 3, 45, 45},
		{"textile", "shirt", 1, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.category+"/"+tt.subtype, func(t *testing.T) {
			if got := EstimatePoints(tt.category, tt.subtype, tt.quantity); got != tt.wantPoints {
				t.Errorf("EstimatePoints = %d, want %d", got, tt.wantPoints)
			}
			if got := EstimateXP(tt.category, tt.subtype, tt.quantity); got != tt.wantXP {
				t.Errorf("EstimateXP = %d, want %d", got, tt.wantXP)
			}
		})
	}
}

func TestApplyTrust(t *testing.T) {
	if got := ApplyTrust(75, 1.0); got != 75 {
		t.Errorf("ApplyTrust(75, 1.0) = %d, want 75", got)
	}
	if got := ApplyTrust(15, 0.5); got != 7 {
		t.Errorf("ApplyTrust(15, 0.5) = %d, want 7", got)
	}
	if got := ApplyTrust(10, 0); got != 0 {
		t.Errorf("ApplyTrust(10, 0) = %d, want 0", got)
	}
}

func TestAwardFor(t *testing.T) {
	tests := []struct {
		name                   string
		firstEver, newCategory bool
		wantPoints, wantXP     int
	}{
		{"standard", false, false, 10, 15},
		{"new category", false, true, 10, 25},
		{"first ever", true, true, 200, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points, xp := AwardFor(tt.firstEver, tt.newCategory)
			if points != tt.wantPoints || xp != tt.wantXP {
				t.Errorf("AwardFor = %d/%d, want %d/%d", points, xp, tt.wantPoints, tt.wantXP)
			}
		})
	}
}

func TestEcoRank(t *testing.T) {
	tests := []struct {
		xp   int
		want string
		next int
	}{
		{0, "Eco Novice", 100},
		{99, "Eco Novice", 100},
		{100, "Eco Cadet", 300},
		{599, "Eco Guardian", 600},
		{600, "Eco Champion", 1000},
		{1499, "Eco Master", 1500},
		{1500, "Eco Legend", 0},
	}
	for _, tt := range tests {
		if got := EcoRank(tt.xp); got != tt.want {
			t.Errorf("EcoRank(%d) = %q, want %q", tt.xp, got, tt.want)
		}
		next := NextRankAt(tt.xp)
		if tt.next == 0 {
			if next != nil {
				t.Errorf("NextRankAt(%d) = %d, want nil", tt.xp, *next)
			}
		} else if next == nil || *next != tt.next {
			t.Errorf("NextRankAt(%d) = %v, want %d", tt.xp, next, tt.next)
		}
	}
}
