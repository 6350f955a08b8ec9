package services

import "strings"

var categoryBasePoints = map[string]int{
	"plastic":    10,
	"metal":      15,
	"glass":      12,
	"paper":      8,
	"organic":    5,
	"electronic": 25,
	"hazardous":  30,
}

const defaultBasePoints = 10

// ratio is an exact multiplier so truncation never depends on float rounding
type ratio struct{ num, den int }

var subtypeRarity = map[string]ratio{
	"battery":     {2, 1},
	"phone":       {2, 1},
	"laptop":      {2, 1},
	"chemical":    {5, 2},
	"paint":       {5, 2},
	"oil":         {5, 2},
	"styrofoam":   {3, 2},
	"bubble_wrap": {3, 2},
}

// EstimatePoints returns the local point estimate before the trust multiplier
func EstimatePoints(category, subtype string, quantity int) int {
	base, ok := categoryBasePoints[strings.ToLower(category)]
	if !ok {
		base = defaultBasePoints
	}
	r, ok := subtypeRarity[strings.ToLower(subtype)]
	if !ok {
		r = ratio{1, 1}
	}
	return base * quantity * r.num / r.den
}

// EstimateXP returns the local XP estimate before the trust multiplier.
// Electronic and hazardous disposals earn a 20% learning bonus.
func EstimateXP(category, subtype string, quantity int) int {
	points := EstimatePoints(category, subtype, quantity)
	switch strings.ToLower(category) {
	case "electronic", "hazardous":
		return points * 6 / 5
	default:
		return points
	}
}

// ApplyTrust scales an estimate by the trust multiplier, truncating toward zero
func ApplyTrust(value int, multiplier float64) int {
	return int(float64(value) * multiplier)
}
