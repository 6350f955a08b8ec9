package geo

import (
	"math"
	"testing"
)

func TestDistanceMeters(t *testing.T) {
	tests := []struct {
		name       string
		lat1, lon1 float64
		lat2, lon2 float64
		want       float64
		tolerance  float64
	}{
		{"same point", 40.7128, -74.0060, 40.7128, -74.0060, 0, 1e-9},
		{"one millidegree of latitude", 0, 0, 0.001, 0, 111.19, 0.1},
		{"five meters north", 40.0, -74.0, 40.000045, -74.0, 5.0, 0.1},
		{"new york to los angeles", 40.7128, -74.0060, 34.0522, -118.2437, 3935746, 2000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceMeters(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("DistanceMeters() = %f, want %f ± %f", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestDistanceIsSymmetric(t *testing.T) {
	a := DistanceKm(51.5074, -0.1278, 48.8566, 2.3522)
	b := DistanceKm(48.8566, 2.3522, 51.5074, -0.1278)
	if math.Abs(a-b) > 1e-9 {
		t.Errorf("distance not symmetric: %f vs %f", a, b)
	}
}

func TestSpeedKmh(t *testing.T) {
	if got := SpeedKmh(100000, 3600*1000); math.Abs(got-100) > 1e-9 {
		t.Errorf("SpeedKmh(100km, 1h) = %f, want 100", got)
	}
	if got := SpeedKmh(5000, 0); got != 0 {
		t.Errorf("SpeedKmh with zero elapsed = %f, want 0", got)
	}
	if got := SpeedKmh(5000, -10); got != 0 {
		t.Errorf("SpeedKmh with negative elapsed = %f, want 0", got)
	}
}
