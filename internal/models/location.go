package models

// Location is a GPS fix reported by the device
type Location struct {
	Latitude  float64  `json:"latitude" db:"latitude"`
	Longitude float64  `json:"longitude" db:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty" db:"accuracy"`   // GPS accuracy in meters
	Timestamp int64    `json:"timestamp,omitempty" db:"timestamp"` // Unix millis of the fix
}
