package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"trackeco/internal/database"
	"trackeco/internal/middleware"
	"trackeco/internal/models"
	"trackeco/internal/services"
	"trackeco/pkg/utils"
)

const (
	defaultHotspotTTL = 24 * time.Hour
	maxHotspotTTL     = 7 * 24 * time.Hour
)

// GetDailyChallenge returns today's challenge for the signed-in user and their progress on it
func GetDailyChallenge(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		day := models.DayOf(time.Now().UnixMilli())
		progress, err := database.GetChallengeProgress(db, userClaims.UserID, day)
		if err != nil {
			log.Printf("❌ Error loading challenge progress: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load challenge")
			return
		}

		status := models.DailyChallengeStatus{
			Challenge: services.DailyChallenge(userClaims.UserID, day),
			Day:       day,
		}
		if progress != nil {
			if c, ok := services.ChallengeByID(progress.ChallengeID); ok {
				status.Challenge = c
			}
			status.Progress = progress.Progress
			status.Completed = progress.Completed
		}

		utils.RespondJSON(w, http.StatusOK, status)
	}
}

// GetHotspots lists the hotspots that are still active
func GetHotspots(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hotspots, err := database.ListActiveHotspots(db, time.Now())
		if err != nil {
			log.Printf("❌ Error listing hotspots: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to list hotspots")
			return
		}
		utils.RespondJSON(w, http.StatusOK, hotspots)
	}
}

// CreateHotspotRequest is the body of POST /api/hotspots
type CreateHotspotRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Intensity float64 `json:"intensity"`
	TTLHours  int     `json:"ttl_hours"` // defaults to 24
}

// CreateHotspot marks a litter hotspot (admin only)
func CreateHotspot(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateHotspotRequest
		if err := utils.DecodeJSON(w, r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
			utils.RespondError(w, http.StatusBadRequest, "latitude or longitude out of range")
			return
		}
		if req.Intensity < 0 || req.Intensity > 1 {
			utils.RespondError(w, http.StatusBadRequest, "intensity must be between 0 and 1")
			return
		}
		ttl := defaultHotspotTTL
		if req.TTLHours != 0 {
			ttl = time.Duration(req.TTLHours) * time.Hour
		}
		if ttl <= 0 || ttl > maxHotspotTTL {
			utils.RespondError(w, http.StatusBadRequest, "ttl_hours must be between 1 and 168")
			return
		}

		now := time.Now()
		hotspot := &models.Hotspot{
			ID:        uuid.NewString(),
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
			Intensity: req.Intensity,
			CreatedAt: now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		}
		if err := database.CreateHotspot(db, hotspot); err != nil {
			log.Printf("❌ Error creating hotspot: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create hotspot")
			return
		}

		log.Printf("📍 Hotspot %s at (%.5f, %.5f), intensity %.2f, expires in %s",
			hotspot.ID, hotspot.Latitude, hotspot.Longitude, hotspot.Intensity, ttl)
		utils.RespondJSON(w, http.StatusCreated, hotspot)
	}
}
