package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"trackeco/internal/database"
	"trackeco/internal/metrics"
	"trackeco/internal/middleware"
	"trackeco/internal/models"
	"trackeco/internal/services"
	"trackeco/internal/websocket"
	"trackeco/pkg/utils"
)

const pushTimeout = 10 * time.Second

var awardRules = database.Rules{
	Award:     services.AwardFor,
	Challenge: services.DailyChallenge,
}

// AwardNotifier pushes award notifications to a user's devices
type AwardNotifier interface {
	NotifyAward(ctx context.Context, tokens []string, ack models.ServerAck) error
}

// SubmitWasteRecord credits a disposal synced from a device.
//
// The record id makes the call idempotent: a replay returns the original award
// with duplicate=true and credits nothing. notifier may be nil.
func SubmitWasteRecord(db *sqlx.DB, hub *websocket.Hub, notifier AwardNotifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req models.WasteRecordSubmission
		if err := utils.DecodeJSON(w, r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if !req.Validate() {
			utils.RespondError(w, http.StatusBadRequest, "id, category, subtype and a positive quantity are required")
			return
		}

		createdAt := req.CreatedAt
		if createdAt <= 0 {
			createdAt = time.Now().UnixMilli()
		}
		disposal := &models.Disposal{
			ID:             req.ID,
			UserID:         userClaims.UserID,
			Category:       strings.ToLower(strings.TrimSpace(req.Category)),
			Subtype:        strings.ToLower(strings.TrimSpace(req.Subtype)),
			Quantity:       req.Quantity,
			Latitude:       req.Latitude,
			Longitude:      req.Longitude,
			PointsEstimate: req.PointsEstimate,
			CreatedAt:      createdAt,
		}

		result, err := database.RecordDisposal(db, disposal, awardRules)
		switch {
		case errors.Is(err, models.ErrDisposalConflict):
			log.Printf("❌ Record id %s already belongs to another user", req.ID)
			utils.RespondError(w, http.StatusConflict, "Record id already used")
			return
		case errors.Is(err, models.ErrUserNotFound):
			utils.RespondError(w, http.StatusUnauthorized, "User no longer exists")
			return
		case err != nil:
			log.Printf("❌ Error recording disposal: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to record disposal")
			return
		}

		ack := models.ServerAck{
			Success:        true,
			Message:        "Disposal recorded",
			RecordID:       result.Disposal.ID,
			PointsEarned:   result.Disposal.PointsAwarded + result.Disposal.BonusPoints,
			XPEarned:       result.Disposal.XPAwarded,
			NewTotalPoints: result.User.TotalPoints,
			NewTotalXP:     result.User.TotalXP,
			NewStreak:      result.User.Streak,
			EcoRank:        services.EcoRank(result.User.TotalXP),
			FirstDisposal:  result.Disposal.FirstDisposal,
			Duplicate:      result.Duplicate,
		}
		if result.Disposal.BonusPoints > 0 {
			ack.ChallengesCompleted = []string{services.ChallengeCompletedMessage(result.Disposal.BonusPoints)}
		}

		if result.Duplicate {
			ack.Message = "Disposal already recorded"
			metrics.AwardsGranted.WithLabelValues("duplicate").Inc()
			log.Printf("🔁 Duplicate submission %s from %s", req.ID, userClaims.Email)
			utils.RespondJSON(w, http.StatusOK, ack)
			return
		}

		kind := "standard"
		if ack.FirstDisposal {
			kind = "first_disposal"
		}
		metrics.AwardsGranted.WithLabelValues(kind).Inc()
		metrics.PointsAwarded.Add(float64(ack.PointsEarned))
		if len(ack.ChallengesCompleted) > 0 {
			metrics.AwardsGranted.WithLabelValues("daily_challenge").Inc()
			log.Printf("🏆 %s completed daily challenge %s", userClaims.Email, result.Disposal.ChallengeCompleted)
		}

		log.Printf("✅ Disposal %s credited to %s: +%d pts, +%d XP, streak %d (%s)",
			ack.RecordID, userClaims.Email, ack.PointsEarned, ack.XPEarned, ack.NewStreak, ack.EcoRank)

		if hub != nil {
			hub.BroadcastToUser(userClaims.UserID, websocket.Event{Type: "points_awarded", Data: ack})
		}
		if notifier != nil && ack.FirstDisposal {
			go pushAward(db, notifier, userClaims.UserID, ack)
		}

		utils.RespondJSON(w, http.StatusCreated, ack)
	}
}

func pushAward(db *sqlx.DB, notifier AwardNotifier, userID string, ack models.ServerAck) {
	tokens, err := database.GetUserFCMTokens(db, userID)
	if err != nil {
		log.Printf("⚠️  Could not load FCM tokens for %s: %v", userID, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if err := notifier.NotifyAward(ctx, tokens, ack); err != nil {
		log.Printf("⚠️  Award push failed for %s: %v", userID, err)
	}
}

// GetUserRecords lists the signed-in user's credited disposals, newest first
func GetUserRecords(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > 500 {
				utils.RespondError(w, http.StatusBadRequest, "limit must be between 1 and 500")
				return
			}
			limit = n
		}

		disposals, err := database.ListUserDisposals(db, userClaims.UserID, limit)
		if err != nil {
			log.Printf("❌ Error listing disposals: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to list records")
			return
		}

		utils.RespondJSON(w, http.StatusOK, disposals)
	}
}

// GetUserStats returns the signed-in user's totals, rank and category breakdown
func GetUserStats(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		user, err := database.GetUserByID(db, userClaims.UserID)
		if errors.Is(err, models.ErrUserNotFound) {
			utils.RespondError(w, http.StatusUnauthorized, "User no longer exists")
			return
		}
		if err != nil {
			log.Printf("❌ Error loading user: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load stats")
			return
		}

		counts, err := database.GetCategoryCounts(db, user.ID)
		if err != nil {
			log.Printf("❌ Error counting categories: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load stats")
			return
		}
		lastAt, err := database.GetLastDisposalAt(db, user.ID)
		if err != nil {
			log.Printf("❌ Error loading last disposal: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load stats")
			return
		}

		byCategory := make(map[string]int, len(counts))
		for _, c := range counts {
			byCategory[c.Category] = c.Count
		}

		utils.RespondJSON(w, http.StatusOK, models.UserStats{
			TotalPoints:    user.TotalPoints,
			TotalXP:        user.TotalXP,
			DisposalCount:  user.DisposalCount,
			Streak:         models.CurrentStreak(user.Streak, user.LastDisposalDay, time.Now()),
			EcoRank:        services.EcoRank(user.TotalXP),
			NextRankAtXP:   services.NextRankAt(user.TotalXP),
			ByCategory:     byCategory,
			LastDisposalAt: lastAt,
		})
	}
}

// RegisterFCMToken stores a device token for award pushes
func RegisterFCMToken(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req struct {
			Token      string `json:"token"`
			DeviceType string `json:"device_type"`
		}
		if err := utils.DecodeJSON(w, r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if strings.TrimSpace(req.Token) == "" {
			utils.RespondError(w, http.StatusBadRequest, "token is required")
			return
		}
		if req.DeviceType != "ios" && req.DeviceType != "android" {
			utils.RespondError(w, http.StatusBadRequest, "Invalid device_type (must be 'ios' or 'android')")
			return
		}

		if err := database.RegisterFCMToken(db, userClaims.UserID, req.Token, req.DeviceType); err != nil {
			log.Printf("❌ Error registering FCM token: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to register FCM token")
			return
		}

		log.Printf("📱 FCM token registered: %s (%s)", userClaims.Email, req.DeviceType)

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "FCM token registered successfully",
		})
	}
}

// Health answers the device connectivity probe. It fails when the database is unreachable.
func Health(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			log.Printf("❌ Health check failed: %v", err)
			utils.RespondError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		w.Write([]byte("OK"))
	}
}
