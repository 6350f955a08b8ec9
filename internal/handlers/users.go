package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/jmoiron/sqlx"

	"trackeco/internal/database"
	"trackeco/internal/middleware"
	"trackeco/internal/models"
	"trackeco/internal/services"
	"trackeco/pkg/utils"
)

type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"` // "user" or "admin"
}

type CreateUserResponse struct {
	Success bool                 `json:"success"`
	User    *models.UserResponse `json:"user,omitempty"`
	Message string               `json:"message,omitempty"`
}

// CreateUser creates a user with any role
// Requires admin authentication
func CreateUser(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("📥 REQUEST: POST /api/users - Create new user")

		var req CreateUserRequest
		if err := utils.DecodeJSON(w, r, &req); err != nil {
			log.Printf("❌ Invalid request body: %v", err)
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Role == "" {
			req.Role = models.RoleUser
		}

		log.Printf("   📧 Email: %s", req.Email)
		log.Printf("   🔑 Role: %s", req.Role)

		user, status, msg := newUser(req.Email, req.Password, req.Name, req.Role)
		if user == nil {
			log.Printf("❌ %s", msg)
			utils.RespondError(w, status, msg)
			return
		}

		if err := database.CreateUser(db, user); err != nil {
			if errors.Is(err, models.ErrEmailTaken) {
				log.Printf("❌ User already exists: %s", user.Email)
				utils.RespondError(w, http.StatusConflict, "User with this email already exists")
				return
			}
			log.Printf("❌ Failed to create user: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create user")
			return
		}

		log.Printf("✅ User created: %s (%s)", user.Email, user.ID)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

		resp := user.ToUserResponse(services.EcoRank(user.TotalXP))
		utils.RespondJSON(w, http.StatusCreated, CreateUserResponse{
			Success: true,
			User:    &resp,
			Message: "User created successfully",
		})
	}
}

// GetAuthStatus returns the signed-in user with current totals
func GetAuthStatus(db *sqlx.DB) http.HandlerFunc {
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
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load user")
			return
		}

		utils.RespondJSON(w, http.StatusOK, user.ToUserResponse(services.EcoRank(user.TotalXP)))
	}
}
