package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"trackeco/internal/database"
	"trackeco/internal/middleware"
	"trackeco/internal/models"
	"trackeco/internal/services"
	"trackeco/pkg/utils"
)

const minPasswordLength = 6

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Login exchanges email and password for a signed token
func Login(db *sqlx.DB, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		if err := utils.DecodeJSON(w, r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		log.Printf("🔐 Login attempt for: %s", req.Email)

		user, err := database.GetUserByEmail(db, req.Email)
		if errors.Is(err, models.ErrUserNotFound) {
			log.Printf("❌ User not found: %s", req.Email)
			utils.RespondError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		if err != nil {
			log.Printf("❌ Error loading user: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to log in")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			log.Printf("❌ Invalid password for: %s", req.Email)
			utils.RespondError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}

		respondWithToken(w, http.StatusOK, jwtSecret, user)
		log.Printf("✅ Login successful: %s (%s)", user.Email, user.Role)
	}
}

// Register creates a regular user account and signs it in
func Register(db *sqlx.DB, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := utils.DecodeJSON(w, r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		user, status, msg := newUser(req.Email, req.Password, req.Name, models.RoleUser)
		if user == nil {
			utils.RespondError(w, status, msg)
			return
		}

		if err := database.CreateUser(db, user); err != nil {
			if errors.Is(err, models.ErrEmailTaken) {
				utils.RespondError(w, http.StatusConflict, "User with this email already exists")
				return
			}
			log.Printf("❌ Failed to create user: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create user")
			return
		}

		log.Printf("✅ Registered: %s", user.Email)
		respondWithToken(w, http.StatusCreated, jwtSecret, user)
	}
}

// newUser validates the fields and hashes the password. On failure it
// returns a nil user with the HTTP status and message to answer with.
func newUser(email, password, name, role string) (*models.User, int, string) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" || strings.TrimSpace(name) == "" {
		return nil, http.StatusBadRequest, "Email, password, and name are required"
	}
	if !strings.Contains(email, "@") {
		return nil, http.StatusBadRequest, "Invalid email address"
	}
	if len(password) < minPasswordLength {
		return nil, http.StatusBadRequest, "Password must be at least 6 characters"
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, http.StatusBadRequest, "Role must be 'user' or 'admin'"
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("❌ Failed to hash password: %v", err)
		return nil, http.StatusInternalServerError, "Failed to hash password"
	}

	return &models.User{
		ID:       uuid.NewString(),
		Email:    email,
		Password: string(hashedPassword),
		Name:     strings.TrimSpace(name),
		Role:     role,
	}, 0, ""
}

func respondWithToken(w http.ResponseWriter, status int, jwtSecret string, user *models.User) {
	token, err := middleware.IssueToken(jwtSecret, middleware.UserClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	}, time.Now())
	if err != nil {
		log.Printf("❌ Failed to create token: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Failed to create token")
		return
	}

	utils.RespondJSON(w, status, models.LoginResponse{
		Token: token,
		User:  user.ToUserResponse(services.EcoRank(user.TotalXP)),
	})
}
