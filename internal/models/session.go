package models

// Session is the signed-in API account remembered by the CLI
type Session struct {
	UserID    string `json:"user_id" db:"user_id"`
	Email     string `json:"email" db:"email"`
	Token     string `json:"-" db:"token"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
}

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by the login and register endpoints
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}
