package models

type User struct {
	ID              string `json:"id" db:"id"`
	Email           string `json:"email" db:"email"`
	Password        string `json:"-" db:"password"` // Never return password in JSON
	Name            string `json:"name" db:"name"`
	Role            string `json:"role" db:"role"` // "user" or "admin"
	TotalPoints     int    `json:"total_points" db:"total_points"`
	TotalXP         int    `json:"total_xp" db:"total_xp"`
	DisposalCount   int    `json:"disposal_count" db:"disposal_count"`
	Streak          int    `json:"streak" db:"streak"`
	LastDisposalDay string `json:"last_disposal_day" db:"last_disposal_day"` // YYYY-MM-DD, UTC
	CreatedAt       int64  `json:"created_at" db:"created_at"`
	UpdatedAt       int64  `json:"updated_at" db:"updated_at"`
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type UserResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	TotalPoints   int    `json:"total_points"`
	TotalXP       int    `json:"total_xp"`
	DisposalCount int    `json:"disposal_count"`
	EcoRank       string `json:"eco_rank"`
	CreatedAt     int64  `json:"created_at"`
}

// ToUserResponse converts a User to UserResponse. The rank is computed by the caller.
func (u *User) ToUserResponse(ecoRank string) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Role:          u.Role,
		TotalPoints:   u.TotalPoints,
		TotalXP:       u.TotalXP,
		DisposalCount: u.DisposalCount,
		EcoRank:       ecoRank,
		CreatedAt:     u.CreatedAt,
	}
}
