package database

import (
	"log"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	"trackeco/internal/models"
)

// SeedUsers creates a demo user and an admin on an empty database
func SeedUsers(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM users"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Users already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding demo users...")

	seeds := []struct {
		email, password, name, role string
	}{
		{"demo@trackeco.app", "demo123", "Demo Recycler", models.RoleUser},
		{"admin@trackeco.app", "admin123", "TrackEco Admin", models.RoleAdmin},
	}

	for _, seed := range seeds {
		hash, err := bcrypt.GenerateFromPassword([]byte(seed.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		user := &models.User{
			ID:       uuid.New().String(),
			Email:    seed.email,
			Password: string(hash),
			Name:     seed.name,
			Role:     seed.role,
		}
		if err := CreateUser(db, user); err != nil {
			return err
		}
		log.Printf("  ✓ Created user: %s (%s)", user.Email, user.Role)
	}

	log.Println("✓ Successfully seeded demo users")
	log.Println("  📧 User:  demo@trackeco.app / demo123")
	log.Println("  📧 Admin: admin@trackeco.app / admin123")
	return nil
}
