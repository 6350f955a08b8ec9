package main

import (
	"errors"
	"flag"
	"log"
	"os"
	"strings"

	"trackeco/internal/config"
	"trackeco/internal/database"
	"trackeco/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Creates accounts on the server database, e.g. the first admin:
//
//	adduser -email ops@trackeco.app -name Ops -role admin
//
// The password is read from TRACKECO_NEW_PASSWORD so it stays out of shell history.
func main() {
	email := flag.String("email", "", "account email")
	name := flag.String("name", "", "display name")
	role := flag.String("role", models.RoleUser, "user or admin")
	flag.Parse()

	config.LoadDotEnv()

	password := os.Getenv("TRACKECO_NEW_PASSWORD")
	if *email == "" || *name == "" || password == "" {
		log.Fatal("-email, -name and TRACKECO_NEW_PASSWORD are required")
	}
	if *role != models.RoleUser && *role != models.RoleAdmin {
		log.Fatalf("invalid role %q", *role)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}
	driver := os.Getenv("DATABASE_DRIVER")
	if driver == "" {
		driver = database.DriverPostgres
	}

	db, err := database.Connect(driver, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	user := &models.User{
		ID:       uuid.NewString(),
		Email:    strings.TrimSpace(*email),
		Password: string(hash),
		Name:     *name,
		Role:     *role,
	}
	if err := database.CreateUser(db, user); err != nil {
		if errors.Is(err, models.ErrEmailTaken) {
			log.Printf("⚠️  User already exists: %s", user.Email)
			return
		}
		log.Fatalf("❌ Failed to create user %s: %v", user.Email, err)
	}

	log.Printf("✅ Created %s user: %s", user.Role, user.Email)
}
