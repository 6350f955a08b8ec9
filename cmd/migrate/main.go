package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"trackeco/internal/config"
	"trackeco/internal/database"

	"github.com/jmoiron/sqlx"
)

func main() {
	local := flag.String("local", "", "migrate an on-device SQLite store at this path instead of the server database")
	seed := flag.Bool("seed", false, "create the demo users after migrating the server database")
	flag.Parse()

	if *local != "" {
		db, err := database.OpenLocal(*local)
		if err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		defer db.Close()
		summarize(db, []string{"waste_records", "submission_history", "sessions"})
		return
	}

	if !config.LoadDotEnv() {
		log.Println("No .env file found, using environment variables")
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

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migration completed successfully!")

	if *seed {
		if err := database.SeedUsers(db); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
	}

	summarize(db, []string{"users", "disposals", "fcm_tokens"})
}

func summarize(db *sqlx.DB, tables []string) {
	fmt.Println("\n============================================================")
	fmt.Println("MIGRATION SUMMARY")
	fmt.Println("============================================================")
	for _, table := range tables {
		var count int
		if err := db.Get(&count, "SELECT COUNT(*) FROM "+table); err != nil {
			log.Fatalf("Failed to query %s: %v", table, err)
		}
		fmt.Printf("%-24s %d rows\n", table+":", count)
	}
	fmt.Println("============================================================")
}
