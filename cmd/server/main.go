package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trackeco/internal/config"
	"trackeco/internal/database"
	"trackeco/internal/handlers"
	"trackeco/internal/middleware"
	"trackeco/internal/services"
	"trackeco/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func fatal(title string, err error) {
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Printf("❌ FATAL ERROR: %s", title)
	log.Printf("   Error: %v", err)
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	os.Exit(1)
}

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 TRACKECO API SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	log.Println("📂 Loading environment variables...")
	if config.LoadDotEnv() {
		log.Println("✅ .env file loaded successfully")
	} else {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	}

	cfg, err := config.LoadServer()
	if err != nil {
		fatal("Invalid configuration", err)
	}

	log.Println("🔌 Connecting to database...")
	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		fatal("Database connection failed", err)
	}
	defer db.Close()

	log.Println("🔄 Running database migrations...")
	if err := database.Migrate(db); err != nil {
		fatal("Database migrations failed", err)
	}
	log.Println("✅ Database migrations completed")

	if cfg.SeedUsers {
		if err := database.SeedUsers(db); err != nil {
			fatal("User seeding failed", err)
		}
	}

	// Supports both file path and base64-encoded credentials (for hosts without a writable filesystem)
	var notifier handlers.AwardNotifier
	var fcmService *services.FCMService
	if cfg.FirebaseCredentialsBase64 != "" {
		fcmService, err = services.NewFCMServiceFromBase64(cfg.FirebaseCredentialsBase64)
	} else {
		fcmService, err = services.NewFCMService(cfg.FirebaseCredentialsFile)
	}
	if err != nil {
		log.Printf("⚠️  Failed to initialize FCM: %v (push notifications disabled)", err)
	} else {
		notifier = fcmService
		log.Println("✅ Firebase Cloud Messaging initialized")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wsHub := websocket.NewHub()
	go wsHub.Run(ctx)
	log.Println("✅ WebSocket hub started")

	go pruneHotspots(ctx, db)

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", handlers.Health(db))
	r.Handle("/metrics", promhttp.Handler())

	// WebSocket endpoint (authentication handled in handler via query param)
	r.Get("/ws", websocket.HandleWebSocket(wsHub, cfg.JWTSecret))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", handlers.Login(db, cfg.JWTSecret))
		r.Post("/auth/register", handlers.Register(db, cfg.JWTSecret))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))

			r.Get("/auth/status", handlers.GetAuthStatus(db))

			// Device sync target
			r.Post("/waste-record", handlers.SubmitWasteRecord(db, wsHub, notifier))

			r.Get("/user/records", handlers.GetUserRecords(db))
			r.Get("/user/stats", handlers.GetUserStats(db))
			r.Get("/user/challenge", handlers.GetDailyChallenge(db))
			r.Post("/user/fcm-token", handlers.RegisterFCMToken(db))

			r.Get("/hotspots", handlers.GetHotspots(db))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))
			r.Use(middleware.RequireRole("admin"))

			r.Post("/users", handlers.CreateUser(db))
			r.Post("/hotspots", handlers.CreateHotspot(db))
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("✅ ALL INITIALIZATION COMPLETE")
	log.Printf("🚀 Server starting on http://localhost:%s", cfg.Port)
	log.Println("═══════════════════════════════════════════════════════════════════")

	go func() {
		<-ctx.Done()
		log.Println("🛑 Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("⚠️  Shutdown error: %v", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatal("Server failed to start", err)
	}
}

// pruneHotspots drops expired hotspots every hour until ctx is done
func pruneHotspots(ctx context.Context, db *sqlx.DB) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := database.DeleteExpiredHotspots(db, now)
			if err != nil {
				log.Printf("⚠️  Hotspot cleanup failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("🧹 Removed %d expired hotspots", n)
			}
		}
	}
}
