package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/jmoiron/sqlx"

	"trackeco/internal/anticheat"
	"trackeco/internal/config"
	"trackeco/internal/connectivity"
	"trackeco/internal/database"
	"trackeco/internal/disposal"
	"trackeco/internal/models"
	"trackeco/internal/services"
	"trackeco/internal/syncer"
	"trackeco/internal/userlock"
)

// app is the wired client for one command invocation
type app struct {
	cfg     config.Config
	db      *sqlx.DB
	session *models.Session
	client  *services.TrackEcoClient
	gate    connectivity.Gate
	coord   *syncer.Coordinator
	svc     *disposal.Service
}

func openApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	acCfg, err := cfg.AntiCheatConfig()
	if err != nil {
		return nil, err
	}

	db, err := database.OpenLocal(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	session, err := database.LoadSession(db)
	if err != nil && !errors.Is(err, database.ErrNoSession) {
		db.Close()
		return nil, err
	}

	token := ""
	if session != nil {
		token = session.Token
	}

	a := &app{
		cfg:     cfg,
		db:      db,
		session: session,
		client:  services.NewTrackEcoClient(cfg.API.BaseURL, token, cfg.APITimeout()),
		gate:    connectivity.NewProbeGate(cfg.API.BaseURL, cfg.ProbeTimeout()),
	}

	locks := userlock.New()
	records := database.NewRecordLog(db)
	a.coord = syncer.NewCoordinator(records, a.client, a.gate, locks).WithLease(database.NewSyncLease(db))

	locator, err := envLocator()
	if err != nil {
		db.Close()
		return nil, err
	}
	a.svc = disposal.NewService(disposal.Config{
		Evaluator: anticheat.NewEvaluator(acCfg),
		History:   database.NewHistoryStore(db),
		Records:   records,
		Sync:      a.coord,
		Locator:   locator,
		Locks:     locks,
	})
	return a, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// userID returns the signed-in user or database.ErrNoSession
func (a *app) userID() (string, error) {
	if a.session == nil {
		return "", fmt.Errorf("%w: run 'trackeco login' first", database.ErrNoSession)
	}
	return a.session.UserID, nil
}

// fixedLocator reports a constant position, e.g. a kiosk at a drop-off point
type fixedLocator struct {
	loc models.Location
}

func (l fixedLocator) CurrentLocation(context.Context) (*models.Location, error) {
	loc := l.loc
	return &loc, nil
}

// envLocator returns a fixedLocator when TRACKECO_LAT and TRACKECO_LNG are set
func envLocator() (disposal.Locator, error) {
	latStr, lngStr := os.Getenv("TRACKECO_LAT"), os.Getenv("TRACKECO_LNG")
	if latStr == "" && lngStr == "" {
		return nil, nil
	}
	loc, err := parseLocation(latStr, lngStr)
	if err != nil {
		return nil, fmt.Errorf("TRACKECO_LAT/TRACKECO_LNG: %w", err)
	}
	return fixedLocator{loc: *loc}, nil
}

func parseLocation(latStr, lngStr string) (*models.Location, error) {
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q", latStr)
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q", lngStr)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, fmt.Errorf("coordinates out of range: %v, %v", lat, lng)
	}
	return &models.Location{Latitude: lat, Longitude: lng}, nil
}
