// Package disposal is the entry point for recording disposals on the device.
package disposal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"trackeco/internal/anticheat"
	"trackeco/internal/metrics"
	"trackeco/internal/models"
	"trackeco/internal/services"
	"trackeco/internal/syncer"
	"trackeco/internal/userlock"
)

// Locator supplies the device position when the caller did not pass one.
// A nil location with a nil error means no fix is available.
type Locator interface {
	CurrentLocation(ctx context.Context) (*models.Location, error)
}

// HistoryRepository loads and saves submission histories
type HistoryRepository interface {
	Load(userID string) (*models.SubmissionHistory, error)
	Save(h *models.SubmissionHistory) error
}

// RecordRepository is the local record log
type RecordRepository interface {
	Append(rec *models.WasteRecord) error
	Get(id string) (*models.WasteRecord, error)
	ListByUser(userID string, limit int) ([]models.WasteRecord, error)
	Delete(userID, id string) error
	PurgeUser(userID string) (int64, error)
	Stats(userID string) (models.RecordStats, error)
}

// Syncer pushes a user's pending records
type Syncer interface {
	SyncAll(ctx context.Context, userID string) (syncer.Result, error)
}

// Input describes one disposal
type Input struct {
	Category string
	Subtype  string
	Quantity int
	Location *models.Location
}

// SubmitResult is returned for every evaluated submission. Rejections are not errors.
type SubmitResult struct {
	Accepted                 bool             `json:"accepted"`
	Reason                   anticheat.Reason `json:"reason,omitempty"`
	Message                  string           `json:"message"`
	CooldownRemainingSeconds *int             `json:"cooldown_remaining_seconds,omitempty"`
	TrustMultiplier          float64          `json:"trust_multiplier"`
	LocalPointsEstimate      int              `json:"local_points_estimate"`
	LocalXPEstimate          int              `json:"local_xp_estimate"`
	RecordID                 string           `json:"record_id,omitempty"`
}

// Service records disposals locally and hands them to the syncer
type Service struct {
	evaluator *anticheat.Evaluator
	history   HistoryRepository
	records   RecordRepository
	sync      Syncer
	locator   Locator
	locks     *userlock.Locker
	now       func() time.Time
}

// Config wires a Service. Locator and Now are optional.
type Config struct {
	Evaluator *anticheat.Evaluator
	History   HistoryRepository
	Records   RecordRepository
	Sync      Syncer
	Locator   Locator
	Locks     *userlock.Locker
	Now       func() time.Time
}

func NewService(cfg Config) *Service {
	if cfg.Evaluator == nil {
		cfg.Evaluator = anticheat.NewEvaluator(anticheat.DefaultConfig())
	}
	if cfg.Locks == nil {
		cfg.Locks = userlock.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		evaluator: cfg.Evaluator,
		history:   cfg.History,
		records:   cfg.Records,
		sync:      cfg.Sync,
		locator:   cfg.Locator,
		locks:     cfg.Locks,
		now:       cfg.Now,
	}
}

func validate(userID string, in *Input) error {
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))
	in.Subtype = strings.ToLower(strings.TrimSpace(in.Subtype))

	switch {
	case strings.TrimSpace(userID) == "":
		return fmt.Errorf("%w: user id is required", models.ErrInvalidSubmission)
	case in.Category == "":
		return fmt.Errorf("%w: category is required", models.ErrInvalidSubmission)
	case in.Subtype == "":
		return fmt.Errorf("%w: subtype is required", models.ErrInvalidSubmission)
	case in.Quantity < 1:
		return fmt.Errorf("%w: quantity must be at least 1", models.ErrInvalidSubmission)
	}
	return nil
}

// SubmitDisposal evaluates a disposal and, if accepted, stores it as a pending record.
//
// The record is appended before the history is saved. If saving the history
// fails the record is kept, its id is returned, and the error is reported.
func (s *Service) SubmitDisposal(ctx context.Context, userID string, in Input) (SubmitResult, error) {
	if err := validate(userID, &in); err != nil {
		return SubmitResult{}, err
	}

	if in.Location == nil && s.locator != nil {
		loc, err := s.locator.CurrentLocation(ctx)
		if err != nil {
			log.Printf("⚠️  No location fix, continuing without one: %v", err)
		}
		in.Location = loc
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	now := s.now()

	h, err := s.history.Load(userID)
	if errors.Is(err, models.ErrHistoryCorrupted) {
		metrics.HistoryResets.Inc()
		log.Printf("⚠️  Continuing with a fresh history for %s", userID)
	} else if err != nil {
		return SubmitResult{}, err
	}

	sub := anticheat.Submission{
		Category: in.Category,
		Subtype:  in.Subtype,
		Quantity: in.Quantity,
		Location: in.Location,
	}
	decision := s.evaluator.Evaluate(sub, now, h)

	result := SubmitResult{
		Accepted:                 decision.Accepted,
		Reason:                   decision.Reason,
		Message:                  decision.Message(),
		CooldownRemainingSeconds: decision.CooldownRemainingSeconds,
		TrustMultiplier:          decision.TrustMultiplier,
	}

	if !decision.Accepted {
		metrics.SubmissionDecisions.WithLabelValues(string(decision.Reason)).Inc()
		return result, nil
	}
	metrics.SubmissionDecisions.WithLabelValues("accepted").Inc()

	result.LocalPointsEstimate = services.ApplyTrust(services.EstimatePoints(in.Category, in.Subtype, in.Quantity), decision.TrustMultiplier)
	result.LocalXPEstimate = services.ApplyTrust(services.EstimateXP(in.Category, in.Subtype, in.Quantity), decision.TrustMultiplier)

	rec := &models.WasteRecord{
		ID:              uuid.NewString(),
		UserID:          userID,
		Category:        in.Category,
		Subtype:         in.Subtype,
		Quantity:        in.Quantity,
		PointsEarned:    result.LocalPointsEstimate,
		XPEarned:        result.LocalXPEstimate,
		TrustMultiplier: decision.TrustMultiplier,
		CreatedAt:       now.UnixMilli(),
	}
	rec.SetLocation(in.Location)

	if err := s.records.Append(rec); err != nil {
		return SubmitResult{}, fmt.Errorf("failed to store disposal: %w", err)
	}
	result.RecordID = rec.ID

	s.evaluator.Commit(h, sub, now)
	if err := s.history.Save(h); err != nil {
		return result, fmt.Errorf("disposal %s stored but history not saved: %w", rec.ID, err)
	}

	log.Printf("✅ Disposal %s recorded for %s (%s/%s, ~%d pts)", rec.ID, userID, in.Category, in.Subtype, result.LocalPointsEstimate)
	return result, nil
}

// TriggerSync pushes the user's pending records now
func (s *Service) TriggerSync(ctx context.Context, userID string) (syncer.Result, error) {
	if s.sync == nil {
		return syncer.Result{}, models.ErrOffline
	}
	return s.sync.SyncAll(ctx, userID)
}

// Records lists the user's records, newest first
func (s *Service) Records(userID string, limit int) ([]models.WasteRecord, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()
	return s.records.ListByUser(userID, limit)
}

// Record returns one of the user's records
func (s *Service) Record(userID, id string) (*models.WasteRecord, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	rec, err := s.records.Get(id)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, fmt.Errorf("record %s: %w", id, models.ErrRecordNotFound)
	}
	return rec, nil
}

// DeleteRecord removes one record at the user's request
func (s *Service) DeleteRecord(userID, id string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()
	return s.records.Delete(userID, id)
}

// PurgeUser removes every record and the history of the user
func (s *Service) PurgeUser(userID string) (int64, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	removed, err := s.records.PurgeUser(userID)
	if err != nil {
		return 0, err
	}
	log.Printf("🗑️  Purged %d record(s) for %s", removed, userID)
	return removed, nil
}

// Stats summarises the user's local log
func (s *Service) Stats(userID string) (models.RecordStats, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()
	return s.records.Stats(userID)
}
