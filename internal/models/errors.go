package models

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────

var (
	// Submission errors
	ErrInvalidSubmission = errors.New("invalid disposal submission")

	// Local storage errors
	ErrRecordNotFound    = errors.New("waste record not found")
	ErrDuplicateRecordID = errors.New("waste record id already exists")
	ErrHistoryCorrupted  = errors.New("submission history is corrupted")

	// Sync errors
	ErrOffline           = errors.New("no network connection available")
	ErrSyncInProgress    = errors.New("sync already in progress")
	ErrTransport         = errors.New("request to TrackEco API failed")
	ErrServerUnavailable = errors.New("TrackEco API is unavailable")
	ErrServerRejected    = errors.New("TrackEco API rejected the record")

	// Server errors
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailTaken       = errors.New("email already registered")
	ErrDisposalConflict = errors.New("disposal id belongs to another user")
)
