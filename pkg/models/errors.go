package models

import "errors"

// Error taxonomy shared across the engine. Components wrap these sentinels
// with fmt.Errorf("...: %w", ...) so callers can discriminate with errors.Is.
var (
	// ErrValidation covers missing input files and payloads that still
	// exceed the provider size cap after every fallback compression.
	ErrValidation = errors.New("validation failed")

	// ErrConfiguration covers a missing credential, external tool, or
	// local model artifact.
	ErrConfiguration = errors.New("configuration error")

	// ErrAuth is a credential rejected by a remote backend.
	ErrAuth = errors.New("authentication rejected")

	// ErrRateLimit is backend throttling. Not retried automatically.
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrTransient is any other remote backend fault.
	ErrTransient = errors.New("transient provider error")

	// ErrEncoding is a chunk transcode that failed or timed out.
	ErrEncoding = errors.New("encoding failed")

	// ErrBudgetExceeded means the daily spend cap would be crossed.
	// Checked before any spend, never raised mid-flight.
	ErrBudgetExceeded = errors.New("daily budget exceeded")
)
