package service

import "errors"

// Request-level errors surfaced before any record is created, plus the
// ordinary CRM errors. The HTTP layer maps these onto status codes.
var (
	ErrInvalidURL           = errors.New("url must be a well-formed http or https address")
	ErrInvalidCategory      = errors.New("business category is not one of the supported categories")
	ErrRateLimited          = errors.New("daily analysis limit reached, try again after the daily window resets")
	ErrNotFound             = errors.New("analysis not found")
	ErrInvalidContactStatus = errors.New("invalid contact status")
	ErrNotCompleted         = errors.New("analysis has not completed")
	ErrNoContactEmail       = errors.New("analysis has no contact email")
	ErrEmailNotConfigured   = errors.New("outbound email is not configured")
)
