package app

import "errors"

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrRegistrationClosed  = errors.New("Registration is currently disabled")
	ErrMissingFields       = errors.New("All fields are required")
	ErrContentRequired     = errors.New("Content is required")
	ErrContentTooLong      = errors.New("Content must be at most 500 characters")
	ErrInvalidCategory     = errors.New("invalid category")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidAnnouncement = errors.New("title and description are required")

	// ErrAIUnavailable means no language model provider is configured.
	ErrAIUnavailable = errors.New("AI features are not configured")
	// ErrAIFailed wraps provider and parsing failures of the analyzer and assistant.
	ErrAIFailed = errors.New("AI request failed")
)
