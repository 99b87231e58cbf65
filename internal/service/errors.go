// ===========================================
// Package service - Business Logic Layer
// ===========================================
// Services hold the link shortener's rules. Handlers stay thin
// (HTTP in/out only) and repositories stay thin (storage in/out
// only); everything in between lives here.
// ===========================================

package service

import (
	"context"
	"errors"

	"github.com/user/linktrack/internal/models"
)

// Service errors. Callers check them with errors.Is.
var (
	// Validation errors: the caller sent something we refuse to store.
	ErrInvalidURL   = errors.New("invalid destination URL")
	ErrInvalidCode  = errors.New("invalid short code")
	ErrInvalidLabel = errors.New("invalid label")
	ErrInvalidInput = errors.New("invalid input")

	ErrCodeConflict        = errors.New("short code already taken")
	ErrGenerationExhausted = errors.New("could not generate a free short code")
	ErrNotFound            = errors.New("link not found")

	ErrEmptyBatch    = errors.New("bulk batch is empty")
	ErrBatchTooLarge = errors.New("bulk batch too large")
)

// IsValidation reports whether err is a caller input error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidURL) ||
		errors.Is(err, ErrInvalidCode) ||
		errors.Is(err, ErrInvalidLabel) ||
		errors.Is(err, ErrInvalidInput)
}

// ErrorKind maps an error to the machine-readable code shared by the
// HTTP error body and bulk per-item results.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidURL):
		return models.ErrCodeInvalidURL
	case errors.Is(err, ErrInvalidCode):
		return models.ErrCodeInvalidCode
	case errors.Is(err, ErrInvalidLabel), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrEmptyBatch):
		return models.ErrCodeInvalidInput
	case errors.Is(err, ErrCodeConflict):
		return models.ErrCodeConflict
	case errors.Is(err, ErrGenerationExhausted):
		return models.ErrCodeGenerationExhausted
	case errors.Is(err, ErrNotFound):
		return models.ErrCodeNotFound
	case errors.Is(err, ErrBatchTooLarge):
		return models.ErrCodeBatchTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return models.ErrCodeTimeout
	default:
		return models.ErrCodeInternalError
	}
}
