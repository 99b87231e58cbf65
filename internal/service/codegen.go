package service

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/user/linktrack/internal/config"
)

// ===========================================
// Short Code Generation
// ===========================================
// Generated codes use base62 (0-9, A-Z, a-z): URL-safe and case
// sensitive. At length 6 that is 62^6 ≈ 5.6e10 codes, so running
// out of attempts points at a store bug, not real saturation.
//
// The uniqueness check here is only a hint to avoid wasted inserts.
// The store's insert-if-absent is what actually reserves a code.

const base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// reservedCodes collide with fixed routes and are never handed out.
var reservedCodes = map[string]struct{}{
	"health":       {},
	"ready":        {},
	"live":         {},
	"stats":        {},
	"links":        {},
	"shorten":      {},
	"bulk-process": {},
}

// CodeChecker is the part of the link store the generator consults.
type CodeChecker interface {
	Exists(ctx context.Context, code string) (bool, error)
}

// CodeGenerator hands out short codes that are free at the time of the call.
type CodeGenerator struct {
	store           CodeChecker
	length          int
	maxAttempts     int
	maxCustomLength int
	random          func(length int) (string, error)
	log             zerolog.Logger
}

// NewCodeGenerator creates a generator using crypto/rand.
func NewCodeGenerator(store CodeChecker, cfg config.ShortenerConfig, log zerolog.Logger) *CodeGenerator {
	return &CodeGenerator{
		store:           store,
		length:          cfg.CodeLength,
		maxAttempts:     cfg.MaxAttempts,
		maxCustomLength: cfg.MaxCustomLength,
		random:          generateRandomCode,
		log:             log.With().Str("component", "codegen").Logger(),
	}
}

// Allocate returns preferred if it is valid and free, or a fresh random
// code when preferred is empty.
func (g *CodeGenerator) Allocate(ctx context.Context, preferred string) (string, error) {
	if preferred != "" {
		if err := ValidateCustomCode(preferred, g.maxCustomLength); err != nil {
			return "", err
		}
		exists, err := g.store.Exists(ctx, preferred)
		if err != nil {
			return "", fmt.Errorf("failed to check code availability: %w", err)
		}
		if exists {
			return "", ErrCodeConflict
		}
		return preferred, nil
	}

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		code, err := g.random(g.length)
		if err != nil {
			return "", err
		}

		exists, err := g.store.Exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check code availability: %w", err)
		}
		if !exists {
			return code, nil
		}
	}

	g.log.Error().
		Int("attempts", g.maxAttempts).
		Int("length", g.length).
		Msg("short code generation exhausted")
	return "", ErrGenerationExhausted
}

// ValidateCustomCode checks a caller-supplied code: 1..maxLength
// characters from [A-Za-z0-9_-], not a reserved route name.
func ValidateCustomCode(code string, maxLength int) error {
	if len(code) == 0 || len(code) > maxLength {
		return fmt.Errorf("%w: must be 1-%d characters", ErrInvalidCode, maxLength)
	}
	for _, c := range code {
		isLetter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		isNumber := c >= '0' && c <= '9'
		if !isLetter && !isNumber && c != '_' && c != '-' {
			return fmt.Errorf("%w: only letters, digits, '_' and '-' are allowed", ErrInvalidCode)
		}
	}
	if _, ok := reservedCodes[code]; ok {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidCode, code)
	}
	return nil
}

// generateRandomCode draws length base62 symbols from crypto/rand.
// Bytes >= 248 are discarded so every symbol is equally likely
// (248 = 4*62; a plain modulo would favour the first 8 symbols).
func generateRandomCode(length int) (string, error) {
	out := make([]byte, 0, length)
	buf := make([]byte, length+8)

	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= 248 {
				continue
			}
			out = append(out, base62Chars[b%62])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}
