package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/user/linktrack/internal/models"
	"github.com/user/linktrack/internal/repository"
)

// Request metadata is stored truncated to these lengths.
const (
	maxSourceTagLength = 100
	maxClickFieldLen   = 500
)

// RequestContext is what the redirect path knows about the visitor.
type RequestContext struct {
	SourceTag        string
	Referrer         string
	ClientIdentifier string
	AgentString      string
}

// Resolver turns a code into its destination and records the click.
type Resolver struct {
	links         repository.LinkStore
	clicks        repository.ClickStore
	recordTimeout time.Duration
	log           zerolog.Logger
}

// NewResolver creates a resolver. recordTimeout bounds the click write.
func NewResolver(links repository.LinkStore, clicks repository.ClickStore, recordTimeout time.Duration, log zerolog.Logger) *Resolver {
	return &Resolver{
		links:         links,
		clicks:        clicks,
		recordTimeout: recordTimeout,
		log:           log.With().Str("component", "resolver").Logger(),
	}
}

// Resolve returns the destination for an active code.
//
// Unknown and inactive codes both yield ErrNotFound. The click is
// recorded before returning, on a context detached from the client so
// a dropped connection cannot abort the write halfway. Recording is
// best-effort: once the lookup found an active link the visitor is
// redirected even if the write fails, including when the link was
// deactivated between lookup and record.
func (r *Resolver) Resolve(ctx context.Context, code string, rc RequestContext) (string, error) {
	link, err := r.links.Lookup(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve link: %w", err)
	}
	if !link.Active {
		return "", ErrNotFound
	}

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.recordTimeout)
	defer cancel()

	if err := r.clicks.Record(recordCtx, newClick(code, rc)); err != nil {
		r.log.Warn().Err(err).Str("code", code).Msg("click recording failed")
	}

	return link.DestinationURL, nil
}

func newClick(code string, rc RequestContext) *models.Click {
	source := truncate(strings.TrimSpace(rc.SourceTag), maxSourceTagLength)
	if source == "" {
		source = models.DefaultSourceTag
	}
	return &models.Click{
		LinkCode:         code,
		OccurredAt:       time.Now().UTC(),
		SourceTag:        source,
		Referrer:         truncate(rc.Referrer, maxClickFieldLen),
		ClientIdentifier: truncate(rc.ClientIdentifier, maxClickFieldLen),
		AgentString:      truncate(rc.AgentString, maxClickFieldLen),
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
