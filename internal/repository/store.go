// ===========================================
// Package repository - Data Access Layer
// ===========================================
// The repository abstracts storage behind two interfaces:
// LinkStore for link records and ClickStore for click events.
// Services depend on the interfaces; main picks the backend.
//
// ATOMICITY CONTRACT (every backend):
// - Insert is insert-if-absent, linearizable per code.
// - Record bumps the link counter and appends the click as one
//   unit, and only while the link is active.
// - Nothing is ever physically deleted.
// ===========================================

package repository

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/google/uuid"

	"github.com/user/linktrack/internal/models"
)

// Common errors returned by repository methods.
// Using package-level errors allows callers to check with errors.Is().
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrUnknownCode   = errors.New("no active link for code")
)

// topReferrerLimit bounds LinkClickStats.TopReferrers.
const topReferrerLimit = 10

// ListFilter narrows List. The zero value lists every active link.
type ListFilter struct {
	Campaign        string // exact campaign tag; empty means any
	IncludeInactive bool
	Limit           int // <= 0 means no limit
}

// LinkStore is the durable mapping of code to link record.
type LinkStore interface {
	// Insert stores link if no record (active or not) has its code.
	// Returns ErrAlreadyExists otherwise. ID and CreatedAt are filled
	// in when zero.
	Insert(ctx context.Context, link *models.Link) error

	// Lookup returns the record for code, inactive ones included,
	// or ErrNotFound.
	Lookup(ctx context.Context, code string) (*models.Link, error)

	// Exists reports whether any record, active or not, has code.
	Exists(ctx context.Context, code string) (bool, error)

	// Deactivate marks an active link inactive. A missing or already
	// inactive code returns ErrNotFound.
	Deactivate(ctx context.Context, code string) error

	// List yields links newest first. The sequence is finite and
	// stops at the first error.
	List(ctx context.Context, filter ListFilter) iter.Seq2[*models.Link, error]

	// CountAll counts active links.
	CountAll(ctx context.Context) (int64, error)

	// CountByCampaign counts active links carrying tag.
	CountByCampaign(ctx context.Context, tag string) (int64, error)
}

// ClickStore records and aggregates click events.
type ClickStore interface {
	// Record appends click and increments the link's ClickCount
	// atomically. Returns ErrUnknownCode if the code has no active link.
	Record(ctx context.Context, click *models.Click) error

	CountClicks(ctx context.Context) (int64, error)

	// CountUniqueClients counts distinct non-empty client identifiers.
	CountUniqueClients(ctx context.Context) (int64, error)

	CountBySource(ctx context.Context) (map[string]int64, error)

	// LinkClickStats aggregates the clicks of one code. An unknown code
	// yields zero stats, not an error.
	LinkClickStats(ctx context.Context, code string) (*models.LinkClickStats, error)
}

// Store is a backend that serves both interfaces.
type Store interface {
	LinkStore
	ClickStore
}

// prepareLink fills the identity fields every backend needs.
func prepareLink(link *models.Link) {
	if link.ID == uuid.Nil {
		link.ID = uuid.New()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
}

func prepareClick(click *models.Click) {
	if click.ID == uuid.Nil {
		click.ID = uuid.New()
	}
	if click.OccurredAt.IsZero() {
		click.OccurredAt = time.Now().UTC()
	}
	if click.SourceTag == "" {
		click.SourceTag = models.DefaultSourceTag
	}
}
