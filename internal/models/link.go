// ===========================================
// Package models - Domain Models
// ===========================================
// Models are plain data containers shared by the handler,
// service and repository layers. Request/Response suffixes
// mark DTOs; everything else is a domain record.
// ===========================================

package models

import (
	"time"

	"github.com/google/uuid"
)

// ===========================================
// Core Domain Models
// ===========================================

// Link maps a short code to a destination URL.
// Codes are unique across active and inactive links and never reused.
type Link struct {
	ID             uuid.UUID `json:"id"`
	Code           string    `json:"code"`
	DestinationURL string    `json:"destination_url"`
	CustomName     string    `json:"custom_name,omitempty"`
	CampaignTag    string    `json:"campaign,omitempty"`
	Active         bool      `json:"active"`
	ClickCount     int64     `json:"click_count"` // equals the number of Click rows for Code
	CreatedAt      time.Time `json:"created_at"`
}

// Click is one recorded redirect. It always references a link that
// existed and was active when the click was recorded.
type Click struct {
	ID               uuid.UUID `json:"id"`
	LinkCode         string    `json:"link_code"`
	OccurredAt       time.Time `json:"occurred_at"`
	SourceTag        string    `json:"source_tag"`
	Referrer         string    `json:"referrer,omitempty"`
	ClientIdentifier string    `json:"client_identifier,omitempty"`
	AgentString      string    `json:"agent_string,omitempty"`
}

// DefaultSourceTag is used when a click carries no explicit source.
const DefaultSourceTag = "direct"

// ReferrerCount is one row of a top-referrers breakdown.
type ReferrerCount struct {
	Referrer string `json:"referrer"`
	Clicks   int64  `json:"clicks"`
}

// LinkClickStats aggregates the clicks of a single link.
type LinkClickStats struct {
	TotalClicks   int64            `json:"total_clicks"`
	UniqueClients int64            `json:"unique_clients"`
	BySource      map[string]int64 `json:"by_source"`
	TopReferrers  []ReferrerCount  `json:"top_referrers"`
}

// ===========================================
// Request DTOs
// ===========================================

// ShortenRequest is accepted as JSON or as a form post.
// Label lengths are enforced again in the service; binding only
// rejects obviously oversized input early.
type ShortenRequest struct {
	URL        string `json:"url" form:"url" binding:"required,max=2083"`
	CustomCode string `json:"custom_code,omitempty" form:"custom_code" binding:"omitempty,max=64"`
	CustomName string `json:"custom_name,omitempty" form:"custom_name" binding:"omitempty,max=200"`
	Campaign   string `json:"campaign,omitempty" form:"campaign" binding:"omitempty,max=200"`
}

// BulkItem is one entry of a bulk import.
// Quantity <= 0 means one link.
type BulkItem struct {
	URL        string `json:"url"`
	CustomCode string `json:"custom_code,omitempty"`
	CustomName string `json:"custom_name,omitempty"`
	Campaign   string `json:"campaign,omitempty"`
	Quantity   int    `json:"quantity,omitempty"`
}

// BulkRequest carries either structured items or a newline-separated
// URL list. Both may be given; items come first.
type BulkRequest struct {
	Items    []BulkItem `json:"items" form:"-"`
	URLs     string     `json:"urls" form:"urls"`
	Campaign string     `json:"campaign" form:"campaign"` // applied to entries parsed from URLs
}

// ===========================================
// Response DTOs
// ===========================================

// ShortenResponse is returned after a link is created.
type ShortenResponse struct {
	Success     bool   `json:"success"`
	Code        string `json:"code"`
	ShortURL    string `json:"short_url"`
	OriginalURL string `json:"original_url"`
	CustomName  string `json:"custom_name,omitempty"`
	Campaign    string `json:"campaign,omitempty"`
}

// BulkResult reports the outcome of one expanded bulk instance.
// Index is the position of the source item; Instance is 1-based.
type BulkResult struct {
	Index     int      `json:"index"`
	Instance  int      `json:"instance"`
	Input     BulkItem `json:"input"`
	Success   bool     `json:"success"`
	Code      string   `json:"code,omitempty"`
	ShortURL  string   `json:"short_url,omitempty"`
	ErrorKind string   `json:"error_kind,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// BulkResponse wraps the ordered per-item results.
type BulkResponse struct {
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Results   []BulkResult `json:"results"`
}

// Summary is the global rollup.
type Summary struct {
	TotalLinks     int64            `json:"total_links"`
	TotalClicks    int64            `json:"total_clicks"`
	UniqueClients  int64            `json:"unique_clients"`
	ClicksBySource map[string]int64 `json:"clicks_by_source"`
}

// CampaignStats is the per-campaign rollup over active links.
type CampaignStats struct {
	LinkCount     int64   `json:"link_count"`
	ClickCount    int64   `json:"click_count"`
	AverageClicks float64 `json:"average_clicks"`
}

// LinkView is a link plus its public short URL.
type LinkView struct {
	*Link
	ShortURL string `json:"short_url"`
}

// LinkReport is the per-link analytics view.
type LinkReport struct {
	LinkView
	Stats *LinkClickStats `json:"stats"`
}

// LinkListResponse wraps the admin list.
type LinkListResponse struct {
	Count int        `json:"count"`
	Links []LinkView `json:"links"`
}

// ===========================================
// Error Response
// ===========================================

// ErrorResponse provides consistent error format across all endpoints.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`             // Human-readable message
	Code    string `json:"code,omitempty"`    // Machine-readable error code
	Details string `json:"details,omitempty"` // Additional context
}

// Machine-readable error codes, shared by ErrorResponse.Code and
// BulkResult.ErrorKind.
const (
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeInvalidURL          = "INVALID_URL"
	ErrCodeInvalidCode         = "INVALID_CODE"
	ErrCodeConflict            = "CODE_CONFLICT"
	ErrCodeGenerationExhausted = "GENERATION_EXHAUSTED"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeTimeout             = "TIMEOUT"
	ErrCodeBatchTooLarge       = "BATCH_TOO_LARGE"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// ===========================================
// Health Check Response
// ===========================================

// HealthResponse is returned by the /health endpoint.
type HealthResponse struct {
	Status    string            `json:"status"` // "healthy" or "unhealthy"
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}
