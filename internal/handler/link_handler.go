package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/user/linktrack/internal/models"
	"github.com/user/linktrack/internal/repository"
	"github.com/user/linktrack/internal/service"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// LinkHandler serves link creation, redirects and link administration.
type LinkHandler struct {
	links        *service.LinkService
	resolver     *service.Resolver
	bulk         *service.BulkImporter
	maxBulkBytes int64
}

// NewLinkHandler creates a new link handler. maxBulkBytes caps the
// bulk import request body.
func NewLinkHandler(links *service.LinkService, resolver *service.Resolver, bulk *service.BulkImporter, maxBulkBytes int) *LinkHandler {
	return &LinkHandler{links: links, resolver: resolver, bulk: bulk, maxBulkBytes: int64(maxBulkBytes)}
}

// ===========================================
// POST /shorten
// ===========================================
// Accepts JSON or a form post.
//
// Request:
//
//	{
//	  "url": "https://example.com/landing",
//	  "custom_code": "spring",   // optional
//	  "custom_name": "Spring",   // optional
//	  "campaign": "launch"       // optional
//	}
//
// Response (201):
//
//	{
//	  "success": true,
//	  "code": "spring",
//	  "short_url": "http://localhost:8080/spring",
//	  "original_url": "https://example.com/landing"
//	}
func (h *LinkHandler) Shorten(c *gin.Context) {
	var req models.ShortenRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	link, err := h.links.Shorten(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, h.links.Response(link))
}

// ===========================================
// POST /bulk-process
// ===========================================
// Takes {"items": [...]} and/or {"urls": "one\nper\nline"}; the form
// field urls works too. Per-item failures come back in the results
// with a 200; only a batch that is empty or too large is refused.
// Bodies over BULK_MAX_BODY_BYTES are refused before they are parsed.
func (h *LinkHandler) Bulk(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBulkBytes)

	var req models.BulkRequest
	if err := c.ShouldBind(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
				Error: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
				Code:  models.ErrCodeBatchTooLarge,
			})
			return
		}
		badRequest(c, "Invalid request body", err)
		return
	}

	items := append(req.Items, service.ParseBulkText(req.URLs, req.Campaign)...)
	results, err := h.bulk.Process(c.Request.Context(), items)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := models.BulkResponse{Total: len(results), Results: results}
	for _, r := range results {
		if r.Success {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}
	c.JSON(http.StatusOK, resp)
}

// ===========================================
// GET /:code
// ===========================================
// 302 to the destination; the click is recorded first. ?source=
// tags the click (qr, email, ...), defaulting to "direct".
//
// 302 rather than 301 so browsers come back on every visit and
// every visit is counted.
func (h *LinkHandler) Redirect(c *gin.Context) {
	dest, err := h.resolver.Resolve(c.Request.Context(), c.Param("code"), service.RequestContext{
		SourceTag:        c.Query("source"),
		Referrer:         c.Request.Referer(),
		ClientIdentifier: c.ClientIP(),
		AgentString:      c.Request.UserAgent(),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.Redirect(http.StatusFound, dest)
}

// ===========================================
// GET /links
// ===========================================
// Newest first. Query: campaign, limit (default 50), include_inactive.
func (h *LinkHandler) List(c *gin.Context) {
	filter := repository.ListFilter{
		Campaign: c.Query("campaign"),
		Limit:    defaultListLimit,
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxListLimit {
			badRequest(c, "limit must be between 1 and "+strconv.Itoa(maxListLimit), nil)
			return
		}
		filter.Limit = limit
	}
	if raw := c.Query("include_inactive"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "include_inactive must be a boolean", err)
			return
		}
		filter.IncludeInactive = include
	}

	views, err := h.links.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.LinkListResponse{Count: len(views), Links: views})
}

// ===========================================
// DELETE /links/:code
// ===========================================
// Deactivates the link. 204 on success, 404 if it was unknown or
// already inactive. The code is never handed out again.
func (h *LinkHandler) Deactivate(c *gin.Context) {
	if err := h.links.Deactivate(c.Request.Context(), c.Param("code")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
