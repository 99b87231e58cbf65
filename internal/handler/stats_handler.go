package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/user/linktrack/internal/service"
)

// StatsHandler exposes the reporter's aggregates.
type StatsHandler struct {
	reporter *service.Reporter
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(reporter *service.Reporter) *StatsHandler {
	return &StatsHandler{reporter: reporter}
}

// Summary handles GET /stats.
func (h *StatsHandler) Summary(c *gin.Context) {
	summary, err := h.reporter.Summary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Campaigns handles GET /stats/campaigns.
func (h *StatsHandler) Campaigns(c *gin.Context) {
	stats, err := h.reporter.PerCampaign(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Link handles GET /links/:code: one link, active or not, with its
// click breakdown.
func (h *StatsHandler) Link(c *gin.Context) {
	report, err := h.reporter.LinkReport(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
