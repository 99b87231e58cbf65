package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/user/linktrack/internal/models"
	"github.com/user/linktrack/internal/repository"
)

// Reporter computes read-only aggregates. It never mutates either store.
type Reporter struct {
	links  repository.LinkStore
	clicks repository.ClickStore
	views  *LinkService
}

// NewReporter creates a reporter. views is only used to build short URLs.
func NewReporter(links repository.LinkStore, clicks repository.ClickStore, views *LinkService) *Reporter {
	return &Reporter{links: links, clicks: clicks, views: views}
}

// Summary returns global totals. TotalLinks counts active links;
// click figures cover every recorded click.
func (r *Reporter) Summary(ctx context.Context) (*models.Summary, error) {
	links, err := r.links.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count links: %w", err)
	}
	clicks, err := r.clicks.CountClicks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count clicks: %w", err)
	}
	unique, err := r.clicks.CountUniqueClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count clients: %w", err)
	}
	bySource, err := r.clicks.CountBySource(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count sources: %w", err)
	}

	return &models.Summary{
		TotalLinks:     links,
		TotalClicks:    clicks,
		UniqueClients:  unique,
		ClicksBySource: bySource,
	}, nil
}

// PerCampaign rolls up active links by campaign tag. Untagged links are
// left out, and a campaign appears only if it has at least one link.
func (r *Reporter) PerCampaign(ctx context.Context) (map[string]models.CampaignStats, error) {
	out := map[string]models.CampaignStats{}

	for link, err := range r.links.List(ctx, repository.ListFilter{}) {
		if err != nil {
			return nil, fmt.Errorf("failed to list links: %w", err)
		}
		if link.CampaignTag == "" {
			continue
		}
		stats := out[link.CampaignTag]
		stats.LinkCount++
		stats.ClickCount += link.ClickCount
		out[link.CampaignTag] = stats
	}

	for tag, stats := range out {
		stats.AverageClicks = averageClicks(stats.ClickCount, stats.LinkCount)
		out[tag] = stats
	}
	return out, nil
}

// LinkReport returns one link (active or not) with its click breakdown.
func (r *Reporter) LinkReport(ctx context.Context, code string) (*models.LinkReport, error) {
	link, err := r.links.Lookup(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	stats, err := r.clicks.LinkClickStats(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get click stats: %w", err)
	}
	// The click table is authoritative; a cached record may lag.
	link.ClickCount = stats.TotalClicks

	return &models.LinkReport{
		LinkView: r.views.View(link),
		Stats:    stats,
	}, nil
}

// averageClicks is clicks/links rounded to two places; 0 when links is 0.
func averageClicks(clicks, links int64) float64 {
	if links == 0 {
		return 0
	}
	return math.Round(float64(clicks)/float64(links)*100) / 100
}
