package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/user/linktrack/internal/config"
	"github.com/user/linktrack/internal/models"
)

// BulkImporter creates many links in one call.
//
// Each item gets its own result slot, written only by the goroutine
// handling that item, so a slow or failing item cannot disturb the
// order or content of any other result.
type BulkImporter struct {
	links *LinkService
	cfg   config.BulkConfig
	log   zerolog.Logger
}

// NewBulkImporter creates a new bulk importer.
func NewBulkImporter(links *LinkService, cfg config.BulkConfig, log zerolog.Logger) *BulkImporter {
	return &BulkImporter{
		links: links,
		cfg:   cfg,
		log:   log.With().Str("component", "bulk").Logger(),
	}
}

// bulkJob is one expanded instance of a bulk item.
type bulkJob struct {
	index    int
	instance int
	input    models.BulkItem
	err      error // set when the item was rejected during expansion
}

// Process expands quantities, then shortens every instance. Results are
// in input order; instances of one item are adjacent and 1-based.
//
// The whole batch is rejected with ErrEmptyBatch or ErrBatchTooLarge
// before anything is written. Otherwise the returned error is nil and
// per-item failures are reported in the results.
func (b *BulkImporter) Process(ctx context.Context, items []models.BulkItem) ([]models.BulkResult, error) {
	jobs := b.expand(items)
	if len(jobs) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(jobs) > b.cfg.MaxItems {
		return nil, fmt.Errorf("%w: %d links requested, limit is %d", ErrBatchTooLarge, len(jobs), b.cfg.MaxItems)
	}

	results := make([]models.BulkResult, len(jobs))

	var g errgroup.Group
	g.SetLimit(b.cfg.Concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			results[i] = b.run(ctx, job)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	b.log.Info().
		Int("items", len(items)).
		Int("links", len(results)).
		Int("failed", failed).
		Msg("bulk import finished")

	return results, nil
}

func (b *BulkImporter) run(ctx context.Context, job bulkJob) models.BulkResult {
	result := models.BulkResult{
		Index:    job.index,
		Instance: job.instance,
		Input:    job.input,
	}

	err := job.err
	if err == nil {
		itemCtx, cancel := context.WithTimeout(ctx, b.cfg.ItemTimeout)
		defer cancel()

		var link *models.Link
		link, err = b.links.Shorten(itemCtx, models.ShortenRequest{
			URL:        job.input.URL,
			CustomCode: job.input.CustomCode,
			CustomName: job.input.CustomName,
			Campaign:   job.input.Campaign,
		})
		if err == nil {
			result.Success = true
			result.Code = link.Code
			result.ShortURL = b.links.ShortURL(link.Code)
			return result
		}
	}

	result.ErrorKind = ErrorKind(err)
	result.Error = publicMessage(err)
	b.log.Debug().
		Err(err).
		Int("index", job.index).
		Int("instance", job.instance).
		Msg("bulk item failed")
	return result
}

// expand turns items into jobs. Quantity <= 0 counts as 1. With
// quantity > 1, instance i appends "_i" to the custom code and name.
// An item over the quantity limit becomes a single failed job.
func (b *BulkImporter) expand(items []models.BulkItem) []bulkJob {
	var jobs []bulkJob
	for idx, item := range items {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		if qty > b.cfg.MaxQuantity {
			jobs = append(jobs, bulkJob{
				index:    idx,
				instance: 1,
				input:    item,
				err:      fmt.Errorf("%w: quantity %d exceeds %d", ErrInvalidInput, qty, b.cfg.MaxQuantity),
			})
			continue
		}

		for i := 1; i <= qty; i++ {
			input := item
			input.Quantity = 0
			if qty > 1 {
				suffix := "_" + strconv.Itoa(i)
				if input.CustomCode != "" {
					input.CustomCode = strings.TrimSpace(input.CustomCode) + suffix
				}
				if input.CustomName != "" {
					input.CustomName = strings.TrimSpace(input.CustomName) + suffix
				}
			}
			jobs = append(jobs, bulkJob{index: idx, instance: i, input: input})
		}
	}
	return jobs
}

// ParseBulkText reads one URL per line. Blank lines and lines starting
// with '#' are skipped; every entry gets campaign.
func ParseBulkText(text, campaign string) []models.BulkItem {
	var items []models.BulkItem
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		items = append(items, models.BulkItem{URL: line, Campaign: campaign})
	}
	return items
}

// publicMessage hides internal failure details from API consumers.
func publicMessage(err error) string {
	switch {
	case IsValidation(err),
		errors.Is(err, ErrCodeConflict),
		errors.Is(err, ErrGenerationExhausted):
		return err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	default:
		return "internal error"
	}
}
