package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/user/linktrack/internal/config"
	"github.com/user/linktrack/internal/models"
	"github.com/user/linktrack/internal/repository"
)

// maxLabelLength bounds custom_name and campaign, in characters.
const maxLabelLength = 100

// insertRetries bounds how often a generated code may lose the race
// between the generator's check and the store's insert.
const insertRetries = 3

// LinkService creates, reads and deactivates links.
type LinkService struct {
	store     repository.LinkStore
	generator *CodeGenerator
	validator *URLValidator
	baseURL   string
	log       zerolog.Logger
}

// NewLinkService creates a new link service.
func NewLinkService(
	store repository.LinkStore,
	generator *CodeGenerator,
	validator *URLValidator,
	cfg config.ShortenerConfig,
	log zerolog.Logger,
) *LinkService {
	return &LinkService{
		store:     store,
		generator: generator,
		validator: validator,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		log:       log.With().Str("component", "links").Logger(),
	}
}

// Shorten validates the request and stores a new active link.
//
// FLOW:
// 1. Validate destination and labels
// 2. Allocate a code (custom or random)
// 3. Insert; a random code that lost an insert race is re-drawn
func (s *LinkService) Shorten(ctx context.Context, req models.ShortenRequest) (*models.Link, error) {
	destination := strings.TrimSpace(req.URL)
	if !s.validator.Validate(destination) {
		return nil, ErrInvalidURL
	}

	name, err := cleanLabel("custom_name", req.CustomName)
	if err != nil {
		return nil, err
	}
	campaign, err := cleanLabel("campaign", req.Campaign)
	if err != nil {
		return nil, err
	}
	custom := strings.TrimSpace(req.CustomCode)

	for range insertRetries {
		code, err := s.generator.Allocate(ctx, custom)
		if err != nil {
			return nil, err
		}

		link := &models.Link{
			Code:           code,
			DestinationURL: destination,
			CustomName:     name,
			CampaignTag:    campaign,
			Active:         true,
		}

		err = s.store.Insert(ctx, link)
		if err == nil {
			s.log.Debug().Str("code", code).Str("campaign", campaign).Msg("link created")
			return link, nil
		}
		if !errors.Is(err, repository.ErrAlreadyExists) {
			return nil, fmt.Errorf("failed to store link: %w", err)
		}
		if custom != "" {
			return nil, ErrCodeConflict
		}
		s.log.Warn().Str("code", code).Msg("generated code lost insert race, retrying")
	}

	return nil, ErrGenerationExhausted
}

// Deactivate retires a link. The code stays reserved forever.
func (s *LinkService) Deactivate(ctx context.Context, code string) error {
	err := s.store.Deactivate(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to deactivate link: %w", err)
	}
	s.log.Info().Str("code", code).Msg("link deactivated")
	return nil
}

// List collects links matching filter, newest first.
func (s *LinkService) List(ctx context.Context, filter repository.ListFilter) ([]models.LinkView, error) {
	views := []models.LinkView{}
	for link, err := range s.store.List(ctx, filter) {
		if err != nil {
			return nil, fmt.Errorf("failed to list links: %w", err)
		}
		views = append(views, s.View(link))
	}
	return views, nil
}

// ShortURL builds the public URL for code.
func (s *LinkService) ShortURL(code string) string {
	return s.baseURL + "/" + code
}

// View pairs a link with its public URL.
func (s *LinkService) View(link *models.Link) models.LinkView {
	return models.LinkView{Link: link, ShortURL: s.ShortURL(link.Code)}
}

// Response shapes a freshly created link for the API.
func (s *LinkService) Response(link *models.Link) models.ShortenResponse {
	return models.ShortenResponse{
		Success:     true,
		Code:        link.Code,
		ShortURL:    s.ShortURL(link.Code),
		OriginalURL: link.DestinationURL,
		CustomName:  link.CustomName,
		Campaign:    link.CampaignTag,
	}
}

// cleanLabel trims a free-text label and enforces the storage policy:
// at most maxLabelLength characters, valid UTF-8, no control characters.
// Labels are stored verbatim otherwise; escaping belongs to whatever
// renders them.
func cleanLabel(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if !utf8.ValidString(value) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", ErrInvalidLabel, field)
	}
	if utf8.RuneCountInString(value) > maxLabelLength {
		return "", fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidLabel, field, maxLabelLength)
	}
	if strings.IndexFunc(value, unicode.IsControl) >= 0 {
		return "", fmt.Errorf("%w: %s contains control characters", ErrInvalidLabel, field)
	}
	return value, nil
}
