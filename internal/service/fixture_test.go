package service

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/user/linktrack/internal/config"
	"github.com/user/linktrack/internal/repository"
)

type fixture struct {
	store    *repository.MemoryStore
	links    *LinkService
	resolver *Resolver
	bulk     *BulkImporter
	reporter *Reporter
}

func testShortenerConfig() config.ShortenerConfig {
	return config.ShortenerConfig{
		BaseURL:         "https://lt.example/",
		CodeLength:      6,
		MaxAttempts:     50,
		MaxCustomLength: 32,
		ValidationMode:  config.ValidationStrict,
		RecordTimeout:   time.Second,
	}
}

func testBulkConfig() config.BulkConfig {
	return config.BulkConfig{
		MaxItems:    200,
		MaxQuantity: 20,
		Concurrency: 4,
		ItemTimeout: time.Second,
	}
}

// newFixture wires every service over one MemoryStore. linkStore, when
// non-nil, replaces the store the link service and resolver see.
func newFixture(t *testing.T, linkStore repository.LinkStore, bulkCfg config.BulkConfig) *fixture {
	t.Helper()

	store := repository.NewMemoryStore()
	if linkStore == nil {
		linkStore = store
	}

	cfg := testShortenerConfig()
	log := zerolog.Nop()

	validator, err := NewURLValidator(cfg.ValidationMode)
	require.NoError(t, err)

	gen := NewCodeGenerator(linkStore, cfg, log)
	links := NewLinkService(linkStore, gen, validator, cfg, log)

	return &fixture{
		store:    store,
		links:    links,
		resolver: NewResolver(linkStore, store, cfg.RecordTimeout, log),
		bulk:     NewBulkImporter(links, bulkCfg, log),
		reporter: NewReporter(store, store, links),
	}
}
