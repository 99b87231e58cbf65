package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/user/linktrack/internal/database"
	"github.com/user/linktrack/internal/models"
)

// Cache is the subset of *database.RedisDB the cached store needs.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	SetJSONNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// lookupTimeout bounds a shared backing lookup, which runs detached from
// the context of whichever caller started it.
const lookupTimeout = 5 * time.Second

// CachedLinkStore puts a cache-aside layer in front of a LinkStore.
//
//   - Lookup fills the cache with active links only, and only when the
//     key is absent. Misses are never cached.
//   - Deactivate overwrites the key with the inactive record (a
//     tombstone) instead of deleting it. A fill that read the link
//     before the deactivation then finds the key taken and is dropped.
//   - Concurrent misses for one code share a single backing lookup.
//   - ClickCount on a cached record may lag by up to the TTL. The click
//     recorder re-checks the active flag in the backing store, so a
//     stale cache entry can never produce a click on an inactive link.
//
// Cache failures are logged and never fail the call.
type CachedLinkStore struct {
	LinkStore
	cache Cache
	ttl   time.Duration
	log   zerolog.Logger
	group singleflight.Group
}

// NewCachedLinkStore wraps next. A zero ttl defers to the cache default.
func NewCachedLinkStore(next LinkStore, cache Cache, ttl time.Duration, log zerolog.Logger) *CachedLinkStore {
	return &CachedLinkStore{
		LinkStore: next,
		cache:     cache,
		ttl:       ttl,
		log:       log.With().Str("component", "link_cache").Logger(),
	}
}

func (c *CachedLinkStore) Insert(ctx context.Context, link *models.Link) error {
	if err := c.LinkStore.Insert(ctx, link); err != nil {
		return err
	}
	if link.Active {
		c.store(ctx, link)
	}
	return nil
}

func (c *CachedLinkStore) Lookup(ctx context.Context, code string) (*models.Link, error) {
	key := database.LinkCacheKey(code)

	var cached models.Link
	found, err := c.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		c.log.Warn().Err(err).Str("code", code).Msg("cache read failed")
	}
	if found {
		return &cached, nil
	}

	v, err, _ := c.group.Do(code, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()

		link, err := c.LinkStore.Lookup(lookupCtx, code)
		if err != nil {
			return nil, err
		}
		if link.Active {
			c.fill(lookupCtx, link)
		}
		return link, nil
	})
	if err != nil {
		return nil, err
	}

	// Callers sharing a flight must not share the pointer.
	out := *v.(*models.Link)
	return &out, nil
}

func (c *CachedLinkStore) Deactivate(ctx context.Context, code string) error {
	err := c.LinkStore.Deactivate(ctx, code)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	// NotFound also covers an already-inactive link, which still
	// deserves a tombstone in case a late fill cached it as active.
	c.tombstone(ctx, code)
	return err
}

// tombstone replaces the cached entry for code with its inactive backing
// record. Unknown codes just lose their key.
func (c *CachedLinkStore) tombstone(ctx context.Context, code string) {
	key := database.LinkCacheKey(code)

	link, err := c.LinkStore.Lookup(ctx, code)
	if err == nil && !link.Active {
		err = c.cache.SetJSON(ctx, key, link, c.ttl)
		if err == nil {
			return
		}
		c.log.Warn().Err(err).Str("code", code).Msg("cache tombstone write failed")
	}

	if delErr := c.cache.Delete(ctx, key); delErr != nil {
		c.log.Warn().Err(delErr).Str("code", code).Msg("cache eviction failed")
	}
}

func (c *CachedLinkStore) store(ctx context.Context, link *models.Link) {
	if err := c.cache.SetJSON(ctx, database.LinkCacheKey(link.Code), link, c.ttl); err != nil {
		c.log.Warn().Err(err).Str("code", link.Code).Msg("cache write failed")
	}
}

// fill caches a record read from the backing store unless the key is
// already taken, so it never overwrites a tombstone.
func (c *CachedLinkStore) fill(ctx context.Context, link *models.Link) {
	if _, err := c.cache.SetJSONNX(ctx, database.LinkCacheKey(link.Code), link, c.ttl); err != nil {
		c.log.Warn().Err(err).Str("code", link.Code).Msg("cache fill failed")
	}
}
