package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/linktrack/internal/models"
)

// fakeCache stores JSON in a map, like Redis would.
type fakeCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	failGet bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (f *fakeCache) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet {
		return false, errors.New("connection refused")
	}
	raw, ok := f.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (f *fakeCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = raw
	return nil
}

func (f *fakeCache) SetJSONNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = raw
	return true, nil
}

func (f *fakeCache) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeCache) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}

func (f *fakeCache) link(t *testing.T, key string) models.Link {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	var link models.Link
	require.NoError(t, json.Unmarshal(f.data[key], &link))
	return link
}

// countingStore counts backing lookups and can slow them down.
// delay runs before the read and honours ctx; afterRead runs after it.
type countingStore struct {
	LinkStore
	lookups   atomic.Int32
	delay     time.Duration
	afterRead func()
}

func (c *countingStore) Lookup(ctx context.Context, code string) (*models.Link, error) {
	c.lookups.Add(1)
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	link, err := c.LinkStore.Lookup(ctx, code)
	if c.afterRead != nil {
		c.afterRead()
	}
	return link, err
}

func newCachedFixture(t *testing.T) (*CachedLinkStore, *countingStore, *fakeCache) {
	t.Helper()
	backing := &countingStore{LinkStore: NewMemoryStore()}
	cache := newFakeCache()
	return NewCachedLinkStore(backing, cache, time.Minute, zerolog.Nop()), backing, cache
}

func TestCachedLinkStore_LookupFillsCache(t *testing.T) {
	store, backing, cache := newCachedFixture(t)
	ctx := context.Background()

	require.NoError(t, backing.LinkStore.Insert(ctx, &models.Link{Code: "hot", DestinationURL: "https://example.com", Active: true}))

	for range 3 {
		link, err := store.Lookup(ctx, "hot")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", link.DestinationURL)
	}

	assert.EqualValues(t, 1, backing.lookups.Load())
	assert.True(t, cache.has("link:hot"))
}

func TestCachedLinkStore_InsertWarmsCache(t *testing.T) {
	store, backing, cache := newCachedFixture(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &models.Link{Code: "warm", DestinationURL: "https://example.com", Active: true}))
	assert.True(t, cache.has("link:warm"))

	_, err := store.Lookup(ctx, "warm")
	require.NoError(t, err)
	assert.Zero(t, backing.lookups.Load())
}

func TestCachedLinkStore_MissesAreNotCached(t *testing.T) {
	store, backing, cache := newCachedFixture(t)
	ctx := context.Background()

	for range 2 {
		_, err := store.Lookup(ctx, "ghost")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.EqualValues(t, 2, backing.lookups.Load())
	assert.False(t, cache.has("link:ghost"))
}

func TestCachedLinkStore_DeactivateLeavesTombstone(t *testing.T) {
	store, _, cache := newCachedFixture(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &models.Link{Code: "bye", DestinationURL: "https://example.com", Active: true}))
	require.NoError(t, store.Deactivate(ctx, "bye"))
	require.True(t, cache.has("link:bye"))
	assert.False(t, cache.link(t, "link:bye").Active)

	link, err := store.Lookup(ctx, "bye")
	require.NoError(t, err)
	assert.False(t, link.Active)
	assert.Equal(t, "https://example.com", link.DestinationURL)

	assert.ErrorIs(t, store.Deactivate(ctx, "bye"), ErrNotFound)
	assert.False(t, cache.link(t, "link:bye").Active)
}

func TestCachedLinkStore_DeactivateUnknownDropsKey(t *testing.T) {
	store, _, cache := newCachedFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.Deactivate(ctx, "nobody"), ErrNotFound)
	assert.False(t, cache.has("link:nobody"))
}

func TestCachedLinkStore_LateFillDoesNotResurrectDeactivatedLink(t *testing.T) {
	store, backing, _ := newCachedFixture(t)
	ctx := context.Background()

	require.NoError(t, backing.LinkStore.Insert(ctx, &models.Link{Code: "abc", DestinationURL: "https://example.com", Active: true}))

	// The first backing read stalls after seeing the active record,
	// and the deactivation lands while it is stalled.
	release := make(chan struct{})
	var stalled atomic.Bool
	backing.afterRead = func() {
		if stalled.CompareAndSwap(false, true) {
			<-release
		}
	}

	type result struct {
		link *models.Link
		err  error
	}
	first := make(chan result, 1)
	go func() {
		link, err := store.Lookup(ctx, "abc")
		first <- result{link, err}
	}()

	require.Eventually(t, stalled.Load, time.Second, time.Millisecond)
	require.NoError(t, store.Deactivate(ctx, "abc"))
	close(release)

	r := <-first
	require.NoError(t, r.err)
	assert.True(t, r.link.Active, "the read began before the deactivation")

	stored, err := backing.LinkStore.Lookup(ctx, "abc")
	require.NoError(t, err)
	require.False(t, stored.Active)

	link, err := store.Lookup(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, link.Active, "deactivated link served as active from cache")
}

func TestCachedLinkStore_LookupSurvivesFirstCallerCancel(t *testing.T) {
	store, backing, _ := newCachedFixture(t)
	backing.delay = 100 * time.Millisecond

	require.NoError(t, backing.LinkStore.Insert(context.Background(), &models.Link{Code: "shared", DestinationURL: "https://example.com", Active: true}))

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := store.Lookup(firstCtx, "shared")
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return backing.lookups.Load() == 1 }, time.Second, time.Millisecond)

	second := make(chan *models.Link, 1)
	go func() {
		link, err := store.Lookup(context.Background(), "shared")
		assert.NoError(t, err)
		second <- link
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	link := <-second
	require.NotNil(t, link)
	assert.Equal(t, "shared", link.Code)
	assert.NoError(t, <-firstErr)
	assert.EqualValues(t, 1, backing.lookups.Load())
}

func TestCachedLinkStore_ConcurrentMissesShareOneLookup(t *testing.T) {
	store, backing, _ := newCachedFixture(t)
	backing.delay = 50 * time.Millisecond
	ctx := context.Background()

	require.NoError(t, backing.LinkStore.Insert(ctx, &models.Link{Code: "herd", DestinationURL: "https://example.com", Active: true}))

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			link, err := store.Lookup(ctx, "herd")
			assert.NoError(t, err)
			assert.Equal(t, "herd", link.Code)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, backing.lookups.Load())
}

func TestCachedLinkStore_CacheFailureFallsThrough(t *testing.T) {
	store, backing, cache := newCachedFixture(t)
	cache.failGet = true
	ctx := context.Background()

	require.NoError(t, backing.LinkStore.Insert(ctx, &models.Link{Code: "safe", DestinationURL: "https://example.com", Active: true}))

	link, err := store.Lookup(ctx, "safe")
	require.NoError(t, err)
	assert.Equal(t, "safe", link.Code)
}
