package repository

import (
	"cmp"
	"context"
	"iter"
	"slices"
	"sync"

	"github.com/user/linktrack/internal/models"
)

// MemoryStore is an in-process Store for tests. It is not durable and
// is never wired into the server.
type MemoryStore struct {
	mu     sync.RWMutex
	links  map[string]*models.Link
	clicks []models.Click
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{links: make(map[string]*models.Link)}
}

func (m *MemoryStore) Insert(ctx context.Context, link *models.Link) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prepareLink(link)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.links[link.Code]; ok {
		return ErrAlreadyExists
	}
	stored := *link
	m.links[link.Code] = &stored
	return nil
}

func (m *MemoryStore) Lookup(ctx context.Context, code string) (*models.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	link, ok := m.links[code]
	if !ok {
		return nil, ErrNotFound
	}
	out := *link
	return &out, nil
}

func (m *MemoryStore) Exists(ctx context.Context, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.links[code]
	return ok, nil
}

func (m *MemoryStore) Deactivate(ctx context.Context, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.links[code]
	if !ok || !link.Active {
		return ErrNotFound
	}
	link.Active = false
	return nil
}

// List snapshots matching links under the read lock, then yields copies
// without holding it.
func (m *MemoryStore) List(ctx context.Context, filter ListFilter) iter.Seq2[*models.Link, error] {
	return func(yield func(*models.Link, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(nil, err)
			return
		}

		m.mu.RLock()
		snapshot := make([]models.Link, 0, len(m.links))
		for _, link := range m.links {
			if !filter.IncludeInactive && !link.Active {
				continue
			}
			if filter.Campaign != "" && link.CampaignTag != filter.Campaign {
				continue
			}
			snapshot = append(snapshot, *link)
		}
		m.mu.RUnlock()

		slices.SortFunc(snapshot, func(a, b models.Link) int {
			if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
				return c
			}
			return cmp.Compare(a.Code, b.Code)
		})
		if filter.Limit > 0 && len(snapshot) > filter.Limit {
			snapshot = snapshot[:filter.Limit]
		}

		for i := range snapshot {
			if !yield(&snapshot[i], nil) {
				return
			}
		}
	}
}

func (m *MemoryStore) CountAll(ctx context.Context) (int64, error) {
	return m.countLinks(ctx, func(l *models.Link) bool { return l.Active })
}

func (m *MemoryStore) CountByCampaign(ctx context.Context, tag string) (int64, error) {
	return m.countLinks(ctx, func(l *models.Link) bool { return l.Active && l.CampaignTag == tag })
}

// Record holds the write lock across the active check, the counter bump
// and the append, which is the in-memory equivalent of the SQL transaction.
func (m *MemoryStore) Record(ctx context.Context, click *models.Click) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prepareClick(click)

	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.links[click.LinkCode]
	if !ok || !link.Active {
		return ErrUnknownCode
	}
	link.ClickCount++
	m.clicks = append(m.clicks, *click)
	return nil
}

func (m *MemoryStore) CountClicks(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.clicks)), nil
}

func (m *MemoryStore) CountUniqueClients(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, c := range m.clicks {
		if c.ClientIdentifier != "" {
			seen[c.ClientIdentifier] = struct{}{}
		}
	}
	return int64(len(seen)), nil
}

func (m *MemoryStore) CountBySource(ctx context.Context) (map[string]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := map[string]int64{}
	for _, c := range m.clicks {
		out[c.SourceTag]++
	}
	return out, nil
}

func (m *MemoryStore) LinkClickStats(ctx context.Context, code string) (*models.LinkClickStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &models.LinkClickStats{BySource: map[string]int64{}, TopReferrers: []models.ReferrerCount{}}
	clients := make(map[string]struct{})
	referrers := make(map[string]int64)
	for _, c := range m.clicks {
		if c.LinkCode != code {
			continue
		}
		stats.TotalClicks++
		stats.BySource[c.SourceTag]++
		if c.ClientIdentifier != "" {
			clients[c.ClientIdentifier] = struct{}{}
		}
		if c.Referrer != "" {
			referrers[c.Referrer]++
		}
	}
	stats.UniqueClients = int64(len(clients))

	for ref, n := range referrers {
		stats.TopReferrers = append(stats.TopReferrers, models.ReferrerCount{Referrer: ref, Clicks: n})
	}
	slices.SortFunc(stats.TopReferrers, func(a, b models.ReferrerCount) int {
		if c := cmp.Compare(b.Clicks, a.Clicks); c != 0 {
			return c
		}
		return cmp.Compare(a.Referrer, b.Referrer)
	})
	if len(stats.TopReferrers) > topReferrerLimit {
		stats.TopReferrers = stats.TopReferrers[:topReferrerLimit]
	}

	return stats, nil
}

func (m *MemoryStore) countLinks(ctx context.Context, match func(*models.Link) bool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, link := range m.links {
		if match(link) {
			n++
		}
	}
	return n, nil
}
