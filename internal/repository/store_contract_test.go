package repository

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/linktrack/internal/models"
)

// runStoreContract checks the behaviour every Store backend must share.
// newStore must return an empty store.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	newLink := func(code string, at time.Time) *models.Link {
		return &models.Link{
			Code:           code,
			DestinationURL: "https://example.com/" + code,
			Active:         true,
			CreatedAt:      at,
		}
	}

	t.Run("insert then lookup round-trips", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		link := newLink("abc123", base)
		link.CustomName = "Spring <sale>"
		link.CampaignTag = "spring"
		require.NoError(t, s.Insert(ctx, link))

		got, err := s.Lookup(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, link.ID, got.ID)
		assert.Equal(t, "https://example.com/abc123", got.DestinationURL)
		assert.Equal(t, "Spring <sale>", got.CustomName)
		assert.Equal(t, "spring", got.CampaignTag)
		assert.True(t, got.Active)
		assert.Zero(t, got.ClickCount)
		assert.True(t, base.Equal(got.CreatedAt), "created_at %v", got.CreatedAt)
	})

	t.Run("insert fills id and created_at", func(t *testing.T) {
		s := newStore(t)
		link := &models.Link{Code: "fill", DestinationURL: "https://example.com", Active: true}
		require.NoError(t, s.Insert(context.Background(), link))
		assert.NotZero(t, link.ID)
		assert.False(t, link.CreatedAt.IsZero())
	})

	t.Run("codes are case sensitive", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Insert(ctx, newLink("AbC", base)))
		require.NoError(t, s.Insert(ctx, newLink("abc", base)))

		_, err := s.Lookup(ctx, "ABC")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate code is rejected even after deactivation", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Insert(ctx, newLink("dup", base)))
		assert.ErrorIs(t, s.Insert(ctx, newLink("dup", base)), ErrAlreadyExists)

		require.NoError(t, s.Deactivate(ctx, "dup"))
		assert.ErrorIs(t, s.Insert(ctx, newLink("dup", base)), ErrAlreadyExists)
	})

	t.Run("concurrent inserts of one code admit exactly one", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		const n = 16
		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = s.Insert(ctx, newLink("race", base))
			}()
		}
		wg.Wait()

		var ok, dup int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrAlreadyExists):
				dup++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, n-1, dup)
	})

	t.Run("lookup and exists on missing code", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Lookup(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)

		exists, err := s.Exists(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("deactivate is soft and not repeatable", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Insert(ctx, newLink("gone", base)))

		require.NoError(t, s.Deactivate(ctx, "gone"))
		assert.ErrorIs(t, s.Deactivate(ctx, "gone"), ErrNotFound)
		assert.ErrorIs(t, s.Deactivate(ctx, "never"), ErrNotFound)

		got, err := s.Lookup(ctx, "gone")
		require.NoError(t, err)
		assert.False(t, got.Active)

		exists, err := s.Exists(ctx, "gone")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("list orders newest first and filters", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for i, code := range []string{"l1", "l2", "l3", "l4"} {
			link := newLink(code, base.Add(time.Duration(i)*time.Minute))
			if i%2 == 0 {
				link.CampaignTag = "even"
			}
			require.NoError(t, s.Insert(ctx, link))
		}
		require.NoError(t, s.Deactivate(ctx, "l4"))

		assert.Equal(t, []string{"l3", "l2", "l1"}, collectCodes(t, s.List(ctx, ListFilter{})))
		assert.Equal(t, []string{"l4", "l3", "l2", "l1"}, collectCodes(t, s.List(ctx, ListFilter{IncludeInactive: true})))
		assert.Equal(t, []string{"l3", "l1"}, collectCodes(t, s.List(ctx, ListFilter{Campaign: "even"})))
		assert.Equal(t, []string{"l3", "l2"}, collectCodes(t, s.List(ctx, ListFilter{Limit: 2})))

		// Stopping early must not leak or error.
		var first string
		for link, err := range s.List(ctx, ListFilter{}) {
			require.NoError(t, err)
			first = link.Code
			break
		}
		assert.Equal(t, "l3", first)
	})

	t.Run("counts cover active links only", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, code := range []string{"c1", "c2", "c3"} {
			link := newLink(code, base)
			link.CampaignTag = "promo"
			require.NoError(t, s.Insert(ctx, link))
		}
		require.NoError(t, s.Insert(ctx, newLink("c4", base)))
		require.NoError(t, s.Deactivate(ctx, "c3"))

		all, err := s.CountAll(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 3, all)

		promo, err := s.CountByCampaign(ctx, "promo")
		require.NoError(t, err)
		assert.EqualValues(t, 2, promo)

		none, err := s.CountByCampaign(ctx, "missing")
		require.NoError(t, err)
		assert.Zero(t, none)
	})

	t.Run("record increments and appends atomically", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Insert(ctx, newLink("hit", base)))

		require.NoError(t, s.Record(ctx, &models.Click{LinkCode: "hit", ClientIdentifier: "10.0.0.1", Referrer: "https://news.example"}))
		require.NoError(t, s.Record(ctx, &models.Click{LinkCode: "hit", ClientIdentifier: "10.0.0.1", SourceTag: "qr"}))
		require.NoError(t, s.Record(ctx, &models.Click{LinkCode: "hit", ClientIdentifier: "10.0.0.2", Referrer: "https://news.example"}))

		got, err := s.Lookup(ctx, "hit")
		require.NoError(t, err)
		assert.EqualValues(t, 3, got.ClickCount)

		total, err := s.CountClicks(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)

		unique, err := s.CountUniqueClients(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 2, unique)

		bySource, err := s.CountBySource(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"direct": 2, "qr": 1}, bySource)

		stats, err := s.LinkClickStats(ctx, "hit")
		require.NoError(t, err)
		assert.EqualValues(t, 3, stats.TotalClicks)
		assert.EqualValues(t, 2, stats.UniqueClients)
		assert.Equal(t, map[string]int64{"direct": 2, "qr": 1}, stats.BySource)
		assert.Equal(t, []models.ReferrerCount{{Referrer: "https://news.example", Clicks: 2}}, stats.TopReferrers)
	})

	t.Run("record rejects unknown and inactive codes", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Insert(ctx, newLink("off", base)))
		require.NoError(t, s.Deactivate(ctx, "off"))

		assert.ErrorIs(t, s.Record(ctx, &models.Click{LinkCode: "missing"}), ErrUnknownCode)
		assert.ErrorIs(t, s.Record(ctx, &models.Click{LinkCode: "off"}), ErrUnknownCode)

		total, err := s.CountClicks(ctx)
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("concurrent records lose nothing", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Insert(ctx, newLink("busy", base)))

		const k = 25
		var wg sync.WaitGroup
		for range k {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, s.Record(ctx, &models.Click{LinkCode: "busy"}))
			}()
		}
		wg.Wait()

		got, err := s.Lookup(ctx, "busy")
		require.NoError(t, err)
		assert.EqualValues(t, k, got.ClickCount)

		stats, err := s.LinkClickStats(ctx, "busy")
		require.NoError(t, err)
		assert.EqualValues(t, k, stats.TotalClicks)
	})

	t.Run("stats for a code without clicks are zero", func(t *testing.T) {
		s := newStore(t)
		stats, err := s.LinkClickStats(context.Background(), "quiet")
		require.NoError(t, err)
		assert.Zero(t, stats.TotalClicks)
		assert.Empty(t, stats.BySource)
		assert.Empty(t, stats.TopReferrers)
	})
}

func collectCodes(t *testing.T, seq iter.Seq2[*models.Link, error]) []string {
	t.Helper()
	var codes []string
	for link, err := range seq {
		require.NoError(t, err)
		codes = append(codes, link.Code)
	}
	return codes
}
