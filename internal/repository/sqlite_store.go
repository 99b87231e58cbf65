package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"

	"github.com/user/linktrack/internal/models"
)

// SQLiteStore is the embedded durable backend (modernc SQLite or libsql).
//
// With a single-connection local database, a caller ranging over List
// must not call back into the store until it stops iterating.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store over an open, migrated handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Insert(ctx context.Context, link *models.Link) error {
	prepareLink(link)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO links (`+linkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (code) DO NOTHING
	`,
		link.ID.String(),
		link.Code,
		link.DestinationURL,
		link.CustomName,
		link.CampaignTag,
		link.Active,
		link.ClickCount,
		link.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert link: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to insert link: %w", err)
	}
	if n == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (s *SQLiteStore) Lookup(ctx context.Context, code string) (*models.Link, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM links WHERE code = ?`, code)

	link, err := scanSQLLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lookup link: %w", err)
	}
	return link, nil
}

func (s *SQLiteStore) Exists(ctx context.Context, code string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM links WHERE code = ? LIMIT 1`, code).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) Deactivate(ctx context.Context, code string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE links SET active = 0 WHERE code = ? AND active = 1`, code)
	if err != nil {
		return fmt.Errorf("failed to deactivate link: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to deactivate link: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) iter.Seq2[*models.Link, error] {
	return func(yield func(*models.Link, error) bool) {
		limit := -1 // SQLite: negative LIMIT means no limit
		if filter.Limit > 0 {
			limit = filter.Limit
		}

		rows, err := s.db.QueryContext(ctx, `
			SELECT `+linkColumns+`
			FROM links
			WHERE (? OR active = 1)
			  AND (? = '' OR campaign_tag = ?)
			ORDER BY created_at DESC, code
			LIMIT ?
		`, filter.IncludeInactive, filter.Campaign, filter.Campaign, limit)
		if err != nil {
			yield(nil, fmt.Errorf("failed to list links: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			link, err := scanSQLLink(rows)
			if err != nil {
				yield(nil, fmt.Errorf("failed to scan link: %w", err))
				return
			}
			if !yield(link, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("failed to list links: %w", err))
		}
	}
}

func (s *SQLiteStore) CountAll(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM links WHERE active = 1`)
}

func (s *SQLiteStore) CountByCampaign(ctx context.Context, tag string) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM links WHERE active = 1 AND campaign_tag = ?`, tag)
}

// Record bumps the counter and appends the click in one transaction.
func (s *SQLiteStore) Record(ctx context.Context, click *models.Click) error {
	prepareClick(click)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE links SET click_count = click_count + 1 WHERE code = ? AND active = 1`,
		click.LinkCode,
	)
	if err != nil {
		return fmt.Errorf("failed to increment clicks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to increment clicks: %w", err)
	}
	if n == 0 {
		return ErrUnknownCode
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO clicks (id, link_code, occurred_at, source_tag, referrer, client_identifier, agent_string)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		click.ID.String(),
		click.LinkCode,
		click.OccurredAt.UnixNano(),
		click.SourceTag,
		click.Referrer,
		click.ClientIdentifier,
		click.AgentString,
	)
	if err != nil {
		return fmt.Errorf("failed to insert click: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CountClicks(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM clicks`)
}

func (s *SQLiteStore) CountUniqueClients(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(DISTINCT client_identifier) FROM clicks WHERE client_identifier <> ''`)
}

func (s *SQLiteStore) CountBySource(ctx context.Context) (map[string]int64, error) {
	return s.groupCounts(ctx, `SELECT source_tag, COUNT(*) FROM clicks GROUP BY source_tag`)
}

func (s *SQLiteStore) LinkClickStats(ctx context.Context, code string) (*models.LinkClickStats, error) {
	stats := &models.LinkClickStats{TopReferrers: []models.ReferrerCount{}}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT NULLIF(client_identifier, ''))
		FROM clicks WHERE link_code = ?
	`, code).Scan(&stats.TotalClicks, &stats.UniqueClients)
	if err != nil {
		return nil, fmt.Errorf("failed to count link clicks: %w", err)
	}

	stats.BySource, err = s.groupCounts(ctx,
		`SELECT source_tag, COUNT(*) FROM clicks WHERE link_code = ? GROUP BY source_tag`, code)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT referrer, COUNT(*) AS n FROM clicks
		WHERE link_code = ? AND referrer <> ''
		GROUP BY referrer
		ORDER BY n DESC, referrer
		LIMIT ?
	`, code, topReferrerLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank referrers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rc models.ReferrerCount
		if err := rows.Scan(&rc.Referrer, &rc.Clicks); err != nil {
			return nil, fmt.Errorf("failed to scan referrer: %w", err)
		}
		stats.TopReferrers = append(stats.TopReferrers, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to rank referrers: %w", err)
	}

	return stats, nil
}

func (s *SQLiteStore) count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) groupCounts(ctx context.Context, query string, args ...any) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to group counts: %w", err)
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		out[key] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to group counts: %w", err)
	}
	return out, nil
}

type sqlScanner interface {
	Scan(dest ...any) error
}

func scanSQLLink(row sqlScanner) (*models.Link, error) {
	var (
		link      models.Link
		id        string
		createdAt int64
	)
	err := row.Scan(
		&id,
		&link.Code,
		&link.DestinationURL,
		&link.CustomName,
		&link.CampaignTag,
		&link.Active,
		&link.ClickCount,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if link.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("corrupt link id %q: %w", id, err)
	}
	link.CreatedAt = time.Unix(0, createdAt).UTC()
	return &link, nil
}
