package repository

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/linktrack/internal/database"
	"github.com/user/linktrack/internal/models"
)

// PostgresStore is the default durable backend.
//
// SECURITY NOTE - SQL Injection Prevention:
// Every query is parameterized ($1, $2, ...). Never build SQL
// with fmt.Sprintf from request data.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a store over an open pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const linkColumns = `id, code, destination_url, custom_name, campaign_tag, active, click_count, created_at`

// Insert relies on ON CONFLICT DO NOTHING: two concurrent inserts of
// the same code both reach the unique index and exactly one affects a row.
func (s *PostgresStore) Insert(ctx context.Context, link *models.Link) error {
	prepareLink(link)

	query := `
		INSERT INTO links (` + linkColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (code) DO NOTHING
	`

	tag, err := s.db.Exec(ctx, query,
		link.ID,
		link.Code,
		link.DestinationURL,
		link.CustomName,
		link.CampaignTag,
		link.Active,
		link.ClickCount,
		link.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyExists
	}

	return nil
}

// Lookup retrieves a link by code.
func (s *PostgresStore) Lookup(ctx context.Context, code string) (*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE code = $1`

	link, err := scanPgLink(s.db.QueryRow(ctx, query, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lookup link: %w", err)
	}

	return link, nil
}

// Exists uses SELECT 1 so the index alone answers it.
func (s *PostgresStore) Exists(ctx context.Context, code string) (bool, error) {
	var one int
	err := s.db.QueryRow(ctx, `SELECT 1 FROM links WHERE code = $1 LIMIT 1`, code).Scan(&one)

	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}

	return true, nil
}

// Deactivate is a soft delete: the row stays so the code is never reissued.
func (s *PostgresStore) Deactivate(ctx context.Context, code string) error {
	tag, err := s.db.Exec(ctx, `UPDATE links SET active = FALSE WHERE code = $1 AND active`, code)
	if err != nil {
		return fmt.Errorf("failed to deactivate link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List streams rows straight from the cursor; the connection is held
// until the caller stops ranging.
func (s *PostgresStore) List(ctx context.Context, filter ListFilter) iter.Seq2[*models.Link, error] {
	return func(yield func(*models.Link, error) bool) {
		var limit *int64
		if filter.Limit > 0 {
			l := int64(filter.Limit)
			limit = &l
		}

		query := `
			SELECT ` + linkColumns + `
			FROM links
			WHERE ($1 OR active)
			  AND ($2 = '' OR campaign_tag = $2)
			ORDER BY created_at DESC, code
			LIMIT $3
		`

		rows, err := s.db.Query(ctx, query, filter.IncludeInactive, filter.Campaign, limit)
		if err != nil {
			yield(nil, fmt.Errorf("failed to list links: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			link, err := scanPgLink(rows)
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

// CountAll counts active links.
func (s *PostgresStore) CountAll(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM links WHERE active`)
}

// CountByCampaign counts active links carrying tag.
func (s *PostgresStore) CountByCampaign(ctx context.Context, tag string) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM links WHERE active AND campaign_tag = $1`, tag)
}

// ===========================================
// Click recording
// ===========================================

// Record runs the counter bump and the click insert in one transaction.
// The UPDATE takes the row lock, so a concurrent Deactivate either
// commits first (and we see zero rows) or waits for us.
func (s *PostgresStore) Record(ctx context.Context, click *models.Click) error {
	prepareClick(click)

	return database.WithPgxTransaction(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE links SET click_count = click_count + 1 WHERE code = $1 AND active`,
			click.LinkCode,
		)
		if err != nil {
			return fmt.Errorf("failed to increment clicks: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrUnknownCode
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO clicks (id, link_code, occurred_at, source_tag, referrer, client_identifier, agent_string)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			click.ID,
			click.LinkCode,
			click.OccurredAt,
			click.SourceTag,
			click.Referrer,
			click.ClientIdentifier,
			click.AgentString,
		)
		if err != nil {
			return fmt.Errorf("failed to insert click: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) CountClicks(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM clicks`)
}

func (s *PostgresStore) CountUniqueClients(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(DISTINCT client_identifier) FROM clicks WHERE client_identifier <> ''`)
}

func (s *PostgresStore) CountBySource(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.Query(ctx, `SELECT source_tag, COUNT(*) FROM clicks GROUP BY source_tag`)
	if err != nil {
		return nil, fmt.Errorf("failed to count by source: %w", err)
	}
	return collectCounts(rows)
}

func (s *PostgresStore) LinkClickStats(ctx context.Context, code string) (*models.LinkClickStats, error) {
	stats := &models.LinkClickStats{BySource: map[string]int64{}, TopReferrers: []models.ReferrerCount{}}

	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT NULLIF(client_identifier, ''))
		FROM clicks WHERE link_code = $1
	`, code).Scan(&stats.TotalClicks, &stats.UniqueClients)
	if err != nil {
		return nil, fmt.Errorf("failed to count link clicks: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT source_tag, COUNT(*) FROM clicks WHERE link_code = $1 GROUP BY source_tag`, code)
	if err != nil {
		return nil, fmt.Errorf("failed to count link sources: %w", err)
	}
	if stats.BySource, err = collectCounts(rows); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(ctx, `
		SELECT referrer, COUNT(*) AS n FROM clicks
		WHERE link_code = $1 AND referrer <> ''
		GROUP BY referrer
		ORDER BY n DESC, referrer
		LIMIT $2
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

// ===========================================
// Helper Functions
// ===========================================

func (s *PostgresStore) count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	return n, nil
}

func scanPgLink(row pgx.Row) (*models.Link, error) {
	link := &models.Link{}
	err := row.Scan(
		&link.ID,
		&link.Code,
		&link.DestinationURL,
		&link.CustomName,
		&link.CampaignTag,
		&link.Active,
		&link.ClickCount,
		&link.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return link, nil
}

func collectCounts(rows pgx.Rows) (map[string]int64, error) {
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
		return nil, fmt.Errorf("failed to read counts: %w", err)
	}
	return out, nil
}

// isDuplicateKeyError checks for a unique constraint violation.
// PostgreSQL error code 23505 = unique_violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
