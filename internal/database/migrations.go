package database

// Schema statements run one at a time, in order, on every start.
// Every statement must be idempotent.
//
// links.code is the natural key: clicks reference it directly and
// rows are never deleted, so a code is never handed out twice.

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS links (
		id              UUID PRIMARY KEY,
		code            TEXT NOT NULL UNIQUE,
		destination_url TEXT NOT NULL,
		custom_name     TEXT NOT NULL DEFAULT '',
		campaign_tag    TEXT NOT NULL DEFAULT '',
		active          BOOLEAN NOT NULL DEFAULT TRUE,
		click_count     BIGINT NOT NULL DEFAULT 0,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_links_created_at ON links (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_links_campaign ON links (campaign_tag) WHERE active`,
	`CREATE TABLE IF NOT EXISTS clicks (
		id                UUID PRIMARY KEY,
		link_code         TEXT NOT NULL REFERENCES links (code),
		occurred_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		source_tag        TEXT NOT NULL DEFAULT 'direct',
		referrer          TEXT NOT NULL DEFAULT '',
		client_identifier TEXT NOT NULL DEFAULT '',
		agent_string      TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_clicks_link_code ON clicks (link_code)`,
	`CREATE INDEX IF NOT EXISTS idx_clicks_occurred_at ON clicks (occurred_at)`,
}

// SQLite stores UUIDs as TEXT and timestamps as unix nanoseconds so
// ordering and round-trips do not depend on driver time parsing.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS links (
		id              TEXT PRIMARY KEY,
		code            TEXT NOT NULL UNIQUE,
		destination_url TEXT NOT NULL,
		custom_name     TEXT NOT NULL DEFAULT '',
		campaign_tag    TEXT NOT NULL DEFAULT '',
		active          INTEGER NOT NULL DEFAULT 1,
		click_count     INTEGER NOT NULL DEFAULT 0,
		created_at      INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_links_created_at ON links (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_links_campaign ON links (campaign_tag) WHERE active = 1`,
	`CREATE TABLE IF NOT EXISTS clicks (
		id                TEXT PRIMARY KEY,
		link_code         TEXT NOT NULL REFERENCES links (code),
		occurred_at       INTEGER NOT NULL,
		source_tag        TEXT NOT NULL DEFAULT 'direct',
		referrer          TEXT NOT NULL DEFAULT '',
		client_identifier TEXT NOT NULL DEFAULT '',
		agent_string      TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_clicks_link_code ON clicks (link_code)`,
	`CREATE INDEX IF NOT EXISTS idx_clicks_occurred_at ON clicks (occurred_at)`,
}
