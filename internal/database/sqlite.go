package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	_ "modernc.org/sqlite"
)

// SQLiteDB is the embedded durable backend. A local path or file: URL
// opens modernc's pure-Go SQLite; libsql:// and wss:// URLs go to Turso.
type SQLiteDB struct {
	DB     *sql.DB
	Driver string
}

// NewSQLiteDB opens and pings the database.
func NewSQLiteDB(ctx context.Context, dbURL string) (*SQLiteDB, error) {
	driverName := "sqlite"
	if strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driverName, err)
	}

	if driverName == "sqlite" {
		// One writer at a time; this also keeps ":memory:" databases
		// pinned to a single connection.
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driverName, err)
	}

	if driverName == "sqlite" {
		for _, pragma := range []string{
			"PRAGMA foreign_keys = ON",
			"PRAGMA busy_timeout = 5000",
			"PRAGMA journal_mode = WAL",
		} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
			}
		}
	}

	return &SQLiteDB{DB: db, Driver: driverName}, nil
}

// Migrate creates the schema if it does not exist yet.
func (s *SQLiteDB) Migrate(ctx context.Context) error {
	for i, stmt := range sqliteSchema {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite migration step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// Health checks if the database is responsive.
func (s *SQLiteDB) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.DB.PingContext(ctx)
}

// Close releases the handle.
func (s *SQLiteDB) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}
