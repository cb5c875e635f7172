package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

var ErrUnsupportedDSN = errors.New("unsupported database url")

// Open connects to the database named by dsn:
//
//	sqlite://./sqlite.db          file database (created when missing)
//	sqlite://:memory:             private in-memory database
//	postgres://user:pw@host/db    Postgres through pgx
func Open(dsn string) (*bun.DB, error) {
	var bundb *bun.DB
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		if path == "" {
			return nil, fmt.Errorf("Open: %w: empty sqlite path", ErrUnsupportedDSN)
		}
		rawDB, err := sql.Open(sqliteshim.ShimName, path)
		if err != nil {
			return nil, fmt.Errorf("Open: %w", err)
		}
		if strings.Contains(path, ":memory:") || strings.Contains(path, "mode=memory") {
			// each pooled connection would see its own empty database
			rawDB.SetMaxOpenConns(1)
		} else {
			rawDB.SetMaxIdleConns(8)
		}
		bundb = bun.NewDB(rawDB, sqlitedialect.New())
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		rawDB, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("Open: %w", err)
		}
		bundb = bun.NewDB(rawDB, pgdialect.New())
	default:
		return nil, fmt.Errorf("Open: %w: %q", ErrUnsupportedDSN, redact(dsn))
	}

	bundb.AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithVerbose(true),
		bundebug.FromEnv("BUNDEBUG"),
	))
	return bundb, nil
}

// redact drops everything after the scheme so credentials never reach logs.
func redact(dsn string) string {
	if scheme, _, ok := strings.Cut(dsn, "://"); ok {
		return scheme + "://..."
	}
	if len(dsn) > 8 {
		return dsn[:8] + "..."
	}
	return dsn
}
