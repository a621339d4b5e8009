// Package data persists served inferences for auditing and quality
// monitoring. Sqlite is the default backing store; a postgres DSN switches
// the driver transparently.
package data

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	// DataFileName is the default sqlite file name under the app home dir.
	DataFileName = "visor.db"

	driverSqlite   = "sqlite"
	driverPostgres = "postgres"
)

//go:embed sql/*
var ddlFS embed.FS

// Store wraps a database handle together with its driver so queries can be
// rebound for the postgres placeholder syntax.
type Store struct {
	db     *sql.DB
	driver string
}

// Init creates the database schema if it does not exist and returns an
// open store. The DDL is idempotent, so Init is safe on every start.
func Init(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN not specified")
	}

	driver := driverFor(dsn)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dsn, err)
	}

	ddlFile := "sql/ddl.sql"
	if driver == driverPostgres {
		ddlFile = "sql/ddl_postgres.sql"
	}

	b, err := ddlFS.ReadFile(ddlFile)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read the schema creation file: %w", err)
	}

	slog.Debug("ensuring db schema", "driver", driver)
	if _, err := db.Exec(string(b)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create database schema in %s: %w", dsn, err)
	}

	return &Store{db: db, driver: driver}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

func driverFor(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return driverPostgres
	}
	return driverSqlite
}

// bind rewrites ? placeholders to the $n syntax when running on postgres.
func (s *Store) bind(query string) string {
	if s.driver != driverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
