// Package storage persists detected modules and extracted declarations in
// a SQLite database under .routemap/index.db.
package storage

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"routemap/internal/paths"
)

// Connection settings. WAL lets `routemap scan` read the previous index
// while `routemap index` writes the next one.
var connPragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
	"PRAGMA busy_timeout=5000",
	"PRAGMA temp_store=MEMORY",
}

// DB is the declaration database.
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
	path   string
}

// Open opens .routemap/index.db under repoRoot, creating it and bringing
// its schema up to date.
func Open(repoRoot string, logger *slog.Logger) (*DB, error) {
	if _, err := paths.EnsureRepoDir(repoRoot); err != nil {
		return nil, fmt.Errorf("failed to create .routemap directory: %w", err)
	}
	return OpenPath(paths.DatabasePath(repoRoot), logger)
}

// OpenPath opens the database at path.
func OpenPath(path string, logger *slog.Logger) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps the pragmas in effect for every statement.
	conn.SetMaxOpenConns(1)

	for _, p := range connPragmas {
		if _, err := conn.Exec(p); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	db := &DB{conn: conn, logger: logger, path: path}
	if err := db.migrate(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to prepare schema: %w", err)
	}
	return db, nil
}

func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// WithTx runs fn in a transaction, committing when it returns nil.
func (db *DB) WithTx(fn func(*sql.Tx) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("Rollback failed", "error", err.Error(), "rollbackError", rbErr.Error())
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (db *DB) Exec(query string, args ...any) (sql.Result, error) {
	return db.conn.Exec(query, args...)
}

func (db *DB) Query(query string, args ...any) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}

func (db *DB) QueryRow(query string, args ...any) *sql.Row {
	return db.conn.QueryRow(query, args...)
}
