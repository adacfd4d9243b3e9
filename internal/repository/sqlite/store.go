// Package sqlite is the embedded storage backend. It keeps the same
// records as the Postgres repositories in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store owns the database handle shared by the repositories.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path, applies pragmas and the
// schema. Write transactions take the lock up front so read-modify-write
// updates never fail halfway with SQLITE_BUSY.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Config() *ConfigRepository { return NewConfigRepository(s.db) }

func (s *Store) Favorites() *WarehouseListRepository { return NewWarehouseListRepository(s.db) }

// ResetActive clears the active flag left over from a previous process and
// reports whether it was set.
func (s *Store) ResetActive(ctx context.Context) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var was bool
	if err := tx.QueryRowContext(ctx, `SELECT active FROM monitoring_config WHERE id = 1`).Scan(&was); err != nil {
		return false, fmt.Errorf("read active flag: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE monitoring_config SET active = 0 WHERE id = 1`); err != nil {
		return false, fmt.Errorf("reset active flag: %w", err)
	}
	return was, tx.Commit()
}
