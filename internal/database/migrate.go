package database

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/001_init.sql
var migrationSQL string

// Migrate applies the schema. It is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, migrationSQL); err != nil {
		return fmt.Errorf("run migration: %w", err)
	}
	return nil
}

// ResetActive clears the active flag left over from a previous process.
// It reports whether the flag was set.
func ResetActive(ctx context.Context, pool *pgxpool.Pool) (bool, error) {
	var was bool
	err := pool.QueryRow(ctx,
		`UPDATE monitoring_config c SET active = false
		 FROM (SELECT active FROM monitoring_config WHERE id = 1 FOR UPDATE) prev
		 WHERE c.id = 1
		 RETURNING prev.active`,
	).Scan(&was)
	if err != nil {
		return false, fmt.Errorf("reset active flag: %w", err)
	}
	return was, nil
}
