package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andres10976/slotwatch/internal/model"
)

const selectConfig = `SELECT active, source_cluster, destination_warehouse, destination_cluster,
		window_start, window_end, items, draft_id, draft_operation_id, updated_at
	FROM monitoring_config WHERE id = 1`

// ConfigRepository persists the single monitoring configuration row.
type ConfigRepository struct {
	pool *pgxpool.Pool
}

func NewConfigRepository(pool *pgxpool.Pool) *ConfigRepository {
	return &ConfigRepository{pool: pool}
}

func (r *ConfigRepository) Get(ctx context.Context) (*model.MonitoringConfig, error) {
	return scanConfig(r.pool.QueryRow(ctx, selectConfig))
}

// Save overwrites every field of the row.
func (r *ConfigRepository) Save(ctx context.Context, c *model.MonitoringConfig) error {
	return saveConfig(ctx, r.pool, c)
}

// Update applies fn to the current row under a row lock and writes the
// result back. An error from fn aborts the transaction.
func (r *ConfigRepository) Update(ctx context.Context, fn func(*model.MonitoringConfig) error) (*model.MonitoringConfig, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	c, err := scanConfig(tx.QueryRow(ctx, selectConfig+" FOR UPDATE"))
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := saveConfig(ctx, tx, c); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return c, nil
}

func (r *ConfigRepository) SetActive(ctx context.Context, active bool) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE monitoring_config SET active = $1, updated_at = $2 WHERE id = 1`,
		active, time.Now(),
	)
	return err
}

// SetDraft records the last successful draft calculation.
func (r *ConfigRepository) SetDraft(ctx context.Context, draftID int64, operationID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE monitoring_config SET draft_id = $1, draft_operation_id = $2, updated_at = $3 WHERE id = 1`,
		draftID, operationID, time.Now(),
	)
	return err
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func saveConfig(ctx context.Context, db execer, c *model.MonitoringConfig) error {
	start, end := SplitWindow(c.Window)
	c.UpdatedAt = time.Now()
	_, err := db.Exec(ctx,
		`UPDATE monitoring_config SET
			active = $1,
			source_cluster = $2,
			destination_warehouse = $3,
			destination_cluster = $4,
			window_start = $5,
			window_end = $6,
			items = $7,
			draft_id = $8,
			draft_operation_id = $9,
			updated_at = $10
		WHERE id = 1`,
		c.Active, c.SourceCluster, c.DestinationWarehouse, c.DestinationCluster,
		start, end, ItemsOrEmpty(c.Items), c.DraftID, c.DraftOperationID, c.UpdatedAt,
	)
	return err
}

func scanConfig(row pgx.Row) (*model.MonitoringConfig, error) {
	var (
		c          model.MonitoringConfig
		start, end *int
	)
	err := row.Scan(
		&c.Active, &c.SourceCluster, &c.DestinationWarehouse, &c.DestinationCluster,
		&start, &end, &c.Items, &c.DraftID, &c.DraftOperationID, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Window = JoinWindow(start, end)
	return &c, nil
}
