package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/andres10976/slotwatch/internal/model"
	"github.com/andres10976/slotwatch/internal/repository"
)

const selectConfig = `SELECT active, source_cluster, destination_warehouse, destination_cluster,
		window_start, window_end, items, draft_id, draft_operation_id, updated_at
	FROM monitoring_config WHERE id = 1`

type ConfigRepository struct {
	db *sql.DB
}

func NewConfigRepository(db *sql.DB) *ConfigRepository {
	return &ConfigRepository{db: db}
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *ConfigRepository) Get(ctx context.Context) (*model.MonitoringConfig, error) {
	return getConfig(ctx, r.db)
}

func (r *ConfigRepository) Save(ctx context.Context, c *model.MonitoringConfig) error {
	return saveConfig(ctx, r.db, c)
}

// Update applies fn to the current row inside a write transaction.
func (r *ConfigRepository) Update(ctx context.Context, fn func(*model.MonitoringConfig) error) (*model.MonitoringConfig, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	c, err := getConfig(ctx, tx)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := saveConfig(ctx, tx, c); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return c, nil
}

func (r *ConfigRepository) SetActive(ctx context.Context, active bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE monitoring_config SET active = ?, updated_at = ? WHERE id = 1`,
		active, time.Now().UTC(),
	)
	return err
}

func (r *ConfigRepository) SetDraft(ctx context.Context, draftID int64, operationID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE monitoring_config SET draft_id = ?, draft_operation_id = ?, updated_at = ? WHERE id = 1`,
		draftID, operationID, time.Now().UTC(),
	)
	return err
}

func getConfig(ctx context.Context, q queryer) (*model.MonitoringConfig, error) {
	var (
		c          model.MonitoringConfig
		start, end *int
		items      string
	)
	err := q.QueryRowContext(ctx, selectConfig).Scan(
		&c.Active, &c.SourceCluster, &c.DestinationWarehouse, &c.DestinationCluster,
		&start, &end, &items, &c.DraftID, &c.DraftOperationID, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(items), &c.Items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	c.Window = repository.JoinWindow(start, end)
	return &c, nil
}

func saveConfig(ctx context.Context, q queryer, c *model.MonitoringConfig) error {
	items, err := json.Marshal(repository.ItemsOrEmpty(c.Items))
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	start, end := repository.SplitWindow(c.Window)
	c.UpdatedAt = time.Now().UTC()

	_, err = q.ExecContext(ctx,
		`UPDATE monitoring_config SET
			active = ?,
			source_cluster = ?,
			destination_warehouse = ?,
			destination_cluster = ?,
			window_start = ?,
			window_end = ?,
			items = ?,
			draft_id = ?,
			draft_operation_id = ?,
			updated_at = ?
		WHERE id = 1`,
		c.Active, c.SourceCluster, c.DestinationWarehouse, c.DestinationCluster,
		start, end, string(items), c.DraftID, c.DraftOperationID, c.UpdatedAt,
	)
	return err
}
