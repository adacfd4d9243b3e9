package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andres10976/slotwatch/internal/model"
)

// WarehouseListRepository stores the ordered list of favorite drop-off points.
type WarehouseListRepository struct {
	pool *pgxpool.Pool
}

func NewWarehouseListRepository(pool *pgxpool.Pool) *WarehouseListRepository {
	return &WarehouseListRepository{pool: pool}
}

func (r *WarehouseListRepository) List(ctx context.Context) ([]model.FavoriteWarehouse, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT warehouse_id, name, sort_order, created_at
		 FROM favorite_warehouses ORDER BY sort_order`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.FavoriteWarehouse
	for rows.Next() {
		var w model.FavoriteWarehouse
		if err := rows.Scan(&w.ID, &w.Name, &w.Position, &w.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, w)
	}
	return list, rows.Err()
}

// Add appends a warehouse to the end of the list. Adding an id that is
// already listed returns ErrDuplicate.
func (r *WarehouseListRepository) Add(ctx context.Context, id int64, name string) (*model.FavoriteWarehouse, error) {
	var w model.FavoriteWarehouse
	err := r.pool.QueryRow(ctx,
		`INSERT INTO favorite_warehouses (warehouse_id, name, sort_order)
		 SELECT $1, $2, COALESCE(MAX(sort_order), 0) + 1 FROM favorite_warehouses
		 RETURNING warehouse_id, name, sort_order, created_at`, id, name,
	).Scan(&w.ID, &w.Name, &w.Position, &w.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &w, nil
}

func (r *WarehouseListRepository) Remove(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM favorite_warehouses WHERE warehouse_id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
