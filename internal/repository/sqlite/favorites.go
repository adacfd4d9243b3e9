package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/andres10976/slotwatch/internal/model"
	"github.com/andres10976/slotwatch/internal/repository"
)

type WarehouseListRepository struct {
	db *sql.DB
}

func NewWarehouseListRepository(db *sql.DB) *WarehouseListRepository {
	return &WarehouseListRepository{db: db}
}

func (r *WarehouseListRepository) List(ctx context.Context) ([]model.FavoriteWarehouse, error) {
	rows, err := r.db.QueryContext(ctx,
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

func (r *WarehouseListRepository) Add(ctx context.Context, id int64, name string) (*model.FavoriteWarehouse, error) {
	w := model.FavoriteWarehouse{ID: id, Name: name, CreatedAt: time.Now().UTC()}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO favorite_warehouses (warehouse_id, name, sort_order, created_at)
		 SELECT ?, ?, COALESCE(MAX(sort_order), 0) + 1, ? FROM favorite_warehouses
		 RETURNING sort_order`, id, name, w.CreatedAt,
	).Scan(&w.Position)
	if err != nil {
		var sqlErr sqlite3.Error
		if errors.As(err, &sqlErr) && isUniqueViolation(sqlErr) {
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}
	return &w, nil
}

func (r *WarehouseListRepository) Remove(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM favorite_warehouses WHERE warehouse_id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err sqlite3.Error) bool {
	return err.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || err.ExtendedCode == sqlite3.ErrConstraintUnique
}
