package main

import (
	"context"
	"fmt"

	"github.com/andres10976/slotwatch/internal/config"
	"github.com/andres10976/slotwatch/internal/database"
	"github.com/andres10976/slotwatch/internal/model"
	"github.com/andres10976/slotwatch/internal/repository"
	"github.com/andres10976/slotwatch/internal/repository/sqlite"
	"github.com/andres10976/slotwatch/internal/service/monitor"
	"github.com/andres10976/slotwatch/internal/service/setup"
)

type configStore interface {
	monitor.ConfigStore
	setup.ConfigStore
}

type favoriteStore interface {
	List(ctx context.Context) ([]model.FavoriteWarehouse, error)
	Add(ctx context.Context, id int64, name string) (*model.FavoriteWarehouse, error)
	Remove(ctx context.Context, id int64) error
}

// storage is the selected persistence backend with its schema applied.
type storage struct {
	config      configStore
	favorites   favoriteStore
	ping        func(ctx context.Context) error
	resetActive func(ctx context.Context) (bool, error)
	close       func()
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &storage{
			config:      repository.NewConfigRepository(pool),
			favorites:   repository.NewWarehouseListRepository(pool),
			ping:        pool.Ping,
			resetActive: func(ctx context.Context) (bool, error) { return database.ResetActive(ctx, pool) },
			close:       pool.Close,
		}, nil

	case config.BackendSQLite:
		st, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &storage{
			config:      st.Config(),
			favorites:   st.Favorites(),
			ping:        st.DB().PingContext,
			resetActive: st.ResetActive,
			close:       func() { st.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
