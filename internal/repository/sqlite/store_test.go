package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andres10976/slotwatch/internal/model"
	"github.com/andres10976/slotwatch/internal/repository"
)

func createTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "slotwatch.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestOpen_SeedsEmptyConfig(t *testing.T) {
	s, _ := createTestStore(t)

	c, err := s.Config().Get(context.Background())
	require.NoError(t, err)
	assert.False(t, c.Active)
	assert.Nil(t, c.SourceCluster)
	assert.Nil(t, c.Window)
	assert.Empty(t, c.Items)
	assert.Nil(t, c.DraftID)
}

func TestConfig_RoundTripAcrossReopen(t *testing.T) {
	s, path := createTestStore(t)
	ctx := context.Background()

	w, _ := model.ParseWindow("09:00-10:00")
	want := &model.MonitoringConfig{
		Active:               true,
		SourceCluster:        model.Int64(154),
		DestinationWarehouse: model.Int64(2),
		DestinationCluster:   model.Int64(4039),
		Window:               &w,
		Items:                []model.Item{{SKU: 11, Quantity: 4}, {SKU: 12, Quantity: 1}},
		DraftID:              model.Int64(777),
		DraftOperationID:     "op-1",
	}
	require.NoError(t, s.Config().Save(ctx, want))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Config().Get(ctx)
	require.NoError(t, err)
	assert.True(t, got.Active)
	assert.Equal(t, want.SourceCluster, got.SourceCluster)
	assert.Equal(t, want.DestinationWarehouse, got.DestinationWarehouse)
	assert.Equal(t, want.DestinationCluster, got.DestinationCluster)
	assert.Equal(t, want.Window, got.Window)
	assert.Equal(t, want.Items, got.Items)
	assert.Equal(t, want.DraftID, got.DraftID)
	assert.Equal(t, "op-1", got.DraftOperationID)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestConfig_PartialSetters(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()
	repo := s.Config()

	require.NoError(t, repo.Save(ctx, &model.MonitoringConfig{SourceCluster: model.Int64(1)}))
	require.NoError(t, repo.SetActive(ctx, true))
	require.NoError(t, repo.SetDraft(ctx, 42, "op-42"))

	c, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.True(t, c.Active)
	assert.Equal(t, int64(42), *c.DraftID)
	assert.Equal(t, "op-42", c.DraftOperationID)
	assert.Equal(t, int64(1), *c.SourceCluster)
}

func TestConfig_UpdateAbortsOnError(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()
	repo := s.Config()

	_, err := repo.Update(ctx, func(c *model.MonitoringConfig) error {
		c.PutItem(1, 1)
		return nil
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = repo.Update(ctx, func(c *model.MonitoringConfig) error {
		c.PutItem(2, 2)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	c, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, c.SKUs())
}

func TestResetActive(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Config().SetActive(ctx, true))
	was, err := s.ResetActive(ctx)
	require.NoError(t, err)
	assert.True(t, was)

	was, err = s.ResetActive(ctx)
	require.NoError(t, err)
	assert.False(t, was)
}

func TestFavorites_OrderDuplicateRemove(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()
	favs := s.Favorites()

	a, err := favs.Add(ctx, 10, "Sofyino")
	require.NoError(t, err)
	assert.Equal(t, 1, a.Position)
	b, err := favs.Add(ctx, 20, "Noginsk")
	require.NoError(t, err)
	assert.Equal(t, 2, b.Position)

	_, err = favs.Add(ctx, 10, "Sofyino again")
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	list, err := favs.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(10), list[0].ID)
	assert.Equal(t, int64(20), list[1].ID)

	require.NoError(t, favs.Remove(ctx, 10))
	assert.ErrorIs(t, favs.Remove(ctx, 10), repository.ErrNotFound)

	c, err := favs.Add(ctx, 30, "Khorugvino")
	require.NoError(t, err)
	assert.Equal(t, 3, c.Position)
}

var configColumns = []string{
	"active", "source_cluster", "destination_warehouse", "destination_cluster",
	"window_start", "window_end", "items", "draft_id", "draft_operation_id", "updated_at",
}

func TestConfig_GetMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT active, source_cluster")).
		WillReturnRows(sqlmock.NewRows(configColumns))

	_, err = NewConfigRepository(db).Get(context.Background())
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfig_UpdateRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT active, source_cluster")).
		WillReturnRows(sqlmock.NewRows(configColumns).
			AddRow(false, nil, nil, nil, nil, nil, "[]", nil, "", time.Now()))
	mock.ExpectRollback()

	_, err = NewConfigRepository(db).Update(context.Background(), func(*model.MonitoringConfig) error {
		return errors.New("rejected")
	})
	assert.EqualError(t, err, "rejected")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfig_SaveError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE monitoring_config SET")).
		WillReturnError(errors.New("disk I/O error"))

	err = NewConfigRepository(db).Save(context.Background(), &model.MonitoringConfig{})
	assert.EqualError(t, err, "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}
