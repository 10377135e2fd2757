package persistence

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/propflow/backend/internal/domain/shared"
	"github.com/propflow/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

type widget struct {
	Name  string `json:"name" validate:"required"`
	Count int    `json:"count" validate:"gte=0"`
}

func TestEntityStore_InsertGetUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewEntityStore(newTestDB(t))

	require.NoError(t, store.Insert(ctx, "widgets", "1", &widget{Name: "first", Count: 1}))

	err := store.Insert(ctx, "widgets", "1", &widget{Name: "again"})
	assert.True(t, shared.HasCode(err, shared.CodeConflict), "got %v", err)

	var got widget
	version, err := store.Get(ctx, "widgets", "1", &got)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.Equal(t, "first", got.Name)

	got.Count = 2
	version, err = store.Update(ctx, "widgets", "1", &got, version)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	_, err = store.Update(ctx, "widgets", "1", &got, 1)
	assert.ErrorIs(t, err, shared.ErrConcurrentModification)

	_, err = store.Update(ctx, "widgets", "missing", &got, 1)
	assert.ErrorIs(t, err, errSnapshotMissing)

	var reread widget
	_, err = store.Get(ctx, "widgets", "1", &reread)
	require.NoError(t, err)
	assert.Equal(t, 2, reread.Count)
}

func TestEntityStore_ValidatesSnapshots(t *testing.T) {
	store := NewEntityStore(newTestDB(t))

	err := store.Insert(context.Background(), "widgets", "1", &widget{Count: -1})
	require.Error(t, err)
	assert.True(t, shared.HasCode(err, shared.CodeValidationFailed))

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Len(t, domainErr.Details, 2)
}

func TestEntityStore_DeleteListCount(t *testing.T) {
	ctx := context.Background()
	store := NewEntityStore(newTestDB(t))

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, store.Insert(ctx, "widgets", key, &widget{Name: key}))
	}
	require.NoError(t, store.Insert(ctx, "gadgets", "a", &widget{Name: "other"}))

	count, err := store.Count(ctx, "widgets")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	require.NoError(t, store.Delete(ctx, "widgets", "b"))
	assert.ErrorIs(t, store.Delete(ctx, "widgets", "b"), errSnapshotMissing)

	exists, err := store.Exists(ctx, "widgets", "b")
	require.NoError(t, err)
	assert.False(t, exists)

	raws, err := store.List(ctx, "widgets")
	require.NoError(t, err)
	require.Len(t, raws, 2)
	keys := []string{raws[0].Key, raws[1].Key}
	assert.ElementsMatch(t, []string{"a", "c"}, keys)
}

func TestEntityStore_AppendOnce(t *testing.T) {
	ctx := context.Background()
	store := NewEntityStore(newTestDB(t))

	require.NoError(t, store.Append(ctx, "log", &widget{Name: "one"}))
	require.NoError(t, store.Append(ctx, "log", &widget{Name: "one"}))

	written, err := store.AppendOnce(ctx, "log", "ready", &widget{Name: "ready"})
	require.NoError(t, err)
	assert.True(t, written)

	written, err = store.AppendOnce(ctx, "log", "ready", &widget{Name: "ready"})
	require.NoError(t, err)
	assert.False(t, written)

	written, err = store.AppendOnce(ctx, "other", "ready", &widget{Name: "ready"})
	require.NoError(t, err)
	assert.True(t, written, "dedup keys are scoped per collection")

	entries, err := store.Entries(ctx, "log")
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.JSONEq(t, `{"name":"one","count":0}`, string(entries[0]))
}

func newMockStore(t *testing.T) (*EntityStore, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true, Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return NewEntityStore(gormDB), mock
}

func TestEntityStore_UpdateVersionMismatch_Postgres(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "entity_snapshots" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "entity_snapshots"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, err := store.Update(context.Background(), "stands", "7", &widget{Name: "s"}, 3)
	assert.ErrorIs(t, err, shared.ErrConcurrentModification)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntityStore_Get_Postgres(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"collection", "entity_key", "data", "version"}).
		AddRow("stands", "7", []byte(`{"name":"Stand 7","count":4}`), 5)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "entity_snapshots" WHERE collection = $1 AND entity_key = $2`)).
		WillReturnRows(rows)

	var got widget
	version, err := store.Get(context.Background(), "stands", "7", &got)
	require.NoError(t, err)
	assert.Equal(t, 5, version)
	assert.Equal(t, "Stand 7", got.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
