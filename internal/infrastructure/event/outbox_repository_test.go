package event

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/propflow/backend/internal/domain/shared"
	"github.com/propflow/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.OutboxEntryModel{}))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newOutboxEntry(t *testing.T, eventType string) *shared.OutboxEntry {
	t.Helper()
	s := NewEventSerializer()
	ev := newTestEvent(eventType)
	payload, err := s.Serialize(ev)
	require.NoError(t, err)
	return shared.NewOutboxEntry(ev, payload, shared.DefaultDeliveryPolicy)
}

func TestGormOutboxRepository_SaveAndClaim(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOutboxRepository(newOutboxTestDB(t))

	first := newOutboxEntry(t, "submission.created")
	second := newOutboxEntry(t, "agreement.signed")
	require.NoError(t, repo.Save(ctx, first, second))

	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "42", pending[0].AggregateID)

	claimed, err := repo.MarkProcessing(ctx, []uuid.UUID{first.ID, second.ID})
	require.NoError(t, err)
	assert.Len(t, claimed, 2)
	for _, e := range claimed {
		assert.Equal(t, shared.OutboxStatusProcessing, e.Status)
	}

	again, err := repo.MarkProcessing(ctx, []uuid.UUID{first.ID})
	require.NoError(t, err)
	assert.Empty(t, again, "an entry is claimed once")
}

func TestGormOutboxRepository_RetryAndCleanup(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOutboxRepository(newOutboxTestDB(t))

	failed := newOutboxEntry(t, "submission.created")
	sent := newOutboxEntry(t, "agreement.signed")
	require.NoError(t, repo.Save(ctx, failed, sent))

	failed.MarkFailed("smtp down")
	past := time.Now().Add(-time.Minute)
	failed.NextRetryAt = &past
	require.NoError(t, repo.Update(ctx, failed))

	sent.MarkSent()
	old := time.Now().Add(-48 * time.Hour)
	sent.ProcessedAt = &old
	require.NoError(t, repo.Update(ctx, sent))

	retryable, err := repo.FindRetryable(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, retryable, 1)
	assert.Equal(t, "smtp down", retryable[0].LastError)
	assert.Equal(t, 1, retryable[0].RetryCount)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusFailed])
	assert.Equal(t, int64(1), counts[shared.OutboxStatusSent])

	deleted, err := repo.DeleteOlderThan(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	found, err := repo.FindByID(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, failed.EventID, found.EventID)

	_, err = repo.FindByID(ctx, sent.ID)
	assert.True(t, shared.HasCode(err, shared.CodeNotFound))
}

func TestGormOutboxRepository_FindDead(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOutboxRepository(newOutboxTestDB(t))

	entry := newOutboxEntry(t, "submission.created")
	entry.MaxRetries = 1
	require.NoError(t, repo.Save(ctx, entry))
	entry.MarkFailed("gone")
	require.True(t, entry.IsDead())
	require.NoError(t, repo.Update(ctx, entry))

	dead, total, err := repo.FindDead(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, dead, 1)
	assert.Equal(t, entry.ID, dead[0].ID)
}
