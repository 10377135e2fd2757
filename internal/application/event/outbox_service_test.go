package event

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/propflow/backend/internal/domain/shared"
	"github.com/propflow/backend/tests/testutil"
)

type memoryDeadLetters struct {
	entries map[uuid.UUID]*shared.OutboxEntry
}

func newMemoryDeadLetters() *memoryDeadLetters {
	return &memoryDeadLetters{entries: make(map[uuid.UUID]*shared.OutboxEntry)}
}

func (r *memoryDeadLetters) add(status shared.OutboxStatus) *shared.OutboxEntry {
	now := time.Now()
	e := &shared.OutboxEntry{
		ID:            uuid.New(),
		EventID:       uuid.New(),
		EventType:     "submission.created",
		AggregateID:   "601",
		AggregateType: "offer",
		Status:        status,
		MaxRetries:    5,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if status == shared.OutboxStatusDead {
		e.RetryCount = 5
		e.LastError = "smtp unreachable"
	}
	r.entries[e.ID] = e
	return e
}

func (r *memoryDeadLetters) FindDead(_ context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	var dead []*shared.OutboxEntry
	for _, e := range r.entries {
		if e.Status == shared.OutboxStatusDead {
			dead = append(dead, e)
		}
	}
	sort.Slice(dead, func(i, j int) bool { return dead[i].ID.String() < dead[j].ID.String() })
	total := int64(len(dead))
	start := (page - 1) * pageSize
	if start >= len(dead) {
		return nil, total, nil
	}
	end := min(start+pageSize, len(dead))
	return dead[start:end], total, nil
}

func (r *memoryDeadLetters) FindByID(_ context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	if e, ok := r.entries[id]; ok {
		return e, nil
	}
	return nil, shared.NewNotFoundError("Outbox entry", id)
}

func (r *memoryDeadLetters) Update(_ context.Context, entry *shared.OutboxEntry) error {
	r.entries[entry.ID] = entry
	return nil
}

func (r *memoryDeadLetters) CountByStatus(context.Context) (map[shared.OutboxStatus]int64, error) {
	counts := make(map[shared.OutboxStatus]int64)
	for _, e := range r.entries {
		counts[e.Status]++
	}
	return counts, nil
}

func TestOutboxService_RequiresAdmin(t *testing.T) {
	ctx := context.Background()
	service := NewOutboxService(newMemoryDeadLetters(), zap.NewNop())

	_, err := service.GetStats(ctx, testutil.Manager())
	assert.True(t, shared.HasCode(err, shared.CodeForbidden))
	_, err = service.GetDeadLetterEntries(ctx, testutil.Agent("agent1"), OutboxFilter{})
	assert.True(t, shared.HasCode(err, shared.CodeForbidden))
	_, err = service.RetryAllDeadEntries(ctx, testutil.Compliance())
	assert.True(t, shared.HasCode(err, shared.CodeForbidden))
}

func TestOutboxService_GetDeadLetterEntries(t *testing.T) {
	repo := newMemoryDeadLetters()
	service := NewOutboxService(repo, zap.NewNop())
	for range 5 {
		repo.add(shared.OutboxStatusDead)
	}
	repo.add(shared.OutboxStatusPending)

	result, err := service.GetDeadLetterEntries(context.Background(), testutil.Admin(), OutboxFilter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.Total)
	assert.Len(t, result.Entries, 2)
	assert.Equal(t, 3, result.TotalPages)
	for _, entry := range result.Entries {
		assert.Equal(t, "DEAD", entry.Status)
		assert.Equal(t, "601", entry.AggregateID)
	}
}

func TestOutboxService_RetryDeadEntry(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryDeadLetters()
	service := NewOutboxService(repo, zap.NewNop())
	dead := repo.add(shared.OutboxStatusDead)
	pending := repo.add(shared.OutboxStatusPending)

	result, err := service.RetryDeadEntry(ctx, testutil.Admin(), dead.ID)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", result.Status)
	assert.Equal(t, 0, result.RetryCount)
	assert.Empty(t, result.LastError)

	_, err = service.RetryDeadEntry(ctx, testutil.Admin(), pending.ID)
	assert.True(t, shared.HasCode(err, shared.CodeConflict))

	_, err = service.RetryDeadEntry(ctx, testutil.Admin(), uuid.New())
	assert.True(t, shared.HasCode(err, shared.CodeNotFound))
}

func TestOutboxService_RetryAllDeadEntries(t *testing.T) {
	repo := newMemoryDeadLetters()
	service := NewOutboxService(repo, zap.NewNop())
	for range 3 {
		repo.add(shared.OutboxStatusDead)
	}
	sent := repo.add(shared.OutboxStatusSent)

	count, err := service.RetryAllDeadEntries(context.Background(), testutil.Admin())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	for id, entry := range repo.entries {
		if id == sent.ID {
			assert.Equal(t, shared.OutboxStatusSent, entry.Status)
			continue
		}
		assert.Equal(t, shared.OutboxStatusPending, entry.Status)
	}
}

func TestOutboxService_GetStats(t *testing.T) {
	repo := newMemoryDeadLetters()
	service := NewOutboxService(repo, zap.NewNop())
	for _, status := range []shared.OutboxStatus{
		shared.OutboxStatusPending,
		shared.OutboxStatusPending,
		shared.OutboxStatusProcessing,
		shared.OutboxStatusSent,
		shared.OutboxStatusSent,
		shared.OutboxStatusSent,
		shared.OutboxStatusFailed,
		shared.OutboxStatusDead,
	} {
		repo.add(status)
	}

	stats, err := service.GetStats(context.Background(), testutil.Admin())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(1), stats.Processing)
	assert.Equal(t, int64(3), stats.Sent)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.Dead)
	assert.Equal(t, int64(8), stats.Total)
}
