//go:build integration

package integration

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appshared "github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/domain/property"
	"github.com/propflow/backend/internal/domain/shared"
)

func TestCounters_ConcurrentAllocationsAreUnique(t *testing.T) {
	scope := NewTestDB(t).Scope()
	ctx := context.Background()

	const workers = 20
	var (
		mu   sync.Mutex
		seen = make(map[int64]bool)
		wg   sync.WaitGroup
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := scope.Execute(ctx, func(ctx context.Context, repos appshared.Repositories) error {
				id, err := repos.Counters().Next(ctx, "next_stand_id")
				if err != nil {
					return err
				}
				mu.Lock()
				seen[id] = true
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers)
	current, err := scope.Repositories().Counters().Current(ctx, "next_stand_id")
	require.NoError(t, err)
	assert.Equal(t, int64(workers), current)
}

func TestStands_StaleUpdateIsRejected(t *testing.T) {
	scope := NewTestDB(t).Scope()
	ctx := context.Background()
	repo := scope.Repositories().Stands()

	stand, err := property.NewStand(1, 1, "Stand 1", decimal.NewFromInt(250), decimal.NewFromInt(50000))
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, stand))

	first, err := repo.FindByID(ctx, 1)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, first.ChangeStatus(property.StandReserved, "admin"))
	require.NoError(t, repo.Update(ctx, first))

	require.NoError(t, second.ChangeStatus(property.StandArchived, "admin"))
	err = repo.Update(ctx, second)
	assert.True(t, shared.HasCode(err, shared.CodeConcurrentModification), "got %v", err)

	stored, err := repo.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, property.StandReserved, stored.Status)
}

func TestTransactionScope_DuplicateInsertIsConflict(t *testing.T) {
	scope := NewTestDB(t).Scope()
	ctx := context.Background()

	stand, err := property.NewStand(7, 1, "Stand 7", decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, scope.Repositories().Stands().Create(ctx, stand))

	err = scope.Execute(ctx, func(ctx context.Context, repos appshared.Repositories) error {
		return repos.Stands().Create(ctx, stand)
	})
	assert.True(t, shared.HasCode(err, shared.CodeConflict), "got %v", err)
}
