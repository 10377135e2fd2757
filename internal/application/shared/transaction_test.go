package shared

import (
	"context"
	"errors"
	"testing"

	"github.com/propflow/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

type countingScope struct {
	calls int
	errs  []error
}

func (s *countingScope) Execute(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	s.calls++
	if len(s.errs) == 0 {
		return fn(ctx, nil)
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func (s *countingScope) Repositories() Repositories { return nil }

func TestRetryOnConflict(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3}

	t.Run("retries concurrent modification", func(t *testing.T) {
		scope := &countingScope{errs: []error{shared.ErrConcurrentModification, shared.ErrConcurrentModification}}
		err := RetryOnConflict(context.Background(), scope, policy, func(context.Context, Repositories) error { return nil })
		assert.NoError(t, err)
		assert.Equal(t, 3, scope.calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		scope := &countingScope{errs: []error{shared.ErrConcurrentModification, shared.ErrConcurrentModification, shared.ErrConcurrentModification}}
		err := RetryOnConflict(context.Background(), scope, policy, func(context.Context, Repositories) error { return nil })
		assert.ErrorIs(t, err, shared.ErrConcurrentModification)
		assert.Equal(t, 3, scope.calls)
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		boom := errors.New("boom")
		scope := &countingScope{errs: []error{shared.NewConflictError("Stand 1 has been sold"), boom}}
		err := RetryOnConflict(context.Background(), scope, policy, func(context.Context, Repositories) error { return nil })
		assert.True(t, shared.HasCode(err, shared.CodeConflict))
		assert.Equal(t, 1, scope.calls)
	})
}
