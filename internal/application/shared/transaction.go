// Package shared holds the application-layer contracts every service uses to
// run a workflow transition against the entity store.
package shared

import (
	"context"
	"errors"
	"time"

	"github.com/propflow/backend/internal/domain/agreement"
	"github.com/propflow/backend/internal/domain/audit"
	"github.com/propflow/backend/internal/domain/contactsetting"
	"github.com/propflow/backend/internal/domain/customer"
	"github.com/propflow/backend/internal/domain/identity"
	"github.com/propflow/backend/internal/domain/ingestion"
	"github.com/propflow/backend/internal/domain/loanaccount"
	"github.com/propflow/backend/internal/domain/notification"
	"github.com/propflow/backend/internal/domain/property"
	"github.com/propflow/backend/internal/domain/requirement"
	"github.com/propflow/backend/internal/domain/shared"
	"github.com/propflow/backend/internal/domain/submission"
)

// Repositories gives access to every repository. When obtained through
// TransactionScope.Execute all of them share one database transaction.
type Repositories interface {
	Accounts() identity.AccountRepository
	Projects() property.ProjectRepository
	Stands() property.StandRepository
	MandateHistory() property.MandateHistoryRepository
	Requirements() requirement.Repository
	Offers() submission.OfferRepository
	PropertyApplications() submission.PropertyApplicationRepository
	AccountOpenings() submission.AccountOpeningRepository
	LoanApplications() submission.LoanApplicationRepository
	Agreements() agreement.Repository
	Profiles() customer.ProfileRepository
	LoanAccounts() loanaccount.Repository
	Notifications() notification.Repository
	Audit() audit.Repository
	ImportedAccounts() ingestion.Repository
	ContactSettings() contactsetting.Repository
	Counters() shared.CounterRepository
	// Events stores domain events in the outbox of the current transaction
	Events() shared.EventRecorder
}

// TransactionScope runs a unit of work atomically
type TransactionScope interface {
	// Execute runs fn inside a transaction. Returning an error rolls back
	// every write made through repos.
	Execute(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	// Repositories returns repositories bound to no transaction, for reads
	Repositories() Repositories
}

// RetryPolicy bounds RetryOnConflict
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy is used by services unless configured otherwise
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Backoff: 10 * time.Millisecond}

// RetryOnConflict runs a transaction again when it lost an optimistic
// version check. Any other error is returned immediately.
func RetryOnConflict(ctx context.Context, scope TransactionScope, policy RetryPolicy, fn func(ctx context.Context, repos Repositories) error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = scope.Execute(ctx, fn)
		if err == nil || !errors.Is(err, shared.ErrConcurrentModification) {
			return err
		}
		if i < attempts-1 && policy.Backoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(policy.Backoff * time.Duration(i+1)):
			}
		}
	}
	return err
}

// RecordEvents moves the pending events of the aggregates into the outbox
func RecordEvents(ctx context.Context, repos Repositories, aggregates ...shared.AggregateRoot) error {
	for _, agg := range aggregates {
		events := agg.GetDomainEvents()
		if len(events) == 0 {
			continue
		}
		if err := repos.Events().Record(ctx, events...); err != nil {
			return err
		}
		agg.ClearDomainEvents()
	}
	return nil
}
