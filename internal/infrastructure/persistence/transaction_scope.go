package persistence

import (
	"context"
	"fmt"

	appshared "github.com/propflow/backend/internal/application/shared"
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
	"github.com/propflow/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// EventSerializer turns a domain event into the outbox payload
type EventSerializer interface {
	Serialize(event shared.DomainEvent) ([]byte, error)
}

// GormTransactionScope implements TransactionScope using GORM transactions.
// Snapshots, list entries, counters and outbox rows written through the
// repositories of one Execute call commit or roll back together.
type GormTransactionScope struct {
	db         *gorm.DB
	serializer EventSerializer
	delivery   shared.DeliveryPolicy
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB, serializer EventSerializer) *GormTransactionScope {
	return &GormTransactionScope{db: db, serializer: serializer, delivery: shared.DefaultDeliveryPolicy}
}

// WithDeliveryPolicy sets the attempt budget given to recorded events
func (s *GormTransactionScope) WithDeliveryPolicy(policy shared.DeliveryPolicy) *GormTransactionScope {
	s.delivery = policy.Normalize()
	return s
}

// Execute runs the given function within a database transaction.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(ctx context.Context, repos appshared.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, newGormRepositories(tx, s.serializer, s.delivery))
	})
}

// Repositories returns repositories that run each call in its own statement
func (s *GormTransactionScope) Repositories() appshared.Repositories {
	return newGormRepositories(s.db, s.serializer, s.delivery)
}

// gormRepositories provides access to all repositories on one connection or transaction.
type gormRepositories struct {
	db         *gorm.DB
	store      *EntityStore
	serializer EventSerializer
	delivery   shared.DeliveryPolicy
}

func newGormRepositories(db *gorm.DB, serializer EventSerializer, delivery shared.DeliveryPolicy) *gormRepositories {
	return &gormRepositories{db: db, store: NewEntityStore(db), serializer: serializer, delivery: delivery}
}

func (r *gormRepositories) Accounts() identity.AccountRepository { return NewAccountRepository(r.store) }

func (r *gormRepositories) Projects() property.ProjectRepository { return NewProjectRepository(r.store) }

func (r *gormRepositories) Stands() property.StandRepository { return NewStandRepository(r.store) }

func (r *gormRepositories) MandateHistory() property.MandateHistoryRepository {
	return NewMandateHistoryRepository(r.store)
}

func (r *gormRepositories) Requirements() requirement.Repository {
	return NewRequirementRepository(r.store)
}

func (r *gormRepositories) Offers() submission.OfferRepository { return NewOfferRepository(r.store) }

func (r *gormRepositories) PropertyApplications() submission.PropertyApplicationRepository {
	return NewPropertyApplicationRepository(r.store)
}

func (r *gormRepositories) AccountOpenings() submission.AccountOpeningRepository {
	return NewAccountOpeningRepository(r.store)
}

func (r *gormRepositories) LoanApplications() submission.LoanApplicationRepository {
	return NewLoanApplicationRepository(r.store)
}

func (r *gormRepositories) Agreements() agreement.Repository { return NewAgreementRepository(r.store) }

func (r *gormRepositories) Profiles() customer.ProfileRepository { return NewProfileRepository(r.store) }

func (r *gormRepositories) LoanAccounts() loanaccount.Repository {
	return NewLoanAccountRepository(r.store)
}

func (r *gormRepositories) Notifications() notification.Repository {
	return NewNotificationRepository(r.store)
}

func (r *gormRepositories) Audit() audit.Repository { return NewAuditRepository(r.store) }

func (r *gormRepositories) ImportedAccounts() ingestion.Repository {
	return NewImportedAccountRepository(r.store)
}

func (r *gormRepositories) ContactSettings() contactsetting.Repository {
	return NewContactSettingRepository(r.store)
}

func (r *gormRepositories) Counters() shared.CounterRepository { return NewGormCounterRepository(r.db) }

func (r *gormRepositories) Events() shared.EventRecorder {
	return &outboxRecorder{db: r.db, serializer: r.serializer, delivery: r.delivery}
}

// outboxRecorder writes domain events to the outbox table of the current transaction
type outboxRecorder struct {
	db         *gorm.DB
	serializer EventSerializer
	delivery   shared.DeliveryPolicy
}

func (o *outboxRecorder) Record(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]*models.OutboxEntryModel, 0, len(events))
	for _, ev := range events {
		payload, err := o.serializer.Serialize(ev)
		if err != nil {
			return fmt.Errorf("serialize %s: %w", ev.EventType(), err)
		}
		rows = append(rows, models.OutboxEntryModelFromDomain(shared.NewOutboxEntry(ev, payload, o.delivery)))
	}
	if err := o.db.WithContext(ctx).Create(rows).Error; err != nil {
		return fmt.Errorf("record events: %w", err)
	}
	return nil
}

var (
	_ appshared.TransactionScope = (*GormTransactionScope)(nil)
	_ appshared.Repositories     = (*gormRepositories)(nil)
)
