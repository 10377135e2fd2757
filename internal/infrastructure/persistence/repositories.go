package persistence

import (
	"context"
	"sort"
	"strconv"
	"strings"

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

// Entity store collections
const (
	CollectionAccounts             = "accounts"
	CollectionProjects             = "projects"
	CollectionStands               = "stands"
	CollectionMandateHistory       = "mandate_history"
	CollectionRequirements         = "document_requirements"
	CollectionOffers               = "offers"
	CollectionPropertyApplications = "property_applications"
	CollectionAccountOpenings      = "account_openings"
	CollectionLoanApplications     = "loan_applications"
	CollectionAgreements           = "agreements"
	CollectionProfiles             = "customer_profiles"
	CollectionLoanAccounts         = "loan_accounts"
	CollectionNotifications        = "notifications"
	CollectionAuditLog             = "audit_log"
	CollectionContactSettings      = "contact_settings"
)

func int64Key(id int64) string {
	return strconv.FormatInt(id, 10)
}

// AccountRepository stores login accounts keyed by username
type AccountRepository struct {
	snapshots *snapshotRepository[*identity.Account]
}

// NewAccountRepository creates an account repository
func NewAccountRepository(store *EntityStore) *AccountRepository {
	return &AccountRepository{snapshots: newSnapshotRepository(store, CollectionAccounts, "Account",
		func(a *identity.Account) string { return strings.ToLower(a.Username) },
		func() *identity.Account { return &identity.Account{} })}
}

func (r *AccountRepository) Create(ctx context.Context, a *identity.Account) error {
	return r.snapshots.create(ctx, a)
}

func (r *AccountRepository) Update(ctx context.Context, a *identity.Account) error {
	return r.snapshots.update(ctx, a)
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*identity.Account, error) {
	return r.snapshots.get(ctx, strings.ToLower(strings.TrimSpace(username)))
}

func (r *AccountRepository) List(ctx context.Context) ([]*identity.Account, error) {
	accounts, err := r.snapshots.list(ctx, nil)
	if err != nil {
		return nil, err
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Username < accounts[j].Username })
	return accounts, nil
}

func (r *AccountRepository) Count(ctx context.Context) (int64, error) {
	return r.snapshots.count(ctx)
}

// ProjectRepository stores projects
type ProjectRepository struct {
	snapshots *snapshotRepository[*property.Project]
}

// NewProjectRepository creates a project repository
func NewProjectRepository(store *EntityStore) *ProjectRepository {
	return &ProjectRepository{snapshots: newSnapshotRepository(store, CollectionProjects, "Project",
		func(p *property.Project) string { return int64Key(p.ID) },
		func() *property.Project { return &property.Project{} })}
}

func (r *ProjectRepository) Create(ctx context.Context, p *property.Project) error {
	return r.snapshots.create(ctx, p)
}

func (r *ProjectRepository) Update(ctx context.Context, p *property.Project) error {
	return r.snapshots.update(ctx, p)
}

func (r *ProjectRepository) Delete(ctx context.Context, id int64) error {
	return r.snapshots.delete(ctx, int64Key(id))
}

func (r *ProjectRepository) FindByID(ctx context.Context, id int64) (*property.Project, error) {
	return r.snapshots.get(ctx, int64Key(id))
}

func (r *ProjectRepository) List(ctx context.Context) ([]*property.Project, error) {
	projects, err := r.snapshots.list(ctx, nil)
	if err != nil {
		return nil, err
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
	return projects, nil
}

// StandRepository stores stands
type StandRepository struct {
	snapshots *snapshotRepository[*property.Stand]
}

// NewStandRepository creates a stand repository
func NewStandRepository(store *EntityStore) *StandRepository {
	return &StandRepository{snapshots: newSnapshotRepository(store, CollectionStands, "Stand",
		func(s *property.Stand) string { return s.Key() },
		func() *property.Stand { return &property.Stand{} })}
}

func (r *StandRepository) Create(ctx context.Context, s *property.Stand) error {
	return r.snapshots.create(ctx, s)
}

func (r *StandRepository) Update(ctx context.Context, s *property.Stand) error {
	return r.snapshots.update(ctx, s)
}

func (r *StandRepository) Delete(ctx context.Context, id int64) error {
	return r.snapshots.delete(ctx, int64Key(id))
}

func (r *StandRepository) FindByID(ctx context.Context, id int64) (*property.Stand, error) {
	return r.snapshots.get(ctx, int64Key(id))
}

func (r *StandRepository) List(ctx context.Context, filter property.StandFilter) ([]*property.Stand, error) {
	stands, err := r.snapshots.list(ctx, filter.Matches)
	if err != nil {
		return nil, err
	}
	sort.Slice(stands, func(i, j int) bool { return stands[i].ID < stands[j].ID })
	return stands, nil
}

// MandateHistoryRepository is the append-only mandate log
type MandateHistoryRepository struct {
	entries *listRepository[property.MandateHistoryEntry]
}

// NewMandateHistoryRepository creates a mandate history repository
func NewMandateHistoryRepository(store *EntityStore) *MandateHistoryRepository {
	return &MandateHistoryRepository{entries: &listRepository[property.MandateHistoryEntry]{store: store, collection: CollectionMandateHistory}}
}

func (r *MandateHistoryRepository) Append(ctx context.Context, entry property.MandateHistoryEntry) error {
	return r.entries.append(ctx, &entry)
}

func (r *MandateHistoryRepository) ListByStand(ctx context.Context, standID int64) ([]property.MandateHistoryEntry, error) {
	found, err := r.entries.entries(ctx, func(e *property.MandateHistoryEntry) bool { return e.StandID == standID })
	if err != nil {
		return nil, err
	}
	out := make([]property.MandateHistoryEntry, len(found))
	for i, e := range found {
		out[i] = *e
	}
	return out, nil
}

// RequirementRepository stores document requirements
type RequirementRepository struct {
	snapshots *snapshotRepository[*requirement.Requirement]
}

// NewRequirementRepository creates a requirement repository
func NewRequirementRepository(store *EntityStore) *RequirementRepository {
	return &RequirementRepository{snapshots: newSnapshotRepository(store, CollectionRequirements, "Document requirement",
		func(r *requirement.Requirement) string { return int64Key(r.ID) },
		func() *requirement.Requirement { return &requirement.Requirement{} })}
}

func (r *RequirementRepository) Create(ctx context.Context, req *requirement.Requirement) error {
	return r.snapshots.create(ctx, req)
}

func (r *RequirementRepository) Update(ctx context.Context, req *requirement.Requirement) error {
	return r.snapshots.update(ctx, req)
}

func (r *RequirementRepository) Delete(ctx context.Context, id int64) error {
	return r.snapshots.delete(ctx, int64Key(id))
}

func (r *RequirementRepository) FindByID(ctx context.Context, id int64) (*requirement.Requirement, error) {
	return r.snapshots.get(ctx, int64Key(id))
}

func (r *RequirementRepository) ListByWorkflow(ctx context.Context, wf requirement.WorkflowType) ([]*requirement.Requirement, error) {
	reqs, err := r.snapshots.list(ctx, func(req *requirement.Requirement) bool { return req.WorkflowType == wf })
	if err != nil {
		return nil, err
	}
	requirement.SortByPosition(reqs)
	return reqs, nil
}

// SubmissionRepository stores one submission type
type SubmissionRepository[T submission.Submission] struct {
	snapshots *snapshotRepository[T]
}

func newSubmissionRepository[T submission.Submission](store *EntityStore, collection, resource string, newT func() T) *SubmissionRepository[T] {
	return &SubmissionRepository[T]{snapshots: newSnapshotRepository(store, collection, resource,
		func(s T) string { return s.Key() }, newT)}
}

// NewOfferRepository creates an offer repository
func NewOfferRepository(store *EntityStore) *SubmissionRepository[*submission.Offer] {
	return newSubmissionRepository(store, CollectionOffers, "Offer", func() *submission.Offer { return &submission.Offer{} })
}

// NewPropertyApplicationRepository creates a property application repository
func NewPropertyApplicationRepository(store *EntityStore) *SubmissionRepository[*submission.PropertyApplication] {
	return newSubmissionRepository(store, CollectionPropertyApplications, "Property application",
		func() *submission.PropertyApplication { return &submission.PropertyApplication{} })
}

func (r *SubmissionRepository[T]) Create(ctx context.Context, s T) error {
	return r.snapshots.create(ctx, s)
}

func (r *SubmissionRepository[T]) Update(ctx context.Context, s T) error {
	return r.snapshots.update(ctx, s)
}

func (r *SubmissionRepository[T]) FindByID(ctx context.Context, id int64) (T, error) {
	return r.snapshots.get(ctx, int64Key(id))
}

func (r *SubmissionRepository[T]) List(ctx context.Context, filter submission.Filter) ([]T, error) {
	items, err := r.snapshots.list(ctx, func(s T) bool { return filter.Matches(s) })
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Head().ID < items[j].Head().ID })
	return items, nil
}

// AccountOpeningRepository stores account openings
type AccountOpeningRepository struct {
	*SubmissionRepository[*submission.AccountOpening]
}

// NewAccountOpeningRepository creates an account opening repository
func NewAccountOpeningRepository(store *EntityStore) *AccountOpeningRepository {
	return &AccountOpeningRepository{newSubmissionRepository(store, CollectionAccountOpenings, "Account opening",
		func() *submission.AccountOpening { return &submission.AccountOpening{} })}
}

func (r *AccountOpeningRepository) FindByAccountNumber(ctx context.Context, accountNumber string) (*submission.AccountOpening, error) {
	found, err := r.snapshots.list(ctx, func(a *submission.AccountOpening) bool {
		return a.AccountNumber != nil && *a.AccountNumber == accountNumber
	})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, shared.NewNotFoundError("Account opening with account number", accountNumber)
	}
	return found[0], nil
}

// LoanApplicationRepository stores loan applications
type LoanApplicationRepository struct {
	*SubmissionRepository[*submission.LoanApplication]
}

// NewLoanApplicationRepository creates a loan application repository
func NewLoanApplicationRepository(store *EntityStore) *LoanApplicationRepository {
	return &LoanApplicationRepository{newSubmissionRepository(store, CollectionLoanApplications, "Loan application",
		func() *submission.LoanApplication { return &submission.LoanApplication{} })}
}

func (r *LoanApplicationRepository) ListByAccountOpening(ctx context.Context, accountOpeningID int64) ([]*submission.LoanApplication, error) {
	loans, err := r.snapshots.list(ctx, func(l *submission.LoanApplication) bool { return l.AccountOpeningID == accountOpeningID })
	if err != nil {
		return nil, err
	}
	sort.Slice(loans, func(i, j int) bool { return loans[i].ID < loans[j].ID })
	return loans, nil
}

// AgreementRepository stores agreements
type AgreementRepository struct {
	snapshots *snapshotRepository[*agreement.Agreement]
}

// NewAgreementRepository creates an agreement repository
func NewAgreementRepository(store *EntityStore) *AgreementRepository {
	return &AgreementRepository{snapshots: newSnapshotRepository(store, CollectionAgreements, "Agreement",
		func(a *agreement.Agreement) string { return a.Key() },
		func() *agreement.Agreement { return &agreement.Agreement{} })}
}

func (r *AgreementRepository) Create(ctx context.Context, a *agreement.Agreement) error {
	return r.snapshots.create(ctx, a)
}

func (r *AgreementRepository) Update(ctx context.Context, a *agreement.Agreement) error {
	return r.snapshots.update(ctx, a)
}

func (r *AgreementRepository) FindByID(ctx context.Context, id int64) (*agreement.Agreement, error) {
	return r.snapshots.get(ctx, int64Key(id))
}

func (r *AgreementRepository) FindByLoanApplication(ctx context.Context, loanApplicationID int64) (*agreement.Agreement, error) {
	found, err := r.snapshots.list(ctx, func(a *agreement.Agreement) bool { return a.LoanApplicationID == loanApplicationID })
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, shared.NewNotFoundError("Agreement for loan application", loanApplicationID)
	}
	return found[0], nil
}

func (r *AgreementRepository) List(ctx context.Context, filter agreement.Filter) ([]*agreement.Agreement, error) {
	items, err := r.snapshots.list(ctx, filter.Matches)
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// ProfileRepository stores customer profiles keyed by account number
type ProfileRepository struct {
	snapshots *snapshotRepository[*customer.Profile]
}

// NewProfileRepository creates a profile repository
func NewProfileRepository(store *EntityStore) *ProfileRepository {
	return &ProfileRepository{snapshots: newSnapshotRepository(store, CollectionProfiles, "Customer profile",
		func(p *customer.Profile) string { return p.Key() },
		func() *customer.Profile { return &customer.Profile{} })}
}

func (r *ProfileRepository) FindByAccountNumber(ctx context.Context, accountNumber string) (*customer.Profile, error) {
	return r.snapshots.get(ctx, accountNumber)
}

func (r *ProfileRepository) Save(ctx context.Context, p *customer.Profile) error {
	return r.snapshots.save(ctx, p)
}

func (r *ProfileRepository) Delete(ctx context.Context, accountNumber string) error {
	return r.snapshots.delete(ctx, accountNumber)
}

func (r *ProfileRepository) List(ctx context.Context) ([]*customer.Profile, error) {
	profiles, err := r.snapshots.list(ctx, nil)
	if err != nil {
		return nil, err
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].AccountNumber < profiles[j].AccountNumber })
	return profiles, nil
}

// LoanAccountRepository stores the per-realtor loan account ledgers
type LoanAccountRepository struct {
	snapshots *snapshotRepository[*loanaccount.Ledger]
}

// NewLoanAccountRepository creates a loan account repository
func NewLoanAccountRepository(store *EntityStore) *LoanAccountRepository {
	return &LoanAccountRepository{snapshots: newSnapshotRepository(store, CollectionLoanAccounts, "Loan accounts of",
		func(l *loanaccount.Ledger) string { return l.Key() },
		func() *loanaccount.Ledger { return &loanaccount.Ledger{} })}
}

func (r *LoanAccountRepository) Find(ctx context.Context, realtor string) (*loanaccount.Ledger, error) {
	ledger, err := r.snapshots.get(ctx, realtor)
	if shared.HasCode(err, shared.CodeNotFound) {
		return loanaccount.NewLedger(realtor), nil
	}
	return ledger, err
}

func (r *LoanAccountRepository) Save(ctx context.Context, l *loanaccount.Ledger) error {
	return r.snapshots.save(ctx, l)
}

func (r *LoanAccountRepository) List(ctx context.Context) ([]*loanaccount.Ledger, error) {
	return r.snapshots.list(ctx, nil)
}

// NotificationRepository is the append-only notification log
type NotificationRepository struct {
	entries *listRepository[notification.Notification]
}

// NewNotificationRepository creates a notification repository
func NewNotificationRepository(store *EntityStore) *NotificationRepository {
	return &NotificationRepository{entries: &listRepository[notification.Notification]{store: store, collection: CollectionNotifications}}
}

func (r *NotificationRepository) Append(ctx context.Context, n *notification.Notification) error {
	return r.entries.append(ctx, n)
}

func (r *NotificationRepository) AppendOnce(ctx context.Context, n *notification.Notification) (bool, error) {
	return r.entries.appendOnce(ctx, n.DedupKey(), n)
}

func (r *NotificationRepository) List(ctx context.Context, filter notification.Filter) ([]*notification.Notification, error) {
	items, err := r.entries.entries(ctx, filter.Matches)
	if err != nil {
		return nil, err
	}
	return tail(items, filter.Limit), nil
}

// AuditRepository is the append-only audit log
type AuditRepository struct {
	entries *listRepository[audit.Record]
}

// NewAuditRepository creates an audit repository
func NewAuditRepository(store *EntityStore) *AuditRepository {
	return &AuditRepository{entries: &listRepository[audit.Record]{store: store, collection: CollectionAuditLog}}
}

func (r *AuditRepository) Append(ctx context.Context, rec *audit.Record) error {
	return r.entries.append(ctx, rec)
}

func (r *AuditRepository) List(ctx context.Context, filter audit.Filter) ([]*audit.Record, error) {
	items, err := r.entries.entries(ctx, filter.Matches)
	if err != nil {
		return nil, err
	}
	return tail(items, filter.Limit), nil
}

// tail keeps the newest limit items; zero means all
func tail[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[len(items)-limit:]
	}
	return items
}

// ImportedAccountRepository stores externally sourced accounts
type ImportedAccountRepository struct {
	deposits *snapshotRepository[*ingestion.ImportedAccount]
	loans    *snapshotRepository[*ingestion.ImportedAccount]
}

// NewImportedAccountRepository creates an imported account repository
func NewImportedAccountRepository(store *EntityStore) *ImportedAccountRepository {
	keyOf := func(a *ingestion.ImportedAccount) string { return a.Key() }
	newT := func() *ingestion.ImportedAccount { return &ingestion.ImportedAccount{} }
	return &ImportedAccountRepository{
		deposits: newSnapshotRepository(store, ingestion.KindDeposit.Collection(), "Imported deposit account", keyOf, newT),
		loans:    newSnapshotRepository(store, ingestion.KindLoan.Collection(), "Imported loan account", keyOf, newT),
	}
}

func (r *ImportedAccountRepository) forKind(kind ingestion.Kind) *snapshotRepository[*ingestion.ImportedAccount] {
	if kind == ingestion.KindLoan {
		return r.loans
	}
	return r.deposits
}

// Save replaces any record with the same id
func (r *ImportedAccountRepository) Save(ctx context.Context, a *ingestion.ImportedAccount) error {
	repo := r.forKind(a.Kind)
	existing, err := repo.get(ctx, a.Key())
	switch {
	case err == nil:
		a.SetVersion(existing.GetVersion())
		return repo.update(ctx, a)
	case shared.HasCode(err, shared.CodeNotFound):
		return repo.create(ctx, a)
	default:
		return err
	}
}

func (r *ImportedAccountRepository) List(ctx context.Context, kind ingestion.Kind) ([]*ingestion.ImportedAccount, error) {
	return r.forKind(kind).list(ctx, nil)
}

// ContactSettingRepository stores notification recipients per channel
type ContactSettingRepository struct {
	snapshots *snapshotRepository[*contactsetting.Setting]
}

// NewContactSettingRepository creates a contact setting repository
func NewContactSettingRepository(store *EntityStore) *ContactSettingRepository {
	return &ContactSettingRepository{snapshots: newSnapshotRepository(store, CollectionContactSettings, "Contact setting",
		func(s *contactsetting.Setting) string { return s.Key() },
		func() *contactsetting.Setting { return &contactsetting.Setting{} })}
}

func (r *ContactSettingRepository) Create(ctx context.Context, s *contactsetting.Setting) error {
	return r.snapshots.create(ctx, s)
}

func (r *ContactSettingRepository) Update(ctx context.Context, s *contactsetting.Setting) error {
	return r.snapshots.update(ctx, s)
}

func (r *ContactSettingRepository) Delete(ctx context.Context, channel contactsetting.Channel) error {
	return r.snapshots.delete(ctx, string(channel))
}

func (r *ContactSettingRepository) Find(ctx context.Context, channel contactsetting.Channel) (*contactsetting.Setting, error) {
	return r.snapshots.get(ctx, string(channel))
}

var (
	_ identity.AccountRepository               = (*AccountRepository)(nil)
	_ property.ProjectRepository               = (*ProjectRepository)(nil)
	_ property.StandRepository                 = (*StandRepository)(nil)
	_ property.MandateHistoryRepository        = (*MandateHistoryRepository)(nil)
	_ requirement.Repository                   = (*RequirementRepository)(nil)
	_ submission.OfferRepository               = (*SubmissionRepository[*submission.Offer])(nil)
	_ submission.PropertyApplicationRepository = (*SubmissionRepository[*submission.PropertyApplication])(nil)
	_ submission.AccountOpeningRepository      = (*AccountOpeningRepository)(nil)
	_ submission.LoanApplicationRepository     = (*LoanApplicationRepository)(nil)
	_ agreement.Repository                     = (*AgreementRepository)(nil)
	_ customer.ProfileRepository               = (*ProfileRepository)(nil)
	_ loanaccount.Repository                   = (*LoanAccountRepository)(nil)
	_ notification.Repository                  = (*NotificationRepository)(nil)
	_ audit.Repository                         = (*AuditRepository)(nil)
	_ ingestion.Repository                     = (*ImportedAccountRepository)(nil)
	_ contactsetting.Repository                = (*ContactSettingRepository)(nil)
)
