// Package ingestion models deposit and loan account records imported from
// external banking systems.
package ingestion

import (
	"context"
	"strings"
	"time"

	"github.com/propflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Kind is the type of imported account
type Kind string

const (
	KindDeposit Kind = "deposit"
	KindLoan    Kind = "loan"
)

// ParseKind validates a kind name
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindDeposit, KindLoan:
		return k, nil
	}
	return "", shared.NewValidationError("Unknown imported account kind: " + s)
}

// Collection returns the store collection for the kind
func (k Kind) Collection() string {
	if k == KindLoan {
		return "imported_loan_accounts"
	}
	return "imported_deposit_accounts"
}

// DefaultSourceSystem is used when a record names no source system
const DefaultSourceSystem = "external"

// SourceAudit records where an imported record came from
type SourceAudit struct {
	System     string            `json:"system"`
	Reference  string            `json:"reference"`
	IngestedAt time.Time         `json:"ingested_at"`
	Metadata   map[string]string `json:"metadata"`
}

// ImportedAccount is one externally sourced account record
type ImportedAccount struct {
	shared.BaseAggregateRoot
	ID            string            `json:"id" validate:"required,max=128"`
	Kind          Kind              `json:"kind" validate:"required,oneof=deposit loan"`
	AccountNumber string            `json:"account_number" validate:"required,max=64"`
	HolderName    string            `json:"holder_name,omitempty"`
	Realtor       string            `json:"realtor,omitempty"`
	Balance       decimal.Decimal   `json:"balance"`
	Status        string            `json:"status,omitempty"`
	Metadata      map[string]string `json:"metadata"`
	Audit         SourceAudit       `json:"audit"`
}

// Key returns the store key of the record
func (a *ImportedAccount) Key() string {
	return a.ID
}

// RawRecord is what an adapter yields before normalization
type RawRecord struct {
	ID              string
	AccountNumber   string
	HolderName      string
	Realtor         string
	Balance         string
	Status          string
	Metadata        map[string]string
	SourceSystem    string
	SourceReference string
	IngestedAt      string
	SourceMetadata  map[string]string
}

// Normalize turns a raw record into an ImportedAccount, filling the source
// envelope defaults: the system falls back to defaultSystem, the reference to
// the record id and the ingestion time to now in UTC.
func Normalize(kind Kind, raw RawRecord, defaultSystem string, now time.Time) (*ImportedAccount, error) {
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		return nil, shared.NewValidationError("Imported record has no id")
	}
	number := strings.TrimSpace(raw.AccountNumber)
	if number == "" {
		number = id
	}
	balance := decimal.Zero
	if s := strings.TrimSpace(raw.Balance); s != "" {
		b, err := decimal.NewFromString(s)
		if err != nil {
			return nil, shared.NewValidationError("Imported record " + id + " has an invalid balance: " + s)
		}
		balance = b
	}

	if defaultSystem == "" {
		defaultSystem = DefaultSourceSystem
	}
	audit := SourceAudit{
		System:    firstNonEmpty(raw.SourceSystem, defaultSystem),
		Reference: firstNonEmpty(raw.SourceReference, id),
		Metadata:  nonNilMap(raw.SourceMetadata),
	}
	if s := strings.TrimSpace(raw.IngestedAt); s != "" {
		at, err := parseTimestamp(s)
		if err != nil {
			return nil, shared.NewValidationError("Imported record " + id + " has an invalid ingested_at: " + s)
		}
		audit.IngestedAt = at
	} else {
		audit.IngestedAt = now.UTC()
	}

	return &ImportedAccount{
		ID:            id,
		Kind:          kind,
		AccountNumber: number,
		HolderName:    strings.TrimSpace(raw.HolderName),
		Realtor:       strings.TrimSpace(raw.Realtor),
		Balance:       balance,
		Status:        strings.TrimSpace(raw.Status),
		Metadata:      nonNilMap(raw.Metadata),
		Audit:         audit,
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	_, err := time.Parse(time.RFC3339, s)
	return time.Time{}, err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

// Repository stores imported accounts; saving an existing id replaces it
type Repository interface {
	Save(ctx context.Context, a *ImportedAccount) error
	List(ctx context.Context, kind Kind) ([]*ImportedAccount, error)
}
