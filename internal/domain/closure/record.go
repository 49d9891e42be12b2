package closure

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/crowdfund-revenue-ledger/internal/domain/ledger"
	"github.com/crowdfund-revenue-ledger/internal/domain/payout"
	"github.com/crowdfund-revenue-ledger/internal/domain/shared"
)

// PayoutEvent is published once a closure reached a final state. Completed
// closures carry the calculation and its ledger lines.
type PayoutEvent struct {
	ClosureID     uuid.UUID            `json:"closure_id"`
	Kind          shared.ClosureKind   `json:"kind"`
	ReferenceType string               `json:"reference_type"`
	ReferenceID   string               `json:"reference_id"`
	Status        shared.ClosureStatus `json:"status"`
	RuleVersion   string               `json:"rule_version,omitempty"`
	Calculation   *payout.Calculation  `json:"calculation,omitempty"`
	LedgerEntries []ledger.Entry       `json:"ledger_entries,omitempty"`
	FailureReason string               `json:"failure_reason,omitempty"`
	AuditHash     string               `json:"audit_hash,omitempty"`
	CorrelationID string               `json:"correlation_id,omitempty"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

// Record is the read-side projection of a processed closure.
type Record struct {
	ClosureID     string               `json:"closure_id" bson:"closure_id"`
	Kind          shared.ClosureKind   `json:"kind" bson:"kind"`
	ReferenceType string               `json:"reference_type" bson:"reference_type"`
	ReferenceID   string               `json:"reference_id" bson:"reference_id"`
	Status        shared.ClosureStatus `json:"status" bson:"status"`
	RuleVersion   string               `json:"rule_version,omitempty" bson:"rule_version,omitempty"`
	Calculation   *payout.Calculation  `json:"calculation,omitempty" bson:"calculation,omitempty"`
	LedgerEntries int                  `json:"ledger_entries" bson:"ledger_entries"`
	FailureReason string               `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	AuditHash     string               `json:"audit_hash,omitempty" bson:"audit_hash,omitempty"`
	CorrelationID string               `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	CreatedAt     time.Time            `json:"created_at" bson:"created_at"`
	ProcessedAt   *time.Time           `json:"processed_at,omitempty" bson:"processed_at,omitempty"`
}

// NewRecord projects a payout event.
func NewRecord(ev *PayoutEvent) *Record {
	processed := time.Now().UTC()
	return &Record{
		ClosureID:     ev.ClosureID.String(),
		Kind:          ev.Kind,
		ReferenceType: ev.ReferenceType,
		ReferenceID:   ev.ReferenceID,
		Status:        ev.Status,
		RuleVersion:   ev.RuleVersion,
		Calculation:   ev.Calculation,
		LedgerEntries: len(ev.LedgerEntries),
		FailureReason: ev.FailureReason,
		AuditHash:     ev.AuditHash,
		CorrelationID: ev.CorrelationID,
		CreatedAt:     ev.OccurredAt,
		ProcessedAt:   &processed,
	}
}

// Repository manages closure projections
type Repository interface {
	Upsert(ctx context.Context, rec *Record) error
	GetByClosureID(ctx context.Context, closureID string) (*Record, error)
	GetByReference(ctx context.Context, referenceType, referenceID string) ([]*Record, error)
	ListByStatus(ctx context.Context, status shared.ClosureStatus, limit, offset int) ([]*Record, error)
	CountByStatus(ctx context.Context, status shared.ClosureStatus) (int64, error)
}

// ErrRecordNotFound indicates a missing closure projection
type ErrRecordNotFound struct {
	ClosureID string
}

func (e ErrRecordNotFound) Error() string {
	return "closure record not found: " + e.ClosureID
}

// Is implements the errors.Is interface for ErrRecordNotFound
func (e ErrRecordNotFound) Is(target error) bool {
	t, ok := target.(ErrRecordNotFound)
	if !ok {
		return false
	}
	return t.ClosureID == "" || t.ClosureID == e.ClosureID
}
