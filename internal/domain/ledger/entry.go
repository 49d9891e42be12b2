package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crowdfund-revenue-ledger/internal/domain/payout"
	"github.com/crowdfund-revenue-ledger/internal/domain/shared"
)

// TransactionType categorizes a ledger line
type TransactionType string

const (
	TransactionTypePayout           TransactionType = "payout"
	TransactionTypePlatformResidual TransactionType = "platform_residual"
	TransactionTypeTicketRefund     TransactionType = "golden_ticket_refund"
	TransactionTypePointsConversion TransactionType = "points_conversion"
)

// Reference names the closure, window or sale a ledger line belongs to
type Reference struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Entry is an append-only financial fact derived from one payout line.
// Corrections are new offsetting entries, never updates.
type Entry struct {
	ID                 uuid.UUID           `json:"id"`
	TransactionType    TransactionType     `json:"transaction_type"`
	ReferenceType      string              `json:"reference_type"`
	ReferenceID        string              `json:"reference_id"`
	RecipientID        *string             `json:"recipient_id,omitempty"` // nil for platform lines
	Role               payout.Role         `json:"role"`
	Rank               *int                `json:"rank,omitempty"`
	GrossAmountCents   int64               `json:"gross_amount_cents"`
	NetAmountCents     int64               `json:"net_amount_cents"`
	FeeCents           int64               `json:"fee_cents"`
	ExternalPaymentRef *string             `json:"external_payment_ref,omitempty"`
	IdempotencyKey     string              `json:"idempotency_key"`
	PayoutRule         string              `json:"payout_rule"`
	Status             shared.LedgerStatus `json:"status"`
	CreatedAt          time.Time           `json:"created_at"`
}

// ErrInvalidEntry marks a ledger line the financial_ledger table would refuse.
var ErrInvalidEntry = errors.New("invalid ledger entry")

// Validate checks the row constraints of financial_ledger. FeeCents is the
// spread between gross and net and goes negative on round-robin lines, where
// one unit is paid against an equal share below one unit.
func (e Entry) Validate() error {
	switch {
	case e.IdempotencyKey == "":
		return fmt.Errorf("%w: idempotency key is required", ErrInvalidEntry)
	case e.GrossAmountCents < 0:
		return fmt.Errorf("%w: %s gross %d is negative", ErrInvalidEntry, e.IdempotencyKey, e.GrossAmountCents)
	case e.NetAmountCents < 0:
		return fmt.Errorf("%w: %s net %d is negative", ErrInvalidEntry, e.IdempotencyKey, e.NetAmountCents)
	case e.FeeCents != e.GrossAmountCents-e.NetAmountCents:
		return fmt.Errorf("%w: %s fee %d is not gross %d minus net %d",
			ErrInvalidEntry, e.IdempotencyKey, e.FeeCents, e.GrossAmountCents, e.NetAmountCents)
	case e.FeeCents > e.GrossAmountCents:
		return fmt.Errorf("%w: %s fee %d exceeds gross %d", ErrInvalidEntry, e.IdempotencyKey, e.FeeCents, e.GrossAmountCents)
	}
	return nil
}
