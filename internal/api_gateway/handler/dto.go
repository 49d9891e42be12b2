package handler

import (
	"github.com/crowdfund-revenue-ledger/internal/domain/payout"
	"github.com/crowdfund-revenue-ledger/internal/domain/recipe"
	"github.com/crowdfund-revenue-ledger/internal/domain/shared"
)

// ClosureRequest represents a request to close a window and pay it out
type ClosureRequest struct {
	ClosureID     string          `json:"closure_id,omitempty" binding:"omitempty,uuid"`
	Kind          string          `json:"kind" binding:"required,oneof=category books_monthly pot24h battle article_sale book_sale golden_ticket points_conversion"`
	ReferenceType string          `json:"reference_type" binding:"required"`
	ReferenceID   string          `json:"reference_id" binding:"required"`
	PotCents      int64           `json:"pot_cents" binding:"min=0"`
	NProjects     int             `json:"n_projects,omitempty" binding:"min=0"`
	Alpha         *float64        `json:"alpha,omitempty" binding:"omitempty,gt=0"`
	Rankings      shared.Rankings `json:"rankings"`
	RequestedBy   string          `json:"requested_by,omitempty"`
}

// ClosureResponse represents a processed closure in API responses
type ClosureResponse struct {
	ClosureID     string              `json:"closure_id"`
	Kind          string              `json:"kind"`
	ReferenceType string              `json:"reference_type"`
	ReferenceID   string              `json:"reference_id"`
	Status        string              `json:"status"`
	RuleVersion   string              `json:"rule_version,omitempty"`
	Calculation   *payout.Calculation `json:"calculation,omitempty"`
	LedgerEntries int                 `json:"ledger_entries"`
	FailureReason string              `json:"failure_reason,omitempty"`
	AuditHash     string              `json:"audit_hash,omitempty"`
	CreatedAt     string              `json:"created_at"`
	ProcessedAt   string              `json:"processed_at,omitempty"`
}

// PreviewResponse carries either a calculation or the reasons it cannot run
type PreviewResponse struct {
	Computable  bool                `json:"computable"`
	Problems    []string            `json:"problems,omitempty"`
	Calculation *payout.Calculation `json:"calculation,omitempty"`
}

// LedgerEntryResponse represents a ledger line in API responses
type LedgerEntryResponse struct {
	ID               string `json:"id"`
	TransactionType  string `json:"transaction_type"`
	ReferenceType    string `json:"reference_type"`
	ReferenceID      string `json:"reference_id"`
	RecipientID      string `json:"recipient_id,omitempty"`
	Role             string `json:"role"`
	Rank             *int   `json:"rank,omitempty"`
	GrossAmountCents int64  `json:"gross_amount_cents"`
	NetAmountCents   int64  `json:"net_amount_cents"`
	FeeCents         int64  `json:"fee_cents"`
	IdempotencyKey   string `json:"idempotency_key"`
	PayoutRule       string `json:"payout_rule"`
	Status           string `json:"status"`
	CreatedAt        string `json:"created_at"`
}

// BalanceResponse is the net amount credited to a recipient
type BalanceResponse struct {
	RecipientID  string `json:"recipient_id"`
	BalanceCents int64  `json:"balance_cents"`
	BalanceEur   string `json:"balance_eur"`
}

// RecipeRequest represents a request to store a new payout recipe version
type RecipeRequest struct {
	Version     string         `json:"version" binding:"required"`
	RuleType    string         `json:"rule_type" binding:"required"`
	Formula     recipe.Formula `json:"formula"`
	Description string         `json:"description"`
	Actor       string         `json:"actor" binding:"required"`
}

// ActorRequest names who performs an administrative change
type ActorRequest struct {
	Actor string `json:"actor" binding:"required"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=500"`
}
