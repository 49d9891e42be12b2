package service

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/crowdfund-revenue-ledger/internal/domain/audit"
	"github.com/crowdfund-revenue-ledger/internal/domain/closure"
	"github.com/crowdfund-revenue-ledger/internal/domain/ledger"
	"github.com/crowdfund-revenue-ledger/internal/domain/payout"
	"github.com/crowdfund-revenue-ledger/internal/domain/recipe"
	"github.com/crowdfund-revenue-ledger/internal/domain/shared"
)

// ClosureService defines the interface for closure operations
type ClosureService interface {
	// SubmitClosure queues a closure request for the processor.
	// Returns the existing projection when the closure was already processed.
	SubmitClosure(ctx context.Context, request *shared.ClosureRequest) (*closure.Record, error)

	// PreviewClosure computes a distribution without writing anything.
	// Returns the problems instead of a calculation when the request cannot be computed.
	PreviewClosure(ctx context.Context, request *shared.ClosureRequest) (*payout.Calculation, []string, error)

	// GetClosure returns nil if the closure is not projected yet
	GetClosure(ctx context.Context, closureID string) (*closure.Record, error)

	GetClosuresByReference(ctx context.Context, referenceType, referenceID string) ([]*closure.Record, error)
}

// LedgerService defines the interface for ledger queries
type LedgerService interface {
	GetEntriesByReference(ctx context.Context, referenceType, referenceID string) ([]*ledger.Entry, error)

	// GetEntriesByRecipient returns a page of entries and the total count
	GetEntriesByRecipient(ctx context.Context, recipientID string, page, perPage int) ([]*ledger.Entry, int64, error)

	// GetBalance returns the net cents credited to a recipient
	GetBalance(ctx context.Context, recipientID string) (int64, error)
}

// AuditService defines the interface for audit chain queries
type AuditService interface {
	ListChain(ctx context.Context, chainID string, page, perPage int) ([]*audit.Entry, error)

	// VerifyChain walks the whole chain from the genesis hash
	VerifyChain(ctx context.Context, chainID string) (audit.VerifyReport, error)
}

// RecipeService defines the interface for payout recipe management.
// Every change is recorded on the recipe audit chain.
type RecipeService interface {
	CreateRecipe(ctx context.Context, def recipe.Formulated, actor string) (*recipe.Recipe, error)
	ActivateRecipe(ctx context.Context, version, actor string) (*recipe.Recipe, error)
	ListRecipes(ctx context.Context, ruleType string, page, perPage int) ([]*recipe.Recipe, error)

	// GetActiveRecipe returns nil if the rule type has no active recipe
	GetActiveRecipe(ctx context.Context, ruleType string) (*recipe.Recipe, error)

	// SeedBuiltin stores the recipes compiled into the engine that are missing
	SeedBuiltin(ctx context.Context, actor string) (int, error)
}

// TxStarter opens a database transaction
type TxStarter interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
