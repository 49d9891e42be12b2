package handler

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/crowdfund-revenue-ledger/internal/domain/audit"
	"github.com/crowdfund-revenue-ledger/internal/domain/closure"
	"github.com/crowdfund-revenue-ledger/internal/domain/ledger"
	"github.com/crowdfund-revenue-ledger/internal/domain/payout"
	"github.com/crowdfund-revenue-ledger/internal/domain/recipe"
	"github.com/crowdfund-revenue-ledger/internal/domain/shared"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type MockClosureService struct {
	mock.Mock
}

func (m *MockClosureService) SubmitClosure(ctx context.Context, request *shared.ClosureRequest) (*closure.Record, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*closure.Record), args.Error(1)
}

func (m *MockClosureService) PreviewClosure(ctx context.Context, request *shared.ClosureRequest) (*payout.Calculation, []string, error) {
	args := m.Called(ctx, request)
	var calc *payout.Calculation
	if args.Get(0) != nil {
		calc = args.Get(0).(*payout.Calculation)
	}
	var problems []string
	if args.Get(1) != nil {
		problems = args.Get(1).([]string)
	}
	return calc, problems, args.Error(2)
}

func (m *MockClosureService) GetClosure(ctx context.Context, closureID string) (*closure.Record, error) {
	args := m.Called(ctx, closureID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*closure.Record), args.Error(1)
}

func (m *MockClosureService) GetClosuresByReference(ctx context.Context, referenceType, referenceID string) ([]*closure.Record, error) {
	args := m.Called(ctx, referenceType, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*closure.Record), args.Error(1)
}

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) GetEntriesByReference(ctx context.Context, referenceType, referenceID string) ([]*ledger.Entry, error) {
	args := m.Called(ctx, referenceType, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerService) GetEntriesByRecipient(ctx context.Context, recipientID string, page, perPage int) ([]*ledger.Entry, int64, error) {
	args := m.Called(ctx, recipientID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*ledger.Entry), args.Get(1).(int64), args.Error(2)
}

func (m *MockLedgerService) GetBalance(ctx context.Context, recipientID string) (int64, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) ListChain(ctx context.Context, chainID string, page, perPage int) ([]*audit.Entry, error) {
	args := m.Called(ctx, chainID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Entry), args.Error(1)
}

func (m *MockAuditService) VerifyChain(ctx context.Context, chainID string) (audit.VerifyReport, error) {
	args := m.Called(ctx, chainID)
	return args.Get(0).(audit.VerifyReport), args.Error(1)
}

type MockRecipeService struct {
	mock.Mock
}

func (m *MockRecipeService) CreateRecipe(ctx context.Context, def recipe.Formulated, actor string) (*recipe.Recipe, error) {
	args := m.Called(ctx, def, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recipe.Recipe), args.Error(1)
}

func (m *MockRecipeService) ActivateRecipe(ctx context.Context, version, actor string) (*recipe.Recipe, error) {
	args := m.Called(ctx, version, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recipe.Recipe), args.Error(1)
}

func (m *MockRecipeService) ListRecipes(ctx context.Context, ruleType string, page, perPage int) ([]*recipe.Recipe, error) {
	args := m.Called(ctx, ruleType, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*recipe.Recipe), args.Error(1)
}

func (m *MockRecipeService) GetActiveRecipe(ctx context.Context, ruleType string) (*recipe.Recipe, error) {
	args := m.Called(ctx, ruleType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recipe.Recipe), args.Error(1)
}

func (m *MockRecipeService) SeedBuiltin(ctx context.Context, actor string) (int, error) {
	args := m.Called(ctx, actor)
	return args.Int(0), args.Error(1)
}
