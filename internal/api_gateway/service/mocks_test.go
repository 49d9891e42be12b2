package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/crowdfund-revenue-ledger/internal/domain/audit"
	"github.com/crowdfund-revenue-ledger/internal/domain/closure"
	"github.com/crowdfund-revenue-ledger/internal/domain/ledger"
	"github.com/crowdfund-revenue-ledger/internal/domain/recipe"
	"github.com/crowdfund-revenue-ledger/internal/domain/shared"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type MockClosureRepository struct {
	mock.Mock
}

func (m *MockClosureRepository) Upsert(ctx context.Context, rec *closure.Record) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockClosureRepository) GetByClosureID(ctx context.Context, closureID string) (*closure.Record, error) {
	args := m.Called(ctx, closureID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*closure.Record), args.Error(1)
}

func (m *MockClosureRepository) GetByReference(ctx context.Context, referenceType, referenceID string) ([]*closure.Record, error) {
	args := m.Called(ctx, referenceType, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*closure.Record), args.Error(1)
}

func (m *MockClosureRepository) ListByStatus(ctx context.Context, status shared.ClosureStatus, limit, offset int) ([]*closure.Record, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*closure.Record), args.Error(1)
}

func (m *MockClosureRepository) CountByStatus(ctx context.Context, status shared.ClosureStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

type MockRecipeRepository struct {
	mock.Mock
}

func (m *MockRecipeRepository) Create(ctx context.Context, r *recipe.Recipe) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockRecipeRepository) GetByVersion(ctx context.Context, version string) (*recipe.Recipe, error) {
	args := m.Called(ctx, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recipe.Recipe), args.Error(1)
}

func (m *MockRecipeRepository) GetActive(ctx context.Context, ruleType string) (*recipe.Recipe, error) {
	args := m.Called(ctx, ruleType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recipe.Recipe), args.Error(1)
}

func (m *MockRecipeRepository) List(ctx context.Context, ruleType string, limit, offset int) ([]*recipe.Recipe, error) {
	args := m.Called(ctx, ruleType, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*recipe.Recipe), args.Error(1)
}

func (m *MockRecipeRepository) Activate(ctx context.Context, version string) (*recipe.Recipe, error) {
	args := m.Called(ctx, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recipe.Recipe), args.Error(1)
}

func (m *MockRecipeRepository) WithTx(pgx.Tx) recipe.Repository {
	return m
}

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) GetTailHash(ctx context.Context, chainID string) (string, error) {
	args := m.Called(ctx, chainID)
	return args.String(0), args.Error(1)
}

// Append echoes the entry it is given unless the expectation returns one
func (m *MockAuditRepository) Append(ctx context.Context, entry *audit.Entry) (*audit.Entry, error) {
	args := m.Called(ctx, entry)
	if args.Get(0) == nil {
		if args.Error(1) != nil {
			return nil, args.Error(1)
		}
		return entry, nil
	}
	return args.Get(0).(*audit.Entry), args.Error(1)
}

func (m *MockAuditRepository) ListChain(ctx context.Context, chainID string, limit, offset int) ([]*audit.Entry, error) {
	args := m.Called(ctx, chainID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Entry), args.Error(1)
}

func (m *MockAuditRepository) WithTx(pgx.Tx) audit.Repository {
	return m
}

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Append(ctx context.Context, entries []ledger.Entry) (int, error) {
	args := m.Called(ctx, entries)
	return args.Int(0), args.Error(1)
}

func (m *MockLedgerRepository) GetByIdempotencyKey(ctx context.Context, key string) (*ledger.Entry, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) GetByReference(ctx context.Context, referenceType, referenceID string) ([]*ledger.Entry, error) {
	args := m.Called(ctx, referenceType, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) CountByReference(ctx context.Context, referenceType, referenceID string) (int64, error) {
	args := m.Called(ctx, referenceType, referenceID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) GetByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]*ledger.Entry, error) {
	args := m.Called(ctx, recipientID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) CountByRecipient(ctx context.Context, recipientID string) (int64, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) SumNetByRecipient(ctx context.Context, recipientID string) (int64, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) WithTx(pgx.Tx) ledger.Repository {
	return m
}

type MockMessagingProducer struct {
	mock.Mock
}

func (m *MockMessagingProducer) Publish(ctx context.Context, key string, value interface{}) error {
	return m.Called(ctx, key, value).Error(0)
}

func (m *MockMessagingProducer) Close() error {
	return m.Called().Error(0)
}
