package components

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/crowdfund-revenue-ledger/internal/domain/audit"
	"github.com/crowdfund-revenue-ledger/internal/domain/ledger"
	"github.com/crowdfund-revenue-ledger/internal/domain/outbox"
	"github.com/crowdfund-revenue-ledger/internal/domain/shared"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockLedgerRepo mocks ledger.Repository. WithTx returns the mock itself.
type MockLedgerRepo struct {
	mock.Mock
}

func (m *MockLedgerRepo) Append(ctx context.Context, entries []ledger.Entry) (int, error) {
	args := m.Called(ctx, entries)
	return args.Int(0), args.Error(1)
}

func (m *MockLedgerRepo) GetByIdempotencyKey(ctx context.Context, key string) (*ledger.Entry, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepo) GetByReference(ctx context.Context, referenceType, referenceID string) ([]*ledger.Entry, error) {
	args := m.Called(ctx, referenceType, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepo) CountByReference(ctx context.Context, referenceType, referenceID string) (int64, error) {
	args := m.Called(ctx, referenceType, referenceID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepo) GetByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]*ledger.Entry, error) {
	args := m.Called(ctx, recipientID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepo) CountByRecipient(ctx context.Context, recipientID string) (int64, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepo) SumNetByRecipient(ctx context.Context, recipientID string) (int64, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepo) WithTx(tx pgx.Tx) ledger.Repository {
	return m
}

// MockAuditRepo mocks audit.Repository
type MockAuditRepo struct {
	mock.Mock
}

func (m *MockAuditRepo) GetTailHash(ctx context.Context, chainID string) (string, error) {
	args := m.Called(ctx, chainID)
	return args.String(0), args.Error(1)
}

func (m *MockAuditRepo) Append(ctx context.Context, entry *audit.Entry) (*audit.Entry, error) {
	args := m.Called(ctx, entry)
	if echo, ok := args.Get(0).(func(*audit.Entry) *audit.Entry); ok {
		return echo(entry), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*audit.Entry), args.Error(1)
}

func (m *MockAuditRepo) ListChain(ctx context.Context, chainID string, limit, offset int) ([]*audit.Entry, error) {
	args := m.Called(ctx, chainID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Entry), args.Error(1)
}

func (m *MockAuditRepo) WithTx(tx pgx.Tx) audit.Repository {
	return m
}

// expectAppend makes Append echo the entry it receives
func (m *MockAuditRepo) expectAppend() *mock.Call {
	return m.On("Append", mock.Anything, mock.AnythingOfType("*audit.Entry")).
		Return(func(e *audit.Entry) *audit.Entry { return e }, nil)
}

// MockOutboxRepo mocks outbox.Repository
type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	return m.Called(ctx, message).Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockOutboxRepo) RecordFailure(ctx context.Context, id int64, maxAttempts int) (shared.OutboxStatus, error) {
	args := m.Called(ctx, id, maxAttempts)
	return args.Get(0).(shared.OutboxStatus), args.Error(1)
}

func (m *MockOutboxRepo) GetByClosureID(ctx context.Context, closureID uuid.UUID) (*outbox.Message, error) {
	args := m.Called(ctx, closureID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	return m
}
