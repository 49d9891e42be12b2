package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/crowdfund-revenue-ledger/internal/domain/audit"
	"github.com/crowdfund-revenue-ledger/internal/domain/closure"
	"github.com/crowdfund-revenue-ledger/internal/domain/ledger"
	"github.com/crowdfund-revenue-ledger/internal/domain/payout"
	"github.com/crowdfund-revenue-ledger/internal/domain/shared"
	"github.com/crowdfund-revenue-ledger/internal/platform/locking"
)

type MockProcessingService struct {
	mock.Mock
}

func (m *MockProcessingService) ProcessClosure(ctx context.Context, request *shared.ClosureRequest) error {
	return m.Called(ctx, request).Error(0)
}

type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) Validate(ctx context.Context, request *shared.ClosureRequest) error {
	return m.Called(ctx, request).Error(0)
}

func (m *MockValidator) CheckIdempotency(ctx context.Context, request *shared.ClosureRequest) (bool, error) {
	args := m.Called(ctx, request)
	return args.Bool(0), args.Error(1)
}

type MockCalculator struct {
	mock.Mock
}

func (m *MockCalculator) Calculate(request *shared.ClosureRequest) (*payout.Calculation, error) {
	args := m.Called(request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payout.Calculation), args.Error(1)
}

type MockLedgerWriter struct {
	mock.Mock
}

func (m *MockLedgerWriter) WriteEntries(ctx context.Context, tx pgx.Tx, request *shared.ClosureRequest, calc *payout.Calculation) ([]ledger.Entry, error) {
	args := m.Called(ctx, tx, request, calc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Entry), args.Error(1)
}

type MockAuditRecorder struct {
	mock.Mock
}

func (m *MockAuditRecorder) RecordPayout(ctx context.Context, tx pgx.Tx, request *shared.ClosureRequest, calc *payout.Calculation, entries []ledger.Entry) (*audit.Entry, error) {
	args := m.Called(ctx, tx, request, calc, entries)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*audit.Entry), args.Error(1)
}

type MockOutboxManager struct {
	mock.Mock
}

func (m *MockOutboxManager) CreateOutboxEntry(ctx context.Context, tx pgx.Tx, event *closure.PayoutEvent) error {
	return m.Called(ctx, tx, event).Error(0)
}

type MockFailureRecorder struct {
	mock.Mock
}

func (m *MockFailureRecorder) RecordFailure(ctx context.Context, request *shared.ClosureRequest, cause error) error {
	return m.Called(ctx, request, cause).Error(0)
}

type MockLocker struct {
	mock.Mock
	released int
}

func (m *MockLocker) Lock(ctx context.Context, key string) (locking.Unlock, error) {
	args := m.Called(ctx, key)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return func() { m.released++ }, nil
}
