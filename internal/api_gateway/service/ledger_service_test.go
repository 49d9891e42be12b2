package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdfund-revenue-ledger/internal/domain/ledger"
)

func TestLedgerService_GetEntriesByRecipient(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		page       int
		perPage    int
		setupMocks func(repo *MockLedgerRepository)
		wantTotal  int64
		wantErr    string
	}{
		{
			name:    "second page",
			page:    2,
			perPage: 10,
			setupMocks: func(repo *MockLedgerRepository) {
				repo.On("GetByRecipient", ctx, "investor-1", 10, 10).Return([]*ledger.Entry{{}, {}}, nil)
				repo.On("CountByRecipient", ctx, "investor-1").Return(int64(12), nil)
			},
			wantTotal: 12,
		},
		{
			name:    "query failure",
			page:    1,
			perPage: 10,
			setupMocks: func(repo *MockLedgerRepository) {
				repo.On("GetByRecipient", ctx, "investor-1", 10, 0).Return(nil, errors.New("db error"))
			},
			wantErr: "db error",
		},
		{
			name:    "count failure",
			page:    1,
			perPage: 10,
			setupMocks: func(repo *MockLedgerRepository) {
				repo.On("GetByRecipient", ctx, "investor-1", 10, 0).Return([]*ledger.Entry{}, nil)
				repo.On("CountByRecipient", ctx, "investor-1").Return(int64(0), errors.New("count error"))
			},
			wantErr: "count error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockLedgerRepository)
			tt.setupMocks(repo)

			entries, total, err := NewLedgerService(testLogger(), repo).GetEntriesByRecipient(ctx, "investor-1", tt.page, tt.perPage)

			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, entries, 2)
			assert.Equal(t, tt.wantTotal, total)
			repo.AssertExpectations(t)
		})
	}
}

func TestLedgerService_GetBalance(t *testing.T) {
	ctx := context.Background()
	repo := new(MockLedgerRepository)
	repo.On("SumNetByRecipient", ctx, "investor-1").Return(int64(409_800), nil).Once()
	repo.On("SumNetByRecipient", ctx, "broken").Return(int64(0), errors.New("db error")).Once()
	svc := NewLedgerService(testLogger(), repo)

	balance, err := svc.GetBalance(ctx, "investor-1")
	require.NoError(t, err)
	assert.Equal(t, int64(409_800), balance)

	_, err = svc.GetBalance(ctx, "broken")
	assert.Error(t, err)
}

func TestLedgerService_GetEntriesByReference(t *testing.T) {
	ctx := context.Background()
	repo := new(MockLedgerRepository)
	entries := []*ledger.Entry{{ReferenceID: "cat-1"}}
	repo.On("GetByReference", ctx, "category", "cat-1").Return(entries, nil)

	got, err := NewLedgerService(testLogger(), repo).GetEntriesByReference(ctx, "category", "cat-1")

	require.NoError(t, err)
	assert.Equal(t, entries, got)
}
