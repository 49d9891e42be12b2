package components

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/crowdfund-revenue-ledger/internal/closure_processor/service"
	"github.com/crowdfund-revenue-ledger/internal/config"
	"github.com/crowdfund-revenue-ledger/internal/domain/audit"
	"github.com/crowdfund-revenue-ledger/internal/domain/closure"
	"github.com/crowdfund-revenue-ledger/internal/domain/ledger"
	"github.com/crowdfund-revenue-ledger/internal/domain/outbox"
	"github.com/crowdfund-revenue-ledger/internal/domain/payout"
	"github.com/crowdfund-revenue-ledger/internal/domain/shared"
	"github.com/crowdfund-revenue-ledger/internal/platform/locking"
)

var testSettings = closure.Settings{PlatformAccountID: "platform", MinorUnit: 100, DefaultAlpha: 1.0}

func potRequest() *shared.ClosureRequest {
	return &shared.ClosureRequest{
		ClosureID:     uuid.New(),
		Kind:          shared.ClosureKindPot24h,
		ReferenceType: "pot24h",
		ReferenceID:   "pot-2024-06-01",
		PotCents:      1_000,
		Rankings:      shared.Rankings{Winners: []string{"w1", "w2"}},
		CorrelationID: "corr-1",
	}
}

func TestClosureValidator_Validate(t *testing.T) {
	validator := NewClosureValidator(&MockLedgerRepo{}, &MockOutboxRepo{}, testLogger())

	tests := []struct {
		name    string
		mutate  func(r *shared.ClosureRequest)
		wantErr error
	}{
		{name: "valid", mutate: func(*shared.ClosureRequest) {}},
		{name: "unknown kind", mutate: func(r *shared.ClosureRequest) { r.Kind = "lottery" }, wantErr: shared.ErrInvalidClosureKind},
		{name: "missing reference", mutate: func(r *shared.ClosureRequest) { r.ReferenceID = "" }, wantErr: shared.ErrInvalidReference},
		{name: "negative pot", mutate: func(r *shared.ClosureRequest) { r.PotCents = -1 }, wantErr: payout.ErrInvalidPot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := potRequest()
			tt.mutate(req)
			err := validator.Validate(context.Background(), req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClosureValidator_CheckIdempotency(t *testing.T) {
	tests := []struct {
		name       string
		count      int64
		ledgerErr  error
		outboxMsg  *outbox.Message
		outboxErr  error
		lookup     bool
		wantSkip   bool
		wantErr    error
		wantErrMsg string
	}{
		{name: "new reference", count: 0},
		{name: "redelivery of the committed closure", count: 3, lookup: true, outboxMsg: &outbox.Message{ID: 9}, wantSkip: true},
		{name: "new closure id for a closed reference", count: 3, lookup: true, outboxErr: outbox.ErrMessageNotFound{}, wantErr: shared.ErrReferenceClosed},
		{name: "outbox lookup error", count: 3, lookup: true, outboxErr: errors.New("db error"), wantErrMsg: "idempotency check failed"},
		{name: "ledger store error", ledgerErr: errors.New("db error"), wantErrMsg: "idempotency check failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledgerRepo := &MockLedgerRepo{}
			outboxRepo := &MockOutboxRepo{}
			req := potRequest()
			ledgerRepo.On("CountByReference", mock.Anything, req.ReferenceType, req.ReferenceID).Return(tt.count, tt.ledgerErr)
			if tt.lookup {
				if tt.outboxMsg != nil {
					outboxRepo.On("GetByClosureID", mock.Anything, req.ClosureID).Return(tt.outboxMsg, nil)
				} else {
					outboxRepo.On("GetByClosureID", mock.Anything, req.ClosureID).Return(nil, tt.outboxErr)
				}
			}

			skip, err := NewClosureValidator(ledgerRepo, outboxRepo, testLogger()).CheckIdempotency(context.Background(), req)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, closure.IsRejection(err))
				assert.Equal(t, shared.ClosureStatusRejected, closure.StatusFor(err))
			case tt.wantErrMsg != "":
				assert.ErrorContains(t, err, tt.wantErrMsg)
				assert.False(t, closure.IsRejection(err))
			default:
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantSkip, skip)
			ledgerRepo.AssertExpectations(t)
			outboxRepo.AssertExpectations(t)
		})
	}
}

func TestPayoutCalculator_Calculate(t *testing.T) {
	calculator := NewPayoutCalculator(testSettings, testLogger())

	t.Run("pot is conserved", func(t *testing.T) {
		req := potRequest()
		calc, err := calculator.Calculate(req)
		require.NoError(t, err)
		assert.Equal(t, payout.RulePot24h, calc.RuleVersion)
		assert.Equal(t, req.PotCents, calc.PayableTotal())
	})

	t.Run("small category waits", func(t *testing.T) {
		req := potRequest()
		req.Kind = shared.ClosureKindCategory
		req.NProjects = 12
		_, err := calculator.Calculate(req)
		assert.ErrorIs(t, err, payout.ErrCategoryWaiting)
		assert.Equal(t, shared.ClosureStatusWaiting, closure.StatusFor(err))
	})
}

func TestLedgerWriter_WriteEntries(t *testing.T) {
	req := potRequest()
	calc, err := NewPayoutCalculator(testSettings, testLogger()).Calculate(req)
	require.NoError(t, err)

	t.Run("appends one line per payout", func(t *testing.T) {
		repo := &MockLedgerRepo{}
		repo.On("Append", mock.Anything, mock.MatchedBy(func(entries []ledger.Entry) bool {
			return len(entries) == len(calc.Payouts)
		})).Return(len(calc.Payouts), nil)

		entries, err := NewLedgerWriter(repo, testLogger()).WriteEntries(context.Background(), nil, req, calc)
		require.NoError(t, err)
		assert.Len(t, entries, len(calc.Payouts))
		for _, e := range entries {
			assert.Equal(t, "pot24h", e.ReferenceType)
			assert.Equal(t, calc.RuleVersion, e.PayoutRule)
		}
		repo.AssertExpectations(t)
	})

	t.Run("partial insert is not an error", func(t *testing.T) {
		repo := &MockLedgerRepo{}
		repo.On("Append", mock.Anything, mock.Anything).Return(1, nil)

		entries, err := NewLedgerWriter(repo, testLogger()).WriteEntries(context.Background(), nil, req, calc)
		assert.NoError(t, err)
		assert.Len(t, entries, len(calc.Payouts))
	})

	t.Run("round-robin category is storable", func(t *testing.T) {
		small := make([]string, 100)
		for i := range small {
			small[i] = fmt.Sprintf("small-%d", i+1)
		}
		top := func(prefix string) []string {
			out := make([]string, 10)
			for i := range out {
				out[i] = fmt.Sprintf("%s-%d", prefix, i+1)
			}
			return out
		}
		category := &shared.ClosureRequest{
			ClosureID:     uuid.New(),
			Kind:          shared.ClosureKindCategory,
			ReferenceType: "category",
			ReferenceID:   "films-2024-06",
			PotCents:      100_000,
			NProjects:     30,
			Rankings: shared.Rankings{
				InvestorsTopK:  top("inv"),
				CreatorsTopK:   top("cre"),
				InvestorsSmall: small,
			},
		}
		roundRobin, err := NewPayoutCalculator(testSettings, testLogger()).Calculate(category)
		require.NoError(t, err)

		repo := &MockLedgerRepo{}
		repo.On("Append", mock.Anything, mock.Anything).Return(len(roundRobin.Payouts), nil)

		entries, err := NewLedgerWriter(repo, testLogger()).WriteEntries(context.Background(), nil, category, roundRobin)
		require.NoError(t, err)
		assert.Len(t, entries, len(roundRobin.Payouts))
		repo.AssertExpectations(t)
	})

	t.Run("unstorable line is a rejection", func(t *testing.T) {
		broken := &payout.Calculation{
			RuleVersion: payout.RulePot24h,
			Payouts:     []payout.Entry{{AccountID: "w1", Role: payout.RolePotWinner, AmountCents: -5, AmountEurFloor: 0}},
		}
		repo := &MockLedgerRepo{}

		_, err := NewLedgerWriter(repo, testLogger()).WriteEntries(context.Background(), nil, req, broken)
		assert.ErrorIs(t, err, ledger.ErrInvalidEntry)
		assert.True(t, closure.IsRejection(err))
		repo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})

	t.Run("store error", func(t *testing.T) {
		repo := &MockLedgerRepo{}
		repo.On("Append", mock.Anything, mock.Anything).Return(0, errors.New("db error"))

		_, err := NewLedgerWriter(repo, testLogger()).WriteEntries(context.Background(), nil, req, calc)
		assert.ErrorContains(t, err, "failed to append ledger entries")
	})
}

func TestAuditRecorder_RecordPayout(t *testing.T) {
	req := potRequest()
	req.Kind = shared.ClosureKindCategory
	req.ReferenceType = "category"
	req.PotCents = 1_000_000
	alpha := 0.8
	calc := &payout.Calculation{RuleVersion: "films_videos_docs_top10pct_alpha0.8_40_30_7_23_v1", Mode: payout.ModeTopPercent, NProjects: 200, K: 20, Alpha: &alpha}
	entries := []ledger.Entry{{GrossAmountCents: 600_000, NetAmountCents: 600_000}, {GrossAmountCents: 400_000, NetAmountCents: 400_000}}

	t.Run("category closure chains category_closed", func(t *testing.T) {
		repo := &MockAuditRepo{}
		repo.On("GetTailHash", mock.Anything, "closure:category").Return(audit.GenesisHash, nil)
		repo.expectAppend()

		entry, err := NewAuditRecorder(repo, "closure-processor", testLogger()).RecordPayout(context.Background(), nil, req, calc, entries)
		require.NoError(t, err)
		assert.Equal(t, audit.ActionCategoryClosed, entry.Action)
		assert.Equal(t, audit.GenesisHash, entry.PreviousHash)
		assert.Equal(t, "closure-processor", entry.Actor)

		var details map[string]any
		require.NoError(t, json.Unmarshal(entry.Details, &details))
		assert.Equal(t, "10000.00", details["pot_eur"])
		assert.EqualValues(t, 1_000_000, details["net_cents"])
		assert.EqualValues(t, 2, details["ledger_entries"])
		assert.Equal(t, 0.8, details["alpha"])
		assert.Equal(t, "films_videos_docs_top10pct_alpha0.8_40_30_7_23_v1", details["rule_version"])
		assert.True(t, audit.VerifyChain([]*audit.Entry{entry}, audit.GenesisHash).Valid)
		repo.AssertExpectations(t)
	})

	t.Run("stale tail is returned", func(t *testing.T) {
		repo := &MockAuditRepo{}
		repo.On("GetTailHash", mock.Anything, "closure:category").Return(audit.GenesisHash, nil)
		repo.On("Append", mock.Anything, mock.Anything).Return(nil, audit.ErrStaleTail)

		_, err := NewAuditRecorder(repo, "closure-processor", testLogger()).RecordPayout(context.Background(), nil, req, calc, entries)
		assert.ErrorIs(t, err, audit.ErrStaleTail)
	})
}

func TestCentsToEur(t *testing.T) {
	assert.Equal(t, "0.00", centsToEur(0))
	assert.Equal(t, "0.07", centsToEur(7))
	assert.Equal(t, "4001.00", centsToEur(400_100))
}

func TestOutboxManager_CreateOutboxEntry(t *testing.T) {
	event := &closure.PayoutEvent{
		ClosureID:     uuid.New(),
		Kind:          shared.ClosureKindPot24h,
		ReferenceType: "pot24h",
		ReferenceID:   "pot-2024-06-01",
		Status:        shared.ClosureStatusCompleted,
		CorrelationID: "corr-1",
	}

	t.Run("success", func(t *testing.T) {
		repo := &MockOutboxRepo{}
		repo.On("Create", mock.Anything, mock.MatchedBy(func(m *outbox.Message) bool {
			ev, err := m.GetPayoutEvent()
			return err == nil && m.ClosureID == event.ClosureID && ev.Status == shared.ClosureStatusCompleted &&
				m.Status == shared.OutboxStatusPending
		})).Return(nil)

		assert.NoError(t, NewOutboxManager(repo, testLogger()).CreateOutboxEntry(context.Background(), nil, event))
		repo.AssertExpectations(t)
	})

	t.Run("store error", func(t *testing.T) {
		repo := &MockOutboxRepo{}
		repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db error"))

		err := NewOutboxManager(repo, testLogger()).CreateOutboxEntry(context.Background(), nil, event)
		assert.ErrorContains(t, err, "failed to create outbox message")
	})
}

func TestFailureRecorder_RecordFailure(t *testing.T) {
	newRecorder := func(t *testing.T) (pgxmock.PgxPoolIface, *MockAuditRepo, *MockOutboxRepo, service.FailureRecorder) {
		db, err := pgxmock.NewPool()
		require.NoError(t, err)
		t.Cleanup(db.Close)
		auditRepo := &MockAuditRepo{}
		outboxRepo := &MockOutboxRepo{}
		return db, auditRepo, outboxRepo, NewFailureRecorder(db, auditRepo, outboxRepo, "closure-processor", testLogger())
	}

	t.Run("waiting category is audited and announced", func(t *testing.T) {
		db, auditRepo, outboxRepo, recorder := newRecorder(t)
		req := potRequest()
		req.Kind = shared.ClosureKindCategory
		req.ReferenceType = "category"

		outboxRepo.On("GetByClosureID", mock.Anything, req.ClosureID).Return(nil, outbox.ErrMessageNotFound{})
		db.ExpectBegin()
		auditRepo.On("GetTailHash", mock.Anything, "closure:category").Return(audit.GenesisHash, nil)
		auditRepo.expectAppend()
		outboxRepo.On("Create", mock.Anything, mock.MatchedBy(func(m *outbox.Message) bool {
			ev, err := m.GetPayoutEvent()
			return err == nil && ev.Status == shared.ClosureStatusWaiting && ev.AuditHash != "" && ev.FailureReason != ""
		})).Return(nil)
		db.ExpectCommit()

		err := recorder.RecordFailure(context.Background(), req, payout.ErrCategoryWaiting)
		assert.NoError(t, err)
		auditRepo.AssertExpectations(t)
		outboxRepo.AssertExpectations(t)
		assert.NoError(t, db.ExpectationsWereMet())
	})

	t.Run("already recorded", func(t *testing.T) {
		db, auditRepo, outboxRepo, recorder := newRecorder(t)
		req := potRequest()
		outboxRepo.On("GetByClosureID", mock.Anything, req.ClosureID).Return(&outbox.Message{ID: 7}, nil)

		assert.NoError(t, recorder.RecordFailure(context.Background(), req, shared.ErrInvalidReference))
		auditRepo.AssertNotCalled(t, "GetTailHash", mock.Anything, mock.Anything)
		assert.NoError(t, db.ExpectationsWereMet())
	})

	t.Run("audit failure rolls back", func(t *testing.T) {
		db, auditRepo, outboxRepo, recorder := newRecorder(t)
		req := potRequest()
		outboxRepo.On("GetByClosureID", mock.Anything, req.ClosureID).Return(nil, outbox.ErrMessageNotFound{})
		db.ExpectBegin()
		auditRepo.On("GetTailHash", mock.Anything, "closure:pot24h").Return("", errors.New("lock timeout"))
		db.ExpectRollback()

		err := recorder.RecordFailure(context.Background(), req, shared.ErrInvalidReference)
		assert.ErrorContains(t, err, "lock timeout")
		outboxRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		assert.NoError(t, db.ExpectationsWereMet())
	})
}

func TestCreateProcessingService(t *testing.T) {
	db, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer db.Close()

	repos := Repositories{Ledger: &MockLedgerRepo{}, Audit: &MockAuditRepo{}, Outbox: &MockOutboxRepo{}}
	newConfig := func(size int) *config.Config {
		return &config.Config{
			WorkerPool: config.WorkerPoolConfig{Size: size},
			Engine:     config.EngineConfig{PlatformAccountID: "platform", MinorUnit: 100, AuditActor: "closure-processor"},
		}
	}

	t.Run("creates worker pool service with valid config", func(t *testing.T) {
		processingService := CreateProcessingService(db, locking.NewKeyedMutex(), repos, testLogger(), newConfig(5))
		pooled, ok := processingService.(*service.WorkerPoolProcessingService)
		require.True(t, ok)
		assert.Equal(t, 5, pooled.Capacity())
	})

	t.Run("non-positive size still yields a service", func(t *testing.T) {
		processingService := CreateProcessingService(db, locking.NewKeyedMutex(), repos, testLogger(), newConfig(0))
		assert.NotNil(t, processingService)
	})
}
