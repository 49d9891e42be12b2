package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdfund-revenue-ledger/internal/domain/ledger"
	"github.com/crowdfund-revenue-ledger/internal/domain/payout"
	"github.com/crowdfund-revenue-ledger/internal/domain/shared"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var ledgerColumnNames = []string{
	"id", "transaction_type", "reference_type", "reference_id", "recipient_id", "role", "rank",
	"gross_amount_cents", "net_amount_cents", "fee_cents", "external_payment_ref",
	"idempotency_key", "payout_rule", "status", "created_at",
}

func sampleLedgerEntry() ledger.Entry {
	recipient := "investor-1"
	rank := 1
	key := ledger.IdempotencyKey("category", "cat-1", recipient, payout.RoleInvestorTop, &rank)
	return ledger.Entry{
		ID:               uuid.New(),
		TransactionType:  ledger.TransactionTypePayout,
		ReferenceType:    "category",
		ReferenceID:      "cat-1",
		RecipientID:      &recipient,
		Role:             payout.RoleInvestorTop,
		Rank:             &rank,
		GrossAmountCents: 136_650,
		NetAmountCents:   136_600,
		FeeCents:         50,
		IdempotencyKey:   key,
		PayoutRule:       "films_videos_docs_top10_40_30_7_23_v1",
		Status:           shared.LedgerStatusPending,
		CreatedAt:        time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func anyArgs(n int) []interface{} {
	args := make([]interface{}, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func ledgerRow(rows *pgxmock.Rows, e ledger.Entry) *pgxmock.Rows {
	return rows.AddRow(e.ID, e.TransactionType, e.ReferenceType, e.ReferenceID, e.RecipientID, e.Role, e.Rank,
		e.GrossAmountCents, e.NetAmountCents, e.FeeCents, e.ExternalPaymentRef,
		e.IdempotencyKey, e.PayoutRule, e.Status, e.CreatedAt)
}

func TestLedgerRepository_Append(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: newTestLogger()}
	query := regexp.QuoteMeta("INSERT INTO financial_ledger") + ".*" + regexp.QuoteMeta("ON CONFLICT (idempotency_key) DO NOTHING")

	t.Run("inserts new and skips existing keys", func(t *testing.T) {
		first := sampleLedgerEntry()
		second := sampleLedgerEntry()
		second.IdempotencyKey = "category:other"
		second.CreatedAt = time.Time{}

		mock.ExpectExec(query).
			WithArgs(first.ID, first.TransactionType, first.ReferenceType, first.ReferenceID, first.RecipientID,
				first.Role, first.Rank, first.GrossAmountCents, first.NetAmountCents, first.FeeCents,
				first.ExternalPaymentRef, first.IdempotencyKey, first.PayoutRule, first.Status, first.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec(query).
			WithArgs(second.ID, second.TransactionType, second.ReferenceType, second.ReferenceID, second.RecipientID,
				second.Role, second.Rank, second.GrossAmountCents, second.NetAmountCents, second.FeeCents,
				second.ExternalPaymentRef, second.IdempotencyKey, second.PayoutRule, second.Status, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))

		entries := []ledger.Entry{first, second}
		inserted, err := repo.Append(ctx, entries)
		assert.NoError(t, err)
		assert.Equal(t, 1, inserted)
		assert.False(t, entries[1].CreatedAt.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(anyArgs(15)...).WillReturnError(errors.New("db error"))

		_, err := repo.Append(ctx, []ledger.Entry{sampleLedgerEntry()})
		assert.ErrorContains(t, err, "failed to append ledger entry")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_GetByIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: newTestLogger()}
	query := regexp.QuoteMeta("FROM financial_ledger WHERE idempotency_key = $1")
	entry := sampleLedgerEntry()

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(entry.IdempotencyKey).
			WillReturnRows(ledgerRow(pgxmock.NewRows(ledgerColumnNames), entry))

		got, err := repo.GetByIdempotencyKey(ctx, entry.IdempotencyKey)
		require.NoError(t, err)
		assert.Equal(t, &entry, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("missing").WillReturnRows(pgxmock.NewRows(ledgerColumnNames))

		_, err := repo.GetByIdempotencyKey(ctx, "missing")
		assert.True(t, errors.Is(err, ledger.ErrEntryNotFound{}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_GetByReference(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: newTestLogger()}
	query := regexp.QuoteMeta("WHERE reference_type = $1 AND reference_id = $2 ORDER BY seq ASC")

	investor := sampleLedgerEntry()
	platform := sampleLedgerEntry()
	platform.RecipientID = nil
	platform.Rank = nil
	platform.Role = payout.RolePlatform
	platform.TransactionType = ledger.TransactionTypePlatformResidual

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows(ledgerColumnNames)
		ledgerRow(rows, investor)
		ledgerRow(rows, platform)
		mock.ExpectQuery(query).WithArgs("category", "cat-1").WillReturnRows(rows)

		got, err := repo.GetByReference(ctx, "category", "cat-1")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, &investor, got[0])
		assert.Nil(t, got[1].RecipientID)
		assert.Equal(t, payout.RolePlatform, got[1].Role)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("category", "cat-1").WillReturnError(errors.New("db error"))

		_, err := repo.GetByReference(ctx, "category", "cat-1")
		assert.ErrorContains(t, err, "failed to get ledger entries")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_Counts(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: newTestLogger()}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM financial_ledger WHERE reference_type = $1 AND reference_id = $2")).
		WithArgs("category", "cat-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(41)))
	count, err := repo.CountByReference(ctx, "category", "cat-1")
	require.NoError(t, err)
	assert.Equal(t, int64(41), count)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM financial_ledger WHERE recipient_id = $1")).
		WithArgs("investor-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))
	count, err = repo.CountByRecipient(ctx, "investor-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(net_amount_cents), 0)::BIGINT")).
		WithArgs("investor-1").
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(int64(409_800)))
	total, err := repo.SumNetByRecipient(ctx, "investor-1")
	require.NoError(t, err)
	assert.Equal(t, int64(409_800), total)

	mock.ExpectQuery(regexp.QuoteMeta("FROM financial_ledger WHERE recipient_id = $1 ORDER BY seq DESC LIMIT $2 OFFSET $3")).
		WithArgs("investor-1", 10, 0).
		WillReturnRows(ledgerRow(pgxmock.NewRows(ledgerColumnNames), sampleLedgerEntry()))
	entries, err := repo.GetByRecipient(ctx, "investor-1", 10, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_WithTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	repo := &LedgerRepository{querier: mock, logger: newTestLogger()}
	txRepo, ok := repo.WithTx(tx).(*LedgerRepository)
	require.True(t, ok)
	assert.Equal(t, tx, txRepo.querier)
}
