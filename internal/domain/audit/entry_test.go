package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetTailHash(ctx context.Context, chainID string) (string, error) {
	args := m.Called(ctx, chainID)
	return args.String(0), args.Error(1)
}

func (m *MockRepository) Append(ctx context.Context, entry *Entry) (*Entry, error) {
	args := m.Called(ctx, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if fn, ok := args.Get(0).(func(context.Context, *Entry) *Entry); ok {
		return fn(ctx, entry), args.Error(1)
	}
	return args.Get(0).(*Entry), args.Error(1)
}

func (m *MockRepository) ListChain(ctx context.Context, chainID string, limit, offset int) ([]*Entry, error) {
	args := m.Called(ctx, chainID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Entry), args.Error(1)
}

func (m *MockRepository) WithTx(tx pgx.Tx) Repository {
	return m
}

func payoutRecord(details any) Record {
	return Record{
		Actor:       "closure-processor",
		Action:      ActionPayoutExecuted,
		SubjectType: "category",
		SubjectID:   "cat-42",
		Details:     details,
	}
}

func buildChain(t *testing.T, n int) []*Entry {
	t.Helper()
	prev := GenesisHash
	chain := make([]*Entry, 0, n)
	for i := 0; i < n; i++ {
		e, err := NewEntry("closure:category", prev, payoutRecord(map[string]any{"seq": i, "pot_cents": 1000 * i}))
		require.NoError(t, err)
		chain = append(chain, e)
		prev = e.CurrentHash
	}
	return chain
}

func TestNewEntry(t *testing.T) {
	t.Run("hash ignores id and timestamp", func(t *testing.T) {
		a, err := NewEntry("c", GenesisHash, payoutRecord(map[string]int{"k": 10}))
		require.NoError(t, err)
		b, err := NewEntry("c", GenesisHash, payoutRecord(map[string]int{"k": 10}))
		require.NoError(t, err)

		assert.NotEqual(t, a.ID, b.ID)
		assert.Equal(t, a.CurrentHash, b.CurrentHash)
		assert.Len(t, a.CurrentHash, 64)
		assert.Equal(t, GenesisHash, a.PreviousHash)
	})

	t.Run("previous hash changes the hash", func(t *testing.T) {
		a, err := NewEntry("c", GenesisHash, payoutRecord(nil))
		require.NoError(t, err)
		b, err := NewEntry("c", a.CurrentHash, payoutRecord(nil))
		require.NoError(t, err)
		assert.NotEqual(t, a.CurrentHash, b.CurrentHash)
	})

	t.Run("field order does not matter", func(t *testing.T) {
		type details struct {
			Zeta  int    `json:"zeta"`
			Alpha string `json:"alpha"`
		}
		a, err := NewEntry("c", GenesisHash, payoutRecord(details{Zeta: 1, Alpha: "x"}))
		require.NoError(t, err)
		b, err := NewEntry("c", GenesisHash, payoutRecord(map[string]any{"alpha": "x", "zeta": 1}))
		require.NoError(t, err)

		assert.Equal(t, a.CurrentHash, b.CurrentHash)
		assert.JSONEq(t, `{"alpha":"x","zeta":1}`, string(a.Details))
		assert.Equal(t, `{"alpha":"x","zeta":1}`, string(a.Details))
	})

	t.Run("serialization error", func(t *testing.T) {
		_, err := NewEntry("c", GenesisHash, payoutRecord(map[string]any{"bad": make(chan int)}))
		require.Error(t, err)
		var serr SerializationError
		assert.True(t, errors.As(err, &serr))
	})
}

func TestCanonicalize_KeepsLargeNumbers(t *testing.T) {
	out, err := Canonicalize(map[string]any{"pot": int64(9007199254740993)})
	require.NoError(t, err)
	assert.Equal(t, `{"pot":9007199254740993}`, string(out))
}

func TestVerifyChain(t *testing.T) {
	t.Run("valid chain", func(t *testing.T) {
		report := VerifyChain(buildChain(t, 5), GenesisHash)
		assert.True(t, report.Valid)
		assert.Equal(t, 5, report.Checked)
		assert.Equal(t, -1, report.BrokenAt)
	})

	t.Run("empty chain", func(t *testing.T) {
		report := VerifyChain(nil, GenesisHash)
		assert.True(t, report.Valid)
		assert.Equal(t, 0, report.Checked)
	})

	t.Run("reformatted details still verify", func(t *testing.T) {
		chain := buildChain(t, 2)
		chain[1].Details = json.RawMessage(`{ "seq": 1,  "pot_cents": 1000 }`)
		assert.True(t, VerifyChain(chain, GenesisHash).Valid)
	})

	t.Run("tampered details", func(t *testing.T) {
		chain := buildChain(t, 4)
		chain[2].Details = json.RawMessage(`{"seq":2,"pot_cents":999999}`)

		report := VerifyChain(chain, GenesisHash)
		assert.False(t, report.Valid)
		assert.Equal(t, 2, report.BrokenAt)
		assert.Contains(t, report.Reason, "does not match")
	})

	t.Run("broken link", func(t *testing.T) {
		chain := buildChain(t, 4)
		chain = append(chain[:1], chain[2:]...)

		report := VerifyChain(chain, GenesisHash)
		assert.False(t, report.Valid)
		assert.Equal(t, 1, report.BrokenAt)
		assert.Contains(t, report.Reason, "links to")
	})

	t.Run("partial chain from a known hash", func(t *testing.T) {
		chain := buildChain(t, 4)
		report := VerifyChain(chain[2:], chain[1].CurrentHash)
		assert.True(t, report.Valid)
		assert.Equal(t, 2, report.Checked)
	})
}

func TestAppendTo(t *testing.T) {
	ctx := context.Background()

	t.Run("chains onto the tail", func(t *testing.T) {
		repo := &MockRepository{}
		tail := buildChain(t, 1)[0].CurrentHash
		repo.On("GetTailHash", ctx, "closure:category").Return(tail, nil)
		repo.On("Append", ctx, mock.MatchedBy(func(e *Entry) bool {
			return e.PreviousHash == tail && e.ChainID == "closure:category"
		})).Return(func(_ context.Context, e *Entry) *Entry { return e }, nil)

		stored, err := AppendTo(ctx, repo, "closure:category", payoutRecord(map[string]int{"n": 1}))
		require.NoError(t, err)
		assert.Equal(t, tail, stored.PreviousHash)
		repo.AssertExpectations(t)
	})

	t.Run("tail read failure", func(t *testing.T) {
		repo := &MockRepository{}
		repo.On("GetTailHash", ctx, "closure:category").Return("", errors.New("db down"))

		_, err := AppendTo(ctx, repo, "closure:category", payoutRecord(nil))
		assert.ErrorContains(t, err, "db down")
		repo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})

	t.Run("stale tail", func(t *testing.T) {
		repo := &MockRepository{}
		repo.On("GetTailHash", ctx, "closure:category").Return(GenesisHash, nil)
		repo.On("Append", ctx, mock.Anything).Return(nil, ErrStaleTail)

		_, err := AppendTo(ctx, repo, "closure:category", payoutRecord(nil))
		assert.True(t, errors.Is(err, ErrStaleTail))
	})
}
