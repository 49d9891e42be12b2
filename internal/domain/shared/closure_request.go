package shared

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/crowdfund-revenue-ledger/internal/domain/payout"
)

var (
	ErrInvalidClosureKind = errors.New("invalid closure kind")
	ErrInvalidReference   = errors.New("reference type and id are required")
	ErrReferenceClosed    = errors.New("reference already closed")
)

// Rankings carries the upstream ranked and unranked participant lists of a
// closure. Which fields are read depends on the closure kind.
type Rankings struct {
	InvestorsTopK   []string       `json:"investors_top_k,omitempty"`
	CreatorsTopK    []string       `json:"creators_top_k,omitempty"`
	InvestorsSmall  []string       `json:"investors_small,omitempty"`
	TopAuthors      []string       `json:"top_authors,omitempty"`
	WinningReaders  []string       `json:"winning_readers,omitempty"`
	Winners         []string       `json:"winners,omitempty"`
	WinnerArtistID  string         `json:"winner_artist_id,omitempty"`
	LoserArtistID   string         `json:"loser_artist_id,omitempty"`
	WinnerInvestors []payout.Stake `json:"winner_investors,omitempty"`
	LoserInvestors  []string       `json:"loser_investors,omitempty"`
	SellerAccountID string         `json:"seller_account_id,omitempty"`
	HolderAccountID string         `json:"holder_account_id,omitempty"`
	TicketType      string         `json:"ticket_type,omitempty"`
	FinalRank       int            `json:"final_rank,omitempty"`
	Points          int64          `json:"points,omitempty"`
}

// ClosureRequest defines a Kafka message asking for one window to be closed
// and paid out.
type ClosureRequest struct {
	ClosureID     uuid.UUID   `json:"closure_id"`
	Kind          ClosureKind `json:"kind"`
	ReferenceType string      `json:"reference_type"`
	ReferenceID   string      `json:"reference_id"`
	PotCents      int64       `json:"pot_cents"` // Stored in cents/minor units
	NProjects     int         `json:"n_projects,omitempty"`
	Alpha         *float64    `json:"alpha,omitempty"`
	Rankings      Rankings    `json:"rankings"`
	CorrelationID string      `json:"correlation_id"`
	RequestedBy   string      `json:"requested_by,omitempty"`
	Timestamp     time.Time   `json:"timestamp"`
}

// LockKey identifies the closure reference for per-reference serialization.
func (r *ClosureRequest) LockKey() string {
	return r.ReferenceType + ":" + r.ReferenceID
}
