package shared

// ClosureKind selects the distribution rule applied to a closure
type ClosureKind string

const (
	ClosureKindCategory     ClosureKind = "category"
	ClosureKindBooksMonthly ClosureKind = "books_monthly"
	ClosureKindPot24h       ClosureKind = "pot24h"
	ClosureKindBattle       ClosureKind = "battle"
	ClosureKindArticleSale  ClosureKind = "article_sale"
	ClosureKindBookSale     ClosureKind = "book_sale"
	ClosureKindGoldenTicket ClosureKind = "golden_ticket"
	ClosureKindPoints       ClosureKind = "points_conversion"
)

// Valid reports whether k is a known closure kind
func (k ClosureKind) Valid() bool {
	switch k {
	case ClosureKindCategory, ClosureKindBooksMonthly, ClosureKindPot24h,
		ClosureKindBattle, ClosureKindArticleSale, ClosureKindBookSale,
		ClosureKindGoldenTicket, ClosureKindPoints:
		return true
	}
	return false
}

// ClosureStatus defines closure processing outcomes
type ClosureStatus string

const (
	ClosureStatusCompleted ClosureStatus = "COMPLETED"
	ClosureStatusRejected  ClosureStatus = "REJECTED"
	ClosureStatusWaiting   ClosureStatus = "WAITING"
)

// LedgerStatus defines settlement states of a ledger line
type LedgerStatus string

const (
	LedgerStatusPending LedgerStatus = "PENDING"
	LedgerStatusPaid    LedgerStatus = "PAID"
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
