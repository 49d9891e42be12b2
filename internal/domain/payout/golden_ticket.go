package payout

import (
	"errors"
	"fmt"
)

// Rule versions of the holder credits.
const (
	RuleGoldenTicketRefund = "golden_ticket_refund_v1"
	RulePointsConversion   = "points_conversion_v1"
)

const (
	ModeRefund     Mode = "Refund"
	ModeConversion Mode = "Conversion"

	RoleTicketHolder Role = "ticket_holder"
	RolePointsHolder Role = "points_holder"
)

var (
	ErrInvalidTicket        = errors.New("invalid golden ticket")
	ErrPointsBelowThreshold = errors.New("points below conversion threshold")
	ErrMissingHolder        = errors.New("holder account id is required")
)

// TicketType names a golden ticket tier as "<votes>_<euros>".
type TicketType string

const (
	Ticket20x50  TicketType = "20_50"
	Ticket30x75  TicketType = "30_75"
	Ticket40x100 TicketType = "40_100"
)

// InvestmentCents is the price paid for the ticket.
func (t TicketType) InvestmentCents() (int64, bool) {
	switch t {
	case Ticket20x50:
		return 5000, true
	case Ticket30x75:
		return 7500, true
	case Ticket40x100:
		return 10000, true
	}
	return 0, false
}

// refundBasisPoints is indexed by final rank - 1. Ranks past the table get
// no refund.
var refundBasisPoints = []int64{10000, 8500, 7000, 5500, 4000, 2500}

// RefundBasisPoints is the share of the investment returned at a final rank.
func RefundBasisPoints(rank int) int64 {
	if rank < 1 || rank > len(refundBasisPoints) {
		return 0
	}
	return refundBasisPoints[rank-1]
}

// GoldenTicketInput is a ticket whose project finished at FinalRank.
type GoldenTicketInput struct {
	HolderAccountID string
	Ticket          TicketType
	FinalRank       int
}

// CalculateGoldenTicketRefund credits the holder a share of the ticket price
// that decreases with the project's final rank. A rank past the refund table
// still yields one zero line so the closure leaves a ledger trace.
func CalculateGoldenTicketRefund(in GoldenTicketInput) (*Calculation, error) {
	if in.HolderAccountID == "" {
		return nil, ErrMissingHolder
	}
	investment, ok := in.Ticket.InvestmentCents()
	if !ok {
		return nil, fmt.Errorf("%w: unknown ticket type %q", ErrInvalidTicket, in.Ticket)
	}
	if in.FinalRank < 1 {
		return nil, fmt.Errorf("%w: final rank must be at least 1, got %d", ErrInvalidTicket, in.FinalRank)
	}

	bp := RefundBasisPoints(in.FinalRank)
	refund := investment * bp / BasisPointsTotal
	line := Entry{
		AccountID:      in.HolderAccountID,
		Role:           RoleTicketHolder,
		AmountCents:    refund,
		AmountEurFloor: refund,
		Rank:           rankPtr(in.FinalRank),
		Note:           fmt.Sprintf("%s ticket refund at rank %d (%d bp)", in.Ticket, in.FinalRank, bp),
	}
	return holderCredit(RuleGoldenTicketRefund, ModeRefund, line), nil
}

// Points conversion parameters.
const (
	PointsThreshold int64 = 2500
	PointsPerEuro   int64 = 100
	centsPerEuro    int64 = 100
)

// PointsInput is a balance of engagement points to convert into euros.
type PointsInput struct {
	HolderAccountID string
	Points          int64
}

// CalculatePointsConversion converts whole euros worth of points. Leftover
// points below one euro are not converted.
func CalculatePointsConversion(in PointsInput) (*Calculation, error) {
	if in.HolderAccountID == "" {
		return nil, ErrMissingHolder
	}
	if in.Points < PointsThreshold {
		return nil, fmt.Errorf("%w: %d < %d", ErrPointsBelowThreshold, in.Points, PointsThreshold)
	}

	euros := in.Points / PointsPerEuro
	amount := euros * centsPerEuro
	line := Entry{
		AccountID:      in.HolderAccountID,
		Role:           RolePointsHolder,
		AmountCents:    amount,
		AmountEurFloor: amount,
		Note:           fmt.Sprintf("%d points converted at %d points per euro", euros*PointsPerEuro, PointsPerEuro),
	}
	return holderCredit(RulePointsConversion, ModeConversion, line), nil
}

func holderCredit(rule string, mode Mode, line Entry) *Calculation {
	return &Calculation{
		RuleVersion:      rule,
		Mode:             mode,
		K:                1,
		TotalAmountCents: line.AmountEurFloor,
		Payouts:          []Entry{line},
	}
}
