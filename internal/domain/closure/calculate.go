// Package closure maps closure requests onto the payout engine and defines
// the documents produced once a closure has been processed.
package closure

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/crowdfund-revenue-ledger/internal/domain/ledger"
	"github.com/crowdfund-revenue-ledger/internal/domain/payout"
	"github.com/crowdfund-revenue-ledger/internal/domain/shared"
)

// Settings are the deployment-wide engine parameters.
type Settings struct {
	PlatformAccountID string
	MinorUnit         int64
	DefaultAlpha      float64
}

// Validate checks the structure of a request before any calculation.
func Validate(req *shared.ClosureRequest) error {
	if req.ClosureID == uuid.Nil {
		return fmt.Errorf("%w: closure id is required", shared.ErrInvalidReference)
	}
	if req.ReferenceType == "" || req.ReferenceID == "" {
		return shared.ErrInvalidReference
	}
	if !req.Kind.Valid() {
		return fmt.Errorf("%w: %q", shared.ErrInvalidClosureKind, req.Kind)
	}
	if req.PotCents < 0 {
		return fmt.Errorf("%w: got %d", payout.ErrInvalidPot, req.PotCents)
	}
	return nil
}

// IsRejection reports whether err is deterministic for the request and must
// not be retried as-is.
func IsRejection(err error) bool {
	return payout.IsValidationError(err) ||
		errors.Is(err, shared.ErrInvalidClosureKind) ||
		errors.Is(err, shared.ErrInvalidReference) ||
		errors.Is(err, shared.ErrReferenceClosed) ||
		errors.Is(err, ledger.ErrInvalidEntry)
}

// StatusFor maps a rejection to the recorded closure status.
func StatusFor(err error) shared.ClosureStatus {
	if errors.Is(err, payout.ErrCategoryWaiting) {
		return shared.ClosureStatusWaiting
	}
	return shared.ClosureStatusRejected
}

// Calculate runs the distribution rule selected by the request kind.
func Calculate(req *shared.ClosureRequest, settings Settings) (*payout.Calculation, error) {
	r := req.Rankings
	switch req.Kind {
	case shared.ClosureKindCategory:
		return payout.CalculateFixedOrAdaptivePayout(categoryInput(req, settings))
	case shared.ClosureKindBooksMonthly:
		return payout.CalculateBooksMonthlyPot(payout.BooksMonthlyInput{
			PotCents:          req.PotCents,
			TopAuthors:        r.TopAuthors,
			WinningReaders:    r.WinningReaders,
			PlatformAccountID: settings.PlatformAccountID,
			MinorUnit:         settings.MinorUnit,
		})
	case shared.ClosureKindPot24h:
		return payout.CalculateEquipartitionPot(payout.EquipartitionInput{
			PotCents:          req.PotCents,
			Winners:           r.Winners,
			PlatformAccountID: settings.PlatformAccountID,
			MinorUnit:         settings.MinorUnit,
		})
	case shared.ClosureKindBattle:
		return payout.CalculateBattlePayout(payout.BattleInput{
			PotCents:          req.PotCents,
			WinnerArtistID:    r.WinnerArtistID,
			LoserArtistID:     r.LoserArtistID,
			WinnerInvestors:   r.WinnerInvestors,
			LoserInvestors:    r.LoserInvestors,
			PlatformAccountID: settings.PlatformAccountID,
			MinorUnit:         settings.MinorUnit,
		})
	case shared.ClosureKindArticleSale, shared.ClosureKindBookSale:
		kind := payout.SaleArticle
		if req.Kind == shared.ClosureKindBookSale {
			kind = payout.SaleBook
		}
		return payout.CalculateSale(payout.SaleInput{
			Kind:              kind,
			GrossCents:        req.PotCents,
			SellerAccountID:   r.SellerAccountID,
			PlatformAccountID: settings.PlatformAccountID,
		})
	case shared.ClosureKindGoldenTicket:
		return payout.CalculateGoldenTicketRefund(payout.GoldenTicketInput{
			HolderAccountID: r.HolderAccountID,
			Ticket:          payout.TicketType(r.TicketType),
			FinalRank:       r.FinalRank,
		})
	case shared.ClosureKindPoints:
		return payout.CalculatePointsConversion(payout.PointsInput{
			HolderAccountID: r.HolderAccountID,
			Points:          r.Points,
		})
	default:
		return nil, fmt.Errorf("%w: %q", shared.ErrInvalidClosureKind, req.Kind)
	}
}

// Problems lists every structural problem of req. Category closures are
// checked in full; other kinds report the first problem only.
func Problems(req *shared.ClosureRequest, settings Settings) []string {
	if err := Validate(req); err != nil {
		return []string{err.Error()}
	}
	if req.Kind == shared.ClosureKindCategory {
		return payout.ValidateCategoryInput(categoryInput(req, settings))
	}
	if _, err := Calculate(req, settings); err != nil && IsRejection(err) {
		return []string{err.Error()}
	}
	return nil
}

func categoryInput(req *shared.ClosureRequest, settings Settings) payout.CategoryInput {
	alpha := req.Alpha
	if alpha == nil && settings.DefaultAlpha > 0 {
		a := settings.DefaultAlpha
		alpha = &a
	}
	r := req.Rankings
	return payout.CategoryInput{
		PotCents:          req.PotCents,
		InvestorsTopK:     r.InvestorsTopK,
		CreatorsTopK:      r.CreatorsTopK,
		InvestorsSmall:    r.InvestorsSmall,
		PlatformAccountID: settings.PlatformAccountID,
		NProjects:         req.NProjects,
		Alpha:             alpha,
		MinorUnit:         settings.MinorUnit,
	}
}
