package payout

import "fmt"

// DefaultMinorUnit is the number of minor units in one major currency unit.
const DefaultMinorUnit int64 = 100

// EuroFloor rounds amount down to a multiple of unit. Negative amounts floor to 0.
func EuroFloor(amount, unit int64) int64 {
	if amount <= 0 || unit <= 0 {
		return 0
	}
	return amount / unit * unit
}

func resolveUnit(unit int64) (int64, error) {
	switch {
	case unit == 0:
		return DefaultMinorUnit, nil
	case unit < 0:
		return 0, fmt.Errorf("%w: got %d", ErrInvalidMinorUnit, unit)
	default:
		return unit, nil
	}
}

// Reconcile floors every payable line to a multiple of unit and appends the
// platform line, which receives platformBaseCents plus the residual
// pot - sum(floors) - platformBase, clamped at zero, in raw cents.
// The input slice is not modified.
func Reconcile(entries []Entry, potCents, platformBaseCents int64, platformAccountID string, unit int64) ([]Entry, int64, error) {
	if platformAccountID == "" {
		return nil, 0, ErrMissingPlatform
	}
	if unit <= 0 {
		return nil, 0, fmt.Errorf("%w: got %d", ErrInvalidMinorUnit, unit)
	}

	final := make([]Entry, 0, len(entries)+1)
	var floored int64
	for _, e := range entries {
		e.AmountEurFloor = EuroFloor(e.AmountEurFloor, unit)
		floored += e.AmountEurFloor
		final = append(final, e)
	}

	residual := potCents - floored - platformBaseCents
	if residual < 0 {
		residual = 0
	}
	platformAmount := platformBaseCents + residual
	final = append(final, Entry{
		AccountID:      platformAccountID,
		Role:           RolePlatform,
		AmountCents:    platformAmount,
		AmountEurFloor: platformAmount,
		Note:           fmt.Sprintf("platform base %d cents plus residual %d cents", platformBaseCents, residual),
	})

	if err := CheckConservation(final, potCents); err != nil {
		return nil, 0, err
	}
	return final, residual, nil
}

// CheckConservation verifies that the payable amounts sum to the pot.
func CheckConservation(entries []Entry, potCents int64) error {
	var total int64
	for _, e := range entries {
		total += e.AmountEurFloor
	}
	if total != potCents {
		return fmt.Errorf("%w: payable %d cents, pot %d cents", ErrConservationViolated, total, potCents)
	}
	return nil
}
