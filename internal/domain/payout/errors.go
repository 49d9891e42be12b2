package payout

import (
	"errors"
	"fmt"
)

var (
	// ErrCategoryWaiting is returned while a category has fewer projects than
	// the minimum needed to define a distribution. Callers defer the closure.
	ErrCategoryWaiting = errors.New("category waiting: not enough projects to distribute")

	ErrCohortSizeMismatch   = errors.New("cohort size mismatch")
	ErrDuplicateAccount     = errors.New("duplicate account in ranked list")
	ErrInvalidPot           = errors.New("pot must be a non-negative amount of minor units")
	ErrInvalidAlpha         = errors.New("alpha must be a positive finite number")
	ErrInvalidCohort        = errors.New("cohort size must be at least 1")
	ErrInvalidSplit         = errors.New("invalid pool split")
	ErrInvalidMinorUnit     = errors.New("minor unit must be positive")
	ErrMissingPlatform      = errors.New("platform account id is required")
	ErrInvalidStake         = errors.New("stake must be positive")
	ErrConservationViolated = errors.New("payouts do not sum to the pot")
)

// CohortSizeMismatchError reports a ranked list whose length differs from K.
type CohortSizeMismatchError struct {
	List     string
	Expected int
	Got      int
}

func (e CohortSizeMismatchError) Error() string {
	return fmt.Sprintf("%s must contain exactly %d accounts (K=%d), got %d", e.List, e.Expected, e.Expected, e.Got)
}

// Is lets errors.Is match the sentinel ErrCohortSizeMismatch.
func (e CohortSizeMismatchError) Is(target error) bool {
	return target == ErrCohortSizeMismatch
}

// DuplicateAccountError reports an account id appearing twice in a ranked list.
type DuplicateAccountError struct {
	List      string
	AccountID string
}

func (e DuplicateAccountError) Error() string {
	return fmt.Sprintf("%s contains duplicate account %q", e.List, e.AccountID)
}

// Is lets errors.Is match the sentinel ErrDuplicateAccount.
func (e DuplicateAccountError) Is(target error) bool {
	return target == ErrDuplicateAccount
}

// IsValidationError reports whether err comes from input validation or an
// arithmetic guard of the engine. Such errors are deterministic: retrying the
// same input yields the same failure.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrCategoryWaiting,
		ErrCohortSizeMismatch,
		ErrDuplicateAccount,
		ErrInvalidPot,
		ErrInvalidAlpha,
		ErrInvalidCohort,
		ErrInvalidSplit,
		ErrInvalidMinorUnit,
		ErrMissingPlatform,
		ErrInvalidStake,
		ErrConservationViolated,
		ErrInvalidTicket,
		ErrPointsBelowThreshold,
		ErrMissingHolder,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
