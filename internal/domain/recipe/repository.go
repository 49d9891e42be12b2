package recipe

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository stores recipe versions. Activate deactivates every other
// version of the same rule type.
type Repository interface {
	Create(ctx context.Context, r *Recipe) error
	GetByVersion(ctx context.Context, version string) (*Recipe, error)
	GetActive(ctx context.Context, ruleType string) (*Recipe, error)
	List(ctx context.Context, ruleType string, limit, offset int) ([]*Recipe, error)
	Activate(ctx context.Context, version string) (*Recipe, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrRecipeNotFound indicates a missing recipe version or no active recipe
type ErrRecipeNotFound struct {
	Version string
}

func (e ErrRecipeNotFound) Error() string {
	return "payout recipe not found: " + e.Version
}

// Is implements the errors.Is interface for ErrRecipeNotFound
func (e ErrRecipeNotFound) Is(target error) bool {
	t, ok := target.(ErrRecipeNotFound)
	if !ok {
		return false
	}
	return t.Version == "" || t.Version == e.Version
}

// ErrDuplicateVersion indicates an attempt to overwrite an existing version
type ErrDuplicateVersion struct {
	Version string
}

func (e ErrDuplicateVersion) Error() string {
	return "payout recipe version already exists: " + e.Version
}

// Is implements the errors.Is interface for ErrDuplicateVersion
func (e ErrDuplicateVersion) Is(target error) bool {
	t, ok := target.(ErrDuplicateVersion)
	if !ok {
		return false
	}
	return t.Version == "" || t.Version == e.Version
}
