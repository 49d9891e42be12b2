package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/crowdfund-revenue-ledger/internal/domain/closure"
	"github.com/crowdfund-revenue-ledger/internal/domain/payout"
	"github.com/crowdfund-revenue-ledger/internal/domain/recipe"
	"github.com/crowdfund-revenue-ledger/internal/domain/shared"
	"github.com/crowdfund-revenue-ledger/internal/platform/messaging/producers"
)

// ClosureServiceImpl implements the ClosureService interface
type ClosureServiceImpl struct {
	closureRepo closure.Repository
	recipeRepo  recipe.Repository
	producer    producers.Publisher
	settings    closure.Settings
	logger      *slog.Logger
}

// NewClosureService creates a new closure service
func NewClosureService(
	logger *slog.Logger,
	closureRepo closure.Repository,
	recipeRepo recipe.Repository,
	producer producers.Publisher,
	settings closure.Settings,
) ClosureService {
	return &ClosureServiceImpl{
		closureRepo: closureRepo,
		recipeRepo:  recipeRepo,
		producer:    producer,
		settings:    settings,
		logger:      logger,
	}
}

// SubmitClosure publishes the request keyed by its reference so that closures
// of one reference share a partition.
func (s *ClosureServiceImpl) SubmitClosure(ctx context.Context, request *shared.ClosureRequest) (*closure.Record, error) {
	existing, err := s.GetClosure(ctx, request.ClosureID.String())
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.logger.Info("Found existing closure",
			"closure_id", existing.ClosureID,
			"status", string(existing.Status),
		)
		return existing, nil
	}

	if request.Kind == shared.ClosureKindCategory && request.Alpha == nil {
		request.Alpha = s.activeAlpha(ctx, string(request.Kind))
	}

	if err := s.producer.Publish(ctx, request.LockKey(), request); err != nil {
		s.logger.Error("Failed to publish closure request",
			"closure_id", request.ClosureID.String(),
			"kind", string(request.Kind),
			"reference_id", request.ReferenceID,
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Closure request published",
		"closure_id", request.ClosureID.String(),
		"kind", string(request.Kind),
		"reference_type", request.ReferenceType,
		"reference_id", request.ReferenceID,
		"pot_cents", request.PotCents,
	)
	return nil, nil
}

// activeAlpha returns the Zipf exponent of the active recipe, if it sets one
func (s *ClosureServiceImpl) activeAlpha(ctx context.Context, ruleType string) *float64 {
	active, err := s.recipeRepo.GetActive(ctx, ruleType)
	if err != nil {
		if !errors.Is(err, recipe.ErrRecipeNotFound{}) {
			s.logger.Warn("Failed to load active recipe, using default alpha", "rule_type", ruleType, "error", err)
		}
		return nil
	}
	return active.Formula.Alpha
}

// PreviewClosure runs the same validation and calculation as the processor
func (s *ClosureServiceImpl) PreviewClosure(ctx context.Context, request *shared.ClosureRequest) (*payout.Calculation, []string, error) {
	if request.Kind == shared.ClosureKindCategory && request.Alpha == nil {
		request.Alpha = s.activeAlpha(ctx, string(request.Kind))
	}

	if problems := closure.Problems(request, s.settings); len(problems) > 0 {
		return nil, problems, nil
	}

	calc, err := closure.Calculate(request, s.settings)
	if err != nil {
		if closure.IsRejection(err) {
			return nil, []string{err.Error()}, nil
		}
		s.logger.Error("Failed to preview closure", "kind", string(request.Kind), "error", err)
		return nil, nil, err
	}
	if err := payout.CheckConservation(calc.Payouts, request.PotCents); err != nil {
		s.logger.Error("Preview violates conservation", "kind", string(request.Kind), "error", err)
		return nil, nil, err
	}
	return calc, nil, nil
}

// GetClosure returns nil if the closure is not found
func (s *ClosureServiceImpl) GetClosure(ctx context.Context, closureID string) (*closure.Record, error) {
	rec, err := s.closureRepo.GetByClosureID(ctx, closureID)
	if err != nil {
		if errors.Is(err, closure.ErrRecordNotFound{}) {
			return nil, nil
		}
		s.logger.Error("Failed to get closure", "closure_id", closureID, "error", err)
		return nil, err
	}
	return rec, nil
}

func (s *ClosureServiceImpl) GetClosuresByReference(ctx context.Context, referenceType, referenceID string) ([]*closure.Record, error) {
	records, err := s.closureRepo.GetByReference(ctx, referenceType, referenceID)
	if err != nil {
		s.logger.Error("Failed to get closures by reference",
			"reference_type", referenceType,
			"reference_id", referenceID,
			"error", err,
		)
		return nil, err
	}
	return records, nil
}
