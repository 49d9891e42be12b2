package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/crowdfund-revenue-ledger/internal/domain/audit"
	"github.com/crowdfund-revenue-ledger/internal/domain/recipe"
)

const recipeSubject = "payout_recipe"

// RecipeServiceImpl implements the RecipeService interface
type RecipeServiceImpl struct {
	db         TxStarter
	recipeRepo recipe.Repository
	auditRepo  audit.Repository
	logger     *slog.Logger
}

// NewRecipeService creates a new recipe service
func NewRecipeService(logger *slog.Logger, db TxStarter, recipeRepo recipe.Repository, auditRepo audit.Repository) RecipeService {
	return &RecipeServiceImpl{
		db:         db,
		recipeRepo: recipeRepo,
		auditRepo:  auditRepo,
		logger:     logger,
	}
}

// policyDetails is the audited content of a recipe change
type policyDetails struct {
	Change   string         `json:"change"`
	Version  string         `json:"version"`
	RuleType string         `json:"rule_type"`
	Formula  recipe.Formula `json:"formula"`
	IsActive bool           `json:"is_active"`
}

// CreateRecipe stores an inactive recipe
func (s *RecipeServiceImpl) CreateRecipe(ctx context.Context, def recipe.Formulated, actor string) (*recipe.Recipe, error) {
	rec, err := recipe.NewRecipe(def.Version, def.RuleType, def.Formula, def.Description, actor)
	if err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(repo recipe.Repository, auditRepo audit.Repository) error {
		if err := repo.Create(ctx, rec); err != nil {
			return err
		}
		return s.auditChange(ctx, auditRepo, actor, "created", rec)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Recipe created", "version", rec.Version, "rule_type", rec.RuleType, "actor", actor)
	return rec, nil
}

// ActivateRecipe makes version the only active recipe of its rule type
func (s *RecipeServiceImpl) ActivateRecipe(ctx context.Context, version, actor string) (*recipe.Recipe, error) {
	var activated *recipe.Recipe
	err := s.inTx(ctx, func(repo recipe.Repository, auditRepo audit.Repository) error {
		rec, err := repo.Activate(ctx, version)
		if err != nil {
			return err
		}
		activated = rec
		return s.auditChange(ctx, auditRepo, actor, "activated", rec)
	})
	if err != nil {
		return nil, err
	}
	return activated, nil
}

func (s *RecipeServiceImpl) ListRecipes(ctx context.Context, ruleType string, page, perPage int) ([]*recipe.Recipe, error) {
	return s.recipeRepo.List(ctx, ruleType, perPage, (page-1)*perPage)
}

// GetActiveRecipe returns nil if the rule type has no active recipe
func (s *RecipeServiceImpl) GetActiveRecipe(ctx context.Context, ruleType string) (*recipe.Recipe, error) {
	rec, err := s.recipeRepo.GetActive(ctx, ruleType)
	if err != nil {
		if errors.Is(err, recipe.ErrRecipeNotFound{}) {
			return nil, nil
		}
		s.logger.Error("Failed to get active recipe", "rule_type", ruleType, "error", err)
		return nil, err
	}
	return rec, nil
}

// SeedBuiltin creates the missing builtin recipes and returns how many were
// created. Existing versions are left untouched.
func (s *RecipeServiceImpl) SeedBuiltin(ctx context.Context, actor string) (int, error) {
	created := 0
	for _, def := range recipe.Builtin() {
		_, err := s.CreateRecipe(ctx, def, actor)
		if errors.Is(err, recipe.ErrDuplicateVersion{}) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("failed to seed recipe %s: %w", def.Version, err)
		}
		created++
	}
	s.logger.Info("Builtin recipes seeded", "created", created)
	return created, nil
}

func (s *RecipeServiceImpl) auditChange(ctx context.Context, auditRepo audit.Repository, actor, change string, rec *recipe.Recipe) error {
	_, err := audit.AppendTo(ctx, auditRepo, audit.RecipeChainID, audit.Record{
		Actor:       actor,
		Action:      audit.ActionPolicyUpdated,
		SubjectType: recipeSubject,
		SubjectID:   rec.Version,
		Details: policyDetails{
			Change:   change,
			Version:  rec.Version,
			RuleType: rec.RuleType,
			Formula:  rec.Formula,
			IsActive: rec.IsActive,
		},
	})
	if err != nil {
		s.logger.Error("Failed to audit recipe change", "version", rec.Version, "change", change, "error", err)
	}
	return err
}

// inTx runs fn against transactional repositories and commits when it succeeds
func (s *RecipeServiceImpl) inTx(ctx context.Context, fn func(recipe.Repository, audit.Repository) error) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin DB transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error("Failed to rollback recipe transaction", "rollback_error", rbErr, "original_error", err)
			}
		}
	}()

	if err = fn(s.recipeRepo.WithTx(tx), s.auditRepo.WithTx(tx)); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit recipe transaction: %w", err)
	}
	return nil
}
