package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/crowdfund-revenue-ledger/internal/domain/recipe"
	"github.com/crowdfund-revenue-ledger/internal/platform/persistence"
)

const uniqueViolation = "23505"

const recipeColumns = `id, version, rule_type, formula, description, is_active, created_by, created_at, activated_at`

// RecipeRepository implements the recipe.Repository interface for PostgreSQL
type RecipeRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewRecipeRepository creates a new PostgreSQL recipe repository
func NewRecipeRepository(logger *slog.Logger, db *persistence.PostgresDB) recipe.Repository {
	return &RecipeRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *RecipeRepository) WithTx(tx pgx.Tx) recipe.Repository {
	return &RecipeRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new recipe version. Versions are immutable, so an existing
// version yields recipe.ErrDuplicateVersion.
func (r *RecipeRepository) Create(ctx context.Context, rec *recipe.Recipe) error {
	formula, err := json.Marshal(rec.Formula)
	if err != nil {
		return fmt.Errorf("failed to encode recipe formula: %w", err)
	}

	query := `
		INSERT INTO payout_recipes (` + recipeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.querier.Exec(ctx, query,
		rec.ID,
		rec.Version,
		rec.RuleType,
		formula,
		rec.Description,
		rec.IsActive,
		rec.CreatedBy,
		rec.CreatedAt,
		rec.ActivatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return recipe.ErrDuplicateVersion{Version: rec.Version}
		}
		r.logger.Error("Failed to create recipe", "version", rec.Version, "error", err)
		return fmt.Errorf("failed to create recipe: %w", err)
	}
	return nil
}

// GetByVersion returns recipe.ErrRecipeNotFound for an unknown version
func (r *RecipeRepository) GetByVersion(ctx context.Context, version string) (*recipe.Recipe, error) {
	query := `
		SELECT ` + recipeColumns + `
		FROM payout_recipes
		WHERE version = $1
	`
	return r.getOne(ctx, version, query, version)
}

// GetActive returns the active recipe of a rule type
func (r *RecipeRepository) GetActive(ctx context.Context, ruleType string) (*recipe.Recipe, error) {
	query := `
		SELECT ` + recipeColumns + `
		FROM payout_recipes
		WHERE rule_type = $1 AND is_active
	`
	return r.getOne(ctx, "active:"+ruleType, query, ruleType)
}

// List returns recipes newest first. An empty ruleType lists every type.
func (r *RecipeRepository) List(ctx context.Context, ruleType string, limit, offset int) ([]*recipe.Recipe, error) {
	query := `
		SELECT ` + recipeColumns + `
		FROM payout_recipes
		WHERE $1 = '' OR rule_type = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, ruleType, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list recipes", "rule_type", ruleType, "error", err)
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	var recipes []*recipe.Recipe
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			r.logger.Error("Failed to scan recipe", "error", err)
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		recipes = append(recipes, rec)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over recipes", "error", err)
		return nil, fmt.Errorf("error iterating over recipes: %w", err)
	}
	return recipes, nil
}

// Activate makes version the only active recipe of its rule type in a
// single statement.
func (r *RecipeRepository) Activate(ctx context.Context, version string) (*recipe.Recipe, error) {
	query := `
		UPDATE payout_recipes
		SET is_active = (version = $1),
			activated_at = CASE WHEN version = $1 THEN $2 ELSE activated_at END
		WHERE rule_type = (SELECT rule_type FROM payout_recipes WHERE version = $1)
	`

	result, err := r.querier.Exec(ctx, query, version, time.Now().UTC())
	if err != nil {
		r.logger.Error("Failed to activate recipe", "version", version, "error", err)
		return nil, fmt.Errorf("failed to activate recipe: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, recipe.ErrRecipeNotFound{Version: version}
	}

	r.logger.Info("Recipe activated", "version", version)
	return r.GetByVersion(ctx, version)
}

func (r *RecipeRepository) getOne(ctx context.Context, label, query string, args ...interface{}) (*recipe.Recipe, error) {
	rec, err := scanRecipe(r.querier.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, recipe.ErrRecipeNotFound{Version: label}
		}
		r.logger.Error("Failed to get recipe", "recipe", label, "error", err)
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return rec, nil
}

func scanRecipe(row rowScanner) (*recipe.Recipe, error) {
	var (
		rec     recipe.Recipe
		formula []byte
	)
	err := row.Scan(
		&rec.ID,
		&rec.Version,
		&rec.RuleType,
		&formula,
		&rec.Description,
		&rec.IsActive,
		&rec.CreatedBy,
		&rec.CreatedAt,
		&rec.ActivatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(formula, &rec.Formula); err != nil {
		return nil, fmt.Errorf("failed to decode recipe formula: %w", err)
	}
	return &rec, nil
}
