package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/crowdfund-revenue-ledger/internal/api_gateway/service"
	"github.com/crowdfund-revenue-ledger/internal/domain/recipe"
)

// RecipeHandler handles HTTP requests for payout recipe management
type RecipeHandler struct {
	recipeService service.RecipeService
	logger        *slog.Logger
}

// NewRecipeHandler creates a new recipe handler
func NewRecipeHandler(logger *slog.Logger, recipeService service.RecipeService) *RecipeHandler {
	return &RecipeHandler{
		recipeService: recipeService,
		logger:        logger,
	}
}

// Create stores a new inactive recipe version
func (h *RecipeHandler) Create(c *gin.Context) {
	var req RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	rec, err := h.recipeService.CreateRecipe(c.Request.Context(), recipe.Formulated{
		Version:     req.Version,
		RuleType:    req.RuleType,
		Formula:     req.Formula,
		Description: req.Description,
	}, req.Actor)
	switch {
	case errors.Is(err, recipe.ErrInvalidRecipe):
		RespondUnprocessable(c, err.Error())
	case errors.Is(err, recipe.ErrDuplicateVersion{}):
		RespondConflict(c, err.Error())
	case err != nil:
		h.logger.Error("Failed to create recipe", "version", req.Version, "error", err)
		RespondInternalError(c)
	default:
		RespondCreated(c, rec)
	}
}

// Activate makes a version the active recipe of its rule type
func (h *RecipeHandler) Activate(c *gin.Context) {
	version := c.Param("version")

	var req ActorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	rec, err := h.recipeService.ActivateRecipe(c.Request.Context(), version, req.Actor)
	if err != nil {
		if errors.Is(err, recipe.ErrRecipeNotFound{}) {
			RespondNotFound(c, "Recipe not found")
			return
		}
		h.logger.Error("Failed to activate recipe", "version", version, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, rec)
}

// List returns recipes newest first, optionally filtered by ?rule_type=
func (h *RecipeHandler) List(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	recipes, err := h.recipeService.ListRecipes(c.Request.Context(), c.Query("rule_type"), pagination.Page, pagination.PerPage)
	if err != nil {
		h.logger.Error("Failed to list recipes", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, recipes)
}

// GetActive returns the active recipe of a rule type
func (h *RecipeHandler) GetActive(c *gin.Context) {
	ruleType := c.Param("rule_type")

	rec, err := h.recipeService.GetActiveRecipe(c.Request.Context(), ruleType)
	if err != nil {
		RespondInternalError(c)
		return
	}
	if rec == nil {
		RespondNotFound(c, "No active recipe for rule type "+ruleType)
		return
	}

	RespondOK(c, rec)
}

// Seed stores the builtin recipes that are missing
func (h *RecipeHandler) Seed(c *gin.Context) {
	var req ActorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	created, err := h.recipeService.SeedBuiltin(c.Request.Context(), req.Actor)
	if err != nil {
		h.logger.Error("Failed to seed recipes", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, gin.H{"created": created})
}
