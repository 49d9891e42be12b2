// Package recipe models versioned payout formulas so that historical
// calculations can be replayed against the exact rule that produced them.
package recipe

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/crowdfund-revenue-ledger/internal/domain/payout"
)

var ErrInvalidRecipe = errors.New("invalid payout recipe")

// WeightFunction names how a ranked pool is spread across its cohort
type WeightFunction string

const (
	WeightFixedTable WeightFunction = "fixed_table"
	WeightZipf       WeightFunction = "zipf"
	WeightEqual      WeightFunction = "equal"
	WeightProRata    WeightFunction = "pro_rata"
)

// Formula is the inspectable definition behind a rule version
type Formula struct {
	Pools          []payout.PoolShare `json:"pools"`
	WeightFunction WeightFunction     `json:"weight_function"`
	Alpha          *float64           `json:"alpha,omitempty"`
}

// Recipe is one immutable version of a formula. Only activation state changes.
type Recipe struct {
	ID          uuid.UUID  `json:"id"`
	Version     string     `json:"version"`
	RuleType    string     `json:"rule_type"`
	Formula     Formula    `json:"formula"`
	Description string     `json:"description"`
	IsActive    bool       `json:"is_active"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
}

// NewRecipe validates a formula and returns an inactive recipe.
func NewRecipe(version, ruleType string, formula Formula, description, createdBy string) (*Recipe, error) {
	if version == "" || ruleType == "" {
		return nil, fmt.Errorf("%w: version and rule type are required", ErrInvalidRecipe)
	}
	switch formula.WeightFunction {
	case WeightFixedTable, WeightZipf, WeightEqual, WeightProRata:
	default:
		return nil, fmt.Errorf("%w: unknown weight function %q", ErrInvalidRecipe, formula.WeightFunction)
	}
	if formula.Alpha != nil {
		if a := *formula.Alpha; a <= 0 || math.IsNaN(a) || math.IsInf(a, 0) {
			return nil, fmt.Errorf("%w: alpha must be a positive finite number", ErrInvalidRecipe)
		}
	}
	if _, err := payout.NewSplit(version, formula.Pools...); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecipe, err)
	}

	return &Recipe{
		ID:          uuid.New(),
		Version:     version,
		RuleType:    ruleType,
		Formula:     formula,
		Description: description,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Split rebuilds the pool split of the recipe.
func (r *Recipe) Split() (payout.Split, error) {
	return payout.NewSplit(r.Version, r.Formula.Pools...)
}

// Builtin returns the recipes of the rules compiled into the engine.
func Builtin() []Formulated {
	alpha := payout.DefaultAlpha
	return []Formulated{
		{"films_videos_docs_top10_40_30_7_23_v1", "category", Formula{payout.CategorySplit.Shares, WeightFixedTable, nil},
			"Category closure with 30 to 120 projects: fixed top-10 tables on the whole pot."},
		{"films_videos_docs_top10pct_40_30_7_23_v1", "category", Formula{payout.CategorySplit.Shares, WeightZipf, &alpha},
			"Category closure above 120 projects: top 10% cohort with zipf weights."},
		{payout.RuleBooksMonthly, "books_monthly", Formula{payout.BooksMonthlySplit.Shares, WeightEqual, nil},
			"Monthly book pot: 60% to top authors, 40% to winning readers."},
		{payout.RulePot24h, "pot24h", Formula{[]payout.PoolShare{{Pool: payout.PoolPotWinners, BasisPoints: payout.BasisPointsTotal}}, WeightEqual, nil},
			"24h pot shared equally among winners."},
		{payout.RuleBattle, "battle", Formula{payout.BattleSplit.Shares, WeightProRata, nil},
			"Live battle: 40/30/20/10 across winner artist, winner investors, loser artist, loser investors."},
		{payout.RuleArticleSale, "article_sale", Formula{payout.ArticleSaleSplit.Shares, WeightEqual, nil},
			"Info article sale: 70% seller, 30% platform."},
		{payout.RuleBookSale, "book_sale", Formula{payout.BookSaleSplit.Shares, WeightEqual, nil},
			"Book sale: 70% seller, 30% platform."},
	}
}

// Formulated is a recipe definition before it is stored.
type Formulated struct {
	Version     string
	RuleType    string
	Formula     Formula
	Description string
}
