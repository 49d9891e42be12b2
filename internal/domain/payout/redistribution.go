package payout

import "fmt"

// Rule versions of the non-category closures.
const (
	RuleBooksMonthly  = "books_pot_monthly_60_40_v1"
	RulePot24h        = "pot24h_equipartition_v1"
	RuleArticleSale   = "infoarticle_30_70_v1"
	RuleBookSale      = "books_sale_70_30_v1"
	RuleBattle        = "battle_40_30_20_10_v1"
	redistributionFmt = "%s_redistribution_v1"
)

// RedistributionInput drives a generic two-role redistribution. The split
// must hold exactly two non-platform pools: the first pays TopAccounts, the
// second SecondaryAccounts. A platform pool, when present, is the platform base.
type RedistributionInput struct {
	PotCents          int64
	TopAccounts       []string
	SecondaryAccounts []string
	Split             Split
	TopRole           Role
	SecondaryRole     Role
	// Alpha switches the top role to Zipf weights; nil means equal shares.
	Alpha             *float64
	PlatformAccountID string
	MinorUnit         int64
	RuleVersion       string
}

// CalculatePotRedistribution pays the top pool to ranked accounts and the
// secondary pool as an equipartition. A role without accounts leaves its
// pool to the platform through the residual.
func CalculatePotRedistribution(in RedistributionInput) (*Calculation, error) {
	if in.PotCents < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPot, in.PotCents)
	}
	if in.PlatformAccountID == "" {
		return nil, ErrMissingPlatform
	}
	unit, err := resolveUnit(in.MinorUnit)
	if err != nil {
		return nil, err
	}
	topPool, secondaryPool, err := rolePools(in.Split)
	if err != nil {
		return nil, err
	}
	pools, err := in.Split.Apply(in.PotCents)
	if err != nil {
		return nil, err
	}

	var (
		top   []Entry
		alpha *float64
	)
	if len(in.TopAccounts) > 0 {
		if in.Alpha != nil {
			a := *in.Alpha
			alpha = &a
			weights, err := ZipfWeights(len(in.TopAccounts), *in.Alpha)
			if err != nil {
				return nil, err
			}
			top, err = AllocateRanked("topAccounts", pools[topPool], weights, in.TopAccounts, in.TopRole)
			if err != nil {
				return nil, err
			}
		} else {
			if dup, ok := firstDuplicate(in.TopAccounts); ok {
				return nil, DuplicateAccountError{List: "topAccounts", AccountID: dup}
			}
			top = AllocateEquipartition(pools[topPool], in.TopAccounts, in.TopRole, unit)
			for i := range top {
				top[i].Rank = rankPtr(i + 1)
			}
		}
	}
	secondary := AllocateEquipartition(pools[secondaryPool], in.SecondaryAccounts, in.SecondaryRole, unit)

	lines := append(append(make([]Entry, 0, len(top)+len(secondary)), top...), secondary...)
	final, residual, err := Reconcile(lines, in.PotCents, pools[PoolPlatform], in.PlatformAccountID, unit)
	if err != nil {
		return nil, err
	}

	rule := in.RuleVersion
	if rule == "" {
		rule = fmt.Sprintf(redistributionFmt, in.Split.Name)
	}
	// Zipf and equal shares pay differently under one split
	if alpha != nil {
		rule += "_alpha" + FormatAlpha(*alpha)
	}
	return &Calculation{
		RuleVersion:         rule,
		Mode:                ModeRedistribution,
		NProjects:           len(in.TopAccounts) + len(secondary),
		K:                   len(in.TopAccounts),
		TotalAmountCents:    in.PotCents,
		Payouts:             final,
		PlatformAmountCents: platformAmount(final),
		ResidualCents:       residual,
		Breakdown:           breakdownOf(final, pools),
		Alpha:               alpha,
	}, nil
}

func rolePools(s Split) (PoolName, PoolName, error) {
	var roles []PoolName
	for _, sh := range s.Shares {
		if sh.Pool != PoolPlatform {
			roles = append(roles, sh.Pool)
		}
	}
	if len(roles) != 2 {
		return "", "", fmt.Errorf("%w: %s must have exactly two role pools, has %d", ErrInvalidSplit, s.Name, len(roles))
	}
	return roles[0], roles[1], nil
}

// BooksMonthlyInput closes a monthly book pot.
type BooksMonthlyInput struct {
	PotCents          int64
	TopAuthors        []string
	WinningReaders    []string
	PlatformAccountID string
	MinorUnit         int64
}

// CalculateBooksMonthlyPot pays 60% equally to the top authors and 40%
// equally to the winning readers.
func CalculateBooksMonthlyPot(in BooksMonthlyInput) (*Calculation, error) {
	return CalculatePotRedistribution(RedistributionInput{
		PotCents:          in.PotCents,
		TopAccounts:       in.TopAuthors,
		SecondaryAccounts: in.WinningReaders,
		Split:             BooksMonthlySplit,
		TopRole:           RoleAuthorTop,
		SecondaryRole:     RoleReaderWinner,
		PlatformAccountID: in.PlatformAccountID,
		MinorUnit:         in.MinorUnit,
		RuleVersion:       RuleBooksMonthly,
	})
}

// EquipartitionInput closes a pot shared equally among its winners.
type EquipartitionInput struct {
	PotCents          int64
	Winners           []string
	PlatformAccountID string
	MinorUnit         int64
}

// CalculateEquipartitionPot shares the whole pot equally among the winners.
// With no winners the platform keeps the pot.
func CalculateEquipartitionPot(in EquipartitionInput) (*Calculation, error) {
	if in.PotCents < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPot, in.PotCents)
	}
	unit, err := resolveUnit(in.MinorUnit)
	if err != nil {
		return nil, err
	}
	winners := AllocateEquipartition(in.PotCents, in.Winners, RolePotWinner, unit)
	final, residual, err := Reconcile(winners, in.PotCents, 0, in.PlatformAccountID, unit)
	if err != nil {
		return nil, err
	}
	return &Calculation{
		RuleVersion:         RulePot24h,
		Mode:                ModeEquipartition,
		NProjects:           len(winners),
		K:                   len(winners),
		TotalAmountCents:    in.PotCents,
		Payouts:             final,
		PlatformAmountCents: platformAmount(final),
		ResidualCents:       residual,
		Breakdown:           breakdownOf(final, PoolSet{PoolPotWinners: in.PotCents}),
	}, nil
}

// PoolPotWinners is the single pool of an equipartition pot.
const PoolPotWinners PoolName = "pot_winners"

// SaleKind selects the split of a unit sale.
type SaleKind string

const (
	SaleArticle SaleKind = "article"
	SaleBook    SaleKind = "book"
)

// SaleInput is a single sale to split between seller and platform.
type SaleInput struct {
	Kind              SaleKind
	GrossCents        int64
	SellerAccountID   string
	PlatformAccountID string
}

// CalculateSale splits a sale 70/30 between seller and platform. Sale lines
// are settled in exact cents, so the seller share is not floored to a unit.
func CalculateSale(in SaleInput) (*Calculation, error) {
	var split Split
	var rule string
	switch in.Kind {
	case SaleArticle:
		split, rule = ArticleSaleSplit, RuleArticleSale
	case SaleBook:
		split, rule = BookSaleSplit, RuleBookSale
	default:
		return nil, fmt.Errorf("%w: unknown sale kind %q", ErrInvalidSplit, in.Kind)
	}
	if in.GrossCents < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPot, in.GrossCents)
	}
	pools, err := split.Apply(in.GrossCents)
	if err != nil {
		return nil, err
	}

	var lines []Entry
	if in.SellerAccountID != "" {
		lines = append(lines, Entry{
			AccountID:      in.SellerAccountID,
			Role:           RoleSeller,
			AmountCents:    pools[PoolSeller],
			AmountEurFloor: pools[PoolSeller],
			Note:           fmt.Sprintf("seller share of %d cents sale", in.GrossCents),
		})
	}
	final, residual, err := Reconcile(lines, in.GrossCents, pools[PoolPlatform], in.PlatformAccountID, 1)
	if err != nil {
		return nil, err
	}
	return &Calculation{
		RuleVersion:         rule,
		Mode:                ModeSale,
		NProjects:           len(lines),
		K:                   len(lines),
		TotalAmountCents:    in.GrossCents,
		Payouts:             final,
		PlatformAmountCents: platformAmount(final),
		ResidualCents:       residual,
		Breakdown:           breakdownOf(final, pools),
	}, nil
}
