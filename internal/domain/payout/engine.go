package payout

import (
	"errors"
	"fmt"
	"math"
)

// CategoryInput is everything a category closure needs. Rankings are
// produced upstream and trusted apart from structural checks.
type CategoryInput struct {
	PotCents          int64
	InvestorsTopK     []string
	CreatorsTopK      []string
	InvestorsSmall    []string
	PlatformAccountID string
	NProjects         int
	// Alpha is the Zipf exponent for TopPercent mode; nil means DefaultAlpha.
	Alpha *float64
	// MinorUnit is the payable rounding unit; 0 means DefaultMinorUnit.
	MinorUnit int64
}

// CalculateFixedOrAdaptivePayout distributes a category pot 40/30/7/23
// across top investors, top creators, small investors and the platform.
func CalculateFixedOrAdaptivePayout(in CategoryInput) (*Calculation, error) {
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
	mode, err := SelectMode(in.NProjects)
	if err != nil {
		return nil, err
	}
	k := ComputeK(in.NProjects, mode)

	pools, err := CategorySplit.Apply(in.PotCents)
	if err != nil {
		return nil, err
	}

	var (
		investors, creators []Entry
		alpha               *float64
	)
	if mode == ModeFixedTop10 {
		investors, err = AllocateFixed("investorsTopK", in.PotCents, fixedInvestorsBps[:], in.InvestorsTopK, RoleInvestorTop)
		if err != nil {
			return nil, err
		}
		creators, err = AllocateFixed("creatorsTopK", in.PotCents, fixedCreatorsBps[:], in.CreatorsTopK, RoleCreatorTop)
		if err != nil {
			return nil, err
		}
	} else {
		a := alphaOrDefault(in.Alpha)
		alpha = &a
		weights, err := ZipfWeights(k, a)
		if err != nil {
			return nil, err
		}
		investors, err = AllocateRanked("investorsTopK", pools[PoolInvestorsTop], weights, in.InvestorsTopK, RoleInvestorTop)
		if err != nil {
			return nil, err
		}
		creators, err = AllocateRanked("creatorsTopK", pools[PoolCreatorsTop], weights, in.CreatorsTopK, RoleCreatorTop)
		if err != nil {
			return nil, err
		}
	}
	small := AllocateEquipartition(pools[PoolInvestorsSmall], in.InvestorsSmall, RoleInvestorSmall, unit)

	lines := make([]Entry, 0, len(investors)+len(creators)+len(small))
	lines = append(lines, investors...)
	lines = append(lines, creators...)
	lines = append(lines, small...)

	final, residual, err := Reconcile(lines, in.PotCents, pools[PoolPlatform], in.PlatformAccountID, unit)
	if err != nil {
		return nil, err
	}

	calc := &Calculation{
		RuleVersion:      CategoryRuleVersion(mode, alphaOrDefault(alpha)),
		Mode:             mode,
		NProjects:        in.NProjects,
		K:                k,
		TotalAmountCents: in.PotCents,
		Payouts:          final,
		ResidualCents:    residual,
		Alpha:            alpha,
	}
	calc.PlatformAmountCents = platformAmount(final)
	calc.Breakdown = breakdownOf(final, pools)
	return calc, nil
}

// ValidateCategoryInput lists every structural problem of in instead of
// stopping at the first one. An empty result means the input is computable.
func ValidateCategoryInput(in CategoryInput) []string {
	var problems []string
	if in.PotCents < 0 {
		problems = append(problems, fmt.Sprintf("pot must be non-negative, got %d", in.PotCents))
	}
	if in.PlatformAccountID == "" {
		problems = append(problems, "platform account id is required")
	}
	if in.MinorUnit < 0 {
		problems = append(problems, fmt.Sprintf("minor unit must be positive, got %d", in.MinorUnit))
	}
	if in.Alpha != nil {
		if a := *in.Alpha; a <= 0 || math.IsNaN(a) || math.IsInf(a, 0) {
			problems = append(problems, fmt.Sprintf("alpha must be a positive finite number, got %v", a))
		}
	}

	mode, err := SelectMode(in.NProjects)
	if err != nil {
		return append(problems, err.Error())
	}
	k := ComputeK(in.NProjects, mode)
	for _, list := range []struct {
		name     string
		accounts []string
	}{
		{"investorsTopK", in.InvestorsTopK},
		{"creatorsTopK", in.CreatorsTopK},
	} {
		err := validateRanked(list.name, k, list.accounts)
		if err == nil {
			continue
		}
		problems = append(problems, err.Error())
		// A wrong length hides duplicates in validateRanked; report them too.
		if errors.Is(err, ErrCohortSizeMismatch) {
			if dup, ok := firstDuplicate(list.accounts); ok {
				problems = append(problems, DuplicateAccountError{List: list.name, AccountID: dup}.Error())
			}
		}
	}
	return problems
}

func alphaOrDefault(alpha *float64) float64 {
	if alpha == nil {
		return DefaultAlpha
	}
	return *alpha
}

func platformAmount(entries []Entry) int64 {
	for _, e := range entries {
		if e.Role == RolePlatform {
			return e.AmountEurFloor
		}
	}
	return 0
}

func breakdownOf(entries []Entry, pools PoolSet) Breakdown {
	b := Breakdown{Pools: pools}
	for _, e := range entries {
		switch e.Role {
		case RoleInvestorTop:
			b.InvestorsTopTotal += e.AmountEurFloor
		case RoleCreatorTop:
			b.CreatorsTopTotal += e.AmountEurFloor
		case RoleInvestorSmall:
			b.InvestorsSmallTotal += e.AmountEurFloor
		case RolePlatform:
			b.PlatformTotal += e.AmountEurFloor
		}
	}
	return b
}
