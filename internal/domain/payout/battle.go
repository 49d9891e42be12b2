package payout

import "fmt"

// BattleInput closes a live-show battle between two artists.
type BattleInput struct {
	PotCents          int64
	WinnerArtistID    string
	LoserArtistID     string
	WinnerInvestors   []Stake
	LoserInvestors    []string
	PlatformAccountID string
	MinorUnit         int64
}

// CalculateBattlePayout pays the battle pot 40/30/20/10: winner artist,
// winner investors pro rata by stake, loser artist, loser investors equally.
// Missing participants leave their pool to the platform.
func CalculateBattlePayout(in BattleInput) (*Calculation, error) {
	if in.PotCents < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPot, in.PotCents)
	}
	unit, err := resolveUnit(in.MinorUnit)
	if err != nil {
		return nil, err
	}
	pools, err := BattleSplit.Apply(in.PotCents)
	if err != nil {
		return nil, err
	}

	var lines []Entry
	if in.WinnerArtistID != "" {
		lines = append(lines, artistEntry(in.WinnerArtistID, RoleArtistWinner, pools[PoolWinnerArtist]))
	}
	winners, err := AllocateProRata(pools[PoolWinnerInvestors], in.WinnerInvestors, RoleInvestorWinner)
	if err != nil {
		return nil, err
	}
	lines = append(lines, winners...)
	if in.LoserArtistID != "" {
		lines = append(lines, artistEntry(in.LoserArtistID, RoleArtistLoser, pools[PoolLoserArtist]))
	}
	lines = append(lines, AllocateEquipartition(pools[PoolLoserInvestors], in.LoserInvestors, RoleInvestorLoser, unit)...)

	final, residual, err := Reconcile(lines, in.PotCents, 0, in.PlatformAccountID, unit)
	if err != nil {
		return nil, err
	}
	return &Calculation{
		RuleVersion:         RuleBattle,
		Mode:                ModeBattle,
		NProjects:           len(lines),
		K:                   len(winners),
		TotalAmountCents:    in.PotCents,
		Payouts:             final,
		PlatformAmountCents: platformAmount(final),
		ResidualCents:       residual,
		Breakdown:           breakdownOf(final, pools),
	}, nil
}

func artistEntry(id string, role Role, pool int64) Entry {
	return Entry{
		AccountID:      id,
		Role:           role,
		AmountCents:    pool,
		AmountEurFloor: pool,
		Note:           fmt.Sprintf("%s share of battle pot", role),
	}
}
