// Package payout implements the revenue distribution engine: cohort
// selection, rank weights, pool splitting, allocation and euro-floor
// reconciliation. Every function is pure and safe for concurrent use.
package payout

// Mode identifies how a calculation sized and weighted its ranked cohorts.
type Mode string

const (
	ModeFixedTop10     Mode = "FixedTop10"
	ModeTopPercent     Mode = "TopPercent"
	ModeRedistribution Mode = "Redistribution"
	ModeEquipartition  Mode = "Equipartition"
	ModeBattle         Mode = "Battle"
	ModeSale           Mode = "Sale"
)

// ruleTag is the short form used inside rule version strings.
func (m Mode) ruleTag() string {
	switch m {
	case ModeFixedTop10:
		return "top10"
	case ModeTopPercent:
		return "top10pct"
	default:
		return string(m)
	}
}

// Role tags the economic role of a payout line.
type Role string

const (
	RoleInvestorTop    Role = "investor_top"
	RoleCreatorTop     Role = "creator_top"
	RoleInvestorSmall  Role = "investor_small"
	RolePlatform       Role = "platform"
	RoleAuthorTop      Role = "author_top"
	RoleReaderWinner   Role = "reader_winner"
	RolePotWinner      Role = "pot_winner"
	RoleArtistWinner   Role = "artist_winner"
	RoleArtistLoser    Role = "artist_loser"
	RoleInvestorWinner Role = "investor_winner"
	RoleInvestorLoser  Role = "investor_loser"
	RoleSeller         Role = "seller"
)

// Entry is one line of a calculation. AmountCents is the pre-rounding share,
// AmountEurFloor the amount actually payable.
type Entry struct {
	AccountID      string `json:"account_id" bson:"account_id"`
	Role           Role   `json:"role" bson:"role"`
	AmountCents    int64  `json:"amount_cents" bson:"amount_cents"`
	AmountEurFloor int64  `json:"amount_eur_floor" bson:"amount_eur_floor"`
	Rank           *int   `json:"rank,omitempty" bson:"rank,omitempty"`
	Note           string `json:"note" bson:"note"`
}

// Breakdown summarizes the pools of a calculation. The category totals are
// filled for category closures; Pools carries the floored split for every kind.
type Breakdown struct {
	InvestorsTopTotal   int64              `json:"investors_top_total" bson:"investors_top_total"`
	CreatorsTopTotal    int64              `json:"creators_top_total" bson:"creators_top_total"`
	InvestorsSmallTotal int64              `json:"investors_small_total" bson:"investors_small_total"`
	PlatformTotal       int64              `json:"platform_total" bson:"platform_total"`
	Pools               map[PoolName]int64 `json:"pools,omitempty" bson:"pools,omitempty"`
}

// Calculation is the immutable result of one closure computation.
type Calculation struct {
	RuleVersion         string    `json:"rule_version" bson:"rule_version"`
	Mode                Mode      `json:"mode" bson:"mode"`
	NProjects           int       `json:"n_projects" bson:"n_projects"`
	K                   int       `json:"k" bson:"k"`
	TotalAmountCents    int64     `json:"total_amount_cents" bson:"total_amount_cents"`
	Payouts             []Entry   `json:"payouts" bson:"payouts"`
	PlatformAmountCents int64     `json:"platform_amount_cents" bson:"platform_amount_cents"`
	ResidualCents       int64     `json:"residual_cents" bson:"residual_cents"`
	Breakdown           Breakdown `json:"breakdown" bson:"breakdown"`
	// Alpha is the Zipf exponent of the ranked pools; nil when none was used.
	Alpha *float64 `json:"alpha,omitempty" bson:"alpha,omitempty"`
}

// PayableTotal sums AmountEurFloor over every line, platform included.
func (c *Calculation) PayableTotal() int64 {
	var total int64
	for _, p := range c.Payouts {
		total += p.AmountEurFloor
	}
	return total
}

// PlatformEntry returns the residual-absorbing platform line.
func (c *Calculation) PlatformEntry() (Entry, bool) {
	for _, p := range c.Payouts {
		if p.Role == RolePlatform {
			return p, true
		}
	}
	return Entry{}, false
}

func rankPtr(i int) *int {
	r := i
	return &r
}
