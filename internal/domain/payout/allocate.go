package payout

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Stake is an account's contribution used for pro-rata allocation.
type Stake struct {
	AccountID   string `json:"account_id"`
	AmountCents int64  `json:"amount_cents"`
}

// AllocateRanked maps a pool onto ranked accounts with the given weights.
// Account i receives floor(weights[i] * pool). The product is taken exactly
// in decimal so float error never reaches a payable amount.
func AllocateRanked(list string, pool int64, weights []float64, accounts []string, role Role) ([]Entry, error) {
	if err := validateRanked(list, len(weights), accounts); err != nil {
		return nil, err
	}

	poolDec := decimal.NewFromInt(pool)
	entries := make([]Entry, len(accounts))
	for i, acc := range accounts {
		amount := decimal.NewFromFloat(weights[i]).Mul(poolDec).Floor().IntPart()
		entries[i] = Entry{
			AccountID:      acc,
			Role:           role,
			AmountCents:    amount,
			AmountEurFloor: amount,
			Rank:           rankPtr(i + 1),
			Note:           fmt.Sprintf("rank %d of %d, zipf weight %.6f of %d cents", i+1, len(accounts), weights[i], pool),
		}
	}
	return entries, nil
}

// AllocateFixed maps a basis point table onto ranked accounts. Each share is
// taken from the whole pot, floor(pot * bps / 10000).
func AllocateFixed(list string, potCents int64, table []int64, accounts []string, role Role) ([]Entry, error) {
	if err := validateRanked(list, len(table), accounts); err != nil {
		return nil, err
	}

	entries := make([]Entry, len(accounts))
	for i, acc := range accounts {
		amount := shareOf(potCents, table[i])
		entries[i] = Entry{
			AccountID:      acc,
			Role:           role,
			AmountCents:    amount,
			AmountEurFloor: amount,
			Rank:           rankPtr(i + 1),
			Note:           fmt.Sprintf("rank %d fixed share %s%% of pot", i+1, decimal.New(table[i], -2).StringFixed(2)),
		}
	}
	return entries, nil
}

// AllocateEquipartition splits pool equally among distinct accounts, keeping
// first-occurrence order. When the floored equal share is below one unit,
// the first floor(pool/unit) accounts receive exactly one unit each and the
// rest receive nothing.
func AllocateEquipartition(pool int64, accounts []string, role Role, unit int64) []Entry {
	distinct := dedupe(accounts)
	if len(distinct) == 0 {
		return nil
	}

	count := int64(len(distinct))
	per := pool / count
	entries := make([]Entry, len(distinct))

	if EuroFloor(per, unit) >= unit {
		for i, acc := range distinct {
			entries[i] = Entry{
				AccountID:      acc,
				Role:           role,
				AmountCents:    per,
				AmountEurFloor: per,
				Note:           fmt.Sprintf("equal share of %d cents among %d accounts", pool, count),
			}
		}
		return entries
	}

	paid := pool / unit
	for i, acc := range distinct {
		e := Entry{
			AccountID:   acc,
			Role:        role,
			AmountCents: per,
		}
		if int64(i) < paid {
			e.AmountEurFloor = unit
			e.Note = fmt.Sprintf("round-robin: one unit, equal share %d cents is below one unit", per)
		} else {
			e.Note = fmt.Sprintf("round-robin: pool exhausted after %d accounts", paid)
		}
		entries[i] = e
	}
	return entries
}

// AllocateProRata splits pool in proportion to stakes. Repeated accounts are
// merged by summing their stakes. Each share is floor(pool * stake / total).
func AllocateProRata(pool int64, stakes []Stake, role Role) ([]Entry, error) {
	order := make([]string, 0, len(stakes))
	merged := make(map[string]int64, len(stakes))
	var total int64
	for _, s := range stakes {
		if s.AmountCents <= 0 {
			return nil, fmt.Errorf("%w: account %s staked %d", ErrInvalidStake, s.AccountID, s.AmountCents)
		}
		if _, ok := merged[s.AccountID]; !ok {
			order = append(order, s.AccountID)
		}
		merged[s.AccountID] += s.AmountCents
		total += s.AmountCents
	}
	if total == 0 {
		return nil, nil
	}

	poolDec := decimal.NewFromInt(pool)
	totalDec := decimal.NewFromInt(total)
	entries := make([]Entry, len(order))
	for i, acc := range order {
		stake := merged[acc]
		q, _ := poolDec.Mul(decimal.NewFromInt(stake)).QuoRem(totalDec, 0)
		amount := q.IntPart()
		entries[i] = Entry{
			AccountID:      acc,
			Role:           role,
			AmountCents:    amount,
			AmountEurFloor: amount,
			Note:           fmt.Sprintf("pro-rata stake %d of %d cents", stake, total),
		}
	}
	return entries, nil
}

func validateRanked(list string, k int, accounts []string) error {
	if len(accounts) != k {
		return CohortSizeMismatchError{List: list, Expected: k, Got: len(accounts)}
	}
	if dup, ok := firstDuplicate(accounts); ok {
		return DuplicateAccountError{List: list, AccountID: dup}
	}
	return nil
}

func firstDuplicate(accounts []string) (string, bool) {
	seen := make(map[string]struct{}, len(accounts))
	for _, acc := range accounts {
		if _, ok := seen[acc]; ok {
			return acc, true
		}
		seen[acc] = struct{}{}
	}
	return "", false
}

func dedupe(accounts []string) []string {
	seen := make(map[string]struct{}, len(accounts))
	out := make([]string, 0, len(accounts))
	for _, acc := range accounts {
		if _, ok := seen[acc]; ok {
			continue
		}
		seen[acc] = struct{}{}
		out = append(out, acc)
	}
	return out
}
