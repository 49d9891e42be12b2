package payout

import (
	"fmt"
	"math"
)

// DefaultAlpha is the Zipf exponent used when none is supplied.
const DefaultAlpha = 1.0

// Fixed baremes for FixedTop10 mode, expressed as fractions of the whole pot.
var (
	fixedInvestorsTable = [FixedCohortSize]float64{
		0.1366, 0.0683, 0.0455, 0.0341, 0.0273,
		0.0228, 0.0195, 0.0171, 0.0152, 0.0137,
	}
	fixedCreatorsTable = [FixedCohortSize]float64{
		0.1024, 0.0512, 0.0341, 0.0256, 0.0205,
		0.0171, 0.0146, 0.0128, 0.0114, 0.0102,
	}
)

const fixedTableTolerance = 0.0005

// Integer basis point forms of the fixed tables, derived once at init.
var (
	fixedInvestorsBps [FixedCohortSize]int64
	fixedCreatorsBps  [FixedCohortSize]int64
)

func init() {
	if err := validateFixedTable("investors", fixedInvestorsTable, 0.40); err != nil {
		panic(err)
	}
	if err := validateFixedTable("creators", fixedCreatorsTable, 0.30); err != nil {
		panic(err)
	}
	fixedInvestorsBps = toBasisPoints(fixedInvestorsTable)
	fixedCreatorsBps = toBasisPoints(fixedCreatorsTable)
}

func validateFixedTable(name string, table [FixedCohortSize]float64, want float64) error {
	var sum float64
	for i, v := range table {
		if v <= 0 {
			return fmt.Errorf("fixed %s table: rank %d has non-positive share %v", name, i+1, v)
		}
		if i > 0 && v > table[i-1] {
			return fmt.Errorf("fixed %s table: rank %d share %v exceeds rank %d share %v", name, i+1, v, i, table[i-1])
		}
		sum += v
	}
	if math.Abs(sum-want) > fixedTableTolerance {
		return fmt.Errorf("fixed %s table sums to %.4f, expected %.2f", name, sum, want)
	}
	return nil
}

func toBasisPoints(table [FixedCohortSize]float64) [FixedCohortSize]int64 {
	var out [FixedCohortSize]int64
	for i, v := range table {
		out[i] = int64(math.Round(v * BasisPointsTotal))
	}
	return out
}

// FixedInvestorsBasisPoints returns a copy of the investors table in basis points.
func FixedInvestorsBasisPoints() []int64 {
	out := fixedInvestorsBps
	return out[:]
}

// FixedCreatorsBasisPoints returns a copy of the creators table in basis points.
func FixedCreatorsBasisPoints() []int64 {
	out := fixedCreatorsBps
	return out[:]
}

// ZipfWeights returns k normalized power-law weights:
// w[i] = (1/(i+1)^alpha) / sum_j (1/(j+1)^alpha).
func ZipfWeights(k int, alpha float64) ([]float64, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCohort, k)
	}
	if alpha <= 0 || math.IsNaN(alpha) || math.IsInf(alpha, 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidAlpha, alpha)
	}
	if k == 1 {
		return []float64{1.0}, nil
	}

	raw := make([]float64, k)
	var sum float64
	for i := range raw {
		raw[i] = 1 / math.Pow(float64(i+1), alpha)
		sum += raw[i]
	}
	for i := range raw {
		raw[i] /= sum
	}
	return raw, nil
}
