package payout

import "fmt"

// BasisPointsTotal is the basis point value of 100%.
const BasisPointsTotal = 10000

// PoolName identifies a named share of a pot.
type PoolName string

const (
	PoolInvestorsTop    PoolName = "investors_top"
	PoolCreatorsTop     PoolName = "creators_top"
	PoolInvestorsSmall  PoolName = "investors_small"
	PoolPlatform        PoolName = "platform"
	PoolAuthors         PoolName = "authors"
	PoolReaders         PoolName = "readers"
	PoolWinnerArtist    PoolName = "winner_artist"
	PoolWinnerInvestors PoolName = "winner_investors"
	PoolLoserArtist     PoolName = "loser_artist"
	PoolLoserInvestors  PoolName = "loser_investors"
	PoolSeller          PoolName = "seller"
)

// PoolShare assigns basis points of the pot to a pool.
type PoolShare struct {
	Pool        PoolName `json:"pool" bson:"pool"`
	BasisPoints int64    `json:"basis_points" bson:"basis_points"`
}

// Split is the pool layout of one asset class.
type Split struct {
	Name   string
	Shares []PoolShare
}

// PoolSet holds the floored cents of each pool of a split.
type PoolSet map[PoolName]int64

// Total sums every pool of the set.
func (p PoolSet) Total() int64 {
	var total int64
	for _, v := range p {
		total += v
	}
	return total
}

// Built-in splits per asset class.
var (
	CategorySplit = mustSplit("films_videos_docs",
		PoolShare{PoolInvestorsTop, 4000},
		PoolShare{PoolCreatorsTop, 3000},
		PoolShare{PoolInvestorsSmall, 700},
		PoolShare{PoolPlatform, 2300},
	)
	BooksMonthlySplit = mustSplit("books_monthly",
		PoolShare{PoolAuthors, 6000},
		PoolShare{PoolReaders, 4000},
	)
	BattleSplit = mustSplit("battle",
		PoolShare{PoolWinnerArtist, 4000},
		PoolShare{PoolWinnerInvestors, 3000},
		PoolShare{PoolLoserArtist, 2000},
		PoolShare{PoolLoserInvestors, 1000},
	)
	ArticleSaleSplit = mustSplit("info_article_sale",
		PoolShare{PoolSeller, 7000},
		PoolShare{PoolPlatform, 3000},
	)
	BookSaleSplit = mustSplit("book_sale",
		PoolShare{PoolSeller, 7000},
		PoolShare{PoolPlatform, 3000},
	)
)

// NewSplit validates shares and builds a Split. Shares must have unique
// non-empty pool names, non-negative basis points and total exactly 10000.
func NewSplit(name string, shares ...PoolShare) (Split, error) {
	if len(shares) == 0 {
		return Split{}, fmt.Errorf("%w: %s has no pools", ErrInvalidSplit, name)
	}
	seen := make(map[PoolName]struct{}, len(shares))
	var total int64
	for _, s := range shares {
		if s.Pool == "" {
			return Split{}, fmt.Errorf("%w: %s has an unnamed pool", ErrInvalidSplit, name)
		}
		if _, dup := seen[s.Pool]; dup {
			return Split{}, fmt.Errorf("%w: %s lists pool %s twice", ErrInvalidSplit, name, s.Pool)
		}
		if s.BasisPoints < 0 {
			return Split{}, fmt.Errorf("%w: %s pool %s has negative share", ErrInvalidSplit, name, s.Pool)
		}
		seen[s.Pool] = struct{}{}
		total += s.BasisPoints
	}
	if total != BasisPointsTotal {
		return Split{}, fmt.Errorf("%w: %s totals %d basis points, expected %d", ErrInvalidSplit, name, total, BasisPointsTotal)
	}
	out := make([]PoolShare, len(shares))
	copy(out, shares)
	return Split{Name: name, Shares: out}, nil
}

func mustSplit(name string, shares ...PoolShare) Split {
	s, err := NewSplit(name, shares...)
	if err != nil {
		panic(err)
	}
	return s
}

// Has reports whether the split defines pool.
func (s Split) Has(pool PoolName) bool {
	for _, sh := range s.Shares {
		if sh.Pool == pool {
			return true
		}
	}
	return false
}

// Apply floors every pool to floor(pot * bps / 10000). The sum may fall a few
// cents short of the pot; reconciliation hands that to the platform.
func (s Split) Apply(potCents int64) (PoolSet, error) {
	if potCents < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPot, potCents)
	}
	set := make(PoolSet, len(s.Shares))
	for _, sh := range s.Shares {
		set[sh.Pool] = shareOf(potCents, sh.BasisPoints)
	}
	return set, nil
}

// shareOf computes floor(amount * bps / 10000) without overflowing for any
// realistic pot.
func shareOf(amount, bps int64) int64 {
	whole := amount / BasisPointsTotal
	rest := amount % BasisPointsTotal
	return whole*bps + rest*bps/BasisPointsTotal
}
