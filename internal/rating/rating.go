// Package rating turns a series' review ledger into its like-weighted score.
//
// Every review contributes with weight likes+1, so a review nobody liked still
// counts once. The score is the weighted arithmetic mean of the review
// ratings, computed in exact decimal arithmetic and rounded half away from
// zero to two decimal places. An empty ledger has no score.
package rating

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the number of decimal places the aggregate is rounded to.
const Places = 2

// Entry is one review's contribution to the aggregate.
type Entry struct {
	Rating float64
	Likes  int64
}

// Weight returns the influence of the entry on the aggregate.
func (e Entry) Weight() int64 {
	if e.Likes < 0 {
		return 1
	}
	return e.Likes + 1
}

// Aggregate computes the score for a ledger snapshot. It is a pure function:
// the same ledger always yields the same value.
func Aggregate(ledger []Entry) decimal.NullDecimal {
	if len(ledger) == 0 {
		return decimal.NullDecimal{}
	}

	sum := decimal.Zero
	weights := decimal.Zero
	for _, e := range ledger {
		w := decimal.NewFromInt(e.Weight())
		sum = sum.Add(decimal.NewFromFloat(e.Rating).Mul(w))
		weights = weights.Add(w)
	}
	return decimal.NewNullDecimal(sum.DivRound(weights, Places))
}

// LedgerStore is the data access needed to recompute a series score. Both
// calls must run inside the transaction that mutated the ledger and that
// holds the lock on the series row.
type LedgerStore interface {
	Ledger(ctx context.Context, seriesID int64) ([]Entry, error)
	SetRating(ctx context.Context, seriesID int64, value decimal.NullDecimal) error
}

// Recompute rescans the full ledger of a series and persists the new score.
func Recompute(ctx context.Context, store LedgerStore, seriesID int64) (decimal.NullDecimal, error) {
	ledger, err := store.Ledger(ctx, seriesID)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("load ledger for series %d: %w", seriesID, err)
	}
	value := Aggregate(ledger)
	if err := store.SetRating(ctx, seriesID, value); err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("store rating for series %d: %w", seriesID, err)
	}
	return value, nil
}

// Float converts an aggregate into the nullable float used by API payloads.
func Float(value decimal.NullDecimal) *float64 {
	if !value.Valid {
		return nil
	}
	f := value.Decimal.InexactFloat64()
	return &f
}
