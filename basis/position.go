package basis

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// closeTolerance is the relative threshold under which a position counts as
// fully closed. Decimal division leaves residue at its precision limit, and
// assets span wildly different scales (8 vs 18 decimals), so the tolerance
// is relative to the disposed amount rather than absolute.
var closeTolerance = decimal.New(1, -9) // 1e-9

// Position is the single weighted-average aggregate for one asset.
type Position struct {
	Asset       string
	TotalAmount decimal.Decimal
	TotalCost   decimal.Decimal
	AverageCost decimal.Decimal
}

// PositionTracker keeps one weighted-average Position per asset. Average
// cost moves only on acquisition; disposals shrink amount and cost
// proportionally and leave the average untouched.
type PositionTracker struct {
	positions map[string]*Position
}

// NewPositionTracker returns an empty tracker.
func NewPositionTracker() *PositionTracker {
	return &PositionTracker{positions: make(map[string]*Position)}
}

// AddAcquisition folds an acquisition into the asset's position, creating
// it on first sight. Cost zero is legal (reward or deposit of unknown fair
// value).
func (t *PositionTracker) AddAcquisition(asset string, amount, cost decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("acquisition of %s: amount must be positive, got %s", asset, amount)
	}
	if cost.IsNegative() {
		return fmt.Errorf("acquisition of %s: cost must not be negative, got %s", asset, cost)
	}

	p, ok := t.positions[asset]
	if !ok {
		p = &Position{Asset: asset}
		t.positions[asset] = p
	}
	p.TotalAmount = p.TotalAmount.Add(amount)
	p.TotalCost = p.TotalCost.Add(cost)
	p.AverageCost = p.TotalCost.Div(p.TotalAmount)
	return nil
}

// Consume removes a disposal from the asset's position and returns the cost
// basis taken at the current average cost together with the portion of the
// requested amount the position could not cover.
//
// The cost basis is taken proportionally from the unrounded totals, not as
// covered * AverageCost: a full close then takes the entire remaining cost
// exactly, and the stored average never moves on a disposal. The quotient
// TotalCost/TotalAmount of what remains can still drift from the stored
// average by division residue, bounded well inside closeTolerance. When
// the remainder falls within closeTolerance of zero relative to the
// disposed amount, the position is deleted rather than left as a
// denormalized near-zero entry.
func (t *PositionTracker) Consume(asset string, amount decimal.Decimal) (costBasis, averageUsed, unmatched decimal.Decimal, err error) {
	if !amount.IsPositive() {
		return decimal.Zero, decimal.Zero, decimal.Zero, fmt.Errorf("consume %s: amount must be positive, got %s", asset, amount)
	}

	p, ok := t.positions[asset]
	if !ok {
		return decimal.Zero, decimal.Zero, amount, nil
	}

	covered := decimal.Min(amount, p.TotalAmount)
	costBasis = p.TotalCost.Mul(covered).Div(p.TotalAmount)
	averageUsed = p.AverageCost
	unmatched = amount.Sub(covered)

	p.TotalAmount = p.TotalAmount.Sub(covered)
	p.TotalCost = p.TotalCost.Sub(costBasis)

	if p.TotalAmount.Abs().LessThanOrEqual(amount.Mul(closeTolerance)) {
		delete(t.positions, asset)
	}
	return costBasis, averageUsed, unmatched, nil
}

// Position returns a snapshot of the asset's position, and whether one is
// open.
func (t *PositionTracker) Position(asset string) (Position, bool) {
	p, ok := t.positions[asset]
	if !ok {
		return Position{}, false
	}
	return *p, true
}
