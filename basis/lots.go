// Package basis implements the cost-basis core: the FIFO acquisition lot
// ledger, the weighted-average position tracker, and the disposal resolver
// that unifies them.
//
// A ledger/tracker pair belongs to exactly one calculation run. Nothing in
// this package is safe for concurrent use; callers construct a fresh
// Resolver per logical run and discard it afterwards.
package basis

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkallas/cryptotax/pkg/id"
)

// Lot is one discrete acquisition of an asset. Remaining is decremented by
// the disposal resolver and by nothing else; a depleted lot is pruned from
// the active ledger while its audit record survives in any TaxEvent that
// matched it.
type Lot struct {
	ID                  string
	Asset               string
	Amount              decimal.Decimal
	CostPerUnit         decimal.Decimal
	TotalCost           decimal.Decimal
	Remaining           decimal.Decimal
	AcquisitionDate     time.Time
	SourceTransactionID string
}

// LotMatch records one step of a FIFO consume: how much was taken from
// which lot, at what cost basis, and how long the lot had been held.
type LotMatch struct {
	LotID             string
	Amount            decimal.Decimal
	CostBasis         decimal.Decimal
	AcquisitionDate   time.Time
	HoldingPeriodDays int
}

// LotLedger keeps, per asset, the queue of open acquisition lots ordered by
// non-decreasing acquisition date.
type LotLedger struct {
	lots map[string][]*Lot
}

// NewLotLedger returns an empty ledger.
func NewLotLedger() *LotLedger {
	return &LotLedger{lots: make(map[string][]*Lot)}
}

// AddAcquisition inserts a new lot in date order. Amount must be positive;
// totalCost may be zero, which represents a deposit or reward with unknown
// fair value.
func (l *LotLedger) AddAcquisition(asset string, amount, totalCost decimal.Decimal, date time.Time, txID string) (*Lot, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("acquisition of %s: amount must be positive, got %s", asset, amount)
	}
	if totalCost.IsNegative() {
		return nil, fmt.Errorf("acquisition of %s: total cost must not be negative, got %s", asset, totalCost)
	}

	lot := &Lot{
		ID:                  id.New(),
		Asset:               asset,
		Amount:              amount,
		CostPerUnit:         totalCost.Div(amount),
		TotalCost:           totalCost,
		Remaining:           amount,
		AcquisitionDate:     date,
		SourceTransactionID: txID,
	}

	// Records usually arrive in time order, so scan for the insertion
	// point from the tail. Equal dates keep arrival order.
	queue := l.lots[asset]
	i := len(queue)
	for i > 0 && queue[i-1].AcquisitionDate.After(date) {
		i--
	}
	queue = append(queue, nil)
	copy(queue[i+1:], queue[i:])
	queue[i] = lot
	l.lots[asset] = queue

	return lot, nil
}

// Consume walks the asset's lot queue oldest-first, taking
// min(remaining, still needed) from each lot until the requested amount is
// satisfied or the lots run out. Depleted lots are pruned after the walk.
//
// The returned unmatched value is the portion of amount no lot could cover.
// An empty queue yields no matches and unmatched == amount; the caller
// decides whether that is an error or a zero-cost-basis disposal.
func (l *LotLedger) Consume(asset string, amount decimal.Decimal, date time.Time) (matches []LotMatch, unmatched decimal.Decimal, err error) {
	if !amount.IsPositive() {
		return nil, decimal.Zero, fmt.Errorf("consume %s: amount must be positive, got %s", asset, amount)
	}

	needed := amount
	for _, lot := range l.lots[asset] {
		if !needed.IsPositive() {
			break
		}
		take := decimal.Min(lot.Remaining, needed)
		matches = append(matches, LotMatch{
			LotID:             lot.ID,
			Amount:            take,
			CostBasis:         take.Mul(lot.CostPerUnit),
			AcquisitionDate:   lot.AcquisitionDate,
			HoldingPeriodDays: holdingPeriodDays(lot.AcquisitionDate, date),
		})
		lot.Remaining = lot.Remaining.Sub(take)
		needed = needed.Sub(take)
	}

	l.prune(asset)
	return matches, needed, nil
}

// prune drops depleted lots from the front of the asset queue and deletes
// the queue entirely once empty.
func (l *LotLedger) prune(asset string) {
	queue := l.lots[asset]
	kept := queue[:0]
	for _, lot := range queue {
		if lot.Remaining.IsPositive() {
			kept = append(kept, lot)
		}
	}
	if len(kept) == 0 {
		delete(l.lots, asset)
		return
	}
	l.lots[asset] = kept
}

// Lots returns the open lots for an asset, oldest first. The slice is a
// copy; the lots themselves are live and must not be mutated by callers.
func (l *LotLedger) Lots(asset string) []*Lot {
	queue := l.lots[asset]
	out := make([]*Lot, len(queue))
	copy(out, queue)
	return out
}

// TotalRemaining sums the remaining quantity across an asset's open lots.
func (l *LotLedger) TotalRemaining(asset string) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range l.lots[asset] {
		total = total.Add(lot.Remaining)
	}
	return total
}

// holdingPeriodDays is the whole number of days between acquisition and
// disposal, floored.
func holdingPeriodDays(acquired, disposed time.Time) int {
	d := disposed.Sub(acquired)
	if d < 0 {
		return 0
	}
	return int(d.Hours() / 24)
}
