package basis

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkallas/cryptotax/tax"
)

// OverDisposalPolicy decides what happens when a disposal exceeds every
// recorded acquisition for the asset.
type OverDisposalPolicy string

const (
	// OverDisposalWarn resolves the unmatched remainder at zero cost
	// basis; the caller is expected to attach a warning.
	OverDisposalWarn OverDisposalPolicy = "warn"
	// OverDisposalError rejects the disposal as a per-record error
	// before any state is mutated.
	OverDisposalError OverDisposalPolicy = "error"
)

// Valid reports whether p is a known policy.
func (p OverDisposalPolicy) Valid() bool {
	return p == OverDisposalWarn || p == OverDisposalError
}

// ErrOverDisposal marks a disposal rejected under OverDisposalError.
type ErrOverDisposal struct {
	Asset     string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *ErrOverDisposal) Error() string {
	return fmt.Sprintf("disposal of %s %s exceeds recorded acquisitions (%s available)",
		e.Requested, e.Asset, e.Available)
}

// DisposalResult is the outcome of resolving one disposal against the
// active cost-basis method.
type DisposalResult struct {
	DisposalAmount   decimal.Decimal
	DisposalProceeds decimal.Decimal
	TotalCostBasis   decimal.Decimal
	Gain             decimal.Decimal
	// MatchedLots is populated for FIFO only.
	MatchedLots []LotMatch
	// AverageCostUsed is populated for weighted average only.
	AverageCostUsed decimal.Decimal
	// Unmatched is the disposed quantity no acquisition covered; it was
	// resolved at zero cost basis under OverDisposalWarn.
	Unmatched decimal.Decimal
}

// Resolver owns one FIFO ledger and one weighted-average tracker and keeps
// the two in lockstep: every acquisition goes through RecordAcquisition and
// fans out to both, so the configured method can change between runs
// without re-processing history. Disposals mutate only the tracker of the
// method they were resolved under.
//
// A Resolver belongs to exactly one run and must not be shared.
type Resolver struct {
	fifo   *LotLedger
	wa     *PositionTracker
	policy OverDisposalPolicy
}

// NewResolver returns a Resolver with empty state.
func NewResolver(policy OverDisposalPolicy) *Resolver {
	if !policy.Valid() {
		policy = OverDisposalWarn
	}
	return &Resolver{
		fifo:   NewLotLedger(),
		wa:     NewPositionTracker(),
		policy: policy,
	}
}

// FIFO exposes the lot ledger for audit queries.
func (r *Resolver) FIFO() *LotLedger { return r.fifo }

// WeightedAverage exposes the position tracker for audit queries.
func (r *Resolver) WeightedAverage() *PositionTracker { return r.wa }

// RecordAcquisition is the single entry point for acquisitions. Cost must
// already include acquisition fees. The returned lot is the FIFO record.
func (r *Resolver) RecordAcquisition(asset string, amount, cost decimal.Decimal, date time.Time, txID string) (*Lot, error) {
	lot, err := r.fifo.AddAcquisition(asset, amount, cost, date, txID)
	if err != nil {
		return nil, err
	}
	if err := r.wa.AddAcquisition(asset, amount, cost); err != nil {
		return nil, err
	}
	return lot, nil
}

// ResolveDisposal consumes the disposal from the tracker selected by
// method and returns the realized gain with its audit detail. Under
// OverDisposalError the availability check happens before any mutation, so
// a rejected disposal leaves the run's state untouched.
func (r *Resolver) ResolveDisposal(method tax.CostBasisMethod, asset string, amount, proceeds decimal.Decimal, date time.Time) (DisposalResult, error) {
	if !amount.IsPositive() {
		return DisposalResult{}, fmt.Errorf("disposal of %s: amount must be positive, got %s", asset, amount)
	}

	if r.policy == OverDisposalError {
		available := r.available(method, asset)
		if available.LessThan(amount) {
			return DisposalResult{}, &ErrOverDisposal{Asset: asset, Requested: amount, Available: available}
		}
	}

	res := DisposalResult{
		DisposalAmount:   amount,
		DisposalProceeds: proceeds,
	}

	switch method {
	case tax.MethodFIFO:
		matches, unmatched, err := r.fifo.Consume(asset, amount, date)
		if err != nil {
			return DisposalResult{}, err
		}
		for _, m := range matches {
			res.TotalCostBasis = res.TotalCostBasis.Add(m.CostBasis)
		}
		res.MatchedLots = matches
		res.Unmatched = unmatched

	case tax.MethodWeightedAverage:
		costBasis, avg, unmatched, err := r.wa.Consume(asset, amount)
		if err != nil {
			return DisposalResult{}, err
		}
		res.TotalCostBasis = costBasis
		res.AverageCostUsed = avg
		res.Unmatched = unmatched

	default:
		return DisposalResult{}, fmt.Errorf("unknown cost basis method %q", method)
	}

	res.Gain = proceeds.Sub(res.TotalCostBasis)
	return res, nil
}

func (r *Resolver) available(method tax.CostBasisMethod, asset string) decimal.Decimal {
	if method == tax.MethodWeightedAverage {
		p, ok := r.wa.Position(asset)
		if !ok {
			return decimal.Zero
		}
		return p.TotalAmount
	}
	return r.fifo.TotalRemaining(asset)
}
