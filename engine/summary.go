package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mkallas/cryptotax/tax"
)

// summaryBuilder folds tax events into the annual summary. It is a state
// machine with exactly one transition, accumulate -> finalize; add must not
// be called after finalize.
type summaryBuilder struct {
	year    int
	account tax.AccountType
	method  tax.CostBasisMethod

	totalGains  decimal.Decimal
	totalLosses decimal.Decimal
	breakdown   tax.CategoryBreakdown
	marginFees  decimal.Decimal
	otherFees   decimal.Decimal
	eventCount  int
	warnings    []string

	finalized bool
}

func newSummaryBuilder(year int, account tax.AccountType, method tax.CostBasisMethod) *summaryBuilder {
	return &summaryBuilder{year: year, account: account, method: method}
}

// add accumulates one tax event into the running totals.
func (s *summaryBuilder) add(ev tax.TaxEvent) {
	if s.finalized {
		panic("summary: add after finalize")
	}
	s.eventCount++

	gain := decimal.Max(ev.Gain, decimal.Zero)
	loss := decimal.Max(ev.Gain.Neg(), decimal.Zero)
	s.totalGains = s.totalGains.Add(gain)
	s.totalLosses = s.totalLosses.Add(loss)

	b := &s.breakdown
	switch ev.Type {
	case tax.TypeTrade, tax.TypeNFTTrade:
		b.TradingGains = b.TradingGains.Add(gain)
		b.TradingLosses = b.TradingLosses.Add(loss)
	case tax.TypeMarginTrade, tax.TypeMarginSettlement:
		b.MarginGains = b.MarginGains.Add(gain)
		b.MarginLosses = b.MarginLosses.Add(loss)
	case tax.TypeStakingReward:
		b.StakingIncome = b.StakingIncome.Add(gain)
	case tax.TypeEarnReward:
		b.EarnIncome = b.EarnIncome.Add(gain)
	case tax.TypeCredit:
		b.CreditIncome = b.CreditIncome.Add(gain)
	case tax.TypeAirdrop, tax.TypeFork:
		b.AirdropIncome = b.AirdropIncome.Add(gain)
	default:
		if gain.IsPositive() {
			b.OtherIncome = b.OtherIncome.Add(gain)
		}
	}

	s.warnings = append(s.warnings, ev.Warnings...)
}

func (s *summaryBuilder) addWarning(w string) {
	s.warnings = append(s.warnings, w)
}

func (s *summaryBuilder) addMarginFee(f decimal.Decimal) {
	s.marginFees = s.marginFees.Add(f)
}

func (s *summaryBuilder) addOtherFee(f decimal.Decimal) {
	s.otherFees = s.otherFees.Add(f)
}

type finalizeParams struct {
	incomeRate    decimal.Decimal
	distGrossRate decimal.Decimal
	priorLoss     decimal.Decimal
	txCount       int
}

// finalize computes the jurisdiction-dependent figures and seals the
// builder.
//
// Individuals owe income tax on gross gains; losses reduce nothing and a
// warning states the exact non-deductible amount. Businesses owe nothing
// until profit is distributed: taxable amount and estimated tax are zero,
// the prior-year loss carryforward nets against this year's P&L, and the
// potential distribution tax uses the effective rate gross / (1 - gross).
func (s *summaryBuilder) finalize(p finalizeParams) tax.TaxSummary {
	if s.finalized {
		panic("summary: finalize called twice")
	}
	s.finalized = true

	netPnL := s.totalGains.Sub(s.totalLosses)

	summary := tax.TaxSummary{
		TaxYear:          s.year,
		AccountType:      s.account,
		CostBasisMethod:  s.method,
		TotalGains:       s.totalGains,
		TotalLosses:      s.totalLosses,
		NetPnL:           netPnL,
		Breakdown:        s.breakdown,
		MarginFees:       s.marginFees,
		OtherFees:        s.otherFees,
		TransactionCount: p.txCount,
		TaxEventCount:    s.eventCount,
	}

	switch s.account {
	case tax.AccountBusiness:
		summary.TaxableAmount = decimal.Zero
		summary.EstimatedTax = decimal.Zero

		adjusted := netPnL.Sub(p.priorLoss)
		summary.RetainedProfit = adjusted
		if adjusted.IsNegative() {
			summary.LossCarryforward = adjusted.Abs()
			summary.HasLossCarryforward = true
		}

		gross := p.distGrossRate
		effective := gross.Div(decimal.NewFromInt(1).Sub(gross))
		summary.DistributionTaxRate = effective
		summary.PotentialDistributionTax = decimal.Max(adjusted, decimal.Zero).Mul(effective)

	default: // individual
		summary.TaxableAmount = s.totalGains
		summary.TaxRate = p.incomeRate
		summary.EstimatedTax = s.totalGains.Mul(p.incomeRate)
		if s.totalLosses.IsPositive() {
			s.warnings = append(s.warnings, fmt.Sprintf(
				"realized losses of %s are not deductible for individuals", s.totalLosses))
		}
	}

	summary.Warnings = dedupe(s.warnings)
	return summary
}

// dedupe removes repeated warnings while preserving first-seen order. The
// result is never nil: a clean run still reports an empty warnings array.
func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, w := range in {
		if seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}
