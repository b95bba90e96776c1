// Package engine orchestrates one tax calculation run: it classifies raw
// exchange records, feeds acquisitions into the cost-basis trackers,
// resolves disposals into tax events and folds everything into the annual
// summary.
//
// A Calculator is built per (tax year, account type, cost-basis method)
// combination and owns its state exclusively. Never share one across
// concurrent runs; construct, Process, read the result, discard.
package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkallas/cryptotax/basis"
	"github.com/mkallas/cryptotax/config"
	"github.com/mkallas/cryptotax/pkg/id"
	"github.com/mkallas/cryptotax/tax"
)

// Calculator processes a finite batch of records for one tax year.
type Calculator struct {
	year    int
	account tax.AccountType
	method  tax.CostBasisMethod

	washSaleDays  int
	incomeRate    decimal.Decimal
	distGrossRate decimal.Decimal
	priorLoss     decimal.Decimal

	norm     *tax.Normalizer
	resolver *basis.Resolver

	txs     []tax.ProcessedTransaction
	events  []tax.TaxEvent
	errs    []tax.RecordError
	summary *summaryBuilder
}

// New builds a fresh Calculator for the run described by cfg. The config
// must have passed Validate.
func New(cfg *config.Config) *Calculator {
	year := cfg.Run.TaxYear
	account := tax.AccountType(cfg.Run.AccountType)
	method := tax.CostBasisMethod(cfg.Run.CostBasisMethod)

	return &Calculator{
		year:          year,
		account:       account,
		method:        method,
		washSaleDays:  cfg.Jurisdiction.WashSaleDays,
		incomeRate:    decimal.NewFromFloat(cfg.Jurisdiction.IncomeTaxRate(year)),
		distGrossRate: decimal.NewFromFloat(cfg.Jurisdiction.DistributionGrossRate(year)),
		priorLoss:     decimal.NewFromFloat(cfg.Run.PriorLossCarryforward),
		norm:          tax.NewNormalizer(cfg.Assets.Aliases, cfg.Assets.FiatCurrencies),
		resolver:      basis.NewResolver(basis.OverDisposalPolicy(cfg.Policy.OverDisposal)),
		summary:       newSummaryBuilder(year, account, method),
	}
}

// record is one raw entry on the merged timeline.
type record struct {
	ts     time.Time
	trade  *tax.TradeRecord
	ledger *tax.LedgerRecord
}

// Process runs the whole batch: records are merged into one chronological
// stream, classified and resolved one at a time. A record that fails
// validation is reported in Errors and contributes nothing; processing
// always continues with the next record.
func (c *Calculator) Process(trades []tax.TradeRecord, ledgers []tax.LedgerRecord) tax.ProcessingResult {
	timeline := make([]record, 0, len(trades)+len(ledgers))
	for i := range trades {
		timeline = append(timeline, record{ts: trades[i].Timestamp(), trade: &trades[i]})
	}
	for i := range ledgers {
		timeline = append(timeline, record{ts: ledgers[i].Timestamp(), ledger: &ledgers[i]})
	}
	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].ts.Before(timeline[j].ts)
	})

	for _, rec := range timeline {
		if rec.trade != nil {
			c.handleTrade(*rec.trade)
		} else {
			c.handleLedger(*rec.ledger)
		}
	}

	summary := c.summary.finalize(finalizeParams{
		incomeRate:    c.incomeRate,
		distGrossRate: c.distGrossRate,
		priorLoss:     c.priorLoss,
		txCount:       len(c.txs),
	})

	result := tax.ProcessingResult{
		Transactions: c.txs,
		TaxEvents:    c.events,
		Summary:      summary,
		Errors:       c.errs,
	}
	if result.Transactions == nil {
		result.Transactions = []tax.ProcessedTransaction{}
	}
	if result.TaxEvents == nil {
		result.TaxEvents = []tax.TaxEvent{}
	}
	if result.Errors == nil {
		result.Errors = []tax.RecordError{}
	}
	return result
}

func (c *Calculator) recordError(refID string, err error) {
	c.errs = append(c.errs, tax.RecordError{ID: refID, Error: err.Error()})
}

func (c *Calculator) inTaxYear(ts time.Time) bool {
	return ts.UTC().Year() == c.year
}

// handleTrade processes one spot or margin trade.
func (c *Calculator) handleTrade(rec tax.TradeRecord) {
	if err := rec.Validate(); err != nil {
		c.recordError(rec.OrderTxID, err)
		return
	}

	ts := rec.Timestamp()
	base, quote := c.norm.SplitPair(rec.Pair)

	vol := decimal.NewFromFloat(rec.Vol)
	price := decimal.NewFromFloat(rec.Price)
	cost := decimal.NewFromFloat(rec.Cost)
	fee := decimal.NewFromFloat(rec.Fee)

	rawKind := "trade"
	if rec.Margin > 0 {
		rawKind = "margin"
	}
	txType, category := tax.Classify(rawKind, "", rec.Type)

	amount := vol
	if rec.Type == "sell" {
		amount = vol.Neg()
	}

	ptx := tax.ProcessedTransaction{
		ID:          id.New(),
		SourceRefID: rec.OrderTxID,
		Type:        txType,
		Category:    category,
		Asset:       base,
		Amount:      amount,
		Pair:        rec.Pair,
		Side:        rec.Type,
		Price:       price,
		Cost:        cost,
		Fee:         fee,
		FeeAsset:    quote,
		Timestamp:   ts,
	}
	c.txs = append(c.txs, ptx)

	if txType == tax.TypeMarginTrade {
		c.summary.addMarginFee(fee)
	} else {
		c.summary.addOtherFee(fee)
	}

	if !c.norm.IsReportable(base) {
		return
	}

	switch rec.Type {
	case "buy":
		// Cost basis always includes the acquisition fee. Both
		// trackers are updated so the method can change between runs
		// without re-processing history.
		if _, err := c.resolver.RecordAcquisition(base, vol, cost.Add(fee), ts, ptx.ID); err != nil {
			c.recordError(rec.OrderTxID, err)
		}
	case "sell":
		c.handleDisposal(ptx, vol, cost.Sub(fee), fee, ts)
	}
}

// handleDisposal resolves a sale against the active method. Disposals
// outside the active tax year still consume acquisitions, so later years
// see the correct remaining basis, but they produce no tax event.
func (c *Calculator) handleDisposal(ptx tax.ProcessedTransaction, amount, proceeds, fee decimal.Decimal, ts time.Time) {
	res, err := c.resolver.ResolveDisposal(c.method, ptx.Asset, amount, proceeds, ts)
	if err != nil {
		c.recordError(ptx.SourceRefID, err)
		return
	}

	if !c.inTaxYear(ts) {
		return
	}

	ev := tax.TaxEvent{
		ID:               id.New(),
		TransactionID:    ptx.ID,
		TaxYear:          c.year,
		Type:             ptx.Type,
		Asset:            ptx.Asset,
		Amount:           amount,
		AcquisitionCost:  res.TotalCostBasis,
		DisposalDate:     ts,
		DisposalProceeds: proceeds,
		Gain:             res.Gain,
		TaxableAmount:    decimal.Max(res.Gain, decimal.Zero),
		CostBasisMethod:  c.method,
		Fee:              fee,
	}

	if len(res.MatchedLots) > 0 {
		ev.AcquisitionDate = res.MatchedLots[0].AcquisitionDate
		ev.MatchedLots = make([]tax.MatchedLot, len(res.MatchedLots))
		for i, m := range res.MatchedLots {
			ev.MatchedLots[i] = tax.MatchedLot{
				LotID:             m.LotID,
				Amount:            m.Amount,
				CostBasis:         m.CostBasis,
				AcquisitionDate:   m.AcquisitionDate,
				HoldingPeriodDays: m.HoldingPeriodDays,
			}
		}
	} else {
		// No lot record to date the acquisition from; zero-date to the
		// disposal itself.
		ev.AcquisitionDate = ts
	}

	if res.TotalCostBasis.IsZero() && proceeds.IsPositive() {
		ev.Warnings = append(ev.Warnings, fmt.Sprintf(
			"no cost basis found for %s: full proceeds treated as gain", ptx.Asset))
	}
	if res.Unmatched.IsPositive() && !res.Unmatched.Equal(amount) {
		ev.Warnings = append(ev.Warnings, fmt.Sprintf(
			"disposal of %s %s exceeds recorded acquisitions by %s: remainder resolved at zero cost basis",
			amount, ptx.Asset, res.Unmatched))
	}
	if res.Gain.IsNegative() && c.washSaleDays > 0 {
		if holding, ok := shortestHolding(res.MatchedLots); ok && holding < c.washSaleDays {
			ev.Warnings = append(ev.Warnings, fmt.Sprintf(
				"loss on %s realized after %d days: review for wash-sale style repurchases", ptx.Asset, holding))
		}
	}

	c.events = append(c.events, ev)
	c.summary.add(ev)
}

func shortestHolding(matches []basis.LotMatch) (int, bool) {
	if len(matches) == 0 {
		return 0, false
	}
	min := matches[0].HoldingPeriodDays
	for _, m := range matches[1:] {
		if m.HoldingPeriodDays < min {
			min = m.HoldingPeriodDays
		}
	}
	return min, true
}

// handleLedger processes one non-trade ledger movement.
func (c *Calculator) handleLedger(rec tax.LedgerRecord) {
	if err := rec.Validate(); err != nil {
		c.recordError(rec.RefID, err)
		return
	}

	ts := rec.Timestamp()
	asset := c.norm.Normalize(rec.Asset)
	txType, category := tax.Classify(rec.Type, rec.Subtype, "")

	amount := decimal.NewFromFloat(rec.Amount)
	fee := decimal.NewFromFloat(rec.Fee)

	ptx := tax.ProcessedTransaction{
		ID:          id.New(),
		SourceRefID: rec.RefID,
		Type:        txType,
		Category:    category,
		Asset:       asset,
		Amount:      amount,
		Fee:         fee,
		FeeAsset:    asset,
		Timestamp:   ts,
	}
	c.txs = append(c.txs, ptx)

	switch txType {
	case tax.TypeDeposit:
		c.summary.addOtherFee(fee)
		c.handleDeposit(ptx, ts)
	case tax.TypeStakingReward, tax.TypeEarnReward, tax.TypeCredit, tax.TypeAirdrop, tax.TypeFork:
		c.handleIncome(ptx, ts)
	case tax.TypeMarginSettlement:
		c.handleSettlement(ptx, ts)
	case tax.TypeRollover, tax.TypeFee:
		c.summary.addMarginFee(fee.Add(decimal.Min(ptx.Amount, decimal.Zero).Abs()))
	case tax.TypeWithdrawal, tax.TypeTransfer, tax.TypeAdjustment:
		// Non-taxable movement; basis stays where it is.
		c.summary.addOtherFee(fee)
	}
}

// handleDeposit books an inbound deposit at zero cost basis. The engine
// cannot know what was paid for the asset elsewhere, so the basis is zero
// and the risk of double taxation is flagged instead of guessed away.
func (c *Calculator) handleDeposit(ptx tax.ProcessedTransaction, ts time.Time) {
	if !ptx.Amount.IsPositive() || !c.norm.IsReportable(ptx.Asset) {
		return
	}
	if _, err := c.resolver.RecordAcquisition(ptx.Asset, ptx.Amount, decimal.Zero, ts, ptx.ID); err != nil {
		c.recordError(ptx.SourceRefID, err)
		return
	}
	c.summary.addWarning(fmt.Sprintf(
		"deposit of %s booked at zero cost basis: supply the original acquisition cost to avoid double taxation", ptx.Asset))
}

// handleIncome books reward-style income. The asset enters the trackers at
// zero cost basis and a placeholder tax event is created with zero gain:
// the fair market value at receipt must be supplied externally, the engine
// does not fabricate a price.
func (c *Calculator) handleIncome(ptx tax.ProcessedTransaction, ts time.Time) {
	if !ptx.Amount.IsPositive() {
		return
	}
	if c.norm.IsReportable(ptx.Asset) {
		if _, err := c.resolver.RecordAcquisition(ptx.Asset, ptx.Amount, decimal.Zero, ts, ptx.ID); err != nil {
			c.recordError(ptx.SourceRefID, err)
			return
		}
	}
	if !c.inTaxYear(ts) {
		return
	}

	ev := tax.TaxEvent{
		ID:              id.New(),
		TransactionID:   ptx.ID,
		TaxYear:         c.year,
		Type:            ptx.Type,
		Asset:           ptx.Asset,
		Amount:          ptx.Amount,
		AcquisitionDate: ts,
		DisposalDate:    ts,
		CostBasisMethod: c.method,
		Fee:             ptx.Fee,
		Warnings: []string{fmt.Sprintf(
			"%s income of %s %s needs a fair market value at receipt: amount recorded, valuation pending",
			ptx.Type, ptx.Amount, ptx.Asset)},
	}
	c.events = append(c.events, ev)
	c.summary.add(ev)
}

// handleSettlement books realized margin P&L. A fiat settlement amount is
// itself the realized gain or loss; a crypto settlement needs an external
// valuation like other income, so inbound coins enter the trackers at zero
// basis and outbound coins consume basis instead.
func (c *Calculator) handleSettlement(ptx tax.ProcessedTransaction, ts time.Time) {
	if c.norm.IsReportable(ptx.Asset) {
		if ptx.Amount.IsPositive() {
			if _, err := c.resolver.RecordAcquisition(ptx.Asset, ptx.Amount, decimal.Zero, ts, ptx.ID); err != nil {
				c.recordError(ptx.SourceRefID, err)
				return
			}
		} else if ptx.Amount.IsNegative() {
			// Coins paid out settle the margin position; tracked
			// inventory must shrink with them. The realized P&L itself
			// stays valuation-pending like other crypto settlements.
			res, err := c.resolver.ResolveDisposal(c.method, ptx.Asset, ptx.Amount.Abs(), decimal.Zero, ts)
			if err != nil {
				c.recordError(ptx.SourceRefID, err)
				return
			}
			if res.Unmatched.IsPositive() {
				c.summary.addWarning(fmt.Sprintf(
					"margin settlement of %s %s exceeds recorded acquisitions by %s",
					ptx.Amount.Abs(), ptx.Asset, res.Unmatched))
			}
		}
		if !c.inTaxYear(ts) {
			return
		}
		ev := tax.TaxEvent{
			ID:              id.New(),
			TransactionID:   ptx.ID,
			TaxYear:         c.year,
			Type:            ptx.Type,
			Asset:           ptx.Asset,
			Amount:          ptx.Amount.Abs(),
			AcquisitionDate: ts,
			DisposalDate:    ts,
			CostBasisMethod: c.method,
			Warnings: []string{fmt.Sprintf(
				"margin settlement in %s needs a fair market value: amount recorded, valuation pending", ptx.Asset)},
		}
		c.events = append(c.events, ev)
		c.summary.add(ev)
		return
	}

	if !c.inTaxYear(ts) {
		return
	}
	gain := ptx.Amount
	ev := tax.TaxEvent{
		ID:               id.New(),
		TransactionID:    ptx.ID,
		TaxYear:          c.year,
		Type:             ptx.Type,
		Asset:            ptx.Asset,
		Amount:           ptx.Amount.Abs(),
		AcquisitionDate:  ts,
		DisposalDate:     ts,
		DisposalProceeds: decimal.Max(gain, decimal.Zero),
		Gain:             gain,
		TaxableAmount:    decimal.Max(gain, decimal.Zero),
		CostBasisMethod:  c.method,
		Fee:              ptx.Fee,
	}
	c.events = append(c.events, ev)
	c.summary.add(ev)
	c.summary.addMarginFee(ptx.Fee)
}
