// Package tax defines the domain model shared by the cost-basis engine:
// normalized transactions, tax events, annual summaries and the
// classification of raw exchange activity into taxable categories.
//
// The rules encoded here follow Estonian cryptocurrency taxation: gains are
// ordinary income, realized losses are not deductible for individuals, and a
// company's retained profit is untaxed until distributed.
package tax

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the internal kind of one normalized exchange record.
type TransactionType string

const (
	TypeTrade            TransactionType = "trade"
	TypeMarginTrade      TransactionType = "margin-trade"
	TypeMarginSettlement TransactionType = "margin-settlement"
	TypeStakingReward    TransactionType = "staking-reward"
	TypeEarnReward       TransactionType = "earn-reward"
	TypeCredit           TransactionType = "credit"
	TypeAirdrop          TransactionType = "airdrop"
	TypeFork             TransactionType = "fork"
	TypeDeposit          TransactionType = "deposit"
	TypeWithdrawal       TransactionType = "withdrawal"
	TypeTransfer         TransactionType = "transfer"
	TypeRollover         TransactionType = "rollover"
	TypeFee              TransactionType = "fee"
	TypeNFTTrade         TransactionType = "nft-trade"
	TypeAdjustment       TransactionType = "adjustment"
)

// TransactionCategory decides how a transaction participates in the annual
// summary.
type TransactionCategory string

const (
	CategoryTaxableIncome       TransactionCategory = "taxable-income"
	CategoryNonTaxable          TransactionCategory = "non-taxable"
	CategoryCostBasisAdjustment TransactionCategory = "cost-basis-adjustment"
	CategoryFee                 TransactionCategory = "fee"
)

// AccountType selects the taxation regime for a run.
type AccountType string

const (
	AccountIndividual AccountType = "individual"
	AccountBusiness   AccountType = "business"
)

// Valid reports whether a is a known account type.
func (a AccountType) Valid() bool {
	return a == AccountIndividual || a == AccountBusiness
}

// CostBasisMethod selects how disposals are matched to acquisitions.
type CostBasisMethod string

const (
	MethodFIFO            CostBasisMethod = "fifo"
	MethodWeightedAverage CostBasisMethod = "weighted-average"
)

// Valid reports whether m is a known cost-basis method.
func (m CostBasisMethod) Valid() bool {
	return m == MethodFIFO || m == MethodWeightedAverage
}

// ProcessedTransaction is the normalized view of one raw exchange record.
// It is created once per record and never mutated afterwards.
type ProcessedTransaction struct {
	ID          string              `json:"id"`
	SourceRefID string              `json:"sourceRefId"`
	Type        TransactionType     `json:"type"`
	Category    TransactionCategory `json:"category"`
	Asset       string              `json:"asset"`
	// Amount is signed: positive means an inflow to the account.
	Amount    decimal.Decimal `json:"amount"`
	Pair      string          `json:"pair,omitempty"`
	Side      string          `json:"side,omitempty"`
	Price     decimal.Decimal `json:"price,omitempty"`
	Cost      decimal.Decimal `json:"cost,omitempty"`
	Fee       decimal.Decimal `json:"fee,omitempty"`
	FeeAsset  string          `json:"feeAsset,omitempty"`
	Leverage  decimal.Decimal `json:"leverage,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// MatchedLot is one step of the FIFO audit trail: which historical purchase
// funded which part of a disposal.
type MatchedLot struct {
	LotID             string          `json:"lotId"`
	Amount            decimal.Decimal `json:"amount"`
	CostBasis         decimal.Decimal `json:"costBasis"`
	AcquisitionDate   time.Time       `json:"acquisitionDate"`
	HoldingPeriodDays int             `json:"holdingPeriodDays"`
}

// TaxEvent is one resolved disposal, or one income event still awaiting an
// external fair-market valuation, for a specific tax year.
type TaxEvent struct {
	ID               string          `json:"id"`
	TransactionID    string          `json:"transactionId"`
	TaxYear          int             `json:"taxYear"`
	Type             TransactionType `json:"type"`
	Asset            string          `json:"asset"`
	Amount           decimal.Decimal `json:"amount"`
	AcquisitionDate  time.Time       `json:"acquisitionDate"`
	AcquisitionCost  decimal.Decimal `json:"acquisitionCost"`
	DisposalDate     time.Time       `json:"disposalDate"`
	DisposalProceeds decimal.Decimal `json:"disposalProceeds"`
	Gain             decimal.Decimal `json:"gain"`
	TaxableAmount    decimal.Decimal `json:"taxableAmount"`
	CostBasisMethod  CostBasisMethod `json:"costBasisMethod"`
	MatchedLots      []MatchedLot    `json:"matchedLots,omitempty"`
	Fee              decimal.Decimal `json:"fee,omitempty"`
	Warnings         []string        `json:"warnings,omitempty"`
}

// CategoryBreakdown splits the annual totals by income source.
type CategoryBreakdown struct {
	TradingGains  decimal.Decimal `json:"tradingGains"`
	TradingLosses decimal.Decimal `json:"tradingLosses"`
	MarginGains   decimal.Decimal `json:"marginGains"`
	MarginLosses  decimal.Decimal `json:"marginLosses"`
	StakingIncome decimal.Decimal `json:"stakingIncome"`
	EarnIncome    decimal.Decimal `json:"earnIncome"`
	CreditIncome  decimal.Decimal `json:"creditIncome"`
	AirdropIncome decimal.Decimal `json:"airdropIncome"`
	OtherIncome   decimal.Decimal `json:"otherIncome"`
}

// TaxSummary aggregates one year of tax events for one account type and
// cost-basis method. It is built once per run and never mutated after
// finalization.
//
// Invariants: NetPnL = TotalGains - TotalLosses. For individual accounts
// TaxableAmount equals TotalGains exactly (losses are never subtracted). For
// business accounts TaxableAmount is always zero; tax is deferred until
// profit distribution.
type TaxSummary struct {
	TaxYear         int             `json:"taxYear"`
	AccountType     AccountType     `json:"accountType"`
	CostBasisMethod CostBasisMethod `json:"costBasisMethod"`

	TotalGains    decimal.Decimal `json:"totalGains"`
	TotalLosses   decimal.Decimal `json:"totalLosses"`
	NetPnL        decimal.Decimal `json:"netPnL"`
	TaxableAmount decimal.Decimal `json:"taxableAmount"`
	TaxRate       decimal.Decimal `json:"taxRate"`
	EstimatedTax  decimal.Decimal `json:"estimatedTax"`

	Breakdown  CategoryBreakdown `json:"breakdown"`
	MarginFees decimal.Decimal   `json:"marginFees"`
	OtherFees  decimal.Decimal   `json:"otherFees"`

	TransactionCount int `json:"transactionCount"`
	TaxEventCount    int `json:"taxEventCount"`

	Warnings []string `json:"warnings"`

	// Business accounts only.
	RetainedProfit           decimal.Decimal `json:"retainedProfit,omitempty"`
	DistributionTaxRate      decimal.Decimal `json:"distributionTaxRate,omitempty"`
	PotentialDistributionTax decimal.Decimal `json:"potentialDistributionTax,omitempty"`
	LossCarryforward         decimal.Decimal `json:"lossCarryforward,omitempty"`
	HasLossCarryforward      bool            `json:"hasLossCarryforward,omitempty"`
}

// RecordError ties a per-record failure to the external reference id of the
// record that caused it. Failed records contribute nothing to any total.
type RecordError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// ProcessingResult is the complete output of one engine run, consumed by
// report generators and persistence collaborators. Errors and warnings are
// always populated, even on a successful run, and must be surfaced by any
// consumer.
type ProcessingResult struct {
	Transactions []ProcessedTransaction `json:"transactions"`
	TaxEvents    []TaxEvent             `json:"taxEvents"`
	Summary      TaxSummary             `json:"summary"`
	Errors       []RecordError          `json:"errors"`
}
