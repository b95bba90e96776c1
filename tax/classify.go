package tax

import "strings"

// Classify maps a raw exchange event kind onto the internal transaction type
// and its tax category. It is a pure, total function: every input resolves
// to exactly one (type, category) pair, and unrecognized raw kinds fall back
// to (adjustment, non-taxable) instead of failing.
//
// The side parameter carries "buy" or "sell" for trade-like kinds and is
// ignored otherwise.
func Classify(rawType, rawSubtype, side string) (TransactionType, TransactionCategory) {
	rawType = strings.ToLower(strings.TrimSpace(rawType))
	rawSubtype = strings.ToLower(strings.TrimSpace(rawSubtype))
	side = strings.ToLower(strings.TrimSpace(side))

	switch rawType {
	case "trade", "spend", "receive":
		return TypeTrade, tradeCategory(side)
	case "margin":
		// Trade records carry a side; a sideless margin entry is the
		// ledger posting of realized margin P&L.
		if side == "" {
			return TypeMarginSettlement, CategoryTaxableIncome
		}
		return TypeMarginTrade, tradeCategory(side)
	case "settled", "settle":
		return TypeMarginSettlement, CategoryTaxableIncome
	case "rollover":
		return TypeRollover, CategoryFee
	case "fee":
		return TypeFee, CategoryFee
	case "deposit":
		return TypeDeposit, CategoryNonTaxable
	case "withdrawal":
		return TypeWithdrawal, CategoryNonTaxable
	case "transfer":
		return TypeTransfer, CategoryNonTaxable
	case "staking":
		return TypeStakingReward, CategoryTaxableIncome
	case "earn":
		// Earn migrations and (de)allocations just move funds between
		// wallets; only rewards are income.
		switch rawSubtype {
		case "reward":
			return TypeEarnReward, CategoryTaxableIncome
		case "migration", "allocation", "autoallocation", "deallocation":
			return TypeTransfer, CategoryNonTaxable
		default:
			return TypeEarnReward, CategoryTaxableIncome
		}
	case "credit", "dividend":
		return TypeCredit, CategoryTaxableIncome
	case "airdrop":
		return TypeAirdrop, CategoryTaxableIncome
	case "fork":
		return TypeFork, CategoryTaxableIncome
	case "nfttrade", "nft-trade", "nft":
		return TypeNFTTrade, tradeCategory(side)
	case "adjustment":
		return TypeAdjustment, CategoryNonTaxable
	default:
		return TypeAdjustment, CategoryNonTaxable
	}
}

// tradeCategory derives the category of a trade-like event from its side:
// selling realizes taxable income, buying adjusts cost basis.
func tradeCategory(side string) TransactionCategory {
	switch side {
	case "sell":
		return CategoryTaxableIncome
	case "buy":
		return CategoryCostBasisAdjustment
	default:
		return CategoryNonTaxable
	}
}
