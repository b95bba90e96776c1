package store

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkallas/cryptotax/tax"
)

func sampleResult() tax.ProcessingResult {
	ts := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	acq := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return tax.ProcessingResult{
		Transactions: []tax.ProcessedTransaction{
			{
				ID:          "TX1",
				SourceRefID: "O1",
				Type:        tax.TypeTrade,
				Category:    tax.CategoryTaxableIncome,
				Asset:       "BTC",
				Amount:      decimal.RequireFromString("-1"),
				Pair:        "XXBTZEUR",
				Side:        "sell",
				Cost:        decimal.RequireFromString("45000"),
				Fee:         decimal.RequireFromString("200"),
				Timestamp:   ts,
			},
		},
		TaxEvents: []tax.TaxEvent{
			{
				ID:               "EV1",
				TransactionID:    "TX1",
				TaxYear:          2024,
				Type:             tax.TypeTrade,
				Asset:            "BTC",
				Amount:           decimal.RequireFromString("1"),
				AcquisitionDate:  acq,
				AcquisitionCost:  decimal.RequireFromString("30000"),
				DisposalDate:     ts,
				DisposalProceeds: decimal.RequireFromString("44800"),
				Gain:             decimal.RequireFromString("14800"),
				TaxableAmount:    decimal.RequireFromString("14800"),
				CostBasisMethod:  tax.MethodFIFO,
				MatchedLots: []tax.MatchedLot{
					{LotID: "LOT1", Amount: decimal.RequireFromString("1"), CostBasis: decimal.RequireFromString("30000"), AcquisitionDate: acq, HoldingPeriodDays: 152},
				},
			},
		},
		Summary: tax.TaxSummary{
			TaxYear:         2024,
			AccountType:     tax.AccountIndividual,
			CostBasisMethod: tax.MethodFIFO,
			TotalGains:      decimal.RequireFromString("14800"),
			NetPnL:          decimal.RequireFromString("14800"),
			TaxableAmount:   decimal.RequireFromString("14800"),
			EstimatedTax:    decimal.RequireFromString("2960"),
		},
		Errors: []tax.RecordError{
			{ID: "BAD1", Error: "field cost is not finite"},
		},
	}
}

func TestSQLiteStoreSaveRun(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "runs.db")
	st, err := NewSQLite(path)
	require.NoError(t, err)

	require.NoError(t, st.SaveRun(sampleResult()))
	require.NoError(t, st.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	count := func(table string) int {
		var n int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
		return n
	}
	assert.Equal(t, 1, count("runs"))
	assert.Equal(t, 1, count("transactions"))
	assert.Equal(t, 1, count("tax_events"))
	assert.Equal(t, 1, count("matched_lots"))
	assert.Equal(t, 1, count("record_errors"))

	// Monetary values survive as exact decimal strings.
	var gain string
	require.NoError(t, db.QueryRow("SELECT gain FROM tax_events WHERE id = 'EV1'").Scan(&gain))
	assert.Equal(t, "14800", gain)

	var year int
	var taxable string
	require.NoError(t, db.QueryRow("SELECT tax_year, taxable_amount FROM runs").Scan(&year, &taxable))
	assert.Equal(t, 2024, year)
	assert.Equal(t, "14800", taxable)
}

func TestSQLiteStoreMultipleRuns(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "runs.db")
	st, err := NewSQLite(path)
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.SaveRun(sampleResult()))

	// A second run of the same data gets its own run id but collides on
	// fixed primary keys, and must not commit half a run.
	err = st.SaveRun(sampleResult())
	require.Error(t, err)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&n))
	assert.Equal(t, 1, n)
}
