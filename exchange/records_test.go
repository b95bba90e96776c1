package exchange

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	return path
}

func TestTradesKeyedObject(t *testing.T) {
	t.Parallel()

	// Kraken style: entries keyed by txid, numbers as strings.
	path := writeFile(t, "trades.json", `{
	  "trades": {
	    "T2": {"ordertxid": "O2", "pair": "XETHZEUR", "type": "sell", "vol": "2.0", "price": "2500", "cost": 5000, "fee": "8", "time": 1717200000},
	    "T1": {"ordertxid": "O1", "pair": "XXBTZEUR", "type": "buy", "vol": "1.25", "price": "30000.5", "cost": "37500.62", "fee": "56.25", "time": 1704067200.5}
	  }
	}`)

	trades, recErrs, err := FileSource{TradesPath: path}.Trades()
	require.NoError(t, err)
	assert.Empty(t, recErrs)
	require.Len(t, trades, 2)

	// Entries come back sorted by key for deterministic processing.
	assert.Equal(t, "O1", trades[0].OrderTxID)
	assert.Equal(t, "XXBTZEUR", trades[0].Pair)
	assert.Equal(t, "buy", trades[0].Type)
	assert.Equal(t, 1.25, trades[0].Vol)
	assert.Equal(t, 37500.62, trades[0].Cost)
	assert.Equal(t, 1704067200.5, trades[0].Time)

	assert.Equal(t, "O2", trades[1].OrderTxID)
	assert.Equal(t, 5000.0, trades[1].Cost)
}

func TestTradesResultWrapper(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "trades.json", `{"result": {"trades": {
	  "T1": {"pair": "XXBTZEUR", "type": "buy", "vol": "1", "price": "30000", "cost": "30000", "fee": "45", "time": 1704067200}
	}}}`)

	trades, recErrs, err := FileSource{TradesPath: path}.Trades()
	require.NoError(t, err)
	assert.Empty(t, recErrs)
	require.Len(t, trades, 1)
	// Missing ordertxid falls back to the map key.
	assert.Equal(t, "T1", trades[0].OrderTxID)
}

func TestTradesArray(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "trades.json", `[
	  {"ordertxid": "O1", "pair": "XXBTZEUR", "type": "buy", "vol": 1, "price": 30000, "cost": 30000, "fee": 45, "time": 1704067200}
	]`)

	trades, recErrs, err := FileSource{TradesPath: path}.Trades()
	require.NoError(t, err)
	assert.Empty(t, recErrs)
	require.Len(t, trades, 1)
}

func TestMalformedNumberBecomesNaN(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "trades.json", `{"trades": {
	  "T1": {"ordertxid": "O1", "pair": "XXBTZEUR", "type": "buy", "vol": "abc", "price": "1", "cost": "1", "fee": "0", "time": 1704067200}
	}}`)

	trades, recErrs, err := FileSource{TradesPath: path}.Trades()
	require.NoError(t, err)
	assert.Empty(t, recErrs)
	require.Len(t, trades, 1)

	// The malformed field surfaces as NaN so record validation rejects
	// just this record, downstream, with a proper per-record error.
	assert.True(t, math.IsNaN(trades[0].Vol))
	assert.Error(t, trades[0].Validate())
}

func TestBadEntryIsPerRecordError(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "trades.json", `{"trades": {
	  "GOOD": {"ordertxid": "O1", "pair": "XXBTZEUR", "type": "buy", "vol": "1", "price": "1", "cost": "1", "fee": "0", "time": 1704067200},
	  "WEIRD": {"ordertxid": "O2", "pair": ["not", "a", "string"], "type": "buy", "vol": "1", "price": "1", "cost": "1", "fee": "0", "time": 1704067200}
	}}`)

	trades, recErrs, err := FileSource{TradesPath: path}.Trades()
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "O1", trades[0].OrderTxID)
	require.Len(t, recErrs, 1)
	assert.Equal(t, "WEIRD", recErrs[0].ID)
}

func TestLedgerDecoding(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "ledger.json", `{"ledger": {
	  "L1": {"refid": "R1", "type": "staking", "asset": "DOT.S", "amount": "0.5", "fee": "0", "time": 1710460800},
	  "L2": {"refid": "R2", "type": "withdrawal", "asset": "XXBT", "amount": "-0.2", "fee": "0.0002", "time": 1712000000}
	}}`)

	ledger, recErrs, err := FileSource{LedgerPath: path}.Ledger()
	require.NoError(t, err)
	assert.Empty(t, recErrs)
	require.Len(t, ledger, 2)

	assert.Equal(t, "R1", ledger[0].RefID)
	assert.Equal(t, "staking", ledger[0].Type)
	assert.Equal(t, 0.5, ledger[0].Amount)
	assert.Equal(t, -0.2, ledger[1].Amount)
}

func TestEmptyPaths(t *testing.T) {
	t.Parallel()

	trades, recErrs, err := FileSource{}.Trades()
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Empty(t, recErrs)

	ledger, recErrs, err := FileSource{}.Ledger()
	require.NoError(t, err)
	assert.Empty(t, ledger)
	assert.Empty(t, recErrs)
}

func TestUnrecognizedShape(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "trades.json", `"just a string"`)
	_, _, err := FileSource{TradesPath: path}.Trades()
	assert.Error(t, err)
}
