package tax

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validTrade() TradeRecord {
	return TradeRecord{
		OrderTxID: "O1",
		Pair:      "XXBTZEUR",
		Type:      "buy",
		Vol:       1.0,
		Price:     30000,
		Cost:      30000,
		Fee:       45,
		Time:      1704067200, // 2024-01-01T00:00:00Z
	}
}

func TestTradeRecordValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validTrade().Validate())

	r := validTrade()
	r.Cost = math.NaN()
	assert.Error(t, r.Validate())

	r = validTrade()
	r.Vol = math.Inf(1)
	assert.Error(t, r.Validate())

	r = validTrade()
	r.Fee = -1
	assert.Error(t, r.Validate())

	r = validTrade()
	r.Type = "short"
	assert.Error(t, r.Validate())

	r = validTrade()
	r.Time = 0
	assert.Error(t, r.Validate())
}

func TestLedgerRecordValidate(t *testing.T) {
	t.Parallel()

	r := LedgerRecord{RefID: "L1", Type: "deposit", Asset: "XXBT", Amount: 1, Time: 1704067200}
	assert.NoError(t, r.Validate())

	// Outflows are signed, so a negative amount is legal.
	r.Amount = -1
	assert.NoError(t, r.Validate())

	r.Amount = math.NaN()
	assert.Error(t, r.Validate())

	r = LedgerRecord{RefID: "L1", Type: "deposit", Asset: "XXBT", Amount: 1, Fee: -0.1, Time: 1704067200}
	assert.Error(t, r.Validate())
}

func TestRecordTimestamps(t *testing.T) {
	t.Parallel()

	r := validTrade()
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), r.Timestamp())

	l := LedgerRecord{Time: 1704067200.5}
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 500000000, time.UTC), l.Timestamp())
}
