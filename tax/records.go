package tax

import (
	"fmt"
	"math"
	"time"
)

// TradeRecord is one raw spot or margin trade as supplied by the exchange
// data collaborator. Numeric fields are validated before any of them enters
// the engine so one corrupted record cannot poison a whole run.
type TradeRecord struct {
	OrderTxID string  `json:"ordertxid"`
	Pair      string  `json:"pair"`
	Type      string  `json:"type"` // "buy" or "sell"
	Vol       float64 `json:"vol"`
	Price     float64 `json:"price"`
	Cost      float64 `json:"cost"`
	Fee       float64 `json:"fee"`
	Margin    float64 `json:"margin,omitempty"`
	Time      float64 `json:"time"` // Unix seconds, fractional allowed
}

// Validate rejects trades with non-finite or negative numeric fields.
func (r TradeRecord) Validate() error {
	for _, f := range []struct {
		name string
		val  float64
	}{
		{"vol", r.Vol},
		{"price", r.Price},
		{"cost", r.Cost},
		{"fee", r.Fee},
		{"margin", r.Margin},
	} {
		if math.IsNaN(f.val) || math.IsInf(f.val, 0) {
			return fmt.Errorf("trade %s: field %s is not finite", r.OrderTxID, f.name)
		}
		if f.val < 0 {
			return fmt.Errorf("trade %s: field %s is negative (%v)", r.OrderTxID, f.name, f.val)
		}
	}
	if r.Type != "buy" && r.Type != "sell" {
		return fmt.Errorf("trade %s: unknown side %q", r.OrderTxID, r.Type)
	}
	if r.Time <= 0 || math.IsNaN(r.Time) || math.IsInf(r.Time, 0) {
		return fmt.Errorf("trade %s: invalid timestamp %v", r.OrderTxID, r.Time)
	}
	return nil
}

// Timestamp converts the Unix-seconds field to UTC time.
func (r TradeRecord) Timestamp() time.Time {
	return unixToTime(r.Time)
}

// LedgerRecord is one raw ledger movement (deposit, withdrawal, staking
// reward, margin settlement, ...). Amount is signed: positive is an inflow.
type LedgerRecord struct {
	RefID   string  `json:"refid"`
	Type    string  `json:"type"`
	Subtype string  `json:"subtype,omitempty"`
	Asset   string  `json:"asset"`
	Amount  float64 `json:"amount"`
	Fee     float64 `json:"fee"`
	Time    float64 `json:"time"`
}

// Validate rejects ledger entries with non-finite fields or a negative fee.
// Amount may legitimately be negative (outflow), so only finiteness is
// checked there.
func (r LedgerRecord) Validate() error {
	if math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0) {
		return fmt.Errorf("ledger %s: amount is not finite", r.RefID)
	}
	if math.IsNaN(r.Fee) || math.IsInf(r.Fee, 0) {
		return fmt.Errorf("ledger %s: fee is not finite", r.RefID)
	}
	if r.Fee < 0 {
		return fmt.Errorf("ledger %s: fee is negative (%v)", r.RefID, r.Fee)
	}
	if r.Time <= 0 || math.IsNaN(r.Time) || math.IsInf(r.Time, 0) {
		return fmt.Errorf("ledger %s: invalid timestamp %v", r.RefID, r.Time)
	}
	return nil
}

// Timestamp converts the Unix-seconds field to UTC time.
func (r LedgerRecord) Timestamp() time.Time {
	return unixToTime(r.Time)
}

func unixToTime(sec float64) time.Time {
	s := int64(sec)
	ns := int64((sec - float64(s)) * 1e9)
	return time.Unix(s, ns).UTC()
}
