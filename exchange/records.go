// Package exchange decodes exported exchange data into the record shapes
// the engine consumes. It is the file-based implementation of the
// exchange-data collaborator; a live API client would implement the same
// Source interface.
//
// The supported format is Kraken-style JSON: trades and ledger entries as
// an object keyed by transaction id, optionally nested under a "trades" /
// "ledger" or "result" wrapper, or as a plain array. Numeric fields may be
// JSON numbers or strings; Kraken mixes both.
package exchange

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/mkallas/cryptotax/tax"
)

// Source supplies one batch of records to a run.
type Source interface {
	Trades() ([]tax.TradeRecord, []tax.RecordError, error)
	Ledger() ([]tax.LedgerRecord, []tax.RecordError, error)
}

// FileSource reads records from exported JSON files. Either path may be
// empty, yielding no records of that shape.
type FileSource struct {
	TradesPath string
	LedgerPath string
}

// Trades decodes the trades file. Entries that fail to decode become
// per-record errors; the error return is reserved for systemic failures
// (unreadable file, not JSON at all).
func (s FileSource) Trades() ([]tax.TradeRecord, []tax.RecordError, error) {
	if s.TradesPath == "" {
		return nil, nil, nil
	}
	entries, recErrs, err := readEntries(s.TradesPath, "trades")
	if err != nil {
		return nil, nil, err
	}

	var out []tax.TradeRecord
	for _, e := range entries {
		var w wireTrade
		if err := json.Unmarshal(e.raw, &w); err != nil {
			recErrs = append(recErrs, tax.RecordError{ID: e.key, Error: fmt.Sprintf("decode trade: %v", err)})
			continue
		}
		rec := tax.TradeRecord{
			OrderTxID: w.OrderTxID,
			Pair:      w.Pair,
			Type:      w.Type,
			Vol:       float64(w.Vol),
			Price:     float64(w.Price),
			Cost:      float64(w.Cost),
			Fee:       float64(w.Fee),
			Margin:    float64(w.Margin),
			Time:      float64(w.Time),
		}
		if rec.OrderTxID == "" {
			rec.OrderTxID = e.key
		}
		out = append(out, rec)
	}
	return out, recErrs, nil
}

// Ledger decodes the ledger file, with the same error split as Trades.
func (s FileSource) Ledger() ([]tax.LedgerRecord, []tax.RecordError, error) {
	if s.LedgerPath == "" {
		return nil, nil, nil
	}
	entries, recErrs, err := readEntries(s.LedgerPath, "ledger")
	if err != nil {
		return nil, nil, err
	}

	var out []tax.LedgerRecord
	for _, e := range entries {
		var w wireLedger
		if err := json.Unmarshal(e.raw, &w); err != nil {
			recErrs = append(recErrs, tax.RecordError{ID: e.key, Error: fmt.Sprintf("decode ledger entry: %v", err)})
			continue
		}
		rec := tax.LedgerRecord{
			RefID:   w.RefID,
			Type:    w.Type,
			Subtype: w.Subtype,
			Asset:   w.Asset,
			Amount:  float64(w.Amount),
			Fee:     float64(w.Fee),
			Time:    float64(w.Time),
		}
		if rec.RefID == "" {
			rec.RefID = e.key
		}
		out = append(out, rec)
	}
	return out, recErrs, nil
}

type wireTrade struct {
	OrderTxID string     `json:"ordertxid"`
	Pair      string     `json:"pair"`
	Type      string     `json:"type"`
	Vol       flexNumber `json:"vol"`
	Price     flexNumber `json:"price"`
	Cost      flexNumber `json:"cost"`
	Fee       flexNumber `json:"fee"`
	Margin    flexNumber `json:"margin"`
	Time      flexNumber `json:"time"`
}

type wireLedger struct {
	RefID   string     `json:"refid"`
	Type    string     `json:"type"`
	Subtype string     `json:"subtype"`
	Asset   string     `json:"asset"`
	Amount  flexNumber `json:"amount"`
	Fee     flexNumber `json:"fee"`
	Time    flexNumber `json:"time"`
}

// flexNumber accepts a JSON number or a numeric string. An empty string
// decodes as zero. Malformed strings decode as NaN so record validation
// rejects them with a proper per-record error instead of the whole file
// failing.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		f = math.NaN()
	}
	*n = flexNumber(f)
	return nil
}

type entry struct {
	key string
	raw json.RawMessage
}

// readEntries loads the file and flattens whichever of the accepted shapes
// it finds into keyed raw entries, sorted by key for deterministic order.
func readEntries(path, wrapper string) ([]entry, []tax.RecordError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s file: %w", wrapper, err)
	}

	// Unwrap {"result": {...}} and {"trades"/"ledger": {...}} layers.
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(data, &outer); err == nil {
		if inner, ok := outer["result"]; ok {
			data = inner
			outer = nil
			_ = json.Unmarshal(data, &outer)
		}
		if inner, ok := outer[wrapper]; ok {
			data = inner
		}
	}

	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(data, &keyed); err == nil && looksKeyed(keyed) {
		entries := make([]entry, 0, len(keyed))
		for k, raw := range keyed {
			entries = append(entries, entry{key: k, raw: raw})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
		return entries, nil, nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		entries := make([]entry, 0, len(list))
		for i, raw := range list {
			entries = append(entries, entry{key: fmt.Sprintf("%s[%d]", wrapper, i), raw: raw})
		}
		return entries, nil, nil
	}

	return nil, nil, fmt.Errorf("parse %s file %s: unrecognized shape", wrapper, path)
}

// looksKeyed distinguishes an id-keyed record map from an already-unwrapped
// single record object: record objects have well-known scalar fields like
// "type", id-keyed maps have objects as values.
func looksKeyed(m map[string]json.RawMessage) bool {
	for _, raw := range m {
		t := strings.TrimSpace(string(raw))
		if !strings.HasPrefix(t, "{") {
			return false
		}
	}
	return len(m) > 0
}
