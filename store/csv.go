package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mkallas/cryptotax/tax"
)

var eventHeader = []string{
	"event_id", "transaction_id", "tax_year", "type", "asset", "amount",
	"acquisition_date", "acquisition_cost", "disposal_date",
	"disposal_proceeds", "gain", "taxable_amount", "cost_basis_method",
	"fee", "warnings",
}

// CSVStore writes the tax events of a run to a flat CSV file. It ignores
// transactions and errors; use the SQLite store when the full result must
// survive.
type CSVStore struct {
	w *csv.Writer
	f *os.File
}

// NewCSV creates the events file and writes the header.
func NewCSV(path string) (*CSVStore, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create events file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(eventHeader); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, err
	}
	return &CSVStore{w: w, f: f}, nil
}

// SaveRun appends one row per tax event.
func (s *CSVStore) SaveRun(result tax.ProcessingResult) error {
	for _, ev := range result.TaxEvents {
		err := s.w.Write([]string{
			ev.ID,
			ev.TransactionID,
			strconv.Itoa(ev.TaxYear),
			string(ev.Type),
			ev.Asset,
			ev.Amount.String(),
			ev.AcquisitionDate.Format(time.RFC3339),
			ev.AcquisitionCost.String(),
			ev.DisposalDate.Format(time.RFC3339),
			ev.DisposalProceeds.String(),
			ev.Gain.String(),
			ev.TaxableAmount.String(),
			string(ev.CostBasisMethod),
			ev.Fee.String(),
			strings.Join(ev.Warnings, "; "),
		})
		if err != nil {
			return err
		}
	}
	s.w.Flush()
	return s.w.Error()
}

// Close flushes and closes the file.
func (s *CSVStore) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return err
	}
	return s.f.Close()
}
