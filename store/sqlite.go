package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mkallas/cryptotax/pkg/id"
	"github.com/mkallas/cryptotax/tax"
)

// SQLiteStore persists runs into a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and applies the schema.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply store schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// SaveRun writes the whole result in one transaction keyed by a fresh run
// ULID.
func (s *SQLiteStore) SaveRun(result tax.ProcessingResult) error {
	runID := id.New()

	dbTx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save run: %w", err)
	}
	defer dbTx.Rollback()

	summaryJSON, err := json.Marshal(result.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	_, err = dbTx.Exec(`
		INSERT INTO runs
		(run_id, tax_year, account_type, cost_basis_method,
		 total_gains, total_losses, net_pnl, taxable_amount, estimated_tax,
		 summary_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		result.Summary.TaxYear,
		string(result.Summary.AccountType),
		string(result.Summary.CostBasisMethod),
		result.Summary.TotalGains.String(),
		result.Summary.TotalLosses.String(),
		result.Summary.NetPnL.String(),
		result.Summary.TaxableAmount.String(),
		result.Summary.EstimatedTax.String(),
		string(summaryJSON),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, t := range result.Transactions {
		_, err = dbTx.Exec(`
			INSERT INTO transactions
			(id, run_id, source_ref_id, type, category, asset, amount,
			 pair, side, price, cost, fee, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, runID, t.SourceRefID, string(t.Type), string(t.Category),
			t.Asset, t.Amount.String(), t.Pair, t.Side,
			t.Price.String(), t.Cost.String(), t.Fee.String(), t.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}

	for _, ev := range result.TaxEvents {
		_, err = dbTx.Exec(`
			INSERT INTO tax_events
			(id, run_id, transaction_id, tax_year, type, asset, amount,
			 acquisition_date, acquisition_cost, disposal_date,
			 disposal_proceeds, gain, taxable_amount, cost_basis_method,
			 fee, warnings)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ev.ID, runID, ev.TransactionID, ev.TaxYear, string(ev.Type),
			ev.Asset, ev.Amount.String(), ev.AcquisitionDate,
			ev.AcquisitionCost.String(), ev.DisposalDate,
			ev.DisposalProceeds.String(), ev.Gain.String(),
			ev.TaxableAmount.String(), string(ev.CostBasisMethod),
			ev.Fee.String(), strings.Join(ev.Warnings, "\n"),
		)
		if err != nil {
			return fmt.Errorf("insert tax event %s: %w", ev.ID, err)
		}

		for _, m := range ev.MatchedLots {
			_, err = dbTx.Exec(`
				INSERT INTO matched_lots
				(event_id, lot_id, amount, cost_basis, acquisition_date, holding_period_days)
				VALUES (?, ?, ?, ?, ?, ?)`,
				ev.ID, m.LotID, m.Amount.String(), m.CostBasis.String(),
				m.AcquisitionDate, m.HoldingPeriodDays,
			)
			if err != nil {
				return fmt.Errorf("insert matched lot for event %s: %w", ev.ID, err)
			}
		}
	}

	for _, re := range result.Errors {
		if _, err := dbTx.Exec(`
			INSERT INTO record_errors (run_id, record_id, error)
			VALUES (?, ?, ?)`,
			runID, re.ID, re.Error,
		); err != nil {
			return fmt.Errorf("insert record error %s: %w", re.ID, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit save run: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
