package store

// Schema is the SQLite DDL for stored runs. Monetary values are TEXT so the
// decimal representation survives round trips exactly.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	tax_year INTEGER NOT NULL,
	account_type TEXT NOT NULL,
	cost_basis_method TEXT NOT NULL,
	total_gains TEXT NOT NULL,
	total_losses TEXT NOT NULL,
	net_pnl TEXT NOT NULL,
	taxable_amount TEXT NOT NULL,
	estimated_tax TEXT NOT NULL,
	summary_json TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL REFERENCES runs(run_id),
	source_ref_id TEXT NOT NULL,
	type TEXT NOT NULL,
	category TEXT NOT NULL,
	asset TEXT NOT NULL,
	amount TEXT NOT NULL,
	pair TEXT,
	side TEXT,
	price TEXT,
	cost TEXT,
	fee TEXT,
	timestamp DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS tax_events (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL REFERENCES runs(run_id),
	transaction_id TEXT NOT NULL,
	tax_year INTEGER NOT NULL,
	type TEXT NOT NULL,
	asset TEXT NOT NULL,
	amount TEXT NOT NULL,
	acquisition_date DATETIME NOT NULL,
	acquisition_cost TEXT NOT NULL,
	disposal_date DATETIME NOT NULL,
	disposal_proceeds TEXT NOT NULL,
	gain TEXT NOT NULL,
	taxable_amount TEXT NOT NULL,
	cost_basis_method TEXT NOT NULL,
	fee TEXT,
	warnings TEXT
);

CREATE TABLE IF NOT EXISTS matched_lots (
	event_id TEXT NOT NULL REFERENCES tax_events(id),
	lot_id TEXT NOT NULL,
	amount TEXT NOT NULL,
	cost_basis TEXT NOT NULL,
	acquisition_date DATETIME NOT NULL,
	holding_period_days INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS record_errors (
	run_id TEXT NOT NULL REFERENCES runs(run_id),
	record_id TEXT NOT NULL,
	error TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tax_events_run ON tax_events(run_id);
CREATE INDEX IF NOT EXISTS idx_transactions_run ON transactions(run_id);
CREATE INDEX IF NOT EXISTS idx_matched_lots_event ON matched_lots(event_id);
`
