// Package config holds the run configuration for the tax engine: which year
// and regime to calculate, the jurisdiction's rate tables, asset
// normalization overrides and engine policies. Files may be YAML or JSON.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the complete configuration for one calculation run.
type Config struct {
	Run          RunConfig          `json:"run" yaml:"run"`
	Jurisdiction JurisdictionConfig `json:"jurisdiction" yaml:"jurisdiction"`
	Assets       AssetsConfig       `json:"assets" yaml:"assets"`
	Policy       PolicyConfig       `json:"policy" yaml:"policy"`
	Store        StoreConfig        `json:"store" yaml:"store"`
}

// RunConfig identifies one logical run. The engine builds a fresh
// calculator per (tax year, account type, method) combination; these values
// must not be swapped on a live instance.
type RunConfig struct {
	TaxYear         int     `json:"tax_year" yaml:"tax_year"`
	AccountType     string  `json:"account_type" yaml:"account_type"`           // "individual" or "business"
	CostBasisMethod string  `json:"cost_basis_method" yaml:"cost_basis_method"` // "fifo" or "weighted-average"
	// PriorLossCarryforward is the loss carried in from earlier years;
	// business accounts only.
	PriorLossCarryforward float64 `json:"prior_loss_carryforward" yaml:"prior_loss_carryforward"`
}

// JurisdictionConfig carries the Estonian rate tables. Rates are fractions,
// not percentages.
type JurisdictionConfig struct {
	IncomeTaxRates       map[int]float64 `json:"income_tax_rates" yaml:"income_tax_rates"`
	DefaultIncomeTaxRate float64         `json:"default_income_tax_rate" yaml:"default_income_tax_rate"`

	// Distribution rates are the gross rates; the engine derives the
	// effective rate as gross / (1 - gross) at finalization.
	DistributionGrossRates       map[int]float64 `json:"distribution_gross_rates" yaml:"distribution_gross_rates"`
	DefaultDistributionGrossRate float64         `json:"default_distribution_gross_rate" yaml:"default_distribution_gross_rate"`

	// WashSaleDays is the holding period under which a realized loss
	// gets a caution warning. Warning only; Estonia has no statutory
	// wash-sale rule.
	WashSaleDays int `json:"wash_sale_days" yaml:"wash_sale_days"`
}

// IncomeTaxRate returns the income tax rate for a year, falling back to the
// default when the table has no entry.
func (j JurisdictionConfig) IncomeTaxRate(year int) float64 {
	if r, ok := j.IncomeTaxRates[year]; ok {
		return r
	}
	return j.DefaultIncomeTaxRate
}

// DistributionGrossRate returns the gross distribution tax rate for a year.
func (j JurisdictionConfig) DistributionGrossRate(year int) float64 {
	if r, ok := j.DistributionGrossRates[year]; ok {
		return r
	}
	return j.DefaultDistributionGrossRate
}

// AssetsConfig supplements the built-in symbol tables.
type AssetsConfig struct {
	// FiatCurrencies extends the fiat exclusion list.
	FiatCurrencies []string `json:"fiat_currencies" yaml:"fiat_currencies"`
	// Aliases extends the raw-symbol remapping, e.g. "XXBT: BTC".
	Aliases map[string]string `json:"aliases" yaml:"aliases"`
}

// PolicyConfig selects engine behavior where the rules leave room.
type PolicyConfig struct {
	// OverDisposal: "warn" resolves a disposal that exceeds all recorded
	// acquisitions at zero cost basis with a warning; "error" rejects
	// the record.
	OverDisposal string `json:"over_disposal" yaml:"over_disposal"`
}

// StoreConfig configures the optional results store.
type StoreConfig struct {
	Type       string `json:"type,omitempty" yaml:"type,omitempty"` // "sqlite", "csv" or empty
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	EventsFile string `json:"events_file,omitempty" yaml:"events_file,omitempty"`
}

// Default returns the configuration for an Estonian individual filing the
// current rules: 20% income tax through 2024, 22% from 2025, matching
// distribution rates, FIFO matching.
func Default() *Config {
	return &Config{
		Run: RunConfig{
			TaxYear:         2024,
			AccountType:     "individual",
			CostBasisMethod: "fifo",
		},
		Jurisdiction: JurisdictionConfig{
			IncomeTaxRates: map[int]float64{
				2022: 0.20, 2023: 0.20, 2024: 0.20, 2025: 0.22,
			},
			DefaultIncomeTaxRate: 0.22,
			DistributionGrossRates: map[int]float64{
				2022: 0.20, 2023: 0.20, 2024: 0.20, 2025: 0.22,
			},
			DefaultDistributionGrossRate: 0.22,
			WashSaleDays:                 30,
		},
		Policy: PolicyConfig{OverDisposal: "warn"},
	}
}

// LoadFromFile loads configuration from a YAML or JSON file, layered over
// Default so partial files only override what they mention.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration before a run starts.
func (c *Config) Validate() error {
	if c.Run.TaxYear < 2009 || c.Run.TaxYear > 2100 {
		return fmt.Errorf("run.tax_year %d out of range", c.Run.TaxYear)
	}
	if c.Run.AccountType != "individual" && c.Run.AccountType != "business" {
		return fmt.Errorf("run.account_type must be 'individual' or 'business'")
	}
	if c.Run.CostBasisMethod != "fifo" && c.Run.CostBasisMethod != "weighted-average" {
		return fmt.Errorf("run.cost_basis_method must be 'fifo' or 'weighted-average'")
	}
	if c.Run.PriorLossCarryforward < 0 {
		return fmt.Errorf("run.prior_loss_carryforward must not be negative")
	}
	if r := c.Jurisdiction.DefaultIncomeTaxRate; r < 0 || r >= 1 {
		return fmt.Errorf("jurisdiction.default_income_tax_rate must be in [0, 1)")
	}
	for y, r := range c.Jurisdiction.IncomeTaxRates {
		if r < 0 || r >= 1 {
			return fmt.Errorf("jurisdiction.income_tax_rates[%d] must be in [0, 1)", y)
		}
	}
	if r := c.Jurisdiction.DefaultDistributionGrossRate; r < 0 || r >= 1 {
		return fmt.Errorf("jurisdiction.default_distribution_gross_rate must be in [0, 1)")
	}
	for y, r := range c.Jurisdiction.DistributionGrossRates {
		if r < 0 || r >= 1 {
			return fmt.Errorf("jurisdiction.distribution_gross_rates[%d] must be in [0, 1)", y)
		}
	}
	if c.Jurisdiction.WashSaleDays < 0 {
		return fmt.Errorf("jurisdiction.wash_sale_days must not be negative")
	}
	if p := c.Policy.OverDisposal; p != "warn" && p != "error" {
		return fmt.Errorf("policy.over_disposal must be 'warn' or 'error'")
	}
	switch c.Store.Type {
	case "", "sqlite", "csv":
	default:
		return fmt.Errorf("store.type must be 'sqlite', 'csv' or empty")
	}
	if c.Store.Type == "sqlite" && c.Store.DBPath == "" {
		return fmt.Errorf("store.db_path required for sqlite store")
	}
	if c.Store.Type == "csv" && c.Store.EventsFile == "" {
		return fmt.Errorf("store.events_file required for csv store")
	}
	return nil
}
