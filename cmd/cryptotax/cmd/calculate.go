package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mkallas/cryptotax/config"
	"github.com/mkallas/cryptotax/engine"
	"github.com/mkallas/cryptotax/exchange"
	"github.com/mkallas/cryptotax/store"
	"github.com/mkallas/cryptotax/tax"
)

var calculateCmd = &cobra.Command{
	Use:   "calculate",
	Short: "Resolve one tax year from exported exchange data",
	Long: `Calculate runs the engine over exported trade and ledger files for one
(tax year, account type, cost-basis method) combination and writes the full
ProcessingResult as JSON.

Per-record failures never abort the run; they are reported in the result's
errors array alongside the summary's warnings. Both must be reviewed.

Example:
  cryptotax calculate --year 2024 --account individual --method fifo \
    --trades trades.json --ledger ledger.json --out result.json`,
	RunE: runCalculate,
}

var (
	calcYear      int
	calcAccount   string
	calcMethod    string
	calcPriorLoss float64
	tradesPath    string
	ledgerPath    string
	outPath       string
	dbPath        string
	csvPath       string
)

func init() {
	rootCmd.AddCommand(calculateCmd)

	calculateCmd.Flags().IntVar(&calcYear, "year", 0, "tax year to resolve")
	calculateCmd.Flags().StringVar(&calcAccount, "account", "", "account type: individual or business")
	calculateCmd.Flags().StringVar(&calcMethod, "method", "", "cost basis method: fifo or weighted-average")
	calculateCmd.Flags().Float64Var(&calcPriorLoss, "prior-loss", 0, "prior-year loss carryforward (business accounts)")
	calculateCmd.Flags().StringVar(&tradesPath, "trades", "", "path to exported trades JSON")
	calculateCmd.Flags().StringVar(&ledgerPath, "ledger", "", "path to exported ledger JSON")
	calculateCmd.Flags().StringVar(&outPath, "out", "-", "result JSON path, - for stdout")
	calculateCmd.Flags().StringVar(&dbPath, "db", "", "also save the run into this SQLite database")
	calculateCmd.Flags().StringVar(&csvPath, "csv", "", "also append tax events to this CSV file")
}

func runCalculate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlagOverrides(cfg, cmd)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid run configuration: %w", err)
	}
	if tradesPath == "" && ledgerPath == "" {
		return fmt.Errorf("at least one of --trades or --ledger is required")
	}

	src := exchange.FileSource{TradesPath: tradesPath, LedgerPath: ledgerPath}
	trades, tradeErrs, err := src.Trades()
	if err != nil {
		return err
	}
	ledgers, ledgerErrs, err := src.Ledger()
	if err != nil {
		return err
	}

	log.Info().
		Int("year", cfg.Run.TaxYear).
		Str("account", cfg.Run.AccountType).
		Str("method", cfg.Run.CostBasisMethod).
		Int("trades", len(trades)).
		Int("ledger", len(ledgers)).
		Msg("starting run")

	// One calculator per run; never reused.
	calc := engine.New(cfg)
	result := calc.Process(trades, ledgers)

	// Decode failures from the input boundary surface next to the
	// engine's own per-record errors.
	result.Errors = append(append(tradeErrs, ledgerErrs...), result.Errors...)

	if err := writeResult(result); err != nil {
		return err
	}
	if err := persistResult(cfg, result); err != nil {
		return err
	}

	log.Info().
		Int("transactions", len(result.Transactions)).
		Int("events", len(result.TaxEvents)).
		Int("errors", len(result.Errors)).
		Int("warnings", len(result.Summary.Warnings)).
		Str("taxable", result.Summary.TaxableAmount.String()).
		Str("estimated_tax", result.Summary.EstimatedTax.String()).
		Msg("run finished")
	return nil
}

func loadConfig() (*config.Config, error) {
	if cfgPath == "" {
		if p := os.Getenv("CRYPTOTAX_CONFIG"); p != "" {
			cfgPath = p
		}
	}
	if cfgPath == "" {
		return config.Default(), nil
	}
	return config.LoadFromFile(cfgPath)
}

func applyFlagOverrides(cfg *config.Config, cmd *cobra.Command) {
	if cmd.Flags().Changed("year") {
		cfg.Run.TaxYear = calcYear
	}
	if cmd.Flags().Changed("account") {
		cfg.Run.AccountType = calcAccount
	}
	if cmd.Flags().Changed("method") {
		cfg.Run.CostBasisMethod = calcMethod
	}
	if cmd.Flags().Changed("prior-loss") {
		cfg.Run.PriorLossCarryforward = calcPriorLoss
	}
	if dbPath != "" {
		cfg.Store.Type = "sqlite"
		cfg.Store.DBPath = dbPath
	} else if csvPath != "" {
		cfg.Store.Type = "csv"
		cfg.Store.EventsFile = csvPath
	}
}

func writeResult(result tax.ProcessingResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	data = append(data, '\n')

	if outPath == "-" || outPath == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

func persistResult(cfg *config.Config, result tax.ProcessingResult) error {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Type {
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.DBPath)
	case "csv":
		st, err = store.NewCSV(cfg.Store.EventsFile)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SaveRun(result); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	log.Info().Str("store", cfg.Store.Type).Msg("run persisted")
	return nil
}
