package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cryptotax",
	Short: "Cost-basis and tax resolution for exchange activity",
	Long: `Cryptotax resolves raw exchange activity (trades, deposits, staking
rewards and other ledger movements) into taxable disposals per tax year,
under Estonian rules: gains are ordinary income, losses are not deductible
for individuals, and a company's retained profit is untaxed until
distributed.

Cost basis is matched FIFO or by weighted average; every FIFO disposal
carries an audit trail of the purchase lots that funded it.`,
	SilenceUsage: true,
}

var cfgPath string

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (YAML or JSON)")
}
