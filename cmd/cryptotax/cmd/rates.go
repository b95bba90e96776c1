package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Print the effective tax rate tables",
	Long: `Print the income tax and distribution tax rates the engine will apply
per year, including the effective distribution rate gross/(1-gross) a
business pays on distributed profit.`,
	RunE: runRates,
}

func init() {
	rootCmd.AddCommand(ratesCmd)
}

func runRates(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	years := make(map[int]bool)
	for y := range cfg.Jurisdiction.IncomeTaxRates {
		years[y] = true
	}
	for y := range cfg.Jurisdiction.DistributionGrossRates {
		years[y] = true
	}
	sorted := make([]int, 0, len(years))
	for y := range years {
		sorted = append(sorted, y)
	}
	sort.Ints(sorted)

	fmt.Println("year  income  distribution(gross)  distribution(effective)")
	for _, y := range sorted {
		gross := cfg.Jurisdiction.DistributionGrossRate(y)
		fmt.Printf("%d  %5.1f%%  %18.1f%%  %22.2f%%\n",
			y,
			cfg.Jurisdiction.IncomeTaxRate(y)*100,
			gross*100,
			gross/(1-gross)*100,
		)
	}
	fmt.Printf("default  %.1f%% income, %.1f%% distribution gross\n",
		cfg.Jurisdiction.DefaultIncomeTaxRate*100,
		cfg.Jurisdiction.DefaultDistributionGrossRate*100,
	)
	return nil
}
