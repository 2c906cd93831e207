package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "autotrader",
	Short: "Volatility-breakout auto-trading bot for KRX equities",
	Long: `Autotrader runs a rule-based trading engine for a single brokerage account.

It provides tools for:
  - Running the breakout trading loop against a live or simulated broker
  - Managing the bot's risk capital ledger
  - Querying the trade journal and daily summaries`,
}

var (
	cfgPath string
	debug   bool
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "f", "./configs/config.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}
