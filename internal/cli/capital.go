package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/seoulquant/autotrader/internal/config"
	"github.com/seoulquant/autotrader/internal/ledger"
	"github.com/seoulquant/autotrader/internal/logger"
	"github.com/seoulquant/autotrader/internal/postgres"
)

var capitalCmd = &cobra.Command{
	Use:   "capital",
	Short: "Manage the bot's risk capital",
	Long: `Inspect and adjust the capital ledger.

Subcommands:
  status   - show the current ledger summary
  set      - replace the configured capital
  add      - add to the configured capital
  withdraw - withdraw idle cash
  cap      - set the per-position spending cap (0 = unlimited)
  reset    - wipe the ledger back to zero

Examples:
  autotrader capital set 5000000
  autotrader capital cap 1000000
  autotrader capital status`,
}

var capitalStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current ledger summary",
	Args:  cobra.NoArgs,
	RunE:  runCapitalStatus,
}

var capitalSetCmd = &cobra.Command{
	Use:   "set <amount>",
	Short: "Replace the configured capital",
	Args:  cobra.ExactArgs(1),
	RunE:  capitalMutation((*ledger.Ledger).SetCapital),
}

var capitalAddCmd = &cobra.Command{
	Use:   "add <amount>",
	Short: "Add to the configured capital",
	Args:  cobra.ExactArgs(1),
	RunE:  capitalMutation((*ledger.Ledger).AddCapital),
}

var capitalWithdrawCmd = &cobra.Command{
	Use:   "withdraw <amount>",
	Short: "Withdraw idle cash",
	Args:  cobra.ExactArgs(1),
	RunE:  capitalMutation((*ledger.Ledger).WithdrawCapital),
}

var capitalCapCmd = &cobra.Command{
	Use:   "cap <amount>",
	Short: "Set the per-position cap, 0 means unlimited",
	Args:  cobra.ExactArgs(1),
	RunE:  capitalMutation((*ledger.Ledger).SetPerPositionCap),
}

var capitalResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Wipe the ledger back to zero",
	Args:  cobra.NoArgs,
	RunE:  runCapitalReset,
}

func init() {
	rootCmd.AddCommand(capitalCmd)
	capitalCmd.AddCommand(capitalStatusCmd)
	capitalCmd.AddCommand(capitalSetCmd)
	capitalCmd.AddCommand(capitalAddCmd)
	capitalCmd.AddCommand(capitalWithdrawCmd)
	capitalCmd.AddCommand(capitalCapCmd)
	capitalCmd.AddCommand(capitalResetCmd)
}

func openLedger(ctx context.Context) (*ledger.Ledger, func(), error) {
	// env vars may already be exported, a missing .env is fine
	_ = godotenv.Load()

	cfg, err := config.LoadAppConfig(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: can't load cfg", err)
	}

	db, err := postgres.NewDB(postgres.NewConfigFromEnv().Setup())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: can't connect to db", err)
	}

	if err := postgres.InitSchema(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("%w: can't init schema", err)
	}

	ldg := ledger.NewLedger(cfg.UserID, ledger.NewPostgresStore(db), logger.NewNop())
	if err := ldg.Restore(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("%w: can't restore ledger", err)
	}

	return ldg, func() { db.Close() }, nil
}

func capitalMutation(op func(*ledger.Ledger, context.Context, int64) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("%w: can't parse amount", err)
		}

		ctx := context.Background()
		ldg, closeDB, err := openLedger(ctx)
		if err != nil {
			return err
		}
		defer closeDB()

		if err := op(ldg, ctx, amount); err != nil {
			return err
		}

		printSummary(ldg)
		return nil
	}
}

func runCapitalStatus(cmd *cobra.Command, args []string) error {
	ldg, closeDB, err := openLedger(context.Background())
	if err != nil {
		return err
	}
	defer closeDB()

	printSummary(ldg)
	return nil
}

func runCapitalReset(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ldg, closeDB, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	ldg.Reset(ctx)
	printSummary(ldg)
	return nil
}

func printSummary(ldg *ledger.Ledger) {
	s := ldg.Summary()
	fmt.Printf("configured capital: %d\n", s.ConfiguredCapital)
	fmt.Printf("operating capital:  %d\n", s.OperatingCapital)
	fmt.Printf("available cash:     %d\n", s.AvailableCash)
	fmt.Printf("managed asset:      %d\n", s.TotalManagedAsset)
	fmt.Printf("realized profit:    %d (%.2f%%)\n", s.RealizedProfit, s.ProfitRate)
	fmt.Printf("per-position cap:   %d\n", s.PerPositionCap)
}
