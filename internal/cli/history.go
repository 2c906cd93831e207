package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/seoulquant/autotrader/internal/journal"
	"github.com/seoulquant/autotrader/internal/model"
	"github.com/seoulquant/autotrader/internal/postgres"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query the trade journal",
	Long: `Query and display recorded fills, newest first.

Examples:
  autotrader history
  autotrader history --symbol 005930 --side BUY
  autotrader history --from 2026-08-01 --to 2026-08-29`,
	RunE: runHistory,
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show daily profit summaries",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

var (
	historyFrom   string
	historyTo     string
	historySymbol string
	historySide   string
)

func init() {
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(summaryCmd)

	historyCmd.Flags().StringVar(&historyFrom, "from", "", "start date (YYYY-MM-DD)")
	historyCmd.Flags().StringVar(&historyTo, "to", "", "end date (YYYY-MM-DD, exclusive)")
	historyCmd.Flags().StringVar(&historySymbol, "symbol", "", "filter by symbol code")
	historyCmd.Flags().StringVar(&historySide, "side", "", "filter by side (BUY or SELL)")
}

func openJournal() (*journal.Journal, func(), error) {
	// env vars may already be exported, a missing .env is fine
	_ = godotenv.Load()

	db, err := postgres.NewDB(postgres.NewConfigFromEnv().Setup())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: can't connect to db", err)
	}

	return journal.NewJournal(db), func() { db.Close() }, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	jnl, closeDB, err := openJournal()
	if err != nil {
		return err
	}
	defer closeDB()

	filter := journal.TradeFilter{
		Symbol: historySymbol,
		Side:   model.Side(historySide),
	}
	if historyFrom != "" {
		if filter.From, err = time.Parse("2006-01-02", historyFrom); err != nil {
			return fmt.Errorf("%w: can't parse --from", err)
		}
	}
	if historyTo != "" {
		if filter.To, err = time.Parse("2006-01-02", historyTo); err != nil {
			return fmt.Errorf("%w: can't parse --to", err)
		}
	}

	records, err := jnl.Trades(context.Background(), filter)
	if err != nil {
		return err
	}

	fmt.Printf("%-20s %-8s %-12s %-5s %10s %8s %12s\n", "TIME", "SYMBOL", "NAME", "SIDE", "PRICE", "QTY", "TOTAL")
	for _, r := range records {
		fmt.Printf("%-20s %-8s %-12s %-5s %10d %8d %12d\n",
			r.Timestamp.Format("2006-01-02 15:04:05"), r.Code, r.Name, r.Side, r.Price, r.Quantity, r.Total)
	}
	fmt.Printf("\n%d trades\n", len(records))

	return nil
}

func runSummary(cmd *cobra.Command, args []string) error {
	jnl, closeDB, err := openJournal()
	if err != nil {
		return err
	}
	defer closeDB()

	ctx := context.Background()
	summaries, err := jnl.DailySummaries(ctx, "0000-01-01", "9999-12-31")
	if err != nil {
		return err
	}

	fmt.Printf("%-12s %14s %14s %12s %8s %7s\n", "DATE", "OPEN", "CLOSE", "PROFIT", "RATE", "TRADES")
	for _, s := range summaries {
		fmt.Printf("%-12s %14d %14d %12d %7.2f%% %7d\n",
			s.Date, s.OpenCapital, s.CloseCapital, s.Profit, s.ProfitRate, s.TradeCount)
	}

	total, err := jnl.TotalProfit(ctx)
	if err != nil {
		return err
	}
	count, err := jnl.TotalTradeCount(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\ntotal profit %d over %d trades\n", total, count)

	return nil
}
