package journal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/seoulquant/autotrader/internal/model"
)

const (
	_queryInsertTrade = `INSERT INTO trades (ts, symbol, symbol_name, side, price, quantity, total, order_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id;`

	_queryUpsertSummary = `INSERT INTO daily_summaries (date, open_capital, close_capital, profit, profit_rate, trade_count)
		VALUES (:date, :open_capital, :close_capital, :profit, :profit_rate, :trade_count)
		ON CONFLICT (date) DO UPDATE SET
			open_capital = EXCLUDED.open_capital,
			close_capital = EXCLUDED.close_capital,
			profit = EXCLUDED.profit,
			profit_rate = EXCLUDED.profit_rate,
			trade_count = EXCLUDED.trade_count;`

	_queryTotalProfit = `SELECT COALESCE(SUM(profit), 0) FROM daily_summaries;`

	_queryTotalTradeCount = `SELECT COUNT(*) FROM trades;`

	_queryTradeCountOn = `SELECT COUNT(*) FROM trades WHERE ts >= $1 AND ts < $2;`

	_queryBotSymbols = `SELECT DISTINCT symbol FROM trades WHERE side = 'BUY';`

	_querySummaries = `SELECT date, open_capital, close_capital, profit, profit_rate, trade_count
		FROM daily_summaries WHERE date >= $1 AND date <= $2 ORDER BY date DESC;`
)

// TradeFilter narrows a Trades query. Zero-valued fields are ignored.
type TradeFilter struct {
	From   time.Time
	To     time.Time
	Symbol string
	Side   model.Side
}

// Journal is the append-only record of executed fills plus the per-day
// aggregates derived from them. Rows are never updated or deleted.
type Journal struct {
	db *sqlx.DB
}

func NewJournal(db *sqlx.DB) *Journal {
	return &Journal{db: db}
}

// Record appends one fill. Price and quantity are written as reported by the
// broker, without positivity checks, the broker is the source of truth for
// fills.
func (j *Journal) Record(ctx context.Context, ts time.Time, code, name string, side model.Side, price, quantity int64, orderRef string) (int64, error) {
	var id int64
	err := j.db.GetContext(ctx, &id, _queryInsertTrade,
		ts, code, name, side, price, quantity, price*quantity, orderRef, time.Now())
	if err != nil {
		return 0, fmt.Errorf("%w: can't record trade", err)
	}

	return id, nil
}

// Trades returns fills matching the filter, newest first.
func (j *Journal) Trades(ctx context.Context, filter TradeFilter) ([]model.TradeRecord, error) {
	query, args := buildTradesQuery(filter)

	var records []model.TradeRecord
	if err := j.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("%w: can't query trades", err)
	}

	return records, nil
}

// buildTradesQuery assembles the WHERE clause from the filter's non-zero
// fields. Kept separate from Trades so the assembly is testable without a
// database.
func buildTradesQuery(filter TradeFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)

	appendCond := func(expr string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}

	if !filter.From.IsZero() {
		appendCond("ts >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		appendCond("ts < $%d", filter.To)
	}
	if filter.Symbol != "" {
		appendCond("symbol = $%d", filter.Symbol)
	}
	if filter.Side != "" {
		appendCond("side = $%d", filter.Side)
	}

	query := `SELECT id, ts, symbol, symbol_name, side, price, quantity, total, order_ref, created_at FROM trades`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY ts DESC, id DESC;"

	return query, args
}

func (j *Journal) UpsertDailySummary(ctx context.Context, summary model.DailySummary) error {
	if _, err := j.db.NamedExecContext(ctx, _queryUpsertSummary, summary); err != nil {
		return fmt.Errorf("%w: can't upsert daily summary", err)
	}

	return nil
}

// DailySummaries returns the aggregates between two YYYY-MM-DD dates
// inclusive, newest first.
func (j *Journal) DailySummaries(ctx context.Context, from, to string) ([]model.DailySummary, error) {
	var summaries []model.DailySummary
	if err := j.db.SelectContext(ctx, &summaries, _querySummaries, from, to); err != nil {
		return nil, fmt.Errorf("%w: can't query daily summaries", err)
	}

	return summaries, nil
}

// TotalProfit sums the profit column across all daily summaries.
func (j *Journal) TotalProfit(ctx context.Context) (int64, error) {
	var total int64
	if err := j.db.GetContext(ctx, &total, _queryTotalProfit); err != nil {
		return 0, fmt.Errorf("%w: can't sum daily profit", err)
	}

	return total, nil
}

func (j *Journal) TotalTradeCount(ctx context.Context) (int64, error) {
	var count int64
	if err := j.db.GetContext(ctx, &count, _queryTotalTradeCount); err != nil {
		return 0, fmt.Errorf("%w: can't count trades", err)
	}

	return count, nil
}

// TradeCountOn counts fills recorded on the given calendar day.
func (j *Journal) TradeCountOn(ctx context.Context, day time.Time) (int64, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	var count int64
	if err := j.db.GetContext(ctx, &count, _queryTradeCountOn, start, end); err != nil {
		return 0, fmt.Errorf("%w: can't count trades for %s", err, start.Format("2006-01-02"))
	}

	return count, nil
}

// BotSymbols returns every symbol this bot has ever bought. The trading loop
// uses the set to avoid selling positions the owner holds manually.
func (j *Journal) BotSymbols(ctx context.Context) (map[string]struct{}, error) {
	var codes []string
	if err := j.db.SelectContext(ctx, &codes, _queryBotSymbols); err != nil {
		return nil, fmt.Errorf("%w: can't query bot symbols", err)
	}

	symbols := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		symbols[code] = struct{}{}
	}

	return symbols, nil
}
