package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/seoulquant/autotrader/internal/model"
)

func TestBuildTradesQueryNoFilter(t *testing.T) {
	query, args := buildTradesQuery(TradeFilter{})

	assert.NotContains(t, query, "WHERE")
	assert.Contains(t, query, "ORDER BY ts DESC, id DESC")
	assert.Empty(t, args)
}

func TestBuildTradesQueryAllFilters(t *testing.T) {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

	query, args := buildTradesQuery(TradeFilter{
		From:   from,
		To:     to,
		Symbol: "005930",
		Side:   model.Buy,
	})

	assert.Contains(t, query, "ts >= $1")
	assert.Contains(t, query, "ts < $2")
	assert.Contains(t, query, "symbol = $3")
	assert.Contains(t, query, "side = $4")
	assert.Equal(t, []interface{}{from, to, "005930", model.Buy}, args)
}

func TestBuildTradesQueryPartialFilter(t *testing.T) {
	query, args := buildTradesQuery(TradeFilter{Symbol: "035720"})

	assert.Contains(t, query, "symbol = $1")
	assert.NotContains(t, query, "ts >=")
	assert.NotContains(t, query, "side =")
	assert.Equal(t, []interface{}{"035720"}, args)
}
