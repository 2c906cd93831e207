package strategy

import (
	"errors"
	"math"

	"github.com/seoulquant/autotrader/internal/model"
)

var InsufficientHistoryError = errors.New("insufficient history")

// SMA returns the arithmetic mean of the first period closes. Bars are ordered
// most-recent-first, so the window always starts at today.
func SMA(bars []model.Bar, period int) (float64, error) {
	if period <= 0 || len(bars) < period {
		return 0, InsufficientHistoryError
	}

	var sum int64
	for _, bar := range bars[:period] {
		sum += bar.Close
	}

	return float64(sum) / float64(period), nil
}

// BollingerBands returns mean +/- k standard deviations over the first period
// closes.
func BollingerBands(bars []model.Bar, period int, k float64) (upper, middle, lower float64, err error) {
	middle, err = SMA(bars, period)
	if err != nil {
		return 0, 0, 0, err
	}

	var variance float64
	for _, bar := range bars[:period] {
		d := float64(bar.Close) - middle
		variance += d * d
	}
	stddev := math.Sqrt(variance / float64(period))

	return middle + k*stddev, middle, middle - k*stddev, nil
}

// CheckBreakout reports whether today's close exceeds the highest high of the
// prior period bars, today excluded.
func CheckBreakout(bars []model.Bar, period int) bool {
	if period <= 0 || len(bars) < period+1 {
		return false
	}

	var highest int64
	for _, bar := range bars[1 : period+1] {
		if bar.High > highest {
			highest = bar.High
		}
	}

	return bars[0].Close > highest
}

// CheckTrendAlignment reports whether price sits above a rising stack of
// moving averages: price > sma5 > sma20 > sma60.
func CheckTrendAlignment(bars []model.Bar) bool {
	sma5, err := SMA(bars, 5)
	if err != nil {
		return false
	}
	sma20, err := SMA(bars, 20)
	if err != nil {
		return false
	}
	sma60, err := SMA(bars, 60)
	if err != nil {
		return false
	}

	price := float64(bars[0].Close)
	return price > sma5 && sma5 > sma20 && sma20 > sma60
}

// CheckGoldenCross reports whether the short SMA crossed above the long SMA
// exactly between yesterday and today.
func CheckGoldenCross(bars []model.Bar, short, long int) bool {
	todayShort, err := SMA(bars, short)
	if err != nil {
		return false
	}
	todayLong, err := SMA(bars, long)
	if err != nil {
		return false
	}

	if len(bars) < 2 {
		return false
	}
	yesterShort, err := SMA(bars[1:], short)
	if err != nil {
		return false
	}
	yesterLong, err := SMA(bars[1:], long)
	if err != nil {
		return false
	}

	return yesterShort <= yesterLong && todayShort > todayLong
}
