package discovery

import (
	"github.com/seoulquant/autotrader/internal/config"
	"github.com/seoulquant/autotrader/internal/model"
	"github.com/seoulquant/autotrader/internal/strategy"
)

// passesProfile applies the precision filter for the configured discovery
// profile over a most-recent-first bar sequence. Insufficient history always
// fails closed.
func passesProfile(profile config.DiscoveryProfile, bars []model.Bar) bool {
	switch profile {
	case config.ProfileBreakout:
		return strategy.CheckBreakout(bars, 20)
	case config.ProfileTrend:
		// either an established trend or a fresh cross qualifies
		return strategy.CheckTrendAlignment(bars) || strategy.CheckGoldenCross(bars, 5, 20)
	case config.ProfileBollinger:
		upper, _, _, err := strategy.BollingerBands(bars, 20, 2)
		if err != nil {
			return false
		}
		return len(bars) > 0 && float64(bars[0].Close) > upper
	case config.ProfileCustom:
		// broker-side condition search already filtered
		return true
	default:
		return false
	}
}
