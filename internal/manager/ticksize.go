package manager

// RoundDownToTick snaps a price down to the exchange tick-size band it falls
// in. Limit prices off the tick grid are rejected by the exchange.
func RoundDownToTick(price int64) int64 {
	tick := tickSize(price)
	return price - price%tick
}

func tickSize(price int64) int64 {
	switch {
	case price < 1_000:
		return 1
	case price < 5_000:
		return 5
	case price < 10_000:
		return 10
	case price < 50_000:
		return 50
	default:
		return 100
	}
}
