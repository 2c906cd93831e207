package model

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// SymbolStatus is the per-symbol order-lifecycle state owned by the trading
// manager. The GUI renders it, nothing else mutates it.
type SymbolStatus string

const (
	Watching SymbolStatus = "watching"
	Ordering SymbolStatus = "ordering"
	Filled   SymbolStatus = "filled"
)

type WatchSource string

const (
	SourceManual     WatchSource = "manual"
	SourceDiscovered WatchSource = "discovered"
)

type WatchEntry struct {
	Code        string
	Name        string
	Source      WatchSource
	TargetPrice int64 // 0 until computed
	HasTarget   bool
	Status      SymbolStatus
	Profile     string // discovery profile that promoted the symbol, if any
}
