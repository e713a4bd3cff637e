package trader

import "time"

// Config holds the trading-loop parameters. It is assembled once by the app
// wiring from the file configuration and never mutated afterwards.
type Config struct {
	// Markets is the scanned universe of condition ids. Iteration order is
	// the order trades are evaluated and executed.
	Markets []string

	ScanInterval time.Duration

	// Unsupervised gates real execution; when false every qualifying trade
	// is logged as "would place order" and skipped.
	Unsupervised bool

	MaxPositionSize        float64
	MinConfidenceThreshold float64
	MaxDailyTrades         int
	MaxOpenPositions       int
	RiskLimitPerTrade      float64
	MinExpectedValue       float64

	BuyThreshold  float64
	SellThreshold float64
	MinEdge       float64

	// FixedSize bypasses Kelly sizing when positive.
	FixedSize float64

	// SimpleGates enables the relaxed evaluation gate used in shakeout runs.
	SimpleGates bool

	// StartHour/EndHour bound trading to a UTC window; both zero disables
	// the window.
	StartHour int
	EndHour   int

	FetchWorkers int
}
