// Package risk holds the guard-rails the live loop checks before deploying
// size.
package risk

// Limits encodes per-trade and portfolio-level caps. Zero values disable the
// corresponding check.
type Limits struct {
	MaxNotionalPerTrade float64
	MaxDailyLoss        float64
	KillSwitchDrawdown  float64 // fraction of peak equity
}

// Allow reports whether a single order of the given notional may go out.
func (l Limits) Allow(notional float64) bool {
	if l.MaxNotionalPerTrade <= 0 {
		return true
	}
	return notional <= l.MaxNotionalPerTrade
}

// Breached reports whether equity has fallen far enough from its peak to trip
// the kill switch.
func (l Limits) Breached(equity, peak float64) bool {
	if l.KillSwitchDrawdown <= 0 || peak <= 0 {
		return false
	}
	return (peak-equity)/peak >= l.KillSwitchDrawdown
}
