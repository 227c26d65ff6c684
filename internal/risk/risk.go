// Package risk applies simple pre-trade limits to generated signals. Limits
// are enforced at the application layer so the simulation core stays unbiased.
package risk

// Limits caps trade size and concurrent exposure. Zero values disable the
// corresponding check.
type Limits struct {
	MaxNotionalPerTrade float64
	MaxOpenPositions    int
}

// Allow reports whether a trade of the given notional value fits within the
// per-trade cap.
func (l Limits) Allow(notional float64) bool {
	if l.MaxNotionalPerTrade <= 0 {
		return true
	}
	return notional <= l.MaxNotionalPerTrade
}

// AllowOpen reports whether another position may be opened given the current
// open count.
func (l Limits) AllowOpen(openPositions int) bool {
	if l.MaxOpenPositions <= 0 {
		return true
	}
	return openPositions < l.MaxOpenPositions
}
