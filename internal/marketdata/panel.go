// Package marketdata hosts price-panel types and the pluggable providers that
// produce them.
package marketdata

import (
	"math"
	"sort"
	"time"
)

// PricePanel is a time-ordered table of per-symbol prices. Every timestamp is
// normalized to UTC on insertion so range filtering and sub-panel slicing never
// compare across zones.
type PricePanel struct {
	times []time.Time
	rows  []map[string]float64
}

// Append adds one observation row. Rows must arrive in ascending time order;
// out-of-order rows are inserted at their sorted position.
func (p *PricePanel) Append(ts time.Time, prices map[string]float64) {
	row := make(map[string]float64, len(prices))
	for sym, px := range prices {
		row[sym] = px
	}
	ts = ts.UTC()
	if n := len(p.times); n == 0 || !ts.Before(p.times[n-1]) {
		p.times = append(p.times, ts)
		p.rows = append(p.rows, row)
		return
	}
	i := sort.Search(len(p.times), func(i int) bool { return p.times[i].After(ts) })
	p.times = append(p.times, time.Time{})
	p.rows = append(p.rows, nil)
	copy(p.times[i+1:], p.times[i:])
	copy(p.rows[i+1:], p.rows[i:])
	p.times[i] = ts
	p.rows[i] = row
}

// Len returns the number of rows.
func (p PricePanel) Len() int { return len(p.times) }

// Time returns the timestamp of row i.
func (p PricePanel) Time(i int) time.Time { return p.times[i] }

// Times returns a copy of all row timestamps.
func (p PricePanel) Times() []time.Time {
	out := make([]time.Time, len(p.times))
	copy(out, p.times)
	return out
}

// Price returns the price of symbol at row i.
func (p PricePanel) Price(i int, symbol string) (float64, bool) {
	px, ok := p.rows[i][symbol]
	return px, ok
}

// Row returns a copy of the prices at row i.
func (p PricePanel) Row(i int) map[string]float64 {
	out := make(map[string]float64, len(p.rows[i]))
	for sym, px := range p.rows[i] {
		out[sym] = px
	}
	return out
}

// Symbols returns the sorted union of symbols across all rows.
func (p PricePanel) Symbols() []string {
	seen := make(map[string]struct{})
	for _, row := range p.rows {
		for sym := range row {
			seen[sym] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for sym := range seen {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Column returns the full price series for symbol, one value per row. Rows
// missing the symbol contribute NaN so downstream statistics surface the gap
// instead of silently misaligning.
func (p PricePanel) Column(symbol string) []float64 {
	out := make([]float64, len(p.rows))
	for i, row := range p.rows {
		if px, ok := row[symbol]; ok {
			out[i] = px
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// UpTo returns the sub-panel of rows [0, i]. The result shares backing storage
// with the receiver and must be treated as read-only.
func (p PricePanel) UpTo(i int) PricePanel {
	if i < 0 {
		return PricePanel{}
	}
	if i >= len(p.times) {
		i = len(p.times) - 1
	}
	return PricePanel{times: p.times[:i+1], rows: p.rows[:i+1]}
}

// Between returns the sub-panel with timestamps in [start, end] inclusive. Nil
// bounds are open; non-UTC bounds are converted before comparison.
func (p PricePanel) Between(start, end *time.Time) PricePanel {
	lo, hi := 0, len(p.times)
	if start != nil {
		s := start.UTC()
		lo = sort.Search(len(p.times), func(i int) bool { return !p.times[i].Before(s) })
	}
	if end != nil {
		e := end.UTC()
		hi = sort.Search(len(p.times), func(i int) bool { return p.times[i].After(e) })
	}
	if lo >= hi {
		return PricePanel{}
	}
	return PricePanel{times: p.times[lo:hi], rows: p.rows[lo:hi]}
}
