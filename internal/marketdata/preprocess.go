package marketdata

import (
	"math"

	"statarb-go/internal/stats"
)

// FillMethod selects how gaps are bridged before statistics run.
type FillMethod string

const (
	FillForward     FillMethod = "ffill"
	FillBackward    FillMethod = "bfill"
	FillInterpolate FillMethod = "interpolate"
)

// PreprocessOptions tunes gap filling and row coverage requirements.
type PreprocessOptions struct {
	Fill FillMethod
	// MinCoverage is the minimum number of populated symbols a row needs to
	// survive; rows below it are dropped entirely.
	MinCoverage int
}

// Preprocess cleans a raw panel: bridge gaps with the configured fill, drop
// rows with too little symbol coverage, clip values beyond three per-symbol
// standard deviations back to missing, and forward-fill the holes that leaves.
// The returned panel contains only fully populated rows.
func Preprocess(panel PricePanel, opts PreprocessOptions) PricePanel {
	symbols := panel.Symbols()
	if panel.Len() == 0 || len(symbols) == 0 {
		return PricePanel{}
	}
	if opts.Fill == "" {
		opts.Fill = FillForward
	}

	columns := make(map[string][]float64, len(symbols))
	for _, sym := range symbols {
		col := panel.Column(sym)
		fill(col, opts.Fill)
		columns[sym] = col
	}

	for _, sym := range symbols {
		clipOutliers(columns[sym])
		forwardFill(columns[sym])
	}

	var out PricePanel
	for i := 0; i < panel.Len(); i++ {
		row := make(map[string]float64, len(symbols))
		for _, sym := range symbols {
			if v := columns[sym][i]; !math.IsNaN(v) {
				row[sym] = v
			}
		}
		if len(row) < opts.MinCoverage || len(row) < len(symbols) {
			continue
		}
		out.Append(panel.Time(i), row)
	}
	return out
}

func fill(col []float64, method FillMethod) {
	switch method {
	case FillBackward:
		backwardFill(col)
	case FillInterpolate:
		interpolate(col)
	default:
		forwardFill(col)
	}
}

func forwardFill(col []float64) {
	last := math.NaN()
	for i, v := range col {
		if math.IsNaN(v) {
			col[i] = last
		} else {
			last = v
		}
	}
}

func backwardFill(col []float64) {
	next := math.NaN()
	for i := len(col) - 1; i >= 0; i-- {
		if math.IsNaN(col[i]) {
			col[i] = next
		} else {
			next = col[i]
		}
	}
}

func interpolate(col []float64) {
	prev := -1
	for i, v := range col {
		if math.IsNaN(v) {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			step := (v - col[prev]) / float64(i-prev)
			for j := prev + 1; j < i; j++ {
				col[j] = col[prev] + step*float64(j-prev)
			}
		}
		prev = i
	}
}

// clipOutliers blanks values more than three standard deviations from the
// column mean, computed over the populated entries only.
func clipOutliers(col []float64) {
	clean := make([]float64, 0, len(col))
	for _, v := range col {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	mean := stats.Mean(clean)
	sd := stats.StdDev(clean)
	if math.IsNaN(sd) || sd == 0 {
		return
	}
	for i, v := range col {
		if !math.IsNaN(v) && math.Abs(v-mean)/sd > 3 {
			col[i] = math.NaN()
		}
	}
}
