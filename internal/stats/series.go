// Package stats provides the small float-series statistics the strategy and
// result math are built from. Degenerate inputs yield NaN so callers can skip
// rather than branch on errors.
package stats

import "math"

// PctChange returns the percentage change between consecutive values.
// The result has len(values)-1 elements; fewer than two inputs yield nil.
func PctChange(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		out = append(out, (values[i]-values[i-1])/values[i-1])
	}
	return out
}

// Mean returns the arithmetic mean, or NaN for an empty series.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the sample standard deviation (n-1 denominator), or NaN when
// fewer than two values are supplied.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	mean := Mean(values)
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

// Correlation returns the Pearson correlation of two aligned series, or NaN
// when the series differ in length, are too short, or either side is constant.
func Correlation(a, b []float64) float64 {
	if len(a) != len(b) || len(a) < 2 {
		return math.NaN()
	}
	meanA, meanB := Mean(a), Mean(b)
	var cov, varA, varB float64
	for i := range a {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(varA*varB)
}

// ZScores normalizes a series against its own mean and standard deviation.
// A constant or too-short series yields NaN entries throughout.
func ZScores(values []float64) []float64 {
	mean := Mean(values)
	sd := StdDev(values)
	out := make([]float64, len(values))
	for i, v := range values {
		if sd == 0 || math.IsNaN(sd) {
			out[i] = math.NaN()
			continue
		}
		out[i] = (v - mean) / sd
	}
	return out
}

// Sub returns the element-wise difference a-b of two aligned series.
func Sub(a, b []float64) []float64 {
	if len(a) != len(b) {
		return nil
	}
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}
