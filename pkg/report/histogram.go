package report

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Histogram counts values into equal-width bins. Bins are closed on the
// right; the lowest edge sits 0.1% of the range below the minimum so the
// minimum itself is counted.
type Histogram struct {
	Edges  []float64
	Counts []int
}

// NewHistogram returns nil for an empty input or a non-positive bin count.
// A range too wide to represent collapses into one bin spanning the values.
func NewHistogram(values []float64, bins int) *Histogram {
	if len(values) == 0 || bins < 1 {
		return nil
	}

	lo, hi := floats.Min(values), floats.Max(values)
	if math.IsInf(hi-lo, 0) || math.IsInf(hi+widen(hi), 0) || math.IsInf(lo-widen(lo), 0) {
		return &Histogram{Edges: []float64{lo, hi}, Counts: []int{len(values)}}
	}

	edges := make([]float64, bins+1)
	if lo == hi {
		lo -= widen(lo)
		hi += widen(hi)
		floats.Span(edges, lo, hi)
		edges[bins] = hi
	} else {
		floats.Span(edges, lo, hi)
		edges[bins] = hi
		edges[0] -= (hi - lo) * 0.001
	}

	counts := make([]int, bins)
	for _, v := range values {
		i := sort.SearchFloat64s(edges, v) - 1
		counts[min(max(i, 0), bins-1)]++
	}
	return &Histogram{Edges: edges, Counts: counts}
}

func widen(v float64) float64 {
	if v == 0 {
		return 0.001
	}
	if v < 0 {
		return -0.001 * v
	}
	return 0.001 * v
}

// Labels names every bin by its edges with one decimal.
func (h *Histogram) Labels() []string {
	labels := make([]string, len(h.Counts))
	for i := range h.Counts {
		labels[i] = fmt.Sprintf("%.1f-%.1f", h.Edges[i], h.Edges[i+1])
	}
	return labels
}

// Peak returns the index of the first fullest bin.
func (h *Histogram) Peak() int {
	peak := 0
	for i, count := range h.Counts {
		if count > h.Counts[peak] {
			peak = i
		}
	}
	return peak
}

func (h *Histogram) values() []float64 {
	values := make([]float64, len(h.Counts))
	for i, count := range h.Counts {
		values[i] = float64(count)
	}
	return values
}
