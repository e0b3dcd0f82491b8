// Package stats provides latency sample aggregation for the measurement
// harness: nanosecond samples in, percentiles out.
package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"pulse-exchange/domain"
)

// LatencyStats accumulates nanosecond latency samples. Recording is O(1)
// amortized; percentile queries sort a copy and are meant for the end of a
// run, not the hot path. Not safe for concurrent use.
type LatencyStats struct {
	samples []float64
	sum     float64
	min     float64
	max     float64
}

// NewLatencyStats creates an empty sample store.
func NewLatencyStats() *LatencyStats {
	return &LatencyStats{min: math.Inf(1), max: math.Inf(-1)}
}

// Add records one sample in nanoseconds.
func (s *LatencyStats) Add(ns domain.Duration) {
	v := float64(ns)
	s.samples = append(s.samples, v)
	s.sum += v
	if v < s.min {
		s.min = v
	}
	if v > s.max {
		s.max = v
	}
}

// Count returns the number of recorded samples.
func (s *LatencyStats) Count() int { return len(s.samples) }

// Min returns the smallest sample, or 0 when empty.
func (s *LatencyStats) Min() float64 {
	if len(s.samples) == 0 {
		return 0
	}
	return s.min
}

// Max returns the largest sample, or 0 when empty.
func (s *LatencyStats) Max() float64 {
	if len(s.samples) == 0 {
		return 0
	}
	return s.max
}

// Mean returns the arithmetic mean, or 0 when empty.
func (s *LatencyStats) Mean() float64 {
	if len(s.samples) == 0 {
		return 0
	}
	return s.sum / float64(len(s.samples))
}

// Percentile returns the p-th percentile (0 < p <= 100) with linear
// interpolation between adjacent samples.
func (s *LatencyStats) Percentile(p float64) float64 {
	n := len(s.samples)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, s.samples)
	sort.Float64s(sorted)

	if n == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(n-1)
	lo := int(rank)
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// Percentiles is the standard report bundle.
type Percentiles struct {
	P50  float64
	P90  float64
	P95  float64
	P99  float64
	P999 float64
}

// GetPercentiles computes the standard bundle in one pass over a single
// sorted copy.
func (s *LatencyStats) GetPercentiles() Percentiles {
	return Percentiles{
		P50:  s.Percentile(50),
		P90:  s.Percentile(90),
		P95:  s.Percentile(95),
		P99:  s.Percentile(99),
		P999: s.Percentile(99.9),
	}
}

// Reset discards all samples.
func (s *LatencyStats) Reset() {
	s.samples = s.samples[:0]
	s.sum = 0
	s.min = math.Inf(1)
	s.max = math.Inf(-1)
}

// Report renders a human-readable summary block.
func (s *LatencyStats) Report(title string) string {
	var b strings.Builder
	p := s.GetPercentiles()
	fmt.Fprintf(&b, "%s (%d samples)\n", title, s.Count())
	fmt.Fprintf(&b, "  Min:    %.2f ns\n", s.Min())
	fmt.Fprintf(&b, "  Mean:   %.2f ns\n", s.Mean())
	fmt.Fprintf(&b, "  P50:    %.2f ns\n", p.P50)
	fmt.Fprintf(&b, "  P90:    %.2f ns\n", p.P90)
	fmt.Fprintf(&b, "  P95:    %.2f ns\n", p.P95)
	fmt.Fprintf(&b, "  P99:    %.2f ns\n", p.P99)
	fmt.Fprintf(&b, "  P99.9:  %.2f ns\n", p.P999)
	fmt.Fprintf(&b, "  Max:    %.2f ns\n", s.Max())
	return b.String()
}
