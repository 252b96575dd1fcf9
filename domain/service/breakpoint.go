package service

import (
	"fmt"
	"math"
	"slices"
)

// BreakpointType selects the statistic used to pick chunk boundaries from
// the distances between adjacent sentence groups.
type BreakpointType string

// Breakpoint types.
const (
	BreakpointPercentile        BreakpointType = "percentile"
	BreakpointStandardDeviation BreakpointType = "standard_deviation"
	BreakpointInterquartile     BreakpointType = "interquartile"
	BreakpointGradient          BreakpointType = "gradient"
)

// DefaultAmount returns the threshold amount used when none is configured.
func (b BreakpointType) DefaultAmount() float64 {
	switch b {
	case BreakpointStandardDeviation:
		return 3
	case BreakpointInterquartile:
		return 1.5
	default:
		return 95
	}
}

// ParseBreakpointType validates a breakpoint type name.
func ParseBreakpointType(s string) (BreakpointType, error) {
	switch b := BreakpointType(s); b {
	case BreakpointPercentile, BreakpointStandardDeviation, BreakpointInterquartile, BreakpointGradient:
		return b, nil
	case "":
		return BreakpointPercentile, nil
	default:
		return "", fmt.Errorf("unknown breakpoint type %q", s)
	}
}

// breakpoints returns the indices i such that a boundary falls between
// sentence group i and i+1.
func breakpoints(distances []float64, kind BreakpointType, amount float64) []int {
	if len(distances) == 0 {
		return nil
	}

	scores := distances
	var threshold float64
	switch kind {
	case BreakpointStandardDeviation:
		mean, std := meanStd(distances)
		threshold = mean + amount*std
	case BreakpointInterquartile:
		mean, _ := meanStd(distances)
		iqr := percentile(distances, 75) - percentile(distances, 25)
		threshold = mean + amount*iqr
	case BreakpointGradient:
		scores = gradient(distances)
		threshold = percentile(scores, amount)
	default:
		threshold = percentile(distances, amount)
	}

	var indices []int
	for i, s := range scores {
		if s > threshold {
			indices = append(indices, i)
		}
	}
	return indices
}

// percentile uses linear interpolation between closest ranks.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	p = math.Max(0, math.Min(100, p))
	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

// meanStd returns the mean and population standard deviation.
func meanStd(values []float64) (float64, float64) {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}

// gradient uses central differences inside and one-sided differences at the edges.
func gradient(values []float64) []float64 {
	n := len(values)
	if n < 2 {
		return slices.Clone(values)
	}
	out := make([]float64, n)
	out[0] = values[1] - values[0]
	out[n-1] = values[n-1] - values[n-2]
	for i := 1; i < n-1; i++ {
		out[i] = (values[i+1] - values[i-1]) / 2
	}
	return out
}
