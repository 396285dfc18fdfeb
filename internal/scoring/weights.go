package scoring

import (
	"fmt"
	"sort"
)

// Weights maps metrics to non-negative weights. Missing metrics weigh 0.
type Weights map[Metric]float64

// ParseWeights converts named weights. Unknown names are ignored and returned.
func ParseWeights(named map[string]float64) (Weights, []string, error) {
	w := make(Weights, len(named))
	var unknown []string
	for name, v := range named {
		m, ok := ParseMetric(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if v < 0 {
			return nil, nil, fmt.Errorf("weight %s must be >= 0, got %v", name, v)
		}
		w[m] = v
	}
	sort.Strings(unknown)
	return w, unknown, nil
}

// Sum returns the total weight
func (w Weights) Sum() float64 {
	var s float64
	for _, v := range w {
		s += v
	}
	return s
}

// Normalized returns a copy scaled to sum to 1 (unchanged if the sum is 0)
func (w Weights) Normalized() Weights {
	sum := w.Sum()
	out := make(Weights, len(w))
	for m, v := range w {
		if sum > 0 {
			out[m] = v / sum
		} else {
			out[m] = v
		}
	}
	return out
}

// active returns metrics with positive weight in declaration order
func (w Weights) active() []Metric {
	out := make([]Metric, 0, len(w))
	for m := Metric(0); m < numMetrics; m++ {
		if w[m] > 0 {
			out = append(out, m)
		}
	}
	return out
}

// Named returns the weights keyed by metric name (config, JSON)
func (w Weights) Named() map[string]float64 {
	out := make(map[string]float64, len(w))
	for m, v := range w {
		out[m.String()] = v
	}
	return out
}

// DefaultWeights returns the default blend
func DefaultWeights() Weights {
	return Weights{
		AveragePnL:      0.30,
		SigmaPnL:        0.10,
		MaxLoss:         0.20,
		PremiumLow:      0.10,
		DeltaNeutral:    0.10,
		ProfitZoneWidth: 0.10,
		AvgPnLLeverage:  0.10,
	}
	// Total: 100%
}
