package scoring

import (
	"math"

	"github.com/wonny/aegis-options/internal/contracts"
)

// Metric is a scoring criterion. The set is closed: every kind carries its
// extractor, normalizer and scorer below.
type Metric int

const (
	DeltaNeutral Metric = iota
	GammaLow
	VegaLow
	ThetaPositive
	PremiumLow
	ImpliedVolModerate
	AveragePnL
	SigmaPnL
	Roll
	RollQuarterly
	RollSum
	AvgPnLLeverage
	MaxLoss
	MaxProfit
	ProfitZoneWidth

	numMetrics
)

var metricNames = [numMetrics]string{
	DeltaNeutral:       "delta_neutral",
	GammaLow:           "gamma_low",
	VegaLow:            "vega_low",
	ThetaPositive:      "theta_positive",
	PremiumLow:         "premium",
	ImpliedVolModerate: "implied_vol_moderate",
	AveragePnL:         "average_pnl",
	SigmaPnL:           "sigma_pnl",
	Roll:               "roll",
	RollQuarterly:      "roll_quarterly",
	RollSum:            "roll_sum",
	AvgPnLLeverage:     "avg_pnl_leverage",
	MaxLoss:            "max_loss",
	MaxProfit:          "max_profit",
	ProfitZoneWidth:    "profit_zone_width",
}

func (m Metric) String() string {
	if m < 0 || m >= numMetrics {
		return "unknown"
	}
	return metricNames[m]
}

// ParseMetric looks a metric up by name
func ParseMetric(name string) (Metric, bool) {
	for m, n := range metricNames {
		if n == name {
			return Metric(m), true
		}
	}
	return 0, false
}

// Metrics returns every metric kind in declaration order
func Metrics() []Metric {
	out := make([]Metric, numMetrics)
	for i := range out {
		out[i] = Metric(i)
	}
	return out
}

// Normalizer selects how the population range is computed
type Normalizer int

const (
	NormMax    Normalizer = iota // [0, max|v|]
	NormMinMax                   // [min, max] over nonzero values; [0, v] for a single positive v
)

// Scorer maps a value into [0, 1] given the population range
type Scorer int

const (
	HigherBetter Scorer = iota
	LowerBetter
	ModerateBetter
	PositiveBetter
)

// Extract pulls the raw value. Non-finite values become 0.
func (m Metric) Extract(r *contracts.StrategyResult) float64 {
	var v float64
	switch m {
	case DeltaNeutral:
		v = math.Abs(r.Greeks.Delta)
	case GammaLow:
		v = math.Abs(r.Greeks.Gamma)
	case VegaLow:
		v = math.Abs(r.Greeks.Vega)
	case ThetaPositive:
		v = r.Greeks.Theta
	case PremiumLow:
		v = math.Abs(r.Premium)
	case ImpliedVolModerate:
		v = r.AvgIV
	case AveragePnL:
		v = r.AveragePnL
	case SigmaPnL:
		v = r.SigmaPnL
	case Roll:
		v = r.Roll
	case RollQuarterly:
		v = r.RollQuarterly
	case RollSum:
		v = r.RollSum
	case AvgPnLLeverage:
		v = r.AvgPnLLeverage
	case MaxLoss:
		v = math.Abs(r.MaxLoss)
	case MaxProfit:
		v = r.MaxProfit
	case ProfitZoneWidth:
		v = r.ProfitZoneWidth()
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Normalizer returns the range rule of the metric
func (m Metric) Normalizer() Normalizer {
	switch m {
	case ThetaPositive, ImpliedVolModerate, AveragePnL, Roll, RollQuarterly, RollSum, ProfitZoneWidth:
		return NormMinMax
	default:
		return NormMax
	}
}

// Scorer returns the preference direction of the metric
func (m Metric) Scorer() Scorer {
	switch m {
	case DeltaNeutral, GammaLow, VegaLow, PremiumLow, SigmaPnL, MaxLoss:
		return LowerBetter
	case ImpliedVolModerate:
		return ModerateBetter
	case RollSum:
		return PositiveBetter
	default:
		return HigherBetter
	}
}

// Bounds computes the normalization range of values under n
func Bounds(n Normalizer, values []float64) (lo, hi float64) {
	switch n {
	case NormMinMax:
		found := false
		for _, v := range values {
			if v == 0 {
				continue
			}
			if !found {
				lo, hi, found = v, v, true
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if !found {
			return 0, 1
		}
		// 0이 아닌 값이 하나뿐이면 [0, v]로 펼쳐 유일한 최대값이 1.0이 되게 한다
		if lo == hi && hi > 0 {
			return 0, hi
		}
	default:
		for _, v := range values {
			hi = math.Max(hi, math.Abs(v))
		}
		if hi == 0 {
			return 0, 1
		}
	}
	if lo == hi {
		hi = lo + 1
	}
	return lo, hi
}

// SubScore scores v against [lo, hi], clamped to [0, 1]
func SubScore(s Scorer, v, lo, hi float64) float64 {
	var out float64
	switch s {
	case HigherBetter:
		if hi > 0 {
			out = v / hi
		}
	case LowerBetter:
		if hi > lo {
			out = 1 - (v-lo)/(hi-lo)
		}
	case ModerateBetter:
		if hi > 0 {
			out = 1 - 2*math.Abs(v/hi-0.5)
		}
	case PositiveBetter:
		if v >= 0 && hi > lo {
			out = (v - lo) / (hi - lo)
		}
	}
	return clamp01(out)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
