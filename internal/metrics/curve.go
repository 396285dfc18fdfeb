package metrics

import (
	"math"

	"github.com/wonny/aegis-options/internal/contracts"
	"github.com/wonny/aegis-options/internal/filter"
	"gonum.org/v1/gonum/floats"
)

// AccumulateCurve adds sign * legPnL into dst
func AccumulateCurve(dst []float64, sign int8, legPnL []float64) {
	if len(legPnL) != len(dst) {
		panic(contracts.Precondition("metrics.AccumulateCurve", contracts.ErrGridMismatch,
			"leg has %d points, grid has %d", len(legPnL), len(dst)))
	}
	floats.AddScaled(dst, float64(sign), legPnL)
}

// CheckZones scans the curve against the pivot band caps.
// 좌측(< LimitLeft)과 우측(> LimitRight)은 각자의 상한, 중앙은 |premium| 이내
// Returns the worst loss on each side (<= 0) and the first violated zone.
func CheckZones(prices, pnl []float64, premium float64, cfg *filter.Config) (lossLeft, lossRight float64, reason filter.Reason) {
	centerCap := -math.Abs(premium)
	for i, p := range prices {
		v := pnl[i]
		switch {
		case p < cfg.LimitLeft:
			if v < -cfg.MaxLossLeft {
				return lossLeft, lossRight, filter.LossLeft
			}
			if v < lossLeft {
				lossLeft = v
			}
		case p > cfg.LimitRight:
			if v < -cfg.MaxLossRight {
				return lossLeft, lossRight, filter.LossRight
			}
			if v < lossRight {
				lossRight = v
			}
		default:
			if v < centerCap {
				return lossLeft, lossRight, filter.LossCenter
			}
		}
	}
	return lossLeft, lossRight, filter.Pass
}

func signOf(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// Breakevens returns the prices where the curve changes sign.
// 정확히 0인 샘플 구간이 부호 전환 사이에 있으면 그 구간의 첫 가격을 쓴다
func Breakevens(prices, pnl []float64) []float64 {
	out := make([]float64, 0, 2)
	lastSign, lastIdx, zeroStart := 0, -1, -1

	for i, y := range pnl {
		s := signOf(y)
		if s == 0 {
			if zeroStart < 0 {
				zeroStart = i
			}
			continue
		}
		if lastSign != 0 && s != lastSign {
			if zeroStart >= 0 {
				out = append(out, prices[zeroStart])
			} else {
				out = append(out, crossing(prices[lastIdx], prices[i], pnl[lastIdx], y))
			}
		}
		lastSign, lastIdx, zeroStart = s, i, -1
	}
	return out
}

// crossing interpolates the zero between (x0,y0) and (x1,y1)
func crossing(x0, x1, y0, y1 float64) float64 {
	denom := y1 - y0
	if denom == 0 {
		return x0
	}
	return x0 + (x1-x0)*(-y0/denom)
}

// ProfitZone returns [first, last] price with positive P&L; zero value if never positive
func ProfitZone(prices, pnl []float64) contracts.ProfitZone {
	first, last := -1, -1
	for i, v := range pnl {
		if v > 0 {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return contracts.ProfitZone{}
	}
	return contracts.ProfitZone{Lower: prices[first], Upper: prices[last]}
}

// Sigma returns sqrt(Σ d·(pnl-avg)²·Δx / Σ d·Δx)
func Sigma(pnl, density []float64, avg, step, mass float64) float64 {
	if mass <= 0 {
		return 0
	}
	var v float64
	for i, d := range density {
		diff := pnl[i] - avg
		v += d * diff * diff * step
	}
	return math.Sqrt(math.Max(v/mass, 0))
}

// Summarize fills the curve-derived fields of a result. AveragePnL must already be set.
func Summarize(res *contracts.StrategyResult, grid *contracts.Grid, mass float64, pnl []float64) {
	res.MaxProfit = floats.Max(pnl)
	res.MaxLoss = floats.Min(pnl)
	res.Breakevens = Breakevens(grid.Prices, pnl)
	res.ProfitZone = ProfitZone(grid.Prices, pnl)
	res.SigmaPnL = Sigma(pnl, grid.Density, res.AveragePnL, grid.Step, mass)
}
