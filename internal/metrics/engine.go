package metrics

import (
	"math"

	"github.com/wonny/aegis-options/internal/contracts"
	"github.com/wonny/aegis-options/internal/filter"
	"gonum.org/v1/gonum/floats"
)

// minLeverageBase: 레버리지 분모 하한 (프리미엄 ~0 전략 보호)
const minLeverageBase = 0.005

// Engine evaluates candidates one at a time against a leg source
// ⭐ SSOT: 전략 지표 계산 (참조 구현). batch.Accelerated는 같은 커널을 재사용한다
type Engine struct {
	source    contracts.LegSource
	grid      *contracts.Grid
	mass      float64
	cfg       filter.Config
	keepCurve bool
}

// NewEngine creates a metrics engine
func NewEngine(source contracts.LegSource, cfg filter.Config, keepCurve bool) *Engine {
	grid := source.Grid()
	if grid.Len() == 0 {
		panic(contracts.Precondition("metrics.NewEngine", contracts.ErrEmptyGrid, ""))
	}
	return &Engine{
		source:    source,
		grid:      grid,
		mass:      Mass(grid),
		cfg:       cfg,
		keepCurve: keepCurve,
	}
}

// Mass returns Σ density·Δx of a grid
func Mass(grid *contracts.Grid) float64 {
	return floats.Sum(grid.Density) * grid.Step
}

// Evaluate runs filters and metrics for one candidate.
// Rejected candidates return a zero result and the rejection reason.
func (e *Engine) Evaluate(c contracts.Candidate) (contracts.StrategyResult, filter.Reason) {
	var view [contracts.MaxLegs]filter.Leg
	legs := view[:0]
	for _, ref := range c.Legs {
		legs = append(legs, filter.FromOption(e.source.Leg(ref.Index), ref.Sign))
	}
	if r := filter.Check(legs, &e.cfg); r != filter.Pass {
		return contracts.StrategyResult{}, r
	}

	pnl := make([]float64, e.grid.Len())
	var premium float64
	for _, ref := range c.Legs {
		leg := e.source.Leg(ref.Index)
		AccumulateCurve(pnl, ref.Sign, leg.PnL)
		premium += float64(ref.Sign) * leg.Premium
	}

	lossLeft, lossRight, r := CheckZones(e.grid.Prices, pnl, premium, &e.cfg)
	if r != filter.Pass {
		return contracts.StrategyResult{}, r
	}

	res := Aggregate(e.source, c)
	res.MaxLossLeft = lossLeft
	res.MaxLossRight = lossRight
	Summarize(&res, e.grid, e.mass, pnl)
	if e.keepCurve {
		res.PnL = pnl
	}
	return res, filter.Pass
}

// Curve returns the combined P&L curve of a candidate
func (e *Engine) Curve(c contracts.Candidate) []float64 {
	pnl := make([]float64, e.grid.Len())
	for _, ref := range c.Legs {
		AccumulateCurve(pnl, ref.Sign, e.source.Leg(ref.Index).PnL)
	}
	return pnl
}

// Aggregate computes the scalar (O(legs)) fields of a result
func Aggregate(source contracts.LegSource, c contracts.Candidate) contracts.StrategyResult {
	res := contracts.StrategyResult{
		Legs: make([]contracts.PositionLeg, 0, len(c.Legs)),
	}

	var ivWeighted, premiumWeight float64
	for _, ref := range c.Legs {
		leg := source.Leg(ref.Index)
		sign := float64(ref.Sign)

		res.Legs = append(res.Legs, contracts.PositionLeg{
			LegRef:     ref,
			ID:         leg.ID,
			Kind:       leg.Kind,
			Strike:     leg.Strike,
			Premium:    leg.Premium,
			Expiration: leg.Expiration,
		})

		res.Premium += sign * leg.Premium
		g := leg.EffectiveGreeks()
		if leg.IsCall() {
			res.Calls.AddSigned(sign, g)
			res.CallCount++
		} else {
			res.Puts.AddSigned(sign, g)
			res.PutCount++
		}
		res.Greeks.AddSigned(sign, g)

		res.TotalIV += sign * leg.ImpliedVol
		w := math.Abs(leg.Premium)
		ivWeighted += w * leg.ImpliedVol
		premiumWeight += w

		res.AveragePnL += sign * leg.AveragePnL
		res.Roll += sign * leg.Roll
		res.RollQuarterly += sign * leg.RollQuarterly
		res.RollSum += sign * leg.RollSum
	}

	if premiumWeight > 0 {
		res.AvgIV = ivWeighted / premiumWeight
	}
	res.AvgPnLLeverage = res.AveragePnL / math.Max(math.Abs(res.Premium), minLeverageBase)
	return res
}
