package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/aegis-options/internal/contracts"
	"github.com/wonny/aegis-options/internal/filter"
	"github.com/wonny/aegis-options/internal/legstore"
)

var march = contracts.ExpirationKey{Year: 2026, Month: "H"}

func looseConfig() filter.Config {
	return filter.Config{
		MaxOpenLeft:  4,
		MaxOpenRight: 4,
		MaxPremium:   100,
		DeltaMin:     -10,
		DeltaMax:     10,
		MaxLossLeft:  100,
		MaxLossRight: 100,
		LimitLeft:    100,
		LimitRight:   100,
	}
}

func newStore(t *testing.T, step float64, density func(p float64) float64, legs ...legstore.LegInput) *legstore.Store {
	t.Helper()
	prices := legstore.UniformGrid(90, 110, step)
	d := make([]float64, len(prices))
	for i, p := range prices {
		d[i] = density(p)
	}
	for i := range legs {
		legs[i].Expiration = march
	}
	s, err := legstore.Build(legstore.Input{Prices: prices, Density: d, Legs: legs})
	require.NoError(t, err)
	return s
}

func flat(float64) float64 { return 1 }

func candidate(legs ...contracts.LegRef) contracts.Candidate {
	return contracts.Candidate{Legs: legs}
}

func TestVerticalSpreadBreakeven(t *testing.T) {
	store := newStore(t, 1, flat,
		legstore.LegInput{ID: "C95", Kind: "call", Strike: 95, Premium: 3},
		legstore.LegInput{ID: "C100", Kind: "call", Strike: 100, Premium: 1},
	)
	e := NewEngine(store, looseConfig(), true)

	res, reason := e.Evaluate(candidate(
		contracts.LegRef{Index: 0, Sign: contracts.Long},
		contracts.LegRef{Index: 1, Sign: contracts.Short},
	))
	require.Equal(t, filter.Pass, reason)

	require.Len(t, res.Breakevens, 1)
	assert.InDelta(t, 97.0, res.Breakevens[0], 1e-9)
	assert.InDelta(t, 2.0, res.Premium, 1e-12)
	assert.InDelta(t, 3.0, res.MaxProfit, 1e-12)
	assert.InDelta(t, -2.0, res.MaxLoss, 1e-12)
	assert.InDelta(t, -2.0, res.MaxLossLeft, 1e-12)
	assert.Equal(t, contracts.ProfitZone{Lower: 98, Upper: 110}, res.ProfitZone)
	assert.Equal(t, 2, res.CallCount)
	assert.Len(t, res.PnL, 21)
}

func TestLongStraddle(t *testing.T) {
	store := newStore(t, 1, flat,
		legstore.LegInput{ID: "C100", Kind: "call", Strike: 100, Premium: 2},
		legstore.LegInput{ID: "P100", Kind: "put", Strike: 100, Premium: 2},
	)
	e := NewEngine(store, looseConfig(), false)

	// store order: call before put at equal strike
	res, reason := e.Evaluate(candidate(
		contracts.LegRef{Index: 0, Sign: contracts.Long},
		contracts.LegRef{Index: 1, Sign: contracts.Long},
	))
	require.Equal(t, filter.Pass, reason)

	assert.InDelta(t, -4.0, res.MaxLoss, 1e-12)
	assert.InDelta(t, 6.0, res.MaxProfit, 1e-12)
	require.Len(t, res.Breakevens, 2)
	assert.InDelta(t, 96.0, res.Breakevens[0], 1e-9)
	assert.InDelta(t, 104.0, res.Breakevens[1], 1e-9)
	assert.Equal(t, 1, res.CallCount)
	assert.Equal(t, 1, res.PutCount)
	assert.Nil(t, res.PnL, "curve dropped when keepCurve=false")

	// E[|p-100|] on 90..110 is 110/21
	assert.InDelta(t, 110.0/21.0-4.0, res.AveragePnL, 1e-12)
	assert.Greater(t, res.SigmaPnL, 0.0)
	assert.InDelta(t, res.AveragePnL/4.0, res.AvgPnLLeverage, 1e-12)
}

func TestInterpolatedBreakevens(t *testing.T) {
	store := newStore(t, 2, flat,
		legstore.LegInput{ID: "C100", Kind: "call", Strike: 100, Premium: 2.5},
		legstore.LegInput{ID: "P100", Kind: "put", Strike: 100, Premium: 2.5},
	)
	e := NewEngine(store, looseConfig(), false)

	res, reason := e.Evaluate(candidate(
		contracts.LegRef{Index: 0, Sign: contracts.Long},
		contracts.LegRef{Index: 1, Sign: contracts.Long},
	))
	require.Equal(t, filter.Pass, reason)
	require.Len(t, res.Breakevens, 2)
	assert.InDelta(t, 95.0, res.Breakevens[0], 1e-9)
	assert.InDelta(t, 105.0, res.Breakevens[1], 1e-9)
}

func TestZoneRejections(t *testing.T) {
	// density only above 105: a short put has positive expectation
	upper := func(p float64) float64 {
		if p >= 105 {
			return 1
		}
		return 0
	}
	store := newStore(t, 1, upper,
		legstore.LegInput{ID: "P100", Kind: "put", Strike: 100, Premium: 2},
	)
	short := candidate(contracts.LegRef{Index: 0, Sign: contracts.Short})

	tests := []struct {
		name   string
		mutate func(*filter.Config)
		want   filter.Reason
	}{
		{"left cap", func(c *filter.Config) { c.MaxLossLeft = 5 }, filter.LossLeft},
		{"left cap wide enough", func(c *filter.Config) { c.MaxLossLeft = 8 }, filter.Pass},
		{"central zone capped by premium", func(c *filter.Config) { c.LimitLeft, c.LimitRight = 90, 110 }, filter.LossCenter},
		{"right cap", func(c *filter.Config) { c.LimitLeft, c.LimitRight = 80, 80 }, filter.Pass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := looseConfig()
			tt.mutate(&cfg)
			_, reason := NewEngine(store, cfg, false).Evaluate(short)
			assert.Equal(t, tt.want, reason)
		})
	}
}

func TestRightZoneRejection(t *testing.T) {
	lower := func(p float64) float64 {
		if p <= 95 {
			return 1
		}
		return 0
	}
	store := newStore(t, 1, lower,
		legstore.LegInput{ID: "C100", Kind: "call", Strike: 100, Premium: 2},
	)
	cfg := looseConfig()
	cfg.MaxLossRight = 5

	res, reason := NewEngine(store, cfg, false).Evaluate(candidate(contracts.LegRef{Index: 0, Sign: contracts.Short}))
	assert.Equal(t, filter.LossRight, reason)
	assert.Empty(t, res.Legs)
}

func TestSingleLegMatchesStoreMoments(t *testing.T) {
	store := newStore(t, 1, flat,
		legstore.LegInput{ID: "C100", Kind: "call", Strike: 100, Premium: 1, ImpliedVol: 0.2,
			Greeks: &contracts.Greeks{Delta: 0.5, Gamma: 0.05, Vega: 0.1, Theta: -0.02}},
	)
	res, reason := NewEngine(store, looseConfig(), false).Evaluate(candidate(contracts.LegRef{Index: 0, Sign: contracts.Long}))
	require.Equal(t, filter.Pass, reason)

	assert.InDelta(t, store.Leg(0).AveragePnL, res.AveragePnL, 1e-12)
	assert.InDelta(t, store.Leg(0).SigmaPnL, res.SigmaPnL, 1e-12)
	assert.Equal(t, 0.5, res.Greeks.Delta)
	assert.Equal(t, 0.5, res.Calls.Delta)
	assert.Zero(t, res.Puts.Delta)
	assert.InDelta(t, 0.2, res.AvgIV, 1e-12)
}

func TestGridMismatchPanics(t *testing.T) {
	assert.Panics(t, func() {
		AccumulateCurve(make([]float64, 3), contracts.Long, []float64{1, 2})
	})
}

func TestBreakevens(t *testing.T) {
	prices := []float64{0, 1, 2, 3, 4}

	tests := []struct {
		name string
		pnl  []float64
		want []float64
	}{
		{"no crossing", []float64{1, 2, 3, 2, 1}, []float64{}},
		{"touch zero without crossing", []float64{1, 0, 1, 2, 3}, []float64{}},
		{"interpolated", []float64{-1, 1, 2, 3, 4}, []float64{0.5}},
		{"zero run between signs", []float64{-1, 0, 0, 1, 1}, []float64{1}},
		{"leading zeros ignored", []float64{0, 0, -1, 1, 1}, []float64{2.5}},
		{"two crossings", []float64{2, -2, -2, 2, 2}, []float64{0.5, 2.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Breakevens(prices, tt.pnl)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-12)
			}
		})
	}
}

func TestProfitZoneNeverPositive(t *testing.T) {
	z := ProfitZone([]float64{1, 2, 3}, []float64{-1, 0, -2})
	assert.Equal(t, contracts.ProfitZone{}, z)
	assert.Zero(t, z.Width())
}

func TestSigmaZeroMass(t *testing.T) {
	assert.Zero(t, Sigma([]float64{1, 2}, []float64{0, 0}, 0, 1, 0))
}
