package batch_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/aegis-options/internal/batch"
	"github.com/wonny/aegis-options/internal/contracts"
	"github.com/wonny/aegis-options/internal/filter"
	"github.com/wonny/aegis-options/internal/generator"
	"github.com/wonny/aegis-options/internal/legstore"
	"github.com/wonny/aegis-options/internal/metrics"
)

// sixLegStore: 95/100/105 calls and puts, normal-ish density around 100
func sixLegStore(t *testing.T) *legstore.Store {
	t.Helper()
	prices := legstore.UniformGrid(80, 120, 0.5)
	density := make([]float64, len(prices))
	for i, p := range prices {
		z := (p - 100) / 6
		density[i] = math.Exp(-0.5 * z * z)
	}

	exp := contracts.ExpirationKey{Year: 2026, Month: "H"}
	g := func(d, gm, v, th float64) *contracts.Greeks {
		return &contracts.Greeks{Delta: d, Gamma: gm, Vega: v, Theta: th}
	}
	legs := []legstore.LegInput{
		{ID: "C95", Kind: "call", Strike: 95, Premium: 6.1, Expiration: exp, ImpliedVol: 0.22, Greeks: g(0.78, 0.03, 0.10, -0.04)},
		{ID: "C100", Kind: "call", Strike: 100, Premium: 2.5, Expiration: exp, ImpliedVol: 0.20, Greeks: g(0.50, 0.05, 0.14, -0.06)},
		{ID: "C105", Kind: "call", Strike: 105, Premium: 0.5, Expiration: exp, ImpliedVol: 0.21, Greeks: g(0.22, 0.03, 0.10, -0.03)},
		{ID: "P95", Kind: "put", Strike: 95, Premium: 0.5, Expiration: exp, ImpliedVol: 0.25, Greeks: g(-0.22, 0.03, 0.10, -0.03)},
		{ID: "P100", Kind: "put", Strike: 100, Premium: 2.4, Expiration: exp, ImpliedVol: 0.21, Greeks: g(-0.50, 0.05, 0.14, -0.06)},
		{ID: "P105", Kind: "put", Strike: 105, Premium: 5.9, Expiration: exp, ImpliedVol: 0.20, Greeks: g(-0.78, 0.03, 0.10, -0.04)},
	}

	s, err := legstore.Build(legstore.Input{Prices: prices, Density: density, Legs: legs})
	require.NoError(t, err)
	return s
}

func runConfig() *filter.Config {
	return &filter.Config{
		MinPremiumSell: 0.5,
		MaxOpenLeft:    1,
		MaxOpenRight:   1,
		MaxPremium:     8,
		DeltaMin:       -0.6,
		DeltaMax:       0.6,
		MaxLossLeft:    10,
		MaxLossRight:   10,
		LimitLeft:      98,
		LimitRight:     102,
	}
}

func allCandidates(store *legstore.Store, maxLegs int) *batch.Batch {
	gen := generator.New(store, generator.Options{MaxLegs: maxLegs})
	b := batch.New(maxLegs, int(gen.Count()))
	gen.FillBatch(b, int(gen.Count()))
	return b
}

func TestAcceleratedMatchesReference(t *testing.T) {
	store := sixLegStore(t)
	b := allCandidates(store, 3)
	cfg := runConfig()
	ctx := context.Background()

	ref, err := batch.NewReference(store, true).Evaluate(ctx, b, cfg)
	require.NoError(t, err)

	cache := batch.NewCache(store)
	defer cache.Release()
	acc, err := batch.NewAccelerated(cache, batch.AcceleratedOptions{Partitions: 3, KeepCurve: true}).Evaluate(ctx, b, cfg)
	require.NoError(t, err)

	require.NotEmpty(t, ref.Results, "fixture must produce survivors")
	assert.Less(t, len(ref.Results), b.Rows(), "fixture must reject something")

	assert.Equal(t, ref.Tally, acc.Tally)
	require.Equal(t, len(ref.Results), len(acc.Results))
	for i := range ref.Results {
		assert.Equal(t, ref.Results[i], acc.Results[i], "row %d (%s)", i, ref.Results[i].Key())
	}
	assert.Equal(t, int64(b.Rows()), ref.Tally.Total())
}

// 손실 구간 한도를 조일수록 생존자는 늘지 않고, 이전 생존자의 부분집합이어야 한다
func TestZoneLimitsMonotonic(t *testing.T) {
	store := sixLegStore(t)
	b := allCandidates(store, 3)
	cache := batch.NewCache(store)
	defer cache.Release()
	ev := batch.NewAccelerated(cache, batch.AcceleratedOptions{Partitions: 2})

	evaluate := func(cfg *filter.Config) *batch.Output {
		out, err := ev.Evaluate(context.Background(), b, cfg)
		require.NoError(t, err)
		return out
	}
	zoneRejects := func(out *batch.Output) int64 {
		m := out.Tally.Map()
		return m["loss_left"] + m["loss_right"]
	}
	survivorKeys := func(out *batch.Output) map[string]bool {
		keys := make(map[string]bool, len(out.Results))
		for i := range out.Results {
			keys[out.Results[i].Key()] = true
		}
		return keys
	}

	tests := []struct {
		name   string
		mutate func(c *filter.Config, limit float64)
	}{
		{"max loss left", func(c *filter.Config, limit float64) { c.MaxLossLeft = limit }},
		{"max loss right", func(c *filter.Config, limit float64) { c.MaxLossRight = limit }},
		{"both sides", func(c *filter.Config, limit float64) { c.MaxLossLeft, c.MaxLossRight = limit, limit }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := evaluate(runConfig())
			require.NotEmpty(t, base.Results)

			prev := base
			for _, limit := range []float64{8, 5, 3, 2, 1, 0.5, 0.25} {
				cfg := runConfig()
				tt.mutate(cfg, limit)
				out := evaluate(cfg)

				assert.LessOrEqual(t, len(out.Results), len(prev.Results), "limit %v", limit)
				prevKeys := survivorKeys(prev)
				for key := range survivorKeys(out) {
					assert.True(t, prevKeys[key], "limit %v: %s survived only the tighter limit", limit, key)
				}
				assert.Equal(t, int64(b.Rows()), out.Tally.Total())
				prev = out
			}
			assert.Greater(t, zoneRejects(prev), zoneRejects(base))
		})
	}
}

func TestAcceleratedDeterministic(t *testing.T) {
	store := sixLegStore(t)
	b := allCandidates(store, 3)
	cache := batch.NewCache(store)

	first, err := batch.NewAccelerated(cache, batch.AcceleratedOptions{Partitions: 4}).Evaluate(context.Background(), b, runConfig())
	require.NoError(t, err)
	second, err := batch.NewAccelerated(cache, batch.AcceleratedOptions{Partitions: 1}).Evaluate(context.Background(), b, runConfig())
	require.NoError(t, err)

	assert.Equal(t, first.Results, second.Results)
	for _, r := range first.Results {
		assert.Nil(t, r.PnL)
	}
}

func TestCacheCurveMatchesEngine(t *testing.T) {
	store := sixLegStore(t)
	cache := batch.NewCache(store)
	cand := contracts.Candidate{Legs: []contracts.LegRef{{Index: 1, Sign: contracts.Long}, {Index: 4, Sign: contracts.Long}}}

	engine := metrics.NewEngine(store, *runConfig(), false)
	curve := cache.Curve(cand)
	assert.Equal(t, engine.Curve(cand), curve)

	// memoized: same backing array
	again := cache.Curve(cand)
	assert.Same(t, &curve[0], &again[0])
}

func TestFingerprint(t *testing.T) {
	a := contracts.Candidate{Legs: []contracts.LegRef{{Index: 1, Sign: 1}, {Index: 2, Sign: -1}}}
	b := contracts.Candidate{Legs: []contracts.LegRef{{Index: 1, Sign: 1}, {Index: 2, Sign: 1}}}
	assert.Equal(t, batch.Fingerprint(a), batch.Fingerprint(a))
	assert.NotEqual(t, batch.Fingerprint(a), batch.Fingerprint(b))
}

func TestProcessBatch(t *testing.T) {
	store := sixLegStore(t)
	ev := batch.NewReference(store, false)
	cfg := runConfig()

	out, err := batch.ProcessBatch(context.Background(), ev,
		[][]int32{{1, 4}, {0}},
		[][]int8{{1, 1}, {-1}},
		[]uint8{2, 1},
		cfg,
	)
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Tally.Total())
}

func TestProcessBatchPreconditions(t *testing.T) {
	store := sixLegStore(t)
	ev := batch.NewAccelerated(batch.NewCache(store), batch.AcceleratedOptions{})
	cfg := runConfig()

	tests := []struct {
		name    string
		idx     [][]int32
		signs   [][]int8
		lengths []uint8
		wantErr error
	}{
		{"row count mismatch", [][]int32{{0}}, [][]int8{}, []uint8{1}, contracts.ErrInvalidBatch},
		{"zero length row", [][]int32{{0}}, [][]int8{{1}}, []uint8{0}, contracts.ErrInvalidBatch},
		{"too many legs", [][]int32{{0, 0, 0, 0, 0}}, [][]int8{{1, 1, 1, 1, 1}}, []uint8{5}, contracts.ErrInvalidBatch},
		{"index out of range", [][]int32{{9}}, [][]int8{{1}}, []uint8{1}, contracts.ErrLegIndex},
		{"bad sign", [][]int32{{0}}, [][]int8{{0}}, []uint8{1}, contracts.ErrInvalidBatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := batch.ProcessBatch(context.Background(), ev, tt.idx, tt.signs, tt.lengths, cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestEvaluateCanceled(t *testing.T) {
	store := sixLegStore(t)
	b := allCandidates(store, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := batch.NewReference(store, false).Evaluate(ctx, b, runConfig())
	assert.ErrorIs(t, err, context.Canceled)

	_, err = batch.NewAccelerated(batch.NewCache(store), batch.AcceleratedOptions{Partitions: 2}).Evaluate(ctx, b, runConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBatchRoundTrip(t *testing.T) {
	b := batch.New(3, 2)
	c := contracts.Candidate{Legs: []contracts.LegRef{{Index: 2, Sign: 1}, {Index: 5, Sign: -1}}}
	b.Append(c)
	assert.Equal(t, 1, b.Rows())
	assert.Equal(t, c, b.Candidate(0))

	b.Reset()
	assert.Zero(t, b.Rows())
}
