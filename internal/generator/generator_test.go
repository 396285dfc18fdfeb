package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/aegis-options/internal/batch"
	"github.com/wonny/aegis-options/internal/contracts"
	"github.com/wonny/aegis-options/internal/legstore"
)

func buildStore(t *testing.T, months ...string) *legstore.Store {
	t.Helper()
	prices := legstore.UniformGrid(90, 110, 1)
	density := make([]float64, len(prices))
	for i := range density {
		density[i] = 1
	}

	legs := make([]legstore.LegInput, len(months))
	for i, m := range months {
		legs[i] = legstore.LegInput{
			ID:         m,
			Kind:       "call",
			Strike:     95 + float64(i),
			Premium:    1,
			Expiration: contracts.ExpirationKey{Year: 2026, Month: m},
		}
	}

	s, err := legstore.Build(legstore.Input{Prices: prices, Density: density, Legs: legs})
	require.NoError(t, err)
	return s
}

func collect(g *Generator) []contracts.Candidate {
	var out []contracts.Candidate
	for g.Next() {
		out = append(out, g.Candidate())
	}
	return out
}

func TestParseSignMode(t *testing.T) {
	tests := []struct {
		in   string
		want SignMode
		err  bool
	}{
		{"", SignBoth, false},
		{"both", SignBoth, false},
		{"long_only", SignLongOnly, false},
		{"SHORT_ONLY", SignShortOnly, false},
		{"mixed", SignBoth, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSignMode(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, got.String())
		})
	}
}

func TestGeneratorCounts(t *testing.T) {
	store := buildStore(t, "H", "H", "H")

	tests := []struct {
		name string
		opts Options
		want int
	}{
		// multisets over 3 legs: k=1:3, k=2:6, k=3:10
		{"single leg both signs", Options{MaxLegs: 1}, 3 * 2},
		{"two legs both signs", Options{MaxLegs: 2}, 3*2 + 6*4},
		{"three legs long only", Options{MaxLegs: 3, SignMode: SignLongOnly}, 3 + 6 + 10},
		{"four legs both signs", Options{MaxLegs: 4}, 3*2 + 6*4 + 10*8 + 15*16},
		{"max legs clamps to four", Options{MaxLegs: 9, SignMode: SignShortOnly}, 3 + 6 + 10 + 15},
		{"max legs zero yields nothing", Options{MaxLegs: 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(store, tt.opts)
			assert.Equal(t, int64(tt.want), g.Count())
			assert.Len(t, collect(New(store, tt.opts)), tt.want)
		})
	}
}

func TestGeneratorEmptyStore(t *testing.T) {
	store := buildStore(t)
	g := New(store, Options{MaxLegs: 4})
	assert.False(t, g.Next())
	assert.True(t, g.Done())
	assert.Zero(t, g.Count())
}

func TestGeneratorSameExpiration(t *testing.T) {
	store := buildStore(t, "H", "M", "H", "M", "U")

	candidates := collect(New(store, Options{MaxLegs: 3}))
	require.NotEmpty(t, candidates)

	for _, c := range candidates {
		first := store.Leg(c.Legs[0].Index).Expiration
		for _, l := range c.Legs {
			assert.Equal(t, first, store.Leg(l.Index).Expiration, c.Key())
		}
	}

	// blocks of size 2, 2, 1 → k=1:5, k=2:3+3+1, k=3:4+4+1, both signs
	assert.Len(t, candidates, 5*2+7*4+9*8)
	assert.Equal(t, int64(len(candidates)), New(store, Options{MaxLegs: 3}).Count())
}

func TestGeneratorDeterministicOrder(t *testing.T) {
	store := buildStore(t, "H", "H", "H", "H")

	first := collect(New(store, Options{MaxLegs: 3}))
	second := collect(New(store, Options{MaxLegs: 3}))
	assert.Equal(t, first, second)

	// single-leg variants come first, short before long
	assert.Equal(t, "0-", first[0].Key())
	assert.Equal(t, "0+", first[1].Key())
	assert.Equal(t, "1-", first[2].Key())
}

func TestGeneratorNonDecreasingIndices(t *testing.T) {
	store := buildStore(t, "H", "H", "H")
	seen := make(map[string]bool)

	for _, c := range collect(New(store, Options{MaxLegs: 3})) {
		for i := 1; i < c.Len(); i++ {
			assert.LessOrEqual(t, c.Legs[i-1].Index, c.Legs[i].Index)
		}
		assert.False(t, seen[c.Key()], "duplicate %s", c.Key())
		seen[c.Key()] = true
	}
}

func TestFillBatchMatchesStream(t *testing.T) {
	store := buildStore(t, "H", "H", "H", "M")
	want := collect(New(store, Options{MaxLegs: 3}))

	g := New(store, Options{MaxLegs: 3})
	var got []contracts.Candidate
	for !g.Done() {
		b := batch.New(3, 7)
		n := g.FillBatch(b, 7)
		assert.LessOrEqual(t, n, 7)
		for r := 0; r < b.Rows(); r++ {
			got = append(got, b.Candidate(r))
		}
	}

	assert.Equal(t, want, got)
}
