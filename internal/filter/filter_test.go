package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wonny/aegis-options/internal/contracts"
)

func looseConfig() Config {
	return Config{
		MinPremiumSell: 0,
		MaxOpenLeft:    4,
		MaxOpenRight:   4,
		MaxPremium:     100,
		DeltaMin:       -10,
		DeltaMax:       10,
		MaxLossLeft:    100,
		MaxLossRight:   100,
		LimitLeft:      100,
		LimitRight:     100,
	}
}

func call(sign, strike, premium, delta, avg float64) Leg {
	return Leg{Kind: contracts.Call, Sign: sign, Strike: strike, Premium: premium, Delta: delta, AveragePnL: avg}
}

func put(sign, strike, premium, delta, avg float64) Leg {
	return Leg{Kind: contracts.Put, Sign: sign, Strike: strike, Premium: premium, Delta: delta, AveragePnL: avg}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name   string
		legs   []Leg
		mutate func(*Config)
		want   Reason
	}{
		{
			name: "long straddle passes",
			legs: []Leg{call(1, 100, 2, 0.5, 0.3), put(1, 100, 2, -0.5, 0.3)},
			want: Pass,
		},
		{
			name:   "cheap short leg",
			legs:   []Leg{call(-1, 110, 0.001, 0.05, 0.0)},
			mutate: func(c *Config) { c.MinPremiumSell = 0.005 },
			want:   UselessSell,
		},
		{
			name: "offsetting legs",
			legs: []Leg{call(1, 100, 2, 0.5, 0.3), call(-1, 100, 2, 0.5, 0.3)},
			want: OffsettingLegs,
		},
		{
			name:   "naked short put",
			legs:   []Leg{put(-1, 95, 1, -0.3, 0.2)},
			mutate: func(c *Config) { c.MaxOpenLeft = 0 },
			want:   OpenLeft,
		},
		{
			name:   "covered short put passes",
			legs:   []Leg{put(-1, 95, 1, -0.3, 0.2), put(1, 90, 0.5, -0.1, 0.3)},
			mutate: func(c *Config) { c.MaxOpenLeft = 0 },
			want:   Pass,
		},
		{
			name:   "naked short call",
			legs:   []Leg{call(-1, 105, 1, 0.3, 0.2)},
			mutate: func(c *Config) { c.MaxOpenRight = 0 },
			want:   OpenRight,
		},
		{
			name:   "premium cap uses absolute value",
			legs:   []Leg{call(-1, 100, 6, 0.5, 0.1), put(-1, 100, 6, -0.5, 0.1)},
			mutate: func(c *Config) { c.MaxPremium = 10 },
			want:   Premium,
		},
		{
			name:   "delta above range",
			legs:   []Leg{call(1, 100, 2, 0.5, 0.3)},
			mutate: func(c *Config) { c.DeltaMax = 0.4 },
			want:   Delta,
		},
		{
			name:   "delta below range",
			legs:   []Leg{put(1, 100, 2, -0.5, 0.3)},
			mutate: func(c *Config) { c.DeltaMin = -0.4 },
			want:   Delta,
		},
		{
			name: "negative expectation",
			legs: []Leg{call(1, 100, 2, 0.5, -0.01)},
			want: AveragePnL,
		},
		{
			name:   "first failing predicate wins",
			legs:   []Leg{call(-1, 100, 0.001, 0.5, -1), call(1, 100, 2, 0.5, 0.3)},
			mutate: func(c *Config) { c.MinPremiumSell = 0.01 },
			want:   UselessSell,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := looseConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			assert.Equal(t, tt.want, Check(tt.legs, &cfg))
		})
	}
}

// Tightening any threshold never lets more candidates through
func TestCheckMonotonic(t *testing.T) {
	pool := [][]Leg{
		{call(1, 100, 2, 0.5, 0.3)},
		{put(1, 100, 2, -0.5, 0.2)},
		{call(-1, 105, 0.8, 0.3, 0.1)},
		{put(-1, 95, 0.6, -0.2, 0.1)},
		{call(1, 100, 2, 0.5, 0.3), put(1, 100, 2, -0.5, 0.3)},
		{call(1, 95, 3, 0.7, 0.4), call(-1, 100, 1, 0.5, -0.2)},
		{put(-1, 95, 0.6, -0.2, 0.1), call(-1, 105, 0.8, 0.3, 0.1)},
		{call(1, 95, 3, 0.7, 0.1), call(-1, 100, 1, 0.5, -0.05), call(-1, 100, 1, 0.5, -0.05), call(1, 105, 0.4, 0.2, 0.0)},
	}

	count := func(cfg Config) int {
		n := 0
		for _, legs := range pool {
			if Check(legs, &cfg) == Pass {
				n++
			}
		}
		return n
	}

	base := looseConfig()
	baseline := count(base)

	tighten := []struct {
		name   string
		mutate func(*Config)
	}{
		{"min premium sell", func(c *Config) { c.MinPremiumSell = 0.7 }},
		{"max open left", func(c *Config) { c.MaxOpenLeft = 0 }},
		{"max open right", func(c *Config) { c.MaxOpenRight = 0 }},
		{"max premium", func(c *Config) { c.MaxPremium = 1.5 }},
		{"delta range", func(c *Config) { c.DeltaMin, c.DeltaMax = -0.25, 0.25 }},
	}

	for _, tt := range tighten {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.LessOrEqual(t, count(cfg), baseline)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.DeltaMin, bad.DeltaMax = 1, -1
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.LimitLeft, bad.LimitRight = 105, 95
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.MaxLossLeft = -1
	assert.Error(t, bad.Validate())
}

func TestFromOption(t *testing.T) {
	leg := &contracts.OptionLeg{Kind: contracts.Put, Strike: 95, Premium: 1.2, AveragePnL: 0.3,
		Greeks: contracts.Greeks{Delta: -0.4}}

	view := FromOption(leg, contracts.Short)
	assert.Equal(t, -1.0, view.Sign)
	assert.Equal(t, 0.0, view.Delta, "greeks ignored without HasGreeks")

	leg.HasGreeks = true
	assert.Equal(t, -0.4, FromOption(leg, contracts.Long).Delta)
}

func TestTally(t *testing.T) {
	var a, b Tally
	a.Add(Pass)
	a.Add(Delta)
	a.Add(Delta)
	b.Add(Premium)
	b.Add(Pass)

	a.Merge(&b)
	assert.Equal(t, int64(2), a.Passed())
	assert.Equal(t, int64(3), a.Rejected())
	assert.Equal(t, int64(5), a.Total())
	assert.Equal(t, map[string]int64{"delta": 2, "premium": 1}, a.Map())
	assert.Equal(t, "loss_center", LossCenter.String())
	assert.Equal(t, "unknown", Reason(200).String())
}
