package contracts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptionKind(t *testing.T) {
	tests := []struct {
		in      string
		want    OptionKind
		wantErr bool
	}{
		{"call", Call, false},
		{"CALL", Call, false},
		{"p", Put, false},
		{" put ", Put, false},
		{"straddle", Call, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOptionKind(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpirationKeyLess(t *testing.T) {
	tests := []struct {
		name string
		a, b ExpirationKey
		want bool
	}{
		{"year first", ExpirationKey{Year: 2025, Month: "Z"}, ExpirationKey{Year: 2026, Month: "F"}, true},
		{"month code order", ExpirationKey{Year: 2026, Month: "H"}, ExpirationKey{Year: 2026, Month: "M"}, true},
		{"month code reverse", ExpirationKey{Year: 2026, Month: "U"}, ExpirationKey{Year: 2026, Month: "K"}, false},
		{"week breaks tie", ExpirationKey{Year: 2026, Month: "H", Week: "W1"}, ExpirationKey{Year: 2026, Month: "H", Week: "W2"}, true},
		{"equal", ExpirationKey{Year: 2026, Month: "H"}, ExpirationKey{Year: 2026, Month: "H"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Less(tt.b))
		})
	}
}

func TestMonthIndex(t *testing.T) {
	assert.Equal(t, 1, ExpirationKey{Month: "F"}.MonthIndex())
	assert.Equal(t, 12, ExpirationKey{Month: "Z"}.MonthIndex())
	assert.Equal(t, 0, ExpirationKey{Month: "A"}.MonthIndex())
	assert.Equal(t, 0, ExpirationKey{Month: "FG"}.MonthIndex())
}

func TestCandidateKey(t *testing.T) {
	c := Candidate{Legs: []LegRef{{Index: 3, Sign: Long}, {Index: 5, Sign: Short}}}
	assert.Equal(t, "3+,5-", c.Key())
	assert.Equal(t, 2, c.Len())
}

func TestStrategyResultCandidate(t *testing.T) {
	r := StrategyResult{Legs: []PositionLeg{
		{LegRef: LegRef{Index: 1, Sign: Long}, Strike: 95},
		{LegRef: LegRef{Index: 2, Sign: Short}, Strike: 100},
	}, ProfitZone: ProfitZone{Lower: 98, Upper: 110}}

	assert.Equal(t, "1+,2-", r.Key())
	assert.InDelta(t, 12.0, r.ProfitZoneWidth(), 1e-12)
}

func TestEffectiveGreeks(t *testing.T) {
	leg := OptionLeg{Greeks: Greeks{Delta: 0.5}}
	assert.Equal(t, Greeks{}, leg.EffectiveGreeks())

	leg.HasGreeks = true
	assert.Equal(t, 0.5, leg.EffectiveGreeks().Delta)
}

func TestPreconditionError(t *testing.T) {
	err := Precondition("legstore.Build", ErrGridMismatch, "leg %s has %d points", "C100", 3)

	assert.True(t, errors.Is(err, ErrGridMismatch))
	assert.Contains(t, err.Error(), "C100")

	var pe *PreconditionError
	assert.True(t, errors.As(error(err), &pe))
	assert.Equal(t, "legstore.Build", pe.Op)
}
