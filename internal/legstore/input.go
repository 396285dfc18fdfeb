package legstore

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/wonny/aegis-options/internal/contracts"
)

// Input is the collaborator hand-off: grid, mixture density and raw legs
type Input struct {
	Prices  []float64  `json:"prices"`
	Density []float64  `json:"density"`
	Legs    []LegInput `json:"legs"`
}

// LegInput is one raw leg as produced by the market-data collaborator
type LegInput struct {
	ID            string                  `json:"id"`
	Kind          string                  `json:"kind"`
	Strike        float64                 `json:"strike"`
	Premium       float64                 `json:"premium"`
	Expiration    contracts.ExpirationKey `json:"expiration"`
	Greeks        *contracts.Greeks       `json:"greeks,omitempty"`
	ImpliedVol    float64                 `json:"implied_vol"`
	Roll          float64                 `json:"roll"`
	RollQuarterly float64                 `json:"roll_quarterly"`
	RollSum       float64                 `json:"roll_sum"`
	PnL           []float64               `json:"pnl,omitempty"` // nil: intrinsic - premium
}

// LoadFile reads a JSON leg input file
func LoadFile(path string) (*Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read legs file: %w", err)
	}
	return Decode(data)
}

// Decode parses a JSON leg input
func Decode(data []byte) (*Input, error) {
	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode legs: %w", err)
	}
	return &in, nil
}

// UniformGrid builds an evenly spaced grid [lo, hi] with the given step
func UniformGrid(lo, hi, step float64) []float64 {
	if step <= 0 || hi < lo {
		return nil
	}
	n := int((hi-lo)/step+1e-9) + 1
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = lo + float64(i)*step
	}
	return prices
}
