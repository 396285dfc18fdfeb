package contracts

import (
	"fmt"
	"strings"
)

// MaxLegs is the hard upper bound of legs per strategy
const MaxLegs = 4

// Sign of a leg: +1 long, -1 short
const (
	Long  int8 = 1
	Short int8 = -1
)

// LegRef points into the leg store with a position sign
type LegRef struct {
	Index int  `json:"index"`
	Sign  int8 `json:"sign"`
}

// Candidate is an unevaluated combination (references only)
type Candidate struct {
	Legs []LegRef `json:"legs"`
}

// Len returns the number of legs
func (c Candidate) Len() int {
	return len(c.Legs)
}

// Key returns a compact deterministic identity ("3+,5-,5-")
func (c Candidate) Key() string {
	var b strings.Builder
	for i, l := range c.Legs {
		if i > 0 {
			b.WriteByte(',')
		}
		sign := "+"
		if l.Sign < 0 {
			sign = "-"
		}
		fmt.Fprintf(&b, "%d%s", l.Index, sign)
	}
	return b.String()
}

// PositionLeg is a resolved leg of a surviving strategy (reporting copy)
type PositionLeg struct {
	LegRef
	ID         string        `json:"id"`
	Kind       OptionKind    `json:"kind"`
	Strike     float64       `json:"strike"`
	Premium    float64       `json:"premium"`
	Expiration ExpirationKey `json:"expiration"`
}

// ProfitZone is the price range between the first and last positive P&L sample
type ProfitZone struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Width returns Upper - Lower
func (z ProfitZone) Width() float64 {
	return z.Upper - z.Lower
}

// StrategyResult is the evaluated record of a surviving candidate
// ⭐ SSOT: 평가 결과는 값 타입. Score/Rank는 scoring 단계에서만 채움
type StrategyResult struct {
	Legs []PositionLeg `json:"legs"`

	Premium float64 `json:"premium"` // Σ sign·premium (양수 = 지불)

	Calls  Greeks `json:"greeks_calls"`
	Puts   Greeks `json:"greeks_puts"`
	Greeks Greeks `json:"greeks"`

	TotalIV float64 `json:"total_iv"` // Σ sign·iv
	AvgIV   float64 `json:"avg_iv"`   // |premium| 가중 평균

	PnL        []float64 `json:"pnl,omitempty"`
	Breakevens []float64 `json:"breakevens"`

	MaxProfit    float64    `json:"max_profit"`
	MaxLoss      float64    `json:"max_loss"`
	MaxLossLeft  float64    `json:"max_loss_left"`
	MaxLossRight float64    `json:"max_loss_right"`
	ProfitZone   ProfitZone `json:"profit_zone"`

	AveragePnL float64 `json:"average_pnl"`
	SigmaPnL   float64 `json:"sigma_pnl"`

	Roll          float64 `json:"roll"`
	RollQuarterly float64 `json:"roll_quarterly"`
	RollSum       float64 `json:"roll_sum"`

	CallCount      int     `json:"call_count"`
	PutCount       int     `json:"put_count"`
	AvgPnLLeverage float64 `json:"avg_pnl_leverage"`

	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// ProfitZoneWidth returns the width of the profit zone (0 if never positive)
func (r *StrategyResult) ProfitZoneWidth() float64 {
	return r.ProfitZone.Width()
}

// Candidate rebuilds the leg references of the result
func (r *StrategyResult) Candidate() Candidate {
	legs := make([]LegRef, len(r.Legs))
	for i, l := range r.Legs {
		legs[i] = l.LegRef
	}
	return Candidate{Legs: legs}
}

// Key is the composition identity of the result
func (r *StrategyResult) Key() string {
	return r.Candidate().Key()
}
