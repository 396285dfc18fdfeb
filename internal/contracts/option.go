package contracts

import (
	"fmt"
	"strings"
)

// OptionKind is call or put
type OptionKind int8

const (
	Call OptionKind = iota
	Put
)

func (k OptionKind) String() string {
	if k == Put {
		return "put"
	}
	return "call"
}

// ParseOptionKind accepts "call"/"put" (case-insensitive, "c"/"p" shorthand)
func ParseOptionKind(s string) (OptionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return Call, nil
	case "put", "p":
		return Put, nil
	default:
		return Call, fmt.Errorf("unknown option kind %q", s)
	}
}

// monthCodes: 선물/옵션 월물 코드 (F=Jan ... Z=Dec)
const monthCodes = "FGHJKMNQUVXZ"

// ExpirationKey identifies an expiry. Only equality and ordering are meaningful.
type ExpirationKey struct {
	Year  int    `json:"year"`
	Month string `json:"month"`          // month code F..Z
	Week  string `json:"week,omitempty"` // weekly series, empty for monthly
	Day   string `json:"day,omitempty"`
}

// MonthIndex returns 1..12 for a valid month code, 0 otherwise
func (k ExpirationKey) MonthIndex() int {
	if len(k.Month) != 1 {
		return 0
	}
	return strings.IndexByte(monthCodes, k.Month[0]) + 1
}

// Less orders keys by year, month, week, day
func (k ExpirationKey) Less(o ExpirationKey) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	if mi, mo := k.MonthIndex(), o.MonthIndex(); mi != mo {
		return mi < mo
	}
	if k.Week != o.Week {
		return k.Week < o.Week
	}
	return k.Day < o.Day
}

func (k ExpirationKey) String() string {
	s := fmt.Sprintf("%s%d", k.Month, k.Year)
	if k.Week != "" {
		s += "-" + k.Week
	}
	if k.Day != "" {
		s += "-" + k.Day
	}
	return s
}

// Greeks holds per-unit sensitivities
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
	Theta float64 `json:"theta"`
}

// AddSigned accumulates sign * g
func (g *Greeks) AddSigned(sign float64, o Greeks) {
	g.Delta += sign * o.Delta
	g.Gamma += sign * o.Gamma
	g.Vega += sign * o.Vega
	g.Theta += sign * o.Theta
}

// Grid is the underlying-price grid shared by every leg of a store
// Prices: 오름차순 등간격, Density: 같은 길이의 확률 밀도(혼합 분포)
type Grid struct {
	Prices  []float64 `json:"prices"`
	Density []float64 `json:"density"`
	Step    float64   `json:"step"`
}

// Len returns the number of grid points
func (g *Grid) Len() int {
	if g == nil {
		return 0
	}
	return len(g.Prices)
}

// OptionLeg is one priced contract. Immutable once the store is built.
type OptionLeg struct {
	ID         string        `json:"id"`
	Kind       OptionKind    `json:"kind"`
	Strike     float64       `json:"strike"`
	Premium    float64       `json:"premium"`
	Expiration ExpirationKey `json:"expiration"`

	Greeks     Greeks  `json:"greeks"`
	HasGreeks  bool    `json:"has_greeks"` // false: Greeks aggregate as 0
	ImpliedVol float64 `json:"implied_vol"`

	// PnL: 만기 손익 (롱 1계약 기준, intrinsic - premium), Grid.Prices와 같은 길이
	PnL        []float64 `json:"-"`
	AveragePnL float64   `json:"average_pnl"`
	SigmaPnL   float64   `json:"sigma_pnl"`

	Roll          float64 `json:"roll"`
	RollQuarterly float64 `json:"roll_quarterly"`
	RollSum       float64 `json:"roll_sum"`
}

// IsCall reports whether the leg is a call
func (l *OptionLeg) IsCall() bool {
	return l.Kind == Call
}

// EffectiveGreeks returns zero Greeks when the leg carries none
func (l *OptionLeg) EffectiveGreeks() Greeks {
	if !l.HasGreeks {
		return Greeks{}
	}
	return l.Greeks
}
