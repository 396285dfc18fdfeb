package filter

import (
	"fmt"
	"math"

	"github.com/wonny/aegis-options/internal/contracts"
)

// Config holds the hard constraints of a run
// SSOT: strategyconfig YAML filters 섹션
type Config struct {
	MinPremiumSell float64 // 숏 레그 최소 프리미엄
	MaxOpenLeft    int     // 숏풋 - 롱풋 최대 (좌측 노출)
	MaxOpenRight   int     // 숏콜 - 롱콜 최대 (우측 노출)
	MaxPremium     float64 // |Σ sign·premium| 상한
	DeltaMin       float64
	DeltaMax       float64

	// 구간별 최대 손실 (양수 크기). 피벗 밴드 [LimitLeft, LimitRight] 기준
	MaxLossLeft  float64
	MaxLossRight float64
	LimitLeft    float64
	LimitRight   float64
}

// DefaultConfig returns permissive defaults
func DefaultConfig() Config {
	return Config{
		MinPremiumSell: 0.005,
		MaxOpenLeft:    0,
		MaxOpenRight:   0,
		MaxPremium:     5,
		DeltaMin:       -0.75,
		DeltaMax:       0.75,
		MaxLossLeft:    0.1,
		MaxLossRight:   0.1,
	}
}

// Validate checks internal consistency
func (c Config) Validate() error {
	if c.DeltaMin > c.DeltaMax {
		return fmt.Errorf("delta_min %.4f > delta_max %.4f", c.DeltaMin, c.DeltaMax)
	}
	if c.MaxPremium < 0 {
		return fmt.Errorf("max_premium must be >= 0")
	}
	if c.MaxLossLeft < 0 || c.MaxLossRight < 0 {
		return fmt.Errorf("max loss caps must be >= 0")
	}
	if c.MaxOpenLeft < 0 || c.MaxOpenRight < 0 {
		return fmt.Errorf("max open exposure must be >= 0")
	}
	if c.LimitLeft > c.LimitRight {
		return fmt.Errorf("pivot band: limit_left %.4f > limit_right %.4f", c.LimitLeft, c.LimitRight)
	}
	return nil
}

// Leg is the scalar view of a signed leg consumed by the predicates
type Leg struct {
	Kind       contracts.OptionKind
	Sign       float64
	Strike     float64
	Premium    float64
	Delta      float64
	AveragePnL float64
}

// FromOption builds the scalar view of a store leg
func FromOption(l *contracts.OptionLeg, sign int8) Leg {
	return Leg{
		Kind:       l.Kind,
		Sign:       float64(sign),
		Strike:     l.Strike,
		Premium:    l.Premium,
		Delta:      l.EffectiveGreeks().Delta,
		AveragePnL: l.AveragePnL,
	}
}

// Check runs the scalar predicates in cost order and returns the first failure.
// P&L 배열은 건드리지 않는다 (배열 작업 전에 대부분의 후보를 걸러냄)
func Check(legs []Leg, cfg *Config) Reason {
	// 1. 의미 없는 매도
	for i := range legs {
		if legs[i].Sign < 0 && legs[i].Premium < cfg.MinPremiumSell {
			return UselessSell
		}
	}

	// 2. 같은 옵션의 롱/숏 상쇄
	for i := range legs {
		for j := i + 1; j < len(legs); j++ {
			if legs[i].Kind == legs[j].Kind && legs[i].Strike == legs[j].Strike && legs[i].Sign != legs[j].Sign {
				return OffsettingLegs
			}
		}
	}

	// 3. 측면별 순 매도 노출
	var openPuts, openCalls int
	for i := range legs {
		n := -1
		if legs[i].Sign < 0 {
			n = 1
		}
		if legs[i].Kind == contracts.Put {
			openPuts += n
		} else {
			openCalls += n
		}
	}
	if openPuts > cfg.MaxOpenLeft {
		return OpenLeft
	}
	if openCalls > cfg.MaxOpenRight {
		return OpenRight
	}

	// 4-6. 합계 조건
	var premium, delta, avg float64
	for i := range legs {
		premium += legs[i].Sign * legs[i].Premium
		delta += legs[i].Sign * legs[i].Delta
		avg += legs[i].Sign * legs[i].AveragePnL
	}
	if math.Abs(premium) > cfg.MaxPremium {
		return Premium
	}
	if delta < cfg.DeltaMin || delta > cfg.DeltaMax {
		return Delta
	}
	if avg < 0 {
		return AveragePnL
	}

	return Pass
}
