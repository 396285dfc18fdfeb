package scoring

import (
	"math"
	"sort"

	"github.com/wonny/aegis-options/internal/contracts"
)

// maxLossTolerance: 같은 손익 구조로 볼 최대 손실 차이
const maxLossTolerance = 0.05

// RemoveDuplicates keeps the first of every group of same-payoff strategies.
// Input must already be sorted best first. limit <= 0 scans everything.
func RemoveDuplicates(sorted []contracts.StrategyResult, limit int) []contracts.StrategyResult {
	kept := make([]contracts.StrategyResult, 0, len(sorted))
	for i := range sorted {
		if limit > 0 && len(kept) >= limit {
			break
		}
		dup := false
		for j := range kept {
			if SamePayoff(&sorted[i], &kept[j]) {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, sorted[i])
		}
	}
	return kept
}

type strikeSign struct {
	strike float64
	sign   int8
	kind   contracts.OptionKind
}

func sortedLegs(r *contracts.StrategyResult) []strikeSign {
	out := make([]strikeSign, len(r.Legs))
	for i, l := range r.Legs {
		out[i] = strikeSign{strike: l.Strike, sign: l.Sign, kind: l.Kind}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].strike != out[j].strike {
			return out[i].strike < out[j].strike
		}
		if out[i].sign != out[j].sign {
			return out[i].sign < out[j].sign
		}
		return out[i].kind < out[j].kind
	})
	return out
}

// SamePayoff reports whether two strategies share strikes and signs, differ by an
// even number of call/put swaps (put-call parity) and have matching max loss.
func SamePayoff(a, b *contracts.StrategyResult) bool {
	if len(a.Legs) != len(b.Legs) {
		return false
	}
	if math.Abs(a.MaxLoss-b.MaxLoss) > maxLossTolerance {
		return false
	}

	la, lb := sortedLegs(a), sortedLegs(b)
	swaps := 0
	for i := range la {
		if la[i].strike != lb[i].strike || la[i].sign != lb[i].sign {
			return false
		}
		if la[i].kind != lb[i].kind {
			swaps++
		}
	}
	return swaps%2 == 0
}
