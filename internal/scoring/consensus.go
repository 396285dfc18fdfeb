package scoring

import (
	"sort"

	"github.com/wonny/aegis-options/internal/contracts"
)

// MultiRanking holds per weight-set rankings and their consensus
type MultiRanking struct {
	PerSet    [][]contracts.StrategyResult
	Consensus []contracts.StrategyResult
}

// RankMulti ranks the population under several weight sets and builds a
// consensus ordered by mean rank. Consensus Score is the mean composite score.
func RankMulti(results []contracts.StrategyResult, sets []Weights, opts Options, topN int) MultiRanking {
	out := MultiRanking{PerSet: make([][]contracts.StrategyResult, len(sets))}
	if len(results) == 0 || len(sets) == 0 {
		out.Consensus = []contracts.StrategyResult{}
		for i := range out.PerSet {
			out.PerSet[i] = []contracts.StrategyResult{}
		}
		return out
	}

	n := len(results)
	rankSum := make([]float64, n)
	scoreSum := make([]float64, n)

	for s, w := range sets {
		ranker := NewRanker(w, Options{Combine: opts.Combine}, nil)
		scores := ranker.Score(results)

		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(i, j int) bool {
			return scores[order[i]] > scores[order[j]]
		})
		for pos, idx := range order {
			rankSum[idx] += float64(pos + 1)
			scoreSum[idx] += scores[idx]
		}

		out.PerSet[s] = NewRanker(w, opts, nil).Rank(results, topN)
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return rankSum[order[i]] < rankSum[order[j]]
	})

	consensus := make([]contracts.StrategyResult, 0, n)
	for _, idx := range order {
		r := results[idx]
		r.Score = scoreSum[idx] / float64(len(sets))
		consensus = append(consensus, r)
	}
	if opts.Dedup {
		consensus = RemoveDuplicates(consensus, topN)
	}
	if topN > 0 && len(consensus) > topN {
		consensus = consensus[:topN]
	}
	for i := range consensus {
		consensus[i].Rank = i + 1
	}
	out.Consensus = consensus
	return out
}
