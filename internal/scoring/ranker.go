package scoring

import (
	"math"
	"sort"

	"github.com/wonny/aegis-options/internal/contracts"
	"github.com/wonny/aegis-options/pkg/logger"
)

// Combine selects how sub-scores are blended
type Combine int

const (
	CombineSum       Combine = iota // Σ w·s
	CombineGeometric                // exp(Σ w·ln s / Σ w)
)

// geometricFloor keeps ln() finite for zero sub-scores
const geometricFloor = 1e-6

// Options tunes the ranker
type Options struct {
	Combine Combine
	Dedup   bool // 같은 손익 구조 전략 제거
}

// Ranker scores survivors across the population and keeps the top N
// ⭐ SSOT: 전략 랭킹 로직은 여기서만
type Ranker struct {
	weights Weights
	opts    Options
	logger  *logger.Logger
}

// NewRanker creates a ranker. A nil logger discards output.
func NewRanker(weights Weights, opts Options, log *logger.Logger) *Ranker {
	if log == nil {
		log = logger.Nop()
	}
	return &Ranker{weights: weights, opts: opts, logger: log}
}

// Rank implements contracts.Ranker. topN <= 0 keeps every result.
// 입력 슬라이스는 수정하지 않는다
func (r *Ranker) Rank(results []contracts.StrategyResult, topN int) []contracts.StrategyResult {
	if len(results) == 0 {
		return []contracts.StrategyResult{}
	}

	ranked := make([]contracts.StrategyResult, len(results))
	copy(ranked, results)

	scores := r.Score(ranked)
	for i := range ranked {
		ranked[i].Score = scores[i]
	}

	// 동점은 입력 순서 유지 (결정성)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if r.opts.Dedup {
		ranked = RemoveDuplicates(ranked, topN)
	}
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	r.logger.WithFields(map[string]interface{}{
		"population": len(results),
		"kept":       len(ranked),
		"top_score":  ranked[0].Score,
		"top_legs":   ranked[0].Key(),
	}).Debug("Ranking completed")

	return ranked
}

// Score computes the composite score of every result against the population
func (r *Ranker) Score(results []contracts.StrategyResult) []float64 {
	scores := make([]float64, len(results))
	active := r.weights.active()
	if len(active) == 0 {
		return scores
	}

	values := make([]float64, len(results))
	logSums := make([]float64, len(results))
	var weightSum float64

	for _, m := range active {
		w := r.weights[m]
		weightSum += w
		for i := range results {
			values[i] = m.Extract(&results[i])
		}
		lo, hi := Bounds(m.Normalizer(), values)
		for i, v := range values {
			s := SubScore(m.Scorer(), v, lo, hi)
			scores[i] += w * s
			logSums[i] += w * math.Log(math.Max(s, geometricFloor))
		}
	}

	if r.opts.Combine == CombineGeometric {
		for i := range scores {
			scores[i] = math.Exp(logSums[i] / weightSum)
		}
	}
	return scores
}

// Rank is the functional form of NewRanker(weights, Options{}, nil).Rank
func Rank(results []contracts.StrategyResult, weights Weights, topN int) []contracts.StrategyResult {
	return NewRanker(weights, Options{}, nil).Rank(results, topN)
}

var _ contracts.Ranker = (*Ranker)(nil)
