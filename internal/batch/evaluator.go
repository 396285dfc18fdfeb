package batch

import (
	"context"

	"github.com/wonny/aegis-options/internal/contracts"
	"github.com/wonny/aegis-options/internal/filter"
	"github.com/wonny/aegis-options/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// Output is the result of one batch: survivors in row order plus outcome counts
type Output struct {
	Seq     int
	Results []contracts.StrategyResult
	Tally   filter.Tally
}

// Evaluator turns a candidate batch into survivors
// 두 구현(Reference, Accelerated)은 같은 생존 집합을 반환해야 한다
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, b *Batch, cfg *filter.Config) (*Output, error)
}

// ProcessBatch validates jagged matrices and evaluates them
func ProcessBatch(ctx context.Context, ev Evaluator, legIndices [][]int32, signs [][]int8, lengths []uint8, cfg *filter.Config) (*Output, error) {
	b, err := FromMatrices(legIndices, signs, lengths)
	if err != nil {
		return nil, err
	}
	return ev.Evaluate(ctx, b, cfg)
}

// Reference evaluates candidate by candidate through the metrics engine
type Reference struct {
	source    contracts.LegSource
	keepCurve bool
}

// NewReference creates the per-candidate evaluator
func NewReference(source contracts.LegSource, keepCurve bool) *Reference {
	return &Reference{source: source, keepCurve: keepCurve}
}

// Name implements Evaluator
func (r *Reference) Name() string { return "reference" }

// Evaluate implements Evaluator
func (r *Reference) Evaluate(ctx context.Context, b *Batch, cfg *filter.Config) (*Output, error) {
	if err := b.validate(r.source.Len()); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	engine := metrics.NewEngine(r.source, *cfg, r.keepCurve)
	out := &Output{Seq: b.Seq}
	for row := 0; row < b.Rows(); row++ {
		res, reason := engine.Evaluate(b.Candidate(row))
		out.Tally.Add(reason)
		if reason == filter.Pass {
			out.Results = append(out.Results, res)
		}
	}
	return out, nil
}

// AcceleratedOptions tunes the column evaluator
type AcceleratedOptions struct {
	Partitions int  // 배치 내부 병렬 분할 수 (<=1: 순차)
	KeepCurve  bool // false: 곡선은 Cache.Curve로 필요할 때만 재계산
}

// Accelerated evaluates rows over the column cache with reusable scratch buffers
// 거절된 행은 할당 없음. 생존 행만 결과를 만든다
type Accelerated struct {
	cache *Cache
	opts  AcceleratedOptions
}

// NewAccelerated creates the column evaluator
func NewAccelerated(cache *Cache, opts AcceleratedOptions) *Accelerated {
	if opts.Partitions < 1 {
		opts.Partitions = 1
	}
	return &Accelerated{cache: cache, opts: opts}
}

// Name implements Evaluator
func (a *Accelerated) Name() string { return "accelerated" }

// Evaluate implements Evaluator
func (a *Accelerated) Evaluate(ctx context.Context, b *Batch, cfg *filter.Config) (*Output, error) {
	if err := b.validate(a.cache.Legs()); err != nil {
		return nil, err
	}

	rows := b.Rows()
	parts := a.opts.Partitions
	if parts > rows {
		parts = rows
	}
	if parts < 1 {
		parts = 1
	}

	outs := make([]Output, parts)
	g, gctx := errgroup.WithContext(ctx)
	chunk := (rows + parts - 1) / parts

	for p := 0; p < parts; p++ {
		lo, hi := p*chunk, (p+1)*chunk
		if hi > rows {
			hi = rows
		}
		out := &outs[p]
		g.Go(func() error {
			return a.evaluateRange(gctx, b, lo, hi, cfg, out)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 파티션 순서대로 병합 → 행 순서 유지
	merged := &Output{Seq: b.Seq}
	for p := range outs {
		merged.Results = append(merged.Results, outs[p].Results...)
		merged.Tally.Merge(&outs[p].Tally)
	}
	return merged, nil
}

const cancelCheckEvery = 1024

func (a *Accelerated) evaluateRange(ctx context.Context, b *Batch, lo, hi int, cfg *filter.Config, out *Output) error {
	c := a.cache
	scratch := make([]float64, c.n)
	var view [contracts.MaxLegs]filter.Leg

	for row := lo; row < hi; row++ {
		if (row-lo)%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		idx, sg := b.Row(row)
		legs := view[:len(idx)]
		for j, li := range idx {
			legs[j] = filter.Leg{
				Kind:       c.kind[li],
				Sign:       float64(sg[j]),
				Strike:     c.strike[li],
				Premium:    c.premium[li],
				Delta:      c.delta[li],
				AveragePnL: c.average[li],
			}
		}
		if r := filter.Check(legs, cfg); r != filter.Pass {
			out.Tally.Add(r)
			continue
		}

		for i := range scratch {
			scratch[i] = 0
		}
		var premium float64
		for j, li := range idx {
			metrics.AccumulateCurve(scratch, sg[j], c.row(li))
			premium += float64(sg[j]) * c.premium[li]
		}

		lossLeft, lossRight, r := metrics.CheckZones(c.grid.Prices, scratch, premium, cfg)
		if r != filter.Pass {
			out.Tally.Add(r)
			continue
		}

		res := metrics.Aggregate(c.source, b.Candidate(row))
		res.MaxLossLeft = lossLeft
		res.MaxLossRight = lossRight
		metrics.Summarize(&res, c.grid, c.mass, scratch)
		if a.opts.KeepCurve {
			res.PnL = append([]float64(nil), scratch...)
		}

		out.Tally.Add(filter.Pass)
		out.Results = append(out.Results, res)
	}
	return nil
}
