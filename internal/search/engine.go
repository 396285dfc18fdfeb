package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/cpu"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/aegis-options/internal/batch"
	"github.com/wonny/aegis-options/internal/contracts"
	"github.com/wonny/aegis-options/internal/filter"
	"github.com/wonny/aegis-options/internal/generator"
	"github.com/wonny/aegis-options/internal/scoring"
	"github.com/wonny/aegis-options/internal/strategyconfig"
	"github.com/wonny/aegis-options/pkg/logger"
)

// Source is the leg store a run searches over
type Source interface {
	contracts.LegSource
	MeanPrice() float64
	Fingerprint() uint64
}

// Defaults are process-level values used when the run config leaves them at zero
type Defaults struct {
	Workers   int
	BatchSize int
}

// ProgressFunc receives evaluated and total candidate counts after each batch.
// 수집 고루틴 하나에서만 호출된다
type ProgressFunc func(done, total int64)

// RunConfig holds one search run
type RunConfig struct {
	RunID    string // 비어 있으면 uuid 생성
	Strategy *strategyconfig.Config
	Progress ProgressFunc
}

// Stats summarizes one run
type Stats struct {
	Candidates int64            `json:"candidates"`
	Evaluated  int64            `json:"evaluated"`
	Survivors  int64            `json:"survivors"`
	Rejected   map[string]int64 `json:"rejected"`
	Batches    int              `json:"batches"`
	Workers    int              `json:"workers"`
	Evaluator  string           `json:"evaluator"`
	Duration   time.Duration    `json:"duration"`
}

// RunResult holds the ranked output of a run
type RunResult struct {
	RunID            string                     `json:"run_id"`
	StrategyID       string                     `json:"strategy_id"`
	ConfigHash       string                     `json:"config_hash"`
	StoreFingerprint uint64                     `json:"store_fingerprint"`
	Filter           filter.Config              `json:"filter"`
	Ranked           []contracts.StrategyResult `json:"ranked"`
	Consensus        *scoring.MultiRanking      `json:"consensus,omitempty"` // weight_sets가 2개 이상일 때
	Stats            Stats                      `json:"stats"`
	CreatedAt        time.Time                  `json:"created_at"`
}

// Engine coordinates generate → filter/evaluate → rank
// ⭐ SSOT: 탐색 실행 조율은 여기서만
type Engine struct {
	defaults Defaults
	logger   *logger.Logger
}

// NewEngine creates a search engine
func NewEngine(defaults Defaults, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		defaults: defaults,
		logger:   log.WithComponent("search"),
	}
}

// Run executes a full search. Cancellation is checked between batches and
// yields an error with no partial result.
func (e *Engine) Run(ctx context.Context, src Source, rc RunConfig) (result *RunResult, err error) {
	startTime := time.Now()

	// 커널 precondition panic → error
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, recoveredError(r)
		}
	}()

	cfg := rc.Strategy
	if cfg == nil {
		return nil, errors.New("search: strategy config is required")
	}
	if cfg.Search.MaxLegs < 1 || cfg.Search.MaxLegs > contracts.MaxLegs {
		return nil, contracts.Precondition("search.Run", contracts.ErrInvalidMaxLegs,
			"max_legs=%d", cfg.Search.MaxLegs)
	}
	if rc.RunID == "" {
		rc.RunID = uuid.New().String()
	}

	hash, err := strategyconfig.Hash(cfg)
	if err != nil {
		return nil, fmt.Errorf("hash config: %w", err)
	}

	fcfg := cfg.FilterConfig(src.MeanPrice())
	if err := fcfg.Validate(); err != nil {
		return nil, fmt.Errorf("filter config: %w", err)
	}
	weightSets, err := cfg.ScoringWeights()
	if err != nil {
		return nil, fmt.Errorf("scoring weights: %w", err)
	}

	result = &RunResult{
		RunID:            rc.RunID,
		StrategyID:       cfg.Meta.StrategyID,
		ConfigHash:       hash,
		StoreFingerprint: src.Fingerprint(),
		Filter:           fcfg,
		Ranked:           []contracts.StrategyResult{},
		CreatedAt:        startTime,
	}

	log := e.logger.WithRun(rc.RunID)
	log.WithFields(map[string]interface{}{
		"strategy_id": cfg.Meta.StrategyID,
		"legs":        src.Len(),
		"max_legs":    cfg.Search.MaxLegs,
		"sign_mode":   cfg.Search.SignMode,
		"limit_left":  fcfg.LimitLeft,
		"limit_right": fcfg.LimitRight,
	}).Info("Starting search run")

	if src.Len() == 0 {
		result.Stats = Stats{Rejected: map[string]int64{}, Duration: time.Since(startTime)}
		log.Warn("Empty leg store, nothing to search")
		return result, nil
	}

	// S1: 생성 + 필터 + 메트릭
	cache := batch.NewCache(src)
	defer cache.Release()

	survivors, stats, err := e.evaluate(ctx, src, cache, cfg, &fcfg, rc.Progress)
	if err != nil {
		log.WithError(err).Error("Search run aborted")
		return nil, err
	}

	// S2: 랭킹
	opts := cfg.RankOptions()
	if len(weightSets) > 1 {
		multi := scoring.RankMulti(survivors, weightSets, opts, cfg.Search.TopN)
		result.Consensus = &multi
		result.Ranked = multi.Consensus
	} else {
		result.Ranked = scoring.NewRanker(weightSets[0], opts, log).Rank(survivors, cfg.Search.TopN)
	}

	// S3: 최종 후보만 곡선 재계산
	if !cfg.Search.KeepCurves {
		attachCurves(cache, result.Ranked)
		if result.Consensus != nil {
			for _, set := range result.Consensus.PerSet {
				attachCurves(cache, set)
			}
		}
	}

	stats.Duration = time.Since(startTime)
	result.Stats = stats

	log.WithFields(map[string]interface{}{
		"candidates": stats.Candidates,
		"survivors":  stats.Survivors,
		"ranked":     len(result.Ranked),
		"batches":    stats.Batches,
		"evaluator":  stats.Evaluator,
		"duration":   stats.Duration.Seconds(),
	}).Info("Search run completed")

	return result, nil
}

// evaluate streams generator batches through a bounded worker pool and merges
// outputs in batch order
func (e *Engine) evaluate(
	ctx context.Context,
	src Source,
	cache *batch.Cache,
	cfg *strategyconfig.Config,
	fcfg *filter.Config,
	progress ProgressFunc,
) ([]contracts.StrategyResult, Stats, error) {
	gen := generator.New(src, generator.Options{
		MaxLegs:  cfg.Search.MaxLegs,
		SignMode: cfg.SignMode(),
	})

	var ev batch.Evaluator
	if cfg.Search.Accelerated {
		ev = batch.NewAccelerated(cache, batch.AcceleratedOptions{KeepCurve: cfg.Search.KeepCurves})
	} else {
		ev = batch.NewReference(src, cfg.Search.KeepCurves)
	}

	workers := e.workerCount(cfg.Search.Workers)
	batchSize := cfg.Search.BatchSize
	if batchSize <= 0 {
		batchSize = e.defaults.BatchSize
	}
	if batchSize <= 0 {
		batchSize = 4096
	}

	stats := Stats{
		Candidates: gen.Count(),
		Workers:    workers,
		Evaluator:  ev.Name(),
	}

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan *batch.Batch, workers)
	outs := make(chan *batch.Output, workers)

	// producer: 생성기는 이 고루틴에서만 사용
	g.Go(func() error {
		defer close(jobs)
		for seq := 0; ; seq++ {
			if err := gctx.Err(); err != nil {
				return err
			}
			b := batch.New(contracts.MaxLegs, batchSize)
			b.Seq = seq
			if gen.FillBatch(b, batchSize) == 0 {
				return nil
			}
			select {
			case jobs <- b:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for b := range jobs {
				out, err := safeEvaluate(gctx, ev, b, fcfg)
				if err != nil {
					return err
				}
				select {
				case outs <- out:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	go func() {
		wg.Wait()
		close(outs)
	}()

	collected := make([]*batch.Output, 0)
	var tally filter.Tally
	for out := range outs {
		collected = append(collected, out)
		tally.Merge(&out.Tally)
		if progress != nil {
			progress(tally.Total(), stats.Candidates)
		}
	}

	if err := g.Wait(); err != nil {
		return nil, stats, err
	}
	// errgroup 컨텍스트와 별개로 호출자 취소도 확인
	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}

	sort.Slice(collected, func(i, j int) bool { return collected[i].Seq < collected[j].Seq })

	survivors := make([]contracts.StrategyResult, 0, tally.Passed())
	for _, out := range collected {
		survivors = append(survivors, out.Results...)
	}

	stats.Batches = len(collected)
	stats.Evaluated = tally.Total()
	stats.Survivors = tally.Passed()
	stats.Rejected = tally.Map()
	return survivors, stats, nil
}

// workerCount resolves run → process → CPU count
func (e *Engine) workerCount(requested int) int {
	if requested > 0 {
		return requested
	}
	if e.defaults.Workers > 0 {
		return e.defaults.Workers
	}
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return 1
}

func safeEvaluate(ctx context.Context, ev batch.Evaluator, b *batch.Batch, cfg *filter.Config) (out *batch.Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, recoveredError(r)
		}
	}()
	return ev.Evaluate(ctx, b, cfg)
}

func recoveredError(r interface{}) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("search: %w", err)
	}
	return fmt.Errorf("search: panic: %v", r)
}

func attachCurves(cache *batch.Cache, results []contracts.StrategyResult) {
	for i := range results {
		if results[i].PnL == nil {
			results[i].PnL = cache.Curve(results[i].Candidate())
		}
	}
}
