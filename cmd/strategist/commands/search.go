package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"

	"github.com/wonny/aegis-options/internal/legstore"
	"github.com/wonny/aegis-options/internal/runstore"
	"github.com/wonny/aegis-options/internal/search"
	"github.com/wonny/aegis-options/internal/strategyconfig"
	"github.com/wonny/aegis-options/pkg/config"
	"github.com/wonny/aegis-options/pkg/database"
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "전략 탐색 실행",
	Long: `레그 JSON과 전략 YAML로 탐색을 실행하고 상위 전략을 출력합니다.

이 명령어는:
- 레그 스토어 구성 (가격 그리드, 분포, 레그별 손익)
- 1~max_legs 조합 생성 → 필터 → 메트릭
- 가중 점수 랭킹 (weight_sets가 여러 개면 합의 랭킹)
- --save: 실행 이력을 DB에 저장

Example:
  go run ./cmd/strategist search --legs legs.json
  go run ./cmd/strategist search --legs legs.json --strategy config/strategy.yaml --top 5 --json`,
	RunE: runSearch,
}

var (
	searchLegsPath     string
	searchStrategyPath string
	searchTopN         int
	searchSave         bool
	searchJSON         bool
	searchNoProgress   bool
)

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVar(&searchLegsPath, "legs", "", "레그 입력 JSON 파일 (필수)")
	searchCmd.Flags().StringVar(&searchStrategyPath, "strategy", "", "전략 YAML (기본: STRATEGY_CONFIG)")
	searchCmd.Flags().IntVar(&searchTopN, "top", -1, "top_n 덮어쓰기 (0 = 전체)")
	searchCmd.Flags().BoolVar(&searchSave, "save", false, "실행 이력을 DB에 저장")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "결과를 JSON으로 출력")
	searchCmd.Flags().BoolVar(&searchNoProgress, "no-progress", false, "진행 막대 숨김")
	_ = searchCmd.MarkFlagRequired("legs")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadRuntime(true)
	if err != nil {
		return err
	}

	strategyPath := searchStrategyPath
	if strategyPath == "" {
		strategyPath = cfg.Search.StrategyConfigPath
	}

	// 1. Load run config
	strategy, raw, err := strategyconfig.Load(strategyPath)
	if err != nil {
		return fmt.Errorf("load strategy config: %w", err)
	}
	if searchTopN >= 0 {
		strategy.Search.TopN = searchTopN
	}
	for _, w := range strategyconfig.Warn(strategy) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	// 2. Build leg store
	input, err := legstore.LoadFile(searchLegsPath)
	if err != nil {
		return err
	}
	store, err := legstore.Build(*input)
	if err != nil {
		return fmt.Errorf("build leg store: %w", err)
	}

	// 3. Run with Ctrl+C cancellation
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := newProgress(!searchNoProgress && !searchJSON)
	engine := search.NewEngine(search.Defaults{
		Workers:   cfg.Search.Workers,
		BatchSize: cfg.Search.BatchSize,
	}, log)

	res, err := engine.Run(ctx, store, search.RunConfig{
		Strategy: strategy,
		Progress: progress.update,
	})
	progress.finish(err != nil)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	// 4. Persist
	if searchSave {
		if err := saveRun(ctx, cfg, res, strategy, raw, store.Fingerprint()); err != nil {
			return err
		}
	}

	// 5. Output
	out := cmd.OutOrStdout()
	if searchJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	PrintHeader(out, "Strategy Search", [][2]string{
		{"Run ID", res.RunID},
		{"Strategy", res.StrategyID},
		{"Legs", fmt.Sprintf("%d", store.Len())},
		{"Candidates", fmt.Sprintf("%d", res.Stats.Candidates)},
		{"Survivors", fmt.Sprintf("%d", res.Stats.Survivors)},
		{"Pivot", fmt.Sprintf("%.2f ~ %.2f", res.Filter.LimitLeft, res.Filter.LimitRight)},
		{"Duration", res.Stats.Duration.String()},
	})
	for reason, n := range res.Stats.Rejected {
		PrintKeyValue(out, reason, fmt.Sprintf("%d", n), 16)
	}
	fmt.Fprintln(out)

	if len(res.Ranked) == 0 {
		PrintWarning(out, "No strategy survived the filters")
		return nil
	}
	PrintRanking(out, res.Ranked)
	return nil
}

func saveRun(ctx context.Context, cfg *config.Config, res *search.RunResult, strategy *strategyconfig.Config, raw []byte, fingerprint uint64) error {
	db, err := database.New(cfg)
	if errors.Is(err, database.ErrDisabled) {
		return fmt.Errorf("--save requires DB_ENABLED=true")
	}
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	snap, err := strategyconfig.NewRunSnapshot(strategy, raw, fingerprint)
	if err != nil {
		return err
	}
	if err := runstore.NewRepository(db).SaveRun(ctx, res, snap); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// progressBar wraps an mpb bar created on the first progress callback
type progressBar struct {
	enabled bool
	p       *mpb.Progress
	bar     *mpb.Bar
}

func newProgress(enabled bool) *progressBar {
	return &progressBar{enabled: enabled}
}

func (pb *progressBar) update(done, total int64) {
	if !pb.enabled || total <= 0 {
		return
	}
	if pb.bar == nil {
		pb.p = mpb.New(mpb.WithWidth(64), mpb.WithOutput(os.Stderr))
		pb.bar = pb.p.AddBar(total,
			mpb.PrependDecorators(
				decor.Name("Candidates"),
				decor.Percentage(decor.WCSyncSpace),
			),
			mpb.AppendDecorators(
				decor.CountersNoUnit("(%d / %d)", decor.WCSyncSpace),
			),
		)
	}
	pb.bar.SetCurrent(done)
}

func (pb *progressBar) finish(aborted bool) {
	if pb.p == nil {
		return
	}
	if aborted {
		pb.bar.Abort(false)
	}
	pb.p.Wait()
}
