package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-options/internal/runstore"
	"github.com/wonny/aegis-options/pkg/database"
)

// runsCmd lists recent search runs
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "최근 탐색 실행 목록 (DB)",
	RunE:  runListRuns,
}

// dbInitCmd creates the run history schema
var dbInitCmd = &cobra.Command{
	Use:   "db-init",
	Short: "실행 이력 스키마 생성 및 연결 확인",
	RunE:  runDBInit,
}

var runsLimit int

func init() {
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(dbInitCmd)
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "최대 개수")
}

func openDB() (*database.DB, error) {
	cfg, _, err := loadRuntime(true)
	if err != nil {
		return nil, err
	}
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

func runListRuns(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	runs, err := runstore.NewRepository(db).ListRuns(ctx, runsLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	widths := []int{36, 20, 10, 10, 20}
	PrintTableHeader(out, []string{"Run ID", "Strategy", "Cands", "Survivors", "Created"}, widths)
	for _, r := range runs {
		PrintTableRow(out, []string{
			r.RunID,
			r.StrategyID,
			fmt.Sprintf("%d", r.Candidates),
			fmt.Sprintf("%d", r.Survivors),
			r.CreatedAt.Format("2006-01-02 15:04:05"),
		}, widths)
	}
	return nil
}

func runDBInit(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := runstore.EnsureSchema(ctx, db); err != nil {
		return err
	}

	status, err := db.HealthCheck(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	PrintSuccess(out, "Run history schema ready")
	PrintKeyValue(out, "Response time", status.ResponseTime.String(), 14)
	PrintKeyValue(out, "Max conns", fmt.Sprintf("%d", status.Stats.MaxConns), 14)
	PrintKeyValue(out, "Idle conns", fmt.Sprintf("%d", status.Stats.IdleConns), 14)
	return nil
}
