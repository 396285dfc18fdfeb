package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-options/internal/api"
	"github.com/wonny/aegis-options/internal/api/handlers"
	"github.com/wonny/aegis-options/internal/runstore"
	"github.com/wonny/aegis-options/internal/search"
	"github.com/wonny/aegis-options/pkg/database"
	"github.com/wonny/aegis-options/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health          - Health check
  POST /api/search      - 전략 탐색 (legs + config JSON)
  GET  /api/runs        - 최근 실행 목록 (DB 필요)
  GET  /api/runs/{id}   - 실행 결과 조회 (캐시 → DB)
  GET  /api/metrics     - 점수 메트릭 목록

Example:
  go run ./cmd/strategist api
  go run ./cmd/strategist api --port 8090`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	// 1. Load config
	cfg, log, err := loadRuntime(false)
	if err != nil {
		return err
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	// 2. Optional run history (DB)
	var repo handlers.RunRepository
	db, err := database.New(cfg)
	switch {
	case errors.Is(err, database.ErrDisabled):
		log.Info("Run history disabled (DB_ENABLED=false)")
	case err != nil:
		return fmt.Errorf("connect to database: %w", err)
	default:
		defer db.Close()
		if err := runstore.EnsureSchema(context.Background(), db); err != nil {
			return err
		}
		repo = runstore.NewRepository(db)
		log.Info("Connected to database")
	}

	// 3. Optional Redis (result cache + shared rate limit)
	rdb, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rdb.Close()

	cache := runstore.NewCache(rdb, cfg.Redis.CacheTTL)
	limiter := api.NewRateLimiter(
		cfg.Search.RateLimitPerSecond,
		cfg.Search.RateLimitBurst,
		redis.NewRateLimiter(rdb, "options"),
		log,
	)

	// 4. Engine + router
	engine := search.NewEngine(search.Defaults{
		Workers:   cfg.Search.Workers,
		BatchSize: cfg.Search.BatchSize,
	}, log)
	router := api.NewRouter(handlers.NewSearchHandler(engine, repo, cache, log), limiter, log)
	server := api.New(cfg, log, router)

	// 5. Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
