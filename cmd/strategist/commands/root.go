package commands

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wonny/aegis-options/pkg/config"
	"github.com/wonny/aegis-options/pkg/logger"
)

var (
	// Global flags
	envFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "strategist",
	Short: "Aegis Options - 멀티레그 옵션 전략 탐색기",
	Long: `Aegis Options Strategist CLI

옵션 레그 목록과 가격 분포로부터 1~4 레그 조합을 생성하고,
하드 필터와 손익 메트릭으로 거른 뒤 가중 점수로 상위 전략을 고릅니다.

Usage:
  go run ./cmd/strategist [command]

Examples:
  go run ./cmd/strategist search --legs legs.json
  go run ./cmd/strategist validate-config --strategy config/strategy.yaml
  go run ./cmd/strategist api`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file (default is .env lookup)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadRuntime loads process config and builds the logger.
// toStderr: 결과를 stdout에 쓰는 커맨드는 JSON 로그를 stderr로 보낸다
func loadRuntime(toStderr bool) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if toStderr && cfg.LogFormat == "json" {
		return cfg, logger.NewWithWriter(os.Stderr, cfg.LogLevel), nil
	}
	return cfg, logger.New(cfg), nil
}
