package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-options/internal/strategyconfig"
)

// validateConfigCmd represents the validate-config command
var validateConfigCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "전략 YAML 검증",
	Long: `전략 YAML을 엄격 모드(알 수 없는 필드 금지)로 읽고 검증합니다.
경고(권장 위반)와 설정 해시를 출력합니다.

Example:
  go run ./cmd/strategist validate-config --strategy config/strategy.yaml`,
	RunE: runValidateConfig,
}

var validatePath string

func init() {
	rootCmd.AddCommand(validateConfigCmd)
	validateConfigCmd.Flags().StringVar(&validatePath, "strategy", "config/strategy.yaml", "전략 YAML 경로")
}

func runValidateConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, _, err := strategyconfig.Load(validatePath)
	if err != nil {
		PrintError(out, err.Error())
		return err
	}

	hash, err := strategyconfig.Hash(cfg)
	if err != nil {
		return err
	}

	PrintHeader(out, "Strategy Config", [][2]string{
		{"Strategy", cfg.Meta.StrategyID},
		{"Version", cfg.Meta.Version},
		{"Max legs", fmt.Sprintf("%d", cfg.Search.MaxLegs)},
		{"Sign mode", cfg.Search.SignMode},
		{"Pivot", cfg.Pivot.Mode},
		{"Hash", hash[:16]},
	})

	warnings := strategyconfig.Warn(cfg)
	for _, w := range warnings {
		PrintWarning(out, fmt.Sprintf("[%s] %s", w.Code, w.Message))
	}
	PrintSuccess(out, fmt.Sprintf("%s is valid (%d warnings)", validatePath, len(warnings)))
	return nil
}
