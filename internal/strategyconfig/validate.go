package strategyconfig

import (
	"fmt"
	"math"

	"github.com/wonny/aegis-options/internal/filter"
	"github.com/wonny/aegis-options/internal/generator"
	"github.com/wonny/aegis-options/internal/scoring"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}

	// === Search ===
	if cfg.Search.MaxLegs < 1 || cfg.Search.MaxLegs > 4 {
		return ValidationError{"search.max_legs", "must be in [1, 4]"}
	}
	if cfg.Search.TopN < 0 {
		return ValidationError{"search.top_n", "must be >= 0"}
	}
	if cfg.Search.BatchSize < 0 {
		return ValidationError{"search.batch_size", "must be >= 0"}
	}
	if cfg.Search.Workers < 0 {
		return ValidationError{"search.workers", "must be >= 0"}
	}
	if _, err := generator.ParseSignMode(cfg.Search.SignMode); err != nil {
		return ValidationError{"search.sign_mode", err.Error()}
	}

	// === Filters ===
	f := cfg.Filters
	if f.MinPremiumSell < 0 {
		return ValidationError{"filters.min_premium_sell", "must be >= 0"}
	}
	if f.MaxOpenLeft < 0 || f.MaxOpenRight < 0 {
		return ValidationError{"filters.max_open", "must be >= 0"}
	}
	if f.MaxPremium <= 0 {
		return ValidationError{"filters.max_premium", "must be > 0"}
	}
	if f.DeltaMin > f.DeltaMax {
		return ValidationError{"filters.delta", fmt.Sprintf("delta_min=%.4f > delta_max=%.4f", f.DeltaMin, f.DeltaMax)}
	}
	if f.MaxLossLeft < 0 || f.MaxLossRight < 0 {
		return ValidationError{"filters.max_loss", "must be >= 0"}
	}

	// === Pivot ===
	p := cfg.Pivot
	switch p.Mode {
	case PivotPrice:
		if p.Price <= 0 {
			return ValidationError{"pivot.price", "must be > 0 when mode=price"}
		}
	case PivotBand:
		if p.Left <= 0 || p.Left > p.Right {
			return ValidationError{"pivot", "band requires 0 < left <= right"}
		}
	case PivotDistributionMean:
		if p.HalfWidth < 0 {
			return ValidationError{"pivot.half_width", "must be >= 0"}
		}
	default:
		return ValidationError{"pivot.mode", "must be price, band or distribution_mean"}
	}

	// === Scoring ===
	if cfg.Scoring.Combine != "sum" && cfg.Scoring.Combine != "geometric" {
		return ValidationError{"scoring.combine", "must be sum or geometric"}
	}
	if len(cfg.Scoring.Weights) == 0 && len(cfg.Scoring.WeightSets) == 0 {
		return ValidationError{"scoring.weights", "required"}
	}
	if err := validateWeights(cfg.Scoring.Weights, "scoring.weights"); err != nil {
		return err
	}
	for i, set := range cfg.Scoring.WeightSets {
		if err := validateWeights(set, fmt.Sprintf("scoring.weight_sets[%d]", i)); err != nil {
			return err
		}
	}

	return nil
}

// Warn reports recommendations (never fails)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	for _, name := range unknownMetrics(cfg) {
		warnings = append(warnings, Warning{
			Code:    "UNKNOWN_METRIC",
			Message: fmt.Sprintf("weight %q ignored: not a scoring metric", name),
		})
	}

	if !cfg.Scoring.NormalizeWeights && len(cfg.Scoring.Weights) > 0 {
		if sum := sumWeights(cfg.Scoring.Weights); math.Abs(sum-1) > 0.01 {
			warnings = append(warnings, Warning{
				Code:    "WEIGHTS_NOT_NORMALIZED",
				Message: fmt.Sprintf("weights sum to %.4f; scores are not in [0, 1]", sum),
			})
		}
	}

	if cfg.Search.MaxLegs == 4 && cfg.Search.SignMode == "both" && !cfg.Search.Accelerated {
		warnings = append(warnings, Warning{
			Code:    "SLOW_SEARCH",
			Message: "4 legs with both signs on the reference evaluator: enable search.accelerated",
		})
	}

	if cfg.Search.KeepCurves && cfg.Search.TopN == 0 {
		warnings = append(warnings, Warning{
			Code:    "CURVE_MEMORY",
			Message: "keep_curves without top_n keeps every survivor's P&L array",
		})
	}

	return warnings
}

// === Helper Functions ===

func validateWeights(weights map[string]float64, field string) error {
	for name, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return ValidationError{fmt.Sprintf("%s.%s", field, name), "must be a finite value >= 0"}
		}
	}
	return nil
}

func sumWeights(weights map[string]float64) float64 {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	return sum
}

func unknownMetrics(cfg *Config) []string {
	var out []string
	sets := append([]map[string]float64{cfg.Scoring.Weights}, cfg.Scoring.WeightSets...)
	for _, set := range sets {
		for name := range set {
			if _, ok := scoring.ParseMetric(name); !ok {
				out = append(out, name)
			}
		}
	}
	return out
}

// FilterConfig resolves the filter thresholds; meanPrice feeds pivot.mode=distribution_mean
func (c *Config) FilterConfig(meanPrice float64) filter.Config {
	f := filter.Config{
		MinPremiumSell: c.Filters.MinPremiumSell,
		MaxOpenLeft:    c.Filters.MaxOpenLeft,
		MaxOpenRight:   c.Filters.MaxOpenRight,
		MaxPremium:     c.Filters.MaxPremium,
		DeltaMin:       c.Filters.DeltaMin,
		DeltaMax:       c.Filters.DeltaMax,
		MaxLossLeft:    c.Filters.MaxLossLeft,
		MaxLossRight:   c.Filters.MaxLossRight,
	}

	switch c.Pivot.Mode {
	case PivotPrice:
		f.LimitLeft, f.LimitRight = c.Pivot.Price, c.Pivot.Price
	case PivotBand:
		f.LimitLeft, f.LimitRight = c.Pivot.Left, c.Pivot.Right
	default:
		f.LimitLeft, f.LimitRight = meanPrice-c.Pivot.HalfWidth, meanPrice+c.Pivot.HalfWidth
	}
	return f
}

// ScoringWeights returns the parsed scoring weight sets (normalized when configured).
// A single-entry result means plain ranking; more entries mean consensus ranking.
func (c *Config) ScoringWeights() ([]scoring.Weights, error) {
	raw := c.Scoring.WeightSets
	if len(raw) == 0 {
		raw = []map[string]float64{c.Scoring.Weights}
	}

	out := make([]scoring.Weights, 0, len(raw))
	for _, named := range raw {
		w, _, err := scoring.ParseWeights(named)
		if err != nil {
			return nil, err
		}
		if c.Scoring.NormalizeWeights {
			w = w.Normalized()
		}
		out = append(out, w)
	}
	return out, nil
}

// RankOptions returns the ranker options
func (c *Config) RankOptions() scoring.Options {
	opts := scoring.Options{Dedup: c.Scoring.Dedup}
	if c.Scoring.Combine == "geometric" {
		opts.Combine = scoring.CombineGeometric
	}
	return opts
}

// SignMode returns the parsed sign mode (validated)
func (c *Config) SignMode() generator.SignMode {
	m, _ := generator.ParseSignMode(c.Search.SignMode)
	return m
}
