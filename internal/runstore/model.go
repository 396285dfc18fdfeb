package runstore

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/aegis-options/internal/contracts"
	"github.com/wonny/aegis-options/internal/filter"
	"github.com/wonny/aegis-options/internal/search"
)

// ErrNotFound is returned when a run id is unknown
var ErrNotFound = errors.New("run not found")

// RunSummary is one row of the run history listing
type RunSummary struct {
	RunID            string        `json:"run_id"`
	StrategyID       string        `json:"strategy_id"`
	ConfigHash       string        `json:"config_hash"`
	StoreFingerprint uint64        `json:"store_fingerprint"`
	Candidates       int64         `json:"candidates"`
	Survivors        int64         `json:"survivors"`
	Duration         time.Duration `json:"duration"`
	CreatedAt        time.Time     `json:"created_at"`
}

// StoredRun is a persisted run with its ranked strategies
type StoredRun struct {
	RunSummary
	ConfigYAML string           `json:"config_yaml,omitempty"`
	Filter     filter.Config    `json:"filter"`
	Stats      search.Stats     `json:"stats"`
	Strategies []StoredStrategy `json:"strategies"`
}

// StoredStrategy is a ranked strategy as persisted. Numeric columns are
// rounded decimals; curves are not stored.
type StoredStrategy struct {
	Rank       int                     `json:"rank"`
	Key        string                  `json:"key"`
	Legs       []contracts.PositionLeg `json:"legs"`
	Score      decimal.Decimal         `json:"score"`
	Premium    decimal.Decimal         `json:"premium"`
	MaxLoss    decimal.Decimal         `json:"max_loss"`
	MaxProfit  decimal.Decimal         `json:"max_profit"`
	AveragePnL decimal.Decimal         `json:"average_pnl"`
	Breakevens []float64               `json:"breakevens"`
}

const (
	scorePlaces = 8
	pricePlaces = 6
)

// toStored converts a ranked result to its persisted form
func toStored(r *contracts.StrategyResult) StoredStrategy {
	breakevens := r.Breakevens
	if breakevens == nil {
		breakevens = []float64{}
	}
	return StoredStrategy{
		Rank:       r.Rank,
		Key:        r.Key(),
		Legs:       r.Legs,
		Score:      round(r.Score, scorePlaces),
		Premium:    round(r.Premium, pricePlaces),
		MaxLoss:    round(r.MaxLoss, pricePlaces),
		MaxProfit:  round(r.MaxProfit, pricePlaces),
		AveragePnL: round(r.AveragePnL, pricePlaces),
		Breakevens: breakevens,
	}
}

// summaryOf builds the summary row of a run result
func summaryOf(res *search.RunResult) RunSummary {
	return RunSummary{
		RunID:            res.RunID,
		StrategyID:       res.StrategyID,
		ConfigHash:       res.ConfigHash,
		StoreFingerprint: res.StoreFingerprint,
		Candidates:       res.Stats.Candidates,
		Survivors:        res.Stats.Survivors,
		Duration:         res.Stats.Duration,
		CreatedAt:        res.CreatedAt,
	}
}

func round(v float64, places int32) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(places)
}

func formatFingerprint(fp uint64) string {
	return fmt.Sprintf("%016x", fp)
}

func parseFingerprint(s string) (uint64, error) {
	return strconv.ParseUint(s, 16, 64)
}
