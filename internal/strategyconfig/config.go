package strategyconfig

import "time"

// Config는 한 번의 전략 탐색 실행 설정 (YAML SSOT)
type Config struct {
	Meta    Meta    `yaml:"meta" json:"meta"`
	Search  Search  `yaml:"search" json:"search"`
	Filters Filters `yaml:"filters" json:"filters"`
	Pivot   Pivot   `yaml:"pivot" json:"pivot"`
	Scoring Scoring `yaml:"scoring" json:"scoring"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
	Underlying string `yaml:"underlying" json:"underlying"`
}

// Search 조합 생성/실행 파라미터
type Search struct {
	MaxLegs     int    `yaml:"max_legs" json:"max_legs"` // 1..4
	TopN        int    `yaml:"top_n" json:"top_n"`       // 0 = 전체
	SignMode    string `yaml:"sign_mode" json:"sign_mode"`
	BatchSize   int    `yaml:"batch_size" json:"batch_size"` // 0 = 환경 기본값
	Workers     int    `yaml:"workers" json:"workers"`       // 0 = CPU 수
	Accelerated bool   `yaml:"accelerated" json:"accelerated"`
	KeepCurves  bool   `yaml:"keep_curves" json:"keep_curves"` // false: 최종 상위 N개만 곡선 재계산
}

// Filters 하드 컷 조건
type Filters struct {
	MinPremiumSell float64 `yaml:"min_premium_sell" json:"min_premium_sell"`
	MaxOpenLeft    int     `yaml:"max_open_left" json:"max_open_left"`
	MaxOpenRight   int     `yaml:"max_open_right" json:"max_open_right"`
	MaxPremium     float64 `yaml:"max_premium" json:"max_premium"`
	DeltaMin       float64 `yaml:"delta_min" json:"delta_min"`
	DeltaMax       float64 `yaml:"delta_max" json:"delta_max"`
	MaxLossLeft    float64 `yaml:"max_loss_left" json:"max_loss_left"`
	MaxLossRight   float64 `yaml:"max_loss_right" json:"max_loss_right"`
}

// Pivot 좌/우 손실 구간을 나누는 기준
// mode: price (price 한 점), band (left..right), distribution_mean (밀도 평균 ± half_width)
type Pivot struct {
	Mode      string  `yaml:"mode" json:"mode"`
	Price     float64 `yaml:"price" json:"price"`
	Left      float64 `yaml:"left" json:"left"`
	Right     float64 `yaml:"right" json:"right"`
	HalfWidth float64 `yaml:"half_width" json:"half_width"`
}

const (
	PivotPrice            = "price"
	PivotBand             = "band"
	PivotDistributionMean = "distribution_mean"
)

// Scoring 점수/랭킹 설정
type Scoring struct {
	Combine          string               `yaml:"combine" json:"combine"` // sum | geometric
	NormalizeWeights bool                 `yaml:"normalize_weights" json:"normalize_weights"`
	Dedup            bool                 `yaml:"dedup" json:"dedup"`
	Weights          map[string]float64   `yaml:"weights" json:"weights"`
	WeightSets       []map[string]float64 `yaml:"weight_sets" json:"weight_sets"` // 있으면 합의 랭킹
}

// RunSnapshot 재현성 기록 (runstore에 저장)
type RunSnapshot struct {
	ConfigHash       string    `json:"config_hash"`
	ConfigYAML       string    `json:"config_yaml"`
	StrategyID       string    `json:"strategy_id"`
	StoreFingerprint uint64    `json:"store_fingerprint"`
	CreatedAt        time.Time `json:"created_at"`
}
