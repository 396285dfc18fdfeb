package contracts

// LegSource resolves leg references (implemented by legstore.Store)
type LegSource interface {
	Len() int
	Leg(i int) *OptionLeg
	Grid() *Grid
}

// Ranker orders evaluated strategies by composite score
// ⭐ SSOT: 랭킹 인터페이스 (scoring.Ranker)
type Ranker interface {
	Rank(results []StrategyResult, topN int) []StrategyResult
}

// Namer labels a strategy ("long straddle", "call butterfly"...)
// 이름 붙이기는 코어 밖 협력자 책임. 코어는 계약만 정의한다
type Namer interface {
	Name(legs []PositionLeg) string
}
