package batch

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/wonny/aegis-options/internal/contracts"
	"github.com/wonny/aegis-options/internal/metrics"
)

// Cache holds column-major copies of the leg scalars and a contiguous P&L buffer.
// ⭐ 실행(run) 단위로 생성하고 실행 종료 시 버린다. 전역 싱글톤 금지
type Cache struct {
	source contracts.LegSource
	grid   *contracts.Grid
	mass   float64
	n      int // grid points

	kind    []contracts.OptionKind
	strike  []float64
	premium []float64
	delta   []float64
	average []float64
	pnl     []float64 // legs × n, row-major

	mu     sync.Mutex
	curves map[uint64][]float64
}

// NewCache extracts the columns of every leg in the source
func NewCache(source contracts.LegSource) *Cache {
	grid := source.Grid()
	legs := source.Len()
	n := grid.Len()

	c := &Cache{
		source:  source,
		grid:    grid,
		mass:    metrics.Mass(grid),
		n:       n,
		kind:    make([]contracts.OptionKind, legs),
		strike:  make([]float64, legs),
		premium: make([]float64, legs),
		delta:   make([]float64, legs),
		average: make([]float64, legs),
		pnl:     make([]float64, legs*n),
		curves:  make(map[uint64][]float64),
	}

	for i := 0; i < legs; i++ {
		leg := source.Leg(i)
		if len(leg.PnL) != n {
			panic(contracts.Precondition("batch.NewCache", contracts.ErrGridMismatch,
				"leg %d has %d points, grid has %d", i, len(leg.PnL), n))
		}
		c.kind[i] = leg.Kind
		c.strike[i] = leg.Strike
		c.premium[i] = leg.Premium
		c.delta[i] = leg.EffectiveGreeks().Delta
		c.average[i] = leg.AveragePnL
		copy(c.pnl[i*n:(i+1)*n], leg.PnL)
	}
	return c
}

// Legs returns the number of cached legs
func (c *Cache) Legs() int {
	return len(c.kind)
}

// row returns the cached P&L row of leg i
func (c *Cache) row(i int32) []float64 {
	start := int(i) * c.n
	return c.pnl[start : start+c.n]
}

// Fingerprint is a stable identity of a leg/sign tuple
func Fingerprint(cand contracts.Candidate) uint64 {
	var buf [5]byte
	h := xxhash.New()
	for _, l := range cand.Legs {
		binary.LittleEndian.PutUint32(buf[:4], uint32(l.Index))
		buf[4] = byte(l.Sign)
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

// Curve returns the combined P&L curve of a candidate, memoized by fingerprint.
// 최종 상위 N개에 대해서만 곡선을 재계산할 때 사용
func (c *Cache) Curve(cand contracts.Candidate) []float64 {
	key := Fingerprint(cand)

	c.mu.Lock()
	defer c.mu.Unlock()

	if curve, ok := c.curves[key]; ok {
		return curve
	}
	curve := make([]float64, c.n)
	for _, l := range cand.Legs {
		metrics.AccumulateCurve(curve, l.Sign, c.row(int32(l.Index)))
	}
	c.curves[key] = curve
	return curve
}

// Release drops the buffers. The cache must not be used afterwards.
func (c *Cache) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pnl = nil
	c.curves = nil
}
