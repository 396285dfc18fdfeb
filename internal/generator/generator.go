package generator

import (
	"fmt"
	"strings"

	"github.com/wonny/aegis-options/internal/batch"
	"github.com/wonny/aegis-options/internal/contracts"
)

// SignMode selects which long/short assignments are enumerated
type SignMode int

const (
	SignBoth SignMode = iota // 2^len variants
	SignLongOnly
	SignShortOnly
)

// ParseSignMode parses "both", "long_only", "short_only"
func ParseSignMode(s string) (SignMode, error) {
	switch strings.ToLower(s) {
	case "", "both":
		return SignBoth, nil
	case "long_only", "long":
		return SignLongOnly, nil
	case "short_only", "short":
		return SignShortOnly, nil
	default:
		return SignBoth, fmt.Errorf("unknown sign mode %q", s)
	}
}

func (m SignMode) String() string {
	switch m {
	case SignLongOnly:
		return "long_only"
	case SignShortOnly:
		return "short_only"
	default:
		return "both"
	}
}

// Options configures the enumeration
type Options struct {
	MaxLegs  int
	SignMode SignMode
}

// Generator lazily enumerates candidates
// 순서: 레그 수 → 인덱스 튜플(사전순, 중복 허용) → 부호 마스크
// 레그는 만기순 정렬되어 있으므로 같은 만기 블록 안의 튜플만 방문한다
type Generator struct {
	opts     Options
	n        int
	blockEnd []int // blockEnd[i]: i와 같은 만기를 갖는 마지막 인덱스

	k       int
	idx     [contracts.MaxLegs]int
	mask    int
	masks   int
	started bool
	done    bool
}

// New creates a generator over the store
func New(store contracts.LegSource, opts Options) *Generator {
	if opts.MaxLegs > contracts.MaxLegs {
		opts.MaxLegs = contracts.MaxLegs
	}

	n := store.Len()
	g := &Generator{
		opts:     opts,
		n:        n,
		blockEnd: make([]int, n),
	}
	for i := n - 1; i >= 0; i-- {
		if i == n-1 || store.Leg(i).Expiration != store.Leg(i+1).Expiration {
			g.blockEnd[i] = i
		} else {
			g.blockEnd[i] = g.blockEnd[i+1]
		}
	}
	return g
}

// Next advances to the next candidate
func (g *Generator) Next() bool {
	if g.done {
		return false
	}

	if !g.started {
		g.started = true
		if g.n == 0 || g.opts.MaxLegs <= 0 {
			g.done = true
			return false
		}
		g.k = 1
		g.idx[0] = 0
		g.resetMask()
		return true
	}

	if g.opts.SignMode == SignBoth && g.mask+1 < g.masks {
		g.mask++
		return true
	}

	if !g.step() {
		g.done = true
		return false
	}
	g.resetMask()
	return true
}

func (g *Generator) resetMask() {
	switch g.opts.SignMode {
	case SignLongOnly:
		g.mask = 1<<g.k - 1
		g.masks = 1
	case SignShortOnly:
		g.mask = 0
		g.masks = 1
	default:
		g.mask = 0
		g.masks = 1 << g.k
	}
}

// step moves to the next index tuple whose legs share one expiration block
func (g *Generator) step() bool {
	end := g.blockEnd[g.idx[0]]
	for i := g.k - 1; i >= 1; i-- {
		if g.idx[i] < end {
			g.idx[i]++
			for j := i + 1; j < g.k; j++ {
				g.idx[j] = g.idx[i]
			}
			return true
		}
	}

	// 첫 레그 이동 (다음 블록으로 넘어갈 수 있음)
	if g.idx[0]+1 < g.n {
		g.idx[0]++
		for j := 1; j < g.k; j++ {
			g.idx[j] = g.idx[0]
		}
		return true
	}

	// 다음 레그 수
	if g.k+1 > g.opts.MaxLegs {
		return false
	}
	g.k++
	for j := 0; j < g.k; j++ {
		g.idx[j] = 0
	}
	return true
}

// signOf: 마스크 비트 1 = 롱(+1), 0 = 숏(-1)
func (g *Generator) signOf(j int) int8 {
	if g.mask&(1<<j) != 0 {
		return contracts.Long
	}
	return contracts.Short
}

// Candidate returns a copy of the current candidate
func (g *Generator) Candidate() contracts.Candidate {
	legs := make([]contracts.LegRef, g.k)
	for j := 0; j < g.k; j++ {
		legs[j] = contracts.LegRef{Index: g.idx[j], Sign: g.signOf(j)}
	}
	return contracts.Candidate{Legs: legs}
}

// FillBatch appends candidates until the batch holds capacity rows or the stream ends.
// Returns the number of rows appended.
func (g *Generator) FillBatch(b *batch.Batch, capacity int) int {
	added := 0
	for b.Rows() < capacity && g.Next() {
		idx, sg := b.AppendRow(g.k)
		for j := 0; j < g.k; j++ {
			idx[j] = int32(g.idx[j])
			sg[j] = g.signOf(j)
		}
		added++
	}
	return added
}

// Done reports whether the stream is exhausted
func (g *Generator) Done() bool {
	return g.done
}

// Count returns the exact number of candidates the generator yields
func (g *Generator) Count() int64 {
	if g.opts.MaxLegs <= 0 || g.n == 0 {
		return 0
	}

	var total int64
	for start := 0; start < g.n; start = g.blockEnd[start] + 1 {
		size := int64(g.blockEnd[start] - start + 1)
		for k := 1; k <= g.opts.MaxLegs; k++ {
			variants := int64(1)
			if g.opts.SignMode == SignBoth {
				variants = 1 << k
			}
			total += multisets(size, int64(k)) * variants
		}
	}
	return total
}

// multisets returns C(n+k-1, k)
func multisets(n, k int64) int64 {
	c := int64(1)
	for i := int64(1); i <= k; i++ {
		c = c * (n - 1 + i) / i
	}
	return c
}
