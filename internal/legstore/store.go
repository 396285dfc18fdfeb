package legstore

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/wonny/aegis-options/internal/contracts"
	"gonum.org/v1/gonum/floats"
)

// gridStepTolerance is the relative slack allowed between grid intervals
const gridStepTolerance = 1e-6

// Store is the immutable option leg pool of one run
// ⭐ SSOT: 레그 검증/정렬/사전계산은 Build에서 한 번만 수행
type Store struct {
	grid        *contracts.Grid
	legs        []contracts.OptionLeg
	mass        float64 // Σ density·Δx
	fingerprint uint64
}

// Build validates the input, sorts legs by expiration and precomputes per-leg arrays
func Build(in Input) (*Store, error) {
	grid, err := buildGrid(in.Prices, in.Density)
	if err != nil {
		return nil, err
	}

	s := &Store{
		grid: grid,
		legs: make([]contracts.OptionLeg, 0, len(in.Legs)),
		mass: floats.Sum(grid.Density) * grid.Step,
	}

	for i, li := range in.Legs {
		leg, err := s.buildLeg(i, li)
		if err != nil {
			return nil, err
		}
		s.legs = append(s.legs, leg)
	}

	// 만기 → 행사가 → 종류 순. 생성기는 첫/마지막 레그 만기만 비교한다
	sort.SliceStable(s.legs, func(i, j int) bool {
		a, b := &s.legs[i], &s.legs[j]
		if a.Expiration != b.Expiration {
			return a.Expiration.Less(b.Expiration)
		}
		if a.Strike != b.Strike {
			return a.Strike < b.Strike
		}
		return a.Kind < b.Kind
	})

	s.fingerprint = s.computeFingerprint()
	return s, nil
}

func buildGrid(prices, density []float64) (*contracts.Grid, error) {
	if len(prices) == 0 {
		return nil, contracts.Precondition("legstore.Build", contracts.ErrEmptyGrid, "")
	}
	if len(density) != len(prices) {
		return nil, contracts.Precondition("legstore.Build", contracts.ErrDensityMismatch,
			"density has %d points, grid has %d", len(density), len(prices))
	}
	for i := 1; i < len(prices); i++ {
		if !(prices[i] > prices[i-1]) {
			return nil, contracts.Precondition("legstore.Build", contracts.ErrGridNotSorted, "at index %d", i)
		}
	}
	for i, d := range density {
		if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return nil, contracts.Precondition("legstore.Build", contracts.ErrDensityMismatch,
				"density[%d]=%v must be finite and >= 0", i, d)
		}
	}

	step := 1.0
	if len(prices) > 1 {
		step = prices[1] - prices[0]
		// 모멘트/시그마는 단일 Δx를 쓰므로 등간격이 아니면 거부
		tol := step * gridStepTolerance
		for i := 2; i < len(prices); i++ {
			if math.Abs(prices[i]-prices[i-1]-step) > tol {
				return nil, contracts.Precondition("legstore.Build", contracts.ErrGridNotUniform,
					"step %v at index %d, expected %v", prices[i]-prices[i-1], i, step)
			}
		}
	}

	return &contracts.Grid{
		Prices:  append([]float64(nil), prices...),
		Density: append([]float64(nil), density...),
		Step:    step,
	}, nil
}

func (s *Store) buildLeg(i int, li LegInput) (contracts.OptionLeg, error) {
	kind, err := contracts.ParseOptionKind(li.Kind)
	if err != nil {
		return contracts.OptionLeg{}, contracts.Precondition("legstore.Build", err, "leg %d (%s)", i, li.ID)
	}

	leg := contracts.OptionLeg{
		ID:            li.ID,
		Kind:          kind,
		Strike:        li.Strike,
		Premium:       li.Premium,
		Expiration:    li.Expiration,
		ImpliedVol:    li.ImpliedVol,
		Roll:          li.Roll,
		RollQuarterly: li.RollQuarterly,
		RollSum:       li.RollSum,
	}
	if li.Greeks != nil {
		leg.Greeks = *li.Greeks
		leg.HasGreeks = true
	}

	n := s.grid.Len()
	switch {
	case li.PnL == nil:
		leg.PnL = ExpiryPnL(kind, li.Strike, li.Premium, s.grid.Prices)
	case len(li.PnL) != n:
		return contracts.OptionLeg{}, contracts.Precondition("legstore.Build", contracts.ErrGridMismatch,
			"leg %d (%s) has %d points, grid has %d", i, li.ID, len(li.PnL), n)
	default:
		leg.PnL = append([]float64(nil), li.PnL...)
	}

	leg.AveragePnL, leg.SigmaPnL = s.moments(leg.PnL)
	return leg, nil
}

// ExpiryPnL returns the long unit P&L at expiry: intrinsic - premium
func ExpiryPnL(kind contracts.OptionKind, strike, premium float64, prices []float64) []float64 {
	pnl := make([]float64, len(prices))
	for i, p := range prices {
		intrinsic := p - strike
		if kind == contracts.Put {
			intrinsic = strike - p
		}
		pnl[i] = math.Max(intrinsic, 0) - premium
	}
	return pnl
}

// moments returns the density-weighted mean and standard deviation of a curve
func (s *Store) moments(pnl []float64) (avg, sigma float64) {
	if s.mass <= 0 {
		return 0, 0
	}
	dx := s.grid.Step
	avg = floats.Dot(s.grid.Density, pnl) * dx / s.mass

	var v float64
	for i, d := range s.grid.Density {
		diff := pnl[i] - avg
		v += d * diff * diff * dx
	}
	v /= s.mass
	return avg, math.Sqrt(math.Max(v, 0))
}

// Len returns the number of legs
func (s *Store) Len() int {
	return len(s.legs)
}

// Leg returns the i-th leg (sorted order)
func (s *Store) Leg(i int) *contracts.OptionLeg {
	return &s.legs[i]
}

// Grid returns the shared price grid
func (s *Store) Grid() *contracts.Grid {
	return s.grid
}

// Mass returns Σ density·Δx
func (s *Store) Mass() float64 {
	return s.mass
}

// Fingerprint identifies the store contents (grid, density, legs)
func (s *Store) Fingerprint() uint64 {
	return s.fingerprint
}

func (s *Store) computeFingerprint() uint64 {
	h := xxhash.New()
	var buf [8]byte
	writeU := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}
	writeF := func(v float64) {
		writeU(math.Float64bits(v))
	}
	writeS := func(v string) {
		writeU(uint64(len(v)))
		_, _ = h.WriteString(v)
	}
	writeFs := func(vs []float64) {
		writeU(uint64(len(vs)))
		for _, v := range vs {
			writeF(v)
		}
	}

	writeFs(s.grid.Prices)
	writeFs(s.grid.Density)
	writeU(uint64(len(s.legs)))
	for i := range s.legs {
		l := &s.legs[i]
		writeS(l.ID)
		writeU(uint64(l.Kind))
		writeS(l.Expiration.Month)
		writeU(uint64(l.Expiration.Year))
		writeS(l.Expiration.Week)
		writeS(l.Expiration.Day)
		writeF(l.Strike)
		writeF(l.Premium)
		if l.HasGreeks {
			writeU(1)
		} else {
			writeU(0)
		}
		writeF(l.Greeks.Delta)
		writeF(l.Greeks.Gamma)
		writeF(l.Greeks.Vega)
		writeF(l.Greeks.Theta)
		writeF(l.ImpliedVol)
		writeF(l.Roll)
		writeF(l.RollQuarterly)
		writeF(l.RollSum)
		// 평균/시그마는 PnL에서 파생되지만 곡선 모양 자체가 결과를 바꾼다
		writeFs(l.PnL)
	}
	return h.Sum64()
}

// MeanPrice returns the density-weighted mean of the grid
// pivot.mode=distribution_mean 에서 사용
func (s *Store) MeanPrice() float64 {
	if s.mass <= 0 {
		g := s.grid.Prices
		return (g[0] + g[len(g)-1]) / 2
	}
	return floats.Dot(s.grid.Density, s.grid.Prices) * s.grid.Step / s.mass
}

var _ contracts.LegSource = (*Store)(nil)
