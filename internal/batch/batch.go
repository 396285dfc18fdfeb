package batch

import (
	"github.com/wonny/aegis-options/internal/contracts"
)

// Batch is a row-major candidate matrix handed across the acceleration boundary
// 각 행: LegIndices[r*Width : r*Width+Lengths[r]], Signs 동일 레이아웃
type Batch struct {
	Width      int
	LegIndices []int32
	Signs      []int8
	Lengths    []uint8
	Seq        int // 배치 순번 (결정적 병합용)
}

// New allocates an empty batch for rows of at most width legs
func New(width, capacity int) *Batch {
	return &Batch{
		Width:      width,
		LegIndices: make([]int32, 0, width*capacity),
		Signs:      make([]int8, 0, width*capacity),
		Lengths:    make([]uint8, 0, capacity),
	}
}

// FromMatrices builds a batch from jagged matrices, validating the shape
func FromMatrices(legIndices [][]int32, signs [][]int8, lengths []uint8) (*Batch, error) {
	if len(legIndices) != len(signs) || len(legIndices) != len(lengths) {
		return nil, contracts.Precondition("batch.FromMatrices", contracts.ErrInvalidBatch,
			"rows: indices=%d signs=%d lengths=%d", len(legIndices), len(signs), len(lengths))
	}

	width := 0
	for _, n := range lengths {
		if int(n) > width {
			width = int(n)
		}
	}

	b := New(width, len(lengths))
	for r, n := range lengths {
		if n == 0 || int(n) > contracts.MaxLegs || len(legIndices[r]) < int(n) || len(signs[r]) < int(n) {
			return nil, contracts.Precondition("batch.FromMatrices", contracts.ErrInvalidBatch, "row %d length %d", r, n)
		}
		idx, sg := b.AppendRow(int(n))
		copy(idx, legIndices[r][:n])
		copy(sg, signs[r][:n])
	}
	return b, nil
}

// Rows returns the number of candidates in the batch
func (b *Batch) Rows() int {
	return len(b.Lengths)
}

// Reset empties the batch, keeping its buffers
func (b *Batch) Reset() {
	b.LegIndices = b.LegIndices[:0]
	b.Signs = b.Signs[:0]
	b.Lengths = b.Lengths[:0]
}

// AppendRow reserves a row of n legs and returns its writable slices
func (b *Batch) AppendRow(n int) ([]int32, []int8) {
	start := len(b.LegIndices)
	for i := 0; i < b.Width; i++ {
		b.LegIndices = append(b.LegIndices, 0)
		b.Signs = append(b.Signs, 0)
	}
	b.Lengths = append(b.Lengths, uint8(n))
	return b.LegIndices[start : start+n], b.Signs[start : start+n]
}

// Append adds a candidate as a new row
func (b *Batch) Append(c contracts.Candidate) {
	idx, sg := b.AppendRow(c.Len())
	for i, l := range c.Legs {
		idx[i] = int32(l.Index)
		sg[i] = l.Sign
	}
}

// Row returns the leg indices and signs of row r
func (b *Batch) Row(r int) ([]int32, []int8) {
	start := r * b.Width
	n := int(b.Lengths[r])
	return b.LegIndices[start : start+n], b.Signs[start : start+n]
}

// Candidate materializes row r
func (b *Batch) Candidate(r int) contracts.Candidate {
	idx, sg := b.Row(r)
	legs := make([]contracts.LegRef, len(idx))
	for i := range idx {
		legs[i] = contracts.LegRef{Index: int(idx[i]), Sign: sg[i]}
	}
	return contracts.Candidate{Legs: legs}
}

// validate checks rows against the store size
func (b *Batch) validate(nLegs int) error {
	if b.Width > contracts.MaxLegs {
		return contracts.Precondition("batch.Evaluate", contracts.ErrInvalidBatch, "width %d", b.Width)
	}
	for r := 0; r < b.Rows(); r++ {
		idx, sg := b.Row(r)
		if len(idx) == 0 || len(idx) > b.Width {
			return contracts.Precondition("batch.Evaluate", contracts.ErrInvalidBatch, "row %d length %d", r, len(idx))
		}
		for i := range idx {
			if idx[i] < 0 || int(idx[i]) >= nLegs {
				return contracts.Precondition("batch.Evaluate", contracts.ErrLegIndex, "row %d index %d", r, idx[i])
			}
			if sg[i] != contracts.Long && sg[i] != contracts.Short {
				return contracts.Precondition("batch.Evaluate", contracts.ErrInvalidBatch, "row %d sign %d", r, sg[i])
			}
		}
	}
	return nil
}
