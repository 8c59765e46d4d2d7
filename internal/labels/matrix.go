// Package labels maintains the label matrix derived from flagged vocabulary
// entries and ranks labels by similarity to a document vector.
package labels

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"paravec/internal/embeddings"
	"paravec/internal/vocab"
)

var ErrDimensionMismatch = errors.New("vector dimension does not match model")

// NormState tracks whether a generation's rows have been scaled in place.
type NormState uint32

const (
	Unnormalized NormState = iota
	Normalized
)

func (s NormState) String() string {
	if s == Normalized {
		return "normalized"
	}
	return "unnormalized"
}

// Matrix is one generation of label rows. Row i belongs to label i. A Matrix
// is published once and replaced wholesale; its only mutation is the single
// in-place normalization guarded by normOnce.
type Matrix struct {
	labels     []vocab.Entry
	rows       []float32
	dim        int
	generation uint64

	normOnce sync.Once
	state    atomic.Uint32
}

func newMatrix(entries []vocab.Entry, table *embeddings.Table, generation uint64) *Matrix {
	dim := table.Dimensionality()
	rows := make([]float32, 0, len(entries)*dim)
	for _, e := range entries {
		rows = append(rows, table.Row(e.Index)...)
	}
	return &Matrix{labels: entries, rows: rows, dim: dim, generation: generation}
}

func (m *Matrix) Len() int { return len(m.labels) }

func (m *Matrix) Dimensionality() int { return m.dim }

func (m *Matrix) Generation() uint64 { return m.generation }

// Labels returns a copy of the label entries in row order.
func (m *Matrix) Labels() []vocab.Entry {
	out := make([]vocab.Entry, len(m.labels))
	copy(out, m.labels)
	return out
}

// Label returns the entry behind row i.
func (m *Matrix) Label(i int) vocab.Entry { return m.labels[i] }

// Row returns a read-only view of row i in its current state.
func (m *Matrix) Row(i int) embeddings.Vector {
	start := i * m.dim
	end := start + m.dim
	return embeddings.Vector(m.rows[start:end:end])
}

func (m *Matrix) State() NormState { return NormState(m.state.Load()) }

// Normalize scales every row to unit L1 norm, at most once per generation.
// Rows whose L1 norm is zero are left as they are.
func (m *Matrix) Normalize() {
	m.normOnce.Do(func() {
		for i := range m.labels {
			row := blas32.Vector{N: m.dim, Inc: 1, Data: m.rows[i*m.dim : (i+1)*m.dim]}
			if l1 := blas32.Asum(row); l1 > 0 {
				blas32.Scal(1/l1, row)
			}
		}
		m.state.Store(uint32(Normalized))
	})
}

// Scores returns one coarse score per row: the product of the normalized
// matrix with the unit-length query.
func (m *Matrix) Scores(query embeddings.Vector) ([]float32, error) {
	if len(query) != m.dim {
		return nil, fmt.Errorf("query has %d dimensions, labels have %d: %w", len(query), m.dim, ErrDimensionMismatch)
	}
	m.Normalize()
	out := make([]float32, len(m.labels))
	if len(out) == 0 {
		return out, nil
	}
	unit := embeddings.Unit(query)
	blas32.Gemv(blas.NoTrans, 1,
		blas32.General{Rows: len(m.labels), Cols: m.dim, Stride: m.dim, Data: m.rows},
		blas32.Vector{N: m.dim, Inc: 1, Data: unit},
		0,
		blas32.Vector{N: len(out), Inc: 1, Data: out},
	)
	return out, nil
}
