package embeddings

import (
	"errors"
	"fmt"
)

var ErrShape = errors.New("weights do not match table shape")

// Table is the frozen weight matrix of a trained model: input vectors (syn0)
// plus whichever output layers the model was trained with. All buffers are
// flat and row-major. A Table is never written after construction.
type Table struct {
	dim     int
	rows    int
	syn0    []float32
	syn1    []float32 // hierarchical softmax inner nodes, rows-1
	syn1neg []float32 // negative sampling output vectors, rows
}

// NewTable wraps syn0 as a rows x dim matrix. The slice is owned by the table.
func NewTable(dim int, syn0 []float32) (*Table, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("dimension %d: %w", dim, ErrShape)
	}
	if len(syn0)%dim != 0 {
		return nil, fmt.Errorf("%d weights for dimension %d: %w", len(syn0), dim, ErrShape)
	}
	return &Table{dim: dim, rows: len(syn0) / dim, syn0: syn0}, nil
}

// WithHierarchicalSoftmax attaches inner-node weights; expects rows-1 rows.
func (t *Table) WithHierarchicalSoftmax(syn1 []float32) error {
	want := (t.rows - 1) * t.dim
	if t.rows == 0 {
		want = 0
	}
	if len(syn1) != want {
		return fmt.Errorf("hierarchical softmax weights: got %d values, want %d: %w", len(syn1), want, ErrShape)
	}
	t.syn1 = syn1
	return nil
}

// WithNegativeSampling attaches negative sampling output weights; expects rows rows.
func (t *Table) WithNegativeSampling(syn1neg []float32) error {
	if len(syn1neg) != len(t.syn0) {
		return fmt.Errorf("negative sampling weights: got %d values, want %d: %w", len(syn1neg), len(t.syn0), ErrShape)
	}
	t.syn1neg = syn1neg
	return nil
}

func (t *Table) Dimensionality() int { return t.dim }

func (t *Table) RowCount() int { return t.rows }

// Row returns a read-only view of input row i. The view is capacity capped so
// appends never reach neighbouring rows.
func (t *Table) Row(i int) Vector {
	return view(t.syn0, i, t.dim)
}

// RawMatrix exposes the flat input weights. Callers must not modify it.
func (t *Table) RawMatrix() []float32 { return t.syn0 }

func (t *Table) HasHierarchicalSoftmax() bool { return t.syn1 != nil }

func (t *Table) HasNegativeSampling() bool { return t.syn1neg != nil }

// InnerNode returns a read-only view of hierarchical softmax node i.
func (t *Table) InnerNode(i int) Vector {
	return view(t.syn1, i, t.dim)
}

// OutputRow returns a read-only view of negative sampling output row i.
func (t *Table) OutputRow(i int) Vector {
	return view(t.syn1neg, i, t.dim)
}

func view(buf []float32, i, dim int) Vector {
	start := i * dim
	end := start + dim
	return Vector(buf[start:end:end])
}
