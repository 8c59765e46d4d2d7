package embeddings

import (
	"math"

	"github.com/viterin/vek/vek32"
)

// Vector is a simple float32 slice wrapper.
type Vector []float32

// Clone returns a copy that does not share storage with v.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Norm returns the L2 norm.
func Norm(v Vector) float32 {
	if len(v) == 0 {
		return 0
	}
	return float32(math.Sqrt(float64(vek32.Dot(v, v))))
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Empty, mismatched or zero-norm inputs score 0 rather than NaN.
func CosineSimilarity(a, b Vector) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return vek32.Dot(a, b) / (na * nb)
}

// Unit returns v scaled to unit L2 length. A zero vector is returned as a zero copy.
func Unit(v Vector) Vector {
	out := v.Clone()
	n := Norm(v)
	if n == 0 {
		return out
	}
	vek32.MulNumber_Inplace(out, 1/n)
	return out
}

// Mean averages equally sized vectors. It returns nil for an empty input.
func Mean(vectors []Vector) Vector {
	if len(vectors) == 0 {
		return nil
	}
	out := make(Vector, len(vectors[0]))
	for _, v := range vectors {
		vek32.Add_Inplace(out, v)
	}
	vek32.MulNumber_Inplace(out, 1/float32(len(vectors)))
	return out
}
