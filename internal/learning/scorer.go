package learning

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/viterin/vek/vek32"
	"gonum.org/v1/gonum/blas/blas32"

	"paravec/internal/embeddings"
	"paravec/internal/vocab"
)

const maxExp = 6

// scorer accumulates into neu1e the gradient of the output objective for
// predicting target from the averaged input neu1. Output weights are read only.
type scorer interface {
	accumulate(neu1 []float32, target vocab.Entry, alpha float32, neu1e []float32, rng *rand.Rand)
}

type hierarchicalSoftmax struct {
	table *embeddings.Table
}

func (h hierarchicalSoftmax) accumulate(neu1 []float32, target vocab.Entry, alpha float32, neu1e []float32, _ *rand.Rand) {
	for d, point := range target.Points {
		row := h.table.InnerNode(point)
		f := vek32.Dot(neu1, row)
		if f <= -maxExp || f >= maxExp {
			continue
		}
		g := (1 - float32(target.Codes[d]) - sigmoid(f)) * alpha
		axpy(g, row, neu1e)
	}
}

type negativeSampler struct {
	table      *embeddings.Table
	negative   int
	cumulative []float64
}

// newNegativeSampler precomputes the unigram^0.75 distribution over the vocabulary.
func newNegativeSampler(store *embeddings.Store, negative int) *negativeSampler {
	entries := store.Vocabulary().Entries()
	cum := make([]float64, len(entries))
	var total float64
	for i, e := range entries {
		if e.Count > 0 {
			total += math.Pow(e.Count, 0.75)
		}
		cum[i] = total
	}
	if total == 0 {
		for i := range cum {
			cum[i] = float64(i + 1)
		}
	}
	return &negativeSampler{table: store.Table(), negative: negative, cumulative: cum}
}

func (s *negativeSampler) sample(rng *rand.Rand) int {
	r := rng.Float64() * s.cumulative[len(s.cumulative)-1]
	return sort.Search(len(s.cumulative), func(i int) bool { return s.cumulative[i] > r })
}

func (s *negativeSampler) accumulate(neu1 []float32, target vocab.Entry, alpha float32, neu1e []float32, rng *rand.Rand) {
	for d := 0; d <= s.negative; d++ {
		idx, label := target.Index, float32(1)
		if d > 0 {
			idx, label = s.sample(rng), 0
			if idx == target.Index {
				continue
			}
		}
		row := s.table.OutputRow(idx)
		f := vek32.Dot(neu1, row)
		var g float32
		switch {
		case f > maxExp:
			g = (label - 1) * alpha
		case f < -maxExp:
			g = label * alpha
		default:
			g = (label - sigmoid(f)) * alpha
		}
		axpy(g, row, neu1e)
	}
}

func sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}

// axpy computes y += alpha*x.
func axpy(alpha float32, x, y []float32) {
	blas32.Axpy(alpha,
		blas32.Vector{N: len(x), Inc: 1, Data: x},
		blas32.Vector{N: len(y), Inc: 1, Data: y},
	)
}
