package learning

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// Scoring selects the output objective the base model was trained with.
type Scoring string

const (
	ScoringNegative     Scoring = "negative"
	ScoringHierarchical Scoring = "hierarchical"
)

const (
	defaultWindow   = 5
	defaultNegative = 5
)

var (
	ErrInvalidParams = errors.New("invalid inference parameters")
	ErrConfiguration = errors.New("inference engine misconfigured")
)

// Params bounds a single inference run.
type Params struct {
	LearningRate    float64
	MinLearningRate float64
	Iterations      int
}

func (p Params) Validate() error {
	switch {
	case !(p.LearningRate > 0):
		return fmt.Errorf("learning rate %v must be positive: %w", p.LearningRate, ErrInvalidParams)
	case p.MinLearningRate < 0 || p.MinLearningRate > p.LearningRate:
		return fmt.Errorf("min learning rate %v must be within [0, %v]: %w", p.MinLearningRate, p.LearningRate, ErrInvalidParams)
	case p.Iterations <= 0:
		return fmt.Errorf("iterations %d must be positive: %w", p.Iterations, ErrInvalidParams)
	}
	return nil
}

// Rate is the learning rate for update k out of total, decaying linearly from
// LearningRate and clamped at MinLearningRate.
func (p Params) Rate(k, total int) float64 {
	if total <= 0 {
		return p.LearningRate
	}
	r := p.LearningRate - (p.LearningRate-p.MinLearningRate)*float64(k)/float64(total)
	if r < p.MinLearningRate {
		return p.MinLearningRate
	}
	return r
}

// Initializer produces the starting document vector.
type Initializer func(rng *rand.Rand, dim int) []float32

// UniformInit is the word2vec scheme: uniform in [-0.5, 0.5) scaled by 1/dim.
func UniformInit(rng *rand.Rand, dim int) []float32 {
	out := make([]float32, dim)
	for i := range out {
		out[i] = (rng.Float32() - 0.5) / float32(dim)
	}
	return out
}

// Config describes the frozen model the engine scores against.
type Config struct {
	Window      int
	Negative    int
	Scoring     Scoring
	Seed        uint64
	Initializer Initializer
}

// ApplyDefaults populates zero values.
func (c *Config) ApplyDefaults() {
	if c.Window <= 0 {
		c.Window = defaultWindow
	}
	if c.Negative <= 0 {
		c.Negative = defaultNegative
	}
	if c.Scoring == "" {
		c.Scoring = ScoringNegative
	}
	if c.Initializer == nil {
		c.Initializer = UniformInit
	}
}
