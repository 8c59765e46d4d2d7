package learning

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand/v2"

	"github.com/viterin/vek/vek32"

	"paravec/internal/embeddings"
	"paravec/internal/sequence"
)

// Engine infers document vectors with the distributed-memory (PV-DM) update
// against a frozen store. Only the document vector is trained; the engine
// holds no per-call state and is safe for concurrent use.
type Engine struct {
	store  *embeddings.Store
	cfg    Config
	scorer scorer
	log    *slog.Logger
}

// NewEngine checks the store carries the output weights cfg.Scoring needs and
// prepares the scorer.
func NewEngine(store *embeddings.Store, cfg Config, log *slog.Logger) (*Engine, error) {
	cfg.ApplyDefaults()
	if log == nil {
		log = slog.Default()
	}
	table := store.Table()

	var sc scorer
	switch cfg.Scoring {
	case ScoringNegative:
		if !table.HasNegativeSampling() {
			return nil, fmt.Errorf("scoring %q needs negative sampling weights: %w", cfg.Scoring, ErrConfiguration)
		}
		if store.RowCount() == 0 {
			return nil, fmt.Errorf("negative sampling over an empty vocabulary: %w", ErrConfiguration)
		}
		sc = newNegativeSampler(store, cfg.Negative)
	case ScoringHierarchical:
		if !table.HasHierarchicalSoftmax() {
			return nil, fmt.Errorf("scoring %q needs hierarchical softmax weights: %w", cfg.Scoring, ErrConfiguration)
		}
		sc = hierarchicalSoftmax{table: table}
	default:
		return nil, fmt.Errorf("unknown scoring %q: %w", cfg.Scoring, ErrConfiguration)
	}

	log.Info("inference engine ready",
		"scoring", cfg.Scoring,
		"window", cfg.Window,
		"negative", cfg.Negative,
		"dimensions", store.Dimensionality(),
		"rows", store.RowCount(),
	)
	return &Engine{store: store, cfg: cfg, scorer: sc, log: log}, nil
}

func (e *Engine) Config() Config { return e.cfg }

// Infer trains a fresh document vector for seq. It checks ctx once per
// iteration over the sequence.
func (e *Engine) Infer(ctx context.Context, seq sequence.Sequence, p Params) (embeddings.Vector, error) {
	if seq.Len() == 0 {
		return nil, sequence.ErrEmptyInput
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	rows := e.store.RowCount()
	for _, el := range seq.Elements {
		if el.Index < 0 || el.Index >= rows {
			return nil, fmt.Errorf("element %q has index %d outside table of %d rows: %w", el.Token, el.Index, rows, ErrInvalidParams)
		}
	}

	dim := e.store.Dimensionality()
	rng := rand.New(rand.NewPCG(e.cfg.Seed, sequenceHash(seq)))
	doc := embeddings.Vector(e.cfg.Initializer(rng, dim))
	if len(doc) != dim {
		return nil, fmt.Errorf("initializer returned %d values, want %d: %w", len(doc), dim, ErrConfiguration)
	}

	table := e.store.Table()
	window := e.cfg.Window
	n := seq.Len()
	total := p.Iterations * n
	neu1 := make([]float32, dim)
	neu1e := make([]float32, dim)

	step := 0
	for iter := 0; iter < p.Iterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i, target := range seq.Elements {
			alpha := float32(p.Rate(step, total))
			step++

			b := rng.IntN(window)
			clear(neu1)
			cw := 0
			for a := b; a < window*2+1-b; a++ {
				if a == window {
					continue
				}
				c := i - window + a
				if c < 0 || c >= n {
					continue
				}
				vek32.Add_Inplace(neu1, table.Row(seq.Elements[c].Index))
				cw++
			}
			vek32.Add_Inplace(neu1, doc)
			cw++
			vek32.MulNumber_Inplace(neu1, 1/float32(cw))

			clear(neu1e)
			e.scorer.accumulate(neu1, target, alpha, neu1e, rng)
			vek32.Add_Inplace(doc, neu1e)
		}
	}

	e.log.Debug("inferred document vector", "label", seq.Label.Token, "elements", n, "updates", total)
	return doc, nil
}

// sequenceHash keys the RNG on the element indices so equal documents infer
// equal vectors under one seed. The synthetic label is not hashed.
func sequenceHash(seq sequence.Sequence) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, idx := range seq.Indices() {
		binary.LittleEndian.PutUint64(buf[:], uint64(idx))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}
