package labels

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"paravec/internal/embeddings"
	"paravec/internal/vocab"
)

// Projector copies the rows of flagged vocabulary entries into a label
// Matrix. Each successful extraction publishes a fresh generation.
type Projector struct {
	vocab vocab.Vocabulary
	table *embeddings.Table
	log   *slog.Logger

	mu         sync.Mutex
	generation uint64
	current    atomic.Pointer[Matrix]
}

func NewProjector(v vocab.Vocabulary, table *embeddings.Table, log *slog.Logger) *Projector {
	if log == nil {
		log = slog.Default()
	}
	return &Projector{vocab: v, table: table, log: log}
}

// Extract scans the vocabulary in index order and swaps in a new generation
// holding every flagged label. It reports whether a generation was
// committed; when no labels are flagged the current one is kept.
func (p *Projector) Extract() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	entries := vocab.Labels(p.vocab)
	if len(entries) == 0 {
		p.log.Warn("no labels flagged in vocabulary, keeping current label matrix",
			"generation", p.generation)
		return false
	}
	p.generation++
	p.current.Store(newMatrix(entries, p.table, p.generation))
	p.log.Info("label matrix extracted",
		"labels", len(entries),
		"generation", p.generation)
	return true
}

// Current returns the published generation, or nil before the first
// successful extraction.
func (p *Projector) Current() *Matrix { return p.current.Load() }

// Ensure returns the current generation, extracting first when there is none
// or it is empty.
func (p *Projector) Ensure() *Matrix {
	if m := p.Current(); m != nil && m.Len() > 0 {
		return m
	}
	p.Extract()
	return p.Current()
}
