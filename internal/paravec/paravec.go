// Package paravec infers paragraph vectors for short documents against a
// frozen word-embedding model and ranks the model's labels by similarity to
// them.
package paravec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"paravec/internal/embeddings"
	"paravec/internal/labels"
	"paravec/internal/learning"
	"paravec/internal/sequence"
	"paravec/internal/tokenizer"
	"paravec/internal/vocab"
)

var (
	ErrConfiguration     = errors.New("model misconfigured")
	ErrEmptyInput        = sequence.ErrEmptyInput
	ErrUnknownToken      = errors.New("input shares no tokens with the vocabulary")
	ErrDimensionMismatch = labels.ErrDimensionMismatch
	ErrInvalidParams     = learning.ErrInvalidParams
)

// Config holds the inference defaults and the shape of the frozen model.
type Config struct {
	LearningRate    float64
	MinLearningRate float64
	// Epochs multiplies Iterations in DefaultParams.
	Epochs     int
	Iterations int

	Window   int
	Negative int
	Scoring  learning.Scoring
	Seed     uint64

	// RefineMargin sizes the coarse label shortlist beyond topN. Zero means
	// labels.DefaultRefineMargin; a negative value disables the margin.
	RefineMargin int
	// Placeholders are never returned as labels. Nil means UNK and STOP.
	Placeholders []string
	Initializer  learning.Initializer
}

func DefaultConfig() Config {
	return Config{
		LearningRate:    0.025,
		MinLearningRate: 0.0001,
		Epochs:          1,
		Iterations:      5,
		Scoring:         learning.ScoringNegative,
		RefineMargin:    labels.DefaultRefineMargin,
	}
}

// Document is input to InferDocument. Tokens take precedence over Content.
type Document struct {
	Content string
	Tokens  []string
}

// Model is safe for concurrent use.
type Model struct {
	store     *embeddings.Store
	cfg       Config
	tokenizer tokenizer.Tokenizer
	log       *slog.Logger

	engine    func() (*learning.Engine, error)
	projector *labels.Projector
	ranker    *labels.Ranker
	trained   sync.Once
}

type Option func(*Model)

// WithTokenizer enables the raw-text entry points.
func WithTokenizer(t tokenizer.Tokenizer) Option {
	return func(m *Model) { m.tokenizer = t }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.log = l
		}
	}
}

// New wraps a frozen store. The inference engine is built on first use.
func New(store *embeddings.Store, cfg Config, opts ...Option) (*Model, error) {
	if store == nil {
		return nil, fmt.Errorf("nil embedding store: %w", ErrConfiguration)
	}
	m := &Model{store: store, cfg: cfg, log: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}

	rankOpts := labels.DefaultRankerOptions()
	switch {
	case cfg.RefineMargin > 0:
		rankOpts.RefineMargin = cfg.RefineMargin
	case cfg.RefineMargin < 0:
		rankOpts.RefineMargin = 0
	}
	if cfg.Placeholders != nil {
		rankOpts.Placeholders = cfg.Placeholders
	}
	m.projector = labels.NewProjector(store.Vocabulary(), store.Table(), m.log)
	m.ranker = labels.NewRanker(m.projector, rankOpts)

	m.engine = sync.OnceValues(func() (*learning.Engine, error) {
		e, err := learning.NewEngine(store, learning.Config{
			Window:      cfg.Window,
			Negative:    cfg.Negative,
			Scoring:     cfg.Scoring,
			Seed:        cfg.Seed,
			Initializer: cfg.Initializer,
		}, m.log)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		return e, nil
	})
	return m, nil
}

func (m *Model) Store() *embeddings.Store { return m.store }

func (m *Model) Config() Config { return m.cfg }

func (m *Model) Dimensionality() int { return m.store.Dimensionality() }

// Engine returns the shared inference engine, building it on first call.
func (m *Model) Engine() (*learning.Engine, error) { return m.engine() }

// DefaultParams runs Epochs*Iterations passes at the configured rates.
func (m *Model) DefaultParams() learning.Params {
	return learning.Params{
		LearningRate:    m.cfg.LearningRate,
		MinLearningRate: m.cfg.MinLearningRate,
		Iterations:      max(m.cfg.Epochs, 1) * m.cfg.Iterations,
	}
}

// InferVector infers a vector for tokens. Unknown tokens are skipped; if
// none remain the call fails with ErrUnknownToken.
func (m *Model) InferVector(ctx context.Context, tokens []string, p learning.Params) (embeddings.Vector, error) {
	if len(tokens) == 0 {
		return nil, ErrEmptyInput
	}
	entries := m.resolve(tokens)
	if len(entries) == 0 {
		return nil, fmt.Errorf("%d tokens: %w", len(tokens), ErrUnknownToken)
	}
	return m.InferEntries(ctx, entries, p)
}

// InferEntries infers a vector for entries already resolved against the
// vocabulary.
func (m *Model) InferEntries(ctx context.Context, entries []vocab.Entry, p learning.Params) (embeddings.Vector, error) {
	seq, err := sequence.Build(entries)
	if err != nil {
		return nil, err
	}
	engine, err := m.engine()
	if err != nil {
		return nil, err
	}
	vec, err := engine.Infer(ctx, seq, p)
	if err != nil {
		return nil, err
	}
	m.log.Debug("inferred document vector",
		"anchor", seq.Label.Token,
		"elements", seq.Len(),
		"iterations", p.Iterations)
	return vec, nil
}

// InferText tokenizes text and infers its vector.
func (m *Model) InferText(ctx context.Context, text string, p learning.Params) (embeddings.Vector, error) {
	tokens, err := m.tokenize(text)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("text has no tokens: %w", ErrUnknownToken)
	}
	return m.InferVector(ctx, tokens, p)
}

// InferDocument infers from doc.Tokens when present, otherwise from doc.Content.
func (m *Model) InferDocument(ctx context.Context, doc Document, p learning.Params) (embeddings.Vector, error) {
	if len(doc.Tokens) > 0 {
		return m.InferVector(ctx, doc.Tokens, p)
	}
	return m.InferText(ctx, doc.Content, p)
}

func (m *Model) tokenize(text string) ([]string, error) {
	if m.tokenizer == nil {
		return nil, fmt.Errorf("no tokenizer configured: %w", ErrConfiguration)
	}
	return m.tokenizer.Tokenize(text), nil
}

func (m *Model) resolve(tokens []string) []vocab.Entry {
	v := m.store.Vocabulary()
	out := make([]vocab.Entry, 0, len(tokens))
	for _, t := range tokens {
		if e, ok := v.EntryFor(t); ok {
			out = append(out, e)
		}
	}
	return out
}
