package paravec

import (
	"fmt"

	"paravec/internal/embeddings"
	"paravec/internal/labels"
)

// The helpers below score the plain mean of word vectors instead of an
// inferred vector.

// SimilarityToLabel is the cosine between the mean of the known tokens and
// the vector of label.
func (m *Model) SimilarityToLabel(tokens []string, label string) (float32, error) {
	mean, err := m.meanOf(tokens)
	if err != nil {
		return 0, err
	}
	lv, ok := m.store.VectorFor(label)
	if !ok {
		return 0, fmt.Errorf("label %q: %w", label, ErrUnknownToken)
	}
	return embeddings.CosineSimilarity(mean, lv), nil
}

// PredictSeveral returns up to limit labels ranked against the mean vector.
func (m *Model) PredictSeveral(tokens []string, limit int) ([]labels.Similarity, error) {
	mean, err := m.meanOf(tokens)
	if err != nil {
		return nil, err
	}
	return m.ranker.Exact(mean, limit)
}

// Predict returns the single best label, or "" when no labels exist.
func (m *Model) Predict(tokens []string) (string, error) {
	best, err := m.PredictSeveral(tokens, 1)
	if err != nil || len(best) == 0 {
		return "", err
	}
	return best[0].Label, nil
}

func (m *Model) meanOf(tokens []string) (embeddings.Vector, error) {
	if len(tokens) == 0 {
		return nil, ErrEmptyInput
	}
	entries := m.resolve(tokens)
	if len(entries) == 0 {
		return nil, fmt.Errorf("%d tokens: %w", len(tokens), ErrUnknownToken)
	}
	table := m.store.Table()
	rows := make([]embeddings.Vector, len(entries))
	for i, e := range entries {
		rows[i] = table.Row(e.Index)
	}
	return embeddings.Mean(rows), nil
}
