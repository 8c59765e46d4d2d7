package paravec

import (
	"context"
	"fmt"

	"paravec/internal/embeddings"
	"paravec/internal/labels"
)

// ExtractLabels rebuilds the label matrix from the vocabulary's flagged
// entries and reports whether a new one was committed.
func (m *Model) ExtractLabels() bool { return m.projector.Extract() }

// CompleteTraining marks the base model as ready and runs the initial label
// extraction. Later calls do nothing.
func (m *Model) CompleteTraining() {
	m.trained.Do(func() { m.projector.Extract() })
}

// Labels returns the label values of the current label matrix in row order.
func (m *Model) Labels() []string {
	mat := m.projector.Current()
	if mat == nil {
		return nil
	}
	out := make([]string, 0, mat.Len())
	for _, e := range mat.Labels() {
		out = append(out, e.LabelValue())
	}
	return out
}

// NearestLabels returns up to topN labels closest to vec.
func (m *Model) NearestLabels(vec embeddings.Vector, topN int) ([]string, error) {
	return m.ranker.Nearest(vec, topN)
}

// NearestLabelsScored is NearestLabels with cosine scores.
func (m *Model) NearestLabelsScored(vec embeddings.Vector, topN int) ([]labels.Similarity, error) {
	return m.ranker.NearestScored(vec, topN)
}

// NearestLabelsForTokens infers a vector for tokens with DefaultParams and
// ranks labels against it. An empty list fails with ErrEmptyInput; no overlap
// with the vocabulary yields an empty result.
func (m *Model) NearestLabelsForTokens(ctx context.Context, tokens []string, topN int) ([]string, error) {
	scored, err := m.NearestLabelsScoredForTokens(ctx, tokens, topN)
	if err != nil {
		return nil, err
	}
	return labelValues(scored), nil
}

// NearestLabelsForText tokenizes text and ranks labels for the known tokens.
// Text without vocabulary overlap, including empty text, yields an empty list.
func (m *Model) NearestLabelsForText(ctx context.Context, text string, topN int) ([]string, error) {
	scored, err := m.NearestLabelsScoredForText(ctx, text, topN)
	if err != nil {
		return nil, err
	}
	return labelValues(scored), nil
}

// NearestLabelsScoredForText is NearestLabelsForText with cosine scores.
func (m *Model) NearestLabelsScoredForText(ctx context.Context, text string, topN int) ([]labels.Similarity, error) {
	tokens, err := m.tokenize(text)
	if err != nil {
		return nil, err
	}
	return m.rankTokens(ctx, tokens, topN)
}

// NearestLabelsScoredForTokens is NearestLabelsForTokens with cosine scores.
// An empty token list is rejected with ErrEmptyInput.
func (m *Model) NearestLabelsScoredForTokens(ctx context.Context, tokens []string, topN int) ([]labels.Similarity, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("nearest labels for tokens: %w", ErrEmptyInput)
	}
	return m.rankTokens(ctx, tokens, topN)
}

// rankTokens infers a vector for the known tokens and ranks labels against
// it. No vocabulary overlap yields an empty result.
func (m *Model) rankTokens(ctx context.Context, tokens []string, topN int) ([]labels.Similarity, error) {
	entries := m.resolve(tokens)
	if len(entries) == 0 {
		m.log.Warn("document has no matches in model vocabulary", "tokens", len(tokens))
		return []labels.Similarity{}, nil
	}
	vec, err := m.InferEntries(ctx, entries, m.DefaultParams())
	if err != nil {
		return nil, err
	}
	return m.ranker.NearestScored(vec, topN)
}

func labelValues(scored []labels.Similarity) []string {
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.Label
	}
	return out
}
