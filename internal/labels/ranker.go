package labels

import (
	"fmt"
	"log/slog"
	"sort"

	"paravec/internal/embeddings"
	"paravec/internal/topn"
	"paravec/internal/vocab"
)

// DefaultRefineMargin is how many extra coarse candidates are rescored
// precisely. Too small a margin can drop true top-N labels whose coarse and
// precise ranks disagree.
const DefaultRefineMargin = 20

// Similarity is a refined label candidate.
type Similarity struct {
	Label    string  `json:"label"`
	Score    float32 `json:"score"`
	Position int     `json:"-"`
}

// RankerOptions tunes the two-stage ranking.
type RankerOptions struct {
	// RefineMargin is added to topN to size the coarse shortlist.
	// Negative values are treated as zero.
	RefineMargin int
	// Placeholders are tokens never returned as labels.
	Placeholders []string
}

// DefaultRankerOptions filters the unknown-word and end-of-sequence markers.
func DefaultRankerOptions() RankerOptions {
	return RankerOptions{
		RefineMargin: DefaultRefineMargin,
		Placeholders: []string{vocab.UnknownToken, vocab.StopToken},
	}
}

// Ranker orders labels by cosine similarity to a query vector: a coarse
// matrix product shortlists candidates, which are then rescored against the
// original embedding rows.
type Ranker struct {
	projector    *Projector
	table        *embeddings.Table
	margin       int
	placeholders map[string]struct{}
	log          *slog.Logger
}

func NewRanker(p *Projector, opts RankerOptions) *Ranker {
	ph := make(map[string]struct{}, len(opts.Placeholders))
	for _, t := range opts.Placeholders {
		ph[t] = struct{}{}
	}
	return &Ranker{
		projector:    p,
		table:        p.table,
		margin:       max(opts.RefineMargin, 0),
		placeholders: ph,
		log:          p.log,
	}
}

// Nearest returns up to topN label strings, most similar first.
func (r *Ranker) Nearest(query embeddings.Vector, topN int) ([]string, error) {
	scored, err := r.NearestScored(query, topN)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.Label
	}
	return out, nil
}

// NearestScored is Nearest with the precise scores attached. topN <= 0 and
// an empty label set both yield an empty result.
func (r *Ranker) NearestScored(query embeddings.Vector, topN int) ([]Similarity, error) {
	if topN <= 0 {
		return []Similarity{}, nil
	}
	m := r.projector.Ensure()
	if m == nil || m.Len() == 0 {
		r.log.Debug("no labels available for ranking")
		return []Similarity{}, nil
	}
	coarse, err := m.Scores(query)
	if err != nil {
		return nil, err
	}

	shortlist := topn.Indices(coarse, shortlistSize(topN, r.margin, m.Len()))
	refined := make([]Similarity, 0, len(shortlist))
	for _, pos := range shortlist {
		e := m.Label(pos)
		if r.isPlaceholder(e) {
			continue
		}
		refined = append(refined, Similarity{
			Label:    e.LabelValue(),
			Score:    embeddings.CosineSimilarity(query, r.table.Row(e.Index)),
			Position: pos,
		})
	}
	sort.SliceStable(refined, func(i, j int) bool { return ranksAhead(refined[i], refined[j]) })
	if len(refined) > topN {
		refined = refined[:topN]
	}
	return refined, nil
}

// shortlistSize is topN plus margin, capped at the label count without
// overflowing.
func shortlistSize(topN, margin, labels int) int {
	n := min(topN, labels)
	if margin >= labels-n {
		return labels
	}
	return n + margin
}

func (r *Ranker) isPlaceholder(e vocab.Entry) bool {
	if _, ok := r.placeholders[e.Token]; ok {
		return true
	}
	_, ok := r.placeholders[e.LabelValue()]
	return ok
}

// Exact scores every label precisely against query and returns the best
// topN. It skips the coarse prefilter and is meant for small label sets.
func (r *Ranker) Exact(query embeddings.Vector, topN int) ([]Similarity, error) {
	if topN <= 0 {
		return []Similarity{}, nil
	}
	m := r.projector.Ensure()
	if m == nil || m.Len() == 0 {
		return []Similarity{}, nil
	}
	if len(query) != m.Dimensionality() {
		return nil, fmt.Errorf("query has %d dimensions, labels have %d: %w", len(query), m.Dimensionality(), ErrDimensionMismatch)
	}
	all := make([]Similarity, 0, m.Len())
	for pos := 0; pos < m.Len(); pos++ {
		e := m.Label(pos)
		if r.isPlaceholder(e) {
			continue
		}
		all = append(all, Similarity{
			Label:    e.LabelValue(),
			Score:    embeddings.CosineSimilarity(query, r.table.Row(e.Index)),
			Position: pos,
		})
	}
	best := topn.Largest(all, topN, ranksAhead)
	if best == nil {
		return []Similarity{}, nil
	}
	return best, nil
}

// ranksAhead orders by score, then by label position.
func ranksAhead(a, b Similarity) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Position < b.Position
}
