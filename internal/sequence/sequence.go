package sequence

import (
	"errors"

	"github.com/google/uuid"

	"paravec/internal/vocab"
)

// LabelPrefix marks synthetic sequence labels so they never collide with corpus tokens.
const LabelPrefix = "DOC_"

var ErrEmptyInput = errors.New("empty input: document has no usable elements")

// Sequence is a document prepared for inference: its elements plus a synthetic
// anchor label that exists only for the lifetime of one inference call.
type Sequence struct {
	Elements []vocab.Entry
	Label    vocab.Entry
}

// Build copies entries into a new Sequence anchored by a fresh random label.
func Build(entries []vocab.Entry) (Sequence, error) {
	if len(entries) == 0 {
		return Sequence{}, ErrEmptyInput
	}
	elems := make([]vocab.Entry, len(entries))
	copy(elems, entries)
	return Sequence{
		Elements: elems,
		Label: vocab.Entry{
			Token:   LabelPrefix + uuid.NewString(),
			Index:   -1,
			Count:   1,
			IsLabel: true,
		},
	}, nil
}

func (s Sequence) Len() int { return len(s.Elements) }

// Indices returns the table row of every element, in order.
func (s Sequence) Indices() []int {
	out := make([]int, len(s.Elements))
	for i, e := range s.Elements {
		out[i] = e.Index
	}
	return out
}
