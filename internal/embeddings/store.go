package embeddings

import (
	"fmt"

	"paravec/internal/vocab"
)

// Store joins a vocabulary with the table its indices address.
type Store struct {
	vocab vocab.Vocabulary
	table *Table
}

// NewStore validates that every vocabulary entry addresses a table row.
func NewStore(v vocab.Vocabulary, t *Table) (*Store, error) {
	if v.Size() != t.RowCount() {
		return nil, fmt.Errorf("vocabulary has %d entries, table has %d rows: %w", v.Size(), t.RowCount(), ErrShape)
	}
	if t.HasHierarchicalSoftmax() {
		for _, e := range v.Entries() {
			for _, p := range e.Points {
				if p < 0 || p >= t.rows-1 {
					return nil, fmt.Errorf("entry %q points at inner node %d: %w", e.Token, p, ErrShape)
				}
			}
		}
	}
	return &Store{vocab: v, table: t}, nil
}

func (s *Store) Vocabulary() vocab.Vocabulary { return s.vocab }

func (s *Store) Table() *Table { return s.table }

func (s *Store) Dimensionality() int { return s.table.dim }

func (s *Store) RowCount() int { return s.table.rows }

// VectorFor returns a copy of the vector for token.
func (s *Store) VectorFor(token string) (Vector, bool) {
	e, ok := s.vocab.EntryFor(token)
	if !ok {
		return nil, false
	}
	return s.table.Row(e.Index).Clone(), true
}
