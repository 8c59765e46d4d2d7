package vocab

import (
	"errors"
	"fmt"
	"sync"
)

// Placeholder tokens that may appear in a vocabulary but never name a real label.
const (
	UnknownToken = "UNK"
	StopToken    = "STOP"
)

var ErrTokenNotFound = errors.New("token not in vocabulary")

// Entry is a single vocabulary element. Index addresses its row in the
// embedding table.
type Entry struct {
	Token   string
	Index   int
	Count   float64
	IsLabel bool
	// Label is the textual label value; empty means Token.
	Label string
	// Codes and Points describe the Huffman path used by hierarchical softmax.
	Codes  []byte
	Points []int
}

// LabelValue returns the label string an entry ranks under.
func (e Entry) LabelValue() string {
	if e.Label != "" {
		return e.Label
	}
	return e.Token
}

// Vocabulary is the read side consumed by inference and label extraction.
type Vocabulary interface {
	Contains(token string) bool
	EntryFor(token string) (Entry, bool)
	// Entries returns every entry in index order.
	Entries() []Entry
	Size() int
}

// Cache is an in-memory Vocabulary. Indices are assigned in insertion order.
type Cache struct {
	mu      sync.RWMutex
	byToken map[string]int
	entries []Entry
}

// NewCache returns an empty vocabulary.
func NewCache() *Cache {
	return &Cache{byToken: make(map[string]int)}
}

// Add inserts token with the given count, or adds count to an existing entry.
func (c *Cache) Add(token string, count float64) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i, ok := c.byToken[token]; ok {
		c.entries[i].Count += count
		return c.entries[i]
	}
	e := Entry{Token: token, Index: len(c.entries), Count: count}
	c.byToken[token] = e.Index
	c.entries = append(c.entries, e)
	return e
}

// AddLabel inserts token flagged as a label.
func (c *Cache) AddLabel(token string, count float64) Entry {
	c.Add(token, count)
	if err := c.SetLabel(token, true); err != nil {
		panic(err) // unreachable: token was just added
	}
	e, _ := c.EntryFor(token)
	return e
}

// SetLabel flags or unflags an existing token as a label.
func (c *Cache) SetLabel(token string, isLabel bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.byToken[token]
	if !ok {
		return fmt.Errorf("set label %q: %w", token, ErrTokenNotFound)
	}
	c.entries[i].IsLabel = isLabel
	return nil
}

// SetLabelValue flags token as a label ranked under value.
func (c *Cache) SetLabelValue(token, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.byToken[token]
	if !ok {
		return fmt.Errorf("set label value %q: %w", token, ErrTokenNotFound)
	}
	c.entries[i].IsLabel = true
	c.entries[i].Label = value
	return nil
}

// Contains reports whether token is known.
func (c *Cache) Contains(token string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.byToken[token]
	return ok
}

// EntryFor returns a copy of the entry for token.
func (c *Cache) EntryFor(token string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byToken[token]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Entries returns a snapshot of all entries in index order.
func (c *Cache) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Size returns the number of entries.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Labels returns the entries currently flagged as labels, in index order.
func Labels(v Vocabulary) []Entry {
	var out []Entry
	for _, e := range v.Entries() {
		if e.IsLabel {
			out = append(out, e)
		}
	}
	return out
}
