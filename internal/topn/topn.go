// Package topn selects the k best items from a larger collection with a
// bounded heap instead of a full sort.
package topn

import "container/heap"

// Largest returns the n best items of items, best first. better(a, b)
// reports whether a ranks strictly ahead of b. Runs in O(M log n) time and
// O(n) space; returns min(n, len(items)) items and nil when n <= 0.
func Largest[T any](items []T, n int, better func(a, b T) bool) []T {
	if n <= 0 || len(items) == 0 {
		return nil
	}
	if n > len(items) {
		n = len(items)
	}
	h := &boundedHeap[T]{items: make([]T, 0, n), better: better}
	for _, it := range items {
		if h.Len() < n {
			heap.Push(h, it)
			continue
		}
		// Root is the worst item kept so far.
		if better(it, h.items[0]) {
			h.items[0] = it
			heap.Fix(h, 0)
		}
	}
	out := make([]T, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(T)
	}
	return out
}

// Scored pairs a position in a score vector with its value.
type Scored struct {
	Index int
	Score float32
}

// ByScore ranks higher scores first and breaks ties by lower index.
func ByScore(a, b Scored) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Index < b.Index
}

// Indices returns the positions of the n largest scores, highest first.
// Equal scores keep ascending index order.
func Indices(scores []float32, n int) []int {
	if n <= 0 || len(scores) == 0 {
		return nil
	}
	pairs := make([]Scored, len(scores))
	for i, s := range scores {
		pairs[i] = Scored{Index: i, Score: s}
	}
	best := Largest(pairs, n, ByScore)
	out := make([]int, len(best))
	for i, p := range best {
		out[i] = p.Index
	}
	return out
}

// boundedHeap keeps the worst retained item at the root.
type boundedHeap[T any] struct {
	items  []T
	better func(a, b T) bool
}

func (h *boundedHeap[T]) Len() int { return len(h.items) }

func (h *boundedHeap[T]) Less(i, j int) bool { return h.better(h.items[j], h.items[i]) }

func (h *boundedHeap[T]) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *boundedHeap[T]) Push(x any) { h.items = append(h.items, x.(T)) }

func (h *boundedHeap[T]) Pop() any {
	old := h.items
	n := len(old)
	it := old[n-1]
	h.items = old[:n-1]
	return it
}
