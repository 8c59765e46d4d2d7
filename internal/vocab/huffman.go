package vocab

import (
	"math"
	"sort"
)

// BuildHuffman assigns Codes and Points to every entry from its Count using
// the word2vec binary tree construction. Inner nodes are numbered
// 0..Size()-2 with the root at Size()-2. A vocabulary with fewer than two
// entries has no inner nodes and all paths stay empty.
func (c *Cache) BuildHuffman() {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	for i := range c.entries {
		c.entries[i].Codes = nil
		c.entries[i].Points = nil
	}
	if n < 2 {
		return
	}

	// Leaves must be ordered by descending count.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return c.entries[order[a]].Count > c.entries[order[b]].Count
	})

	count := make([]float64, 2*n)
	binary := make([]byte, 2*n)
	parent := make([]int, 2*n)
	for i, idx := range order {
		count[i] = c.entries[idx].Count
	}
	for i := n; i < 2*n; i++ {
		count[i] = math.MaxFloat64
	}

	pos1, pos2 := n-1, n
	pick := func() int {
		if pos1 >= 0 && count[pos1] < count[pos2] {
			pos1--
			return pos1 + 1
		}
		pos2++
		return pos2 - 1
	}
	for a := 0; a < n-1; a++ {
		min1 := pick()
		min2 := pick()
		count[n+a] = count[min1] + count[min2]
		parent[min1] = n + a
		parent[min2] = n + a
		binary[min2] = 1
	}

	root := 2*n - 2
	for leaf, idx := range order {
		var codes []byte
		var points []int
		for b := leaf; b != root; b = parent[b] {
			codes = append(codes, binary[b])
			points = append(points, b)
		}
		l := len(codes)
		e := &c.entries[idx]
		e.Codes = make([]byte, l)
		e.Points = make([]int, l)
		e.Points[0] = n - 2
		for j := 0; j < l; j++ {
			e.Codes[l-j-1] = codes[j]
			if j > 0 {
				e.Points[l-j] = points[j] - n
			}
		}
	}
}
