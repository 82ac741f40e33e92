// Package topk provides a generic array-backed binary heap used for top-k
// selection and as the priority queue of shortest-path search.
package topk

import (
	"github.com/harvesthub/catalog-engine/internal/errors"
	"github.com/harvesthub/catalog-engine/internal/sorting"
)

// Heap keeps the element with the highest priority at the root.
// An element a has higher priority than b when less(a, b) < 0, so a plain
// ascending comparator yields a min-heap and sorting.Reverse a max-heap.
type Heap[T any] struct {
	items []T
	less  sorting.Comparator[T]
}

// New creates an empty heap ordered by cmp.
func New[T any](cmp sorting.Comparator[T]) *Heap[T] {
	return &Heap[T]{less: cmp}
}

// NewWithCapacity creates an empty heap with room for n elements.
func NewWithCapacity[T any](cmp sorting.Comparator[T], n int) *Heap[T] {
	return &Heap[T]{less: cmp, items: make([]T, 0, n)}
}

// Len returns the number of elements.
func (h *Heap[T]) Len() int {
	return len(h.items)
}

// Push adds v in O(log n).
func (h *Heap[T]) Push(v T) {
	h.items = append(h.items, v)
	h.bubbleUp(len(h.items) - 1)
}

// Peek returns the highest-priority element without removing it.
func (h *Heap[T]) Peek() (T, bool) {
	var zero T
	if len(h.items) == 0 {
		return zero, false
	}
	return h.items[0], true
}

// Pop removes and returns the highest-priority element in O(log n).
func (h *Heap[T]) Pop() (T, bool) {
	var zero T
	n := len(h.items)
	if n == 0 {
		return zero, false
	}

	top := h.items[0]
	h.items[0] = h.items[n-1]
	h.items[n-1] = zero
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.bubbleDown(0)
	}
	return top, true
}

// ExtractTop returns the k highest-priority elements in priority order without
// modifying the heap. It explores the heap array best-first with an auxiliary
// heap of positions, so it costs O(k log k) regardless of the heap size.
func (h *Heap[T]) ExtractTop(k int) ([]T, error) {
	if k <= 0 {
		return nil, errors.NewValidationError("k", "must be positive")
	}
	if k > len(h.items) {
		k = len(h.items)
	}

	out := make([]T, 0, k)
	if k == 0 {
		return out, nil
	}

	frontier := NewWithCapacity[int](func(a, b int) int {
		return h.less(h.items[a], h.items[b])
	}, 2*k)
	frontier.Push(0)

	for len(out) < k {
		pos, _ := frontier.Pop()
		out = append(out, h.items[pos])
		if left := 2*pos + 1; left < len(h.items) {
			frontier.Push(left)
		}
		if right := 2*pos + 2; right < len(h.items) {
			frontier.Push(right)
		}
	}
	return out, nil
}

func (h *Heap[T]) bubbleUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.less(h.items[i], h.items[parent]) >= 0 {
			return
		}
		h.swap(i, parent)
		i = parent
	}
}

func (h *Heap[T]) bubbleDown(i int) {
	n := len(h.items)
	for {
		best := i
		left := 2*i + 1
		right := left + 1

		if left < n && h.less(h.items[left], h.items[best]) < 0 {
			best = left
		}
		if right < n && h.less(h.items[right], h.items[best]) < 0 {
			best = right
		}
		if best == i {
			return
		}
		h.swap(i, best)
		i = best
	}
}

func (h *Heap[T]) swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
}

// From builds a heap over a copy of items in O(n).
func From[T any](items []T, cmp sorting.Comparator[T]) (*Heap[T], error) {
	if cmp == nil {
		return nil, errors.NewValidationError("comparator", "must not be nil")
	}
	h := &Heap[T]{less: cmp, items: make([]T, len(items))}
	copy(h.items, items)
	for i := len(h.items)/2 - 1; i >= 0; i-- {
		h.bubbleDown(i)
	}
	return h, nil
}

// Select returns the k highest-priority elements of items in priority order.
// It keeps a bounded heap of the current best k, so it runs in O(n log k).
func Select[T any](items []T, k int, cmp sorting.Comparator[T]) ([]T, error) {
	if cmp == nil {
		return nil, errors.NewValidationError("comparator", "must not be nil")
	}
	if k <= 0 {
		return nil, errors.NewValidationError("k", "must be positive")
	}

	// root holds the weakest of the kept elements
	kept := NewWithCapacity(sorting.Reverse(cmp), min(k, len(items)))
	for _, it := range items {
		if kept.Len() < k {
			kept.Push(it)
			continue
		}
		if cmp(it, kept.items[0]) < 0 {
			kept.items[0] = it
			kept.bubbleDown(0)
		}
	}

	out := make([]T, kept.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i], _ = kept.Pop()
	}
	return out, nil
}
