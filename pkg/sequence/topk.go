package sequence

import "container/heap"

// TopK keeps the k greatest values seen so far according to cmp. It holds at
// most k items at any time, so selecting from n values costs O(n log k).
type TopK[T any] struct {
	h topHeap[T]
	k int
}

// NewTopK creates a TopK. cmp returns a negative number when a ranks below b.
func NewTopK[T any](k int, cmp func(a, b T) int) *TopK[T] {
	if k < 0 {
		k = 0
	}
	return &TopK[T]{
		h: topHeap[T]{cmp: cmp, items: make([]T, 0, k)},
		k: k,
	}
}

// Push offers v; it is kept only if it ranks among the k greatest.
func (t *TopK[T]) Push(v T) {
	if t.k == 0 {
		return
	}
	if t.h.Len() < t.k {
		heap.Push(&t.h, v)
		return
	}
	// items[0] is the lowest kept value.
	if t.h.cmp(v, t.h.items[0]) > 0 {
		t.h.items[0] = v
		heap.Fix(&t.h, 0)
	}
}

func (t *TopK[T]) Len() int {
	return t.h.Len()
}

// Sorted drains the TopK and returns its values greatest first.
func (t *TopK[T]) Sorted() []T {
	out := make([]T, t.h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&t.h).(T)
	}
	return out
}

// topHeap is a min-heap under cmp.
type topHeap[T any] struct {
	items []T
	cmp   func(a, b T) int
}

func (h *topHeap[T]) Len() int           { return len(h.items) }
func (h *topHeap[T]) Less(i, j int) bool { return h.cmp(h.items[i], h.items[j]) < 0 }
func (h *topHeap[T]) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *topHeap[T]) Push(x any) {
	h.items = append(h.items, x.(T))
}

func (h *topHeap[T]) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	var zero T
	old[n-1] = zero // avoid memory leak
	h.items = old[:n-1]
	return item
}
