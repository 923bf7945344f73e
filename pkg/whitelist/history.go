package whitelist

import "sort"

// Checkpoint is a value recorded at a block.
type Checkpoint[T any] struct {
	Block uint64 `json:"block"`
	Value T      `json:"value"`
}

// History is an append-only sequence of checkpoints with strictly
// increasing blocks.
type History[T any] struct {
	entries []Checkpoint[T]
}

// Push records v at block. Pushing again at the latest block replaces that
// entry's value; blocks older than the latest entry are rejected.
func (h *History[T]) Push(block uint64, v T) bool {
	_, ok := h.push(block, v)
	return ok
}

// push is Push returning a function that reverts it. Reverts are only
// valid in the reverse order of the pushes.
func (h *History[T]) push(block uint64, v T) (func(), bool) {
	n := len(h.entries)
	if n > 0 {
		last := h.entries[n-1].Block
		if block < last {
			return func() {}, false
		}

		if block == last {
			prev := h.entries[n-1].Value
			h.entries[n-1].Value = v
			return func() { h.entries[n-1].Value = prev }, true
		}
	}

	h.entries = append(h.entries, Checkpoint[T]{Block: block, Value: v})
	return func() { h.entries = h.entries[:n] }, true
}

// At returns the value of the last checkpoint at or before block.
func (h *History[T]) At(block uint64) (T, bool) {
	// index of the first entry after block
	i := sort.Search(len(h.entries), func(i int) bool {
		return h.entries[i].Block > block
	})

	if i == 0 {
		var zero T
		return zero, false
	}

	return h.entries[i-1].Value, true
}

// Latest returns the most recent value.
func (h *History[T]) Latest() (T, bool) {
	if len(h.entries) == 0 {
		var zero T
		return zero, false
	}

	return h.entries[len(h.entries)-1].Value, true
}

func (h *History[T]) Len() int {
	return len(h.entries)
}

// Entries returns a copy of the recorded checkpoints.
func (h *History[T]) Entries() []Checkpoint[T] {
	out := make([]Checkpoint[T], len(h.entries))
	copy(out, h.entries)
	return out
}
