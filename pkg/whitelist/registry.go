package whitelist

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// CurrentCheckpoint asks IsEligibleAt for the live status.
const CurrentCheckpoint uint64 = 0

var ErrStaleCheckpoint = errors.New("checkpoint is older than the recorded history")

// Registry keeps the eligibility history of every address and the history
// of the eligible population size.
//
// Registry is not safe for concurrent use; the voting engine serializes
// access to it.
type Registry struct {
	history    map[common.Address]*History[bool]
	live       map[common.Address]bool
	population History[uint64]
	count      uint64
}

func New() *Registry {
	return &Registry{
		history: map[common.Address]*History[bool]{},
		live:    map[common.Address]bool{},
	}
}

// Set records the eligibility of addr at block and reports whether the
// live status flipped.
func (r *Registry) Set(addr common.Address, eligible bool, block uint64) (bool, error) {
	changed, _, err := r.apply(addr, eligible, block)
	return changed, err
}

// Apply is Set returning a function that reverts it. Reverts must run in
// the reverse order of the calls they undo.
func (r *Registry) Apply(addr common.Address, eligible bool, block uint64) (func(), error) {
	_, undo, err := r.apply(addr, eligible, block)
	return undo, err
}

func (r *Registry) apply(addr common.Address, eligible bool, block uint64) (bool, func(), error) {
	if err := r.Check(addr, block); err != nil {
		return false, nil, err
	}

	h, known := r.history[addr]
	if !known {
		h = &History[bool]{}
		r.history[addr] = h
	}

	undoHistory, _ := h.push(block, eligible)
	undo := func() {
		undoHistory()
		if !known {
			delete(r.history, addr)
		}
	}

	if r.live[addr] == eligible {
		return false, undo, nil
	}

	count := r.count
	if eligible {
		r.live[addr] = true
		r.count++
	} else {
		delete(r.live, addr)
		r.count--
	}

	undoPopulation, _ := r.population.push(block, r.count)

	return true, func() {
		undoPopulation()
		r.count = count
		if eligible {
			delete(r.live, addr)
		} else {
			r.live[addr] = true
		}

		undo()
	}, nil
}

// Check reports whether Set(addr, _, block) would be accepted.
func (r *Registry) Check(addr common.Address, block uint64) error {
	if h, ok := r.history[addr]; ok {
		if lb, ok := h.lastBlock(); ok && block < lb {
			return fmt.Errorf("%w: %s at block %d", ErrStaleCheckpoint, addr.Hex(), block)
		}
	}

	if lb, ok := r.population.lastBlock(); ok && block < lb {
		return fmt.Errorf("%w: population at block %d", ErrStaleCheckpoint, block)
	}

	return nil
}

// IsEligibleAt reports the status of addr as of checkpoint. The sentinel
// CurrentCheckpoint returns the live status.
func (r *Registry) IsEligibleAt(addr common.Address, checkpoint uint64) bool {
	if checkpoint == CurrentCheckpoint {
		return r.IsEligible(addr)
	}

	return r.EligibleAt(addr, checkpoint)
}

// EligibleAt reports the status of addr as of block, without the sentinel.
func (r *Registry) EligibleAt(addr common.Address, block uint64) bool {
	h, ok := r.history[addr]
	if !ok {
		return false
	}

	v, _ := h.At(block)
	return v
}

func (r *Registry) IsEligible(addr common.Address) bool {
	return r.live[addr]
}

// Population is the number of currently eligible addresses.
func (r *Registry) Population() uint64 {
	return r.count
}

// PopulationAt is the number of eligible addresses as of block.
func (r *Registry) PopulationAt(block uint64) uint64 {
	v, _ := r.population.At(block)
	return v
}

// Members returns the currently eligible addresses in ascending order.
func (r *Registry) Members() []common.Address {
	out := make([]common.Address, 0, len(r.live))
	for addr := range r.live {
		out = append(out, addr)
	}

	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Bytes(), out[j].Bytes()) < 0
	})

	return out
}

// HistoryOf returns the recorded checkpoints of addr.
func (r *Registry) HistoryOf(addr common.Address) []Checkpoint[bool] {
	h, ok := r.history[addr]
	if !ok {
		return []Checkpoint[bool]{}
	}

	return h.Entries()
}

func (h *History[T]) lastBlock() (uint64, bool) {
	if len(h.entries) == 0 {
		return 0, false
	}

	return h.entries[len(h.entries)-1].Block, true
}
