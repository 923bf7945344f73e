package voting

import (
	"fmt"
	"sync"
)

// ProposalStore persists proposals. Implementations hand out copies so
// callers never share state with the store.
type ProposalStore interface {
	// NextID is the id the next inserted proposal must carry.
	NextID() (uint64, error)
	Insert(p *Proposal) error
	Update(p *Proposal) error
	Get(id uint64) (*Proposal, error)
	List(offset, limit int) ([]*Proposal, error)
	Count() (int, error)
}

// MemoryStore is an in-memory ProposalStore with sequential ids.
type MemoryStore struct {
	mu        sync.RWMutex
	proposals []*Proposal
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) NextID() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return uint64(len(s.proposals)), nil
}

func (s *MemoryStore) Insert(p *Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID != uint64(len(s.proposals)) {
		return fmt.Errorf("inserting proposal %d: next id is %d", p.ID, len(s.proposals))
	}

	s.proposals = append(s.proposals, p.Clone())
	return nil
}

func (s *MemoryStore) Update(p *Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID >= uint64(len(s.proposals)) {
		return fmt.Errorf("%w: %d", ErrProposalNotFound, p.ID)
	}

	s.proposals[p.ID] = p.Clone()
	return nil
}

func (s *MemoryStore) Get(id uint64) (*Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id >= uint64(len(s.proposals)) {
		return nil, fmt.Errorf("%w: %d", ErrProposalNotFound, id)
	}

	return s.proposals[id].Clone(), nil
}

// List returns up to limit proposals in id order starting at offset.
func (s *MemoryStore) List(offset, limit int) ([]*Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*Proposal{}
	if offset < 0 || offset >= len(s.proposals) || limit <= 0 {
		return out, nil
	}

	end := offset + limit
	if end > len(s.proposals) {
		end = len(s.proposals)
	}

	for _, p := range s.proposals[offset:end] {
		out = append(out, p.Clone())
	}

	return out, nil
}

func (s *MemoryStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.proposals), nil
}
