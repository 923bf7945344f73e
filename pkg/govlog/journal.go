package govlog

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Emitter receives the logs of a committed operation, in order.
type Emitter interface {
	Emit(logs ...types.Log)
}

// Journal is the in-memory, append-only record of every emitted log.
// Emit stamps each log's Index with its position in the journal, in place.
type Journal struct {
	mu   sync.RWMutex
	logs []types.Log
}

func NewJournal() *Journal {
	return &Journal{}
}

func (j *Journal) Emit(logs ...types.Log) {
	j.mu.Lock()
	defer j.mu.Unlock()

	for i := range logs {
		logs[i].Index = uint(len(j.logs))
		j.logs = append(j.logs, logs[i])
	}
}

func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return len(j.logs)
}

// Since returns up to limit logs starting at index from.
func (j *Journal) Since(from uint, limit int) []types.Log {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if from >= uint(len(j.logs)) || limit <= 0 {
		return []types.Log{}
	}

	end := int(from) + limit
	if end > len(j.logs) {
		end = len(j.logs)
	}

	out := make([]types.Log, end-int(from))
	copy(out, j.logs[from:end])

	return out
}

// Filter returns the logs emitted by address whose first topic is in ids.
// An empty ids matches every event.
func (j *Journal) Filter(address common.Address, ids ...common.Hash) []types.Log {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := []types.Log{}
	for _, l := range j.logs {
		if l.Address != address {
			continue
		}

		if len(ids) > 0 && !containsTopic(ids, l.Topics[0]) {
			continue
		}

		out = append(out, l)
	}

	return out
}

func containsTopic(ids []common.Hash, t common.Hash) bool {
	for _, id := range ids {
		if id == t {
			return true
		}
	}

	return false
}

// Fanout forwards logs to every emitter in order. Put the Journal first so
// downstream emitters see stamped indexes.
type Fanout []Emitter

func (f Fanout) Emit(logs ...types.Log) {
	for _, e := range f {
		e.Emit(logs...)
	}
}

// Discard drops every log.
type Discard struct{}

func (Discard) Emit(logs ...types.Log) {}
