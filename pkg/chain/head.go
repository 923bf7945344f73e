package chain

import (
	"log"
	"sync"

	"github.com/ethereum/go-ethereum/core/types"
)

// HeadReader reads the tip of an external chain.
type HeadReader interface {
	LatestHeader() (*types.Header, error)
}

// Head follows the latest block of an RPC node. Operations applied between
// two refreshes share the same block.
type Head struct {
	mu sync.Mutex
	r  HeadReader

	block uint64
	time  uint64
}

func NewHead(r HeadReader) (*Head, error) {
	h := &Head{r: r}

	if err := h.Refresh(); err != nil {
		return nil, err
	}

	return h, nil
}

// Refresh fetches the latest block number and its timestamp.
func (h *Head) Refresh() error {
	hd, err := h.r.LatestHeader()
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// the head never moves backwards, even across a reorg
	if hd.Number.Uint64() < h.block {
		return nil
	}

	h.block = hd.Number.Uint64()
	h.time = hd.Time

	return nil
}

// Seal refreshes the head; on failure the last known head is kept.
func (h *Head) Seal() {
	if err := h.Refresh(); err != nil {
		log.Default().Println("[head] refresh failed, keeping block ", h.BlockNumber(), ": ", err)
	}
}

func (h *Head) BlockNumber() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.block
}

func (h *Head) Timestamp() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.time
}
