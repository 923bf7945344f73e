package chain

import (
	"sync"
	"time"
)

// Clock exposes the block an operation is applied in.
type Clock interface {
	BlockNumber() uint64
	Timestamp() uint64
}

// Sealer is implemented by clocks that open a new block for every operation.
type Sealer interface {
	Seal()
}

// Dev is a local automining chain: every Seal mines a new block.
//
// Timestamps advance by at least one second per block. IncreaseTime shifts
// the timestamp of the next mined block, the way a development node's
// evm_increaseTime does. When a wall clock is set the block timestamp never
// lags behind it.
type Dev struct {
	mu sync.Mutex

	block  uint64
	time   uint64
	offset uint64

	wall func() time.Time
}

func NewDev(block, timestamp uint64) *Dev {
	return &Dev{
		block: block,
		time:  timestamp,
	}
}

// NewWallDev starts a dev chain at the current wall-clock time.
func NewWallDev(block uint64) *Dev {
	d := &Dev{
		block: block,
		wall:  time.Now,
	}
	d.time = uint64(d.wall().Unix())

	return d
}

func (d *Dev) BlockNumber() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.block
}

func (d *Dev) Timestamp() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.time
}

// Seal mines a block.
func (d *Dev) Seal() {
	d.Mine()
}

// Mine mines a new block and applies any pending time increase.
func (d *Dev) Mine() {
	d.mu.Lock()
	defer d.mu.Unlock()

	next := d.time + 1
	if d.offset > 0 {
		next = d.time + d.offset
		d.offset = 0
	}

	if d.wall != nil {
		now := uint64(d.wall().Unix())
		if now > next {
			next = now
		}
	}

	d.block++
	d.time = next
}

// IncreaseTime moves the next mined block seconds into the future.
func (d *Dev) IncreaseTime(seconds uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.offset += seconds
}
