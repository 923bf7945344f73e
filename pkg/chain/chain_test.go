package chain

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

func TestDevMine(t *testing.T) {
	d := NewDev(1, 1000)

	d.Mine()
	require.Equal(t, uint64(2), d.BlockNumber())
	require.Equal(t, uint64(1001), d.Timestamp())

	d.IncreaseTime(500)
	require.Equal(t, uint64(1001), d.Timestamp(), "increase applies on the next block")

	d.Seal()
	require.Equal(t, uint64(3), d.BlockNumber())
	require.Equal(t, uint64(1501), d.Timestamp())

	d.Mine()
	require.Equal(t, uint64(1502), d.Timestamp())
}

func TestWallDevNeverLags(t *testing.T) {
	d := NewWallDev(0)
	start := d.Timestamp()

	d.Mine()
	require.GreaterOrEqual(t, d.Timestamp(), start+1)
}

type fakeHead struct {
	block *big.Int
	time  uint64
	err   error
}

func (f *fakeHead) LatestHeader() (*types.Header, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &types.Header{Number: f.block, Time: f.time}, nil
}

func TestHead(t *testing.T) {
	r := &fakeHead{block: big.NewInt(100), time: 5000}

	h, err := NewHead(r)
	require.NoError(t, err)
	require.Equal(t, uint64(100), h.BlockNumber())
	require.Equal(t, uint64(5000), h.Timestamp())

	r.block = big.NewInt(101)
	r.time = 5012
	h.Seal()
	require.Equal(t, uint64(101), h.BlockNumber())
	require.Equal(t, uint64(5012), h.Timestamp())

	// failures keep the last head
	r.err = errors.New("rpc down")
	h.Seal()
	require.Equal(t, uint64(101), h.BlockNumber())

	// never moves backwards
	r.err = nil
	r.block = big.NewInt(99)
	require.NoError(t, h.Refresh())
	require.Equal(t, uint64(101), h.BlockNumber())

	_, err = NewHead(&fakeHead{err: errors.New("rpc down")})
	require.Error(t, err)
}
