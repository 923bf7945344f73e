package whitelist

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func TestHistory(t *testing.T) {
	h := &History[bool]{}

	_, ok := h.At(10)
	require.False(t, ok)

	require.True(t, h.Push(5, true))
	require.True(t, h.Push(9, false))
	require.True(t, h.Push(12, true))

	tests := []struct {
		block    uint64
		expected bool
		found    bool
	}{
		{4, false, false},
		{5, true, true},
		{8, true, true},
		{9, false, true},
		{11, false, true},
		{12, true, true},
		{1000, true, true},
	}

	for _, tt := range tests {
		v, ok := h.At(tt.block)
		require.Equal(t, tt.found, ok, "block %d", tt.block)
		require.Equal(t, tt.expected, v, "block %d", tt.block)
	}

	// same block overwrites, older block is rejected
	require.True(t, h.Push(12, false))
	require.Equal(t, 3, h.Len())
	require.False(t, h.Push(11, true))

	latest, _ := h.Latest()
	require.False(t, latest)
}

func TestRegistryEligibility(t *testing.T) {
	r := New()

	require.False(t, r.IsEligibleAt(alice, 1))
	require.False(t, r.IsEligibleAt(alice, CurrentCheckpoint))

	changed, err := r.Set(alice, true, 3)
	require.NoError(t, err)
	require.True(t, changed)

	// eligibility holds for every later checkpoint until changed
	require.False(t, r.IsEligibleAt(alice, 2))
	for c := uint64(3); c < 10; c++ {
		require.True(t, r.IsEligibleAt(alice, c))
	}
	require.True(t, r.IsEligibleAt(alice, CurrentCheckpoint))

	changed, err = r.Set(alice, false, 10)
	require.NoError(t, err)
	require.True(t, changed)

	require.True(t, r.IsEligibleAt(alice, 9))
	require.False(t, r.IsEligibleAt(alice, 10))
	require.False(t, r.IsEligibleAt(alice, CurrentCheckpoint))

	// history is append-only
	require.Len(t, r.HistoryOf(alice), 2)
	require.Empty(t, r.HistoryOf(bob))
}

func TestRegistryPopulation(t *testing.T) {
	r := New()

	_, err := r.Set(alice, true, 2)
	require.NoError(t, err)
	_, err = r.Set(bob, true, 2)
	require.NoError(t, err)

	// re-adding appends history but does not inflate the population
	changed, err := r.Set(alice, true, 4)
	require.NoError(t, err)
	require.False(t, changed)
	require.Len(t, r.HistoryOf(alice), 2)
	require.Equal(t, uint64(2), r.Population())

	_, err = r.Set(bob, false, 6)
	require.NoError(t, err)

	require.Equal(t, uint64(0), r.PopulationAt(1))
	require.Equal(t, uint64(2), r.PopulationAt(2))
	require.Equal(t, uint64(2), r.PopulationAt(5))
	require.Equal(t, uint64(1), r.PopulationAt(6))
	require.Equal(t, uint64(1), r.Population())
	require.Equal(t, []common.Address{alice}, r.Members())

	// removing an unknown address is not a population change
	changed, err = r.Set(common.HexToAddress("0xc3"), false, 7)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, uint64(1), r.Population())
}

func TestRegistryStaleCheckpoint(t *testing.T) {
	r := New()

	_, err := r.Set(alice, true, 5)
	require.NoError(t, err)

	_, err = r.Set(alice, false, 4)
	require.True(t, errors.Is(err, ErrStaleCheckpoint))
	require.True(t, r.IsEligible(alice))

	_, err = r.Set(bob, true, 3)
	require.True(t, errors.Is(err, ErrStaleCheckpoint))
	require.False(t, r.IsEligible(bob))
}

func TestRegistryApplyRevert(t *testing.T) {
	r := New()

	_, err := r.Set(alice, true, 2)
	require.NoError(t, err)

	var undo []func()
	apply := func(addr common.Address, eligible bool, block uint64) {
		u, err := r.Apply(addr, eligible, block)
		require.NoError(t, err)
		undo = append(undo, u)
	}

	apply(bob, true, 4)
	apply(alice, false, 4)
	apply(alice, true, 5)
	apply(bob, true, 5)

	require.Equal(t, uint64(2), r.Population())
	require.Len(t, r.HistoryOf(alice), 3)

	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}

	require.Equal(t, uint64(1), r.Population())
	require.Equal(t, uint64(1), r.PopulationAt(5))
	require.Equal(t, []common.Address{alice}, r.Members())
	require.Equal(t, []Checkpoint[bool]{{Block: 2, Value: true}}, r.HistoryOf(alice))
	require.Empty(t, r.HistoryOf(bob))

	t.Run("same block entry is restored", func(t *testing.T) {
		u, err := r.Apply(alice, false, 2)
		require.NoError(t, err)
		require.False(t, r.IsEligibleAt(alice, 2))

		u()
		require.True(t, r.IsEligibleAt(alice, 2))
		require.True(t, r.IsEligible(alice))
		require.Len(t, r.HistoryOf(alice), 1)
	})
}
