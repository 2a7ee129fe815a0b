package domain

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAllocation() *Allocation {
	vaultID := DeriveVaultID("alice")
	return NewAllocation(vaultID, "bob", 1000)
}

func TestNewAllocation(t *testing.T) {
	a := newTestAllocation()
	assert.Equal(t, StateUninitialized, a.State)
	assert.Equal(t, uint64(1000), a.CurrentValue)
	assert.Equal(t, uint64(1000), a.HighWaterMark)
	assert.False(t, a.Settled)
	assert.Equal(t, DeriveAllocationID(a.Vault, "bob"), a.ID)
}

func TestAllocation_SyncPair(t *testing.T) {
	a := newTestAllocation()

	require.NoError(t, a.StartSync())
	assert.Equal(t, StateSyncing, a.State)

	// second start is rejected while in flight
	assert.True(t, errors.Is(a.StartSync(), ErrAlreadySyncing))

	require.NoError(t, a.FinishSync())
	assert.Equal(t, StateInitialized, a.State)

	// sync cannot restart once live
	assert.True(t, errors.Is(a.StartSync(), ErrAlreadyInitialized))
}

func TestAllocation_FinishSyncRequiresSyncing(t *testing.T) {
	a := newTestAllocation()
	assert.True(t, errors.Is(a.FinishSync(), ErrNotSyncing))

	require.NoError(t, a.MarkInitialized())
	assert.True(t, errors.Is(a.FinishSync(), ErrNotSyncing))
}

func TestAllocation_MarkInitialized(t *testing.T) {
	a := newTestAllocation()
	require.NoError(t, a.MarkInitialized())
	assert.Equal(t, StateInitialized, a.State)

	assert.True(t, errors.Is(a.MarkInitialized(), ErrAlreadyInitialized))

	// the direct path is closed once a sync started
	b := newTestAllocation()
	require.NoError(t, b.StartSync())
	assert.True(t, errors.Is(b.MarkInitialized(), ErrAlreadyInitialized))
}

func TestAllocation_PauseResume(t *testing.T) {
	a := newTestAllocation()

	// pause requires a live allocation
	assert.True(t, errors.Is(a.Pause(), ErrNotInitialized))

	require.NoError(t, a.MarkInitialized())
	require.NoError(t, a.Pause())
	assert.Equal(t, StatePaused, a.State)

	assert.True(t, errors.Is(a.Pause(), ErrNotInitialized))

	require.NoError(t, a.Resume())
	assert.Equal(t, StateInitialized, a.State)

	assert.True(t, errors.Is(a.Resume(), ErrNotPaused))
}

func TestAllocation_CanClose(t *testing.T) {
	a := newTestAllocation()
	require.NoError(t, a.CanClose())

	require.NoError(t, a.StartSync())
	assert.True(t, errors.Is(a.CanClose(), ErrSyncInProgress))

	require.NoError(t, a.FinishSync())
	require.NoError(t, a.CanClose())

	require.NoError(t, a.Pause())
	require.NoError(t, a.CanClose())
}

func TestDeriveRecordID_Deterministic(t *testing.T) {
	vaultID := DeriveVaultID("alice")
	first := DeriveRecordID(vaultID, "USDC")
	second := DeriveRecordID(vaultID, "USDC")
	assert.Equal(t, first, second)

	other := DeriveRecordID(vaultID, "WSOL")
	assert.NotEqual(t, first, other)

	// separator keeps adjacent parts from colliding
	assert.NotEqual(t, DeriveRecordID("ab", "c"), DeriveRecordID("a", "bc"))
}
