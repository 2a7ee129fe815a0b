package snapshot

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellalpha/vaultcore/internal/domain"
	"github.com/stellalpha/vaultcore/internal/ledger"
)

func TestStore_LoadWithoutSnapshot(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	state, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestStore_SaveAndLoad(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	vaultID := domain.DeriveVaultID("alice")
	allocID := domain.DeriveAllocationID(vaultID, "bob")

	state := ledger.NewState()
	state.Policy = &domain.FeePolicy{
		Admin:             "admin",
		Collector:         domain.DeriveCollectorID("admin"),
		PlatformFeeBps:    10,
		PerformanceFeeBps: 2000,
	}

	v := domain.NewVault("alice", "bob", "USDC")
	v.Allow("WSOL")
	state.Vaults[v.ID] = v

	a := domain.NewAllocation(vaultID, "bob", 600)
	require.NoError(t, a.MarkInitialized())
	require.NoError(t, a.Pause())
	state.Allocations[a.ID] = a

	state.EnsureRecord(vaultID, "USDC")
	// full uint64 range must survive the round trip
	require.NoError(t, state.EnsureRecord(allocID, "USDC").Credit(math.MaxUint64))

	require.NoError(t, store.Save(state))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)

	require.NotNil(t, loaded.Policy)
	assert.Equal(t, domain.ID("admin"), loaded.Policy.Admin)
	assert.Equal(t, uint32(10), loaded.Policy.PlatformFeeBps)

	lv, err := loaded.Vault(vaultID)
	require.NoError(t, err)
	assert.Equal(t, domain.ID("alice"), lv.Owner)
	assert.Equal(t, domain.ID("bob"), lv.Authority)
	assert.True(t, lv.AssetAllowed("WSOL"))
	assert.False(t, lv.AssetAllowed("BONK"))

	la, err := loaded.Allocation(allocID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePaused, la.State)
	assert.Equal(t, uint64(600), la.CurrentValue)
	assert.Equal(t, uint64(600), la.HighWaterMark)

	rec, err := loaded.Record(allocID, "USDC")
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), rec.Amount)
}

func TestStore_SaveOverwritesPrevious(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	vaultID := domain.DeriveVaultID("alice")

	state := ledger.NewState()
	state.Vaults[vaultID] = domain.NewVault("alice", "bob", "USDC")
	require.NoError(t, state.EnsureRecord(vaultID, "USDC").Credit(100))
	require.NoError(t, store.Save(state))

	require.NoError(t, state.Records[domain.DeriveRecordID(vaultID, "USDC")].Credit(50))
	require.NoError(t, store.Save(state))

	loaded, err := store.Load()
	require.NoError(t, err)
	rec, err := loaded.Record(vaultID, "USDC")
	require.NoError(t, err)
	assert.Equal(t, uint64(150), rec.Amount)
}
