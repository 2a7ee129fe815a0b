package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellalpha/vaultcore/internal/domain"
)

func TestWALStore_AppendAndRead(t *testing.T) {
	dir := t.TempDir()
	store, err := NewWALStore(dir)
	require.NoError(t, err)
	defer store.Close()

	vaultID := domain.DeriveVaultID("alice")
	require.NoError(t, store.Append(Entry{Kind: KindCreateVault, Actor: "alice", Vault: vaultID, Asset: "USDC"}))
	require.NoError(t, store.Append(Entry{Kind: KindDeposit, Actor: "alice", Vault: vaultID, Amount: 100_000}))

	entries, err := store.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, KindCreateVault, entries[0].Kind)
	assert.Equal(t, KindDeposit, entries[1].Kind)
	assert.Equal(t, uint64(100_000), entries[1].Amount)

	// id and timestamp are filled on append
	for _, e := range entries {
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.At.IsZero())
	}
}

func TestWALStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewWALStore(dir)
	require.NoError(t, err)
	vaultID := domain.DeriveVaultID("alice")
	require.NoError(t, store.Append(Entry{Kind: KindWithdraw, Actor: "alice", Vault: vaultID, Amount: 42}))
	require.NoError(t, store.Close())

	reopened, err := NewWALStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	entries, err := reopened.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, KindWithdraw, entries[0].Kind)
	assert.Equal(t, uint64(42), entries[0].Amount)
}
