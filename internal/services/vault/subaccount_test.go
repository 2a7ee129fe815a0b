package vault

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellalpha/vaultcore/internal/domain"
	"github.com/stellalpha/vaultcore/internal/ledger"
)

func TestService_CreateSubAccountIdempotent(t *testing.T) {
	s, l := newTestService(t)
	vaultID := fundedVault(t, s, 1000)
	allocID, err := s.CreateAllocation(owner, vaultID, delegate, 500)
	require.NoError(t, err)

	require.NoError(t, s.CreateSubAccount(owner, vaultID, allocID, "WSOL"))

	require.NoError(t, l.Update(func(st *ledger.State) error {
		rec, err := st.Record(allocID, "WSOL")
		if err != nil {
			return err
		}
		return rec.Credit(7)
	}))

	// the second call succeeds and leaves the existing record untouched
	require.NoError(t, s.CreateSubAccount(owner, vaultID, allocID, "WSOL"))
	assert.Equal(t, uint64(7), recordAmount(t, l, allocID, "WSOL"))
}

func TestService_CloseSubAccountRequiresPause(t *testing.T) {
	s, _ := newTestService(t)
	vaultID := fundedVault(t, s, 1000)
	allocID, err := s.CreateAllocation(owner, vaultID, delegate, 500)
	require.NoError(t, err)
	require.NoError(t, s.MarkInitialized(owner, vaultID, allocID))
	require.NoError(t, s.CreateSubAccount(owner, vaultID, allocID, "WSOL"))

	err = s.CloseSubAccount(owner, vaultID, allocID, "WSOL")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotPaused))

	require.NoError(t, s.Pause(owner, vaultID, allocID))
	require.NoError(t, s.CloseSubAccount(owner, vaultID, allocID, "WSOL"))
}

func TestService_CloseSubAccountRequiresEmpty(t *testing.T) {
	s, l := newTestService(t)
	vaultID := fundedVault(t, s, 1000)
	allocID, err := s.CreateAllocation(owner, vaultID, delegate, 500)
	require.NoError(t, err)
	require.NoError(t, s.MarkInitialized(owner, vaultID, allocID))
	require.NoError(t, s.Pause(owner, vaultID, allocID))
	require.NoError(t, s.CreateSubAccount(owner, vaultID, allocID, "WSOL"))

	require.NoError(t, l.Update(func(st *ledger.State) error {
		rec, err := st.Record(allocID, "WSOL")
		if err != nil {
			return err
		}
		return rec.Credit(3)
	}))

	err = s.CloseSubAccount(owner, vaultID, allocID, "WSOL")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNonEmptyBalance))
}

func TestService_CloseSubAccountRefusesPrimary(t *testing.T) {
	s, _ := newTestService(t)
	vaultID := fundedVault(t, s, 1000)
	allocID, err := s.CreateAllocation(owner, vaultID, delegate, 500)
	require.NoError(t, err)
	require.NoError(t, s.MarkInitialized(owner, vaultID, allocID))
	require.NoError(t, s.Pause(owner, vaultID, allocID))

	err = s.CloseSubAccount(owner, vaultID, allocID, baseAsset)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAssetMismatch))
}

func TestService_Settle(t *testing.T) {
	s, l := newTestService(t)
	vaultID := fundedVault(t, s, 1000)
	allocID, err := s.CreateAllocation(owner, vaultID, delegate, 600)
	require.NoError(t, err)

	// the allocation grew: its primary record now holds more than the
	// tracked value
	require.NoError(t, l.Update(func(st *ledger.State) error {
		rec, err := st.Record(allocID, baseAsset)
		if err != nil {
			return err
		}
		return rec.Credit(150)
	}))

	settled, err := s.Settle(owner, vaultID, allocID, baseAsset)
	require.NoError(t, err)
	assert.Equal(t, uint64(750), settled)

	assert.Equal(t, uint64(1150), recordAmount(t, l, vaultID, baseAsset))
	assert.Equal(t, uint64(0), recordAmount(t, l, allocID, baseAsset))

	require.NoError(t, l.View(func(st *ledger.State) error {
		a, err := st.Allocation(allocID)
		require.NoError(t, err)
		assert.True(t, a.Settled)
		return nil
	}))
}

func TestService_SettleRejectsNonBaseAsset(t *testing.T) {
	s, _ := newTestService(t)
	vaultID := fundedVault(t, s, 1000)
	allocID, err := s.CreateAllocation(owner, vaultID, delegate, 500)
	require.NoError(t, err)
	require.NoError(t, s.CreateSubAccount(owner, vaultID, allocID, "WSOL"))

	_, err = s.Settle(owner, vaultID, allocID, "WSOL")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAssetMismatch))
}

func TestService_SettleRequiresFullValue(t *testing.T) {
	s, l := newTestService(t)
	vaultID := fundedVault(t, s, 1000)
	allocID, err := s.CreateAllocation(owner, vaultID, delegate, 600)
	require.NoError(t, err)

	// part of the capital is still parked elsewhere
	require.NoError(t, l.Update(func(st *ledger.State) error {
		rec, err := st.Record(allocID, baseAsset)
		if err != nil {
			return err
		}
		return rec.Debit(200)
	}))

	_, err = s.Settle(owner, vaultID, allocID, baseAsset)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientFunds))
	assert.Equal(t, uint64(400), recordAmount(t, l, allocID, baseAsset))
}
