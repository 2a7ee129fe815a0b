package vault

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stellalpha/vaultcore/internal/domain"
	"github.com/stellalpha/vaultcore/internal/ledger"
)

const (
	owner     = domain.ID("alice")
	authority = domain.ID("bob")
	delegate  = domain.ID("bob")
	baseAsset = domain.Asset("USDC")
)

func newTestService(t *testing.T) (*Service, *ledger.Ledger) {
	t.Helper()
	l := ledger.New()
	return NewService(l, zap.NewNop()), l
}

// fundedVault creates a vault holding the given base balance.
func fundedVault(t *testing.T, s *Service, amount uint64) domain.EntityID {
	t.Helper()
	vaultID, err := s.Create(owner, authority, baseAsset)
	require.NoError(t, err)
	require.NoError(t, s.Deposit(owner, vaultID, amount))
	return vaultID
}

func recordAmount(t *testing.T, l *ledger.Ledger, entity domain.EntityID, asset domain.Asset) uint64 {
	t.Helper()
	var amount uint64
	require.NoError(t, l.View(func(st *ledger.State) error {
		rec, err := st.Record(entity, asset)
		if err != nil {
			return err
		}
		amount = rec.Amount
		return nil
	}))
	return amount
}

func TestService_Create(t *testing.T) {
	s, l := newTestService(t)

	vaultID, err := s.Create(owner, authority, baseAsset)
	require.NoError(t, err)
	assert.Equal(t, domain.DeriveVaultID(owner), vaultID)

	// the base record is created alongside the vault
	assert.Equal(t, uint64(0), recordAmount(t, l, vaultID, baseAsset))

	// one vault per owner
	_, err = s.Create(owner, "other-authority", baseAsset)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAlreadyExists))
}

func TestService_DepositWithdraw(t *testing.T) {
	s, l := newTestService(t)
	vaultID := fundedVault(t, s, 1000)

	require.NoError(t, s.Withdraw(owner, vaultID, 400))
	assert.Equal(t, uint64(600), recordAmount(t, l, vaultID, baseAsset))

	// withdrawing more than the balance fails and changes nothing
	err := s.Withdraw(owner, vaultID, 601)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientFunds))
	assert.Equal(t, uint64(600), recordAmount(t, l, vaultID, baseAsset))
}

func TestService_OwnerOnlyOperations(t *testing.T) {
	s, _ := newTestService(t)
	vaultID := fundedVault(t, s, 1000)

	// the delegated authority has no path to the owner operations
	for name, call := range map[string]func() error{
		"deposit":  func() error { return s.Deposit(authority, vaultID, 1) },
		"withdraw": func() error { return s.Withdraw(authority, vaultID, 1) },
		"allocate": func() error {
			_, err := s.CreateAllocation(authority, vaultID, delegate, 1)
			return err
		},
	} {
		err := call()
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, domain.ErrUnauthorized), name)
	}
}

func TestService_CreateAllocation(t *testing.T) {
	s, l := newTestService(t)
	vaultID := fundedVault(t, s, 1000)

	allocID, err := s.CreateAllocation(owner, vaultID, delegate, 600)
	require.NoError(t, err)
	assert.Equal(t, domain.DeriveAllocationID(vaultID, delegate), allocID)

	// funding moved from the vault record to the allocation record
	assert.Equal(t, uint64(400), recordAmount(t, l, vaultID, baseAsset))
	assert.Equal(t, uint64(600), recordAmount(t, l, allocID, baseAsset))

	require.NoError(t, l.View(func(st *ledger.State) error {
		a, err := st.Allocation(allocID)
		require.NoError(t, err)
		assert.Equal(t, domain.StateUninitialized, a.State)
		assert.Equal(t, uint64(600), a.CurrentValue)
		assert.Equal(t, uint64(600), a.HighWaterMark)
		return nil
	}))

	// one allocation per (vault, delegate) pair
	_, err = s.CreateAllocation(owner, vaultID, delegate, 100)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAlreadyExists))
}

func TestService_CreateAllocationInsufficientFunds(t *testing.T) {
	s, l := newTestService(t)
	vaultID := fundedVault(t, s, 100)

	_, err := s.CreateAllocation(owner, vaultID, delegate, 101)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientFunds))

	// nothing was carved out
	assert.Equal(t, uint64(100), recordAmount(t, l, vaultID, baseAsset))
	require.NoError(t, l.View(func(st *ledger.State) error {
		assert.Empty(t, st.Allocations)
		return nil
	}))
}

func TestService_MarkInitialized(t *testing.T) {
	s, l := newTestService(t)
	vaultID := fundedVault(t, s, 1000)
	allocID, err := s.CreateAllocation(owner, vaultID, delegate, 500)
	require.NoError(t, err)

	// neither owner nor authority is rejected
	err = s.MarkInitialized("mallory", vaultID, allocID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	// the authority may activate
	require.NoError(t, s.MarkInitialized(authority, vaultID, allocID))
	require.NoError(t, l.View(func(st *ledger.State) error {
		a, err := st.Allocation(allocID)
		require.NoError(t, err)
		assert.Equal(t, domain.StateInitialized, a.State)
		return nil
	}))

	// and so may the owner, on a fresh allocation
	otherID, err := s.CreateAllocation(owner, vaultID, "carol", 100)
	require.NoError(t, err)
	require.NoError(t, s.MarkInitialized(owner, vaultID, otherID))
}

func TestService_PauseResume(t *testing.T) {
	s, _ := newTestService(t)
	vaultID := fundedVault(t, s, 1000)
	allocID, err := s.CreateAllocation(owner, vaultID, delegate, 500)
	require.NoError(t, err)
	require.NoError(t, s.MarkInitialized(owner, vaultID, allocID))

	// pausing is an owner operation
	err = s.Pause(authority, vaultID, allocID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	require.NoError(t, s.Pause(owner, vaultID, allocID))
	require.NoError(t, s.Resume(owner, vaultID, allocID))

	err = s.Resume(owner, vaultID, allocID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotPaused))
}

func TestService_Close(t *testing.T) {
	s, l := newTestService(t)
	vaultID := fundedVault(t, s, 1000)
	allocID, err := s.CreateAllocation(owner, vaultID, delegate, 600)
	require.NoError(t, err)

	refunded, err := s.Close(owner, vaultID, allocID)
	require.NoError(t, err)
	assert.Equal(t, uint64(600), refunded)

	// the vault is whole again, the allocation and its record are gone
	assert.Equal(t, uint64(1000), recordAmount(t, l, vaultID, baseAsset))
	require.NoError(t, l.View(func(st *ledger.State) error {
		_, err := st.Allocation(allocID)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		_, err = st.Record(allocID, baseAsset)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		return nil
	}))
}

func TestService_CloseWhileSyncing(t *testing.T) {
	s, l := newTestService(t)
	vaultID := fundedVault(t, s, 1000)
	allocID, err := s.CreateAllocation(owner, vaultID, delegate, 600)
	require.NoError(t, err)

	require.NoError(t, l.Update(func(st *ledger.State) error {
		a, err := st.Allocation(allocID)
		if err != nil {
			return err
		}
		return a.StartSync()
	}))

	_, err = s.Close(owner, vaultID, allocID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSyncInProgress))
	assert.Equal(t, uint64(600), recordAmount(t, l, allocID, baseAsset))
}

func TestService_CloseBlockedByFundedSubAccount(t *testing.T) {
	s, l := newTestService(t)
	vaultID := fundedVault(t, s, 1000)
	allocID, err := s.CreateAllocation(owner, vaultID, delegate, 600)
	require.NoError(t, err)

	require.NoError(t, s.CreateSubAccount(owner, vaultID, allocID, "WSOL"))
	require.NoError(t, l.Update(func(st *ledger.State) error {
		rec, err := st.Record(allocID, "WSOL")
		if err != nil {
			return err
		}
		return rec.Credit(5)
	}))

	_, err = s.Close(owner, vaultID, allocID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNonEmptyBalance))

	// the whole close rolled back, primary included
	assert.Equal(t, uint64(600), recordAmount(t, l, allocID, baseAsset))
	assert.Equal(t, uint64(400), recordAmount(t, l, vaultID, baseAsset))
}

func TestService_CloseReapsEmptySubAccounts(t *testing.T) {
	s, l := newTestService(t)
	vaultID := fundedVault(t, s, 1000)
	allocID, err := s.CreateAllocation(owner, vaultID, delegate, 600)
	require.NoError(t, err)
	require.NoError(t, s.CreateSubAccount(owner, vaultID, allocID, "WSOL"))

	refunded, err := s.Close(owner, vaultID, allocID)
	require.NoError(t, err)
	assert.Equal(t, uint64(600), refunded)

	require.NoError(t, l.View(func(st *ledger.State) error {
		assert.Empty(t, st.RecordsOwnedBy(allocID))
		return nil
	}))
}
