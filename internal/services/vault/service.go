// Package vault implements every owner-facing operation: vault funding,
// allocation lifecycle, sub-account management and settlement. Each operation
// re-reads the stored owner identity and compares it with the caller before
// touching any balance.
package vault

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/stellalpha/vaultcore/internal/domain"
	"github.com/stellalpha/vaultcore/internal/ledger"
)

// Service executes owner operations against the ledger.
type Service struct {
	ledger *ledger.Ledger
	logger *zap.Logger
}

// NewService creates the owner operation service.
func NewService(l *ledger.Ledger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{ledger: l, logger: logger}
}

// ownedVault loads the vault and verifies the caller is its owner.
func ownedVault(st *ledger.State, vaultID domain.EntityID, actor domain.ID) (*domain.Vault, error) {
	v, err := st.Vault(vaultID)
	if err != nil {
		return nil, err
	}
	if v.Owner != actor {
		return nil, errors.Wrapf(domain.ErrUnauthorized, "caller %s is not the vault owner", actor)
	}
	return v, nil
}

// ownedAllocation loads an allocation and verifies it belongs to the vault.
func ownedAllocation(st *ledger.State, v *domain.Vault, allocID domain.EntityID) (*domain.Allocation, error) {
	a, err := st.Allocation(allocID)
	if err != nil {
		return nil, err
	}
	if a.Vault != v.ID {
		return nil, errors.Wrapf(domain.ErrUnauthorized, "allocation %s does not belong to vault %s", allocID, v.ID)
	}
	return a, nil
}

// Create builds a vault for the owner together with its base-asset balance
// record. One vault per owner.
func (s *Service) Create(owner, authority domain.ID, baseAsset domain.Asset) (domain.EntityID, error) {
	vaultID := domain.DeriveVaultID(owner)
	err := s.ledger.Update(func(st *ledger.State) error {
		if _, ok := st.Vaults[vaultID]; ok {
			return errors.Wrapf(domain.ErrAlreadyExists, "vault for owner %s", owner)
		}
		st.Vaults[vaultID] = domain.NewVault(owner, authority, baseAsset)
		st.EnsureRecord(vaultID, baseAsset)
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("vault created",
		zap.String("vault", string(vaultID)),
		zap.String("owner", string(owner)),
		zap.String("authority", string(authority)),
		zap.String("base_asset", string(baseAsset)))
	return vaultID, nil
}

// Deposit credits the vault's base balance record.
func (s *Service) Deposit(actor domain.ID, vaultID domain.EntityID, amount uint64) error {
	err := s.ledger.Update(func(st *ledger.State) error {
		v, err := ownedVault(st, vaultID, actor)
		if err != nil {
			return err
		}
		rec, err := st.Record(vaultID, v.BaseAsset)
		if err != nil {
			return err
		}
		return rec.Credit(amount)
	})
	if err != nil {
		return err
	}

	s.logger.Info("deposit", zap.String("vault", string(vaultID)), zap.Uint64("amount", amount))
	return nil
}

// Withdraw debits the vault's base balance record. Only the owner may ever
// withdraw; the delegated authority has no path here.
func (s *Service) Withdraw(actor domain.ID, vaultID domain.EntityID, amount uint64) error {
	err := s.ledger.Update(func(st *ledger.State) error {
		v, err := ownedVault(st, vaultID, actor)
		if err != nil {
			return err
		}
		rec, err := st.Record(vaultID, v.BaseAsset)
		if err != nil {
			return err
		}
		if err := rec.Debit(amount); err != nil {
			return errors.Wrapf(err, "withdraw %d from vault %s", amount, vaultID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("withdraw", zap.String("vault", string(vaultID)), zap.Uint64("amount", amount))
	return nil
}

// CreateAllocation carves working capital out of the vault for a delegate.
// The allocation starts Uninitialized with its own derived base-asset record
// funded from the vault.
func (s *Service) CreateAllocation(actor domain.ID, vaultID domain.EntityID, delegate domain.ID, amount uint64) (domain.EntityID, error) {
	allocID := domain.DeriveAllocationID(vaultID, delegate)
	err := s.ledger.Update(func(st *ledger.State) error {
		v, err := ownedVault(st, vaultID, actor)
		if err != nil {
			return err
		}
		if _, ok := st.Allocations[allocID]; ok {
			return errors.Wrapf(domain.ErrAlreadyExists, "allocation for delegate %s", delegate)
		}
		vaultRec, err := st.Record(vaultID, v.BaseAsset)
		if err != nil {
			return err
		}
		if err := vaultRec.Debit(amount); err != nil {
			return errors.Wrapf(err, "fund allocation with %d", amount)
		}
		st.Allocations[allocID] = domain.NewAllocation(vaultID, delegate, amount)
		return st.EnsureRecord(allocID, v.BaseAsset).Credit(amount)
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("allocation created",
		zap.String("vault", string(vaultID)),
		zap.String("allocation", string(allocID)),
		zap.String("delegate", string(delegate)),
		zap.Uint64("amount", amount))
	return allocID, nil
}

// MarkInitialized moves the allocation straight to Initialized, bypassing the
// sync pair. Reachable by the owner or the delegated authority.
func (s *Service) MarkInitialized(actor domain.ID, vaultID, allocID domain.EntityID) error {
	err := s.ledger.Update(func(st *ledger.State) error {
		v, err := st.Vault(vaultID)
		if err != nil {
			return err
		}
		if actor != v.Owner && actor != v.Authority {
			return errors.Wrapf(domain.ErrUnauthorized, "caller %s is neither owner nor authority", actor)
		}
		a, err := ownedAllocation(st, v, allocID)
		if err != nil {
			return err
		}
		return a.MarkInitialized()
	})
	if err != nil {
		return err
	}

	s.logger.Info("allocation marked initialized", zap.String("allocation", string(allocID)))
	return nil
}

// Pause suspends trading on the allocation.
func (s *Service) Pause(actor domain.ID, vaultID, allocID domain.EntityID) error {
	return s.transition(actor, vaultID, allocID, "allocation paused", (*domain.Allocation).Pause)
}

// Resume re-enables trading on a paused allocation.
func (s *Service) Resume(actor domain.ID, vaultID, allocID domain.EntityID) error {
	return s.transition(actor, vaultID, allocID, "allocation resumed", (*domain.Allocation).Resume)
}

func (s *Service) transition(actor domain.ID, vaultID, allocID domain.EntityID, msg string, fn func(*domain.Allocation) error) error {
	err := s.ledger.Update(func(st *ledger.State) error {
		v, err := ownedVault(st, vaultID, actor)
		if err != nil {
			return err
		}
		a, err := ownedAllocation(st, v, allocID)
		if err != nil {
			return err
		}
		return fn(a)
	})
	if err != nil {
		return err
	}

	s.logger.Info(msg, zap.String("allocation", string(allocID)))
	return nil
}

// Close returns the allocation's remaining primary balance to the vault and
// deallocates it. Valid from any non-Syncing state. Non-primary records that
// still hold funds block the close; empty ones are reaped with the
// allocation.
func (s *Service) Close(actor domain.ID, vaultID, allocID domain.EntityID) (uint64, error) {
	var refunded uint64
	err := s.ledger.Update(func(st *ledger.State) error {
		v, err := ownedVault(st, vaultID, actor)
		if err != nil {
			return err
		}
		a, err := ownedAllocation(st, v, allocID)
		if err != nil {
			return err
		}
		if err := a.CanClose(); err != nil {
			return err
		}

		primary, err := st.Record(allocID, v.BaseAsset)
		if err != nil {
			return err
		}
		for _, rec := range st.RecordsOwnedBy(allocID) {
			if rec.ID == primary.ID {
				continue
			}
			if err := st.DeleteRecord(rec); err != nil {
				return errors.Wrapf(err, "sub-account %s must be emptied before close", rec.Asset)
			}
		}

		vaultRec, err := st.Record(vaultID, v.BaseAsset)
		if err != nil {
			return err
		}
		refunded = primary.Amount
		if err := vaultRec.Credit(refunded); err != nil {
			return err
		}
		primary.Amount = 0
		if err := st.DeleteRecord(primary); err != nil {
			return err
		}
		delete(st.Allocations, allocID)
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("allocation closed",
		zap.String("allocation", string(allocID)),
		zap.Uint64("refunded", refunded))
	return refunded, nil
}
