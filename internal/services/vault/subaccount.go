package vault

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/stellalpha/vaultcore/internal/domain"
	"github.com/stellalpha/vaultcore/internal/ledger"
)

// CreateSubAccount creates the allocation's balance record for an asset.
// Idempotent: a record that already exists is left untouched and the call
// succeeds.
func (s *Service) CreateSubAccount(actor domain.ID, vaultID, allocID domain.EntityID, asset domain.Asset) error {
	err := s.ledger.Update(func(st *ledger.State) error {
		v, err := ownedVault(st, vaultID, actor)
		if err != nil {
			return err
		}
		if _, err := ownedAllocation(st, v, allocID); err != nil {
			return err
		}
		st.EnsureRecord(allocID, asset)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("sub-account ready",
		zap.String("allocation", string(allocID)),
		zap.String("asset", string(asset)))
	return nil
}

// CloseSubAccount destroys an empty non-primary balance record while the
// allocation is paused. The primary base-asset record is closed only through
// Close.
func (s *Service) CloseSubAccount(actor domain.ID, vaultID, allocID domain.EntityID, asset domain.Asset) error {
	err := s.ledger.Update(func(st *ledger.State) error {
		v, err := ownedVault(st, vaultID, actor)
		if err != nil {
			return err
		}
		a, err := ownedAllocation(st, v, allocID)
		if err != nil {
			return err
		}
		if asset == v.BaseAsset {
			return errors.Wrap(domain.ErrAssetMismatch, "primary record is closed via closeAllocation")
		}
		if a.State != domain.StatePaused {
			return errors.Wrapf(domain.ErrNotPaused, "allocation state %s", a.State)
		}
		rec, err := st.Record(allocID, asset)
		if err != nil {
			return err
		}
		return st.DeleteRecord(rec)
	})
	if err != nil {
		return err
	}

	s.logger.Info("sub-account closed",
		zap.String("allocation", string(allocID)),
		zap.String("asset", string(asset)))
	return nil
}

// Settle moves the allocation's full base-asset holdings back to the vault.
// The targeted record must hold the vault's base asset and at least the
// allocation's tracked value; anything less indicates funds are still parked
// in other assets.
func (s *Service) Settle(actor domain.ID, vaultID, allocID domain.EntityID, asset domain.Asset) (uint64, error) {
	var settled uint64
	err := s.ledger.Update(func(st *ledger.State) error {
		v, err := ownedVault(st, vaultID, actor)
		if err != nil {
			return err
		}
		a, err := ownedAllocation(st, v, allocID)
		if err != nil {
			return err
		}
		if asset != v.BaseAsset {
			return errors.Wrapf(domain.ErrAssetMismatch, "settle asset %s, base asset %s", asset, v.BaseAsset)
		}
		rec, err := st.Record(allocID, asset)
		if err != nil {
			return err
		}
		if rec.Amount < a.CurrentValue {
			return errors.Wrapf(domain.ErrInsufficientFunds, "holdings %d below tracked value %d", rec.Amount, a.CurrentValue)
		}

		vaultRec, err := st.Record(vaultID, v.BaseAsset)
		if err != nil {
			return err
		}
		settled = rec.Amount
		if err := vaultRec.Credit(settled); err != nil {
			return err
		}
		rec.Amount = 0
		a.Settled = true
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("allocation settled",
		zap.String("allocation", string(allocID)),
		zap.Uint64("amount", settled))
	return settled, nil
}
