package ledger

import (
	"github.com/pkg/errors"

	"github.com/stellalpha/vaultcore/internal/domain"
)

// State is the full entity set: the fee policy, vaults, allocations and
// balance records. Operations never touch the live state directly; they
// mutate a clone handed out by Ledger.Update.
type State struct {
	Policy      *domain.FeePolicy
	Vaults      map[domain.EntityID]*domain.Vault
	Allocations map[domain.EntityID]*domain.Allocation
	Records     map[domain.RecordID]*domain.BalanceRecord
}

// NewState returns an empty state.
func NewState() *State {
	return &State{
		Vaults:      make(map[domain.EntityID]*domain.Vault),
		Allocations: make(map[domain.EntityID]*domain.Allocation),
		Records:     make(map[domain.RecordID]*domain.BalanceRecord),
	}
}

func (s *State) clone() *State {
	next := &State{
		Policy:      s.Policy.Clone(),
		Vaults:      make(map[domain.EntityID]*domain.Vault, len(s.Vaults)),
		Allocations: make(map[domain.EntityID]*domain.Allocation, len(s.Allocations)),
		Records:     make(map[domain.RecordID]*domain.BalanceRecord, len(s.Records)),
	}
	for id, v := range s.Vaults {
		next.Vaults[id] = v.Clone()
	}
	for id, a := range s.Allocations {
		next.Allocations[id] = a.Clone()
	}
	for id, r := range s.Records {
		next.Records[id] = r.Clone()
	}
	return next
}

// Vault looks up a vault by id.
func (s *State) Vault(id domain.EntityID) (*domain.Vault, error) {
	v, ok := s.Vaults[id]
	if !ok {
		return nil, errors.Wrapf(domain.ErrNotFound, "vault %s", id)
	}
	return v, nil
}

// Allocation looks up an allocation by id.
func (s *State) Allocation(id domain.EntityID) (*domain.Allocation, error) {
	a, ok := s.Allocations[id]
	if !ok {
		return nil, errors.Wrapf(domain.ErrNotFound, "allocation %s", id)
	}
	return a, nil
}

// Record looks up the balance record for (owner, asset) through its derived
// id. The stored owner and asset are re-verified so a corrupted or substituted
// entry can never pass as bound.
func (s *State) Record(owner domain.EntityID, asset domain.Asset) (*domain.BalanceRecord, error) {
	rec, ok := s.Records[domain.DeriveRecordID(owner, asset)]
	if !ok {
		return nil, errors.Wrapf(domain.ErrNotFound, "balance record for %s/%s", owner, asset)
	}
	if rec.Owner != owner || rec.Asset != asset {
		return nil, errors.Wrapf(domain.ErrRecordNotBound, "record %s", rec.ID)
	}
	return rec, nil
}

// BindRecord re-derives the record id for (owner, asset) and rejects a
// caller-supplied id that does not match, before any balance is read.
func (s *State) BindRecord(owner domain.EntityID, asset domain.Asset, supplied domain.RecordID) (*domain.BalanceRecord, error) {
	if supplied != domain.DeriveRecordID(owner, asset) {
		return nil, errors.Wrapf(domain.ErrRecordNotBound, "supplied record %s is not derived from %s/%s", supplied, owner, asset)
	}
	return s.Record(owner, asset)
}

// EnsureRecord returns the record for (owner, asset), creating an empty one
// when absent. Idempotent: a second call with the same arguments is a no-op.
func (s *State) EnsureRecord(owner domain.EntityID, asset domain.Asset) *domain.BalanceRecord {
	id := domain.DeriveRecordID(owner, asset)
	if rec, ok := s.Records[id]; ok {
		return rec
	}
	rec := domain.NewBalanceRecord(owner, asset)
	s.Records[id] = rec
	return rec
}

// DeleteRecord destroys a record. Only empty records may be destroyed.
func (s *State) DeleteRecord(rec *domain.BalanceRecord) error {
	if rec.Amount != 0 {
		return errors.Wrapf(domain.ErrNonEmptyBalance, "record %s holds %d", rec.ID, rec.Amount)
	}
	delete(s.Records, rec.ID)
	return nil
}

// RecordsOwnedBy returns every record owned by the entity.
func (s *State) RecordsOwnedBy(owner domain.EntityID) []*domain.BalanceRecord {
	var out []*domain.BalanceRecord
	for _, rec := range s.Records {
		if rec.Owner == owner {
			out = append(out, rec)
		}
	}
	return out
}
