package domain

// BalanceRecord holds one asset-specific amount owned by exactly one entity.
// There is exactly one record per (owner, asset) pair; its id is derived from
// that pair.
type BalanceRecord struct {
	ID     RecordID
	Owner  EntityID
	Asset  Asset
	Amount uint64
}

// NewBalanceRecord builds an empty record for (owner, asset).
func NewBalanceRecord(owner EntityID, asset Asset) *BalanceRecord {
	return &BalanceRecord{
		ID:    DeriveRecordID(owner, asset),
		Owner: owner,
		Asset: asset,
	}
}

// Credit adds amount, failing closed on overflow.
func (r *BalanceRecord) Credit(amount uint64) error {
	sum, err := CheckedAdd(r.Amount, amount)
	if err != nil {
		return err
	}
	r.Amount = sum
	return nil
}

// Debit removes amount, failing with ErrInsufficientFunds when the record
// holds less.
func (r *BalanceRecord) Debit(amount uint64) error {
	if amount > r.Amount {
		return ErrInsufficientFunds
	}
	r.Amount -= amount
	return nil
}

// Clone returns a deep copy.
func (r *BalanceRecord) Clone() *BalanceRecord {
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}
