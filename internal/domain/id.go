package domain

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// ID is a verified caller identity: owner, authority, admin or delegate.
type ID string

// Asset identifies a fungible asset tracked by the ledger.
type Asset string

// EntityID identifies a fund-holding entity (a vault, an allocation, or the
// platform fee collector).
type EntityID string

// RecordID identifies a balance record. Record ids are derived, never
// caller-chosen: the core recomputes the commitment on every use and compares
// it against whatever id the caller supplied, so a substitute record cannot
// be smuggled in.
type RecordID string

const (
	vaultSeed      = "vault/v1"
	allocationSeed = "allocation/v1"
	recordSeed     = "balance/v1"
	collectorSeed  = "collector/v1"
)

func commit(parts ...string) string {
	h, _ := blake2b.New256(nil)
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// DeriveVaultID returns the vault entity id for an owner. One vault per owner.
func DeriveVaultID(owner ID) EntityID {
	return EntityID(commit(vaultSeed, string(owner)))
}

// DeriveAllocationID returns the allocation entity id for a (vault, delegate)
// pair. One allocation per pair.
func DeriveAllocationID(vault EntityID, delegate ID) EntityID {
	return EntityID(commit(allocationSeed, string(vault), string(delegate)))
}

// DeriveRecordID returns the balance record id for (owner entity, asset).
func DeriveRecordID(owner EntityID, asset Asset) RecordID {
	return RecordID(commit(recordSeed, string(owner), string(asset)))
}

// DeriveCollectorID returns the fee collector entity id for the policy admin.
func DeriveCollectorID(admin ID) EntityID {
	return EntityID(commit(collectorSeed, string(admin)))
}
