package domain

// Vault is an owner-controlled capital container. The owner alone moves funds
// in and out; the delegated authority may only drive trade execution on
// allocations carved out of it.
type Vault struct {
	ID            EntityID
	Owner         ID
	Authority     ID
	BaseAsset     Asset
	AllowedAssets map[Asset]struct{}
}

// NewVault builds a vault for the owner. The id is derived from the owner
// identity, so each owner has exactly one vault.
func NewVault(owner, authority ID, baseAsset Asset) *Vault {
	return &Vault{
		ID:            DeriveVaultID(owner),
		Owner:         owner,
		Authority:     authority,
		BaseAsset:     baseAsset,
		AllowedAssets: make(map[Asset]struct{}),
	}
}

// AssetAllowed reports whether an asset may appear as a swap leg: the base
// asset always qualifies, anything else must be whitelisted.
func (v *Vault) AssetAllowed(asset Asset) bool {
	if asset == v.BaseAsset {
		return true
	}
	_, ok := v.AllowedAssets[asset]
	return ok
}

// Allow adds an asset to the whitelist. Idempotent.
func (v *Vault) Allow(asset Asset) {
	v.AllowedAssets[asset] = struct{}{}
}

// Disallow removes an asset from the whitelist. Idempotent.
func (v *Vault) Disallow(asset Asset) {
	delete(v.AllowedAssets, asset)
}

// Clone returns a deep copy.
func (v *Vault) Clone() *Vault {
	if v == nil {
		return nil
	}
	cp := *v
	cp.AllowedAssets = make(map[Asset]struct{}, len(v.AllowedAssets))
	for a := range v.AllowedAssets {
		cp.AllowedAssets[a] = struct{}{}
	}
	return &cp
}
