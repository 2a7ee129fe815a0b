// Package snapshot persists the full ledger state as JSON so restarts keep
// vaults, allocations and balances.
package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/stellalpha/vaultcore/internal/domain"
	"github.com/stellalpha/vaultcore/internal/ledger"
)

const (
	defaultDir = "./state"
	fileName   = "ledger.json"
)

// Store persists ledger state to a single JSON file.
type Store struct {
	path string
}

// NewStore creates a snapshot store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = defaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create snapshot dir")
	}
	return &Store{path: filepath.Join(dir, fileName)}, nil
}

// Amounts ride as strings so full uint64 precision survives JSON.
type storedPolicy struct {
	Admin             string `json:"admin"`
	Collector         string `json:"collector"`
	PlatformFeeBps    uint32 `json:"platform_fee_bps"`
	PerformanceFeeBps uint32 `json:"performance_fee_bps"`
}

type storedVault struct {
	ID            string   `json:"id"`
	Owner         string   `json:"owner"`
	Authority     string   `json:"authority"`
	BaseAsset     string   `json:"base_asset"`
	AllowedAssets []string `json:"allowed_assets,omitempty"`
}

type storedAllocation struct {
	ID            string `json:"id"`
	Vault         string `json:"vault"`
	Delegate      string `json:"delegate"`
	CurrentValue  string `json:"current_value"`
	HighWaterMark string `json:"high_water_mark"`
	Settled       bool   `json:"settled"`
	State         int    `json:"state"`
}

type storedRecord struct {
	ID     string `json:"id"`
	Owner  string `json:"owner"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type storedState struct {
	Policy      *storedPolicy      `json:"policy,omitempty"`
	Vaults      []storedVault      `json:"vaults"`
	Allocations []storedAllocation `json:"allocations"`
	Records     []storedRecord     `json:"records"`
}

// Load reads the persisted state. Returns nil when no snapshot exists yet.
func (s *Store) Load() (*ledger.State, error) {
	if s == nil || s.path == "" {
		return nil, nil
	}

	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read ledger snapshot")
	}
	if len(payload) == 0 {
		return nil, nil
	}

	var stored storedState
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, errors.Wrap(err, "decode ledger snapshot")
	}
	return decode(&stored)
}

// Save writes the state atomically via a temp file.
func (s *Store) Save(state *ledger.State) error {
	if s == nil || s.path == "" {
		return nil
	}

	payload, err := json.MarshalIndent(encode(state), "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode ledger snapshot")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return errors.Wrap(err, "write ledger snapshot temp file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "persist ledger snapshot")
	}
	return nil
}

func encode(state *ledger.State) *storedState {
	out := &storedState{}
	if state.Policy != nil {
		out.Policy = &storedPolicy{
			Admin:             string(state.Policy.Admin),
			Collector:         string(state.Policy.Collector),
			PlatformFeeBps:    state.Policy.PlatformFeeBps,
			PerformanceFeeBps: state.Policy.PerformanceFeeBps,
		}
	}
	for _, v := range state.Vaults {
		sv := storedVault{
			ID:        string(v.ID),
			Owner:     string(v.Owner),
			Authority: string(v.Authority),
			BaseAsset: string(v.BaseAsset),
		}
		for a := range v.AllowedAssets {
			sv.AllowedAssets = append(sv.AllowedAssets, string(a))
		}
		sort.Strings(sv.AllowedAssets)
		out.Vaults = append(out.Vaults, sv)
	}
	for _, a := range state.Allocations {
		out.Allocations = append(out.Allocations, storedAllocation{
			ID:            string(a.ID),
			Vault:         string(a.Vault),
			Delegate:      string(a.Delegate),
			CurrentValue:  strconv.FormatUint(a.CurrentValue, 10),
			HighWaterMark: strconv.FormatUint(a.HighWaterMark, 10),
			Settled:       a.Settled,
			State:         int(a.State),
		})
	}
	for _, r := range state.Records {
		out.Records = append(out.Records, storedRecord{
			ID:     string(r.ID),
			Owner:  string(r.Owner),
			Asset:  string(r.Asset),
			Amount: strconv.FormatUint(r.Amount, 10),
		})
	}

	sort.Slice(out.Vaults, func(i, j int) bool { return out.Vaults[i].ID < out.Vaults[j].ID })
	sort.Slice(out.Allocations, func(i, j int) bool { return out.Allocations[i].ID < out.Allocations[j].ID })
	sort.Slice(out.Records, func(i, j int) bool { return out.Records[i].ID < out.Records[j].ID })
	return out
}

func decode(stored *storedState) (*ledger.State, error) {
	state := ledger.NewState()
	if stored.Policy != nil {
		state.Policy = &domain.FeePolicy{
			Admin:             domain.ID(stored.Policy.Admin),
			Collector:         domain.EntityID(stored.Policy.Collector),
			PlatformFeeBps:    stored.Policy.PlatformFeeBps,
			PerformanceFeeBps: stored.Policy.PerformanceFeeBps,
		}
	}
	for _, sv := range stored.Vaults {
		v := &domain.Vault{
			ID:            domain.EntityID(sv.ID),
			Owner:         domain.ID(sv.Owner),
			Authority:     domain.ID(sv.Authority),
			BaseAsset:     domain.Asset(sv.BaseAsset),
			AllowedAssets: make(map[domain.Asset]struct{}, len(sv.AllowedAssets)),
		}
		for _, a := range sv.AllowedAssets {
			v.AllowedAssets[domain.Asset(a)] = struct{}{}
		}
		state.Vaults[v.ID] = v
	}
	for _, sa := range stored.Allocations {
		current, err := strconv.ParseUint(sa.CurrentValue, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "decode allocation %s current value", sa.ID)
		}
		hwm, err := strconv.ParseUint(sa.HighWaterMark, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "decode allocation %s high water mark", sa.ID)
		}
		a := &domain.Allocation{
			ID:            domain.EntityID(sa.ID),
			Vault:         domain.EntityID(sa.Vault),
			Delegate:      domain.ID(sa.Delegate),
			CurrentValue:  current,
			HighWaterMark: hwm,
			Settled:       sa.Settled,
			State:         domain.AllocationState(sa.State),
		}
		state.Allocations[a.ID] = a
	}
	for _, sr := range stored.Records {
		amount, err := strconv.ParseUint(sr.Amount, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "decode record %s amount", sr.ID)
		}
		r := &domain.BalanceRecord{
			ID:     domain.RecordID(sr.ID),
			Owner:  domain.EntityID(sr.Owner),
			Asset:  domain.Asset(sr.Asset),
			Amount: amount,
		}
		state.Records[r.ID] = r
	}
	return state, nil
}
