package domain

// AllocationState is the lifecycle state of a delegated allocation.
type AllocationState int

const (
	// StateUninitialized is the initial state set at creation.
	StateUninitialized AllocationState = iota
	// StateSyncing means an external portfolio sync is in flight.
	StateSyncing
	// StateInitialized means the allocation is live and may trade.
	StateInitialized
	// StatePaused means trading is suspended by the owner.
	StatePaused
)

func (s AllocationState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSyncing:
		return "syncing"
	case StateInitialized:
		return "initialized"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Allocation is one delegate's bounded working capital inside a vault.
// CurrentValue is accounting metadata; the funds themselves live in the
// allocation's derived balance records.
type Allocation struct {
	ID            EntityID
	Vault         EntityID
	Delegate      ID
	CurrentValue  uint64
	HighWaterMark uint64
	Settled       bool
	State         AllocationState
}

// NewAllocation builds an allocation funded with the given amount. The id is
// derived from the (vault, delegate) pair.
func NewAllocation(vault EntityID, delegate ID, funded uint64) *Allocation {
	return &Allocation{
		ID:            DeriveAllocationID(vault, delegate),
		Vault:         vault,
		Delegate:      delegate,
		CurrentValue:  funded,
		HighWaterMark: funded,
		State:         StateUninitialized,
	}
}

// StartSync moves Uninitialized -> Syncing.
func (a *Allocation) StartSync() error {
	switch a.State {
	case StateSyncing:
		return ErrAlreadySyncing
	case StateInitialized, StatePaused:
		return ErrAlreadyInitialized
	}
	a.State = StateSyncing
	return nil
}

// FinishSync moves Syncing -> Initialized.
func (a *Allocation) FinishSync() error {
	if a.State != StateSyncing {
		return ErrNotSyncing
	}
	a.State = StateInitialized
	return nil
}

// MarkInitialized moves Uninitialized -> Initialized directly, bypassing the
// sync pair.
func (a *Allocation) MarkInitialized() error {
	if a.State != StateUninitialized {
		return ErrAlreadyInitialized
	}
	a.State = StateInitialized
	return nil
}

// Pause moves Initialized -> Paused.
func (a *Allocation) Pause() error {
	if a.State != StateInitialized {
		return ErrNotInitialized
	}
	a.State = StatePaused
	return nil
}

// Resume moves Paused -> Initialized.
func (a *Allocation) Resume() error {
	if a.State != StatePaused {
		return ErrNotPaused
	}
	a.State = StateInitialized
	return nil
}

// CanClose reports whether the allocation may be closed. Closing is allowed
// from any state except Syncing, where the in-flight external process is
// assumed to still be mutating balances.
func (a *Allocation) CanClose() error {
	if a.State == StateSyncing {
		return ErrSyncInProgress
	}
	return nil
}

// Clone returns a deep copy.
func (a *Allocation) Clone() *Allocation {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}
