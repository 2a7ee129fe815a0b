// Package ledger holds the entity set behind a single all-or-nothing commit
// boundary. Each operation runs against a deep copy of the state; the copy
// replaces the live state only when the operation returns nil, so a failed
// operation leaves nothing observable behind. A single mutex serializes
// operations, supplying the exclusive-access guarantee the core assumes.
package ledger

import "sync"

// Ledger is the transactional state container.
type Ledger struct {
	mu    sync.Mutex
	state *State
}

// New returns a ledger with an empty state.
func New() *Ledger {
	return &Ledger{state: NewState()}
}

// Restore returns a ledger seeded with a previously persisted state.
func Restore(state *State) *Ledger {
	if state == nil {
		return New()
	}
	return &Ledger{state: state}
}

// Update runs fn against a clone of the current state and commits the clone
// when fn returns nil. On error the clone is discarded and the error is
// returned unchanged.
func (l *Ledger) Update(fn func(*State) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.state.clone()
	if err := fn(next); err != nil {
		return err
	}
	l.state = next
	return nil
}

// View runs fn against the current state under the lock. fn must not mutate
// anything it is handed.
func (l *Ledger) View(fn func(*State) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.state)
}

// Snapshot returns a deep copy of the current state, safe to hand to
// persistence without holding the lock.
func (l *Ledger) Snapshot() *State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.clone()
}
