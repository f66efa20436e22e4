package melviewhkb

import (
	"sync"
	"sync/atomic"

	"github.com/cloudkucooland/HomeKitBridges/MelviewHKBridge/melview"
)

// Unit is one physical AC. Every controller bound to the unit shares it; only
// the poller and successful set handlers write the state.
type Unit struct {
	melview.Unit

	state atomic.Pointer[melview.UnitState]

	mu      sync.Mutex // guards writes, seq and subs
	seq     uint64     // last sequence handed out
	applied uint64     // sequence of the state currently stored
	subs    []func(*melview.UnitState)
}

// NewUnit wraps a discovered unit with its initial state
func NewUnit(u melview.Unit, initial *melview.UnitState) *Unit {
	unit := &Unit{Unit: u}
	if initial == nil {
		initial = &melview.UnitState{ID: u.UnitID}
	}
	unit.state.Store(initial.Clone())
	return unit
}

// State returns a private copy of the latest known state
func (u *Unit) State() *melview.UnitState {
	return u.state.Load().Clone()
}

// NextSeq reserves a sequence number; take it before issuing a request whose
// result will be written with ReplaceIfNewer
func (u *Unit) NextSeq() uint64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.seq++
	return u.seq
}

// Replace stores s wholesale, last write wins
func (u *Unit) Replace(s *melview.UnitState) {
	u.mu.Lock()
	u.seq++
	u.applied = u.seq
	u.state.Store(s.Clone())
	subs := u.subs
	u.mu.Unlock()

	u.publish(subs)
}

// ReplaceIfNewer stores s only if nothing issued after seq has been applied yet
func (u *Unit) ReplaceIfNewer(seq uint64, s *melview.UnitState) bool {
	u.mu.Lock()
	if seq < u.applied {
		u.mu.Unlock()
		return false
	}
	u.applied = seq
	u.state.Store(s.Clone())
	subs := u.subs
	u.mu.Unlock()

	u.publish(subs)
	return true
}

// Mutate applies fn to a copy of the state, stores the result and publishes it
func (u *Unit) Mutate(fn func(*melview.UnitState)) {
	u.mu.Lock()
	next := u.state.Load().Clone()
	fn(next)
	u.seq++
	u.applied = u.seq
	u.state.Store(next)
	subs := u.subs
	u.mu.Unlock()

	u.publish(subs)
}

// Subscribe registers fn to be called with every state the unit stores
func (u *Unit) Subscribe(fn func(*melview.UnitState)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.subs = append(u.subs, fn)
}

func (u *Unit) publish(subs []func(*melview.UnitState)) {
	for _, fn := range subs {
		fn(u.State())
	}
}
