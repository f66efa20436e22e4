package melviewhkb

import (
	"testing"

	"github.com/cloudkucooland/HomeKitBridges/MelviewHKBridge/melview"
)

func TestUnitSnapshot(t *testing.T) {
	u := NewUnit(livingUnit(), zonedState())

	s := u.State()
	s.Power = 0
	s.Zones[0].Status = 0
	if got := u.State(); got.Power != 1 || got.Zones[0].Status != 1 {
		t.Error("changing a snapshot changed the unit")
	}

	if NewUnit(livingUnit(), nil).State().ID != "101" {
		t.Error("nil initial state should yield an empty state for the unit")
	}
}

func TestUnitReplacePublishes(t *testing.T) {
	u := NewUnit(livingUnit(), zonedState())

	var got []int
	u.Subscribe(func(s *melview.UnitState) { got = append(got, s.Power) })

	s := zonedState()
	s.Power = 0
	u.Replace(s)
	u.Mutate(func(s *melview.UnitState) { s.Power = 1 })

	if len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("published %v, want [0 1]", got)
	}
	if u.State().Power != 1 {
		t.Error("Mutate not applied")
	}
}

func TestUnitReplaceIfNewer(t *testing.T) {
	u := NewUnit(livingUnit(), zonedState())

	seq := u.NextSeq()
	// a set handler lands while the poll is in flight
	u.Mutate(func(s *melview.UnitState) { s.SetMode = melview.ModeHeat })

	stale := zonedState()
	if u.ReplaceIfNewer(seq, stale) {
		t.Error("stale poll response applied")
	}
	if u.State().SetMode != melview.ModeHeat {
		t.Error("optimistic update lost")
	}

	fresh := zonedState()
	fresh.SetMode = melview.ModeAuto
	if !u.ReplaceIfNewer(u.NextSeq(), fresh) {
		t.Error("fresh poll response dropped")
	}
	if u.State().SetMode != melview.ModeAuto {
		t.Error("fresh state not stored")
	}
}
