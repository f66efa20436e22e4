package melviewhkb

import (
	"errors"
	"testing"

	"github.com/cloudkucooland/HomeKitBridges/MelviewHKBridge/melview"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := OpenCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCacheSaveAndGet(t *testing.T) {
	c := newTestCache(t)

	u := NewUnit(livingUnit(), zonedState())
	if err := c.SaveUnit(u); err != nil {
		t.Fatal(err)
	}

	got, err := c.GetUnit("101")
	if err != nil {
		t.Fatal(err)
	}
	if got.Unit.Room != "Living" || got.Unit.Capabilities.AdaptorType != "wifi-adaptor" {
		t.Errorf("unit = %+v", got.Unit)
	}
	if b := got.Unit.Capabilities.Max["3"]; b.Min != 16 || b.Max != 30 {
		t.Errorf("cool bounds = %+v", b)
	}
	if got.State == nil || len(got.State.Zones) != 2 || got.State.SetMode != melview.ModeCool {
		t.Errorf("state = %+v", got.State)
	}
}

func TestCacheNotFound(t *testing.T) {
	c := newTestCache(t)
	if _, err := c.GetUnit("999"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCacheFollowsState(t *testing.T) {
	c := newTestCache(t)
	p, _ := newTestPlatform(t, testConfig())
	p.WithCache(c)

	u := p.AddUnit(livingUnit(), zonedState())
	if err := c.SaveUnit(u); err != nil {
		t.Fatal(err)
	}

	s := zonedState()
	s.SetTemp = "25"
	u.Replace(s)

	units, err := c.LoadUnits()
	if err != nil {
		t.Fatal(err)
	}
	if len(units) != 1 || units[0].State.SetTemp != "25" {
		t.Errorf("cached state not refreshed: %+v", units)
	}
}

func TestCacheSkipsUnchangedState(t *testing.T) {
	c := newTestCache(t)
	if err := c.SaveUnit(NewUnit(livingUnit(), zonedState())); err != nil {
		t.Fatal(err)
	}

	if c.saveState("101", zonedState()) {
		t.Error("unchanged state written again")
	}

	s := zonedState()
	s.RoomTemp = "23"
	if !c.saveState("101", s) {
		t.Fatal("changed state not written")
	}
	if c.saveState("101", s.Clone()) {
		t.Error("repeated poll written again")
	}

	got, err := c.GetUnit("101")
	if err != nil {
		t.Fatal(err)
	}
	if got.State.RoomTemp != "23" {
		t.Errorf("roomtemp = %q, want 23", got.State.RoomTemp)
	}
}
