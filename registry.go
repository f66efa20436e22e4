package melviewhkb

import (
	"sync"

	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/log"

	"github.com/cloudkucooland/HomeKitBridges/MelviewHKBridge/melview"
)

type registered interface {
	displayName() string
}

// Registry holds every accessory built for the bridge. Zone names are read
// live from the configured name, so a rename in the Home app changes what a
// lookup finds.
type Registry struct {
	byID bool

	mu    sync.RWMutex
	all   []registered
	zones map[string]map[int]*ZoneAccessory // unitid -> zoneid
}

func newRegistry(byID bool) *Registry {
	return &Registry{
		byID:  byID,
		zones: make(map[string]map[int]*ZoneAccessory),
	}
}

func (r *Registry) add(a registered) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.all = append(r.all, a)

	if z, ok := a.(*ZoneAccessory); ok {
		if r.zones[z.unit.UnitID] == nil {
			r.zones[z.unit.UnitID] = make(map[int]*ZoneAccessory)
		}
		r.zones[z.unit.UnitID][z.zoneID] = z
	}
}

// Lookup finds the first accessory whose display name is name
func (r *Registry) Lookup(name string) (registered, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.all {
		if a.displayName() == name {
			return a, true
		}
	}
	return nil, false
}

// zoneFor correlates a zone entry of a unit with its accessory
func (r *Registry) zoneFor(u *Unit, z melview.Zone) (*ZoneAccessory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.byID {
		za, ok := r.zones[u.UnitID][z.ZoneID]
		return za, ok
	}

	// only this unit's zones; other units may reuse the name
	for _, za := range r.zones[u.UnitID] {
		if za.displayName() == z.Name {
			return za, true
		}
	}
	return nil, false
}

// propagatePower forces every zone accessory of u to agree with a whole-unit power change
func (r *Registry) propagatePower(u *Unit, v int, s *melview.UnitState) {
	for _, z := range s.Zones {
		za, ok := r.zoneFor(u, z)
		if !ok {
			log.Info.Printf("error: %s: no accessory for zone %q (%d)", u.Room, z.Name, z.ZoneID)
			continue
		}

		active := characteristic.ActiveInactive
		if v != 0 && z.Status != 0 {
			active = characteristic.ActiveActive
		}
		log.Debug.Printf("%s: zone %s active -> %d", u.Room, z.Name, active)
		za.Fan.Active.SetValue(active)
	}
}
