package melviewhkb

import (
	"strconv"

	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/log"
	"github.com/brutella/hap/service"

	"github.com/cloudkucooland/HomeKitBridges/MelviewHKBridge/melview"
)

type zoneFanSvc struct {
	*service.S

	Active         *characteristic.Active
	Name           *characteristic.Name
	ConfiguredName *characteristic.ConfiguredName
}

func newZoneFanSvc(name string) *zoneFanSvc {
	s := zoneFanSvc{}
	s.S = service.New(service.TypeFanV2)

	s.Active = characteristic.NewActive()
	s.AddC(s.Active.C)

	s.Name = characteristic.NewName()
	s.Name.SetValue(name)
	s.AddC(s.Name.C)

	// Name is read-only; the Home app writes renames here
	s.ConfiguredName = characteristic.NewConfiguredName()
	s.ConfiguredName.SetValue(name)
	s.AddC(s.ConfiguredName.C)

	return &s
}

// ZoneAccessory is one ventilation zone of a unit, shown as a fan
type ZoneAccessory struct {
	*accessory.A

	Fan *zoneFanSvc

	p      *Platform
	unit   *Unit
	zoneID int
}

func newZoneAccessory(p *Platform, u *Unit, z melview.Zone) *ZoneAccessory {
	info := accessory.Info{
		Name:         z.Name,
		SerialNumber: u.UnitID + "-" + strconv.Itoa(z.ZoneID),
		Manufacturer: "Mitsubishi Electric",
		Model:        "zone",
		Firmware:     u.Capabilities.AdaptorType,
	}

	za := &ZoneAccessory{
		A:      accessory.New(info, accessory.TypeFan),
		Fan:    newZoneFanSvc(z.Name),
		p:      p,
		unit:   u,
		zoneID: z.ZoneID,
	}
	za.A.Id = accessoryID("zone", u.UnitID, strconv.Itoa(z.ZoneID))
	za.AddS(za.Fan.S)

	za.Fan.ConfiguredName.OnValueRemoteUpdate(za.renamed)

	onGetInt(za.Fan.Active.C, za.On)
	za.Fan.Active.OnValueRemoteUpdate(za.SetOn)

	za.update(u.State())
	u.Subscribe(za.update)
	return za
}

func (z *ZoneAccessory) displayName() string {
	return z.Fan.ConfiguredName.Value()
}

// renamed warns when name matching loses track of the zone
func (z *ZoneAccessory) renamed(name string) {
	if z.p.registry.byID {
		return
	}
	if _, ok := z.unit.State().ZoneByName(name); !ok {
		log.Info.Printf("zone %d renamed to %s; it will no longer match a melview zone unless ZoneMatch is \"id\"", z.zoneID, name)
	}
}

// lookup finds this accessory's zone entry, by name unless id matching is configured
func (z *ZoneAccessory) lookup(s *melview.UnitState) (melview.Zone, bool) {
	if z.p.registry.byID {
		return s.ZoneByID(z.zoneID)
	}
	return s.ZoneByName(z.displayName())
}

// On is 0 whenever the unit is off, else the zone's own status
func (z *ZoneAccessory) On() int {
	return z.on(z.unit.State(), true)
}

func (z *ZoneAccessory) on(s *melview.UnitState, verbose bool) int {
	if s.Power == 0 {
		return characteristic.ActiveInactive
	}
	zone, ok := z.lookup(s)
	if !ok {
		if verbose {
			log.Info.Printf("error: %s: no zone named %q", z.unit.Room, z.displayName())
		}
		return characteristic.ActiveInactive
	}
	if zone.Status != 0 {
		return characteristic.ActiveActive
	}
	return characteristic.ActiveInactive
}

// SetOn opens or closes the zone; nothing is sent if the zone can't be found
func (z *ZoneAccessory) SetOn(v int) {
	zone, ok := z.lookup(z.unit.State())
	if !ok {
		log.Info.Printf("error: %s: no zone named %q, not sending", z.unit.Room, z.displayName())
		return
	}
	log.Info.Printf("%s: setting zone %s to %d", z.unit.Room, zone.Name, v)

	if err := z.p.send(melview.ZoneCommand(z.unit.UnitID, zone.ZoneID, v != 0)); err != nil {
		return
	}
	z.unit.Mutate(func(s *melview.UnitState) {
		for i := range s.Zones {
			if s.Zones[i].ZoneID == zone.ZoneID {
				s.Zones[i].Status = boolToInt(v != 0)
			}
		}
	})
}

func (z *ZoneAccessory) update(s *melview.UnitState) {
	z.Fan.Active.SetValue(z.on(s, false))
}
