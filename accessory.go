package melviewhkb

import (
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/log"
	"github.com/brutella/hap/service"

	"github.com/cloudkucooland/HomeKitBridges/MelviewHKBridge/melview"
)

// ACAccessory is one Mitsubishi unit as HomeKit sees it
type ACAccessory struct {
	*accessory.A

	HeatCool *HeatCool
	Dry      *Dry // nil unless the unit can dry and Dry is enabled

	Status        *statusSvc
	BridgingState *bridgingState
	unit          *Unit
}

// vendor extras that HomeKit shows in third-party apps
type statusSvc struct {
	*service.S

	Name               *characteristic.Name
	OutdoorTemperature *outdoorTemperature
	Fault              *fault
}

func newStatusSvc() *statusSvc {
	s := statusSvc{}
	s.S = service.New("E8800002")
	s.S.Primary = false
	s.S.Hidden = true

	s.Name = characteristic.NewName()
	s.Name.SetValue("Melview Status")
	s.S.AddC(s.Name.C)

	s.OutdoorTemperature = newOutdoorTemperature()
	s.AddC(s.OutdoorTemperature.C)

	s.Fault = newFault()
	s.AddC(s.Fault.C)

	return &s
}

type bridgingState struct {
	*service.S

	Reachable           *characteristic.Reachable
	AccessoryIdentifier *characteristic.AccessoryIdentifier
}

func newBridgingState(id string) *bridgingState {
	bs := &bridgingState{}
	bs.S = service.New("62")

	bs.Reachable = characteristic.NewReachable()
	bs.Reachable.Description = "Reachable"
	bs.Reachable.SetValue(true)
	bs.S.AddC(bs.Reachable.C)

	bs.AccessoryIdentifier = characteristic.NewAccessoryIdentifier()
	bs.AccessoryIdentifier.Description = "AccessoryIdentifier"
	bs.AccessoryIdentifier.SetValue(id)
	bs.S.AddC(bs.AccessoryIdentifier.C)

	return bs
}

func newACAccessory(p *Platform, u *Unit) *ACAccessory {
	info := accessory.Info{
		Name:         u.DisplayName(),
		SerialNumber: u.UnitID,
		Manufacturer: "Mitsubishi Electric",
		Model:        u.Capabilities.AdaptorType,
		Firmware:     u.Capabilities.ModelType,
	}

	ac := &ACAccessory{
		A:    accessory.New(info, accessory.TypeAirConditioner),
		unit: u,
	}
	ac.A.Id = accessoryID("unit", u.UnitID)

	ac.HeatCool = newHeatCool(p, u)
	ac.AddS(ac.HeatCool.Svc.S)
	log.Info.Printf("HEAT/COOL Capability: %s [COMPLETED]", u.Room)

	if p.conf.Dry && u.Capabilities.HasDryMode == 1 {
		ac.Dry = newDry(p, u)
		ac.AddS(ac.Dry.Svc.S)
		log.Info.Printf("DRY Capability: %s [COMPLETED]", u.Room)
	} else {
		log.Info.Printf("DRY Capability: %s [UNAVAILABLE]", u.Room)
	}

	ac.Status = newStatusSvc()
	ac.AddS(ac.Status.S)
	ac.BridgingState = newBridgingState(u.UnitID)
	ac.AddS(ac.BridgingState.S)
	ac.update(u.State())
	u.Subscribe(ac.update)

	return ac
}

func (ac *ACAccessory) displayName() string {
	return ac.A.Info.Name.Value()
}

// reachable follows the poll results; the last known state stays served either way
func (ac *ACAccessory) reachable(err error) {
	ok := err == nil
	if ac.BridgingState.Reachable.Value() != ok {
		log.Info.Printf("%s: reachable %t", ac.unit.Room, ok)
	}
	ac.BridgingState.Reachable.SetValue(ok)
}

func (ac *ACAccessory) update(s *melview.UnitState) {
	if t, ok := s.OutdoorTemperature(); ok {
		ac.Status.OutdoorTemperature.SetValue(t)
	}
	ac.Status.Fault.SetValue(s.Fault)
}
