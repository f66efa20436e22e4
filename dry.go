package melviewhkb

import (
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/log"
	"github.com/brutella/hap/service"

	"github.com/cloudkucooland/HomeKitBridges/MelviewHKBridge/melview"
)

type dehumidifierSvc struct {
	*service.S

	Active                             *characteristic.Active
	CurrentHumidifierDehumidifierState *characteristic.CurrentHumidifierDehumidifierState
	TargetHumidifierDehumidifierState  *characteristic.TargetHumidifierDehumidifierState
	CurrentRelativeHumidity            *characteristic.CurrentRelativeHumidity
	RotationSpeed                      *characteristic.RotationSpeed
}

func newDehumidifierSvc() *dehumidifierSvc {
	s := dehumidifierSvc{}
	s.S = service.New(service.TypeHumidifierDehumidifier)

	s.Active = characteristic.NewActive()
	s.AddC(s.Active.C)

	s.CurrentHumidifierDehumidifierState = characteristic.NewCurrentHumidifierDehumidifierState()
	s.AddC(s.CurrentHumidifierDehumidifierState.C)

	// melview units only dehumidify
	s.TargetHumidifierDehumidifierState = characteristic.NewTargetHumidifierDehumidifierState()
	s.TargetHumidifierDehumidifierState.SetMinValue(characteristic.TargetHumidifierDehumidifierStateDehumidifier)
	s.TargetHumidifierDehumidifierState.SetMaxValue(characteristic.TargetHumidifierDehumidifierStateDehumidifier)
	s.TargetHumidifierDehumidifierState.SetValue(characteristic.TargetHumidifierDehumidifierStateDehumidifier)
	s.AddC(s.TargetHumidifierDehumidifierState.C)

	// no humidity sensor on the cloud side
	s.CurrentRelativeHumidity = characteristic.NewCurrentRelativeHumidity()
	s.AddC(s.CurrentRelativeHumidity.C)

	s.RotationSpeed = characteristic.NewRotationSpeed()
	s.RotationSpeed.SetStepValue(20)
	s.AddC(s.RotationSpeed.C)

	return &s
}

// Dry exposes the unit's DRY mode as a dehumidifier
type Dry struct {
	Svc *dehumidifierSvc

	p    *Platform
	unit *Unit
}

func newDry(p *Platform, u *Unit) *Dry {
	d := &Dry{
		Svc:  newDehumidifierSvc(),
		p:    p,
		unit: u,
	}

	onGetInt(d.Svc.Active.C, d.Active)
	d.Svc.Active.OnValueRemoteUpdate(d.SetActive)

	onGetInt(d.Svc.CurrentHumidifierDehumidifierState.C, d.CurrentState)

	onGetFloat(d.Svc.RotationSpeed.C, d.RotationSpeed)
	d.Svc.RotationSpeed.OnValueRemoteUpdate(d.SetRotationSpeed)

	d.update(u.State())
	u.Subscribe(d.update)
	return d
}

func dryActive(s *melview.UnitState) int {
	if s.Power == 1 && s.SetMode == melview.ModeDry {
		return characteristic.ActiveActive
	}
	return characteristic.ActiveInactive
}

func (d *Dry) Active() int {
	return dryActive(d.unit.State())
}

// SetActive switches into DRY and powers on, or powers off if the unit is drying
func (d *Dry) SetActive(v int) {
	log.Info.Printf("%s: setting dry to %d", d.unit.Room, v)

	if v == 0 {
		if d.unit.State().SetMode != melview.ModeDry {
			log.Debug.Printf("%s: not drying, leaving power alone", d.unit.Room)
			return
		}
		if err := d.p.send(melview.PowerCommand(d.unit.UnitID, false)); err != nil {
			return
		}
		d.unit.Mutate(func(s *melview.UnitState) { s.Power = 0 })
		d.Svc.CurrentHumidifierDehumidifierState.SetValue(characteristic.CurrentHumidifierDehumidifierStateInactive)
		return
	}

	if err := d.p.send(melview.ModeCommand(d.unit.UnitID, melview.ModeDry)); err != nil {
		return
	}
	d.unit.Mutate(func(s *melview.UnitState) { s.SetMode = melview.ModeDry })

	if err := d.p.send(melview.PowerCommand(d.unit.UnitID, true)); err != nil {
		return
	}
	d.unit.Mutate(func(s *melview.UnitState) { s.Power = 1 })
	d.Svc.CurrentHumidifierDehumidifierState.SetValue(characteristic.CurrentHumidifierDehumidifierStateDehumidifying)
}

func (d *Dry) CurrentState() int {
	return dryCurrentState(d.unit.State())
}

func dryCurrentState(s *melview.UnitState) int {
	if dryActive(s) == characteristic.ActiveActive {
		return characteristic.CurrentHumidifierDehumidifierStateDehumidifying
	}
	return characteristic.CurrentHumidifierDehumidifierStateInactive
}

func (d *Dry) RotationSpeed() float64 {
	return fanSpeedPercent(d.unit.State().SetFan)
}

func (d *Dry) SetRotationSpeed(pct float64) {
	setRotationSpeed(d.p, d.unit, pct)
}

func (d *Dry) update(s *melview.UnitState) {
	d.Svc.Active.SetValue(dryActive(s))
	d.Svc.CurrentHumidifierDehumidifierState.SetValue(dryCurrentState(s))
	d.Svc.RotationSpeed.SetValue(fanSpeedPercent(s.SetFan))
}
