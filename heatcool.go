package melviewhkb

import (
	"strconv"

	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/log"
	"github.com/brutella/hap/service"

	"github.com/cloudkucooland/HomeKitBridges/MelviewHKBridge/melview"
)

type heaterCoolerSvc struct {
	*service.S

	Active                      *characteristic.Active
	CurrentHeaterCoolerState    *characteristic.CurrentHeaterCoolerState
	TargetHeaterCoolerState     *characteristic.TargetHeaterCoolerState
	CurrentTemperature          *characteristic.CurrentTemperature
	CoolingThresholdTemperature *characteristic.CoolingThresholdTemperature
	HeatingThresholdTemperature *characteristic.HeatingThresholdTemperature
	RotationSpeed               *characteristic.RotationSpeed
}

func newHeaterCoolerSvc() *heaterCoolerSvc {
	s := heaterCoolerSvc{}
	s.S = service.New(service.TypeHeaterCooler)

	s.Active = characteristic.NewActive()
	s.AddC(s.Active.C)

	s.CurrentHeaterCoolerState = characteristic.NewCurrentHeaterCoolerState()
	s.AddC(s.CurrentHeaterCoolerState.C)

	s.TargetHeaterCoolerState = characteristic.NewTargetHeaterCoolerState()
	s.AddC(s.TargetHeaterCoolerState.C)

	s.CurrentTemperature = characteristic.NewCurrentTemperature()
	s.CurrentTemperature.SetMinValue(-50)
	s.CurrentTemperature.SetMaxValue(70)
	s.CurrentTemperature.SetStepValue(0.5)
	s.AddC(s.CurrentTemperature.C)

	s.CoolingThresholdTemperature = characteristic.NewCoolingThresholdTemperature()
	s.AddC(s.CoolingThresholdTemperature.C)

	s.HeatingThresholdTemperature = characteristic.NewHeatingThresholdTemperature()
	s.AddC(s.HeatingThresholdTemperature.C)

	s.RotationSpeed = characteristic.NewRotationSpeed()
	s.RotationSpeed.SetStepValue(20)
	s.AddC(s.RotationSpeed.C)

	return &s
}

// HeatCool drives the HeaterCooler service of one unit
type HeatCool struct {
	Svc *heaterCoolerSvc

	p    *Platform
	unit *Unit

	cool melview.Bounds
	heat melview.Bounds
}

func newHeatCool(p *Platform, u *Unit) *HeatCool {
	h := &HeatCool{
		Svc:  newHeaterCoolerSvc(),
		p:    p,
		unit: u,
	}

	s := u.State()
	h.cool = s.Bounds(melview.ModeCool, &u.Capabilities)
	h.heat = s.Bounds(melview.ModeHeat, &u.Capabilities)

	h.Svc.CoolingThresholdTemperature.SetMinValue(h.cool.Min)
	h.Svc.CoolingThresholdTemperature.SetMaxValue(h.cool.Max)
	h.Svc.CoolingThresholdTemperature.SetStepValue(0.5)
	h.Svc.HeatingThresholdTemperature.SetMinValue(h.heat.Min)
	h.Svc.HeatingThresholdTemperature.SetMaxValue(h.heat.Max)
	h.Svc.HeatingThresholdTemperature.SetStepValue(0.5)

	onGetInt(h.Svc.Active.C, h.Active)
	h.Svc.Active.OnValueRemoteUpdate(h.SetActive)

	onGetInt(h.Svc.CurrentHeaterCoolerState.C, h.CurrentHeaterCoolerState)

	onGetInt(h.Svc.TargetHeaterCoolerState.C, h.TargetHeaterCoolerState)
	h.Svc.TargetHeaterCoolerState.OnValueRemoteUpdate(h.SetTargetHeaterCoolerState)

	onGetFloat(h.Svc.CurrentTemperature.C, h.CurrentTemperature)

	onGetFloat(h.Svc.CoolingThresholdTemperature.C, h.CoolingThresholdTemperature)
	h.Svc.CoolingThresholdTemperature.OnValueRemoteUpdate(h.SetCoolingThresholdTemperature)

	onGetFloat(h.Svc.HeatingThresholdTemperature.C, h.HeatingThresholdTemperature)
	h.Svc.HeatingThresholdTemperature.OnValueRemoteUpdate(h.SetHeatingThresholdTemperature)

	onGetFloat(h.Svc.RotationSpeed.C, h.RotationSpeed)
	h.Svc.RotationSpeed.OnValueRemoteUpdate(h.SetRotationSpeed)

	h.update(s)
	u.Subscribe(h.update)
	return h
}

// Active is INACTIVE whenever the unit is drying or only fanning, whatever the power flag says
func (h *HeatCool) Active() int {
	return heatCoolActive(h.unit.State())
}

func heatCoolActive(s *melview.UnitState) int {
	switch s.SetMode {
	case melview.ModeDry, melview.ModeFan:
		return characteristic.ActiveInactive
	}
	if s.Power == 0 {
		return characteristic.ActiveInactive
	}
	return characteristic.ActiveActive
}

// SetActive powers the unit on or off and brings the zone accessories along
func (h *HeatCool) SetActive(v int) {
	log.Info.Printf("%s: setting active to %d", h.unit.Room, v)

	if err := h.p.send(melview.PowerCommand(h.unit.UnitID, v != 0)); err != nil {
		return
	}
	h.unit.Mutate(func(s *melview.UnitState) {
		s.Power = boolToInt(v != 0)
	})

	s := h.unit.State()
	if len(s.Zones) > 0 {
		h.p.registry.propagatePower(h.unit, v, s)
	}
}

// CurrentHeaterCoolerState derives the current state from the unit's present mode
func (h *HeatCool) CurrentHeaterCoolerState() int {
	s := h.unit.State()
	return h.currentState(s, s.SetMode)
}

func (h *HeatCool) currentState(s *melview.UnitState, mode melview.WorkMode) int {
	switch mode {
	case melview.ModeAuto:
		room, set := s.RoomTemperature(), s.SetTemperature()
		switch {
		case room < set:
			return characteristic.CurrentHeaterCoolerStateHeating
		case room > set:
			return characteristic.CurrentHeaterCoolerStateCooling
		default:
			return characteristic.CurrentHeaterCoolerStateIdle
		}
	case melview.ModeCool:
		return characteristic.CurrentHeaterCoolerStateCooling
	case melview.ModeHeat:
		return characteristic.CurrentHeaterCoolerStateHeating
	case melview.ModeDry, melview.ModeFan:
		return characteristic.CurrentHeaterCoolerStateIdle
	}
	log.Info.Printf("error: %s: unknown mode %s", h.unit.Room, mode)
	return characteristic.CurrentHeaterCoolerStateInactive
}

// TargetHeaterCoolerState maps the melview mode; anything but HEAT and COOL reads as AUTO
func (h *HeatCool) TargetHeaterCoolerState() int {
	return targetFromMode(h.unit.State().SetMode)
}

func targetFromMode(m melview.WorkMode) int {
	switch m {
	case melview.ModeHeat:
		return characteristic.TargetHeaterCoolerStateHeat
	case melview.ModeCool:
		return characteristic.TargetHeaterCoolerStateCool
	}
	return characteristic.TargetHeaterCoolerStateAuto
}

func modeFromTarget(v int) (melview.WorkMode, bool) {
	switch v {
	case characteristic.TargetHeaterCoolerStateAuto:
		return melview.ModeAuto, true
	case characteristic.TargetHeaterCoolerStateHeat:
		return melview.ModeHeat, true
	case characteristic.TargetHeaterCoolerStateCool:
		return melview.ModeCool, true
	}
	return 0, false
}

// SetTargetHeaterCoolerState changes mode and sets the current state to match
func (h *HeatCool) SetTargetHeaterCoolerState(v int) {
	mode, ok := modeFromTarget(v)
	if !ok {
		log.Info.Printf("error: %s: unknown target state %d", h.unit.Room, v)
		return
	}
	log.Info.Printf("%s: setting mode to %s", h.unit.Room, mode)

	if err := h.p.send(melview.ModeCommand(h.unit.UnitID, mode)); err != nil {
		return
	}
	h.unit.Mutate(func(s *melview.UnitState) {
		s.SetMode = mode
	})

	h.Svc.CurrentHeaterCoolerState.SetValue(h.currentState(h.unit.State(), mode))
}

// CurrentTemperature is the room temperature
func (h *HeatCool) CurrentTemperature() float64 {
	return h.unit.State().RoomTemperature()
}

func (h *HeatCool) CoolingThresholdTemperature() float64 {
	return h.cool.Clamp(h.unit.State().SetTemperature())
}

func (h *HeatCool) HeatingThresholdTemperature() float64 {
	return h.heat.Clamp(h.unit.State().SetTemperature())
}

func (h *HeatCool) SetCoolingThresholdTemperature(v float64) {
	h.setThreshold("cooling", h.cool, v)
}

func (h *HeatCool) SetHeatingThresholdTemperature(v float64) {
	h.setThreshold("heating", h.heat, v)
}

func (h *HeatCool) setThreshold(which string, b melview.Bounds, v float64) {
	t := b.Clamp(v)
	if t != v {
		log.Info.Printf("warning: %s: %s threshold %.1f outside %.1f-%.1f, using %.1f", h.unit.Room, which, v, b.Min, b.Max, t)
	}
	log.Info.Printf("%s: setting %s threshold to %.1f", h.unit.Room, which, t)

	if err := h.p.send(melview.TemperatureCommand(h.unit.UnitID, t)); err != nil {
		return
	}
	h.unit.Mutate(func(s *melview.UnitState) {
		s.SetTemp = strconv.FormatFloat(t, 'f', -1, 64)
	})
}

func (h *HeatCool) RotationSpeed() float64 {
	return fanSpeedPercent(h.unit.State().SetFan)
}

func (h *HeatCool) SetRotationSpeed(pct float64) {
	setRotationSpeed(h.p, h.unit, pct)
}

func (h *HeatCool) update(s *melview.UnitState) {
	log.Debug.Printf("%s: power %d mode %s set %s room %s fan %d", h.unit.Room, s.Power, s.SetMode, s.SetTemp, s.RoomTemp, s.SetFan)

	h.Svc.Active.SetValue(heatCoolActive(s))
	if s.SetMode.Valid() {
		h.Svc.CurrentHeaterCoolerState.SetValue(h.currentState(s, s.SetMode))
	}
	h.Svc.TargetHeaterCoolerState.SetValue(targetFromMode(s.SetMode))
	h.Svc.CurrentTemperature.SetValue(s.RoomTemperature())
	h.Svc.CoolingThresholdTemperature.SetValue(h.cool.Clamp(s.SetTemperature()))
	h.Svc.HeatingThresholdTemperature.SetValue(h.heat.Clamp(s.SetTemperature()))
	h.Svc.RotationSpeed.SetValue(fanSpeedPercent(s.SetFan))
}

// fanSpeedPercent maps the melview fan code onto a percentage
func fanSpeedPercent(code int) float64 {
	switch code {
	case 1:
		return 20
	case 2:
		return 40
	case 3:
		return 60
	case 5:
		return 80
	case 6:
		return 100
	}
	return 20
}

// fanSpeedCode is the inverse of fanSpeedPercent
func fanSpeedCode(pct float64) int {
	switch {
	case pct <= 20:
		return 1
	case pct <= 40:
		return 2
	case pct <= 60:
		return 3
	case pct <= 80:
		return 5
	}
	return 6
}

func setRotationSpeed(p *Platform, u *Unit, pct float64) {
	code := fanSpeedCode(pct)
	log.Info.Printf("%s: setting fan speed to %.0f%% (%d)", u.Room, pct, code)

	if err := p.send(melview.RotationSpeedCommand(u.UnitID, code)); err != nil {
		return
	}
	u.Mutate(func(s *melview.UnitState) {
		s.SetFan = code
	})
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
