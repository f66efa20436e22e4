package melview

import (
	"fmt"
	"strconv"
)

// CommandKind tags which fields of a Command are meaningful
type CommandKind int

const (
	KindPower CommandKind = iota
	KindTemperature
	KindMode
	KindRotationSpeed
	KindZone
)

func (k CommandKind) String() string {
	switch k {
	case KindPower:
		return "power"
	case KindTemperature:
		return "temperature"
	case KindMode:
		return "mode"
	case KindRotationSpeed:
		return "rotationspeed"
	case KindZone:
		return "zone"
	}
	return "unknown"
}

// Command is a single instruction for one unit. Build one with the constructors,
// send it once, throw it away.
type Command struct {
	Kind   CommandKind
	UnitID string

	On          bool     // Power, Zone
	Temperature float64  // Temperature
	Mode        WorkMode // Mode
	FanSpeed    int      // RotationSpeed, raw melview code
	ZoneID      int      // Zone
}

func PowerCommand(unitID string, on bool) Command {
	return Command{Kind: KindPower, UnitID: unitID, On: on}
}

func TemperatureCommand(unitID string, t float64) Command {
	return Command{Kind: KindTemperature, UnitID: unitID, Temperature: t}
}

func ModeCommand(unitID string, m WorkMode) Command {
	return Command{Kind: KindMode, UnitID: unitID, Mode: m}
}

func RotationSpeedCommand(unitID string, code int) Command {
	return Command{Kind: KindRotationSpeed, UnitID: unitID, FanSpeed: code}
}

func ZoneCommand(unitID string, zoneID int, on bool) Command {
	return Command{Kind: KindZone, UnitID: unitID, ZoneID: zoneID, On: on}
}

// Wire renders the command in melview's "commands" syntax
func (c Command) Wire() string {
	switch c.Kind {
	case KindPower:
		return "PW" + bit(c.On)
	case KindTemperature:
		return "TS" + strconv.FormatFloat(c.Temperature, 'f', -1, 64)
	case KindMode:
		return "MD" + strconv.Itoa(int(c.Mode))
	case KindRotationSpeed:
		return "FS" + strconv.Itoa(c.FanSpeed)
	case KindZone:
		return "Z" + strconv.Itoa(c.ZoneID) + bit(c.On)
	}
	return ""
}

func (c Command) String() string {
	return fmt.Sprintf("%s %s (%s)", c.UnitID, c.Wire(), c.Kind)
}

func bit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
