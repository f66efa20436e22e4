package melview

import (
	"strconv"
	"strings"
)

// WorkMode is the melview operating mode code
type WorkMode int

const (
	ModeHeat WorkMode = 1
	ModeDry  WorkMode = 2
	ModeCool WorkMode = 3
	ModeFan  WorkMode = 7
	ModeAuto WorkMode = 8
)

func (m WorkMode) String() string {
	switch m {
	case ModeHeat:
		return "HEAT"
	case ModeDry:
		return "DRY"
	case ModeCool:
		return "COOL"
	case ModeFan:
		return "FAN"
	case ModeAuto:
		return "AUTO"
	}
	return "UNKNOWN(" + strconv.Itoa(int(m)) + ")"
}

// Valid reports whether m is one of the modes melview knows about
func (m WorkMode) Valid() bool {
	switch m {
	case ModeHeat, ModeDry, ModeCool, ModeFan, ModeAuto:
		return true
	}
	return false
}

// Bounds is the allowed set temperature range for one mode
type Bounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Clamp forces v into [Min, Max]
func (b Bounds) Clamp(v float64) float64 {
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

// DefaultBounds is used when neither the state nor the capabilities carry a range for a mode
var DefaultBounds = Bounds{Min: 16, Max: 31}

// Unit is one AC as listed by rooms.aspx
type Unit struct {
	UnitID       string       `json:"unitid"`
	Room         string       `json:"room"`
	Name         string       `json:"name,omitempty"`
	Building     string       `json:"building,omitempty"`
	Capabilities Capabilities `json:"capabilities"`
}

// DisplayName is the name HomeKit sees
func (u Unit) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Room
}

// Capabilities is the unitcapabilities.aspx response
type Capabilities struct {
	ID          string            `json:"id"`
	UnitName    string            `json:"unitname"`
	AdaptorType string            `json:"adaptortype"`
	ModelType   string            `json:"modeltype"`
	LocalIP     string            `json:"localip"`
	HasDryMode  int               `json:"hasdrymode"`
	HasAutoMode int               `json:"hasautomode"`
	HasAirDir   int               `json:"hasairdir"`
	HasSwing    int               `json:"hasswing"`
	FanStage    int               `json:"fanstage"`
	Max         map[string]Bounds `json:"max"`
	Error       string            `json:"error,omitempty"`
}

// Zone is one ventilation zone of a unit
type Zone struct {
	ZoneID int    `json:"zoneid"`
	Name   string `json:"name"`
	Status int    `json:"status"`
}

// UnitState is the unitcommand.aspx response; temperatures are strings on the wire
type UnitState struct {
	ID          string            `json:"id"`
	Power       int               `json:"power"`
	Standby     int               `json:"standby"`
	SetMode     WorkMode          `json:"setmode"`
	AutoMode    int               `json:"automode"`
	SetFan      int               `json:"setfan"`
	SetTemp     string            `json:"settemp"`
	RoomTemp    string            `json:"roomtemp"`
	OutdoorTemp string            `json:"outdoortemp"`
	AirDir      int               `json:"airdir"`
	AirDirH     int               `json:"airdirh"`
	Zones       []Zone            `json:"zones"`
	Max         map[string]Bounds `json:"max,omitempty"`
	Fault       string            `json:"fault"`
	Error       string            `json:"error"`
}

// Clone returns a deep copy
func (s *UnitState) Clone() *UnitState {
	if s == nil {
		return nil
	}
	c := *s
	if s.Zones != nil {
		c.Zones = make([]Zone, len(s.Zones))
		copy(c.Zones, s.Zones)
	}
	if s.Max != nil {
		c.Max = make(map[string]Bounds, len(s.Max))
		for k, v := range s.Max {
			c.Max[k] = v
		}
	}
	return &c
}

// SetTemperature parses SetTemp, zero if unparsable
func (s *UnitState) SetTemperature() float64 {
	return parseTemp(s.SetTemp)
}

// RoomTemperature parses RoomTemp, zero if unparsable
func (s *UnitState) RoomTemperature() float64 {
	return parseTemp(s.RoomTemp)
}

// OutdoorTemperature parses OutdoorTemp; ok is false when the unit has no outdoor sensor
func (s *UnitState) OutdoorTemperature() (float64, bool) {
	t := strings.TrimSpace(s.OutdoorTemp)
	if t == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Bounds returns the range for mode, looking in the state first, then caps, then DefaultBounds
func (s *UnitState) Bounds(mode WorkMode, caps *Capabilities) Bounds {
	key := strconv.Itoa(int(mode))
	if s != nil {
		if b, ok := s.Max[key]; ok {
			return b
		}
	}
	if caps != nil {
		if b, ok := caps.Max[key]; ok {
			return b
		}
	}
	return DefaultBounds
}

// ZoneByName finds a zone by exact name
func (s *UnitState) ZoneByName(name string) (Zone, bool) {
	for _, z := range s.Zones {
		if z.Name == name {
			return z, true
		}
	}
	return Zone{}, false
}

// ZoneByID finds a zone by zoneid
func (s *UnitState) ZoneByID(id int) (Zone, bool) {
	for _, z := range s.Zones {
		if z.ZoneID == id {
			return z, true
		}
	}
	return Zone{}, false
}

func parseTemp(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
