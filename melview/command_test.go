package melview

import "testing"

func TestCommandWire(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{PowerCommand("1", true), "PW1"},
		{PowerCommand("1", false), "PW0"},
		{TemperatureCommand("1", 22.5), "TS22.5"},
		{TemperatureCommand("1", 19), "TS19"},
		{ModeCommand("1", ModeAuto), "MD8"},
		{ModeCommand("1", ModeDry), "MD2"},
		{RotationSpeedCommand("1", 5), "FS5"},
		{ZoneCommand("1", 2, true), "Z21"},
		{ZoneCommand("1", 11, false), "Z110"},
	}
	for _, tt := range tests {
		if got := tt.cmd.Wire(); got != tt.want {
			t.Errorf("%v.Wire() = %q, want %q", tt.cmd.Kind, got, tt.want)
		}
	}
}

func TestBounds(t *testing.T) {
	caps := &Capabilities{Max: map[string]Bounds{"3": {Min: 16, Max: 30}}}
	s := &UnitState{Max: map[string]Bounds{"1": {Min: 10, Max: 31}}}

	if b := s.Bounds(ModeHeat, caps); b.Min != 10 || b.Max != 31 {
		t.Errorf("heat bounds = %+v, want state bounds", b)
	}
	if b := s.Bounds(ModeCool, caps); b.Min != 16 || b.Max != 30 {
		t.Errorf("cool bounds = %+v, want capability bounds", b)
	}
	if b := s.Bounds(ModeAuto, caps); b != DefaultBounds {
		t.Errorf("auto bounds = %+v, want default", b)
	}

	b := Bounds{Min: 16, Max: 30}
	for _, v := range []float64{-5, 15.5, 16, 22, 30, 30.5, 99} {
		got := b.Clamp(v)
		want := v
		if v < 16 {
			want = 16
		} else if v > 30 {
			want = 30
		}
		if got != want {
			t.Errorf("Clamp(%v) = %v, want %v", v, got, want)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := &UnitState{Zones: []Zone{{ZoneID: 1, Name: "Dining", Status: 1}}, Max: map[string]Bounds{"1": {Min: 1, Max: 2}}}
	c := s.Clone()
	c.Zones[0].Status = 0
	c.Max["1"] = Bounds{}
	if s.Zones[0].Status != 1 || s.Max["1"].Max != 2 {
		t.Error("Clone shares zones or bounds with the original")
	}
}
