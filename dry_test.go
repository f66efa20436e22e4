package melviewhkb

import (
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/brutella/hap/characteristic"

	"github.com/cloudkucooland/HomeKitBridges/MelviewHKBridge/melview"
)

func TestDryActive(t *testing.T) {
	tests := []struct {
		power int
		mode  melview.WorkMode
		want  int
	}{
		{1, melview.ModeDry, characteristic.ActiveActive},
		{0, melview.ModeDry, characteristic.ActiveInactive},
		{1, melview.ModeCool, characteristic.ActiveInactive},
		{1, melview.ModeFan, characteristic.ActiveInactive},
	}
	for _, tt := range tests {
		s := &melview.UnitState{Power: tt.power, SetMode: tt.mode}
		if got := dryActive(s); got != tt.want {
			t.Errorf("power %d mode %s: active = %d, want %d", tt.power, tt.mode, got, tt.want)
		}
		wantState := characteristic.CurrentHumidifierDehumidifierStateInactive
		if tt.want == characteristic.ActiveActive {
			wantState = characteristic.CurrentHumidifierDehumidifierStateDehumidifying
		}
		if got := dryCurrentState(s); got != wantState {
			t.Errorf("power %d mode %s: state = %d, want %d", tt.power, tt.mode, got, wantState)
		}
	}
}

func TestDrySetActive(t *testing.T) {
	p, svc := newTestPlatform(t, testConfig())
	s := zonedState()
	s.Power = 0
	p.AddUnit(livingUnit(), s)
	d := p.acs[0].Dry

	d.SetActive(characteristic.ActiveActive)
	if got, want := svc.wires(), []string{"MD2", "PW1"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("commands = %v, want %v", got, want)
	}
	if d.Active() != characteristic.ActiveActive {
		t.Error("dry not active after switching on")
	}
	// heat/cool yields to dry
	if p.acs[0].HeatCool.Active() != characteristic.ActiveInactive {
		t.Error("heat/cool should read inactive while drying")
	}

	d.SetActive(characteristic.ActiveInactive)
	if got, want := svc.wires(), []string{"MD2", "PW1", "PW0"}; !reflect.DeepEqual(got, want) {
		t.Errorf("commands = %v, want %v", got, want)
	}
}

func TestDryOffLeavesCoolingAlone(t *testing.T) {
	p, svc := newTestPlatform(t, testConfig())
	p.AddUnit(livingUnit(), zonedState())

	p.acs[0].Dry.SetActive(characteristic.ActiveInactive)
	if got := svc.wires(); len(got) != 0 {
		t.Errorf("commands = %v, want none while cooling", got)
	}
	if p.units[0].State().Power != 1 {
		t.Error("unit powered off by the dehumidifier")
	}
}

func TestDrySetActiveRefreshesUnit(t *testing.T) {
	p, _ := newTestPlatform(t, testConfig())
	p.WithMetrics(NewMetrics())
	p.AddUnit(livingUnit(), zonedState())
	ac := p.acs[0]

	if ac.HeatCool.Svc.Active.Value() != characteristic.ActiveActive {
		t.Fatal("heater cooler should start active in COOL")
	}

	ac.Dry.SetActive(characteristic.ActiveActive)

	// the heater cooler shares the unit and goes inactive in DRY without waiting for a poll
	if ac.HeatCool.Svc.Active.Value() != characteristic.ActiveInactive {
		t.Error("heater cooler still active after switching to DRY")
	}
	if ac.Dry.Svc.Active.Value() != characteristic.ActiveActive {
		t.Error("dehumidifier not active")
	}

	server := httptest.NewServer(p.router())
	defer server.Close()
	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`melview_mode{mode="` + melview.ModeDry.String() + `",room="Living",unit_id="101"} 1`,
		`melview_mode{mode="` + melview.ModeCool.String() + `",room="Living",unit_id="101"} 0`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}
