package melviewhkb

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudkucooland/HomeKitBridges/MelviewHKBridge/melview"
)

func TestHTTPUnits(t *testing.T) {
	p, _ := newTestPlatform(t, testConfig())
	p.AddUnit(livingUnit(), zonedState())

	server := httptest.NewServer(p.router())
	defer server.Close()

	resp, err := http.Get(server.URL + "/units")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var units []unitStatus
	if err := json.NewDecoder(resp.Body).Decode(&units); err != nil {
		t.Fatal(err)
	}
	if len(units) != 1 || units[0].UnitID != "101" || units[0].State.RoomTemp != "24" {
		t.Errorf("units = %+v", units)
	}

	resp2, err := http.Get(server.URL + "/units/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp2.StatusCode)
	}
}

func TestHTTPMetrics(t *testing.T) {
	p, svc := newTestPlatform(t, testConfig())
	p.WithMetrics(NewMetrics())
	p.AddUnit(livingUnit(), zonedState())

	_ = p.send(melview.PowerCommand("101", true))
	svc.sendErr = errors.New("offline")
	_ = p.send(melview.PowerCommand("101", false))

	server := httptest.NewServer(p.router())
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`melview_power{room="Living",unit_id="101"} 1`,
		`melview_room_temperature_celsius{room="Living",unit_id="101"} 24`,
		`melview_zone_open{room="Living",unit_id="101",zone="Dining",zone_id="1"} 1`,
		`melview_commands_total{kind="power",result="ok"} 1`,
		`melview_commands_total{kind="power",result="error"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}
