package melview

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type fakeMelview struct {
	t *testing.T

	mu       sync.Mutex
	logins   int
	commands []string
	expire   bool // next unitcommand answers 401
	password string
}

func (f *fakeMelview) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			f.t.Fatalf("expected POST, got %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		var req map[string]interface{}
		if err := json.Unmarshal(body, &req); err != nil {
			f.t.Fatalf("bad request body %s: %v", string(body), err)
		}

		f.mu.Lock()
		defer f.mu.Unlock()

		if r.URL.Path != "/api/login.aspx" {
			if ck, err := r.Cookie("auth"); err != nil || ck.Value != "token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
		}

		switch r.URL.Path {
		case "/api/login.aspx":
			f.logins++
			if req["pass"] != f.password {
				_, _ = io.WriteString(w, `{"error":"bad"}`)
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "auth", Value: "token", Path: "/"})
			_, _ = io.WriteString(w, `{"userid":"1"}`)
		case "/api/rooms.aspx":
			_, _ = io.WriteString(w, `[{"building":"Home","bid":"9","units":[{"room":"Living","unitid":"101"},{"room":"Bed 1","unitid":"102"}]},{"building":"Shed","units":[{"room":"Living","unitid":"101"}]}]`)
		case "/api/unitcapabilities.aspx":
			_, _ = io.WriteString(w, `{"id":"101","unitname":"Living","adaptortype":"wifi-adaptor","hasdrymode":1,"hasautomode":1,"max":{"1":{"min":10,"max":31},"3":{"min":16,"max":30}}}`)
		case "/api/unitcommand.aspx":
			if f.expire {
				f.expire = false
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if cmd, ok := req["commands"].(string); ok {
				f.commands = append(f.commands, cmd)
			}
			_, _ = io.WriteString(w, `{"id":"101","power":1,"setmode":3,"setfan":2,"settemp":"22.5","roomtemp":"24","outdoortemp":"","zones":[{"zoneid":1,"name":"Dining","status":1},{"zoneid":2,"name":"Lounge","status":0}],"error":"ok"}`)
		default:
			f.t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	})
}

func newTestClient(t *testing.T, f *fakeMelview) *Client {
	t.Helper()
	server := httptest.NewServer(f.handler())
	t.Cleanup(server.Close)

	c, err := New("me@example.com", "secret", WithBaseURL(server.URL+"/api"), WithRateLimit(0, 0))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestClientFlow(t *testing.T) {
	f := &fakeMelview{t: t, password: "secret"}
	c := newTestClient(t, f)
	ctx := context.Background()

	units, err := c.ListUnits(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(units) != 2 {
		t.Fatalf("units = %d, want 2 (duplicates dropped)", len(units))
	}
	if units[0].UnitID != "101" || units[0].Room != "Living" || units[0].Building != "Home" {
		t.Errorf("unexpected first unit: %+v", units[0])
	}

	caps, err := c.Capabilities(ctx, "101")
	if err != nil {
		t.Fatal(err)
	}
	if caps.HasDryMode != 1 || caps.AdaptorType != "wifi-adaptor" {
		t.Errorf("unexpected capabilities: %+v", caps)
	}
	if b := caps.Max["3"]; b.Min != 16 || b.Max != 30 {
		t.Errorf("cool bounds = %+v", b)
	}

	state, err := c.Status(ctx, "101")
	if err != nil {
		t.Fatal(err)
	}
	if state.Power != 1 || state.SetMode != ModeCool || state.SetTemperature() != 22.5 || state.RoomTemperature() != 24 {
		t.Errorf("unexpected state: %+v", state)
	}
	if len(state.Zones) != 2 || state.Zones[1].Name != "Lounge" {
		t.Errorf("unexpected zones: %+v", state.Zones)
	}
	if _, ok := state.OutdoorTemperature(); ok {
		t.Error("outdoor temperature reported for a unit without a sensor")
	}

	if err := c.Send(ctx, ZoneCommand("101", 2, true)); err != nil {
		t.Fatal(err)
	}
	if len(f.commands) != 1 || f.commands[0] != "Z21" {
		t.Errorf("commands = %v, want [Z21]", f.commands)
	}
	if f.logins != 1 {
		t.Errorf("logins = %d, want 1", f.logins)
	}
}

func TestClientRelogin(t *testing.T) {
	f := &fakeMelview{t: t, password: "secret"}
	c := newTestClient(t, f)
	ctx := context.Background()

	if err := c.Login(ctx); err != nil {
		t.Fatal(err)
	}
	f.mu.Lock()
	f.expire = true
	f.mu.Unlock()

	if err := c.Send(ctx, PowerCommand("101", false)); err != nil {
		t.Fatal(err)
	}
	if f.logins != 2 {
		t.Errorf("logins = %d, want 2", f.logins)
	}
	if len(f.commands) != 1 || f.commands[0] != "PW0" {
		t.Errorf("commands = %v, want [PW0]", f.commands)
	}
}

func TestClientBadCredentials(t *testing.T) {
	f := &fakeMelview{t: t, password: "other"}
	c := newTestClient(t, f)

	_, err := c.Status(context.Background(), "101")
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("err = %v, want ErrAuth", err)
	}
}

func TestClientUnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/login.aspx" {
			http.SetCookie(w, &http.Cookie{Name: "auth", Value: "token", Path: "/"})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "boom")
	}))
	defer server.Close()

	c, err := New("me@example.com", "secret", WithBaseURL(server.URL+"/api"), WithRateLimit(0, 0))
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Status(context.Background(), "101")
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("err = %v, want ErrUnexpectedStatus", err)
	}
}

func TestClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	c, err := New("me@example.com", "secret", WithBaseURL(server.URL+"/api"), WithRateLimit(0, 0), WithTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	if err := c.Login(context.Background()); err == nil {
		t.Fatal("expected a timeout")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("login took %s, timeout not applied", elapsed)
	}
}
