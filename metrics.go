package melviewhkb

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cloudkucooland/HomeKitBridges/MelviewHKBridge/melview"
)

// Metrics mirrors unit state and bridge activity into prometheus
type Metrics struct {
	registry *prometheus.Registry

	power       *prometheus.GaugeVec
	mode        *prometheus.GaugeVec
	roomTemp    *prometheus.GaugeVec
	setTemp     *prometheus.GaugeVec
	outdoorTemp *prometheus.GaugeVec
	fanSpeed    *prometheus.GaugeVec
	zone        *prometheus.GaugeVec
	polls       *prometheus.CounterVec
	commands    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	labels := []string{"unit_id", "room"}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		power: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "melview_power",
			Help: "Unit power (1=on, 0=off)",
		}, labels),
		mode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "melview_mode",
			Help: "Unit operating mode (1=active)",
		}, []string{"unit_id", "room", "mode"}),
		roomTemp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "melview_room_temperature_celsius",
			Help: "Reported room temperature (celsius)",
		}, labels),
		setTemp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "melview_set_temperature_celsius",
			Help: "Set temperature (celsius)",
		}, labels),
		outdoorTemp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "melview_outdoor_temperature_celsius",
			Help: "Reported outdoor temperature (celsius), only for units with a sensor",
		}, labels),
		fanSpeed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "melview_fan_speed_percent",
			Help: "Fan speed as shown in HomeKit (%)",
		}, labels),
		zone: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "melview_zone_open",
			Help: "Zone status (1=open, 0=closed)",
		}, []string{"unit_id", "room", "zone_id", "zone"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "melview_polls_total",
			Help: "Status polls by result",
		}, []string{"unit_id", "result"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "melview_commands_total",
			Help: "Commands sent by kind and result",
		}, []string{"kind", "result"}),
	}

	m.registry.MustRegister(m.power, m.mode, m.roomTemp, m.setTemp, m.outdoorTemp, m.fanSpeed, m.zone, m.polls, m.commands)
	return m
}

// Registry is what /metrics serves
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

var metricModes = []melview.WorkMode{melview.ModeHeat, melview.ModeDry, melview.ModeCool, melview.ModeFan, melview.ModeAuto}

func (m *Metrics) observe(u *Unit, s *melview.UnitState) {
	m.power.WithLabelValues(u.UnitID, u.Room).Set(float64(s.Power))
	for _, mode := range metricModes {
		v := 0.0
		if s.SetMode == mode {
			v = 1
		}
		m.mode.WithLabelValues(u.UnitID, u.Room, mode.String()).Set(v)
	}
	m.roomTemp.WithLabelValues(u.UnitID, u.Room).Set(s.RoomTemperature())
	m.setTemp.WithLabelValues(u.UnitID, u.Room).Set(s.SetTemperature())
	if t, ok := s.OutdoorTemperature(); ok {
		m.outdoorTemp.WithLabelValues(u.UnitID, u.Room).Set(t)
	}
	m.fanSpeed.WithLabelValues(u.UnitID, u.Room).Set(fanSpeedPercent(s.SetFan))
	for _, z := range s.Zones {
		m.zone.WithLabelValues(u.UnitID, u.Room, strconv.Itoa(z.ZoneID), z.Name).Set(float64(z.Status))
	}
}

func (m *Metrics) poll(u *Unit, err error) {
	m.polls.WithLabelValues(u.UnitID, result(err)).Inc()
}

func (m *Metrics) command(cmd melview.Command, err error) {
	m.commands.WithLabelValues(cmd.Kind.String(), result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
