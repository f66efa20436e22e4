package melviewhkb

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/brutella/hap/log"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/cloudkucooland/HomeKitBridges/MelviewHKBridge/melview"
)

// Mirror publishes every unit state, retained, to <prefix>/<unitid>/state
type Mirror struct {
	client pahomqtt.Client
	prefix string
}

// NewMirror connects to the broker; reconnects are left to paho
func NewMirror(cfg MQTTConfig) (*Mirror, error) {
	m := &Mirror{prefix: cfg.TopicPrefix}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(m.bridgeTopic(), "offline", 1, true).
		SetOnConnectHandler(func(c pahomqtt.Client) {
			log.Info.Printf("mqtt connected to %s", cfg.Broker)
			c.Publish(m.bridgeTopic(), 1, true, "online")
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			log.Info.Printf("mqtt connection lost: %s", err.Error())
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	m.client = client
	return m, nil
}

func (m *Mirror) topic(unitID string) string {
	return m.prefix + "/" + unitID + "/state"
}

func (m *Mirror) bridgeTopic() string {
	return m.prefix + "/bridge/status"
}

type mirrorPayload struct {
	Room  string             `json:"room"`
	State *melview.UnitState `json:"state"`
	Time  time.Time          `json:"time"`
}

func (m *Mirror) publish(u *Unit, s *melview.UnitState) {
	data, err := json.Marshal(mirrorPayload{Room: u.Room, State: s, Time: time.Now()})
	if err != nil {
		log.Info.Printf("mqtt: unable to encode %s: %s", u.Room, err.Error())
		return
	}
	// don't wait on the broker; the next poll republishes anyway
	m.client.Publish(m.topic(u.UnitID), 0, true, data)
}

// Close marks the bridge offline and disconnects
func (m *Mirror) Close() {
	t := m.client.Publish(m.bridgeTopic(), 1, true, "offline")
	t.WaitTimeout(2 * time.Second)
	m.client.Disconnect(1000)
}
