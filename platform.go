package melviewhkb

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/log"

	"github.com/cloudkucooland/HomeKitBridges/MelviewHKBridge/melview"
)

const commandTimeout = 15 * time.Second

// Service is what the accessories need from melview
type Service interface {
	Status(ctx context.Context, unitID string) (*melview.UnitState, error)
	Send(ctx context.Context, cmd melview.Command) error
}

// Cloud adds discovery to Service; *melview.Client satisfies it
type Cloud interface {
	Service
	ListUnits(ctx context.Context) ([]melview.Unit, error)
	Capabilities(ctx context.Context, unitID string) (*melview.Capabilities, error)
}

// Platform holds everything the bridge serves
type Platform struct {
	conf *Config
	svc  Service
	ctx  context.Context

	mu       sync.Mutex
	units    []*Unit
	acs      []*ACAccessory
	zones    []*ZoneAccessory
	pollers  []*Poller
	registry *Registry

	metrics *Metrics
	cache   *Cache
	mirror  *Mirror
}

func newPlatform(ctx context.Context, conf *Config, svc Service) *Platform {
	return &Platform{
		conf:     conf,
		svc:      svc,
		ctx:      ctx,
		registry: newRegistry(conf.ZoneMatch == ZoneMatchID),
	}
}

// WithMetrics attaches a collector; call before Startup
func (p *Platform) WithMetrics(m *Metrics) *Platform {
	p.metrics = m
	return p
}

// WithCache attaches the startup cache; call before Startup
func (p *Platform) WithCache(c *Cache) *Platform {
	p.cache = c
	return p
}

// WithMirror attaches the MQTT state mirror; call before Startup
func (p *Platform) WithMirror(m *Mirror) *Platform {
	p.mirror = m
	return p
}

// New builds an empty platform bound to svc
func New(ctx context.Context, conf *Config, svc Service) *Platform {
	return newPlatform(ctx, conf, svc)
}

// Startup discovers the units, builds their accessories and starts polling
func (p *Platform) Startup(ctx context.Context, cloud Cloud) error {
	units, err := cloud.ListUnits(ctx)
	if err != nil {
		log.Info.Printf("unable to list melview units: %s", err.Error())
		return p.startFromCache(ctx, err)
	}
	log.Info.Printf("melview reports %d units", len(units))

	for _, mu := range units {
		caps, err := cloud.Capabilities(ctx, mu.UnitID)
		if err != nil {
			log.Info.Printf("unable to get capabilities for %s: %s", mu.Room, err.Error())
			if cached, cerr := p.cachedUnit(mu.UnitID); cerr == nil {
				caps = &cached.Unit.Capabilities
			} else {
				caps = &melview.Capabilities{ID: mu.UnitID}
			}
		}
		mu.Capabilities = *caps

		state, err := cloud.Status(ctx, mu.UnitID)
		if err != nil {
			log.Info.Printf("unable to get status for %s: %s", mu.Room, err.Error())
			if cached, cerr := p.cachedUnit(mu.UnitID); cerr == nil {
				state = cached.State
			}
		}

		u := p.AddUnit(mu, state)
		if p.cache != nil {
			if err := p.cache.SaveUnit(u); err != nil {
				log.Info.Printf("unable to cache %s: %s", mu.Room, err.Error())
			}
		}
	}

	p.startPollers(ctx)
	return nil
}

func (p *Platform) startFromCache(ctx context.Context, cause error) error {
	if p.cache == nil {
		return fmt.Errorf("startup: %w", cause)
	}
	cached, err := p.cache.LoadUnits()
	if err != nil || len(cached) == 0 {
		return fmt.Errorf("startup: %w", errors.Join(cause, err))
	}

	log.Info.Printf("starting with %d cached units", len(cached))
	for _, c := range cached {
		p.AddUnit(c.Unit, c.State)
	}
	p.startPollers(ctx)
	return nil
}

func (p *Platform) cachedUnit(unitID string) (*CachedUnit, error) {
	if p.cache == nil {
		return nil, ErrNotFound
	}
	return p.cache.GetUnit(unitID)
}

// AddUnit builds the AC accessory and, if configured, the zone accessories for one unit
func (p *Platform) AddUnit(mu melview.Unit, state *melview.UnitState) *Unit {
	u := NewUnit(mu, state)

	ac := newACAccessory(p, u)

	p.mu.Lock()
	p.units = append(p.units, u)
	p.acs = append(p.acs, ac)
	p.mu.Unlock()
	p.registry.add(ac)

	if p.conf.Zones {
		for _, z := range u.State().Zones {
			za := newZoneAccessory(p, u, z)
			p.mu.Lock()
			p.zones = append(p.zones, za)
			p.mu.Unlock()
			p.registry.add(za)
			log.Info.Printf("Device Found: %s %s [COMPLETED]", z.Name, u.Room)
		}
	}

	if p.metrics != nil {
		u.Subscribe(func(s *melview.UnitState) { p.metrics.observe(u, s) })
		p.metrics.observe(u, u.State())
	}
	if p.mirror != nil {
		u.Subscribe(func(s *melview.UnitState) { p.mirror.publish(u, s) })
	}
	if p.cache != nil {
		u.Subscribe(func(s *melview.UnitState) { p.cache.saveState(u.UnitID, s) })
	}

	return u
}

func (p *Platform) startPollers(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, u := range p.units {
		poller := NewPoller(u, p.svc, p.conf.PollInterval(), p.conf.SequenceGuard)
		unit, ac := u, p.acs[i]
		poller.onResult = func(err error) {
			ac.reachable(err)
			if p.metrics != nil {
				p.metrics.poll(unit, err)
			}
		}
		p.pollers = append(p.pollers, poller)
		go poller.Run(ctx)
	}
}

// SetPollInterval retunes every running poller
func (p *Platform) SetPollInterval(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, poller := range p.pollers {
		poller.SetInterval(d)
	}
}

// Devices returns the accessories ready for hap.NewServer
func (p *Platform) Devices() []*accessory.A {
	p.mu.Lock()
	defer p.mu.Unlock()

	var a []*accessory.A
	for _, ac := range p.acs {
		a = append(a, ac.A)
	}
	for _, z := range p.zones {
		a = append(a, z.A)
	}
	return a
}

// Units returns the units in discovery order
func (p *Platform) Units() []*Unit {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Unit(nil), p.units...)
}

// send dispatches cmd once; failures are logged and returned, never retried
func (p *Platform) send(cmd melview.Command) error {
	ctx, cancel := context.WithTimeout(p.ctx, commandTimeout)
	defer cancel()

	err := p.svc.Send(ctx, cmd)
	if p.metrics != nil {
		p.metrics.command(cmd, err)
	}
	if err != nil {
		log.Info.Printf("error: unable to send %s: %s", cmd, err.Error())
	}
	return err
}

// stable ids keep HomeKit pairings across restarts; 1 is the bridge
func accessoryID(parts ...string) uint64 {
	h := fnv.New64a()
	for _, s := range parts {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	id := h.Sum64()
	if id <= 1 {
		id += 2
	}
	return id
}
