package melviewhkb

import (
	"context"
	"time"

	"github.com/brutella/hap/log"
)

const defaultPollInterval = 5 * time.Second

// Poller refreshes one unit on a fixed interval; polls never overlap
type Poller struct {
	unit  *Unit
	svc   Service
	guard bool

	interval time.Duration
	retune   chan time.Duration

	onResult func(error)
}

// NewPoller builds a poller; guard selects ReplaceIfNewer over Replace
func NewPoller(u *Unit, svc Service, interval time.Duration, guard bool) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Poller{
		unit:     u,
		svc:      svc,
		guard:    guard,
		interval: interval,
		retune:   make(chan time.Duration, 1),
	}
}

// Run polls until ctx is done
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug.Printf("stopping poller for %s", p.unit.Room)
			return
		case d := <-p.retune:
			if d != p.interval {
				log.Info.Printf("%s: poll interval now %s", p.unit.Room, d)
				p.interval = d
				ticker.Reset(d)
			}
		case <-ticker.C:
			_ = p.Poll(ctx)
		}
	}
}

// SetInterval retunes a running poller; the latest value wins
func (p *Poller) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case p.retune <- d:
	default:
		// drop the pending value and replace it
		select {
		case <-p.retune:
		default:
		}
		p.retune <- d
	}
}

// Poll issues one status request and stores the result; on failure the old state is kept
func (p *Poller) Poll(ctx context.Context) error {
	var seq uint64
	if p.guard {
		seq = p.unit.NextSeq()
	}

	state, err := p.svc.Status(ctx, p.unit.UnitID)
	if p.onResult != nil {
		p.onResult(err)
	}
	if err != nil {
		log.Info.Printf("unable to find accessory status. check the network: %s: %s", p.unit.Room, err.Error())
		return err
	}

	if p.guard {
		if !p.unit.ReplaceIfNewer(seq, state) {
			log.Debug.Printf("%s: dropping stale poll response", p.unit.Room)
		}
		return nil
	}
	p.unit.Replace(state)
	return nil
}
