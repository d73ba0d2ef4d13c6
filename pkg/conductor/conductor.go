package conductor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rgeorge2/hank/pkg/events"
	"github.com/rgeorge2/hank/pkg/log"
	"github.com/rgeorge2/hank/pkg/metrics"
	"github.com/rs/zerolog"
)

// DefaultInterval is the safety-net polling interval of the control loop
const DefaultInterval = 10 * time.Second

// triggerEvents are the changes that can alter a transition pass
var triggerEvents = []events.EventType{
	events.EventDomainGroupVersionsChanged,
	events.EventRingGroupCreated,
	events.EventRingGroupModeChanged,
	events.EventRingCreated,
	events.EventRingDeleted,
	events.EventHostCreated,
	events.EventHostDeleted,
	events.EventHostStateChanged,
	events.EventHostCommandQueueChanged,
	events.EventHostDomainsChanged,
}

// Config configures a Conductor
type Config struct {
	// Interval between passes when no change notification arrives
	Interval time.Duration

	// Broker, when set, triggers a pass on every coordinator change
	Broker *events.Broker
}

// Conductor drives the transition function over every ring group, on a timer
// and on change notifications. Passes over the same ring group never overlap.
type Conductor struct {
	coordinator Coordinator
	transition  *TransitionFunction
	interval    time.Duration
	broker      *events.Broker
	logger      zerolog.Logger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	started   atomic.Bool
	triggerCh chan struct{}
	stopCh    chan struct{}
	stopOnce  sync.Once
	doneCh    chan struct{}
}

// NewConductor creates a new conductor
func NewConductor(c Coordinator, tf *TransitionFunction, cfg Config) *Conductor {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Conductor{
		coordinator: c,
		transition:  tf,
		interval:    interval,
		broker:      cfg.Broker,
		logger:      log.WithComponent("conductor"),
		locks:       make(map[string]*sync.Mutex),
		triggerCh:   make(chan struct{}, 1),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start begins the control loop
func (c *Conductor) Start(ctx context.Context) {
	var sub events.Subscriber
	if c.broker != nil {
		sub = c.broker.Subscribe(triggerEvents...)
	}
	metrics.UpdateComponent(metrics.ComponentConductor, true, "")
	c.started.Store(true)
	go c.run(ctx, sub)
}

// Stop stops the control loop and waits for the running pass to finish
func (c *Conductor) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		if c.started.Load() {
			<-c.doneCh
		}
		metrics.UpdateComponent(metrics.ComponentConductor, false, "stopped")
	})
}

// Trigger requests a pass as soon as the loop is free
func (c *Conductor) Trigger() {
	select {
	case c.triggerCh <- struct{}{}:
	default:
		// a pass is already pending
	}
}

func (c *Conductor) run(ctx context.Context, sub events.Subscriber) {
	defer close(c.doneCh)
	if sub != nil {
		defer c.broker.Unsubscribe(sub)
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Info().Dur("interval", c.interval).Msg("Conductor started")

	// Run immediately on start
	c.runOnce(ctx)

	for {
		select {
		case <-ticker.C:
			c.runOnce(ctx)
		case <-c.triggerCh:
			c.runOnce(ctx)
		case event, ok := <-sub:
			if !ok {
				sub = nil
				continue
			}
			c.logger.Debug().Str("event", string(event.Type)).Msg("Change notification")
			c.Trigger()
		case <-ctx.Done():
			c.logger.Info().Msg("Conductor stopped")
			return
		case <-c.stopCh:
			c.logger.Info().Msg("Conductor stopped")
			return
		}
	}
}

func (c *Conductor) runOnce(ctx context.Context) {
	if err := c.RunOnce(ctx); err != nil {
		c.logger.Error().Err(err).Msg("Conductor pass failed")
	}
}

// RunOnce runs one pass over every ring group. A failing ring group does not
// stop the others; the first error is returned.
func (c *Conductor) RunOnce(ctx context.Context) error {
	ringGroups, err := c.coordinator.ListRingGroups()
	if err != nil {
		metrics.UpdateComponent(metrics.ComponentStorage, false, err.Error())
		return err
	}
	metrics.UpdateComponent(metrics.ComponentStorage, true, "")

	var firstErr error
	for _, rg := range ringGroups {
		if _, err := c.RunRingGroup(ctx, rg.Name); err != nil {
			rgLog := log.WithRingGroup(c.logger, rg.Name)
			rgLog.Error().Err(err).Msg("Failed to manage transitions")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// RunRingGroup runs one pass over a single ring group while holding its lock
func (c *Conductor) RunRingGroup(ctx context.Context, ringGroup string) (*Result, error) {
	lock := c.lock(ringGroup)
	lock.Lock()
	defer lock.Unlock()

	timer := metrics.NewTimer()
	result, err := c.transition.ManageTransitions(ctx, c.coordinator, ringGroup)
	timer.ObserveDurationVec(metrics.ConductorCycleDuration, ringGroup)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.ConductorCyclesTotal.WithLabelValues(ringGroup, status).Inc()
	return result, err
}

func (c *Conductor) lock(ringGroup string) *sync.Mutex {
	c.locksMu.Lock()
	defer c.locksMu.Unlock()

	l, ok := c.locks[ringGroup]
	if !ok {
		l = &sync.Mutex{}
		c.locks[ringGroup] = l
	}
	return l
}
