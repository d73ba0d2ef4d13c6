package metrics

import (
	"sync"
	"time"

	"github.com/rgeorge2/hank/pkg/log"
	"github.com/rgeorge2/hank/pkg/storage"
	"github.com/rgeorge2/hank/pkg/types"
)

// DefaultCollectInterval is how often the collector samples the store
const DefaultCollectInterval = 15 * time.Second

// Collector samples cluster gauges from the coordinator store
type Collector struct {
	store    storage.Store
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCollector creates a new metrics collector
func NewCollector(store storage.Store, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = DefaultCollectInterval
	}
	return &Collector{
		store:    store,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		// Collect immediately on start
		c.Collect()

		for {
			select {
			case <-ticker.C:
				c.Collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Collect samples every ring group once
func (c *Collector) Collect() {
	ringGroups, err := c.store.ListRingGroups()
	if err != nil {
		collectorLog := log.WithComponent("collector")
		collectorLog.Warn().Err(err).Msg("Failed to list ring groups")
		return
	}

	for _, rg := range ringGroups {
		c.collectRingGroup(rg.Name)
	}
}

func (c *Collector) collectRingGroup(ringGroup string) {
	logger := log.WithRingGroup(log.WithComponent("collector"), ringGroup)

	rings, err := c.store.ListRings(ringGroup)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to list rings")
		return
	}

	stateCounts := make(map[types.HostState]int, len(types.HostStates))
	for _, state := range types.HostStates {
		stateCounts[state] = 0
	}
	fullyServing := 0
	pending := 0

	for _, ring := range rings {
		hosts, err := c.store.ListHostsByRing(ringGroup, ring.Number)
		if err != nil {
			logger.Warn().Err(err).Int("ring", ring.Number).Msg("Failed to list hosts")
			return
		}

		ringServing := true
		for _, host := range hosts {
			stateCounts[host.State]++
			pending += len(host.CommandQueue)
			if host.CurrentCommand != nil {
				pending++
			}
			if host.State != types.HostStateServing || host.HasPendingCommand() {
				ringServing = false
			}
		}
		if ringServing {
			fullyServing++
		}
	}

	for state, count := range stateCounts {
		HostsTotal.WithLabelValues(ringGroup, string(state)).Set(float64(count))
	}
	RingsTotal.WithLabelValues(ringGroup).Set(float64(len(rings)))
	RingsFullyServing.WithLabelValues(ringGroup).Set(float64(fullyServing))
	PendingCommands.WithLabelValues(ringGroup).Set(float64(pending))
}
