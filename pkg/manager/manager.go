package manager

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rgeorge2/hank/pkg/events"
	"github.com/rgeorge2/hank/pkg/log"
	"github.com/rgeorge2/hank/pkg/storage"
	"github.com/rgeorge2/hank/pkg/types"
	"github.com/rs/zerolog"
)

// Manager is the coordinator: it owns the store and publishes a change event
// for every successful mutation
type Manager struct {
	dataDir     string
	store       storage.Store
	eventBroker *events.Broker
	logger      zerolog.Logger
}

var _ storage.Store = (*Manager)(nil)

// Config holds configuration for creating a Manager
type Config struct {
	// DataDir holds the bbolt database. Empty keeps state in memory.
	DataDir string
}

// NewManager creates a new Manager instance
func NewManager(cfg *Config) (*Manager, error) {
	var store storage.Store
	if cfg.DataDir == "" {
		store = storage.NewMemoryStore()
	} else {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		s, err := storage.NewBoltStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create store: %w", err)
		}
		store = s
	}

	m := NewManagerWithStore(store)
	m.dataDir = cfg.DataDir
	return m, nil
}

// NewManagerWithStore wraps an existing store
func NewManagerWithStore(store storage.Store) *Manager {
	eventBroker := events.NewBroker()
	eventBroker.Start()

	return &Manager{
		store:       store,
		eventBroker: eventBroker,
		logger:      log.WithComponent("manager"),
	}
}

// GetEventBroker returns the event broker
func (m *Manager) GetEventBroker() *events.Broker {
	return m.eventBroker
}

// PublishEvent publishes an event to all subscribers
func (m *Manager) PublishEvent(event *events.Event) {
	if m.eventBroker != nil {
		m.eventBroker.Publish(event)
	}
}

func (m *Manager) publish(t events.EventType, message string, metadata map[string]string) {
	m.logger.Debug().Str("event", string(t)).Msg(message)
	m.PublishEvent(events.NewEvent(t, message, metadata))
}

// publishHost publishes a host event carrying the host's ring group and state
func (m *Manager) publishHost(t events.EventType, address, message string, extra map[string]string) {
	metadata := map[string]string{events.MetaHost: address}
	if h, err := m.store.GetHost(address); err == nil {
		metadata[events.MetaRingGroup] = h.RingGroup
		metadata[events.MetaRing] = strconv.Itoa(h.Ring)
		metadata[events.MetaState] = string(h.State)
	}
	for k, v := range extra {
		metadata[k] = v
	}
	m.publish(t, message, metadata)
}

// Domains

func (m *Manager) CreateDomain(domain *types.Domain) error {
	if err := m.store.CreateDomain(domain); err != nil {
		return err
	}
	m.publish(events.EventDomainCreated, "domain created", map[string]string{events.MetaDomain: domain.Name})
	return nil
}

func (m *Manager) GetDomain(name string) (*types.Domain, error) {
	return m.store.GetDomain(name)
}

func (m *Manager) ListDomains() ([]*types.Domain, error) {
	return m.store.ListDomains()
}

func (m *Manager) DeleteDomain(name string) error {
	if err := m.store.DeleteDomain(name); err != nil {
		return err
	}
	m.publish(events.EventDomainDeleted, "domain deleted", map[string]string{events.MetaDomain: name})
	return nil
}

// Domain groups

func (m *Manager) CreateDomainGroup(group *types.DomainGroup) error {
	if err := m.store.CreateDomainGroup(group); err != nil {
		return err
	}
	m.publish(events.EventDomainGroupCreated, "domain group created", map[string]string{events.MetaDomainGroup: group.Name})
	return nil
}

func (m *Manager) GetDomainGroup(name string) (*types.DomainGroup, error) {
	return m.store.GetDomainGroup(name)
}

func (m *Manager) ListDomainGroups() ([]*types.DomainGroup, error) {
	return m.store.ListDomainGroups()
}

// UpdateDomainGroup replaces the target versions of a domain group
func (m *Manager) UpdateDomainGroup(group *types.DomainGroup) error {
	if err := m.store.UpdateDomainGroup(group); err != nil {
		return err
	}
	m.publish(events.EventDomainGroupVersionsChanged, "domain group versions changed", map[string]string{events.MetaDomainGroup: group.Name})
	return nil
}

func (m *Manager) DeleteDomainGroup(name string) error {
	if err := m.store.DeleteDomainGroup(name); err != nil {
		return err
	}
	m.publish(events.EventDomainGroupDeleted, "domain group deleted", map[string]string{events.MetaDomainGroup: name})
	return nil
}

// Ring groups

func (m *Manager) CreateRingGroup(group *types.RingGroup) error {
	if err := m.store.CreateRingGroup(group); err != nil {
		return err
	}
	m.publish(events.EventRingGroupCreated, "ring group created", map[string]string{events.MetaRingGroup: group.Name})
	return nil
}

func (m *Manager) GetRingGroup(name string) (*types.RingGroup, error) {
	return m.store.GetRingGroup(name)
}

func (m *Manager) ListRingGroups() ([]*types.RingGroup, error) {
	return m.store.ListRingGroups()
}

// UpdateRingGroup stores a ring group; a mode switch is published as its own event
func (m *Manager) UpdateRingGroup(group *types.RingGroup) error {
	old, err := m.store.GetRingGroup(group.Name)
	if err != nil {
		return err
	}
	if err := m.store.UpdateRingGroup(group); err != nil {
		return err
	}
	if old.Mode != group.Mode {
		m.publish(events.EventRingGroupModeChanged, "ring group mode changed", map[string]string{
			events.MetaRingGroup: group.Name,
			"mode":               string(group.Mode),
		})
	}
	return nil
}

// SetRingGroupMode switches a ring group between DOWNTIME and PROACTIVE
func (m *Manager) SetRingGroupMode(name string, mode types.ConductorMode) error {
	if _, err := types.ParseConductorMode(string(mode)); err != nil {
		return err
	}
	rg, err := m.store.GetRingGroup(name)
	if err != nil {
		return err
	}
	rg.Mode = mode
	return m.UpdateRingGroup(rg)
}

func (m *Manager) DeleteRingGroup(name string) error {
	if err := m.store.DeleteRingGroup(name); err != nil {
		return err
	}
	m.publish(events.EventRingGroupDeleted, "ring group deleted", map[string]string{events.MetaRingGroup: name})
	return nil
}

// Rings

func (m *Manager) CreateRing(ring *types.Ring) error {
	if err := m.store.CreateRing(ring); err != nil {
		return err
	}
	m.publish(events.EventRingCreated, "ring created", map[string]string{
		events.MetaRingGroup: ring.RingGroup,
		events.MetaRing:      strconv.Itoa(ring.Number),
	})
	return nil
}

func (m *Manager) ListRings(ringGroup string) ([]*types.Ring, error) {
	return m.store.ListRings(ringGroup)
}

func (m *Manager) DeleteRing(ringGroup string, number int) error {
	if err := m.store.DeleteRing(ringGroup, number); err != nil {
		return err
	}
	m.publish(events.EventRingDeleted, "ring deleted", map[string]string{
		events.MetaRingGroup: ringGroup,
		events.MetaRing:      strconv.Itoa(number),
	})
	return nil
}

// Hosts

func (m *Manager) CreateHost(host *types.Host) error {
	if err := m.store.CreateHost(host); err != nil {
		return err
	}
	m.publishHost(events.EventHostCreated, host.Address, "host created", nil)
	return nil
}

func (m *Manager) GetHost(address string) (*types.Host, error) {
	return m.store.GetHost(address)
}

func (m *Manager) ListHosts() ([]*types.Host, error) {
	return m.store.ListHosts()
}

func (m *Manager) ListHostsByRing(ringGroup string, ring int) ([]*types.Host, error) {
	return m.store.ListHostsByRing(ringGroup, ring)
}

func (m *Manager) DeleteHost(address string) error {
	h, err := m.store.GetHost(address)
	if err != nil {
		return err
	}
	if err := m.store.DeleteHost(address); err != nil {
		return err
	}
	m.publish(events.EventHostDeleted, "host deleted", map[string]string{
		events.MetaHost:      address,
		events.MetaRingGroup: h.RingGroup,
		events.MetaRing:      strconv.Itoa(h.Ring),
	})
	return nil
}

// EnqueueCommand appends a command to a host's queue
func (m *Manager) EnqueueCommand(address string, cmd types.HostCommand) error {
	if err := m.store.EnqueueCommand(address, cmd); err != nil {
		return err
	}
	m.publishHost(events.EventHostCommandQueueChanged, address, "command enqueued", map[string]string{events.MetaCommand: string(cmd)})
	return nil
}

// SetHostDomains replaces a host's partition assignment
func (m *Manager) SetHostDomains(address string, domains []types.HostDomain) error {
	if err := m.store.SetHostDomains(address, domains); err != nil {
		return err
	}
	m.publishHost(events.EventHostDomainsChanged, address, "host assignment changed", nil)
	return nil
}

// SetHostState records a lifecycle transition reported by the host agent
func (m *Manager) SetHostState(address string, state types.HostState) error {
	if err := m.store.SetHostState(address, state); err != nil {
		return err
	}
	m.publishHost(events.EventHostStateChanged, address, "host state changed", nil)
	return nil
}

// NextCommand moves the head of a host's queue to its current command
func (m *Manager) NextCommand(address string) (*types.HostCommand, error) {
	cmd, err := m.store.NextCommand(address)
	if err != nil {
		return nil, err
	}
	extra := map[string]string{}
	if cmd != nil {
		extra[events.MetaCommand] = string(*cmd)
	}
	m.publishHost(events.EventHostCommandQueueChanged, address, "command dequeued", extra)
	return cmd, nil
}

// CompleteCommand clears a host's current command
func (m *Manager) CompleteCommand(address string) error {
	if err := m.store.CompleteCommand(address); err != nil {
		return err
	}
	m.publishHost(events.EventHostCommandQueueChanged, address, "command completed", nil)
	return nil
}

// ClearCommandQueue drops every queued command of a host
func (m *Manager) ClearCommandQueue(address string) error {
	if err := m.store.ClearCommandQueue(address); err != nil {
		return err
	}
	m.publishHost(events.EventHostCommandQueueChanged, address, "command queue cleared", nil)
	return nil
}

// SetPartitionVersion records the version a host has loaded for one partition
func (m *Manager) SetPartitionVersion(address, domain string, partition, version int) error {
	if err := m.store.SetPartitionVersion(address, domain, partition, version); err != nil {
		return err
	}
	m.publishHost(events.EventHostDomainsChanged, address, "partition version loaded", map[string]string{events.MetaDomain: domain})
	return nil
}

// Close shuts the manager down
func (m *Manager) Close() error {
	return m.Shutdown()
}

// Shutdown stops the event broker and closes the store
func (m *Manager) Shutdown() error {
	// Stop event broker
	if m.eventBroker != nil {
		m.eventBroker.Stop()
	}

	if m.store != nil {
		if err := m.store.Close(); err != nil {
			return fmt.Errorf("failed to close store: %w", err)
		}
	}

	return nil
}
