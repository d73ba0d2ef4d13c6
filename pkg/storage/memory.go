package storage

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rgeorge2/hank/pkg/types"
)

type ringKey struct {
	group  string
	number int
}

// MemoryStore implements Store in process memory. Records are copied in and out,
// so callers never share state with the store.
type MemoryStore struct {
	mu           sync.RWMutex
	domains      map[string]*types.Domain
	domainGroups map[string]*types.DomainGroup
	ringGroups   map[string]*types.RingGroup
	rings        map[ringKey]*types.Ring
	hosts        map[string]*types.Host
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		domains:      make(map[string]*types.Domain),
		domainGroups: make(map[string]*types.DomainGroup),
		ringGroups:   make(map[string]*types.RingGroup),
		rings:        make(map[ringKey]*types.Ring),
		hosts:        make(map[string]*types.Host),
	}
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}

// Domain operations
func (s *MemoryStore) CreateDomain(domain *types.Domain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.domains[domain.Name]; ok {
		return fmt.Errorf("%w: domain %s", ErrAlreadyExists, domain.Name)
	}
	d := *domain
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	s.domains[d.Name] = &d
	return nil
}

func (s *MemoryStore) GetDomain(name string) (*types.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.domains[name]
	if !ok {
		return nil, fmt.Errorf("%w: domain %s", ErrNotFound, name)
	}
	out := *d
	return &out, nil
}

func (s *MemoryStore) ListDomains() ([]*types.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	domains := make([]*types.Domain, 0, len(s.domains))
	for _, d := range s.domains {
		out := *d
		domains = append(domains, &out)
	}
	sort.Slice(domains, func(i, j int) bool { return domains[i].Name < domains[j].Name })
	return domains, nil
}

func (s *MemoryStore) DeleteDomain(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.domains, name)
	return nil
}

// Domain group operations
func (s *MemoryStore) CreateDomainGroup(group *types.DomainGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.domainGroups[group.Name]; ok {
		return fmt.Errorf("%w: domain group %s", ErrAlreadyExists, group.Name)
	}
	s.domainGroups[group.Name] = cloneDomainGroup(group)
	return nil
}

func (s *MemoryStore) GetDomainGroup(name string) (*types.DomainGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.domainGroups[name]
	if !ok {
		return nil, fmt.Errorf("%w: domain group %s", ErrNotFound, name)
	}
	return cloneDomainGroup(g), nil
}

func (s *MemoryStore) ListDomainGroups() ([]*types.DomainGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]*types.DomainGroup, 0, len(s.domainGroups))
	for _, g := range s.domainGroups {
		groups = append(groups, cloneDomainGroup(g))
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups, nil
}

func (s *MemoryStore) UpdateDomainGroup(group *types.DomainGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.domainGroups[group.Name]; !ok {
		return fmt.Errorf("%w: domain group %s", ErrNotFound, group.Name)
	}
	g := cloneDomainGroup(group)
	g.UpdatedAt = time.Now()
	s.domainGroups[group.Name] = g
	return nil
}

func (s *MemoryStore) DeleteDomainGroup(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.domainGroups, name)
	return nil
}

// Ring group operations
func (s *MemoryStore) CreateRingGroup(group *types.RingGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ringGroups[group.Name]; ok {
		return fmt.Errorf("%w: ring group %s", ErrAlreadyExists, group.Name)
	}
	g := *group
	if g.Mode == "" {
		g.Mode = types.ConductorModeDowntime
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}
	s.ringGroups[g.Name] = &g
	return nil
}

func (s *MemoryStore) GetRingGroup(name string) (*types.RingGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.ringGroups[name]
	if !ok {
		return nil, fmt.Errorf("%w: ring group %s", ErrNotFound, name)
	}
	out := *g
	return &out, nil
}

func (s *MemoryStore) ListRingGroups() ([]*types.RingGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]*types.RingGroup, 0, len(s.ringGroups))
	for _, g := range s.ringGroups {
		out := *g
		groups = append(groups, &out)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups, nil
}

func (s *MemoryStore) UpdateRingGroup(group *types.RingGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ringGroups[group.Name]; !ok {
		return fmt.Errorf("%w: ring group %s", ErrNotFound, group.Name)
	}
	g := *group
	g.UpdatedAt = time.Now()
	s.ringGroups[g.Name] = &g
	return nil
}

// DeleteRingGroup removes the group with its rings and hosts
func (s *MemoryStore) DeleteRingGroup(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.ringGroups, name)
	for k := range s.rings {
		if k.group == name {
			delete(s.rings, k)
		}
	}
	for addr, h := range s.hosts {
		if h.RingGroup == name {
			delete(s.hosts, addr)
		}
	}
	return nil
}

// Ring operations
func (s *MemoryStore) CreateRing(ring *types.Ring) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ringGroups[ring.RingGroup]; !ok {
		return fmt.Errorf("%w: ring group %s", ErrNotFound, ring.RingGroup)
	}
	key := ringKey{ring.RingGroup, ring.Number}
	if _, ok := s.rings[key]; ok {
		return fmt.Errorf("%w: ring %s/%d", ErrAlreadyExists, ring.RingGroup, ring.Number)
	}
	r := *ring
	s.rings[key] = &r
	return nil
}

func (s *MemoryStore) ListRings(ringGroup string) ([]*types.Ring, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rings []*types.Ring
	for k, r := range s.rings {
		if k.group == ringGroup {
			out := *r
			rings = append(rings, &out)
		}
	}
	sortRings(rings)
	return rings, nil
}

// DeleteRing removes the ring and its hosts
func (s *MemoryStore) DeleteRing(ringGroup string, number int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rings, ringKey{ringGroup, number})
	for addr, h := range s.hosts {
		if h.RingGroup == ringGroup && h.Ring == number {
			delete(s.hosts, addr)
		}
	}
	return nil
}

// Host operations
func (s *MemoryStore) CreateHost(host *types.Host) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rings[ringKey{host.RingGroup, host.Ring}]; !ok {
		return fmt.Errorf("%w: ring %s/%d", ErrNotFound, host.RingGroup, host.Ring)
	}
	if _, ok := s.hosts[host.Address]; ok {
		return fmt.Errorf("%w: host %s", ErrAlreadyExists, host.Address)
	}
	h := host.Clone()
	prepareNewHost(h)
	s.hosts[h.Address] = h
	return nil
}

func (s *MemoryStore) GetHost(address string) (*types.Host, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.hosts[address]
	if !ok {
		return nil, fmt.Errorf("%w: host %s", ErrNotFound, address)
	}
	return h.Clone(), nil
}

func (s *MemoryStore) ListHosts() ([]*types.Host, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hosts := make([]*types.Host, 0, len(s.hosts))
	for _, h := range s.hosts {
		hosts = append(hosts, h.Clone())
	}
	types.SortHosts(hosts)
	return hosts, nil
}

func (s *MemoryStore) ListHostsByRing(ringGroup string, ring int) ([]*types.Host, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hosts []*types.Host
	for _, h := range s.hosts {
		if h.RingGroup == ringGroup && h.Ring == ring {
			hosts = append(hosts, h.Clone())
		}
	}
	types.SortHosts(hosts)
	return hosts, nil
}

func (s *MemoryStore) DeleteHost(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.hosts, address)
	return nil
}

// updateHost runs fn against the stored host under the write lock
func (s *MemoryStore) updateHost(address string, fn func(h *types.Host) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hosts[address]
	if !ok {
		return fmt.Errorf("%w: host %s", ErrNotFound, address)
	}
	if err := fn(h); err != nil {
		return err
	}
	h.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) EnqueueCommand(address string, cmd types.HostCommand) error {
	return s.updateHost(address, func(h *types.Host) error {
		return enqueueCommand(h, cmd)
	})
}

func (s *MemoryStore) SetHostDomains(address string, domains []types.HostDomain) error {
	return s.updateHost(address, func(h *types.Host) error {
		setHostDomains(h, domains)
		return nil
	})
}

func (s *MemoryStore) SetHostState(address string, state types.HostState) error {
	return s.updateHost(address, func(h *types.Host) error {
		return setHostState(h, state)
	})
}

func (s *MemoryStore) NextCommand(address string) (*types.HostCommand, error) {
	var cmd *types.HostCommand
	err := s.updateHost(address, func(h *types.Host) error {
		cmd = nextCommand(h)
		return nil
	})
	return cmd, err
}

func (s *MemoryStore) CompleteCommand(address string) error {
	return s.updateHost(address, func(h *types.Host) error {
		completeCommand(h)
		return nil
	})
}

func (s *MemoryStore) ClearCommandQueue(address string) error {
	return s.updateHost(address, func(h *types.Host) error {
		clearCommandQueue(h)
		return nil
	})
}

func (s *MemoryStore) SetPartitionVersion(address, domain string, partition, version int) error {
	return s.updateHost(address, func(h *types.Host) error {
		return setPartitionVersion(h, domain, partition, version)
	})
}
