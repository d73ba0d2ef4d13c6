package conductor

import (
	"fmt"
	"sort"

	"github.com/rgeorge2/hank/pkg/types"
)

// Coordinator is the view of the coordinator store the conductor depends on.
// It reads topology and host state and writes only commands and assignments.
type Coordinator interface {
	ListRingGroups() ([]*types.RingGroup, error)
	GetRingGroup(name string) (*types.RingGroup, error)
	GetDomainGroup(name string) (*types.DomainGroup, error)
	GetDomain(name string) (*types.Domain, error)
	ListRings(ringGroup string) ([]*types.Ring, error)
	ListHostsByRing(ringGroup string, ring int) ([]*types.Host, error)

	EnqueueCommand(address string, cmd types.HostCommand) error
	SetHostDomains(address string, domains []types.HostDomain) error
}

// Snapshot is a ring group as observed at the start of one transition pass
type Snapshot struct {
	RingGroup *types.RingGroup

	// Versions holds the target version of every domain, ordered by domain name
	Versions []types.DomainVersion

	// Rings are ordered by ring number, hosts within a ring by address
	Rings []*types.RingSnapshot
}

// Targets returns the target version keyed by domain name
func (s *Snapshot) Targets() map[string]int {
	targets := make(map[string]int, len(s.Versions))
	for _, dv := range s.Versions {
		targets[dv.Domain.Name] = dv.Version
	}
	return targets
}

// Hosts returns every host of the ring group in ring order
func (s *Snapshot) Hosts() []*types.Host {
	var hosts []*types.Host
	for _, ring := range s.Rings {
		hosts = append(hosts, ring.Hosts...)
	}
	return hosts
}

// LoadSnapshot reads a ring group, its target versions and its hosts.
// A domain named by the domain group that does not exist is an error: its
// partition count is needed to plan assignments.
func LoadSnapshot(c Coordinator, ringGroupName string) (*Snapshot, error) {
	rg, err := c.GetRingGroup(ringGroupName)
	if err != nil {
		return nil, fmt.Errorf("failed to get ring group %s: %w", ringGroupName, err)
	}
	if rg.Mode == "" {
		rg.Mode = types.ConductorModeDowntime
	}

	dg, err := c.GetDomainGroup(rg.DomainGroup)
	if err != nil {
		return nil, fmt.Errorf("failed to get domain group %s: %w", rg.DomainGroup, err)
	}

	names := make([]string, 0, len(dg.Versions))
	for name := range dg.Versions {
		names = append(names, name)
	}
	sort.Strings(names)

	versions := make([]types.DomainVersion, 0, len(names))
	for _, name := range names {
		domain, err := c.GetDomain(name)
		if err != nil {
			return nil, fmt.Errorf("failed to get domain %s of domain group %s: %w", name, dg.Name, err)
		}
		versions = append(versions, types.DomainVersion{Domain: domain, Version: dg.Versions[name]})
	}

	rings, err := c.ListRings(rg.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to list rings: %w", err)
	}
	sort.Slice(rings, func(i, j int) bool { return rings[i].Number < rings[j].Number })

	snapshot := &Snapshot{RingGroup: rg, Versions: versions}
	for _, ring := range rings {
		hosts, err := c.ListHostsByRing(rg.Name, ring.Number)
		if err != nil {
			return nil, fmt.Errorf("failed to list hosts of ring %d: %w", ring.Number, err)
		}
		types.SortHosts(hosts)
		snapshot.Rings = append(snapshot.Rings, &types.RingSnapshot{Ring: ring, Hosts: hosts})
	}

	return snapshot, nil
}
