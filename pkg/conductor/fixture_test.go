package conductor

import (
	"context"
	"sort"
	"testing"

	"github.com/rgeorge2/hank/pkg/assigner"
	"github.com/rgeorge2/hank/pkg/storage"
	"github.com/rgeorge2/hank/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRingGroup   = "myRingGroup"
	testDomainGroup = "myDomainGroup"
)

// Target version sets used across the scenarios
var (
	v1 = map[string]int{"domain1": 1}
	v2 = map[string]int{"domain1": 2}
	v3 = map[string]int{"domain1": 2, "domain2": 1}
)

// Three rings of two hosts each
var ringHosts = [][]string{
	{"localhost:1", "localhost:2"},
	{"localhost:3", "localhost:4"},
	{"localhost:5", "localhost:6"},
}

type fixture struct {
	t        *testing.T
	store    *storage.MemoryStore
	assigner *assigner.ModAssigner
	domains  map[string]*types.Domain
	tf       *TransitionFunction
	absent   map[string]bool // hosts without an agent
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		t:        t,
		store:    storage.NewMemoryStore(),
		assigner: assigner.NewModAssigner(),
		domains: map[string]*types.Domain{
			"domain1": {Name: "domain1", ID: 1, NumPartitions: 6},
			"domain2": {Name: "domain2", ID: 2, NumPartitions: 6},
		},
	}
	f.tf = NewTransitionFunction(assigner.NewModAssigner(), 0)

	for _, d := range f.domains {
		require.NoError(t, f.store.CreateDomain(d))
	}
	require.NoError(t, f.store.CreateDomainGroup(&types.DomainGroup{Name: testDomainGroup, Versions: map[string]int{}}))
	require.NoError(t, f.store.CreateRingGroup(&types.RingGroup{Name: testRingGroup, DomainGroup: testDomainGroup}))
	for number, addresses := range ringHosts {
		require.NoError(t, f.store.CreateRing(&types.Ring{RingGroup: testRingGroup, Number: number}))
		for _, address := range addresses {
			require.NoError(t, f.store.CreateHost(&types.Host{Address: address, RingGroup: testRingGroup, Ring: number}))
		}
	}

	t.Cleanup(func() { _ = f.store.Close() })
	return f
}

func (f *fixture) setTarget(versions map[string]int) {
	f.t.Helper()
	require.NoError(f.t, f.store.UpdateDomainGroup(&types.DomainGroup{Name: testDomainGroup, Versions: versions}))
}

func (f *fixture) setMode(mode types.ConductorMode) {
	f.t.Helper()
	rg, err := f.store.GetRingGroup(testRingGroup)
	require.NoError(f.t, err)
	rg.Mode = mode
	require.NoError(f.t, f.store.UpdateRingGroup(rg))
}

func (f *fixture) mode() types.ConductorMode {
	f.t.Helper()
	rg, err := f.store.GetRingGroup(testRingGroup)
	require.NoError(f.t, err)
	return rg.Mode
}

func (f *fixture) domainVersions(versions map[string]int) []types.DomainVersion {
	var out []types.DomainVersion
	for name, version := range versions {
		out = append(out, types.DomainVersion{Domain: f.domains[name], Version: version})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain.Name < out[j].Domain.Name })
	return out
}

func (f *fixture) ring(number int) *types.RingSnapshot {
	f.t.Helper()
	hosts, err := f.store.ListHostsByRing(testRingGroup, number)
	require.NoError(f.t, err)
	return &types.RingSnapshot{Ring: &types.Ring{RingGroup: testRingGroup, Number: number}, Hosts: hosts}
}

func (f *fixture) host(address string) *types.Host {
	f.t.Helper()
	h, err := f.store.GetHost(address)
	require.NoError(f.t, err)
	return h
}

// setUpRing assigns the ring under the assigned versions (nil keeps the current
// record), sets every host's state, then marks the partitions of each domain in
// current as loaded at that version
func (f *fixture) setUpRing(number int, current, assigned map[string]int, state types.HostState) {
	f.t.Helper()

	ring := f.ring(number)
	if assigned != nil {
		require.NoError(f.t, f.assigner.Prepare(ring, f.domainVersions(assigned), f.mode()))
	}
	for _, host := range ring.Hosts {
		if assigned != nil {
			require.NoError(f.t, f.assigner.Assign(host))
			require.NoError(f.t, f.store.SetHostDomains(host.Address, host.Domains))
		}
		f.setState(host.Address, state)
		if current != nil {
			f.setCurrentVersion(host.Address, current)
		}
	}
}

// assignHost assigns a single host of a ring under versions
func (f *fixture) assignHost(number int, address string, versions map[string]int) {
	f.t.Helper()
	ring := f.ring(number)
	require.NoError(f.t, f.assigner.Prepare(ring, f.domainVersions(versions), f.mode()))
	host := ring.Host(address)
	require.NotNil(f.t, host)
	require.NoError(f.t, f.assigner.Assign(host))
	require.NoError(f.t, f.store.SetHostDomains(address, host.Domains))
}

func (f *fixture) setState(address string, state types.HostState) {
	f.t.Helper()
	require.NoError(f.t, f.store.SetHostState(address, state))
}

func (f *fixture) setCurrentVersion(address string, versions map[string]int) {
	f.t.Helper()
	for _, hd := range f.host(address).Domains {
		version, ok := versions[hd.Domain]
		if !ok {
			continue
		}
		for _, p := range hd.Partitions {
			require.NoError(f.t, f.store.SetPartitionVersion(address, hd.Domain, p.Number, version))
		}
	}
}

func (f *fixture) nextCommand(address string) {
	f.t.Helper()
	_, err := f.store.NextCommand(address)
	require.NoError(f.t, err)
}

func (f *fixture) isAssigned(number int, address string, versions map[string]int) bool {
	f.t.Helper()
	ring := f.ring(number)
	require.NoError(f.t, f.assigner.Prepare(ring, f.domainVersions(versions), f.mode()))
	ok, err := f.assigner.IsAssigned(ring.Host(address))
	require.NoError(f.t, err)
	return ok
}

func (f *fixture) assertAssigned(versions map[string]int, want ...bool) {
	f.t.Helper()
	i := 0
	for number, addresses := range ringHosts {
		for _, address := range addresses {
			assert.Equal(f.t, want[i], f.isAssigned(number, address, versions), "assignment of %s", address)
			i++
		}
	}
}

func (f *fixture) run() *Result {
	f.t.Helper()
	result, err := f.tf.ManageTransitions(context.Background(), f.store, testRingGroup)
	require.NoError(f.t, err)
	return result
}

// assertCommands checks the command each host received in a pass; hosts
// missing from want must have received none
func (f *fixture) assertCommands(result *Result, want map[string]types.HostCommand) {
	f.t.Helper()
	for _, addresses := range ringHosts {
		for _, address := range addresses {
			got := result.CommandFor(address)
			if cmd, ok := want[address]; ok {
				if assert.NotNil(f.t, got, "expected %s for %s", cmd, address) {
					assert.Equal(f.t, cmd, *got, "command for %s", address)
				}
			} else {
				assert.Nil(f.t, got, "expected no command for %s", address)
			}
		}
	}
}

// fullyServing counts, per target partition, the hosts serving a loaded version
// of it with nothing pending
func fullyServing(hosts []*types.Host, targets map[string]int) map[partitionKey]int {
	counts := make(map[partitionKey]int)
	for _, h := range hosts {
		if h.State != types.HostStateServing || h.HasPendingCommand() {
			continue
		}
		for _, hd := range h.Domains {
			if _, ok := targets[hd.Domain]; !ok {
				continue
			}
			for _, p := range hd.Partitions {
				if p.CurrentVersion == nil {
					continue
				}
				counts[partitionKey{hd.Domain, p.Number}]++
			}
		}
	}
	return counts
}

func (f *fixture) allHosts() []*types.Host {
	f.t.Helper()
	hosts, err := f.store.ListHosts()
	require.NoError(f.t, err)
	return hosts
}
