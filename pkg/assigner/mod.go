package assigner

import (
	"sort"
	"sync"

	"github.com/rgeorge2/hank/pkg/types"
)

// ModAssigner distributes partitions round-robin over a ring's hosts.
// Partition i of every domain belongs to the eligible host at rank i mod n,
// hosts ranked by address. Changing only a domain's version never moves a partition.
type ModAssigner struct {
	mu   sync.RWMutex
	plan Plan
}

// NewModAssigner creates a modulo-based partition assigner
func NewModAssigner() *ModAssigner {
	return &ModAssigner{}
}

// Prepare computes the plan for ring
func (a *ModAssigner) Prepare(ring *types.RingSnapshot, versions []types.DomainVersion, mode types.ConductorMode) error {
	plan := make(Plan, len(ring.Hosts))
	var eligible []string
	for _, host := range ring.Hosts {
		plan[host.Address] = make(map[string][]int)
		if mode == types.ConductorModeProactive && !host.IsOnline() {
			continue
		}
		eligible = append(eligible, host.Address)
	}
	sort.Strings(eligible)

	if len(eligible) > 0 {
		seen := make(map[string]bool, len(versions))
		for _, dv := range versions {
			if dv.Domain == nil || seen[dv.Domain.Name] {
				continue
			}
			seen[dv.Domain.Name] = true
			for p := 0; p < dv.Domain.NumPartitions; p++ {
				owner := eligible[p%len(eligible)]
				plan[owner][dv.Domain.Name] = append(plan[owner][dv.Domain.Name], p)
			}
		}
	}

	a.mu.Lock()
	a.plan = plan
	a.mu.Unlock()
	return nil
}

// Assign writes the prepared plan's portion for host into host.Domains
func (a *ModAssigner) Assign(host *types.Host) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.plan == nil {
		return ErrNotPrepared
	}
	return assignPlan(a.plan, host)
}

// IsAssigned reports whether host's recorded domains match the prepared plan
func (a *ModAssigner) IsAssigned(host *types.Host) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.plan == nil {
		return false, ErrNotPrepared
	}
	return matchesPlan(a.plan, host)
}

func sortedKeys(m map[string][]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
