package assigner

import (
	"errors"

	"github.com/rgeorge2/hank/pkg/types"
)

var (
	// ErrNotPrepared is returned when Assign or IsAssigned is called before Prepare
	ErrNotPrepared = errors.New("partition assigner: no prepared plan")

	// ErrHostNotInRing is returned for a host that is not a member of the prepared ring
	ErrHostNotInRing = errors.New("partition assigner: host is not in the prepared ring")
)

// PartitionAssigner computes which host of a ring owns which partitions.
//
// Prepare must be called before Assign or IsAssigned. Calling Prepare again replaces the
// previous plan. Equal inputs must yield an equal plan regardless of input ordering.
type PartitionAssigner interface {
	// Prepare computes the plan for ring under the target versions and mode
	Prepare(ring *types.RingSnapshot, versions []types.DomainVersion, mode types.ConductorMode) error

	// Assign rewrites host.Domains to the prepared plan's portion for host.
	// Loaded versions of partitions the host keeps are preserved.
	Assign(host *types.Host) error

	// IsAssigned reports whether host.Domains already equals the plan's portion for host
	IsAssigned(host *types.Host) (bool, error)
}

// Plan maps host address -> domain name -> sorted partition numbers
type Plan map[string]map[string][]int

// assignPlan writes a host's portion of plan into its domain records
func assignPlan(plan Plan, host *types.Host) error {
	portion, ok := plan[host.Address]
	if !ok {
		return ErrHostNotInRing
	}

	existing := make(map[string]map[int]*int)
	for _, hd := range host.Domains {
		versions := make(map[int]*int, len(hd.Partitions))
		for _, p := range hd.Partitions {
			versions[p.Number] = p.CurrentVersion
		}
		existing[hd.Domain] = versions
	}

	domains := make([]types.HostDomain, 0, len(portion))
	for _, name := range sortedKeys(portion) {
		hd := types.HostDomain{Domain: name}
		for _, number := range portion[name] {
			p := types.HostDomainPartition{Number: number}
			if v := existing[name][number]; v != nil {
				version := *v
				p.CurrentVersion = &version
			}
			hd.Partitions = append(hd.Partitions, p)
		}
		domains = append(domains, hd)
	}

	host.Domains = domains
	return nil
}

// matchesPlan compares a host's recorded domains against its portion of plan.
// Domains recorded with no partitions count as absent.
func matchesPlan(plan Plan, host *types.Host) (bool, error) {
	portion, ok := plan[host.Address]
	if !ok {
		return false, ErrHostNotInRing
	}

	recorded := 0
	for _, hd := range host.Domains {
		if len(hd.Partitions) == 0 {
			continue
		}
		recorded++
		want, ok := portion[hd.Domain]
		if !ok || len(want) != len(hd.Partitions) {
			return false, nil
		}
		have := make(map[int]bool, len(hd.Partitions))
		for _, p := range hd.Partitions {
			have[p.Number] = true
		}
		for _, number := range want {
			if !have[number] {
				return false, nil
			}
		}
	}

	return recorded == len(portion), nil
}
