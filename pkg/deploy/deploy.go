package deploy

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rgeorge2/hank/pkg/assigner"
	"github.com/rgeorge2/hank/pkg/conductor"
	"github.com/rgeorge2/hank/pkg/log"
	"github.com/rgeorge2/hank/pkg/types"
)

// ErrVersionRegression is returned when a deploy would lower a domain's version
var ErrVersionRegression = errors.New("version regression")

// Coordinator is the part of the coordinator store a deploy touches
type Coordinator interface {
	conductor.Coordinator
	UpdateDomainGroup(group *types.DomainGroup) error
}

// Deployer rolls new domain versions out by changing the domain group
// declaration. The conductor does the rest.
type Deployer struct {
	coordinator Coordinator

	mu       sync.Mutex // guards the assigner's prepared plan
	assigner assigner.PartitionAssigner
}

// NewDeployer creates a new deployer. Status compares hosts against the plan
// of a, so it should use the conductor's strategy, but not its instance.
func NewDeployer(c Coordinator, a assigner.PartitionAssigner) *Deployer {
	return &Deployer{coordinator: c, assigner: a}
}

// SetDomainVersion declares version as the target of domain in domainGroup.
// Versions only move forward unless force is set.
func (d *Deployer) SetDomainVersion(domainGroup, domain string, version int, force bool) error {
	if version < 0 {
		return fmt.Errorf("invalid version %d", version)
	}
	if _, err := d.coordinator.GetDomain(domain); err != nil {
		return fmt.Errorf("failed to get domain %s: %w", domain, err)
	}
	dg, err := d.coordinator.GetDomainGroup(domainGroup)
	if err != nil {
		return fmt.Errorf("failed to get domain group %s: %w", domainGroup, err)
	}

	current, ok := dg.Versions[domain]
	if ok && version < current && !force {
		return fmt.Errorf("%w: %s is at version %d, refusing %d", ErrVersionRegression, domain, current, version)
	}
	if ok && version == current {
		return nil
	}

	versions := make(map[string]int, len(dg.Versions)+1)
	for name, v := range dg.Versions {
		versions[name] = v
	}
	versions[domain] = version
	dg.Versions = versions

	if err := d.coordinator.UpdateDomainGroup(dg); err != nil {
		return fmt.Errorf("failed to update domain group %s: %w", domainGroup, err)
	}

	log.Logger.Info().
		Str("domain_group", domainGroup).
		Str("domain", domain).
		Int("from", current).
		Int("to", version).
		Bool("force", force).
		Msg("Deployed domain version")
	return nil
}

// RingStatus summarizes one ring's progress toward the target versions
type RingStatus struct {
	Number       int            `json:"number"`
	Hosts        int            `json:"hosts"`
	UpToDate     int            `json:"up_to_date"`
	FullyServing int            `json:"fully_serving"`
	States       map[string]int `json:"states"`
}

// Status summarizes a ring group's progress toward its domain group's versions
type Status struct {
	RingGroup   string         `json:"ring_group"`
	DomainGroup string         `json:"domain_group"`
	Mode        string         `json:"mode"`
	Versions    map[string]int `json:"versions"`
	Rings       []RingStatus   `json:"rings"`
	Converged   bool           `json:"converged"`
}

// Status reports how far ringGroup has converged. A ring group is converged
// when every host is serving the target versions with nothing pending.
func (d *Deployer) Status(ringGroup string) (*Status, error) {
	snapshot, err := conductor.LoadSnapshot(d.coordinator, ringGroup)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return StatusOf(snapshot, d.assigner)
}

// StatusOf computes the status of a snapshot against the plan of a
func StatusOf(snapshot *conductor.Snapshot, a assigner.PartitionAssigner) (*Status, error) {
	targets := snapshot.Targets()
	status := &Status{
		RingGroup:   snapshot.RingGroup.Name,
		DomainGroup: snapshot.RingGroup.DomainGroup,
		Mode:        string(snapshot.RingGroup.Mode),
		Versions:    targets,
		Rings:       make([]RingStatus, 0, len(snapshot.Rings)),
		Converged:   true,
	}

	for _, ring := range snapshot.Rings {
		if err := a.Prepare(ring, snapshot.Versions, snapshot.RingGroup.Mode); err != nil {
			return nil, fmt.Errorf("failed to prepare ring %d: %w", ring.Ring.Number, err)
		}
		rs := RingStatus{
			Number: ring.Ring.Number,
			Hosts:  len(ring.Hosts),
			States: make(map[string]int),
		}
		for _, h := range ring.Hosts {
			rs.States[string(h.State)]++
			assigned, err := a.IsAssigned(h)
			if err != nil {
				return nil, err
			}
			upToDate := assigned && conductor.IsUpToDate(h, targets)
			if upToDate {
				rs.UpToDate++
			}
			serving := h.State == types.HostStateServing && !h.HasPendingCommand()
			if serving {
				rs.FullyServing++
			}
			if !upToDate || !serving {
				status.Converged = false
			}
		}
		status.Rings = append(status.Rings, rs)
	}
	return status, nil
}
