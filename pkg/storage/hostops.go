package storage

import (
	"fmt"
	"sort"
	"time"

	"github.com/rgeorge2/hank/pkg/types"
)

// Host mutations shared by every Store implementation. Each one edits a host
// record that the caller has already loaded under its write lock or transaction.

func enqueueCommand(h *types.Host, cmd types.HostCommand) error {
	if _, err := types.ParseHostCommand(string(cmd)); err != nil {
		return err
	}
	h.CommandQueue = append(h.CommandQueue, cmd)
	return nil
}

func setHostState(h *types.Host, state types.HostState) error {
	if _, err := types.ParseHostState(string(state)); err != nil {
		return err
	}
	h.State = state
	return nil
}

// nextCommand moves the queue head to the current command. An empty queue clears it.
func nextCommand(h *types.Host) *types.HostCommand {
	if len(h.CommandQueue) == 0 {
		h.CurrentCommand = nil
		return nil
	}
	cmd := h.CommandQueue[0]
	h.CommandQueue = h.CommandQueue[1:]
	h.CurrentCommand = &cmd
	out := cmd
	return &out
}

func completeCommand(h *types.Host) {
	h.CurrentCommand = nil
}

func clearCommandQueue(h *types.Host) {
	h.CommandQueue = nil
}

func setHostDomains(h *types.Host, domains []types.HostDomain) {
	h.Domains = types.CloneHostDomains(domains)
}

func setPartitionVersion(h *types.Host, domain string, partition, version int) error {
	hd := h.Domain(domain)
	if hd == nil {
		return fmt.Errorf("%w: domain %s on host %s", ErrNotFound, domain, h.Address)
	}
	for i := range hd.Partitions {
		if hd.Partitions[i].Number == partition {
			hd.Partitions[i].CurrentVersion = types.Version(version)
			return nil
		}
	}
	return fmt.Errorf("%w: partition %d of domain %s on host %s", ErrNotFound, partition, domain, h.Address)
}

// prepareNewHost fills defaults for a host being created
func prepareNewHost(h *types.Host) {
	if h.State == "" {
		h.State = types.HostStateOffline
	}
	now := time.Now()
	if h.CreatedAt.IsZero() {
		h.CreatedAt = now
	}
	h.UpdatedAt = now
}

func cloneDomainGroup(g *types.DomainGroup) *types.DomainGroup {
	c := *g
	c.Versions = make(map[string]int, len(g.Versions))
	for k, v := range g.Versions {
		c.Versions[k] = v
	}
	return &c
}

func sortRings(rings []*types.Ring) {
	sort.Slice(rings, func(i, j int) bool { return rings[i].Number < rings[j].Number })
}
