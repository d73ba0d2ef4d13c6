package types

import (
	"fmt"
	"sort"
	"time"
)

// Domain is a named shard space with a fixed partition count
type Domain struct {
	Name          string
	ID            int
	NumPartitions int
	CreatedAt     time.Time
}

// DomainVersion pairs a domain with a version number of its data
type DomainVersion struct {
	Domain  *Domain
	Version int
}

// DomainGroup declares the version of each domain that should be served
type DomainGroup struct {
	Name      string
	Versions  map[string]int // domain name -> target version
	UpdatedAt time.Time
}

// ConductorMode controls how a ring group treats offline hosts during assignment
type ConductorMode string

const (
	// ConductorModeDowntime keeps partitions on offline hosts; they are simply not served
	ConductorModeDowntime ConductorMode = "DOWNTIME"

	// ConductorModeProactive moves partitions away from offline hosts
	ConductorModeProactive ConductorMode = "PROACTIVE"
)

// RingGroup is an ordered collection of rings serving the same domain group
type RingGroup struct {
	Name        string
	DomainGroup string
	Mode        ConductorMode
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Ring is a replica group holding a full copy of every partition
type Ring struct {
	RingGroup string
	Number    int
}

// RingSnapshot is a ring together with its member hosts as observed at one instant.
// Hosts are ordered by address.
type RingSnapshot struct {
	Ring  *Ring
	Hosts []*Host
}

// Host returns the member host with the given address, or nil
func (r *RingSnapshot) Host(address string) *Host {
	for _, h := range r.Hosts {
		if h.Address == address {
			return h
		}
	}
	return nil
}

// HostState is the lifecycle state of a partition server, owned by its agent
type HostState string

const (
	HostStateOffline  HostState = "OFFLINE"
	HostStateIdle     HostState = "IDLE"
	HostStateUpdating HostState = "UPDATING"
	HostStateServing  HostState = "SERVING"
)

// HostCommand is a directive enqueued for a host agent
type HostCommand string

const (
	// CommandGoToIdle stops serving and drains to idle
	CommandGoToIdle HostCommand = "GO_TO_IDLE"

	// CommandExecuteUpdate loads the assigned partitions at their target versions
	CommandExecuteUpdate HostCommand = "EXECUTE_UPDATE"

	// CommandServeData starts serving the currently loaded versions
	CommandServeData HostCommand = "SERVE_DATA"
)

// HostStates lists every host state
var HostStates = []HostState{HostStateOffline, HostStateIdle, HostStateUpdating, HostStateServing}

// HostCommands lists every host command
var HostCommands = []HostCommand{CommandGoToIdle, CommandExecuteUpdate, CommandServeData}

// ParseHostState validates a host state name
func ParseHostState(s string) (HostState, error) {
	for _, st := range HostStates {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown host state: %q", s)
}

// ParseHostCommand validates a host command name
func ParseHostCommand(s string) (HostCommand, error) {
	for _, c := range HostCommands {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown host command: %q", s)
}

// ParseConductorMode validates a conductor mode name
func ParseConductorMode(s string) (ConductorMode, error) {
	switch ConductorMode(s) {
	case ConductorModeDowntime, ConductorModeProactive:
		return ConductorMode(s), nil
	}
	return "", fmt.Errorf("unknown conductor mode: %q", s)
}

// Host is a partition server belonging to one ring
type Host struct {
	Address        string
	RingGroup      string
	Ring           int
	State          HostState
	CurrentCommand *HostCommand
	CommandQueue   []HostCommand
	Domains        []HostDomain
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HostDomain records the partitions of one domain assigned to a host
type HostDomain struct {
	Domain     string
	Partitions []HostDomainPartition
}

// HostDomainPartition is one assigned partition and the version the host has loaded.
// CurrentVersion stays nil until an update completes.
type HostDomainPartition struct {
	Number         int
	CurrentVersion *int
}

// IsOnline reports whether the host agent is reachable
func (h *Host) IsOnline() bool {
	return h.State != HostStateOffline
}

// HasPendingCommand reports whether a command is executing or queued
func (h *Host) HasPendingCommand() bool {
	return h.CurrentCommand != nil || len(h.CommandQueue) > 0
}

// HasCommand reports whether cmd is executing or queued
func (h *Host) HasCommand(cmd HostCommand) bool {
	if h.CurrentCommand != nil && *h.CurrentCommand == cmd {
		return true
	}
	for _, c := range h.CommandQueue {
		if c == cmd {
			return true
		}
	}
	return false
}

// Domain returns the recorded assignment for a domain, or nil
func (h *Host) Domain(name string) *HostDomain {
	for i := range h.Domains {
		if h.Domains[i].Domain == name {
			return &h.Domains[i]
		}
	}
	return nil
}

// NumPartitions returns the number of partitions recorded across all domains
func (h *Host) NumPartitions() int {
	n := 0
	for _, hd := range h.Domains {
		n += len(hd.Partitions)
	}
	return n
}

// Clone returns a deep copy of the host
func (h *Host) Clone() *Host {
	c := *h
	if h.CurrentCommand != nil {
		cmd := *h.CurrentCommand
		c.CurrentCommand = &cmd
	}
	if h.CommandQueue != nil {
		c.CommandQueue = append([]HostCommand(nil), h.CommandQueue...)
	}
	c.Domains = CloneHostDomains(h.Domains)
	return &c
}

// CloneHostDomains deep-copies a set of domain assignments
func CloneHostDomains(domains []HostDomain) []HostDomain {
	if domains == nil {
		return nil
	}
	out := make([]HostDomain, len(domains))
	for i, hd := range domains {
		out[i] = HostDomain{Domain: hd.Domain}
		if hd.Partitions != nil {
			out[i].Partitions = make([]HostDomainPartition, len(hd.Partitions))
			for j, p := range hd.Partitions {
				out[i].Partitions[j] = HostDomainPartition{Number: p.Number}
				if p.CurrentVersion != nil {
					v := *p.CurrentVersion
					out[i].Partitions[j].CurrentVersion = &v
				}
			}
		}
	}
	return out
}

// SortHosts orders hosts by address
func SortHosts(hosts []*Host) {
	sort.Slice(hosts, func(i, j int) bool { return hosts[i].Address < hosts[j].Address })
}

// Version returns a pointer to v, for populating CurrentVersion
func Version(v int) *int {
	return &v
}

// Command returns a pointer to c, for populating CurrentCommand
func Command(c HostCommand) *HostCommand {
	return &c
}
