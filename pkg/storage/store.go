package storage

import (
	"errors"

	"github.com/rgeorge2/hank/pkg/types"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when creating a record that exists
	ErrAlreadyExists = errors.New("already exists")
)

// Store defines the interface for coordinator state storage.
// Host mutations are atomic per host: each one is a single read-modify-write.
type Store interface {
	// Domains
	CreateDomain(domain *types.Domain) error
	GetDomain(name string) (*types.Domain, error)
	ListDomains() ([]*types.Domain, error)
	DeleteDomain(name string) error

	// Domain groups
	CreateDomainGroup(group *types.DomainGroup) error
	GetDomainGroup(name string) (*types.DomainGroup, error)
	ListDomainGroups() ([]*types.DomainGroup, error)
	UpdateDomainGroup(group *types.DomainGroup) error
	DeleteDomainGroup(name string) error

	// Ring groups
	CreateRingGroup(group *types.RingGroup) error
	GetRingGroup(name string) (*types.RingGroup, error)
	ListRingGroups() ([]*types.RingGroup, error)
	UpdateRingGroup(group *types.RingGroup) error
	DeleteRingGroup(name string) error

	// Rings, listed in ascending number order
	CreateRing(ring *types.Ring) error
	ListRings(ringGroup string) ([]*types.Ring, error)
	DeleteRing(ringGroup string, number int) error

	// Hosts, listed in address order
	CreateHost(host *types.Host) error
	GetHost(address string) (*types.Host, error)
	ListHosts() ([]*types.Host, error)
	ListHostsByRing(ringGroup string, ring int) ([]*types.Host, error)
	DeleteHost(address string) error

	// Orchestrator-side host mutations
	EnqueueCommand(address string, cmd types.HostCommand) error
	SetHostDomains(address string, domains []types.HostDomain) error

	// Agent-side host mutations
	SetHostState(address string, state types.HostState) error
	NextCommand(address string) (*types.HostCommand, error)
	CompleteCommand(address string) error
	ClearCommandQueue(address string) error
	SetPartitionVersion(address, domain string, partition, version int) error

	// Utility
	Close() error
}
