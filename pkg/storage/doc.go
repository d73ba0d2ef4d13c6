/*
Package storage holds the coordinator state of a Hank cluster: domains, domain
groups, ring groups, rings and hosts.

The conductor treats the store as the single source of truth. It reads topology,
host state, command queues and partition records from it, and writes only two
things back: commands appended to a host's queue and the host's target partition
assignment. Everything else on a host record (lifecycle state, the current
command, loaded partition versions) belongs to the host agent.

# Implementations

MemoryStore keeps records in maps guarded by one RWMutex and copies records on the
way in and out. It backs tests and the embedded simulation mode.

BoltStore persists records in a bbolt file (<dataDir>/hank.db), one bucket per
entity, JSON encoded:

	domains        name
	domain_groups  name
	ring_groups    name
	rings          <ring group>/<zero padded number>
	hosts          address

# Host mutations

Every host mutation is a single read-modify-write: under the MemoryStore write lock,
or inside one bbolt Update transaction. This gives a single writer per host and
read-your-writes for the conductor's own mutations on its next tick.

	EnqueueCommand       append to the queue (conductor)
	SetHostDomains       replace the partition assignment (conductor)
	SetHostState         lifecycle transition (agent)
	NextCommand          move the queue head to the current command (agent)
	CompleteCommand      clear the current command (agent)
	ClearCommandQueue    drop all queued commands (agent, operator)
	SetPartitionVersion  record a loaded version (agent)

Missing records are reported as ErrNotFound and duplicate creates as
ErrAlreadyExists, both wrapped so callers use errors.Is.
*/
package storage
