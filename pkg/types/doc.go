/*
Package types defines the coordinator records shared by the conductor, the
host agents and the store.

# Topology

A Domain is a shard space with a fixed number of partitions. A DomainGroup
declares which version of each domain should be served. A RingGroup serves one
domain group with an ordered set of Rings; every ring holds a full copy of
every partition, spread over its Hosts.

# Hosts

A Host record has two owners. The host agent writes its lifecycle state, its
current command and the versions it has loaded. The conductor writes its
command queue and its target partition assignment (Domains).

	OFFLINE --agent up--> IDLE --EXECUTE_UPDATE--> UPDATING --> IDLE
	IDLE --SERVE_DATA--> SERVING --GO_TO_IDLE--> IDLE

A new host starts OFFLINE with an empty queue. A HostDomainPartition's
CurrentVersion stays nil until the host has loaded some version of it.

Records are plain structs. Store implementations copy them on the way in and
out, and Host.Clone gives a deep copy for callers that mutate a snapshot.
*/
package types
