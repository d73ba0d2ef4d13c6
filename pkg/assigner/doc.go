/*
Package assigner computes partition ownership inside a ring.

Every ring of a ring group holds a full copy of every partition of every domain in
the group's domain group. A PartitionAssigner decides which host of the ring owns
which partitions for a given set of target domain versions:

	a := assigner.NewModAssigner()
	if err := a.Prepare(ring, versions, types.ConductorModeProactive); err != nil {
		return err
	}
	ok, err := a.IsAssigned(host)
	if !ok {
		err = a.Assign(host) // rewrites host.Domains
	}

The conductor never inspects a plan directly; it only asks IsAssigned and calls
Assign for idle hosts, then persists host.Domains through the coordinator.

# Modes

In DOWNTIME mode offline hosts keep their share of the ring and their partitions
are simply unavailable until the host returns. In PROACTIVE mode offline hosts are
excluded from ownership and their partitions are spread over the remaining hosts,
so a switch of mode changes IsAssigned answers as soon as the plan is prepared again.
*/
package assigner
