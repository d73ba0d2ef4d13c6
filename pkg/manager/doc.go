/*
Package manager implements the coordinator that hosts, the conductor and
operators share.

A Manager wraps a storage.Store (bbolt on disk, or in memory) and an
events.Broker. Every successful mutation is published on the broker, so
subscribers such as the conductor react to configuration, host state and
command queue changes without polling:

	mgr, err := manager.NewManager(&manager.Config{DataDir: "/var/lib/hank"})
	if err != nil {
		return err
	}
	defer mgr.Shutdown()

	sub := mgr.GetEventBroker().Subscribe()
	_ = mgr.SetHostState("host-1:12345", types.HostStateIdle)
	ev := <-sub // host.state_changed

Host events carry the host address, ring group, ring number and state in
their metadata. A ring group update only publishes ring_group.mode_changed
when the mode actually changes.

The Manager satisfies storage.Store, so it can be handed to the conductor
and to host agents directly.
*/
package manager
