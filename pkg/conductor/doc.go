/*
Package conductor moves ring groups toward the versions their domain group
declares.

# Transition function

TransitionFunction.ManageTransitions takes one snapshot of a ring group and
decides, host by host, what to do next. It never changes host state itself;
it only assigns partitions and enqueues commands that host agents execute:

  - A SERVING host that is not assigned or not up to date gets GO_TO_IDLE,
    but only while every partition it has loaded keeps enough other fully
    serving replicas. Replicas taken down earlier in the same pass count as
    gone. Only partitions of domains in the domain group count, and a host
    is a replica of a partition only once it has some version loaded.
  - An IDLE host that has no assignment under the target versions is
    assigned. An assigned, up to date host gets SERVE_DATA. An out of date
    host gets EXECUTE_UPDATE, unless it holds loaded data for partitions
    that too few replicas serve, in which case it serves stale data first.
  - OFFLINE and UPDATING hosts are left alone.

A host with a pending command is never given another one, so running the
function repeatedly over an unchanged cluster is idempotent.

"Fully serving" may require several consecutive observations; see
NewTransitionFunction.

# Control loop

Conductor runs the transition function over every ring group on a ticker and
whenever the coordinator publishes a change event. Passes over the same ring
group are serialized, and rings of different ring groups never share the
assigner's prepared plan. Each pass records prometheus metrics and logs the
commands it issued.

	tf := conductor.NewTransitionFunction(assigner.NewModAssigner(), 0,
		conductor.WithMaxUnavailableReplicas(1))
	c := conductor.NewConductor(mgr, tf, conductor.Config{
		Interval: 10 * time.Second,
		Broker:   mgr.GetEventBroker(),
	})
	c.Start(ctx)
	defer c.Stop()
*/
package conductor
