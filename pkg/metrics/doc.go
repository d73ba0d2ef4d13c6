/*
Package metrics provides Prometheus metrics and health reporting for Hank.

All collectors are package-level variables registered with the default
Prometheus registry at init and exposed through Handler on /metrics.

# Metrics

Cluster gauges, sampled from the store by Collector:

	hank_hosts_total{ring_group,state}        hosts per lifecycle state
	hank_rings_total{ring_group}              rings per ring group
	hank_rings_fully_serving{ring_group}      rings with every host SERVING and no pending command
	hank_pending_commands{ring_group}         current plus queued host commands

Conductor instrumentation, updated inline by each transition pass:

	hank_conductor_cycles_total{ring_group,result}
	hank_conductor_cycle_duration_seconds{ring_group}
	hank_commands_issued_total{command}
	hank_assignments_total

Agents count executed commands in hank_agent_commands_executed_total{command},
and the HTTP API counts requests in hank_api_requests_total{path,status}.

# Timing

	timer := metrics.NewTimer()
	result, err := tf.ManageTransitions(ctx, coordinator, ringGroup)
	timer.ObserveDurationVec(metrics.ConductorCycleDuration, ringGroup)

# Health

Components report themselves with UpdateComponent. GetHealth is unhealthy as
soon as any component is; GetReadiness is ready only when every critical
component (storage and conductor by default, see SetCriticalComponents) has
reported healthy. HealthHandler and ReadyHandler serve both as JSON and answer
503 when the check fails.
*/
package metrics
