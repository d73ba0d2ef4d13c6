/*
Package api serves the conductor's read-only HTTP endpoints.

	GET /health              liveness, 503 if any component reports unhealthy
	GET /ready               readiness: store reachable, critical components up
	GET /metrics             prometheus metrics
	GET /status              convergence of every ring group
	GET /status/{ringGroup}  convergence of one ring group

Every other method is rejected with 405. Requests are counted in
hank_api_requests_total by path and status code.
*/
package api
