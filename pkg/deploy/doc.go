// Package deploy changes the versions a domain group declares and reports how
// far each ring group has converged on them.
package deploy
