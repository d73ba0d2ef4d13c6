/*
Package agent implements the host side of the command protocol.

An Agent owns one host record. It dequeues commands with NextCommand, applies
them and calls CompleteCommand:

	GO_TO_IDLE      state -> IDLE
	EXECUTE_UPDATE  state -> UPDATING, load every assigned partition at the
	                domain group's target version, state -> IDLE
	SERVE_DATA      state -> SERVING

Loaded partitions are recorded with SetPartitionVersion and kept hot in a
byte-bounded cache.MemoryBoundLRU. Loading itself is a LoadFunc hook; without one
the agent only records versions, which is what the simulate command and the
convergence tests use.

Step executes a single command synchronously. Start runs a polling loop for
embedded mode.
*/
package agent
