package conductor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rgeorge2/hank/pkg/assigner"
	"github.com/rgeorge2/hank/pkg/log"
	"github.com/rgeorge2/hank/pkg/metrics"
	"github.com/rgeorge2/hank/pkg/types"
	"github.com/rs/zerolog"
)

// DefaultMaxUnavailableReplicas is the number of replicas of a partition that may be
// taken out of service at once
const DefaultMaxUnavailableReplicas = 1

// ErrUnknownHostState is returned for a host whose state is outside the closed set
var ErrUnknownHostState = errors.New("unknown host state")

// CommandAction is a command enqueued during a transition pass
type CommandAction struct {
	Ring    int
	Host    string
	Command types.HostCommand
}

// Result lists what one transition pass did to a ring group
type Result struct {
	RingGroup   string
	Commands    []CommandAction
	Assignments []string // addresses whose assignment record was rewritten
}

// Empty reports whether the pass issued nothing
func (r *Result) Empty() bool {
	return len(r.Commands) == 0 && len(r.Assignments) == 0
}

// CommandFor returns the command enqueued for a host during the pass, or nil
func (r *Result) CommandFor(address string) *types.HostCommand {
	for _, c := range r.Commands {
		if c.Host == address {
			cmd := c.Command
			return &cmd
		}
	}
	return nil
}

// Assigned reports whether the pass rewrote the host's assignment
func (r *Result) Assigned(address string) bool {
	for _, a := range r.Assignments {
		if a == address {
			return true
		}
	}
	return false
}

// Option configures a TransitionFunction
type Option func(*TransitionFunction)

// WithMaxUnavailableReplicas sets how many replicas of each partition may be down at once
func WithMaxUnavailableReplicas(n int) Option {
	return func(t *TransitionFunction) {
		if n >= 0 {
			t.maxUnavailableReplicas = n
		}
	}
}

// WithLogger overrides the component logger
func WithLogger(logger zerolog.Logger) Option {
	return func(t *TransitionFunction) {
		t.logger = &logger
	}
}

// TransitionFunction decides, from observed state alone, which commands and
// assignments move a ring group toward its target versions. Every pass
// re-derives its decisions, so repeated passes over unchanged state issue nothing.
type TransitionFunction struct {
	assigner                    assigner.PartitionAssigner
	minFullyServingObservations int
	maxUnavailableReplicas      int
	logger                      *zerolog.Logger

	// assignMu serializes use of the assigner, whose prepared plan is shared
	assignMu sync.Mutex

	mu           sync.Mutex
	observations map[string]map[string]int // ring group -> address -> count
}

// NewTransitionFunction creates a transition function. A host only counts as fully
// serving under a strict check after minFullyServingObservations earlier strict
// checks have seen it fully serving.
func NewTransitionFunction(a assigner.PartitionAssigner, minFullyServingObservations int, opts ...Option) *TransitionFunction {
	if minFullyServingObservations < 0 {
		minFullyServingObservations = 0
	}
	t := &TransitionFunction{
		assigner:                    a,
		minFullyServingObservations: minFullyServingObservations,
		maxUnavailableReplicas:      DefaultMaxUnavailableReplicas,
		observations:                make(map[string]map[string]int),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *TransitionFunction) log() zerolog.Logger {
	if t.logger != nil {
		return *t.logger
	}
	return log.WithComponent("conductor")
}

// IsFullyServing reports whether host is SERVING with no command executing or queued.
// A strict check also records the observation and requires the host to have been
// seen fully serving by enough earlier strict checks; a failed check resets the count.
func (t *TransitionFunction) IsFullyServing(host *types.Host, strict bool) bool {
	serving := host.State == types.HostStateServing && !host.HasPendingCommand()
	if !strict {
		return serving
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	seen := t.observations[host.RingGroup]
	if !serving {
		delete(seen, host.Address)
		return false
	}
	if seen == nil {
		seen = make(map[string]int)
		t.observations[host.RingGroup] = seen
	}
	count := seen[host.Address]
	seen[host.Address] = count + 1
	return count >= t.minFullyServingObservations
}

// forgetMissing drops observation counts of hosts no longer in the ring group
func (t *TransitionFunction) forgetMissing(snapshot *Snapshot) {
	present := make(map[string]bool)
	for _, ring := range snapshot.Rings {
		for _, host := range ring.Hosts {
			present[host.Address] = true
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	seen := t.observations[snapshot.RingGroup.Name]
	for address := range seen {
		if !present[address] {
			delete(seen, address)
		}
	}
	if len(seen) == 0 {
		delete(t.observations, snapshot.RingGroup.Name)
	}
}

// IsRingFullyServing reports whether every host of the ring is fully serving
func (t *TransitionFunction) IsRingFullyServing(ring *types.RingSnapshot, strict bool) bool {
	ok := true
	for _, host := range ring.Hosts {
		// strict checks must observe every host, so no early return
		if !t.IsFullyServing(host, strict) {
			ok = false
		}
	}
	return ok
}

// ManageTransitions runs one pass over a ring group
func (t *TransitionFunction) ManageTransitions(ctx context.Context, c Coordinator, ringGroupName string) (*Result, error) {
	snapshot, err := LoadSnapshot(c, ringGroupName)
	if err != nil {
		return nil, err
	}
	return t.Apply(ctx, c, snapshot)
}

// Apply runs one pass over an already loaded snapshot, writing through c
func (t *TransitionFunction) Apply(ctx context.Context, c Coordinator, snapshot *Snapshot) (*Result, error) {
	logger := log.WithRingGroup(t.log(), snapshot.RingGroup.Name)
	result := &Result{RingGroup: snapshot.RingGroup.Name}
	targets := snapshot.Targets()

	t.forgetMissing(snapshot)

	p := &pass{
		tf:          t,
		coordinator: c,
		snapshot:    snapshot,
		targets:     targets,
		serving:     t.servingIndex(snapshot, targets),
		minServing:  max(0, len(snapshot.Rings)-t.maxUnavailableReplicas),
		result:      result,
		logger:      logger,
	}

	for _, ring := range snapshot.Rings {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := p.manageRing(ring); err != nil {
			return result, err
		}
	}

	if !result.Empty() {
		logger.Info().
			Int("commands", len(result.Commands)).
			Int("assignments", len(result.Assignments)).
			Msg("Transition pass issued changes")
	}
	return result, nil
}

// manageRing prepares the ring's plan and manages each of its hosts against it
func (p *pass) manageRing(ring *types.RingSnapshot) error {
	p.tf.assignMu.Lock()
	defer p.tf.assignMu.Unlock()

	if err := p.tf.assigner.Prepare(ring, p.snapshot.Versions, p.snapshot.RingGroup.Mode); err != nil {
		return fmt.Errorf("failed to prepare assignment for ring %d: %w", ring.Ring.Number, err)
	}
	for _, host := range ring.Hosts {
		if err := p.manageHost(ring.Ring.Number, host); err != nil {
			return err
		}
	}
	return nil
}

type partitionKey struct {
	domain    string
	partition int
}

// servingIndex maps every target partition to the fully serving hosts that have
// some version of it loaded, computed before any mutation of the pass
func (t *TransitionFunction) servingIndex(snapshot *Snapshot, targets map[string]int) map[partitionKey]map[string]bool {
	index := make(map[partitionKey]map[string]bool)
	for _, ring := range snapshot.Rings {
		for _, host := range ring.Hosts {
			if !t.IsFullyServing(host, true) {
				continue
			}
			for _, hd := range host.Domains {
				if _, ok := targets[hd.Domain]; !ok {
					continue
				}
				for _, p := range hd.Partitions {
					if p.CurrentVersion == nil {
						continue
					}
					key := partitionKey{hd.Domain, p.Number}
					if index[key] == nil {
						index[key] = make(map[string]bool)
					}
					index[key][host.Address] = true
				}
			}
		}
	}
	return index
}

// pass carries the state of one ManageTransitions call
type pass struct {
	tf          *TransitionFunction
	coordinator Coordinator
	snapshot    *Snapshot
	targets     map[string]int
	serving     map[partitionKey]map[string]bool
	minServing  int
	result      *Result
	logger      zerolog.Logger
}

func (p *pass) manageHost(ring int, host *types.Host) error {
	switch host.State {
	case types.HostStateOffline, types.HostStateUpdating:
		// the agent reports back when it is reachable or done loading
		return nil
	case types.HostStateServing:
		return p.manageServingHost(ring, host)
	case types.HostStateIdle:
		return p.manageIdleHost(ring, host)
	default:
		return fmt.Errorf("host %s is in state %q: %w", host.Address, host.State, ErrUnknownHostState)
	}
}

func (p *pass) manageServingHost(ring int, host *types.Host) error {
	if host.HasPendingCommand() {
		return nil
	}

	assigned, err := p.tf.assigner.IsAssigned(host)
	if err != nil {
		return fmt.Errorf("failed to check assignment of %s: %w", host.Address, err)
	}
	if assigned && IsUpToDate(host, p.targets) {
		return nil
	}

	if !p.canTakeDown(host) {
		return nil
	}
	if err := p.enqueue(ring, host, types.CommandGoToIdle); err != nil {
		return err
	}
	p.removeServing(host)
	return nil
}

func (p *pass) manageIdleHost(ring int, host *types.Host) error {
	// a GO_TO_IDLE left in the queue is satisfied already
	if host.HasCommand(types.CommandExecuteUpdate) || host.HasCommand(types.CommandServeData) {
		return nil
	}

	assigned, err := p.tf.assigner.IsAssigned(host)
	if err != nil {
		return fmt.Errorf("failed to check assignment of %s: %w", host.Address, err)
	}

	if !assigned {
		if err := p.tf.assigner.Assign(host); err != nil {
			return fmt.Errorf("failed to assign %s: %w", host.Address, err)
		}
		if err := p.coordinator.SetHostDomains(host.Address, host.Domains); err != nil {
			return fmt.Errorf("failed to record assignment of %s: %w", host.Address, err)
		}
		p.result.Assignments = append(p.result.Assignments, host.Address)
		metrics.AssignmentsTotal.Inc()
		hostLog := log.WithHost(p.logger, host.Address)
		hostLog.Info().
			Int("ring", ring).
			Int("partitions", host.NumPartitions()).
			Msg("Assigned partitions")
		return nil
	}

	switch {
	case IsUpToDate(host, p.targets):
		return p.enqueue(ring, host, types.CommandServeData)
	case canServe(host) && p.lacksReplicas(host):
		// stale data beats no data while too few replicas serve
		return p.enqueue(ring, host, types.CommandServeData)
	default:
		return p.enqueue(ring, host, types.CommandExecuteUpdate)
	}
}

// canTakeDown reports whether every target partition the host has loaded keeps
// enough fully serving replicas without it. Partitions of dropped domains and
// partitions the host never loaded do not hold it up.
func (p *pass) canTakeDown(host *types.Host) bool {
	for _, hd := range host.Domains {
		if _, ok := p.targets[hd.Domain]; !ok {
			continue
		}
		for _, part := range hd.Partitions {
			if part.CurrentVersion == nil {
				continue
			}
			others := 0
			for address := range p.serving[partitionKey{hd.Domain, part.Number}] {
				if address != host.Address {
					others++
				}
			}
			if others < p.minServing {
				return false
			}
		}
	}
	return true
}

// lacksReplicas reports whether any target partition the host records has fewer
// fully serving replicas than required
func (p *pass) lacksReplicas(host *types.Host) bool {
	for _, hd := range host.Domains {
		if _, ok := p.targets[hd.Domain]; !ok {
			continue
		}
		for _, part := range hd.Partitions {
			if len(p.serving[partitionKey{hd.Domain, part.Number}]) < p.minServing {
				return true
			}
		}
	}
	return false
}

func (p *pass) removeServing(host *types.Host) {
	for _, hd := range host.Domains {
		for _, part := range hd.Partitions {
			delete(p.serving[partitionKey{hd.Domain, part.Number}], host.Address)
		}
	}
}

func (p *pass) enqueue(ring int, host *types.Host, cmd types.HostCommand) error {
	if host.HasCommand(cmd) {
		return nil
	}
	if err := p.coordinator.EnqueueCommand(host.Address, cmd); err != nil {
		return fmt.Errorf("failed to enqueue %s for %s: %w", cmd, host.Address, err)
	}
	host.CommandQueue = append(host.CommandQueue, cmd)

	p.result.Commands = append(p.result.Commands, CommandAction{Ring: ring, Host: host.Address, Command: cmd})
	metrics.CommandsIssued.WithLabelValues(string(cmd)).Inc()
	hostLog := log.WithHost(p.logger, host.Address)
	hostLog.Info().
		Int("ring", ring).
		Str("state", string(host.State)).
		Str("command", string(cmd)).
		Msg("Enqueued command")
	return nil
}

// IsUpToDate reports whether every partition the host records is a target
// domain partition loaded at the target version
func IsUpToDate(host *types.Host, targets map[string]int) bool {
	for _, hd := range host.Domains {
		target, ok := targets[hd.Domain]
		if !ok {
			if len(hd.Partitions) > 0 {
				return false
			}
			continue
		}
		for _, p := range hd.Partitions {
			if p.CurrentVersion == nil || *p.CurrentVersion != target {
				return false
			}
		}
	}
	return true
}

// canServe reports whether the host has some version loaded for every partition it records
func canServe(host *types.Host) bool {
	for _, hd := range host.Domains {
		for _, p := range hd.Partitions {
			if p.CurrentVersion == nil {
				return false
			}
		}
	}
	return true
}
