package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rgeorge2/hank/pkg/cache"
	"github.com/rgeorge2/hank/pkg/log"
	"github.com/rgeorge2/hank/pkg/metrics"
	"github.com/rgeorge2/hank/pkg/types"
	"github.com/rs/zerolog"
)

const (
	// DefaultPollInterval is how often a started agent checks its command queue
	DefaultPollInterval = time.Second

	// DefaultCacheBytes bounds the partition data an agent keeps hot
	DefaultCacheBytes = 64 << 20

	// DefaultPartitionBytes is the simulated size of one loaded partition
	DefaultPartitionBytes = 1 << 20
)

// Coordinator is the view of the coordinator store a host agent needs
type Coordinator interface {
	GetHost(address string) (*types.Host, error)
	GetRingGroup(name string) (*types.RingGroup, error)
	GetDomainGroup(name string) (*types.DomainGroup, error)

	SetHostState(address string, state types.HostState) error
	NextCommand(address string) (*types.HostCommand, error)
	CompleteCommand(address string) error
	SetPartitionVersion(address, domain string, partition, version int) error
}

// LoadFunc loads one partition at a version. It stands in for fetching data files.
type LoadFunc func(ctx context.Context, domain string, partition, version int) error

// Config holds agent configuration
type Config struct {
	Address        string
	PollInterval   time.Duration
	CacheBytes     int64
	PartitionBytes int64
	Load           LoadFunc
}

type partitionKey struct {
	domain    string
	partition int
}

func (k partitionKey) ManagedBytes() int64 { return int64(len(k.domain)) + 8 }

type partitionData struct {
	version int
	size    int64
}

func (d partitionData) ManagedBytes() int64 { return d.size }

// Agent executes the command queue of one host. It is the only writer of the
// host's lifecycle state and loaded versions.
type Agent struct {
	address        string
	coordinator    Coordinator
	pollInterval   time.Duration
	partitionBytes int64
	load           LoadFunc
	hot            *cache.MemoryBoundLRU[partitionKey, partitionData]
	logger         zerolog.Logger

	stepMu   sync.Mutex
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewAgent creates an agent for the host at cfg.Address
func NewAgent(c Coordinator, cfg Config) (*Agent, error) {
	if cfg.Address == "" {
		return nil, errors.New("agent: host address is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.CacheBytes <= 0 {
		cfg.CacheBytes = DefaultCacheBytes
	}
	if cfg.PartitionBytes <= 0 {
		cfg.PartitionBytes = DefaultPartitionBytes
	}

	hot, err := cache.NewMemoryBoundLRU[partitionKey, partitionData](cfg.CacheBytes, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create partition cache: %w", err)
	}

	return &Agent{
		address:        cfg.Address,
		coordinator:    c,
		pollInterval:   cfg.PollInterval,
		partitionBytes: cfg.PartitionBytes,
		load:           cfg.Load,
		hot:            hot,
		logger:         log.WithHost(log.WithComponent("agent"), cfg.Address),
		stopCh:         make(chan struct{}),
	}, nil
}

// Address returns the host address the agent runs for
func (a *Agent) Address() string {
	return a.address
}

// Online moves an OFFLINE host to IDLE, as an agent does when it comes up.
// A host left UPDATING by an interrupted update also comes up IDLE.
func (a *Agent) Online() error {
	host, err := a.coordinator.GetHost(a.address)
	if err != nil {
		return fmt.Errorf("failed to get host: %w", err)
	}
	if host.State != types.HostStateOffline && host.State != types.HostStateUpdating {
		return nil
	}
	return a.setState(types.HostStateIdle)
}

// Offline marks the host OFFLINE and drops its hot partitions
func (a *Agent) Offline() error {
	a.hot.Purge()
	return a.setState(types.HostStateOffline)
}

// Start brings the host online and executes commands until Stop or ctx ends
func (a *Agent) Start(ctx context.Context) error {
	if err := a.Online(); err != nil {
		return err
	}

	a.wg.Add(1)
	go a.run(ctx)
	return nil
}

// Stop stops the command loop
func (a *Agent) Stop() {
	a.stopOnce.Do(func() { close(a.stopCh) })
	a.wg.Wait()
}

func (a *Agent) run(ctx context.Context) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// drain everything queued since the last poll
			for {
				executed, err := a.Step(ctx)
				if err != nil {
					a.logger.Error().Err(err).Msg("Command failed")
					break
				}
				if !executed {
					break
				}
			}
		case <-ctx.Done():
			return
		case <-a.stopCh:
			return
		}
	}
}

// Step executes the next queued command, reporting whether there was one.
// The command is completed even when it fails, so the conductor can reissue it.
func (a *Agent) Step(ctx context.Context) (bool, error) {
	a.stepMu.Lock()
	defer a.stepMu.Unlock()

	cmd, err := a.coordinator.NextCommand(a.address)
	if err != nil {
		return false, fmt.Errorf("failed to dequeue command: %w", err)
	}
	if cmd == nil {
		return false, nil
	}

	execErr := a.execute(ctx, *cmd)
	if err := a.coordinator.CompleteCommand(a.address); err != nil {
		return true, fmt.Errorf("failed to complete %s: %w", *cmd, err)
	}

	metrics.AgentCommandsExecuted.WithLabelValues(string(*cmd)).Inc()
	if execErr != nil {
		return true, fmt.Errorf("failed to execute %s: %w", *cmd, execErr)
	}
	a.logger.Debug().Str("command", string(*cmd)).Msg("Executed command")
	return true, nil
}

func (a *Agent) execute(ctx context.Context, cmd types.HostCommand) error {
	switch cmd {
	case types.CommandGoToIdle:
		return a.setState(types.HostStateIdle)
	case types.CommandServeData:
		return a.setState(types.HostStateServing)
	case types.CommandExecuteUpdate:
		return a.update(ctx)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// update loads every assigned partition at its target version, then goes idle
func (a *Agent) update(ctx context.Context) error {
	if err := a.setState(types.HostStateUpdating); err != nil {
		return err
	}

	err := a.loadPartitions(ctx)
	if stateErr := a.setState(types.HostStateIdle); stateErr != nil && err == nil {
		err = stateErr
	}
	return err
}

func (a *Agent) loadPartitions(ctx context.Context) error {
	host, err := a.coordinator.GetHost(a.address)
	if err != nil {
		return fmt.Errorf("failed to get host: %w", err)
	}
	rg, err := a.coordinator.GetRingGroup(host.RingGroup)
	if err != nil {
		return fmt.Errorf("failed to get ring group %s: %w", host.RingGroup, err)
	}
	dg, err := a.coordinator.GetDomainGroup(rg.DomainGroup)
	if err != nil {
		return fmt.Errorf("failed to get domain group %s: %w", rg.DomainGroup, err)
	}

	loaded := 0
	for _, hd := range host.Domains {
		target, ok := dg.Versions[hd.Domain]
		if !ok {
			continue
		}
		for _, p := range hd.Partitions {
			if err := ctx.Err(); err != nil {
				return err
			}
			if p.CurrentVersion != nil && *p.CurrentVersion == target {
				continue
			}
			if a.load != nil {
				if err := a.load(ctx, hd.Domain, p.Number, target); err != nil {
					return fmt.Errorf("failed to load %s partition %d version %d: %w", hd.Domain, p.Number, target, err)
				}
			}
			if err := a.coordinator.SetPartitionVersion(a.address, hd.Domain, p.Number, target); err != nil {
				return fmt.Errorf("failed to record %s partition %d: %w", hd.Domain, p.Number, err)
			}
			a.hot.Put(partitionKey{hd.Domain, p.Number}, partitionData{version: target, size: a.partitionBytes})
			loaded++
		}
	}

	a.logger.Info().Int("partitions", loaded).Msg("Update complete")
	return nil
}

// HotVersion returns the version of a partition held in the agent's cache
func (a *Agent) HotVersion(domain string, partition int) (int, bool) {
	d, ok := a.hot.Get(partitionKey{domain, partition})
	return d.version, ok
}

func (a *Agent) setState(state types.HostState) error {
	if err := a.coordinator.SetHostState(a.address, state); err != nil {
		return fmt.Errorf("failed to set state %s: %w", state, err)
	}
	return nil
}
