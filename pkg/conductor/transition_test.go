package conductor

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/rgeorge2/hank/pkg/assigner"
	"github.com/rgeorge2/hank/pkg/storage"
	"github.com/rgeorge2/hank/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsFullyServing(t *testing.T) {
	tf := NewTransitionFunction(nil, 1)

	h0 := &types.Host{Address: "localhost:1", State: types.HostStateIdle}
	h1 := &types.Host{Address: "localhost:2", State: types.HostStateIdle}
	assert.False(t, tf.IsFullyServing(h0, true))
	assert.False(t, tf.IsFullyServing(h1, true))

	h0.State = types.HostStateServing
	assert.False(t, tf.IsFullyServing(h0, true), "first observation only counts")
	assert.False(t, tf.IsFullyServing(h1, true))

	h1.State = types.HostStateServing
	assert.True(t, tf.IsFullyServing(h0, true))
	assert.False(t, tf.IsFullyServing(h1, true))
	assert.True(t, tf.IsFullyServing(h1, true))

	h0.CommandQueue = []types.HostCommand{types.CommandGoToIdle}
	assert.False(t, tf.IsFullyServing(h0, true))

	h0.CurrentCommand = types.Command(types.CommandGoToIdle)
	h0.CommandQueue = nil
	assert.False(t, tf.IsFullyServing(h0, true))

	// a failed check resets the count
	h0.CurrentCommand = nil
	assert.False(t, tf.IsFullyServing(h0, true))
	assert.True(t, tf.IsFullyServing(h0, true))
}

func TestIsFullyServingNonStrict(t *testing.T) {
	tf := NewTransitionFunction(nil, 5)

	tests := []struct {
		name string
		host *types.Host
		want bool
	}{
		{"serving", &types.Host{State: types.HostStateServing}, true},
		{"idle", &types.Host{State: types.HostStateIdle}, false},
		{"updating", &types.Host{State: types.HostStateUpdating}, false},
		{"offline", &types.Host{State: types.HostStateOffline}, false},
		{"serving with queued command", &types.Host{State: types.HostStateServing, CommandQueue: []types.HostCommand{types.CommandGoToIdle}}, false},
		{"serving with current command", &types.Host{State: types.HostStateServing, CurrentCommand: types.Command(types.CommandServeData)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.host.Address = "h:1"
			assert.Equal(t, tt.want, tf.IsFullyServing(tt.host, false))
		})
	}
}

func TestIsRingFullyServing(t *testing.T) {
	tf := NewTransitionFunction(nil, 0)
	ring := &types.RingSnapshot{
		Ring: &types.Ring{Number: 0},
		Hosts: []*types.Host{
			{Address: "a:1", State: types.HostStateServing},
			{Address: "b:1", State: types.HostStateServing},
		},
	}
	assert.True(t, tf.IsRingFullyServing(ring, false))
	assert.True(t, tf.IsRingFullyServing(ring, true))

	ring.Hosts[1].CommandQueue = []types.HostCommand{types.CommandGoToIdle}
	assert.False(t, tf.IsRingFullyServing(ring, false))

	strict := NewTransitionFunction(nil, 1)
	ring.Hosts[1].CommandQueue = nil
	assert.False(t, strict.IsRingFullyServing(ring, true))
	assert.True(t, strict.IsRingFullyServing(ring, true))
}

func TestNothingToDo(t *testing.T) {
	f := newFixture(t)
	f.setTarget(v1)

	f.setUpRing(0, v1, v1, types.HostStateServing)
	f.setUpRing(1, v1, v1, types.HostStateServing)
	f.setUpRing(2, v1, v1, types.HostStateServing)

	result := f.run()
	assert.True(t, result.Empty())
	f.assertCommands(result, nil)
}

func TestKickstartAllRings(t *testing.T) {
	f := newFixture(t)
	f.setTarget(v1)

	f.setUpRing(0, nil, nil, types.HostStateIdle)
	f.setUpRing(1, nil, nil, types.HostStateIdle)
	f.setUpRing(2, nil, nil, types.HostStateIdle)

	f.assertAssigned(v1, false, false, false, false, false, false)

	result := f.run()

	f.assertAssigned(v1, true, true, true, true, true, true)
	f.assertCommands(result, nil)
	assert.Len(t, result.Assignments, 6)

	result = f.run()
	f.assertCommands(result, map[string]types.HostCommand{
		"localhost:1": types.CommandExecuteUpdate,
		"localhost:2": types.CommandExecuteUpdate,
		"localhost:3": types.CommandExecuteUpdate,
		"localhost:4": types.CommandExecuteUpdate,
		"localhost:5": types.CommandExecuteUpdate,
		"localhost:6": types.CommandExecuteUpdate,
	})
	assert.Empty(t, result.Assignments)
}

func TestTakesDownFirstRingForAssignmentWhenStartingUpdate(t *testing.T) {
	f := newFixture(t)
	f.setTarget(v3)

	f.setUpRing(0, v2, v2, types.HostStateServing)
	f.setUpRing(1, v2, v2, types.HostStateServing)
	f.setUpRing(2, v2, v2, types.HostStateServing)

	result := f.run()
	f.assertCommands(result, map[string]types.HostCommand{
		"localhost:1": types.CommandGoToIdle,
		"localhost:2": types.CommandGoToIdle,
	})
	f.assertAssigned(v3, false, false, false, false, false, false)

	// hosts go idle
	f.nextCommand("localhost:1")
	f.nextCommand("localhost:2")
	f.setState("localhost:1", types.HostStateIdle)
	f.setState("localhost:2", types.HostStateIdle)

	result = f.run()
	f.assertAssigned(v3, true, true, false, false, false, false)
	f.assertCommands(result, nil)
}

func TestTakesDownFirstRingForUpdateWhenStartingUpdate(t *testing.T) {
	f := newFixture(t)
	f.setTarget(v2)

	f.setUpRing(0, v1, v2, types.HostStateServing)
	f.setUpRing(1, v1, v2, types.HostStateServing)
	f.setUpRing(2, v1, v2, types.HostStateServing)

	result := f.run()
	f.assertCommands(result, map[string]types.HostCommand{
		"localhost:1": types.CommandGoToIdle,
		"localhost:2": types.CommandGoToIdle,
	})

	f.nextCommand("localhost:1")
	f.nextCommand("localhost:2")
	f.setState("localhost:1", types.HostStateIdle)
	f.setState("localhost:2", types.HostStateIdle)

	result = f.run()
	f.assertCommands(result, map[string]types.HostCommand{
		"localhost:1": types.CommandExecuteUpdate,
		"localhost:2": types.CommandExecuteUpdate,
	})
}

func TestAssignWhenOneHostIsServing(t *testing.T) {
	f := newFixture(t)
	f.setTarget(v3)

	f.setUpRing(0, v1, v1, types.HostStateIdle)
	f.setState("localhost:2", types.HostStateServing)
	f.setUpRing(1, v1, v1, types.HostStateServing)
	f.setUpRing(2, v1, v1, types.HostStateServing)

	result := f.run()
	assert.True(t, f.isAssigned(0, "localhost:1", v3))
	assert.False(t, f.isAssigned(0, "localhost:2", v3))
	f.assertCommands(result, map[string]types.HostCommand{
		"localhost:2": types.CommandGoToIdle,
	})

	f.nextCommand("localhost:2")
	f.setState("localhost:2", types.HostStateIdle)

	result = f.run()
	assert.True(t, f.isAssigned(0, "localhost:1", v3))
	assert.True(t, f.isAssigned(0, "localhost:2", v3))
	f.assertCommands(result, map[string]types.HostCommand{
		"localhost:1": types.CommandExecuteUpdate,
	})
}

func TestAssignWhenOneHostIsUpdating(t *testing.T) {
	f := newFixture(t)
	f.setTarget(v3)

	f.setUpRing(0, v1, v1, types.HostStateIdle)
	f.setState("localhost:2", types.HostStateUpdating)
	f.setUpRing(1, v1, v1, types.HostStateServing)
	f.setUpRing(2, v1, v1, types.HostStateServing)

	result := f.run()
	assert.True(t, f.isAssigned(0, "localhost:1", v3))
	assert.False(t, f.isAssigned(0, "localhost:2", v3))
	f.assertCommands(result, nil)
}

func TestAssignIdleRing(t *testing.T) {
	f := newFixture(t)
	f.setTarget(v3)

	f.setUpRing(0, v1, v1, types.HostStateIdle)
	f.setUpRing(1, v1, v1, types.HostStateServing)
	f.setUpRing(2, v1, v1, types.HostStateServing)

	result := f.run()
	f.assertAssigned(v3, true, true, false, false, false, false)
	f.assertCommands(result, nil)
}

func TestTakeDownModifiedRing(t *testing.T) {
	f := newFixture(t)
	f.setTarget(v1)

	f.setUpRing(0, v1, nil, types.HostStateServing)
	f.setUpRing(1, v1, v1, types.HostStateServing)
	f.setUpRing(2, v1, v1, types.HostStateServing)

	result := f.run()
	f.assertCommands(result, map[string]types.HostCommand{
		"localhost:1": types.CommandGoToIdle,
		"localhost:2": types.CommandGoToIdle,
	})
}

func TestAssignModifiedRing(t *testing.T) {
	f := newFixture(t)
	f.setTarget(v1)

	f.setUpRing(0, v1, nil, types.HostStateIdle)
	f.setUpRing(1, v1, v1, types.HostStateServing)
	f.setUpRing(2, v1, v1, types.HostStateServing)

	result := f.run()
	assert.True(t, f.isAssigned(0, "localhost:1", v1))
	assert.True(t, f.isAssigned(0, "localhost:2", v1))
	f.assertCommands(result, nil)
}

func TestReassignProactivelyWhenHostsAreOffline(t *testing.T) {
	f := newFixture(t)
	f.setTarget(v1)

	f.setUpRing(0, v1, v1, types.HostStateServing)
	f.setUpRing(1, v1, v1, types.HostStateServing)
	f.setUpRing(2, v1, v1, types.HostStateServing)

	assert.True(t, f.isAssigned(0, "localhost:1", v1))
	assert.True(t, f.isAssigned(0, "localhost:2", v1))

	f.setState("localhost:1", types.HostStateOffline)

	assert.True(t, f.isAssigned(0, "localhost:1", v1))
	assert.True(t, f.isAssigned(0, "localhost:2", v1))

	f.setMode(types.ConductorModeProactive)

	// the switch alone changes the plan
	assert.False(t, f.isAssigned(0, "localhost:1", v1))
	assert.False(t, f.isAssigned(0, "localhost:2", v1))

	result := f.run()
	f.assertCommands(result, map[string]types.HostCommand{
		"localhost:2": types.CommandGoToIdle,
	})

	// the agent reports idle before completing the command
	f.setState("localhost:2", types.HostStateIdle)

	result = f.run()
	assert.False(t, f.isAssigned(0, "localhost:1", v1))
	assert.True(t, f.isAssigned(0, "localhost:2", v1))
	assert.True(t, result.Assigned("localhost:2"))
	assert.Equal(t, 6, f.host("localhost:2").NumPartitions())

	result = f.run()
	f.assertCommands(result, map[string]types.HostCommand{
		"localhost:2": types.CommandExecuteUpdate,
	})
}

func TestExecuteUpdateWhenAssignedAndIdle(t *testing.T) {
	f := newFixture(t)
	f.setTarget(v2)

	f.setUpRing(0, v1, v2, types.HostStateIdle)
	f.setUpRing(1, v1, v1, types.HostStateServing)
	f.setUpRing(2, v1, v1, types.HostStateServing)

	result := f.run()
	f.assertCommands(result, map[string]types.HostCommand{
		"localhost:1": types.CommandExecuteUpdate,
		"localhost:2": types.CommandExecuteUpdate,
	})
}

func TestProactivelyServeDataWhenHostUpdated(t *testing.T) {
	f := newFixture(t)
	f.setTarget(v2)

	f.setUpRing(0, v1, v2, types.HostStateUpdating)
	f.setUpRing(1, v1, v2, types.HostStateServing)
	f.setUpRing(2, v1, v2, types.HostStateServing)

	f.setCurrentVersion("localhost:1", v2)
	f.setState("localhost:1", types.HostStateIdle)

	result := f.run()
	f.assertCommands(result, map[string]types.HostCommand{
		"localhost:1": types.CommandServeData,
	})
}

func TestServeDataWhenUpdated(t *testing.T) {
	f := newFixture(t)
	f.setTarget(v2)

	f.setUpRing(0, v2, v2, types.HostStateIdle)
	f.setUpRing(1, v1, v1, types.HostStateServing)
	f.setUpRing(2, v1, v1, types.HostStateServing)

	result := f.run()
	f.assertCommands(result, map[string]types.HostCommand{
		"localhost:1": types.CommandServeData,
		"localhost:2": types.CommandServeData,
	})
}

func TestTakeDownSecondRingWhenFirstIsUpdated(t *testing.T) {
	f := newFixture(t)
	f.setTarget(v2)

	f.setUpRing(0, v2, v2, types.HostStateServing)
	f.setUpRing(1, v1, v2, types.HostStateServing)
	f.setUpRing(2, v1, v2, types.HostStateServing)

	result := f.run()
	f.assertCommands(result, map[string]types.HostCommand{
		"localhost:3": types.CommandGoToIdle,
		"localhost:4": types.CommandGoToIdle,
	})
}

func TestServeDataWhenNotEnoughRingsAreFullyServing(t *testing.T) {
	f := newFixture(t)
	f.setTarget(v2)

	f.setUpRing(0, v1, v2, types.HostStateServing)
	f.setUpRing(1, v1, v1, types.HostStateIdle)
	f.setUpRing(2, v1, v2, types.HostStateIdle)

	result := f.run()
	f.assertCommands(result, map[string]types.HostCommand{
		"localhost:3": types.CommandServeData,
		"localhost:4": types.CommandServeData,
		"localhost:5": types.CommandServeData,
		"localhost:6": types.CommandServeData,
	})
}

func TestUpdateMultipleRingsWhenEnoughReplicasAreServing(t *testing.T) {
	f := newFixture(t)
	f.setTarget(v2)

	// r0: h0 SERVING up to date, h1 UPDATING
	f.setUpRing(0, v1, v2, types.HostStateServing)
	f.assignHost(0, "localhost:1", v2)
	f.setCurrentVersion("localhost:1", v2)
	f.setState("localhost:2", types.HostStateUpdating)
	f.setUpRing(1, v1, v1, types.HostStateServing)
	f.setUpRing(2, v1, v2, types.HostStateServing)

	result := f.run()
	f.assertCommands(result, map[string]types.HostCommand{
		"localhost:3": types.CommandGoToIdle,
	})
}

func TestTakeDownRingStillRecordingDroppedDomain(t *testing.T) {
	f := newFixture(t)
	f.setTarget(v2)

	// ring 0 already moved off domain2, the others still record it
	f.setUpRing(0, v2, v2, types.HostStateServing)
	f.setUpRing(1, v3, v3, types.HostStateServing)
	f.setUpRing(2, v3, v3, types.HostStateServing)

	result := f.run()
	f.assertCommands(result, map[string]types.HostCommand{
		"localhost:3": types.CommandGoToIdle,
		"localhost:4": types.CommandGoToIdle,
	})
}

func TestUnloadedPartitionsAreNotReplicas(t *testing.T) {
	f := newFixture(t)
	f.setTarget(v2)

	// ring 0 reports SERVING without having loaded anything
	f.setUpRing(0, nil, v1, types.HostStateServing)
	f.setUpRing(1, v1, v1, types.HostStateServing)
	f.setUpRing(2, v1, v1, types.HostStateServing)

	result := f.run()
	f.assertCommands(result, map[string]types.HostCommand{
		"localhost:1": types.CommandGoToIdle,
		"localhost:2": types.CommandGoToIdle,
	})
}

func TestManageTransitionsIdempotent(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture)
	}{
		{
			name: "taking down first ring",
			setup: func(f *fixture) {
				f.setTarget(v2)
				for ring := 0; ring < 3; ring++ {
					f.setUpRing(ring, v1, v2, types.HostStateServing)
				}
			},
		},
		{
			name: "updating idle ring",
			setup: func(f *fixture) {
				f.setTarget(v2)
				f.setUpRing(0, v1, v2, types.HostStateIdle)
				f.setUpRing(1, v1, v1, types.HostStateServing)
				f.setUpRing(2, v1, v1, types.HostStateServing)
			},
		},
		{
			name: "serving updated ring",
			setup: func(f *fixture) {
				f.setTarget(v2)
				f.setUpRing(0, v2, v2, types.HostStateIdle)
				f.setUpRing(1, v1, v1, types.HostStateServing)
				f.setUpRing(2, v1, v1, types.HostStateServing)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			first := f.run()
			require.NotEmpty(t, first.Commands)

			second := f.run()
			assert.True(t, second.Empty(), "second pass issued %+v", second.Commands)

			// no host holds the same command twice
			for _, h := range f.allHosts() {
				seen := make(map[types.HostCommand]bool)
				for _, cmd := range h.CommandQueue {
					assert.False(t, seen[cmd], "duplicate %s on %s", cmd, h.Address)
					seen[cmd] = true
				}
			}
		})
	}
}

func TestManageTransitionsNeverEnqueuesPendingCommand(t *testing.T) {
	f := newFixture(t)
	f.setTarget(v2)

	f.setUpRing(0, v2, v2, types.HostStateIdle)
	f.setUpRing(1, v2, v2, types.HostStateServing)
	f.setUpRing(2, v2, v2, types.HostStateServing)

	// SERVE_DATA already executing on one host, queued on the other
	require.NoError(t, f.store.EnqueueCommand("localhost:1", types.CommandServeData))
	f.nextCommand("localhost:1")
	require.NoError(t, f.store.EnqueueCommand("localhost:2", types.CommandServeData))

	result := f.run()
	assert.True(t, result.Empty())
	assert.Equal(t, []types.HostCommand{types.CommandServeData}, f.host("localhost:2").CommandQueue)
}

// TestManageTransitionsReplicaFloor walks random cluster states and checks that no
// pass takes a partition below the serving replica floor it started with
func TestManageTransitionsReplicaFloor(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	states := types.HostStates
	plans := []map[string]int{v1, v3}
	loaded := []map[string]int{nil, v1, v2, v3}

	for i := 0; i < 200; i++ {
		f := newFixture(t)
		target := []map[string]int{v1, v2, v3}[rnd.Intn(3)]
		f.setTarget(target)

		for ring, addresses := range ringHosts {
			f.setUpRing(ring, nil, plans[rnd.Intn(len(plans))], types.HostStateIdle)
			for _, address := range addresses {
				f.setState(address, states[rnd.Intn(len(states))])
				if current := loaded[rnd.Intn(len(loaded))]; current != nil {
					f.setCurrentVersion(address, current)
				}
			}
		}

		before := fullyServing(f.allHosts(), target)
		minServing := len(ringHosts) - DefaultMaxUnavailableReplicas

		f.run()

		after := fullyServing(f.allHosts(), target)
		for key, n := range before {
			assert.GreaterOrEqual(t, after[key], min(n, minServing), "iteration %d partition %v", i, key)
		}
	}
}

func TestManageTransitionsMaxUnavailableReplicas(t *testing.T) {
	f := newFixture(t)
	f.tf = NewTransitionFunction(assigner.NewModAssigner(), 0, WithMaxUnavailableReplicas(2))
	f.setTarget(v2)

	for ring := 0; ring < 3; ring++ {
		f.setUpRing(ring, v1, v2, types.HostStateServing)
	}

	// two replicas of every partition may go down at once
	result := f.run()
	f.assertCommands(result, map[string]types.HostCommand{
		"localhost:1": types.CommandGoToIdle,
		"localhost:2": types.CommandGoToIdle,
		"localhost:3": types.CommandGoToIdle,
		"localhost:4": types.CommandGoToIdle,
	})
}

func TestManageTransitionsMinObservations(t *testing.T) {
	f := newFixture(t)
	f.tf = NewTransitionFunction(assigner.NewModAssigner(), 1)
	f.setTarget(v2)

	f.setUpRing(0, v1, v2, types.HostStateServing)
	f.setUpRing(1, v2, v2, types.HostStateServing)
	f.setUpRing(2, v2, v2, types.HostStateServing)

	// nobody has been observed serving yet
	result := f.run()
	assert.True(t, result.Empty())

	result = f.run()
	f.assertCommands(result, map[string]types.HostCommand{
		"localhost:1": types.CommandGoToIdle,
		"localhost:2": types.CommandGoToIdle,
	})
}

func TestManageTransitionsForgetsDeletedHosts(t *testing.T) {
	f := newFixture(t)
	f.tf = NewTransitionFunction(assigner.NewModAssigner(), 1)
	f.setTarget(v1)
	for ring := 0; ring < 3; ring++ {
		f.setUpRing(ring, v1, v1, types.HostStateServing)
	}

	f.run()
	assert.Len(t, f.tf.observations[testRingGroup], 6)

	require.NoError(t, f.store.DeleteHost("localhost:6"))
	f.run()
	assert.Len(t, f.tf.observations[testRingGroup], 5)
	assert.NotContains(t, f.tf.observations[testRingGroup], "localhost:6")
}

func TestManageTransitionsErrors(t *testing.T) {
	t.Run("missing ring group", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.tf.ManageTransitions(context.Background(), f.store, "nope")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("missing domain", func(t *testing.T) {
		f := newFixture(t)
		f.setTarget(map[string]int{"domain9": 1})
		_, err := f.tf.ManageTransitions(context.Background(), f.store, testRingGroup)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("canceled context", func(t *testing.T) {
		f := newFixture(t)
		f.setTarget(v1)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := f.tf.ManageTransitions(ctx, f.store, testRingGroup)
		assert.True(t, errors.Is(err, context.Canceled))
	})

	t.Run("unknown state", func(t *testing.T) {
		f := newFixture(t)
		f.setTarget(v1)
		snapshot, err := LoadSnapshot(f.store, testRingGroup)
		require.NoError(t, err)
		snapshot.Rings[0].Hosts[0].State = types.HostState("NAPPING")
		_, err = f.tf.Apply(context.Background(), f.store, snapshot)
		assert.ErrorIs(t, err, ErrUnknownHostState)
	})
}

func TestLoadSnapshot(t *testing.T) {
	f := newFixture(t)
	f.setTarget(v3)

	snapshot, err := LoadSnapshot(f.store, testRingGroup)
	require.NoError(t, err)

	assert.Equal(t, types.ConductorModeDowntime, snapshot.RingGroup.Mode)
	require.Len(t, snapshot.Versions, 2)
	assert.Equal(t, "domain1", snapshot.Versions[0].Domain.Name)
	assert.Equal(t, "domain2", snapshot.Versions[1].Domain.Name)
	assert.Equal(t, map[string]int{"domain1": 2, "domain2": 1}, snapshot.Targets())

	require.Len(t, snapshot.Rings, 3)
	for i, ring := range snapshot.Rings {
		assert.Equal(t, i, ring.Ring.Number)
		require.Len(t, ring.Hosts, 2)
		assert.Equal(t, ringHosts[i][0], ring.Hosts[0].Address)
	}
	assert.Len(t, snapshot.Hosts(), 6)
}

func TestIsUpToDate(t *testing.T) {
	targets := map[string]int{"a": 2}

	tests := []struct {
		name    string
		domains []types.HostDomain
		want    bool
	}{
		{"no domains", nil, true},
		{"at target", []types.HostDomain{{Domain: "a", Partitions: []types.HostDomainPartition{{Number: 0, CurrentVersion: types.Version(2)}}}}, true},
		{"stale", []types.HostDomain{{Domain: "a", Partitions: []types.HostDomainPartition{{Number: 0, CurrentVersion: types.Version(1)}}}}, false},
		{"not loaded", []types.HostDomain{{Domain: "a", Partitions: []types.HostDomainPartition{{Number: 0}}}}, false},
		{"retired domain", []types.HostDomain{{Domain: "b", Partitions: []types.HostDomainPartition{{Number: 0, CurrentVersion: types.Version(2)}}}}, false},
		{"empty retired domain", []types.HostDomain{{Domain: "b"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUpToDate(&types.Host{Domains: tt.domains}, targets))
		})
	}
}
