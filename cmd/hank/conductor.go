package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rgeorge2/hank/pkg/agent"
	"github.com/rgeorge2/hank/pkg/api"
	"github.com/rgeorge2/hank/pkg/assigner"
	"github.com/rgeorge2/hank/pkg/conductor"
	"github.com/rgeorge2/hank/pkg/deploy"
	"github.com/rgeorge2/hank/pkg/log"
	"github.com/rgeorge2/hank/pkg/manager"
	"github.com/rgeorge2/hank/pkg/metrics"
	"github.com/spf13/cobra"
)

var conductorCmd = &cobra.Command{
	Use:   "conductor",
	Short: "Run the ring group conductor",
	Long: `Run the conductor loop over every ring group in the coordinator.

The conductor reacts to coordinator changes and also re-checks every ring
group on a fixed interval. With --embedded-agents it also runs a simulated
agent for each host, which is useful for trying out a layout on one machine.`,
	RunE: runConductor,
}

func init() {
	conductorCmd.Flags().Duration("interval", conductor.DefaultInterval, "Interval between passes without change events")
	conductorCmd.Flags().Int("min-observations", 0, "Consecutive fully serving observations before a host counts as serving")
	conductorCmd.Flags().Int("max-unavailable", conductor.DefaultMaxUnavailableReplicas, "Replicas of a partition that may be down at once")
	conductorCmd.Flags().String("api-addr", ":9090", "HTTP address for health, metrics and status (empty disables)")
	conductorCmd.Flags().Bool("embedded-agents", false, "Run a simulated agent for every host")
	conductorCmd.Flags().Duration("agent-poll", agent.DefaultPollInterval, "Command poll interval of embedded agents")

	rootCmd.AddCommand(conductorCmd)
}

func newTransitionFunction(cmd *cobra.Command) *conductor.TransitionFunction {
	minObservations, _ := cmd.Flags().GetInt("min-observations")
	maxUnavailable, _ := cmd.Flags().GetInt("max-unavailable")

	return conductor.NewTransitionFunction(
		assigner.NewModAssigner(),
		minObservations,
		conductor.WithMaxUnavailableReplicas(maxUnavailable),
	)
}

func runConductor(cmd *cobra.Command, args []string) error {
	interval, _ := cmd.Flags().GetDuration("interval")
	apiAddr, _ := cmd.Flags().GetString("api-addr")
	embedded, _ := cmd.Flags().GetBool("embedded-agents")
	agentPoll, _ := cmd.Flags().GetDuration("agent-poll")

	mgr, err := openManager(cmd)
	if err != nil {
		metrics.UpdateComponent(metrics.ComponentStorage, false, err.Error())
		return err
	}
	metrics.UpdateComponent(metrics.ComponentStorage, true, "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var agents []*agent.Agent
	if embedded {
		metrics.SetCriticalComponents(metrics.ComponentStorage, metrics.ComponentConductor, metrics.ComponentAgent)
		agents, err = startAgents(ctx, mgr, agentPoll)
		if err != nil {
			_ = mgr.Shutdown()
			return err
		}
	}

	c := conductor.NewConductor(mgr, newTransitionFunction(cmd), conductor.Config{
		Interval: interval,
		Broker:   mgr.GetEventBroker(),
	})
	c.Start(ctx)

	collector := metrics.NewCollector(mgr, interval)
	collector.Start()

	errCh := make(chan error, 1)
	var apiServer *api.Server
	if apiAddr != "" {
		apiServer = api.NewServer(mgr, deploy.NewDeployer(mgr, assigner.NewModAssigner()))
		go func() {
			if err := apiServer.Start(apiAddr); err != nil {
				errCh <- fmt.Errorf("API server error: %w", err)
			}
		}()
	}

	log.Logger.Info().
		Dur("interval", interval).
		Int("agents", len(agents)).
		Msg("Conductor is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigCh:
		log.Info("Shutting down")
	case runErr = <-errCh:
		log.Errorf("Shutting down", runErr)
	}

	c.Stop()
	collector.Stop()
	for _, a := range agents {
		a.Stop()
	}
	if apiServer != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = apiServer.Shutdown(shutdownCtx)
	}
	if err := mgr.Shutdown(); err != nil {
		return fmt.Errorf("failed to shutdown: %w", err)
	}
	return runErr
}

// startAgents starts a simulated agent for every host the coordinator knows
func startAgents(ctx context.Context, mgr *manager.Manager, poll time.Duration) ([]*agent.Agent, error) {
	hosts, err := mgr.ListHosts()
	if err != nil {
		return nil, fmt.Errorf("failed to list hosts: %w", err)
	}

	agents := make([]*agent.Agent, 0, len(hosts))
	for _, h := range hosts {
		a, err := agent.NewAgent(mgr, agent.Config{Address: h.Address, PollInterval: poll})
		if err != nil {
			return nil, err
		}
		if err := a.Start(ctx); err != nil {
			for _, started := range agents {
				started.Stop()
			}
			return nil, fmt.Errorf("failed to start agent %s: %w", h.Address, err)
		}
		agents = append(agents, a)
	}
	metrics.UpdateComponent(metrics.ComponentAgent, true, "")
	return agents, nil
}
