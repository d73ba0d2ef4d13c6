package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/rgeorge2/hank/pkg/agent"
	"github.com/rgeorge2/hank/pkg/assigner"
	"github.com/rgeorge2/hank/pkg/conductor"
	"github.com/rgeorge2/hank/pkg/deploy"
	"github.com/rgeorge2/hank/pkg/manager"
	"github.com/rgeorge2/hank/pkg/storage"
	"github.com/rgeorge2/hank/pkg/types"
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate a cluster layout in memory",
	Long: `Load a cluster layout into an in-memory coordinator, attach a simulated
agent to every host, and run conductor passes until every ring group serves
its target versions. Each pass prints the commands and assignments it issued.

Examples:
  # Bring a fresh cluster up
  hank simulate -f cluster.yaml

  # Then roll users to version 2
  hank simulate -f cluster.yaml --deploy users=2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filename, _ := cmd.Flags().GetString("file")
		maxTicks, _ := cmd.Flags().GetInt("max-ticks")
		deploys, _ := cmd.Flags().GetStringToInt("deploy")

		cfg, err := loadCluster(filename)
		if err != nil {
			return err
		}

		_, err = simulate(cmd.Context(), cfg, simulation{
			tf:       newTransitionFunction(cmd),
			maxTicks: maxTicks,
			deploys:  deploys,
		}, cmd.OutOrStdout())
		return err
	},
}

func init() {
	simulateCmd.Flags().StringP("file", "f", "", "YAML cluster layout (required)")
	simulateCmd.Flags().Int("max-ticks", 100, "Give up after this many conductor passes per phase")
	simulateCmd.Flags().Int("min-observations", 0, "Consecutive fully serving observations before a host counts as serving")
	simulateCmd.Flags().Int("max-unavailable", conductor.DefaultMaxUnavailableReplicas, "Replicas of a partition that may be down at once")
	simulateCmd.Flags().StringToInt("deploy", nil, "After converging, deploy domain=version in every domain group declaring the domain")
	_ = simulateCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(simulateCmd)
}

type simulation struct {
	tf       *conductor.TransitionFunction
	maxTicks int
	deploys  map[string]int
}

// simulate converges the layout, applies each deploy and converges again.
// It returns the number of conductor passes per phase.
func simulate(ctx context.Context, cfg *ClusterConfig, sim simulation, out io.Writer) ([]int, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	mgr := manager.NewManagerWithStore(storage.NewMemoryStore())
	defer mgr.Shutdown()

	if err := applyCluster(mgr, cfg, io.Discard); err != nil {
		return nil, err
	}

	agents, err := simulatedAgents(mgr)
	if err != nil {
		return nil, err
	}

	s := &simulator{
		mgr:       mgr,
		conductor: conductor.NewConductor(mgr, sim.tf, conductor.Config{}),
		deployer:  deploy.NewDeployer(mgr, assigner.NewModAssigner()),
		agents:    agents,
		out:       out,
	}

	var phases []int
	ticks, err := s.converge(ctx, sim.maxTicks)
	if err != nil {
		return phases, err
	}
	phases = append(phases, ticks)

	domains := make([]string, 0, len(sim.deploys))
	for domain := range sim.deploys {
		domains = append(domains, domain)
	}
	sort.Strings(domains)

	for _, domain := range domains {
		version := sim.deploys[domain]
		if err := s.deploy(domain, version); err != nil {
			return phases, err
		}
		ticks, err := s.converge(ctx, sim.maxTicks)
		if err != nil {
			return phases, err
		}
		phases = append(phases, ticks)
	}
	return phases, nil
}

func simulatedAgents(mgr *manager.Manager) ([]*agent.Agent, error) {
	hosts, err := mgr.ListHosts()
	if err != nil {
		return nil, fmt.Errorf("failed to list hosts: %w", err)
	}

	agents := make([]*agent.Agent, 0, len(hosts))
	for _, h := range hosts {
		a, err := agent.NewAgent(mgr, agent.Config{Address: h.Address})
		if err != nil {
			return nil, err
		}
		if err := a.Online(); err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, nil
}

type simulator struct {
	mgr       *manager.Manager
	conductor *conductor.Conductor
	deployer  *deploy.Deployer
	agents    []*agent.Agent
	out       io.Writer
	tick      int
}

func (s *simulator) deploy(domain string, version int) error {
	groups, err := s.mgr.ListDomainGroups()
	if err != nil {
		return err
	}

	deployed := false
	for _, g := range groups {
		if _, ok := g.Versions[domain]; !ok {
			continue
		}
		if err := s.deployer.SetDomainVersion(g.Name, domain, version, false); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "deploy %s/%s=%d\n", g.Name, domain, version)
		deployed = true
	}
	if !deployed {
		return fmt.Errorf("no domain group declares domain %s", domain)
	}
	return nil
}

// converge runs passes until every ring group is converged
func (s *simulator) converge(ctx context.Context, maxTicks int) (int, error) {
	for pass := 1; pass <= maxTicks; pass++ {
		s.tick++

		groups, err := s.mgr.ListRingGroups()
		if err != nil {
			return pass, err
		}
		for _, g := range groups {
			result, err := s.conductor.RunRingGroup(ctx, g.Name)
			if err != nil {
				return pass, err
			}
			for _, address := range result.Assignments {
				fmt.Fprintf(s.out, "tick %d %s: assign %s\n", s.tick, g.Name, address)
			}
			for _, c := range result.Commands {
				fmt.Fprintf(s.out, "tick %d %s: ring %d %s <- %s\n", s.tick, g.Name, c.Ring, c.Host, c.Command)
			}
		}

		for _, a := range s.agents {
			for {
				executed, err := a.Step(ctx)
				if err != nil {
					return pass, err
				}
				if !executed {
					break
				}
			}
		}

		converged, err := s.converged(groups)
		if err != nil {
			return pass, err
		}
		if converged {
			fmt.Fprintf(s.out, "converged after %d passes\n", pass)
			return pass, nil
		}
	}
	return maxTicks, fmt.Errorf("not converged after %d passes", maxTicks)
}

func (s *simulator) converged(groups []*types.RingGroup) (bool, error) {
	for _, g := range groups {
		st, err := s.deployer.Status(g.Name)
		if err != nil {
			return false, err
		}
		if !st.Converged {
			return false, nil
		}
	}
	return true, nil
}
