package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rgeorge2/hank/pkg/storage"
	"github.com/rgeorge2/hank/pkg/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a cluster layout file",
	Long: `Apply a cluster layout from a YAML file: domains, domain groups,
ring groups, rings and hosts. Existing records are kept; domain group
versions and ring group modes are updated to match the file.

Examples:
  # Declare a cluster
  hank apply -f cluster.yaml --data-dir /var/lib/hank`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "YAML file to apply (required)")
	_ = applyCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(applyCmd)
}

// ClusterConfig is the YAML cluster layout
type ClusterConfig struct {
	Domains      []DomainConfig      `yaml:"domains"`
	DomainGroups []DomainGroupConfig `yaml:"domainGroups"`
	RingGroups   []RingGroupConfig   `yaml:"ringGroups"`
}

type DomainConfig struct {
	Name       string `yaml:"name"`
	ID         int    `yaml:"id"`
	Partitions int    `yaml:"partitions"`
}

type DomainGroupConfig struct {
	Name     string         `yaml:"name"`
	Versions map[string]int `yaml:"versions"`
}

type RingGroupConfig struct {
	Name        string       `yaml:"name"`
	DomainGroup string       `yaml:"domainGroup"`
	Mode        string       `yaml:"mode,omitempty"`
	Rings       []RingConfig `yaml:"rings"`
}

// RingConfig declares one ring; Number defaults to the ring's position
type RingConfig struct {
	Number *int     `yaml:"number,omitempty"`
	Hosts  []string `yaml:"hosts"`
}

func runApply(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	cfg, err := loadCluster(filename)
	if err != nil {
		return err
	}

	mgr, err := openManager(cmd)
	if err != nil {
		return err
	}
	defer mgr.Shutdown()

	return applyCluster(mgr, cfg, cmd.OutOrStdout())
}

func loadCluster(filename string) (*ClusterConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return parseCluster(data)
}

func parseCluster(data []byte) (*ClusterConfig, error) {
	var cfg ClusterConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *ClusterConfig) validate() error {
	domains := make(map[string]bool)
	for _, d := range c.Domains {
		if d.Name == "" {
			return errors.New("domain name is required")
		}
		if d.Partitions <= 0 {
			return fmt.Errorf("domain %s: partitions must be positive", d.Name)
		}
		domains[d.Name] = true
	}

	groups := make(map[string]bool)
	for _, g := range c.DomainGroups {
		if g.Name == "" {
			return errors.New("domain group name is required")
		}
		for name, version := range g.Versions {
			if !domains[name] {
				return fmt.Errorf("domain group %s: unknown domain %s", g.Name, name)
			}
			if version < 0 {
				return fmt.Errorf("domain group %s: negative version for %s", g.Name, name)
			}
		}
		groups[g.Name] = true
	}

	hosts := make(map[string]string)
	for _, rg := range c.RingGroups {
		if rg.Name == "" {
			return errors.New("ring group name is required")
		}
		if !groups[rg.DomainGroup] {
			return fmt.Errorf("ring group %s: unknown domain group %q", rg.Name, rg.DomainGroup)
		}
		if rg.Mode != "" {
			if _, err := types.ParseConductorMode(rg.Mode); err != nil {
				return fmt.Errorf("ring group %s: %w", rg.Name, err)
			}
		}
		for _, ring := range rg.Rings {
			for _, address := range ring.Hosts {
				if owner, ok := hosts[address]; ok {
					return fmt.Errorf("host %s is declared twice (ring groups %s and %s)", address, owner, rg.Name)
				}
				hosts[address] = rg.Name
			}
		}
	}
	return nil
}

// applyCluster creates what is missing and updates versions and modes
func applyCluster(store storage.Store, cfg *ClusterConfig, out io.Writer) error {
	for _, d := range cfg.Domains {
		existing, err := store.GetDomain(d.Name)
		switch {
		case err == nil:
			if existing.NumPartitions != d.Partitions {
				return fmt.Errorf("domain %s has %d partitions, cannot change to %d", d.Name, existing.NumPartitions, d.Partitions)
			}
		case errors.Is(err, storage.ErrNotFound):
			if err := store.CreateDomain(&types.Domain{Name: d.Name, ID: d.ID, NumPartitions: d.Partitions}); err != nil {
				return fmt.Errorf("failed to create domain %s: %w", d.Name, err)
			}
			fmt.Fprintf(out, "✓ Domain created: %s (%d partitions)\n", d.Name, d.Partitions)
		default:
			return err
		}
	}

	for _, g := range cfg.DomainGroups {
		group := &types.DomainGroup{Name: g.Name, Versions: g.Versions}
		if group.Versions == nil {
			group.Versions = map[string]int{}
		}
		_, err := store.GetDomainGroup(g.Name)
		switch {
		case err == nil:
			if err := store.UpdateDomainGroup(group); err != nil {
				return fmt.Errorf("failed to update domain group %s: %w", g.Name, err)
			}
			fmt.Fprintf(out, "✓ Domain group updated: %s\n", g.Name)
		case errors.Is(err, storage.ErrNotFound):
			if err := store.CreateDomainGroup(group); err != nil {
				return fmt.Errorf("failed to create domain group %s: %w", g.Name, err)
			}
			fmt.Fprintf(out, "✓ Domain group created: %s\n", g.Name)
		default:
			return err
		}
	}

	for _, rg := range cfg.RingGroups {
		if err := applyRingGroup(store, rg, out); err != nil {
			return err
		}
	}
	return nil
}

func applyRingGroup(store storage.Store, cfg RingGroupConfig, out io.Writer) error {
	mode := types.ConductorModeDowntime
	if cfg.Mode != "" {
		mode = types.ConductorMode(cfg.Mode)
	}

	existing, err := store.GetRingGroup(cfg.Name)
	switch {
	case err == nil:
		if existing.Mode != mode || existing.DomainGroup != cfg.DomainGroup {
			existing.Mode = mode
			existing.DomainGroup = cfg.DomainGroup
			if err := store.UpdateRingGroup(existing); err != nil {
				return fmt.Errorf("failed to update ring group %s: %w", cfg.Name, err)
			}
			fmt.Fprintf(out, "✓ Ring group updated: %s (%s)\n", cfg.Name, mode)
		}
	case errors.Is(err, storage.ErrNotFound):
		if err := store.CreateRingGroup(&types.RingGroup{Name: cfg.Name, DomainGroup: cfg.DomainGroup, Mode: mode}); err != nil {
			return fmt.Errorf("failed to create ring group %s: %w", cfg.Name, err)
		}
		fmt.Fprintf(out, "✓ Ring group created: %s (%s)\n", cfg.Name, mode)
	default:
		return err
	}

	rings, err := store.ListRings(cfg.Name)
	if err != nil {
		return fmt.Errorf("failed to list rings: %w", err)
	}
	haveRing := make(map[int]bool, len(rings))
	for _, r := range rings {
		haveRing[r.Number] = true
	}

	for i, ring := range cfg.Rings {
		number := i
		if ring.Number != nil {
			number = *ring.Number
		}
		if !haveRing[number] {
			if err := store.CreateRing(&types.Ring{RingGroup: cfg.Name, Number: number}); err != nil {
				return fmt.Errorf("failed to create ring %s/%d: %w", cfg.Name, number, err)
			}
			haveRing[number] = true
			fmt.Fprintf(out, "✓ Ring created: %s/%d\n", cfg.Name, number)
		}

		for _, address := range ring.Hosts {
			h, err := store.GetHost(address)
			switch {
			case err == nil:
				if h.RingGroup != cfg.Name || h.Ring != number {
					return fmt.Errorf("host %s already belongs to %s/%d", address, h.RingGroup, h.Ring)
				}
			case errors.Is(err, storage.ErrNotFound):
				if err := store.CreateHost(&types.Host{Address: address, RingGroup: cfg.Name, Ring: number}); err != nil {
					return fmt.Errorf("failed to create host %s: %w", address, err)
				}
				fmt.Fprintf(out, "✓ Host created: %s (%s/%d)\n", address, cfg.Name, number)
			default:
				return err
			}
		}
	}
	return nil
}
