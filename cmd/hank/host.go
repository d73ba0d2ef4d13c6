package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/rgeorge2/hank/pkg/types"
	"github.com/spf13/cobra"
)

// Host commands are operator overrides. In normal operation host agents own
// host state and drain their own queues.
var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Inspect and override hosts",
}

var hostListCmd = &cobra.Command{
	Use:   "list",
	Short: "List hosts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ringGroup, _ := cmd.Flags().GetString("ring-group")

		mgr, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer mgr.Shutdown()

		hosts, err := mgr.ListHosts()
		if err != nil {
			return fmt.Errorf("failed to list hosts: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ADDRESS\tRING GROUP\tRING\tSTATE\tCOMMAND\tQUEUE\tPARTITIONS")
		for _, h := range hosts {
			if ringGroup != "" && h.RingGroup != ringGroup {
				continue
			}
			current := "-"
			if h.CurrentCommand != nil {
				current = string(*h.CurrentCommand)
			}
			queue := make([]string, len(h.CommandQueue))
			for i, c := range h.CommandQueue {
				queue[i] = string(c)
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%d\n",
				h.Address, h.RingGroup, h.Ring, h.State, current, strings.Join(queue, ","), h.NumPartitions())
		}
		return w.Flush()
	},
}

var hostStateCmd = &cobra.Command{
	Use:   "state",
	Short: "Force a host's state",
	RunE: func(cmd *cobra.Command, args []string) error {
		address, _ := cmd.Flags().GetString("address")
		stateName, _ := cmd.Flags().GetString("state")

		state, err := types.ParseHostState(strings.ToUpper(stateName))
		if err != nil {
			return err
		}

		mgr, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer mgr.Shutdown()

		if err := mgr.SetHostState(address, state); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is now %s\n", address, state)
		return nil
	},
}

var hostEnqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Queue a command for a host",
	RunE: func(cmd *cobra.Command, args []string) error {
		address, _ := cmd.Flags().GetString("address")
		commandName, _ := cmd.Flags().GetString("command")

		command, err := types.ParseHostCommand(strings.ToUpper(commandName))
		if err != nil {
			return err
		}

		mgr, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer mgr.Shutdown()

		if err := mgr.EnqueueCommand(address, command); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s queued for %s\n", command, address)
		return nil
	},
}

var hostClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop a host's queued commands",
	RunE: func(cmd *cobra.Command, args []string) error {
		address, _ := cmd.Flags().GetString("address")

		mgr, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer mgr.Shutdown()

		if err := mgr.ClearCommandQueue(address); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Command queue of %s cleared\n", address)
		return nil
	},
}

func init() {
	hostListCmd.Flags().String("ring-group", "", "Only hosts of this ring group")

	for _, c := range []*cobra.Command{hostStateCmd, hostEnqueueCmd, hostClearCmd} {
		c.Flags().String("address", "", "Host address (required)")
		_ = c.MarkFlagRequired("address")
	}
	hostStateCmd.Flags().String("state", "", "OFFLINE, IDLE, UPDATING or SERVING (required)")
	_ = hostStateCmd.MarkFlagRequired("state")
	hostEnqueueCmd.Flags().String("command", "", "GO_TO_IDLE, EXECUTE_UPDATE or SERVE_DATA (required)")
	_ = hostEnqueueCmd.MarkFlagRequired("command")

	hostCmd.AddCommand(hostListCmd, hostStateCmd, hostEnqueueCmd, hostClearCmd)
	rootCmd.AddCommand(hostCmd)
}
