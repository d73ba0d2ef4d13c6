package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/rgeorge2/hank/pkg/assigner"
	"github.com/rgeorge2/hank/pkg/deploy"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ring group convergence",
	RunE: func(cmd *cobra.Command, args []string) error {
		ringGroup, _ := cmd.Flags().GetString("ring-group")

		mgr, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer mgr.Shutdown()

		names := []string{ringGroup}
		if ringGroup == "" {
			groups, err := mgr.ListRingGroups()
			if err != nil {
				return fmt.Errorf("failed to list ring groups: %w", err)
			}
			names = names[:0]
			for _, g := range groups {
				names = append(names, g.Name)
			}
		}

		d := deploy.NewDeployer(mgr, assigner.NewModAssigner())
		for _, name := range names {
			st, err := d.Status(name)
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), st)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().String("ring-group", "", "Ring group (default: all)")
	rootCmd.AddCommand(statusCmd)
}

func printStatus(out io.Writer, st *deploy.Status) {
	converged := "converging"
	if st.Converged {
		converged = "converged"
	}
	fmt.Fprintf(out, "Ring group %s (%s, %s): %s\n", st.RingGroup, st.DomainGroup, st.Mode, converged)
	fmt.Fprintf(out, "  Versions: %s\n", formatVersions(st.Versions))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  RING\tHOSTS\tUP TO DATE\tSERVING\tSTATES")
	for _, r := range st.Rings {
		fmt.Fprintf(w, "  %d\t%d\t%d\t%d\t%s\n", r.Number, r.Hosts, r.UpToDate, r.FullyServing, formatVersions(r.States))
	}
	_ = w.Flush()
}

// formatVersions renders a name -> count map in name order
func formatVersions(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, m[k]))
	}
	return strings.Join(parts, " ")
}
