package main

import (
	"fmt"
	"os"

	"github.com/rgeorge2/hank/pkg/log"
	"github.com/rgeorge2/hank/pkg/manager"
	"github.com/rgeorge2/hank/pkg/metrics"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hank",
	Short: "Hank - ring group conductor",
	Long: `Hank keeps the rings of a partitioned key-value serving cluster on the
domain versions their domain group declares, rolling updates through the
hosts without dropping any partition below its serving replica floor.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		jsonOutput, _ := cmd.Flags().GetBool("log-json")

		log.Init(log.Config{
			Level:      log.ParseLevel(level),
			JSONOutput: jsonOutput,
			Output:     os.Stderr,
		})
		metrics.SetVersion(Version)
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Hank version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("data-dir", "./hank-data", "Coordinator data directory")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Log in JSON instead of console format")
}

// openManager opens the coordinator store under --data-dir
func openManager(cmd *cobra.Command) (*manager.Manager, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	mgr, err := manager.NewManager(&manager.Config{DataDir: dataDir})
	if err != nil {
		return nil, fmt.Errorf("failed to open coordinator: %w", err)
	}
	return mgr, nil
}
