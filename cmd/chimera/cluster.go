package main

import (
	"context"
	"fmt"

	"github.com/chimerahq/chimera/pkg/config"
	"github.com/chimerahq/chimera/pkg/orchestrator"
	"github.com/spf13/cobra"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Manage the Chimera worker fleet",
}

var clusterUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Build and run every worker container in the fleet",
	Long: `Reads the fleet topology and network settings from
CHIMERA_WORKERS_*/CHIMERA_NETWORK_* environment variables, validates it,
and idempotently creates the bridge network plus one container per
worker, wiring all-to-all DNS.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		topology, err := config.LoadTopology()
		if err != nil {
			return fmt.Errorf("loading topology: %w", err)
		}
		network := config.LoadNetworkConfig()

		fmt.Printf("Bringing up Chimera fleet (%d workers)...\n", len(topology.NodeNames))
		orc := orchestrator.New(topology, network)
		if err := orc.ServeAll(context.Background()); err != nil {
			return fmt.Errorf("bringing up fleet: %w", err)
		}

		fmt.Println("✓ Fleet is up")
		return nil
	},
}

func init() {
	clusterCmd.AddCommand(clusterUpCmd)
	rootCmd.AddCommand(clusterCmd)
}
