package main

import (
	"context"
	"fmt"

	"github.com/chimerahq/chimera/pkg/config"
	"github.com/chimerahq/chimera/pkg/orchestrator"
	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a fleet manifest",
	Long: `Apply a Chimera fleet manifest from a YAML file.

Example:
  # Bring up the fleet described in fleet.yaml
  chimera apply -f fleet.yaml`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "fleet manifest YAML file to apply (required)")
	_ = applyCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	manifest, err := config.LoadFleetManifest(filename)
	if err != nil {
		return fmt.Errorf("loading manifest: %w", err)
	}

	topology, err := manifest.Topology()
	if err != nil {
		return fmt.Errorf("manifest topology: %w", err)
	}
	network := manifest.NetworkConfig()

	fmt.Printf("Applying fleet %q (%d workers)...\n", manifest.Metadata.Name, len(topology.NodeNames))
	orc := orchestrator.New(topology, network)
	if err := orc.ServeAll(context.Background()); err != nil {
		return fmt.Errorf("applying fleet: %w", err)
	}

	fmt.Printf("✓ Fleet %q applied\n", manifest.Metadata.Name)
	return nil
}
