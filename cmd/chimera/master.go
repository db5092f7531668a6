package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chimerahq/chimera/pkg/chimera"
	"github.com/chimerahq/chimera/pkg/config"
	"github.com/spf13/cobra"
)

var masterCmd = &cobra.Command{
	Use:   "master",
	Short: "Master node operations",
}

var masterServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Bring up the fleet and serve a master",
	Long: `Brings up the worker fleet (equivalent to "chimera cluster up")
and then blocks serving the requested master kind: "aggregation" for
EnsembleMaster or "parameter_server" for ParameterServerMaster.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		learnerKind, _ := cmd.Flags().GetString("learner-kind")
		eta0, _ := cmd.Flags().GetFloat64("eta0")
		maxIter, _ := cmd.Flags().GetInt("max-iter")
		addr, _ := cmd.Flags().GetString("addr")
		skipOrchestration, _ := cmd.Flags().GetBool("skip-orchestration")

		topology, err := config.LoadTopology()
		if err != nil {
			return fmt.Errorf("loading topology: %w", err)
		}
		network := config.LoadNetworkConfig()
		policy := config.LoadEndpointPolicy()

		c := chimera.New(topology, network, policy)

		fmt.Printf("Serving %s master on %s...\n", kind, addr)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			fmt.Println("\nShutting down...")
			cancel()
		}()

		if skipOrchestration {
			m, err := c.Resolve(kind, learnerKind, eta0, maxIter)
			if err != nil {
				return err
			}
			return m.Serve(ctx, addr)
		}
		return c.Serve(ctx, kind, learnerKind, eta0, maxIter, addr)
	},
}

func init() {
	masterServeCmd.Flags().String("kind", "aggregation", "Master kind: aggregation or parameter_server")
	masterServeCmd.Flags().String("learner-kind", "regressor", "LinearLearner kind for parameter_server: regressor or classifier")
	masterServeCmd.Flags().Float64("eta0", 0.01, "Accepted for parameter_server but not used: the master's learner always runs with a near-zero eta0, and workers read CHIMERA_LEARNER_ETA0")
	masterServeCmd.Flags().Int("max-iter", 100, "Maximum parameter_server gradient updates (one more fit_step fan-out than this may run)")
	masterServeCmd.Flags().String("addr", "0.0.0.0:8000", "Address the master listens on")
	masterServeCmd.Flags().Bool("skip-orchestration", false, "Serve without first bringing up the container fleet (assumes it is already up)")

	masterCmd.AddCommand(masterServeCmd)
	rootCmd.AddCommand(masterCmd)
}
