package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/chimerahq/chimera/pkg/model"
	"github.com/chimerahq/chimera/pkg/orchestrator"
	"github.com/chimerahq/chimera/pkg/worker"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Worker node operations",
}

var workerServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve this node's worker HTTP surface",
	Long: `Serves either a PredictionWorker (ensemble fit/predict) or an
SGDWorker (parameter-server fit_request_data_sample/fit_step),
reading X_train.csv/y_train.csv from the data folder baked into the
worker image at build time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		workerKind := envOr("CHIMERA_WORKER_KIND", "prediction")
		modelKind := envOr("CHIMERA_MODEL_KIND", "regressor")
		host := envOr("CHIMERA_WORKERS_HOST", "0.0.0.0")
		port := envIntOr("CHIMERA_WORKERS_PORT", 80)
		bootstrap := envBoolOr("CHIMERA_BOOTSTRAP", false)
		eta0 := envFloatOr("CHIMERA_LEARNER_ETA0", 0.01)
		maxIter := envIntOr("CHIMERA_LEARNER_MAX_ITER", 100)

		xTrainPath := filepath.Join(orchestrator.DataFolder, orchestrator.TrainFeaturesFilename)
		yTrainPath := filepath.Join(orchestrator.DataFolder, orchestrator.TrainLabelsFilename)

		switch workerKind {
		case "prediction":
			w := worker.NewPredictionWorker(modelKind, xTrainPath, yTrainPath, host, port, bootstrap)
			switch modelKind {
			case "regressor":
				w.Regressor = model.NewLeastSquaresRegressor(0.01, 200)
			case "classifier":
				w.Classifier = model.NewLogisticClassifier(0.1, 200)
			default:
				return fmt.Errorf("unknown CHIMERA_MODEL_KIND: %s", modelKind)
			}
			fmt.Printf("Serving prediction worker (%s) on %s:%d\n", modelKind, host, port)
			return w.Serve()
		case "sgd":
			learner, err := model.NewLinearLearner(modelKind, eta0, maxIter)
			if err != nil {
				return err
			}
			w := worker.NewSGDWorker(learner, xTrainPath, yTrainPath, host, port)
			fmt.Printf("Serving SGD worker (%s) on %s:%d\n", modelKind, host, port)
			return w.Serve()
		default:
			return fmt.Errorf("unknown CHIMERA_WORKER_KIND: %s", workerKind)
		}
	},
}

func init() {
	workerCmd.AddCommand(workerServeCmd)
	rootCmd.AddCommand(workerCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloatOr(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBoolOr(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v == "1" || v == "true" || v == "TRUE" || v == "True"
}
