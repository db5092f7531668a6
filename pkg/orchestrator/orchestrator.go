package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/chimerahq/chimera/pkg/config"
	"github.com/chimerahq/chimera/pkg/log"
	"github.com/google/uuid"
)

// DataFolder, TrainFeaturesFilename, and TrainLabelsFilename describe the
// persistent state layout inside every worker container, per spec.md §6.
const (
	DataFolder            = "data"
	TrainFeaturesFilename  = "X_train.csv"
	TrainLabelsFilename    = "y_train.csv"
	WorkersFolder          = "workers"
	workerDockerfileSource = `FROM golang:1.25 AS build
ARG CHIMERA_WORKERS_NODE_NAME
ARG CHIMERA_DATA_FOLDER
ARG TRAIN_FEATURES_FILENAME
ARG TRAIN_LABELS_FILENAME
ARG CHIMERA_WORKERS_NODES_NAMES
ARG CHIMERA_WORKERS_CPU_SHARES
ARG CHIMERA_WORKERS_MAPPED_PORTS
ARG CHIMERA_WORKERS_PORT
ARG CHIMERA_WORKERS_HOST

ENV CHIMERA_WORKERS_NODE_NAME=${CHIMERA_WORKERS_NODE_NAME}
ENV CHIMERA_WORKERS_PORT=${CHIMERA_WORKERS_PORT}
ENV CHIMERA_WORKERS_HOST=${CHIMERA_WORKERS_HOST}

WORKDIR /app
COPY . .
COPY {{.DataFolder}}/ ./{{.DataFolder}}/
RUN go build -o /usr/local/bin/chimera ./cmd/chimera

EXPOSE ${CHIMERA_WORKERS_PORT}
ENTRYPOINT ["/usr/local/bin/chimera", "worker", "serve"]
`
)

// dockerfileParams fills in the teacher-style template above.
type dockerfileParams struct {
	DataFolder string
}

// ContainerOrchestrator idempotently brings up the bridge network and the
// worker fleet, per spec.md §4.1.
type ContainerOrchestrator struct {
	Topology    config.Topology
	Network     config.NetworkConfig
	Runner      Runner
	BuildContextDir string // base dir in which per-worker build contexts are staged
}

// New creates a ContainerOrchestrator driving the real docker CLI.
func New(topology config.Topology, network config.NetworkConfig) *ContainerOrchestrator {
	return &ContainerOrchestrator{
		Topology: topology,
		Network:  network,
		Runner:   ExecRunner{},
	}
}

// ServeAll validates the topology, then idempotently creates the bridge
// network and (re)builds/(re)runs every worker container, wiring all-to-
// all DNS via /etc/hosts. Fails fast on the first error; partial fleets
// are the caller's problem to detect via health checks (spec.md §4.1).
func (o *ContainerOrchestrator) ServeAll(ctx context.Context) error {
	if err := o.Topology.Validate(); err != nil {
		return err
	}

	logger := log.WithComponent("orchestrator")
	logger.Info().Int("workers", len(o.Topology.NodeNames)).Msg("bringing up fleet")

	if err := o.createNetwork(ctx); err != nil {
		return err
	}

	for i := range o.Topology.NodeNames {
		if err := o.buildImage(ctx, i); err != nil {
			return err
		}
		if err := o.runContainer(ctx, i); err != nil {
			return err
		}
	}
	for i := range o.Topology.NodeNames {
		if err := o.wireDNS(ctx, i); err != nil {
			return err
		}
	}

	logger.Info().Msg("fleet is up")
	return nil
}

// createNetwork checks for an existing chimera-network (logging and
// skipping if found), otherwise creates it.
func (o *ContainerOrchestrator) createNetwork(ctx context.Context) error {
	out, err := o.Runner.Run(ctx, "docker", "network", "ls",
		"--filter", "name="+o.Network.Name, "--format", "{{.Name}}")
	if err != nil {
		return err
	}
	for _, line := range strings.Fields(string(out)) {
		if line == o.Network.Name {
			log.WithComponent("orchestrator").Info().Str("network", o.Network.Name).Msg("network already exists, skipping creation")
			return nil
		}
	}

	_, err = o.Runner.Run(ctx, "docker", "network", "create",
		"--driver=bridge",
		"--subnet="+o.Network.Subnet(),
		"--gateway="+o.Network.Gateway(),
		o.Network.Name,
	)
	return err
}

// buildImage renders a temporary build context for worker i and runs
// docker build against it, tagging the image with the node's own name.
func (o *ContainerOrchestrator) buildImage(ctx context.Context, i int) error {
	nodeName := o.Topology.NodeNames[i]

	buildDir, err := o.stageBuildContext()
	if err != nil {
		return err
	}

	args := []string{
		"build",
		"--build-arg", "CHIMERA_WORKERS_NODE_NAME=" + nodeName,
		"--build-arg", "CHIMERA_WORKERS_FOLDER=" + WorkersFolder,
		"--build-arg", "CHIMERA_DATA_FOLDER=" + DataFolder,
		"--build-arg", "TRAIN_FEATURES_FILENAME=" + TrainFeaturesFilename,
		"--build-arg", "TRAIN_LABELS_FILENAME=" + TrainLabelsFilename,
		"--build-arg", "CHIMERA_WORKERS_NODES_NAMES=" + strings.Join(o.Topology.NodeNames, ","),
		"--build-arg", "CHIMERA_WORKERS_CPU_SHARES=" + joinInts(o.Topology.CPUShares),
		"--build-arg", "CHIMERA_WORKERS_MAPPED_PORTS=" + joinInts(o.Topology.MappedPorts),
		"--build-arg", "CHIMERA_WORKERS_PORT=" + strconv.Itoa(o.Topology.WorkerPort),
		"--build-arg", "CHIMERA_WORKERS_HOST=" + o.Topology.WorkerHost,
		"-f", filepath.Join(buildDir, "Dockerfile.worker"),
		"-t", nodeName,
		buildDir,
	}
	_, err = o.Runner.Run(ctx, "docker", args...)
	return err
}

// stageBuildContext renders the worker Dockerfile template into a fresh
// temporary directory, named uniquely per build so concurrent builds
// (e.g. future multi-master deployments) never collide.
func (o *ContainerOrchestrator) stageBuildContext() (string, error) {
	base := o.BuildContextDir
	if base == "" {
		base = os.TempDir()
	}
	dir := filepath.Join(base, "chimera-build-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("staging build context: %w", err)
	}

	tmpl, err := template.New("Dockerfile.worker").Parse(workerDockerfileSource)
	if err != nil {
		return "", fmt.Errorf("parsing worker Dockerfile template: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, "Dockerfile.worker"))
	if err != nil {
		return "", fmt.Errorf("writing worker Dockerfile: %w", err)
	}
	defer f.Close()

	if err := tmpl.Execute(f, dockerfileParams{DataFolder: DataFolder}); err != nil {
		return "", fmt.Errorf("rendering worker Dockerfile: %w", err)
	}
	return dir, nil
}

// runContainer starts worker i, publishing its mapped port, attaching it
// to the bridge network at its deterministic IP, setting its CPU share
// weight, and adding its own self-hosts entry.
func (o *ContainerOrchestrator) runContainer(ctx context.Context, i int) error {
	nodeName := o.Topology.NodeNames[i]
	ip := o.Network.IP(i)

	args := []string{
		"run", "-d",
		"-p", fmt.Sprintf("%s:%d:%d/tcp", o.Topology.WorkerHost, o.Topology.MappedPorts[i], o.Topology.WorkerPort),
		"--name", nodeName,
		"--network", o.Network.Name,
		"--ip", ip,
		"--cpu-shares", strconv.Itoa(o.Topology.CPUShares[i]),
		"--add-host", nodeName + ":" + ip,
		nodeName,
	}
	_, err := o.Runner.Run(ctx, "docker", args...)
	return err
}

// wireDNS appends an /etc/hosts entry for every other worker's IP/name
// pair into container i, yielding all-to-all name resolution without a
// DNS daemon.
func (o *ContainerOrchestrator) wireDNS(ctx context.Context, i int) error {
	containerName := o.Topology.NodeNames[i]
	for j := range o.Topology.NodeNames {
		if i == j {
			continue
		}
		otherIP := o.Network.IP(j)
		otherName := o.Topology.NodeNames[j]

		_, err := o.Runner.Run(ctx, "docker", "exec", containerName,
			"sh", "-c", fmt.Sprintf("echo '%s %s' >> /etc/hosts", otherIP, otherName))
		if err != nil {
			return err
		}
		log.WithComponent("orchestrator").Debug().
			Str("container", containerName).Str("dns_name", otherName).Str("ip", otherIP).
			Msg("added DNS entry")
	}
	return nil
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ",")
}
