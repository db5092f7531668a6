package config

import (
	"fmt"
	"os"

	"github.com/chimerahq/chimera/pkg/api"
	"gopkg.in/yaml.v3"
)

// FleetManifest is the YAML resource "chimera apply -f" consumes: the
// whole fleet topology plus network settings in one file, for operators
// who would rather check a file into version control than export a dozen
// CHIMERA_WORKERS_*/CHIMERA_NETWORK_* environment variables by hand.
//
// This is Chimera's one and only resource kind, unlike the teacher's
// apply.go which dispatches on a generic Kind field across several
// resource types - Chimera only ever applies a fleet topology.
type FleetManifest struct {
	APIVersion string             `yaml:"apiVersion"`
	Kind       string             `yaml:"kind"`
	Metadata   ManifestMetadata   `yaml:"metadata"`
	Spec       FleetManifestSpec  `yaml:"spec"`
}

// ManifestMetadata carries the resource's name, mirroring the teacher's
// ResourceMetadata.
type ManifestMetadata struct {
	Name string `yaml:"name"`
}

// FleetManifestSpec is the manifest's body: the fleet topology and, if
// present, network overrides.
type FleetManifestSpec struct {
	Nodes      []FleetManifestNode `yaml:"nodes"`
	WorkerHost string              `yaml:"workerHost"`
	WorkerPort int                 `yaml:"workerPort"`
	Network    *FleetManifestNet   `yaml:"network"`
}

// FleetManifestNode describes one worker entry in the manifest.
type FleetManifestNode struct {
	Name       string `yaml:"name"`
	CPUShares  int    `yaml:"cpuShares"`
	MappedPort int    `yaml:"mappedPort"`
}

// FleetManifestNet overrides NetworkConfig defaults.
type FleetManifestNet struct {
	Name       string `yaml:"name"`
	Prefix     string `yaml:"prefix"`
	SubnetMask string `yaml:"subnetMask"`
}

// LoadFleetManifest reads and parses a fleet manifest file from disk.
func LoadFleetManifest(path string) (FleetManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FleetManifest{}, api.NewIOError(fmt.Sprintf("reading manifest %s: %v", path, err))
	}

	var manifest FleetManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return FleetManifest{}, api.NewConfigError(fmt.Sprintf("parsing manifest %s: %v", path, err))
	}
	if manifest.Kind != "" && manifest.Kind != "Fleet" {
		return FleetManifest{}, api.NewConfigError(fmt.Sprintf("unsupported manifest kind %q, expected \"Fleet\"", manifest.Kind))
	}
	return manifest, nil
}

// Topology translates the manifest into a validated Topology.
func (m FleetManifest) Topology() (Topology, error) {
	t := Topology{
		WorkerHost: m.Spec.WorkerHost,
		WorkerPort: m.Spec.WorkerPort,
	}
	if t.WorkerHost == "" {
		t.WorkerHost = "0.0.0.0"
	}
	if t.WorkerPort == 0 {
		t.WorkerPort = 80
	}
	for _, node := range m.Spec.Nodes {
		t.NodeNames = append(t.NodeNames, node.Name)
		t.CPUShares = append(t.CPUShares, node.CPUShares)
		t.MappedPorts = append(t.MappedPorts, node.MappedPort)
	}
	if err := t.Validate(); err != nil {
		return Topology{}, err
	}
	return t, nil
}

// NetworkConfig translates the manifest's network overrides, falling back
// to DefaultNetworkConfig for any field left blank.
func (m FleetManifest) NetworkConfig() NetworkConfig {
	cfg := DefaultNetworkConfig()
	if m.Spec.Network == nil {
		return cfg
	}
	if m.Spec.Network.Name != "" {
		cfg.Name = m.Spec.Network.Name
	}
	if m.Spec.Network.Prefix != "" {
		cfg.Prefix = m.Spec.Network.Prefix
	}
	if m.Spec.Network.SubnetMask != "" {
		cfg.SubnetMask = m.Spec.Network.SubnetMask
	}
	return cfg
}
