package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/chimerahq/chimera/pkg/api"
)

// Topology is the fleet's immutable node layout: parallel slices of node
// names, CPU shares, and host-mapped ports, plus the bind address and
// container-internal port every worker listens on.
type Topology struct {
	NodeNames   []string
	CPUShares   []int
	MappedPorts []int
	WorkerHost  string
	WorkerPort  int
}

// NetworkConfig describes the private bridge network the orchestrator
// stands the fleet up on.
type NetworkConfig struct {
	Name       string
	Prefix     string
	SubnetMask string
}

// EndpointPolicy governs outbound master-to-worker HTTP calls.
type EndpointPolicy struct {
	MaxRetries int
	Timeout    time.Duration
}

// DefaultNetworkConfig returns spec.md §6's documented defaults.
func DefaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		Name:       "chimera-network",
		Prefix:     "192.168.10",
		SubnetMask: "23",
	}
}

// DefaultEndpointPolicy returns a conservative outbound-call policy.
func DefaultEndpointPolicy() EndpointPolicy {
	return EndpointPolicy{MaxRetries: 3, Timeout: 30 * time.Second}
}

// Validate enforces the fleet topology invariants from spec.md §3:
// parallel slices must agree in length, and every CPU share must be an
// integer >= 2. It fails fast with a single aggregate message, matching
// the original _sanity_checks behavior of raising on the first violated
// invariant.
func (t Topology) Validate() error {
	if len(t.NodeNames) != len(t.CPUShares) || len(t.NodeNames) != len(t.MappedPorts) {
		return api.NewConfigError("number of nodes, number of hosts names and CPU relative weights must be equal")
	}
	for _, shares := range t.CPUShares {
		if shares < 2 {
			return api.NewConfigError("all CPU_SHARES values must be integers and greater than or equal to 2")
		}
	}
	seen := make(map[int]bool, len(t.MappedPorts))
	for _, port := range t.MappedPorts {
		if seen[port] {
			return api.NewConfigError(fmt.Sprintf("mapped port %d is used by more than one worker", port))
		}
		seen[port] = true
	}
	return nil
}

// IP returns the bridge-network address assigned to worker i:
// NETWORK_PREFIX.(i+2), per spec.md §3.
func (n NetworkConfig) IP(i int) string {
	return fmt.Sprintf("%s.%d", n.Prefix, i+2)
}

// Subnet returns the network's CIDR block, NETWORK_PREFIX.0/SUBNET_MASK.
func (n NetworkConfig) Subnet() string {
	return fmt.Sprintf("%s.0/%s", n.Prefix, n.SubnetMask)
}

// Gateway returns the bridge network's gateway address, NETWORK_PREFIX.1.
func (n NetworkConfig) Gateway() string {
	return fmt.Sprintf("%s.1", n.Prefix)
}

// LoadTopology reads CHIMERA_WORKERS_* from the environment and returns a
// validated Topology. Length/value errors are wrapped as ConfigError.
func LoadTopology() (Topology, error) {
	names, err := jsonStringList(os.Getenv("CHIMERA_WORKERS_NODES_NAMES"))
	if err != nil {
		return Topology{}, api.NewConfigError("CHIMERA_WORKERS_NODES_NAMES: " + err.Error())
	}
	shares, err := jsonIntList(os.Getenv("CHIMERA_WORKERS_CPU_SHARES"))
	if err != nil {
		return Topology{}, api.NewConfigError("CHIMERA_WORKERS_CPU_SHARES: " + err.Error())
	}
	ports, err := jsonIntList(os.Getenv("CHIMERA_WORKERS_MAPPED_PORTS"))
	if err != nil {
		return Topology{}, api.NewConfigError("CHIMERA_WORKERS_MAPPED_PORTS: " + err.Error())
	}

	t := Topology{
		NodeNames:   names,
		CPUShares:   shares,
		MappedPorts: ports,
		WorkerHost:  envOr("CHIMERA_WORKERS_HOST", "0.0.0.0"),
		WorkerPort:  envIntOr("CHIMERA_WORKERS_PORT", 80),
	}
	if err := t.Validate(); err != nil {
		return Topology{}, err
	}
	return t, nil
}

// LoadNetworkConfig reads CHIMERA_NETWORK_* from the environment, falling
// back to spec.md §6's defaults.
func LoadNetworkConfig() NetworkConfig {
	cfg := DefaultNetworkConfig()
	if v := os.Getenv("CHIMERA_NETWORK_NAME"); v != "" {
		cfg.Name = v
	}
	if v := os.Getenv("CHIMERA_NETWORK_PREFIX"); v != "" {
		cfg.Prefix = v
	}
	if v := os.Getenv("CHIMERA_NETWORK_SUBNET_MASK"); v != "" {
		cfg.SubnetMask = v
	}
	return cfg
}

// LoadEndpointPolicy reads CHIMERA_WORKERS_ENDPOINTS_* from the
// environment, falling back to DefaultEndpointPolicy.
func LoadEndpointPolicy() EndpointPolicy {
	policy := DefaultEndpointPolicy()
	if v := envIntOr("CHIMERA_WORKERS_ENDPOINTS_MAX_RETRIES", -1); v >= 0 {
		policy.MaxRetries = v
	}
	if v := os.Getenv("CHIMERA_WORKERS_ENDPOINTS_TIMEOUT"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil {
			policy.Timeout = time.Duration(seconds) * time.Second
		}
	}
	return policy
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

// jsonStringList decodes a JSON array-of-strings env var, e.g.
// `["worker-0","worker-1"]`. An empty input yields an empty, non-nil list.
func jsonStringList(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("expected a JSON list of strings: %w", err)
	}
	return out, nil
}

// jsonIntList decodes a JSON array-of-integers env var, e.g. `[2,2,4]`.
func jsonIntList(raw string) ([]int, error) {
	if raw == "" {
		return []int{}, nil
	}
	var out []int
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("expected a JSON list of integers: %w", err)
	}
	return out, nil
}
