package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopologyValidate(t *testing.T) {
	tests := []struct {
		name    string
		topo    Topology
		wantErr bool
	}{
		{
			name: "valid topology",
			topo: Topology{
				NodeNames:   []string{"worker-0", "worker-1"},
				CPUShares:   []int{2, 2},
				MappedPorts: []int{8081, 8082},
			},
			wantErr: false,
		},
		{
			name: "length mismatch fails before any container is started",
			topo: Topology{
				NodeNames:   []string{"a", "b"},
				CPUShares:   []int{2},
				MappedPorts: []int{81, 82},
			},
			wantErr: true,
		},
		{
			name: "cpu share below bound fails",
			topo: Topology{
				NodeNames:   []string{"a", "b"},
				CPUShares:   []int{1, 2},
				MappedPorts: []int{81, 82},
			},
			wantErr: true,
		},
		{
			name: "duplicate mapped port fails",
			topo: Topology{
				NodeNames:   []string{"a", "b"},
				CPUShares:   []int{2, 2},
				MappedPorts: []int{81, 81},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.topo.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNetworkConfigAddressing(t *testing.T) {
	n := NetworkConfig{Name: "chimera-network", Prefix: "192.168.10", SubnetMask: "23"}

	assert.Equal(t, "192.168.10.2", n.IP(0))
	assert.Equal(t, "192.168.10.3", n.IP(1))
	assert.Equal(t, "192.168.10.0/23", n.Subnet())
	assert.Equal(t, "192.168.10.1", n.Gateway())
}

func TestJSONListEnvParsing(t *testing.T) {
	names, err := jsonStringList(`["worker-0", "worker-1"]`)
	assert.NoError(t, err)
	assert.Equal(t, []string{"worker-0", "worker-1"}, names)

	shares, err := jsonIntList(`[2, 4]`)
	assert.NoError(t, err)
	assert.Equal(t, []int{2, 4}, shares)

	_, err = jsonIntList(`not-json`)
	assert.Error(t, err)
}

func TestLoadTopologyFromEnv(t *testing.T) {
	t.Setenv("CHIMERA_WORKERS_NODES_NAMES", `["worker-0","worker-1"]`)
	t.Setenv("CHIMERA_WORKERS_CPU_SHARES", `[2,3]`)
	t.Setenv("CHIMERA_WORKERS_MAPPED_PORTS", `[8081,8082]`)
	t.Setenv("CHIMERA_WORKERS_HOST", "0.0.0.0")
	t.Setenv("CHIMERA_WORKERS_PORT", "9000")

	topo, err := LoadTopology()
	assert.NoError(t, err)
	assert.Equal(t, []string{"worker-0", "worker-1"}, topo.NodeNames)
	assert.Equal(t, []int{2, 3}, topo.CPUShares)
	assert.Equal(t, []int{8081, 8082}, topo.MappedPorts)
	assert.Equal(t, 9000, topo.WorkerPort)
}

func TestLoadNetworkConfigDefaults(t *testing.T) {
	cfg := LoadNetworkConfig()
	assert.Equal(t, DefaultNetworkConfig(), cfg)
}
