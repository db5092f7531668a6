/*
Package master implements Chimera's two master kinds: the ensemble master
(fan-out predict/fit, mean aggregation) and the parameter-server master
(synchronous SGD driven by a BSP fit_step loop), per spec.md §4.3-§4.6.

Both speak HTTP+JSON to the worker fleet via httpClient, which applies
config.EndpointPolicy's retry/timeout budget to every outbound call.
*/
package master

import (
	"fmt"

	"github.com/chimerahq/chimera/pkg/config"
)

// fleetWorkerURLs builds the name->baseURL map metrics.FleetCollector
// polls for /healthz, keyed by node name and addressed through the
// fleet's bridge-network DNS (each worker resolves its peers' names via
// /etc/hosts, set up by pkg/orchestrator).
func fleetWorkerURLs(topology config.Topology) map[string]string {
	urls := make(map[string]string, len(topology.NodeNames))
	for _, name := range topology.NodeNames {
		urls[name] = fmt.Sprintf("http://%s:%d", name, topology.WorkerPort)
	}
	return urls
}
