package chimera

import (
	"context"

	"github.com/chimerahq/chimera/pkg/api"
	"github.com/chimerahq/chimera/pkg/config"
	"github.com/chimerahq/chimera/pkg/log"
	"github.com/chimerahq/chimera/pkg/master"
	"github.com/chimerahq/chimera/pkg/orchestrator"
)

// Master is the serving contract both master kinds satisfy.
type Master interface {
	Serve(ctx context.Context, addr string) error
}

// Chimera keys the two master kinds ("aggregation", "parameter_server")
// named in spec.md §4.7 onto the concrete Master each resolves to, and
// brings the fleet up before handing off to one of them.
type Chimera struct {
	Topology config.Topology
	Network  config.NetworkConfig
	Policy   config.EndpointPolicy

	orchestrator *orchestrator.ContainerOrchestrator
}

// New constructs a Chimera over the given fleet topology.
func New(topology config.Topology, network config.NetworkConfig, policy config.EndpointPolicy) *Chimera {
	return &Chimera{
		Topology:     topology,
		Network:      network,
		Policy:       policy,
		orchestrator: orchestrator.New(topology, network),
	}
}

// Serve brings the fleet up (ServeAll) and then blocks serving the named
// master kind at addr. kind is "aggregation" (EnsembleMaster) or
// "parameter_server" (ParameterServerMaster).
func (c *Chimera) Serve(ctx context.Context, kind, learnerKind string, eta0 float64, maxIter int, addr string) error {
	log.WithComponent("chimera").Info().Str("kind", kind).Msg("bringing up fleet before serving")
	if err := c.orchestrator.ServeAll(ctx); err != nil {
		return err
	}

	m, err := c.resolve(kind, learnerKind, eta0, maxIter)
	if err != nil {
		return err
	}
	return m.Serve(ctx, addr)
}

// Resolve constructs the named master kind without bringing up the
// fleet, for callers (e.g. the CLI's --skip-orchestration path) that
// manage orchestration separately.
func (c *Chimera) Resolve(kind, learnerKind string, eta0 float64, maxIter int) (Master, error) {
	return c.resolve(kind, learnerKind, eta0, maxIter)
}

func (c *Chimera) resolve(kind, learnerKind string, eta0 float64, maxIter int) (Master, error) {
	switch kind {
	case "aggregation":
		return master.NewEnsembleMaster(c.Topology, c.Policy), nil
	case "parameter_server":
		psm, err := master.NewParameterServerMaster(c.Topology, c.Policy, learnerKind, eta0, maxIter)
		if err != nil {
			return nil, err
		}
		return psm, nil
	default:
		return nil, api.NewConfigError("unknown master kind: " + kind)
	}
}
