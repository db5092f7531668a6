/*
Package config parses Chimera's environment-variable configuration surface
into typed, validated Go values: the fleet Topology, the NetworkConfig for
the bridge network the orchestrator creates, and the EndpointPolicy
governing outbound master-to-worker HTTP calls.

It also loads the optional fleet manifest file (a single YAML resource
consumed by "chimera apply -f") as an alternative to exporting a dozen
CHIMERA_WORKERS_* and CHIMERA_NETWORK_* environment variables by hand.
*/
package config
