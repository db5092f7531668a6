/*
Package orchestrator stands up Chimera's worker fleet: a private bridge
network plus one container per worker, built and run via the docker CLI
and DNS-wired into each other's /etc/hosts, per spec.md §4.1.

Every external command runs through a Runner so tests substitute a fake
runner instead of invoking the real docker binary.
*/
package orchestrator
