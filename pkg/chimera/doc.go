/*
Package chimera is the top-level entry point: it stands up the worker
fleet via pkg/orchestrator, then serves the requested master kind, per
spec.md §4.7.
*/
package chimera
