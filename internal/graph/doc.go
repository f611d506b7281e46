// Package graph is the execution layer of the orchestrator. It holds named
// build steps and their declared dependencies as a directed acyclic graph,
// and runs the transitive closure of a chosen entry point on a bounded
// worker pool.
//
// A failed step never stops unrelated work: its transitive dependents are
// marked Blocked and every independent branch keeps running.
package graph
