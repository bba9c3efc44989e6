// Package workflow defines the task and workflow records the scheduler
// operates on: typed tasks with dependency lists and optional per-edge
// branch conditions, workflow aggregates with uuid identity, YAML
// definition loading, and conversion into the dag package's graph.
package workflow
