// Package dag implements the task dependency engine: an immutable
// dependency graph over string task IDs, cycle detection with exact
// cycle paths, Kahn topological ordering with parallel batches, and
// ready-set computation driven by a caller-owned execution state.
//
// The package is a pure function of (graph, execution state). It holds
// no session state and performs no I/O, so callers that execute tasks
// concurrently only need to serialize their own ExecState updates.
//
// Readiness comes in two flavors sharing the same graph:
//   - ReadyTasks: every dependency must be completed
//   - ReadyTasksConditional: per-edge on_success/on_failure/always
//     conditions decide whether a terminal dependency satisfies the edge
package dag
