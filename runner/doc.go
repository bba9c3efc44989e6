// Package runner executes workflows. The engine walks the dependency
// graph with a bounded worker pool, dispatching tasks as their branch
// conditions become satisfiable and skipping the ones that never can
// be. Agents are assigned per task through affinity scoring unless the
// workflow pins one explicitly.
package runner
