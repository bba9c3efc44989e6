package dag

import (
	"fmt"
	"strings"
)

// GraphError reports a malformed graph: a task references a dependency
// ID that is not a key in the input mapping. Construction fails before
// any scheduling is attempted.
type GraphError struct {
	// TaskID is the task whose dependency list is broken.
	TaskID string
	// DepID is the dangling dependency reference.
	DepID string
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("dag: task %q references unknown dependency %q", e.TaskID, e.DepID)
}

// CycleError reports a dependency cycle. Path holds the offending task
// IDs: from DetectCycle it is the exact cycle (each ID depends on the
// next, the last depends on the first); from TopologicalSort it is the
// unresolved subset left after Kahn's algorithm drained.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dag: dependency cycle involving [%s]", strings.Join(e.Path, " -> "))
}

// TaskNotFoundError reports a query for a task ID that is not part of
// the graph. This signals a stale caller reference, not a runtime
// condition, and is never swallowed.
type TaskNotFoundError struct {
	TaskID string
}

func (e *TaskNotFoundError) Error() string {
	return fmt.Sprintf("dag: task %q not found in graph", e.TaskID)
}
