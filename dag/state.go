package dag

import "fmt"

// Status is a task's position in the execution state machine:
// pending -> ready -> in_progress -> completed | failed.
// Transitions are monotonic; a task never moves backward.
type Status string

const (
	StatusPending    Status = "pending"
	StatusReady      Status = "ready"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is one of the five defined statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusReady, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusReady:
		return 1
	case StatusInProgress:
		return 2
	case StatusCompleted, StatusFailed:
		return 3
	}
	return -1
}

// ExecState is the caller-owned record of task statuses for one
// scheduling session. The zero status for an unknown ID is pending.
// ExecState carries no locking; callers running tasks concurrently
// must serialize updates themselves.
type ExecState struct {
	statuses map[string]Status
}

// NewExecState returns an empty execution state (every task pending).
func NewExecState() *ExecState {
	return &ExecState{statuses: make(map[string]Status)}
}

// StateFrom builds an ExecState from completed and failed ID sets, the
// shape persistence layers and API callers hand over.
func StateFrom(completed, failed []string) *ExecState {
	st := NewExecState()
	for _, id := range completed {
		st.statuses[id] = StatusCompleted
	}
	for _, id := range failed {
		st.statuses[id] = StatusFailed
	}
	return st
}

// Status returns the task's current status, pending if never marked.
func (st *ExecState) Status(id string) Status {
	if s, ok := st.statuses[id]; ok {
		return s
	}
	return StatusPending
}

// Mark advances a task to the next status. Moving backward, restating
// anything but the current status on a terminal task, or using an
// undefined status is rejected.
func (st *ExecState) Mark(id string, next Status) error {
	if !next.Valid() {
		return fmt.Errorf("dag: invalid status %q for task %q", next, id)
	}
	cur := st.Status(id)
	if cur.Terminal() && next != cur {
		return fmt.Errorf("dag: task %q is %s, cannot move to %s", id, cur, next)
	}
	if next.rank() < cur.rank() {
		return fmt.Errorf("dag: task %q cannot move backward from %s to %s", id, cur, next)
	}
	st.statuses[id] = next
	return nil
}

// Completed returns all IDs with completed status, unordered.
func (st *ExecState) Completed() []string {
	return st.withStatus(StatusCompleted)
}

// Failed returns all IDs with failed status, unordered.
func (st *ExecState) Failed() []string {
	return st.withStatus(StatusFailed)
}

func (st *ExecState) withStatus(want Status) []string {
	var out []string
	for id, s := range st.statuses {
		if s == want {
			out = append(out, id)
		}
	}
	return out
}

// Done reports whether every task in the graph is terminal.
func (st *ExecState) Done(g *Graph) bool {
	for _, id := range g.ids {
		if !st.Status(id).Terminal() {
			return false
		}
	}
	return true
}

// Summary counts tasks per status for the given graph.
func (st *ExecState) Summary(g *Graph) map[Status]int {
	counts := make(map[Status]int, 5)
	for _, id := range g.ids {
		counts[st.Status(id)]++
	}
	return counts
}
