package dag

// Condition tags an edge with the dependency outcome that satisfies it.
// Plain dependencies behave as OnSuccess.
type Condition string

const (
	// OnSuccess requires the dependency to be completed, not merely terminal.
	OnSuccess Condition = "on_success"
	// OnFailure requires the dependency to be failed, enabling cleanup
	// and error-handling branches.
	OnFailure Condition = "on_failure"
	// Always is satisfied by either terminal outcome.
	Always Condition = "always"
)

// Valid reports whether c is a defined condition tag.
func (c Condition) Valid() bool {
	switch c {
	case OnSuccess, OnFailure, Always:
		return true
	}
	return false
}

// Satisfied reports whether a dependency in the given status satisfies
// an edge carrying this condition. Non-terminal statuses never satisfy
// any condition.
func (c Condition) Satisfied(dep Status) bool {
	switch c {
	case OnSuccess:
		return dep == StatusCompleted
	case OnFailure:
		return dep == StatusFailed
	case Always:
		return dep.Terminal()
	}
	return false
}

// Unsatisfiable reports whether a dependency in the given status can
// never satisfy this condition anymore: the dependency is terminal with
// the other outcome.
func (c Condition) Unsatisfiable(dep Status) bool {
	return dep.Terminal() && !c.Satisfied(dep)
}

// ReadyTasksConditional extends ReadyTasks with per-edge branch
// conditions: a pending task is ready once every incoming edge is
// satisfied by the terminal status of its source. Conditions across
// multiple dependencies combine with AND; there is no OR-join. Tasks
// with no dependencies are ready immediately.
func ReadyTasksConditional(g *Graph, st *ExecState) ([]string, error) {
	if err := checkKnown(g, st); err != nil {
		return nil, err
	}

	var ready []string
	for _, id := range g.ids {
		if claimedOrTerminal(st.Status(id)) {
			continue
		}
		if edgesSatisfied(g, st, id) {
			ready = append(ready, id)
		}
	}
	return ready, nil
}

// NewlyReadyConditional is the incremental counterpart of
// ReadyTasksConditional: only direct dependents of terminalID are
// re-evaluated. The result always agrees with the full scan.
func NewlyReadyConditional(g *Graph, st *ExecState, terminalID string) ([]string, error) {
	if !g.Has(terminalID) {
		return nil, &TaskNotFoundError{TaskID: terminalID}
	}
	if err := checkKnown(g, st); err != nil {
		return nil, err
	}

	var ready []string
	for _, dependent := range g.dependents[terminalID] {
		if claimedOrTerminal(st.Status(dependent)) {
			continue
		}
		if edgesSatisfied(g, st, dependent) {
			ready = append(ready, dependent)
		}
	}
	return ready, nil
}

// UnsatisfiableTasks returns the pending tasks that can never become
// ready: at least one incoming edge's source is terminal with the
// outcome the condition rejects. Drivers typically fail these so that
// downstream on_failure branches can still fire.
func UnsatisfiableTasks(g *Graph, st *ExecState) ([]string, error) {
	if err := checkKnown(g, st); err != nil {
		return nil, err
	}

	var doomed []string
	for _, id := range g.ids {
		if claimedOrTerminal(st.Status(id)) {
			continue
		}
		for _, dep := range g.deps[id] {
			if g.EdgeCondition(id, dep).Unsatisfiable(st.Status(dep)) {
				doomed = append(doomed, id)
				break
			}
		}
	}
	return doomed, nil
}

func edgesSatisfied(g *Graph, st *ExecState, id string) bool {
	for _, dep := range g.deps[id] {
		if !g.EdgeCondition(id, dep).Satisfied(st.Status(dep)) {
			return false
		}
	}
	return true
}
