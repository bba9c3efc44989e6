package dag

// ReadyTasks returns the IDs of tasks that are pending or ready and
// whose every dependency is completed, in ascending order. A failed
// dependency blocks its dependents here; use ReadyTasksConditional for
// failure-tolerant branches. The computation is a pure function of
// (graph, state): calling it twice with the same arguments returns the
// same set, and a task stays in the set until the caller marks it
// in_progress or terminal.
//
// Statuses recorded for IDs outside the graph signal a stale caller
// reference and yield a *TaskNotFoundError.
func ReadyTasks(g *Graph, st *ExecState) ([]string, error) {
	if err := checkKnown(g, st); err != nil {
		return nil, err
	}

	var ready []string
	for _, id := range g.ids {
		if claimedOrTerminal(st.Status(id)) {
			continue
		}
		if depsCompleted(g, st, id) {
			ready = append(ready, id)
		}
	}
	return ready, nil
}

// NewlyReady returns the tasks that became ready because terminalID
// reached a terminal status. Only direct dependents of terminalID are
// re-evaluated, so a caller reacting to one completion at a time avoids
// rescanning the whole graph. The result always agrees with ReadyTasks.
func NewlyReady(g *Graph, st *ExecState, terminalID string) ([]string, error) {
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
		if depsCompleted(g, st, dependent) {
			ready = append(ready, dependent)
		}
	}
	return ready, nil
}

// BlockedTasks maps each non-terminal, unclaimed task to the
// dependencies still holding it back. Tasks with nothing outstanding
// are omitted.
func BlockedTasks(g *Graph, st *ExecState) (map[string][]string, error) {
	if err := checkKnown(g, st); err != nil {
		return nil, err
	}

	blocked := make(map[string][]string)
	for _, id := range g.ids {
		if claimedOrTerminal(st.Status(id)) {
			continue
		}
		for _, dep := range g.deps[id] {
			if st.Status(dep) != StatusCompleted {
				blocked[id] = append(blocked[id], dep)
			}
		}
	}
	return blocked, nil
}

func depsCompleted(g *Graph, st *ExecState, id string) bool {
	for _, dep := range g.deps[id] {
		if st.Status(dep) != StatusCompleted {
			return false
		}
	}
	return true
}

// claimedOrTerminal filters tasks no longer eligible for the ready set:
// already claimed by a worker or already finished.
func claimedOrTerminal(s Status) bool {
	return s == StatusInProgress || s.Terminal()
}

func checkKnown(g *Graph, st *ExecState) error {
	for id := range st.statuses {
		if !g.Has(id) {
			return &TaskNotFoundError{TaskID: id}
		}
	}
	return nil
}
