package dag

import "sort"

// Graph is an immutable dependency graph over string task IDs. Edges
// point from a task to its predecessors: Dependencies(id) lists what id
// waits for, Dependents(id) lists what waits for id. The reverse
// adjacency is derived once at construction and cached.
type Graph struct {
	deps       map[string][]string
	dependents map[string][]string
	conds      map[string]map[string]Condition
	ids        []string
}

// Build constructs a Graph from a task -> dependency-IDs mapping.
// Every referenced dependency must exist as a key in the mapping;
// a dangling reference yields a *GraphError. Duplicate dependency
// entries are collapsed so they cannot cause duplicate visits.
func Build(taskDeps map[string][]string) (*Graph, error) {
	g := &Graph{
		deps:       make(map[string][]string, len(taskDeps)),
		dependents: make(map[string][]string, len(taskDeps)),
		ids:        make([]string, 0, len(taskDeps)),
	}

	for id := range taskDeps {
		g.ids = append(g.ids, id)
	}
	sort.Strings(g.ids)

	for _, id := range g.ids {
		seen := make(map[string]bool, len(taskDeps[id]))
		for _, dep := range taskDeps[id] {
			if _, ok := taskDeps[dep]; !ok {
				return nil, &GraphError{TaskID: id, DepID: dep}
			}
			if seen[dep] {
				continue
			}
			seen[dep] = true
			g.deps[id] = append(g.deps[id], dep)
			g.dependents[dep] = append(g.dependents[dep], id)
		}
	}

	// Deterministic adjacency regardless of map iteration order.
	for id := range g.dependents {
		sort.Strings(g.dependents[id])
	}
	for id := range g.deps {
		sort.Strings(g.deps[id])
	}

	return g, nil
}

// BuildConditional constructs a Graph with per-edge branch conditions.
// conds is keyed [taskID][dependencyID]; edges without an entry default
// to OnSuccess. Conditions referencing unknown tasks or edges, or
// carrying an invalid tag, fail construction with a *GraphError.
func BuildConditional(taskDeps map[string][]string, conds map[string]map[string]Condition) (*Graph, error) {
	g, err := Build(taskDeps)
	if err != nil {
		return nil, err
	}

	g.conds = make(map[string]map[string]Condition, len(conds))
	for id, edges := range conds {
		if !g.Has(id) {
			return nil, &GraphError{TaskID: id, DepID: id}
		}
		for dep, cond := range edges {
			if !cond.Valid() {
				return nil, &GraphError{TaskID: id, DepID: dep}
			}
			if !g.hasEdge(id, dep) {
				return nil, &GraphError{TaskID: id, DepID: dep}
			}
			if g.conds[id] == nil {
				g.conds[id] = make(map[string]Condition, len(edges))
			}
			g.conds[id][dep] = cond
		}
	}

	return g, nil
}

// Len returns the number of tasks in the graph.
func (g *Graph) Len() int { return len(g.ids) }

// IDs returns all task IDs in ascending order.
func (g *Graph) IDs() []string {
	out := make([]string, len(g.ids))
	copy(out, g.ids)
	return out
}

// Has reports whether the task ID is part of the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.deps[id]
	if !ok {
		// Tasks with no dependencies have no deps entry but are known IDs.
		i := sort.SearchStrings(g.ids, id)
		ok = i < len(g.ids) && g.ids[i] == id
	}
	return ok
}

// Dependencies returns the predecessor IDs of a task in ascending order.
func (g *Graph) Dependencies(id string) ([]string, error) {
	if !g.Has(id) {
		return nil, &TaskNotFoundError{TaskID: id}
	}
	out := make([]string, len(g.deps[id]))
	copy(out, g.deps[id])
	return out, nil
}

// Dependents returns the IDs that depend directly on a task, ascending.
func (g *Graph) Dependents(id string) ([]string, error) {
	if !g.Has(id) {
		return nil, &TaskNotFoundError{TaskID: id}
	}
	out := make([]string, len(g.dependents[id]))
	copy(out, g.dependents[id])
	return out, nil
}

// EdgeCondition returns the branch condition on the edge from dep to
// task. Edges without an explicit condition are OnSuccess.
func (g *Graph) EdgeCondition(taskID, depID string) Condition {
	if edges, ok := g.conds[taskID]; ok {
		if cond, ok := edges[depID]; ok {
			return cond
		}
	}
	return OnSuccess
}

func (g *Graph) hasEdge(taskID, depID string) bool {
	for _, dep := range g.deps[taskID] {
		if dep == depID {
			return true
		}
	}
	return false
}
