package dag

import "sort"

// ParallelBatches partitions the graph into execution batches using
// Kahn's algorithm. Batch 0 holds every task with no dependencies; each
// later batch holds the tasks whose last dependency sits in the batch
// before it. Tasks within a batch share no dependency on one another
// and could run simultaneously. IDs within a batch are sorted ascending
// so the result is stable regardless of input map iteration order.
//
// If the graph contains a cycle the tasks on it never reach in-degree
// zero; the remainder is reported via *CycleError.
func ParallelBatches(g *Graph) ([][]string, error) {
	inDegree := make(map[string]int, g.Len())
	for _, id := range g.ids {
		inDegree[id] = len(g.deps[id])
	}

	var frontier []string
	for _, id := range g.ids {
		if inDegree[id] == 0 {
			frontier = append(frontier, id)
		}
	}

	var batches [][]string
	emitted := 0

	for len(frontier) > 0 {
		sort.Strings(frontier)
		batches = append(batches, frontier)
		emitted += len(frontier)

		var next []string
		for _, id := range frontier {
			for _, dependent := range g.dependents[id] {
				inDegree[dependent]--
				if inDegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		frontier = next
	}

	if emitted != g.Len() {
		var unresolved []string
		for _, id := range g.ids {
			if inDegree[id] > 0 {
				unresolved = append(unresolved, id)
			}
		}
		return nil, &CycleError{Path: unresolved}
	}

	return batches, nil
}

// TopologicalSort returns a total execution order consistent with every
// dependency edge: each task appears after all of its dependencies.
// The order is the batch partition flattened, so it is deterministic
// for identical input. Returns *CycleError if the graph is cyclic.
func TopologicalSort(g *Graph) ([]string, error) {
	batches, err := ParallelBatches(g)
	if err != nil {
		return nil, err
	}

	order := make([]string, 0, g.Len())
	for _, batch := range batches {
		order = append(order, batch...)
	}
	return order, nil
}
