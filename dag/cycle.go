package dag

// Three-color depth-first search. An edge into a node currently on the
// recursion stack is a back-edge; the cycle is the stack suffix from
// that node to the current one.
const (
	colorWhite = iota // unvisited
	colorGray         // on the recursion stack
	colorBlack        // fully explored
)

// DetectCycle returns the exact cycle path if the graph contains one,
// or nil when the graph is acyclic. In the returned path each task
// depends on the one that follows it, and the last task depends on the
// first. A self-dependency yields a single-element path.
func DetectCycle(g *Graph) []string {
	colors := make(map[string]int, g.Len())
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		colors[id] = colorGray
		stack = append(stack, id)

		for _, dep := range g.deps[id] {
			switch colors[dep] {
			case colorGray:
				// Back-edge: the cycle runs from dep's stack position to here.
				for i, onStack := range stack {
					if onStack == dep {
						cycle := make([]string, len(stack)-i)
						copy(cycle, stack[i:])
						return cycle
					}
				}
			case colorWhite:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}

		stack = stack[:len(stack)-1]
		colors[id] = colorBlack
		return nil
	}

	for _, id := range g.ids {
		if colors[id] != colorWhite {
			continue
		}
		if cycle := visit(id); cycle != nil {
			return cycle
		}
	}
	return nil
}

// Validate returns a *CycleError if the graph contains a cycle,
// carrying the exact cycle path for diagnostics.
func Validate(g *Graph) error {
	if cycle := DetectCycle(g); cycle != nil {
		return &CycleError{Path: cycle}
	}
	return nil
}
