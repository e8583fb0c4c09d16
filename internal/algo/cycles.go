package algo

// DetectCycles returns the cycles found by a three-colour depth-first search
// started from every unvisited task in view order. Each cycle lists its tasks
// in edge order, starting at the task the search re-entered. The search keeps
// going after the first cycle, so every back edge yields one cycle.
func DetectCycles(g Graph) [][]string {
	const (
		white = iota // unvisited
		gray         // on the current path
		black        // finished
	)

	color := make(map[string]int)
	onPath := make(map[string]int) // id -> index in path
	var path []string
	var cycles [][]string

	var visit func(id string)
	visit = func(id string) {
		color[id] = gray
		onPath[id] = len(path)
		path = append(path, id)

		for _, next := range g.Outgoing(id) {
			switch color[next] {
			case gray:
				cycle := make([]string, len(path)-onPath[next])
				copy(cycle, path[onPath[next]:])
				cycles = append(cycles, cycle)
			case white:
				visit(next)
			}
		}

		path = path[:len(path)-1]
		delete(onPath, id)
		color[id] = black
	}

	for _, id := range g.IDs() {
		if color[id] == white {
			visit(id)
		}
	}
	return cycles
}

// HasCycle reports whether the graph contains at least one cycle.
func HasCycle(g Graph) bool {
	return TopologicalSort(g).HasCycle
}
