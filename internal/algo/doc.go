// Package algo runs read-only algorithms over a task graph.
//
// Every function takes a Graph view and never mutates it. Results are
// deterministic: ties are broken by the order the view returns ids in, which
// for graph.Engine is insertion order.
//
//   - TopologicalSort: Kahn's algorithm, reports unresolved ids on cycles
//   - DetectCycles: three-colour depth-first search, reports every cycle found
//   - Traverse: breadth-first or depth-first walk along outgoing or incoming edges
//   - Levels: groups of tasks that can run in parallel
//   - ShortestPath: fewest-edge path between two tasks
package algo

// Graph is the read-only view the algorithms need.
type Graph interface {
	IDs() []string
	Outgoing(id string) []string
	Incoming(id string) []string
	Has(id string) bool
}
