package algo

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nibzard/atomgraph-go/internal/errs"
	"github.com/nibzard/atomgraph-go/internal/graph"
)

var _ Graph = (*graph.Engine)(nil)

// mapGraph is a minimal Graph for tests.
type mapGraph struct {
	ids []string
	out map[string][]string
	in  map[string][]string
}

func newMapGraph(ids []string, edges [][2]string) *mapGraph {
	g := &mapGraph{ids: ids, out: map[string][]string{}, in: map[string][]string{}}
	for _, e := range edges {
		g.out[e[0]] = append(g.out[e[0]], e[1])
		g.in[e[1]] = append(g.in[e[1]], e[0])
	}
	return g
}

func (g *mapGraph) IDs() []string               { return slices.Clone(g.ids) }
func (g *mapGraph) Outgoing(id string) []string { return slices.Clone(g.out[id]) }
func (g *mapGraph) Incoming(id string) []string { return slices.Clone(g.in[id]) }
func (g *mapGraph) Has(id string) bool          { return slices.Contains(g.ids, id) }

func TestTopologicalSortDiamond(t *testing.T) {
	// a -> b -> d
	// a -> c -> d
	g := newMapGraph([]string{"a", "b", "c", "d"}, [][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}})
	res := TopologicalSort(g)
	if res.HasCycle {
		t.Fatalf("unexpected cycle: %v", res.CycleNodes)
	}
	if diff := cmp.Diff([]string{"a", "b", "c", "d"}, res.Order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestTopologicalSortTieBreakByInsertionOrder(t *testing.T) {
	// z was inserted before y; both become ready after x.
	g := newMapGraph([]string{"x", "z", "y", "w"}, [][2]string{{"x", "y"}, {"x", "z"}})
	res := TopologicalSort(g)
	if diff := cmp.Diff([]string{"x", "z", "y", "w"}, res.Order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestTopologicalSortCycle(t *testing.T) {
	// a -> b -> c -> b, c -> d
	g := newMapGraph([]string{"a", "b", "c", "d"}, [][2]string{{"a", "b"}, {"b", "c"}, {"c", "b"}, {"c", "d"}})
	res := TopologicalSort(g)
	if !res.HasCycle {
		t.Fatal("expected cycle")
	}
	if diff := cmp.Diff([]string{"a"}, res.Order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	for _, id := range []string{"b", "c"} {
		if !slices.Contains(res.CycleNodes, id) {
			t.Errorf("CycleNodes %v missing %s", res.CycleNodes, id)
		}
	}
}

func TestDetectCycles(t *testing.T) {
	tests := []struct {
		name  string
		ids   []string
		edges [][2]string
		want  [][]string
	}{
		{
			name:  "acyclic",
			ids:   []string{"a", "b", "c"},
			edges: [][2]string{{"a", "b"}, {"b", "c"}, {"a", "c"}},
			want:  nil,
		},
		{
			name:  "triangle",
			ids:   []string{"a", "b", "c"},
			edges: [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}},
			want:  [][]string{{"a", "b", "c"}},
		},
		{
			name:  "two disjoint cycles",
			ids:   []string{"a", "b", "c", "d"},
			edges: [][2]string{{"a", "b"}, {"b", "a"}, {"c", "d"}, {"d", "c"}},
			want:  [][]string{{"a", "b"}, {"c", "d"}},
		},
		{
			name:  "cycle behind a tail",
			ids:   []string{"x", "a", "b"},
			edges: [][2]string{{"x", "a"}, {"a", "b"}, {"b", "a"}},
			want:  [][]string{{"a", "b"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectCycles(newMapGraph(tt.ids, tt.edges))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("cycles mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func randomGraph(rng *rand.Rand, n, m int, acyclic bool) *mapGraph {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("n%02d", i)
	}
	seen := map[[2]string]bool{}
	var edges [][2]string
	for k := 0; k < m; k++ {
		i, j := rng.Intn(n), rng.Intn(n)
		if i == j {
			continue
		}
		if acyclic && i > j {
			i, j = j, i
		}
		e := [2]string{ids[i], ids[j]}
		if seen[e] {
			continue
		}
		seen[e] = true
		edges = append(edges, e)
	}
	// Shuffle insertion order so it differs from the topological order.
	rng.Shuffle(len(ids), func(a, b int) { ids[a], ids[b] = ids[b], ids[a] })
	return newMapGraph(ids, edges)
}

func TestTopologicalSortProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		acyclic := round%2 == 0
		g := randomGraph(rng, 2+rng.Intn(15), rng.Intn(40), acyclic)
		res := TopologicalSort(g)
		cycles := DetectCycles(g)

		if HasCycle(g) != res.HasCycle {
			t.Fatalf("round %d: HasCycle disagrees with TopologicalSort", round)
		}
		if (len(cycles) == 0) == res.HasCycle {
			t.Fatalf("round %d: DetectCycles found %d cycles but HasCycle=%v", round, len(cycles), res.HasCycle)
		}
		if !res.HasCycle {
			if len(res.Order) != len(g.ids) {
				t.Fatalf("round %d: order has %d ids, want %d", round, len(res.Order), len(g.ids))
			}
			pos := positions(res.Order)
			for from, succs := range g.out {
				for _, to := range succs {
					if pos[from] >= pos[to] {
						t.Fatalf("round %d: edge %s->%s violates order %v", round, from, to, res.Order)
					}
				}
			}
			continue
		}
		if acyclic {
			t.Fatalf("round %d: acyclic graph reported a cycle", round)
		}
		for _, c := range cycles {
			for _, id := range c {
				if !slices.Contains(res.CycleNodes, id) {
					t.Fatalf("round %d: cycle node %s missing from %v", round, id, res.CycleNodes)
				}
			}
		}
	}
}

func TestLevels(t *testing.T) {
	g := newMapGraph([]string{"a", "b", "c", "d", "e"}, [][2]string{{"a", "c"}, {"b", "c"}, {"c", "d"}})
	levels, ok := Levels(g)
	if !ok {
		t.Fatal("unexpected cycle")
	}
	want := [][]string{{"a", "b", "e"}, {"c"}, {"d"}}
	if diff := cmp.Diff(want, levels); diff != "" {
		t.Errorf("levels mismatch (-want +got):\n%s", diff)
	}

	cyclic := newMapGraph([]string{"a", "b", "c"}, [][2]string{{"b", "c"}, {"c", "b"}})
	levels, ok = Levels(cyclic)
	if ok {
		t.Error("expected cycle to be reported")
	}
	if diff := cmp.Diff([][]string{{"a"}}, levels); diff != "" {
		t.Errorf("levels mismatch (-want +got):\n%s", diff)
	}
}

func TestTraverse(t *testing.T) {
	//   a -> b -> d
	//   a -> c -> d -> a (cycle back)
	g := newMapGraph([]string{"a", "b", "c", "d"}, [][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}, {"d", "a"}})

	tests := []struct {
		dir      Direction
		strategy Strategy
		start    string
		want     []string
	}{
		{Downstream, BreadthFirst, "a", []string{"a", "b", "c", "d"}},
		{Downstream, DepthFirst, "a", []string{"a", "b", "d", "c"}},
		{Upstream, BreadthFirst, "d", []string{"d", "b", "c", "a"}},
		{Upstream, DepthFirst, "d", []string{"d", "b", "a", "c"}},
		{Downstream, BreadthFirst, "c", []string{"c", "d", "a", "b"}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s-%s-%s", tt.dir, tt.strategy, tt.start), func(t *testing.T) {
			w, err := Traverse(g, tt.dir, tt.strategy, tt.start)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, w.Collect()); diff != "" {
				t.Errorf("walk mismatch (-want +got):\n%s", diff)
			}
			if _, ok := w.Next(); ok {
				t.Error("walker should not restart after it is drained")
			}
		})
	}
}

func TestTraverseErrors(t *testing.T) {
	g := newMapGraph([]string{"a"}, nil)
	if _, err := Traverse(g, Downstream, BreadthFirst, "zz"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("unknown start: got %v", err)
	}
	if _, err := Traverse(g, "sideways", BreadthFirst, "a"); !errors.Is(err, errs.ErrValidationFailed) {
		t.Errorf("bad direction: got %v", err)
	}
	if _, err := Traverse(g, Downstream, "random", "a"); !errors.Is(err, errs.ErrValidationFailed) {
		t.Errorf("bad strategy: got %v", err)
	}
}

func TestShortestPath(t *testing.T) {
	g := newMapGraph([]string{"a", "b", "c", "d", "e"}, [][2]string{{"a", "b"}, {"b", "c"}, {"c", "d"}, {"a", "d"}})
	path, ok, err := ShortestPath(g, "a", "d")
	if err != nil || !ok {
		t.Fatalf("ShortestPath: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff([]string{"a", "d"}, path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
	if _, ok, _ := ShortestPath(g, "d", "a"); ok {
		t.Error("expected no path from d to a")
	}
	if _, _, err := ShortestPath(g, "a", "zz"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("unknown target: got %v", err)
	}
}
