package trackerengine

import "testing"

func buildLinearGraph() AudioGraph {
	var g AudioGraph
	a := g.AddNode(NodeType{Kind: NodeTrackerChannel})
	b := g.AddNode(NodeType{Kind: NodeBuzzMachine})
	c := g.AddNode(NodeType{Kind: NodeMaster})
	g.Connect(a, b)
	g.Connect(b, c)
	return g
}

func TestTopologicalSortOrdersDependenciesFirst(t *testing.T) {
	g := buildLinearGraph()
	order := topologicalSort(g)
	if len(order) != 3 {
		t.Fatalf("got %d nodes want 3", len(order))
	}
	pos := map[NodeID]int{}
	for i, id := range order {
		pos[id] = i
	}
	if pos[0] > pos[1] || pos[1] > pos[2] {
		t.Fatalf("expected 0 < 1 < 2 in order, got %v", order)
	}
}

func TestGraphStateGatherInputsSumsConnections(t *testing.T) {
	g := buildLinearGraph()
	gs := NewGraphState(g)
	gs.SetOutput(0, Frame{Left: 100, Right: 100})
	gs.SetOutput(1, Frame{Left: 50, Right: 50})

	in := gs.GatherInputs(1)
	if in.Left != 100 || in.Right != 100 {
		t.Fatalf("got %+v", in)
	}
}

func TestGraphStateClearOutputsZeroesAll(t *testing.T) {
	g := buildLinearGraph()
	gs := NewGraphState(g)
	gs.SetOutput(0, Frame{Left: 1, Right: 1})
	gs.ClearOutputs()
	if gs.Output(0) != (Frame{}) {
		t.Fatal("expected zeroed output")
	}
}

func TestGraphStateCyclicGraphNeverPanics(t *testing.T) {
	var g AudioGraph
	a := g.AddNode(NodeType{Kind: NodeTrackerChannel})
	b := g.AddNode(NodeType{Kind: NodeBuzzMachine})
	g.Connect(a, b)
	g.Connect(b, a)

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("topologicalSort panicked on a cycle: %v", r)
		}
	}()
	order := topologicalSort(g)
	if len(order) != 0 {
		t.Fatalf("fully cyclic graph should produce an empty prefix, got %v", order)
	}
}
