package trackerengine

// GraphState is the per-render-block working set derived from an
// AudioGraph: each node's rendered output frame for the current block,
// plus a cached topological order so the mixer visits nodes in an order
// where every input is already produced before it's summed.
type GraphState struct {
	graph      AudioGraph
	nodeOutput []Frame // indexed by NodeID
	topoOrder  []NodeID
}

// NewGraphState builds a GraphState from a graph, computing its
// topological order once; cycles (which should never occur in an
// authored graph, but must never panic the render thread) leave the
// unreachable remainder out of topoOrder, so the mixer just renders a
// partial, defensively-ordered prefix rather than crashing.
func NewGraphState(g AudioGraph) *GraphState {
	gs := &GraphState{graph: g}
	gs.nodeOutput = make([]Frame, len(g.Nodes))
	gs.topoOrder = topologicalSort(g)
	return gs
}

// ClearOutputs zeroes every node's output frame, called once per render
// block before any Machine writes into it.
func (gs *GraphState) ClearOutputs() {
	for i := range gs.nodeOutput {
		gs.nodeOutput[i] = Frame{}
	}
}

// TopoOrder returns the cached render order.
func (gs *GraphState) TopoOrder() []NodeID { return gs.topoOrder }

// SetOutput stores a node's rendered frame for this block.
func (gs *GraphState) SetOutput(id NodeID, f Frame) {
	if int(id) < len(gs.nodeOutput) {
		gs.nodeOutput[id] = f
	}
}

// Output returns a node's stored output frame for this block.
func (gs *GraphState) Output(id NodeID) Frame {
	if int(id) >= len(gs.nodeOutput) {
		return Frame{}
	}
	return gs.nodeOutput[id]
}

// GatherInputs sums every connection feeding into id, using a wide
// accumulator so multiple simultaneous connections never clip mid-sum.
func (gs *GraphState) GatherInputs(id NodeID) Frame {
	var w WideFrame
	for _, c := range gs.graph.Connections {
		if c.To != id {
			continue
		}
		src := gs.Output(c.From)
		w.AccumulateWithGain(src, c.Gain)
	}
	return w.ToFrame()
}

// topologicalSort implements Kahn's algorithm over the graph, popping
// from the END of the ready queue (LIFO) rather than the front: this
// matches the ordering the engine's render order was authored against,
// and only affects the relative order of sibling nodes with no
// dependency between them (never correctness).
func topologicalSort(g AudioGraph) []NodeID {
	n := len(g.Nodes)
	inDegree := make([]int, n)
	for _, c := range g.Connections {
		if int(c.To) < n {
			inDegree[c.To]++
		}
	}

	var queue []NodeID
	for i := 0; i < n; i++ {
		if inDegree[i] == 0 {
			queue = append(queue, NodeID(i))
		}
	}

	order := make([]NodeID, 0, n)
	for len(queue) > 0 {
		last := len(queue) - 1
		id := queue[last]
		queue = queue[:last]
		order = append(order, id)

		for _, c := range g.Connections {
			if c.From != id {
				continue
			}
			if int(c.To) >= n {
				continue
			}
			inDegree[c.To]--
			if inDegree[c.To] == 0 {
				queue = append(queue, c.To)
			}
		}
	}
	return order
}
