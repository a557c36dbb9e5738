package graph

// NodeIDsByPostOrder returns every node's handle ordered by post-order id
// ascending — sources first, root last — which BuildGraph's visit already
// guarantees is a valid topological order (every input's id is strictly
// smaller than its consumer's).
func (g *Graph) NodeIDsByPostOrder() []NodeID {
	byID := make([]NodeID, g.nextID)
	for i := range byID {
		byID[i] = -1
	}
	for _, n := range g.nodes {
		if n.id > 0 && n.id < len(byID) {
			byID[n.id] = n.handle
		}
	}
	out := make([]NodeID, 0, len(byID)-1)
	for id := 1; id < len(byID); id++ {
		if byID[id] >= 0 {
			out = append(out, byID[id])
		}
	}
	return out
}
