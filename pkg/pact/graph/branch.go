package graph

import "sort"

// ComputeBranches implements §4.4's branch tracking: a forward pass, in
// post-order id order (sources first, so every input is processed before
// its consumer), that tracks which fan-out points a node still sits
// downstream of without having reconverged yet.
//
// A node with more than one outgoing edge opens a branch at itself. A
// binary node closes a branch the moment it is the first node where both
// of its inputs' unclosed-branch sets already contain that fan-out point —
// that is exactly the reconvergence point, so the branch is dropped rather
// than propagated further downstream.
func ComputeBranches(g *Graph) {
	byID := make([]*Node, g.nextID)
	for _, n := range g.nodes {
		if n.id > 0 && n.id < len(byID) {
			byID[n.id] = n
		}
	}

	for id := 1; id < len(byID); id++ {
		n := byID[id]
		if n == nil {
			continue
		}

		var branches []NodeID
		switch len(n.Inputs) {
		case 0:
			branches = nil
		case 1:
			branches = append(branches, g.Node(n.Inputs[0]).UnclosedBranches...)
		default:
			branches = mergeAndClose(g.Node(n.Inputs[0]).UnclosedBranches, g.Node(n.Inputs[1]).UnclosedBranches)
			for _, extra := range n.Inputs[2:] {
				branches = mergeAndClose(branches, g.Node(extra).UnclosedBranches)
			}
		}

		if n.outEdgesTotal > 1 {
			branches = append(branches, n.handle)
		}

		n.UnclosedBranches = branches
	}
}

// mergeAndClose unions two unclosed-branch sets, dropping any branch point
// present in both — the node doing the merging is where those two paths
// have just reconverged, so the branch is closed rather than carried
// further downstream.
func mergeAndClose(a, b []NodeID) []NodeID {
	inA := make(map[NodeID]bool, len(a))
	for _, h := range a {
		inA[h] = true
	}
	inB := make(map[NodeID]bool, len(b))
	for _, h := range b {
		inB[h] = true
	}

	seen := make(map[NodeID]bool, len(a)+len(b))
	var out []NodeID
	for _, h := range a {
		if inB[h] {
			continue // closed here
		}
		if !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}
	for _, h := range b {
		if inA[h] {
			continue // closed here
		}
		if !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
