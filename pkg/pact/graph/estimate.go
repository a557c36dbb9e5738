package graph

import (
	"github.com/lyb5215659/pact-optimizer/pkg/pact/opt"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/stats"
)

// computeEstimates implements §4.2's post-visit estimation step: for
// sources, ask the statistics provider; for internal nodes, apply a
// node-kind-specific estimate from input estimates. Nodes are processed in
// post-order id order, which is already a valid topological order since
// every input has a strictly smaller id (it was visited, and so assigned an
// id, before its consumer finished visiting).
func (g *Graph) computeEstimates(provider stats.Provider) error {
	byID := make([]*Node, g.nextID) // index 0 unused; ids are 1..nextID-1
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
		g.estimateNode(n, provider)
	}
	return nil
}

func (g *Graph) estimateNode(n *Node, provider stats.Provider) {
	switch n.Kind {
	case opt.KindSource:
		e := provider.GetStats(n.Contract.SourceID)
		if e.IsUnknown() {
			n.Estimate = unknownEstimate
			return
		}
		n.Estimate = Estimate{Cardinality: e.Cardinality, AvgWidth: e.AvgRecordWidth, OutputBytes: e.NumBytes}

	case opt.KindMap:
		n.Estimate = g.Node(n.Inputs[0]).Estimate

	case opt.KindReduce:
		in := g.Node(n.Inputs[0]).Estimate
		if in.Cardinality < 0 {
			n.Estimate = unknownEstimate
			return
		}
		// Conservative default: grouping reduces cardinality by a constant
		// factor absent better information from a cost-estimator hint.
		card := in.Cardinality / 10
		if card < 1 {
			card = 1
		}
		n.Estimate = Estimate{Cardinality: card, AvgWidth: in.AvgWidth, OutputBytes: int64(float64(card) * in.AvgWidth)}

	case opt.KindMatch:
		l, r := g.Node(n.Inputs[0]).Estimate, g.Node(n.Inputs[1]).Estimate
		if l.Cardinality < 0 || r.Cardinality < 0 {
			n.Estimate = unknownEstimate
			return
		}
		card := min64(l.Cardinality, r.Cardinality)
		width := l.AvgWidth + r.AvgWidth
		n.Estimate = Estimate{Cardinality: card, AvgWidth: width, OutputBytes: int64(float64(card) * width)}

	case opt.KindCoGroup:
		l, r := g.Node(n.Inputs[0]).Estimate, g.Node(n.Inputs[1]).Estimate
		if l.Cardinality < 0 || r.Cardinality < 0 {
			n.Estimate = unknownEstimate
			return
		}
		card := max64(l.Cardinality, r.Cardinality) / 2
		if card < 1 {
			card = 1
		}
		width := l.AvgWidth + r.AvgWidth
		n.Estimate = Estimate{Cardinality: card, AvgWidth: width, OutputBytes: int64(float64(card) * width)}

	case opt.KindCross:
		l, r := g.Node(n.Inputs[0]).Estimate, g.Node(n.Inputs[1]).Estimate
		if l.Cardinality < 0 || r.Cardinality < 0 {
			n.Estimate = unknownEstimate
			return
		}
		card := l.Cardinality * r.Cardinality
		width := l.AvgWidth + r.AvgWidth
		n.Estimate = Estimate{Cardinality: card, AvgWidth: width, OutputBytes: int64(float64(card) * width)}

	case opt.KindSink:
		n.Estimate = g.Node(n.Inputs[0]).Estimate

	case opt.KindSinkJoiner:
		n.Estimate = unknownEstimate
	}
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
