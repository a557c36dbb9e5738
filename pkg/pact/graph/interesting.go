package graph

import (
	"github.com/lyb5215659/pact-optimizer/pkg/pact/cost"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/opt"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/props"
)

// PropagateInterestingProperties implements §4.3: a top-down descent from
// the root that, for each node, waits until every one of its outgoing edges
// has contributed a request (required because of DAG reconvergence — a
// premature visit would propagate an incomplete union), then derives the
// requests it places on its own inputs from its own interesting-properties
// union and its operator kind.
func PropagateInterestingProperties(g *Graph, estimator cost.Estimator) {
	g.descendInteresting(g.Root, props.NewInterestingSet())
}

// descendInteresting folds the requests arriving along one incoming edge
// into h's interesting set, and — once all of h's outgoing edges have
// contributed — computes the requests h places on each of its own inputs
// and recurses.
func (g *Graph) descendInteresting(h NodeID, fromConsumer *props.InterestingSet) {
	n := g.Node(h)
	if n.Interesting == nil {
		n.Interesting = props.NewInterestingSet()
	}
	for _, r := range fromConsumer.Entries() {
		if r.Global.Kind == props.AnyPartitioning && r.Local.Kind == props.AnyLocal {
			continue
		}
		n.Interesting.Add(r)
	}
	n.outEdgesVisited++

	if n.outEdgesTotal > 0 && n.outEdgesVisited < n.outEdgesTotal {
		// Not every consumer has reported in yet; a later arrival will
		// finish the union and trigger the descent into inputs.
		return
	}

	for i, in := range n.Inputs {
		req := requestForInput(n, i)
		g.descendInteresting(in, req)
	}
}

// requestForInput derives, per §4.3 point (3), the requests node n places on
// its i-th input, as a set rather than a single RequestedSet: a pass-through
// node forwards every distinct request its own consumers placed on it, not
// just one of them.
func requestForInput(n *Node, i int) *props.InterestingSet {
	switch n.Kind {
	case opt.KindReduce, opt.KindCoGroup, opt.KindMatch:
		// Both hash- and range-partitioning are tracked as interesting,
		// each as its own RequestedSet carrying the grouping request:
		// callers consult Entries() and consider each independently, and
		// the enumerator itself tries both partitioning strategies from
		// the admissible-strategy table regardless.
		s := props.NewInterestingSet()
		s.Add(props.RequestedSet{
			Global: props.HashPartitionedOn(n.KeyFields),
			Local:  props.GroupedOn(n.KeyFields),
		})
		s.Add(props.RequestedSet{
			Global: props.RangePartitionedOn(n.KeyFields),
			Local:  props.GroupedOn(n.KeyFields),
		})
		return s
	case opt.KindCross:
		s := props.NewInterestingSet()
		s.Add(props.RequestedSet{Global: props.FullReplication()})
		return s
	case opt.KindMap, opt.KindSource, opt.KindSink, opt.KindSinkJoiner:
		// Pass through the whole union of what downstream asked for,
		// unchanged; Source has no inputs so this is never actually applied
		// to it. A SinkJoiner has two inputs and forwards the same union to
		// both, since it does not distinguish between them.
		return n.Interesting
	default:
		return props.NewInterestingSet()
	}
}
