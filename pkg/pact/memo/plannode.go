package memo

import (
	"fmt"

	"github.com/lyb5215659/pact-optimizer/pkg/pact/cost"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/opt"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/props"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/strategy"
)

// PlanNode is one physical candidate for an OptimizerNode: a choice of local
// strategy plus, for each input, a Channel recording the shipping strategy
// chosen on that edge. A unary Kind has len(Inputs) == 1, a binary Kind has
// 2, KindSource has 0, and KindSinkJoiner has 2 — the same tagged-kind shape
// graph.Node uses, rather than a Source/Sink/SingleInput/DualInput type
// hierarchy, since Go candidates are plain structs, not a class tree.
type PlanNode struct {
	// NodeID is the originating OptimizerNode's post-order id (graph.Node.ID());
	// kept as a plain int rather than a graph.NodeID to avoid this package
	// importing graph, which itself imports memo for Node.Alternatives.
	NodeID int
	Kind   opt.Kind
	Name   string

	Inputs []Channel

	LocalStrategy strategy.Local

	GlobalDelivered props.Global
	LocalDelivered  props.Local

	// OwnCost is what the cost estimator returns for this candidate alone:
	// its input channels' BytesShipped (as network cost) plus its local
	// strategy's disk and CPU cost. Cost is the cumulative cost of this
	// candidate and everything that feeds it, i.e. OwnCost plus every
	// input's own Cost.
	OwnCost cost.Vector
	Cost    cost.Vector

	Parallelism      int
	TasksPerInstance int
	MemoryConsumer   bool

	// MemoryConsumerWeight and MemoryPerSubtask are filled in by finalize
	// (§4.6); MemoryPerSubtask is -1 until then.
	MemoryConsumerWeight int64
	MemoryPerSubtask     int64

	// BranchPins records, for every unclosed ancestor branch point this
	// candidate descends from, which of that ancestor's surviving
	// alternatives it is built on top of (the ancestor's arena handle,
	// keyed as a plain int since this package cannot import graph). A
	// binary candidate may only combine two input candidates whose pins
	// agree on every branch point they share — otherwise the combination
	// would silently assume two different physical layouts for the same
	// upstream data (§4.4, §8 invariant 7).
	BranchPins map[int]int
}

func (p *PlanNode) String() string {
	return fmt.Sprintf("%s#%d[%s]", p.Kind, p.NodeID, p.Name)
}
