package memo

import (
	"fmt"
	"io"
	"sort"

	"github.com/google/uuid"

	"github.com/lyb5215659/pact-optimizer/pkg/pact/cluster"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/cost"
)

// OptimizedPlan is the finalized output of a compile (§3's OptimizedPlan,
// §4.6/§4.7): the chosen PlanNode for every OptimizerNode, reachable from the
// sinks, with memory budgets assigned and an instance type picked.
type OptimizedPlan struct {
	// RunID identifies this particular compile, independent of the plan's
	// content — two compiles of byte-identical input still get distinct
	// RunIDs, per SPEC_FULL.md's DOMAIN STACK section (grounded on
	// google/uuid; used to correlate a compile with downstream logs, not to
	// test determinism — invariant 6 in §8 compares plan content instead).
	RunID uuid.UUID

	Sources []*PlanNode
	Sinks   []*PlanNode

	// Nodes holds every PlanNode reachable from Sinks, in the order finalize
	// first visits them (not indexed by NodeID). Built once by finalize and never mutated afterward, so Format and
	// NthBestPlan callers can rely on a stable, idempotent view (§8
	// invariant: "plan-finalization idempotence").
	Nodes []*PlanNode

	InstanceType cluster.InstanceTypeDescription

	// TotalMemoryWeight is the sum of MemoryConsumerWeight across every
	// memory-consuming node, used (together with the instance type's usable
	// memory) to compute each node's MemoryPerSubtask.
	TotalMemoryWeight int64

	// TotalCost is the sum of every sink's cumulative Cost vector; an
	// ancestor shared by several sinks is counted once per sink.
	TotalCost cost.Vector
}

// Format writes a human-readable dump of the plan in NodeID order: one line
// per node with its kind, parallelism, cumulative cost, the kinds of its
// delivered global and local properties and its memory per subtask, then one
// indented line per input channel naming the producer, the shipping strategy
// and the node's local strategy — grounded on the teacher's memo.ExprFmtCtx/
// FormatExpr tree-dump convention (pkg/sql/opt/memo/expr_format.go), adapted
// here to a flat DAG rather than a single-rooted expression tree since a
// plan may have more than one sink.
func (p *OptimizedPlan) Format(w io.Writer) error {
	nodes := make([]*PlanNode, len(p.Nodes))
	copy(nodes, p.Nodes)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].NodeID < nodes[j].NodeID })

	for _, n := range nodes {
		if _, err := fmt.Fprintf(w, "%d: %s  parallelism=%d  cost=%.1f  global=%s  local=%s  memory=%d\n",
			n.NodeID, n.Kind, n.Parallelism, n.Cost.Scalar(),
			n.GlobalDelivered.Kind, n.LocalDelivered.Kind, n.MemoryPerSubtask); err != nil {
			return err
		}
		for i, ch := range n.Inputs {
			if _, err := fmt.Fprintf(w, "    in[%d] <- %s via %s  local=%s\n",
				i, ch.From, ch.Shipping, n.LocalStrategy); err != nil {
				return err
			}
		}
	}
	return nil
}
