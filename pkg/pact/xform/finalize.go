package xform

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/lyb5215659/pact-optimizer/pkg/pact/cluster"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/cost"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/graph"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/memo"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/opt"
)

// ErrNoRoot marks the §7 compile-inconsistency case where the graph's root
// has zero surviving alternatives.
var ErrNoRoot = errors.New("compile inconsistency: no plan for root")

// Finalize implements §4.6: take the root's single surviving alternative —
// its uniqueness already enforced by EnumerateAlternatives, per spec.md
// §4.5's "the root's alternative list contains exactly one candidate"
// invariant — and recover each original sink's own PlanNode by unwrapping
// the synthetic SinkJoiner candidates §4.2 wrapped them in. Selecting
// through the root rather than re-picking every sink independently is what
// makes mergePins' branch-pin check (enumerate.go) actually apply across
// sinks: the root is itself a binary node (or, for a single sink, the sink
// node itself) whose own candidate generation already rejected any
// combination where the two sides disagree on a shared ancestor's choice.
func Finalize(g *graph.Graph, instanceType cluster.InstanceTypeDescription) (*memo.OptimizedPlan, error) {
	root, err := rootPlan(g, 0)
	if err != nil {
		return nil, err
	}
	return finalizeSinkPlans(collectSinkPlans(root), instanceType)
}

// rootPlan returns the n-th cheapest (0-based) complete-plan candidate at
// the graph's root. For n == 0 this is simply the root's sole Pareto-pruned
// alternative. For n > 0 it ranks across RawCandidates, the root's full
// pre-pruning candidate list — since every other candidate at the root is
// dominated by the cheapest once pruned (the root's own Interesting set is
// always empty, nothing downstream of it exists to want any particular
// delivered property), Alternatives itself never holds more than one entry
// to rank among.
func rootPlan(g *graph.Graph, n int) (*memo.PlanNode, error) {
	root := g.Node(g.Root)
	if len(root.Alternatives) == 0 {
		return nil, errors.Mark(errors.Newf("root node %d has no surviving alternative", root.ID()), ErrNoRoot)
	}
	if len(root.Alternatives) != 1 {
		return nil, errors.Mark(
			errors.Newf("root settled on %d candidates, expected exactly 1", len(root.Alternatives)),
			graph.ErrCompileInconsistency,
		)
	}
	if n == 0 {
		return root.Alternatives[0], nil
	}
	return nthCheapest(root.RawCandidates, n)
}

// collectSinkPlans recovers the original per-sink PlanNodes from a root
// candidate, recursing through any synthetic SinkJoiner wrapping (§4.2): a
// SinkJoiner candidate's two channels each lead to either another
// SinkJoiner candidate or a genuine sink candidate.
func collectSinkPlans(p *memo.PlanNode) []*memo.PlanNode {
	if p.Kind != opt.KindSinkJoiner {
		return []*memo.PlanNode{p}
	}
	var out []*memo.PlanNode
	for _, ch := range p.Inputs {
		out = append(out, collectSinkPlans(ch.From)...)
	}
	return out
}

// finalizeSinkPlans walks the PlanNode graph reachable from the given sink
// plans, deduplicated by pointer identity — which is how a reconverged DAG
// branch is discovered: two sinks whose paths share an ancestor hold the
// very same *memo.PlanNode there, by construction of enumerate.go's branch
// pinning. It wires each Channel's Target and assigns a memory budget to
// every memory-consuming node proportional to its share of the total memory
// weight (§4.6).
func finalizeSinkPlans(sinkPlans []*memo.PlanNode, instanceType cluster.InstanceTypeDescription) (*memo.OptimizedPlan, error) {
	visited := make(map[*memo.PlanNode]bool)
	var nodes, sources []*memo.PlanNode
	var totalWeight int64
	var totalCost cost.Vector

	var visit func(p *memo.PlanNode)
	visit = func(p *memo.PlanNode) {
		if visited[p] {
			return
		}
		visited[p] = true
		nodes = append(nodes, p)

		if p.MemoryConsumer {
			weight := int64(p.TasksPerInstance)
			if weight < 1 {
				weight = 1
			}
			p.MemoryConsumerWeight = weight
			totalWeight += weight
		}
		if p.Kind == opt.KindSource {
			sources = append(sources, p)
		}
		for i := range p.Inputs {
			p.Inputs[i].Target = p
			visit(p.Inputs[i].From)
		}
	}
	for _, s := range sinkPlans {
		visit(s)
		totalCost = totalCost.Add(s.Cost)
	}

	usablePerInstance := cluster.UsableMemory(instanceType.Hardware)
	for _, n := range nodes {
		if n.MemoryConsumer && totalWeight > 0 {
			n.MemoryPerSubtask = usablePerInstance / totalWeight * n.MemoryConsumerWeight
		} else {
			n.MemoryPerSubtask = -1
		}
	}

	return &memo.OptimizedPlan{
		RunID:             uuid.New(),
		Sources:           sources,
		Sinks:             sinkPlans,
		Nodes:             nodes,
		InstanceType:      instanceType,
		TotalMemoryWeight: totalWeight,
		TotalCost:         totalCost,
	}, nil
}
