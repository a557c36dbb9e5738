package xform

import (
	"github.com/cockroachdb/errors"

	"github.com/lyb5215659/pact-optimizer/pkg/pact/cluster"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/graph"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/memo"
)

// ErrNoSuchPlan marks an out-of-range NthBestPlan request.
var ErrNoSuchPlan = errors.New("no such plan")

// nthCheapest returns the nth-cheapest (0-based) candidate from a fixed
// candidate list, breaking ties by stable sort order so repeated calls are
// deterministic — mirroring the teacher's alternateExprHeap, which likewise
// hands back successively more expensive members of a fixed candidate set
// rather than re-searching.
func nthCheapest(alternatives []*memo.PlanNode, n int) (*memo.PlanNode, error) {
	if n < 0 || n >= len(alternatives) {
		return nil, errors.Mark(errors.Newf("requested plan %d of %d alternatives", n, len(alternatives)), ErrNoSuchPlan)
	}
	sorted := make([]*memo.PlanNode, len(alternatives))
	copy(sorted, alternatives)
	sortByCost(sorted)
	return sorted[n], nil
}

// NthBestPlan implements §4.9: the nth-cheapest (0-based) whole-plan
// candidate, ranked across the root's own RawCandidates (see rootPlan) —
// a single global ranking over whole-plan combinations, mirroring the
// teacher's alternateExprHeap handing back successively more expensive
// members of one fixed candidate set.
func NthBestPlan(g *graph.Graph, n int, instanceType cluster.InstanceTypeDescription) (*memo.OptimizedPlan, error) {
	root, err := rootPlan(g, n)
	if err != nil {
		return nil, err
	}
	return finalizeSinkPlans(collectSinkPlans(root), instanceType)
}
