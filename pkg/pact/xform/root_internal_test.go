package xform

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/lyb5215659/pact-optimizer/pkg/pact/cluster"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/cost"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/graph"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/memo"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/opt"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/stats"
)

func buildEnumeratedForRootTest(t *testing.T, contracts []*opt.Contract) *graph.Graph {
	t.Helper()
	provider := stats.StaticProvider{"lines": {Cardinality: 1000, AvgRecordWidth: 20, NumBytes: 20000}}
	g, err := graph.BuildGraph(contracts, provider, 0, 4)
	require.NoError(t, err)
	graph.PropagateInterestingProperties(g, cost.DefaultEstimator{})
	graph.ComputeBranches(g)
	require.NoError(t, EnumerateAlternatives(g, cost.DefaultEstimator{}, nil))
	return g
}

func leafPlan(kind opt.Kind) *memo.PlanNode {
	return &memo.PlanNode{Kind: kind, MemoryPerSubtask: -1}
}

func singleSinkContracts() []*opt.Contract {
	source := &opt.Contract{Kind: opt.KindSource, Name: "lines", SourceID: "lines"}
	mapper := &opt.Contract{Kind: opt.KindMap, Name: "tokenize", Inputs: []*opt.Contract{source}}
	reducer := &opt.Contract{Kind: opt.KindReduce, Name: "count", Inputs: []*opt.Contract{mapper}, KeyFields: []int{0}}
	sink := &opt.Contract{Kind: opt.KindSink, Name: "counts", Inputs: []*opt.Contract{reducer}}
	return []*opt.Contract{sink}
}

func TestCollectSinkPlansUnwrapsLeftDeepSinkJoiners(t *testing.T) {
	sinkA, sinkB, sinkC := leafPlan(opt.KindSink), leafPlan(opt.KindSink), leafPlan(opt.KindSink)

	// joinSinks builds left-deep: SinkJoiner(SinkJoiner(A, B), C).
	inner := &memo.PlanNode{
		Kind:   opt.KindSinkJoiner,
		Inputs: []memo.Channel{{From: sinkA}, {From: sinkB}},
	}
	outer := &memo.PlanNode{
		Kind:   opt.KindSinkJoiner,
		Inputs: []memo.Channel{{From: inner}, {From: sinkC}},
	}

	got := collectSinkPlans(outer)
	require.Equal(t, []*memo.PlanNode{sinkA, sinkB, sinkC}, got)
}

func TestCollectSinkPlansSingleSinkIsNotUnwrapped(t *testing.T) {
	sink := leafPlan(opt.KindSink)
	require.Equal(t, []*memo.PlanNode{sink}, collectSinkPlans(sink))
}

func TestRootPlanRejectsMoreThanOneSurvivingAlternative(t *testing.T) {
	g := buildEnumeratedForRootTest(t, singleSinkContracts())
	root := g.Node(g.Root)
	require.Len(t, root.Alternatives, 1, "precondition: enumeration already settled the root to one candidate")

	// Simulate the compile-inconsistency §4.5 describes: something left the
	// root with more than one surviving alternative after pruning.
	root.Alternatives = append(root.Alternatives, root.Alternatives[0])

	_, err := rootPlan(g, 0)
	require.Error(t, err)
	require.True(t, errors.Is(err, graph.ErrCompileInconsistency))
}

func TestRootPlanRejectsNoSurvivingAlternative(t *testing.T) {
	g := buildEnumeratedForRootTest(t, singleSinkContracts())
	root := g.Node(g.Root)
	root.Alternatives = nil

	_, err := rootPlan(g, 0)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNoRoot))
}

func TestFinalizeGoesThroughRootNotIndependentSinkPicks(t *testing.T) {
	source := &opt.Contract{Kind: opt.KindSource, Name: "lines", SourceID: "lines"}
	mapper := &opt.Contract{Kind: opt.KindMap, Name: "tokenize", Inputs: []*opt.Contract{source}}
	sinkA := &opt.Contract{Kind: opt.KindSink, Name: "a", Inputs: []*opt.Contract{mapper}}
	sinkB := &opt.Contract{Kind: opt.KindSink, Name: "b", Inputs: []*opt.Contract{mapper}}

	g := buildEnumeratedForRootTest(t, []*opt.Contract{sinkA, sinkB})
	require.Equal(t, opt.KindSinkJoiner, g.Node(g.Root).Kind, "two sinks must be joined under a synthetic root")

	instance := cluster.InstanceTypeDescription{
		InstanceType:          cluster.InstanceType{Identifier: "m5.large"},
		Hardware:              cluster.Hardware{FreeMemoryBytes: 1_000_000_000, Cores: 4},
		MaxAvailableInstances: 4,
	}
	plan, err := Finalize(g, instance)
	require.NoError(t, err)
	require.Len(t, plan.Sinks, 2)

	var mapPlans []*memo.PlanNode
	for _, n := range plan.Nodes {
		if n.Kind == opt.KindMap {
			mapPlans = append(mapPlans, n)
		}
	}
	require.Len(t, mapPlans, 1, "both sinks must resolve to the very same Map PlanNode, not two distinct pointers for the shared ancestor")
}
