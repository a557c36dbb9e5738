package xform_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/lyb5215659/pact-optimizer/pkg/pact/cluster"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/cost"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/graph"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/opt"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/stats"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/xform"
)

var testInstance = cluster.InstanceTypeDescription{
	InstanceType:          cluster.InstanceType{Identifier: "m5.large"},
	Hardware:              cluster.Hardware{FreeMemoryBytes: 1_000_000_000, Cores: 4},
	MaxAvailableInstances: 4,
}

func TestFinalizeProducesOneNodePerDistinctContract(t *testing.T) {
	g := buildEnumerated(t, wordCountPlan())

	plan, err := xform.Finalize(g, testInstance)
	require.NoError(t, err)
	require.Len(t, plan.Nodes, 4, "Source, Map, Reduce, Sink — one PlanNode each")
	require.Len(t, plan.Sinks, 1)
	require.NotEmpty(t, plan.RunID.String())
}

func TestFinalizeAssignsMemoryProportionalToWeight(t *testing.T) {
	g := buildEnumerated(t, wordCountPlan())

	plan, err := xform.Finalize(g, testInstance)
	require.NoError(t, err)

	found := false
	for _, n := range plan.Nodes {
		if n.Kind == opt.KindReduce {
			found = true
			require.Greater(t, n.MemoryPerSubtask, int64(0), "Reduce is a memory consumer and must receive a positive budget")
		}
		if n.Kind == opt.KindMap {
			require.Equal(t, int64(-1), n.MemoryPerSubtask, "Map is not a memory consumer")
		}
	}
	require.True(t, found)
}

func TestFinalizeDedupsSharedAncestorByIdentity(t *testing.T) {
	source := &opt.Contract{Kind: opt.KindSource, Name: "lines", SourceID: "lines"}
	mapper := &opt.Contract{Kind: opt.KindMap, Name: "tokenize", Inputs: []*opt.Contract{source}}
	sinkA := &opt.Contract{Kind: opt.KindSink, Name: "a", Inputs: []*opt.Contract{mapper}}
	sinkB := &opt.Contract{Kind: opt.KindSink, Name: "b", Inputs: []*opt.Contract{mapper}}

	provider := stats.StaticProvider{"lines": {Cardinality: 1000, AvgRecordWidth: 20, NumBytes: 20000}}
	g, err := graph.BuildGraph([]*opt.Contract{sinkA, sinkB}, provider, 0, 4)
	require.NoError(t, err)
	graph.PropagateInterestingProperties(g, cost.DefaultEstimator{})
	graph.ComputeBranches(g)
	require.NoError(t, xform.EnumerateAlternatives(g, cost.DefaultEstimator{}, nil))

	plan, err := xform.Finalize(g, testInstance)
	require.NoError(t, err)
	require.Len(t, plan.Sinks, 2)
	// Source + Map are shared by both sinks, plus two distinct Sinks: 4
	// distinct PlanNodes total, not 6.
	require.Len(t, plan.Nodes, 4)
}

func TestFinalizeErrorsWhenASinkHasNoAlternatives(t *testing.T) {
	g := buildEnumerated(t, wordCountPlan())
	sink := g.Node(g.Sinks[0])
	sink.Alternatives = nil

	_, err := xform.Finalize(g, testInstance)
	require.Error(t, err)
	require.True(t, errors.Is(err, xform.ErrNoRoot))
}

func TestNthBestPlanOrdersByIncreasingCost(t *testing.T) {
	g := buildEnumerated(t, wordCountPlan())
	sink := g.Node(g.Sinks[0])
	require.GreaterOrEqual(t, len(sink.Alternatives), 1)

	first, err := xform.NthBestPlan(g, 0, testInstance)
	require.NoError(t, err)
	require.NotNil(t, first)

	if len(sink.RawCandidates) > 1 {
		second, err := xform.NthBestPlan(g, 1, testInstance)
		require.NoError(t, err)
		require.LessOrEqual(t, first.TotalCost.Scalar(), second.TotalCost.Scalar())
	}
}

func TestNthBestPlanOutOfRangeErrors(t *testing.T) {
	g := buildEnumerated(t, wordCountPlan())
	sink := g.Node(g.Sinks[0])

	_, err := xform.NthBestPlan(g, len(sink.Alternatives)+10, testInstance)
	require.Error(t, err)
	require.True(t, errors.Is(err, xform.ErrNoSuchPlan))
}
