package graph_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/lyb5215659/pact-optimizer/pkg/pact/graph"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/opt"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/stats"
)

func wordCountPlan() []*opt.Contract {
	source := &opt.Contract{Kind: opt.KindSource, Name: "lines", SourceID: "lines"}
	mapper := &opt.Contract{Kind: opt.KindMap, Name: "tokenize", Inputs: []*opt.Contract{source}}
	reducer := &opt.Contract{Kind: opt.KindReduce, Name: "count", Inputs: []*opt.Contract{mapper}, KeyFields: []int{0}}
	sink := &opt.Contract{Kind: opt.KindSink, Name: "counts", Inputs: []*opt.Contract{reducer}}
	return []*opt.Contract{sink}
}

func TestBuildGraphAssignsDenseIDs(t *testing.T) {
	g, err := graph.BuildGraph(wordCountPlan(), nil, 0, 1)
	require.NoError(t, err)

	seen := map[int]bool{}
	for id := 1; id <= g.NumNodes(); id++ {
		seen[id] = false
	}
	for _, h := range g.NodeIDsByPostOrder() {
		n := g.Node(h)
		require.False(t, seen[n.ID()], "id %d assigned twice", n.ID())
		seen[n.ID()] = true
	}
	for id, wasSeen := range seen {
		require.True(t, wasSeen, "id %d in 1..%d was never assigned", id, g.NumNodes())
	}
}

func TestBuildGraphEmptyPlanErrors(t *testing.T) {
	_, err := graph.BuildGraph(nil, nil, 0, 1)
	require.Error(t, err)
	require.True(t, errors.Is(err, graph.ErrEmptyPlan))
}

func TestBuildGraphSharesReusedContract(t *testing.T) {
	source := &opt.Contract{Kind: opt.KindSource, Name: "lines", SourceID: "lines"}
	mapper := &opt.Contract{Kind: opt.KindMap, Name: "tokenize", Inputs: []*opt.Contract{source}}
	sinkA := &opt.Contract{Kind: opt.KindSink, Name: "a", Inputs: []*opt.Contract{mapper}}
	sinkB := &opt.Contract{Kind: opt.KindSink, Name: "b", Inputs: []*opt.Contract{mapper}}

	g, err := graph.BuildGraph([]*opt.Contract{sinkA, sinkB}, nil, 0, 1)
	require.NoError(t, err)

	require.Len(t, g.Sinks, 2)
	nodeA := g.Node(g.Sinks[0])
	nodeB := g.Node(g.Sinks[1])
	require.Equal(t, nodeA.Inputs[0], nodeB.Inputs[0], "both sinks must share the single Map node")
}

func TestBuildGraphSinkJoinerHasOneRoot(t *testing.T) {
	source := &opt.Contract{Kind: opt.KindSource, Name: "lines", SourceID: "lines"}
	sinkA := &opt.Contract{Kind: opt.KindSink, Name: "a", Inputs: []*opt.Contract{source}}
	sinkB := &opt.Contract{Kind: opt.KindSink, Name: "b", Inputs: []*opt.Contract{source}}
	sinkC := &opt.Contract{Kind: opt.KindSink, Name: "c", Inputs: []*opt.Contract{source}}

	g, err := graph.BuildGraph([]*opt.Contract{sinkA, sinkB, sinkC}, nil, 0, 1)
	require.NoError(t, err)
	require.Len(t, g.Sinks, 3)
	require.NotZero(t, g.Root)
	require.Equal(t, opt.KindSinkJoiner, g.Node(g.Root).Kind)
}

func TestComputeEstimatesPropagatesFromSource(t *testing.T) {
	provider := stats.StaticProvider{"lines": {Cardinality: 1000, AvgRecordWidth: 20, NumBytes: 20000}}
	g, err := graph.BuildGraph(wordCountPlan(), provider, 0, 1)
	require.NoError(t, err)

	sink := g.Node(g.Sinks[0])
	reduceNode := g.Node(sink.Inputs[0])
	require.Equal(t, opt.KindReduce, reduceNode.Kind)

	mapNode := g.Node(reduceNode.Inputs[0])
	require.Equal(t, opt.KindMap, mapNode.Kind)
	require.Equal(t, int64(1000), mapNode.Estimate.Cardinality, "Map passes the source's cardinality through unchanged")
	require.Equal(t, int64(100), reduceNode.Estimate.Cardinality, "Reduce's default cardinality heuristic divides by 10")
}

func TestComputeEstimatesUnknownPropagates(t *testing.T) {
	g, err := graph.BuildGraph(wordCountPlan(), stats.StaticProvider{}, 0, 1)
	require.NoError(t, err)
	sink := g.Node(g.Sinks[0])
	reduceNode := g.Node(sink.Inputs[0])
	require.Equal(t, int64(-1), reduceNode.Estimate.Cardinality, "an unknown source estimate propagates through Map and Reduce")
}
