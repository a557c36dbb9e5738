package memo_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lyb5215659/pact-optimizer/pkg/pact/cost"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/memo"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/opt"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/props"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/strategy"
)

func TestPlanNodeString(t *testing.T) {
	n := &memo.PlanNode{NodeID: 3, Kind: opt.KindReduce, Name: "count"}
	require.Equal(t, "Reduce#3[count]", n.String())
}

func TestOptimizedPlanFormatListsNodesAndChannels(t *testing.T) {
	source := &memo.PlanNode{
		NodeID: 1, Kind: opt.KindSource, Name: "lines",
		GlobalDelivered: props.AnyGlobal(), LocalDelivered: props.AnyLocalProps(),
		Cost: cost.Vector{CPU: 100},
	}
	reduce := &memo.PlanNode{
		NodeID: 2, Kind: opt.KindReduce, Name: "count",
		Inputs: []memo.Channel{{From: source, Shipping: strategy.RepartitionHash}},
		LocalStrategy: strategy.CombiningSort,
		Cost:          cost.Vector{Network: 50, CPU: 100},
	}
	plan := &memo.OptimizedPlan{Sources: []*memo.PlanNode{source}, Sinks: []*memo.PlanNode{reduce}, Nodes: []*memo.PlanNode{source, reduce}}

	var buf strings.Builder
	require.NoError(t, plan.Format(&buf))

	out := buf.String()
	require.Contains(t, out, "Source")
	require.Contains(t, out, "Reduce")
	require.Contains(t, out, "Repartition-Hash")
	require.Contains(t, out, "Combining-Sort")
}
