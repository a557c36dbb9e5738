package strategy_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lyb5215659/pact-optimizer/pkg/pact/opt"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/strategy"
)

func TestAdmissibleShippingCoversEveryKind(t *testing.T) {
	for _, kind := range []opt.Kind{opt.KindSource, opt.KindSink, opt.KindMap, opt.KindReduce, opt.KindMatch, opt.KindCoGroup, opt.KindCross, opt.KindSinkJoiner} {
		require.NotEmpty(t, strategy.AdmissibleShipping(kind), kind.String())
		require.NotEmpty(t, strategy.AdmissibleLocal(kind), kind.String())
	}
}

func TestMatchAdmitsCoPartitionedForward(t *testing.T) {
	choices := strategy.AdmissibleShipping(opt.KindMatch)
	found := false
	for _, c := range choices {
		if c.Left == strategy.Forward && c.Right == strategy.Forward {
			found = true
			require.True(t, c.CoPartitionedOnly)
		}
	}
	require.True(t, found, "Match must admit a (Forward, Forward) choice guarded by CoPartitionedOnly")
}

func TestFilterShippingByHint(t *testing.T) {
	choices := strategy.AdmissibleShipping(opt.KindMatch)
	hash := strategy.RepartitionHash

	filtered := strategy.FilterShippingByHint(choices, &hash, &hash)
	require.Len(t, filtered, 1)
	require.Equal(t, strategy.RepartitionHash, filtered[0].Left)
	require.Equal(t, strategy.RepartitionHash, filtered[0].Right)

	unmatched := strategy.RepartitionRange
	broadcast := strategy.Broadcast
	// No admissible choice pairs Range with Broadcast; the hint cannot
	// invent a new choice, so filtering falls back to the unfiltered set.
	require.Equal(t, choices, strategy.FilterShippingByHint(choices, &unmatched, &broadcast))
}

func TestFilterLocalByHint(t *testing.T) {
	choices := strategy.AdmissibleLocal(opt.KindMatch)
	filtered := strategy.FilterLocalByHint(choices, strategy.HashBuildFirst, true)
	require.Equal(t, []strategy.Local{strategy.HashBuildFirst}, filtered)

	require.Equal(t, choices, strategy.FilterLocalByHint(choices, strategy.None, false))
}

func TestHintRoundTrip(t *testing.T) {
	s, ok := strategy.ShippingFromHint(opt.HintValueShipBroadcast)
	require.True(t, ok)
	require.Equal(t, strategy.Broadcast, s)

	_, ok = strategy.ShippingFromHint("not a real hint")
	require.False(t, ok)

	l, ok := strategy.LocalFromHint(opt.HintValueLocalStrategyHashBuildSecond)
	require.True(t, ok)
	require.Equal(t, strategy.HashBuildSecond, l)
}

func TestRankIsDeterministic(t *testing.T) {
	require.Less(t, strategy.Rank(strategy.Forward, strategy.Sort), strategy.Rank(strategy.RepartitionHash, strategy.Sort))
	require.Equal(t, strategy.Rank(strategy.Forward, strategy.Sort), strategy.Rank(strategy.Forward, strategy.Sort))
}
