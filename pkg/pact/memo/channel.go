// Package memo holds the physical candidates the enumerator (§4.5) produces
// and the driver (§4.7) finalizes: PlanNode, the channel that connects one
// PlanNode to a consumer, and the finished OptimizedPlan. Named after the
// teacher's own memo package, which plays the analogous role of "the place
// finished physical candidates live" — though unlike the teacher's group-based
// memo, candidates here are plain per-OptimizerNode slices (Design Notes §9),
// since interesting-property pruning already keeps each list small.
package memo

import (
	"github.com/lyb5215659/pact-optimizer/pkg/pact/props"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/strategy"
)

// Channel is one candidate's edge to one of its consumer's inputs: which
// producer candidate feeds it, which shipping strategy ships it, and what
// the receiving end sees as a result (§4.1's filter/transfer functions
// applied to the producer's delivered properties).
type Channel struct {
	From *PlanNode

	Shipping strategy.Shipping

	// BytesShipped is this edge's contribution to network cost: 0 for
	// Forward, the producer's estimated output size for a repartition, and
	// that size multiplied by the consumer's parallelism for Broadcast,
	// since every consumer subtask receives a full copy.
	BytesShipped float64

	// GlobalAtReceiver/LocalAtReceiver are what this channel delivers to
	// the consuming PlanNode, after Shipping's filter has been applied to
	// From's own delivered properties.
	GlobalAtReceiver props.Global
	LocalAtReceiver  props.Local

	// Target is filled in by finalize (§4.6): the consuming PlanNode this
	// channel feeds. Candidates are built bottom-up and so do not know
	// their consumer at construction time; Target lets a finalized plan be
	// walked in either direction.
	Target *PlanNode
}
