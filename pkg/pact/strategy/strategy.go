// Package strategy enumerates the physical shipping and local execution
// strategies the optimizer chooses among, and the admissible-strategy table
// of §4.5: which strategies a given operator kind may legally use before
// compiler hints narrow the set further.
package strategy

import "github.com/lyb5215659/pact-optimizer/pkg/pact/opt"

// Shipping describes how records travel from a producing subtask to a
// consuming subtask between two operators.
type Shipping int

const (
	// Forward ships each producer's output only to the colocated consumer
	// subtask; it changes neither partitioning nor order.
	Forward Shipping = iota
	// RepartitionHash hash-partitions on the channel's key fields.
	RepartitionHash
	// RepartitionRange range-partitions on the channel's key fields.
	RepartitionRange
	// Broadcast replicates the entire input to every consumer subtask.
	Broadcast
)

func (s Shipping) String() string {
	switch s {
	case Forward:
		return "Forward"
	case RepartitionHash:
		return "Repartition-Hash"
	case RepartitionRange:
		return "Repartition-Range"
	case Broadcast:
		return "Broadcast"
	default:
		return "Unknown"
	}
}

// Local describes how a consumer processes the records of one partition.
type Local int

const (
	// None is used by operators with no local processing choice (Map,
	// Source, Sink): data simply passes through.
	None Local = iota
	Sort
	CombiningSort
	SortBothMerge
	SortFirstMerge
	SortSecondMerge
	Merge
	HashBuildFirst
	HashBuildSecond
	NestedLoopStreamedOuterFirst
	NestedLoopStreamedOuterSecond
	NestedLoopBlockedOuterFirst
	NestedLoopBlockedOuterSecond
)

func (l Local) String() string {
	switch l {
	case None:
		return "None"
	case Sort:
		return "Sort"
	case CombiningSort:
		return "Combining-Sort"
	case SortBothMerge:
		return "Sort-Both-Merge"
	case SortFirstMerge:
		return "Sort-First-Merge"
	case SortSecondMerge:
		return "Sort-Second-Merge"
	case Merge:
		return "Merge"
	case HashBuildFirst:
		return "Hash-Build-First"
	case HashBuildSecond:
		return "Hash-Build-Second"
	case NestedLoopStreamedOuterFirst:
		return "Nested-Loop-Streamed-Outer-First"
	case NestedLoopStreamedOuterSecond:
		return "Nested-Loop-Streamed-Outer-Second"
	case NestedLoopBlockedOuterFirst:
		return "Nested-Loop-Blocked-Outer-First"
	case NestedLoopBlockedOuterSecond:
		return "Nested-Loop-Blocked-Outer-Second"
	default:
		return "Unknown"
	}
}

// InputShippingChoice describes one admissible pairing of shipping
// strategies across a binary operator's two inputs (or the single entry for
// a unary operator's one input).
type InputShippingChoice struct {
	Left, Right Shipping
	// CoPartitionedOnly marks a choice (Forward, Forward) that is only
	// legal when both inputs already arrive co-partitioned on the key
	// fields; the enumerator must verify this against delivered properties
	// rather than offering it unconditionally.
	CoPartitionedOnly bool
}

// AdmissibleShipping returns every shipping-strategy combination the given
// kind may consider, before hints or delivered-property checks narrow it.
// Index 0 of the returned choice is always the strategy for input 0 (the
// only input, for unary kinds; the left input, for binary kinds).
func AdmissibleShipping(kind opt.Kind) []InputShippingChoice {
	switch kind {
	case opt.KindMap, opt.KindSource, opt.KindSink:
		return []InputShippingChoice{{Left: Forward}}
	case opt.KindReduce:
		return []InputShippingChoice{
			{Left: Forward},
			{Left: RepartitionHash},
			{Left: RepartitionRange},
		}
	case opt.KindMatch:
		return []InputShippingChoice{
			{Left: RepartitionHash, Right: RepartitionHash},
			{Left: Broadcast, Right: Forward},
			{Left: Forward, Right: Broadcast},
			{Left: Forward, Right: Forward, CoPartitionedOnly: true},
		}
	case opt.KindCoGroup:
		return []InputShippingChoice{
			{Left: RepartitionHash, Right: RepartitionHash},
			{Left: RepartitionRange, Right: RepartitionRange},
			{Left: Forward, Right: Forward, CoPartitionedOnly: true},
		}
	case opt.KindCross:
		return []InputShippingChoice{
			{Left: Broadcast, Right: Forward},
			{Left: Forward, Right: Broadcast},
		}
	case opt.KindSinkJoiner:
		// A SinkJoiner has no runtime existence; it exists only to give
		// enumeration a single root above more than one sink, so it admits
		// exactly one choice: pass both inputs through unchanged.
		return []InputShippingChoice{{Left: Forward, Right: Forward}}
	default:
		return nil
	}
}

// AdmissibleLocal returns every local strategy the given kind may consider,
// before hints narrow the set. Map, Source and Sink return {None}.
func AdmissibleLocal(kind opt.Kind) []Local {
	switch kind {
	case opt.KindMap, opt.KindSource, opt.KindSink:
		return []Local{None}
	case opt.KindReduce:
		return []Local{Sort, CombiningSort}
	case opt.KindMatch:
		return []Local{
			HashBuildFirst, HashBuildSecond,
			SortBothMerge, SortFirstMerge, SortSecondMerge, Merge,
		}
	case opt.KindCoGroup:
		return []Local{SortBothMerge, SortFirstMerge, SortSecondMerge, Merge}
	case opt.KindCross:
		return []Local{
			NestedLoopStreamedOuterFirst, NestedLoopStreamedOuterSecond,
			NestedLoopBlockedOuterFirst, NestedLoopBlockedOuterSecond,
		}
	case opt.KindSinkJoiner:
		return []Local{None}
	default:
		return nil
	}
}

// ShippingFromHint maps a HintValueShip* string to a Shipping strategy. ok is
// false for an unrecognized value, in which case the caller logs a warning
// and ignores the hint (§7 "Invalid hint value").
func ShippingFromHint(value string) (Shipping, bool) {
	switch value {
	case opt.HintValueShipForward:
		return Forward, true
	case opt.HintValueShipRepartitionHash:
		return RepartitionHash, true
	case opt.HintValueShipRepartitionRange:
		return RepartitionRange, true
	case opt.HintValueShipBroadcast:
		return Broadcast, true
	default:
		return Forward, false
	}
}

// LocalFromHint maps a HintValueLocalStrategy* string to a Local strategy.
func LocalFromHint(value string) (Local, bool) {
	switch value {
	case opt.HintValueLocalStrategySort:
		return Sort, true
	case opt.HintValueLocalStrategyCombiningSort:
		return CombiningSort, true
	case opt.HintValueLocalStrategySortBothMerge:
		return SortBothMerge, true
	case opt.HintValueLocalStrategySortFirstMerge:
		return SortFirstMerge, true
	case opt.HintValueLocalStrategySortSecondMerge:
		return SortSecondMerge, true
	case opt.HintValueLocalStrategyMerge:
		return Merge, true
	case opt.HintValueLocalStrategyHashBuildFirst:
		return HashBuildFirst, true
	case opt.HintValueLocalStrategyHashBuildSecond:
		return HashBuildSecond, true
	case opt.HintValueLocalStrategyNestedLoopStreamedOuterFirst:
		return NestedLoopStreamedOuterFirst, true
	case opt.HintValueLocalStrategyNestedLoopStreamedOuterSecond:
		return NestedLoopStreamedOuterSecond, true
	case opt.HintValueLocalStrategyNestedLoopBlockedOuterFirst:
		return NestedLoopBlockedOuterFirst, true
	case opt.HintValueLocalStrategyNestedLoopBlockedOuterSecond:
		return NestedLoopBlockedOuterSecond, true
	default:
		return None, false
	}
}

// FilterShippingByHint narrows choices to those whose Left (and, for binary
// inputs, Right) shipping strategy match hinted values. A hint that names a
// strategy absent from the admissible set for this kind leaves choices
// unfiltered — the hint cannot create a new choice, only select among
// existing ones.
func FilterShippingByHint(choices []InputShippingChoice, left, right *Shipping) []InputShippingChoice {
	if left == nil && right == nil {
		return choices
	}
	out := make([]InputShippingChoice, 0, len(choices))
	for _, c := range choices {
		if left != nil && c.Left != *left {
			continue
		}
		if right != nil && c.Right != *right {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return choices
	}
	return out
}

// FilterLocalByHint narrows a local-strategy set to the hinted one, if it is
// a member; otherwise the set is returned unfiltered.
func FilterLocalByHint(choices []Local, hinted Local, has bool) []Local {
	if !has {
		return choices
	}
	for _, c := range choices {
		if c == hinted {
			return []Local{c}
		}
	}
	return choices
}

// Rank gives a deterministic tie-breaking order for otherwise equal-cost
// candidates, per §4.5 point (2): lexicographic order of strategy enum.
// Lower rank sorts first.
func Rank(ship Shipping, local Local) int {
	return int(ship)*100 + int(local)
}
