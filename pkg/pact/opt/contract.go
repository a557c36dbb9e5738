// Package opt defines the logical, front-end-facing representation that the
// optimizer core consumes: PACT contracts (Source, Sink, Map, Reduce, Match,
// CoGroup, Cross) connected into a DAG, plus the compiler hint keys and
// values a front-end may attach to a contract.
package opt

// Kind identifies which PACT operator a Contract represents.
type Kind int

const (
	// KindSource has no inputs; it reads from the collaborator-provided
	// statistics and ultimately from external storage at execution time.
	KindSource Kind = iota
	// KindSink has exactly one input and no outputs.
	KindSink
	// KindMap is a single-input, schema-preserving-or-not record-at-a-time
	// transform with no grouping semantics.
	KindMap
	// KindReduce is a single-input operator that groups its input on
	// KeyFields and applies a user function per group.
	KindReduce
	// KindMatch is a binary equi-join on KeyFields of both inputs.
	KindMatch
	// KindCoGroup is a binary group-by on KeyFields of both inputs.
	KindCoGroup
	// KindCross is a binary cartesian product; it has no key fields.
	KindCross
	// KindSinkJoiner is a synthetic binary node used only to unify multiple
	// sinks under one root for enumeration; it has no runtime existence and
	// never appears in a front-end-supplied Contract.
	KindSinkJoiner
)

func (k Kind) String() string {
	switch k {
	case KindSource:
		return "Source"
	case KindSink:
		return "Sink"
	case KindMap:
		return "Map"
	case KindReduce:
		return "Reduce"
	case KindMatch:
		return "Match"
	case KindCoGroup:
		return "CoGroup"
	case KindCross:
		return "Cross"
	case KindSinkJoiner:
		return "SinkJoiner"
	default:
		return "Unknown"
	}
}

// IsBinary reports whether the kind takes two inputs (left, right).
func (k Kind) IsBinary() bool {
	return k == KindMatch || k == KindCoGroup || k == KindCross
}

// IsUnary reports whether the kind takes exactly one input.
func (k Kind) IsUnary() bool {
	return k == KindSink || k == KindMap || k == KindReduce
}

// Contract is the logical operator node a front-end builds. Contracts are
// compared by pointer identity: a front-end that wants a sub-plan shared by
// two consumers (a DAG, not a tree) reuses the same *Contract rather than
// building two structurally-equal copies.
type Contract struct {
	Kind Kind
	Name string

	// Inputs holds this contract's producers in declared order. Unary
	// kinds have exactly one; binary kinds have exactly two (left, right);
	// KindSource has none.
	Inputs []*Contract

	// KeyFields are field indices used for grouping/join keys. Unused by
	// Map, Source, Sink and Cross.
	KeyFields []int

	// DegreeOfParallelism is the user-declared parallelism, or <= 0 to let
	// the optimizer apply the default.
	DegreeOfParallelism int

	// Hints are string-keyed compiler hints; see the Hint* constants.
	Hints map[string]string

	// SourceID names the dataset this Source reads, used as the key into
	// the DataStatistics collaborator. Only meaningful for KindSource.
	SourceID string
}

// Hint returns the value for the given hint key and whether it was present.
func (c *Contract) Hint(key string) (string, bool) {
	if c.Hints == nil {
		return "", false
	}
	v, ok := c.Hints[key]
	return v, ok
}

// Compiler hint keys, honored during alternative enumeration, where they
// restrict the shipping and local strategies considered. Values are the
// HintValue* constants below.
const (
	HintShipStrategy            = "INPUT_SHIP_STRATEGY"
	HintShipStrategyLeftInput   = "INPUT_LEFT_SHIP_STRATEGY"
	HintShipStrategyRightInput  = "INPUT_RIGHT_SHIP_STRATEGY"
	HintLocalStrategy           = "LOCAL_STRATEGY"
)

// Hint values for HintShipStrategy* keys.
const (
	HintValueShipRepartitionHash  = "SHIP_REPARTITION_HASH"
	HintValueShipRepartitionRange = "SHIP_REPARTITION_RANGE"
	HintValueShipBroadcast        = "SHIP_BROADCAST"
	HintValueShipForward          = "SHIP_FORWARD"
)

// Hint values for HintLocalStrategy.
const (
	HintValueLocalStrategySort                          = "LOCAL_STRATEGY_SORT"
	HintValueLocalStrategyCombiningSort                 = "LOCAL_STRATEGY_COMBINING_SORT"
	HintValueLocalStrategySortBothMerge                 = "LOCAL_STRATEGY_SORT_BOTH_MERGE"
	HintValueLocalStrategySortFirstMerge                = "LOCAL_STRATEGY_SORT_FIRST_MERGE"
	HintValueLocalStrategySortSecondMerge                = "LOCAL_STRATEGY_SORT_SECOND_MERGE"
	HintValueLocalStrategyMerge                         = "LOCAL_STRATEGY_MERGE"
	HintValueLocalStrategyHashBuildFirst                = "LOCAL_STRATEGY_HASH_BUILD_FIRST"
	HintValueLocalStrategyHashBuildSecond                = "LOCAL_STRATEGY_HASH_BUILD_SECOND"
	HintValueLocalStrategyNestedLoopStreamedOuterFirst  = "LOCAL_STRATEGY_NESTEDLOOP_STREAMED_OUTER_FIRST"
	HintValueLocalStrategyNestedLoopStreamedOuterSecond = "LOCAL_STRATEGY_NESTEDLOOP_STREAMED_OUTER_SECOND"
	HintValueLocalStrategyNestedLoopBlockedOuterFirst   = "LOCAL_STRATEGY_NESTEDLOOP_BLOCKED_OUTER_FIRST"
	HintValueLocalStrategyNestedLoopBlockedOuterSecond  = "LOCAL_STRATEGY_NESTEDLOOP_BLOCKED_OUTER_SECOND"
)

// Left returns the first input, or nil if there is none.
func (c *Contract) Left() *Contract {
	if len(c.Inputs) == 0 {
		return nil
	}
	return c.Inputs[0]
}

// Right returns the second input, or nil if there is none.
func (c *Contract) Right() *Contract {
	if len(c.Inputs) < 2 {
		return nil
	}
	return c.Inputs[1]
}
