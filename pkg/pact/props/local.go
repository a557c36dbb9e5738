package props

import "github.com/lyb5215659/pact-optimizer/pkg/pact/strategy"

// Direction is the sort direction of an ordered field.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// OrderedField is one column of an ordering, with its sort direction.
type OrderedField struct {
	Field     int
	Direction Direction
}

// LocalKind classifies the per-partition layout a channel delivers or a
// consumer requests.
type LocalKind int

const (
	AnyLocal LocalKind = iota
	Grouped
	Ordered
)

func (l LocalKind) String() string {
	switch l {
	case AnyLocal:
		return "Any"
	case Grouped:
		return "Grouped"
	case Ordered:
		return "Ordered"
	default:
		return "Unknown"
	}
}

// Local is the shared shape of RequestedLocalProperties and
// DeliveredLocalProperties. Grouped carries only the grouping field set
// (no direction); Ordered carries an ordered sequence of (field, direction)
// pairs, and implies grouping on any prefix of those fields.
type Local struct {
	Kind     LocalKind
	Grouped  []int
	Ordering []OrderedField
}

func AnyLocalProps() Local { return Local{Kind: AnyLocal} }

func GroupedOn(fields []int) Local { return Local{Kind: Grouped, Grouped: fields} }

func OrderedOn(fields []OrderedField) Local { return Local{Kind: Ordered, Ordering: fields} }

func orderingFields(o []OrderedField) []int {
	out := make([]int, len(o))
	for i, f := range o {
		out[i] = f.Field
	}
	return out
}

// isPrefix reports whether want is a (possibly equal-length) prefix of the
// ordered field list have, ignoring direction.
func isPrefix(have []OrderedField, want []int) bool {
	if len(want) > len(have) {
		return false
	}
	for i, f := range want {
		if have[i].Field != f {
			return false
		}
	}
	return true
}

func setsEqual(a, b []int) bool { return sameFieldSet(a, b) }

// isFieldSetPrefix reports whether fields (as an unordered set) is exactly
// the set of the first len(fields) entries of ordering. Used to test "F' is
// a prefix of F" where F is an ordering and F' is an unordered grouping
// request.
func isFieldSetPrefix(ordering []OrderedField, fields []int) bool {
	if len(fields) > len(ordering) {
		return false
	}
	prefix := make([]int, len(fields))
	for i := range fields {
		prefix[i] = ordering[i].Field
	}
	return setsEqual(prefix, fields)
}

// Satisfies reports whether the delivered local property d meets the
// requested local property r, per §4.1:
//
//   - Any is satisfied by everything.
//   - Grouped(F) is satisfied by Grouped(F) on an exact set match, or by
//     Ordered(F') when F is a prefix of F' (order implies grouping on any
//     prefix).
//   - Ordered(F,dir) is satisfied only by Ordered(F',dir) carrying at least
//     that same prefix with matching directions.
func (d Local) Satisfies(r Local) bool {
	switch r.Kind {
	case AnyLocal:
		return true
	case Grouped:
		switch d.Kind {
		case Grouped:
			return setsEqual(d.Grouped, r.Grouped)
		case Ordered:
			return isFieldSetPrefix(d.Ordering, r.Grouped)
		default:
			return false
		}
	case Ordered:
		if d.Kind != Ordered {
			return false
		}
		if !isPrefix(d.Ordering, orderingFields(r.Ordering)) {
			return false
		}
		for i := range r.Ordering {
			if d.Ordering[i].Direction != r.Ordering[i].Direction {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// LocalFilterByShipping returns the Local property surviving a shipping
// strategy: Forward preserves the producer's local order, while any
// repartitioning (hash, range) or broadcast destroys per-partition order
// since records are redistributed across subtask boundaries.
func LocalFilterByShipping(producerDelivered Local, ship strategy.Shipping) Local {
	if ship == strategy.Forward {
		return producerDelivered
	}
	return AnyLocalProps()
}

// ProducedLocal returns the Local property a local strategy produces, given
// the (already shipping-filtered) local properties of its input(s). Per
// §4.1: a sort on F produces Ordered(F, asc); combining-sort is the same;
// hash-build produces nothing (Any); merge preserves order only when both
// merge inputs already carry it on the merge key.
func ProducedLocal(local strategy.Local, keyFields []int, inputs ...Local) Local {
	asc := make([]OrderedField, len(keyFields))
	for i, f := range keyFields {
		asc[i] = OrderedField{Field: f, Direction: Ascending}
	}
	switch local {
	case strategy.Sort, strategy.CombiningSort:
		return OrderedOn(asc)
	case strategy.SortBothMerge, strategy.SortFirstMerge, strategy.SortSecondMerge:
		// Sorting is performed as part of this local strategy, so the
		// strategy always ends up delivering the merge order regardless of
		// what arrived — unlike plain Merge, it does not need its inputs to
		// already be ordered.
		return OrderedOn(asc)
	case strategy.Merge:
		for _, in := range inputs {
			if in.Kind != Ordered || !isPrefix(in.Ordering, keyFields) {
				return AnyLocalProps()
			}
		}
		return OrderedOn(asc)
	case strategy.HashBuildFirst, strategy.HashBuildSecond:
		return AnyLocalProps()
	case strategy.NestedLoopStreamedOuterFirst, strategy.NestedLoopStreamedOuterSecond,
		strategy.NestedLoopBlockedOuterFirst, strategy.NestedLoopBlockedOuterSecond:
		return AnyLocalProps()
	case strategy.None:
		// Map/Source/Sink: pass through the sole input's delivered order
		// unchanged, or Any if there is none.
		if len(inputs) == 1 {
			return inputs[0]
		}
		return AnyLocalProps()
	default:
		return AnyLocalProps()
	}
}
