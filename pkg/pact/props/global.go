// Package props implements the property algebra of §4.1: requested and
// delivered global (partitioning) and local (ordering/grouping) physical
// properties, the satisfies predicates that drive pruning, and the effect a
// shipping or local strategy has on what a channel delivers. The shapes here
// are grounded on the teacher's props/physical package (OrderingChoice,
// Required) and on the Requested/Delivered split of the original
// Stratosphere DriverPropertiesSingle / GlobalProperties /
// LocalProperties classes.
package props

import "github.com/lyb5215659/pact-optimizer/pkg/pact/strategy"

// PartitioningKind classifies how tuples are spread across subtasks.
type PartitioningKind int

const (
	AnyPartitioning PartitioningKind = iota
	HashPartitioned
	RangePartitioned
	FullyReplicated
	Singleton
)

func (p PartitioningKind) String() string {
	switch p {
	case AnyPartitioning:
		return "Any"
	case HashPartitioned:
		return "HashPartitioned"
	case RangePartitioned:
		return "RangePartitioned"
	case FullyReplicated:
		return "FullyReplicated"
	case Singleton:
		return "Singleton"
	default:
		return "Unknown"
	}
}

// Global is the shared shape of both RequestedGlobalProperties (a
// constraint) and DeliveredGlobalProperties (a fact): a partitioning kind
// plus, for the partitioned kinds, the field set it partitions on.
type Global struct {
	Kind   PartitioningKind
	Fields []int
}

// AnyGlobal is the unconstrained request: every delivered property
// satisfies it.
func AnyGlobal() Global { return Global{Kind: AnyPartitioning} }

// HashPartitionedOn builds a hash-partitioning request or fact on fields.
func HashPartitionedOn(fields []int) Global {
	return Global{Kind: HashPartitioned, Fields: fields}
}

// RangePartitionedOn builds a range-partitioning request or fact on fields.
func RangePartitionedOn(fields []int) Global {
	return Global{Kind: RangePartitioned, Fields: fields}
}

// FullReplication is the fact (and, rarely, request) that every subtask sees
// the complete data set.
func FullReplication() Global { return Global{Kind: FullyReplicated} }

// SingletonGlobal is the fact (and request) that exactly one subtask holds
// all the data.
func SingletonGlobal() Global { return Global{Kind: Singleton} }

func sameFieldSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[int]bool, len(a))
	for _, f := range a {
		seen[f] = true
	}
	for _, f := range b {
		if !seen[f] {
			return false
		}
	}
	return true
}

// Satisfies reports whether the delivered global property d meets the
// requested global property r, per §4.1:
//
//   - Any request is satisfied by everything.
//   - HashPartitioned(F) satisfies HashPartitioned(F) only on an exact field
//     set match (hash partitioning on a superset or different set of fields
//     does not guarantee co-location).
//   - RangePartitioned(F,o) satisfies a partitioning request only on an
//     exact match of kind and fields (range partitioning satisfying a local
//     grouping request on a field prefix is handled in local.go, since that
//     is a Local, not a Global, predicate).
//   - FullReplication satisfies nothing but Any and FullReplication itself.
//   - Singleton satisfies Any, Singleton, and (trivially) any partitioning
//     request, since one subtask holding everything is consistent with any
//     announced partitioning.
func (d Global) Satisfies(r Global) bool {
	switch r.Kind {
	case AnyPartitioning:
		return true
	case FullyReplicated:
		return d.Kind == FullyReplicated
	case Singleton:
		return d.Kind == Singleton
	case HashPartitioned:
		if d.Kind == Singleton {
			return true
		}
		return d.Kind == HashPartitioned && sameFieldSet(d.Fields, r.Fields)
	case RangePartitioned:
		if d.Kind == Singleton {
			return true
		}
		return d.Kind == RangePartitioned && sameFieldSet(d.Fields, r.Fields)
	default:
		return false
	}
}

// FilterByShipping returns the Global property a channel delivers at its
// receiving end, given what the producer side delivered and which shipping
// strategy was chosen for the channel. Per §4.1: Forward preserves the
// producer's property; a repartition strategy replaces it with the new
// partitioning (and, per local.go's LocalFilterByShipping, clears any local order);
// Broadcast replaces it with FullReplication.
func FilterByShipping(producerDelivered Global, ship strategy.Shipping, keyFields []int) Global {
	switch ship {
	case strategy.Forward:
		return producerDelivered
	case strategy.RepartitionHash:
		return HashPartitionedOn(keyFields)
	case strategy.RepartitionRange:
		return RangePartitionedOn(keyFields)
	case strategy.Broadcast:
		return FullReplication()
	default:
		return producerDelivered
	}
}
