package xform

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/lyb5215659/pact-optimizer/pkg/pact/cost"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/graph"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/log"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/memo"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/opt"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/props"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/strategy"
)

// ErrNoPlan marks a node whose alternative generation produced nothing —
// every admissible combination was either hint-excluded or ruled out by a
// co-partitioning requirement that no surviving input candidate met.
var ErrNoPlan = errors.New("no admissible plan for node")

// EnumerateAlternatives implements §4.5: visiting nodes bottom-up (ascending
// post-order id, already a valid topological order — see graph/estimate.go),
// generate every admissible (input-alternative × shipping × local-strategy)
// combination, cost it, and prune to the Pareto-minimal set before moving to
// the node's consumers.
func EnumerateAlternatives(g *graph.Graph, estimator cost.Estimator, logger *log.Logger) error {
	ids := g.NodeIDsByPostOrder()
	for _, h := range ids {
		n := g.Node(h)
		candidates, err := generateCandidates(g, n, estimator, logger)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return errors.Mark(errors.Newf("node %d (%s) has no admissible plan", n.ID(), n.Kind), ErrNoPlan)
		}

		f := newFrontier()
		for i, c := range candidates {
			f.add(c, n.Interesting.SatisfiedBy(c.GlobalDelivered, c.LocalDelivered), strategy.Rank(shippingOf(c), c.LocalStrategy)*1000+i)
		}
		pruned := f.paretoMinimal()

		// A node with more than one outgoing edge opens a branch: each
		// surviving alternative becomes a distinct pin for its consumers,
		// so that two consumers reconverging downstream can detect whether
		// they descended through the same physical choice at this node.
		if n.OutEdges() > 1 {
			for i, c := range pruned {
				pinned := clonePins(c.BranchPins)
				pinned[int(h)] = i
				c.BranchPins = pinned
			}
		}

		if h == g.Root {
			// Retained for NthBestPlan (§4.9); every other node discards its
			// raw candidates once pruned down to Alternatives.
			n.RawCandidates = candidates
			if len(pruned) != 1 {
				return errors.Mark(
					errors.Newf("root settled on %d candidates after pruning, expected exactly 1", len(pruned)),
					graph.ErrCompileInconsistency,
				)
			}
		}

		n.Alternatives = pruned
	}
	return nil
}

func shippingOf(c *memo.PlanNode) strategy.Shipping {
	if len(c.Inputs) == 0 {
		return strategy.Forward
	}
	return c.Inputs[0].Shipping
}

func clonePins(pins map[int]int) map[int]int {
	out := make(map[int]int, len(pins))
	for k, v := range pins {
		out[k] = v
	}
	return out
}

// mergePins combines two candidates' branch pins; it fails if they disagree
// on the chosen alternative at any branch point they both descend from —
// exactly the DAG-reconvergence conflict §4.4/§8 invariant 7 rules out.
func mergePins(a, b map[int]int) (map[int]int, bool) {
	out := clonePins(a)
	for k, v := range b {
		if existing, ok := out[k]; ok && existing != v {
			return nil, false
		}
		out[k] = v
	}
	return out, true
}

func generateCandidates(g *graph.Graph, n *graph.Node, estimator cost.Estimator, logger *log.Logger) ([]*memo.PlanNode, error) {
	switch len(n.Inputs) {
	case 0:
		return generateSource(n, estimator), nil
	case 1:
		return generateUnary(g, n, estimator, logger), nil
	case 2:
		return generateBinary(g, n, estimator, logger), nil
	default:
		return nil, errors.Mark(errors.Newf("node %d has %d inputs", n.ID(), len(n.Inputs)), graph.ErrCompileInconsistency)
	}
}

func generateSource(n *graph.Node, estimator cost.Estimator) []*memo.PlanNode {
	desc := cost.NodeDescriptor{EstimatedOutputCardinality: n.Estimate.Cardinality, AvgRecordWidth: n.Estimate.AvgWidth}
	v := estimator.Cost(desc)
	return []*memo.PlanNode{{
		NodeID:           n.ID(),
		Kind:             n.Kind,
		Name:             name(n),
		GlobalDelivered:  props.AnyGlobal(),
		LocalDelivered:   props.AnyLocalProps(),
		OwnCost:          v,
		Cost:             v,
		Parallelism:      n.Parallelism,
		TasksPerInstance: n.TasksPerInstance,
		MemoryConsumer:   n.MemoryConsumer,
		MemoryPerSubtask: -1,
	}}
}

func name(n *graph.Node) string {
	if n.Contract != nil {
		return n.Contract.Name
	}
	return n.Kind.String()
}

func localSortCost(l strategy.Local) int {
	switch l {
	case strategy.SortBothMerge:
		return 2
	case strategy.Sort, strategy.CombiningSort, strategy.SortFirstMerge, strategy.SortSecondMerge, strategy.Merge:
		return 1
	default:
		return 0
	}
}

func requiresHashTable(l strategy.Local) bool {
	return l == strategy.HashBuildFirst || l == strategy.HashBuildSecond
}

// shippingBytes estimates the bytes this edge puts on the wire: zero for
// Forward, the producer's estimated output size for a repartition, and that
// size multiplied by the consumer's own parallelism for Broadcast, since
// every consumer subtask receives its own full copy.
func shippingBytes(ship strategy.Shipping, producer graph.Estimate, consumerParallelism int) float64 {
	if ship == strategy.Forward {
		return 0
	}
	bytes := float64(producer.OutputBytes)
	if producer.OutputBytes < 0 {
		bytes = float64(int64(1) << 30) // unknown: assume a large shuffle rather than a free one
	}
	if ship == strategy.Broadcast {
		p := consumerParallelism
		if p < 1 {
			p = 1
		}
		bytes *= float64(p)
	}
	return bytes
}

func shipHintPointer(c *opt.Contract, key string, logger *log.Logger) *strategy.Shipping {
	if c == nil {
		return nil
	}
	v, ok := c.Hint(key)
	if !ok {
		return nil
	}
	s, ok := strategy.ShippingFromHint(v)
	if !ok {
		if logger != nil {
			logger.Warningf(context.Background(), "ignoring unrecognized %s hint value %q", key, v)
		}
		return nil
	}
	return &s
}

func localHintChoices(choices []strategy.Local, c *opt.Contract, logger *log.Logger) []strategy.Local {
	if c == nil {
		return choices
	}
	v, ok := c.Hint(opt.HintLocalStrategy)
	if !ok {
		return choices
	}
	local, ok := strategy.LocalFromHint(v)
	if !ok {
		if logger != nil {
			logger.Warningf(context.Background(), "ignoring unrecognized %s hint value %q", opt.HintLocalStrategy, v)
		}
		return choices
	}
	return strategy.FilterLocalByHint(choices, local, true)
}

func generateUnary(g *graph.Graph, n *graph.Node, estimator cost.Estimator, logger *log.Logger) []*memo.PlanNode {
	in := g.Node(n.Inputs[0])

	shipChoices := strategy.FilterShippingByHint(
		strategy.AdmissibleShipping(n.Kind),
		shipHintPointer(n.Contract, opt.HintShipStrategy, logger),
		nil,
	)
	localChoices := localHintChoices(strategy.AdmissibleLocal(n.Kind), n.Contract, logger)

	var out []*memo.PlanNode
	for _, inCand := range in.Alternatives {
		for _, choice := range shipChoices {
			// A Reduce may only forward an input that already arrives
			// partitioned on its keys; otherwise one group could be split
			// across subtasks.
			if n.Kind == opt.KindReduce && choice.Left == strategy.Forward &&
				!inCand.GlobalDelivered.Satisfies(props.HashPartitionedOn(n.KeyFields)) &&
				!inCand.GlobalDelivered.Satisfies(props.RangePartitionedOn(n.KeyFields)) {
				continue
			}
			bytesShipped := shippingBytes(choice.Left, in.Estimate, n.Parallelism)
			globalAtReceiver := props.FilterByShipping(inCand.GlobalDelivered, choice.Left, n.KeyFields)
			localAtReceiver := props.LocalFilterByShipping(inCand.LocalDelivered, choice.Left)

			for _, local := range localChoices {
				produced := props.ProducedLocal(local, n.KeyFields, localAtReceiver)
				desc := cost.NodeDescriptor{
					EstimatedOutputCardinality: n.Estimate.Cardinality,
					AvgRecordWidth:             n.Estimate.AvgWidth,
					InputChannelBytesShipped:   []float64{bytesShipped},
					InputSortsOrMerges:         localSortCost(local),
					RequiresHashTable:          requiresHashTable(local),
				}
				ownCost := estimator.Cost(desc)

				out = append(out, &memo.PlanNode{
					NodeID: n.ID(),
					Kind:   n.Kind,
					Name:   name(n),
					Inputs: []memo.Channel{{
						From:             inCand,
						Shipping:         choice.Left,
						BytesShipped:     bytesShipped,
						GlobalAtReceiver: globalAtReceiver,
						LocalAtReceiver:  localAtReceiver,
					}},
					LocalStrategy:        local,
					GlobalDelivered:      globalAtReceiver,
					LocalDelivered:       produced,
					OwnCost:              ownCost,
					Cost:                 ownCost.Add(inCand.Cost),
					Parallelism:          n.Parallelism,
					TasksPerInstance:     n.TasksPerInstance,
					MemoryConsumer:       n.MemoryConsumer,
					MemoryPerSubtask:     -1,
					BranchPins:           clonePins(inCand.BranchPins),
				})
			}
		}
	}
	return out
}

func coPartitioned(l, r props.Global, keyFields []int) bool {
	switch l.Kind {
	case props.HashPartitioned:
		return r.Kind == props.HashPartitioned && l.Satisfies(props.HashPartitionedOn(keyFields)) && r.Satisfies(props.HashPartitionedOn(keyFields))
	case props.RangePartitioned:
		return r.Kind == props.RangePartitioned && l.Satisfies(props.RangePartitionedOn(keyFields)) && r.Satisfies(props.RangePartitionedOn(keyFields))
	default:
		return false
	}
}

func generateBinary(g *graph.Graph, n *graph.Node, estimator cost.Estimator, logger *log.Logger) []*memo.PlanNode {
	left, right := g.Node(n.Inputs[0]), g.Node(n.Inputs[1])

	shipChoices := strategy.FilterShippingByHint(
		strategy.AdmissibleShipping(n.Kind),
		shipHintPointer(n.Contract, opt.HintShipStrategyLeftInput, logger),
		shipHintPointer(n.Contract, opt.HintShipStrategyRightInput, logger),
	)
	localChoices := localHintChoices(strategy.AdmissibleLocal(n.Kind), n.Contract, logger)

	var out []*memo.PlanNode
	for _, lCand := range left.Alternatives {
		for _, rCand := range right.Alternatives {
			pins, ok := mergePins(lCand.BranchPins, rCand.BranchPins)
			if !ok {
				continue // the two inputs disagree on a shared ancestor branch
			}

			for _, choice := range shipChoices {
				lGlobal := props.FilterByShipping(lCand.GlobalDelivered, choice.Left, n.KeyFields)
				rGlobal := props.FilterByShipping(rCand.GlobalDelivered, choice.Right, n.KeyFields)
				if choice.CoPartitionedOnly && !coPartitioned(lCand.GlobalDelivered, rCand.GlobalDelivered, n.KeyFields) {
					continue
				}

				lLocal := props.LocalFilterByShipping(lCand.LocalDelivered, choice.Left)
				rLocal := props.LocalFilterByShipping(rCand.LocalDelivered, choice.Right)
				lBytes := shippingBytes(choice.Left, left.Estimate, n.Parallelism)
				rBytes := shippingBytes(choice.Right, right.Estimate, n.Parallelism)

				for _, local := range localChoices {
					produced := props.ProducedLocal(local, n.KeyFields, lLocal, rLocal)
					desc := cost.NodeDescriptor{
						EstimatedOutputCardinality: n.Estimate.Cardinality,
						AvgRecordWidth:             n.Estimate.AvgWidth,
						InputChannelBytesShipped:   []float64{lBytes, rBytes},
						InputSortsOrMerges:         localSortCost(local),
						RequiresHashTable:          requiresHashTable(local),
					}
					ownCost := estimator.Cost(desc)

					// A global property can only be delivered by a binary
					// node when both inputs deliver the same one (§4.1);
					// otherwise the node's own output has no single
					// well-defined partitioning and callers must treat it
					// as Any.
					delivered := lGlobal
					if !globalsEqual(lGlobal, rGlobal) {
						delivered = props.AnyGlobal()
					}

					out = append(out, &memo.PlanNode{
						NodeID: n.ID(),
						Kind:   n.Kind,
						Name:   name(n),
						Inputs: []memo.Channel{
							{From: lCand, Shipping: choice.Left, BytesShipped: lBytes, GlobalAtReceiver: lGlobal, LocalAtReceiver: lLocal},
							{From: rCand, Shipping: choice.Right, BytesShipped: rBytes, GlobalAtReceiver: rGlobal, LocalAtReceiver: rLocal},
						},
						LocalStrategy:        local,
						GlobalDelivered:      delivered,
						LocalDelivered:       produced,
						OwnCost:              ownCost,
						Cost:                 ownCost.Add(lCand.Cost).Add(rCand.Cost),
						Parallelism:          n.Parallelism,
						TasksPerInstance:     n.TasksPerInstance,
						MemoryConsumer:       n.MemoryConsumer,
						MemoryPerSubtask:     -1,
						BranchPins:           clonePins(pins),
					})
				}
			}
		}
	}
	return out
}

func globalsEqual(a, b props.Global) bool {
	return a.Satisfies(b) && b.Satisfies(a)
}
