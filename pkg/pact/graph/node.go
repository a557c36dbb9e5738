// Package graph builds the optimizer's own DAG of OptimizerNodes from a
// front-end-supplied set of Contract sinks (§4.2), and implements the
// top-down interesting-property propagation (§4.3) and branch tracking
// (§4.4) that must run before bottom-up alternative enumeration can proceed
// on a plan that is not a tree.
//
// Nodes live in a Graph's arena and are addressed by NodeID handles rather
// than pointers, per Design Notes §9: this sidesteps Go's lack of a natural
// cyclic-ownership model for a mutable DAG and makes the branch tracker's
// "set of ancestor branches" simply a set of handles.
package graph

import (
	"github.com/cockroachdb/errors"

	"github.com/lyb5215659/pact-optimizer/pkg/pact/memo"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/opt"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/props"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/stats"
)

// NodeID is an arena handle; it is stable for a node's lifetime but is
// distinct from the node's post-order ID (the spec's "id" attribute).
type NodeID int

// Estimate holds a node's output size estimate (§3: "size estimates").
type Estimate struct {
	Cardinality int64
	AvgWidth    float64
	OutputBytes int64
}

// unknownEstimate mirrors stats.Unknown: -1 in every field.
var unknownEstimate = Estimate{Cardinality: -1, AvgWidth: -1, OutputBytes: -1}

// Node is the optimizer's internal representation of one logical operator
// (§3's OptimizerNode). Kind KindSinkJoiner additionally appears here for
// the synthetic nodes §4.2's sink-joining step introduces; such nodes carry
// a nil Contract.
type Node struct {
	handle NodeID
	id     int // 0 until assigned by BuildGraph's post-order pass or by sink-joining.

	Kind     opt.Kind
	Contract *opt.Contract // nil for synthetic SinkJoiner nodes

	Inputs []NodeID

	KeyFields           []int
	Parallelism         int
	TasksPerInstance    int
	MemoryConsumer      bool
	MinMemoryPerSubTask int64 // always -1: no pass assigns it

	Estimate Estimate

	// Interesting is the union of requests this node's consumers place on
	// it; nil until §4.3's descent reaches it.
	Interesting *props.InterestingSet

	// outEdgesTotal/outEdgesVisited implement §4.3 point (1): a node may
	// only be descended into (for interesting-property purposes) once every
	// one of its outgoing edges has been visited by the top-down traversal.
	outEdgesTotal   int
	outEdgesVisited int

	// UnclosedBranches is computed by the branch tracker (§4.4): the set of
	// ancestor fan-out points this node participates in that have not yet
	// been closed by a reconverging consumer.
	UnclosedBranches []NodeID

	// Alternatives caches this node's enumerated, pruned PlanNode list
	// (§4.5); nil until the enumerator visits it.
	Alternatives []*memo.PlanNode

	// RawCandidates holds the root's full candidate list as generated,
	// before Pareto pruning collapses it to the single surviving
	// Alternatives entry. Only the root needs this retained, to let
	// NthBestPlan (§4.9) rank across whole-plan candidates the pruning
	// pass would otherwise discard; every other node leaves it nil.
	RawCandidates []*memo.PlanNode
}

// ID returns the node's post-order-assigned identifier (0 before
// BuildGraph's post-order pass reaches it).
func (n *Node) ID() int { return n.id }

// Handle returns the node's stable arena handle.
func (n *Node) Handle() NodeID { return n.handle }

// OutEdges reports how many distinct consumer edges feed from this node,
// i.e. its fan-out — the count §4.3/§4.4 gate on to detect a node with more
// than one consumer.
func (n *Node) OutEdges() int { return n.outEdgesTotal }

// Graph is the arena of Nodes plus the bookkeeping BuildGraph accumulates:
// the source and sink lists and the single root after sink-joining.
type Graph struct {
	nodes []*Node

	contractToNode map[*opt.Contract]NodeID

	Sources []NodeID
	Sinks   []NodeID
	Root    NodeID

	nextID          int
	memoryConsumers int
}

// Node looks up a node by handle.
func (g *Graph) Node(h NodeID) *Node { return g.nodes[h] }

// NumNodes returns the number of nodes in the arena, including synthetic
// SinkJoiner nodes.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// MemoryConsumers returns how many nodes in the graph request memory.
func (g *Graph) MemoryConsumers() int { return g.memoryConsumers }

func (g *Graph) alloc(kind opt.Kind, c *opt.Contract) NodeID {
	h := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, &Node{
		handle:              h,
		Kind:                kind,
		Contract:            c,
		MinMemoryPerSubTask: -1,
		Estimate:            unknownEstimate,
	})
	return h
}

// isMemoryConsumer reports whether a node kind's local processing may need
// a working-memory budget (a hash table, a sort buffer): Match and CoGroup
// (hash-build / sort-merge), Reduce (sort/combine), and Cross (blocked
// nested loop buffering). Map, Source and Sink never are.
func isMemoryConsumer(kind opt.Kind) bool {
	switch kind {
	case opt.KindReduce, opt.KindMatch, opt.KindCoGroup, opt.KindCross:
		return true
	default:
		return false
	}
}

// BuildGraph performs §4.2's graph-create visitor: a depth-first walk from
// the given sinks, allocating one Node per distinct Contract (sharing nodes
// for a Contract reused by more than one consumer, i.e. a true DAG),
// computing each node's effective parallelism and tasks-per-instance, and —
// if statsProvider is non-nil — each node's output size estimate.
//
// maxMachines <= 0 means "no machine cap" (tasksPerInstance stays 1).
func BuildGraph(
	sinks []*opt.Contract, statsProvider stats.Provider, maxMachines, defaultParallelism int,
) (*Graph, error) {
	if len(sinks) == 0 {
		return nil, errors.Mark(errors.New("the plan has no sinks"), ErrEmptyPlan)
	}

	g := &Graph{contractToNode: make(map[*opt.Contract]NodeID), nextID: 1}

	for _, s := range sinks {
		h, err := g.visit(s, maxMachines, defaultParallelism)
		if err != nil {
			return nil, err
		}
		g.Sinks = append(g.Sinks, h)
	}

	// Record each node's fan-out (number of distinct consumer edges)
	// discovered during the visit; needed by the interesting-property
	// descent (§4.3 point 1).
	for _, h := range g.allHandles() {
		n := g.Node(h)
		for _, in := range n.Inputs {
			g.Node(in).outEdgesTotal++
		}
	}

	if statsProvider != nil {
		if err := g.computeEstimates(statsProvider); err != nil {
			return nil, err
		}
	}

	root, err := g.joinSinks()
	if err != nil {
		return nil, err
	}
	g.Root = root

	return g, nil
}

func (g *Graph) allHandles() []NodeID {
	out := make([]NodeID, len(g.nodes))
	for i := range g.nodes {
		out[i] = NodeID(i)
	}
	return out
}

// visit implements the pre/post-visit pair of GraphCreatingVisitor: it
// allocates (or reuses) a node for c, recurses into c's inputs, wires them,
// and assigns c's node its post-order id on first visit.
func (g *Graph) visit(c *opt.Contract, maxMachines, defaultParallelism int) (NodeID, error) {
	if h, ok := g.contractToNode[c]; ok {
		return h, nil
	}

	kind, err := kindOf(c)
	if err != nil {
		return 0, err
	}
	h := g.alloc(kind, c)
	g.contractToNode[c] = h
	n := g.Node(h)
	n.KeyFields = c.KeyFields
	n.MemoryConsumer = isMemoryConsumer(kind)
	if n.MemoryConsumer {
		g.memoryConsumers++
	}

	par := c.DegreeOfParallelism
	if par < 1 {
		par = defaultParallelism
	}
	n.Parallelism = par

	tasksPerInstance := 1
	if maxMachines > 0 {
		tasksPerInstance = (par + maxMachines - 1) / maxMachines
		if tasksPerInstance < 1 {
			tasksPerInstance = 1
		}
	}
	n.TasksPerInstance = tasksPerInstance

	if kind == opt.KindSource {
		g.Sources = append(g.Sources, h)
	}

	for _, in := range c.Inputs {
		inHandle, err := g.visit(in, maxMachines, defaultParallelism)
		if err != nil {
			return 0, err
		}
		n.Inputs = append(n.Inputs, inHandle)
	}

	if n.id == 0 {
		n.id = g.nextID
		g.nextID++
	}

	return h, nil
}

func kindOf(c *opt.Contract) (opt.Kind, error) {
	switch c.Kind {
	case opt.KindSource, opt.KindSink, opt.KindMap, opt.KindReduce,
		opt.KindMatch, opt.KindCoGroup, opt.KindCross:
		return c.Kind, nil
	default:
		return 0, errors.Mark(errors.Newf("unknown contract kind %v", c.Kind), ErrCompileInconsistency)
	}
}

// joinSinks implements §4.2's sink-joining: if there is more than one sink,
// wrap them left-deep under synthetic SinkJoiner nodes (no runtime
// existence, no estimates) until one root remains.
func (g *Graph) joinSinks() (NodeID, error) {
	if len(g.Sinks) == 0 {
		return 0, errors.Mark(errors.New("the plan has no sinks"), ErrEmptyPlan)
	}
	root := g.Sinks[0]
	for _, next := range g.Sinks[1:] {
		h := g.alloc(opt.KindSinkJoiner, nil)
		n := g.Node(h)
		n.Inputs = []NodeID{root, next}
		n.Estimate = unknownEstimate
		n.id = g.nextID
		g.nextID++
		g.Node(root).outEdgesTotal++
		g.Node(next).outEdgesTotal++
		root = h
	}
	return root, nil
}

// ErrEmptyPlan marks the §7 "empty-plan error": a plan with no sinks.
var ErrEmptyPlan = errors.New("empty-plan error")

// ErrCompileInconsistency marks the §7 "compile inconsistency" family:
// unknown contract kind, id collision, or an enumeration that does not
// settle on exactly one root candidate.
var ErrCompileInconsistency = errors.New("compile inconsistency")
