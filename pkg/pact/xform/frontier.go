// Package xform implements §4.5's bottom-up alternative enumeration and
// §4.6's plan finalization: the core "try every admissible strategy, cost
// it, keep the Pareto-minimal set" loop, grounded on the teacher's
// xform/state.go optimizeState best-expression search and memo/best_expr.go
// bestExprSet's per-group candidate tracking (adapted here to a per-node
// slice rather than a memo group, per Design Notes §9).
package xform

import (
	"sort"

	"github.com/google/btree"

	"github.com/lyb5215659/pact-optimizer/pkg/pact/memo"
)

// frontierItem is one candidate queued for Pareto pruning: its plan, the
// cost it sorts by, a deterministic tie-break rank, and the signature of
// which interesting-property requests it satisfies.
type frontierItem struct {
	plan *memo.PlanNode
	cost float64
	rank int
	sig  string
}

func lessItem(a, b frontierItem) bool {
	if a.cost != b.cost {
		return a.cost < b.cost
	}
	return a.rank < b.rank
}

// frontier orders a node's raw candidates by (cost, rank) using a btree —
// grounded on SPEC_FULL.md's DOMAIN STACK commitment to wire google/btree
// into the enumerator's Pareto-frontier store — so the dominance pass below
// can sweep cheapest-first without a separate sort call per node.
type frontier struct {
	tree *btree.BTreeG[frontierItem]
}

func newFrontier() *frontier {
	return &frontier{tree: btree.NewG(32, lessItem)}
}

func (f *frontier) add(p *memo.PlanNode, sig string, rank int) {
	f.tree.ReplaceOrInsert(frontierItem{plan: p, cost: p.Cost.Scalar(), rank: rank, sig: sig})
}

// paretoMinimal sweeps the frontier cheapest-first and keeps a candidate
// only if no cheaper candidate already kept satisfies every interesting
// request it does (§4.5 point 3): a more expensive candidate whose
// capabilities are a subset of an already-kept, cheaper candidate's is
// strictly dominated and is dropped.
func (f *frontier) paretoMinimal() []*memo.PlanNode {
	var keptSigs []string
	var out []*memo.PlanNode
	f.tree.Ascend(func(it frontierItem) bool {
		dominated := false
		for _, kept := range keptSigs {
			if signatureContains(kept, it.sig) {
				dominated = true
				break
			}
		}
		if !dominated {
			keptSigs = append(keptSigs, it.sig)
			out = append(out, it.plan)
		}
		return true
	})
	return out
}

// signatureContains reports whether every key present in cand is also
// present in kept; both are ";"-joined sets of RequestedSet.Key() strings.
func signatureContains(kept, cand string) bool {
	if cand == "" {
		return true
	}
	keptSet := splitSig(kept)
	for k := range splitSig(cand) {
		if !keptSet[k] {
			return false
		}
	}
	return true
}

func splitSig(s string) map[string]bool {
	out := map[string]bool{}
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ';' {
			if i > start {
				out[s[start:i]] = true
			}
			start = i + 1
		}
	}
	return out
}

// sortByCost gives callers a deterministic ordering of a candidate list by
// cost (NthBestPlan uses it on the root's unpruned RawCandidates).
func sortByCost(plans []*memo.PlanNode) {
	sort.SliceStable(plans, func(i, j int) bool {
		return plans[i].Cost.Scalar() < plans[j].Cost.Scalar()
	})
}
