package props

import (
	"sort"
	"strconv"
)

// RequestedSet is one (global, local) pairing that some downstream consumer
// would benefit from seeing delivered early. A node's interesting
// properties (§4.3) are the union — deduplicated — of the requested sets its
// consumers place on it.
type RequestedSet struct {
	Global Global
	Local  Local
}

// Key returns a value suitable for deduplicating RequestedSets in a map; two
// requests with the same kinds and the same fields in the same order collapse
// to one interesting property. Fields listed in a different order give
// different keys.
func (r RequestedSet) Key() string {
	g := strconv.Itoa(int(r.Global.Kind))
	for _, f := range r.Global.Fields {
		g += "," + strconv.Itoa(f)
	}
	l := strconv.Itoa(int(r.Local.Kind))
	for _, f := range r.Local.Grouped {
		l += "," + strconv.Itoa(f)
	}
	for _, f := range r.Local.Ordering {
		l += ";" + strconv.Itoa(f.Field) + ":" + strconv.Itoa(int(f.Direction))
	}
	return g + "|" + l
}

// InterestingSet is the deduplicated union of RequestedSets a node's
// consumers have asked for.
type InterestingSet struct {
	byKey map[string]RequestedSet
}

// NewInterestingSet creates an empty set.
func NewInterestingSet() *InterestingSet {
	return &InterestingSet{byKey: make(map[string]RequestedSet)}
}

// Add inserts r if no equivalent request is already present.
func (s *InterestingSet) Add(r RequestedSet) {
	s.byKey[r.Key()] = r
}

// Merge folds another set's requests into this one.
func (s *InterestingSet) Merge(other *InterestingSet) {
	if other == nil {
		return
	}
	for k, v := range other.byKey {
		s.byKey[k] = v
	}
}

// Entries returns the distinct requested sets, in no particular order.
func (s *InterestingSet) Entries() []RequestedSet {
	out := make([]RequestedSet, 0, len(s.byKey))
	for _, v := range s.byKey {
		out = append(out, v)
	}
	return out
}

// Len reports the number of distinct requested sets.
func (s *InterestingSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byKey)
}

// SatisfiedBy reports which of the interesting requests the delivered
// (global, local) pair satisfies, returned as a capability bitset encoded
// as a sorted key string — used by the enumerator to group candidates by
// "the same set of interesting-property capabilities" for pruning (§4.5
// step 3).
func (s *InterestingSet) SatisfiedBy(g Global, l Local) string {
	if s == nil {
		return ""
	}
	var keys []string
	for _, r := range s.Entries() {
		if g.Satisfies(r.Global) && l.Satisfies(r.Local) {
			keys = append(keys, r.Key())
		}
	}
	// Entries() iterates a map, so its order is not stable across calls;
	// sort before joining so two calls for the same satisfied set always
	// produce the same signature (compiles must be byte-reproducible).
	sort.Strings(keys)
	out := ""
	for _, k := range keys {
		out += k + ";"
	}
	return out
}
