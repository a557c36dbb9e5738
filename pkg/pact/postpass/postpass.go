// Package postpass defines the PostPass collaborator (§6), the final
// opaque-to-the-core walk that attaches serialization and comparator
// descriptors to a finalized plan.
package postpass

import "github.com/lyb5215659/pact-optimizer/pkg/pact/memo"

// PostPass is implemented externally; the core never inspects what it
// attaches.
type PostPass interface {
	Apply(plan *memo.OptimizedPlan) error
}

// Noop is a PostPass that does nothing, used as the default when a caller
// does not need serialization/comparator wiring (e.g. in tests, or for
// callers that attach such metadata out-of-band).
type Noop struct{}

// Apply implements PostPass.
func (Noop) Apply(*memo.OptimizedPlan) error { return nil }
