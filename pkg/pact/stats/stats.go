// Package stats defines the DataStatistics collaborator (§6): an
// out-of-scope, pluggable provider of per-source size estimates that the
// graph-creation phase consults to seed §4.2's output size estimates.
package stats

// Estimate holds the statistics known about a data source. A field of -1
// means "unknown"; the source and every estimate derived from it then carry
// an unknown size, and cost.DefaultEstimator prices them with fixed default
// volumes. Unknown statistics do not make strategy selection favour
// sort-based plans: with DefaultEstimator, hash-build strategies are still
// priced below sort-based ones.
type Estimate struct {
	Cardinality    int64
	AvgRecordWidth float64
	NumBytes       int64
}

// Unknown is the sentinel estimate returned when nothing is known about a
// source.
var Unknown = Estimate{Cardinality: -1, AvgRecordWidth: -1, NumBytes: -1}

// IsUnknown reports whether any field of the estimate is the unknown
// sentinel.
func (e Estimate) IsUnknown() bool {
	return e.Cardinality < 0 || e.AvgRecordWidth < 0 || e.NumBytes < 0
}

// Provider is the collaborator interface implemented externally (§1, §6):
// given a source identifier, return what's known about it.
type Provider interface {
	GetStats(sourceID string) Estimate
}

// StaticProvider is a trivial in-memory Provider, useful for tests and for
// callers that precompute statistics once per job rather than wiring a live
// catalog.
type StaticProvider map[string]Estimate

// GetStats implements Provider.
func (p StaticProvider) GetStats(sourceID string) Estimate {
	if e, ok := p[sourceID]; ok {
		return e
	}
	return Unknown
}
