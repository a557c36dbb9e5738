// Package cluster defines the ClusterInfo collaborator (§6) plus the
// instance-picker heuristic and the bounded, single-assignment background
// fetch described in §5 and §4.7 step 1 — ported from the teacher's
// PactCompiler.JobManagerConnector (condition-variable wait with a 10s
// deadline) to a timer-bounded wait, which also ends early when the caller's
// context is done, plus a write-once result.
package cluster

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/singleflight"
)

// Hardware describes one instance type's resources.
type Hardware struct {
	FreeMemoryBytes int64
	Cores           int
}

// InstanceType names one kind of machine the cluster can schedule on.
type InstanceType struct {
	Identifier string
}

// InstanceTypeDescription pairs an instance type with its hardware and how
// many instances of it are currently registered and available.
type InstanceTypeDescription struct {
	InstanceType         InstanceType
	Hardware             Hardware
	MaxAvailableInstances int
}

// hasHardware reports whether a description carries usable hardware info;
// descriptions without it are skipped by the picker, per §4.7.
func (d InstanceTypeDescription) hasHardware() bool {
	return d.Hardware.FreeMemoryBytes > 0 || d.Hardware.Cores > 0
}

// Info is the collaborator interface (§6): list the instance types
// currently registered with the cluster.
type Info interface {
	ListInstanceTypes(ctx context.Context) (map[string]InstanceTypeDescription, error)
}

// DefaultWaitTimeout is the bounded wait §5 specifies for the cluster-info
// fetch.
const DefaultWaitTimeout = 10 * time.Second

// Resolver wraps a ClusterInfo collaborator with the bounded-wait,
// single-assignment semantics of §5, and deduplicates concurrent lookups
// from a shared Compiler via singleflight — see SPEC_FULL.md's DOMAIN STACK
// section.
type Resolver struct {
	info    Info
	timeout time.Duration
	group   singleflight.Group
}

// NewResolver builds a Resolver around the given ClusterInfo collaborator,
// waiting up to timeout (DefaultWaitTimeout if <= 0) for the lookup.
func NewResolver(info Info, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	return &Resolver{info: info, timeout: timeout}
}

// result is written at most once by the background fetch and only ever read
// after that single write has happened — either because it completed before
// the deadline, or because the caller gave up and the goroutine's later
// write lands in a struct nobody reads again.
type result struct {
	types map[string]InstanceTypeDescription
	err   error
}

// Fetch performs the bounded-wait lookup described in §5: a background
// goroutine calls the collaborator; the caller waits up to its configured
// timeout. On timeout it returns a cluster-info error whose message
// mentions "timeout", per §7 and scenario S6.
func (r *Resolver) Fetch(ctx context.Context) (map[string]InstanceTypeDescription, error) {
	v, err, _ := r.group.Do("cluster-info", func() (interface{}, error) {
		return r.fetchOnce(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]InstanceTypeDescription), nil
}

func (r *Resolver) fetchOnce(ctx context.Context) (map[string]InstanceTypeDescription, error) {
	done := make(chan struct{})
	var once sync.Once
	var res result

	go func() {
		types, err := r.info.ListInstanceTypes(ctx)
		once.Do(func() {
			res = result{types: types, err: err}
			close(done)
		})
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case <-done:
		if res.err != nil {
			return nil, errors.Mark(errors.Wrap(res.err, "available instances could not be determined from the cluster"), ErrClusterInfo)
		}
		if len(res.types) == 0 {
			return nil, errors.Mark(errors.New("no instance currently registered with the cluster; retry later"), ErrClusterInfo)
		}
		return res.types, nil
	case <-timer.C:
		return nil, errors.Mark(errors.Newf("timeout waiting %s for cluster instance information", r.timeout), ErrClusterInfo)
	case <-ctx.Done():
		return nil, errors.Mark(errors.Wrap(ctx.Err(), "cluster-info lookup canceled"), ErrClusterInfo)
	}
}

// ErrClusterInfo marks every error this package returns, so callers can
// errors.Is against a stable sentinel regardless of the specific cause
// (timeout, RPC failure, empty instance map) — see §7.
var ErrClusterInfo = errors.New("cluster-info error")

// Pick selects the instance type to schedule on, per §4.7 step 1: among
// types reporting hardware, prefer one with strictly more instances without
// losing much memory, or with significantly more memory at a comparable
// core count. Deterministic given iteration order, so callers should pass a
// stable ordering (e.g. sorted by identifier) for reproducible compiles —
// see invariant 6 ("determinism") in §8.
func Pick(types []InstanceTypeDescription) (InstanceTypeDescription, error) {
	var best InstanceTypeDescription
	var bestInstances int
	var bestMemory int64
	found := false

	for _, d := range types {
		if !d.hasHardware() {
			continue
		}
		instances := d.MaxAvailableInstances
		memory := int64(instances) * d.Hardware.FreeMemoryBytes

		better := !found
		if found {
			moreInstancesNotMuchLessMemory := instances > bestInstances && float64(memory)*1.2 > float64(bestMemory)
			muchMoreMemorySameCores := instances*d.Hardware.Cores >= bestInstances*best.Hardware.Cores && float64(memory)*1.5 > float64(bestMemory)
			better = moreInstancesNotMuchLessMemory || muchMoreMemorySameCores
		}
		if better {
			best = d
			bestInstances = instances
			bestMemory = memory
			found = true
		}
	}

	if !found {
		return InstanceTypeDescription{}, errors.Mark(errors.New("no instance currently registered with the cluster; retry later"), ErrClusterInfo)
	}
	return best, nil
}

// UsableMemoryFraction is the reserve §6 specifies: only this fraction of
// reported free memory is treated as usable, to accommodate rounding error
// in the cluster's own accounting.
const UsableMemoryFraction = 0.96

// UsableMemory applies the reserve to a hardware description's reported
// free memory.
func UsableMemory(h Hardware) int64 {
	return int64(float64(h.FreeMemoryBytes) * UsableMemoryFraction)
}
