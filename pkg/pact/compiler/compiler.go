// Package compiler implements the driver (§4.7): reconciling cluster
// hardware against user-configured limits, then running graph creation,
// interesting-property propagation, branch tracking, alternative
// enumeration, finalization and the post-pass in order. Grounded on the
// teacher's top-level Optimizer.Optimize orchestration (pkg/sql/opt/xform's
// PhysicalPlanBuilder and the optbuilder→optimizer→execbuilder pipeline in
// sql/opt_catalog.go's callers) for the "one driver, one entry point per
// caller shape" structure, and on PactCompiler.compile() in the original
// implementation for the reconciliation arithmetic itself.
package compiler

import (
	"context"
	"sort"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lyb5215659/pact-optimizer/pkg/pact/cluster"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/cost"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/graph"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/log"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/memo"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/opt"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/postpass"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/stats"
	"github.com/lyb5215659/pact-optimizer/pkg/pact/xform"
)

// ErrConfiguration marks the §7 "configuration error" family: a Config
// whose values cannot be reconciled against each other (e.g. a negative
// parallelism) before the compile even reaches graph creation.
var ErrConfiguration = errors.New("configuration error")

// Config carries the user-supplied limits the driver reconciles against
// whatever hardware the cluster reports (§4.7 step 2).
type Config struct {
	// MaxMachines caps how many instances the plan may spread across; 0
	// means "use however many the cluster reports", and a negative value
	// fails validation.
	MaxMachines int
	// DefaultParallelism is applied to any contract that does not declare
	// its own DegreeOfParallelism.
	DefaultParallelism int
	// MaxIntraNodeParallelism caps how many tasks of the default
	// parallelism run on one instance: the default parallelism is capped at
	// MaxMachines × MaxIntraNodeParallelism. A contract's own
	// DegreeOfParallelism is not capped. <= 0 means unlimited.
	MaxIntraNodeParallelism int
	// ClusterInfoTimeout overrides cluster.DefaultWaitTimeout when > 0.
	ClusterInfoTimeout time.Duration
	// Verbosity gates VEventf calls; see log.New.
	Verbosity int
}

func (c Config) validate() error {
	if c.DefaultParallelism < 0 {
		return errors.Mark(errors.Newf("default parallelism %d is negative", c.DefaultParallelism), ErrConfiguration)
	}
	if c.MaxMachines < 0 {
		return errors.Mark(errors.Newf("max machines %d is negative", c.MaxMachines), ErrConfiguration)
	}
	return nil
}

// Compiler is the driver: one instance is built per job submission path and
// reused across compiles that share the same collaborators.
type Compiler struct {
	Config Config

	ClusterInfo   cluster.Info
	Stats         stats.Provider
	CostEstimator cost.Estimator
	PostPass      postpass.PostPass
	Logger        *log.Logger

	resolver *cluster.Resolver
}

// New builds a Compiler with CostEstimator set to cost.DefaultEstimator,
// PostPass to postpass.Noop, and Logger to a logger at the configured
// verbosity.
func New(cfg Config, clusterInfo cluster.Info, statsProvider stats.Provider) *Compiler {
	return &Compiler{
		Config:        cfg,
		ClusterInfo:   clusterInfo,
		Stats:         statsProvider,
		CostEstimator: cost.DefaultEstimator{},
		PostPass:      postpass.Noop{},
		Logger:        log.New(cfg.Verbosity),
	}
}

func (c *Compiler) resolverOnce() *cluster.Resolver {
	if c.resolver == nil {
		c.resolver = cluster.NewResolver(c.ClusterInfo, c.Config.ClusterInfoTimeout)
	}
	return c.resolver
}

// Compile runs the full pipeline and returns the cheapest complete plan,
// per §6's first Compile overload.
func (c *Compiler) Compile(ctx context.Context, sinks []*opt.Contract) (*memo.OptimizedPlan, error) {
	return c.compile(ctx, sinks, c.Stats, 0, nil, nil)
}

// CompileWithStats is §6's second overload: run a single compile against a
// statistics provider other than the Compiler's own default, without
// mutating the Compiler (useful for a caller that refreshes statistics
// per-job rather than per-process).
func (c *Compiler) CompileWithStats(ctx context.Context, sinks []*opt.Contract, statsProvider stats.Provider) (*memo.OptimizedPlan, error) {
	return c.compile(ctx, sinks, statsProvider, 0, nil, nil)
}

// CompileNth is §6's third overload, exposing §4.9's NthBestPlan at the
// driver level: the nth-cheapest (0-based) complete plan rather than the
// cheapest.
func (c *Compiler) CompileNth(ctx context.Context, sinks []*opt.Contract, n int) (*memo.OptimizedPlan, error) {
	return c.compile(ctx, sinks, c.Stats, n, nil, nil)
}

// CompileWithInstanceType is §6's fourth overload: the caller supplies the
// instance type directly, skipping the ClusterInfo RPC entirely, and may
// override the Compiler's configured PostPass for just this call (pass nil
// to keep the Compiler's own PostPass).
func (c *Compiler) CompileWithInstanceType(
	ctx context.Context, sinks []*opt.Contract, instanceType cluster.InstanceTypeDescription, postPass postpass.PostPass,
) (*memo.OptimizedPlan, error) {
	return c.compile(ctx, sinks, c.Stats, 0, &instanceType, postPass)
}

func (c *Compiler) compile(
	ctx context.Context, sinks []*opt.Contract, statsProvider stats.Provider, n int,
	fixedInstanceType *cluster.InstanceTypeDescription, postPass postpass.PostPass,
) (*memo.OptimizedPlan, error) {
	if err := c.Config.validate(); err != nil {
		return nil, err
	}
	c.Logger.Infof(ctx, "compiling plan with %d sink(s)", len(sinks))

	var instanceType cluster.InstanceTypeDescription
	var maxMachines, defaultParallelism int
	var err error
	if fixedInstanceType != nil {
		instanceType, maxMachines, defaultParallelism = c.reconcileHardware(*fixedInstanceType)
	} else {
		instanceType, maxMachines, defaultParallelism, err = c.resolveHardware(ctx)
		if err != nil {
			return nil, err
		}
	}

	g, err := graph.BuildGraph(sinks, statsProvider, maxMachines, defaultParallelism)
	if err != nil {
		return nil, err
	}
	c.Logger.VEventf(ctx, 1, "built graph with %d node(s), %d source(s), %d sink(s)", g.NumNodes(), len(g.Sources), len(g.Sinks))

	graph.PropagateInterestingProperties(g, c.CostEstimator)
	graph.ComputeBranches(g)

	if err := xform.EnumerateAlternatives(g, c.CostEstimator, c.Logger); err != nil {
		return nil, err
	}

	var plan *memo.OptimizedPlan
	if n == 0 {
		plan, err = xform.Finalize(g, instanceType)
	} else {
		plan, err = xform.NthBestPlan(g, n, instanceType)
	}
	if err != nil {
		return nil, err
	}

	applyPostPass := c.PostPass
	if postPass != nil {
		applyPostPass = postPass
	}
	if err := applyPostPass.Apply(plan); err != nil {
		return nil, err
	}
	c.Logger.Infof(ctx, "compiled plan %s: %d node(s), cost=%.1f", plan.RunID, len(plan.Nodes), plan.TotalCost.Scalar())
	return plan, nil
}

// resolveHardware implements §4.7 step 1-2: fetch cluster info with the
// bounded wait, pick an instance type, then reconcile the configured caps
// against what that instance type actually offers.
func (c *Compiler) resolveHardware(ctx context.Context) (cluster.InstanceTypeDescription, int, int, error) {
	types, err := c.resolverOnce().Fetch(ctx)
	if err != nil {
		return cluster.InstanceTypeDescription{}, 0, 0, err
	}

	ordered := make([]cluster.InstanceTypeDescription, 0, len(types))
	for _, d := range types {
		ordered = append(ordered, d)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].InstanceType.Identifier < ordered[j].InstanceType.Identifier
	})

	instanceType, err := cluster.Pick(ordered)
	if err != nil {
		return cluster.InstanceTypeDescription{}, 0, 0, err
	}

	it, maxMachines, defaultParallelism := c.reconcileHardware(instanceType)
	return it, maxMachines, defaultParallelism, nil
}

// reconcileHardware implements §4.7 step 2 alone: cap the configured limits
// against what instanceType actually offers, without contacting ClusterInfo
// — shared by resolveHardware (cluster-picked instance type) and
// CompileWithInstanceType (caller-supplied instance type).
func (c *Compiler) reconcileHardware(instanceType cluster.InstanceTypeDescription) (cluster.InstanceTypeDescription, int, int) {
	maxMachines := instanceType.MaxAvailableInstances
	if c.Config.MaxMachines > 0 && c.Config.MaxMachines < maxMachines {
		maxMachines = c.Config.MaxMachines
	}

	defaultParallelism := c.Config.DefaultParallelism
	if defaultParallelism <= 0 {
		defaultParallelism = maxMachines * intraNodeParallelism(c.Config, instanceType)
	}
	if limit := maxMachines * c.Config.MaxIntraNodeParallelism; c.Config.MaxIntraNodeParallelism > 0 && defaultParallelism > limit {
		defaultParallelism = limit
	}
	if defaultParallelism < 1 {
		defaultParallelism = 1
	}

	return instanceType, maxMachines, defaultParallelism
}

func intraNodeParallelism(cfg Config, instanceType cluster.InstanceTypeDescription) int {
	p := instanceType.Hardware.Cores
	if p < 1 {
		p = 1
	}
	if cfg.MaxIntraNodeParallelism > 0 && cfg.MaxIntraNodeParallelism < p {
		p = cfg.MaxIntraNodeParallelism
	}
	return p
}
