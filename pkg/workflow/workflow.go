// Package workflow implements the resumable top-level state machine of
// spec.md section 4.9: LOADING -> SOLVING -> CONNECTING -> PROCESSING,
// driving pkg/namespace, pkg/resolver, pkg/solver, and pkg/processor in
// sequence, with a subclass-overridable callback that may pause the run
// between phases.
package workflow

import (
	"context"

	"github.com/obriencj/koji-habitude-go/pkg/errors"
	"github.com/obriencj/koji-habitude-go/pkg/hub"
	"github.com/obriencj/koji-habitude-go/pkg/key"
	"github.com/obriencj/koji-habitude-go/pkg/loader"
	"github.com/obriencj/koji-habitude-go/pkg/logger"
	"github.com/obriencj/koji-habitude-go/pkg/metrics"
	"github.com/obriencj/koji-habitude-go/pkg/model"
	"github.com/obriencj/koji-habitude-go/pkg/namespace"
	"github.com/obriencj/koji-habitude-go/pkg/processor"
	"github.com/obriencj/koji-habitude-go/pkg/resolver"
	"github.com/obriencj/koji-habitude-go/pkg/solver"
)

// State is the workflow's phase (spec.md section 4.9).
type State string

const (
	StateReady      State = "READY"
	StateStarting   State = "STARTING"
	StateLoading    State = "LOADING"
	StateLoaded     State = "LOADED"
	StateSolving    State = "SOLVING"
	StateSolved     State = "SOLVED"
	StateConnecting State = "CONNECTING"
	StateConnected  State = "CONNECTED"
	StateProcessing State = "PROCESSING"
	StateProcessed  State = "PROCESSED"
	StateCompleted  State = "COMPLETED"
	StateFailed     State = "FAILED"
	statePaused     State = "PAUSED"
)

// phaseOrder lists every transitional state the driver loop visits, in
// order, ending with the terminal COMPLETED.
var phaseOrder = []State{
	StateStarting,
	StateLoading,
	StateLoaded,
	StateSolving,
	StateSolved,
	StateConnecting,
	StateConnected,
	StateProcessing,
	StateProcessed,
	StateCompleted,
}

// Callback is invoked on every transition; returning true pauses the
// workflow after that transition (spec.md section 4.9).
type Callback func(from, to State) bool

// Mode selects sync-vs-compare semantics for CONNECTING/PROCESSING
// (spec.md section 4.9: "authenticated for sync, unauthenticated for
// compare"; "sync workflows fail fast on any phantoms").
type Mode int

const (
	ModeSync Mode = iota
	ModeCompare
)

// Config configures one workflow run.
type Config struct {
	Mode             Mode
	TemplateDirs     []string
	DataPaths        []string
	RedefPolicy      namespace.RedefinitionPolicy
	WorkKeys         []key.Key // nil means every authored key
	ChunkSize        int
	ConnectTransport func(ctx context.Context, mode Mode) (hub.Transport, error)
	OnWarn           func(string)
	Metrics          *metrics.Registry
}

// Workflow drives one run of the pipeline, holding enough state between
// phases to support pause/resume (spec.md section 4.9, "resume()
// continues from the paused state").
type Workflow struct {
	cfg   Config
	state State
	cb    Callback

	templateNS *namespace.Namespace
	dataNS     *namespace.Namespace
	res        *resolver.Resolver
	solved     []model.Object
	transport  hub.Transport
	proc       *processor.Processor

	snapshot resolver.Report
	err      error
}

// New constructs a Workflow in the READY state.
func New(cfg Config) *Workflow {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = processor.DefaultChunkSize
	}
	return &Workflow{cfg: cfg, state: StateReady}
}

// OnTransition installs the subclass-overridable callback.
func (w *Workflow) OnTransition(cb Callback) { w.cb = cb }

// State returns the workflow's current phase.
func (w *Workflow) State() State { return w.state }

// Resolver exposes the built resolver, valid once SOLVING has run.
func (w *Workflow) Resolver() *resolver.Resolver { return w.res }

// Processor exposes the processor, valid once PROCESSING has started.
func (w *Workflow) Processor() *processor.Processor { return w.proc }

// Snapshot returns the discovered/phantom split from the preliminary
// compare-only pass, valid once PROCESSING has run.
func (w *Workflow) Snapshot() resolver.Report { return w.snapshot }

// Run drives the workflow from READY (or a paused state) to COMPLETED,
// or until a callback pauses it, or until a phase fails (spec.md
// section 4.9: "failure anywhere sets FAILED and propagates the error").
func (w *Workflow) Run(ctx context.Context) error {
	if w.state == StateFailed {
		return errors.NewStateError("workflow already FAILED", w.err)
	}

	for _, target := range phaseOrder {
		if !w.shouldRun(target) {
			continue
		}
		from := w.state
		stop := w.cfg.Metrics.PhaseTimer(string(target))
		err := w.runPhase(ctx, target)
		stop()
		if err != nil {
			w.err = err
			w.state = StateFailed
			return err
		}
		w.state = target
		if w.cb != nil && w.cb(from, target) {
			return nil
		}
	}
	return nil
}

// shouldRun reports whether target is still ahead of the workflow's
// current position, so Resume can re-enter Run and skip completed phases.
func (w *Workflow) shouldRun(target State) bool {
	return phaseIndex(target) > phaseIndex(w.state)
}

func phaseIndex(s State) int {
	for i, p := range phaseOrder {
		if p == s {
			return i
		}
	}
	return -1
}

// Resume continues a paused workflow (spec.md section 4.9, "resume()").
func (w *Workflow) Resume(ctx context.Context) error {
	if w.state == StateCompleted || w.state == StateFailed {
		return errors.NewStateError("workflow is not paused", nil)
	}
	return w.Run(ctx)
}

func (w *Workflow) runPhase(ctx context.Context, target State) error {
	switch target {
	case StateStarting:
		return nil
	case StateLoading:
		return w.load(ctx)
	case StateLoaded:
		return nil
	case StateSolving:
		return w.solve()
	case StateSolved:
		return nil
	case StateConnecting:
		return w.connect(ctx)
	case StateConnected:
		return nil
	case StateProcessing:
		return w.process(ctx)
	case StateProcessed:
		return nil
	case StateCompleted:
		return nil
	default:
		return errors.NewInternalError("unknown workflow phase "+string(target), nil)
	}
}

func (w *Workflow) load(ctx context.Context) error {
	logger.Infow("workflow loading", "templateDirs", len(w.cfg.TemplateDirs), "dataPaths", len(w.cfg.DataPaths))

	w.templateNS = namespace.New(w.cfg.RedefPolicy)
	w.templateNS.OnWarn(w.cfg.OnWarn)
	for _, dir := range w.cfg.TemplateDirs {
		if err := loader.LoadPath(dir, w.templateNS); err != nil {
			return err
		}
	}
	if err := w.templateNS.Expand(); err != nil {
		return err
	}

	w.dataNS = namespace.New(w.cfg.RedefPolicy)
	w.dataNS.OnWarn(w.cfg.OnWarn)
	w.dataNS.SeedTemplates(w.templateNS)
	for _, path := range w.cfg.DataPaths {
		if err := loader.LoadPath(path, w.dataNS); err != nil {
			return err
		}
	}
	return w.dataNS.Expand()
}

func (w *Workflow) solve() error {
	logger.Infow("workflow solving", "objects", len(w.dataNS.Objects()))
	w.res = resolver.New(w.dataNS)

	keys := w.cfg.WorkKeys
	if len(keys) == 0 {
		for k := range w.dataNS.Objects() {
			keys = append(keys, k)
		}
	}

	solved, err := solver.Solve(w.res, keys)
	if err != nil {
		return err
	}
	w.solved = solved
	return nil
}

func (w *Workflow) connect(ctx context.Context) error {
	if w.cfg.ConnectTransport == nil {
		return errors.NewInternalError("workflow config has no ConnectTransport", nil)
	}
	t, err := w.cfg.ConnectTransport(ctx, w.cfg.Mode)
	if err != nil {
		return err
	}
	if w.cfg.Mode == ModeSync && !t.Authenticated() {
		return errors.NewAuthError("sync workflows require an authenticated hub session", nil)
	}
	w.transport = t
	return nil
}

func (w *Workflow) process(ctx context.Context) error {
	missing := w.res.Missing()
	if len(missing) > 0 {
		preludeObjs := make([]model.Object, 0, len(missing))
		for _, k := range missing {
			obj, err := w.res.Resolve(k)
			if err != nil {
				return err
			}
			preludeObjs = append(preludeObjs, obj)
		}
		prelude := processor.NewCompareOnly(w.transport, w.res, preludeObjs).WithMetrics(w.cfg.Metrics)
		if err := prelude.Run(ctx, nil); err != nil {
			return err
		}
	}

	w.snapshot = w.res.Snapshot()
	if w.cfg.Mode == ModeSync && len(w.snapshot.Phantoms) > 0 {
		return errors.NewPhantomError(
			"sync workflow found phantom references; no such objects exist on the hub",
			nil,
		)
	}

	logger.Infow("workflow processing", "solved", len(w.solved), "phantoms", len(w.snapshot.Phantoms))

	if w.cfg.Mode == ModeCompare {
		w.proc = processor.NewCompareOnly(w.transport, w.res, w.solved)
	} else {
		w.proc = processor.New(w.transport, w.res, w.solved)
	}
	w.proc.WithChunkSize(w.cfg.ChunkSize).WithMetrics(w.cfg.Metrics)

	return w.proc.Run(ctx, func(step, n int) {
		logger.Debugw("processor step complete", "step", step, "chunkSize", n)
	})
}
