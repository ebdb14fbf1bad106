// Package processor implements spec.md section 4.8: the three-phase
// read/compare/apply state machine that drives chunks of the solver's
// output through a multicall session per phase, accumulating change
// reports and call logs.
package processor

import (
	"context"

	"github.com/obriencj/koji-habitude-go/pkg/change"
	"github.com/obriencj/koji-habitude-go/pkg/errors"
	"github.com/obriencj/koji-habitude-go/pkg/hub"
	"github.com/obriencj/koji-habitude-go/pkg/key"
	"github.com/obriencj/koji-habitude-go/pkg/logger"
	"github.com/obriencj/koji-habitude-go/pkg/metrics"
	"github.com/obriencj/koji-habitude-go/pkg/model"
	"github.com/obriencj/koji-habitude-go/pkg/multicall"
)

// State is the processor's lifecycle stage (spec.md section 4.8).
type State string

const (
	StateReadyChunk   State = "READY_CHUNK"
	StateReadyRead    State = "READY_READ"
	StateReadyCompare State = "READY_COMPARE"
	StateReadyApply   State = "READY_APPLY"
	StateExhausted    State = "EXHAUSTED"
	StateBroken       State = "BROKEN"
)

// DefaultChunkSize is the processor's default chunk size, trading
// round-trip count against multicall payload size (spec.md section 4.8).
const DefaultChunkSize = 100

// StepCallback is invoked after each completed step with the step
// index and the number of objects the chunk handled; used for
// progress reporting (spec.md section 4.8, "run(callback)").
type StepCallback func(stepIndex int, chunkSize int)

// Summary tallies a completed run (spec.md section 4.8).
type Summary struct {
	ObjectsProcessed int
	StepsCompleted   int
	TotalChanges     int
	ReadCalls        int
	WriteCalls       int
}

// Processor drives the solver's emitted object stream through
// read -> compare -> apply in chunks.
type Processor struct {
	transport hub.Transport
	objects   []model.Object
	resolver  model.Resolver
	chunkSize int

	cursor int
	state  State

	reports   map[key.Key]change.Report
	readLog   map[key.Key][]*multicall.VirtualCall
	writeLog  map[key.Key][]*multicall.VirtualCall
	stepCount int

	// applyFn lets CompareOnlyProcessor override step_apply to a no-op
	// without duplicating the rest of the state machine.
	applyFn func(ctx context.Context, chunk []model.Object) error

	metrics *metrics.Registry
}

// WithMetrics attaches a metrics registry; hub calls and applied
// changes are counted against it as they occur. A nil registry (the
// default) disables counting.
func (p *Processor) WithMetrics(m *metrics.Registry) *Processor {
	p.metrics = m
	return p
}

// New constructs a Processor over objects (typically the solver's
// emitted order) using transport and resolver, with the default chunk size.
func New(transport hub.Transport, resolver model.Resolver, objects []model.Object) *Processor {
	p := &Processor{
		transport: transport,
		objects:   objects,
		resolver:  resolver,
		chunkSize: DefaultChunkSize,
		state:     StateReadyChunk,
		reports:   make(map[key.Key]change.Report),
		readLog:   make(map[key.Key][]*multicall.VirtualCall),
		writeLog:  make(map[key.Key][]*multicall.VirtualCall),
	}
	p.applyFn = p.defaultApply
	return p
}

// NewCompareOnly constructs a Processor whose step_apply is a no-op,
// leaving reports populated with what would be changed (spec.md
// section 4.8, "CompareOnlyProcessor").
func NewCompareOnly(transport hub.Transport, resolver model.Resolver, objects []model.Object) *Processor {
	p := New(transport, resolver, objects)
	p.applyFn = func(_ context.Context, _ []model.Object) error { return nil }
	return p
}

// WithChunkSize overrides the default chunk size.
func (p *Processor) WithChunkSize(n int) *Processor {
	if n > 0 {
		p.chunkSize = n
	}
	return p
}

// State returns the processor's current lifecycle state.
func (p *Processor) State() State { return p.state }

// Reports returns every change report produced so far, keyed by object.
func (p *Processor) Reports() map[key.Key]change.Report { return p.reports }

// Step drives one full chunk through read, compare, and apply. It
// returns the chunk size handled, or 0 at EXHAUSTED.
func (p *Processor) Step(ctx context.Context) (int, error) {
	if p.state == StateBroken {
		return 0, errors.NewStateError("processor is BROKEN", nil)
	}
	if p.cursor >= len(p.objects) {
		p.state = StateExhausted
		return 0, nil
	}

	end := p.cursor + p.chunkSize
	if end > len(p.objects) {
		end = len(p.objects)
	}
	chunk := p.objects[p.cursor:end]
	p.cursor = end

	if err := p.stepRead(ctx, chunk); err != nil {
		p.state = StateBroken
		return 0, err
	}
	if err := p.stepCompare(chunk); err != nil {
		p.state = StateBroken
		return 0, err
	}
	if err := p.applyFn(ctx, chunk); err != nil {
		p.state = StateBroken
		return 0, err
	}

	p.state = StateReadyChunk
	p.stepCount++
	return len(chunk), nil
}

func (p *Processor) stepRead(ctx context.Context, chunk []model.Object) error {
	p.state = StateReadyRead
	session := multicall.NewSession(p.transport)

	var followUps []change.FollowUp
	for _, obj := range chunk {
		report := obj.NewChangeReport(p.resolver)
		p.reports[obj.Key()] = report
		session.Associate(obj.Key())
		fu, err := report.Read(ctx, session)
		if err != nil {
			return err
		}
		if fu != nil {
			followUps = append(followUps, fu)
		}
	}

	if err := session.Commit(ctx); err != nil {
		return err
	}

	// Run the deferred follow-ups as one extra round (spec.md section
	// 4.8: "typically one extra round"). Follow-ups are one-shot
	// second-round queries; any they return are not collected, so no
	// third round runs.
	for _, fu := range followUps {
		if err := fu(ctx, session); err != nil {
			return err
		}
	}
	if len(followUps) > 0 {
		if err := session.Commit(ctx); err != nil {
			return err
		}
	}

	p.recordLog("read", p.readLog, session)
	p.state = StateReadyCompare
	return nil
}

func (p *Processor) stepCompare(chunk []model.Object) error {
	for _, obj := range chunk {
		report := p.reports[obj.Key()]
		if err := report.Compare(); err != nil {
			return err
		}
	}
	p.state = StateReadyApply
	return nil
}

func (p *Processor) defaultApply(ctx context.Context, chunk []model.Object) error {
	session := multicall.NewSession(p.transport)
	for _, obj := range chunk {
		report := p.reports[obj.Key()]
		session.Associate(obj.Key())
		if err := report.Apply(ctx, session); err != nil {
			return err
		}
	}
	if err := session.Commit(ctx); err != nil {
		return err
	}
	p.recordLog("write", p.writeLog, session)

	var applyErr error
	for _, obj := range chunk {
		report := p.reports[obj.Key()]
		for _, c := range report.Changes() {
			p.metrics.ObserveChange(string(c.Kind))
		}
		if err := report.CheckResults(); err != nil {
			logger.Warnw("change apply reported errors", "key", obj.Key().String(), "error", err)
			applyErr = err
		}
	}
	return applyErr
}

func (p *Processor) recordLog(phase string, dest map[key.Key][]*multicall.VirtualCall, session *multicall.Session) {
	for k, calls := range session.Log() {
		dest[k] = append(dest[k], calls...)
		for _, c := range calls {
			p.metrics.ObserveHubCall(phase, c.Method())
		}
	}
}

// Run loops Step until EXHAUSTED or BROKEN, invoking cb (if non-nil)
// after every completed step (spec.md section 4.8).
func (p *Processor) Run(ctx context.Context, cb StepCallback) error {
	for {
		n, err := p.Step(ctx)
		if err != nil {
			return err
		}
		if cb != nil && n > 0 {
			cb(p.stepCount, n)
		}
		if p.state == StateExhausted || p.state == StateBroken {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if p.state == StateBroken {
		return errors.NewStateError("processor run ended in BROKEN state", nil)
	}
	return nil
}

// Summarize tallies the processor's accumulated state (spec.md section
// 4.8, "final summary").
func (p *Processor) Summarize() Summary {
	s := Summary{
		ObjectsProcessed: len(p.reports),
		StepsCompleted:   p.stepCount,
	}
	for _, r := range p.reports {
		s.TotalChanges += len(r.Changes())
	}
	for _, calls := range p.readLog {
		s.ReadCalls += len(calls)
	}
	for _, calls := range p.writeLog {
		s.WriteCalls += len(calls)
	}
	return s
}
