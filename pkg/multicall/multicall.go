// Package multicall implements the batch-accumulating session that
// wraps a hub.Transport (spec.md section 4.7): calls made against a
// Session are recorded as VirtualCalls and not sent until the
// session's Commit (its context-exit equivalent) fires one multiCall
// round-trip and distributes results back into each VirtualCall's
// result slot.
package multicall

import (
	"context"

	"github.com/obriencj/koji-habitude-go/pkg/errors"
	"github.com/obriencj/koji-habitude-go/pkg/hub"
	"github.com/obriencj/koji-habitude-go/pkg/key"
)

// VirtualCall is a handle to a queued hub call. Its Result is unset
// until the owning Session commits.
type VirtualCall struct {
	call    hub.Call
	result  hub.Result
	bound   bool
	trigger func(hub.Result)
}

// Method returns the hub method name this call invokes.
func (v *VirtualCall) Method() string {
	return v.call.Method
}

// Result returns the bound result, or a zero Result if the session has
// not yet committed. Callers in compare() are expected to call this only
// after read()'s session has committed (spec.md section 4.6).
func (v *VirtualCall) Result() hub.Result {
	return v.result
}

// Err is a convenience accessor for Result().Err.
func (v *VirtualCall) Err() error {
	return v.result.Err
}

// Value is a convenience accessor for Result().Value.
func (v *VirtualCall) Value() any {
	return v.result.Value
}

// bind populates the result slot and, for Promise calls, invokes the
// trigger callback - used to wire deferred follow-up query rounds
// (spec.md section 4.6, section 9 "Virtual calls and deferred continuations").
func (v *VirtualCall) bind(r hub.Result) {
	v.result = r
	v.bound = true
	if v.trigger != nil {
		v.trigger(r)
	}
}

// ProcessorCall wraps an underlying VirtualCall and applies a
// post-processing transform lazily, the first time its Result is read -
// used to reshape raw hub responses into model-shaped records without
// paying the transform cost for calls nobody inspects.
type ProcessorCall struct {
	inner     *VirtualCall
	transform func(hub.Result) hub.Result
	cached    *hub.Result
}

// Result lazily applies the transform to the inner call's bound result.
func (p *ProcessorCall) Result() hub.Result {
	if p.cached != nil {
		return *p.cached
	}
	out := p.transform(p.inner.Result())
	p.cached = &out
	return out
}

// Session accumulates VirtualCalls for one batch (one read phase, one
// apply phase) and commits them in a single hub.Transport.MultiCall
// round-trip. A Session is not reusable across phases: the processor
// opens a fresh one per step_read and per step_apply (spec.md section 4.8).
type Session struct {
	transport hub.Transport
	pending   []*VirtualCall
	assocKey  *key.Key
	log       map[key.Key][]*VirtualCall
	committed bool
}

// NewSession wraps a transport in a fresh batch-accumulating session.
func NewSession(t hub.Transport) *Session {
	return &Session{
		transport: t,
		log:       make(map[key.Key][]*VirtualCall),
	}
}

// Associate marks subsequent Call/Promise/Processor invocations as
// belonging to k, until the next Associate or ClearAssociation call.
// The zero Key is an ordinary key here; ClearAssociation is what
// clears the association.
func (s *Session) Associate(k key.Key) {
	kk := k
	s.assocKey = &kk
}

// ClearAssociation stops attributing subsequent calls to any key.
func (s *Session) ClearAssociation() {
	s.assocKey = nil
}

// Call queues a hub call and returns its handle immediately; the call
// itself does not execute until Commit.
func (s *Session) Call(method string, args []any, kwargs map[string]any) *VirtualCall {
	vc := &VirtualCall{call: hub.Call{Method: method, Args: args, Kwargs: kwargs}}
	s.enqueue(vc)
	return vc
}

// Promise queues a hub call whose trigger fires with the bound result
// as soon as Commit distributes it - used by the processor to schedule
// a second multicall round after learning whether an object exists.
func (s *Session) Promise(method string, args []any, kwargs map[string]any, trigger func(hub.Result)) *VirtualCall {
	vc := &VirtualCall{call: hub.Call{Method: method, Args: args, Kwargs: kwargs}, trigger: trigger}
	s.enqueue(vc)
	return vc
}

// Processor queues a hub call and returns a handle whose Result lazily
// reshapes the raw response via transform.
func (s *Session) Processor(method string, args []any, kwargs map[string]any, transform func(hub.Result) hub.Result) *ProcessorCall {
	vc := &VirtualCall{call: hub.Call{Method: method, Args: args, Kwargs: kwargs}}
	s.enqueue(vc)
	return &ProcessorCall{inner: vc, transform: transform}
}

func (s *Session) enqueue(vc *VirtualCall) {
	s.pending = append(s.pending, vc)
	if s.assocKey != nil {
		s.log[*s.assocKey] = append(s.log[*s.assocKey], vc)
	}
}

// Log returns the calls issued so far, keyed by association.
func (s *Session) Log() map[key.Key][]*VirtualCall {
	return s.log
}

// Pending reports how many calls are queued and not yet committed.
func (s *Session) Pending() int {
	return len(s.pending)
}

// Commit transmits every queued call in one multiCall round-trip and
// binds results back to their VirtualCalls. It is the equivalent of the
// batch-accumulating context's exit (spec.md section 4.7). Commit may be
// called more than once on the same Session (the processor does this to
// run deferred follow-up rounds); only newly queued calls since the last
// Commit are sent.
func (s *Session) Commit(ctx context.Context) error {
	if len(s.pending) == 0 {
		s.committed = true
		return nil
	}
	calls := make([]hub.Call, len(s.pending))
	for i, vc := range s.pending {
		calls[i] = vc.call
	}
	results, err := s.transport.MultiCall(ctx, calls)
	if err != nil {
		return errors.NewHubError("multicall commit failed", err)
	}
	if len(results) != len(calls) {
		return errors.NewInternalError("multicall result count mismatch", nil)
	}
	for i, vc := range s.pending {
		vc.bind(results[i])
	}
	s.pending = nil
	s.committed = true
	return nil
}

// Committed reports whether Commit has run at least once.
func (s *Session) Committed() bool {
	return s.committed
}

// CurrentUser exposes the transport's cached authenticated principal
// (spec.md section 6, "Current-user requirement"): permission and
// content-generator creation have no dedicated hub call and instead
// grant-then-revoke against this identity.
func (s *Session) CurrentUser() (hub.CurrentUser, bool) {
	return s.transport.CurrentUser()
}
