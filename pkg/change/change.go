// Package change defines the per-object change-report state machine
// (spec.md section 4.6): Change values, the report lifecycle, and the
// Report interface that every object kind in pkg/model implements.
package change

import (
	"context"

	"github.com/obriencj/koji-habitude-go/pkg/errors"
	"github.com/obriencj/koji-habitude-go/pkg/key"
	"github.com/obriencj/koji-habitude-go/pkg/multicall"
)

// Kind enumerates the tagged change variants (spec.md section 4.6).
type Kind string

const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindAdd    Kind = "add"
	KindRemove Kind = "remove"
	KindModify Kind = "modify"
)

// kindOrder fixes the apply ordering within one report: creations
// precede additions; additions/edits precede removals (spec.md section
// 4.6, "Change ordering within a report is semantically meaningful").
var kindOrder = map[Kind]int{
	KindCreate: 0,
	KindModify: 1,
	KindUpdate: 1,
	KindAdd:    2,
	KindRemove: 3,
}

// Change is a single declarative diff step against one object.
type Change struct {
	Kind    Kind
	Subject string // e.g. the dependent key's string form, or an attribute name
	Payload any
	Summary string
	// Skip, when non-nil, is consulted at apply time; if it returns true
	// the change is skipped without issuing any hub call (spec.md
	// section 4.6, e.g. "add host H to channel C" skipped if H is a
	// phantom).
	Skip func() bool
}

// SortChanges orders a change list per kindOrder, stable within a kind so
// callers that appended in a meaningful order (e.g. per-priority) keep it.
func SortChanges(changes []Change) []Change {
	out := make([]Change, len(changes))
	copy(out, changes)
	// Stable insertion sort: the lists involved are small (per-object
	// change counts are rarely more than a handful), and stability
	// w.r.t. insertion order matters more than asymptotic complexity.
	for i := 1; i < len(out); i++ {
		j := i
		for j > 0 && kindOrder[out[j-1].Kind] > kindOrder[out[j].Kind] {
			out[j-1], out[j] = out[j], out[j-1]
			j--
		}
	}
	return out
}

// State is the lifecycle stage of a Report (spec.md section 3,
// "Change report lifecycle").
type State string

const (
	StateInit        State = "INIT"
	StateReadPending  State = "READ_PENDING"
	StateCompared     State = "COMPARED"
	StateApplied      State = "APPLIED"
)

// FollowUp is a deferred query round a Read may request: it runs after
// the current multicall session commits, typically to fetch details
// only relevant once a first query confirms the object exists.
type FollowUp func(ctx context.Context, session *multicall.Session) error

// Report is the per-object change-report contract every model kind
// implements (spec.md section 4.6).
type Report interface {
	Key() key.Key
	State() State
	// Read queues hub queries on session to discover the object's
	// remote counterpart. It may return a non-nil FollowUp, which the
	// processor runs in a second round after session's first commit.
	Read(ctx context.Context, session *multicall.Session) (FollowUp, error)
	// Compare consults bound call results and populates the change list.
	Compare() error
	// Apply issues the hub calls realizing the change list.
	Apply(ctx context.Context, session *multicall.Session) error
	// CheckResults surfaces any per-change apply errors.
	CheckResults() error
	// Changes returns the change list populated by Compare.
	Changes() []Change
}

// Base is embedded by concrete per-kind reports to carry the common
// lifecycle bookkeeping (state, change list, apply errors), so each kind
// only implements the hub-specific Read/Compare/Apply bodies.
type Base struct {
	ObjKey   key.Key
	state    State
	changes  []Change
	applyErr []error
}

// NewBase constructs a Base in the INIT state for the given key.
func NewBase(k key.Key) Base {
	return Base{ObjKey: k, state: StateInit}
}

// Key implements Report.
func (b *Base) Key() key.Key { return b.ObjKey }

// State implements Report.
func (b *Base) State() State { return b.state }

// SetState transitions the report's lifecycle state. Concrete reports
// call this at the start of Read/Compare/Apply to keep Base authoritative.
func (b *Base) SetState(s State) { b.state = s }

// SetChanges installs the (already ordered) change list after Compare.
func (b *Base) SetChanges(changes []Change) { b.changes = changes }

// Changes implements Report.
func (b *Base) Changes() []Change { return b.changes }

// RecordApplyError appends a per-change apply failure for CheckResults.
func (b *Base) RecordApplyError(err error) {
	if err != nil {
		b.applyErr = append(b.applyErr, err)
	}
}

// CheckResults implements the default CheckResults: collect-all-errors
// semantics (spec.md section 9 leaves first-error-vs-collect-all as an
// explicit open question; this module collects all, see DESIGN.md).
func (b *Base) CheckResults() error {
	if len(b.applyErr) == 0 {
		return nil
	}
	return errors.NewHubError("one or more changes failed to apply", joinErrors(b.applyErr))
}

func joinErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	msg := ""
	for i, e := range errs {
		if i > 0 {
			msg += "; "
		}
		msg += e.Error()
	}
	return errors.NewInternalError(msg, nil)
}
