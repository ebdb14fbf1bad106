package model

import (
	"context"
	"fmt"

	"github.com/obriencj/koji-habitude-go/pkg/change"
	"github.com/obriencj/koji-habitude-go/pkg/errors"
	"github.com/obriencj/koji-habitude-go/pkg/hub"
	"github.com/obriencj/koji-habitude-go/pkg/key"
	"github.com/obriencj/koji-habitude-go/pkg/multicall"
)

// Target models a Koji build target: non-splittable (spec.md section 3, 4.1).
type Target struct {
	prov     Provenance
	name     string
	BuildTag string
	DestTag  string
}

// BuildTarget validates a Document into a Target.
func BuildTarget(d Document) (*Target, error) {
	t := &Target{
		prov:     provenanceOf(d),
		name:     d.Name,
		BuildTag: stringField(d.Fields, "build-tag"),
		DestTag:  stringField(d.Fields, "destination-tag"),
	}
	if t.name == "" {
		return nil, errors.NewValidationError("target document missing name", nil)
	}
	if t.BuildTag == "" || t.DestTag == "" {
		return nil, errors.NewValidationError("target "+t.name+" requires build-tag and destination-tag", nil)
	}
	return t, nil
}

func (t *Target) Key() key.Key             { return key.New(key.Target, t.name) }
func (t *Target) Provenance() Provenance   { return t.prov }
func (t *Target) CanSplit() bool           { return false }
func (t *Target) Split() (Object, error) {
	return nil, errors.NewInternalError("target "+t.name+" is not splittable", nil)
}

func (t *Target) DependencyKeys() []key.Key {
	return []key.Key{key.New(key.Tag, t.BuildTag), key.New(key.Tag, t.DestTag)}
}

func (t *Target) NewChangeReport(r Resolver) change.Report {
	return &targetReport{Base: change.NewBase(t.Key()), target: t, resolver: r}
}

type targetReport struct {
	change.Base
	target   *Target
	resolver Resolver
	getCall  *multicall.VirtualCall
	remote   map[string]any
}

func (r *targetReport) Read(_ context.Context, session *multicall.Session) (change.FollowUp, error) {
	r.SetState(change.StateReadPending)
	session.Associate(r.target.Key())
	r.getCall = session.Call(hub.MethodGetBuildTarget, []any{r.target.name}, nil)
	return nil, nil
}

func (r *targetReport) Compare() error {
	var changes []change.Change
	if r.getCall.Err() != nil || r.getCall.Value() == nil {
		changes = append(changes, change.Change{
			Kind:    change.KindCreate,
			Subject: r.target.name,
			Summary: fmt.Sprintf("create target %s", r.target.name),
		})
	} else if m, ok := r.getCall.Value().(map[string]any); ok {
		r.remote = m
		if stringField(m, "build_tag_name") != r.target.BuildTag || stringField(m, "dest_tag_name") != r.target.DestTag {
			changes = append(changes, change.Change{
				Kind:    change.KindUpdate,
				Subject: r.target.name,
				Summary: fmt.Sprintf("update target %s", r.target.name),
			})
		}
	}
	r.SetChanges(change.SortChanges(changes))
	r.SetState(change.StateCompared)
	return nil
}

func (r *targetReport) Apply(_ context.Context, session *multicall.Session) error {
	r.SetState(change.StateApplied)
	session.Associate(r.target.Key())
	for _, c := range r.Changes() {
		switch c.Kind {
		case change.KindCreate:
			session.Call(hub.MethodCreateBuildTarget, []any{r.target.name, r.target.BuildTag, r.target.DestTag}, nil)
		case change.KindUpdate:
			session.Call(hub.MethodEditBuildTarget, []any{r.target.name, r.target.name, r.target.BuildTag, r.target.DestTag}, nil)
		}
	}
	return nil
}
