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

// BuildType models a Koji build type registration: non-splittable,
// compare-only existence (listBTypes has no edit call in the stable API).
type BuildType struct {
	prov Provenance
	name string
}

// BuildBuildType validates a Document into a BuildType.
func BuildBuildType(d Document) (*BuildType, error) {
	b := &BuildType{prov: provenanceOf(d), name: d.Name}
	if b.name == "" {
		return nil, errors.NewValidationError("build-type document missing name", nil)
	}
	return b, nil
}

func (b *BuildType) Key() key.Key             { return key.New(key.BuildType, b.name) }
func (b *BuildType) Provenance() Provenance   { return b.prov }
func (b *BuildType) CanSplit() bool           { return false }
func (b *BuildType) DependencyKeys() []key.Key { return nil }
func (b *BuildType) Split() (Object, error) {
	return nil, errors.NewInternalError("build-type "+b.name+" is not splittable", nil)
}

func (b *BuildType) NewChangeReport(r Resolver) change.Report {
	return &buildTypeReport{Base: change.NewBase(b.Key()), bt: b, resolver: r}
}

type buildTypeReport struct {
	change.Base
	bt       *BuildType
	resolver Resolver
	listCall *multicall.VirtualCall
}

func (r *buildTypeReport) Read(_ context.Context, session *multicall.Session) (change.FollowUp, error) {
	r.SetState(change.StateReadPending)
	session.Associate(r.bt.Key())
	r.listCall = session.Call(hub.MethodListBTypes, nil, nil)
	return nil, nil
}

func (r *buildTypeReport) Compare() error {
	var changes []change.Change
	if !nameInList(r.listCall.Value(), r.bt.name) {
		changes = append(changes, change.Change{
			Kind: change.KindCreate, Subject: r.bt.name,
			Summary: fmt.Sprintf("addBType %s", r.bt.name),
		})
	}
	r.SetChanges(change.SortChanges(changes))
	r.SetState(change.StateCompared)
	return nil
}

func (r *buildTypeReport) Apply(_ context.Context, session *multicall.Session) error {
	r.SetState(change.StateApplied)
	session.Associate(r.bt.Key())
	for _, c := range r.Changes() {
		if c.Kind == change.KindCreate {
			session.Call(hub.MethodAddBType, []any{r.bt.name}, nil)
		}
	}
	return nil
}

// nameInList tests membership by "name" field (map entries) or bare
// string entries, the two shapes Koji's list* calls return across methods.
func nameInList(v any, name string) bool {
	list, _ := v.([]any)
	for _, e := range list {
		switch t := e.(type) {
		case map[string]any:
			if stringField(t, "name") == name {
				return true
			}
		case string:
			if t == name {
				return true
			}
		}
	}
	return false
}
