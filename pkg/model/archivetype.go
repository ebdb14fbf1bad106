package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/obriencj/koji-habitude-go/pkg/change"
	"github.com/obriencj/koji-habitude-go/pkg/errors"
	"github.com/obriencj/koji-habitude-go/pkg/hub"
	"github.com/obriencj/koji-habitude-go/pkg/key"
	"github.com/obriencj/koji-habitude-go/pkg/multicall"
)

// ArchiveType models a Koji archive type registration: non-splittable,
// identified by its name, with a required file extension list.
type ArchiveType struct {
	prov        Provenance
	name        string
	Description string
	Extensions  []string
}

// BuildArchiveType validates a Document into an ArchiveType.
func BuildArchiveType(d Document) (*ArchiveType, error) {
	a := &ArchiveType{
		prov:        provenanceOf(d),
		name:        d.Name,
		Description: stringField(d.Fields, "description"),
		Extensions:  stringListField(d.Fields, "extensions"),
	}
	if a.name == "" {
		return nil, errors.NewValidationError("archive-type document missing name", nil)
	}
	if len(a.Extensions) == 0 {
		return nil, errors.NewValidationError("archive-type "+a.name+" requires extensions", nil)
	}
	return a, nil
}

func (a *ArchiveType) Key() key.Key             { return key.New(key.ArchiveType, a.name) }
func (a *ArchiveType) Provenance() Provenance   { return a.prov }
func (a *ArchiveType) CanSplit() bool           { return false }
func (a *ArchiveType) DependencyKeys() []key.Key { return nil }
func (a *ArchiveType) Split() (Object, error) {
	return nil, errors.NewInternalError("archive-type "+a.name+" is not splittable", nil)
}

func (a *ArchiveType) NewChangeReport(r Resolver) change.Report {
	return &archiveTypeReport{Base: change.NewBase(a.Key()), at: a, resolver: r}
}

type archiveTypeReport struct {
	change.Base
	at       *ArchiveType
	resolver Resolver
	listCall *multicall.VirtualCall
}

func (r *archiveTypeReport) Read(_ context.Context, session *multicall.Session) (change.FollowUp, error) {
	r.SetState(change.StateReadPending)
	session.Associate(r.at.Key())
	r.listCall = session.Call(hub.MethodGetArchiveTypes, nil, nil)
	return nil, nil
}

func (r *archiveTypeReport) Compare() error {
	var changes []change.Change
	if !nameInList(r.listCall.Value(), r.at.name) {
		changes = append(changes, change.Change{
			Kind: change.KindCreate, Subject: r.at.name,
			Summary: fmt.Sprintf("addArchiveType %s", r.at.name),
		})
	}
	r.SetChanges(change.SortChanges(changes))
	r.SetState(change.StateCompared)
	return nil
}

func (r *archiveTypeReport) Apply(_ context.Context, session *multicall.Session) error {
	r.SetState(change.StateApplied)
	session.Associate(r.at.Key())
	for _, c := range r.Changes() {
		if c.Kind == change.KindCreate {
			session.Call(hub.MethodAddArchiveType, []any{r.at.name, r.at.Description, strings.Join(r.at.Extensions, " ")}, nil)
		}
	}
	return nil
}
