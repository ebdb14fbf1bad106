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

// ExternalRepo models a Koji external repo: non-splittable (spec.md
// section 3, 4.1). Tags reference it via their external-repos list;
// this kind only owns the repo identity itself (url), not the
// per-tag priority link, which tagReport.Apply issues directly.
type ExternalRepo struct {
	prov Provenance
	name string
	URL  string
}

// BuildExternalRepo validates a Document into an ExternalRepo.
func BuildExternalRepo(d Document) (*ExternalRepo, error) {
	e := &ExternalRepo{
		prov: provenanceOf(d),
		name: d.Name,
		URL:  stringField(d.Fields, "url"),
	}
	if e.name == "" {
		return nil, errors.NewValidationError("external-repo document missing name", nil)
	}
	if e.URL == "" {
		return nil, errors.NewValidationError("external-repo "+e.name+" requires url", nil)
	}
	return e, nil
}

func (e *ExternalRepo) Key() key.Key             { return key.New(key.ExternalRepo, e.name) }
func (e *ExternalRepo) Provenance() Provenance   { return e.prov }
func (e *ExternalRepo) CanSplit() bool           { return false }
func (e *ExternalRepo) DependencyKeys() []key.Key { return nil }
func (e *ExternalRepo) Split() (Object, error) {
	return nil, errors.NewInternalError("external-repo "+e.name+" is not splittable", nil)
}

func (e *ExternalRepo) NewChangeReport(r Resolver) change.Report {
	return &externalRepoReport{Base: change.NewBase(e.Key()), repo: e, resolver: r}
}

type externalRepoReport struct {
	change.Base
	repo     *ExternalRepo
	resolver Resolver
	getCall  *multicall.VirtualCall
}

func (r *externalRepoReport) Read(_ context.Context, session *multicall.Session) (change.FollowUp, error) {
	r.SetState(change.StateReadPending)
	session.Associate(r.repo.Key())
	r.getCall = session.Call(hub.MethodGetExternalRepo, []any{r.repo.name}, nil)
	return nil, nil
}

func (r *externalRepoReport) Compare() error {
	var changes []change.Change
	if r.getCall.Err() != nil || r.getCall.Value() == nil {
		changes = append(changes, change.Change{
			Kind: change.KindCreate, Subject: r.repo.name,
			Summary: fmt.Sprintf("create external-repo %s", r.repo.name),
		})
	} else if m, ok := r.getCall.Value().(map[string]any); ok {
		if stringField(m, "url") != r.repo.URL {
			changes = append(changes, change.Change{
				Kind: change.KindUpdate, Subject: r.repo.name,
				Summary: fmt.Sprintf("editExternalRepo %s url", r.repo.name),
			})
		}
	}
	r.SetChanges(change.SortChanges(changes))
	r.SetState(change.StateCompared)
	return nil
}

func (r *externalRepoReport) Apply(_ context.Context, session *multicall.Session) error {
	r.SetState(change.StateApplied)
	session.Associate(r.repo.Key())
	for _, c := range r.Changes() {
		switch c.Kind {
		case change.KindCreate:
			session.Call(hub.MethodCreateExternalRepo, []any{r.repo.name, r.repo.URL}, nil)
		case change.KindUpdate:
			session.Call(hub.MethodEditExternalRepo, []any{r.repo.name}, map[string]any{"url": r.repo.URL})
		}
	}
	return nil
}
