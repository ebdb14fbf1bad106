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

// ContentGenerator models a Koji content generator registration:
// non-splittable. Users is the set of accounts granted cg_import
// access, diffed the same way Group diffs membership.
type ContentGenerator struct {
	prov       Provenance
	name       string
	Users      []string
	ExactUsers bool
}

// BuildContentGenerator validates a Document into a ContentGenerator.
func BuildContentGenerator(d Document) (*ContentGenerator, error) {
	c := &ContentGenerator{
		prov:       provenanceOf(d),
		name:       d.Name,
		Users:      stringListField(d.Fields, "users"),
		ExactUsers: boolField(d.Fields, "exact-users"),
	}
	if c.name == "" {
		return nil, errors.NewValidationError("content-generator document missing name", nil)
	}
	return c, nil
}

func (c *ContentGenerator) Key() key.Key             { return key.New(key.ContentGenerator, c.name) }
func (c *ContentGenerator) Provenance() Provenance   { return c.prov }
func (c *ContentGenerator) CanSplit() bool           { return false }
func (c *ContentGenerator) DependencyKeys() []key.Key {
	return dependencyKeysFor(key.User, c.Users)
}
func (c *ContentGenerator) Split() (Object, error) {
	return nil, errors.NewInternalError("content-generator "+c.name+" is not splittable", nil)
}

func (c *ContentGenerator) NewChangeReport(r Resolver) change.Report {
	return &contentGeneratorReport{Base: change.NewBase(c.Key()), cg: c, resolver: r}
}

type contentGeneratorReport struct {
	change.Base
	cg       *ContentGenerator
	resolver Resolver
	listCall *multicall.VirtualCall
	exists   bool
}

func (r *contentGeneratorReport) Read(_ context.Context, session *multicall.Session) (change.FollowUp, error) {
	r.SetState(change.StateReadPending)
	session.Associate(r.cg.Key())
	r.listCall = session.Call(hub.MethodListCGs, nil, nil)
	return nil, nil
}

func (r *contentGeneratorReport) Compare() error {
	var changes []change.Change
	m, _ := r.listCall.Value().(map[string]any)
	if m != nil {
		_, r.exists = m[r.cg.name]
	}
	if !r.exists {
		changes = append(changes, change.Change{
			Kind: change.KindCreate, Subject: r.cg.name,
			Summary: fmt.Sprintf("grantCGAccess %s create=True then revoke", r.cg.name),
		})
	}

	remoteUsers := cgUserSet(r.listCall.Value(), r.cg.name)
	wantUsers := toSet(r.cg.Users)
	for _, u := range r.cg.Users {
		if !remoteUsers[u] {
			userKey := key.New(key.User, u)
			changes = append(changes, change.Change{
				Kind: change.KindAdd, Subject: u,
				Summary: fmt.Sprintf("grantCGAccess %s %s", u, r.cg.name),
				Skip:    func() bool { return isPhantom(r.resolver, userKey) },
			})
		}
	}
	if r.cg.ExactUsers {
		for u := range remoteUsers {
			if !wantUsers[u] {
				changes = append(changes, change.Change{
					Kind: change.KindRemove, Subject: u,
					Summary: fmt.Sprintf("revokeCGAccess %s %s", u, r.cg.name),
				})
			}
		}
	}
	r.SetChanges(change.SortChanges(changes))
	r.SetState(change.StateCompared)
	return nil
}

func (r *contentGeneratorReport) Apply(_ context.Context, session *multicall.Session) error {
	r.SetState(change.StateApplied)
	session.Associate(r.cg.Key())
	for _, c := range r.Changes() {
		if c.Skip != nil && c.Skip() {
			continue
		}
		switch c.Kind {
		case change.KindCreate:
			user, ok := session.CurrentUser()
			if !ok {
				r.RecordApplyError(errors.NewAuthError("creating content-generator "+r.cg.name+" requires an authenticated session", nil))
				continue
			}
			session.Call(hub.MethodGrantCGAccess, []any{user.ID, r.cg.name}, map[string]any{"create": true})
			session.Call(hub.MethodRevokeCGAccess, []any{user.ID, r.cg.name}, nil)
		case change.KindAdd:
			session.Call(hub.MethodGrantCGAccess, []any{c.Subject, r.cg.name}, nil)
		case change.KindRemove:
			session.Call(hub.MethodRevokeCGAccess, []any{c.Subject, r.cg.name}, nil)
		}
	}
	return nil
}

// cgUserSet extracts the members of a named content generator out of
// listCGs's {cgname: {"users": [...]}} mapping.
func cgUserSet(v any, cgName string) map[string]bool {
	out := map[string]bool{}
	m, ok := v.(map[string]any)
	if !ok {
		return out
	}
	entry, ok := m[cgName].(map[string]any)
	if !ok {
		return out
	}
	list, _ := entry["users"].([]any)
	for _, e := range list {
		if s, ok := e.(string); ok {
			out[s] = true
		}
	}
	return out
}
