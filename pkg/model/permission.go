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

// Permission models a Koji permission: non-splittable. Koji has no
// dedicated createPermission call; a permission is brought into
// existence by granting it to the current user with create=True and
// immediately revoking it again (spec.md section 6, "Current-user
// requirement"). That requires an authenticated session.
type Permission struct {
	prov        Provenance
	name        string
	Description string
}

// BuildPermission validates a Document into a Permission.
func BuildPermission(d Document) (*Permission, error) {
	p := &Permission{
		prov:        provenanceOf(d),
		name:        d.Name,
		Description: stringField(d.Fields, "description"),
	}
	if p.name == "" {
		return nil, errors.NewValidationError("permission document missing name", nil)
	}
	return p, nil
}

func (p *Permission) Key() key.Key             { return key.New(key.Permission, p.name) }
func (p *Permission) Provenance() Provenance   { return p.prov }
func (p *Permission) CanSplit() bool           { return false }
func (p *Permission) DependencyKeys() []key.Key { return nil }
func (p *Permission) Split() (Object, error) {
	return nil, errors.NewInternalError("permission "+p.name+" is not splittable", nil)
}

func (p *Permission) NewChangeReport(r Resolver) change.Report {
	return &permissionReport{Base: change.NewBase(p.Key()), perm: p, resolver: r}
}

type permissionReport struct {
	change.Base
	perm     *Permission
	resolver Resolver
	allCall  *multicall.VirtualCall
	exists   bool
}

func (r *permissionReport) Read(_ context.Context, session *multicall.Session) (change.FollowUp, error) {
	r.SetState(change.StateReadPending)
	session.Associate(r.perm.Key())
	r.allCall = session.Call(hub.MethodGetAllPerms, nil, nil)
	return nil, nil
}

func (r *permissionReport) Compare() error {
	var changes []change.Change
	list, _ := r.allCall.Value().([]any)
	for _, e := range list {
		if m, ok := e.(map[string]any); ok && stringField(m, "name") == r.perm.name {
			r.exists = true
			if stringField(m, "description") != r.perm.Description {
				changes = append(changes, change.Change{
					Kind: change.KindUpdate, Subject: r.perm.name,
					Summary: fmt.Sprintf("editPermission %s description", r.perm.name),
				})
			}
			break
		}
	}
	if !r.exists {
		changes = append(changes, change.Change{
			Kind: change.KindCreate, Subject: r.perm.name,
			Summary: fmt.Sprintf("grantPermission %s create=True then revoke", r.perm.name),
		})
	}
	r.SetChanges(change.SortChanges(changes))
	r.SetState(change.StateCompared)
	return nil
}

func (r *permissionReport) Apply(_ context.Context, session *multicall.Session) error {
	r.SetState(change.StateApplied)
	session.Associate(r.perm.Key())
	for _, c := range r.Changes() {
		switch c.Kind {
		case change.KindCreate:
			user, ok := session.CurrentUser()
			if !ok {
				r.RecordApplyError(errors.NewAuthError("creating permission "+r.perm.name+" requires an authenticated session", nil))
				continue
			}
			grantKwargs := map[string]any{"create": true}
			if r.perm.Description != "" {
				grantKwargs["description"] = r.perm.Description
			}
			session.Call(hub.MethodGrantPermission, []any{user.ID, r.perm.name}, grantKwargs)
			session.Call(hub.MethodRevokePermission, []any{user.ID, r.perm.name}, nil)
		case change.KindUpdate:
			session.Call(hub.MethodEditPermission, []any{r.perm.name}, map[string]any{"description": r.perm.Description})
		}
	}
	return nil
}
