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

// User models a Koji user account (spec.md section 4.1).
type User struct {
	prov             Provenance
	name             string
	Groups           []string
	Permissions      []string
	ExactGroups      bool
	ExactPermissions bool
	Enabled          bool
}

// BuildUser validates a Document into a User.
func BuildUser(d Document) (*User, error) {
	u := &User{
		prov:             provenanceOf(d),
		name:             d.Name,
		Groups:           stringListField(d.Fields, "groups"),
		Permissions:      stringListField(d.Fields, "permissions"),
		ExactGroups:      boolField(d.Fields, "exact-groups"),
		ExactPermissions: boolField(d.Fields, "exact-permissions"),
		Enabled:          !boolField(d.Fields, "disabled"),
	}
	if u.name == "" {
		return nil, errors.NewValidationError("user document missing name", nil)
	}
	return u, nil
}

func (u *User) Key() key.Key           { return key.New(key.User, u.name) }
func (u *User) Provenance() Provenance { return u.prov }
func (u *User) CanSplit() bool         { return true }
func (u *User) Split() (Object, error) { return &splitObject{k: u.Key()}, nil }

func (u *User) DependencyKeys() []key.Key {
	out := dependencyKeysFor(key.Group, u.Groups)
	out = append(out, dependencyKeysFor(key.Permission, u.Permissions)...)
	return out
}

func (u *User) NewChangeReport(r Resolver) change.Report {
	return &userReport{Base: change.NewBase(u.Key()), user: u, resolver: r}
}

type userReport struct {
	change.Base
	user         *User
	resolver     Resolver
	getCall      *multicall.VirtualCall
	permsCall    *multicall.VirtualCall
	remoteExists bool
}

func (r *userReport) Read(_ context.Context, session *multicall.Session) (change.FollowUp, error) {
	r.SetState(change.StateReadPending)
	session.Associate(r.user.Key())
	r.getCall = session.Call(hub.MethodGetUser, []any{r.user.name}, nil)
	r.permsCall = session.Call(hub.MethodGetUserPerms, []any{r.user.name}, nil)
	return nil, nil
}

func (r *userReport) Compare() error {
	var changes []change.Change
	if r.getCall.Err() != nil || r.getCall.Value() == nil {
		r.remoteExists = false
		changes = append(changes, change.Change{
			Kind:    change.KindCreate,
			Subject: r.user.name,
			Summary: fmt.Sprintf("create user %s", r.user.name),
		})
	} else {
		r.remoteExists = true
		if m, ok := r.getCall.Value().(map[string]any); ok {
			enabled := !boolField(m, "disabled")
			if enabled != r.user.Enabled {
				changes = append(changes, change.Change{
					Kind:    change.KindModify,
					Subject: "enabled",
					Summary: fmt.Sprintf("%s user %s", enableVerb(r.user.Enabled), r.user.name),
				})
			}
		}
	}

	remotePerms := stringSet(r.permsCall.Value())
	wantPerms := toSet(r.user.Permissions)
	for _, p := range r.user.Permissions {
		if !remotePerms[p] {
			permKey := key.New(key.Permission, p)
			changes = append(changes, change.Change{
				Kind: change.KindAdd, Subject: p,
				Summary: fmt.Sprintf("grantPermission %s %s", r.user.name, p),
				Skip:    func() bool { return isPhantom(r.resolver, permKey) },
			})
		}
	}
	if r.user.ExactPermissions {
		for p := range remotePerms {
			if !wantPerms[p] {
				changes = append(changes, change.Change{
					Kind: change.KindRemove, Subject: p,
					Summary: fmt.Sprintf("revokePermission %s %s", r.user.name, p),
				})
			}
		}
	}

	r.SetChanges(change.SortChanges(changes))
	r.SetState(change.StateCompared)
	return nil
}

func (r *userReport) Apply(_ context.Context, session *multicall.Session) error {
	r.SetState(change.StateApplied)
	session.Associate(r.user.Key())
	for _, c := range r.Changes() {
		if c.Skip != nil && c.Skip() {
			continue
		}
		switch {
		case c.Kind == change.KindCreate:
			if splitDelegated(r.resolver, r.user.Key()) {
				continue
			}
			session.Call(hub.MethodCreateUser, []any{r.user.name}, nil)
		case c.Kind == change.KindModify && c.Subject == "enabled":
			if r.user.Enabled {
				session.Call(hub.MethodEnableUser, []any{r.user.name}, nil)
			} else {
				session.Call(hub.MethodDisableUser, []any{r.user.name}, nil)
			}
		case c.Kind == change.KindAdd:
			session.Call(hub.MethodGrantPermission, []any{r.user.name, c.Subject}, nil)
		case c.Kind == change.KindRemove:
			session.Call(hub.MethodRevokePermission, []any{r.user.name, c.Subject}, nil)
		}
	}
	return nil
}

func enableVerb(enabled bool) string {
	if enabled {
		return "enable"
	}
	return "disable"
}

func stringSet(v any) map[string]bool {
	out := map[string]bool{}
	list, _ := v.([]any)
	for _, e := range list {
		if s, ok := e.(string); ok {
			out[s] = true
		}
	}
	return out
}

func toSet(list []string) map[string]bool {
	out := map[string]bool{}
	for _, s := range list {
		out[s] = true
	}
	return out
}
