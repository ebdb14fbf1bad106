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

// Group models a Koji permission group: a named set of member users
// granted a set of permissions (spec.md section 4.1).
type Group struct {
	prov             Provenance
	name             string
	Members          []string
	Permissions      []string
	ExactUsers       bool
	ExactPermissions bool
}

// BuildGroup validates a Document into a Group.
func BuildGroup(d Document) (*Group, error) {
	g := &Group{
		prov:             provenanceOf(d),
		name:             d.Name,
		Members:          stringListField(d.Fields, "members"),
		Permissions:      stringListField(d.Fields, "permissions"),
		ExactUsers:       boolField(d.Fields, "exact-users"),
		ExactPermissions: boolField(d.Fields, "exact-permissions"),
	}
	if g.name == "" {
		return nil, errors.NewValidationError("group document missing name", nil)
	}
	return g, nil
}

func (g *Group) Key() key.Key           { return key.New(key.Group, g.name) }
func (g *Group) Provenance() Provenance { return g.prov }
func (g *Group) CanSplit() bool         { return true }
func (g *Group) Split() (Object, error) { return &splitObject{k: g.Key()}, nil }

func (g *Group) DependencyKeys() []key.Key {
	out := dependencyKeysFor(key.User, g.Members)
	out = append(out, dependencyKeysFor(key.Permission, g.Permissions)...)
	return out
}

func (g *Group) NewChangeReport(r Resolver) change.Report {
	return &groupReport{Base: change.NewBase(g.Key()), group: g, resolver: r}
}

type groupReport struct {
	change.Base
	group     *Group
	resolver  Resolver
	getCall   *multicall.VirtualCall
	membCall  *multicall.VirtualCall
	permsCall *multicall.VirtualCall
}

func (r *groupReport) Read(_ context.Context, session *multicall.Session) (change.FollowUp, error) {
	r.SetState(change.StateReadPending)
	session.Associate(r.group.Key())
	r.getCall = session.Call(hub.MethodGetUser, []any{r.group.name}, nil)
	r.membCall = session.Call(hub.MethodGetGroupMembers, []any{r.group.name}, nil)
	r.permsCall = session.Call(hub.MethodGetUserPerms, []any{r.group.name}, nil)
	return nil, nil
}

func (r *groupReport) Compare() error {
	var changes []change.Change
	if r.getCall.Err() != nil || r.getCall.Value() == nil {
		changes = append(changes, change.Change{
			Kind: change.KindCreate, Subject: r.group.name,
			Summary: fmt.Sprintf("create group %s", r.group.name),
		})
	}

	remoteMembers := memberNameSet(r.membCall.Value())
	wantMembers := toSet(r.group.Members)
	for _, m := range r.group.Members {
		if !remoteMembers[m] {
			userKey := key.New(key.User, m)
			changes = append(changes, change.Change{
				Kind: change.KindAdd, Subject: m, Payload: "member",
				Summary: fmt.Sprintf("addGroupMember %s %s", r.group.name, m),
				Skip:    func() bool { return isPhantom(r.resolver, userKey) },
			})
		}
	}
	if r.group.ExactUsers {
		for m := range remoteMembers {
			if !wantMembers[m] {
				changes = append(changes, change.Change{
					Kind: change.KindRemove, Subject: m, Payload: "member",
					Summary: fmt.Sprintf("dropGroupMember %s %s", r.group.name, m),
				})
			}
		}
	}

	remotePerms := stringSet(r.permsCall.Value())
	wantPerms := toSet(r.group.Permissions)
	for _, p := range r.group.Permissions {
		if !remotePerms[p] {
			permKey := key.New(key.Permission, p)
			changes = append(changes, change.Change{
				Kind: change.KindAdd, Subject: p, Payload: "permission",
				Summary: fmt.Sprintf("grantPermission %s %s", r.group.name, p),
				Skip:    func() bool { return isPhantom(r.resolver, permKey) },
			})
		}
	}
	if r.group.ExactPermissions {
		for p := range remotePerms {
			if !wantPerms[p] {
				changes = append(changes, change.Change{
					Kind: change.KindRemove, Subject: p, Payload: "permission",
					Summary: fmt.Sprintf("revokePermission %s %s", r.group.name, p),
				})
			}
		}
	}

	r.SetChanges(change.SortChanges(changes))
	r.SetState(change.StateCompared)
	return nil
}

func (r *groupReport) Apply(_ context.Context, session *multicall.Session) error {
	r.SetState(change.StateApplied)
	session.Associate(r.group.Key())
	for _, c := range r.Changes() {
		if c.Skip != nil && c.Skip() {
			continue
		}
		switch c.Kind {
		case change.KindCreate:
			if splitDelegated(r.resolver, r.group.Key()) {
				continue
			}
			session.Call(hub.MethodNewGroup, []any{r.group.name}, nil)
		case change.KindAdd:
			if c.Payload == "permission" {
				session.Call(hub.MethodGrantPermission, []any{r.group.name, c.Subject}, nil)
			} else {
				session.Call(hub.MethodAddGroupMember, []any{r.group.name, c.Subject}, nil)
			}
		case change.KindRemove:
			if c.Payload == "permission" {
				session.Call(hub.MethodRevokePermission, []any{r.group.name, c.Subject}, nil)
			} else {
				session.Call(hub.MethodDropGroupMember, []any{r.group.name, c.Subject}, nil)
			}
		}
	}
	return nil
}

func memberNameSet(v any) map[string]bool {
	out := map[string]bool{}
	list, _ := v.([]any)
	for _, e := range list {
		if m, ok := e.(map[string]any); ok {
			if name := stringField(m, "name"); name != "" {
				out[name] = true
			}
		} else if s, ok := e.(string); ok {
			out[s] = true
		}
	}
	return out
}
