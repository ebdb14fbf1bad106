package model

import (
	"context"
	"fmt"

	"github.com/obriencj/koji-habitude-go/pkg/change"
	"github.com/obriencj/koji-habitude-go/pkg/hub"
	"github.com/obriencj/koji-habitude-go/pkg/key"
	"github.com/obriencj/koji-habitude-go/pkg/multicall"
)

// splitObject is the identity-only node the solver synthesizes when it
// splits a Splittable object to break a cycle (spec.md section 4.5,
// section 9 "Split as a structural operation, not a flag"). It is a
// distinct Object, never a mutation of the original.
type splitObject struct {
	k key.Key
}

func (s *splitObject) Key() key.Key                { return s.k }
func (s *splitObject) DependencyKeys() []key.Key    { return nil }
func (s *splitObject) CanSplit() bool               { return false }
func (s *splitObject) IsSplitForm() bool            { return true }
func (s *splitObject) Provenance() Provenance       { return Provenance{} }
func (s *splitObject) Split() (Object, error) {
	return nil, fmt.Errorf("split object %s cannot be split again", s.k)
}

func (s *splitObject) NewChangeReport(r Resolver) change.Report {
	return &splitReport{Base: change.NewBase(s.k), k: s.k, resolver: r}
}

// splitReport issues just the identity-creating hub call for a split
// object: createTag/newGroup/createUser/createHost/createChannel with
// no attributes beyond the name. Non-splittable kinds never reach here
// (the solver never splits them).
type splitReport struct {
	change.Base
	k        key.Key
	resolver Resolver
	getCall  *multicall.VirtualCall
}

func splitCreateMethod(typeTag string) (string, string) {
	switch typeTag {
	case key.Tag:
		return hub.MethodGetTag, hub.MethodCreateTag
	case key.User:
		return hub.MethodGetUser, hub.MethodCreateUser
	case key.Group:
		return hub.MethodGetUser, hub.MethodNewGroup
	case key.Host:
		return hub.MethodGetHost, hub.MethodCreateHost
	case key.Channel:
		return hub.MethodGetChannel, hub.MethodCreateChannel
	default:
		return "", ""
	}
}

func (r *splitReport) Read(_ context.Context, session *multicall.Session) (change.FollowUp, error) {
	r.SetState(change.StateReadPending)
	getMethod, _ := splitCreateMethod(r.k.TypeTag)
	session.Associate(r.k)
	r.getCall = session.Call(getMethod, []any{r.k.Name}, nil)
	return nil, nil
}

func (r *splitReport) Compare() error {
	var changes []change.Change
	if r.getCall.Err() != nil || r.getCall.Value() == nil {
		changes = append(changes, change.Change{
			Kind:    change.KindCreate,
			Subject: r.k.Name,
			Summary: fmt.Sprintf("create identity for %s (split)", r.k),
		})
	} else if m, ok := r.getCall.Value().(map[string]any); ok {
		if id, ok := floatField(m, "id"); ok {
			r.resolver.SetRemoteID(r.k, int(id))
		}
	}
	r.SetChanges(changes)
	r.SetState(change.StateCompared)
	return nil
}

func (r *splitReport) Apply(_ context.Context, session *multicall.Session) error {
	r.SetState(change.StateApplied)
	if len(r.Changes()) == 0 {
		return nil
	}
	getMethod, createMethod := splitCreateMethod(r.k.TypeTag)
	session.Associate(r.k)
	r.resolver.MarkSplitDelegated(r.k)
	session.Call(createMethod, []any{r.k.Name}, nil)
	k := r.k
	session.Promise(getMethod, []any{r.k.Name}, nil, func(res hub.Result) {
		if m, ok := res.Value.(map[string]any); ok {
			if id, ok := floatField(m, "id"); ok {
				r.resolver.SetRemoteID(k, int(id))
			}
		}
	})
	return nil
}

// isPhantom is a small adapter so per-kind Skip closures read naturally.
func isPhantom(r Resolver, k key.Key) bool {
	if r == nil {
		return false
	}
	return r.IsPhantom(k)
}

// splitDelegated reports whether k's identity creation was already
// issued by an earlier split form this run.
func splitDelegated(r Resolver, k key.Key) bool {
	if r == nil {
		return false
	}
	return r.SplitDelegated(k)
}

// isAuthored reports whether k resolves to a real declared object rather
// than a placeholder standing in for an undeclared reference. Used to
// break host/channel membership ties (spec.md section 8 scenario 4): both
// kinds diff the same edge against the hub, so whichever side's
// counterpart is authored-and-in-scope owns the addHostToChannel call,
// and the other side skips it to avoid issuing it twice.
func isAuthored(r Resolver, k key.Key) bool {
	if r == nil {
		return false
	}
	obj, err := r.Resolve(k)
	if err != nil || obj == nil {
		return false
	}
	_, isPlaceholder := obj.(*Placeholder)
	return !isPlaceholder
}

// resolvedID looks up the cached numeric hub id for k, falling back to
// 0 when unknown (e.g. the dependency is a phantom never created).
func resolvedID(r Resolver, k key.Key) int {
	if r == nil {
		return 0
	}
	id, _ := r.RemoteID(k)
	return id
}
