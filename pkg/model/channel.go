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

// Channel models a Koji builder channel (spec.md section 4.1). The
// channel/host cycle in spec.md section 8 scenario 4 is the canonical
// exercise of this kind's split path.
type Channel struct {
	prov        Provenance
	name        string
	Hosts       []string
	ExactHosts  bool
	Description string
}

// BuildChannel validates a Document into a Channel.
func BuildChannel(d Document) (*Channel, error) {
	c := &Channel{
		prov:        provenanceOf(d),
		name:        d.Name,
		Hosts:       stringListField(d.Fields, "hosts"),
		ExactHosts:  boolField(d.Fields, "exact-hosts"),
		Description: stringField(d.Fields, "description"),
	}
	if c.name == "" {
		return nil, errors.NewValidationError("channel document missing name", nil)
	}
	return c, nil
}

func (c *Channel) Key() key.Key             { return key.New(key.Channel, c.name) }
func (c *Channel) Provenance() Provenance   { return c.prov }
func (c *Channel) CanSplit() bool           { return true }
func (c *Channel) Split() (Object, error)   { return &splitObject{k: c.Key()}, nil }
func (c *Channel) DependencyKeys() []key.Key {
	return dependencyKeysFor(key.Host, c.Hosts)
}

func (c *Channel) NewChangeReport(r Resolver) change.Report {
	return &channelReport{Base: change.NewBase(c.Key()), channel: c, resolver: r}
}

type channelReport struct {
	change.Base
	channel    *Channel
	resolver   Resolver
	getCall    *multicall.VirtualCall
	hostsCall  *multicall.VirtualCall
}

func (r *channelReport) Read(_ context.Context, session *multicall.Session) (change.FollowUp, error) {
	r.SetState(change.StateReadPending)
	session.Associate(r.channel.Key())
	r.getCall = session.Call(hub.MethodGetChannel, []any{r.channel.name}, nil)
	r.hostsCall = session.Call(hub.MethodListHosts, nil, map[string]any{"channelID": r.channel.name})
	return nil, nil
}

func (r *channelReport) Compare() error {
	var changes []change.Change
	if r.getCall.Err() != nil || r.getCall.Value() == nil {
		changes = append(changes, change.Change{
			Kind: change.KindCreate, Subject: r.channel.name,
			Summary: fmt.Sprintf("create channel %s", r.channel.name),
		})
	} else if r.channel.Description != "" {
		changes = append(changes, change.Change{
			Kind: change.KindModify, Subject: "description",
			Summary: fmt.Sprintf("editChannel %s description", r.channel.name),
		})
	}

	remoteHosts := memberNameSet(r.hostsCall.Value())
	wantHosts := toSet(r.channel.Hosts)
	for _, h := range r.channel.Hosts {
		if !remoteHosts[h] {
			hostKey := key.New(key.Host, h)
			changes = append(changes, change.Change{
				Kind: change.KindAdd, Subject: h,
				Summary: fmt.Sprintf("addHostToChannel %s %s", h, r.channel.name),
				Skip:    func() bool { return isPhantom(r.resolver, hostKey) },
			})
		}
	}
	if r.channel.ExactHosts {
		for h := range remoteHosts {
			if !wantHosts[h] {
				changes = append(changes, change.Change{
					Kind: change.KindRemove, Subject: h,
					Summary: fmt.Sprintf("removeHostFromChannel %s %s", h, r.channel.name),
				})
			}
		}
	}

	r.SetChanges(change.SortChanges(changes))
	r.SetState(change.StateCompared)
	return nil
}

func (r *channelReport) Apply(_ context.Context, session *multicall.Session) error {
	r.SetState(change.StateApplied)
	session.Associate(r.channel.Key())
	for _, c := range r.Changes() {
		if c.Skip != nil && c.Skip() {
			continue
		}
		switch c.Kind {
		case change.KindCreate:
			if splitDelegated(r.resolver, r.channel.Key()) {
				continue
			}
			session.Call(hub.MethodCreateChannel, []any{r.channel.name}, nil)
		case change.KindModify:
			session.Call(hub.MethodEditChannel, []any{r.channel.name}, map[string]any{"description": r.channel.Description})
		case change.KindAdd:
			session.Call(hub.MethodAddHostToChannel, []any{c.Subject, r.channel.name}, nil)
		case change.KindRemove:
			session.Call(hub.MethodRemoveHostFromChannel, []any{c.Subject, r.channel.name}, nil)
		}
	}
	return nil
}
