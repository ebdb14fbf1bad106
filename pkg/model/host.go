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

// Host models a Koji builder host (spec.md section 4.1). Channels is
// the host's side of the same membership edge Channel.Hosts tracks;
// either kind may declare it, which is why both sides diff against
// the hub's listHosts/listChannels membership rather than trusting
// only their own document.
type Host struct {
	prov          Provenance
	name          string
	Arches        []string
	Channels      []string
	ExactChannels bool
	Enabled       bool
}

// BuildHost validates a Document into a Host.
func BuildHost(d Document) (*Host, error) {
	h := &Host{
		prov:          provenanceOf(d),
		name:          d.Name,
		Arches:        stringListField(d.Fields, "arches"),
		Channels:      stringListField(d.Fields, "channels"),
		ExactChannels: boolField(d.Fields, "exact-channels"),
		Enabled:       !boolField(d.Fields, "disabled"),
	}
	if h.name == "" {
		return nil, errors.NewValidationError("host document missing name", nil)
	}
	return h, nil
}

func (h *Host) Key() key.Key             { return key.New(key.Host, h.name) }
func (h *Host) Provenance() Provenance   { return h.prov }
func (h *Host) CanSplit() bool           { return true }
func (h *Host) Split() (Object, error)   { return &splitObject{k: h.Key()}, nil }
func (h *Host) DependencyKeys() []key.Key {
	return dependencyKeysFor(key.Channel, h.Channels)
}

func (h *Host) NewChangeReport(r Resolver) change.Report {
	return &hostReport{Base: change.NewBase(h.Key()), host: h, resolver: r}
}

type hostReport struct {
	change.Base
	host         *Host
	resolver     Resolver
	getCall      *multicall.VirtualCall
	channelsCall *multicall.VirtualCall
	remoteExists bool
}

func (r *hostReport) Read(_ context.Context, session *multicall.Session) (change.FollowUp, error) {
	r.SetState(change.StateReadPending)
	session.Associate(r.host.Key())
	r.getCall = session.Call(hub.MethodGetHost, []any{r.host.name}, nil)
	r.channelsCall = session.Call(hub.MethodListChannels, nil, map[string]any{"hostID": r.host.name})
	return nil, nil
}

func (r *hostReport) Compare() error {
	var changes []change.Change
	if r.getCall.Err() != nil || r.getCall.Value() == nil {
		r.remoteExists = false
		changes = append(changes, change.Change{
			Kind: change.KindCreate, Subject: r.host.name,
			Summary: fmt.Sprintf("create host %s", r.host.name),
		})
	} else {
		r.remoteExists = true
		if m, ok := r.getCall.Value().(map[string]any); ok {
			enabled := !boolField(m, "disabled")
			if enabled != r.host.Enabled {
				changes = append(changes, change.Change{
					Kind: change.KindModify, Subject: "enabled",
					Summary: fmt.Sprintf("%s host %s", enableVerb(r.host.Enabled), r.host.name),
				})
			}
			if len(r.host.Arches) > 0 && !sameArches(m, r.host.Arches) {
				changes = append(changes, change.Change{
					Kind: change.KindModify, Subject: "arches",
					Summary: fmt.Sprintf("editHost %s arches", r.host.name),
				})
			}
		}
	}

	remoteChannels := memberNameSet(r.channelsCall.Value())
	wantChannels := toSet(r.host.Channels)
	for _, c := range r.host.Channels {
		if !remoteChannels[c] {
			chKey := key.New(key.Channel, c)
			changes = append(changes, change.Change{
				Kind: change.KindAdd, Subject: c,
				Summary: fmt.Sprintf("addHostToChannel %s %s", r.host.name, c),
				// An authored Channel diffs this same edge and owns the
				// add; skip here to avoid issuing addHostToChannel twice.
				Skip: func() bool { return isPhantom(r.resolver, chKey) || isAuthored(r.resolver, chKey) },
			})
		}
	}
	if r.host.ExactChannels {
		for c := range remoteChannels {
			if !wantChannels[c] {
				changes = append(changes, change.Change{
					Kind: change.KindRemove, Subject: c,
					Summary: fmt.Sprintf("removeHostFromChannel %s %s", r.host.name, c),
				})
			}
		}
	}

	r.SetChanges(change.SortChanges(changes))
	r.SetState(change.StateCompared)
	return nil
}

func (r *hostReport) Apply(_ context.Context, session *multicall.Session) error {
	r.SetState(change.StateApplied)
	session.Associate(r.host.Key())
	for _, c := range r.Changes() {
		if c.Skip != nil && c.Skip() {
			continue
		}
		switch {
		case c.Kind == change.KindCreate:
			if splitDelegated(r.resolver, r.host.Key()) {
				continue
			}
			session.Call(hub.MethodCreateHost, []any{r.host.name, r.host.Arches}, nil)
		case c.Kind == change.KindModify && c.Subject == "enabled":
			if r.host.Enabled {
				session.Call(hub.MethodEnableHost, []any{r.host.name}, nil)
			} else {
				session.Call(hub.MethodDisableHost, []any{r.host.name}, nil)
			}
		case c.Kind == change.KindModify && c.Subject == "arches":
			session.Call(hub.MethodEditHost, []any{r.host.name}, map[string]any{"arches": r.host.Arches})
		case c.Kind == change.KindAdd:
			session.Call(hub.MethodAddHostToChannel, []any{r.host.name, c.Subject}, nil)
		case c.Kind == change.KindRemove:
			session.Call(hub.MethodRemoveHostFromChannel, []any{r.host.name, c.Subject}, nil)
		}
	}
	return nil
}
