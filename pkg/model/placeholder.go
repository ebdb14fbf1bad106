package model

import (
	"context"
	"sync/atomic"

	"github.com/obriencj/koji-habitude-go/pkg/change"
	"github.com/obriencj/koji-habitude-go/pkg/errors"
	"github.com/obriencj/koji-habitude-go/pkg/hub"
	"github.com/obriencj/koji-habitude-go/pkg/key"
	"github.com/obriencj/koji-habitude-go/pkg/multicall"
)

// Placeholder is a polymorphic stand-in for a key the resolver was
// asked for but that no authored object declares (spec.md section 3,
// section 9 "Placeholders as polymorphic stand-ins"). It is modeled as
// a tagged variant carrying the type tag it impersonates and an
// existence probe result slot, not a kind-specific subtype, so the
// solver and processor can treat it exactly like a real object.
type Placeholder struct {
	key       key.Key
	existence atomic.Int32
}

// NewPlaceholder constructs an unchecked placeholder for k.
func NewPlaceholder(k key.Key) *Placeholder {
	p := &Placeholder{key: k}
	p.existence.Store(int32(ExistenceUnchecked))
	return p
}

// Key implements Object.
func (p *Placeholder) Key() key.Key { return p.key }

// DependencyKeys implements Object: placeholders have no dependencies.
func (p *Placeholder) DependencyKeys() []key.Key { return nil }

// CanSplit implements Object: placeholders are never splittable.
func (p *Placeholder) CanSplit() bool { return false }

// Split implements Object, always failing.
func (p *Placeholder) Split() (Object, error) {
	return nil, errors.NewInternalError("placeholder "+p.key.String()+" cannot be split", nil)
}

// Provenance implements Object: placeholders carry no file provenance.
func (p *Placeholder) Provenance() Provenance { return Provenance{} }

// Existence returns the tri-state probe result.
func (p *Placeholder) Existence() Existence {
	return Existence(p.existence.Load())
}

// setExistence stores the probe outcome; called by the change report
// once its check_exists call's result is bound.
func (p *Placeholder) setExistence(e Existence) {
	p.existence.Store(int32(e))
}

// NewChangeReport implements Object: a placeholder's report exists only
// to probe existence; compare never yields changes (spec.md section 9).
func (p *Placeholder) NewChangeReport(_ Resolver) change.Report {
	return &placeholderReport{Base: change.NewBase(p.key), placeholder: p}
}

type placeholderReport struct {
	change.Base
	placeholder *Placeholder
	call        *multicall.VirtualCall
}

func (r *placeholderReport) Read(_ context.Context, session *multicall.Session) (change.FollowUp, error) {
	r.SetState(change.StateReadPending)
	method, args := checkExistsCall(r.placeholder.key)
	r.call = session.Call(method, args, nil)
	return nil, nil
}

func (r *placeholderReport) Compare() error {
	if r.call.Err() != nil || !probeFound(r.placeholder.key, r.call.Value()) {
		r.placeholder.setExistence(ExistencePhantom)
	} else {
		r.placeholder.setExistence(ExistenceDiscovered)
	}
	r.SetState(change.StateCompared)
	r.SetChanges(nil)
	return nil
}

// probeFound interprets a checkExistsCall result for k's kind. Most probes
// (getTag, getUser, getHost, ...) return nil when the name doesn't exist
// and a record otherwise. The list-returning probes (getAllPerms,
// getArchiveTypes, listBTypes) always return a non-nil list regardless of
// whether k's name is in it, so existence requires filtering that list by
// name rather than a bare nil check (original_source/koji_habitude/models/
// permission.py's filter_for_perm). listCGs returns a name-keyed map
// instead of a list, so it is filtered by key membership.
func probeFound(k key.Key, v any) bool {
	switch k.TypeTag {
	case key.Permission, key.ArchiveType, key.BuildType:
		return nameInList(v, k.Name)
	case key.ContentGenerator:
		m, ok := v.(map[string]any)
		if !ok {
			return false
		}
		_, found := m[k.Name]
		return found
	default:
		return v != nil
	}
}

func (r *placeholderReport) Apply(_ context.Context, _ *multicall.Session) error {
	// Placeholders never apply changes; compare already determined
	// existence and skip-predicates on real changes consult it.
	return nil
}

// checkExistsCall returns the hub method + args used to probe whether a
// key exists remotely, per kind (spec.md section 4.1, "check_exists").
func checkExistsCall(k key.Key) (string, []any) {
	switch k.TypeTag {
	case key.Tag:
		return hub.MethodGetTag, []any{k.Name}
	case key.Target:
		return hub.MethodGetBuildTarget, []any{k.Name}
	case key.User:
		return hub.MethodGetUser, []any{k.Name}
	case key.Group:
		return hub.MethodGetUser, []any{k.Name}
	case key.Host:
		return hub.MethodGetHost, []any{k.Name}
	case key.Channel:
		return hub.MethodGetChannel, []any{k.Name}
	case key.ExternalRepo:
		return hub.MethodGetExternalRepo, []any{k.Name}
	case key.Permission:
		return hub.MethodGetAllPerms, nil
	case key.ContentGenerator:
		return hub.MethodListCGs, nil
	case key.ArchiveType:
		return hub.MethodGetArchiveTypes, nil
	case key.BuildType:
		return hub.MethodListBTypes, nil
	default:
		return hub.MethodGetTag, []any{k.Name}
	}
}
