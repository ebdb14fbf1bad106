// Package resolver implements spec.md section 4.4: key-to-object
// lookup backed by a namespace, synthesizing placeholders for keys the
// namespace doesn't have and tracking which placeholders turn out to
// be discovered-in-hub versus phantom.
package resolver

import (
	"github.com/obriencj/koji-habitude-go/pkg/key"
	"github.com/obriencj/koji-habitude-go/pkg/model"
	"github.com/obriencj/koji-habitude-go/pkg/namespace"
)

// Resolver satisfies model.Resolver: it backs every change report's
// view of its dependency keys.
type Resolver struct {
	ns           *namespace.Namespace
	placeholders map[key.Key]*model.Placeholder
	splitDone    map[key.Key]bool
	remoteIDs    map[key.Key]int
}

// New wraps ns in a fresh Resolver with an empty placeholder table.
func New(ns *namespace.Namespace) *Resolver {
	return &Resolver{
		ns:           ns,
		placeholders: make(map[key.Key]*model.Placeholder),
		splitDone:    make(map[key.Key]bool),
		remoteIDs:    make(map[key.Key]int),
	}
}

// Resolve implements model.Resolver: namespace object if present,
// otherwise a stable placeholder (spec.md section 4.4, "a placeholder
// is created at most once per key").
func (r *Resolver) Resolve(k key.Key) (model.Object, error) {
	if obj, ok := r.ns.Get(k); ok {
		return obj, nil
	}
	if ph, ok := r.placeholders[k]; ok {
		return ph, nil
	}
	ph := model.NewPlaceholder(k)
	r.placeholders[k] = ph
	return ph, nil
}

// ChainResolve transitively resolves every key reachable through
// DependencyKeys starting at k, returning the closed set including k
// itself (spec.md section 4.4).
func (r *Resolver) ChainResolve(k key.Key) (map[key.Key]model.Object, error) {
	out := make(map[key.Key]model.Object)
	var visit func(key.Key) error
	visit = func(cur key.Key) error {
		if _, seen := out[cur]; seen {
			return nil
		}
		obj, err := r.Resolve(cur)
		if err != nil {
			return err
		}
		out[cur] = obj
		for _, dep := range obj.DependencyKeys() {
			if err := visit(dep); err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(k); err != nil {
		return nil, err
	}
	return out, nil
}

// IsPhantom implements model.Resolver.
func (r *Resolver) IsPhantom(k key.Key) bool {
	ph, ok := r.placeholders[k]
	return ok && ph.Existence() == model.ExistencePhantom
}

// SplitDelegated implements model.Resolver.
func (r *Resolver) SplitDelegated(k key.Key) bool {
	return r.splitDone[k]
}

// MarkSplitDelegated implements model.Resolver.
func (r *Resolver) MarkSplitDelegated(k key.Key) {
	r.splitDone[k] = true
}

// RemoteID implements model.Resolver.
func (r *Resolver) RemoteID(k key.Key) (int, bool) {
	id, ok := r.remoteIDs[k]
	return id, ok
}

// SetRemoteID implements model.Resolver.
func (r *Resolver) SetRemoteID(k key.Key, id int) {
	r.remoteIDs[k] = id
}

// Placeholders returns every placeholder synthesized so far. Each
// placeholder's own change report (model.Placeholder.NewChangeReport)
// is what actually transitions its existence flag, during the
// preliminary compare-only pass over Missing() (spec.md section 4.9).
func (r *Resolver) Placeholders() map[key.Key]*model.Placeholder {
	return r.placeholders
}

// Missing returns the keys behind every placeholder still in the
// unchecked state, i.e. referenced but never yet probed against the
// hub (spec.md section 4.9, "PROCESSING": the preliminary compare-only
// pass over the resolver's missing set).
func (r *Resolver) Missing() []key.Key {
	var out []key.Key
	for k, ph := range r.placeholders {
		if ph.Existence() == model.ExistenceUnchecked {
			out = append(out, k)
		}
	}
	return out
}

// Report is the resolver's post-processing snapshot (spec.md section 4.4).
type Report struct {
	Discovered []key.Key
	Phantoms   []key.Key
}

// Snapshot partitions every placeholder into discovered vs phantom sets.
func (r *Resolver) Snapshot() Report {
	var rep Report
	for k, ph := range r.placeholders {
		switch ph.Existence() {
		case model.ExistenceDiscovered:
			rep.Discovered = append(rep.Discovered, k)
		case model.ExistencePhantom:
			rep.Phantoms = append(rep.Phantoms, k)
		}
	}
	return rep
}

// Clear empties the placeholder table, split-delegation set, and
// remote-id cache (spec.md section 5, "a clear() is available to
// reset it, but the normal pipeline does not use it mid-run").
func (r *Resolver) Clear() {
	r.placeholders = make(map[key.Key]*model.Placeholder)
	r.splitDone = make(map[key.Key]bool)
	r.remoteIDs = make(map[key.Key]int)
}
