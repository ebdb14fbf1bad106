package model

import (
	"github.com/obriencj/koji-habitude-go/pkg/change"
	"github.com/obriencj/koji-habitude-go/pkg/key"
)

// Resolver is the narrow view of pkg/resolver.Resolver that model kinds
// need when building a change.Report: the ability to resolve a
// dependency key to the Object that key denotes (authored or placeholder).
// Defined here, not in pkg/resolver, to keep pkg/model free of a
// dependency on pkg/resolver (pkg/resolver depends on pkg/model instead).
type Resolver interface {
	Resolve(k key.Key) (Object, error)
	// IsPhantom reports whether k resolved to a placeholder whose
	// existence probe found nothing on either side (spec.md section 4.4).
	// Used by Skip predicates (spec.md section 4.6).
	IsPhantom(k key.Key) bool
	// SplitDelegated reports whether the solver already emitted a split
	// (identity-only) form of k earlier in this run, so a full report
	// must not re-issue the create call (spec.md section 4.6,
	// "Split-awareness").
	SplitDelegated(k key.Key) bool
	// MarkSplitDelegated records that k's identity creation has been
	// delegated to a split form. Called by the split form's own report
	// once its create call is queued.
	MarkSplitDelegated(k key.Key)
	// RemoteID returns the hub's numeric id for k, cached from an
	// earlier getX/createX response, and whether it is known yet.
	RemoteID(k key.Key) (int, bool)
	// SetRemoteID caches the hub's numeric id for k.
	SetRemoteID(k key.Key, id int)
}

// Object is the common shape every hub object kind exposes (spec.md
// section 4.1).
type Object interface {
	Key() key.Key
	// DependencyKeys returns, in deterministic per-kind order, every
	// key this object references semantically.
	DependencyKeys() []key.Key
	// CanSplit reports whether this object's kind supports Split.
	CanSplit() bool
	// Split returns a minimal existence-only copy carrying just the key
	// (spec.md section 3, "Splittable object"). Fails for non-splittable
	// kinds and for placeholders.
	Split() (Object, error)
	// NewChangeReport builds the change.Report this object uses to
	// converge the hub toward its declared state.
	NewChangeReport(resolver Resolver) change.Report
	// Provenance returns file/line/trace metadata, zero-valued for
	// placeholders (spec.md section 3).
	Provenance() Provenance
}

// Existence is the tri-state flag a Placeholder's probe populates
// (spec.md section 3, "Placeholder (missing) object").
type Existence int

const (
	ExistenceUnchecked Existence = iota
	ExistenceDiscovered
	ExistencePhantom
)

// Splittable is satisfied by the split form that Split returns, whose
// IsSplitForm reports true; the authored kinds do not implement it. The
// solver does not use it and calls CanSplit()/Split() on plain Objects.
type Splittable interface {
	Object
	IsSplitForm() bool
}
