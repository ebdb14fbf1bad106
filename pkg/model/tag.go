package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/obriencj/koji-habitude-go/pkg/change"
	"github.com/obriencj/koji-habitude-go/pkg/errors"
	"github.com/obriencj/koji-habitude-go/pkg/hub"
	"github.com/obriencj/koji-habitude-go/pkg/key"
	"github.com/obriencj/koji-habitude-go/pkg/multicall"
)

// PackageEntry is one package-owner declaration on a Tag. The hub RPC
// vocabulary fixed by spec.md section 6 has no dedicated call for
// per-package ownership, so Packages participates in DependencyKeys
// (for solver ordering against the owner user) only: the tag report
// neither compares packages against the hub nor issues package calls,
// and ExactPackages has no effect. See DESIGN.md for this Open Question
// resolution.
type PackageEntry struct {
	Name    string
	Owner   string
	Blocked bool
}

// Tag models a Koji tag (spec.md section 4.1).
type Tag struct {
	prov            Provenance
	name            string
	Arches          []string
	MavenSupport    bool
	MavenIncludeAll bool
	Inheritance     []PriorityRef
	ExternalRepos   []PriorityRef
	Packages        []PackageEntry
	ExactPackages   bool
	Extra           map[string]any
}

// BuildTag validates a Document into a Tag (spec.md section 4.1, 9.5
// "schema-driven validation" supplemented per SPEC_FULL.md section C.5).
func BuildTag(d Document) (*Tag, error) {
	t := &Tag{
		prov:            provenanceOf(d),
		name:            d.Name,
		Arches:          stringListField(d.Fields, "arches"),
		MavenSupport:    boolField(d.Fields, "maven-support"),
		MavenIncludeAll: boolField(d.Fields, "maven-include-all"),
		ExactPackages:   boolField(d.Fields, "exact-packages"),
	}
	if raw, ok := d.Fields["inheritance"].([]any); ok {
		refs, err := normalizePriorities(raw, "tag "+t.name+" inheritance")
		if err != nil {
			return nil, err
		}
		t.Inheritance = refs
	}
	if raw, ok := d.Fields["external-repos"].([]any); ok {
		refs, err := normalizePriorities(raw, "tag "+t.name+" external-repos")
		if err != nil {
			return nil, err
		}
		t.ExternalRepos = refs
	}
	if raw, ok := d.Fields["packages"].([]any); ok {
		for _, item := range raw {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			t.Packages = append(t.Packages, PackageEntry{
				Name:    stringField(m, "name"),
				Owner:   stringField(m, "owner"),
				Blocked: boolField(m, "blocked"),
			})
		}
	}
	if extra, ok := d.Fields["extra"].(map[string]any); ok {
		t.Extra = extra
	}
	if t.name == "" {
		return nil, errors.NewValidationError("tag document missing name", nil)
	}
	return t, nil
}

// Key implements Object.
func (t *Tag) Key() key.Key { return key.New(key.Tag, t.name) }

// Provenance implements Object.
func (t *Tag) Provenance() Provenance { return t.prov }

// DependencyKeys implements Object: inheritance parents, then external
// repo links, then package owners, per spec.md section 4.1's table.
func (t *Tag) DependencyKeys() []key.Key {
	var out []key.Key
	for _, p := range t.Inheritance {
		out = append(out, key.New(key.Tag, p.Name))
	}
	for _, r := range t.ExternalRepos {
		out = append(out, key.New(key.ExternalRepo, r.Name))
	}
	for _, pkg := range t.Packages {
		if pkg.Owner != "" {
			out = append(out, key.New(key.User, pkg.Owner))
		}
	}
	return out
}

// CanSplit implements Object.
func (t *Tag) CanSplit() bool { return true }

// Split implements Object: an identity-only tag carrying just the key.
func (t *Tag) Split() (Object, error) {
	return &splitObject{k: t.Key()}, nil
}

// NewChangeReport implements Object.
func (t *Tag) NewChangeReport(r Resolver) change.Report {
	return &tagReport{Base: change.NewBase(t.Key()), tag: t, resolver: r}
}

type tagReport struct {
	change.Base
	tag      *Tag
	resolver Resolver

	getTagCall       *multicall.VirtualCall
	inheritanceCall  *multicall.VirtualCall
	extReposCall     *multicall.VirtualCall
	remote           map[string]any
	remoteExists     bool
}

func (r *tagReport) Read(_ context.Context, session *multicall.Session) (change.FollowUp, error) {
	r.SetState(change.StateReadPending)
	session.Associate(r.tag.Key())
	r.getTagCall = session.Call(hub.MethodGetTag, []any{r.tag.name}, nil)
	r.inheritanceCall = session.Call(hub.MethodGetInheritanceData, []any{r.tag.name}, nil)
	r.extReposCall = session.Call(hub.MethodGetTagExternalRepos, []any{r.tag.name}, nil)
	return nil, nil
}

func (r *tagReport) Compare() error {
	var changes []change.Change

	if r.getTagCall.Err() != nil || r.getTagCall.Value() == nil {
		r.remoteExists = false
		changes = append(changes, change.Change{
			Kind:    change.KindCreate,
			Subject: r.tag.name,
			Summary: fmt.Sprintf("create tag %s", r.tag.name),
		})
	} else {
		r.remoteExists = true
		if m, ok := r.getTagCall.Value().(map[string]any); ok {
			r.remote = m
			if id, ok := floatField(m, "id"); ok {
				r.resolver.SetRemoteID(r.tag.Key(), int(id))
			}
			if !sameArches(m, r.tag.Arches) || remoteMavenSupport(m) != r.tag.MavenSupport {
				changes = append(changes, change.Change{
					Kind:    change.KindUpdate,
					Subject: r.tag.name,
					Summary: fmt.Sprintf("update tag %s attributes", r.tag.name),
				})
			}
		}
	}

	// editTag2 always runs after create/update to converge extra={}
	// and is idempotent; this mirrors the example in spec.md section 8.1.
	changes = append(changes, change.Change{
		Kind:    change.KindModify,
		Subject: r.tag.name,
		Summary: fmt.Sprintf("editTag2 %s", r.tag.name),
	})

	if diff := r.inheritanceDiff(); diff {
		changes = append(changes, change.Change{
			Kind:    change.KindUpdate,
			Subject: "inheritance",
			Summary: fmt.Sprintf("setInheritanceData %s", r.tag.name),
		})
	}

	for _, repo := range r.tag.ExternalRepos {
		repoKey := key.New(key.ExternalRepo, repo.Name)
		changes = append(changes, change.Change{
			Kind:    change.KindAdd,
			Subject: repo.Name,
			Payload: repo,
			Summary: fmt.Sprintf("addExternalRepoToTag %s %s", r.tag.name, repo.Name),
			Skip: func() bool {
				return isPhantom(r.resolver, repoKey)
			},
		})
	}

	r.SetChanges(change.SortChanges(changes))
	r.SetState(change.StateCompared)
	return nil
}

func (r *tagReport) inheritanceDiff() bool {
	remoteList, ok := r.inheritanceCall.Value().([]any)
	if !ok {
		return len(r.tag.Inheritance) > 0
	}
	if len(remoteList) != len(r.tag.Inheritance) {
		return true
	}
	for i, want := range r.tag.Inheritance {
		row, ok := remoteList[i].(map[string]any)
		if !ok {
			return true
		}
		gotPrio, _ := floatField(row, "priority")
		gotName := stringField(row, "name")
		if int(gotPrio) != want.Priority || gotName != want.Name {
			return true
		}
	}
	return false
}

func (r *tagReport) Apply(ctx context.Context, session *multicall.Session) error {
	r.SetState(change.StateApplied)
	session.Associate(r.tag.Key())
	for _, c := range r.Changes() {
		if c.Skip != nil && c.Skip() {
			continue
		}
		switch c.Kind {
		case change.KindCreate:
			if splitDelegated(r.resolver, r.tag.Key()) {
				continue
			}
			session.Call(hub.MethodCreateTag, []any{r.tag.name}, tagKwargs(r.tag))
			name, k := r.tag.name, r.tag.Key()
			session.Promise(hub.MethodGetTag, []any{name}, nil, func(res hub.Result) {
				if m, ok := res.Value.(map[string]any); ok {
					if id, ok := floatField(m, "id"); ok {
						r.resolver.SetRemoteID(k, int(id))
					}
				}
			})
		case change.KindUpdate:
			if c.Subject == "inheritance" {
				session.Call(hub.MethodSetInheritanceData, []any{r.tag.name, inheritanceRows(r.tag, r.resolver)}, nil)
			} else {
				session.Call(hub.MethodEditTag2, []any{r.tag.name}, tagKwargs(r.tag))
			}
		case change.KindModify:
			session.Call(hub.MethodEditTag2, []any{r.tag.name}, map[string]any{"extra": r.tag.Extra})
		case change.KindAdd:
			ref, _ := c.Payload.(PriorityRef)
			session.Call(hub.MethodAddExternalRepoToTag, []any{r.tag.name, ref.Name, ref.Priority}, nil)
		}
	}
	_ = ctx
	return nil
}

func tagKwargs(t *Tag) map[string]any {
	return map[string]any{
		"arches":            strings.Join(t.Arches, " "),
		"maven_support":     t.MavenSupport,
		"maven_include_all": t.MavenIncludeAll,
	}
}

func inheritanceRows(t *Tag, r Resolver) []any {
	rows := make([]any, 0, len(t.Inheritance))
	for _, p := range t.Inheritance {
		rows = append(rows, map[string]any{
			"parent_id": resolvedID(r, key.New(key.Tag, p.Name)),
			"priority":  p.Priority,
		})
	}
	return rows
}

func sameArches(remote map[string]any, want []string) bool {
	got := stringField(remote, "arches")
	return got == strings.Join(want, " ")
}

func remoteMavenSupport(remote map[string]any) bool {
	return boolField(remote, "maven_support")
}
