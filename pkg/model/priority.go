package model

import (
	"sort"
	"strconv"

	"github.com/obriencj/koji-habitude-go/pkg/errors"
)

// PriorityRef is one entry of a priority-keyed child list (tag
// inheritance, tag external-repo links; spec.md section 4.1).
type PriorityRef struct {
	Name     string
	Priority int
}

// normalizePriorities assigns priorities to bare-string entries and
// rejects duplicate explicit priorities (spec.md section 4.1,
// "Ordering and tie-breaks for child lists with priority"). raw is the
// YAML-decoded list, where each entry is either a bare string or a
// map {name: ..., priority: ...}; a map without a priority is treated
// like a bare string.
func normalizePriorities(raw []any, kind string) ([]PriorityRef, error) {
	var explicit []PriorityRef
	var bare []string
	order := make([]any, len(raw)) // remembers interleaving: either *PriorityRef or string
	seen := map[int]string{}

	for i, item := range raw {
		switch v := item.(type) {
		case string:
			order[i] = v
			bare = append(bare, v)
		case map[string]any:
			name, _ := v["name"].(string)
			prio, ok := floatField(v, "priority")
			if !ok {
				order[i] = name
				bare = append(bare, name)
				continue
			}
			p := int(prio)
			if owner, dup := seen[p]; dup {
				return nil, errors.NewValidationError(
					"duplicate priority "+strconv.Itoa(p)+" between "+owner+" and "+name+" in "+kind, nil)
			}
			seen[p] = name
			ref := PriorityRef{Name: name, Priority: p}
			explicit = append(explicit, ref)
			order[i] = &ref
		}
	}

	maxExplicit := -10
	for _, e := range explicit {
		if e.Priority > maxExplicit {
			maxExplicit = e.Priority
		}
	}

	next := maxExplicit + 10
	if len(explicit) == 0 {
		next = 0
	}
	out := make([]PriorityRef, 0, len(raw))
	for _, slot := range order {
		switch v := slot.(type) {
		case *PriorityRef:
			out = append(out, *v)
		case string:
			out = append(out, PriorityRef{Name: v, Priority: next})
			next += 10
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}
