// Package solver implements spec.md section 4.5: topological emission
// over the resolver's reachable object graph, splitting splittable
// objects to break cycles when plain topological progress stalls.
package solver

import (
	"sort"
	"strconv"

	"github.com/obriencj/koji-habitude-go/pkg/errors"
	"github.com/obriencj/koji-habitude-go/pkg/key"
	"github.com/obriencj/koji-habitude-go/pkg/model"
)

// chainResolver is the narrow view of pkg/resolver.Resolver the solver
// needs, kept as an interface to avoid a dependency cycle.
type chainResolver interface {
	ChainResolve(k key.Key) (map[key.Key]model.Object, error)
}

type node struct {
	key       key.Key
	obj       model.Object
	out       map[key.Key]bool // keys that depend on this node
	inDegree  int              // unresolved (not-yet-emitted) dependency count
	splittable bool
}

// Solve builds the dependency graph reachable from workKeys (an empty
// workKeys gives an empty graph; the workflow passes every authored key
// when none are configured) and returns the emission order:
// objects in an order where every object precedes all objects that
// depend on it, splitting splittable objects as needed to break cycles
// (spec.md section 4.5).
func Solve(r chainResolver, workKeys []key.Key) ([]model.Object, error) {
	nodes, err := buildGraph(r, workKeys)
	if err != nil {
		return nil, err
	}
	return emit(nodes)
}

func buildGraph(r chainResolver, workKeys []key.Key) (map[key.Key]*node, error) {
	nodes := make(map[key.Key]*node)

	ensure := func(k key.Key, obj model.Object) *node {
		n, ok := nodes[k]
		if !ok {
			n = &node{key: k, obj: obj, out: make(map[key.Key]bool), splittable: obj.CanSplit()}
			nodes[k] = n
		}
		return n
	}

	for _, wk := range workKeys {
		closed, err := r.ChainResolve(wk)
		if err != nil {
			return nil, err
		}
		for k, obj := range closed {
			ensure(k, obj)
		}
	}

	for k, n := range nodes {
		for _, dep := range n.obj.DependencyKeys() {
			depNode, ok := nodes[dep]
			if !ok {
				// dep wasn't in the closure passed in (shouldn't happen
				// when workKeys came from ChainResolve, but guard anyway)
				continue
			}
			if !depNode.out[k] {
				depNode.out[k] = true
				n.inDegree++
			}
		}
	}

	return nodes, nil
}

// emit runs the priority-ordered topological emission loop, splitting
// splittable nodes to break cycles (spec.md section 4.5).
func emit(nodes map[key.Key]*node) ([]model.Object, error) {
	var order []model.Object

	for len(nodes) > 0 {
		remaining := make([]*node, 0, len(nodes))
		for _, n := range nodes {
			remaining = append(remaining, n)
		}
		sort.Slice(remaining, func(i, j int) bool {
			a, b := remaining[i], remaining[j]
			if a.inDegree != b.inDegree {
				return a.inDegree < b.inDegree
			}
			if a.splittable != b.splittable {
				// non-splittable ties preferred: false < true
				return !a.splittable
			}
			if len(a.out) != len(b.out) {
				return len(a.out) > len(b.out) // highest fan-out first
			}
			return a.key.String() < b.key.String()
		})

		head := remaining[0]
		switch {
		case head.inDegree == 0:
			order = append(order, head.obj)
			unlink(nodes, head)

		case head.splittable:
			split, err := head.obj.Split()
			if err != nil {
				return nil, err
			}
			order = append(order, split)
			// the split form inherits the original's incoming edges:
			// whatever depended on head is satisfied by the split's
			// identity, so those dependents' in-degree drops now.
			for dependerKey := range head.out {
				if d, ok := nodes[dependerKey]; ok {
					d.inDegree--
				}
			}
			head.out = make(map[key.Key]bool)
			// head keeps its own outgoing edges (what it depends on) and
			// stays in the graph, reachable later once those resolve.
			head.splittable = false

		default:
			return nil, errors.NewCycleError(
				"unbreakable dependency cycle at "+head.key.String()+" (non-splittable, in-degree "+strconv.Itoa(head.inDegree)+")",
				nil,
			)
		}
	}

	return order, nil
}

func unlink(nodes map[key.Key]*node, n *node) {
	delete(nodes, n.key)
	for dependerKey := range n.out {
		if d, ok := nodes[dependerKey]; ok {
			d.inDegree--
		}
	}
}
