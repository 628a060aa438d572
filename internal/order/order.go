// Package order sorts declarations so that each one follows its dependencies.
package order

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/mark3labs/oas2validator/internal/naming"
	"github.com/mark3labs/oas2validator/internal/spec"
)

// Sort returns declaration indices in emission order: dependencies first,
// otherwise in a stable order derived from arena indices. Members of a
// reference cycle are marked Cyclic and emitted together, in index order,
// where the cycle sits in the topological order. A cycle in which some loop
// never passes through a property, item or additional-properties position
// fails with *spec.UnbreakableCycleError.
func Sort(decls []*naming.Declaration) ([]int, error) {
	g := simple.NewDirectedGraph()
	unguarded := simple.NewDirectedGraph()
	for i, d := range decls {
		d.Cyclic = false
		g.AddNode(simple.Node(i))
		unguarded.AddNode(simple.Node(i))
	}

	var selfUnguarded []int
	for i, d := range decls {
		for _, dep := range d.Deps {
			if dep.Index == i {
				d.Cyclic = true
				if !dep.Guarded {
					selfUnguarded = append(selfUnguarded, i)
				}
				continue
			}
			g.SetEdge(simple.Edge{F: simple.Node(dep.Index), T: simple.Node(i)})
			if !dep.Guarded {
				unguarded.SetEdge(simple.Edge{F: simple.Node(dep.Index), T: simple.Node(i)})
			}
		}
	}

	if err := checkBreakable(decls, unguarded, selfUnguarded); err != nil {
		return nil, err
	}

	sorted, err := topo.SortStabilized(g, byID)
	var cycles topo.Unorderable
	if err != nil {
		var ok bool
		if cycles, ok = err.(topo.Unorderable); !ok {
			return nil, err
		}
	}

	out := make([]int, 0, len(decls))
	next := 0
	for _, n := range sorted {
		if n != nil {
			out = append(out, int(n.ID()))
			continue
		}
		members := cycles[next]
		next++
		ids := make([]int, 0, len(members))
		for _, m := range members {
			ids = append(ids, int(m.ID()))
		}
		sort.Ints(ids)
		for _, id := range ids {
			decls[id].Cyclic = true
		}
		out = append(out, ids...)
	}
	return out, nil
}

func checkBreakable(decls []*naming.Declaration, unguarded graph.Directed, self []int) error {
	var bad []int
	for _, scc := range topo.TarjanSCC(unguarded) {
		if len(scc) < 2 {
			continue
		}
		for _, n := range scc {
			bad = append(bad, int(n.ID()))
		}
	}
	bad = append(bad, self...)
	if len(bad) == 0 {
		return nil
	}
	sort.Ints(bad)
	names := make([]string, 0, len(bad))
	for i, id := range bad {
		if i > 0 && bad[i-1] == id {
			continue
		}
		names = append(names, decls[id].Name)
	}
	return &spec.UnbreakableCycleError{Names: names}
}

func byID(nodes []graph.Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
}
