package calc

import (
	"sort"

	"github.com/CyberismoCom/cyberismo-engine/internal/resource"
)

// ResultNode is one node of the typed tree a query result is parsed into
// (spec §4.5 "Parser for Clingo answers converts predicates into a tree").
type ResultNode struct {
	ID       string
	Fields   map[string]any
	Children []*ResultNode
}

// FieldTypeResolver looks up the declared data type for a field key, used to
// coerce field/3 facts per §8's table. The card type is not an argument: a
// resolver is built for one card type ahead of time. Commands wire this to
// the resource cache; tests can supply a static map.
type FieldTypeResolver func(fieldKey string) resource.DataType

// ParseTree builds a forest of ResultNodes from an answer set's atoms.
// `parent(Child, Parent)` facts establish the tree shape; `field(Node, Key,
// Value)` facts set Fields[Key] via resolve; any other fact with at least
// one argument creates a node for its first argument, and a two-argument
// fact also records its second argument as a scalar attribute keyed by the
// predicate name. Facts of other arities carry no attribute.
func ParseTree(set AnswerSet, resolve FieldTypeResolver) []*ResultNode {
	nodes := make(map[string]*ResultNode)
	parents := make(map[string]string)

	get := func(id string) *ResultNode {
		if n, ok := nodes[id]; ok {
			return n
		}
		n := &ResultNode{ID: id, Fields: map[string]any{}}
		nodes[id] = n
		return n
	}

	for _, atom := range set.Atoms {
		switch {
		case atom.Name == "parent" && len(atom.Args) == 2:
			child, parent := atom.Args[0], atom.Args[1]
			get(child)
			get(parent)
			parents[child] = parent
		case atom.Name == "field" && len(atom.Args) == 3:
			node := get(atom.Args[0])
			key, raw := atom.Args[1], atom.Args[2]
			var dt resource.DataType
			if resolve != nil {
				dt = resolve(key)
			}
			if dt == "" {
				dt = resource.DataTypeShortText
			}
			node.Fields[key] = Coerce(dt, raw)
		case len(atom.Args) >= 1:
			node := get(atom.Args[0])
			if len(atom.Args) == 2 {
				node.Fields[atom.Name] = atom.Args[1]
			}
		}
	}

	var roots []*ResultNode
	for id, n := range nodes {
		if parentID, ok := parents[id]; ok && parentID != "ROOT" {
			if p, ok := nodes[parentID]; ok {
				p.Children = append(p.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}

	sort.Slice(roots, func(i, j int) bool { return roots[i].ID < roots[j].ID })
	for _, n := range nodes {
		sort.Slice(n.Children, func(i, j int) bool { return n.Children[i].ID < n.Children[j].ID })
	}
	return roots
}
