package metapath

import (
	"slices"

	"github.com/metaschema-go/metaschema/internal/metapath/item"
)

// documentOrder sorts nodes into document order: a node precedes its
// descendants, flags precede model children, and siblings keep their
// declaration order. Nodes of separate trees are grouped by tree, in the
// order each tree is first met.
func documentOrder(nodes []item.Node) []item.Node {
	if len(nodes) < 2 {
		return nodes
	}
	o := &orderer{
		positions: make(map[item.Node]map[item.Node]int),
		roots:     make(map[item.Node]int),
	}
	keys := make(map[item.Node][]int, len(nodes))
	for _, node := range nodes {
		keys[node] = o.key(node)
	}

	sorted := slices.Clone(nodes)
	slices.SortStableFunc(sorted, func(a, b item.Node) int {
		return slices.Compare(keys[a], keys[b])
	})
	return sorted
}

type orderer struct {
	// positions maps a parent to the document position of each child
	positions map[item.Node]map[item.Node]int
	roots     map[item.Node]int
}

// key returns the positions along the path from the root to node, led by
// the index of its tree
func (o *orderer) key(node item.Node) []int {
	var reversed []int
	current := node
	for {
		parent := current.ParentItem()
		if parent == nil {
			root, ok := o.roots[current]
			if !ok {
				root = len(o.roots)
				o.roots[current] = root
			}
			reversed = append(reversed, root)
			break
		}
		reversed = append(reversed, o.position(parent, current))
		current = parent
	}
	slices.Reverse(reversed)
	return reversed
}

func (o *orderer) position(parent, child item.Node) int {
	positions, ok := o.positions[parent]
	if !ok {
		flags := parent.FlagItems()
		children := parent.ModelItems()
		positions = make(map[item.Node]int, len(flags)+len(children))
		for i, flag := range flags {
			positions[flag] = i
		}
		for i, c := range children {
			positions[c] = len(flags) + i
		}
		o.positions[parent] = positions
	}
	if p, ok := positions[child]; ok {
		return p
	}
	return len(positions)
}
