package metapath

import (
	"fmt"
	"net/url"

	"github.com/metaschema-go/metaschema/internal/metapath/item"
)

// testNode is a minimal in-memory node tree for evaluator tests
type testNode struct {
	item.NodeBase
	kind     item.NodeKind
	name     string
	parent   *testNode
	flags    []*testNode
	children []*testNode
	value    item.AtomicItem
}

func document(root *testNode) *testNode {
	doc := &testNode{kind: item.DocumentNode}
	doc.add(root)
	return doc
}

func assembly(name string) *testNode {
	return &testNode{kind: item.AssemblyNode, name: name}
}

func field(name string, value item.AtomicItem) *testNode {
	return &testNode{kind: item.FieldNode, name: name, value: value}
}

func (n *testNode) flag(name string, value item.AtomicItem) *testNode {
	n.flags = append(n.flags, &testNode{kind: item.FlagNode, name: name, value: value, parent: n})
	return n
}

func (n *testNode) add(children ...*testNode) *testNode {
	for _, child := range children {
		child.parent = n
		n.children = append(n.children, child)
	}
	return n
}

func (n *testNode) NodeKind() item.NodeKind { return n.kind }
func (n *testNode) Name() string            { return n.name }

func (n *testNode) ParentItem() item.Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *testNode) FlagItems() []item.Node {
	return toNodes(n.flags)
}

func (n *testNode) FlagItem(name string) item.Node {
	for _, f := range n.flags {
		if f.name == name {
			return f
		}
	}
	return nil
}

func (n *testNode) ModelItems() []item.Node {
	return toNodes(n.children)
}

func (n *testNode) ModelItemsNamed(name string) []item.Node {
	var result []item.Node
	for _, c := range n.children {
		if c.name == name {
			result = append(result, c)
		}
	}
	return result
}

func (n *testNode) Atomize() (item.AtomicItem, error) {
	if n.value == nil {
		return nil, fmt.Errorf("%s: %w", n.Path(), item.ErrNoValue)
	}
	return n.value, nil
}

func (n *testNode) BaseURI() *url.URL { return nil }

func (n *testNode) Path() string {
	if n.parent == nil {
		return ""
	}
	prefix := "/"
	if n.kind == item.FlagNode {
		prefix = "/@"
	}
	return n.parent.Path() + prefix + n.name
}

func toNodes(nodes []*testNode) []item.Node {
	result := make([]item.Node, len(nodes))
	for i, n := range nodes {
		result[i] = n
	}
	return result
}

func text(s string) item.AtomicItem {
	return item.NewString(s)
}

// catalogTree builds
//
//	catalog @id=cat
//	  group @id=g1
//	    control @id=ac-1 (title Access)
//	    control @id=ac-2 (title Audit)
//	  group @id=g2
//	    control @id=cm-1 (title Config, weight 3)
func catalogTree() *testNode {
	control := func(id, title string) *testNode {
		return assembly("control").flag("id", text(id)).add(field("title", text(title)))
	}
	cm1 := control("cm-1", "Config").add(field("weight", item.NewInteger(3)))

	catalog := assembly("catalog").flag("id", text("cat")).add(
		assembly("group").flag("id", text("g1")).add(control("ac-1", "Access"), control("ac-2", "Audit")),
		assembly("group").flag("id", text("g2")).add(cm1),
	)
	return document(catalog)
}
