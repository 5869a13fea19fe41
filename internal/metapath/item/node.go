package item

import "net/url"

// NodeKind identifies the variant of a node item
type NodeKind int

const (
	DocumentNode NodeKind = iota
	AssemblyNode
	FieldNode
	FlagNode
)

// String returns the name of the kind
func (k NodeKind) String() string {
	switch k {
	case DocumentNode:
		return "document"
	case AssemblyNode:
		return "assembly"
	case FieldNode:
		return "field"
	case FlagNode:
		return "flag"
	default:
		return "unknown"
	}
}

// NodeBase is embedded by Node implementations outside this package to
// make them items.
type NodeBase struct{}

func (NodeBase) item() {}

// Node is the navigation contract the evaluator needs from the node-item
// tree. Evaluation switches on NodeKind rather than on concrete types.
type Node interface {
	Item
	NodeKind() NodeKind
	// Name is the effective name of the node. Documents have no name.
	Name() string
	// ParentItem returns nil for documents and orphaned nodes.
	ParentItem() Node
	// FlagItems returns the flags of the node in declaration order.
	FlagItems() []Node
	// FlagItem returns the flag with the given name or nil.
	FlagItem(name string) Node
	// ModelItems returns the model children in declaration order, and for a
	// document its root assembly.
	ModelItems() []Node
	// ModelItemsNamed returns the model children with the given name.
	ModelItemsNamed(name string) []Node
	// Atomize returns the typed value of the node.
	Atomize() (AtomicItem, error)
	BaseURI() *url.URL
	// Path returns a human-readable location for the node.
	Path() string
}
