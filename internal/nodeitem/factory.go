package nodeitem

import (
	"fmt"
	"net/url"

	"github.com/metaschema-go/metaschema/internal/metapath/item"
	"github.com/metaschema-go/metaschema/internal/model"
)

// Factory creates node-item trees over the definitions of one schema
type Factory struct {
	schema *model.Schema
}

// NewFactory creates a factory for schema
func NewFactory(schema *model.Schema) *Factory {
	return &Factory{schema: schema}
}

// Schema returns the schema the factory builds trees for
func (f *Factory) Schema() *model.Schema { return f.schema }

func (f *Factory) check(def *model.Definition) error {
	if def == nil {
		return &StructuralError{Path: "/", Message: "definition is nil"}
	}
	if def.Schema() != f.schema {
		return &StructuralError{Path: "/" + def.EffectiveName(), Message: fmt.Sprintf("%s belongs to schema %q", def, def.Schema().Name)}
	}
	return nil
}

// NewDefinitionNode creates a definition-shaped tree with one node per
// instance and no values. Root assemblies are wrapped in a document node.
// Recursive definitions end in cycled nodes.
func (f *Factory) NewDefinitionNode(def *model.Definition) (*Node, error) {
	if err := f.check(def); err != nil {
		return nil, err
	}
	if def.IsRoot() {
		doc := &Node{kind: item.DocumentNode, def: def}
		root := newNode(def, nil, doc, def.RootName(), 1)
		doc.setChildren([]*Node{root})
		return doc, nil
	}
	return newNode(def, nil, nil, def.EffectiveName(), 1), nil
}

// NewNode creates an orphaned value-bearing node for def holding value
func (f *Factory) NewNode(def *model.Definition, value any) (*Node, error) {
	if err := f.check(def); err != nil {
		return nil, err
	}
	node := newNode(def, nil, nil, def.EffectiveName(), 1)
	node.valued = true
	node.value, node.hasValue = value, value != nil
	return node, nil
}

// NewDocumentNode creates a value-bearing document for the root assembly
// def. The document value is an object with a single property named after
// the root.
func (f *Factory) NewDocumentNode(def *model.Definition, document any, baseURI *url.URL) (*Node, error) {
	if err := f.check(def); err != nil {
		return nil, err
	}
	if !def.IsRoot() {
		return nil, &StructuralError{Path: "/", Message: fmt.Sprintf("%s is not a root assembly", def)}
	}
	object, ok := document.(map[string]any)
	if !ok {
		return nil, &ValueError{Path: "/", Err: fmt.Errorf("document must be an object: %w", model.ErrInvalidValue)}
	}
	value, ok := object[def.RootName()]
	if !ok || value == nil {
		return nil, &ValueError{Path: "/", Err: fmt.Errorf("missing root %q: %w", def.RootName(), model.ErrInvalidValue)}
	}

	doc := &Node{kind: item.DocumentNode, def: def, baseURI: baseURI, valued: true, value: document, hasValue: true}
	root := newNode(def, nil, doc, def.RootName(), 1)
	root.valued = true
	root.value, root.hasValue = value, true
	doc.setChildren([]*Node{root})
	return doc, nil
}

func newNode(def *model.Definition, inst *model.Instance, parent *Node, name string, position int) *Node {
	node := &Node{
		def:      def,
		instance: inst,
		parent:   parent,
		name:     name,
		position: position,
	}
	switch def.Kind() {
	case model.KindAssembly:
		node.kind = item.AssemblyNode
	case model.KindField:
		node.kind = item.FieldNode
	case model.KindFlag:
		node.kind = item.FlagNode
	}
	if inst != nil {
		node.multiple = inst.IsMultiple()
	}
	return node
}

func (n *Node) setChildren(children []*Node) {
	n.modelOnce.Do(func() { n.model = children })
}

func (n *Node) buildFlags() {
	if n.kind == item.DocumentNode || n.kind == item.FlagNode {
		return
	}
	for _, inst := range n.def.FlagInstances() {
		if !n.valued {
			n.flags = append(n.flags, newNode(inst.Definition(), inst, n, inst.EffectiveName(), 1))
			continue
		}
		value, ok := inst.Value(n.value)
		if !ok {
			continue
		}
		flag := newNode(inst.Definition(), inst, n, inst.EffectiveName(), 1)
		flag.valued = true
		flag.value, flag.hasValue = value, true
		n.flags = append(n.flags, flag)
	}
}

func (n *Node) buildModel() {
	if n.kind != item.AssemblyNode {
		return
	}
	for _, inst := range n.def.ModelInstances() {
		if !n.valued {
			n.model = append(n.model, n.definitionChild(inst))
			continue
		}
		value, _ := inst.Value(n.value)
		values, err := inst.ItemValues(value)
		if err != nil {
			n.addErr(err)
			continue
		}
		for i, v := range values {
			child := newNode(inst.Definition(), inst, n, inst.EffectiveName(), i+1)
			child.valued = true
			child.value, child.hasValue = v, v != nil
			n.model = append(n.model, child)
		}
	}
}

// definitionChild creates the node for inst below n, or a cycled node when
// the instance's assembly definition is already being expanded on the path
// from the root
func (n *Node) definitionChild(inst *model.Instance) *Node {
	def := inst.Definition()
	child := newNode(def, inst, n, inst.EffectiveName(), 1)
	if def.Kind() == model.KindAssembly {
		child.cycledTo = n.ancestorOf(def)
	}
	return child
}
