package pages

import (
	"errors"
	"fmt"

	"github.com/tsawler/pagecheck/core"
)

// DefaultMaxPages is the leaf limit of a PageTree unless SetMaxPages
// changes it.
const DefaultMaxPages = 100000

// ErrTooManyPages is returned when a tree expands to more leaves than its
// limit. Shared subtrees count once per reference, so a small file can
// describe an enormous tree.
var ErrTooManyPages = errors.New("page tree exceeds page limit")

// NodeKind classifies a page-tree node by its /Type.
type NodeKind int

const (
	NodeUnknown NodeKind = iota
	NodeBranch           // /Type /Pages
	NodeLeaf             // /Type /Page
)

func (k NodeKind) String() string {
	switch k {
	case NodeBranch:
		return "Pages"
	case NodeLeaf:
		return "Page"
	}
	return "Unknown"
}

// KindOf classifies a node dictionary.
func KindOf(dict core.Dict) NodeKind {
	switch t, _ := dict.GetName("Type"); t {
	case "Pages":
		return NodeBranch
	case "Page":
		return NodeLeaf
	}
	return NodeUnknown
}

// Node is one node of the page tree as linked in the file. Only branch
// nodes have Kids. A nil entry in Kids stands for a kid that is null, not
// a dictionary, cannot be resolved, or points back at one of its own
// ancestors. An object reached through several references is built once
// and the same *Node appears under each parent.
type Node struct {
	Kind NodeKind
	Ref  core.IndirectRef // zero for a direct dictionary
	Dict core.Dict
	Kids []*Node
}

// BuildTree resolves the node hierarchy below root. It fails only when
// root itself is not a dictionary.
func BuildTree(root core.Object, resolver ObjectResolver) (*Node, error) {
	ref, _ := root.(core.IndirectRef)
	resolved, err := resolver.Resolve(root)
	if err != nil {
		return nil, fmt.Errorf("resolve page tree root: %w", err)
	}
	dict, ok := resolved.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("page tree root is %v, want dictionary", typeOf(resolved))
	}
	b := treeBuilder{
		resolver: resolver,
		onPath:   make(map[core.IndirectRef]bool),
		built:    make(map[core.IndirectRef]*Node),
	}
	return b.node(ref, dict), nil
}

type treeBuilder struct {
	resolver ObjectResolver
	onPath   map[core.IndirectRef]bool
	built    map[core.IndirectRef]*Node
}

func (b *treeBuilder) node(ref core.IndirectRef, dict core.Dict) *Node {
	n := &Node{Kind: KindOf(dict), Ref: ref, Dict: dict}
	if ref != (core.IndirectRef{}) {
		b.built[ref] = n
	}
	if n.Kind != NodeBranch {
		return n
	}

	if ref != (core.IndirectRef{}) {
		b.onPath[ref] = true
		defer delete(b.onPath, ref)
	}

	kidsObj, err := b.resolver.Resolve(dict.Get("Kids"))
	if err != nil {
		return n
	}
	kids, _ := kidsObj.(core.Array)
	n.Kids = make([]*Node, len(kids))
	for i, kid := range kids {
		kidRef, isRef := kid.(core.IndirectRef)
		if isRef && b.onPath[kidRef] {
			continue
		}
		if shared, ok := b.built[kidRef]; isRef && ok {
			n.Kids[i] = shared
			continue
		}
		resolved, err := b.resolver.Resolve(kid)
		if err != nil {
			continue
		}
		if kidDict, ok := resolved.(core.Dict); ok {
			n.Kids[i] = b.node(kidRef, kidDict)
		}
	}
	return n
}

// CountLeaves counts the leaf kids below n without flattening the tree. A
// shared subtree counts once per reference to it. Missing kids are skipped
// and nodes of unknown type count as zero. More than max leaves is
// ErrTooManyPages.
func (n *Node) CountLeaves(max int) (int, error) {
	memo := make(map[*Node]int)
	var count func(node *Node) int
	count = func(node *Node) int {
		if c, ok := memo[node]; ok {
			return c
		}
		c := 0
		for _, kid := range node.Kids {
			if kid == nil {
				continue
			}
			switch kid.Kind {
			case NodeBranch:
				c += count(kid)
			case NodeLeaf:
				c++
			}
			if c > max {
				c = max + 1
				break
			}
		}
		memo[node] = c
		return c
	}
	c := count(n)
	if c > max {
		return 0, fmt.Errorf("%w (%d)", ErrTooManyPages, max)
	}
	return c, nil
}

// Leaves returns the leaf nodes below n in document order, each paired
// with its ancestor dictionaries, nearest first. It stops with
// ErrTooManyPages after max leaves.
func (n *Node) Leaves(max int) ([]LeafPath, error) {
	var out []LeafPath
	var walk func(node *Node, ancestors []core.Dict) bool
	walk = func(node *Node, ancestors []core.Dict) bool {
		switch node.Kind {
		case NodeLeaf:
			if len(out) == max {
				return false
			}
			out = append(out, LeafPath{Leaf: node, Ancestors: ancestors})
		case NodeBranch:
			next := append([]core.Dict{node.Dict}, ancestors...)
			for _, kid := range node.Kids {
				if kid != nil && !walk(kid, next) {
					return false
				}
			}
		}
		return true
	}
	if !walk(n, nil) {
		return nil, fmt.Errorf("%w (%d)", ErrTooManyPages, max)
	}
	return out, nil
}

// LeafPath is a leaf together with its ancestors, nearest first.
type LeafPath struct {
	Leaf      *Node
	Ancestors []core.Dict
}

func typeOf(obj core.Object) string {
	if obj == nil {
		return "missing"
	}
	return obj.Type().String()
}
