// Package outline holds the structural tree of a LaTeX document. Nodes live
// in an arena owned by a Tree and refer to each other by NodeID.
package outline

import (
	"fmt"
	"sort"
	"strings"
)

// Type is the kind of an outline node. Sectioning types are ordered by
// nesting level: a lower value is a shallower level.
type Type int

const (
	TypeDocument      Type = -1
	TypePart          Type = 0
	TypeChapter       Type = 1
	TypeSection       Type = 2
	TypeSubsection    Type = 3
	TypeSubsubsection Type = 4
	TypeParagraph     Type = 5
	TypeEnvironment   Type = 13
	TypePreamble      Type = 14
	TypeLabel         Type = 20
	TypeInput         Type = 45
)

var typeNames = map[Type]string{
	TypeDocument:      "document",
	TypePart:          "part",
	TypeChapter:       "chapter",
	TypeSection:       "section",
	TypeSubsection:    "subsection",
	TypeSubsubsection: "subsubsection",
	TypeParagraph:     "paragraph",
	TypeEnvironment:   "environment",
	TypePreamble:      "preamble",
	TypeLabel:         "label",
	TypeInput:         "input",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Sectioning reports whether t is one of part through paragraph.
func (t Type) Sectioning() bool { return TypePart <= t && t <= TypeParagraph }

// SmallerType returns the type one level above t.
func (t Type) SmallerType() Type {
	switch {
	case t <= TypeParagraph:
		return t - 1
	case t == TypeEnvironment:
		return TypeParagraph
	case t == TypePreamble:
		return TypeEnvironment
	case t == TypeInput:
		return TypePreamble
	}
	return TypeDocument
}

// SectioningType maps a sectioning command name to its node type.
func SectioningType(command string) (Type, bool) {
	switch command {
	case "part":
		return TypePart, true
	case "chapter":
		return TypeChapter, true
	case "section":
		return TypeSection, true
	case "subsection":
		return TypeSubsection, true
	case "subsubsection":
		return TypeSubsubsection, true
	case "paragraph":
		return TypeParagraph, true
	}
	return 0, false
}

// NodeID addresses a node inside its Tree.
type NodeID int

// NoNode is the parent of a root node.
const NoNode NodeID = -1

// Node is one structural unit. EndLine is exclusive and stays zero while the
// unit is open.
type Node struct {
	Name      string
	Type      Type
	BeginLine int
	EndLine   int
	Offset    int
	Length    int
	File      string

	parent   NodeID
	children []NodeID
}

// Tree is an arena of nodes plus the ordered list of roots.
type Tree struct {
	nodes []Node
	roots []NodeID
}

// New returns an empty tree.
func New() *Tree { return &Tree{} }

// Add stores n as an unattached node and returns its id.
func (t *Tree) Add(n Node) NodeID {
	n.parent = NoNode
	n.children = nil
	t.nodes = append(t.nodes, n)
	return NodeID(len(t.nodes) - 1)
}

// Len returns the number of nodes in the arena, attached or not.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the node with the given id. The pointer stays valid until the
// next call to Add.
func (t *Tree) Node(id NodeID) *Node { return &t.nodes[id] }

// Parent returns the parent of id or NoNode for roots and unattached nodes.
func (t *Tree) Parent(id NodeID) NodeID { return t.nodes[id].parent }

// Children returns the children of id in document order. Passing NoNode
// returns the roots.
func (t *Tree) Children(id NodeID) []NodeID {
	if id == NoNode {
		return t.roots
	}
	return t.nodes[id].children
}

// Roots returns the top level nodes in document order.
func (t *Tree) Roots() []NodeID { return t.roots }

func (t *Tree) siblings(parent NodeID) *[]NodeID {
	if parent == NoNode {
		return &t.roots
	}
	return &t.nodes[parent].children
}

// Append attaches child as the last child of parent, or as the last root
// when parent is NoNode.
func (t *Tree) Append(parent, child NodeID) {
	s := t.siblings(parent)
	*s = append(*s, child)
	t.nodes[child].parent = parent
}

// Insert attaches child under parent at index i.
func (t *Tree) Insert(parent NodeID, i int, child NodeID) {
	s := t.siblings(parent)
	if i < 0 || i > len(*s) {
		i = len(*s)
	}
	*s = append(*s, 0)
	copy((*s)[i+1:], (*s)[i:])
	(*s)[i] = child
	t.nodes[child].parent = parent
}

// InsertSorted attaches child under parent after every sibling that begins
// on or before the child's begin line.
func (t *Tree) InsertSorted(parent, child NodeID) {
	s := *t.siblings(parent)
	line := t.nodes[child].BeginLine
	i := sort.Search(len(s), func(i int) bool { return t.nodes[s[i]].BeginLine > line })
	t.Insert(parent, i, child)
}

// Detach removes id from its parent. Its own subtree is left intact.
func (t *Tree) Detach(id NodeID) {
	s := t.siblings(t.nodes[id].parent)
	for i, c := range *s {
		if c == id {
			*s = append((*s)[:i], (*s)[i+1:]...)
			break
		}
	}
	t.nodes[id].parent = NoNode
}

// Index returns the position of id among its siblings, or -1.
func (t *Tree) Index(id NodeID) int {
	for i, c := range *t.siblings(t.nodes[id].parent) {
		if c == id {
			return i
		}
	}
	return -1
}

// Walk visits attached nodes depth first in document order. Returning false
// from fn skips the node's children.
func (t *Tree) Walk(fn func(id NodeID, depth int) bool) {
	var visit func(ids []NodeID, depth int)
	visit = func(ids []NodeID, depth int) {
		for _, id := range ids {
			if fn(id, depth) {
				visit(t.nodes[id].children, depth+1)
			}
		}
	}
	visit(t.roots, 0)
}

// Depth returns the number of levels in the tree.
func (t *Tree) Depth() int {
	max := 0
	t.Walk(func(_ NodeID, depth int) bool {
		if depth+1 > max {
			max = depth + 1
		}
		return true
	})
	return max
}

// Graft deep copies the subtree rooted at id in src into t, attaching it
// under parent. file, when non-empty, overrides the owning file of every
// copied node.
func (t *Tree) Graft(parent NodeID, src *Tree, id NodeID, file string) NodeID {
	return t.GraftAt(parent, -1, src, id, file)
}

// GraftAt is Graft inserting the copy at index i among the children of
// parent. An index out of range appends.
func (t *Tree) GraftAt(parent NodeID, i int, src *Tree, id NodeID, file string) NodeID {
	n := *src.Node(id)
	if file != "" {
		n.File = file
	}
	nid := t.Add(n)
	t.Insert(parent, i, nid)
	for _, c := range src.Children(id) {
		t.GraftAt(nid, -1, src, c, file)
	}
	return nid
}

// Clone returns a copy of t that shares no state with it. Node ids are kept.
func (t *Tree) Clone() *Tree {
	c := &Tree{
		nodes: make([]Node, len(t.nodes)),
		roots: append([]NodeID(nil), t.roots...),
	}
	for i, n := range t.nodes {
		n.children = append([]NodeID(nil), n.children...)
		c.nodes[i] = n
	}
	return c
}

// Attached reports whether id is reachable from the roots.
func (t *Tree) Attached(id NodeID) bool {
	for id != NoNode {
		if t.Index(id) < 0 {
			return false
		}
		id = t.nodes[id].parent
	}
	return true
}

// Spans sets Offset and Length of every node from its line range within
// text, which must be the text the tree was parsed from.
func (t *Tree) Spans(text string) {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	offset := func(line int) int {
		switch {
		case line < 1:
			return 0
		case line > len(starts):
			return len(text)
		}
		return starts[line-1]
	}
	for i := range t.nodes {
		n := &t.nodes[i]
		n.Offset = offset(n.BeginLine)
		end := n.EndLine
		if end < n.BeginLine {
			end = n.BeginLine
		}
		n.Length = offset(end) - n.Offset
	}
}

// String renders the attached nodes as an indented listing.
func (t *Tree) String() string {
	var b strings.Builder
	t.Walk(func(id NodeID, depth int) bool {
		n := &t.nodes[id]
		fmt.Fprintf(&b, "%s%s %q [%d,%d)", strings.Repeat("  ", depth), n.Type, n.Name, n.BeginLine, n.EndLine)
		if n.File != "" {
			fmt.Fprintf(&b, " %s", n.File)
		}
		b.WriteByte('\n')
		return true
	})
	return b.String()
}
