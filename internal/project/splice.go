package project

import (
	"slices"

	"texlipse/internal/outline"
	"texlipse/internal/parser"
)

// Anchor records where the nodes of an included file were spliced: the node
// they went under and the line of the include command in the includer.
type Anchor struct {
	Parent   outline.NodeID
	Includer string
	Line     int
}

// LineHeuristic returns the index among the children of a.Parent at which
// the nodes of the file included at a.Line of a.Includer belong. A sibling
// is placed by its begin line when it comes from the includer, or by the
// line of its own include when it was spliced from another file of the same
// includer. Other siblings are skipped. The result is the index of the first
// sibling placed after a.Line.
//
// Nodes are matched by line number, not identity: two includes on one line
// keep their order only by chance.
func LineHeuristic(t *outline.Tree, a Anchor, anchors map[string]Anchor) int {
	kids := t.Children(a.Parent)
	for i, id := range kids {
		n := t.Node(id)
		line := -1
		switch {
		case n.File == a.Includer:
			line = n.BeginLine
		case anchors[n.File].Includer == a.Includer && n.File != "":
			line = anchors[n.File].Line
		}
		if line > a.Line {
			return i
		}
	}
	return len(kids)
}

// splice swaps the nodes file contributed to prev's tree for the top level
// nodes of res, working on a copy. It reports false when the change cannot
// be placed without redoing the merge:
//
//   - either version of the file includes other files;
//   - the old nodes are not one run of siblings owned by file alone;
//   - the rightmost path changed shape, which decides where the includer's
//     following content was attached;
//   - a new top level node would land under another parent than the old
//     ones, climbing from the anchor the way the merge does.
//
// A file that contributed nothing before has no remembered position and is
// placed by LineHeuristic.
func (p *Project) splice(prev *Snapshot, file string, old, res *parser.Result) (*outline.Tree, bool) {
	if old == nil || len(old.Inputs) > 0 || len(res.Inputs) > 0 {
		return nil, false
	}
	tree := prev.Tree.Clone()
	tops, ok := contribution(tree, file)
	if !ok {
		return nil, false
	}

	a, ok := p.anchors[file]
	if !ok || !tree.Attached(a.Parent) {
		return nil, false
	}

	if len(tops) == 0 {
		at := LineHeuristic(tree, a, p.anchors)
		for _, id := range res.Tree.Roots() {
			if res.Tree.Node(id).Type <= tree.Node(a.Parent).Type {
				return nil, false
			}
			tree.GraftAt(a.Parent, at, res.Tree, id, file)
			at++
		}
		return tree, true
	}

	if !slices.Equal(tail(old.Tree), tail(res.Tree)) {
		return nil, false
	}
	parent := tree.Parent(tops[0])
	if !sameParent(tree, a.Parent, parent, res.Tree) {
		return nil, false
	}
	at := tree.Index(tops[0])
	for _, id := range tops {
		tree.Detach(id)
	}
	for _, id := range res.Tree.Roots() {
		tree.GraftAt(parent, at, res.Tree, id, file)
		at++
	}
	return tree, true
}

// sameParent reports whether every root of src, climbing from the anchor
// the way a merge does, lands under parent.
func sameParent(t *outline.Tree, anchor, parent outline.NodeID, src *outline.Tree) bool {
	at := anchor
	for _, id := range src.Roots() {
		typ := src.Node(id).Type
		for typ <= t.Node(at).Type {
			up := t.Parent(at)
			if up == outline.NoNode {
				break
			}
			at = up
		}
		if at != parent {
			return false
		}
	}
	return true
}

// contribution returns the nodes of file whose parent belongs to another
// file. ok is false unless they are consecutive siblings and everything
// below them belongs to file too.
func contribution(t *outline.Tree, file string) (tops []outline.NodeID, ok bool) {
	total := 0
	t.Walk(func(id outline.NodeID, _ int) bool {
		if t.Node(id).File != file {
			return true
		}
		total++
		if parent := t.Parent(id); parent == outline.NoNode || t.Node(parent).File != file {
			tops = append(tops, id)
		}
		return true
	})
	if len(tops) == 0 {
		return nil, true
	}

	parent := t.Parent(tops[0])
	first := t.Index(tops[0])
	owned := 0
	for i, id := range tops {
		if t.Parent(id) != parent || t.Index(id) != first+i {
			return nil, false
		}
		n, pure := subtree(t, id, file)
		if !pure {
			return nil, false
		}
		owned += n
	}
	return tops, owned == total
}

// subtree counts the nodes below and including id and reports whether they
// all belong to file.
func subtree(t *outline.Tree, id outline.NodeID, file string) (int, bool) {
	if t.Node(id).File != file {
		return 0, false
	}
	count := 1
	for _, c := range t.Children(id) {
		n, ok := subtree(t, c, file)
		if !ok {
			return 0, false
		}
		count += n
	}
	return count, true
}

// tail lists the node types down the rightmost path of t.
func tail(t *outline.Tree) []outline.Type {
	var out []outline.Type
	for kids := t.Roots(); len(kids) > 0; kids = t.Children(kids[len(kids)-1]) {
		out = append(out, t.Node(kids[len(kids)-1]).Type)
	}
	return out
}
