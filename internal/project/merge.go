package project

import (
	"errors"
	"fmt"

	"texlipse/internal/outline"
	"texlipse/internal/parser"
)

// build is a merged tree together with what the merge learned on the way.
type build struct {
	tree     *outline.Tree
	top      outline.NodeID
	files    []string
	anchors  map[string]Anchor
	includes map[string][]parser.Message
	problems []error
}

// merge splices the per-file outlines into one tree below a virtual
// document node. It runs on one goroutine; files are visited in the order
// their include commands appear.
type merge struct {
	res      Resolver
	results  map[string]*parser.Result
	readErrs map[string]error
	included map[string]bool
	build
}

func newMerge(res Resolver, results map[string]*parser.Result, readErrs map[string]error) *merge {
	m := &merge{
		res:      res,
		results:  results,
		readErrs: readErrs,
		included: make(map[string]bool),
	}
	m.tree = outline.New()
	m.top = m.tree.Add(outline.Node{Name: "Entire document", Type: outline.TypeDocument})
	m.tree.Append(outline.NoNode, m.top)
	m.anchors = make(map[string]Anchor)
	m.includes = make(map[string][]parser.Message)
	return m
}

func (m *merge) run(main string) (*build, error) {
	res := m.results[main]
	if res == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoMainFile, main)
	}
	m.included[main] = true
	m.files = append(m.files, main)
	m.addChildren(m.top, main, res, res.Tree.Roots())
	return &m.build, nil
}

func (m *merge) copy(parent outline.NodeID, file string, src *outline.Tree, id outline.NodeID) outline.NodeID {
	n := *src.Node(id)
	n.File = file
	nid := m.tree.Add(n)
	m.tree.Append(parent, nid)
	return nid
}

// addChildren copies children of file under main. After an include the
// insertion point is looked up again, since the included file may have
// opened deeper sectioning levels. It reports whether an include happened.
func (m *merge) addChildren(main outline.NodeID, file string, res *parser.Result, children []outline.NodeID) bool {
	insert := false
	for _, id := range children {
		n := res.Tree.Node(id)
		if insert {
			main = m.parentLevel(m.tree.Children(m.top), n.Type.SmallerType())
			if main == outline.NoNode {
				main = m.top
			}
		}
		if n.Type == outline.TypeInput {
			if m.include(main, file, n) {
				insert = true
			}
			continue
		}
		nid := m.copy(main, file, res.Tree, id)
		if m.addChildren(nid, file, res, res.Tree.Children(id)) {
			main = m.parentLevel(m.tree.Children(m.top), m.tree.Node(main).Type)
			if main == outline.NoNode {
				main = m.top
			}
		}
	}
	return insert
}

// replaceInput puts the top level nodes of an included file in place of its
// input node, climbing to the first ancestor of a shallower type.
func (m *merge) replaceInput(parent outline.NodeID, file string, res *parser.Result, list []outline.NodeID) {
	for _, id := range list {
		n := res.Tree.Node(id)
		if n.Type == outline.TypeInput {
			m.include(parent, file, n)
			continue
		}
		for parent != m.top && n.Type <= m.tree.Node(parent).Type {
			parent = m.tree.Parent(parent)
		}
		nid := m.copy(parent, file, res.Tree, id)
		m.addChildren(nid, file, res, res.Tree.Children(id))
	}
}

// include splices the file named by the input node n of includer under
// main. It reports whether the name resolved to a project file.
func (m *merge) include(main outline.NodeID, includer string, n *outline.Node) bool {
	file, ok := m.res.Include(n.Name)
	if !ok {
		log.Debugf("%s:%d: %q does not resolve to a project file", includer, n.BeginLine, n.Name)
		return false
	}
	if m.included[file] {
		m.problem(includer, n.BeginLine, fmt.Errorf("%w: %s from %s:%d", ErrCircularInclude, file, includer, n.BeginLine),
			"Circular include of %s", file)
		return true
	}
	res := m.results[file]
	if res == nil {
		err := m.readErrs[file]
		if err == nil {
			err = errors.New("not read")
		}
		m.problem(includer, n.BeginLine, fmt.Errorf("parse %s: %w", file, err),
			"Could not parse file %s, reason: %v", file, err)
		return true
	}
	if _, seen := m.anchors[file]; !seen {
		m.anchors[file] = Anchor{Parent: main, Includer: includer, Line: n.BeginLine}
		m.files = append(m.files, file)
	}
	m.included[file] = true
	m.replaceInput(main, file, res, res.Tree.Roots())
	delete(m.included, file)
	return true
}

func (m *merge) problem(file string, line int, err error, format string, args ...any) {
	m.problems = append(m.problems, err)
	m.includes[file] = append(m.includes[file], parser.Message{
		Line:     line,
		Msg:      fmt.Sprintf(format, args...),
		Severity: parser.SeverityError,
	})
}

// parentLevel finds the node new content of the given level goes under:
// the last node of exactly that level on the rightmost path, or else the
// deepest node on that path that is shallower than level.
func (m *merge) parentLevel(children []outline.NodeID, level outline.Type) outline.NodeID {
	if len(children) == 0 {
		return outline.NoNode
	}
	last := children[len(children)-1]
	typ := m.tree.Node(last).Type
	switch {
	case typ == level:
		return last
	case typ > level:
		if level == outline.TypeDocument {
			return m.tree.Parent(last)
		}
		return outline.NoNode
	}
	if found := m.parentLevel(m.tree.Children(last), level); found != outline.NoNode {
		return found
	}
	return last
}
