package outline

// Input is a tree snapshot plus the indexes an outline view needs to render
// and filter it. It must not be modified once handed out.
type Input struct {
	Tree      *Tree
	Roots     []NodeID
	TypeIndex map[Type][]NodeID
	Depth     int
}

// NewInput indexes every attached node of t by type.
func NewInput(t *Tree) Input {
	in := Input{
		Tree:      t,
		Roots:     t.Roots(),
		TypeIndex: make(map[Type][]NodeID),
	}
	t.Walk(func(id NodeID, depth int) bool {
		typ := t.Node(id).Type
		in.TypeIndex[typ] = append(in.TypeIndex[typ], id)
		if depth+1 > in.Depth {
			in.Depth = depth + 1
		}
		return true
	})
	return in
}

// Of returns the nodes of the given type in document order.
func (in Input) Of(typ Type) []NodeID { return in.TypeIndex[typ] }
