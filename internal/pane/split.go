package pane

// Orientation of a split: side by side or stacked
type Orientation int

const (
	Horizontal Orientation = iota
	Vertical
)

// Rect is a screen region in cells
type Rect struct {
	X, Y, W, H int
}

// Divider is the line drawn between the two halves of a split
type Divider struct {
	X, Y, Len int
	Vertical  bool
}

// Node is a node of the split tree. Leaves hold a notebook; inner nodes
// hold exactly two children, the first taking Ratio of the space.
type Node struct {
	parent   *Node
	first    *Node
	second   *Node
	notebook *Notebook

	Orientation Orientation
	Ratio       float64
}

func newLeaf(nb *Notebook) *Node {
	return &Node{notebook: nb}
}

func (n *Node) IsLeaf() bool { return n.notebook != nil }

// Notebook is nil for inner nodes
func (n *Node) Notebook() *Notebook { return n.notebook }

// Children is nil, nil for leaves
func (n *Node) Children() (*Node, *Node) { return n.first, n.second }

func (n *Node) Parent() *Node { return n.parent }

// find returns the leaf holding nb
func (n *Node) find(nb *Notebook) *Node {
	if n == nil {
		return nil
	}
	if n.notebook == nb {
		return n
	}
	if f := n.first.find(nb); f != nil {
		return f
	}
	return n.second.find(nb)
}

// split turns leaf n into an inner node whose first child keeps n's
// notebook and whose second child holds nb, each getting half the space
func (n *Node) split(nb *Notebook, o Orientation) *Node {
	kept := newLeaf(n.notebook)
	kept.parent = n
	added := newLeaf(nb)
	added.parent = n

	n.notebook = nil
	n.first = kept
	n.second = added
	n.Orientation = o
	n.Ratio = 0.5
	return added
}

// remove drops leaf n and promotes its sibling into the parent's place.
// It returns the root of the tree afterwards.
func (n *Node) remove() *Node {
	p := n.parent
	if p == nil {
		return n
	}
	sibling := p.first
	if sibling == n {
		sibling = p.second
	}
	// the parent takes over the sibling's contents so references to it
	// from further up stay valid
	p.notebook = sibling.notebook
	p.first = sibling.first
	p.second = sibling.second
	p.Orientation = sibling.Orientation
	p.Ratio = sibling.Ratio
	if p.first != nil {
		p.first.parent = p
		p.second.parent = p
	}
	n.parent = nil

	root := p
	for root.parent != nil {
		root = root.parent
	}
	return root
}

// Leaves lists the notebooks left to right, top to bottom
func (n *Node) Leaves() []*Notebook {
	if n == nil {
		return nil
	}
	if n.IsLeaf() {
		return []*Notebook{n.notebook}
	}
	return append(n.first.Leaves(), n.second.Leaves()...)
}

// Layout assigns a region to every notebook of the tree inside r, one
// cell of each split going to its divider
func (n *Node) Layout(r Rect) (map[*Notebook]Rect, []Divider) {
	regions := make(map[*Notebook]Rect)
	var dividers []Divider
	n.layout(r, regions, &dividers)
	return regions, dividers
}

func (n *Node) layout(r Rect, regions map[*Notebook]Rect, dividers *[]Divider) {
	if n == nil {
		return
	}
	if n.IsLeaf() {
		regions[n.notebook] = r
		return
	}
	if n.Orientation == Horizontal {
		w1 := int(float64(r.W-1) * n.Ratio)
		if w1 < 0 {
			w1 = 0
		}
		w2 := r.W - 1 - w1
		if w2 < 0 {
			w2 = 0
		}
		n.first.layout(Rect{r.X, r.Y, w1, r.H}, regions, dividers)
		*dividers = append(*dividers, Divider{X: r.X + w1, Y: r.Y, Len: r.H, Vertical: true})
		n.second.layout(Rect{r.X + w1 + 1, r.Y, w2, r.H}, regions, dividers)
		return
	}
	h1 := int(float64(r.H-1) * n.Ratio)
	if h1 < 0 {
		h1 = 0
	}
	h2 := r.H - 1 - h1
	if h2 < 0 {
		h2 = 0
	}
	n.first.layout(Rect{r.X, r.Y, r.W, h1}, regions, dividers)
	*dividers = append(*dividers, Divider{X: r.X, Y: r.Y + h1, Len: r.W})
	n.second.layout(Rect{r.X, r.Y + h1 + 1, r.W, h2}, regions, dividers)
}
