package domain

// Find returns a copy of the node with the given id. Top-level nodes are
// searched first, then the children of each container in order; the first
// match wins.
func (d *Document) Find(id string) (*Node, bool) {
	n, _ := d.locate(id)
	if n == nil {
		return nil, false
	}
	return n.Clone(), true
}

// FindMut is Find without the copy: changes to the returned node are changes
// to the document.
func (d *Document) FindMut(id string) (*Node, bool) {
	n, _ := d.locate(id)
	return n, n != nil
}

// locate returns the node and, for a child, its container.
func (d *Document) locate(id string) (node, parent *Node) {
	for _, n := range d.Canvas.Objects {
		if n.ID == id {
			return n, nil
		}
	}
	for _, n := range d.Canvas.Objects {
		for _, child := range n.Children {
			if child.ID == id {
				return child, n
			}
		}
	}
	return nil, nil
}

// IDs returns every node id in document order, containers before their
// children.
func (d *Document) IDs() []string {
	var ids []string
	for _, n := range d.Canvas.Objects {
		ids = append(ids, n.ID)
		for _, child := range n.Children {
			ids = append(ids, child.ID)
		}
	}
	return ids
}
