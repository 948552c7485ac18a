package domain

import (
	"encoding/json"
	"fmt"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// NodeType is the renderer type tag stored in a node's "type" field.
type NodeType string

const (
	NodeTypeRect    NodeType = "Rect"
	NodeTypeEllipse NodeType = "Ellipse"
	NodeTypeText    NodeType = "IText"
)

// Props is the open field bag of a node: every field other than id, type and
// the child sequence, in document order.
type Props = orderedmap.OrderedMap[string, any]

// NewProps returns an empty field bag.
func NewProps() *Props {
	return orderedmap.New[string, any]()
}

// PropsFromMap builds a field bag from an unordered map. Keys are sorted so
// the resulting order does not depend on map iteration.
func PropsFromMap(m map[string]any) *Props {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p := NewProps()
	for _, k := range keys {
		p.Set(k, m[k])
	}
	return p
}

// Node is one canvas object. A node whose Children slice is non-nil is a
// container; container children are always leaves, so the tree never nests
// more than one level.
type Node struct {
	ID       string
	Type     NodeType
	Props    *Props
	Children []*Node
}

// IsContainer reports whether n holds a child sequence.
func (n *Node) IsContainer() bool {
	return n.Children != nil
}

// IsFrame reports whether n is a rect-shaped frame.
func (n *Node) IsFrame() bool {
	v, _ := n.Get("isFrame")
	frame, _ := v.(bool)
	return frame && n.Type == NodeTypeRect
}

// Name returns the optional display name.
func (n *Node) Name() string {
	v, _ := n.Get("name")
	name, _ := v.(string)
	return name
}

// Get returns a field by its document key.
func (n *Node) Get(key string) (any, bool) {
	switch key {
	case "id":
		return n.ID, true
	case "type":
		return string(n.Type), true
	case "objects":
		if n.Children != nil {
			return n.Children, true
		}
	}
	if n.Props == nil {
		return nil, false
	}
	return n.Props.Get(key)
}

// Number returns a numeric field, or false if it is absent or not a number.
// Integers too large for a float64 are returned rounded.
func (n *Node) Number(key string) (float64, bool) {
	v, ok := n.Get(key)
	if !ok {
		return 0, false
	}
	switch num := v.(type) {
	case float64:
		return num, true
	case json.Number:
		f, err := num.Float64()
		return f, err == nil
	}
	return 0, false
}

// Clone returns a copy of n whose field bag and child sequence can be changed
// without affecting n. Field values are shared.
func (n *Node) Clone() *Node {
	c := &Node{ID: n.ID, Type: n.Type, Props: NewProps()}
	if n.Props != nil {
		for pair := n.Props.Oldest(); pair != nil; pair = pair.Next() {
			c.Props.Set(pair.Key, pair.Value)
		}
	}
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

// MarshalJSON writes type and id first, then the remaining fields in document
// order, then the child sequence of a container.
func (n *Node) MarshalJSON() ([]byte, error) {
	w := newObjectWriter()
	w.member("type", string(n.Type))
	w.member("id", n.ID)
	if n.Children != nil {
		w.props(n.Props, "id", "type", "objects")
		w.member("objects", n.Children)
	} else {
		w.props(n.Props, "id", "type")
	}
	return w.bytes()
}

// UnmarshalJSON parses a top-level node, which may be a container.
func (n *Node) UnmarshalJSON(data []byte) error {
	parsed, err := decodeNode(data, true)
	if err != nil {
		return err
	}
	*n = *parsed
	return nil
}

// decodeNode parses one node object. Only top-level nodes may hold children;
// an objects array inside a child is kept as an ordinary field.
func decodeNode(data []byte, allowChildren bool) (*Node, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("node: %w", err)
	}

	n := &Node{Props: NewProps()}
	var hasID, hasType bool
	for pair := fields.Oldest(); pair != nil; pair = pair.Next() {
		switch pair.Key {
		case "id":
			if err := json.Unmarshal(pair.Value, &n.ID); err != nil {
				return nil, fmt.Errorf("node id must be a string")
			}
			hasID = true
			continue
		case "type":
			var t string
			if err := json.Unmarshal(pair.Value, &t); err != nil {
				return nil, fmt.Errorf("node %s: type must be a string", n.ID)
			}
			n.Type = NodeType(t)
			hasType = true
			continue
		case "objects":
			if allowChildren && isJSONArray(pair.Value) {
				children, err := decodeChildren(pair.Value)
				if err != nil {
					return nil, fmt.Errorf("node %s: %w", n.ID, err)
				}
				n.Children = children
				continue
			}
		}
		v, err := decodeValue(pair.Value)
		if err != nil {
			return nil, fmt.Errorf("node %s: field %q: %w", n.ID, pair.Key, err)
		}
		n.Props.Set(pair.Key, v)
	}

	if !hasID {
		return nil, fmt.Errorf("node is missing id")
	}
	if !hasType {
		return nil, fmt.Errorf("node %s is missing type", n.ID)
	}
	return n, nil
}

func decodeChildren(data []byte) ([]*Node, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, err
	}
	children := make([]*Node, 0, len(raws))
	for i, raw := range raws {
		child, err := decodeNode(raw, false)
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", i, err)
		}
		children = append(children, child)
	}
	return children, nil
}

// decodeNodes parses a top-level object sequence.
func decodeNodes(data []byte) ([]*Node, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, err
	}
	nodes := make([]*Node, 0, len(raws))
	for i, raw := range raws {
		n, err := decodeNode(raw, true)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}
