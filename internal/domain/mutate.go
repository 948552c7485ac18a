package domain

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Node kinds accepted by CreateNode.
const (
	KindRect    = "rect"
	KindEllipse = "ellipse"
	KindText    = "text"
	KindFrame   = "frame"
)

const (
	DefaultPosition = 100.0
	DefaultSize     = 200.0
	DefaultFontSize = 16.0

	textFontFamily = "Inter, system-ui, sans-serif"
)

// NodeSpec describes a node to create. Every field is written as given;
// NewNodeSpec fills in the per-kind defaults for fields a caller leaves unset.
type NodeSpec struct {
	Kind     string
	X        float64
	Y        float64
	Width    float64
	Height   float64
	Fill     string
	Stroke   string
	Name     string
	Text     string
	FontSize float64
}

// NewNodeSpec returns a spec for kind with the default geometry, colors and
// name of that kind.
func NewNodeSpec(kind string) NodeSpec {
	spec := NodeSpec{
		Kind:     kind,
		X:        DefaultPosition,
		Y:        DefaultPosition,
		Width:    DefaultSize,
		Height:   DefaultSize,
		FontSize: DefaultFontSize,
	}
	switch kind {
	case KindRect:
		spec.Name, spec.Fill, spec.Stroke = "Rectangle", "#d9d9d9", "#b3b3b3"
	case KindEllipse:
		spec.Name, spec.Fill, spec.Stroke = "Ellipse", "#d9d9d9", "#b3b3b3"
	case KindText:
		spec.Name, spec.Text, spec.Fill = "Text", "Text", "#ffffff"
	case KindFrame:
		spec.Name = "Frame"
	}
	return spec
}

// buildNode turns spec into a node. It does not touch the document.
func buildNode(spec NodeSpec) (*Node, error) {
	n := &Node{ID: uuid.NewString(), Props: NewProps()}
	p := n.Props

	switch spec.Kind {
	case KindRect, KindFrame:
		n.Type = NodeTypeRect
		p.Set("name", spec.Name)
		if spec.Kind == KindFrame {
			p.Set("isFrame", true)
		}
		p.Set("left", spec.X)
		p.Set("top", spec.Y)
		p.Set("width", spec.Width)
		p.Set("height", spec.Height)
		if spec.Kind == KindFrame {
			p.Set("fill", "#ffffff")
			p.Set("stroke", "#e0e0e0")
		} else {
			p.Set("fill", spec.Fill)
			p.Set("stroke", spec.Stroke)
		}
		p.Set("strokeWidth", float64(1))
		p.Set("strokeUniform", true)
	case KindEllipse:
		n.Type = NodeTypeEllipse
		p.Set("name", spec.Name)
		p.Set("left", spec.X)
		p.Set("top", spec.Y)
		p.Set("rx", spec.Width/2)
		p.Set("ry", spec.Height/2)
		p.Set("fill", spec.Fill)
		p.Set("stroke", spec.Stroke)
		p.Set("strokeWidth", float64(1))
		p.Set("strokeUniform", true)
	case KindText:
		n.Type = NodeTypeText
		p.Set("name", spec.Name)
		p.Set("text", spec.Text)
		p.Set("left", spec.X)
		p.Set("top", spec.Y)
		p.Set("fontSize", spec.FontSize)
		p.Set("fontFamily", textFontFamily)
		p.Set("fill", spec.Fill)
	default:
		return nil, fmt.Errorf("%w: unknown node type %q, use rect, ellipse, text or frame", ErrInvalidArgument, spec.Kind)
	}

	p.Set("originX", "left")
	p.Set("originY", "top")
	p.Set("version", RendererVersion)
	return n, nil
}

// CreateNode appends a new top-level node built from spec and returns a copy
// of it. An unknown kind leaves the document unchanged.
func (d *Document) CreateNode(spec NodeSpec) (*Node, error) {
	n, err := buildNode(spec)
	if err != nil {
		return nil, err
	}
	d.Canvas.Objects = append(d.Canvas.Objects, n)
	d.Touch()
	return n.Clone(), nil
}

// UpdateNode merges fields into the node with the given id, one key at a
// time. The id and type keys are ignored. On a top-level node an objects
// array replaces the child sequence.
func (d *Document) UpdateNode(id string, fields *Props) (*Node, error) {
	n, parent := d.locate(id)
	if n == nil {
		return nil, fmt.Errorf("%w: node %s", ErrNotFound, id)
	}

	if fields != nil {
		for pair := fields.Oldest(); pair != nil; pair = pair.Next() {
			switch pair.Key {
			case "id", "type":
				continue
			case "objects":
				if parent == nil {
					if err := n.setChildren(pair.Value); err != nil {
						return nil, fmt.Errorf("%w: node %s: %v", ErrInvalidArgument, id, err)
					}
					continue
				}
			}
			n.Props.Set(pair.Key, pair.Value)
		}
	}

	d.Touch()
	return n.Clone(), nil
}

// setChildren replaces the child sequence from a decoded JSON value. Any
// value other than an array turns the node back into a leaf carrying that
// value as an ordinary field.
func (n *Node) setChildren(v any) error {
	if _, ok := v.([]any); !ok {
		n.Children = nil
		n.Props.Set("objects", v)
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	children, err := decodeChildren(raw)
	if err != nil {
		return err
	}
	n.Children = children
	n.Props.Delete("objects")
	return nil
}

// DeleteNodes removes every node whose id is listed, from the top level and
// from inside every remaining container, and returns the ids that were
// removed in request order. The modification time is refreshed even when
// nothing matched.
func (d *Document) DeleteNodes(ids []string) []string {
	removed := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))

	for _, id := range ids {
		hit := false

		kept := d.Canvas.Objects[:0]
		for _, n := range d.Canvas.Objects {
			if n.ID == id {
				hit = true
				continue
			}
			kept = append(kept, n)
		}
		d.Canvas.Objects = kept

		for _, n := range d.Canvas.Objects {
			if n.Children == nil {
				continue
			}
			children := n.Children[:0]
			for _, child := range n.Children {
				if child.ID == id {
					hit = true
					continue
				}
				children = append(children, child)
			}
			n.Children = children
		}

		if hit && !seen[id] {
			seen[id] = true
			removed = append(removed, id)
		}
	}

	d.Touch()
	return removed
}
