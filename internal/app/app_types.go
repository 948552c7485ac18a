package app

import "easel/internal/domain"

// CreateNodeInput is the frontend's request to add a node. Omitted fields
// fall back to the same per-kind defaults the MCP tool uses.
type CreateNodeInput struct {
	Type     string   `json:"type"`
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Width    *float64 `json:"width,omitempty"`
	Height   *float64 `json:"height,omitempty"`
	Fill     *string  `json:"fill,omitempty"`
	Stroke   *string  `json:"stroke,omitempty"`
	Name     *string  `json:"name,omitempty"`
	Text     *string  `json:"text,omitempty"`
	FontSize *float64 `json:"fontSize,omitempty"`
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func (in CreateNodeInput) spec() domain.NodeSpec {
	spec := domain.NewNodeSpec(in.Type)
	setIf(&spec.X, in.X)
	setIf(&spec.Y, in.Y)
	setIf(&spec.Width, in.Width)
	setIf(&spec.Height, in.Height)
	setIf(&spec.FontSize, in.FontSize)
	setIf(&spec.Fill, in.Fill)
	setIf(&spec.Stroke, in.Stroke)
	setIf(&spec.Name, in.Name)
	setIf(&spec.Text, in.Text)
	return spec
}
