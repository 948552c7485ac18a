package mcpserver

import (
	"fmt"

	"easel/internal/domain"
)

// requireString returns a non-empty string argument.
func requireString(args map[string]any, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

// getFloat reads a number argument. JSON numbers arrive as float64; ints are
// accepted for callers that build arguments in Go.
func getFloat(args map[string]any, key string, fallback float64) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return fallback
}

// getStrings reads an array of strings. Non-string elements are rejected.
func getStrings(args map[string]any, key string) ([]string, error) {
	raw, ok := args[key].([]any)
	if !ok {
		if ss, ok := args[key].([]string); ok {
			return ss, nil
		}
		return nil, fmt.Errorf("%s must be an array of strings", key)
	}
	out := make([]string, 0, len(raw))
	for i, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be a string", key, i)
		}
		out = append(out, s)
	}
	return out, nil
}

// nodeSpec builds a NodeSpec from create_node arguments. Only arguments that
// are present override the per-kind defaults.
func nodeSpec(args map[string]any) (domain.NodeSpec, error) {
	kind, err := requireString(args, "type")
	if err != nil {
		return domain.NodeSpec{}, err
	}
	spec := domain.NewNodeSpec(kind)
	spec.X = getFloat(args, "x", spec.X)
	spec.Y = getFloat(args, "y", spec.Y)
	spec.Width = getFloat(args, "width", spec.Width)
	spec.Height = getFloat(args, "height", spec.Height)
	spec.FontSize = getFloat(args, "fontSize", spec.FontSize)
	for key, dst := range map[string]*string{
		"fill":   &spec.Fill,
		"stroke": &spec.Stroke,
		"name":   &spec.Name,
		"text":   &spec.Text,
	} {
		if v, ok := args[key].(string); ok {
			*dst = v
		}
	}
	return spec, nil
}
