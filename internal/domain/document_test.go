package domain_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"easel/internal/domain"
)

const sampleDocument = `{
  "formatVersion": 1,
  "name": "Board",
  "canvas": {
    "version": "7.0.0",
    "background": "#101010",
    "objects": [
      {"type": "Rect", "id": "r1", "left": 10, "top": 20, "customTag": {"a": [1, 2]}, "shadow": null},
      {"type": "Group", "id": "g1", "objects": [
        {"type": "Ellipse", "id": "c1", "rx": 5, "objects": [{"type": "Rect", "id": "deep"}]},
        {"type": "IText", "id": "t1", "text": "<b>&amp;</b>"}
      ]}
    ]
  },
  "viewport": {"zoom": 1.5, "transform": [1.5, 0, 0, 1.5, 10, 20]},
  "createdAt": "2025-01-02T03:04:05Z",
  "updatedAt": "2025-01-02T03:04:05Z"
}`

// ─────────────────────────────────────────────────────────────
// Parsing
// ─────────────────────────────────────────────────────────────

func TestParseDocument(t *testing.T) {
	doc, err := domain.ParseDocument([]byte(sampleDocument))
	require.NoError(t, err)

	assert.Equal(t, uint32(1), doc.FormatVersion)
	assert.Equal(t, "Board", doc.Name)
	assert.Equal(t, "7.0.0", doc.Canvas.Version)
	assert.Equal(t, 1.5, doc.Viewport.Zoom)
	require.Len(t, doc.Canvas.Objects, 2)

	group := doc.Canvas.Objects[1]
	assert.True(t, group.IsContainer())
	require.Len(t, group.Children, 2)

	// grandchildren stay an opaque field of the child
	ellipse := group.Children[0]
	assert.False(t, ellipse.IsContainer())
	_, ok := ellipse.Props.Get("objects")
	assert.True(t, ok)
}

func TestParseDocument_NullCanvas(t *testing.T) {
	data := `{"formatVersion":1,"name":"x","canvas":null,
		"viewport":{"zoom":1,"transform":[1,0,0,1,0,0]},
		"createdAt":"2025-01-02T03:04:05Z","updatedAt":"2025-01-02T03:04:05Z"}`

	doc, err := domain.ParseDocument([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, "7.0.0", doc.Canvas.Version)
	assert.NotNil(t, doc.Canvas.Objects)
	assert.Empty(t, doc.Canvas.Objects)
}

func TestParseDocument_MissingObjects(t *testing.T) {
	data := `{"formatVersion":1,"name":"x","canvas":{"version":"7.0.0"},
		"viewport":{"zoom":1,"transform":[1,0,0,1,0,0]},
		"createdAt":"2025-01-02T03:04:05Z","updatedAt":"2025-01-02T03:04:05Z"}`

	doc, err := domain.ParseDocument([]byte(data))
	require.NoError(t, err)
	assert.NotNil(t, doc.Canvas.Objects)

	out, err := domain.EncodeDocument(doc)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"objects": []`)
}

func TestParseDocument_FormatErrors(t *testing.T) {
	cases := map[string]string{
		"not json":        `{"formatVersion":`,
		"missing name":    `{"formatVersion":1,"canvas":{"objects":[]},"viewport":{"zoom":1,"transform":[1,0,0,1,0,0]},"createdAt":"2025-01-02T03:04:05Z","updatedAt":"2025-01-02T03:04:05Z"}`,
		"missing canvas":  `{"formatVersion":1,"name":"x","viewport":{"zoom":1,"transform":[1,0,0,1,0,0]},"createdAt":"2025-01-02T03:04:05Z","updatedAt":"2025-01-02T03:04:05Z"}`,
		"canvas array":    `{"formatVersion":1,"name":"x","canvas":[],"viewport":{"zoom":1,"transform":[1,0,0,1,0,0]},"createdAt":"2025-01-02T03:04:05Z","updatedAt":"2025-01-02T03:04:05Z"}`,
		"objects string":  `{"formatVersion":1,"name":"x","canvas":{"objects":"no"},"viewport":{"zoom":1,"transform":[1,0,0,1,0,0]},"createdAt":"2025-01-02T03:04:05Z","updatedAt":"2025-01-02T03:04:05Z"}`,
		"node without id": `{"formatVersion":1,"name":"x","canvas":{"objects":[{"type":"Rect"}]},"viewport":{"zoom":1,"transform":[1,0,0,1,0,0]},"createdAt":"2025-01-02T03:04:05Z","updatedAt":"2025-01-02T03:04:05Z"}`,
		"zero zoom":       `{"formatVersion":1,"name":"x","canvas":{"objects":[]},"viewport":{"zoom":0,"transform":[1,0,0,1,0,0]},"createdAt":"2025-01-02T03:04:05Z","updatedAt":"2025-01-02T03:04:05Z"}`,
		"short transform": `{"formatVersion":1,"name":"x","canvas":{"objects":[]},"viewport":{"zoom":1,"transform":[1,0,0]},"createdAt":"2025-01-02T03:04:05Z","updatedAt":"2025-01-02T03:04:05Z"}`,
		"bad timestamp":   `{"formatVersion":1,"name":"x","canvas":{"objects":[]},"viewport":{"zoom":1,"transform":[1,0,0,1,0,0]},"createdAt":"yesterday","updatedAt":"2025-01-02T03:04:05Z"}`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := domain.ParseDocument([]byte(data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrFormat), "got %v", err)
		})
	}
}

// ─────────────────────────────────────────────────────────────
// Round trip
// ─────────────────────────────────────────────────────────────

func TestRoundTrip_PreservesUnknownFields(t *testing.T) {
	doc, err := domain.ParseDocument([]byte(sampleDocument))
	require.NoError(t, err)

	out, err := domain.EncodeDocument(doc)
	require.NoError(t, err)

	again, err := domain.ParseDocument(out)
	require.NoError(t, err)

	var want, got map[string]any
	require.NoError(t, json.Unmarshal([]byte(sampleDocument), &want))
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, want, got)

	out2, err := domain.EncodeDocument(again)
	require.NoError(t, err)
	assert.Equal(t, string(out), string(out2))

	// text content is written without HTML escaping
	assert.Contains(t, string(out), `"<b>&amp;</b>"`)
}

func documentWithCanvas(canvas string) []byte {
	return []byte(fmt.Sprintf(`{
  "formatVersion": 1,
  "name": "Edge",
  "canvas": %s,
  "viewport": {"zoom": 1, "transform": [1, 0, 0, 1, 0, 0]},
  "createdAt": "2025-01-02T03:04:05Z",
  "updatedAt": "2025-01-02T03:04:05Z"
}`, canvas))
}

func encodedCanvas(t *testing.T, data []byte) string {
	t.Helper()
	doc, err := domain.ParseDocument(data)
	require.NoError(t, err)
	raw, err := json.Marshal(doc.Canvas)
	require.NoError(t, err)
	return string(raw)
}

func TestRoundTrip_KeepsNonStringCanvasVersion(t *testing.T) {
	tests := []struct {
		name   string
		canvas string
		want   string
	}{
		{
			name:   "number",
			canvas: `{"version": 7, "objects": [{"type": "Rect", "id": "a"}]}`,
			want:   `{"version":7,"objects":[{"type":"Rect","id":"a"}]}`,
		},
		{
			name:   "empty string",
			canvas: `{"background": "#fff", "version": "", "objects": []}`,
			want:   `{"background":"#fff","version":"","objects":[]}`,
		},
		{
			name:   "null",
			canvas: `{"version": null, "objects": []}`,
			want:   `{"version":null,"objects":[]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, encodedCanvas(t, documentWithCanvas(tt.canvas)))
		})
	}
}

func TestRoundTrip_KeepsLargeIntegersExact(t *testing.T) {
	data := documentWithCanvas(`{
    "version": "7.0.0",
    "seed": 18446744073709551615,
    "objects": [
      {"type": "Rect", "id": "a", "seed": 9007199254740993, "ids": [-9223372036854775808, 3], "left": 1.5}
    ]
  }`)

	assert.Equal(t,
		`{"version":"7.0.0","seed":18446744073709551615,"objects":[{"type":"Rect","id":"a","seed":9007199254740993,"ids":[-9223372036854775808,3],"left":1.5}]}`,
		encodedCanvas(t, data))

	doc, err := domain.ParseDocument(data)
	require.NoError(t, err)
	n, ok := doc.Find("a")
	require.True(t, ok)

	left, ok := n.Number("left")
	require.True(t, ok)
	assert.Equal(t, 1.5, left)

	seed, ok := n.Number("seed")
	require.True(t, ok)
	assert.Equal(t, 9007199254740992.0, seed)

	ids, _ := n.Get("ids")
	assert.Equal(t, []any{json.Number("-9223372036854775808"), 3.0}, ids)
}

func TestRoundTrip_KeepsFieldOrder(t *testing.T) {
	doc, err := domain.ParseDocument([]byte(sampleDocument))
	require.NoError(t, err)

	raw, err := json.Marshal(doc.Canvas.Objects[0])
	require.NoError(t, err)
	assert.Equal(t,
		`{"type":"Rect","id":"r1","left":10,"top":20,"customTag":{"a":[1,2]},"shadow":null}`,
		string(raw))
}

func TestNewDocument(t *testing.T) {
	doc := domain.NewDocument("Plan")

	assert.Equal(t, uint32(domain.FormatVersion), doc.FormatVersion)
	assert.Equal(t, "Plan", doc.Name)
	assert.Empty(t, doc.Canvas.Objects)
	assert.Equal(t, domain.DefaultViewport(), doc.Viewport)
	assert.Equal(t, doc.CreatedAt, doc.UpdatedAt)

	out, err := domain.EncodeDocument(doc)
	require.NoError(t, err)

	parsed, err := domain.ParseDocument(out)
	require.NoError(t, err)
	assert.Equal(t, "Plan", parsed.Name)
	assert.True(t, doc.CreatedAt.Equal(parsed.CreatedAt))
}
