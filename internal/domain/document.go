package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	// FormatVersion is written into every new document.
	FormatVersion = 1
	// RendererVersion tags the canvas and every created node.
	RendererVersion = "7.0.0"
	// DefaultName names documents created without an explicit name.
	DefaultName = "Untitled"
	// Extension is the file extension of a document on disk.
	Extension = ".easel"
)

var validate = validator.New()

// Viewport is the pan/zoom state of the editor.
type Viewport struct {
	Zoom      float64   `json:"zoom" validate:"gt=0"`
	Transform []float64 `json:"transform" validate:"len=6"`
}

// DefaultViewport is the identity viewport at zoom 1.
func DefaultViewport() Viewport {
	return Viewport{Zoom: 1, Transform: []float64{1, 0, 0, 1, 0, 0}}
}

// Canvas is the root container of a document: a renderer version tag, the
// top-level object sequence and any other renderer keys, kept in order. A
// version that is not a string is kept in Extra.
type Canvas struct {
	Version string
	Objects []*Node
	Extra   *Props
}

// NewCanvas returns an empty canvas at the current renderer version.
func NewCanvas() Canvas {
	return Canvas{Version: RendererVersion, Objects: []*Node{}, Extra: NewProps()}
}

func (c Canvas) MarshalJSON() ([]byte, error) {
	w := newObjectWriter()
	if c.Version != "" {
		w.member("version", c.Version)
		w.props(c.Extra, "version", "objects")
	} else {
		w.props(c.Extra, "objects")
	}
	objects := c.Objects
	if objects == nil {
		objects = []*Node{}
	}
	w.member("objects", objects)
	return w.bytes()
}

// UnmarshalJSON accepts null as an empty canvas and synthesizes a missing
// objects sequence.
func (c *Canvas) UnmarshalJSON(data []byte) error {
	if isJSONNull(data) {
		*c = NewCanvas()
		return nil
	}
	fields, err := decodeObject(data)
	if err != nil {
		return fmt.Errorf("canvas: %w", err)
	}

	parsed := Canvas{Objects: []*Node{}, Extra: NewProps()}
	for pair := fields.Oldest(); pair != nil; pair = pair.Next() {
		switch pair.Key {
		case "version":
			var v string
			if err := json.Unmarshal(pair.Value, &v); err == nil && v != "" {
				parsed.Version = v
				continue
			}
		case "objects":
			if !isJSONArray(pair.Value) {
				return fmt.Errorf("canvas objects must be an array")
			}
			nodes, err := decodeNodes(pair.Value)
			if err != nil {
				return fmt.Errorf("canvas: %w", err)
			}
			parsed.Objects = nodes
			continue
		}
		v, err := decodeValue(pair.Value)
		if err != nil {
			return fmt.Errorf("canvas field %q: %w", pair.Key, err)
		}
		parsed.Extra.Set(pair.Key, v)
	}
	*c = parsed
	return nil
}

// Document is one canvas unit persisted as a single file.
type Document struct {
	FormatVersion uint32    `json:"formatVersion"`
	Name          string    `json:"name"`
	Canvas        Canvas    `json:"canvas"`
	Viewport      Viewport  `json:"viewport"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NewDocument returns an empty document named name.
func NewDocument(name string) *Document {
	now := time.Now().UTC()
	return &Document{
		FormatVersion: FormatVersion,
		Name:          name,
		Canvas:        NewCanvas(),
		Viewport:      DefaultViewport(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Touch refreshes the modification timestamp.
func (d *Document) Touch() {
	d.UpdatedAt = time.Now().UTC()
}

// ObjectCount is the number of top-level nodes.
func (d *Document) ObjectCount() int {
	return len(d.Canvas.Objects)
}

type documentWire struct {
	FormatVersion *uint32    `json:"formatVersion"`
	Name          *string    `json:"name"`
	Canvas        *Canvas    `json:"canvas"`
	Viewport      *Viewport  `json:"viewport"`
	CreatedAt     *time.Time `json:"createdAt"`
	UpdatedAt     *time.Time `json:"updatedAt"`
}

// UnmarshalJSON requires every top-level field to be present. A canvas
// given as null is replaced by an empty one.
func (d *Document) UnmarshalJSON(data []byte) error {
	var w documentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	// encoding/json leaves a pointer nil for null, so presence is checked on
	// the raw member.
	canvasRaw := rawMember(data, "canvas")
	canvas := NewCanvas()
	if w.Canvas != nil {
		canvas = *w.Canvas
	}

	switch {
	case w.FormatVersion == nil:
		return fmt.Errorf("missing field formatVersion")
	case w.Name == nil:
		return fmt.Errorf("missing field name")
	case canvasRaw == nil:
		return fmt.Errorf("missing field canvas")
	case w.Viewport == nil:
		return fmt.Errorf("missing field viewport")
	case w.CreatedAt == nil:
		return fmt.Errorf("missing field createdAt")
	case w.UpdatedAt == nil:
		return fmt.Errorf("missing field updatedAt")
	}

	*d = Document{
		FormatVersion: *w.FormatVersion,
		Name:          *w.Name,
		Canvas:        canvas,
		Viewport:      *w.Viewport,
		CreatedAt:     *w.CreatedAt,
		UpdatedAt:     *w.UpdatedAt,
	}
	return nil
}

// rawMember returns the raw value of a top-level object member, or nil.
func rawMember(data []byte, key string) json.RawMessage {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil
	}
	return members[key]
}

// ParseDocument decodes and structurally validates a document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if err := validate.Struct(doc.Viewport); err != nil {
		return nil, fmt.Errorf("%w: viewport: %v", ErrFormat, err)
	}
	return &doc, nil
}

// EncodeDocument renders the canonical two-space indented form.
func EncodeDocument(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DocumentGateway loads and stores whole documents by path.
type DocumentGateway interface {
	// Load returns ErrNotFound for a missing document, ErrFormat for one
	// that does not parse and ErrIO for any other read failure.
	Load(ctx context.Context, path string) (*Document, error)
	// Save replaces the document at path as a single unit.
	Save(ctx context.Context, path string, doc *Document) error
	Exists(ctx context.Context, path string) (bool, error)
	// List returns every document path under dir, recursively.
	List(ctx context.Context, dir string) ([]string, error)
}
