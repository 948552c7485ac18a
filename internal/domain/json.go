package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// rawObject is a parsed JSON object whose members keep their source order.
type rawObject = orderedmap.OrderedMap[string, json.RawMessage]

// decodeObject parses data as a JSON object, keeping member order.
func decodeObject(data []byte) (*rawObject, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("expected a JSON object")
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("malformed JSON object")
	}
	obj := orderedmap.New[string, json.RawMessage]()
	if err := obj.UnmarshalJSON(trimmed); err != nil {
		return nil, err
	}
	return obj, nil
}

// maxExactInt is the largest integer magnitude a float64 holds exactly.
const maxExactInt = 1 << 53

// decodeValue parses one field value. Numbers become float64, except integers
// a float64 cannot hold exactly, which stay json.Number so their digits are
// written back unchanged.
func decodeValue(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return normalizeNumbers(v), nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		return numberValue(t)
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
	case []any:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
	}
	return v
}

func numberValue(n json.Number) any {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil || i > maxExactInt || i < -maxExactInt {
			return n
		}
		return float64(i)
	}
	f, err := n.Float64()
	if err != nil {
		return n
	}
	return f
}

func isJSONArray(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func isJSONNull(data json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

// marshalValue encodes v without HTML escaping so text content is written
// back exactly as it was read.
func marshalValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// objectWriter builds a JSON object member by member.
type objectWriter struct {
	buf   bytes.Buffer
	count int
	err   error
}

func newObjectWriter() *objectWriter {
	w := &objectWriter{}
	w.buf.WriteByte('{')
	return w
}

func (w *objectWriter) member(key string, value any) {
	if w.err != nil {
		return
	}
	k, err := marshalValue(key)
	if err != nil {
		w.err = err
		return
	}
	v, err := marshalValue(value)
	if err != nil {
		w.err = fmt.Errorf("field %q: %w", key, err)
		return
	}
	if w.count > 0 {
		w.buf.WriteByte(',')
	}
	w.buf.Write(k)
	w.buf.WriteByte(':')
	w.buf.Write(v)
	w.count++
}

// props writes every member of p except the reserved keys.
func (w *objectWriter) props(p *Props, reserved ...string) {
	if p == nil {
		return
	}
outer:
	for pair := p.Oldest(); pair != nil; pair = pair.Next() {
		for _, r := range reserved {
			if pair.Key == r {
				continue outer
			}
		}
		w.member(pair.Key, pair.Value)
	}
}

func (w *objectWriter) bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	w.buf.WriteByte('}')
	return w.buf.Bytes(), nil
}
