package encoding

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JSONCodec stores values as json.RawMessage and writes documents as JSON.
type JSONCodec struct {
	Pretty bool
}

var _ Codec = JSONCodec{}

type jsonRecordOut struct {
	Parent any             `json:"parent,omitempty"`
	Path   any             `json:"path,omitempty"`
	Value  json.RawMessage `json:"value,omitempty"`
}

type jsonRecordIn struct {
	Parent json.RawMessage `json:"parent"`
	Path   json.RawMessage `json:"path"`
	Value  json.RawMessage `json:"value"`
}

func (c JSONCodec) Name() string {
	if c.Pretty {
		return "json"
	}
	return "json-compact"
}

func (JSONCodec) HumanReadable() bool { return true }

func (JSONCodec) EncodeValue(v any) (Value, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

func (JSONCodec) DecodeValue(value Value, out any) error {
	raw, err := jsonRaw(value)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	return json.Unmarshal(raw, out)
}

func (JSONCodec) IsEmpty(value Value) bool {
	raw, err := jsonRaw(value)
	if err != nil {
		return false
	}
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func (c JSONCodec) Marshal(doc Document) ([]byte, error) {
	out := make(map[string][]jsonRecordOut, len(doc))
	for name, records := range doc {
		group := make([]jsonRecordOut, 0, len(records))
		for _, r := range records {
			raw, err := jsonRaw(r.Value)
			if err != nil {
				return nil, fmt.Errorf("type %s: %w", name, err)
			}
			if c.IsEmpty(raw) {
				raw = nil
			}
			group = append(group, jsonRecordOut{
				Parent: r.Parent.untagged(),
				Path:   r.Path.untagged(),
				Value:  raw,
			})
		}
		out[name] = group
	}
	if c.Pretty {
		return json.MarshalIndent(out, "", "  ")
	}
	return json.Marshal(out)
}

func (c JSONCodec) MarshalString(doc Document) (string, error) {
	data, err := c.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (JSONCodec) Unmarshal(data []byte) (Document, error) {
	var in map[string][]jsonRecordIn
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	doc := make(Document, len(in))
	for name, records := range in {
		group := make([]PathedValue, 0, len(records))
		for i, r := range records {
			parent, err := jsonUnion(r.Parent)
			if err != nil {
				return nil, fmt.Errorf("%s[%d].parent: %w", name, i, err)
			}
			path, err := jsonUnion(r.Path)
			if err != nil {
				return nil, fmt.Errorf("%s[%d].path: %w", name, i, err)
			}
			group = append(group, PathedValue{
				Parent: parentFromUntagged(parent),
				Path:   pathFromUntagged(path),
				Value:  r.Value,
			})
		}
		doc[name] = group
	}
	return doc, nil
}

// jsonUnion decodes the untagged union: absent or null, an entity id, or a path.
func jsonUnion(raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, err
		}
		return s, nil
	}
	var id uint64
	if err := json.Unmarshal(trimmed, &id); err != nil {
		return nil, fmt.Errorf("%w: expected entity id or path, got %s", ErrMalformedDocument, trimmed)
	}
	return id, nil
}

func jsonRaw(value Value) (json.RawMessage, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return v, nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("json codec cannot hold value of type %T", value)
	}
}
