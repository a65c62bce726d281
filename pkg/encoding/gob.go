package encoding

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"reflect"
)

// GobCodec is a compact binary codec. Values are stored as gob encoded bytes
// and the document uses tagged unions. It has no human readable form.
type GobCodec struct{}

var _ Codec = GobCodec{}

type gobRecord struct {
	Parent tagged
	Path   tagged
	Value  []byte
}

type gobGroup struct {
	Name    string
	Records []gobRecord
}

func (GobCodec) Name() string { return "gob" }

func (GobCodec) HumanReadable() bool { return false }

func (GobCodec) EncodeValue(v any) (Value, error) {
	// gob rejects types without exported fields; they carry no data anyway.
	if !gobEncodable(reflect.TypeOf(v)) {
		return []byte{}, nil
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (GobCodec) DecodeValue(value Value, out any) error {
	data, err := gobBytes(value)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return gob.NewDecoder(bytes.NewReader(data)).Decode(out)
}

func (GobCodec) IsEmpty(value Value) bool {
	data, err := gobBytes(value)
	return err == nil && len(data) == 0
}

// Marshal writes groups sorted by type name so equal documents produce equal bytes.
func (GobCodec) Marshal(doc Document) ([]byte, error) {
	groups := make([]gobGroup, 0, len(doc))
	for _, name := range doc.TypeNames() {
		records := doc[name]
		group := gobGroup{Name: name, Records: make([]gobRecord, 0, len(records))}
		for _, r := range records {
			data, err := gobBytes(r.Value)
			if err != nil {
				return nil, fmt.Errorf("type %s: %w", name, err)
			}
			group.Records = append(group.Records, gobRecord{
				Parent: r.Parent.tagged(),
				Path:   r.Path.tagged(),
				Value:  data,
			})
		}
		groups = append(groups, group)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(groups); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c GobCodec) MarshalString(Document) (string, error) {
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, c.Name())
}

func (GobCodec) Unmarshal(data []byte) (Document, error) {
	var groups []gobGroup
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&groups); err != nil {
		return nil, err
	}
	doc := make(Document, len(groups))
	for _, g := range groups {
		if _, dup := doc[g.Name]; dup {
			return nil, fmt.Errorf("%w: type %s appears twice", ErrMalformedDocument, g.Name)
		}
		records := make([]PathedValue, 0, len(g.Records))
		for i, r := range g.Records {
			parent, err := r.Parent.parent()
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", g.Name, i, err)
			}
			path, err := r.Path.path()
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", g.Name, i, err)
			}
			records = append(records, PathedValue{Parent: parent, Path: path, Value: r.Value})
		}
		doc[g.Name] = records
	}
	return doc, nil
}

func gobBytes(value Value) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("gob codec cannot hold value of type %T", value)
	}
}

func gobEncodable(t reflect.Type) bool {
	if t == nil {
		return false
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return true
	}
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() {
			return true
		}
	}
	return false
}
