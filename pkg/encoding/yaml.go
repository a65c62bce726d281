package encoding

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAMLCodec stores values as yaml nodes and writes documents as YAML.
type YAMLCodec struct{}

var _ Codec = YAMLCodec{}

type yamlRecordOut struct {
	Parent any        `yaml:"parent,omitempty"`
	Path   any        `yaml:"path,omitempty"`
	Value  *yaml.Node `yaml:"value,omitempty"`
}

type yamlRecordIn struct {
	Parent yaml.Node `yaml:"parent"`
	Path   yaml.Node `yaml:"path"`
	Value  yaml.Node `yaml:"value"`
}

func (YAMLCodec) Name() string { return "yaml" }

func (YAMLCodec) HumanReadable() bool { return true }

func (YAMLCodec) EncodeValue(v any) (Value, error) {
	node := &yaml.Node{}
	if err := node.Encode(v); err != nil {
		return nil, err
	}
	return node, nil
}

func (YAMLCodec) DecodeValue(value Value, out any) error {
	node, err := yamlNode(value)
	if err != nil {
		return err
	}
	if node == nil || node.Kind == 0 {
		return nil
	}
	return node.Decode(out)
}

func (YAMLCodec) IsEmpty(value Value) bool {
	node, err := yamlNode(value)
	if err != nil {
		return false
	}
	return node == nil || node.Kind == 0 || (node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null")
}

func (c YAMLCodec) Marshal(doc Document) ([]byte, error) {
	out := make(map[string][]yamlRecordOut, len(doc))
	for name, records := range doc {
		group := make([]yamlRecordOut, 0, len(records))
		for _, r := range records {
			node, err := yamlNode(r.Value)
			if err != nil {
				return nil, fmt.Errorf("type %s: %w", name, err)
			}
			if c.IsEmpty(node) {
				node = nil
			}
			group = append(group, yamlRecordOut{
				Parent: r.Parent.untagged(),
				Path:   r.Path.untagged(),
				Value:  node,
			})
		}
		out[name] = group
	}
	return yaml.Marshal(out)
}

func (c YAMLCodec) MarshalString(doc Document) (string, error) {
	data, err := c.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (YAMLCodec) Unmarshal(data []byte) (Document, error) {
	var in map[string][]yamlRecordIn
	if err := yaml.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	doc := make(Document, len(in))
	for name, records := range in {
		group := make([]PathedValue, 0, len(records))
		for i, r := range records {
			parent, err := yamlUnion(&r.Parent)
			if err != nil {
				return nil, fmt.Errorf("%s[%d].parent: %w", name, i, err)
			}
			path, err := yamlUnion(&r.Path)
			if err != nil {
				return nil, fmt.Errorf("%s[%d].path: %w", name, i, err)
			}
			var value Value
			if r.Value.Kind != 0 {
				node := r.Value
				value = &node
			}
			group = append(group, PathedValue{
				Parent: parentFromUntagged(parent),
				Path:   pathFromUntagged(path),
				Value:  value,
			})
		}
		doc[name] = group
	}
	return doc, nil
}

func yamlUnion(node *yaml.Node) (any, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("%w: expected entity id or path at line %d", ErrMalformedDocument, node.Line)
	}
	switch node.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!str":
		return node.Value, nil
	case "!!int":
		var id uint64
		if err := node.Decode(&id); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
		return id, nil
	default:
		return nil, fmt.Errorf("%w: unexpected %s at line %d", ErrMalformedDocument, node.ShortTag(), node.Line)
	}
}

func yamlNode(value Value) (*yaml.Node, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *yaml.Node:
		return v, nil
	default:
		return nil, fmt.Errorf("yaml codec cannot hold value of type %T", value)
	}
}
