// Package encoding defines the pluggable codecs used to persist snapshot
// documents, and the codec independent document model they operate on.
package encoding

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned when a human readable form is requested
	// from a binary only codec.
	ErrUnsupportedFormat = errors.New("format is not human-readable")
	// ErrUnknownCodec is returned by Lookup for unregistered codec names.
	ErrUnknownCodec = errors.New("unknown codec")
	// ErrMalformedDocument is returned when a document decodes but violates the wire shape.
	ErrMalformedDocument = errors.New("malformed document")
)

// Value is the intermediate structured form of a single component value.
// Its concrete type is owned by the codec that produced it.
type Value = any

// Codec converts structured values to and from bytes, strings and the
// intermediate Value form merged into a Document.
type Codec interface {
	Name() string
	HumanReadable() bool

	EncodeValue(v any) (Value, error)
	// DecodeValue fills out, which must be a pointer, from value.
	DecodeValue(value Value, out any) error
	// IsEmpty reports whether value is the codec's null value, which is
	// omitted from human readable documents.
	IsEmpty(value Value) bool

	Marshal(doc Document) ([]byte, error)
	MarshalString(doc Document) (string, error)
	Unmarshal(data []byte) (Document, error)
}

// Lookup returns the codec registered under name.
func Lookup(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return JSONCodec{Pretty: true}, nil
	case "json-compact":
		return JSONCodec{}, nil
	case "yaml", "yml":
		return YAMLCodec{}, nil
	case "gob", "binary":
		return GobCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// ContentType returns the media type used when a codec's output travels over HTTP.
func ContentType(c Codec) string {
	switch c.(type) {
	case JSONCodec, *JSONCodec:
		return "application/json"
	case YAMLCodec, *YAMLCodec:
		return "application/yaml"
	default:
		return "application/octet-stream"
	}
}
