package encoding

import (
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
)

// WriteFile marshals doc with c and writes it to path. It returns the bytes
// written.
func WriteFile(c Codec, path string, doc Document) ([]byte, error) {
	data, err := c.Marshal(doc)
	if err != nil {
		return nil, err
	}
	if err = os.WriteFile(path, data, 0o644); err != nil {
		return nil, err
	}
	return data, nil
}

// ReadFile reads path and unmarshals it with c.
func ReadFile(c Codec, path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return c.Unmarshal(data)
}

// Digest fingerprints an encoded document.
func Digest(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}
