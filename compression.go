package ndwcs

import (
	"io"

	"github.com/qri-io/dataset/compression"
)

// CompressionMeta names the codec a stored object was written with.
// The JSON layout follows the zarr "compressor" object.
type CompressionMeta struct {
	ID      string `json:"id"`
	Cname   string `json:"cname,omitempty"`
	Clevel  int    `json:"clevel,omitempty"`
	Shuffle int    `json:"shuffle,omitempty"`
}

// Decompressor wraps r in a decompressing reader. A nil CompressionMeta or an
// empty codec id passes r through untouched.
func (m *CompressionMeta) Decompressor(r io.ReadCloser) (io.ReadCloser, error) {
	if m == nil || m.ID == "" {
		return r, nil
	}
	return compression.Decompressor(m.ID, r)
}
