package ndwcs

import (
	"encoding/json"
	"fmt"
	"io"
)

type MetaType string

const (
	// MTAttributes stores userland metadata keyed by array name
	MTAttributes MetaType = ".zattrs"
	// MTArray is the key for storing frame metadata in a store
	MTArray MetaType = ".zarray"
	// MTGroup is the key for storing group definitions in a store
	MTGroup MetaType = ".zgroup"
)

var metaTypes = map[MetaType]struct{}{
	MTAttributes: {},
	MTArray:      {},
	MTGroup:      {},
}

// KeyMetaType reports the metadata type a store key points at.
// Relies on the fact that all keynames are 7 characters long.
func KeyMetaType(s string) (mt MetaType, ok bool) {
	if len(s) < 7 {
		return mt, false
	}
	mt = MetaType(s[len(s)-7:])
	_, ok = metaTypes[mt]
	return mt, ok
}

// Attributes are free-form named fields carried alongside a dataset
type Attributes map[string]interface{}

// FrameMeta is the stored description of one frame array, using the zarr
// v2 ".zarray" layout. Only the dtype and shape are needed to address a
// frame; the remaining fields are carried for the persistence collaborator.
type FrameMeta struct {
	// Version of the storage specification the frame adheres to
	ZarrFormat int `json:"zarr_format"`
	// Length of each dimension of the frame
	Shape []int `json:"shape"`
	// Length of each dimension of a chunk of the frame
	Chunks []int `json:"chunks,omitempty"`
	// Element type of the frame
	Dtype Dtype `json:"dtype"`
	// Primary compression codec, or nil
	Compressor *CompressionMeta `json:"compressor"`
	// Default value for uninitialized portions of the frame, or nil
	FillValue interface{} `json:"fill_value"`
	// Either "C" (row-major) or "F" (column-major)
	Order string `json:"order"`
}

// ReadFrameMeta decodes frame metadata and applies defaults
func ReadFrameMeta(r io.Reader) (*FrameMeta, error) {
	m := &FrameMeta{}
	if err := json.NewDecoder(r).Decode(m); err != nil {
		return nil, fmt.Errorf("%w: reading frame metadata: %s", ErrSchema, err)
	}
	if m.Order == "" {
		m.Order = "C"
	}
	if m.Order != "C" && m.Order != "F" {
		return nil, fmt.Errorf("%w: invalid frame order %q", ErrSchema, m.Order)
	}
	for _, d := range m.Shape {
		if d < 0 {
			return nil, fmt.Errorf("%w: negative dimension in frame shape %v", ErrSchema, m.Shape)
		}
	}
	return m, nil
}
