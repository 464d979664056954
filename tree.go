package ndwcs

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	TreeKeyTransform  = "gwcs"
	TreeKeyDataset    = "dataset"
	TreeKeyReferences = "references"
)

// Tree is the structure handed to the persistence collaborator: the
// transform, the dataset payload, the reference array and any extra
// named fields
type Tree map[string]interface{}

// payload is the dataset entry of a Tree
type payload struct {
	Shape       []int           `json:"shape"`
	Data        []float64       `json:"data"`
	MissingAxes MissingAxisMask `json:"missing_axes,omitempty"`
	Meta        Attributes      `json:"meta,omitempty"`
}

// NewTree assembles the persistence tree of ds. Extra fields become top
// level keys and may not replace the reserved ones.
func NewTree(ds *Dataset, extra map[string]interface{}) (Tree, error) {
	t := Tree{
		TreeKeyTransform: ds.transform,
		TreeKeyDataset: payload{
			Shape:       ds.data.Shape(),
			Data:        ds.data.Values(),
			MissingAxes: ds.Mask(),
			Meta:        ds.meta,
		},
	}
	if ds.refs != nil {
		t[TreeKeyReferences] = ds.refs.Nested()
	}
	for k, v := range extra {
		switch k {
		case TreeKeyTransform, TreeKeyDataset, TreeKeyReferences:
			return nil, fmt.Errorf("%w: extra field %q replaces a reserved tree key", ErrSchema, k)
		}
		t[k] = v
	}
	return t, nil
}

// TreeWriter persists trees. Implementations live with the storage format.
type TreeWriter interface {
	WriteTree(name string, t Tree) error
}

// JSONTreeWriter writes trees as JSON documents into a Store
type JSONTreeWriter struct {
	Store Store
}

var _ TreeWriter = JSONTreeWriter{}

func (w JSONTreeWriter) WriteTree(name string, t Tree) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode tree %s: %w", name, err)
	}
	return w.Store.Put(NewPath(name).String(), bytes.NewReader(data))
}

// WriteTree assembles the tree of ds and hands it to w under name
func WriteTree(w TreeWriter, name string, ds *Dataset, extra map[string]interface{}) error {
	t, err := NewTree(ds, extra)
	if err != nil {
		return err
	}
	T().Debugf("writing tree %s with %d keys", name, len(t))
	return w.WriteTree(name, t)
}
