package ndwcs

import (
	"fmt"
)

// Dataset is an N-dimensional data view together with its coordinate
// transform, the mask of axes sliced away since construction, and an
// optional reference array addressing the frames the data came from.
// Datasets are immutable; Slice returns a derived dataset.
type Dataset struct {
	data      *Array
	transform Transform
	mask      MissingAxisMask
	refs      *ReferenceArray
	meta      Attributes
}

// DatasetOption configures NewDataset
type DatasetOption func(*Dataset)

// WithReferences attaches the frame reference array. Its shape must be a
// prefix of the data shape.
func WithReferences(r *ReferenceArray) DatasetOption {
	return func(d *Dataset) { d.refs = r }
}

// WithMeta attaches extra named fields
func WithMeta(meta Attributes) DatasetOption {
	return func(d *Dataset) { d.meta = meta }
}

// NewDataset combines a data view with its transform. A nil transform is
// taken as NoTransform.
func NewDataset(data *Array, t Transform, opts ...DatasetOption) (*Dataset, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: dataset without data", ErrSchema)
	}
	if t == nil {
		t = NoTransform{}
	}
	d := &Dataset{data: data, transform: t}
	for _, opt := range opts {
		opt(d)
	}
	if ct, ok := t.(*CompositeTransform); ok {
		if ct.PixelAxes() != data.Ndim() {
			return nil, fmt.Errorf("%w: transform takes %d pixel axes, data has %d",
				ErrAxisCount, ct.PixelAxes(), data.Ndim())
		}
		d.mask = NewMask(data.Ndim())
	}
	if d.refs != nil {
		rs, ds := d.refs.shape, data.shape
		if len(rs) > len(ds) {
			return nil, fmt.Errorf("%w: reference shape %v longer than data shape %v", ErrDimensionMismatch, rs, ds)
		}
		for i := range rs {
			if rs[i] != ds[i] {
				return nil, fmt.Errorf("%w: reference shape %v is not a prefix of data shape %v", ErrDimensionMismatch, rs, ds)
			}
		}
	}
	return d, nil
}

func (d *Dataset) Data() *Array                { return d.data }
func (d *Dataset) Transform() Transform        { return d.transform }
func (d *Dataset) Mask() MissingAxisMask       { return d.mask.Clone() }
func (d *Dataset) References() *ReferenceArray { return d.refs }
func (d *Dataset) Meta() Attributes            { return d.meta }

// Slice returns the dataset selected by e. The data view, the transform and
// mask, and the reference array are sliced together; d is left untouched.
func (d *Dataset) Slice(e Expr) (*Dataset, error) {
	if len(e) > d.data.Ndim() {
		return nil, fmt.Errorf("%w: %d-axis slice of %d-axis dataset", ErrDimensionMismatch, len(e), d.data.Ndim())
	}
	norm, err := e.Normalize(d.data.shape)
	if err != nil {
		return nil, err
	}
	data, err := d.data.Slice(norm)
	if err != nil {
		return nil, err
	}
	t, mask, err := Slice(d.transform, d.mask, norm)
	if err != nil {
		return nil, err
	}
	next := &Dataset{data: data, transform: t, mask: mask, meta: d.meta}
	if d.refs != nil {
		if next.refs, err = d.refs.Slice(norm[:len(d.refs.shape)]); err != nil {
			return nil, err
		}
	}
	return next, nil
}

// Labels names each data axis, from the transform when there is one
func (d *Dataset) Labels() []string {
	if ct, ok := d.transform.(*CompositeTransform); ok {
		return ct.PixelLabels()
	}
	labels := make([]string, d.data.Ndim())
	for i := range labels {
		labels[i] = fmt.Sprintf("axis %d", i)
	}
	return labels
}

// PlotTarget is a drawing surface supplied by a plotting collaborator
type PlotTarget interface {
	Draw(view *Array, labels []string) error
}

// Plot hands the current data view and axis labels to target. Without
// labels, Labels() is used.
func (d *Dataset) Plot(target PlotTarget, labels ...string) error {
	if target == nil {
		return fmt.Errorf("%w: no plot target", ErrSchema)
	}
	if len(labels) == 0 {
		labels = d.Labels()
	}
	if len(labels) != d.data.Ndim() {
		return fmt.Errorf("%w: %d labels for %d-axis data", ErrAxisCount, len(labels), d.data.Ndim())
	}
	return target.Draw(d.data, labels)
}
