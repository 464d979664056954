package ndwcs

import (
	"fmt"
)

// Array is a strided, row-major view over float64 data. Slicing an Array
// creates a new view sharing the backing data.
type Array struct {
	data    []float64
	shape   []int
	strides []int
	offset  int
}

// NewArray wraps data in an array of the given shape
func NewArray(data []float64, shape ...int) (*Array, error) {
	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("%w: negative dimension in shape %v", ErrIndex, shape)
		}
	}
	if product(shape) != len(data) {
		return nil, fmt.Errorf("%w: %d values for shape %v", ErrCountMismatch, len(data), shape)
	}
	return &Array{
		data:    data,
		shape:   append([]int(nil), shape...),
		strides: rowMajorStrides(shape),
	}, nil
}

// Shape returns a copy of the array dimensions
func (a *Array) Shape() []int { return append([]int(nil), a.shape...) }

// Ndim is the number of dimensions
func (a *Array) Ndim() int { return len(a.shape) }

// Size is the number of elements
func (a *Array) Size() int { return product(a.shape) }

// At returns the element at idx, which must have one index per dimension
func (a *Array) At(idx ...int) (float64, error) {
	if len(idx) != len(a.shape) {
		return 0, fmt.Errorf("%w: %d indices for %d-axis array", ErrDimensionMismatch, len(idx), len(a.shape))
	}
	off := a.offset
	for i, v := range idx {
		if v < 0 || v >= a.shape[i] {
			return 0, fmt.Errorf("%w: index %d for axis %d of length %d", ErrIndex, v, i, a.shape[i])
		}
		off += v * a.strides[i]
	}
	return a.data[off], nil
}

// Slice returns a view of a selected by e. Indexed axes are dropped.
func (a *Array) Slice(e Expr) (*Array, error) {
	norm, err := e.Normalize(a.shape)
	if err != nil {
		return nil, err
	}
	v := &Array{data: a.data, offset: a.offset}
	for axis, s := range norm {
		v.offset += s.Start * a.strides[axis]
		if s.Kind == KindIndex {
			continue
		}
		v.shape = append(v.shape, s.length())
		v.strides = append(v.strides, a.strides[axis]*s.step())
	}
	return v, nil
}

// Values copies the elements of a in row-major order
func (a *Array) Values() []float64 {
	out := make([]float64, 0, a.Size())
	if a.Size() == 0 {
		return out
	}
	idx := make([]int, len(a.shape))
	for {
		off := a.offset
		for i, v := range idx {
			off += v * a.strides[i]
		}
		out = append(out, a.data[off])

		i := len(idx) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < a.shape[i] {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return out
		}
	}
}
