package ndwcs

import (
	"fmt"

	"github.com/qri-io/ndwcs/units"
)

// MissingAxisMask has one entry per original pixel axis of a dataset,
// true where slicing collapsed that axis to a single index
type MissingAxisMask []bool

// NewMask returns a mask with n present axes
func NewMask(n int) MissingAxisMask { return make(MissingAxisMask, n) }

// Clone copies m
func (m MissingAxisMask) Clone() MissingAxisMask {
	if m == nil {
		return nil
	}
	return append(MissingAxisMask(nil), m...)
}

// Missing returns the original indices of collapsed axes
func (m MissingAxisMask) Missing() []int {
	var idx []int
	for i, v := range m {
		if v {
			idx = append(idx, i)
		}
	}
	return idx
}

// Present maps each current pixel axis to its original index
func (m MissingAxisMask) Present() []int {
	var idx []int
	for i, v := range m {
		if !v {
			idx = append(idx, i)
		}
	}
	return idx
}

// Slice derives the transform and mask of a sliced dataset. expr has one spec
// per current pixel axis (shorter expressions keep trailing axes whole) and
// must be in non-negative form, as produced by Expr.Normalize.
//
// A range moves the pixel origin of its axis to the range start and scales
// by the step. An index fixes its axis: the axis is removed from the inputs,
// its mask entry becomes true, and the group it fed is either specialized to
// its remaining free inputs or, if none remain, replaced by its constant
// world values. t, mask and the models they share are never modified.
//
// A nil mask means no axis has been collapsed yet.
func Slice(t Transform, mask MissingAxisMask, expr Expr) (Transform, MissingAxisMask, error) {
	switch tt := t.(type) {
	case nil, NoTransform:
		return NoTransform{}, nil, nil
	case *CompositeTransform:
		return sliceComposite(tt, mask, expr)
	default:
		return nil, nil, fmt.Errorf("%w: cannot slice transform of type %T", ErrSchema, t)
	}
}

func sliceComposite(t *CompositeTransform, mask MissingAxisMask, expr Expr) (*CompositeTransform, MissingAxisMask, error) {
	if mask == nil {
		mask = NewMask(t.naxes)
	}
	present := mask.Present()
	if len(present) != t.naxes {
		return nil, nil, fmt.Errorf("%w: mask has %d present axes, transform has %d",
			ErrDimensionMismatch, len(present), t.naxes)
	}
	if len(expr) > t.naxes {
		return nil, nil, fmt.Errorf("%w: %d-axis slice of %d-axis transform", ErrDimensionMismatch, len(expr), t.naxes)
	}

	specs := make(Expr, t.naxes)
	renumber := make([]int, t.naxes)
	kept := 0
	for axis := range specs {
		specs[axis] = All()
		if axis < len(expr) {
			specs[axis] = expr[axis]
		}
		if err := checkSpec(specs[axis]); err != nil {
			return nil, nil, fmt.Errorf("axis %d: %w", axis, err)
		}
		renumber[axis] = kept
		if specs[axis].Kind != KindIndex {
			kept++
		}
	}

	comps := make([]component, len(t.components))
	for i, c := range t.components {
		nc, err := sliceComponent(c, specs, renumber)
		if err != nil {
			return nil, nil, fmt.Errorf("axis group %q: %w", c.group, err)
		}
		comps[i] = nc
	}

	next := mask.Clone()
	for axis, s := range specs {
		if s.Kind == KindIndex {
			next[present[axis]] = true
		}
	}

	T().Debugf("sliced %d-axis transform with %s to %d axes, missing %v", t.naxes, expr, kept, next.Missing())
	return &CompositeTransform{naxes: kept, components: comps}, next, nil
}

func checkSpec(s SliceSpec) error {
	switch s.Kind {
	case KindAll:
		return nil
	case KindIndex:
		if s.Start < 0 {
			return fmt.Errorf("%w: index %d", ErrIndex, s.Start)
		}
	case KindRange:
		if s.Start < 0 && s.Start != Open {
			return fmt.Errorf("%w: range start %d", ErrIndex, s.Start)
		}
		if s.Step == 0 {
			return fmt.Errorf("%w: zero step", ErrIndex)
		}
		if s.step() < 0 {
			return fmt.Errorf("%w: negative step %d", ErrIndex, s.Step)
		}
	default:
		return fmt.Errorf("%w: unknown slice kind %d", ErrIndex, s.Kind)
	}
	return nil
}

func sliceComponent(c component, specs Expr, renumber []int) (component, error) {
	nc := c
	if c.isFixed() {
		return nc, nil
	}
	nc.axes = nil
	nc.offset = nil
	nc.stride = nil
	fix := map[int]units.Quantity{}
	for k, a := range c.axes {
		off, stride := c.offset[k], c.stride[k]
		switch s := specs[a]; s.Kind {
		case KindIndex:
			fix[k] = units.New(off+stride*float64(s.Start), units.Pixel)
			continue
		case KindRange:
			start := s.Start
			if start == Open {
				start = 0
			}
			off += stride * float64(start)
			stride *= float64(s.step())
		}
		nc.axes = append(nc.axes, renumber[a])
		nc.offset = append(nc.offset, off)
		nc.stride = append(nc.stride, stride)
	}
	if len(fix) == 0 {
		return nc, nil
	}

	m, err := FixInputs(c.model, fix)
	if err != nil {
		return component{}, err
	}
	nc.model = m
	if m.Inputs() > 0 {
		return nc, nil
	}
	vals, err := m.Evaluate()
	if err != nil {
		return component{}, err
	}
	for i, v := range vals {
		if v.IsNaN() {
			return component{}, fmt.Errorf("%w: world axis %d is NaN at the fixed pixel", ErrIndex, i)
		}
	}
	nc.fixed = vals
	return nc, nil
}
