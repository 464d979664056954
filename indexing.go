package ndwcs

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SpecKind is the kind of selection applied to one axis
type SpecKind int

const (
	// KindAll keeps the whole axis
	KindAll SpecKind = iota
	// KindRange keeps a strided range of the axis
	KindRange
	// KindIndex collapses the axis to a single index
	KindIndex
)

// Open marks an omitted range bound, like a missing bound in "2:" or ":5"
const Open = math.MinInt

// SliceSpec selects along one pixel axis
type SliceSpec struct {
	Kind  SpecKind
	Start int
	Stop  int
	Step  int
}

// All keeps every element of an axis
func All() SliceSpec { return SliceSpec{Kind: KindAll, Start: Open, Stop: Open, Step: 1} }

// Range keeps elements start up to, not including, stop
func Range(start, stop int) SliceSpec { return RangeStep(start, stop, 1) }

// RangeStep keeps every step-th element from start up to stop
func RangeStep(start, stop, step int) SliceSpec {
	return SliceSpec{Kind: KindRange, Start: start, Stop: stop, Step: step}
}

// Index collapses an axis to element i
func Index(i int) SliceSpec { return SliceSpec{Kind: KindIndex, Start: i} }

// step treats an unset step of a full axis as 1. A KindRange spec with a
// zero step is rejected by normalize.
func (s SliceSpec) step() int {
	if s.Step == 0 {
		return 1
	}
	return s.Step
}

func (s SliceSpec) String() string {
	switch s.Kind {
	case KindIndex:
		return strconv.Itoa(s.Start)
	case KindRange:
		str := bound(s.Start) + ":" + bound(s.Stop)
		if s.step() != 1 {
			str += ":" + strconv.Itoa(s.step())
		}
		return str
	default:
		return ":"
	}
}

func bound(b int) string {
	if b == Open {
		return ""
	}
	return strconv.Itoa(b)
}

// Expr is a slice expression with one spec per leading pixel axis. Axes past
// the end of the expression are kept whole.
type Expr []SliceSpec

func (e Expr) String() string {
	strs := make([]string, len(e))
	for i, s := range e {
		strs[i] = s.String()
	}
	return "[" + strings.Join(strs, ", ") + "]"
}

// ParseExpr parses numpy-style slice syntax such as "3, :, 2:10:2"
func ParseExpr(s string) (Expr, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(s), "["), "]"))
	if s == "" {
		return Expr{}, nil
	}
	parts := strings.Split(s, ",")
	e := make(Expr, len(parts))
	for i, p := range parts {
		spec, err := parseSpec(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("axis %d: %w", i, err)
		}
		e[i] = spec
	}
	return e, nil
}

func parseSpec(p string) (SliceSpec, error) {
	if !strings.Contains(p, ":") {
		i, err := strconv.Atoi(p)
		if err != nil {
			return SliceSpec{}, fmt.Errorf("invalid index %q", p)
		}
		return Index(i), nil
	}
	fields := strings.Split(p, ":")
	if len(fields) > 3 {
		return SliceSpec{}, fmt.Errorf("invalid range %q", p)
	}
	vals := []int{Open, Open, 1}
	for i, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.Atoi(f)
		if err != nil {
			return SliceSpec{}, fmt.Errorf("invalid range %q", p)
		}
		vals[i] = v
	}
	if vals[2] == 0 {
		return SliceSpec{}, fmt.Errorf("%w: zero step in %q", ErrIndex, p)
	}
	if vals[0] == Open && vals[1] == Open && vals[2] == 1 {
		return All(), nil
	}
	return RangeStep(vals[0], vals[1], vals[2]), nil
}

// Normalize resolves e against an array shape the way numpy does: negative
// indices count from the end, range bounds are clamped, omitted bounds are
// filled and missing trailing axes become full ranges. Out of range indices
// fail with ErrIndex. The result has one KindRange or KindIndex spec per axis.
func (e Expr) Normalize(shape []int) (Expr, error) {
	if len(e) > len(shape) {
		return nil, fmt.Errorf("%w: %d-axis slice of %d-axis array", ErrDimensionMismatch, len(e), len(shape))
	}
	out := make(Expr, len(shape))
	for axis, dim := range shape {
		spec := All()
		if axis < len(e) {
			spec = e[axis]
		}
		n, err := spec.normalize(dim)
		if err != nil {
			return nil, fmt.Errorf("axis %d: %w", axis, err)
		}
		out[axis] = n
	}
	return out, nil
}

func (s SliceSpec) normalize(dim int) (SliceSpec, error) {
	switch s.Kind {
	case KindIndex:
		i := s.Start
		if i < 0 {
			i += dim
		}
		if i < 0 || i >= dim {
			return SliceSpec{}, fmt.Errorf("%w: index %d for axis of length %d", ErrIndex, s.Start, dim)
		}
		return Index(i), nil
	case KindRange, KindAll:
		if s.Kind == KindRange && s.Step == 0 {
			return SliceSpec{}, fmt.Errorf("%w: zero step", ErrIndex)
		}
		step := s.step()
		if step < 0 {
			return SliceSpec{}, fmt.Errorf("%w: negative step %d", ErrIndex, step)
		}
		start := clampBound(s.Start, 0, dim)
		stop := clampBound(s.Stop, dim, dim)
		if stop < start {
			stop = start
		}
		return RangeStep(start, stop, step), nil
	default:
		return SliceSpec{}, fmt.Errorf("%w: unknown slice kind %d", ErrIndex, s.Kind)
	}
}

func clampBound(b, def, dim int) int {
	if b == Open {
		return def
	}
	if b < 0 {
		b += dim
	}
	if b < 0 {
		return 0
	}
	if b > dim {
		return dim
	}
	return b
}

// length is the number of elements a normalized range selects
func (s SliceSpec) length() int {
	if s.Kind != KindRange || s.Stop <= s.Start {
		return 0
	}
	step := s.step()
	return (s.Stop - s.Start + step - 1) / step
}

// selection is the projection of a normalized expression onto a row-major
// array: the shape of the result and the flat source offset of each of its
// elements, in row-major order
func selection(shape []int, e Expr) (outShape []int, flat []int) {
	strides := rowMajorStrides(shape)
	offsets := []int{0}
	for axis, s := range e {
		var picks []int
		switch s.Kind {
		case KindIndex:
			picks = []int{s.Start}
		default:
			outShape = append(outShape, s.length())
			for i := 0; i < s.length(); i++ {
				picks = append(picks, s.Start+i*s.step())
			}
		}
		next := make([]int, 0, len(offsets)*len(picks))
		for _, o := range offsets {
			for _, p := range picks {
				next = append(next, o+p*strides[axis])
			}
		}
		offsets = next
	}
	return outShape, offsets
}

func rowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	return strides
}

func product(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
