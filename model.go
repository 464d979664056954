package ndwcs

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/qri-io/ndwcs/units"
)

// Model is an immutable coordinate transform from Inputs() quantities to
// Outputs() quantities. All parameters are fixed at construction.
type Model interface {
	Inputs() int
	Outputs() int
	Evaluate(in ...units.Quantity) ([]units.Quantity, error)
	String() string
}

var (
	_ Model = Shift{}
	_ Model = Scale{}
	_ Model = AffineRotation{}
	_ Model = TangentProjection{}
	_ Model = SphericalRotation{}
	_ Model = LinearAxis{}
	_ Model = LookupAxis{}
	_ Model = Series{}
	_ Model = Parallel{}
	_ Model = Fixed{}
)

func checkInputs(m Model, in []units.Quantity) error {
	if len(in) != m.Inputs() {
		return fmt.Errorf("%w: %s takes %d inputs, got %d", ErrAxisCount, m, m.Inputs(), len(in))
	}
	return nil
}

// Shift adds a constant offset to its input
type Shift struct {
	offset units.Quantity
}

func NewShift(offset units.Quantity) Shift { return Shift{offset: offset} }

func (s Shift) Offset() units.Quantity { return s.offset }
func (Shift) Inputs() int              { return 1 }
func (Shift) Outputs() int             { return 1 }
func (s Shift) String() string         { return fmt.Sprintf("Shift(%s)", s.offset) }

func (s Shift) Evaluate(in ...units.Quantity) ([]units.Quantity, error) {
	if err := checkInputs(s, in); err != nil {
		return nil, err
	}
	out, err := in[0].Add(s.offset)
	if err != nil {
		return nil, err
	}
	return []units.Quantity{out}, nil
}

// Scale multiplies its input by a factor, which may carry a unit
type Scale struct {
	factor units.Quantity
}

func NewScale(factor units.Quantity) Scale { return Scale{factor: factor} }

func (s Scale) Factor() units.Quantity { return s.factor }
func (Scale) Inputs() int              { return 1 }
func (Scale) Outputs() int             { return 1 }
func (s Scale) String() string         { return fmt.Sprintf("Scale(%s)", s.factor) }

func (s Scale) Evaluate(in ...units.Quantity) ([]units.Quantity, error) {
	if err := checkInputs(s, in); err != nil {
		return nil, err
	}
	return []units.Quantity{in[0].Mul(s.factor)}, nil
}

// AffineRotation is the 2-D linear map out = matrix·in + translation.
// Both inputs must share a dimension; outputs carry the unit of the first input.
type AffineRotation struct {
	matrix      [2][2]float64
	translation [2]units.Quantity
}

func NewAffineRotation(matrix [2][2]float64, translation [2]units.Quantity) (AffineRotation, error) {
	if !translation[0].Unit.Compatible(translation[1].Unit) {
		return AffineRotation{}, fmt.Errorf("%w: translation components %q and %q",
			units.ErrIncompatible, translation[0].Unit, translation[1].Unit)
	}
	return AffineRotation{matrix: matrix, translation: translation}, nil
}

func (a AffineRotation) Matrix() [2][2]float64          { return a.matrix }
func (a AffineRotation) Translation() [2]units.Quantity { return a.translation }
func (AffineRotation) Inputs() int                      { return 2 }
func (AffineRotation) Outputs() int                     { return 2 }

func (a AffineRotation) String() string {
	return fmt.Sprintf("AffineRotation(%v, [%s, %s])", a.matrix, a.translation[0], a.translation[1])
}

func (a AffineRotation) Evaluate(in ...units.Quantity) ([]units.Quantity, error) {
	if err := checkInputs(a, in); err != nil {
		return nil, err
	}
	u := in[0].Unit
	y, err := in[1].Float(u)
	if err != nil {
		return nil, err
	}
	tx, err := a.translation[0].Float(u)
	if err != nil {
		return nil, err
	}
	ty, err := a.translation[1].Float(u)
	if err != nil {
		return nil, err
	}
	x := in[0].Value
	m := a.matrix
	return []units.Quantity{
		units.New(m[0][0]*x+m[0][1]*y+tx, u),
		units.New(m[1][0]*x+m[1][1]*y+ty, u),
	}, nil
}

// LinearAxis is the 1-D model value = intercept + slope·pixel. The reference
// pixel is 0.
type LinearAxis struct {
	slope     units.Quantity
	intercept units.Quantity
}

// NewLinearAxis checks that slope·pixel and intercept share a dimension
func NewLinearAxis(slope, intercept units.Quantity) (LinearAxis, error) {
	if !slope.Unit.Mul(units.Pixel).Compatible(intercept.Unit) {
		return LinearAxis{}, fmt.Errorf("%w: slope %q does not map pixels to %q",
			units.ErrIncompatible, slope.Unit, intercept.Unit)
	}
	return LinearAxis{slope: slope, intercept: intercept}, nil
}

func (l LinearAxis) Slope() units.Quantity     { return l.slope }
func (l LinearAxis) Intercept() units.Quantity { return l.intercept }
func (LinearAxis) Inputs() int                 { return 1 }
func (LinearAxis) Outputs() int                { return 1 }

func (l LinearAxis) String() string {
	return fmt.Sprintf("LinearAxis(slope=%s, intercept=%s)", l.slope, l.intercept)
}

func (l LinearAxis) Evaluate(in ...units.Quantity) ([]units.Quantity, error) {
	if err := checkInputs(l, in); err != nil {
		return nil, err
	}
	out, err := l.intercept.Add(l.slope.Mul(in[0]))
	if err != nil {
		return nil, err
	}
	return []units.Quantity{out}, nil
}

// LookupAxis maps pixel i to values[i], interpolating linearly between
// integer pixels. Pixels outside the table evaluate to NaN.
type LookupAxis struct {
	values []float64
	unit   units.Unit
}

func NewLookupAxis(values []units.Quantity) (LookupAxis, error) {
	if len(values) == 0 {
		return LookupAxis{}, fmt.Errorf("%w: empty lookup table", ErrSchema)
	}
	u := values[0].Unit
	vs := make([]float64, len(values))
	for i, q := range values {
		v, err := q.Float(u)
		if err != nil {
			return LookupAxis{}, fmt.Errorf("lookup value %d: %w", i, err)
		}
		vs[i] = v
	}
	return LookupAxis{values: vs, unit: u}, nil
}

// Values returns a copy of the lookup table
func (l LookupAxis) Values() []units.Quantity {
	qs := make([]units.Quantity, len(l.values))
	for i, v := range l.values {
		qs[i] = units.New(v, l.unit)
	}
	return qs
}

func (l LookupAxis) Len() int       { return len(l.values) }
func (LookupAxis) Inputs() int      { return 1 }
func (LookupAxis) Outputs() int     { return 1 }
func (l LookupAxis) String() string { return fmt.Sprintf("LookupAxis(%v %s)", l.values, l.unit) }

func (l LookupAxis) Evaluate(in ...units.Quantity) ([]units.Quantity, error) {
	if err := checkInputs(l, in); err != nil {
		return nil, err
	}
	p, err := in[0].Float(units.Pixel)
	if err != nil {
		return nil, err
	}
	return []units.Quantity{units.New(l.at(p), l.unit)}, nil
}

func (l LookupAxis) at(p float64) float64 {
	last := float64(len(l.values) - 1)
	if math.IsNaN(p) || p < 0 || p > last {
		return math.NaN()
	}
	i := math.Floor(p)
	if i == last {
		return l.values[len(l.values)-1]
	}
	lo := l.values[int(i)]
	hi := l.values[int(i)+1]
	return lo + (hi-lo)*(p-i)
}

// Series chains models: the outputs of each model feed the next
type Series struct {
	models []Model
}

// Then composes models sequentially. Nested series are flattened, so
// composition is associative.
func Then(models ...Model) (Model, error) {
	flat := make([]Model, 0, len(models))
	for _, m := range models {
		if s, ok := m.(Series); ok {
			flat = append(flat, s.models...)
			continue
		}
		flat = append(flat, m)
	}
	if len(flat) == 0 {
		return nil, fmt.Errorf("%w: empty series", ErrAxisCount)
	}
	for i := 1; i < len(flat); i++ {
		if flat[i-1].Outputs() != flat[i].Inputs() {
			return nil, fmt.Errorf("%w: %s has %d outputs, %s takes %d inputs",
				ErrAxisCount, flat[i-1], flat[i-1].Outputs(), flat[i], flat[i].Inputs())
		}
	}
	if len(flat) == 1 {
		return flat[0], nil
	}
	return Series{models: flat}, nil
}

// Models returns the chained models in evaluation order
func (s Series) Models() []Model { return append([]Model(nil), s.models...) }
func (s Series) Inputs() int     { return s.models[0].Inputs() }
func (s Series) Outputs() int    { return s.models[len(s.models)-1].Outputs() }

func (s Series) String() string {
	return joinModels(s.models, " | ")
}

func (s Series) Evaluate(in ...units.Quantity) ([]units.Quantity, error) {
	if err := checkInputs(s, in); err != nil {
		return nil, err
	}
	cur := in
	for _, m := range s.models {
		out, err := m.Evaluate(cur...)
		if err != nil {
			return nil, err
		}
		cur = out
	}
	return cur, nil
}

// Parallel evaluates independent models side by side, splitting the inputs
// in model order
type Parallel struct {
	models []Model
}

// Alongside composes models in parallel. Nested parallels are flattened.
func Alongside(models ...Model) Model {
	flat := make([]Model, 0, len(models))
	for _, m := range models {
		if p, ok := m.(Parallel); ok {
			flat = append(flat, p.models...)
			continue
		}
		flat = append(flat, m)
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return Parallel{models: flat}
}

func (p Parallel) Models() []Model { return append([]Model(nil), p.models...) }

func (p Parallel) Inputs() int {
	n := 0
	for _, m := range p.models {
		n += m.Inputs()
	}
	return n
}

func (p Parallel) Outputs() int {
	n := 0
	for _, m := range p.models {
		n += m.Outputs()
	}
	return n
}

func (p Parallel) String() string {
	return joinModels(p.models, " & ")
}

func (p Parallel) Evaluate(in ...units.Quantity) ([]units.Quantity, error) {
	if err := checkInputs(p, in); err != nil {
		return nil, err
	}
	out := make([]units.Quantity, 0, p.Outputs())
	for _, m := range p.models {
		n := m.Inputs()
		res, err := m.Evaluate(in[:n]...)
		if err != nil {
			return nil, err
		}
		in = in[n:]
		out = append(out, res...)
	}
	return out, nil
}

func joinModels(ms []Model, sep string) string {
	strs := make([]string, len(ms))
	for i, m := range ms {
		strs[i] = m.String()
		switch m.(type) {
		case Series, Parallel:
			strs[i] = "(" + strs[i] + ")"
		}
	}
	return strings.Join(strs, sep)
}

type fixedInput struct {
	pos   int
	value units.Quantity
}

// Fixed specializes a model by holding some of its inputs at constant values.
// The remaining free inputs keep their relative order.
type Fixed struct {
	model Model
	fixed []fixedInput
}

// FixInputs holds the inputs at the given positions of m constant. Positions
// count free inputs of m, so fixing an already Fixed model fixes further
// inputs of the underlying model.
func FixInputs(m Model, values map[int]units.Quantity) (Model, error) {
	if len(values) == 0 {
		return m, nil
	}
	base, fixed := m, []fixedInput(nil)
	if f, ok := m.(Fixed); ok {
		base = f.model
		fixed = append(fixed, f.fixed...)
	}
	free := freePositions(base.Inputs(), fixed)
	for k, v := range values {
		if k < 0 || k >= len(free) {
			return nil, fmt.Errorf("%w: cannot fix input %d of %s with %d free inputs", ErrAxisCount, k, m, len(free))
		}
		fixed = append(fixed, fixedInput{pos: free[k], value: v})
	}
	sort.Slice(fixed, func(i, j int) bool { return fixed[i].pos < fixed[j].pos })
	return Fixed{model: base, fixed: fixed}, nil
}

func freePositions(n int, fixed []fixedInput) []int {
	taken := make(map[int]bool, len(fixed))
	for _, f := range fixed {
		taken[f.pos] = true
	}
	free := make([]int, 0, n-len(fixed))
	for i := 0; i < n; i++ {
		if !taken[i] {
			free = append(free, i)
		}
	}
	return free
}

// Base returns the unspecialized model
func (f Fixed) Base() Model  { return f.model }
func (f Fixed) Inputs() int  { return f.model.Inputs() - len(f.fixed) }
func (f Fixed) Outputs() int { return f.model.Outputs() }

// FixedValues returns the constant inputs keyed by position in the base model
func (f Fixed) FixedValues() map[int]units.Quantity {
	vs := make(map[int]units.Quantity, len(f.fixed))
	for _, fi := range f.fixed {
		vs[fi.pos] = fi.value
	}
	return vs
}

func (f Fixed) String() string {
	parts := make([]string, len(f.fixed))
	for i, fi := range f.fixed {
		parts[i] = fmt.Sprintf("%d=%s", fi.pos, fi.value)
	}
	return fmt.Sprintf("Fix(%s; %s)", f.model, strings.Join(parts, ", "))
}

func (f Fixed) Evaluate(in ...units.Quantity) ([]units.Quantity, error) {
	if err := checkInputs(f, in); err != nil {
		return nil, err
	}
	full := make([]units.Quantity, f.model.Inputs())
	j := 0
	for i := range full {
		if j < len(f.fixed) && f.fixed[j].pos == i {
			full[i] = f.fixed[j].value
			j++
			continue
		}
		full[i], in = in[0], in[1:]
	}
	return f.model.Evaluate(full...)
}
