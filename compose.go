package ndwcs

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/qri-io/ndwcs/units"
)

// PhysicalType tags a world axis for downstream consumers
type PhysicalType string

const (
	SpatialLongitude PhysicalType = "spatial-longitude"
	SpatialLatitude  PhysicalType = "spatial-latitude"
	Spectral         PhysicalType = "spectral"
	Temporal         PhysicalType = "temporal"
)

// WorldAxis describes one output coordinate of a transform
type WorldAxis struct {
	Name string       `json:"name"`
	Type PhysicalType `json:"type"`
	Unit units.Unit   `json:"unit"`
}

// HelioprojectiveAxes are the world axes of a spatial model
func HelioprojectiveAxes() []WorldAxis {
	return []WorldAxis{
		{Name: "hpln", Type: SpatialLongitude, Unit: units.Degree},
		{Name: "hplt", Type: SpatialLatitude, Unit: units.Degree},
	}
}

// WavelengthAxis is the world axis of a spectral model
func WavelengthAxis() WorldAxis {
	return WorldAxis{Name: "wavelength", Type: Spectral, Unit: units.Nanometer}
}

// TimeAxis is the world axis of a temporal model
func TimeAxis() WorldAxis {
	return WorldAxis{Name: "time", Type: Temporal, Unit: units.Second}
}

// AxisGroup is a model over an independent group of pixel axes together
// with the world axes it produces
type AxisGroup struct {
	Name  string
	Model Model
	World []WorldAxis
}

// Transform is either NoTransform or a *CompositeTransform
type Transform interface {
	isTransform()
}

// NoTransform marks a dataset without a coordinate transform
type NoTransform struct{}

func (NoTransform) isTransform() {}

func (NoTransform) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// component is one axis group inside a CompositeTransform. Free input k of
// model reads pixel axis axes[k] as offset[k] + stride[k]*pixel. A component
// whose inputs have all been sliced away carries its world values in fixed.
type component struct {
	group  string
	model  Model
	axes   []int
	offset []float64
	stride []float64
	world  []WorldAxis
	fixed  []units.Quantity
}

func (c component) isFixed() bool { return c.fixed != nil }

func (c component) evaluate(pixel []float64) ([]units.Quantity, error) {
	if c.isFixed() {
		return c.fixed, nil
	}
	in := make([]units.Quantity, len(c.axes))
	for k, a := range c.axes {
		in[k] = units.New(c.offset[k]+c.stride[k]*pixel[a], units.Pixel)
	}
	return c.model.Evaluate(in...)
}

// CompositeTransform maps the pixel axes of a dataset to its world axes.
// It is immutable; slicing produces a new transform.
type CompositeTransform struct {
	naxes      int
	components []component
}

func (*CompositeTransform) isTransform() {}

// Compose combines axis groups into one transform. axisOrder names, for each
// pixel axis in dataset order, the group that consumes it; the k-th
// occurrence of a group feeds that model's k-th input. World axes are
// ordered by group.
func Compose(groups []AxisGroup, axisOrder []string) (*CompositeTransform, error) {
	byName := make(map[string]int, len(groups))
	comps := make([]component, len(groups))
	for i, g := range groups {
		if _, dup := byName[g.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate axis group %q", ErrAxisCount, g.Name)
		}
		if g.Model == nil {
			return nil, fmt.Errorf("%w: axis group %q has no model", ErrAxisCount, g.Name)
		}
		if len(g.World) != g.Model.Outputs() {
			return nil, fmt.Errorf("%w: axis group %q tags %d world axes for %d model outputs",
				ErrAxisCount, g.Name, len(g.World), g.Model.Outputs())
		}
		byName[g.Name] = i
		comps[i] = component{
			group: g.Name,
			model: g.Model,
			world: append([]WorldAxis(nil), g.World...),
		}
	}

	for axis, name := range axisOrder {
		i, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: pixel axis %d names unknown group %q", ErrAxisCount, axis, name)
		}
		c := &comps[i]
		c.axes = append(c.axes, axis)
		c.offset = append(c.offset, 0)
		c.stride = append(c.stride, 1)
	}

	for i := range comps {
		c := &comps[i]
		if len(c.axes) != c.model.Inputs() {
			return nil, fmt.Errorf("%w: axis group %q takes %d pixel axes, axis order assigns %d",
				ErrAxisCount, c.group, c.model.Inputs(), len(c.axes))
		}
		if c.model.Inputs() == 0 {
			vals, err := c.model.Evaluate()
			if err != nil {
				return nil, err
			}
			c.fixed = vals
		}
	}

	T().Debugf("composed transform over %d pixel axes from %d groups", len(axisOrder), len(groups))
	return &CompositeTransform{naxes: len(axisOrder), components: comps}, nil
}

// PixelAxes is the number of inputs of the transform
func (t *CompositeTransform) PixelAxes() int { return t.naxes }

// WorldAxes lists every world axis, including ones held constant by slicing
func (t *CompositeTransform) WorldAxes() []WorldAxis {
	var w []WorldAxis
	for _, c := range t.components {
		w = append(w, c.world...)
	}
	return w
}

// FixedValue is the constant value of a world axis whose pixel axes were
// all sliced away
type FixedValue struct {
	Axis  WorldAxis      `json:"axis"`
	Value units.Quantity `json:"value"`
}

// FixedWorld lists the world axes that no longer depend on any pixel axis
func (t *CompositeTransform) FixedWorld() []FixedValue {
	var fv []FixedValue
	for _, c := range t.components {
		for i, v := range c.fixed {
			fv = append(fv, FixedValue{Axis: c.world[i], Value: v})
		}
	}
	return fv
}

// PixelLabels names each pixel axis after the world axis it chiefly drives
func (t *CompositeTransform) PixelLabels() []string {
	labels := make([]string, t.naxes)
	for _, c := range t.components {
		pos := make([]int, len(c.axes))
		for k := range pos {
			pos[k] = k
		}
		if f, ok := c.model.(Fixed); ok {
			pos = freePositions(f.model.Inputs(), f.fixed)
		}
		for k, a := range c.axes {
			w := pos[k]
			if w >= len(c.world) {
				w = len(c.world) - 1
			}
			labels[a] = c.world[w].Name
		}
	}
	return labels
}

// Evaluate maps one pixel position to world coordinates, in WorldAxes order
func (t *CompositeTransform) Evaluate(pixel ...float64) ([]units.Quantity, error) {
	if len(pixel) != t.naxes {
		return nil, fmt.Errorf("%w: transform takes %d pixel axes, got %d", ErrAxisCount, t.naxes, len(pixel))
	}
	var out []units.Quantity
	for _, c := range t.components {
		vals, err := c.evaluate(pixel)
		if err != nil {
			return nil, fmt.Errorf("axis group %q: %w", c.group, err)
		}
		out = append(out, vals...)
	}
	return out, nil
}

// Equal reports whether t and o are structurally identical
func (t *CompositeTransform) Equal(o *CompositeTransform) bool {
	if t == nil || o == nil {
		return t == o
	}
	return reflect.DeepEqual(t, o)
}

// Model returns the transform as a single Model taking pixel quantities
func (t *CompositeTransform) Model() Model {
	return transformModel{t: t}
}

type transformModel struct {
	t *CompositeTransform
}

func (m transformModel) Inputs() int  { return m.t.naxes }
func (m transformModel) Outputs() int { return len(m.t.WorldAxes()) }

func (m transformModel) String() string {
	s := ""
	for i, c := range m.t.components {
		if i > 0 {
			s += " & "
		}
		if c.isFixed() {
			s += fmt.Sprintf("%s%v", c.group, c.fixed)
			continue
		}
		s += fmt.Sprintf("%s%v(%s)", c.group, c.axes, c.model)
	}
	return s
}

func (m transformModel) Evaluate(in ...units.Quantity) ([]units.Quantity, error) {
	if err := checkInputs(m, in); err != nil {
		return nil, err
	}
	px := make([]float64, len(in))
	for i, q := range in {
		v, err := q.Float(units.Pixel)
		if err != nil {
			return nil, err
		}
		px[i] = v
	}
	return m.t.Evaluate(px...)
}

type componentJSON struct {
	Group  string           `json:"group"`
	Model  string           `json:"model"`
	Axes   []int            `json:"pixel_axes,omitempty"`
	Offset []float64        `json:"offset,omitempty"`
	Stride []float64        `json:"stride,omitempty"`
	World  []WorldAxis      `json:"world"`
	Fixed  []units.Quantity `json:"fixed,omitempty"`
}

// MarshalJSON encodes a descriptor of the transform for persistence
func (t *CompositeTransform) MarshalJSON() ([]byte, error) {
	comps := make([]componentJSON, len(t.components))
	for i, c := range t.components {
		comps[i] = componentJSON{
			Group:  c.group,
			Model:  c.model.String(),
			Axes:   c.axes,
			Offset: c.offset,
			Stride: c.stride,
			World:  c.world,
			Fixed:  c.fixed,
		}
	}
	return json.Marshal(struct {
		PixelAxes  int             `json:"pixel_axes"`
		Components []componentJSON `json:"components"`
	}{t.naxes, comps})
}
