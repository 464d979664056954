// Package units provides physical quantities with dimension-checked arithmetic.
//
// Only the handful of dimensions needed to describe pixel to world transforms
// are tracked: length, angle, time and pixel. Every Unit carries a scale
// relative to the base unit of its dimension (metre, radian, second, pixel).
package units

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrIncompatible is returned when quantities of different dimensions are
// combined or converted.
var ErrIncompatible = errors.New("incompatible units")

// Dimension is an exponent vector over (length, angle, time, pixel)
type Dimension [4]int8

const (
	dimLength = iota
	dimAngle
	dimTime
	dimPixel
)

// Unit is a named scale over a Dimension
type Unit struct {
	Symbol string
	Scale  float64
	Dim    Dimension
}

var (
	Dimensionless = Unit{Symbol: "", Scale: 1}
	Pixel         = Unit{Symbol: "pix", Scale: 1, Dim: Dimension{dimPixel: 1}}
	Radian        = Unit{Symbol: "rad", Scale: 1, Dim: Dimension{dimAngle: 1}}
	Degree        = Unit{Symbol: "deg", Scale: math.Pi / 180, Dim: Dimension{dimAngle: 1}}
	Arcsec        = Unit{Symbol: "arcsec", Scale: math.Pi / 180 / 3600, Dim: Dimension{dimAngle: 1}}
	Second        = Unit{Symbol: "s", Scale: 1, Dim: Dimension{dimTime: 1}}
	Meter         = Unit{Symbol: "m", Scale: 1, Dim: Dimension{dimLength: 1}}
	Nanometer     = Unit{Symbol: "nm", Scale: 1e-9, Dim: Dimension{dimLength: 1}}
	Angstrom      = Unit{Symbol: "Angstrom", Scale: 1e-10, Dim: Dimension{dimLength: 1}}
)

// named units are used to give derived units a readable symbol again,
// e.g. (arcsec / pix) * pix == arcsec
var named = []Unit{Dimensionless, Pixel, Radian, Degree, Arcsec, Second, Meter, Nanometer, Angstrom}

// Parse looks up a unit by symbol. Derived units of the form "a / b" are
// supported for a single division.
func Parse(s string) (Unit, error) {
	for _, u := range named {
		if u.Symbol == s {
			return u, nil
		}
	}
	for i := 0; i+3 <= len(s); i++ {
		if s[i:i+3] == " / " {
			num, err := Parse(s[:i])
			if err != nil {
				return Unit{}, err
			}
			den, err := Parse(s[i+3:])
			if err != nil {
				return Unit{}, err
			}
			return num.Div(den), nil
		}
	}
	return Unit{}, fmt.Errorf("unknown unit %q", s)
}

// Compatible reports whether u and o measure the same dimension
func (u Unit) Compatible(o Unit) bool {
	return u.Dim == o.Dim
}

// IsAngle reports whether u is a plain angle
func (u Unit) IsAngle() bool { return u.Dim == Radian.Dim }

// IsLength reports whether u is a plain length
func (u Unit) IsLength() bool { return u.Dim == Meter.Dim }

// IsTime reports whether u is a plain duration
func (u Unit) IsTime() bool { return u.Dim == Second.Dim }

// IsPixel reports whether u is a pixel count
func (u Unit) IsPixel() bool { return u.Dim == Pixel.Dim }

func (u Unit) Mul(o Unit) Unit {
	r := Unit{Scale: u.Scale * o.Scale}
	for i := range r.Dim {
		r.Dim[i] = u.Dim[i] + o.Dim[i]
	}
	switch {
	case u.Symbol == "":
		r.Symbol = o.Symbol
	case o.Symbol == "":
		r.Symbol = u.Symbol
	default:
		r.Symbol = u.Symbol + " " + o.Symbol
	}
	return simplify(r)
}

func (u Unit) Div(o Unit) Unit {
	r := Unit{Scale: u.Scale / o.Scale}
	for i := range r.Dim {
		r.Dim[i] = u.Dim[i] - o.Dim[i]
	}
	switch {
	case o.Symbol == "":
		r.Symbol = u.Symbol
	case u.Symbol == "":
		r.Symbol = "1 / " + o.Symbol
	default:
		r.Symbol = u.Symbol + " / " + o.Symbol
	}
	return simplify(r)
}

func simplify(u Unit) Unit {
	for _, n := range named {
		if n.Dim == u.Dim && closeScale(n.Scale, u.Scale) {
			return n
		}
	}
	return u
}

func closeScale(a, b float64) bool {
	return math.Abs(a-b) <= 1e-12*math.Max(math.Abs(a), math.Abs(b))
}

func (u Unit) String() string { return u.Symbol }

func (u Unit) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.Symbol)
}

// Quantity is a float64 value tagged with a Unit
type Quantity struct {
	Value float64
	Unit  Unit
}

// New creates a quantity
func New(v float64, u Unit) Quantity {
	return Quantity{Value: v, Unit: u}
}

// To converts q to unit u
func (q Quantity) To(u Unit) (Quantity, error) {
	if !q.Unit.Compatible(u) {
		return Quantity{}, fmt.Errorf("%w: cannot convert %q to %q", ErrIncompatible, q.Unit.Symbol, u.Symbol)
	}
	if q.Unit.Scale == u.Scale {
		return Quantity{Value: q.Value, Unit: u}, nil
	}
	return Quantity{Value: q.Value * q.Unit.Scale / u.Scale, Unit: u}, nil
}

// Float returns the bare value of q expressed in unit u
func (q Quantity) Float(u Unit) (float64, error) {
	c, err := q.To(u)
	if err != nil {
		return 0, err
	}
	return c.Value, nil
}

// Add returns q+o expressed in the unit of q
func (q Quantity) Add(o Quantity) (Quantity, error) {
	c, err := o.To(q.Unit)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{Value: q.Value + c.Value, Unit: q.Unit}, nil
}

// Sub returns q-o expressed in the unit of q
func (q Quantity) Sub(o Quantity) (Quantity, error) {
	return q.Add(o.Neg())
}

func (q Quantity) Neg() Quantity {
	return Quantity{Value: -q.Value, Unit: q.Unit}
}

func (q Quantity) Mul(o Quantity) Quantity {
	return Quantity{Value: q.Value * o.Value, Unit: q.Unit.Mul(o.Unit)}
}

func (q Quantity) Div(o Quantity) Quantity {
	return Quantity{Value: q.Value / o.Value, Unit: q.Unit.Div(o.Unit)}
}

// Scale multiplies q by a dimensionless factor
func (q Quantity) Scale(f float64) Quantity {
	return Quantity{Value: q.Value * f, Unit: q.Unit}
}

// IsNaN reports whether the value of q is NaN
func (q Quantity) IsNaN() bool { return math.IsNaN(q.Value) }

func (q Quantity) String() string {
	s := strconv.FormatFloat(q.Value, 'g', -1, 64)
	if q.Unit.Symbol == "" {
		return s
	}
	return s + " " + q.Unit.Symbol
}

type quantityJSON struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(quantityJSON{Value: q.Value, Unit: q.Unit.Symbol})
}

func (q *Quantity) UnmarshalJSON(d []byte) error {
	var v quantityJSON
	if err := json.Unmarshal(d, &v); err != nil {
		return err
	}
	u, err := Parse(v.Unit)
	if err != nil {
		return err
	}
	*q = Quantity{Value: v.Value, Unit: u}
	return nil
}
