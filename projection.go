package ndwcs

import (
	"fmt"
	"math"

	"github.com/qri-io/ndwcs/units"
)

const r2d = 180 / math.Pi

// TangentProjection is the gnomonic (TAN) projection from projection-plane
// coordinates x, y to native spherical longitude and latitude, in degrees.
type TangentProjection struct{}

func (TangentProjection) Inputs() int    { return 2 }
func (TangentProjection) Outputs() int   { return 2 }
func (TangentProjection) String() string { return "TangentProjection" }

func (p TangentProjection) Evaluate(in ...units.Quantity) ([]units.Quantity, error) {
	if err := checkInputs(p, in); err != nil {
		return nil, err
	}
	x, err := in[0].Float(units.Degree)
	if err != nil {
		return nil, err
	}
	y, err := in[1].Float(units.Degree)
	if err != nil {
		return nil, err
	}
	r := math.Hypot(x, y)
	phi := math.Atan2(x, -y) * r2d
	theta := math.Atan2(r2d, r) * r2d
	return []units.Quantity{units.New(phi, units.Degree), units.New(theta, units.Degree)}, nil
}

// SphericalRotation rotates native spherical coordinates to celestial ones,
// given the celestial coordinates of the native pole (lon, lat) and the native
// longitude of the celestial pole. Celestial longitude is wrapped to [0, 360).
type SphericalRotation struct {
	lon, lat, lonPole units.Quantity
}

func NewSphericalRotation(lon, lat, lonPole units.Quantity) (SphericalRotation, error) {
	for _, q := range []units.Quantity{lon, lat, lonPole} {
		if !q.Unit.IsAngle() {
			return SphericalRotation{}, fmt.Errorf("%w: rotation angle %s", units.ErrIncompatible, q)
		}
	}
	return SphericalRotation{lon: lon, lat: lat, lonPole: lonPole}, nil
}

func (r SphericalRotation) Lon() units.Quantity     { return r.lon }
func (r SphericalRotation) Lat() units.Quantity     { return r.lat }
func (r SphericalRotation) LonPole() units.Quantity { return r.lonPole }
func (SphericalRotation) Inputs() int               { return 2 }
func (SphericalRotation) Outputs() int              { return 2 }

func (r SphericalRotation) String() string {
	return fmt.Sprintf("SphericalRotation(lon=%s, lat=%s, lon_pole=%s)", r.lon, r.lat, r.lonPole)
}

func (r SphericalRotation) Evaluate(in ...units.Quantity) ([]units.Quantity, error) {
	if err := checkInputs(r, in); err != nil {
		return nil, err
	}
	phi, err := in[0].Float(units.Radian)
	if err != nil {
		return nil, err
	}
	theta, err := in[1].Float(units.Radian)
	if err != nil {
		return nil, err
	}
	// angles were checked on construction
	alphaP, _ := r.lon.Float(units.Radian)
	deltaP, _ := r.lat.Float(units.Radian)
	phiP, _ := r.lonPole.Float(units.Radian)

	dphi := phi - phiP
	sinT, cosT := math.Sincos(theta)
	sinDP, cosDP := math.Sincos(deltaP)
	sinDphi, cosDphi := math.Sincos(dphi)

	alpha := alphaP + math.Atan2(-cosT*sinDphi, sinT*cosDP-cosT*sinDP*cosDphi)
	delta := math.Asin(clamp(sinT*sinDP + cosT*cosDP*cosDphi))

	alpha = math.Mod(alpha*r2d, 360)
	if alpha < 0 {
		alpha += 360
	}
	return []units.Quantity{units.New(alpha, units.Degree), units.New(delta*r2d, units.Degree)}, nil
}

func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
