package ndwcs

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/qri-io/ndwcs/units"
)

// SkyLonPole is the native longitude of the celestial pole used by every
// spatial model. It is fixed by convention for zenithal projections.
var SkyLonPole = units.New(180, units.Degree)

// BuildSpatialModel returns the pixel to helioprojective model
//
//	Shift(-refpix) & Shift | Scale(step) & Scale | AffineRotation(matrix, 0)
//	| TangentProjection | SphericalRotation(refval, 180°)
//
// Axis order is (longitude, latitude). refpix is in pixels, refval an angle
// and step an angle per pixel.
func BuildSpatialModel(refpix, refval, step [2]units.Quantity, matrix [2][2]float64) (Model, error) {
	for i := 0; i < 2; i++ {
		if !refpix[i].Unit.IsPixel() {
			return nil, fmt.Errorf("%w: reference pixel %s is not in pixels", units.ErrIncompatible, refpix[i])
		}
		if !refval[i].Unit.IsAngle() {
			return nil, fmt.Errorf("%w: reference value %s is not an angle", units.ErrIncompatible, refval[i])
		}
		if !step[i].Unit.Mul(units.Pixel).IsAngle() {
			return nil, fmt.Errorf("%w: step %s is not an angle per pixel", units.ErrIncompatible, step[i])
		}
	}

	shift := Alongside(NewShift(refpix[0].Neg()), NewShift(refpix[1].Neg()))
	scale := Alongside(NewScale(step[0]), NewScale(step[1]))
	rot, err := NewAffineRotation(matrix, [2]units.Quantity{units.New(0, units.Arcsec), units.New(0, units.Arcsec)})
	if err != nil {
		return nil, err
	}
	sky, err := NewSphericalRotation(refval[0], refval[1], SkyLonPole)
	if err != nil {
		return nil, err
	}
	m, err := Then(shift, scale, rot, TangentProjection{}, sky)
	if err != nil {
		return nil, err
	}
	T().Debugf("spatial model: %s", m)
	return m, nil
}

// SpatialModelFromHeader builds the spatial model from the CTYPE, CRPIX, CRVAL,
// CDELT and PC keywords of a header whose first two axes are HPLN and HPLT,
// in that order. CUNITn overrides the default arcsec unit.
func SpatialModelFromHeader(h Header) (Model, error) {
	ctype1, err := h.Text("CTYPE1")
	if err != nil {
		return nil, err
	}
	ctype2, err := h.Text("CTYPE2")
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(ctype1, "HPLN") || !strings.HasPrefix(ctype2, "HPLT") {
		return nil, fmt.Errorf("%w: expected CTYPE1/CTYPE2 to be HPLN/HPLT, got %q/%q", ErrSchema, ctype1, ctype2)
	}

	var refpix, refval, step [2]units.Quantity
	for i := 0; i < 2; i++ {
		n := i + 1
		px, err := h.Float(fmt.Sprintf("CRPIX%d", n))
		if err != nil {
			return nil, err
		}
		refpix[i] = units.New(px, units.Pixel)
		if refval[i], err = h.Quantity(fmt.Sprintf("CRVAL%d", n), fmt.Sprintf("CUNIT%d", n), units.Arcsec); err != nil {
			return nil, err
		}
		delta, err := h.Quantity(fmt.Sprintf("CDELT%d", n), fmt.Sprintf("CUNIT%d", n), units.Arcsec)
		if err != nil {
			return nil, err
		}
		step[i] = delta.Div(units.New(1, units.Pixel))
	}

	var pc [2][2]float64
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			v, err := h.Float(fmt.Sprintf("PC%d_%d", i+1, j+1))
			if err != nil {
				return nil, err
			}
			pc[i][j] = v
		}
	}
	return BuildSpatialModel(refpix, refval, step, pc)
}

// BuildSpectralModel returns LinearAxis(width/1pix, refval). The reference
// pixel is 0; width and refval must both be lengths.
func BuildSpectralModel(width, refval units.Quantity) (Model, error) {
	if !width.Unit.IsLength() || !refval.Unit.IsLength() {
		return nil, fmt.Errorf("%w: spectral width %s and reference %s must be lengths", units.ErrIncompatible, width, refval)
	}
	return NewLinearAxis(width.Div(units.New(1, units.Pixel)), refval)
}

// SpectralModelFromHeader builds the spectral model of header axis n, which
// must be a WAVE axis. CUNITn overrides the default nm unit.
func SpectralModelFromHeader(h Header, n int) (Model, error) {
	ctype, err := h.Text(fmt.Sprintf("CTYPE%d", n))
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(ctype, "WAVE") {
		return nil, fmt.Errorf("%w: expected CTYPE%d to be WAVE, got %q", ErrSchema, n, ctype)
	}
	unitKey := fmt.Sprintf("CUNIT%d", n)
	width, err := h.Quantity(fmt.Sprintf("CDELT%d", n), unitKey, units.Nanometer)
	if err != nil {
		return nil, err
	}
	refval, err := h.Quantity(fmt.Sprintf("CRVAL%d", n), unitKey, units.Nanometer)
	if err != nil {
		return nil, err
	}
	return BuildSpectralModel(width, refval)
}

// LinearTimeModel returns LinearAxis(cadence/1pix, reference). A nil
// reference means zero in the unit of cadence.
func LinearTimeModel(cadence units.Quantity, reference *units.Quantity) (Model, error) {
	if !cadence.Unit.IsTime() {
		return nil, fmt.Errorf("%w: cadence %s is not a duration", units.ErrIncompatible, cadence)
	}
	ref := units.New(0, cadence.Unit)
	if reference != nil {
		ref = *reference
	}
	return NewLinearAxis(cadence.Div(units.New(1, units.Pixel)), ref)
}

// Tolerance is an allclose-style closeness test: a and b are equal when
// |a-b| <= Abs + Rel*|b|. Abs is in seconds when used for cadences.
type Tolerance struct {
	Rel float64
	Abs float64
}

// DefaultCadenceTolerance treats frame intervals equal to within a
// microsecond (or a part in 1e9) as a uniform cadence
var DefaultCadenceTolerance = Tolerance{Rel: 1e-9, Abs: 1e-6}

func (t Tolerance) close(a, b float64) bool {
	return math.Abs(a-b) <= t.Abs+t.Rel*math.Abs(b)
}

type timeConfig struct {
	tolerance Tolerance
}

// TimeOption configures BuildTimeModel
type TimeOption func(*timeConfig)

// WithCadenceTolerance sets the closeness test for frame intervals
func WithCadenceTolerance(t Tolerance) TimeOption {
	return func(c *timeConfig) { c.tolerance = t }
}

// BuildTimeModel returns a time model for a sequence of observation times.
// Offsets are taken in seconds from begin (the first timestamp when nil).
// When every interval between consecutive offsets is equal within the
// cadence tolerance the model is linear with a zero intercept, otherwise
// it is a lookup of the exact offsets. Irregular cadences are never approximated.
func BuildTimeModel(timestamps []time.Time, begin *time.Time, opts ...TimeOption) (Model, error) {
	if len(timestamps) == 0 {
		return nil, fmt.Errorf("%w: no timestamps", ErrSchema)
	}
	cfg := timeConfig{tolerance: DefaultCadenceTolerance}
	for _, opt := range opts {
		opt(&cfg)
	}
	t0 := timestamps[0]
	if begin != nil {
		t0 = *begin
	}

	offsets := make([]units.Quantity, len(timestamps))
	secs := make([]float64, len(timestamps))
	for i, ts := range timestamps {
		secs[i] = ts.Sub(t0).Seconds()
		offsets[i] = units.New(secs[i], units.Second)
	}
	if len(secs) > 1 && uniform(secs, cfg.tolerance) {
		cadence := units.New(secs[1]-secs[0], units.Second)
		T().Debugf("uniform cadence of %s over %d frames", cadence, len(secs))
		return LinearTimeModel(cadence, nil)
	}
	T().Debugf("irregular cadence over %d frames, using lookup table", len(secs))
	return NewLookupAxis(offsets)
}

func uniform(secs []float64, tol Tolerance) bool {
	d0 := secs[1] - secs[0]
	for i := 2; i < len(secs); i++ {
		if !tol.close(d0, secs[i]-secs[i-1]) {
			return false
		}
	}
	return true
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses an ISO-8601 timestamp. Timestamps without a zone
// are taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: cannot parse timestamp %q", ErrSchema, s)
}

// ParseTimestamps parses every string with ParseTimestamp
func ParseTimestamps(strs []string) ([]time.Time, error) {
	ts := make([]time.Time, len(strs))
	for i, s := range strs {
		t, err := ParseTimestamp(s)
		if err != nil {
			return nil, fmt.Errorf("timestamp %d: %w", i, err)
		}
		ts[i] = t
	}
	return ts, nil
}

// Time reads a timestamp keyword, which YAML may deliver as a string or as
// a decoded time
func (h Header) Time(key string) (time.Time, error) {
	v, err := h.lookup(key)
	if err != nil {
		return time.Time{}, err
	}
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		return ParseTimestamp(x)
	default:
		return time.Time{}, fmt.Errorf("%w: header keyword %s is %T, not a timestamp", ErrSchema, key, v)
	}
}

// TimeModelFromHeaders builds the time model of a sequence of frames from
// their DATE-OBS keywords. DATE-BGN of the first header, when present, is
// the begin time.
func TimeModelFromHeaders(hs []Header, opts ...TimeOption) (Model, error) {
	if len(hs) == 0 {
		return nil, fmt.Errorf("%w: no headers", ErrSchema)
	}
	ts := make([]time.Time, len(hs))
	for i, h := range hs {
		t, err := h.Time("DATE-OBS")
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		ts[i] = t
	}
	var begin *time.Time
	if _, ok := hs[0]["DATE-BGN"]; ok {
		b, err := hs[0].Time("DATE-BGN")
		if err != nil {
			return nil, err
		}
		begin = &b
	}
	return BuildTimeModel(ts, begin, opts...)
}
