package ndwcs

import (
	"encoding/json"
	"testing"

	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qri-io/ndwcs/units"
)

func spectralModel(t *testing.T) Model {
	t.Helper()
	m, err := BuildSpectralModel(units.New(0.1, units.Nanometer), units.New(500, units.Nanometer))
	require.NoError(t, err)
	return m
}

// skyWave is a (lon, lat, wavelength) transform
func skyWave(t *testing.T) *CompositeTransform {
	t.Helper()
	ct, err := Compose([]AxisGroup{
		{Name: "sky", Model: spatialModel(t), World: HelioprojectiveAxes()},
		{Name: "wave", Model: spectralModel(t), World: []WorldAxis{WavelengthAxis()}},
	}, []string{"sky", "sky", "wave"})
	require.NoError(t, err)
	return ct
}

func TestCompose(t *testing.T) {
	gtrace.CoreTracer = gotestingadapter.New(t)
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	gtrace.CoreTracer.SetTraceLevel(tracing.LevelDebug)
	//
	ct := skyWave(t)
	assert.Equal(t, 3, ct.PixelAxes())
	assert.Len(t, ct.WorldAxes(), 3)
	assert.Equal(t, []string{"hpln", "hplt", "wavelength"}, ct.PixelLabels())
	assert.Empty(t, ct.FixedWorld())

	out, err := ct.Evaluate(1, 0, 10)
	require.NoError(t, err)
	require.Len(t, out, 3)
	w := degrees(t, out[:2])
	assert.InDelta(t, 1.0/3600, w[0], 1e-10)
	assert.InDelta(t, 501.0, out[2].Value, 1e-9)

	_, err = ct.Evaluate(1, 0)
	assert.ErrorIs(t, err, ErrAxisCount)
}

func TestComposeAxisOrder(t *testing.T) {
	ct, err := Compose([]AxisGroup{
		{Name: "sky", Model: spatialModel(t), World: HelioprojectiveAxes()},
		{Name: "wave", Model: spectralModel(t), World: []WorldAxis{WavelengthAxis()}},
	}, []string{"wave", "sky", "sky"})
	require.NoError(t, err)
	assert.Equal(t, []string{"wavelength", "hpln", "hplt"}, ct.PixelLabels())

	out, err := ct.Evaluate(10, 1, 0)
	require.NoError(t, err)
	// world axes stay in group order
	w := degrees(t, out[:2])
	assert.InDelta(t, 1.0/3600, w[0], 1e-10)
	assert.InDelta(t, 501.0, out[2].Value, 1e-9)
}

func TestComposeAxisCount(t *testing.T) {
	sky := AxisGroup{Name: "sky", Model: spatialModel(t), World: HelioprojectiveAxes()}
	wave := AxisGroup{Name: "wave", Model: spectralModel(t), World: []WorldAxis{WavelengthAxis()}}

	for name, tc := range map[string]struct {
		groups []AxisGroup
		order  []string
	}{
		"too few axes":       {[]AxisGroup{sky, wave}, []string{"sky", "wave"}},
		"too many axes":      {[]AxisGroup{sky, wave}, []string{"sky", "sky", "sky", "wave"}},
		"unknown group":      {[]AxisGroup{sky}, []string{"sky", "sky", "time"}},
		"duplicate group":    {[]AxisGroup{sky, sky}, []string{"sky", "sky"}},
		"world tag mismatch": {[]AxisGroup{{Name: "sky", Model: spatialModel(t), World: []WorldAxis{TimeAxis()}}}, []string{"sky", "sky"}},
		"missing model":      {[]AxisGroup{{Name: "sky", World: HelioprojectiveAxes()}}, []string{"sky", "sky"}},
	} {
		_, err := Compose(tc.groups, tc.order)
		assert.ErrorIs(t, err, ErrAxisCount, name)
	}
}

func TestComposeModel(t *testing.T) {
	ct := skyWave(t)
	m := ct.Model()
	assert.Equal(t, 3, m.Inputs())
	assert.Equal(t, 3, m.Outputs())

	viaModel, err := m.Evaluate(pix(1), pix(0), pix(10))
	require.NoError(t, err)
	direct, err := ct.Evaluate(1, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, direct, viaModel)

	_, err = m.Evaluate(pix(1), pix(0), units.New(10, units.Second))
	assert.ErrorIs(t, err, units.ErrIncompatible)
}

func TestCompositeJSON(t *testing.T) {
	data, err := json.Marshal(skyWave(t))
	require.NoError(t, err)

	var desc struct {
		PixelAxes  int `json:"pixel_axes"`
		Components []struct {
			Group string `json:"group"`
			Axes  []int  `json:"pixel_axes"`
		} `json:"components"`
	}
	require.NoError(t, json.Unmarshal(data, &desc))
	assert.Equal(t, 3, desc.PixelAxes)
	require.Len(t, desc.Components, 2)
	assert.Equal(t, "sky", desc.Components[0].Group)
	assert.Equal(t, []int{0, 1}, desc.Components[0].Axes)
	assert.Equal(t, []int{2}, desc.Components[1].Axes)

	data, err = json.Marshal(NoTransform{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}
