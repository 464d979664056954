/*
Package ndwcs builds pixel to world coordinate transforms for multi-dimensional
observational datasets and keeps them consistent when the data is sliced.

A transform is assembled from elementary models (shifts, scales, an affine
rotation, the gnomonic projection, a native to celestial rotation and 1-D
linear or lookup axes). Spatial, spectral and temporal models are built from
calibration metadata, composed into a CompositeTransform in the pixel-axis
order of the dataset, and re-derived by Slice whenever the array is indexed:

	spatial, _ := ndwcs.SpatialModelFromHeader(hdr)
	spectral, _ := ndwcs.BuildSpectralModel(width, refval)
	t, _ := ndwcs.Compose([]ndwcs.AxisGroup{
		{Name: "sky", Model: spatial, World: ndwcs.HelioprojectiveAxes()},
		{Name: "wave", Model: spectral, World: []ndwcs.WorldAxis{ndwcs.WavelengthAxis()}},
	}, []string{"sky", "sky", "wave"})
	sliced, mask, _ := ndwcs.Slice(t, nil, ndwcs.Expr{ndwcs.Index(3)})

Frames of a dataset stored one per file are addressed lazily through a
ReferenceArray of ExternalReference descriptors.
*/
package ndwcs

import (
	"sync"

	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
)

var defaultTracer sync.Once

// T traces to a global core-tracer. Without a configured core-tracer,
// tracing goes to the standard logger.
func T() tracing.Trace {
	defaultTracer.Do(func() {
		if gtrace.CoreTracer == nil {
			gtrace.CoreTracer = gologadapter.New()
		}
	})
	return gtrace.CoreTracer
}
