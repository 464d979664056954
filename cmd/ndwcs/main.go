// Command ndwcs evaluates the pixel to world transform described by a YAML
// header stream, optionally after slicing it.
//
//	ndwcs -header frames.yaml -pixel 10,20,3 [-slice "2,:,:"] [-dump]
//
// The first header supplies the spatial (HPLN/HPLT) axes and, when CTYPE3 is
// WAVE, a spectral axis. A stream of several headers adds a time axis built
// from their DATE-OBS keywords.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/qri-io/ndwcs"
)

func main() {
	headerPath := flag.String("header", "", "YAML header stream, one document per frame")
	codec := flag.String("compression", "", "codec the header file was compressed with")
	pixel := flag.String("pixel", "", "comma separated pixel position to evaluate")
	slice := flag.String("slice", "", "numpy-style slice applied before evaluating, e.g. \"2,:,1:5\"")
	dump := flag.Bool("dump", false, "dump the composed transform")
	flag.Parse()

	if *headerPath == "" {
		fmt.Println("Usage: ndwcs -header <frames.yaml> [-pixel x,y,...] [-slice expr] [-dump]")
		os.Exit(1)
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}

	t, err := buildTransform(*headerPath, *codec)
	if err != nil {
		fail(err)
	}
	var tr ndwcs.Transform = t
	var mask ndwcs.MissingAxisMask
	if *slice != "" {
		expr, err := ndwcs.ParseExpr(*slice)
		if err != nil {
			fail(err)
		}
		if tr, mask, err = ndwcs.Slice(t, nil, expr); err != nil {
			fail(err)
		}
	}
	ct := tr.(*ndwcs.CompositeTransform)

	if *dump {
		spew.Dump(ct)
	}

	heading := color.New(color.Bold).SprintFunc()
	name := color.New(color.FgCyan).SprintFunc()
	fmt.Printf("%s %d pixel axes %v\n", heading("transform:"), ct.PixelAxes(), ct.PixelLabels())
	if mask != nil {
		fmt.Printf("%s %v\n", heading("missing axes:"), mask.Missing())
	}
	for _, fv := range ct.FixedWorld() {
		fmt.Printf("  %s = %s (fixed)\n", name(fv.Axis.Name), fv.Value)
	}

	if *pixel == "" {
		return
	}
	px, err := parsePixel(*pixel)
	if err != nil {
		fail(err)
	}
	world, err := ct.Evaluate(px...)
	if err != nil {
		fail(err)
	}
	axes := ct.WorldAxes()
	fmt.Printf("%s %v\n", heading("pixel:"), px)
	for i, w := range world {
		fmt.Printf("  %s = %s\n", name(axes[i].Name), w)
	}
}

func buildTransform(path, codec string) (*ndwcs.CompositeTransform, error) {
	store, err := ndwcs.NewLocalStore(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	var comp *ndwcs.CompressionMeta
	if codec != "" {
		comp = &ndwcs.CompressionMeta{ID: codec}
	}
	hs, err := ndwcs.LoadHeaders(store, filepath.Base(path), comp)
	if err != nil {
		return nil, err
	}

	spatial, err := ndwcs.SpatialModelFromHeader(hs[0])
	if err != nil {
		return nil, err
	}
	groups := []ndwcs.AxisGroup{{Name: "sky", Model: spatial, World: ndwcs.HelioprojectiveAxes()}}
	order := []string{"sky", "sky"}

	if ctype, err := hs[0].Text("CTYPE3"); err == nil && strings.HasPrefix(ctype, "WAVE") {
		spectral, err := ndwcs.SpectralModelFromHeader(hs[0], 3)
		if err != nil {
			return nil, err
		}
		groups = append(groups, ndwcs.AxisGroup{Name: "wave", Model: spectral, World: []ndwcs.WorldAxis{ndwcs.WavelengthAxis()}})
		order = append(order, "wave")
	}
	if len(hs) > 1 {
		temporal, err := ndwcs.TimeModelFromHeaders(hs)
		if err != nil {
			return nil, err
		}
		groups = append(groups, ndwcs.AxisGroup{Name: "time", Model: temporal, World: []ndwcs.WorldAxis{ndwcs.TimeAxis()}})
		order = append(order, "time")
	}
	return ndwcs.Compose(groups, order)
}

func parsePixel(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	px := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid pixel coordinate %q", p)
		}
		px[i] = v
	}
	return px, nil
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", color.New(color.FgRed).Sprint("ERROR:"), err)
	os.Exit(1)
}
