package ndwcs

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/guiguan/caster"
	"golang.org/x/sync/errgroup"
)

// ExternalReference locates one frame of data without loading it. The JSON
// layout follows the ASDF external array reference.
type ExternalReference struct {
	Location string `json:"fileuri"`
	Index    int    `json:"target"`
	Dtype    Dtype  `json:"datatype"`
	Shape    []int  `json:"shape"`
}

// ReferenceArray is a row-major array of external references, shaped like
// the dataset minus its intra-frame dimensions
type ReferenceArray struct {
	shape []int
	refs  []ExternalReference
}

// NewReferenceArray arranges refs, given in row-major order, into shape
func NewReferenceArray(refs []ExternalReference, shape ...int) (*ReferenceArray, error) {
	if product(shape) != len(refs) {
		return nil, fmt.Errorf("%w: %d references for shape %v", ErrCountMismatch, len(refs), shape)
	}
	return &ReferenceArray{
		shape: append([]int(nil), shape...),
		refs:  append([]ExternalReference(nil), refs...),
	}, nil
}

// Shape returns a copy of the array dimensions
func (r *ReferenceArray) Shape() []int { return append([]int(nil), r.shape...) }

// Len is the number of references
func (r *ReferenceArray) Len() int { return len(r.refs) }

// Flat returns the references in row-major order
func (r *ReferenceArray) Flat() []ExternalReference {
	return append([]ExternalReference(nil), r.refs...)
}

// At returns the reference at idx
func (r *ReferenceArray) At(idx ...int) (ExternalReference, error) {
	if len(idx) != len(r.shape) {
		return ExternalReference{}, fmt.Errorf("%w: %d indices for %d-axis reference array",
			ErrDimensionMismatch, len(idx), len(r.shape))
	}
	strides := rowMajorStrides(r.shape)
	off := 0
	for i, v := range idx {
		if v < 0 || v >= r.shape[i] {
			return ExternalReference{}, fmt.Errorf("%w: index %d for axis %d of length %d", ErrIndex, v, i, r.shape[i])
		}
		off += v * strides[i]
	}
	return r.refs[off], nil
}

// Nested returns the references as nested []interface{} lists, one level
// per axis, for tree serialization. A 0-axis array yields its single reference.
func (r *ReferenceArray) Nested() interface{} {
	if len(r.shape) == 0 {
		return r.refs[0]
	}
	var build func(axis, off int) []interface{}
	strides := rowMajorStrides(r.shape)
	build = func(axis, off int) []interface{} {
		out := make([]interface{}, r.shape[axis])
		for i := range out {
			o := off + i*strides[axis]
			if axis == len(r.shape)-1 {
				out[i] = r.refs[o]
				continue
			}
			out[i] = build(axis+1, o)
		}
		return out
	}
	return build(0, 0)
}

// Slice selects references with e, which addresses the leading axes of the
// reference array. Indexed axes are dropped.
func (r *ReferenceArray) Slice(e Expr) (*ReferenceArray, error) {
	norm, err := e.Normalize(r.shape)
	if err != nil {
		return nil, err
	}
	shape, flat := selection(r.shape, norm)
	refs := make([]ExternalReference, len(flat))
	for i, o := range flat {
		refs[i] = r.refs[o]
	}
	return &ReferenceArray{shape: shape, refs: refs}, nil
}

// FrameInfo is the element type and shape declared by a stored frame
type FrameInfo struct {
	Dtype Dtype
	Shape []int
}

// FrameOpener reads the declared dtype and shape of sub-element index of the
// frame container at location. It must not read frame data.
type FrameOpener interface {
	OpenFrame(ctx context.Context, location string, index int) (FrameInfo, error)
}

// FrameOpenerFunc adapts a function to FrameOpener
type FrameOpenerFunc func(ctx context.Context, location string, index int) (FrameInfo, error)

func (f FrameOpenerFunc) OpenFrame(ctx context.Context, location string, index int) (FrameInfo, error) {
	return f(ctx, location, index)
}

// StoreFrameOpener reads frame metadata stored as <location>/<index>/.zarray.
// A location naming a .zarray key is read directly; one naming a .zgroup
// or .zattrs key resolves against the enclosing group.
type StoreFrameOpener struct {
	Store Store
}

var _ FrameOpener = StoreFrameOpener{}

func (o StoreFrameOpener) OpenFrame(ctx context.Context, location string, index int) (FrameInfo, error) {
	if err := ctx.Err(); err != nil {
		return FrameInfo{}, err
	}
	p := NewPath(location)
	mt, ok := KeyMetaType(p.String())
	switch {
	case ok && mt == MTArray:
	case ok && len(p) > 0 && p[len(p)-1] == string(mt):
		p = p[:len(p)-1].Join(strconv.Itoa(index), string(MTArray))
	default:
		p = p.Join(strconv.Itoa(index), string(MTArray))
	}
	f, err := o.Store.Get(p.String())
	if err != nil {
		return FrameInfo{}, err
	}
	defer f.Close()
	m, err := ReadFrameMeta(f)
	if err != nil {
		return FrameInfo{}, fmt.Errorf("%s: %w", p, err)
	}
	if _, ok := m.Dtype.Bitpix(); !ok {
		return FrameInfo{}, fmt.Errorf("%w: %s: FITS frames cannot hold %s data (%s)", ErrSchema, p, m.Dtype.BasicType.Human(), m.Dtype)
	}
	return FrameInfo{Dtype: m.Dtype, Shape: m.Shape}, nil
}

// HeaderFrameOpener reads a YAML header stream stored at location, taking
// header number index. The dtype comes from BITPIX and the shape from
// NAXISn, reversed into row-major order.
type HeaderFrameOpener struct {
	Store       Store
	Compression *CompressionMeta
}

var _ FrameOpener = HeaderFrameOpener{}

func (o HeaderFrameOpener) OpenFrame(ctx context.Context, location string, index int) (FrameInfo, error) {
	if err := ctx.Err(); err != nil {
		return FrameInfo{}, err
	}
	hs, err := LoadHeaders(o.Store, location, o.Compression)
	if err != nil {
		return FrameInfo{}, err
	}
	if index < 0 || index >= len(hs) {
		return FrameInfo{}, fmt.Errorf("%w: header %d of %d in %s", ErrIndex, index, len(hs), location)
	}
	return FrameInfoFromHeader(hs[index])
}

// FrameInfoFromHeader reads BITPIX, NAXIS and NAXISn
func FrameInfoFromHeader(h Header) (FrameInfo, error) {
	bitpix, err := h.Int("BITPIX")
	if err != nil {
		return FrameInfo{}, err
	}
	dt, err := DtypeFromBitpix(bitpix)
	if err != nil {
		return FrameInfo{}, err
	}
	naxis, err := h.Int("NAXIS")
	if err != nil {
		return FrameInfo{}, err
	}
	shape := make([]int, naxis)
	for i := 0; i < naxis; i++ {
		n, err := h.Int(fmt.Sprintf("NAXIS%d", i+1))
		if err != nil {
			return FrameInfo{}, err
		}
		shape[naxis-1-i] = n
	}
	return FrameInfo{Dtype: dt, Shape: shape}, nil
}

// FrameLoaded is published on the progress caster once per opened frame
type FrameLoaded struct {
	Position int
	Location string
}

type referenceConfig struct {
	index       int
	relativeTo  string
	concurrency int
	progress    *caster.Caster
}

// ReferenceOption configures BuildReferenceArray
type ReferenceOption func(*referenceConfig)

// WithIndex selects the sub-element (HDU) of every location. Default 0.
func WithIndex(i int) ReferenceOption {
	return func(c *referenceConfig) { c.index = i }
}

// RelativeTo rewrites locations as paths relative to base
func RelativeTo(base string) ReferenceOption {
	return func(c *referenceConfig) { c.relativeTo = base }
}

// WithConcurrency bounds the number of frames opened at once. Values below
// one mean GOMAXPROCS.
func WithConcurrency(n int) ReferenceOption {
	return func(c *referenceConfig) { c.concurrency = n }
}

// WithProgress publishes a FrameLoaded message on c for every opened frame.
// Messages are dropped for subscribers whose channel is full.
func WithProgress(c *caster.Caster) ReferenceOption {
	return func(cfg *referenceConfig) { cfg.progress = c }
}

// BuildReferenceArray opens each location once to read its declared dtype
// and shape, and arranges the resulting references into shape. locations
// are in row-major order of shape. Frames are opened concurrently; the
// first failure cancels the rest and no partial array is returned.
func BuildReferenceArray(ctx context.Context, opener FrameOpener, locations []string, shape []int, opts ...ReferenceOption) (*ReferenceArray, error) {
	if n := product(shape); n != len(locations) {
		return nil, fmt.Errorf("%w: %d locations for reference shape %v (%d frames)", ErrCountMismatch, len(locations), shape, n)
	}
	cfg := referenceConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.concurrency < 1 {
		cfg.concurrency = runtime.GOMAXPROCS(0)
	}

	refs := make([]ExternalReference, len(locations))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.concurrency)
	for i, loc := range locations {
		g.Go(func() error {
			info, err := opener.OpenFrame(gctx, loc, cfg.index)
			if err != nil {
				return fmt.Errorf("opening frame %d (%s): %w", i, loc, err)
			}
			rel := loc
			if cfg.relativeTo != "" {
				if rel, err = relativePath(cfg.relativeTo, loc); err != nil {
					return err
				}
			}
			refs[i] = ExternalReference{
				Location: rel,
				Index:    cfg.index,
				Dtype:    info.Dtype,
				Shape:    append([]int(nil), info.Shape...),
			}
			if cfg.progress != nil {
				cfg.progress.TryPub(FrameLoaded{Position: i, Location: loc})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		T().Errorf("building reference array: %s", err)
		return nil, err
	}
	T().Infof("built %v reference array from %d frames", shape, len(locations))
	return &ReferenceArray{shape: append([]int(nil), shape...), refs: refs}, nil
}

// relativePath works like os.path.relpath: both paths are made absolute
// against the working directory before taking the relative path
func relativePath(base, target string) (string, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", err
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return "", err
	}
	return filepath.Rel(absBase, absTarget)
}
