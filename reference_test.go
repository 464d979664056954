package ndwcs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/guiguan/caster"
	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frameLocations(n int) []string {
	locs := make([]string, n)
	for i := range locs {
		locs[i] = fmt.Sprintf("/data/run/frame_%02d.fits", i)
	}
	return locs
}

// countingOpener declares every frame a big-endian 10x20 float32 image
type countingOpener struct {
	opened int32
}

func (o *countingOpener) OpenFrame(ctx context.Context, location string, index int) (FrameInfo, error) {
	atomic.AddInt32(&o.opened, 1)
	return FrameInfo{Dtype: MustParseDtype(">f4"), Shape: []int{10, 20}}, nil
}

func TestBuildReferenceArray(t *testing.T) {
	gtrace.CoreTracer = gotestingadapter.New(t)
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	gtrace.CoreTracer.SetTraceLevel(tracing.LevelDebug)
	//
	opener := &countingOpener{}
	locs := frameLocations(6)
	ra, err := BuildReferenceArray(context.Background(), opener, locs, []int{2, 3}, WithConcurrency(2))
	require.NoError(t, err)
	assert.Equal(t, int32(6), opener.opened)
	assert.Equal(t, []int{2, 3}, ra.Shape())
	assert.Equal(t, 6, ra.Len())

	for i, ref := range ra.Flat() {
		assert.Equal(t, locs[i], ref.Location)
		assert.Equal(t, 0, ref.Index)
		assert.Equal(t, ">f4", ref.Dtype.String())
		assert.Equal(t, []int{10, 20}, ref.Shape)
	}
	ref, err := ra.At(1, 2)
	require.NoError(t, err)
	assert.Equal(t, locs[5], ref.Location)

	nested, ok := ra.Nested().([]interface{})
	require.True(t, ok)
	require.Len(t, nested, 2)
	row, ok := nested[1].([]interface{})
	require.True(t, ok)
	require.Len(t, row, 3)
	assert.Equal(t, locs[3], row[0].(ExternalReference).Location)
}

func TestBuildReferenceArrayCountMismatch(t *testing.T) {
	opener := &countingOpener{}
	_, err := BuildReferenceArray(context.Background(), opener, frameLocations(5), []int{2, 3})
	assert.ErrorIs(t, err, ErrCountMismatch)
	assert.Equal(t, int32(0), opener.opened, "frames opened before the count check")
}

func TestBuildReferenceArrayRelative(t *testing.T) {
	ra, err := BuildReferenceArray(context.Background(), &countingOpener{}, frameLocations(2), []int{2},
		RelativeTo("/data"), WithIndex(1))
	require.NoError(t, err)
	refs := ra.Flat()
	assert.Equal(t, filepath.Join("run", "frame_00.fits"), refs[0].Location)
	assert.Equal(t, filepath.Join("run", "frame_01.fits"), refs[1].Location)
	assert.Equal(t, 1, refs[0].Index)
}

func TestBuildReferenceArrayFailure(t *testing.T) {
	broken := errors.New("truncated file")
	opener := FrameOpenerFunc(func(ctx context.Context, location string, index int) (FrameInfo, error) {
		if strings.HasSuffix(location, "frame_03.fits") {
			return FrameInfo{}, broken
		}
		return FrameInfo{Dtype: MustParseDtype("<f8"), Shape: []int{4}}, nil
	})
	ra, err := BuildReferenceArray(context.Background(), opener, frameLocations(6), []int{6})
	assert.ErrorIs(t, err, broken)
	assert.Nil(t, ra)
}

func TestBuildReferenceArrayProgress(t *testing.T) {
	c := caster.New(nil)
	defer c.Close()
	ch, ok := c.Sub(context.Background(), 6)
	require.True(t, ok)

	_, err := BuildReferenceArray(context.Background(), &countingOpener{}, frameLocations(6), []int{3, 2},
		WithProgress(c))
	require.NoError(t, err)

	select {
	case msg := <-ch:
		fl, ok := msg.(FrameLoaded)
		require.True(t, ok, "unexpected message %v", msg)
		assert.True(t, fl.Position >= 0 && fl.Position < 6, "position %d", fl.Position)
		assert.Equal(t, frameLocations(6)[fl.Position], fl.Location)
	case <-time.After(time.Second):
		t.Fatal("no progress received")
	}
}

func TestBuildReferenceArraySlowSubscriber(t *testing.T) {
	c := caster.New(nil)
	defer c.Close()
	ch, ok := c.Sub(context.Background(), 1)
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		_, err := BuildReferenceArray(ctx, &countingOpener{}, frameLocations(6), []int{6},
			WithProgress(c), WithConcurrency(1))
		done <- err
	}()

	// nobody reads ch while the frames are opened
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("build blocked on a full progress subscriber")
	}
	select {
	case msg := <-ch:
		assert.IsType(t, FrameLoaded{}, msg)
	case <-time.After(time.Second):
		t.Fatal("no progress received")
	}
}

func TestReferenceArraySlice(t *testing.T) {
	ra, err := BuildReferenceArray(context.Background(), &countingOpener{}, frameLocations(6), []int{2, 3})
	require.NoError(t, err)

	row, err := ra.Slice(Expr{Index(1)})
	require.NoError(t, err)
	assert.Equal(t, []int{3}, row.Shape())
	assert.Equal(t, frameLocations(6)[3], row.Flat()[0].Location)

	one, err := ra.Slice(Expr{Index(0), Index(2)})
	require.NoError(t, err)
	assert.Empty(t, one.Shape())
	assert.Equal(t, frameLocations(6)[2], one.Nested().(ExternalReference).Location)

	_, err = ra.At(2, 0)
	assert.ErrorIs(t, err, ErrIndex)
	_, err = NewReferenceArray(ra.Flat(), 4)
	assert.ErrorIs(t, err, ErrCountMismatch)
}

const frameMetaJSON = `{"zarr_format": 2, "shape": [4096, 4096], "chunks": [512, 512],
	"dtype": ">i2", "compressor": null, "fill_value": 0, "order": "C"}`

func TestStoreFrameOpener(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Put("frames/a/0/.zarray", strings.NewReader(frameMetaJSON)))
	require.NoError(t, s.Put("frames/b.zarray/.zarray", strings.NewReader(frameMetaJSON)))

	o := StoreFrameOpener{Store: s}
	info, err := o.OpenFrame(context.Background(), "frames/a", 0)
	require.NoError(t, err)
	assert.Equal(t, ">i2", info.Dtype.String())
	assert.Equal(t, []int{4096, 4096}, info.Shape)

	info, err = o.OpenFrame(context.Background(), "/frames/b.zarray/.zarray", 3)
	require.NoError(t, err)
	assert.Equal(t, []int{4096, 4096}, info.Shape)

	_, err = o.OpenFrame(context.Background(), "frames/a", 1)
	assert.ErrorIs(t, err, ErrNotfound)

	for _, group := range []string{"frames/a/.zgroup", "frames/a/.zattrs"} {
		info, err = o.OpenFrame(context.Background(), group, 0)
		require.NoError(t, err, group)
		assert.Equal(t, []int{4096, 4096}, info.Shape, group)
	}
}

func TestStoreFrameOpenerDtype(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Put("frames/le/0/.zarray", strings.NewReader(strings.Replace(frameMetaJSON, ">i2", "<f4", 1))))
	require.NoError(t, s.Put("frames/mask/0/.zarray", strings.NewReader(strings.Replace(frameMetaJSON, ">i2", "|b1", 1))))

	o := StoreFrameOpener{Store: s}
	info, err := o.OpenFrame(context.Background(), "frames/le", 0)
	require.NoError(t, err)
	assert.Equal(t, "<f4", info.Dtype.String())

	_, err = o.OpenFrame(context.Background(), "frames/mask", 0)
	assert.ErrorIs(t, err, ErrSchema)
	assert.Contains(t, err.Error(), "bool")
}

const frameHeaders = `BITPIX: 8
NAXIS: 0
---
BITPIX: -32
NAXIS: 3
NAXIS1: 20
NAXIS2: 10
NAXIS3: 1
DATE-OBS: "2017-01-01T00:00:00"
`

func TestHeaderFrameOpener(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Put("run/frame_00.yaml", strings.NewReader(frameHeaders)))

	o := HeaderFrameOpener{Store: s}
	ra, err := BuildReferenceArray(context.Background(), o, []string{"run/frame_00.yaml"}, []int{1}, WithIndex(1))
	require.NoError(t, err)
	ref := ra.Flat()[0]
	assert.Equal(t, ">f4", ref.Dtype.String())
	assert.Equal(t, []int{1, 10, 20}, ref.Shape)

	info, err := o.OpenFrame(context.Background(), "run/frame_00.yaml", 0)
	require.NoError(t, err)
	assert.Equal(t, "|u1", info.Dtype.String())
	assert.Empty(t, info.Shape)

	_, err = o.OpenFrame(context.Background(), "run/frame_00.yaml", 2)
	assert.ErrorIs(t, err, ErrIndex)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = o.OpenFrame(ctx, "run/frame_00.yaml", 1)
	assert.ErrorIs(t, err, context.Canceled)
}
