package ndwcs

import (
	"errors"
	"strings"
	"testing"
)

// https://zarr.readthedocs.io/en/stable/spec/v2.html#metadata
const specExample = `{
  "chunks": [
    1000,
    1000
  ],
	"compressor": {
			"id": "blosc",
			"cname": "lz4",
			"clevel": 5,
			"shuffle": 1
	},
	"dtype": "<f8",
	"fill_value": "NaN",
	"filters": [
			{"id": "delta", "dtype": "<f8", "astype": "<f4"}
	],
	"order": "C",
	"shape": [
			10000,
			10000
	],
	"zarr_format": 2
}`

func TestFrameMetaSerialization(t *testing.T) {
	m, err := ReadFrameMeta(strings.NewReader(specExample))
	if err != nil {
		t.Fatal(err)
	}
	if m.Dtype.String() != "<f8" {
		t.Errorf("dtype mismatch. want: <f8, got: %s", m.Dtype)
	}
	if len(m.Shape) != 2 || m.Shape[0] != 10000 {
		t.Errorf("shape mismatch. got: %v", m.Shape)
	}
	if m.Compressor == nil || m.Compressor.Cname != "lz4" {
		t.Errorf("expected lz4 compressor, got: %#v", m.Compressor)
	}
}

func TestFrameMetaDefaults(t *testing.T) {
	m, err := ReadFrameMeta(strings.NewReader(`{"zarr_format": 2, "shape": [3], "dtype": "|b1"}`))
	if err != nil {
		t.Fatal(err)
	}
	if m.Order != "C" {
		t.Errorf("expected default order C, got: %q", m.Order)
	}

	for _, bad := range []string{
		`{"shape": [3], "dtype": "<f8", "order": "X"}`,
		`{"shape": [-1], "dtype": "<f8"}`,
		`{"shape": [3], "dtype": "<z8"}`,
		`not json`,
	} {
		if _, err := ReadFrameMeta(strings.NewReader(bad)); !errors.Is(err, ErrSchema) {
			t.Errorf("%s: expected schema error, got: %v", bad, err)
		}
	}
}

func TestKeyMetaType(t *testing.T) {
	cases := []struct {
		key string
		mt  MetaType
		ok  bool
	}{
		{"frames/a/0/.zarray", MTArray, true},
		{"frames/.zattrs", MTAttributes, true},
		{".zgroup", MTGroup, true},
		{"frames/a", "", false},
		{"zarray", "", false},
	}
	for _, c := range cases {
		mt, ok := KeyMetaType(c.key)
		if ok != c.ok || (ok && mt != c.mt) {
			t.Errorf("%s: want (%q, %v), got (%q, %v)", c.key, c.mt, c.ok, mt, ok)
		}
	}
}
