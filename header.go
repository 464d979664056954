package ndwcs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/qri-io/ndwcs/units"
	"gopkg.in/yaml.v3"
)

// Header holds the calibration keywords of one frame (a FITS-style header),
// keyed by upper-case keyword name. Headers arrive as YAML documents, one
// document per header-data unit.
type Header map[string]interface{}

// ParseHeaders parses a stream of YAML documents into headers
func ParseHeaders(data []byte) ([]Header, error) {
	return ReadHeaders(bytes.NewReader(data))
}

// ReadHeaders decodes every YAML document in r as a Header
func ReadHeaders(r io.Reader) ([]Header, error) {
	dec := yaml.NewDecoder(r)
	var hs []Header
	for {
		raw := map[string]interface{}{}
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to parse header YAML: %w", err)
		}
		hs = append(hs, normalizeHeader(raw))
	}
	if len(hs) == 0 {
		return nil, fmt.Errorf("%w: no header documents", ErrSchema)
	}
	return hs, nil
}

// LoadHeaders reads the header stream stored at key, decompressing it
// first when comp names a codec
func LoadHeaders(store Store, key string, comp *CompressionMeta) ([]Header, error) {
	f, err := store.Get(key)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if comp == nil || comp.ID == "" {
		return ReadHeaders(f)
	}
	r, err := comp.Decompressor(f)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return ReadHeaders(r)
}

// normalizeHeader upper-cases keywords
func normalizeHeader(raw map[string]interface{}) Header {
	h := make(Header, len(raw))
	for k, v := range raw {
		h[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return h
}

func (h Header) lookup(key string) (interface{}, error) {
	v, ok := h[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing header keyword %s", ErrSchema, key)
	}
	return v, nil
}

// Float returns a numeric keyword value
func (h Header) Float(key string) (float64, error) {
	v, err := h.lookup(key)
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("%w: header keyword %s is %T, not a number", ErrSchema, key, v)
	}
}

// Int returns an integral keyword value
func (h Header) Int(key string) (int, error) {
	v, err := h.lookup(key)
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case uint64:
		return int(x), nil
	case float64:
		if x == float64(int(x)) {
			return int(x), nil
		}
	}
	return 0, fmt.Errorf("%w: header keyword %s is not an integer: %v", ErrSchema, key, v)
}

// Text returns a string keyword value
func (h Header) Text(key string) (string, error) {
	v, err := h.lookup(key)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: header keyword %s is %T, not a string", ErrSchema, key, v)
	}
	return s, nil
}

// Quantity reads keyword key in the unit named by unitKey, falling back to
// def when unitKey is absent
func (h Header) Quantity(key, unitKey string, def units.Unit) (units.Quantity, error) {
	v, err := h.Float(key)
	if err != nil {
		return units.Quantity{}, err
	}
	u := def
	if sym, err := h.Text(unitKey); err == nil {
		if u, err = units.Parse(sym); err != nil {
			return units.Quantity{}, fmt.Errorf("%w: %s: %s", ErrSchema, unitKey, err)
		}
	}
	return units.New(v, u), nil
}
