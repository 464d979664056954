package ndwcs

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Dtype describes the element type of a frame, as a string in the NumPy
// array protocol type string (typestr) format. The format consists of 3 parts:
//   - One character describing the byteorder of the data:
//     "<": little-endian; ">": big-endian; "|": not-relevant)
//   - One character code giving the basic type of the array:
//     "b": Boolean, "i": integer, "u": unsigned integer, "f": floating point,
//     "c": complex floating point, "m": timedelta, "M": datetime,
//     "S": string, "U": unicode, "V": other
//   - An integer specifying the number of bytes the type uses.
//
// datetime and timedelta types may carry a trailing unit such as "[s]".
type Dtype struct {
	ByteOrder ByteOrder
	BasicType BasicType
	ByteSize  int
	Units     string
}

var (
	_ json.Unmarshaler = (*Dtype)(nil)
	_ json.Marshaler   = (*Dtype)(nil)
)

func ParseDtype(s string) (dt Dtype, err error) {
	// some writers HTML-escape the byte order when serializing JSON
	s = strings.Replace(s, "&lt;", "<", 1)
	s = strings.Replace(s, "&gt;", ">", 1)

	if len(s) < 3 {
		return dt, fmt.Errorf("invalid Dtype string. %q is too short", s)
	}

	boByte, s := s[0], s[1:]
	dt.ByteOrder, err = ParseByteOrder(rune(boByte))
	if err != nil {
		return dt, err
	}

	typeByte, s := s[0], s[1:]
	dt.BasicType, err = ParseBasicType(rune(typeByte))
	if err != nil {
		return dt, err
	}

	sizeStr := s
	if i := strings.IndexByte(s, '['); i >= 0 {
		sizeStr, dt.Units = s[:i], s[i:]
		if !strings.HasSuffix(dt.Units, "]") {
			return dt, fmt.Errorf("invalid Dtype unit %q", dt.Units)
		}
	}

	size, err := strconv.ParseInt(sizeStr, 10, 0)
	if err != nil {
		return dt, fmt.Errorf("invalid Dtype size %q: %w", sizeStr, err)
	}
	dt.ByteSize = int(size)
	return dt, nil
}

// MustParseDtype is ParseDtype for literals; it panics on error
func MustParseDtype(s string) Dtype {
	dt, err := ParseDtype(s)
	if err != nil {
		panic(err)
	}
	return dt
}

func (dt Dtype) String() string {
	s := fmt.Sprintf("%s%s%d", string(dt.ByteOrder), string(dt.BasicType), dt.ByteSize)
	if dt.Units != "" {
		s += dt.Units
	}
	return s
}

func (dt Dtype) MarshalJSON() ([]byte, error) {
	return json.Marshal(dt.String())
}

func (dt *Dtype) UnmarshalJSON(d []byte) error {
	var s string
	if err := json.Unmarshal(d, &s); err != nil {
		return err
	}
	t, err := ParseDtype(s)
	if err != nil {
		return err
	}

	*dt = t
	return nil
}

// bitpixDtypes maps FITS BITPIX values to dtypes. FITS data is big-endian.
var bitpixDtypes = map[int]string{
	8:   "|u1",
	16:  ">i2",
	32:  ">i4",
	64:  ">i8",
	-32: ">f4",
	-64: ">f8",
}

// DtypeFromBitpix returns the element type declared by a FITS BITPIX value
func DtypeFromBitpix(bitpix int) (Dtype, error) {
	s, ok := bitpixDtypes[bitpix]
	if !ok {
		return Dtype{}, fmt.Errorf("%w: unsupported BITPIX %d", ErrSchema, bitpix)
	}
	return ParseDtype(s)
}

// Bitpix returns the FITS BITPIX value for dt, or false when FITS cannot
// store it. Byte order is ignored since FITS writers swap to big-endian.
func (dt Dtype) Bitpix() (int, bool) {
	for bp, s := range bitpixDtypes {
		fits := MustParseDtype(s)
		if fits.BasicType == dt.BasicType && fits.ByteSize == dt.ByteSize && dt.Units == "" {
			return bp, true
		}
	}
	return 0, false
}

type ByteOrder rune

func ParseByteOrder(r rune) (ByteOrder, error) {
	o := ByteOrder(r)
	if _, ok := byteOrders[o]; !ok {
		return o, fmt.Errorf("unsupported byte order format: %q", r)
	}
	return o, nil
}

const (
	BONotRelevant  ByteOrder = '|'
	BOLittleEndian ByteOrder = '<'
	BOBigEndian    ByteOrder = '>'
)

var byteOrders = map[ByteOrder]struct{}{
	BONotRelevant:  {},
	BOLittleEndian: {},
	BOBigEndian:    {},
}

type BasicType rune

func ParseBasicType(r rune) (BasicType, error) {
	t := BasicType(r)
	if _, ok := supportedBasicTypes[t]; !ok {
		return t, fmt.Errorf("unsupported basic type: %q", r)
	}
	return t, nil
}

func (bt BasicType) Human() string {
	return supportedBasicTypes[bt]
}

const (
	BTBoolean       BasicType = 'b'
	BTInteger       BasicType = 'i'
	BTUnsigned      BasicType = 'u'
	BTFloatingPoint BasicType = 'f'
	BTComplex       BasicType = 'c'
	BTTimedelta     BasicType = 'm'
	BTDatetime      BasicType = 'M'
	BTString        BasicType = 'S'
	BTUnicode       BasicType = 'U'
	BTOther         BasicType = 'V'
)

var supportedBasicTypes = map[BasicType]string{
	BTBoolean:       "bool",
	BTInteger:       "int",
	BTUnsigned:      "uint",
	BTFloatingPoint: "float",
	BTComplex:       "complex",
	BTTimedelta:     "timeDelta",
	BTDatetime:      "dateTime",
	BTString:        "string",
	BTUnicode:       "unicode",
	BTOther:         "other",
}
