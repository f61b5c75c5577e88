package catalog

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// DataType is the element type of raw samples.
type DataType uint8

const (
	Unknown DataType = iota
	Uint8
	Int8
	Uint16
	Int16
	Uint32
	Int32
	Uint64
	Int64
	Float32
	Float64
)

var dataTypeNames = map[DataType]string{
	Uint8:   "UINT8",
	Int8:    "INT8",
	Uint16:  "UINT16",
	Int16:   "INT16",
	Uint32:  "UINT32",
	Int32:   "INT32",
	Uint64:  "UINT64",
	Int64:   "INT64",
	Float32: "FLOAT32",
	Float64: "FLOAT64",
}

func (d DataType) String() string {
	if name, ok := dataTypeNames[d]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseDataType parses names such as "FLOAT64" or "int16".
func ParseDataType(s string) (DataType, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for dt, name := range dataTypeNames {
		if name == upper {
			return dt, nil
		}
	}
	return Unknown, fmt.Errorf("unknown data type %q", s)
}

// ElementSize is the encoded width of one sample in bytes.
func (d DataType) ElementSize() int {
	switch d {
	case Uint8, Int8:
		return 1
	case Uint16, Int16:
		return 2
	case Uint32, Int32, Float32:
		return 4
	case Uint64, Int64, Float64:
		return 8
	default:
		return 0
	}
}

// IsInteger reports whether bitwise aggregation is defined for the type.
func (d DataType) IsInteger() bool {
	return d != Unknown && d != Float32 && d != Float64
}

// Integer is the set of element types bitwise kernels accept.
type Integer interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64
}

// Number is the set of all supported element types.
type Number interface {
	Integer | ~float32 | ~float64
}

// Decode reinterprets little-endian raw bytes as a slice of T.
func Decode[T Number](raw []byte, out []T) {
	var zero T
	switch any(zero).(type) {
	case int8:
		for i := range out {
			out[i] = T(int8(raw[i]))
		}
	case uint8:
		for i := range out {
			out[i] = T(raw[i])
		}
	case int16:
		for i := range out {
			out[i] = T(int16(binary.LittleEndian.Uint16(raw[i*2:])))
		}
	case uint16:
		for i := range out {
			out[i] = T(binary.LittleEndian.Uint16(raw[i*2:]))
		}
	case int32:
		for i := range out {
			out[i] = T(int32(binary.LittleEndian.Uint32(raw[i*4:])))
		}
	case uint32:
		for i := range out {
			out[i] = T(binary.LittleEndian.Uint32(raw[i*4:]))
		}
	case int64:
		for i := range out {
			out[i] = T(int64(binary.LittleEndian.Uint64(raw[i*8:])))
		}
	case uint64:
		for i := range out {
			out[i] = T(binary.LittleEndian.Uint64(raw[i*8:]))
		}
	case float32:
		for i := range out {
			out[i] = T(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
		}
	case float64:
		for i := range out {
			out[i] = T(math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:])))
		}
	}
}

func decodeAs[T Number](raw []byte, out []float64) {
	typed := make([]T, len(out))
	Decode(raw, typed)
	for i, v := range typed {
		out[i] = float64(v)
	}
}

// DecodeFloat64 converts raw samples of type d to float64.
// len(raw) must be at least len(out)*d.ElementSize().
func DecodeFloat64(d DataType, raw []byte, out []float64) error {
	switch d {
	case Uint8:
		decodeAs[uint8](raw, out)
	case Int8:
		decodeAs[int8](raw, out)
	case Uint16:
		decodeAs[uint16](raw, out)
	case Int16:
		decodeAs[int16](raw, out)
	case Uint32:
		decodeAs[uint32](raw, out)
	case Int32:
		decodeAs[int32](raw, out)
	case Uint64:
		decodeAs[uint64](raw, out)
	case Int64:
		decodeAs[int64](raw, out)
	case Float32:
		decodeAs[float32](raw, out)
	case Float64:
		Decode(raw, out)
	default:
		return fmt.Errorf("cannot decode data type %s", d)
	}
	return nil
}

// EncodeFloat64 writes values as little-endian float64 into dst.
func EncodeFloat64(values []float64, dst []byte) {
	for i, v := range values {
		binary.LittleEndian.PutUint64(dst[i*8:], math.Float64bits(v))
	}
}

// ApplyStatus replaces every sample whose status byte is not 1 with NaN.
func ApplyStatus(values []float64, status []byte) {
	for i := range values {
		if status[i] != 1 {
			values[i] = math.NaN()
		}
	}
}

// EncodeValue writes v converted to type d as little-endian bytes at the start of dst.
func EncodeValue(d DataType, v float64, dst []byte) error {
	switch d {
	case Uint8:
		dst[0] = uint8(v)
	case Int8:
		dst[0] = byte(int8(v))
	case Uint16:
		binary.LittleEndian.PutUint16(dst, uint16(v))
	case Int16:
		binary.LittleEndian.PutUint16(dst, uint16(int16(v)))
	case Uint32:
		binary.LittleEndian.PutUint32(dst, uint32(v))
	case Int32:
		binary.LittleEndian.PutUint32(dst, uint32(int32(v)))
	case Uint64:
		binary.LittleEndian.PutUint64(dst, uint64(v))
	case Int64:
		binary.LittleEndian.PutUint64(dst, uint64(int64(v)))
	case Float32:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(v)))
	case Float64:
		binary.LittleEndian.PutUint64(dst, math.Float64bits(v))
	default:
		return fmt.Errorf("cannot encode data type %s", d)
	}
	return nil
}
