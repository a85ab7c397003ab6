package ingest

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/fxamacker/cbor/v2"
)

// RFC 8746 typed-array tags emitted by the sensor bridge.
const (
	tagMultiDimArray = 40
	tagUint8         = 64
	tagUint16LE      = 69
	tagFloat32LE     = 85
)

const millimetersPerMeter = 1000.0

// decodeDepthArray decodes a tag-40 multidimensional array into a depth
// buffer in meters. float32 payloads are taken as meters; uint16
// payloads as millimeters, the common RGBD driver format.
func decodeDepthArray(value any) (int, int, []float32, error) {
	dims, flat, err := decodeMultiDimArray(value)
	if err != nil {
		return 0, 0, nil, err
	}
	if len(dims) != 2 {
		return 0, 0, nil, fmt.Errorf("depth array must be 2-dimensional, got %d dims", len(dims))
	}
	rows, cols := dims[0], dims[1]

	var meters []float32
	switch v := flat.(type) {
	case []float32:
		meters = v
	case []uint16:
		meters = make([]float32, len(v))
		for i, mm := range v {
			meters[i] = float32(mm) / millimetersPerMeter
		}
	default:
		return 0, 0, nil, fmt.Errorf("unsupported depth element type %T", flat)
	}

	if rows*cols != len(meters) {
		return 0, 0, nil, errors.New("depth dimension mismatch")
	}
	return rows, cols, meters, nil
}

// decodeColorArray decodes a tag-40 array with dims [rows, cols, 3] into
// a packed RGB buffer.
func decodeColorArray(value any) (int, int, []byte, error) {
	dims, flat, err := decodeMultiDimArray(value)
	if err != nil {
		return 0, 0, nil, err
	}
	if len(dims) != 3 || dims[2] != 3 {
		return 0, 0, nil, fmt.Errorf("color array must have dims [rows, cols, 3], got %v", dims)
	}
	rows, cols := dims[0], dims[1]

	pixels, ok := flat.([]byte)
	if !ok {
		return 0, 0, nil, fmt.Errorf("unsupported color element type %T", flat)
	}
	if rows*cols*3 != len(pixels) {
		return 0, 0, nil, errors.New("color dimension mismatch")
	}
	return rows, cols, pixels, nil
}

func decodeMultiDimArray(value any) ([]int, any, error) {
	tag, ok := value.(cbor.Tag)
	if !ok || tag.Number != tagMultiDimArray {
		return nil, nil, fmt.Errorf("expected multidim tag %d", tagMultiDimArray)
	}

	items, ok := tag.Content.([]any)
	if !ok || len(items) != 2 {
		return nil, nil, errors.New("invalid multidim array content")
	}

	dimsRaw, ok := items[0].([]any)
	if !ok || len(dimsRaw) < 2 {
		return nil, nil, errors.New("invalid multidim dimensions")
	}
	dims := make([]int, len(dimsRaw))
	for i, raw := range dimsRaw {
		d, err := toInt(raw)
		if err != nil {
			return nil, nil, err
		}
		if d < 1 {
			return nil, nil, errors.New("non-positive dimension")
		}
		dims[i] = d
	}

	flat, err := decodeTypedArray(items[1])
	if err != nil {
		return nil, nil, err
	}
	return dims, flat, nil
}

func decodeTypedArray(value any) (any, error) {
	tag, ok := value.(cbor.Tag)
	if !ok {
		return nil, errors.New("expected typed array tag")
	}

	dataBytes, ok := tag.Content.([]byte)
	if !ok {
		return nil, fmt.Errorf("unsupported typed array content %T", tag.Content)
	}

	switch tag.Number {
	case tagUint8:
		return dataBytes, nil
	case tagUint16LE:
		if len(dataBytes)%2 != 0 {
			return nil, errors.New("uint16 array has odd byte length")
		}
		return bytesToUint16(dataBytes), nil
	case tagFloat32LE:
		if len(dataBytes)%4 != 0 {
			return nil, errors.New("float32 array length not a multiple of 4")
		}
		return bytesToFloat32(dataBytes), nil
	default:
		return nil, fmt.Errorf("unsupported typed array tag %d", tag.Number)
	}
}

func bytesToUint16(data []byte) []uint16 {
	out := make([]uint16, len(data)/2)
	for i := 0; i < len(out); i++ {
		out[i] = binary.LittleEndian.Uint16(data[i*2 : i*2+2])
	}
	return out
}

func bytesToFloat32(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := 0; i < len(out); i++ {
		bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		out[i] = math.Float32frombits(bits)
	}
	return out
}
