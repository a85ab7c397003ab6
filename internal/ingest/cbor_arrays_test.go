package ingest

import (
	"encoding/binary"
	"math"
	"reflect"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

func float32LE(values ...float32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func uint16LE(values ...uint16) []byte {
	out := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(out[i*2:], v)
	}
	return out
}

func multiDim(dims []any, inner cbor.Tag) cbor.Tag {
	return cbor.Tag{
		Number:  tagMultiDimArray,
		Content: []any{dims, inner},
	}
}

func TestDecodeDepthArrayFloat32(t *testing.T) {
	value := multiDim([]any{2, 3}, cbor.Tag{
		Number:  tagFloat32LE,
		Content: float32LE(0.5, 1.0, 1.5, 2.0, 2.5, 3.0),
	})

	rows, cols, meters, err := decodeDepthArray(value)
	if err != nil {
		t.Fatalf("decodeDepthArray error: %v", err)
	}
	if rows != 2 || cols != 3 {
		t.Fatalf("unexpected dims %dx%d", rows, cols)
	}
	want := []float32{0.5, 1.0, 1.5, 2.0, 2.5, 3.0}
	if !reflect.DeepEqual(meters, want) {
		t.Fatalf("unexpected meters: %v", meters)
	}
}

func TestDecodeDepthArrayUint16Millimeters(t *testing.T) {
	value := multiDim([]any{1, 4}, cbor.Tag{
		Number:  tagUint16LE,
		Content: uint16LE(500, 1000, 1500, 2000),
	})

	rows, cols, meters, err := decodeDepthArray(value)
	if err != nil {
		t.Fatalf("decodeDepthArray error: %v", err)
	}
	if rows != 1 || cols != 4 {
		t.Fatalf("unexpected dims %dx%d", rows, cols)
	}
	want := []float32{0.5, 1.0, 1.5, 2.0}
	if !reflect.DeepEqual(meters, want) {
		t.Fatalf("unexpected meters: %v", meters)
	}
}

func TestDecodeDepthArrayRejectsThreeDims(t *testing.T) {
	value := multiDim([]any{1, 2, 3}, cbor.Tag{
		Number:  tagFloat32LE,
		Content: float32LE(0, 0, 0, 0, 0, 0),
	})

	if _, _, _, err := decodeDepthArray(value); err == nil {
		t.Fatalf("expected error for 3-dimensional depth array")
	}
}

func TestDecodeDepthArrayDimensionMismatch(t *testing.T) {
	value := multiDim([]any{2, 2}, cbor.Tag{
		Number:  tagFloat32LE,
		Content: float32LE(1, 2, 3),
	})

	if _, _, _, err := decodeDepthArray(value); err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
}

func TestDecodeColorArray(t *testing.T) {
	pixels := []byte{
		255, 0, 0, 0, 255, 0,
		0, 0, 255, 10, 20, 30,
	}
	value := multiDim([]any{2, 2, 3}, cbor.Tag{
		Number:  tagUint8,
		Content: pixels,
	})

	rows, cols, got, err := decodeColorArray(value)
	if err != nil {
		t.Fatalf("decodeColorArray error: %v", err)
	}
	if rows != 2 || cols != 2 {
		t.Fatalf("unexpected dims %dx%d", rows, cols)
	}
	if !reflect.DeepEqual(got, pixels) {
		t.Fatalf("unexpected pixels: %v", got)
	}
}

func TestDecodeColorArrayRejectsBadChannels(t *testing.T) {
	value := multiDim([]any{1, 1, 4}, cbor.Tag{
		Number:  tagUint8,
		Content: []byte{0, 0, 0, 0},
	})

	if _, _, _, err := decodeColorArray(value); err == nil {
		t.Fatalf("expected error for non-RGB channel count")
	}
}

func TestDecodeTypedArrayUnsupportedTag(t *testing.T) {
	value := multiDim([]any{1, 1}, cbor.Tag{
		Number:  77,
		Content: []byte{0, 0, 0, 0, 0, 0, 0, 0},
	})

	if _, _, _, err := decodeDepthArray(value); err == nil {
		t.Fatalf("expected error for unsupported typed array tag")
	}
}
