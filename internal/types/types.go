package types

// DepthImage holds per-pixel distance from the sensor in meters,
// row-major, distortion-free.
type DepthImage struct {
	Rows      int
	Cols      int
	FrameID   int
	Timestamp float64
	Meters    []float32
}

// ColorImage is a row-major RGB buffer, 3 bytes per pixel. The same type
// carries the colored mask and visualization outputs.
type ColorImage struct {
	Rows      int
	Cols      int
	FrameID   int
	Timestamp float64
	Pixels    []byte
}

// NewBlackImage returns the all-zero placeholder used when no color
// stream is configured.
func NewBlackImage(rows, cols int) *ColorImage {
	return &ColorImage{
		Rows:   rows,
		Cols:   cols,
		Pixels: make([]byte, rows*cols*3),
	}
}

// PlaneParam describes one detected planar region. Produced fresh by the
// detector each cycle and discarded after publishing.
type PlaneParam struct {
	Normal    [3]float64 `cbor:"normal"`
	Center3D  [3]float64 `cbor:"center_3d"`
	Center2D  [2]float64 `cbor:"center_2d"`
	MaskColor [3]uint8   `cbor:"mask_color"`
}

// PlanesResult is the flat wire-ready view over one cycle's planes:
// a count plus four parallel flattened sequences in matching order.
type PlanesResult struct {
	N         int       `cbor:"n"`
	Norms     []float64 `cbor:"norms"`
	Center3D  []float64 `cbor:"center_3d"`
	Center2D  []float64 `cbor:"center_2d"`
	MaskColor []uint8   `cbor:"mask_color"`
}

type Quaternion struct {
	X float64 `cbor:"x"`
	Y float64 `cbor:"y"`
	Z float64 `cbor:"z"`
	W float64 `cbor:"w"`
}

// Pose is a rigid-body position plus orientation quaternion. The zero
// value (origin, all-zero quaternion) is the published default when a
// cycle detects no planes.
type Pose struct {
	Position    [3]float64 `cbor:"position"`
	Orientation Quaternion `cbor:"orientation"`
}
