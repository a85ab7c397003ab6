package detect

import (
	"testing"

	"plane-detect-go/internal/types"
)

func TestSyntheticSinglePlane(t *testing.T) {
	depth := &types.DepthImage{
		Rows:    2,
		Cols:    2,
		FrameID: 3,
		Meters:  []float32{0, 1.5, 2.0, 2.5},
	}
	color := types.NewBlackImage(2, 2)

	planes, mask, viz, err := Synthetic{}.DetectPlanes(depth, color)
	if err != nil {
		t.Fatalf("DetectPlanes error: %v", err)
	}

	if len(planes) != 1 {
		t.Fatalf("expected 1 plane, got %d", len(planes))
	}
	if planes[0].Normal != [3]float64{0, 0, 1} {
		t.Fatalf("unexpected normal: %v", planes[0].Normal)
	}
	// Center depth comes from the middle pixel (row 1, col 1).
	if planes[0].Center3D[2] != 2.5 {
		t.Fatalf("unexpected center depth: %v", planes[0].Center3D)
	}

	if mask.Rows != 2 || mask.Cols != 2 || len(mask.Pixels) != 12 {
		t.Fatalf("unexpected mask shape: %dx%d len=%d", mask.Rows, mask.Cols, len(mask.Pixels))
	}
	// Pixel 0 has no depth, so it stays black.
	if mask.Pixels[0] != 0 {
		t.Fatalf("invalid-depth pixel painted: %v", mask.Pixels[:3])
	}
	// Pixel 1 has valid depth and gets the mask color.
	if mask.Pixels[3] != 255 || mask.Pixels[4] != 0 || mask.Pixels[5] != 0 {
		t.Fatalf("valid-depth pixel not painted: %v", mask.Pixels[3:6])
	}

	if viz.Rows != 2 || viz.Cols != 2 || len(viz.Pixels) != 12 {
		t.Fatalf("unexpected viz shape: %dx%d len=%d", viz.Rows, viz.Cols, len(viz.Pixels))
	}
	if viz.FrameID != depth.FrameID {
		t.Fatalf("viz lost frame id: %d", viz.FrameID)
	}
}

func TestSyntheticNilColor(t *testing.T) {
	depth := &types.DepthImage{
		Rows:   1,
		Cols:   1,
		Meters: []float32{1.0},
	}

	planes, mask, viz, err := Synthetic{}.DetectPlanes(depth, nil)
	if err != nil {
		t.Fatalf("DetectPlanes error: %v", err)
	}
	if len(planes) != 1 || mask == nil || viz == nil {
		t.Fatalf("incomplete result: planes=%d mask=%v viz=%v", len(planes), mask, viz)
	}
}
