package processing

import (
	"reflect"
	"testing"

	"plane-detect-go/internal/types"
)

func TestAggregateEmpty(t *testing.T) {
	res := Aggregate(nil)

	if res.N != 0 {
		t.Fatalf("unexpected N: %d", res.N)
	}
	if len(res.Norms) != 0 || len(res.Center3D) != 0 || len(res.Center2D) != 0 || len(res.MaskColor) != 0 {
		t.Fatalf("expected empty sequences, got %#v", res)
	}
}

func TestAggregateLengths(t *testing.T) {
	for _, n := range []int{1, 2, 5, 17} {
		planes := make([]types.PlaneParam, n)
		res := Aggregate(planes)

		if res.N != n {
			t.Fatalf("N=%d: unexpected count %d", n, res.N)
		}
		if len(res.Norms) != 3*n {
			t.Fatalf("N=%d: norms length %d", n, len(res.Norms))
		}
		if len(res.Center3D) != 3*n {
			t.Fatalf("N=%d: center_3d length %d", n, len(res.Center3D))
		}
		if len(res.Center2D) != 2*n {
			t.Fatalf("N=%d: center_2d length %d", n, len(res.Center2D))
		}
		if len(res.MaskColor) != 3*n {
			t.Fatalf("N=%d: mask_color length %d", n, len(res.MaskColor))
		}
	}
}

func TestAggregatePreservesOrder(t *testing.T) {
	planes := []types.PlaneParam{
		{
			Normal:    [3]float64{0, 0, 1},
			Center3D:  [3]float64{0.1, 0.2, 2.0},
			Center2D:  [2]float64{320, 240},
			MaskColor: [3]uint8{255, 0, 0},
		},
		{
			Normal:    [3]float64{1, 0, 0},
			Center3D:  [3]float64{-0.5, 0.0, 1.5},
			Center2D:  [2]float64{100, 80},
			MaskColor: [3]uint8{0, 255, 0},
		},
		{
			Normal:    [3]float64{0, -1, 0},
			Center3D:  [3]float64{0.3, -0.7, 3.2},
			Center2D:  [2]float64{500, 400},
			MaskColor: [3]uint8{0, 0, 255},
		},
	}

	res := Aggregate(planes)

	for i, p := range planes {
		norm := res.Norms[3*i : 3*i+3]
		if norm[0] != p.Normal[0] || norm[1] != p.Normal[1] || norm[2] != p.Normal[2] {
			t.Fatalf("plane %d: normal mismatch %v", i, norm)
		}
		center := res.Center3D[3*i : 3*i+3]
		if center[0] != p.Center3D[0] || center[1] != p.Center3D[1] || center[2] != p.Center3D[2] {
			t.Fatalf("plane %d: center_3d mismatch %v", i, center)
		}
		pixel := res.Center2D[2*i : 2*i+2]
		if pixel[0] != p.Center2D[0] || pixel[1] != p.Center2D[1] {
			t.Fatalf("plane %d: center_2d mismatch %v", i, pixel)
		}
		color := res.MaskColor[3*i : 3*i+3]
		if !reflect.DeepEqual(color, p.MaskColor[:]) {
			t.Fatalf("plane %d: mask_color mismatch %v", i, color)
		}
	}
}
