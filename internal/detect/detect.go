// Package detect wraps the external plane-detection routine. The
// algorithm itself lives outside this process; the server only depends
// on the Detector contract.
package detect

import (
	"plane-detect-go/internal/types"
)

// Detector runs one detection over a matched depth/color pair and
// returns the per-plane parameters plus the colored mask and the
// visualization image. An error is fatal for the cycle; the caller does
// not swallow it.
type Detector interface {
	DetectPlanes(depth *types.DepthImage, color *types.ColorImage) (planes []types.PlaneParam, mask, viz *types.ColorImage, err error)
}

// Synthetic is a debug-mode stand-in that fabricates a single
// floor-like plane and paints the whole valid-depth region with its mask
// color. It does no plane fitting; it exists so the server can run
// end-to-end without the external detector.
type Synthetic struct{}

var syntheticMaskColor = [3]uint8{255, 0, 0}

func (Synthetic) DetectPlanes(depth *types.DepthImage, color *types.ColorImage) ([]types.PlaneParam, *types.ColorImage, *types.ColorImage, error) {
	centerRow := depth.Rows / 2
	centerCol := depth.Cols / 2
	centerDepth := float64(depth.Meters[centerRow*depth.Cols+centerCol])

	plane := types.PlaneParam{
		Normal:    [3]float64{0, 0, 1},
		Center3D:  [3]float64{0, 0, centerDepth},
		Center2D:  [2]float64{float64(centerCol), float64(centerRow)},
		MaskColor: syntheticMaskColor,
	}

	mask := types.NewBlackImage(depth.Rows, depth.Cols)
	mask.FrameID = depth.FrameID
	mask.Timestamp = depth.Timestamp
	for i, m := range depth.Meters {
		if m <= 0 {
			continue
		}
		mask.Pixels[i*3] = plane.MaskColor[0]
		mask.Pixels[i*3+1] = plane.MaskColor[1]
		mask.Pixels[i*3+2] = plane.MaskColor[2]
	}

	viz := &types.ColorImage{
		Rows:      depth.Rows,
		Cols:      depth.Cols,
		FrameID:   depth.FrameID,
		Timestamp: depth.Timestamp,
		Pixels:    make([]byte, len(mask.Pixels)),
	}
	for i := range viz.Pixels {
		base := byte(0)
		if color != nil && i < len(color.Pixels) {
			base = color.Pixels[i]
		}
		viz.Pixels[i] = base/2 + mask.Pixels[i]/2
	}

	return []types.PlaneParam{plane}, mask, viz, nil
}
