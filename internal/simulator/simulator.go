package simulator

import (
	"context"
	"math/rand"
	"time"

	"plane-detect-go/internal/types"
)

// Streams emits synthetic depth and color frames at acqRate frames per
// second: a tilted planar surface with Gaussian depth noise, and a flat
// gray color image. Used with -debug so the server can run without a
// sensor.
func Streams(ctx context.Context, rows, cols int, acqRate float64) (<-chan *types.DepthImage, <-chan *types.ColorImage) {
	depthOut := make(chan *types.DepthImage)
	colorOut := make(chan *types.ColorImage)

	go func() {
		defer close(depthOut)
		defer close(colorOut)

		frameInterval := time.Duration(float64(time.Second) / acqRate)
		ticker := time.NewTicker(frameInterval)
		defer ticker.Stop()

		frameID := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				now := float64(time.Now().UnixNano()) / 1e9
				depth := planeDepth(rows, cols)
				depth.FrameID = frameID
				depth.Timestamp = now

				color := grayColor(rows, cols)
				color.FrameID = frameID
				color.Timestamp = now

				select {
				case <-ctx.Done():
					return
				case depthOut <- depth:
				}
				select {
				case <-ctx.Done():
					return
				case colorOut <- color:
				}
				frameID++
			}
		}
	}()

	return depthOut, colorOut
}

// planeDepth builds a depth image of a surface tilted away from the
// camera: depth grows with row index, plus per-pixel noise.
func planeDepth(rows, cols int) *types.DepthImage {
	meters := make([]float32, rows*cols)
	for r := 0; r < rows; r++ {
		base := 1.0 + 2.0*float64(r)/float64(rows)
		for c := 0; c < cols; c++ {
			noise := rand.NormFloat64() * 0.005
			meters[r*cols+c] = float32(base + noise)
		}
	}
	return &types.DepthImage{
		Rows:   rows,
		Cols:   cols,
		Meters: meters,
	}
}

func grayColor(rows, cols int) *types.ColorImage {
	pixels := make([]byte, rows*cols*3)
	for i := range pixels {
		pixels[i] = 128
	}
	return &types.ColorImage{
		Rows:   rows,
		Cols:   cols,
		Pixels: pixels,
	}
}
