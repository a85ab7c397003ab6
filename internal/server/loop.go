package server

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"plane-detect-go/internal/detect"
	"plane-detect-go/internal/processing"
	"plane-detect-go/internal/types"
)

// DepthSource exposes the latest-frame buffer for the depth stream.
type DepthSource interface {
	Has() bool
	Take() *types.DepthImage
}

// ColorSource is the color-stream counterpart of DepthSource.
type ColorSource interface {
	Has() bool
	Take() *types.ColorImage
}

// Sink receives the four cycle outputs. All publishes are fire-and-forget.
type Sink interface {
	PublishMask(*types.ColorImage)
	PublishViz(*types.ColorImage)
	PublishResult(types.PlanesResult)
	PublishPose(types.Pose)
}

// Summary is the per-cycle digest handed to the monitor.
type Summary struct {
	Type         string     `json:"type"`
	FrameID      int        `json:"frame_id"`
	Planes       int        `json:"planes"`
	Pose         types.Pose `json:"pose"`
	DetectMillis float64    `json:"detect_ms"`
	Time         string     `json:"time"`
}

// Loop drives the acquire-detect-aggregate-publish cycle until ctx is
// done. Each iteration polls the depth slot; with a depth frame in hand
// it waits (bounded-interval sleeps) for a color frame when a color
// source is configured, otherwise an all-zero placeholder stands in.
// A detection error is fatal and propagates out of Run; a cycle already
// past the shutdown check runs to completion.
type Loop struct {
	Depth    DepthSource
	Color    ColorSource // nil when no color stream is configured
	Detector detect.Detector
	Sink     Sink
	Poll     time.Duration
	Notify   func(Summary)

	cycles atomic.Uint64
	planes atomic.Uint64
}

// Cycles reports completed detect-publish cycles.
func (l *Loop) Cycles() uint64 { return l.cycles.Load() }

// PlanesTotal reports the cumulative number of detected planes.
func (l *Loop) PlanesTotal() uint64 { return l.planes.Load() }

func (l *Loop) Run(ctx context.Context) error {
	poll := l.Poll
	if poll <= 0 {
		poll = 5 * time.Millisecond
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !l.Depth.Has() {
			if !sleepCtx(ctx, poll) {
				return nil
			}
			continue
		}
		depth := l.Depth.Take()
		if depth == nil {
			continue
		}

		var color *types.ColorImage
		if l.Color != nil {
			for !l.Color.Has() {
				if !sleepCtx(ctx, poll) {
					return nil
				}
			}
			color = l.Color.Take()
		}
		if color == nil {
			color = types.NewBlackImage(depth.Rows, depth.Cols)
		}

		log.Printf("received depth frame %d, starting plane detection", depth.FrameID)
		start := time.Now()
		planes, mask, viz, err := l.Detector.DetectPlanes(depth, color)
		if err != nil {
			return fmt.Errorf("plane detection on frame %d: %w", depth.FrameID, err)
		}
		detectMillis := float64(time.Since(start).Microseconds()) / 1000.0

		for i, p := range planes {
			log.Printf("plane %d: normal=%v center_3d=%v center_2d=%v",
				i+1, p.Normal, p.Center3D, p.Center2D)
		}

		result := processing.Aggregate(planes)
		pose := processing.DerivePose(planes)

		l.Sink.PublishMask(mask)
		l.Sink.PublishViz(viz)
		l.Sink.PublishResult(result)
		l.Sink.PublishPose(pose)

		l.cycles.Add(1)
		l.planes.Add(uint64(len(planes)))

		if l.Notify != nil {
			l.Notify(Summary{
				Type:         "detection",
				FrameID:      depth.FrameID,
				Planes:       len(planes),
				Pose:         pose,
				DetectMillis: detectMillis,
				Time:         time.Now().Format(time.RFC3339),
			})
		}
	}
}

// sleepCtx sleeps for d, returning false when ctx finished first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
