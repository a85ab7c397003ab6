package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"plane-detect-go/internal/source"
	"plane-detect-go/internal/types"
)

type stubDetector struct {
	mu       sync.Mutex
	planes   []types.PlaneParam
	err      error
	gotColor *types.ColorImage
}

func (d *stubDetector) DetectPlanes(depth *types.DepthImage, color *types.ColorImage) ([]types.PlaneParam, *types.ColorImage, *types.ColorImage, error) {
	d.mu.Lock()
	d.gotColor = color
	d.mu.Unlock()
	if d.err != nil {
		return nil, nil, nil, d.err
	}
	mask := types.NewBlackImage(depth.Rows, depth.Cols)
	viz := types.NewBlackImage(depth.Rows, depth.Cols)
	return d.planes, mask, viz, nil
}

func (d *stubDetector) lastColor() *types.ColorImage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gotColor
}

type recordingSink struct {
	mu     sync.Mutex
	calls  []string
	result types.PlanesResult
	pose   types.Pose
	done   chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{done: make(chan struct{})}
}

func (s *recordingSink) PublishMask(*types.ColorImage) { s.record("mask") }
func (s *recordingSink) PublishViz(*types.ColorImage)  { s.record("viz") }

func (s *recordingSink) PublishResult(res types.PlanesResult) {
	s.mu.Lock()
	s.result = res
	s.mu.Unlock()
	s.record("result")
}

func (s *recordingSink) PublishPose(pose types.Pose) {
	s.mu.Lock()
	s.pose = pose
	s.mu.Unlock()
	s.record("pose")
	close(s.done)
}

func (s *recordingSink) record(name string) {
	s.mu.Lock()
	s.calls = append(s.calls, name)
	s.mu.Unlock()
}

func (s *recordingSink) waitForCycle(t *testing.T) {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("cycle did not complete")
	}
}

func runLoop(t *testing.T, loop *Loop) (cancel func(), wait func() error) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- loop.Run(ctx)
	}()
	return stop, func() error {
		select {
		case err := <-errCh:
			return err
		case <-time.After(2 * time.Second):
			t.Fatalf("loop did not stop")
			return nil
		}
	}
}

func TestLoopPublishesInOrder(t *testing.T) {
	var depthSlot source.DepthSlot
	depthSlot.Put(&types.DepthImage{Rows: 2, Cols: 2, FrameID: 1, Meters: make([]float32, 4)})

	detector := &stubDetector{planes: []types.PlaneParam{{
		Normal:    [3]float64{0, 0, 1},
		Center3D:  [3]float64{0, 0, 2},
		MaskColor: [3]uint8{255, 0, 0},
	}}}
	sink := newRecordingSink()

	loop := &Loop{Depth: &depthSlot, Detector: detector, Sink: sink, Poll: time.Millisecond}
	cancel, wait := runLoop(t, loop)

	sink.waitForCycle(t)
	cancel()
	if err := wait(); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	want := []string{"mask", "viz", "result", "pose"}
	sink.mu.Lock()
	calls := append([]string(nil), sink.calls...)
	sink.mu.Unlock()
	if len(calls) < 4 {
		t.Fatalf("expected at least 4 publishes, got %v", calls)
	}
	for i, name := range want {
		if calls[i] != name {
			t.Fatalf("publish order mismatch: got %v", calls[:4])
		}
	}

	if sink.result.N != 1 {
		t.Fatalf("unexpected result count: %d", sink.result.N)
	}
	// Position comes from the raw normal, not the plane center.
	if sink.pose.Position != [3]float64{0, 0, 1} {
		t.Fatalf("unexpected pose position: %v", sink.pose.Position)
	}
	if loop.Cycles() != 1 {
		t.Fatalf("unexpected cycle count: %d", loop.Cycles())
	}
}

func TestLoopEmptyDetectionStillPublishes(t *testing.T) {
	var depthSlot source.DepthSlot
	depthSlot.Put(&types.DepthImage{Rows: 1, Cols: 1, FrameID: 2, Meters: []float32{1}})

	sink := newRecordingSink()
	loop := &Loop{Depth: &depthSlot, Detector: &stubDetector{}, Sink: sink, Poll: time.Millisecond}
	cancel, wait := runLoop(t, loop)

	sink.waitForCycle(t)
	cancel()
	if err := wait(); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if sink.result.N != 0 {
		t.Fatalf("unexpected result count: %d", sink.result.N)
	}
	if len(sink.result.Norms) != 0 || len(sink.result.Center3D) != 0 ||
		len(sink.result.Center2D) != 0 || len(sink.result.MaskColor) != 0 {
		t.Fatalf("expected empty sequences: %+v", sink.result)
	}
	if sink.pose != (types.Pose{}) {
		t.Fatalf("expected zero pose, got %+v", sink.pose)
	}
}

func TestLoopUsesPlaceholderWithoutColorSource(t *testing.T) {
	var depthSlot source.DepthSlot
	depthSlot.Put(&types.DepthImage{Rows: 2, Cols: 3, FrameID: 3, Meters: make([]float32, 6)})

	detector := &stubDetector{}
	sink := newRecordingSink()
	loop := &Loop{Depth: &depthSlot, Detector: detector, Sink: sink, Poll: time.Millisecond}
	cancel, wait := runLoop(t, loop)

	sink.waitForCycle(t)
	cancel()
	if err := wait(); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	color := detector.lastColor()
	if color == nil {
		t.Fatalf("detector received nil color")
	}
	if color.Rows != 2 || color.Cols != 3 {
		t.Fatalf("placeholder has wrong shape: %dx%d", color.Rows, color.Cols)
	}
	for _, p := range color.Pixels {
		if p != 0 {
			t.Fatalf("placeholder not all-zero")
		}
	}
}

func TestLoopWaitsForColorFrame(t *testing.T) {
	var depthSlot source.DepthSlot
	var colorSlot source.ColorSlot
	depthSlot.Put(&types.DepthImage{Rows: 1, Cols: 1, FrameID: 4, Meters: []float32{2}})

	detector := &stubDetector{}
	sink := newRecordingSink()
	loop := &Loop{
		Depth:    &depthSlot,
		Color:    &colorSlot,
		Detector: detector,
		Sink:     sink,
		Poll:     time.Millisecond,
	}
	cancel, wait := runLoop(t, loop)

	// Deliver the color frame only after the loop is already waiting.
	time.Sleep(20 * time.Millisecond)
	colorSlot.Put(&types.ColorImage{Rows: 1, Cols: 1, FrameID: 40, Pixels: []byte{9, 9, 9}})

	sink.waitForCycle(t)
	cancel()
	if err := wait(); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	color := detector.lastColor()
	if color == nil || color.FrameID != 40 {
		t.Fatalf("detector did not get the delivered color frame: %+v", color)
	}
}

func TestLoopDetectorErrorIsFatal(t *testing.T) {
	var depthSlot source.DepthSlot
	depthSlot.Put(&types.DepthImage{Rows: 1, Cols: 1, FrameID: 5, Meters: []float32{1}})

	detectErr := errors.New("detector crashed")
	loop := &Loop{
		Depth:    &depthSlot,
		Detector: &stubDetector{err: detectErr},
		Sink:     newRecordingSink(),
		Poll:     time.Millisecond,
	}

	_, wait := runLoop(t, loop)
	err := wait()
	if err == nil {
		t.Fatalf("expected error from Run")
	}
	if !errors.Is(err, detectErr) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoopStopsOnCancel(t *testing.T) {
	var depthSlot source.DepthSlot
	loop := &Loop{
		Depth:    &depthSlot,
		Detector: &stubDetector{},
		Sink:     newRecordingSink(),
		Poll:     time.Millisecond,
	}

	cancel, wait := runLoop(t, loop)
	cancel()
	if err := wait(); err != nil {
		t.Fatalf("Run error on shutdown: %v", err)
	}
}
