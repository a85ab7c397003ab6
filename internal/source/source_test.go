package source

import (
	"context"
	"testing"
	"time"

	"plane-detect-go/internal/types"
)

func TestDepthSlotLatestWins(t *testing.T) {
	var slot DepthSlot

	if slot.Has() {
		t.Fatalf("empty slot reports Has")
	}
	if slot.Take() != nil {
		t.Fatalf("empty slot returned a frame")
	}

	first := &types.DepthImage{FrameID: 1}
	second := &types.DepthImage{FrameID: 2}
	slot.Put(first)
	slot.Put(second)

	if !slot.Has() {
		t.Fatalf("slot should hold a frame")
	}
	got := slot.Take()
	if got == nil || got.FrameID != 2 {
		t.Fatalf("expected latest frame, got %+v", got)
	}
	if slot.Has() {
		t.Fatalf("Take did not clear the slot")
	}
	if slot.Drops() != 1 {
		t.Fatalf("expected 1 drop, got %d", slot.Drops())
	}
}

func TestColorSlotLatestWins(t *testing.T) {
	var slot ColorSlot

	slot.Put(&types.ColorImage{FrameID: 10})
	slot.Put(&types.ColorImage{FrameID: 11})
	slot.Put(&types.ColorImage{FrameID: 12})

	got := slot.Take()
	if got == nil || got.FrameID != 12 {
		t.Fatalf("expected latest frame, got %+v", got)
	}
	if slot.Drops() != 2 {
		t.Fatalf("expected 2 drops, got %d", slot.Drops())
	}
}

func TestFeedDepthDeliversToSlot(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frames := make(chan *types.DepthImage, 2)
	var slot DepthSlot

	done := make(chan struct{})
	go func() {
		defer close(done)
		FeedDepth(ctx, frames, &slot)
	}()

	frames <- &types.DepthImage{FrameID: 5}
	close(frames)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("FeedDepth did not return after channel close")
	}

	got := slot.Take()
	if got == nil || got.FrameID != 5 {
		t.Fatalf("frame not delivered: %+v", got)
	}
}

func TestFeedColorStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	frames := make(chan *types.ColorImage)
	var slot ColorSlot

	done := make(chan struct{})
	go func() {
		defer close(done)
		FeedColor(ctx, frames, &slot)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("FeedColor did not stop on cancel")
	}
}
