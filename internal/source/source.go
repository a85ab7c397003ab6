// Package source holds the single-slot latest-wins frame buffers sitting
// between asynchronous ingest and the server loop. Each slot keeps at
// most one frame; a new arrival overwrites an unconsumed one. The mutex
// is the only synchronization between delivery and the loop, so reads
// and writes can never observe a half-updated frame.
package source

import (
	"context"
	"sync"

	"plane-detect-go/internal/types"
)

type DepthSlot struct {
	mu    sync.Mutex
	img   *types.DepthImage
	drops uint64
}

// Put stores the latest depth frame, replacing any unconsumed one.
func (s *DepthSlot) Put(img *types.DepthImage) {
	s.mu.Lock()
	if s.img != nil {
		s.drops++
	}
	s.img = img
	s.mu.Unlock()
}

func (s *DepthSlot) Has() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.img != nil
}

// Take consumes the buffered frame, clearing the slot. Returns nil when
// the slot is empty.
func (s *DepthSlot) Take() *types.DepthImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	img := s.img
	s.img = nil
	return img
}

// Drops reports how many frames were overwritten before being consumed.
func (s *DepthSlot) Drops() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drops
}

type ColorSlot struct {
	mu    sync.Mutex
	img   *types.ColorImage
	drops uint64
}

func (s *ColorSlot) Put(img *types.ColorImage) {
	s.mu.Lock()
	if s.img != nil {
		s.drops++
	}
	s.img = img
	s.mu.Unlock()
}

func (s *ColorSlot) Has() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.img != nil
}

func (s *ColorSlot) Take() *types.ColorImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	img := s.img
	s.img = nil
	return img
}

func (s *ColorSlot) Drops() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drops
}

// FeedDepth drains an ingest channel into the slot until the channel
// closes or ctx is done.
func FeedDepth(ctx context.Context, frames <-chan *types.DepthImage, slot *DepthSlot) {
	for {
		select {
		case <-ctx.Done():
			return
		case img, ok := <-frames:
			if !ok {
				return
			}
			slot.Put(img)
		}
	}
}

func FeedColor(ctx context.Context, frames <-chan *types.ColorImage, slot *ColorSlot) {
	for {
		select {
		case <-ctx.Done():
			return
		case img, ok := <-frames:
			if !ok {
				return
			}
			slot.Put(img)
		}
	}
}
