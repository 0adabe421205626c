package vision

import (
	"fmt"
	"sync"
)

// FrameBuffer is a thread-safe latest-frame-wins buffer between the
// detector stream and the control loop. The control loop must steer
// against the freshest camera frame, so a backlog is never queued:
// inserting a newer frame replaces the held one, and frames arriving out
// of sequence order are discarded. Dropped frames are counted for
// diagnostics.
type FrameBuffer struct {
	mu      sync.Mutex
	frame   *Frame
	lastSeq int64
	dropped int64
}

// NewFrameBuffer creates an empty buffer.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{lastSeq: -1}
}

// Insert offers a frame to the buffer. A frame whose sequence number does
// not advance past the newest one ever inserted is dropped. A held frame
// displaced by a newer one counts as dropped too. Returns an error if the
// frame is nil.
func (fb *FrameBuffer) Insert(frame *Frame) error {
	if frame == nil {
		return fmt.Errorf("cannot insert nil frame")
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()

	if frame.Seq <= fb.lastSeq {
		fb.dropped++
		return nil
	}

	if fb.frame != nil {
		fb.dropped++
	}

	fb.frame = frame
	fb.lastSeq = frame.Seq
	return nil
}

// Take removes and returns the held frame, or nil when the buffer is
// empty. A frame is handed out at most once.
func (fb *FrameBuffer) Take() *Frame {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	frame := fb.frame
	fb.frame = nil
	return frame
}

// Dropped returns the number of frames discarded so far.
func (fb *FrameBuffer) Dropped() int64 {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.dropped
}

// Clear empties the buffer without touching the sequence watermark or the
// dropped counter.
func (fb *FrameBuffer) Clear() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.frame = nil
}
