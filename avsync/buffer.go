package avsync

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultPlaybackQueueSize is the bound on the audio playback queue. When
// playback falls behind, new chunks are dropped rather than blocking the
// receive loop.
const DefaultPlaybackQueueSize = 20

// DefaultMaxPending caps the per-sender pending video queue (about six
// seconds at 15 fps). Beyond it the oldest entry is dropped, bounding memory
// under sustained audio starvation.
const DefaultMaxPending = 90

// VideoFrame is a decoded-frame payload released to the renderer.
type VideoFrame struct {
	Sender string
	TS     float64
	Data   []byte
}

// AudioChunk is an audio payload queued for playback.
type AudioChunk struct {
	Sender string
	TS     float64
	Data   []byte
}

type pendingFrame struct {
	ts   float64
	data []byte
}

// Buffer holds per-sender pending video and the bounded playback queue.
// OnVideo and OnAudio are safe for concurrent use; frames for one sender are
// always released in non-decreasing timestamp order.
type Buffer struct {
	frameSink func(VideoFrame)
	audioQ    chan AudioChunk

	mu         sync.Mutex
	pending    map[string][]pendingFrame
	maxPending int
}

// New creates a buffer that hands released frames to frameSink. The sink is
// called from whichever goroutine delivers the triggering audio chunk, so it
// should hand off quickly.
func New(frameSink func(VideoFrame)) *Buffer {
	return NewWithLimits(frameSink, DefaultPlaybackQueueSize, DefaultMaxPending)
}

// NewWithLimits creates a buffer with explicit queue bounds.
func NewWithLimits(frameSink func(VideoFrame), playbackQueue, maxPending int) *Buffer {
	if playbackQueue <= 0 {
		playbackQueue = DefaultPlaybackQueueSize
	}
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	return &Buffer{
		frameSink:  frameSink,
		audioQ:     make(chan AudioChunk, playbackQueue),
		pending:    map[string][]pendingFrame{},
		maxPending: maxPending,
	}
}

// Audio is the playback queue. The playback collaborator consumes it.
func (b *Buffer) Audio() <-chan AudioChunk {
	return b.audioQ
}

// OnVideo buffers one frame for sender. Entries normally arrive already in
// order, but insertion keeps the queue timestamp-ordered regardless.
func (b *Buffer) OnVideo(sender string, ts float64, frame []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	q := b.pending[sender]

	// Common case: append at the tail.
	i := len(q)
	for i > 0 && q[i-1].ts > ts {
		i--
	}
	q = append(q, pendingFrame{})
	copy(q[i+1:], q[i:])
	q[i] = pendingFrame{ts: ts, data: frame}

	if len(q) > b.maxPending {
		q = q[1:]
		logrus.WithFields(logrus.Fields{
			"sender":  sender,
			"pending": len(q),
		}).Debug("pending video cap reached, oldest frame dropped")
	}

	b.pending[sender] = q
}

// OnAudio queues the chunk for playback (dropping it if the playback queue
// is full) and releases every buffered frame for sender with a timestamp at
// or before the chunk's.
func (b *Buffer) OnAudio(sender string, ts float64, chunk []byte) {
	select {
	case b.audioQ <- AudioChunk{Sender: sender, TS: ts, Data: chunk}:
	default:
		logrus.WithFields(logrus.Fields{
			"sender": sender,
		}).Debug("playback queue full, audio chunk dropped")
	}

	b.mu.Lock()
	q := b.pending[sender]
	n := 0
	for n < len(q) && q[n].ts <= ts {
		n++
	}
	release := q[:n]
	b.pending[sender] = q[n:]
	b.mu.Unlock()

	for _, f := range release {
		b.frameSink(VideoFrame{Sender: sender, TS: f.ts, Data: f.data})
	}
}

// DropSender discards all pending video for a departed sender.
func (b *Buffer) DropSender(sender string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, sender)
}

// PendingCount reports the buffered frame count for sender.
func (b *Buffer) PendingCount(sender string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending[sender])
}
