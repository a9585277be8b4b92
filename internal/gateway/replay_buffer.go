package gateway

import (
	"sync"

	"ibrobot/internal/ringbuf"
)

// replayEntry holds a single broadcasted envelope.
type replayEntry struct {
	Seq  int64
	Data []byte
}

// ReplayBuffer keeps the most recent envelopes so reconnecting clients can
// backfill by sequence number. Safe for concurrent use.
type ReplayBuffer struct {
	mu  sync.RWMutex
	buf *ringbuf.Ring[replayEntry]
}

// NewReplayBuffer creates a replay buffer with the given capacity.
func NewReplayBuffer(capacity int) *ReplayBuffer {
	if capacity <= 0 {
		capacity = 500
	}
	return &ReplayBuffer{buf: ringbuf.New[replayEntry](capacity)}
}

// Push appends an envelope, overwriting the oldest entry when full.
func (rb *ReplayBuffer) Push(seq int64, data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)

	rb.mu.Lock()
	rb.buf.Push(replayEntry{Seq: seq, Data: cp})
	rb.mu.Unlock()
}

// Range returns entries with seq in [fromSeq, toSeq], in seq order.
// toSeq <= 0 is open-ended.
func (rb *ReplayBuffer) Range(fromSeq, toSeq int64) []replayEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	var result []replayEntry
	for _, e := range rb.buf.Values() {
		if e.Seq >= fromSeq && (toSeq <= 0 || e.Seq <= toSeq) {
			result = append(result, e)
		}
	}
	return result
}

// Len returns the number of entries currently in the buffer.
func (rb *ReplayBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.buf.Len()
}
