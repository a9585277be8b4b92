// Package ringbuf provides a fixed-capacity ring buffer that keeps the most
// recent values. Once full, each Push overwrites the oldest element, so the
// buffer always holds the trailing window needed by rolling indicators.
//
// A Ring is not safe for concurrent use; callers that share one must guard it.
package ringbuf

// Ring is a bounded FIFO that evicts its oldest element on overflow.
type Ring[T any] struct {
	buf   []T
	head  int // next write position
	count int

	// Total number of values overwritten since creation.
	evicted uint64
}

// New creates a ring holding at most capacity values. Minimum capacity is 1.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// FromValues builds a ring of the given capacity from vals (oldest first).
// Only the trailing capacity values are kept.
func FromValues[T any](capacity int, vals []T) *Ring[T] {
	r := New[T](capacity)
	for _, v := range vals {
		r.Push(v)
	}
	return r
}

// Push appends v. Returns true if an older value was evicted to make room.
func (r *Ring[T]) Push(v T) bool {
	full := r.count == len(r.buf)
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
	if full {
		r.evicted++
		return true
	}
	r.count++
	return false
}

// Values returns a copy of the buffered values, oldest first.
func (r *Ring[T]) Values() []T {
	out := make([]T, r.count)
	start := r.head - r.count
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}

// Last returns the most recently pushed value.
func (r *Ring[T]) Last() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}
	idx := r.head - 1
	if idx < 0 {
		idx += len(r.buf)
	}
	return r.buf[idx], true
}

// Clone returns an independent copy of the ring.
func (r *Ring[T]) Clone() *Ring[T] {
	if r == nil {
		return nil
	}
	cp := &Ring[T]{
		buf:     make([]T, len(r.buf)),
		head:    r.head,
		count:   r.count,
		evicted: r.evicted,
	}
	copy(cp.buf, r.buf)
	return cp
}

// Len returns the current number of values in the buffer.
func (r *Ring[T]) Len() int { return r.count }

// Cap returns the buffer capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Evicted returns the total number of values dropped due to overflow.
func (r *Ring[T]) Evicted() uint64 { return r.evicted }
