package state

import "time"

// DefaultHistoryCapacity is the number of ticks kept in each rolling history.
const DefaultHistoryCapacity = 100

// Ring is a fixed-capacity FIFO buffer. Once full, each Push evicts the oldest value.
type Ring[T any] struct {
	buf   []T
	start int
	size  int
}

func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

func (r *Ring[T]) Push(v T) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = v
		r.size++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

func (r *Ring[T]) Len() int { return r.size }

func (r *Ring[T]) Cap() int { return len(r.buf) }

// At returns the i-th oldest value.
func (r *Ring[T]) At(i int) T {
	return r.buf[(r.start+i)%len(r.buf)]
}

// Values returns a copy of the buffer contents, oldest first.
func (r *Ring[T]) Values() []T {
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.At(i)
	}
	return out
}

// Last returns up to n of the most recent values, oldest first.
func (r *Ring[T]) Last(n int) []T {
	if n > r.size {
		n = r.size
	}
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = r.At(r.size - n + i)
	}
	return out
}

// tickHistory keeps the three per-tick series in lockstep.
type tickHistory struct {
	prices     *Ring[float64]
	volumes    *Ring[float64]
	timestamps *Ring[time.Time]
}

func newTickHistory(capacity int) *tickHistory {
	return &tickHistory{
		prices:     NewRing[float64](capacity),
		volumes:    NewRing[float64](capacity),
		timestamps: NewRing[time.Time](capacity),
	}
}

func (h *tickHistory) record(price, volume float64, ts time.Time) {
	h.prices.Push(price)
	h.volumes.Push(volume)
	h.timestamps.Push(ts)
}

func (h *tickHistory) len() int { return h.prices.Len() }

// History is a copy of the rolling series, oldest first. All slices have equal length.
type History struct {
	Prices     []float64   `json:"prices"`
	Timestamps []time.Time `json:"timestamps"`
	Volumes    []float64   `json:"volumes"`
}

func (h *tickHistory) snapshot() History {
	return History{
		Prices:     h.prices.Values(),
		Timestamps: h.timestamps.Values(),
		Volumes:    h.volumes.Values(),
	}
}
