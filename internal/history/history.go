// Package history provides a bounded sliding window of temperature
// samples with a smoothed (mean) reading per zone.
package history

// Buffer keeps the last N raw values for one zone. New samples evict
// the oldest once the capacity is reached.
type Buffer struct {
	values []float64
	cap    int
}

// NewBuffer creates a window holding up to capacity samples.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{values: make([]float64, 0, capacity), cap: capacity}
}

// Push appends a raw value, evicting the oldest when full.
func (b *Buffer) Push(v float64) {
	if len(b.values) >= b.cap {
		copy(b.values, b.values[1:])
		b.values[len(b.values)-1] = v
		return
	}
	b.values = append(b.values, v)
}

// Mean returns the arithmetic mean of the retained samples. Callers
// must not call Mean on an empty buffer.
func (b *Buffer) Mean() float64 {
	sum := 0.0
	for _, v := range b.values {
		sum += v
	}
	return sum / float64(len(b.values))
}

// Last returns the most recent sample, or 0 if empty.
func (b *Buffer) Last() float64 {
	if len(b.values) == 0 {
		return 0
	}
	return b.values[len(b.values)-1]
}

// Len returns the number of retained samples.
func (b *Buffer) Len() int { return len(b.values) }

// Values returns a copy of the retained samples, oldest first.
func (b *Buffer) Values() []float64 {
	out := make([]float64, len(b.values))
	copy(out, b.values)
	return out
}
