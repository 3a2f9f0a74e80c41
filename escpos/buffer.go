package escpos

import "bytes"

// Buffer is an ordered, immutable list of segments.
// The zero value is an empty buffer.
type Buffer struct {
	segments []Segment
}

// NewBuffer copies the given segments into a new buffer
func NewBuffer(segments ...Segment) Buffer {
	b := Buffer{segments: make([]Segment, 0, len(segments))}
	for _, s := range segments {
		b.segments = append(b.segments, bytes.Clone(s))
	}
	return b
}

// Segments returns a copy of the segments in order
func (b Buffer) Segments() []Segment {
	out := make([]Segment, len(b.segments))
	for i, s := range b.segments {
		out[i] = bytes.Clone(s)
	}
	return out
}

// Bytes returns the concatenated segments
func (b Buffer) Bytes() []byte {
	out := make([]byte, 0, b.Len())
	for _, s := range b.segments {
		out = append(out, s...)
	}
	return out
}

// Len returns the total byte length
func (b Buffer) Len() int {
	n := 0
	for _, s := range b.segments {
		n += len(s)
	}
	return n
}

// Equal reports whether both buffers hold the same segments in the same order
func (b Buffer) Equal(other Buffer) bool {
	if len(b.segments) != len(other.segments) {
		return false
	}
	for i := range b.segments {
		if !bytes.Equal(b.segments[i], other.segments[i]) {
			return false
		}
	}
	return true
}
