// Package rangecoding implements the 32-bit binary range coder used by
// the DSD compressors.
//
// The coder keeps a (low, high) interval initialised to the full 32-bit
// range. Whenever the top bytes of low and high agree, that byte is
// settled and can be emitted; the interval is then shifted left by eight
// bits. Because high is always derived from low moving upward, the coder
// never needs carry propagation.
package rangecoding

// byteReady reports whether the top bytes of low and high agree, meaning
// one output byte is fully determined.
func byteReady(low, high uint32) bool {
	return (low^high)&0xff000000 == 0
}

// Encoder is a binary range encoder writing into a caller-owned buffer.
//
// The buffer is borrowed: the encoder writes from offset zero and never
// grows it. A separate limit marks the point at which the coded stream
// is considered too large; reaching it makes Full return true, and the
// caller is expected to abandon the attempt. The limit is left a few
// bytes short of the real capacity because renormalization emits in
// bursts between limit checks.
type Encoder struct {
	buf   []byte // Borrowed destination buffer
	pos   int    // Next write offset
	limit int    // Overflow boundary (strictly <= len(buf))
	low   uint32 // Low end of the coding interval
	high  uint32 // High end of the coding interval, inclusive
}

// Init prepares the encoder to write into buf. Writes at or past limit
// flag the encoder as full; limit must leave enough slack below len(buf)
// to absorb one renormalization burst plus the final flush (10 bytes is
// sufficient).
func (e *Encoder) Init(buf []byte, limit int) {
	e.buf = buf
	e.pos = 0
	if limit > len(buf) {
		limit = len(buf)
	}
	e.limit = limit
	e.low = 0
	e.high = 0xffffffff
}

// PutByte writes a raw byte ahead of (or between) coded data. It is used
// for the mode byte and the model parameters that precede the
// arithmetic-coded body, so that header and body share one position and
// one overflow boundary.
func (e *Encoder) PutByte(b byte) {
	if e.pos < len(e.buf) {
		e.buf[e.pos] = b
	}
	e.pos++
}

// renormalize emits settled top bytes and widens the interval.
func (e *Encoder) renormalize() {
	for byteReady(e.low, e.high) {
		e.PutByte(byte(e.high >> 24))
		e.high = e.high<<8 | 0xff
		e.low <<= 8
	}
}

// EncodeSymbol codes one symbol from a cumulative frequency model.
// cumLow is the summed frequency of all symbols below this one, freq its
// own frequency (must be non-zero), and total the sum over the whole
// alphabet.
//
// When the interval has shrunk below total, the multiplier truncates to
// zero and the coder is stalled. Recovery collapses the interval to a
// point, renormalizes (which restores the full range), and recomputes.
func (e *Encoder) EncodeSymbol(cumLow, freq, total uint32) {
	mult := (e.high - e.low) / total
	if mult == 0 {
		e.high = e.low
		e.renormalize()
		mult = (e.high - e.low) / total
	}

	if cumLow > 0 {
		e.low += cumLow * mult
	}
	e.high = e.low + freq*mult - 1
	e.renormalize()
}

// EncodeBit codes a single bit given p, the probability that the bit is
// one in units of 1/256 (the high-mode model supplies values from 1 to
// 255). The subrange split avoids 64-bit arithmetic: when the
// interval still spans more than 24 bits the probability is applied to
// the pre-shifted width, otherwise the product fits 32 bits and is
// shifted afterwards.
func (e *Encoder) EncodeBit(bit int, p uint32) {
	r := e.high - e.low

	var delta uint32
	if r>>24 != 0 {
		delta = (r >> 8) * p
	} else {
		delta = (r * p) >> 8
	}

	if bit != 0 {
		e.high = e.low + delta
	} else {
		e.low += delta + 1
	}
	e.renormalize()
}

// Flush byte-aligns the remaining interval state out of the coder.
// Collapsing high onto low forces all four bytes through
// renormalization, after which the interval is back to full range.
func (e *Encoder) Flush() {
	e.high = e.low
	e.renormalize()
}

// Full reports whether the encoder has reached its overflow boundary.
// Once full, the byte count no longer reflects usable output and the
// caller should fall back to an uncoded representation.
func (e *Encoder) Full() bool {
	return e.pos >= e.limit
}

// Len returns the number of bytes emitted so far. Only meaningful while
// Full is false.
func (e *Encoder) Len() int {
	return e.pos
}
