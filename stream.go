// stream.go holds the per-stream state that persists across blocks.

package dsdpack

// filterState is the noise-shaping predictor state for one channel:
// six fixed-point accumulators plus the adaptive feedback factor. The
// factor is confined to 16 signed bits at every block boundary.
type filterState struct {
	filter1 int32
	filter2 int32
	filter3 int32
	filter4 int32
	filter5 int32
	filter6 int32
	factor  int32
}

// Stream is the encoder state for one logical DSD stream (one mono
// channel or one stereo pair). The zero value is ready for use after
// Init.
//
// A Stream is exclusively owned by its encoding goroutine for the
// duration of each block; there is no cross-stream shared state.
type Stream struct {
	// Multiplier is the DSD-rate multiplier of the stream: the DSD
	// byte rate divided by 44100. It must be a power of two; its log2
	// is stored as the first payload byte of every block. Zero is
	// treated as one.
	Multiplier uint32

	sampleIndex uint32 // samples emitted so far, per channel

	// ptable is the high-mode adaptive probability table, allocated
	// lazily on the first high-mode block and retained for the life
	// of the stream.
	ptable []int32

	filters [2]filterState
}

// Init resets the stream to the start of a logical stream. It is
// idempotent and must be called before the first block. The adaptive
// state itself is reseeded by the first high-mode block, keyed off the
// sample index being zero.
func (s *Stream) Init() {
	s.sampleIndex = 0
}

// SampleIndex returns the cumulative per-channel sample count packed
// so far.
func (s *Stream) SampleIndex() uint32 {
	return s.sampleIndex
}
