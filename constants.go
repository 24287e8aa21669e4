// constants.go holds the bit-exact tuning constants shared by both
// compression modes. Changing any of these changes the wire format.

package dsdpack

// Any block shorter than this (in DSD bytes, counting both channels)
// is not worth modelling and is stored verbatim.
const minBlockBytes = 280

// Fast-mode model constants.
const (
	// maxHistoryBits caps the number of previous-sample bits used as
	// coding context, bounding the probability tables at 32 rows.
	maxHistoryBits = 5

	// maxProbability is the largest value a probability byte may take.
	// Values above it are repurposed as zero-run lengths by the RLE
	// coding of the tables.
	maxProbability = 0xa0
)

// High-mode model constants.
const (
	ptableBits = 8
	ptableBins = 1 << ptableBits
	ptableMask = ptableBins - 1

	// initialTerm seeds the adaptive probability table on the first
	// block of a stream.
	initialTerm = 1536 / ptableBins

	// up and down are the targets the selected table entry relaxes
	// toward after coding a one or a zero bit; decay sets the rate.
	up    = 0x010000fe
	down  = 0x00010000
	decay = 8

	// rateS is the second-stage adaptation rate, fixed for all blocks.
	rateS = 20
)

// Noise-shaping filter fixed-point parameters.
const (
	precision    = 24
	valueOne     = 1 << precision
	precisionUse = 12
)
