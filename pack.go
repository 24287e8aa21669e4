// pack.go frames compressed DSD payloads into metadata chunks inside
// the enclosing container block.

package dsdpack

import "errors"

// Mode selects the compression strategy for a block.
type Mode int

const (
	// ModeFast codes whole DSD bytes against a static per-block
	// probability table. Cheapest to encode and decode.
	ModeFast Mode = iota

	// ModeHigh codes individual bits against an adaptive probability
	// table driven by a noise-shaping predictor. Slower, smaller.
	ModeHigh
)

// Metadata chunk identifiers.
const (
	idDSDBlock = 0x0e // chunk carrying a compressed DSD payload
	idLarge    = 0x80 // chunk length field is 24 bits
	idOddSize  = 0x40 // stored length is one byte more than the data
)

// blockHeaderSize is the size of the enclosing container block header.
// The chunk area begins immediately after it, and the header's chunk
// size field counts everything past its own first eight bytes.
const blockHeaderSize = 32

// BlockBuffer models the enclosing container block: a borrowed byte
// buffer with a known end and a running chunk size. The framer appends
// metadata chunks at the current end of the chunk area and advances
// ChunkSize; the surrounding packer owns the header itself.
type BlockBuffer struct {
	data []byte

	// ChunkSize mirrors the container header's chunk size field: the
	// number of valid bytes following the first eight of the block.
	ChunkSize uint32
}

// NewBlockBuffer wraps buf, which must include room for the container
// header, as an empty block.
func NewBlockBuffer(buf []byte) *BlockBuffer {
	return &BlockBuffer{data: buf, ChunkSize: blockHeaderSize - 8}
}

// Bytes returns the used portion of the block, header space included.
func (b *BlockBuffer) Bytes() []byte {
	return b.data[:b.ChunkSize+8]
}

// ChunkData returns the metadata chunks written so far, without the
// container header space.
func (b *BlockBuffer) ChunkData() []byte {
	return b.data[blockHeaderSize : b.ChunkSize+8]
}

// PackBlock compresses one block of DSD samples into a metadata chunk
// appended to dst. Only the low 8 bits of each sample word are
// significant; stereo samples strictly alternate left and right, and
// len(samples) then counts both channels. An empty block writes
// nothing and succeeds.
//
// The chosen mode encoder runs first; if its coded stream would reach
// ten bytes short of the raw sample count (or the block is too short
// to model), the samples are stored verbatim instead. Either way the
// payload is prefixed with the DSD rate power, wrapped in a tagged
// chunk with a 24-bit little-endian length in 16-bit words, and
// ChunkSize advances by the chunk's full size. On error nothing
// visible to the caller has changed.
func (s *Stream) PackBlock(dst *BlockBuffer, samples []int32, mono bool, mode Mode) error {
	sampleCount := len(samples)
	if !mono {
		if sampleCount&1 != 0 {
			return ErrUnevenStereo
		}
		sampleCount /= 2
	}

	if sampleCount == 0 {
		return nil
	}

	numSamples := len(samples)
	if int(dst.ChunkSize)+8 > len(dst.data) {
		return ErrBufferTooSmall
	}
	area := dst.data[dst.ChunkSize+8:]

	// Worst case is the verbatim fallback: tag, length, rate power,
	// mode byte, raw samples, and an odd-size pad byte.
	if len(area) < numSamples+8 {
		return ErrBufferTooSmall
	}

	mult := s.Multiplier
	if mult == 0 {
		mult = 1
	}
	var dsdPower byte
	for mult >>= 1; mult != 0; mult >>= 1 {
		dsdPower++
	}

	payload := area[4:]
	payload[0] = dsdPower
	body := payload[1:]

	var res int
	var err error
	if mode == ModeHigh {
		res, err = encodeBufferHigh(s, samples, mono, body)
	} else {
		res, err = encodeBufferFast(s, samples, mono, body)
	}

	var dataCount uint32
	if errors.Is(err, errOverflow) {
		body[0] = 0
		for i, v := range samples {
			body[1+i] = byte(v)
		}
		dataCount = uint32(numSamples) + 2
	} else if err != nil {
		return err
	} else {
		dataCount = uint32(res) + 1
	}

	tag := byte(idDSDBlock | idLarge)
	if dataCount&1 != 0 {
		tag |= idOddSize
		dataCount++
	}

	area[0] = tag
	area[1] = byte(dataCount >> 1)
	area[2] = byte(dataCount >> 9)
	area[3] = byte(dataCount >> 17)

	dst.ChunkSize += dataCount + 4
	s.sampleIndex += uint32(sampleCount)
	return nil
}
