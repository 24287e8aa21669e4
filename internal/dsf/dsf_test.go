package dsf

import (
	"bytes"
	"encoding/binary"
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildDSF assembles a minimal DSF file from per-channel sample bytes.
func buildDSF(t *testing.T, sampleRate int, bitsPerSample uint32, channels [][]byte) []byte {
	t.Helper()

	var sampleCount uint64
	if len(channels) > 0 {
		sampleCount = uint64(len(channels[0])) * 8
	}

	var data bytes.Buffer
	remaining := len(channels[0])
	for off := 0; remaining > 0; off += blockSizePerChannel {
		for _, ch := range channels {
			block := make([]byte, blockSizePerChannel)
			copy(block, ch[off:])
			data.Write(block)
		}
		remaining -= blockSizePerChannel
		if remaining < 0 {
			remaining = 0
		}
	}

	var buf bytes.Buffer
	buf.WriteString("DSD ")
	le64 := func(v uint64) {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], v)
		buf.Write(b[:])
	}
	le32 := func(v uint32) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], v)
		buf.Write(b[:])
	}

	totalSize := uint64(28 + 52 + 12 + data.Len())
	le64(28)
	le64(totalSize)
	le64(0) // no metadata

	buf.WriteString("fmt ")
	le64(52)
	le32(1) // version
	le32(0) // raw DSD
	if len(channels) == 2 {
		le32(2) // stereo channel type
	} else {
		le32(1) // mono channel type
	}
	le32(uint32(len(channels)))
	le32(uint32(sampleRate))
	le32(bitsPerSample)
	le64(sampleCount)
	le32(blockSizePerChannel)
	le32(0) // reserved

	buf.WriteString("data")
	le64(uint64(12 + data.Len()))
	buf.Write(data.Bytes())

	return buf.Bytes()
}

func TestDecodeMono(t *testing.T) {
	raw := make([]byte, 5000)
	for i := range raw {
		raw[i] = byte(i * 11)
	}

	f, err := Decode(bytes.NewReader(buildDSF(t, 2822400, 8, [][]byte{raw})))
	require.NoError(t, err)

	assert.Equal(t, 1, f.Channels)
	assert.Equal(t, 2822400, f.SampleRate)
	assert.Equal(t, uint64(len(raw))*8, f.SampleCount)
	assert.Equal(t, raw, f.ChannelBytes(0), "block padding must be dropped")
}

func TestDecodeStereoInterleave(t *testing.T) {
	left := bytes.Repeat([]byte{0xaa}, 4100)
	right := bytes.Repeat([]byte{0x55}, 4100)

	f, err := Decode(bytes.NewReader(buildDSF(t, 2822400, 8, [][]byte{left, right})))
	require.NoError(t, err)
	require.Equal(t, 2, f.Channels)

	samples := f.InterleavedSamples()
	require.Len(t, samples, 2*4100)
	for i := 0; i < len(samples); i += 2 {
		assert.EqualValues(t, 0xaa, samples[i])
		assert.EqualValues(t, 0x55, samples[i+1])
	}
}

func TestDecodeLSBFirstReversal(t *testing.T) {
	raw := []byte{0x01, 0x80, 0xf0, 0x12, 0xff, 0x00, 0x36, 0x6c}

	f, err := Decode(bytes.NewReader(buildDSF(t, 2822400, 1, [][]byte{raw})))
	require.NoError(t, err)

	got := f.ChannelBytes(0)
	require.Len(t, got, len(raw))
	for i, b := range raw {
		assert.Equal(t, bits.Reverse8(b), got[i], "byte %d", i)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		mut  func([]byte)
		want error
	}{
		{"bad signature", func(b []byte) { copy(b, "RIFF") }, ErrNotDSF},
		{"bad fmt signature", func(b []byte) { copy(b[28:], "junk") }, ErrBadFormat},
		{"bad version", func(b []byte) { binary.LittleEndian.PutUint32(b[40:], 9) }, ErrUnsupported},
		{"bad bit order", func(b []byte) { binary.LittleEndian.PutUint32(b[60:], 4) }, ErrUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := buildDSF(t, 2822400, 8, [][]byte{make([]byte, 64)})
			tt.mut(file)

			_, err := Decode(bytes.NewReader(file))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecodeTruncatedData(t *testing.T) {
	file := buildDSF(t, 2822400, 8, [][]byte{make([]byte, 4096)})

	_, err := Decode(bytes.NewReader(file[:len(file)-100]))
	require.NoError(t, err, "short final block is tolerated")
}
