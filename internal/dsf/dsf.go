// Package dsf reads the DSF (DSD Stream File) container far enough to
// feed its sample data to the packer.
//
// A DSF file is a sequence of three chunks:
//
//	"DSD " chunk (28 bytes):
//	  Bytes 0-3:   "DSD " signature
//	  Bytes 4-11:  chunk size (always 28)
//	  Bytes 12-19: total file size
//	  Bytes 20-27: offset of the metadata chunk, or zero
//
//	"fmt " chunk (52 bytes):
//	  Bytes 0-3:   "fmt " signature
//	  Bytes 4-11:  chunk size (always 52)
//	  Bytes 12-15: format version (always 1)
//	  Bytes 16-19: format id (0 = raw DSD)
//	  Bytes 20-23: channel type
//	  Bytes 24-27: channel count
//	  Bytes 28-31: sampling frequency in 1-bit samples per second
//	  Bytes 32-35: bits per sample (1 = LSB first, 8 = MSB first)
//	  Bytes 36-43: sample count per channel
//	  Bytes 44-47: block size per channel (always 4096)
//	  Bytes 48-51: reserved
//
//	"data" chunk:
//	  Bytes 0-3:   "data" signature
//	  Bytes 4-11:  chunk size (payload plus this 12-byte header)
//	  Remaining:   sample data, one 4096-byte block per channel in
//	               rotation; the final round is zero padded
//
// All integer fields are little-endian. Sample data is normalised on
// read: the packer wants MSB-first DSD bytes, so LSB-first files have
// every byte bit-reversed, and the block padding past the declared
// sample count is dropped.
package dsf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/bits"
)

// Format errors.
var (
	ErrNotDSF      = errors.New("dsf: missing DSD chunk signature")
	ErrBadFormat   = errors.New("dsf: malformed format chunk")
	ErrUnsupported = errors.New("dsf: unsupported encoding")
)

const blockSizePerChannel = 4096

// File is a decoded DSF file with per-channel MSB-first DSD bytes.
type File struct {
	Channels    int
	SampleRate  int    // 1-bit samples per second, per channel
	SampleCount uint64 // 1-bit samples per channel

	channelData [][]byte
}

// Decode reads a complete DSF stream.
func Decode(r io.Reader) (*File, error) {
	var dsdHdr [28]byte
	if _, err := io.ReadFull(r, dsdHdr[:]); err != nil {
		return nil, fmt.Errorf("dsf: reading DSD chunk: %w", err)
	}
	if string(dsdHdr[0:4]) != "DSD " {
		return nil, ErrNotDSF
	}
	if size := binary.LittleEndian.Uint64(dsdHdr[4:12]); size != 28 {
		return nil, fmt.Errorf("%w: DSD chunk size %d", ErrBadFormat, size)
	}

	var fmtHdr [52]byte
	if _, err := io.ReadFull(r, fmtHdr[:]); err != nil {
		return nil, fmt.Errorf("dsf: reading fmt chunk: %w", err)
	}
	if string(fmtHdr[0:4]) != "fmt " {
		return nil, fmt.Errorf("%w: missing fmt signature", ErrBadFormat)
	}
	if size := binary.LittleEndian.Uint64(fmtHdr[4:12]); size != 52 {
		return nil, fmt.Errorf("%w: fmt chunk size %d", ErrBadFormat, size)
	}
	if version := binary.LittleEndian.Uint32(fmtHdr[12:16]); version != 1 {
		return nil, fmt.Errorf("%w: format version %d", ErrUnsupported, version)
	}
	if formatID := binary.LittleEndian.Uint32(fmtHdr[16:20]); formatID != 0 {
		return nil, fmt.Errorf("%w: format id %d", ErrUnsupported, formatID)
	}

	channels := int(binary.LittleEndian.Uint32(fmtHdr[24:28]))
	if channels < 1 || channels > 6 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupported, channels)
	}
	sampleRate := int(binary.LittleEndian.Uint32(fmtHdr[28:32]))
	bitsPerSample := binary.LittleEndian.Uint32(fmtHdr[32:36])
	if bitsPerSample != 1 && bitsPerSample != 8 {
		return nil, fmt.Errorf("%w: %d bits per sample", ErrUnsupported, bitsPerSample)
	}
	sampleCount := binary.LittleEndian.Uint64(fmtHdr[36:44])
	if bs := binary.LittleEndian.Uint32(fmtHdr[44:48]); bs != blockSizePerChannel {
		return nil, fmt.Errorf("%w: block size %d", ErrUnsupported, bs)
	}

	var dataHdr [12]byte
	if _, err := io.ReadFull(r, dataHdr[:]); err != nil {
		return nil, fmt.Errorf("dsf: reading data chunk: %w", err)
	}
	if string(dataHdr[0:4]) != "data" {
		return nil, fmt.Errorf("%w: missing data signature", ErrBadFormat)
	}
	dataSize := binary.LittleEndian.Uint64(dataHdr[4:12])
	if dataSize < 12 {
		return nil, fmt.Errorf("%w: data chunk size %d", ErrBadFormat, dataSize)
	}
	dataSize -= 12

	bytesPerChannel := int((sampleCount + 7) / 8)

	f := &File{
		Channels:    channels,
		SampleRate:  sampleRate,
		SampleCount: sampleCount,
		channelData: make([][]byte, channels),
	}
	for ch := range f.channelData {
		f.channelData[ch] = make([]byte, 0, bytesPerChannel)
	}

	// Blocks rotate through the channels; in truncated files the stream
	// ends before the declared data size, so stop at whichever ends
	// first.
	block := make([]byte, blockSizePerChannel)
	remaining := dataSize
	for ch := 0; remaining > 0; ch = (ch + 1) % channels {
		want := uint64(blockSizePerChannel)
		if remaining < want {
			want = remaining
		}
		n, err := io.ReadFull(r, block[:want])
		remaining -= uint64(n)
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
				f.channelData[ch] = append(f.channelData[ch], block[:n]...)
				break
			}
			return nil, fmt.Errorf("dsf: reading sample data: %w", err)
		}
		f.channelData[ch] = append(f.channelData[ch], block[:n]...)
	}

	for ch := range f.channelData {
		if len(f.channelData[ch]) > bytesPerChannel {
			f.channelData[ch] = f.channelData[ch][:bytesPerChannel]
		}
		if bitsPerSample == 1 {
			reverseBits(f.channelData[ch])
		}
	}

	return f, nil
}

// reverseBits converts LSB-first DSD bytes to the MSB-first order the
// packer codes in.
func reverseBits(data []byte) {
	for i, b := range data {
		data[i] = bits.Reverse8(b)
	}
}

// ChannelBytes returns the MSB-first DSD bytes of one channel.
func (f *File) ChannelBytes(ch int) []byte {
	return f.channelData[ch]
}

// InterleavedSamples returns the DSD bytes widened to sample words in
// the strict channel rotation the packer expects. Files with more than
// two channels interleave all of them; the caller decides how to split
// them into streams.
func (f *File) InterleavedSamples() []int32 {
	n := len(f.channelData[0])
	out := make([]int32, 0, n*f.Channels)

	for i := 0; i < n; i++ {
		for ch := 0; ch < f.Channels; ch++ {
			if i < len(f.channelData[ch]) {
				out = append(out, int32(f.channelData[ch][i]))
			} else {
				out = append(out, 0)
			}
		}
	}

	return out
}
