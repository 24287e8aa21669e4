// Package dsdpack implements lossless compression of DSD (Direct
// Stream Digital) audio into WavPack-style block payloads.
//
// DSD is a 1-bit oversampled PCM representation delivered as a stream
// of bytes, each byte holding eight consecutive 1-bit samples in
// MSB-first order. The packer compresses one block of DSD samples
// (mono or stereo) at a time into a self-contained payload that a
// symmetric decoder can restore bit-exactly.
//
// # Compression Modes
//
// Two modes are available, selected per block:
//
//   - ModeFast: context-adaptive arithmetic coding of whole DSD bytes
//     using a static probability table estimated from the block's own
//     histogram and transmitted with the block.
//   - ModeHigh: bit-level arithmetic coding driven by an adaptive
//     256-entry probability table indexed by a six-tap noise-shaping
//     predictor per channel.
//
// When a block is too short to model, or the coded stream would reach
// ten bytes short of the input size, the packer falls back to storing
// the samples verbatim. All three representations are lossless.
//
// # Streams and Blocks
//
// A Stream carries the state that persists across the blocks of one
// logical channel-group stream: the cumulative sample index, the
// adaptive probability table, and the per-channel filter state. Blocks
// of samples are fed to Stream.PackBlock together with a BlockBuffer
// modelling the enclosing container block. A Stream is NOT safe for
// concurrent use; run one Stream per goroutine.
//
// # Payload Layout
//
// Each packed block becomes one metadata chunk: a tag byte, a 24-bit
// little-endian length in 16-bit words, then the payload. The payload
// starts with the DSD rate power and a mode byte (0 verbatim, 1 fast,
// 2 high) followed by mode-specific parameters and the coded body.
package dsdpack
