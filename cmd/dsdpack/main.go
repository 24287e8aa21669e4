// dsdpack is a command-line tool that compresses DSD audio with the
// dsdpack core. It reads a DSF file (or raw MSB-first DSD bytes, mono
// unless --stereo is given)
// and packs it block by block into a stream of framed chunks,
// reporting the compression achieved.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/chfanghr/dsdpack"
	"github.com/chfanghr/dsdpack/internal/dsf"
)

var version = "0.1.0"

// Flags
var (
	outputPath  string
	highMode    bool
	blockBytes  int
	verbose     bool
	quiet       bool
	forceStereo bool
)

var logger = log.New(os.Stderr)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dsdpack [input]",
	Short: "Compress DSD audio into WavPack-style block payloads",
	Long: `dsdpack - lossless DSD compressor

Reads a DSF file, or raw MSB-first DSD bytes for anything without a
.dsf extension, and compresses it one block at a time. With --output
the framed chunks are concatenated to a file; otherwise the tool only
reports what compression would be achieved.

Examples:
  dsdpack album.dsf
  dsdpack --high --output album.dsdp album.dsf
  dsdpack --block 131072 raw_dsd.bin`,
	Version:       version,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch {
		case quiet:
			logger.SetLevel(log.ErrorLevel)
		case verbose:
			logger.SetLevel(log.DebugLevel)
		}

		if err := run(args[0]); err != nil {
			logger.Error("pack failed", "err", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write framed chunks to this file")
	rootCmd.Flags().BoolVar(&highMode, "high", false, "use the high (slower, smaller) compression mode")
	rootCmd.Flags().IntVar(&blockBytes, "block", 65536, "DSD bytes per channel per block")
	rootCmd.Flags().BoolVar(&forceStereo, "stereo", false, "treat raw input as interleaved stereo")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "per-block logging")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "errors only")
}

// input is the sample stream handed to the packer.
type input struct {
	samples    []int32
	mono       bool
	multiplier uint32
}

func run(path string) error {
	if blockBytes < 1 {
		return fmt.Errorf("invalid --block %d", blockBytes)
	}

	in, err := loadInput(path)
	if err != nil {
		return err
	}

	var out *os.File
	if outputPath != "" {
		out, err = os.Create(outputPath)
		if err != nil {
			return err
		}
		defer out.Close()
	}

	mode := dsdpack.ModeFast
	if highMode {
		mode = dsdpack.ModeHigh
	}

	stream := &dsdpack.Stream{Multiplier: in.multiplier}
	stream.Init()

	wordsPerBlock := blockBytes
	if !in.mono {
		wordsPerBlock *= 2
	}

	var packedBytes, blocks int
	for off := 0; off < len(in.samples); off += wordsPerBlock {
		end := off + wordsPerBlock
		if end > len(in.samples) {
			end = len(in.samples)
		}
		block := in.samples[off:end]

		dst := dsdpack.NewBlockBuffer(make([]byte, len(block)+256))
		before := dst.ChunkSize
		if err := stream.PackBlock(dst, block, in.mono, mode); err != nil {
			return fmt.Errorf("block %d: %w", blocks, err)
		}

		chunk := dst.ChunkData()
		packedBytes += len(chunk)
		blocks++
		logger.Debug("packed block",
			"block", blocks,
			"samples", len(block),
			"bytes", len(chunk),
			"chunk_growth", dst.ChunkSize-before)

		if out != nil {
			if _, err := out.Write(chunk); err != nil {
				return err
			}
		}
	}

	rawBytes := len(in.samples)
	ratio := 0.0
	if rawBytes > 0 {
		ratio = float64(packedBytes) / float64(rawBytes)
	}
	logger.Info("done",
		"blocks", blocks,
		"raw_bytes", rawBytes,
		"packed_bytes", packedBytes,
		"ratio", fmt.Sprintf("%.3f", ratio))

	return nil
}

func loadInput(path string) (*input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".dsf") {
		df, err := dsf.Decode(f)
		if err != nil {
			return nil, err
		}
		if df.Channels > 2 {
			return nil, errors.New("multichannel DSF needs one stream per channel pair")
		}

		mult := uint32(df.SampleRate / 8 / 44100)
		if mult == 0 {
			mult = 1
		}
		logger.Debug("dsf input",
			"channels", df.Channels,
			"rate", df.SampleRate,
			"samples", df.SampleCount,
			"multiplier", mult)

		return &input{
			samples:    df.InterleavedSamples(),
			mono:       df.Channels == 1,
			multiplier: mult,
		}, nil
	}

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	samples := make([]int32, len(raw))
	for i, b := range raw {
		samples[i] = int32(b)
	}
	return &input{samples: samples, mono: !forceStereo, multiplier: 1}, nil
}
