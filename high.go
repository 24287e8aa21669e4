// high.go implements the high compression mode: bit-level arithmetic
// coding driven by an adaptive probability table indexed by a six-tap
// noise-shaping predictor per channel.
//
// All model arithmetic is two's-complement 32-bit with arithmetic
// (sign-preserving) right shifts, which Go guarantees for int32, so
// the coded stream is identical on every target.

package dsdpack

import "github.com/chfanghr/dsdpack/rangecoding"

// initPTable deterministically fills table from the two rate
// parameters. Entry i holds the probability that the next bit is one
// when the quantised predictor output is i; the construction keeps the
// table mirror-symmetric, table[i] + table[255-i] == 0x100ffff.
func initPTable(table []int32, rateI, rateS int32) {
	value := int32(0x808000)
	rate := rateI << 8

	for c := (rate + 128) >> 8; c > 0; c-- {
		value += (down - value) >> decay
	}

	for i := 0; i < ptableBins/2; i++ {
		table[i] = value
		table[ptableBins-1-i] = 0x100ffff - value

		if value > 0x010000 {
			rate += (rate*rateS + 128) >> 8

			for c := (rate + 64) >> 7; c > 0; c-- {
				value += (down - value) >> decay
			}
		}
	}
}

// normalizePTable finds the seed rate whose freshly initialised table
// is closest (L1, in 8-bit units) to the live adapted table. The error
// is treated as unimodal in the rate, so the scan stops as soon as the
// error no longer decreases.
// Reseeding from the returned rate lets the decoder reconstruct the
// same table from two header bytes.
func normalizePTable(ptable []int32) int32 {
	var ntable [ptableBins]int32
	rate := int32(0)

	initPTable(ntable[:], rate, rateS)

	minError := int32(0)
	for i := 0; i < ptableBins; i++ {
		minError += abs32(ptable[i]-ntable[i]) >> 8
	}

	for {
		rate++
		initPTable(ntable[:], rate, rateS)

		errorSum := int32(0)
		for i := 0; i < ptableBins; i++ {
			errorSum += abs32(ptable[i]-ntable[i]) >> 8
		}

		if errorSum < minError {
			minError = errorSum
		} else {
			break
		}
	}

	return rate - 1
}

func abs32(x int32) int32 {
	if x < 0 {
		return -x
	}
	return x
}

// encodeBufferHigh compresses one block of DSD bytes into dst using the
// high mode and returns the payload length. On errOverflow the caller
// falls back to verbatim storage; the adaptive state mutated on the way
// is re-anchored by the next block's header, so an abandoned attempt
// stays consistent.
func encodeBufferHigh(s *Stream, samples []int32, mono bool, dst []byte) (int, error) {
	numSamples := len(samples)

	if numSamples < minBlockBytes {
		return 0, errOverflow
	}

	var rc rangecoding.Encoder
	rc.Init(dst, numSamples-10)
	rc.PutByte(2)

	if s.ptable == nil {
		s.ptable = make([]int32, ptableBins)
		initPTable(s.ptable, initialTerm, rateS)
	}

	if s.sampleIndex == 0 {
		initPTable(s.ptable, initialTerm, rateS)

		for channel := range s.filters {
			sp := &s.filters[channel]
			sp.filter1 = valueOne / 2
			sp.filter2 = valueOne / 2
			sp.filter3 = valueOne / 2
			sp.filter4 = valueOne / 2
			sp.filter5 = valueOne / 2
			sp.filter6 = 0
			sp.factor = 0
		}

		rc.PutByte(initialTerm)
		rc.PutByte(rateS)
	} else {
		// Replace the adapted table with the nearest deterministic
		// seed and tell the decoder which one.
		rate := normalizePTable(s.ptable)
		initPTable(s.ptable, rate, rateS)
		rc.PutByte(byte(rate))
		rc.PutByte(rateS)
	}

	numChannels := 2
	if mono {
		numChannels = 1
	}

	// Send the quantised filter anchors and round the live state to
	// them, so encoder and decoder start the block from identical
	// filters.
	for channel := 0; channel < numChannels; channel++ {
		sp := &s.filters[channel]

		rc.PutByte(byte((sp.filter1 + 32768) >> 16))
		rc.PutByte(byte((sp.filter2 + 32768) >> 16))
		rc.PutByte(byte((sp.filter3 + 32768) >> 16))
		rc.PutByte(byte((sp.filter4 + 32768) >> 16))
		rc.PutByte(byte((sp.filter5 + 32768) >> 16))
		rc.PutByte(byte(sp.factor))
		rc.PutByte(byte(sp.factor >> 8))

		sp.filter1 = ((sp.filter1 + 32768) >> 16) << 16
		sp.filter2 = ((sp.filter2 + 32768) >> 16) << 16
		sp.filter3 = ((sp.filter3 + 32768) >> 16) << 16
		sp.filter4 = ((sp.filter4 + 32768) >> 16) << 16
		sp.filter5 = ((sp.filter5 + 32768) >> 16) << 16
		sp.filter6 = 0
		sp.factor = sp.factor << 16 >> 16
	}

	channel := 0

	for i := 0; i < numSamples && !rc.Full(); i++ {
		b := samples[i] & 0xff
		sp := &s.filters[channel]

		for bitcount := 8; bitcount > 0; bitcount-- {
			value := sp.filter1 - sp.filter5 + sp.filter6*(sp.factor>>2)
			index := (value >> (precision - precisionUse)) & ptableMask
			entry := &s.ptable[index]

			value += sp.filter6 << 3

			if b&0x80 != 0 {
				rc.EncodeBit(1, uint32(*entry>>16))
				*entry += (up - *entry) >> decay
				sp.filter1 += (valueOne - sp.filter1) >> 6
				sp.filter2 += (valueOne - sp.filter2) >> 4

				// The factor only moves when the predictor output
				// crosses zero inside this step.
				if (value ^ (value - sp.filter6<<4)) < 0 {
					sp.factor -= value>>31 | 1
				}
			} else {
				rc.EncodeBit(0, uint32(*entry>>16))
				*entry += (down - *entry) >> decay
				sp.filter1 -= sp.filter1 >> 6
				sp.filter2 -= sp.filter2 >> 4

				if (value ^ (value - sp.filter6<<4)) < 0 {
					sp.factor += value>>31 | 1
				}
			}

			sp.filter3 += (sp.filter2 - sp.filter3) >> 4
			sp.filter4 += (sp.filter3 - sp.filter4) >> 4
			delta := (sp.filter4 - sp.filter5) >> 4
			sp.filter5 += delta
			sp.filter6 += (delta - sp.filter6) >> 3

			b <<= 1
		}

		if !mono {
			channel ^= 1
		}
	}

	rc.Flush()

	if rc.Full() {
		return 0, errOverflow
	}
	return rc.Len(), nil
}
