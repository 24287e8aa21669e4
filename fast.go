// fast.go implements the fast compression mode: order-N
// context-adaptive arithmetic coding of whole DSD bytes using a static
// probability table estimated from the block's own histogram.

package dsdpack

import "github.com/chfanghr/dsdpack/rangecoding"

// historyBitsForCount picks the number of previous-sample bits used as
// coding context from the block's byte count. Bigger blocks can afford
// more context rows before the table overhead dominates. Blocks under
// the minimum are rejected so the caller stores them verbatim.
func historyBitsForCount(numSamples int) (int, bool) {
	var bits int

	switch {
	case numSamples < minBlockBytes:
		return 0, false
	case numSamples < 560:
		bits = 0
	case numSamples < 1725:
		bits = 1
	case numSamples < 5000:
		bits = 2
	case numSamples < 14000:
		bits = 3
	case numSamples < 28000:
		bits = 4
	case numSamples < 76000:
		bits = 5
	case numSamples < 130000:
		bits = 6
	case numSamples < 300000:
		bits = 7
	default:
		bits = 8
	}

	if bits > maxHistoryBits {
		bits = maxHistoryBits
	}
	return bits, true
}

// calculateProbabilities reduces one context row's histogram to byte
// probabilities and their running sums. The divisor is searched
// upward until every scaled value fits maxProbability; any symbol seen
// at least once keeps a probability of at least one so it stays
// codable. A row with no hits at all produces all zeros.
func calculateProbabilities(hist *[256]int32, probs *[256]byte, probSums *[256]uint16) {
	maxHits := int32(0)
	for i := 0; i < 256; i++ {
		if hist[i] > maxHits {
			maxHits = hist[i]
		}
	}

	if maxHits == 0 {
		*probs = [256]byte{}
		*probSums = [256]uint16{}
		return
	}

	var divisor int32
	if maxHits > maxProbability {
		divisor = (maxHits<<8 + maxProbability>>1) / maxProbability
	}

	for {
		maxValue := int32(0)
		sumValues := int32(0)

		for i := 0; i < 256; i++ {
			var value int32

			if hist[i] != 0 {
				if divisor != 0 {
					value = (hist[i]<<8 + divisor>>1) / divisor
					if value == 0 {
						value = 1
					}
				} else {
					value = hist[i]
				}

				if value > maxValue {
					maxValue = value
				}
			}

			sumValues += value
			probSums[i] = uint16(sumValues)
			probs[i] = byte(value)
		}

		if maxValue > maxProbability {
			divisor++
			continue
		}

		break
	}
}

// rleEncode writes the probability tables for transmission. Bytes in
// [1, maxProbability] pass through; runs of zeros become one or more
// bytes above maxProbability carrying the run length. A final zero
// byte terminates the table stream.
func rleEncode(rc *rangecoding.Encoder, rows [][256]byte) {
	const maxRLEZeros = 0xff - maxProbability
	zcount := 0

	flushZeros := func() {
		for zcount > 0 {
			n := zcount
			if n > maxRLEZeros {
				n = maxRLEZeros
			}
			rc.PutByte(byte(maxProbability + n))
			zcount -= n
		}
	}

	for r := range rows {
		for _, b := range rows[r] {
			if b != 0 {
				flushZeros()
				rc.PutByte(b)
			} else {
				zcount++
			}
		}
	}

	flushZeros()
	rc.PutByte(0)
}

// encodeBufferFast compresses one block of DSD bytes into dst using the
// fast mode and returns the payload length. The samples slice counts
// both channels of a stereo block. On errOverflow nothing useful is in
// dst and the caller falls back to verbatim storage.
func encodeBufferFast(s *Stream, samples []int32, mono bool, dst []byte) (int, error) {
	numSamples := len(samples)

	historyBits, ok := historyBitsForCount(numSamples)
	if !ok {
		return 0, errOverflow
	}
	historyBins := 1 << historyBits
	binMask := int32(historyBins - 1)

	histogram := make([][256]int32, historyBins)
	probs := make([][256]byte, historyBins)
	probSums := make([][256]uint16, historyBins)

	// The context for each byte is the low history bits of the
	// previous sample on the same channel, so stereo tracks two
	// pending contexts and swaps them every sample.
	p0, p1 := int32(0), int32(0)

	if mono {
		for _, v := range samples {
			histogram[p0][v&0xff]++
			p0 = v & binMask
		}
	} else {
		for _, v := range samples {
			histogram[p0][v&0xff]++
			p0 = p1
			p1 = v & binMask
		}
	}

	totalSummed := 0
	for bin := 0; bin < historyBins; bin++ {
		calculateProbabilities(&histogram[bin], &probs[bin], &probSums[bin])
		totalSummed += int(probSums[bin][255])
	}

	// Cap the aggregate table size so a decoder's value-lookup tables
	// stay bounded per history bin. Halving the largest row converges
	// quickly and costs little accuracy on the rows it touches.
	for totalSummed > historyBins*1280 {
		maxSum, largestBin := 0, 0

		for bin := 0; bin < historyBins; bin++ {
			if int(probSums[bin][255]) > maxSum {
				maxSum = int(probSums[bin][255])
				largestBin = bin
			}
		}

		totalSummed -= maxSum
		sumValues := 0

		for i := 0; i < 256; i++ {
			probs[largestBin][i] = (probs[largestBin][i] + 1) >> 1
			sumValues += int(probs[largestBin][i])
			probSums[largestBin][i] = uint16(sumValues)
		}

		totalSummed += sumValues
	}

	var rc rangecoding.Encoder
	rc.Init(dst, numSamples-10)

	rc.PutByte(1)
	rc.PutByte(byte(historyBits))
	rc.PutByte(maxProbability)
	rleEncode(&rc, probs)

	p0, p1 = 0, 0

	for i := 0; i < numSamples && !rc.Full(); i++ {
		b := samples[i] & 0xff

		var cumLow uint32
		if b != 0 {
			cumLow = uint32(probSums[p0][b-1])
		}
		rc.EncodeSymbol(cumLow, uint32(probs[p0][b]), uint32(probSums[p0][255]))

		if mono {
			p0 = b & binMask
		} else {
			p0 = p1
			p1 = b & binMask
		}
	}

	rc.Flush()

	if rc.Full() {
		return 0, errOverflow
	}
	return rc.Len(), nil
}
