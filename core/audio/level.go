package audio

import (
	"encoding/binary"
	"math"
)

// Level returns the RMS amplitude of a linear16 little-endian chunk scaled to
// [0, 1]. Other formats report 0.
func Level(chunk []byte, info EncodingInfo) float64 {
	if info.Format != EncodingLinear16 || len(chunk) < 2 {
		return 0
	}

	samples := len(chunk) / 2
	var sum float64
	for i := range samples {
		sample := float64(int16(binary.LittleEndian.Uint16(chunk[i*2:])))
		sum += sample * sample
	}

	return min(math.Sqrt(sum/float64(samples))/math.MaxInt16, 1)
}
