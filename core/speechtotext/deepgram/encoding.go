package deepgram

import (
	"fmt"
	"slices"

	"github.com/koscakluka/ema-interview/core/audio"
)

var listenSampleRates = []int{8000, 16000, 24000, 32000, 48000}

// listenEncoding maps a capture encoding onto the listen endpoint's
// encoding and sample_rate parameters. The companded formats are only
// accepted at telephony rate.
func listenEncoding(info audio.EncodingInfo) (connectionOptions, error) {
	if !slices.Contains(listenSampleRates, info.SampleRate) {
		return connectionOptions{}, fmt.Errorf("unsupported sample rate %d", info.SampleRate)
	}

	switch info.Format {
	case audio.EncodingLinear16:
	case audio.EncodingALaw, audio.EncodingMulaw:
		if info.SampleRate != 8000 {
			return connectionOptions{}, fmt.Errorf("%s requires 8000 Hz, got %d", info.Format.Name(), info.SampleRate)
		}
	default:
		return connectionOptions{}, fmt.Errorf("unsupported encoding %q", info.Format.Name())
	}

	return connectionOptions{sampleRate: info.SampleRate, encoding: info.Format.Name()}, nil
}
