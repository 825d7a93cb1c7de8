package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestLevelOfSilenceIsZero(t *testing.T) {
	chunk := make([]byte, 320)
	if got := Level(chunk, GetDefaultEncodingInfo()); got != 0 {
		t.Fatalf("expected silence level 0, got %f", got)
	}
}

func TestLevelOfFullScaleSquareIsOne(t *testing.T) {
	chunk := make([]byte, 320)
	for i := 0; i < len(chunk); i += 2 {
		value := int16(math.MaxInt16)
		if (i/2)%2 == 1 {
			value = -math.MaxInt16
		}
		binary.LittleEndian.PutUint16(chunk[i:], uint16(value))
	}

	if got := Level(chunk, GetDefaultEncodingInfo()); math.Abs(got-1) > 1e-9 {
		t.Fatalf("expected full scale level 1, got %f", got)
	}
}

func TestLevelIgnoresNonLinearFormats(t *testing.T) {
	chunk := []byte{0x10, 0x20, 0x30}
	if got := Level(chunk, EncodingInfo{SampleRate: 8000, Format: EncodingMulaw}); got != 0 {
		t.Fatalf("expected 0 for mulaw, got %f", got)
	}
}

func TestEncodingInfo(t *testing.T) {
	info := GetDefaultEncodingInfo()
	if info.IsZero() {
		t.Fatalf("expected default encoding to be set")
	}
	if got := info.BytesPerSecond(); got != 32000 {
		t.Fatalf("expected 32000 bytes per second, got %d", got)
	}
	if got := (EncodingInfo{SampleRate: 8000, Format: EncodingALaw}).SilenceValue(); got != 0x55 {
		t.Fatalf("expected alaw silence 0x55, got %#x", got)
	}
	if !(EncodingInfo{}).IsZero() {
		t.Fatalf("expected zero encoding info to report IsZero")
	}
}
