package deepgram

import (
	"context"
	"fmt"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-interview/core/texttospeech"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/ema-interview/core/texttospeech/deepgram"

var logger = otelslog.NewLogger(scopeName)

const defaultSpeakURL = "wss://api.deepgram.com/v1/speak"

type deepgramVoice string

const (
	VoiceThalia    deepgramVoice = "aura-2-thalia-en"
	VoiceAndromeda deepgramVoice = "aura-2-andromeda-en"
	VoiceHelena    deepgramVoice = "aura-2-helena-en"
	VoiceApollo    deepgramVoice = "aura-2-apollo-en"
	VoiceArcas     deepgramVoice = "aura-2-arcas-en"
	VoiceAries     deepgramVoice = "aura-2-aries-en"

	defaultVoice = VoiceThalia
)

func GetAvailableVoices() []deepgramVoice {
	return []deepgramVoice{VoiceThalia, VoiceAndromeda, VoiceHelena, VoiceApollo, VoiceArcas, VoiceAries}
}

// ParseVoice accepts a configured voice name; empty selects the default.
func ParseVoice(name string) (deepgramVoice, error) {
	if name == "" {
		return defaultVoice, nil
	}
	voice := deepgramVoice(name)
	if !slices.Contains(GetAvailableVoices(), voice) {
		return "", fmt.Errorf("invalid voice %q", name)
	}
	return voice, nil
}

// TextToSpeechClient opens Deepgram speak streams, one per generator.
type TextToSpeechClient struct {
	apiKey   string
	speakURL string
	voice    deepgramVoice
	dialer   *websocket.Dialer
}

type TextToSpeechClientOption func(*TextToSpeechClient)

func WithVoice(voice deepgramVoice) TextToSpeechClientOption {
	return func(c *TextToSpeechClient) { c.voice = voice }
}

// WithSpeakURL overrides the speak endpoint.
func WithSpeakURL(speakURL string) TextToSpeechClientOption {
	return func(c *TextToSpeechClient) { c.speakURL = speakURL }
}

func NewTextToSpeechClient(apiKey string, opts ...TextToSpeechClientOption) (*TextToSpeechClient, error) {
	client := &TextToSpeechClient{
		apiKey:   apiKey,
		speakURL: defaultSpeakURL,
		voice:    defaultVoice,
		dialer:   websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(client)
	}

	if client.apiKey == "" {
		return nil, fmt.Errorf("deepgram api key not configured")
	}
	if !slices.Contains(GetAvailableVoices(), client.voice) {
		return nil, fmt.Errorf("invalid voice %q", client.voice)
	}

	return client, nil
}

var _ texttospeech.Synthesizer = (*TextToSpeechClient)(nil)

func (c *TextToSpeechClient) NewSpeechGenerator(ctx context.Context, opts ...texttospeech.TextToSpeechOption) (texttospeech.SpeechGenerator, error) {
	return c.newStreamingRequest(ctx, opts...)
}
