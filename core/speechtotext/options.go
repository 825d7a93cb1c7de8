package speechtotext

import "github.com/koscakluka/ema-interview/core/audio"

type TranscriptionOptions struct {
	// InterimTranscriptionCallback receives the mutable transcript of the
	// utterance in progress.
	InterimTranscriptionCallback func(transcript string)
	// TranscriptionCallback receives each finalized utterance exactly once.
	TranscriptionCallback func(transcript string)

	SpeechStartedCallback func()
	SpeechEndedCallback   func()

	// ErrorCallback is called when the recognizer stops because of a
	// failure after Transcribe has returned.
	ErrorCallback func(error)

	EncodingInfo audio.EncodingInfo
}

type TranscriptionOption func(*TranscriptionOptions)

func WithTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.TranscriptionCallback = callback
	}
}

func WithInterimTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.InterimTranscriptionCallback = callback
	}
}

func WithSpeechStartedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechStartedCallback = callback
	}
}

func WithSpeechEndedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechEndedCallback = callback
	}
}

func WithErrorCallback(callback func(error)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.ErrorCallback = callback
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		if encodingInfo.IsZero() {
			return
		}
		o.EncodingInfo = encodingInfo
	}
}

// NewOptions applies opts over the defaults: default encoding and no-op
// callbacks.
func NewOptions(opts ...TranscriptionOption) TranscriptionOptions {
	options := TranscriptionOptions{EncodingInfo: audio.GetDefaultEncodingInfo()}
	for _, opt := range opts {
		opt(&options)
	}

	if options.InterimTranscriptionCallback == nil {
		options.InterimTranscriptionCallback = func(string) {}
	}
	if options.TranscriptionCallback == nil {
		options.TranscriptionCallback = func(string) {}
	}
	if options.SpeechStartedCallback == nil {
		options.SpeechStartedCallback = func() {}
	}
	if options.SpeechEndedCallback == nil {
		options.SpeechEndedCallback = func() {}
	}
	if options.ErrorCallback == nil {
		options.ErrorCallback = func(error) {}
	}
	return options
}
