package interview

import (
	"time"

	"github.com/koscakluka/ema-interview/core/capture"
	"github.com/koscakluka/ema-interview/core/channel"
	"github.com/koscakluka/ema-interview/core/conversation"
	"github.com/koscakluka/ema-interview/core/events"
	"github.com/koscakluka/ema-interview/core/speechtotext"
	"github.com/koscakluka/ema-interview/core/texttospeech"
)

type SessionOption func(*Session)

// WithSessionID overrides the generated session id.
func WithSessionID(id string) SessionOption {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// WithLog makes the session append to an existing log instead of a new one.
func WithLog(log *conversation.Log) SessionOption {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithChannelOptions configures the channel client. Message and status
// callbacks are owned by the session and are overridden.
func WithChannelOptions(opts ...channel.ClientOption) SessionOption {
	return func(s *Session) { s.channelOpts = append(s.channelOpts, opts...) }
}

// WithCaptureDevice sets the audio input used by the recognizer.
func WithCaptureDevice(device capture.Device) SessionOption {
	return func(s *Session) { s.captureDevice = device }
}

// WithRecognizer enables speech capture. Without one the session only
// accepts typed input through Submit.
func WithRecognizer(recognizer speechtotext.Recognizer) SessionOption {
	return func(s *Session) { s.recognizer = recognizer }
}

// WithSynthesizer enables spoken assistant output. While speech is queued or
// playing, submissions are suppressed.
func WithSynthesizer(synthesizer texttospeech.Synthesizer) SessionOption {
	return func(s *Session) { s.synthesizer = synthesizer }
}

func WithAudioOutput(output AudioOutput) SessionOption {
	return func(s *Session) { s.audioOutput = output }
}

// WithEventHandler receives every session event. The handler is called
// synchronously and must not block.
func WithEventHandler(handler events.Handler) SessionOption {
	return func(s *Session) {
		if handler != nil {
			s.handler = handler
		}
	}
}

// WithEndOnDisconnect ends the session when the channel closes without End
// being called. By default the session keeps running disconnected.
func WithEndOnDisconnect(enabled bool) SessionOption {
	return func(s *Session) { s.endOnDisconnect = enabled }
}

// WithTranscriptSink adds a sink that receives the transcript at End. Sink
// failures are logged and do not fail End.
func WithTranscriptSink(sink TranscriptSink) SessionOption {
	return func(s *Session) {
		if sink != nil {
			s.sinks = append(s.sinks, sink)
		}
	}
}

// WithClock replaces the time source of the session timer.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

type sessionCallbacks struct {
	onConnected          func(sessionID string)
	onMessage            func(utterance conversation.Utterance)
	onStatus             func(status channel.Status, err error)
	onTick               func(elapsed time.Duration)
	onSuppressionChanged func(suppressed bool)
	onAudioLevel         func(level float64)
	onCaptureUnavailable func(err error)
	onEnded              func(summary Summary)
}

// WithOnConnected is called once the channel is open.
func WithOnConnected(callback func(sessionID string)) SessionOption {
	return func(s *Session) { s.callbacks.onConnected = callback }
}

// WithOnMessage is called for every inbound frame after it was appended to
// the log.
func WithOnMessage(callback func(utterance conversation.Utterance)) SessionOption {
	return func(s *Session) { s.callbacks.onMessage = callback }
}

func WithOnStatus(callback func(status channel.Status, err error)) SessionOption {
	return func(s *Session) { s.callbacks.onStatus = callback }
}

func WithOnTick(callback func(elapsed time.Duration)) SessionOption {
	return func(s *Session) { s.callbacks.onTick = callback }
}

func WithOnSuppressionChanged(callback func(suppressed bool)) SessionOption {
	return func(s *Session) { s.callbacks.onSuppressionChanged = callback }
}

// WithOnAudioLevel receives lossy input levels in [0, 1] from the capture
// device thread.
func WithOnAudioLevel(callback func(level float64)) SessionOption {
	return func(s *Session) { s.callbacks.onAudioLevel = callback }
}

func WithOnCaptureUnavailable(callback func(err error)) SessionOption {
	return func(s *Session) { s.callbacks.onCaptureUnavailable = callback }
}

// WithOnEnded is called exactly once, after teardown.
func WithOnEnded(callback func(summary Summary)) SessionOption {
	return func(s *Session) { s.callbacks.onEnded = callback }
}
