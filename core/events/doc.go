// Package events defines the typed interview session event contract.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - user_input.*
//   - relay.*
//   - channel.*
//   - assistant_speech.*
//   - session.*
//
// user_input events
//
//   - UserCaptureStarted (user_input.capture_started)
//   - UserCaptureStopped (user_input.capture_stopped)
//   - UserCaptureUnavailable (user_input.capture_unavailable): device
//     acquisition failed; the session continues without capture.
//   - UserAudioLevel (user_input.audio_level): lossy amplitude sample.
//   - UserUtteranceCaptured (user_input.utterance_captured): finalized
//     recognizer output, emitted once per utterance.
//
// relay events
//
//   - RelaySubmitted (relay.submitted): frame sent and local echo appended.
//   - RelayDropped (relay.dropped): submission not sent, with the reason.
//
// channel events
//
//   - ChannelStatusChanged (channel.status_changed)
//   - ChannelMessage (channel.message): classified inbound frame, already
//     appended to the conversation log.
//
// assistant_speech events
//
//   - AssistantSpeechStarted (assistant_speech.started)
//   - AssistantSpeechEnded (assistant_speech.ended)
//   - AssistantSpeechCancelled (assistant_speech.cancelled)
//   - SuppressionChanged (assistant_speech.suppression_changed)
//
// session events
//
//   - SessionConnected (session.connected)
//   - SessionTick (session.tick)
//   - SessionEnded (session.ended): exactly once per session.
package events
