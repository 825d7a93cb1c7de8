package interview

import "github.com/koscakluka/ema-interview/core/events"

type eventEmitter func(events.Event)

func newCallbackEventEmitter(callbacks sessionCallbacks, handler events.Handler) eventEmitter {
	return func(event events.Event) {
		switch typedEvent := event.(type) {
		case events.SessionConnected:
			if callbacks.onConnected != nil {
				callbacks.onConnected(typedEvent.SessionID)
			}
		case events.ChannelMessage:
			if callbacks.onMessage != nil {
				callbacks.onMessage(typedEvent.Utterance)
			}
		case events.ChannelStatusChanged:
			if callbacks.onStatus != nil {
				callbacks.onStatus(typedEvent.Status, typedEvent.Err)
			}
		case events.SessionTick:
			if callbacks.onTick != nil {
				callbacks.onTick(typedEvent.Elapsed)
			}
		case events.SuppressionChanged:
			if callbacks.onSuppressionChanged != nil {
				callbacks.onSuppressionChanged(typedEvent.Suppressed)
			}
		case events.UserAudioLevel:
			if callbacks.onAudioLevel != nil {
				callbacks.onAudioLevel(typedEvent.Level)
			}
		case events.UserCaptureUnavailable:
			if callbacks.onCaptureUnavailable != nil {
				callbacks.onCaptureUnavailable(typedEvent.Err)
			}
		}

		if handler != nil {
			handler(event)
		}
	}
}
