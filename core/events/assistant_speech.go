package events

const (
	// KindAssistantSpeechStarted identifies the start of synthesized speech for
	// an assistant utterance.
	KindAssistantSpeechStarted Kind = "assistant_speech.started"
	// KindAssistantSpeechEnded identifies the end of synthesized speech for an
	// assistant utterance.
	KindAssistantSpeechEnded Kind = "assistant_speech.ended"
	// KindAssistantSpeechCancelled identifies cancelled speech output.
	KindAssistantSpeechCancelled Kind = "assistant_speech.cancelled"
	// KindSuppressionChanged identifies a change of the send suppression flag.
	KindSuppressionChanged Kind = "assistant_speech.suppression_changed"
)

type AssistantSpeechStarted struct {
	Base
	Text string
}

func NewAssistantSpeechStarted(text string) AssistantSpeechStarted {
	return AssistantSpeechStarted{Base: NewBase(KindAssistantSpeechStarted), Text: text}
}

type AssistantSpeechEnded struct {
	Base
	Text string
}

func NewAssistantSpeechEnded(text string) AssistantSpeechEnded {
	return AssistantSpeechEnded{Base: NewBase(KindAssistantSpeechEnded), Text: text}
}

type AssistantSpeechCancelled struct{ Base }

func NewAssistantSpeechCancelled() AssistantSpeechCancelled {
	return AssistantSpeechCancelled{Base: NewBase(KindAssistantSpeechCancelled)}
}

type SuppressionChanged struct {
	Base
	Suppressed bool
}

func NewSuppressionChanged(suppressed bool) SuppressionChanged {
	return SuppressionChanged{Base: NewBase(KindSuppressionChanged), Suppressed: suppressed}
}
