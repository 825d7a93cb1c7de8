package deepgram

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/ema-interview/core/speechtotext/deepgram"

var logger = otelslog.NewLogger(scopeName)

const defaultListenURL = "wss://api.deepgram.com/v1/listen"

// TranscriptionClient streams audio to the Deepgram listen API and reports
// finalized utterances.
type TranscriptionClient struct {
	apiKey    string
	listenURL string
	model     string
	language  string
	dialer    *websocket.Dialer

	conn      *websocket.Conn
	connMu    sync.Mutex
	lastMsgTs time.Time

	// stateMu guards the utterance accumulation shared by message handlers.
	stateMu               sync.Mutex
	accumulatedTranscript string
	unendedSegment        bool

	cancel func()
}

type TranscriptionClientOption func(*TranscriptionClient)

// WithListenURL overrides the listen endpoint.
func WithListenURL(listenURL string) TranscriptionClientOption {
	return func(c *TranscriptionClient) { c.listenURL = listenURL }
}

func WithModel(model string) TranscriptionClientOption {
	return func(c *TranscriptionClient) { c.model = model }
}

func WithLanguage(language string) TranscriptionClientOption {
	return func(c *TranscriptionClient) { c.language = language }
}

func NewTranscriptionClient(apiKey string, opts ...TranscriptionClientOption) *TranscriptionClient {
	client := &TranscriptionClient{
		apiKey:    apiKey,
		listenURL: defaultListenURL,
		model:     "nova-3",
		language:  "en-US",
		dialer:    websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}
