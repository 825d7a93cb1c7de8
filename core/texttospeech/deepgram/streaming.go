package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-interview/core/texttospeech"
)

var (
	errRequestClosed    = errors.New("streaming request closed")
	errRequestCancelled = errors.New("streaming request cancelled")
	errTextCompleted    = errors.New("streaming request text already completed")
)

type streamingRequest struct {
	ws      *websocket.Conn
	writeMu sync.Mutex

	// mu guards the text buffer and the request state.
	mu sync.Mutex
	// textBuffer holds one entry per mark. Only the head has been sent to
	// Deepgram; the rest is sent after the previous flush is confirmed.
	textBuffer   []string
	textComplete bool
	cancelled    bool
	closed       bool
	ended        bool

	options texttospeech.TextToSpeechOptions
}

func (c *TextToSpeechClient) newStreamingRequest(ctx context.Context, opts ...texttospeech.TextToSpeechOption) (*streamingRequest, error) {
	req := &streamingRequest{options: texttospeech.NewOptions(opts...)}

	speakURL, err := url.Parse(c.speakURL)
	if err != nil {
		return nil, fmt.Errorf("invalid speak url: %w", err)
	}
	urlValues := speakURL.Query()
	urlValues.Set("encoding", req.options.EncodingInfo.Format.Name())
	urlValues.Set("sample_rate", strconv.Itoa(req.options.EncodingInfo.SampleRate))
	urlValues.Set("model", string(c.voice))
	urlValues.Set("container", "none")
	speakURL.RawQuery = urlValues.Encode()

	conn, resp, err := c.dialer.DialContext(ctx, speakURL.String(), http.Header{"Authorization": {"token " + c.apiKey}})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	req.ws = conn

	go req.processIncomingMessages()

	return req, nil
}

func (r *streamingRequest) processIncomingMessages() {
	for {
		msgType, msg, err := r.ws.ReadMessage()
		if err != nil {
			r.mu.Lock()
			expected := r.closed
			r.mu.Unlock()
			if !expected && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				logger.Warn("deepgram speak stream failed", "error", err)
				r.options.ErrorCallback(fmt.Errorf("speak stream failed: %w", err))
			}
			_ = r.Close()
			_ = r.ws.Close()
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			r.mu.Lock()
			discard := r.cancelled
			r.mu.Unlock()
			if !discard && len(msg) > 0 {
				r.options.SpeechAudioCallback(msg)
			}
		case websocket.TextMessage:
			var parsedMsg websocketMessage
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				logger.Debug("failed to unmarshal deepgram message", "error", err)
				continue
			}
			if parsedMsg.Type == "Flushed" {
				r.onFlushed()
			}
		}
	}
}

func (r *streamingRequest) onFlushed() {
	r.mu.Lock()
	if r.cancelled || r.closed {
		r.mu.Unlock()
		return
	}

	var marked *string
	if len(r.textBuffer) > 0 {
		marked = &r.textBuffer[0]
		r.textBuffer = r.textBuffer[1:]
	}
	finished := len(r.textBuffer) == 0 && r.textComplete
	var next string
	hasNext := len(r.textBuffer) > 0
	if hasNext {
		next = r.textBuffer[0]
	}
	flushNext := len(r.textBuffer) > 1 || (hasNext && r.textComplete)
	r.mu.Unlock()

	if marked != nil {
		r.options.SpeechMarkCallback(*marked)
	}
	if finished {
		r.end()
		return
	}

	if hasNext && next != "" {
		if err := r.sendWebsocketMessage(sendTextMsg(next)); err != nil {
			logger.Debug("failed to send deepgram text", "error", err)
		}
	}
	if flushNext {
		if err := r.sendWebsocketMessage(flushMsg); err != nil {
			logger.Debug("failed to flush deepgram buffer", "error", err)
		}
	}
}

func (r *streamingRequest) checkWritable() error {
	if r.closed {
		return errRequestClosed
	} else if r.cancelled {
		return errRequestCancelled
	} else if r.textComplete {
		return errTextCompleted
	}
	return nil
}

func (r *streamingRequest) SendText(text string) error {
	r.mu.Lock()
	if err := r.checkWritable(); err != nil {
		r.mu.Unlock()
		return err
	}

	if len(r.textBuffer) == 0 {
		r.textBuffer = append(r.textBuffer, "")
	}
	r.textBuffer[len(r.textBuffer)-1] += text
	sendNow := len(r.textBuffer) == 1
	r.mu.Unlock()

	if sendNow {
		if err := r.sendWebsocketMessage(sendTextMsg(text)); err != nil {
			return fmt.Errorf("failed to send websocket send text message: %w", err)
		}
	}
	return nil
}

func (r *streamingRequest) Mark() error {
	r.mu.Lock()
	if err := r.checkWritable(); err != nil {
		r.mu.Unlock()
		return err
	}
	flushNow := len(r.textBuffer) == 1
	// NOTE: Deepgram sometimes drops text that is passed after a flush unless
	// there is some kind of break, so text after a mark waits for the flush
	// confirmation
	r.textBuffer = append(r.textBuffer, "")
	r.mu.Unlock()

	if flushNow {
		if err := r.sendWebsocketMessage(flushMsg); err != nil {
			return fmt.Errorf("failed to send websocket flush message: %w", err)
		}
	}
	return nil
}

func (r *streamingRequest) EndOfText() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return errRequestClosed
	} else if r.cancelled {
		r.mu.Unlock()
		return errRequestCancelled
	} else if r.textComplete {
		r.mu.Unlock()
		return nil
	}
	r.textComplete = true

	// drop a trailing empty segment left by Mark
	if n := len(r.textBuffer); n > 0 && r.textBuffer[n-1] == "" {
		r.textBuffer = r.textBuffer[:n-1]
	}
	remaining := len(r.textBuffer)
	r.mu.Unlock()

	switch remaining {
	case 0:
		r.end()
	case 1:
		// the head segment was sent but not yet flushed
		if err := r.sendWebsocketMessage(flushMsg); err != nil {
			return fmt.Errorf("failed to send websocket flush message: %w", err)
		}
	}
	return nil
}

func (r *streamingRequest) end() {
	r.mu.Lock()
	if r.ended {
		r.mu.Unlock()
		return
	}
	r.ended = true
	r.mu.Unlock()

	r.options.SpeechEndedCallback()
	_ = r.Close()
}

func (r *streamingRequest) Cancel() error {
	r.mu.Lock()
	if r.closed || r.cancelled {
		r.mu.Unlock()
		return nil
	}
	r.cancelled = true
	r.textBuffer = nil
	r.mu.Unlock()

	if err := r.sendWebsocketMessage(clearMsg); err != nil {
		logger.Debug("failed to send clear message", "error", err)
	}
	return r.Close()
}

func (r *streamingRequest) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if err := r.sendWebsocketMessage(closeMsg); err != nil {
		if aggressiveCloseErr := r.ws.Close(); aggressiveCloseErr != nil {
			return fmt.Errorf("failed to close websocket: %w", errors.Join(err, aggressiveCloseErr))
		}
	}
	return nil
}

type websocketMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

var (
	sendTextMsg = func(text string) websocketMessage { return websocketMessage{Type: "Speak", Text: text} }
	flushMsg    = websocketMessage{Type: "Flush"}
	clearMsg    = websocketMessage{Type: "Clear"}
	closeMsg    = websocketMessage{Type: "Close"}
)

func (r *streamingRequest) sendWebsocketMessage(msg websocketMessage) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if r.ws == nil {
		return fmt.Errorf("websocket connection closed")
	}

	if err := r.ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write to websocket: %w", err)
	}
	return nil
}
