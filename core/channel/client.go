package channel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Client is the client half of the interview channel. It makes exactly one
// connection attempt and never reconnects.
type Client struct {
	dialer       *websocket.Dialer
	header       http.Header
	writeTimeout time.Duration
	pingInterval time.Duration
	readLimit    int64

	onMessage func(Message)
	onStatus  func(Status, error)

	mu      sync.Mutex
	status  Status
	lastErr error

	connMu     sync.Mutex
	conn       *websocket.Conn
	cancelDial context.CancelFunc

	// writeMu keeps a single writer on the connection.
	writeMu sync.Mutex

	closing atomic.Bool
	done    chan struct{}
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		dialer:       websocket.DefaultDialer,
		writeTimeout: defaultWriteTimeout,
		readLimit:    defaultReadLimit,
		onMessage:    func(Message) {},
		onStatus:     func(Status, error) {},
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Err returns the transport failure that moved the channel into the errored
// state, if any.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Done is closed once the channel reaches StatusClosed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Connect dials endpoint and starts the read loop. Cancelling ctx or calling
// Close while the dial is in flight aborts it.
func (c *Client) Connect(ctx context.Context, endpoint string) error {
	ctx, span := tracer.Start(ctx, "channel.connect", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("channel.endpoint", endpoint))

	if !c.transition(StatusConnecting, nil) {
		if c.Status() == StatusClosed {
			return fmt.Errorf("channel closed before connect: %w", ErrChannelNotOpen)
		}
		return ErrAlreadyConnected
	}

	dialCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.connMu.Lock()
	c.cancelDial = cancel
	c.connMu.Unlock()
	if c.Status() == StatusClosed {
		cancel()
	}

	conn, resp, err := c.dialer.DialContext(dialCtx, endpoint, c.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if c.Status() == StatusClosed {
			return fmt.Errorf("channel closed while connecting: %w", ErrChannelNotOpen)
		}
		chErr := &ChannelError{Op: "connect", Err: err}
		span.RecordError(chErr)
		span.SetStatus(codes.Error, chErr.Error())
		c.fail(chErr)
		return chErr
	}

	// Close may have run while the dial was in flight; the result must not be
	// attached to a torn down channel.
	c.connMu.Lock()
	if !c.transition(StatusOpen, nil) {
		c.connMu.Unlock()
		_ = conn.Close()
		return fmt.Errorf("channel closed while connecting: %w", ErrChannelNotOpen)
	}
	c.conn = conn
	c.cancelDial = nil
	c.connMu.Unlock()

	conn.SetReadLimit(c.readLimit)
	go c.readLoop(conn)
	if c.pingInterval > 0 {
		go c.pingLoop(conn)
	}

	logger.Info("channel open", "endpoint", endpoint)
	return nil
}

// Send writes text as a single frame. It fails with ErrChannelNotOpen, without
// any I/O, unless the channel is open.
func (c *Client) Send(text string) error {
	if c.Status() != StatusOpen {
		return ErrChannelNotOpen
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()
	if conn == nil || c.Status() != StatusOpen {
		return ErrChannelNotOpen
	}

	if c.writeTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	_, span := tracer.Start(context.Background(), "channel.send", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.Int("channel.frame_bytes", len(text)))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		chErr := &ChannelError{Op: "send", Err: err}
		span.RecordError(chErr)
		span.SetStatus(codes.Error, chErr.Error())
		go c.fail(chErr)
		return chErr
	}
	return nil
}

// Close moves the channel to StatusClosed from any state and releases the
// connection. Repeated calls are no-ops.
func (c *Client) Close() error {
	if !c.closing.CompareAndSwap(false, true) {
		return nil
	}
	return c.shutdown()
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if c.Status() == StatusClosed {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Info("channel closed by remote", "reason", err.Error())
				_ = c.Close()
				return
			}
			c.fail(&ChannelError{Op: "read", Err: err})
			return
		}

		if msgType != websocket.TextMessage {
			logger.Debug("ignoring non-text frame", "type", msgType)
			continue
		}
		c.onMessage(Classify(string(data)))
	}
}

func (c *Client) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
			c.writeMu.Unlock()
			if err != nil {
				if c.Status() != StatusOpen {
					return
				}
				c.fail(&ChannelError{Op: "ping", Err: err})
				return
			}
		}
	}
}

// fail records a transport failure, moves the channel through errored and
// tears it down.
func (c *Client) fail(err error) {
	if c.transition(StatusErrored, err) {
		logger.Error("channel transport failure", "error", err)
	}
	_ = c.Close()
}

func (c *Client) shutdown() error {
	c.transition(StatusClosed, nil)

	c.connMu.Lock()
	conn := c.conn
	c.conn = nil
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	c.connMu.Unlock()

	var errs []error
	if conn != nil {
		c.writeMu.Lock()
		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second)); err != nil &&
			!errors.Is(err, websocket.ErrCloseSent) {
			logger.Debug("failed to send close frame", "error", err)
		}
		c.writeMu.Unlock()
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}

	close(c.done)
	return errors.Join(errs...)
}

func (c *Client) transition(next Status, err error) bool {
	c.mu.Lock()
	if !c.status.canTransitionTo(next) {
		c.mu.Unlock()
		return false
	}
	c.status = next
	if err != nil {
		c.lastErr = err
	}
	c.mu.Unlock()

	c.onStatus(next, err)
	return true
}
