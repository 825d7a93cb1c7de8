package channel

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultWriteTimeout = 10 * time.Second
	defaultReadLimit    = 1 << 20
)

type ClientOption func(*Client)

func WithDialer(dialer *websocket.Dialer) ClientOption {
	return func(c *Client) {
		if dialer != nil {
			c.dialer = dialer
		}
	}
}

func WithHeader(header http.Header) ClientOption {
	return func(c *Client) { c.header = header.Clone() }
}

// WithMessageCallback sets the receiver of classified inbound frames. It is
// called from the read loop, one frame at a time, in arrival order.
func WithMessageCallback(callback func(Message)) ClientOption {
	return func(c *Client) {
		if callback != nil {
			c.onMessage = callback
		}
	}
}

// WithStatusCallback is called after every state transition. err is set for
// transitions into StatusErrored.
func WithStatusCallback(callback func(status Status, err error)) ClientOption {
	return func(c *Client) {
		if callback != nil {
			c.onStatus = callback
		}
	}
}

func WithWriteTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.writeTimeout = timeout }
}

// WithPingInterval enables keepalive pings. Zero disables them.
func WithPingInterval(interval time.Duration) ClientOption {
	return func(c *Client) { c.pingInterval = interval }
}

func WithReadLimit(limit int64) ClientOption {
	return func(c *Client) { c.readLimit = limit }
}
