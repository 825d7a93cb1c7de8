package portaudio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-interview/core/audio"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/ema-interview/core/audio/portaudio"

var logger = otelslog.NewLogger(scopeName)

// Client captures mono linear16 audio from the default input device.
type Client struct {
	bufferSize int
	stream     *portaudio.Stream
	in         []int16

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewClient opens the default input stream. Failures to acquire the device
// are reported as audio.ErrDeviceUnavailable.
func NewClient(bufferSize int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", errors.Join(audio.ErrDeviceUnavailable, err))
	}

	in := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, audio.DefaultSampleRate, bufferSize, in)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to open portaudio stream: %w", errors.Join(audio.ErrDeviceUnavailable, err))
	}

	return &Client{
		bufferSize: bufferSize,
		stream:     stream,
		in:         in,
	}, nil
}

func (c *Client) StartCapture(ctx context.Context, onAudio func(audio []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return nil
	}

	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("failed to start portaudio stream: %w", errors.Join(audio.ErrDeviceUnavailable, err))
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.read(ctx, onAudio, c.done)
	return nil
}

func (c *Client) read(ctx context.Context, onAudio func([]byte), done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := c.stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				continue
			}
			logger.Error("failed to read from portaudio stream", "error", err)
			return
		}

		chunk := make([]byte, len(c.in)*2)
		for i, sample := range c.in {
			binary.LittleEndian.PutUint16(chunk[i*2:], uint16(sample))
		}
		onAudio(chunk)
	}
}

func (c *Client) StopCapture() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return nil
	}

	c.cancel()
	c.cancel = nil
	<-c.done

	if err := c.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop portaudio stream: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	errs := []error{c.StopCapture()}
	if err := c.stream.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close portaudio stream: %w", err))
	}
	if err := portaudio.Terminate(); err != nil {
		errs = append(errs, fmt.Errorf("failed to terminate portaudio: %w", err))
	}
	return errors.Join(errs...)
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.DefaultSampleRate,
		Format:     audio.EncodingLinear16,
	}
}
