package miniaudio

import (
	"context"
	"errors"
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-interview/core/audio"
)

// Client owns a miniaudio context with a capture device and, unless disabled,
// a playback device used for synthesized speech.
type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	playbackClient
	microphone microphone

	withPlayback bool
}

type ClientOption func(*Client)

// WithoutPlayback skips the playback device, for capture-only sessions.
func WithoutPlayback() ClientOption {
	return func(c *Client) { c.withPlayback = false }
}

// NewClient initializes the devices. Failures to acquire a device are
// reported as audio.ErrDeviceUnavailable.
func NewClient(opts ...ClientOption) (*Client, error) {
	client := Client{withPlayback: true}
	for _, opt := range opts {
		opt(&client)
	}

	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("malgo", "message", message)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", errors.Join(audio.ErrDeviceUnavailable, err))
	}
	client.audioContext = audioCtx

	if client.withPlayback {
		if err := client.playbackClient.Init(audioCtx); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to initialize playback client: %w", errors.Join(audio.ErrDeviceUnavailable, err))
		}

		if err := client.playbackClient.Start(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to start playback device: %w", errors.Join(audio.ErrDeviceUnavailable, err))
		}
	}

	if err := client.microphone.Init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize capture client: %w", errors.Join(audio.ErrDeviceUnavailable, err))
	}

	return &client, nil
}

func (c *Client) StartCapture(_ context.Context, onAudio func(audio []byte)) error {
	if err := c.microphone.Start(onAudio); err != nil {
		return errors.Join(audio.ErrDeviceUnavailable, err)
	}
	return nil
}

func (c *Client) StopCapture() error {
	return c.microphone.Stop()
}

func (c *Client) Close() error {
	var errs []error
	c.microphone.Uninit()
	if c.withPlayback {
		if err := c.playbackClient.Uninit(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.audioContext != nil {
		if err := c.audioContext.Uninit(); err != nil {
			errs = append(errs, fmt.Errorf("failed to uninitialize audio context: %w", err))
		}
		c.audioContext.Free()
		c.audioContext = nil
	}
	return errors.Join(errs...)
}

func (c *Client) SendAudio(audio []byte) error {
	return c.playbackClient.SendAudio(audio)
}

func (c *Client) ClearBuffer() {
	c.playbackClient.ClearBuffer()
}

func (c *Client) AwaitMark() error {
	return c.playbackClient.AwaitMark()
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.DefaultSampleRate,
		Format:     audio.EncodingLinear16,
	}
}
