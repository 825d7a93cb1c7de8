package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-interview/core/audio"
)

type playbackClient struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device
	config       malgo.DeviceConfig

	leftoverAudio []byte
	marks         []playbackMark

	mu sync.Mutex
	// bufferMu guards leftoverAudio and marks, which are shared with the
	// device thread.
	bufferMu sync.Mutex
}

type playbackMark struct {
	position int
	callback func()
}

func (c *playbackClient) Init(audioContext *malgo.AllocatedContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sampleRate := uint32(audio.DefaultSampleRate)
	channels := 1
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	c.config = malgo.DefaultDeviceConfig(malgo.Playback)
	c.config.SampleRate = sampleRate
	c.config.Playback.Format = format
	c.config.Playback.Channels = uint32(channels)
	c.config.Alsa.NoMMap = 1
	c.config.PeriodSizeInFrames = sampleRate / 10 // ~100ms of audio
	c.config.Periods = 4

	c.audioContext = audioContext

	var err error
	if c.device, err = malgo.InitDevice(
		c.audioContext.Context,
		c.config,
		malgo.DeviceCallbacks{Data: c.processAudio(bytesPerFrame)},
	); err != nil {
		return err
	}

	return nil
}

func (c *playbackClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	return nil
}

func (c *playbackClient) SendAudio(audio []byte) error {
	c.mu.Lock()
	started := c.device != nil && c.device.IsStarted()
	c.mu.Unlock()
	if !started {
		return fmt.Errorf("playback device not started")
	}

	c.bufferMu.Lock()
	defer c.bufferMu.Unlock()
	c.leftoverAudio = append(c.leftoverAudio, audio...)
	return nil
}

// ClearBuffer drops queued audio. Pending marks are released so AwaitMark
// callers return.
func (c *playbackClient) ClearBuffer() {
	c.bufferMu.Lock()
	c.leftoverAudio = nil
	pending := c.marks
	c.marks = nil
	c.bufferMu.Unlock()

	for _, mark := range pending {
		mark.callback()
	}
}

// AwaitMark blocks until everything queued so far has been played or the
// buffer was cleared.
func (c *playbackClient) AwaitMark() error {
	c.mu.Lock()
	started := c.device != nil && c.device.IsStarted()
	c.mu.Unlock()
	if !started {
		return nil
	}

	done := make(chan struct{})
	c.bufferMu.Lock()
	if len(c.leftoverAudio) == 0 {
		c.bufferMu.Unlock()
		return nil
	}
	c.marks = append(c.marks, playbackMark{
		position: len(c.leftoverAudio),
		callback: func() { close(done) },
	})
	c.bufferMu.Unlock()

	<-done
	return nil
}

func (c *playbackClient) Uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return nil
	}

	c.device.Uninit()
	c.device = nil
	c.ClearBuffer()

	return nil
}

func (c *playbackClient) processAudio(bytesPerFrame int) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		need := min(int(frameCount)*bytesPerFrame, len(pOutput))

		c.bufferMu.Lock()
		n := copy(pOutput[:need], c.leftoverAudio)
		c.leftoverAudio = c.leftoverAudio[n:]
		passed := c.advanceMarks(n)
		c.bufferMu.Unlock()

		clear(pOutput[n:need])
		if len(passed) > 0 {
			go func() {
				for _, mark := range passed {
					mark.callback()
				}
			}()
		}
	}
}

// advanceMarks must be called with bufferMu held.
func (c *playbackClient) advanceMarks(played int) []playbackMark {
	passed := 0
	for i := range c.marks {
		c.marks[i].position -= played
		if c.marks[i].position <= 0 {
			passed++
		}
	}
	toCall := c.marks[:passed]
	c.marks = c.marks[passed:]
	return toCall
}
