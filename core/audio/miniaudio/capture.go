package miniaudio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-interview/core/audio"
)

// captureFramesPerPeriod keeps chunks at 30ms so level updates stay smooth.
const captureFramesPerPeriod = audio.DefaultSampleRate * 30 / 1000

var errMicrophoneNotReady = errors.New("microphone not initialized")

// microphone is a mono linear16 capture device. Chunks are handed to the
// current sink from the device thread.
type microphone struct {
	mu     sync.Mutex
	device *malgo.Device

	sink atomic.Pointer[func(chunk []byte)]
	// capturing distinguishes a requested stop from the device going away.
	capturing atomic.Bool
	lost      atomic.Bool
}

func microphoneConfig() malgo.DeviceConfig {
	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = audio.DefaultSampleRate
	config.Capture.Format = malgo.FormatS16
	config.Capture.Channels = 1
	config.Alsa.NoMMap = 1
	config.PerformanceProfile = malgo.LowLatency
	config.PeriodSizeInFrames = captureFramesPerPeriod
	config.Periods = 3
	return config
}

func (m *microphone) Init(audioContext *malgo.AllocatedContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	config := microphoneConfig()
	frameSize := malgo.SampleSizeInBytes(config.Capture.Format) * int(config.Capture.Channels)

	device, err := malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			m.deliver(input, int(frameCount)*frameSize)
		},
		Stop: func() {
			if m.capturing.Load() {
				m.lost.Store(true)
				logger.Warn("capture device stopped unexpectedly")
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}
	m.device = device
	m.lost.Store(false)
	return nil
}

func (m *microphone) deliver(input []byte, size int) {
	if size == 0 || len(input) < size {
		return
	}
	sink := m.sink.Load()
	if sink == nil {
		return
	}
	// input is reused by the device after the callback returns
	(*sink)(append([]byte(nil), input[:size]...))
}

func (m *microphone) Start(sink func(chunk []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.device == nil:
		return errMicrophoneNotReady
	case m.lost.Load():
		return fmt.Errorf("capture device lost: %w", audio.ErrDeviceUnavailable)
	case m.device.IsStarted():
		return nil
	}

	m.sink.Store(&sink)
	m.capturing.Store(true)
	if err := m.device.Start(); err != nil {
		m.capturing.Store(false)
		m.sink.Store(nil)
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

func (m *microphone) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.capturing.Store(false)
	m.sink.Store(nil)
	if m.device == nil || !m.device.IsStarted() {
		return nil
	}
	if err := m.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}
	return nil
}

func (m *microphone) Uninit() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.capturing.Store(false)
	m.sink.Store(nil)
	if m.device != nil {
		m.device.Uninit()
		m.device = nil
	}
}
