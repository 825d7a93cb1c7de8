package audio

import "errors"

// ErrDeviceUnavailable is returned when an input or output device is absent
// or access to it was denied.
var ErrDeviceUnavailable = errors.New("audio device unavailable")
