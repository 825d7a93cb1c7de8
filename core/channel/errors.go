package channel

import (
	"errors"
	"fmt"
)

var (
	// ErrChannelNotOpen is returned by Send outside the open state.
	ErrChannelNotOpen = errors.New("channel not open")
	// ErrAlreadyConnected is returned when a second connection attempt is made.
	ErrAlreadyConnected = errors.New("channel connection already attempted")
	// ErrChannelError matches every *ChannelError.
	ErrChannelError = errors.New("channel transport failure")
)

// ChannelError reports a transport failure. It is terminal for the channel.
type ChannelError struct {
	Op  string
	Err error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel %s failed: %v", e.Op, e.Err)
}

func (e *ChannelError) Unwrap() []error {
	return []error{ErrChannelError, e.Err}
}
