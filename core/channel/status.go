package channel

type Status int32

const (
	// StatusIdle is the state before Connect has been called.
	StatusIdle Status = iota
	StatusConnecting
	StatusOpen
	StatusErrored
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusOpen:
		return "open"
	case StatusErrored:
		return "errored"
	case StatusClosed:
		return "closed"
	}
	return "unknown"
}

func (s Status) canTransitionTo(next Status) bool {
	switch s {
	case StatusIdle:
		return next == StatusConnecting || next == StatusClosed
	case StatusConnecting:
		return next == StatusOpen || next == StatusErrored || next == StatusClosed
	case StatusOpen:
		return next == StatusErrored || next == StatusClosed
	case StatusErrored:
		return next == StatusClosed
	}
	return false
}
