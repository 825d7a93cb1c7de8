package interview

import "errors"

var (
	// ErrEmptyUtterance is returned by Submit for empty or whitespace text.
	ErrEmptyUtterance = errors.New("empty utterance")
	// ErrSuppressed is returned by Submit while the assistant is speaking.
	ErrSuppressed = errors.New("submission suppressed while assistant is speaking")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("session already started")
	// ErrSessionEnded is returned by operations on an ended session.
	ErrSessionEnded = errors.New("session ended")
)
