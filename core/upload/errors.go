package upload

import (
	"errors"
	"fmt"
)

// ErrUploadFailed matches every failed upload. Uploads are never retried;
// the caller may try again.
var ErrUploadFailed = errors.New("resume upload failed")

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("resume upload failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("resume upload failed with status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrUploadFailed }
