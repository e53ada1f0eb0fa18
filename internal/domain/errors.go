package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidationRejected = errors.New("file rejected")
	ErrUploadFailed       = errors.New("upload failed")
	ErrStreamError        = errors.New("analysis reported an error")
	ErrStreamInterrupted  = errors.New("progress stream interrupted")
	ErrInvalidPageLabel   = errors.New("invalid page label")
	ErrPageOutOfRange     = errors.New("page out of range")
	ErrViewerDetached     = errors.New("no document viewer attached")
	ErrWorkflowClosed     = errors.New("workflow closed")
	ErrNoResult           = errors.New("no analysis result available")
	ErrInitiativeNotFound = errors.New("initiative not found")
	ErrSuperseded         = errors.New("superseded by a newer upload or reset")
)

// RejectionError is returned by the upload gate.
type RejectionError struct {
	Reason  RejectReason
	Message string
}

func (e *RejectionError) Error() string {
	return e.Message
}

func (e *RejectionError) Unwrap() error {
	return ErrValidationRejected
}

// UploadError normalizes every transport or HTTP failure of the upload call.
type UploadError struct {
	Message string
	Status  int
	Err     error
}

func (e *UploadError) Error() string {
	return e.Message
}

func (e *UploadError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUploadFailed}
	}
	return []error{ErrUploadFailed, e.Err}
}

// NewUploadError creates an UploadError carrying the HTTP status (0 for transport failures).
func NewUploadError(status int, message string, err error) *UploadError {
	return &UploadError{Message: message, Status: status, Err: err}
}

// InterruptedError wraps a transport-level stream failure.
func InterruptedError(err error) error {
	if err == nil {
		return ErrStreamInterrupted
	}
	return fmt.Errorf("%w: %w", ErrStreamInterrupted, err)
}
