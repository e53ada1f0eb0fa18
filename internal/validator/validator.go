package validator

import (
	"fmt"

	"greenlens/internal/domain"
)

// DefaultMaxBytes is the upload ceiling applied when none is configured (50 MiB).
const DefaultMaxBytes int64 = 50 * 1024 * 1024

// Messages surfaced verbatim in the workflow error slot.
const (
	MsgWrongType = "Please select a PDF file"
	MsgTooLarge  = "File size must be less than 50MB"
)

// UploadGate rejects files that must not be sent to the backend.
// It is stateless and safe for concurrent use.
type UploadGate struct {
	MaxBytes int64
}

// NewUploadGate creates a gate with the given ceiling. Non-positive values
// fall back to DefaultMaxBytes.
func NewUploadGate(maxBytes int64) *UploadGate {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &UploadGate{MaxBytes: maxBytes}
}

// Validate accepts a file iff its declared type is application/pdf and its
// size does not exceed the ceiling. The type check runs first.
func (g *UploadGate) Validate(file domain.CandidateFile) error {
	if file.ContentType != domain.PDFContentType {
		return &domain.RejectionError{Reason: domain.RejectWrongType, Message: MsgWrongType}
	}
	if file.Size > g.MaxBytes {
		msg := MsgTooLarge
		if g.MaxBytes != DefaultMaxBytes {
			msg = fmt.Sprintf("File size must be less than %dMB", g.MaxBytes/(1024*1024))
		}
		return &domain.RejectionError{Reason: domain.RejectTooLarge, Message: msg}
	}
	return nil
}
