package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenlens/internal/domain"
)

func TestUploadGate_Validate(t *testing.T) {
	gate := NewUploadGate(0)

	tests := []struct {
		name    string
		file    domain.CandidateFile
		reason  domain.RejectReason
		message string
	}{
		{
			name: "accepts pdf within limit",
			file: domain.CandidateFile{Name: "report.pdf", ContentType: "application/pdf", Size: 1024},
		},
		{
			name: "accepts pdf exactly at limit",
			file: domain.CandidateFile{Name: "report.pdf", ContentType: "application/pdf", Size: DefaultMaxBytes},
		},
		{
			name:    "rejects pdf one byte over limit",
			file:    domain.CandidateFile{Name: "report.pdf", ContentType: "application/pdf", Size: DefaultMaxBytes + 1},
			reason:  domain.RejectTooLarge,
			message: MsgTooLarge,
		},
		{
			name:    "rejects wrong type",
			file:    domain.CandidateFile{Name: "report.docx", ContentType: "application/msword", Size: 10},
			reason:  domain.RejectWrongType,
			message: MsgWrongType,
		},
		{
			name:    "type check wins over size",
			file:    domain.CandidateFile{Name: "huge.png", ContentType: "image/png", Size: DefaultMaxBytes * 2},
			reason:  domain.RejectWrongType,
			message: MsgWrongType,
		},
		{
			name:    "empty content type is rejected",
			file:    domain.CandidateFile{Name: "report.pdf", Size: 10},
			reason:  domain.RejectWrongType,
			message: MsgWrongType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gate.Validate(tt.file)
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrValidationRejected))

			var rej *domain.RejectionError
			require.True(t, errors.As(err, &rej))
			assert.Equal(t, tt.reason, rej.Reason)
			assert.Equal(t, tt.message, rej.Message)
		})
	}
}

func TestUploadGate_CustomLimit(t *testing.T) {
	gate := NewUploadGate(10 * 1024 * 1024)

	err := gate.Validate(domain.CandidateFile{ContentType: "application/pdf", Size: 11 * 1024 * 1024})
	require.Error(t, err)
	assert.Equal(t, "File size must be less than 10MB", err.Error())
}
