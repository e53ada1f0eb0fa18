package port

import (
	"context"

	"greenlens/internal/domain"
)

// Uploader performs the one-shot upload call.
type Uploader interface {
	Upload(ctx context.Context, file domain.CandidateFile) (*domain.UploadTicket, error)
}

// Gate validates a candidate file before it enters the pipeline.
type Gate interface {
	Validate(file domain.CandidateFile) error
}
