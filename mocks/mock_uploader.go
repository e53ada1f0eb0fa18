package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"greenlens/internal/domain"
)

// MockUploader is a mock implementation of port.Uploader.
type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, file domain.CandidateFile) (*domain.UploadTicket, error) {
	args := m.Called(ctx, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UploadTicket), args.Error(1)
}
