package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"greenlens/internal/domain"
)

// MockDocumentViewer is a mock implementation of port.DocumentViewer.
type MockDocumentViewer struct {
	mock.Mock
}

func (m *MockDocumentViewer) Load(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

func (m *MockDocumentViewer) JumpToPage(ctx context.Context, index int) error {
	args := m.Called(ctx, index)
	return args.Error(0)
}

func (m *MockDocumentViewer) Highlight(ctx context.Context, texts []string) error {
	args := m.Called(ctx, texts)
	return args.Error(0)
}

func (m *MockDocumentViewer) Surface(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDocumentViewer) Layout() domain.Layout {
	args := m.Called()
	return args.Get(0).(domain.Layout)
}
