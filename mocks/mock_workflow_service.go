package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"greenlens/internal/domain"
	"greenlens/internal/service"
)

// MockWorkflowService is a mock implementation of service.WorkflowService.
type MockWorkflowService struct {
	mock.Mock
}

func (m *MockWorkflowService) StartUpload(ctx context.Context, file domain.CandidateFile) error {
	args := m.Called(ctx, file)
	return args.Error(0)
}

func (m *MockWorkflowService) Reset() {
	m.Called()
}

func (m *MockWorkflowService) Close() {
	m.Called()
}

func (m *MockWorkflowService) State() domain.WorkflowState {
	args := m.Called()
	return args.Get(0).(domain.WorkflowState)
}

func (m *MockWorkflowService) Observe(fn service.Observer) func() {
	args := m.Called(fn)
	if args.Get(0) == nil {
		return func() {}
	}
	return args.Get(0).(func())
}

// MockSyncService is a mock implementation of service.SyncService.
type MockSyncService struct {
	mock.Mock
}

func (m *MockSyncService) Present(ctx context.Context, fileURL string, result *domain.AnalysisResult) error {
	args := m.Called(ctx, fileURL, result)
	return args.Error(0)
}

func (m *MockSyncService) JumpTo(ctx context.Context, initiative domain.Initiative) (int, error) {
	args := m.Called(ctx, initiative)
	return args.Int(0), args.Error(1)
}

func (m *MockSyncService) HighlightSet(result *domain.AnalysisResult) []string {
	args := m.Called(result)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}
